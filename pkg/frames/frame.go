package frames

// Kind discriminates the inbound frame union.
type Kind string

const (
	KindBinary     Kind = "binary"
	KindText       Kind = "text"
	KindDisconnect Kind = "disconnect"
)

// InboundFrame is one message read from the client connection. Binary
// frames carry an opaque audio chunk, text frames carry a control
// string, and a disconnect frame means the connection ended.
type InboundFrame struct {
	kind Kind
	data []byte
	text string
}

func NewBinaryFrame(data []byte) InboundFrame {
	return InboundFrame{kind: KindBinary, data: data}
}

func NewTextFrame(text string) InboundFrame {
	return InboundFrame{kind: KindText, text: text}
}

func NewDisconnectFrame() InboundFrame {
	return InboundFrame{kind: KindDisconnect}
}

func (f InboundFrame) Kind() Kind   { return f.kind }
func (f InboundFrame) Data() []byte { return f.data }
func (f InboundFrame) Text() string { return f.text }

// Outbound message types sent to the client as JSON text frames.
const (
	TypePartial = "partial"
	TypeFinal   = "final"
	TypeError   = "error"
)

// OutboundMessage is the wire shape of everything the gateway sends to
// a connected client. Text and Language are set for transcript
// messages, Message only for error messages.
type OutboundMessage struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Language string `json:"language,omitempty"`
	Message  string `json:"message,omitempty"`
}

func PartialMessage(text, language string) OutboundMessage {
	return OutboundMessage{Type: TypePartial, Text: text, Language: language}
}

func FinalMessage(text, language string) OutboundMessage {
	return OutboundMessage{Type: TypeFinal, Text: text, Language: language}
}

func ErrorMessage(message string) OutboundMessage {
	return OutboundMessage{Type: TypeError, Message: message}
}
