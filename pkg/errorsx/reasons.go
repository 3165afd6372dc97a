package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonSTTConnect ReasonCode = "stt_connect"
	ReasonSTTSend    ReasonCode = "stt_send"
	ReasonSTTStream  ReasonCode = "stt_stream"

	ReasonClientSend ReasonCode = "client_send"

	ReasonChatGenerate  ReasonCode = "chat_generate"
	ReasonChatRateLimit ReasonCode = "chat_rate_limit"

	ReasonConfig ReasonCode = "config"
)
