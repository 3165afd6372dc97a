package frames

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestOutboundMessageWireShape(t *testing.T) {
	partial, err := json.Marshal(PartialMessage("bon", "fr-FR"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(partial) != `{"type":"partial","text":"bon","language":"fr-FR"}` {
		t.Fatalf("partial = %s", partial)
	}

	errMsg, err := json.Marshal(ErrorMessage("upstream unavailable"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(errMsg), "text") || strings.Contains(string(errMsg), "language") {
		t.Fatalf("error message carries transcript fields: %s", errMsg)
	}
	if string(errMsg) != `{"type":"error","message":"upstream unavailable"}` {
		t.Fatalf("error = %s", errMsg)
	}
}

func TestInboundFrameKinds(t *testing.T) {
	b := NewBinaryFrame([]byte{1, 2, 3})
	if b.Kind() != KindBinary || len(b.Data()) != 3 {
		t.Fatalf("binary frame = %+v", b)
	}
	txt := NewTextFrame("END")
	if txt.Kind() != KindText || txt.Text() != "END" {
		t.Fatalf("text frame = %+v", txt)
	}
	if NewDisconnectFrame().Kind() != KindDisconnect {
		t.Fatal("disconnect frame kind")
	}
}
