package gateway

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/echogatelabs/echogate/pkg/adapters/stt"
	"github.com/echogatelabs/echogate/pkg/frames"
	"github.com/echogatelabs/echogate/pkg/providers/mock"
)

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.Addr != ":8080" {
		t.Fatalf("addr = %q", cfg.Addr)
	}
	if cfg.TranscribePath != "/ws/transcribe" {
		t.Fatalf("transcribe path = %q", cfg.TranscribePath)
	}
	if cfg.ChatPath != "/api/chat" {
		t.Fatalf("chat path = %q", cfg.ChatPath)
	}
	if !cfg.AllowAnyOrigin {
		t.Fatal("expected any-origin fallback when no origins configured")
	}

	restricted := Config{AllowedOrigins: []string{"app.example.com"}}.withDefaults()
	if restricted.AllowAnyOrigin {
		t.Fatal("configured origins must disable the any-origin fallback")
	}
}

func TestCheckOrigin(t *testing.T) {
	s := NewServer(Config{AllowedOrigins: []string{"app.example.com", "https://admin.example.com"}}, nil, nil, nil)

	cases := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"https://app.example.com", true},
		{"http://app.example.com/", true},
		{"https://admin.example.com", true},
		{"http://admin.example.com", false},
		{"https://evil.example.com", false},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/ws/transcribe", nil)
		if tc.origin != "" {
			r.Header.Set("Origin", tc.origin)
		}
		if got := s.checkOrigin(r); got != tc.want {
			t.Fatalf("checkOrigin(%q) = %v, want %v", tc.origin, got, tc.want)
		}
	}
}

func TestTranscribeEndToEnd(t *testing.T) {
	configs := make(chan stt.Config, 1)
	factory := func(cfg stt.Config) stt.Stream {
		configs <- cfg
		return mock.NewSTT(mock.STTConfig{Script: []stt.Recognition{
			partialRec("bon"),
			finalRec("bonjour"),
		}}, cfg)
	}
	s := NewServer(Config{}, factory, nil, nil)

	ts := httptest.NewServer(http.HandlerFunc(s.handleTranscribe))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "?lang=fr&sample_rate=8000&encoding=ogg-opus"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	for i := 0; i < 3; i++ {
		if err := conn.WriteMessage(websocket.BinaryMessage, make([]byte, 320)); err != nil {
			t.Fatalf("write audio: %v", err)
		}
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte("END")); err != nil {
		t.Fatalf("write end: %v", err)
	}

	var got []frames.OutboundMessage
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for len(got) < 2 {
		var msg frames.OutboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read transcript: %v", err)
		}
		got = append(got, msg)
	}

	if got[0].Type != frames.TypePartial || got[0].Text != "bon" || got[0].Language != "fr-FR" {
		t.Fatalf("first message = %+v", got[0])
	}
	if got[1].Type != frames.TypeFinal || got[1].Text != "bonjour" {
		t.Fatalf("second message = %+v", got[1])
	}

	var captured stt.Config
	select {
	case captured = <-configs:
	case <-time.After(time.Second):
		t.Fatal("factory never called")
	}
	if captured.Language != "fr-FR" || captured.SampleRate != 8000 || captured.Encoding != "ogg-opus" {
		t.Fatalf("normalized upstream config = %+v", captured)
	}
	if captured.SessionID == "" {
		t.Fatal("missing session id")
	}
}

func TestTranscribeRejectedWhileDraining(t *testing.T) {
	s := NewServer(Config{}, nil, nil, nil)
	if err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/ws/transcribe", nil)
	s.handleTranscribe(w, r)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}
