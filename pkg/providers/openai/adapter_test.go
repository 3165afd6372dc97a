package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/echogatelabs/echogate/pkg/llm"
	"github.com/echogatelabs/echogate/pkg/resilience"
)

func TestGenerateParsesReply(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("unexpected auth header %q", got)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{
				map[string]any{
					"finish_reason": "stop",
					"message":       map[string]any{"role": "assistant", "content": "bonjour"},
				},
			},
		})
	}))
	defer server.Close()

	adapter := NewAdapter("key", "gpt-4o-mini")
	adapter.BaseURL = server.URL
	resp, err := adapter.Generate(context.Background(), llm.Request{
		SystemPrompt: "soyez bref",
		Messages:     []llm.Message{{Role: "user", Content: "salut"}},
	})
	if err != nil {
		t.Fatalf("generate error: %v", err)
	}
	if resp.Text != "bonjour" {
		t.Fatalf("unexpected reply %q", resp.Text)
	}
	if resp.FinishReason != "stop" {
		t.Fatalf("unexpected finish reason %q", resp.FinishReason)
	}
	messages, _ := gotBody["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("expected system + user messages, got %d", len(messages))
	}
}

func TestGenerateRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	adapter := NewAdapter("key", "gpt-4o-mini")
	adapter.BaseURL = server.URL
	_, err := adapter.Generate(context.Background(), llm.Request{Messages: []llm.Message{{Role: "user", Content: "hi"}}})
	if !resilience.IsRateLimit(err) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
}

func TestGenerateNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	adapter := NewAdapter("key", "gpt-4o-mini")
	adapter.BaseURL = server.URL
	if _, err := adapter.Generate(context.Background(), llm.Request{Messages: []llm.Message{{Role: "user", Content: "hi"}}}); err == nil {
		t.Fatalf("expected error for empty choices")
	}
}
