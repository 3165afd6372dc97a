package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/echogatelabs/echogate/pkg/errorsx"
	"github.com/echogatelabs/echogate/pkg/llm"
	"github.com/echogatelabs/echogate/pkg/logging"
	"github.com/echogatelabs/echogate/pkg/metrics"
	"github.com/echogatelabs/echogate/pkg/resilience"
)

// ChatRequest accepts either a single message or a full history; the
// history wins when both are present.
type ChatRequest struct {
	Message  string        `json:"message,omitempty"`
	Messages []llm.Message `json:"messages,omitempty"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
}

type chatError struct {
	Error string `json:"error"`
}

// ChatHandler serves the synchronous chat-completion endpoint. It has no
// session state; the adapter is constructed once at startup and injected
// here. Transient failures are retried, repeated rate limits trip the
// breaker.
type ChatHandler struct {
	adapter      llm.Adapter
	systemPrompt string
	retry        resilience.RetryPolicy
	breaker      *resilience.CircuitBreaker
	logger       *slog.Logger
	obs          metrics.Observer
}

// ChatOptions tunes the handler's resilience behavior. Zero values fall
// back to the policy constructors' defaults.
type ChatOptions struct {
	SystemPrompt    string
	MaxRetries      int
	RetryBackoff    time.Duration
	BreakerFailures int
	BreakerCooldown time.Duration
}

func NewChatHandler(adapter llm.Adapter, opts ChatOptions, obs metrics.Observer) *ChatHandler {
	if obs == nil {
		obs = metrics.NoopObserver{}
	}
	return &ChatHandler{
		adapter:      adapter,
		systemPrompt: opts.SystemPrompt,
		retry:        resilience.NewRetryPolicy(opts.MaxRetries, opts.RetryBackoff),
		breaker:      resilience.NewCircuitBreaker(opts.BreakerFailures, opts.BreakerCooldown),
		logger:       logging.NewComponentLogger(slog.Default(), "chat"),
		obs:          obs,
	}
}

func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, chatError{Error: "invalid request body"})
		return
	}
	messages := req.Messages
	if len(messages) == 0 {
		if req.Message == "" {
			writeJSON(w, http.StatusBadRequest, chatError{Error: "message or messages required"})
			return
		}
		messages = []llm.Message{{Role: "user", Content: req.Message}}
	}

	if !h.breaker.Allow() {
		h.logger.Warn("chat_circuit_open",
			slog.String("reason_code", string(errorsx.ReasonChatRateLimit)))
		writeJSON(w, http.StatusServiceUnavailable, chatError{Error: "chat temporarily unavailable"})
		return
	}

	h.record(metrics.EventChatRequest)
	var resp llm.Response
	err := h.retry.Do(func() error {
		var genErr error
		resp, genErr = h.adapter.Generate(r.Context(), llm.Request{
			Messages:     messages,
			SystemPrompt: h.systemPrompt,
		})
		return genErr
	})
	if err != nil {
		err = errorsx.Wrap(err, errorsx.ReasonChatGenerate)
		h.breaker.OnError(err)
		if resilience.IsRateLimit(err) {
			h.record(metrics.EventRateLimit)
		}
		h.logger.Error("chat_generate_failed",
			slog.String("provider", h.adapter.Name()),
			slog.String("reason_code", string(errorsx.Reason(err))),
			slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, chatError{Error: "chat provider error"})
		return
	}
	h.breaker.OnSuccess()
	writeJSON(w, http.StatusOK, ChatResponse{Reply: resp.Text})
}

func (h *ChatHandler) record(name string) {
	h.obs.RecordEvent(metrics.MetricsEvent{
		Name: name,
		Time: time.Now(),
		Tags: map[string]string{"provider": h.adapter.Name()},
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
