package echogate

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/echogatelabs/echogate/pkg/errorsx"
	"github.com/echogatelabs/echogate/pkg/gateway"
	"github.com/echogatelabs/echogate/pkg/logging"
	"github.com/echogatelabs/echogate/pkg/metrics"
	"github.com/echogatelabs/echogate/pkg/redact"
	"github.com/echogatelabs/echogate/pkg/runner"
)

// Engine assembles the gateway from config: the STT vendor factory, the
// optional chat endpoint, the observer stack, and the HTTP surface. Run
// blocks until the context is cancelled, then drains live sessions.
type Engine struct {
	cfg       Config
	server    *gateway.Server
	lifecycle *runner.LifecycleRunner
	asyncObs  *metrics.AsyncObserver
	eventsLog *os.File
}

type EngineOptions struct {
	Config    Config
	Providers *ProviderRegistry
	// ExtraObservers are appended to the built-in observer stack.
	ExtraObservers []metrics.Observer
	DrainTimeout   time.Duration
}

func NewEngine(opts EngineOptions) (*Engine, error) {
	cfg := opts.Config
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	redact.SetEnabled(cfg.Privacy.RedactPII)

	slog.Info("echogate_init",
		slog.String("environment", cfg.Environment),
		slog.String("stt_provider", cfg.Vendors.STT.Provider),
		slog.String("chat_provider", cfg.Vendors.Chat.Provider),
		slog.String("addr", cfg.Gateway.Addr))

	providers := opts.Providers
	if providers == nil {
		providers = NewProviderRegistry()
	}

	e := &Engine{cfg: cfg}

	obsList := []metrics.Observer{metrics.NewLoggerObserver(slog.Default())}
	if dir := strings.TrimSpace(cfg.Observability.ArtifactsDir); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("artifacts dir: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(dir, "events.jsonl"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("artifacts dir: %w", err)
		}
		e.eventsLog = f
		obsList = append(obsList, metrics.NewJSONLObserver(f))
	}
	obsList = append(obsList, opts.ExtraObservers...)
	var obs metrics.Observer = metrics.NewMultiObserver(obsList...)
	if rate := cfg.Observability.SampleRate; rate > 0 && rate < 1 {
		obs = metrics.NewSamplingObserver(obs, rate)
	}
	e.asyncObs = metrics.NewAsyncObserver(obs, 2048)

	sttFactory, err := providers.BuildSTTFactory(cfg.Vendors.STT.Provider, cfg)
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonConfig)
	}

	var chat http.Handler
	if cfg.ChatEnabled() {
		adapter, err := providers.BuildChat(cfg.Vendors.Chat.Provider, cfg)
		if err != nil {
			return nil, errorsx.Wrap(err, errorsx.ReasonConfig)
		}
		chat = gateway.NewChatHandler(adapter, gateway.ChatOptions{
			SystemPrompt:    cfg.Chat.SystemPrompt,
			MaxRetries:      cfg.Chat.MaxRetries,
			RetryBackoff:    time.Duration(cfg.Chat.RetryBackoffMS) * time.Millisecond,
			BreakerFailures: cfg.Chat.BreakerThreshold,
			BreakerCooldown: time.Duration(cfg.Chat.BreakerCooldownMS) * time.Millisecond,
		}, e.asyncObs)
	}

	e.server = gateway.NewServer(cfg.Gateway, sttFactory, chat, e.asyncObs)
	e.lifecycle = runner.NewLifecycleRunner(e, runner.Hooks{
		OnStart: func() error { return e.server.Start(context.Background()) },
	}, opts.DrainTimeout)
	return e, nil
}

// Run blocks until ctx is cancelled or Stop is called, then drains.
func (e *Engine) Run(ctx context.Context) error {
	return e.lifecycle.Run(ctx)
}

func (e *Engine) Stop() error {
	return e.lifecycle.Stop()
}

func (e *Engine) State() runner.State {
	return e.lifecycle.State()
}

// Drain implements runner.Drainer: stop accepting connections, cut the
// live sessions loose, and flush the observer pipeline.
func (e *Engine) Drain() error {
	err := e.server.Stop()
	e.asyncObs.Close()
	if e.eventsLog != nil {
		_ = e.eventsLog.Close()
	}
	slog.Info("echogate_stopped")
	return err
}
