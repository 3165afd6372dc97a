package echogate

import (
	"fmt"
	"os"
	"strings"

	"github.com/echogatelabs/echogate/pkg/adapters/stt"
	"github.com/echogatelabs/echogate/pkg/configutil"
	"github.com/echogatelabs/echogate/pkg/llm"
	"github.com/echogatelabs/echogate/pkg/providers/deepgram"
	"github.com/echogatelabs/echogate/pkg/providers/mock"
	"github.com/echogatelabs/echogate/pkg/providers/openai"
)

type STTFactoryBuilder func(cfg Config) (stt.Factory, error)
type ChatFactory func(cfg Config) (llm.Adapter, error)

// ProviderRegistry maps vendor names from config onto constructors.
// Built-in providers are registered by NewProviderRegistry; embedders
// can add their own before building the engine.
type ProviderRegistry struct {
	stt  map[string]STTFactoryBuilder
	chat map[string]ChatFactory
}

func NewProviderRegistry() *ProviderRegistry {
	r := &ProviderRegistry{
		stt:  make(map[string]STTFactoryBuilder),
		chat: make(map[string]ChatFactory),
	}
	r.RegisterSTT("deepgram", buildDeepgramFactory)
	r.RegisterSTT("mock", buildMockFactory)
	r.RegisterChat("openai", buildOpenAIAdapter)
	return r
}

func (r *ProviderRegistry) RegisterSTT(name string, builder STTFactoryBuilder) {
	r.stt[strings.ToLower(strings.TrimSpace(name))] = builder
}

func (r *ProviderRegistry) RegisterChat(name string, factory ChatFactory) {
	r.chat[strings.ToLower(strings.TrimSpace(name))] = factory
}

func (r *ProviderRegistry) BuildSTTFactory(provider string, cfg Config) (stt.Factory, error) {
	fn := r.stt[strings.ToLower(strings.TrimSpace(provider))]
	if fn == nil {
		return nil, fmt.Errorf("stt provider not registered: %s", provider)
	}
	return fn(cfg)
}

func (r *ProviderRegistry) BuildChat(provider string, cfg Config) (llm.Adapter, error) {
	fn := r.chat[strings.ToLower(strings.TrimSpace(provider))]
	if fn == nil {
		return nil, fmt.Errorf("chat provider not registered: %s", provider)
	}
	return fn(cfg)
}

type deepgramSettings struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	Interim *bool  `mapstructure:"interim"`
}

func buildDeepgramFactory(cfg Config) (stt.Factory, error) {
	settings := cfg.Vendors.STT.Settings
	if err := configutil.ValidateSettings(settings, configutil.Schema{
		Optional: []string{"api_key", "model", "interim"},
	}); err != nil {
		return nil, fmt.Errorf("deepgram settings: %w", err)
	}
	var s deepgramSettings
	if err := configutil.DecodeSettings(settings, &s); err != nil {
		return nil, fmt.Errorf("deepgram settings: %w", err)
	}
	if s.APIKey == "" {
		s.APIKey = os.Getenv("DEEPGRAM_API_KEY")
	}
	if err := configutil.RequireString(s.APIKey, "vendors.stt.settings.api_key"); err != nil {
		return nil, err
	}
	interim := configutil.BoolValue(s.Interim, true)
	return func(sc stt.Config) stt.Stream {
		return deepgram.New(deepgram.Config{
			APIKey:     s.APIKey,
			Model:      s.Model,
			SessionID:  sc.SessionID,
			Language:   sc.Language,
			SampleRate: sc.SampleRate,
			Encoding:   sc.Encoding,
			Interim:    interim,
		})
	}, nil
}

func buildMockFactory(cfg Config) (stt.Factory, error) {
	return func(sc stt.Config) stt.Stream {
		return mock.NewSTT(mock.STTConfig{SessionID: sc.SessionID}, sc)
	}, nil
}

type openaiSettings struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

func buildOpenAIAdapter(cfg Config) (llm.Adapter, error) {
	settings := cfg.Vendors.Chat.Settings
	if err := configutil.ValidateSettings(settings, configutil.Schema{
		Required: []string{"model"},
		Optional: []string{"api_key", "base_url", "temperature", "max_tokens"},
	}); err != nil {
		return nil, fmt.Errorf("openai settings: %w", err)
	}
	var s openaiSettings
	if err := configutil.DecodeSettings(settings, &s); err != nil {
		return nil, fmt.Errorf("openai settings: %w", err)
	}
	if s.APIKey == "" {
		s.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if err := configutil.RequireString(s.APIKey, "vendors.chat.settings.api_key"); err != nil {
		return nil, err
	}
	adapter := openai.NewAdapter(s.APIKey, s.Model)
	if s.BaseURL != "" {
		adapter.BaseURL = strings.TrimRight(s.BaseURL, "/")
	}
	adapter.Temperature = s.Temperature
	adapter.MaxTokens = s.MaxTokens
	return adapter, nil
}
