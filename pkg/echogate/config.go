package echogate

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/spf13/viper"

	"github.com/echogatelabs/echogate/pkg/gateway"
)

type Config struct {
	Gateway       gateway.Config      `mapstructure:"gateway"`
	Vendors       VendorsConfig       `mapstructure:"vendors"`
	Chat          ChatConfig          `mapstructure:"chat"`
	Environment   string              `mapstructure:"environment"`
	LogLevel      string              `mapstructure:"log_level"`
	LogFormat     string              `mapstructure:"log_format"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Privacy       PrivacyConfig       `mapstructure:"privacy"`
}

type VendorConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type VendorsConfig struct {
	STT  VendorConfig `mapstructure:"stt"`
	Chat VendorConfig `mapstructure:"chat"`
}

type ChatConfig struct {
	SystemPrompt      string `mapstructure:"system_prompt"`
	MaxRetries        int    `mapstructure:"max_retries"`
	RetryBackoffMS    int    `mapstructure:"retry_backoff_ms"`
	BreakerThreshold  int    `mapstructure:"breaker_threshold"`
	BreakerCooldownMS int    `mapstructure:"breaker_cooldown_ms"`
}

type ObservabilityConfig struct {
	ArtifactsDir string  `mapstructure:"artifacts_dir"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

type PrivacyConfig struct {
	RedactPII bool `mapstructure:"redact_pii"`
}

// LoadConfig reads a YAML config file and merges ECHOGATE_* environment
// variables over it. An empty path loads defaults plus environment only.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetDefault("gateway.addr", ":8080")
	v.SetDefault("gateway.transcribe_path", "/ws/transcribe")
	v.SetDefault("gateway.chat_path", "/api/chat")
	v.SetDefault("gateway.allow_any_origin", true)
	v.SetDefault("gateway.idle_timeout_ms", 0)
	v.SetDefault("vendors.stt.provider", "deepgram")
	v.SetDefault("chat.max_retries", 1)
	v.SetDefault("chat.retry_backoff_ms", 200)
	v.SetDefault("chat.breaker_threshold", 3)
	v.SetDefault("chat.breaker_cooldown_ms", 30000)
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("observability.artifacts_dir", "")
	v.SetDefault("observability.sample_rate", 1.0)
	v.SetDefault("privacy.redact_pii", true)

	v.SetEnvPrefix("ECHOGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if strings.TrimSpace(path) != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}

	expandEnvStrings(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Vendors.STT.Provider) == "" {
		return fmt.Errorf("vendors.stt.provider is required")
	}
	return nil
}

// ChatEnabled reports whether a chat provider is configured; the chat
// endpoint is simply absent otherwise.
func (c *Config) ChatEnabled() bool {
	return strings.TrimSpace(c.Vendors.Chat.Provider) != ""
}

// expandEnvStrings resolves ${VAR} references in every string field so
// secrets like API keys can stay out of config files.
func expandEnvStrings(cfg *Config) {
	expandValue(reflect.ValueOf(cfg))
	cfg.Vendors.STT.Settings = expandSettings(cfg.Vendors.STT.Settings)
	cfg.Vendors.Chat.Settings = expandSettings(cfg.Vendors.Chat.Settings)
}

func expandSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	for k, v := range settings {
		settings[k] = expandAny(v)
	}
	return settings
}

func expandAny(v any) any {
	switch val := v.(type) {
	case string:
		return os.ExpandEnv(val)
	case []any:
		for i := range val {
			val[i] = expandAny(val[i])
		}
		return val
	case map[string]any:
		for k, v := range val {
			val[k] = expandAny(v)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			ks, ok := k.(string)
			if !ok {
				continue
			}
			out[ks] = expandAny(v)
		}
		return out
	default:
		return v
	}
}

func expandValue(v reflect.Value) {
	if !v.IsValid() {
		return
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		expandValue(v.Elem())
		return
	}
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			expandValue(v.Field(i))
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(os.ExpandEnv(v.String()))
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			expandValue(v.Index(i))
		}
	case reflect.Map:
		if v.Type().Key().Kind() == reflect.String && v.Type().Elem().Kind() == reflect.String {
			for _, key := range v.MapKeys() {
				val := v.MapIndex(key)
				expanded := os.ExpandEnv(val.String())
				v.SetMapIndex(key, reflect.ValueOf(expanded))
			}
		}
	}
}
