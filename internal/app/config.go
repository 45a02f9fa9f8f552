package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/florianilch/gravity-proxy/internal/openaiadapter/antigravity"
	"github.com/florianilch/gravity-proxy/internal/signature"
)

// EnvPrefix prefixes environment overrides. Nested keys are separated by a double
// underscore: GRAVITY_SERVER__ADDR sets server.addr.
const EnvPrefix = "GRAVITY_"

// DefaultTokenURL is the OAuth token endpoint used to refresh access tokens.
const DefaultTokenURL = "https://oauth2.googleapis.com/token"

const redacted = "REDACTED"

// secretKeys are replaced by RenderConfig.
var secretKeys = []string{
	"credential.access_token",
	"credential.refresh_token",
	"credential.client_secret",
}

// Config is the application configuration.
type Config struct {
	Server            ServerConfig                   `koanf:"server"`
	Log               LogConfig                      `koanf:"log"`
	Upstream          UpstreamConfig                 `koanf:"upstream"`
	Credential        CredentialConfig               `koanf:"credential"`
	Generation        antigravity.GenerationDefaults `koanf:"generation"`
	SystemInstruction string                         `koanf:"system_instruction"`
	Signatures        SignaturesConfig               `koanf:"signatures"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required,hostname_port"`
	MaxRequestBytes int64         `koanf:"max_request_bytes" validate:"gt=0"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gte=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level    string `koanf:"level" validate:"oneof=debug info warn error"`
	Format   string `koanf:"format" validate:"oneof=text json otel"`
	Exporter string `koanf:"exporter" validate:"oneof=stdout otlp-http otlp-grpc"`
}

// UpstreamConfig configures the upstream endpoint and the pooled transport.
type UpstreamConfig struct {
	BaseURL               string        `koanf:"base_url" validate:"required,url"`
	UserAgent             string        `koanf:"user_agent"`
	ModelsFile            string        `koanf:"models_file" validate:"omitempty,file"`
	DialTimeout           time.Duration `koanf:"dial_timeout" validate:"gte=0"`
	KeepAlive             time.Duration `koanf:"keep_alive" validate:"gte=0"`
	TLSHandshakeTimeout   time.Duration `koanf:"tls_handshake_timeout" validate:"gte=0"`
	ResponseHeaderTimeout time.Duration `koanf:"response_header_timeout" validate:"gte=0"`
	IdleConnTimeout       time.Duration `koanf:"idle_conn_timeout" validate:"gte=0"`
	HealthCheckInterval   time.Duration `koanf:"health_check_interval" validate:"gte=0"`
	MaxIdleConns          int           `koanf:"max_idle_conns" validate:"gte=0"`
	MaxIdleConnsPerHost   int           `koanf:"max_idle_conns_per_host" validate:"gte=0"`
}

// CredentialConfig binds the proxy to an upstream project. A refresh token enables
// automatic access token refreshes.
type CredentialConfig struct {
	ProjectID    string `koanf:"project_id" validate:"required"`
	SessionID    string `koanf:"session_id"`
	AccessToken  string `koanf:"access_token" validate:"required_without=RefreshToken"`
	RefreshToken string `koanf:"refresh_token"`
	ClientID     string `koanf:"client_id" validate:"required_with=RefreshToken"`
	ClientSecret string `koanf:"client_secret"`
	TokenURL     string `koanf:"token_url" validate:"omitempty,url"`
}

// SignaturesConfig configures the signature continuity cache.
type SignaturesConfig struct {
	signature.Policy `koanf:",squash"`
	MaxConversations int `koanf:"max_conversations" validate:"gte=0"`
}

// LoadOptions selects the configuration sources. Later sources override earlier ones:
// defaults, File, environment, Overrides.
type LoadOptions struct {
	// File is an optional TOML file.
	File string

	// Overrides are applied last, typically from CLI flags. Keys are dotted paths.
	Overrides map[string]any

	// Environ returns the environment. Nil uses os.Environ.
	Environ func() []string
}

func defaults() map[string]any {
	policy := signature.DefaultPolicy()
	return map[string]any{
		"server.addr":              "127.0.0.1:4000",
		"server.max_request_bytes": 32 << 20,
		"server.read_timeout":      "30s",
		"server.write_timeout":     "10m",
		"server.idle_timeout":      "2m",
		"server.shutdown_timeout":  "5s",

		"log.level":    "info",
		"log.format":   "text",
		"log.exporter": "stdout",

		"upstream.base_url":                antigravity.DefaultBaseURL,
		"upstream.user_agent":              antigravity.DefaultUserAgent,
		"upstream.dial_timeout":            "30s",
		"upstream.keep_alive":              "30s",
		"upstream.tls_handshake_timeout":   "10s",
		"upstream.response_header_timeout": "5m",
		"upstream.idle_conn_timeout":       "90s",
		"upstream.health_check_interval":   "30s",
		"upstream.max_idle_conns":          100,
		"upstream.max_idle_conns_per_host": 32,

		"credential.token_url": DefaultTokenURL,

		"signatures.cache_tool":           policy.CacheTool,
		"signatures.cache_image":          policy.CacheImage,
		"signatures.cache_thinking":       policy.CacheThinking,
		"signatures.expose_to_client":     policy.ExposeToClient,
		"signatures.fallback_placeholder": policy.FallbackPlaceholder,
		"signatures.max_conversations":    signature.DefaultCapacity,
	}
}

func load(opts LoadOptions) (*koanf.Koanf, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if opts.File != "" {
		if err := k.Load(file.Provider(opts.File), toml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", opts.File, err)
		}
	}

	environ := opts.Environ
	if environ == nil {
		environ = os.Environ
	}
	envProvider := env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envKey,
		EnvironFunc:   environ,
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if len(opts.Overrides) > 0 {
		if err := k.Load(confmap.Provider(opts.Overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("load overrides: %w", err)
		}
	}

	return k, nil
}

// envKey maps GRAVITY_UPSTREAM__BASE_URL to upstream.base_url.
func envKey(key, value string) (string, any) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return strings.ReplaceAll(key, "__", "."), value
}

// LoadConfig loads and validates the configuration.
func LoadConfig(opts LoadOptions) (*Config, error) {
	k, err := load(opts)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration against its constraints.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed on '%s'", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// RenderConfig returns the effective configuration as TOML with secrets redacted.
// It does not validate, so it can be used to inspect a broken configuration.
func RenderConfig(opts LoadOptions) ([]byte, error) {
	k, err := load(opts)
	if err != nil {
		return nil, err
	}

	for _, key := range secretKeys {
		if k.String(key) != "" {
			if err := k.Set(key, redacted); err != nil {
				return nil, fmt.Errorf("redact %s: %w", key, err)
			}
		}
	}

	out, err := k.Marshal(toml.Parser())
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return out, nil
}
