package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the optional YAML overlay file.
const ConfigFileEnv = "CHAT_SYNC_CONFIG_FILE"

// Config holds all configuration for the chat-sync engine.
type Config struct {
	// Service settings
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"chat-sync"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"console"`
	HTTPPort        int           `env:"CHAT_SYNC_PORT" envDefault:"8190"`
	BridgeEnabled   bool          `env:"CHAT_SYNC_BRIDGE_ENABLED" envDefault:"true"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// OpenTelemetry
	EnableTracing bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTLPEndpoint  string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`

	// Remote chat service
	APIBaseURL     string        `env:"CHAT_API_BASE_URL"`
	PushURL        string        `env:"CHAT_PUSH_URL"`
	APIToken       string        `env:"CHAT_API_TOKEN"`
	UserID         string        `env:"CHAT_USER_ID"`
	RequestTimeout time.Duration `env:"CHAT_REQUEST_TIMEOUT" envDefault:"15s"`

	// Push connection
	ReconnectInitial time.Duration `env:"PUSH_RECONNECT_INITIAL" envDefault:"1s"`
	ReconnectMax     time.Duration `env:"PUSH_RECONNECT_MAX" envDefault:"30s"`
	ReconnectJitter  float64       `env:"PUSH_RECONNECT_JITTER" envDefault:"0.25"`
	PingInterval     time.Duration `env:"PUSH_PING_INTERVAL" envDefault:"25s"`
	WriteTimeout     time.Duration `env:"PUSH_WRITE_TIMEOUT" envDefault:"10s"`
	HandshakeTimeout time.Duration `env:"PUSH_HANDSHAKE_TIMEOUT" envDefault:"10s"`

	// Engine
	DedupCacheSize int `env:"CHAT_DEDUP_CACHE_SIZE" envDefault:"1024"`
	UpdateBuffer   int `env:"CHAT_UPDATE_BUFFER" envDefault:"64"`
}

// Load parses environment variables into Config. When CHAT_SYNC_CONFIG_FILE
// points at a YAML file its keys act as defaults below the real environment.
func Load() (*Config, error) {
	environ := environMap(os.Environ())

	if path := strings.TrimSpace(environ[ConfigFileEnv]); path != "" {
		fileValues, err := readYAMLFile(path)
		if err != nil {
			return nil, err
		}
		for k, v := range fileValues {
			if _, set := environ[k]; !set {
				environ[k] = v
			}
		}
	}

	return LoadFromMap(environ)
}

// LoadFromMap parses config from an explicit environment map.
func LoadFromMap(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	if c.APIBaseURL == "" {
		return fmt.Errorf("CHAT_API_BASE_URL is required")
	}
	base, err := url.Parse(c.APIBaseURL)
	if err != nil || base.Host == "" {
		return fmt.Errorf("CHAT_API_BASE_URL is not a valid URL: %q", c.APIBaseURL)
	}

	c.PushURL = strings.TrimSpace(c.PushURL)
	if c.PushURL == "" {
		c.PushURL = derivePushURL(base)
	}
	if !strings.HasPrefix(c.PushURL, "ws://") && !strings.HasPrefix(c.PushURL, "wss://") {
		return fmt.Errorf("CHAT_PUSH_URL must use ws:// or wss://: %q", c.PushURL)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("CHAT_REQUEST_TIMEOUT must be positive")
	}
	if c.ReconnectInitial <= 0 || c.ReconnectMax < c.ReconnectInitial {
		return fmt.Errorf("PUSH_RECONNECT_INITIAL must be positive and not exceed PUSH_RECONNECT_MAX")
	}
	if c.ReconnectJitter < 0 || c.ReconnectJitter > 1 {
		return fmt.Errorf("PUSH_RECONNECT_JITTER must be within [0, 1]")
	}
	if c.DedupCacheSize <= 0 {
		return fmt.Errorf("CHAT_DEDUP_CACHE_SIZE must be positive")
	}
	if c.UpdateBuffer < 0 {
		c.UpdateBuffer = 0
	}
	return nil
}

// Addr returns the local bridge address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// derivePushURL maps http(s)://host/api to ws(s)://host/ws, which is where the
// chat service mounts its push endpoint.
func derivePushURL(base *url.URL) string {
	push := *base
	switch push.Scheme {
	case "https":
		push.Scheme = "wss"
	default:
		push.Scheme = "ws"
	}
	push.Path = strings.TrimSuffix(strings.TrimRight(push.Path, "/"), "/api") + "/ws"
	push.RawQuery = ""
	push.Fragment = ""
	return push.String()
}

func readYAMLFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		values[strings.ToUpper(k)] = fmt.Sprint(v)
	}
	return values, nil
}

func environMap(pairs []string) map[string]string {
	m := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		m[k] = v
	}
	return m
}
