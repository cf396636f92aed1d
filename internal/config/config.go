package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

type Config struct {
	Server  ServerConfig
	Catalog CatalogConfig
	Storage StorageConfig
	Chat    ChatConfig
	MCP     MCPConfig
	Log     LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type CatalogConfig struct {
	// Source is a local path or an http(s) URL to a {"products": [...]} document.
	Source string
	Watch  bool
}

type StorageConfig struct {
	DataDir string
}

type ChatConfig struct {
	Endpoint      string
	APIKey        string
	Timeout       string
	SessionTTL    string
	RatePerMinute int
}

type MCPConfig struct {
	Enabled bool
}

type LogConfig struct {
	Level string
}

// DefaultEndpoint is the worker that wraps the chat-completion API.
const DefaultEndpoint = "https://chatbot-worker.u1381801.workers.dev/"

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 4080,
		},
		Catalog: CatalogConfig{
			Source: "products.json",
			Watch:  true,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Chat: ChatConfig{
			Endpoint:      DefaultEndpoint,
			Timeout:       "60s",
			SessionTTL:    "2h",
			RatePerMinute: 20,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file at
// $XDG_CONFIG_HOME/glowkit/config.json, then applies GLOWKIT_* environment
// overrides. Secrets are only read from the environment or the secrets file.
func Load() (Config, error) {
	return loadWith(readConfigFile(configFilePath()), secretsReader{})
}

// secrets abstracts secret lookup for testing.
type secrets interface {
	Get(service, account string) (string, error)
}

func loadWith(f *configFile, sec secrets) (Config, error) {
	cfg := defaults()

	if err := applyFile(&cfg, f); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Chat.APIKey == "" {
		if key, err := sec.Get("glowkit", "chat_api_key"); err == nil && key != "" {
			cfg.Chat.APIKey = key
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid config: server.port %d out of range", c.Server.Port)
	}
	if strings.TrimSpace(c.Catalog.Source) == "" {
		return fmt.Errorf("missing required config: catalog.source. Set it via GLOWKIT_CATALOG_SOURCE")
	}
	u, err := url.Parse(c.Chat.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid config: chat.endpoint %q must be an http(s) URL", c.Chat.Endpoint)
	}
	if _, err := time.ParseDuration(c.Chat.Timeout); err != nil {
		return fmt.Errorf("invalid config: chat.timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.Chat.SessionTTL); err != nil {
		return fmt.Errorf("invalid config: chat.session_ttl: %w", err)
	}
	return nil
}

// ChatTimeout returns the parsed chat.timeout. Load has already validated it.
func (c Config) ChatTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Chat.Timeout)
	return d
}

// SessionTTL returns the parsed chat.session_ttl.
func (c Config) SessionTTL() time.Duration {
	d, _ := time.ParseDuration(c.Chat.SessionTTL)
	return d
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// secretsReader reads secrets from the local secrets file.
type secretsReader struct{}

func (secretsReader) Get(service, account string) (string, error) {
	out, err := secretGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
