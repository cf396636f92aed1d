package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.host", typ: kString, env: "GLOWKIT_SERVER_HOST",
		apply:   func(cfg *Config, v any) { cfg.Server.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Host },
	},
	{
		key: "server.port", typ: kInt, env: "GLOWKIT_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "catalog.source", typ: kString, env: "GLOWKIT_CATALOG_SOURCE",
		apply:   func(cfg *Config, v any) { cfg.Catalog.Source = v.(string) },
		extract: func(cfg Config) any { return cfg.Catalog.Source },
	},
	{
		key: "catalog.watch", typ: kBool, env: "GLOWKIT_CATALOG_WATCH",
		apply:   func(cfg *Config, v any) { cfg.Catalog.Watch = v.(bool) },
		extract: func(cfg Config) any { return cfg.Catalog.Watch },
	},
	{
		key: "storage.data_dir", typ: kString, env: "GLOWKIT_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "chat.endpoint", typ: kString, env: "GLOWKIT_CHAT_ENDPOINT",
		apply:   func(cfg *Config, v any) { cfg.Chat.Endpoint = v.(string) },
		extract: func(cfg Config) any { return cfg.Chat.Endpoint },
	},
	{
		key: "chat.api_key", typ: kString, env: "GLOWKIT_CHAT_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Chat.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Chat.APIKey },
	},
	{
		key: "chat.timeout", typ: kString, env: "GLOWKIT_CHAT_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Chat.Timeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Chat.Timeout },
	},
	{
		key: "chat.session_ttl", typ: kString, env: "GLOWKIT_CHAT_SESSION_TTL",
		apply:   func(cfg *Config, v any) { cfg.Chat.SessionTTL = v.(string) },
		extract: func(cfg Config) any { return cfg.Chat.SessionTTL },
	},
	{
		key: "chat.rate_per_minute", typ: kInt, env: "GLOWKIT_CHAT_RATE_PER_MINUTE",
		apply:   func(cfg *Config, v any) { cfg.Chat.RatePerMinute = v.(int) },
		extract: func(cfg Config) any { return cfg.Chat.RatePerMinute },
	},
	{
		key: "mcp.enabled", typ: kBool, env: "GLOWKIT_MCP_ENABLED",
		apply:   func(cfg *Config, v any) { cfg.MCP.Enabled = v.(bool) },
		extract: func(cfg Config) any { return cfg.MCP.Enabled },
	},
	{
		key: "log.level", typ: kString, env: "GLOWKIT_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func lookupSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

// parse converts a value from the config file or the environment to the
// key's type. Besides strings it accepts the JSON number and bool forms.
func (s keySpec) parse(raw any) (any, error) {
	switch s.typ {
	case kInt:
		switch v := raw.(type) {
		case int:
			return v, nil
		case float64:
			if v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
				return nil, fmt.Errorf("%v is not an integer", v)
			}
			return int(v), nil
		case string:
			return strconv.Atoi(strings.TrimSpace(v))
		}
	case kBool:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			return strconv.ParseBool(strings.TrimSpace(v))
		}
	default:
		if v, ok := raw.(string); ok {
			return v, nil
		}
		return fmt.Sprintf("%v", raw), nil
	}
	return nil, fmt.Errorf("unexpected %T", raw)
}

func applyFile(cfg *Config, f *configFile) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		raw, ok := f.lookup(s.key)
		if !ok {
			continue
		}
		v, err := s.parse(raw)
		if err != nil {
			return fmt.Errorf("config file %s: %s: %w", f.path, s.key, err)
		}
		s.apply(cfg, v)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		v, err := s.parse(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] ignoring env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
}
