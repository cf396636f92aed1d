package config

import "fmt"

// KeyInfo describes a config key for display purposes.
type KeyInfo struct {
	Key    string
	EnvVar string
	Value  string
}

// ShowAll returns the non-secret keys with their values in cfg, in table
// order.
func ShowAll(cfg Config) []KeyInfo {
	var result []KeyInfo
	for _, s := range specs {
		if s.secret {
			continue
		}
		result = append(result, KeyInfo{
			Key:    s.key,
			EnvVar: s.env,
			Value:  fmt.Sprintf("%v", s.extract(cfg)),
		})
	}
	return result
}

// SetKey validates value against the key's type and saves it to the config
// file.
func SetKey(key, value string) error {
	return setKey(readConfigFile(configFilePath()), key, value)
}

func setKey(f *configFile, key, value string) error {
	s, ok := lookupSpec(key)
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}
	if s.secret {
		return fmt.Errorf("cannot set secret %q via config; use environment variable %s", key, s.env)
	}
	v, err := s.parse(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return f.set(key, v)
}

// ValidKeys returns the names SetKey accepts.
func ValidKeys() []string {
	var keys []string
	for _, s := range specs {
		if !s.secret {
			keys = append(keys, s.key)
		}
	}
	return keys
}
