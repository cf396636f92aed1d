package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// configFile is the flat JSON object that `glowkit config set` writes and
// Load reads. It is the only place settings persist; secrets never go here.
type configFile struct {
	path   string
	values map[string]any
}

func configFilePath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".config")
		} else {
			dir = "."
		}
	}
	return filepath.Join(dir, "glowkit", "config.json")
}

func defaultDataDir() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".local", "share")
		} else {
			return "glowkit-data"
		}
	}
	return filepath.Join(dir, "glowkit")
}

// readConfigFile loads path. A missing file is empty. An unreadable or
// corrupt one is reported on stderr and treated as empty so defaults apply.
func readConfigFile(path string) *configFile {
	f := &configFile{path: path, values: make(map[string]any)}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "[WARN] could not read config file %s: %v. Using default values.\n", path, err)
		}
		return f
	}
	if err := json.Unmarshal(data, &f.values); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] could not parse config file %s: %v. Using default values.\n", path, err)
		f.values = make(map[string]any)
	}
	return f
}

func (f *configFile) lookup(key string) (any, bool) {
	v, ok := f.values[key]
	return v, ok
}

// set stores one value and rewrites the whole file.
func (f *configFile) set(key string, v any) error {
	f.values[key] = v

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := json.MarshalIndent(f.values, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0o600)
}
