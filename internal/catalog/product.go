// Package catalog loads the static product list and filters it for display.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const maxSourceSize = 10 << 20 // 10MB

// Product is a single catalog entry. Products are immutable once loaded.
type Product struct {
	ID          int    `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Brand       string `json:"brand" yaml:"brand"`
	Category    string `json:"category" yaml:"category"`
	Description string `json:"description" yaml:"description"`
	Image       string `json:"image" yaml:"image"`
}

// document is the on-disk shape of a product source.
type document struct {
	Products []Product `json:"products" yaml:"products"`
}

// IsRemote reports whether source is fetched over HTTP rather than read from disk.
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Load reads a {"products": [...]} document from a local path or an http(s)
// URL. Files ending in .yaml or .yml are decoded as YAML, everything else as
// JSON. Product IDs must be positive and unique.
func Load(ctx context.Context, source string, client *http.Client) ([]Product, error) {
	data, err := readSource(ctx, source, client)
	if err != nil {
		return nil, err
	}

	var doc document
	switch strings.ToLower(filepath.Ext(trimQuery(source))) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", source, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", source, err)
		}
	}

	seen := make(map[int]struct{}, len(doc.Products))
	for i, p := range doc.Products {
		if p.ID <= 0 {
			return nil, fmt.Errorf("product %d in %s: id must be positive, got %d", i, source, p.ID)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("duplicate product id %d in %s", p.ID, source)
		}
		seen[p.ID] = struct{}{}
	}

	if doc.Products == nil {
		return []Product{}, nil
	}
	return doc.Products, nil
}

func readSource(ctx context.Context, source string, client *http.Client) ([]byte, error) {
	if !IsRemote(source) {
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("reading product source: %w", err)
		}
		return data, nil
	}

	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching product source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching product source: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceSize))
	if err != nil {
		return nil, fmt.Errorf("reading product source: %w", err)
	}
	return data, nil
}

func trimQuery(source string) string {
	if i := strings.IndexAny(source, "?#"); i >= 0 {
		return source[:i]
	}
	return source
}
