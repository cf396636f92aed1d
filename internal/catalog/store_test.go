package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const jsonCatalog = `{"products":[
  {"id":1,"name":"Shampoo","brand":"Elvive","category":"hair","description":"Cleans.","image":"https://img/1.jpg"},
  {"id":2,"name":"Serum","brand":"Revitalift","category":"skin","description":"Hydrates.","image":"https://img/2.jpg"},
  {"id":3,"name":"Mask","brand":"Elvive","category":"hair","description":"Repairs.","image":"https://img/3.jpg"}
]}`

const yamlCatalog = `products:
  - id: 7
    name: Toner
    brand: Garnier
    category: skin
    description: Balances.
    image: https://img/7.jpg
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func noKeepAlive() *http.Client {
	return &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "products.json", jsonCatalog)

	products, err := Load(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, ids(products)); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	if products[1].Image != "https://img/2.jpg" {
		t.Errorf("Image = %q", products[1].Image)
	}
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "products.yaml", yamlCatalog)

	products, err := Load(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []Product{{ID: 7, Name: "Toner", Brand: "Garnier", Category: "skin", Description: "Balances.", Image: "https://img/7.jpg"}}
	if diff := cmp.Diff(want, products); diff != "" {
		t.Errorf("products mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Remote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, jsonCatalog)
	}))
	defer srv.Close()

	products, err := Load(context.Background(), srv.URL+"/products.json", noKeepAlive())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(products) != 3 {
		t.Errorf("got %d products, want 3", len(products))
	}

	if _, err := Load(context.Background(), srv.URL+"/missing.json", noKeepAlive()); err == nil {
		t.Error("expected error for 404 source")
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"missing file", filepath.Join(dir, "nope.json"), "reading product source"},
		{"bad json", writeFile(t, dir, "bad.json", `{"products":[`), "decoding"},
		{"missing id", writeFile(t, dir, "noid.json", `{"products":[{"id":1},{"name":"x"}]}`), "product 1 in"},
		{"zero id", writeFile(t, dir, "zero.yaml", "products:\n  - id: 0\n"), "id must be positive, got 0"},
		{"duplicate ids", writeFile(t, dir, "dup.json", `{"products":[{"id":1},{"id":1}]}`), "duplicate product id 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), tt.source, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestLoad_EmptyDocument(t *testing.T) {
	path := writeFile(t, t.TempDir(), "empty.json", `{}`)
	products, err := Load(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if products == nil || len(products) != 0 {
		t.Errorf("products = %#v, want empty non-nil slice", products)
	}
}

func TestStore_Accessors(t *testing.T) {
	path := writeFile(t, t.TempDir(), "products.json", jsonCatalog)
	s := NewStore(path, nil)
	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if diff := cmp.Diff([]string{"hair", "skin"}, s.Categories()); diff != "" {
		t.Errorf("Categories mismatch (-want +got):\n%s", diff)
	}
	if p, ok := s.Get(2); !ok || p.Name != "Serum" {
		t.Errorf("Get(2) = %+v, %v", p, ok)
	}
	if _, ok := s.Get(99); ok {
		t.Error("Get(99) should miss")
	}
	// Lookup keeps catalog order and skips unknown ids.
	if diff := cmp.Diff([]int{1, 3}, ids(s.Lookup([]int{3, 99, 1}))); diff != "" {
		t.Errorf("Lookup mismatch (-want +got):\n%s", diff)
	}
	if s.LoadedAt().IsZero() {
		t.Error("LoadedAt should be set after Reload")
	}
}

func TestStore_ReloadFailureKeepsSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "products.json", jsonCatalog)
	s := NewStore(path, nil)
	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	writeFile(t, dir, "products.json", `{"products":`)
	if err := s.Reload(context.Background()); err == nil {
		t.Fatal("expected reload error")
	}
	if len(s.Products()) != 3 {
		t.Errorf("got %d products after failed reload, want 3", len(s.Products()))
	}
}

func TestStore_WatchRemoteSource(t *testing.T) {
	s := NewStore("https://example.com/products.json", nil)
	if err := s.Watch(context.Background()); !errors.Is(err, ErrNotWatchable) {
		t.Errorf("Watch error = %v, want ErrNotWatchable", err)
	}
}

func TestStore_WatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "products.json", jsonCatalog)
	s := NewStore(path, nil)
	s.debounce = 10 * time.Millisecond
	if err := s.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx) }()

	updated := `{"products":[{"id":9,"name":"Balm","brand":"Nyx","category":"lips"}]}`
	deadline := time.Now().Add(5 * time.Second)
	for {
		// Rewrite until the watcher is registered and has picked up the change.
		writeFile(t, dir, "products.json", updated)
		time.Sleep(50 * time.Millisecond)
		if len(s.Products()) == 1 {
			break
		}
		if time.Now().After(deadline) {
			cancel()
			<-done
			t.Fatal("catalog was not reloaded after file change")
		}
	}

	if diff := cmp.Diff([]string{"lips"}, s.Categories()); diff != "" {
		t.Errorf("Categories mismatch (-want +got):\n%s", diff)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not stop after cancel")
	}
}

func TestNewStaticStore(t *testing.T) {
	s := NewStaticStore(sampleProducts())
	if len(s.Products()) != 5 {
		t.Errorf("got %d products, want 5", len(s.Products()))
	}
	if diff := cmp.Diff([]string{"hair", "skin", "cleanser", "makeup"}, s.Categories()); diff != "" {
		t.Errorf("Categories mismatch (-want +got):\n%s", diff)
	}
}
