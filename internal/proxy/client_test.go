package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testMessages() []Message {
	return []Message{
		{Role: RoleSystem, Content: "be helpful"},
		{Role: RoleUser, Content: "hi"},
	}
}

func TestComplete_Success(t *testing.T) {
	var got ChatRequest
	var contentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		contentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":{"choices":[{"message":{"role":"assistant","content":"  Hello there!\n"}}]}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	reply, err := c.Complete(context.Background(), testMessages())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reply != "Hello there!" {
		t.Errorf("reply = %q, want %q", reply, "Hello there!")
	}
	if contentType != "application/json" {
		t.Errorf("Content-Type = %q", contentType)
	}
	if len(got.Messages) != 2 || got.Messages[1].Content != "hi" || got.Messages[0].Role != RoleSystem {
		t.Errorf("request messages = %+v", got.Messages)
	}
}

func TestComplete_AuthHeader(t *testing.T) {
	var gotAuth atomic.Value
	gotAuth.Store("")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"data":{"choices":[{"message":{"content":"ok"}}]}}`)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).Complete(context.Background(), testMessages()); err != nil {
		t.Fatal(err)
	}
	if gotAuth.Load().(string) != "" {
		t.Errorf("Authorization sent without key: %q", gotAuth.Load())
	}

	if _, err := NewClient(srv.URL, WithAPIKey("k")).Complete(context.Background(), testMessages()); err != nil {
		t.Fatal(err)
	}
	if gotAuth.Load().(string) != "Bearer k" {
		t.Errorf("Authorization = %q, want %q", gotAuth.Load(), "Bearer k")
	}
}

func TestComplete_MalformedShapes(t *testing.T) {
	bodies := map[string]string{
		"not json":        `<html>oops</html>`,
		"missing data":    `{"choices":[{"message":{"content":"hi"}}]}`,
		"missing choices": `{"data":{}}`,
		"empty choices":   `{"data":{"choices":[]}}`,
		"missing message": `{"data":{"choices":[{}]}}`,
		"empty content":   `{"data":{"choices":[{"message":{"content":""}}]}}`,
		"blank content":   `{"data":{"choices":[{"message":{"content":"  \n "}}]}}`,
		"error envelope":  `{"error":"quota"}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, body)
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL).Complete(context.Background(), testMessages())
			if !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("err = %v, want ErrMalformedResponse", err)
			}
		})
	}
}

func TestComplete_StatusError(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, "slow down")
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Complete(context.Background(), testMessages())
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.Code != http.StatusTooManyRequests || se.Body != "slow down" {
		t.Errorf("StatusError = %+v", se)
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1 (no retries)", got)
	}
}

func TestComplete_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url).Complete(context.Background(), testMessages())
	if err == nil {
		t.Fatal("expected transport error")
	}
	if errors.Is(err, ErrMalformedResponse) {
		t.Error("transport failure must not be reported as malformed")
	}
}

func TestComplete_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := NewClient(srv.URL, WithTimeout(50*time.Millisecond)).Complete(context.Background(), testMessages())
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("Complete did not honor timeout")
	}
}

func TestComplete_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewClient(srv.URL).Complete(ctx, testMessages()); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
