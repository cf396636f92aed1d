package api

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kalambet/glowkit/internal/catalog"
	"github.com/kalambet/glowkit/internal/chat"
	"github.com/kalambet/glowkit/internal/selection"
)

const maxRequestBodySize = 1 << 20 // 1MB

//go:embed templates/*.html static/*
var assets embed.FS

// AppDeps holds everything the HTTP surface needs.
type AppDeps struct {
	Catalog   *catalog.Store
	Selection *selection.Store
	Chats     *chat.Registry
	// ChatTimeout bounds exchanges started from the HTML forms, which
	// outlive their request. Zero leaves it to the completer.
	ChatTimeout time.Duration
	// ChatPerMinute caps chat and routine requests per session.
	// Zero disables the limit.
	ChatPerMinute int
}

// NewAppHandler returns the HTML pages and the JSON API on one router.
// It fails if the page templates are incomplete.
func NewAppHandler(deps AppDeps) (http.Handler, error) {
	return newAppHandler(deps, assets)
}

func newAppHandler(deps AppDeps, fsys fs.FS) (http.Handler, error) {
	pages, err := parseTemplates(fsys)
	if err != nil {
		return nil, err
	}
	static, err := fs.Sub(fsys, "static")
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}
	limiter := newSessionLimiter(deps.ChatPerMinute)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth(deps))
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Group(func(r chi.Router) {
		r.Use(withSession)

		r.Get("/", handleIndex(deps, pages))
		r.Post("/select/{id}", handleSelectForm(deps))
		r.With(limiter.formMiddleware(deps.Chats)).Post("/chat", handleChatForm(deps))
		r.With(limiter.formMiddleware(deps.Chats)).Post("/routine", handleRoutineForm(deps))

		r.Route("/api", func(r chi.Router) {
			r.Get("/products", handleListProducts(deps))
			r.Get("/categories", handleListCategories(deps))
			r.Get("/selection", handleGetSelection(deps))
			r.Put("/selection", handlePutSelection(deps))
			r.Delete("/selection", handleClearSelection(deps))
			r.Post("/selection/{id}/toggle", handleToggleSelection(deps))
			r.Get("/selection/products", handleSelectedProducts(deps))
			r.Get("/chat", handleGetChat(deps))
			r.With(limiter.middleware).Post("/chat", handlePostChat(deps))
			r.With(limiter.middleware).Post("/routine", handlePostRoutine(deps))
		})
	})

	return r, nil
}

func handleHealth(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"status":        "ok",
			"products":      len(deps.Catalog.Products()),
			"source":        deps.Catalog.Source(),
			"loaded_at":     deps.Catalog.LoadedAt(),
			"chat_sessions": deps.Chats.Len(),
		}
		n, err := deps.Selection.Count(r.Context())
		if err != nil {
			slog.Warn("counting selections", "error", err)
		} else {
			resp["selections"] = n
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
