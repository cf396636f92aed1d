package api

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/glowkit/internal/catalog"
	"github.com/kalambet/glowkit/internal/chat"
	"github.com/kalambet/glowkit/internal/view"
)

// requiredTemplates must all be defined for the page to work; the chat
// panel cannot be wired without its form, input and window.
var requiredTemplates = []string{
	"page",
	"grid",
	"selected",
	"card",
	"chat_window",
	"chat_form",
	"chat_input",
}

func parseTemplates(fsys fs.FS) (*template.Template, error) {
	t, err := template.New("_root").Funcs(template.FuncMap{
		"indexURL": indexURL,
		"cardData": func(c view.Card, f catalog.Criteria) cardData { return cardData{Card: c, Filter: f} },
	}).ParseFS(fsys, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	for _, name := range requiredTemplates {
		if t.Lookup(name) == nil {
			return nil, fmt.Errorf("template %q is missing", name)
		}
	}
	return t, nil
}

// cardData lets the card template keep the current filter in its forms.
type cardData struct {
	view.Card
	Filter catalog.Criteria
}

type indexData struct {
	Page       view.Page
	Categories []string
	Chat       chat.Snapshot
}

func handleIndex(deps AppDeps, pages *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid := SessionID(r)
		q := r.URL.Query()

		state := view.State{
			Filter:   catalog.Criteria{Category: q.Get("category"), Search: q.Get("q")},
			Selected: deps.Selection.Get(r.Context(), sid),
			Overlay:  view.ParseOverlay(q.Get("info")),
		}

		data := indexData{
			Page:       view.Build(state, deps.Catalog.Products()),
			Categories: deps.Catalog.Categories(),
			Chat:       deps.Chats.Get(sid).Snapshot(),
		}
		render(w, pages, "page", data)
	}
}

// render executes name into a buffer so a template failure never leaves a
// half-written page.
func render(w http.ResponseWriter, t *template.Template, name string, data any) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("rendering template", "template", name, "error", err)
		http.Error(w, "template exec error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func handleSelectForm(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		crit, ok := parseFilterForm(w, r)
		if !ok {
			return
		}
		id, ok := productParam(w, r, deps.Catalog)
		if !ok {
			return
		}
		if _, _, err := deps.Selection.Toggle(r.Context(), SessionID(r), id); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "saving selection: %v", err)
			return
		}
		http.Redirect(w, r, indexURL(crit, ""), http.StatusSeeOther)
	}
}

func handleChatForm(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		crit, ok := parseFilterForm(w, r)
		if !ok {
			return
		}
		x, _ := deps.Chats.Get(SessionID(r)).StartSubmit(r.PostForm.Get("message"))
		if x != nil {
			deps.Chats.Background(x, deps.ChatTimeout)
		}
		http.Redirect(w, r, indexURL(crit, ""), http.StatusSeeOther)
	}
}

func handleRoutineForm(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		crit, ok := parseFilterForm(w, r)
		if !ok {
			return
		}
		if x := startRoutine(r, deps); x != nil {
			deps.Chats.Background(x, deps.ChatTimeout)
		}
		http.Redirect(w, r, indexURL(crit, ""), http.StatusSeeOther)
	}
}

func generateRoutine(r *http.Request, deps AppDeps) chat.Outcome {
	sid := SessionID(r)
	selected := deps.Selection.Get(r.Context(), sid)
	products := deps.Catalog.Lookup(selected.IDs())
	return deps.Chats.Get(sid).GenerateRoutine(r.Context(), products)
}

func startRoutine(r *http.Request, deps AppDeps) *chat.Exchange {
	sid := SessionID(r)
	selected := deps.Selection.Get(r.Context(), sid)
	x, _ := deps.Chats.Get(sid).StartRoutine(deps.Catalog.Lookup(selected.IDs()))
	return x
}

// parseFilterForm reads a posted form and the filter fields it carries so the
// redirect lands on the same view.
func parseFilterForm(w http.ResponseWriter, r *http.Request) (catalog.Criteria, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	if err := r.ParseForm(); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid form body: %v", err)
		return catalog.Criteria{}, false
	}
	return catalog.Criteria{
		Category: r.PostForm.Get("category"),
		Search:   r.PostForm.Get("q"),
	}, true
}

// productParam parses the {id} URL parameter and checks it names a product.
func productParam(w http.ResponseWriter, r *http.Request, store *catalog.Store) (int, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid product id %q", raw)
		return 0, false
	}
	if _, ok := store.Get(id); !ok {
		httpError(w, http.StatusNotFound, "not_found_error", "product %d not found", id)
		return 0, false
	}
	return id, true
}

// indexURL links back to the catalog with the filter kept and, when info is
// set, that card's overlay open. info is a view.Overlay key.
func indexURL(c catalog.Criteria, info string) string {
	v := url.Values{}
	if c.Category != "" {
		v.Set("category", c.Category)
	}
	if c.Search != "" {
		v.Set("q", c.Search)
	}
	if info != "" {
		v.Set("info", info)
	}
	if len(v) == 0 {
		return "/"
	}
	return "/?" + v.Encode()
}
