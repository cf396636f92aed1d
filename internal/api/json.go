package api

import (
	"encoding/json"
	"net/http"

	"github.com/kalambet/glowkit/internal/catalog"
	"github.com/kalambet/glowkit/internal/chat"
	"github.com/kalambet/glowkit/internal/selection"
)

type productsResponse struct {
	Products []catalog.Product `json:"products"`
}

type selectionResponse struct {
	IDs selection.Set `json:"ids"`
}

type toggleResponse struct {
	ID       int           `json:"id"`
	Selected bool          `json:"selected"`
	IDs      selection.Set `json:"ids"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Outcome chat.Outcome  `json:"outcome"`
	Chat    chat.Snapshot `json:"chat"`
}

func handleListProducts(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		products := catalog.Filter(deps.Catalog.Products(), q.Get("category"), q.Get("q"))
		writeJSON(w, http.StatusOK, productsResponse{Products: products})
	}
}

func handleListCategories(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories := deps.Catalog.Categories()
		if categories == nil {
			categories = []string{}
		}
		writeJSON(w, http.StatusOK, map[string][]string{"categories": categories})
	}
}

func handleGetSelection(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		set := deps.Selection.Get(r.Context(), SessionID(r))
		writeJSON(w, http.StatusOK, selectionResponse{IDs: set})
	}
}

func handlePutSelection(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var ids []int
		if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		for _, id := range ids {
			if _, ok := deps.Catalog.Get(id); !ok {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "product %d not found", id)
				return
			}
		}

		set := selection.NewSet(ids...)
		if err := deps.Selection.Set(r.Context(), SessionID(r), set); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "saving selection: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, selectionResponse{IDs: set})
	}
}

func handleClearSelection(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Selection.Clear(r.Context(), SessionID(r)); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
			return
		}
		writeJSON(w, http.StatusOK, selectionResponse{IDs: selection.Set{}})
	}
}

func handleToggleSelection(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := productParam(w, r, deps.Catalog)
		if !ok {
			return
		}
		set, selected, err := deps.Selection.Toggle(r.Context(), SessionID(r), id)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "saving selection: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, toggleResponse{ID: id, Selected: selected, IDs: set})
	}
}

func handleSelectedProducts(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		set := deps.Selection.Get(r.Context(), SessionID(r))
		writeJSON(w, http.StatusOK, productsResponse{Products: deps.Catalog.Lookup(set.IDs())})
	}
}

func handleGetChat(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Chats.Get(SessionID(r)).Snapshot())
	}
}

func handlePostChat(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		session := deps.Chats.Get(SessionID(r))
		outcome := session.Submit(r.Context(), req.Message)
		writeJSON(w, http.StatusOK, chatResponse{Outcome: outcome, Chat: session.Snapshot()})
	}
}

func handlePostRoutine(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		outcome := generateRoutine(r, deps)
		writeJSON(w, http.StatusOK, chatResponse{Outcome: outcome, Chat: deps.Chats.Get(SessionID(r)).Snapshot()})
	}
}
