package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// SessionCookie names the cookie that identifies a visitor.
const SessionCookie = "glowkit_session"

const sessionMaxAge = 365 * 24 * 60 * 60

type ctxKeySessionID struct{}

// withSession makes sure every request carries a visitor session id,
// issuing a new one when the cookie is missing or not a UUID.
func withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(SessionCookie); err == nil && validSessionID(c.Value) {
			id = c.Value
		} else {
			id = uuid.New().String()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				MaxAge:   sessionMaxAge,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		ctx := context.WithValue(r.Context(), ctxKeySessionID{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func validSessionID(v string) bool {
	_, err := uuid.Parse(v)
	return err == nil
}

// SessionID returns the visitor session id set by the session middleware.
func SessionID(r *http.Request) string {
	if v, ok := r.Context().Value(ctxKeySessionID{}).(string); ok {
		return v
	}
	return ""
}
