// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"atelier/internal/session"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	// SessionKey is the context key for the session data.
	SessionKey contextKey = "session"
)

// Auth gates the admin and API writes. The zero value (no password
// configured) lets every request through.
type Auth struct {
	Enabled     bool
	RequireTOTP bool
	APIToken    string
}

// LoadSession stores the request's session, if any, in the context. It does
// not enforce authentication.
func LoadSession(store *session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, err := store.Get(r.Context(), r)
			if err != nil {
				slog.Warn("session load failed", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			if data != nil {
				r = r.WithContext(context.WithValue(r.Context(), SessionKey, data))
			}

			next.ServeHTTP(w, r)
		})
	}
}

// authenticated reports whether the session has passed every configured
// factor.
func (a Auth) authenticated(sess *session.Data) bool {
	if sess == nil {
		return false
	}
	return !a.RequireTOTP || sess.TwoFADone
}

// RequireAdmin redirects to the login page when auth is enabled and the
// request has no fully authenticated session. A session that still owes a
// TOTP code is sent to the code prompt. Must run after LoadSession.
func (a Auth) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		sess := SessionFromCtx(r.Context())
		switch {
		case sess == nil:
			http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
			return
		case !a.authenticated(sess):
			http.Redirect(w, r, "/admin/login/totp", http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireWriter rejects API requests with 401 unless auth is disabled, the
// session is fully authenticated, or a matching bearer token is sent.
func (a Auth) RequireWriter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled || a.authenticated(SessionFromCtx(r.Context())) || a.validToken(r) {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("WWW-Authenticate", `Bearer realm="atelier"`)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Authentication required"}`))
	})
}

func (a Auth) validToken(r *http.Request) bool {
	if a.APIToken == "" {
		return false
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(a.APIToken)) == 1
}

// SessionFromCtx extracts the session data from the request context.
// Returns nil if no session is loaded.
func SessionFromCtx(ctx context.Context) *session.Data {
	data, _ := ctx.Value(SessionKey).(*session.Data)
	return data
}
