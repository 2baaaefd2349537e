package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"atelier/internal/session"
)

// ctxWithSession returns a context carrying the given session data using
// the same key LoadSession uses.
func ctxWithSession(ctx context.Context, data *session.Data) context.Context {
	return context.WithValue(ctx, SessionKey, data)
}

// okHandler is a simple handler that records whether it was invoked.
func okHandler() (http.Handler, *bool) {
	var called bool
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	return h, &called
}

func TestSessionFromCtx(t *testing.T) {
	sess := &session.Data{Username: "admin", TwoFADone: true}
	if got := SessionFromCtx(ctxWithSession(context.Background(), sess)); got != sess {
		t.Errorf("expected stored session, got %+v", got)
	}
	if got := SessionFromCtx(context.Background()); got != nil {
		t.Errorf("expected nil session, got %+v", got)
	}
	ctx := context.WithValue(context.Background(), SessionKey, "not-a-session")
	if got := SessionFromCtx(ctx); got != nil {
		t.Errorf("expected nil for wrong type, got %+v", got)
	}
}

func TestLoadSession(t *testing.T) {
	store := session.NewMemoryStore(false)

	rec := httptest.NewRecorder()
	if _, err := store.Create(context.Background(), rec, &session.Data{Username: "admin"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	var got *session.Data
	h := LoadSession(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = SessionFromCtx(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got == nil || got.Username != "admin" {
		t.Fatalf("expected session in context, got %+v", got)
	}

	got = nil
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin", nil))
	if got != nil {
		t.Error("expected no session without cookie")
	}
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name     string
		auth     Auth
		sess     *session.Data
		wantCode int
		wantLoc  string
	}{
		{"auth disabled", Auth{}, nil, http.StatusOK, ""},
		{"no session", Auth{Enabled: true}, nil, http.StatusSeeOther, "/admin/login"},
		{"password only", Auth{Enabled: true}, &session.Data{Username: "admin"}, http.StatusOK, ""},
		{"totp pending", Auth{Enabled: true, RequireTOTP: true}, &session.Data{Username: "admin"}, http.StatusSeeOther, "/admin/login/totp"},
		{"totp done", Auth{Enabled: true, RequireTOTP: true}, &session.Data{Username: "admin", TwoFADone: true}, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, called := okHandler()
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.sess != nil {
				req = req.WithContext(ctxWithSession(req.Context(), tt.sess))
			}
			rr := httptest.NewRecorder()
			tt.auth.RequireAdmin(next).ServeHTTP(rr, req)

			if rr.Code != tt.wantCode {
				t.Errorf("status: got %d, want %d", rr.Code, tt.wantCode)
			}
			if loc := rr.Header().Get("Location"); loc != tt.wantLoc {
				t.Errorf("Location: got %q, want %q", loc, tt.wantLoc)
			}
			if *called != (tt.wantCode == http.StatusOK) {
				t.Errorf("next called = %v", *called)
			}
		})
	}
}

func TestRequireWriter(t *testing.T) {
	auth := Auth{Enabled: true, APIToken: "s3cret"}

	tests := []struct {
		name     string
		auth     Auth
		header   string
		sess     *session.Data
		wantCode int
	}{
		{"auth disabled", Auth{}, "", nil, http.StatusOK},
		{"anonymous", auth, "", nil, http.StatusUnauthorized},
		{"valid token", auth, "Bearer s3cret", nil, http.StatusOK},
		{"wrong token", auth, "Bearer nope", nil, http.StatusUnauthorized},
		{"basic scheme", auth, "Basic s3cret", nil, http.StatusUnauthorized},
		{"token unset", Auth{Enabled: true}, "Bearer ", nil, http.StatusUnauthorized},
		{"session", auth, "", &session.Data{Username: "admin"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, _ := okHandler()
			req := httptest.NewRequest(http.MethodPut, "/api/hero", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.sess != nil {
				req = req.WithContext(ctxWithSession(req.Context(), tt.sess))
			}
			rr := httptest.NewRecorder()
			tt.auth.RequireWriter(next).ServeHTTP(rr, req)

			if rr.Code != tt.wantCode {
				t.Errorf("status: got %d, want %d", rr.Code, tt.wantCode)
			}
			if tt.wantCode == http.StatusUnauthorized && rr.Header().Get("Content-Type") != "application/json" {
				t.Error("expected JSON error body")
			}
		})
	}
}
