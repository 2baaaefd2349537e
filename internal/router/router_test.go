// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router tests verify the route table and the middleware chains
// in front of each route group.
package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"atelier/internal/content"
	"atelier/internal/handlers"
	"atelier/internal/middleware"
	"atelier/internal/render"
	"atelier/internal/session"
	"atelier/internal/storage"
	"atelier/internal/store"
)

// newTestRouter builds the full router on a seeded file store.
func newTestRouter(t *testing.T, auth middleware.Auth) (chi.Router, string) {
	t.Helper()

	docs, err := store.NewFileDocumentStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	if _, err := store.Seed(context.Background(), docs); err != nil {
		t.Fatalf("seed: %v", err)
	}
	renderer, err := render.New("Studio Test")
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	mediaDir := t.TempDir()
	local, err := storage.NewLocal(mediaDir)
	if err != nil {
		t.Fatalf("local media: %v", err)
	}
	uploader := storage.NewUploader(local)
	sessions := session.NewMemoryStore(false)
	svc := content.NewService(docs, nil)

	login := handlers.NewAuth(renderer, sessions, handlers.Credentials{})
	loginLimiter := middleware.NewRateLimiter(5, time.Minute)
	contactLimiter := middleware.NewRateLimiter(2, time.Minute)
	t.Cleanup(loginLimiter.Stop)
	t.Cleanup(contactLimiter.Stop)

	r := New(Config{
		Sessions:       sessions,
		Auth:           auth,
		CORSOrigins:    []string{"https://studio.example.com"},
		MediaDir:       mediaDir,
		API:            handlers.NewAPI(svc, uploader, 1<<20),
		Admin:          handlers.NewAdmin(svc, renderer, uploader, auth.Enabled),
		Login:          login,
		Public:         handlers.NewPublic(svc, renderer, nil),
		LoginLimiter:   loginLimiter,
		ContactLimiter: contactLimiter,
	})
	return r, mediaDir
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t, middleware.Auth{})

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type: got %q", ct)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "OK" || body["message"] != "Backend server is running" {
		t.Errorf("body: %v", body)
	}
}

func TestAPI_OpenWhenAuthDisabled(t *testing.T) {
	r, _ := newTestRouter(t, middleware.Auth{})

	req := httptest.NewRequest(http.MethodPut, "/api/hero", strings.NewReader(`{"title":"Open"}`))
	if rec := serve(r, req); rec.Code != http.StatusOK {
		t.Fatalf("PUT: got %d: %s", rec.Code, rec.Body.String())
	}
	rec := serve(r, httptest.NewRequest(http.MethodGet, "/api/hero", nil))
	if !strings.Contains(rec.Body.String(), `"Open"`) {
		t.Errorf("GET after PUT: %s", rec.Body.String())
	}
}

func TestAPI_WritesNeedCredentials(t *testing.T) {
	r, _ := newTestRouter(t, middleware.Auth{Enabled: true, APIToken: "s3cret"})

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/api/services", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("reads stay open: got %d", rec.Code)
	}

	writes := []*http.Request{
		httptest.NewRequest(http.MethodPut, "/api/hero", strings.NewReader(`{}`)),
		httptest.NewRequest(http.MethodPatch, "/api/contact", strings.NewReader(`{}`)),
		httptest.NewRequest(http.MethodPost, "/api/projects", strings.NewReader(`{}`)),
		httptest.NewRequest(http.MethodDelete, "/api/projects/1", nil),
		httptest.NewRequest(http.MethodPost, "/api/media", nil),
	}
	for _, req := range writes {
		if rec := serve(r, req); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: got %d, want 401", req.Method, req.URL.Path, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPut, "/api/hero", strings.NewReader(`{"title":"Token"}`))
	req.Header.Set("Authorization", "Bearer wrong")
	if rec := serve(r, req); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPut, "/api/hero", strings.NewReader(`{"title":"Token"}`))
	req.Header.Set("Authorization", "Bearer s3cret")
	if rec := serve(r, req); rec.Code != http.StatusOK {
		t.Errorf("token: got %d", rec.Code)
	}
}

func TestAPI_CORS(t *testing.T) {
	r, _ := newTestRouter(t, middleware.Auth{})

	req := httptest.NewRequest(http.MethodOptions, "/api/hero", nil)
	req.Header.Set("Origin", "https://studio.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rec := serve(r, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://studio.example.com" {
		t.Errorf("allow-origin: got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, http.MethodPut) {
		t.Errorf("allow-methods: got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/hero", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = serve(r, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("foreign origin allowed: %q", got)
	}
}

func TestAPI_UnknownResource(t *testing.T) {
	r, _ := newTestRouter(t, middleware.Auth{})

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/api/blog", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", rec.Code)
	}
}

func TestAdmin_RedirectsToLogin(t *testing.T) {
	r, _ := newTestRouter(t, middleware.Auth{Enabled: true})

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/admin/hero", nil))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/admin/login" {
		t.Errorf("got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestAdmin_CSRF(t *testing.T) {
	r, _ := newTestRouter(t, middleware.Auth{})

	form := url.Values{"title": {"No token"}}
	req := httptest.NewRequest(http.MethodPost, "/admin/hero", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if rec := serve(r, req); rec.Code != http.StatusForbidden {
		t.Errorf("missing token: got %d, want 403", rec.Code)
	}

	form.Set("csrf_token", "tok")
	req = httptest.NewRequest(http.MethodPost, "/admin/hero", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: middleware.CSRFCookieName, Value: "tok"})
	rec := serve(r, req)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/admin/hero?saved=1" {
		t.Errorf("with token: got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestStaticAndMedia(t *testing.T) {
	r, mediaDir := newTestRouter(t, middleware.Auth{})

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/static/admin.css", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("static: got %d", rec.Code)
	}

	dir := filepath.Join(mediaDir, "media", "2026", "10")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.jpg"), []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec = serve(r, httptest.NewRequest(http.MethodGet, "/media/media/2026/10/a.jpg", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "jpeg" {
		t.Errorf("media file: got %d", rec.Code)
	}
	rec = serve(r, httptest.NewRequest(http.MethodGet, "/media/media/2026/", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("media listing: got %d, want 404", rec.Code)
	}
}

func TestPublicRoutes(t *testing.T) {
	r, _ := newTestRouter(t, middleware.Auth{})

	for path, want := range map[string]int{
		"/":                  http.StatusOK,
		"/contact":           http.StatusOK,
		"/project/missing":   http.StatusNotFound,
		"/no/such/page/here": http.StatusNotFound,
	} {
		if rec := serve(r, httptest.NewRequest(http.MethodGet, path, nil)); rec.Code != want {
			t.Errorf("GET %s: got %d, want %d", path, rec.Code, want)
		}
	}

	if rec := serve(r, httptest.NewRequest(http.MethodGet, "/", nil)); rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
}

func TestContactRateLimit(t *testing.T) {
	r, _ := newTestRouter(t, middleware.Auth{})

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader("name=x"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.RemoteAddr = "203.0.113.9:4000"
		return serve(r, req).Code
	}
	post()
	post()
	if code := post(); code != http.StatusTooManyRequests {
		t.Errorf("third post: got %d, want 429", code)
	}
}
