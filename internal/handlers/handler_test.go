// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for the handler
// tests. Content lives in a file store under a temp dir, so no external
// service is needed.
package handlers

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"

	"atelier/internal/content"
	"atelier/internal/middleware"
	"atelier/internal/models"
	"atelier/internal/render"
	"atelier/internal/session"
	"atelier/internal/storage"
	"atelier/internal/store"
)

// flakyStore wraps a document store and fails every call while down is set.
type flakyStore struct {
	store.DocumentStore
	down atomic.Bool
}

var errStoreDown = errors.New("store unreachable")

func (f *flakyStore) Read(ctx context.Context, name models.Resource) ([]byte, error) {
	if f.down.Load() {
		return nil, errStoreDown
	}
	return f.DocumentStore.Read(ctx, name)
}

func (f *flakyStore) Write(ctx context.Context, name models.Resource, doc []byte) error {
	if f.down.Load() {
		return errStoreDown
	}
	return f.DocumentStore.Write(ctx, name, doc)
}

// testEnv holds all dependencies for handler tests.
type testEnv struct {
	Store    *flakyStore
	Content  *content.Service
	Renderer *render.Renderer
	Sessions *session.Store
	MediaDir string
	API      *API
	Admin    *Admin
	Public   *Public
}

// newTestEnv creates a seeded file store and every handler group on it.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	files, err := store.NewFileDocumentStore(t.TempDir())
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	docs := &flakyStore{DocumentStore: files}
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

	svc := content.NewService(docs, nil)
	return &testEnv{
		Store:    docs,
		Content:  svc,
		Renderer: renderer,
		Sessions: session.NewMemoryStore(false),
		MediaDir: mediaDir,
		API:      NewAPI(svc, uploader, 1<<20),
		Admin:    NewAdmin(svc, renderer, uploader, false),
		Public:   NewPublic(svc, renderer, nil),
	}
}

// withChiURLParams adds chi URL parameters (key, value pairs) to a request.
func withChiURLParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// ctxWithSession adds session data to a context using the middleware key.
func ctxWithSession(ctx context.Context, data *session.Data) context.Context {
	return context.WithValue(ctx, middleware.SessionKey, data)
}

// multipartBody builds a multipart form with fields and one optional file.
func multipartBody(t *testing.T, fields map[string]string, fileField, filename string, file []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		fw.Write(file)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

// testPNG returns an encoded PNG of the given size.
func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
