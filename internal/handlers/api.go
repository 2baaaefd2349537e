// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"atelier/internal/content"
	"atelier/internal/models"
	"atelier/internal/storage"
)

// API serves the JSON document endpoints. One set of handlers covers all
// five resources; the resource comes from the {resource} URL parameter.
type API struct {
	content  *content.Service
	uploader *storage.Uploader
	maxBody  int64
}

// NewAPI creates the API handler group. uploader may be nil, which
// disables POST /api/media.
func NewAPI(svc *content.Service, uploader *storage.Uploader, maxBody int64) *API {
	return &API{content: svc, uploader: uploader, maxBody: maxBody}
}

// Health reports that the server is up. It does not touch the store.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "OK",
		"message": "Backend server is running",
	})
}

// Get returns the stored document exactly as written.
func (a *API) Get(w http.ResponseWriter, r *http.Request) {
	res, ok := a.resource(w, r)
	if !ok {
		return
	}

	data, err := a.content.GetRaw(r.Context(), res)
	if err != nil {
		a.fail(w, res, "read", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Put replaces the whole document with the request body.
func (a *API) Put(w http.ResponseWriter, r *http.Request) {
	res, ok := a.resource(w, r)
	if !ok {
		return
	}
	body, ok := a.readBody(w, r)
	if !ok {
		return
	}

	if err := a.content.PutRaw(r.Context(), res, body); err != nil {
		a.fail(w, res, "write", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Patch merges the body field by field onto a singleton and returns the
// merged document. Lists reject PATCH with 404.
func (a *API) Patch(w http.ResponseWriter, r *http.Request) {
	res, ok := a.resource(w, r)
	if !ok {
		return
	}
	body, ok := a.readBody(w, r)
	if !ok {
		return
	}

	merged, err := a.content.Merge(r.Context(), res, body)
	if err != nil {
		a.fail(w, res, "write", err)
		return
	}
	writeRawJSON(w, http.StatusOK, merged)
}

// CreateItem upserts one project or service. It answers 201 when the item
// was appended and 200 when an existing id was updated.
func (a *API) CreateItem(w http.ResponseWriter, r *http.Request) {
	res, ok := a.resource(w, r)
	if !ok {
		return
	}
	body, ok := a.readBody(w, r)
	if !ok {
		return
	}

	saved, created, err := a.content.UpsertItem(r.Context(), res, body)
	if err != nil {
		a.fail(w, res, "write", err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeRawJSON(w, status, saved)
}

// UpdateItem merges the body onto the item named by {id}.
func (a *API) UpdateItem(w http.ResponseWriter, r *http.Request) {
	res, ok := a.resource(w, r)
	if !ok {
		return
	}
	body, ok := a.readBody(w, r)
	if !ok {
		return
	}

	saved, err := a.content.UpdateItem(r.Context(), res, chi.URLParam(r, "id"), body)
	if err != nil {
		a.fail(w, res, "write", err)
		return
	}
	writeRawJSON(w, http.StatusOK, saved)
}

// DeleteItem removes the item named by {id}.
func (a *API) DeleteItem(w http.ResponseWriter, r *http.Request) {
	res, ok := a.resource(w, r)
	if !ok {
		return
	}

	if err := a.content.DeleteItem(r.Context(), res, chi.URLParam(r, "id")); err != nil {
		a.fail(w, res, "write", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// UploadMedia stores a multipart "file" upload and returns its URLs.
func (a *API) UploadMedia(w http.ResponseWriter, r *http.Request) {
	if a.uploader == nil {
		writeError(w, http.StatusServiceUnavailable, "Media storage is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxUploadSize+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read file")
		return
	}

	m, err := a.uploader.Upload(r.Context(), header.Filename, data)
	if err != nil {
		status, msg := uploadError(err)
		if status == http.StatusInternalServerError {
			slog.Error("media upload failed", "error", err, "filename", header.Filename)
		}
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusCreated, m)
}

// uploadError maps uploader errors to a status and a client message.
func uploadError(err error) (int, string) {
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "File too large"
	case errors.Is(err, storage.ErrUnsupportedType):
		return http.StatusBadRequest, "Only JPEG, PNG, GIF, WebP and SVG images are allowed"
	case errors.Is(err, storage.ErrEmpty):
		return http.StatusBadRequest, "File is empty"
	default:
		return http.StatusInternalServerError, "Failed to upload file"
	}
}

func (a *API) resource(w http.ResponseWriter, r *http.Request) (models.Resource, bool) {
	res, err := content.Resource(chi.URLParam(r, "resource"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Unknown resource")
		return "", false
	}
	return res, true
}

// readBody reads the capped request body. Oversized bodies get 413.
func (a *API) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.maxBody))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "Failed to read request body")
		return nil, false
	}
	return body, true
}

// fail maps a content error to a response. Store failures are logged and
// answered with a static message.
func (a *API) fail(w http.ResponseWriter, res models.Resource, op string, err error) {
	switch {
	case errors.Is(err, content.ErrUnknownResource):
		writeError(w, http.StatusNotFound, "Unknown resource")
	case errors.Is(err, content.ErrInvalidShape):
		writeError(w, http.StatusBadRequest, "Invalid "+res.String()+" data")
	case errors.Is(err, content.ErrNotFound):
		writeError(w, http.StatusNotFound, "No "+res.String()+" data found")
	default:
		slog.Error("document "+op+" failed", "resource", res, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to "+op+" "+res.String()+" data")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeRawJSON(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
