// Package client is a thin HTTP client for the content API. Each call is a
// single request; there is no retry or backoff. Callers cancel through the
// context.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"atelier/internal/models"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error (status %d)", e.Status)
	}
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Client talks to one server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends "Authorization: Bearer <token>" on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the server at baseURL, e.g.
// "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server address the client was created with.
func (c *Client) BaseURL() string { return c.baseURL }

// Health calls GET /api/health.
func (c *Client) Health(ctx context.Context) (map[string]string, error) {
	var out map[string]string
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches a resource and decodes it into out.
func (c *Client) Get(ctx context.Context, r models.Resource, out any) error {
	return c.do(ctx, http.MethodGet, "/api/"+r.String(), nil, "", out)
}

// GetRaw fetches a resource without decoding it.
func (c *Client) GetRaw(ctx context.Context, r models.Resource) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.Get(ctx, r, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update replaces a resource with in. out may be nil.
func (c *Client) Update(ctx context.Context, r models.Resource, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s: %w", r, err)
	}
	return c.PutRaw(ctx, r, payload, out)
}

// PutRaw replaces a resource with an already encoded document.
func (c *Client) PutRaw(ctx context.Context, r models.Resource, doc []byte, out any) error {
	return c.do(ctx, http.MethodPut, "/api/"+r.String(), bytes.NewReader(doc), "application/json", out)
}

// Hero fetches the homepage banner.
func (c *Client) Hero(ctx context.Context) (models.Hero, error) {
	var v models.Hero
	return v, c.Get(ctx, models.ResourceHero, &v)
}

// UpdateHero replaces the hero document with v.
func (c *Client) UpdateHero(ctx context.Context, v models.Hero) error {
	return c.Update(ctx, models.ResourceHero, v, nil)
}

// About fetches the studio description.
func (c *Client) About(ctx context.Context) (models.About, error) {
	var v models.About
	return v, c.Get(ctx, models.ResourceAbout, &v)
}

// UpdateAbout replaces the about document with v.
func (c *Client) UpdateAbout(ctx context.Context, v models.About) error {
	return c.Update(ctx, models.ResourceAbout, v, nil)
}

// Contact fetches the studio contact details.
func (c *Client) Contact(ctx context.Context) (models.Contact, error) {
	var v models.Contact
	return v, c.Get(ctx, models.ResourceContact, &v)
}

// UpdateContact replaces the contact document with v.
func (c *Client) UpdateContact(ctx context.Context, v models.Contact) error {
	return c.Update(ctx, models.ResourceContact, v, nil)
}

// Projects fetches every project in stored order.
func (c *Client) Projects(ctx context.Context) ([]models.Project, error) {
	var v []models.Project
	return v, c.Get(ctx, models.ResourceProjects, &v)
}

// UpdateProjects replaces the whole project list.
func (c *Client) UpdateProjects(ctx context.Context, v []models.Project) error {
	if v == nil {
		v = []models.Project{}
	}
	return c.Update(ctx, models.ResourceProjects, v, nil)
}

// Services fetches every service in stored order.
func (c *Client) Services(ctx context.Context) ([]models.Service, error) {
	var v []models.Service
	return v, c.Get(ctx, models.ResourceServices, &v)
}

// UpdateServices replaces the whole service list.
func (c *Client) UpdateServices(ctx context.Context, v []models.Service) error {
	if v == nil {
		v = []models.Service{}
	}
	return c.Update(ctx, models.ResourceServices, v, nil)
}

// UploadMedia sends an image to POST /api/media and returns the stored
// media record.
func (c *Client) UploadMedia(ctx context.Context, filename string, data io.Reader) (*models.Media, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("media form: %w", err)
	}
	if _, err := io.Copy(fw, data); err != nil {
		return nil, fmt.Errorf("media read: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("media form: %w", err)
	}

	var m models.Media
	if err := c.do(ctx, http.MethodPost, "/api/media", &buf, mw.FormDataContentType(), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// do performs one request. Non-2xx answers become *APIError carrying the
// server's "error" message when there is one.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("api request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("api read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &e) == nil {
			apiErr.Message = e.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("api decode %s: %w", path, err)
	}
	return nil
}
