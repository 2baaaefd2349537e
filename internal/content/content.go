// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package content is the domain layer over the document store. It validates
// document shapes, merges singleton patches, edits list items in place and
// loads all five documents for rendering. Every successful write clears the
// rendered page cache.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"atelier/internal/models"
	"atelier/internal/store"
)

var (
	// ErrUnknownResource is returned for names outside the five documents,
	// and for item operations on a singleton or merges on a list.
	ErrUnknownResource = errors.New("unknown resource")

	// ErrNotFound is returned when a document or list item does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidShape is returned for malformed JSON, or JSON whose top level
	// does not match the resource (object for singletons, array of objects
	// for lists).
	ErrInvalidShape = errors.New("invalid document shape")
)

// timestampLayout matches the millisecond UTC timestamps the site has
// always stored.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Invalidator clears rendered pages after a write.
type Invalidator interface {
	InvalidateAll(ctx context.Context)
}

// Service reads and writes site content.
type Service struct {
	docs  store.DocumentStore
	locks store.KeyedMutex
	pages Invalidator
	gen   atomic.Uint64

	now   func() time.Time
	newID func() string
}

// NewService returns a content service on docs. pages may be nil.
func NewService(docs store.DocumentStore, pages Invalidator) *Service {
	return &Service{
		docs:  docs,
		pages: pages,
		now:   time.Now,
		newID: func() string { return ulid.Make().String() },
	}
}

// Resource resolves a URL segment or returns ErrUnknownResource.
func Resource(name string) (models.Resource, error) {
	r, ok := models.ParseResource(name)
	if !ok {
		return "", fmt.Errorf("%q: %w", name, ErrUnknownResource)
	}
	return r, nil
}

// GetRaw returns the stored JSON for r exactly as written.
func (s *Service) GetRaw(ctx context.Context, r models.Resource) (json.RawMessage, error) {
	if _, ok := models.ParseResource(string(r)); !ok {
		return nil, fmt.Errorf("%q: %w", r, ErrUnknownResource)
	}
	data, err := s.docs.Read(ctx, r)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", r, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// PutRaw replaces the whole document after checking its shape.
func (s *Service) PutRaw(ctx context.Context, r models.Resource, body []byte) error {
	if _, ok := models.ParseResource(string(r)); !ok {
		return fmt.Errorf("%q: %w", r, ErrUnknownResource)
	}
	if err := CheckShape(r, body); err != nil {
		return err
	}

	unlock := s.locks.Lock(r)
	defer unlock()

	return s.write(ctx, r, body)
}

// CheckShape verifies body is JSON of the right top-level kind for r.
func CheckShape(r models.Resource, body []byte) error {
	body = bytes.TrimSpace(body)
	if !json.Valid(body) {
		return fmt.Errorf("%s: malformed json: %w", r, ErrInvalidShape)
	}
	if !r.IsList() {
		if len(body) == 0 || body[0] != '{' {
			return fmt.Errorf("%s: expected an object: %w", r, ErrInvalidShape)
		}
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return fmt.Errorf("%s: expected an array: %w", r, ErrInvalidShape)
	}
	for i, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			return fmt.Errorf("%s: item %d is not an object: %w", r, i, ErrInvalidShape)
		}
	}
	return nil
}

// write stores body and clears the page cache. Callers hold the lock for r.
func (s *Service) write(ctx context.Context, r models.Resource, body []byte) error {
	if err := s.docs.Write(ctx, r, body); err != nil {
		return err
	}
	s.gen.Add(1)
	if s.pages != nil {
		s.pages.InvalidateAll(context.WithoutCancel(ctx))
	}
	return nil
}

// Generation counts the writes made through s. Pages rendered from content
// read at one generation are cached under it.
func (s *Service) Generation() uint64 {
	return s.gen.Load()
}

// timestamp formats the current time for created_at/updated_at.
func (s *Service) timestamp() string {
	return Timestamp(s.now())
}

// Timestamp formats t the way created_at and updated_at are stored.
func Timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
