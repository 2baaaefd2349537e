// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store persists the site documents. Every backend stores one
// whole JSON document per resource name and replaces it on each write;
// there are no partial updates at this layer.
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"atelier/internal/models"
)

// ErrNotFound is returned by Read when a document has never been written.
var ErrNotFound = errors.New("document not found")

// DocumentStore reads and overwrites named JSON documents.
type DocumentStore interface {
	Read(ctx context.Context, name models.Resource) ([]byte, error)
	Write(ctx context.Context, name models.Resource, doc []byte) error
}

// validName restricts document names to safe file and key names.
var validName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

func checkName(name models.Resource) error {
	if !validName.MatchString(string(name)) {
		return fmt.Errorf("invalid document name %q", name)
	}
	return nil
}

// Seed writes an empty document for every resource that does not exist
// yet, so that a fresh install can be loaded as a whole.
func Seed(ctx context.Context, s DocumentStore) (int, error) {
	created := 0
	for _, r := range models.Resources {
		_, err := s.Read(ctx, r)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return created, fmt.Errorf("seed check %s: %w", r, err)
		}
		if err := s.Write(ctx, r, r.EmptyDocument()); err != nil {
			return created, fmt.Errorf("seed write %s: %w", r, err)
		}
		created++
	}
	return created, nil
}

// KeyedMutex hands out one mutex per document name. The zero value is
// ready to use.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[models.Resource]*sync.Mutex
}

// Lock acquires the mutex for name and returns its unlock function.
func (k *KeyedMutex) Lock(name models.Resource) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[models.Resource]*sync.Mutex)
	}
	l, ok := k.locks[name]
	if !ok {
		l = &sync.Mutex{}
		k.locks[name] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
