// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"atelier/internal/models"
)

// FileDocumentStore keeps each document in <dir>/<name>.json, pretty-printed
// with a two-space indent. Writes go to a temp file that is fsynced and
// renamed over the target, so readers never observe a partial document.
type FileDocumentStore struct {
	dir   string
	locks KeyedMutex
}

// NewFileDocumentStore creates the data directory if needed.
func NewFileDocumentStore(dir string) (*FileDocumentStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileDocumentStore{dir: dir}, nil
}

// Dir returns the directory documents are stored in.
func (s *FileDocumentStore) Dir() string {
	return s.dir
}

// Path returns the file backing a document.
func (s *FileDocumentStore) Path(name models.Resource) string {
	return filepath.Join(s.dir, string(name)+".json")
}

// Read returns the stored JSON or ErrNotFound.
func (s *FileDocumentStore) Read(ctx context.Context, name models.Resource) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

// Write replaces the document. Concurrent writers to the same name are
// serialized; the last one wins.
func (s *FileDocumentStore) Write(ctx context.Context, name models.Resource, doc []byte) error {
	if err := checkName(name); err != nil {
		return err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, doc, "", "  "); err != nil {
		return fmt.Errorf("write %s: invalid json: %w", name, err)
	}

	unlock := s.locks.Lock(name)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, string(name)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp %s: %w", name, err)
	}
	tmpPath := tmp.Name()

	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod %s: %w", name, err)
	}
	if _, err := tmp.Write(pretty.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("fsync %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close %s: %w", name, err)
	}

	if err := os.Rename(tmpPath, s.Path(name)); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}
