// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"atelier/internal/database"
	"atelier/internal/models"
)

// SQLDocumentStore keeps documents in the documents table, one row per
// name. It works against PostgreSQL (body is JSONB) and SQLite (body is
// TEXT); only the placeholder style differs.
type SQLDocumentStore struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewSQLDocumentStore returns a document store on an already migrated db.
func NewSQLDocumentStore(db *sql.DB, dialect database.Dialect) *SQLDocumentStore {
	return &SQLDocumentStore{db: db, dialect: dialect}
}

func (s *SQLDocumentStore) selectQuery() string {
	if s.dialect == database.DialectPostgres {
		return `SELECT body FROM documents WHERE name = $1`
	}
	return `SELECT body FROM documents WHERE name = ?`
}

func (s *SQLDocumentStore) upsertQuery() string {
	if s.dialect == database.DialectPostgres {
		return `
		INSERT INTO documents (name, body, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name)
		DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`
	}
	return `
		INSERT INTO documents (name, body, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (name)
		DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`
}

// Read returns the stored JSON or ErrNotFound.
func (s *SQLDocumentStore) Read(ctx context.Context, name models.Resource) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}

	var body string
	err := s.db.QueryRowContext(ctx, s.selectQuery(), string(name)).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return []byte(body), nil
}

// Write upserts the whole document.
func (s *SQLDocumentStore) Write(ctx context.Context, name models.Resource, doc []byte) error {
	if err := checkName(name); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, s.upsertQuery(), string(name), string(doc), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
