// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package rulestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/petar-djukic/layercheck/internal/rules"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// SQLStore keeps rule categories in a layer_rules table. Postgres DSNs use
// the pgx driver; anything else opens as a SQLite file.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// DriverFor returns the database/sql driver name for dsn.
func DriverFor(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "pgx"
	}
	return "sqlite3"
}

// Open connects to the store at dsn.
func Open(ctx context.Context, dsn string) (*SQLStore, error) {
	driver := DriverFor(dsn)
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return &SQLStore{db: db, driver: driver}, nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the rules table when missing.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS layer_rules (
			rule_type TEXT PRIMARY KEY,
			rule_content TEXT NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1
		)`,
	}
	for _, q := range queries {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

// LoadRules implements Source. Only active rows are returned.
func (s *SQLStore) LoadRules(ctx context.Context) (map[string]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT rule_type, rule_content FROM layer_rules WHERE is_active = 1`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var ruleType, content string
		if err := rows.Scan(&ruleType, &content); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		out[ruleType] = json.RawMessage(content)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return out, nil
}

// SaveRule stores content as the active payload for ruleType.
func (s *SQLStore) SaveRule(ctx context.Context, ruleType string, content json.RawMessage) error {
	q := fmt.Sprintf(`INSERT INTO layer_rules (rule_type, rule_content, is_active) VALUES (%s, %s, 1)
		ON CONFLICT (rule_type) DO UPDATE SET rule_content = excluded.rule_content, is_active = 1`,
		s.placeholder(1), s.placeholder(2))
	if _, err := s.db.ExecContext(ctx, q, ruleType, string(content)); err != nil {
		return fmt.Errorf("saving %s rules: %w", ruleType, err)
	}
	return nil
}

// SetActive enables or disables the stored payload for ruleType.
func (s *SQLStore) SetActive(ctx context.Context, ruleType string, active bool) error {
	flag := 0
	if active {
		flag = 1
	}
	q := fmt.Sprintf(`UPDATE layer_rules SET is_active = %s WHERE rule_type = %s`, s.placeholder(1), s.placeholder(2))
	if _, err := s.db.ExecContext(ctx, q, flag, ruleType); err != nil {
		return fmt.Errorf("updating %s rules: %w", ruleType, err)
	}
	return nil
}

// Seed writes every category of rs.
func (s *SQLStore) Seed(ctx context.Context, rs rules.RuleSet) error {
	cats, err := rs.Categories()
	if err != nil {
		return err
	}
	for _, name := range []string{rules.CategoryNaming, rules.CategorySignature, rules.CategoryLayer} {
		if err := s.SaveRule(ctx, name, cats[name]); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) placeholder(n int) string {
	if s.driver == "pgx" {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}
