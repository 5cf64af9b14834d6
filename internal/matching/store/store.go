package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/coopsolar/backoffice/internal/matching"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMapping(s scanner) (*matching.Mapping, error) {
	var (
		m        matching.Mapping
		category sql.NullString
	)

	if err := s.Scan(&m.ID, &m.Pattern, &m.Description, &category, &m.CreatedAt); err != nil {
		return nil, err
	}

	m.Category = category.String

	return &m, nil
}

// FindMatch picks the longest pattern contained in rawDescription, newest first on ties.
func (s *Store) FindMatch(ctx context.Context, rawDescription string) (*matching.Mapping, error) {
	query := `
		SELECT id, padrao_original, descricao_preferida, categoria, created_at
		FROM descricao_mapeamentos
		WHERE $1 ILIKE '%' || padrao_original || '%'
		ORDER BY LENGTH(padrao_original) DESC, created_at DESC
		LIMIT 1
	`

	m, err := scanMapping(s.db.QueryRowContext(ctx, query, rawDescription))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("finding match: %w", err)
	}

	return m, nil
}

func (s *Store) CreateMapping(ctx context.Context, m *matching.Mapping) error {
	query := `
		INSERT INTO descricao_mapeamentos (padrao_original, descricao_preferida, categoria, created_at)
		VALUES ($1, $2, NULLIF($3, ''), NOW())
		RETURNING id, created_at
	`

	if err := s.db.QueryRowContext(ctx, query, m.Pattern, m.Description, m.Category).Scan(&m.ID, &m.CreatedAt); err != nil {
		return fmt.Errorf("creating mapping: %w", err)
	}

	return nil
}

func (s *Store) ListMappings(ctx context.Context) ([]*matching.Mapping, error) {
	query := `
		SELECT id, padrao_original, descricao_preferida, categoria, created_at
		FROM descricao_mapeamentos
		ORDER BY padrao_original ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing mappings: %w", err)
	}
	defer rows.Close()

	var mappings []*matching.Mapping

	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning mapping: %w", err)
		}

		mappings = append(mappings, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating mappings: %w", err)
	}

	return mappings, nil
}
