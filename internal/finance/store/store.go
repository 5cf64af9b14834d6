package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"

	"github.com/coopsolar/backoffice/internal/finance"
	statusstore "github.com/coopsolar/backoffice/internal/status/store"
)

const table = "lancamentos_financeiros"

type Store struct {
	*statusstore.Store[finance.Status]
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{
		Store: statusstore.New[finance.Status](db, statusstore.Table{
			Name:    table,
			Derived: []string{finance.PaymentDateField},
		}),
		db: db,
	}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Expected column order: id, tipo, categoria, descricao, descricao_original, valor,
// data_vencimento, status, historico_status, version, created_at, updated_at
func scanEntry(s scanner) (*finance.Entry, error) {
	var (
		e         finance.Entry
		typeStr   string
		category  sql.NullString
		rawDesc   sql.NullString
		statusStr string
		history   []byte
	)

	if err := s.Scan(
		&e.ID, &typeStr, &category, &e.Description, &rawDesc, &e.Amount,
		&e.DueDate,
		&statusStr, &history, &e.Version,
		&e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}

	tracker, err := statusstore.RestoreTracker[finance.Status](statusStr, history)
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", e.ID, err)
	}

	e.Type = finance.Type(typeStr)
	e.Category = category.String
	e.RawDescription = rawDesc.String
	e.Status = tracker

	return &e, nil
}

const selectEntryColumns = `
	id, tipo, categoria, descricao, descricao_original, valor,
	data_vencimento, status, historico_status, version, created_at, updated_at
`

const insertEntry = `
	INSERT INTO lancamentos_financeiros (tipo, categoria, descricao, descricao_original, valor,
		data_vencimento, status, historico_status, version, created_at, updated_at)
	VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''), $5, $6, $7, $8::jsonb, 1, NOW(), NOW())
	RETURNING id, version, created_at, updated_at
`

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func createEntry(ctx context.Context, q querier, e *finance.Entry) error {
	history, err := statusstore.EncodeHistory(e.Status)
	if err != nil {
		return err
	}

	err = q.QueryRowContext(ctx, insertEntry,
		string(e.Type),
		e.Category,
		e.Description,
		e.RawDescription,
		e.Amount,
		e.DueDate,
		string(e.Status.Current()),
		string(history),
	).Scan(&e.ID, &e.Version, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating entry: %w", err)
	}

	return nil
}

func (s *Store) CreateEntry(ctx context.Context, e *finance.Entry) error {
	return createEntry(ctx, s.db, e)
}

func (s *Store) GetEntry(ctx context.Context, id uuid.UUID) (*finance.Entry, error) {
	query := `SELECT ` + selectEntryColumns + `
		FROM lancamentos_financeiros
		WHERE id = $1 AND deleted_at IS NULL`

	e, err := scanEntry(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, finance.ErrNotFound
		}

		return nil, fmt.Errorf("getting entry: %w", err)
	}

	return e, nil
}

func (s *Store) ListEntries(ctx context.Context, filter finance.ListFilter) ([]*finance.Entry, error) {
	query := `SELECT ` + selectEntryColumns + `
		FROM lancamentos_financeiros
		WHERE deleted_at IS NULL`

	var args []any

	argIdx := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)

		args = append(args, string(*filter.Status))
		argIdx++
	}

	if filter.Type != nil {
		query += fmt.Sprintf(" AND tipo = $%d", argIdx)

		args = append(args, string(*filter.Type))
		argIdx++
	}

	if filter.From != nil {
		query += fmt.Sprintf(" AND data_vencimento >= $%d", argIdx)

		args = append(args, *filter.From)
		argIdx++
	}

	if filter.To != nil {
		query += fmt.Sprintf(" AND data_vencimento <= $%d", argIdx)

		args = append(args, *filter.To)
	}

	query += " ORDER BY data_vencimento ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()

	return collect(rows)
}

func collect(rows *sql.Rows) ([]*finance.Entry, error) {
	var entries []*finance.Entry

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entries: %w", err)
	}

	return entries, nil
}

// importLockKey serializes imports covering the same statement period.
func importLockKey(minDate, maxDate time.Time) int64 {
	h := fnv.New64a()
	h.Write([]byte(minDate.Format(time.DateOnly)))
	h.Write([]byte{0})
	h.Write([]byte(maxDate.Format(time.DateOnly)))

	return int64(h.Sum64())
}

type importTx struct {
	tx *sql.Tx
}

func (s *Store) BeginImport(ctx context.Context, minDate, maxDate time.Time) (finance.ImportTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning import tx: %w", err)
	}

	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", importLockKey(minDate, maxDate)); err != nil {
		dbTx.Rollback()
		return nil, fmt.Errorf("acquiring import lock: %w", err)
	}

	return &importTx{tx: dbTx}, nil
}

func (itx *importTx) Commit() error { return itx.tx.Commit() }

func (itx *importTx) Rollback() error {
	if err := itx.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}

	return nil
}

// FindDuplicates returns the stored entries matching any of params on date,
// amount, type and original description.
func (itx *importTx) FindDuplicates(ctx context.Context, params []finance.CreateParams) ([]*finance.Entry, error) {
	if len(params) == 0 {
		return nil, nil
	}

	minDate := params[0].DueDate
	maxDate := params[0].DueDate
	keys := make(map[string]struct{}, len(params))

	for _, p := range params {
		if p.DueDate.Before(minDate) {
			minDate = p.DueDate
		}

		if p.DueDate.After(maxDate) {
			maxDate = p.DueDate
		}

		keys[finance.DuplicateKey(p.DueDate, p.Amount, p.Type, p.RawDescription)] = struct{}{}
	}

	query := `SELECT ` + selectEntryColumns + `
		FROM lancamentos_financeiros
		WHERE deleted_at IS NULL AND data_vencimento >= $1 AND data_vencimento <= $2
		ORDER BY data_vencimento ASC`

	rows, err := itx.tx.QueryContext(ctx, query, minDate, maxDate)
	if err != nil {
		return nil, fmt.Errorf("finding duplicates: %w", err)
	}
	defer rows.Close()

	candidates, err := collect(rows)
	if err != nil {
		return nil, err
	}

	var duplicates []*finance.Entry

	for _, e := range candidates {
		if _, found := keys[finance.DuplicateKey(e.DueDate, e.Amount, e.Type, e.RawDescription)]; found {
			duplicates = append(duplicates, e)
		}
	}

	return duplicates, nil
}

func (itx *importTx) CreateEntries(ctx context.Context, entries []*finance.Entry) error {
	for _, e := range entries {
		if err := createEntry(ctx, itx.tx, e); err != nil {
			return err
		}
	}

	return nil
}
