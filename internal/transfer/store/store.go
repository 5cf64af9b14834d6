package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	statusstore "github.com/coopsolar/backoffice/internal/status/store"
	"github.com/coopsolar/backoffice/internal/transfer"
)

type Store struct {
	*statusstore.Store[transfer.Status]
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{
		Store: statusstore.New[transfer.Status](db, statusstore.Table{Name: "transferencias"}),
		db:    db,
	}
}

type scanner interface {
	Scan(dest ...any) error
}

// Expected column order: id, conta_origem_id, conta_destino_id, valor, descricao,
// data_agendada, status, historico_status, version, created_at, updated_at
func scanTransfer(s scanner) (*transfer.Transfer, error) {
	var (
		tr        transfer.Transfer
		desc      sql.NullString
		statusStr string
		history   []byte
	)

	if err := s.Scan(
		&tr.ID, &tr.SourceAccountID, &tr.DestinationAccountID, &tr.Amount, &desc,
		&tr.ScheduledFor, &statusStr, &history, &tr.Version,
		&tr.CreatedAt, &tr.UpdatedAt,
	); err != nil {
		return nil, err
	}

	tracker, err := statusstore.RestoreTracker[transfer.Status](statusStr, history)
	if err != nil {
		return nil, fmt.Errorf("transfer %s: %w", tr.ID, err)
	}

	tr.Description = desc.String
	tr.Status = tracker

	return &tr, nil
}

const selectTransferColumns = `
	id, conta_origem_id, conta_destino_id, valor, descricao,
	data_agendada, status, historico_status, version, created_at, updated_at
`

func (s *Store) CreateTransfer(ctx context.Context, tr *transfer.Transfer) error {
	history, err := statusstore.EncodeHistory(tr.Status)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO transferencias (conta_origem_id, conta_destino_id, valor, descricao, data_agendada,
			status, historico_status, version, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7::jsonb, 1, NOW(), NOW())
		RETURNING id, version, created_at, updated_at
	`

	err = s.db.QueryRowContext(ctx, query,
		tr.SourceAccountID,
		tr.DestinationAccountID,
		tr.Amount,
		tr.Description,
		tr.ScheduledFor,
		string(tr.Status.Current()),
		string(history),
	).Scan(&tr.ID, &tr.Version, &tr.CreatedAt, &tr.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating transfer: %w", err)
	}

	return nil
}

func (s *Store) GetTransfer(ctx context.Context, id uuid.UUID) (*transfer.Transfer, error) {
	query := `SELECT ` + selectTransferColumns + `
		FROM transferencias
		WHERE id = $1 AND deleted_at IS NULL`

	tr, err := scanTransfer(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transfer.ErrNotFound
		}

		return nil, fmt.Errorf("getting transfer: %w", err)
	}

	return tr, nil
}

func (s *Store) ListTransfers(ctx context.Context, filter transfer.ListFilter) ([]*transfer.Transfer, error) {
	query := `SELECT ` + selectTransferColumns + `
		FROM transferencias
		WHERE deleted_at IS NULL`

	var args []any

	argIdx := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)

		args = append(args, string(*filter.Status))
		argIdx++
	}

	if filter.AccountID != nil {
		query += fmt.Sprintf(" AND (conta_origem_id = $%d OR conta_destino_id = $%d)", argIdx, argIdx)

		args = append(args, *filter.AccountID)
	}

	query += " ORDER BY data_agendada DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transfers: %w", err)
	}
	defer rows.Close()

	var transfers []*transfer.Transfer

	for rows.Next() {
		tr, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transfer: %w", err)
		}

		transfers = append(transfers, tr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transfers: %w", err)
	}

	return transfers, nil
}
