package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/coopsolar/backoffice/internal/invoice"
	statusstore "github.com/coopsolar/backoffice/internal/status/store"
)

const table = "faturas"

type Store struct {
	*statusstore.Store[invoice.Status]
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{
		Store: statusstore.New[invoice.Status](db, statusstore.Table{Name: table}),
		db:    db,
	}
}

type scanner interface {
	Scan(dest ...any) error
}

// Expected column order: id, cooperado_id, usina_id, mes_referencia, data_vencimento,
// valor_total, consumo_kwh, pdf_url, status, historico_status, version, created_at, updated_at
func scanInvoice(s scanner) (*invoice.Invoice, error) {
	var (
		inv       invoice.Invoice
		plantID   *uuid.UUID
		pdfURL    sql.NullString
		statusStr string
		history   []byte
	)

	if err := s.Scan(
		&inv.ID, &inv.MemberID, &plantID, &inv.ReferenceMonth, &inv.DueDate,
		&inv.Amount, &inv.EnergyKWh, &pdfURL,
		&statusStr, &history, &inv.Version,
		&inv.CreatedAt, &inv.UpdatedAt,
	); err != nil {
		return nil, err
	}

	tracker, err := statusstore.RestoreTracker[invoice.Status](statusStr, history)
	if err != nil {
		return nil, fmt.Errorf("invoice %s: %w", inv.ID, err)
	}

	inv.PowerPlantID = plantID
	inv.DocumentURL = pdfURL.String
	inv.Status = tracker

	return &inv, nil
}

const selectInvoiceColumns = `
	id, cooperado_id, usina_id, mes_referencia, data_vencimento,
	valor_total, consumo_kwh, pdf_url, status, historico_status, version, created_at, updated_at
`

func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	history, err := statusstore.EncodeHistory(inv.Status)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO faturas (cooperado_id, usina_id, mes_referencia, data_vencimento, valor_total,
			consumo_kwh, pdf_url, status, historico_status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9::jsonb, 1, NOW(), NOW())
		RETURNING id, version, created_at, updated_at
	`

	err = s.db.QueryRowContext(ctx, query,
		inv.MemberID,
		inv.PowerPlantID,
		inv.ReferenceMonth,
		inv.DueDate,
		inv.Amount,
		inv.EnergyKWh,
		inv.DocumentURL,
		string(inv.Status.Current()),
		string(history),
	).Scan(&inv.ID, &inv.Version, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating invoice: %w", err)
	}

	return nil
}

func (s *Store) GetInvoice(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	query := `SELECT ` + selectInvoiceColumns + `
		FROM faturas
		WHERE id = $1 AND deleted_at IS NULL`

	inv, err := scanInvoice(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, invoice.ErrNotFound
		}

		return nil, fmt.Errorf("getting invoice: %w", err)
	}

	return inv, nil
}

func (s *Store) ListInvoices(ctx context.Context, filter invoice.ListFilter) ([]*invoice.Invoice, error) {
	query := `SELECT ` + selectInvoiceColumns + `
		FROM faturas
		WHERE deleted_at IS NULL`

	var args []any

	argIdx := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)

		args = append(args, string(*filter.Status))
		argIdx++
	}

	if filter.MemberID != nil {
		query += fmt.Sprintf(" AND cooperado_id = $%d", argIdx)

		args = append(args, *filter.MemberID)
		argIdx++
	}

	if filter.From != nil {
		query += fmt.Sprintf(" AND mes_referencia >= $%d", argIdx)

		args = append(args, *filter.From)
		argIdx++
	}

	if filter.To != nil {
		query += fmt.Sprintf(" AND mes_referencia <= $%d", argIdx)

		args = append(args, *filter.To)
	}

	query += " ORDER BY mes_referencia DESC, data_vencimento ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*invoice.Invoice

	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning invoice: %w", err)
		}

		invoices = append(invoices, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating invoices: %w", err)
	}

	return invoices, nil
}

func (s *Store) UpdateDocument(ctx context.Context, id uuid.UUID, url string) error {
	query := `
		UPDATE faturas
		SET pdf_url = $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL
	`

	res, err := s.db.ExecContext(ctx, query, url, id)
	if err != nil {
		return fmt.Errorf("updating invoice document: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating invoice document: %w", err)
	}

	if n == 0 {
		return invoice.ErrNotFound
	}

	return nil
}
