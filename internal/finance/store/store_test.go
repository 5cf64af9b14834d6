package store_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coopsolar/backoffice/internal/finance"
	"github.com/coopsolar/backoffice/internal/finance/store"
	"github.com/coopsolar/backoffice/internal/status"
)

var entryColumns = []string{
	"id", "tipo", "categoria", "descricao", "descricao_original", "valor",
	"data_vencimento", "status", "historico_status", "version", "created_at", "updated_at",
}

func newStore(t *testing.T) (*store.Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return store.New(db), mock
}

func TestStore_GetEntry(t *testing.T) {
	s, mock := newStore(t)
	id := uuid.New()
	due := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	paid := time.Date(2025, 3, 9, 16, 0, 0, 0, time.UTC)

	history := `[{"timestamp":"2025-03-09T16:00:00Z","previous_status":"pendente","new_status":"pago"}]`
	mock.ExpectQuery(`FROM lancamentos_financeiros\s+WHERE id = \$1 AND deleted_at IS NULL`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(entryColumns).AddRow(
			id.String(), "despesa", "energia", "Conta de luz", "PIX ENEL", "1234.56",
			due, "pago", []byte(history), int64(2), due, nil,
		))

	e, err := s.GetEntry(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, finance.TypeExpense, e.Type)
	assert.Equal(t, "energia", e.Category)
	assert.True(t, decimal.RequireFromString("1234.56").Equal(e.Amount))
	require.NotNil(t, e.PaymentDate())
	assert.Equal(t, paid, *e.PaymentDate())
	assert.Equal(t, finance.StatusPaid, e.Status.Current())
	assert.Equal(t, finance.StatusPending, e.Status.Initial())
	assert.Nil(t, e.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetEntry_NotFound(t *testing.T) {
	s, mock := newStore(t)
	id := uuid.New()

	mock.ExpectQuery(`FROM lancamentos_financeiros`).WithArgs(id).WillReturnError(sql.ErrNoRows)

	_, err := s.GetEntry(context.Background(), id)
	assert.ErrorIs(t, err, finance.ErrNotFound)
}

func TestStore_CreateEntry(t *testing.T) {
	s, mock := newStore(t)
	id := uuid.New()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	e := &finance.Entry{
		Type:        finance.TypeIncome,
		Description: "Mensalidade",
		Amount:      decimal.RequireFromString("150.00"),
		DueDate:     time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
		Status:      status.NewTracker(finance.StatusPending),
	}

	mock.ExpectQuery(`INSERT INTO lancamentos_financeiros`).
		WithArgs("receita", "", "Mensalidade", "", e.Amount, e.DueDate, "pendente", "[]").
		WillReturnRows(sqlmock.NewRows([]string{"id", "version", "created_at", "updated_at"}).
			AddRow(id.String(), int64(1), now, now))

	require.NoError(t, s.CreateEntry(context.Background(), e))
	assert.Equal(t, id, e.ID)
	assert.Equal(t, int64(1), e.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Import_FindDuplicates(t *testing.T) {
	s, mock := newStore(t)
	date := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	dupID := uuid.New()

	params := []finance.CreateParams{
		{Type: finance.TypeExpense, RawDescription: "TARIFA PACOTE", Amount: decimal.RequireFromString("45.90"), DueDate: date},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(\$1\)`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`data_vencimento >= \$1 AND data_vencimento <= \$2`).
		WithArgs(date, date).
		WillReturnRows(sqlmock.NewRows(entryColumns).
			AddRow(dupID.String(), "despesa", nil, "Tarifa", "TARIFA PACOTE", "45.9", date, "pendente", []byte("[]"), int64(1), date, nil).
			AddRow(uuid.NewString(), "despesa", nil, "Outra", "TARIFA AVULSA", "45.9", date, "pendente", []byte("[]"), int64(1), date, nil))
	mock.ExpectRollback()

	itx, err := s.BeginImport(context.Background(), date, date)
	require.NoError(t, err)

	dups, err := itx.FindDuplicates(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, dups, 1)
	assert.Equal(t, dupID, dups[0].ID)

	require.NoError(t, itx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}
