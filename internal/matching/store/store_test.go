package store_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coopsolar/backoffice/internal/matching/store"
)

func TestStore_FindMatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	created := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`WHERE \$1 ILIKE '%' \|\| padrao_original \|\| '%'`).
		WithArgs("PAGAMENTO BOLETO ENEL BOL0042").
		WillReturnRows(sqlmock.NewRows([]string{"id", "padrao_original", "descricao_preferida", "categoria", "created_at"}).
			AddRow(id.String(), "ENEL", "Conta de energia", "energia", created))

	m, err := store.New(db).FindMatch(context.Background(), "PAGAMENTO BOLETO ENEL BOL0042")
	require.NoError(t, err)
	require.NotNil(t, m)

	assert.Equal(t, id, m.ID)
	assert.Equal(t, "Conta de energia", m.Description)
	assert.Equal(t, "energia", m.Category)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_FindMatch_None(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM descricao_mapeamentos`).WillReturnError(sql.ErrNoRows)

	m, err := store.New(db).FindMatch(context.Background(), "TARIFA")
	require.NoError(t, err)
	assert.Nil(t, m)
}
