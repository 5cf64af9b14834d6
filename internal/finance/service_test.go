package finance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/coopsolar/backoffice/internal/finance"
	"github.com/coopsolar/backoffice/internal/status"
)

func TestService_Create(t *testing.T) {
	type testCase struct {
		name      string
		params    finance.CreateParams
		setupMock func(m *finance.MockRepository)
		wantErr   error
	}

	tests := []testCase{
		{
			name: "Success",
			params: finance.CreateParams{
				Type:        finance.TypeExpense,
				Category:    "manutencao",
				Description: "Limpeza dos paineis",
				Amount:      decimal.RequireFromString("850.00"),
				DueDate:     time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC),
			},
			setupMock: func(m *finance.MockRepository) {
				m.EXPECT().
					CreateEntry(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, e *finance.Entry) error {
						assert.Equal(t, finance.StatusPending, e.Status.Current())
						assert.Nil(t, e.PaymentDate())
						e.ID = uuid.New()
						return nil
					})
			},
		},
		{
			name:    "InvalidType",
			params:  finance.CreateParams{Type: "transferencia", Amount: decimal.NewFromInt(10)},
			wantErr: finance.ErrInvalidType,
		},
		{
			name:    "NegativeAmount",
			params:  finance.CreateParams{Type: finance.TypeIncome, Amount: decimal.NewFromInt(-10)},
			wantErr: finance.ErrInvalidAmount,
		},
		{
			name:   "RepoError",
			params: finance.CreateParams{Type: finance.TypeIncome, Amount: decimal.NewFromInt(10)},
			setupMock: func(m *finance.MockRepository) {
				m.EXPECT().CreateEntry(gomock.Any(), gomock.Any()).Return(errors.New("db error"))
			},
			wantErr: errors.New("db error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := finance.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			got, err := finance.NewService(repo).Create(context.Background(), tt.params)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Nil(t, got)

				if !errors.Is(err, tt.wantErr) {
					assert.EqualError(t, err, tt.wantErr.Error())
				}

				return
			}

			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, got.ID)
		})
	}
}

func TestService_UpdateStatus_PaymentDate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	id := uuid.New()
	paidAt := time.Date(2025, 4, 10, 14, 0, 0, 0, time.UTC)
	cancelledAt := paidAt.Add(48 * time.Hour)
	repo := finance.NewMockRepository(ctrl)

	pending := status.Snapshot[finance.Status]{ID: id, Version: 1, Tracker: status.NewTracker(finance.StatusPending)}

	var paid status.Result[finance.Status]

	repo.EXPECT().LoadStatus(gomock.Any(), id).Return(pending, nil)
	repo.EXPECT().
		SaveTransition(gomock.Any(), pending, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ status.Snapshot[finance.Status], res status.Result[finance.Status]) error {
			paid = res
			return nil
		})

	svc := finance.NewService(repo, status.WithClock(status.FixedClock(paidAt)))

	res, err := svc.UpdateStatus(context.Background(), id, finance.StatusPaid)
	require.NoError(t, err)

	change, ok := res.Change(finance.PaymentDateField)
	require.True(t, ok)
	require.NotNil(t, change.Value)
	assert.Equal(t, paidAt, *change.Value)
	assert.Equal(t, paid.Tracker().History(), res.Tracker().History())

	afterPay := status.Snapshot[finance.Status]{ID: id, Version: 2, Tracker: res.Tracker()}
	repo.EXPECT().LoadStatus(gomock.Any(), id).Return(afterPay, nil)
	repo.EXPECT().SaveTransition(gomock.Any(), afterPay, gomock.Any()).Return(nil)

	svc = finance.NewService(repo, status.WithClock(status.FixedClock(cancelledAt)))

	res, err = svc.UpdateStatus(context.Background(), id, finance.StatusCancelled)
	require.NoError(t, err)

	change, ok = res.Change(finance.PaymentDateField)
	require.True(t, ok)
	assert.Nil(t, change.Value)
	assert.Equal(t, []status.Transition[finance.Status]{
		{Timestamp: paidAt, PreviousStatus: finance.StatusPending, NewStatus: finance.StatusPaid},
		{Timestamp: cancelledAt, PreviousStatus: finance.StatusPaid, NewStatus: finance.StatusCancelled},
	}, res.Tracker().History())
}

func TestService_UpdateStatus_OverdueKeepsPaymentDateUntouched(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	id := uuid.New()
	repo := finance.NewMockRepository(ctrl)
	snap := status.Snapshot[finance.Status]{ID: id, Version: 4, Tracker: status.NewTracker(finance.StatusPending)}

	repo.EXPECT().LoadStatus(gomock.Any(), id).Return(snap, nil)
	repo.EXPECT().SaveTransition(gomock.Any(), snap, gomock.Any()).Return(nil)

	res, err := finance.NewService(repo).UpdateStatus(context.Background(), id, finance.StatusOverdue)
	require.NoError(t, err)

	_, ok := res.Change(finance.PaymentDateField)
	assert.False(t, ok)
}

func TestService_UpdateStatus_UnknownStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := finance.NewMockRepository(ctrl)

	_, err := finance.NewService(repo).UpdateStatus(context.Background(), uuid.New(), finance.Status("estornado"))

	var invalid *status.InvalidStatusError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "lancamento", invalid.Entity)
	assert.Equal(t, "estornado", invalid.Status)
}

func statementRow(desc string, amount string, date time.Time) finance.CreateParams {
	return finance.CreateParams{
		Type:           finance.TypeExpense,
		Description:    desc,
		RawDescription: desc,
		Amount:         decimal.RequireFromString(amount),
		DueDate:        date,
	}
}

func TestService_ImportBatch_NoConflicts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := finance.NewMockRepository(ctrl)
	itx := finance.NewMockImportTx(ctrl)
	svc := finance.NewService(repo)

	date := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	params := []finance.CreateParams{statementRow("PIX ENEL DISTRIBUICAO", "1234.56", date)}

	repo.EXPECT().BeginImport(gomock.Any(), date, date).Return(itx, nil)
	itx.EXPECT().FindDuplicates(gomock.Any(), params).Return(nil, nil)
	itx.EXPECT().CreateEntries(gomock.Any(), gomock.Any()).Return(nil)
	itx.EXPECT().Commit().Return(nil)
	itx.EXPECT().Rollback().Return(nil)

	result, err := svc.ImportBatch(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, result.Imported, 1)
	assert.Equal(t, finance.StatusPending, result.Imported[0].Status.Current())
	assert.Empty(t, result.Conflicts)
	assert.Empty(t, result.New)
}

func TestService_ImportBatch_WithConflicts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := finance.NewMockRepository(ctrl)
	itx := finance.NewMockImportTx(ctrl)
	svc := finance.NewService(repo)

	first := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	last := time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)
	params := []finance.CreateParams{
		statementRow("TARIFA PACOTE", "45.90", last),
		statementRow("PIX ENEL DISTRIBUICAO", "1234.56", first),
	}

	existing := &finance.Entry{
		ID:             uuid.New(),
		Type:           finance.TypeExpense,
		RawDescription: "TARIFA PACOTE",
		Amount:         decimal.RequireFromString("45.9"),
		DueDate:        last,
	}

	repo.EXPECT().BeginImport(gomock.Any(), first, last).Return(itx, nil)
	itx.EXPECT().FindDuplicates(gomock.Any(), params).Return([]*finance.Entry{existing}, nil)
	itx.EXPECT().Rollback().Return(nil)

	result, err := svc.ImportBatch(context.Background(), params)
	require.NoError(t, err)
	assert.Empty(t, result.Imported)
	assert.Equal(t, []finance.CreateParams{params[1]}, result.New)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, params[0], result.Conflicts[0].Incoming)
	assert.Equal(t, existing, result.Conflicts[0].Existing)
}

func TestService_ImportBatch_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	result, err := finance.NewService(finance.NewMockRepository(ctrl)).ImportBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Imported)
	assert.Empty(t, result.Conflicts)
	assert.Empty(t, result.New)
}

func TestService_ImportBatch_InvalidRow(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := finance.NewMockRepository(ctrl)
	itx := finance.NewMockImportTx(ctrl)

	date := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	params := []finance.CreateParams{statementRow("ESTORNO", "0", date)}

	repo.EXPECT().BeginImport(gomock.Any(), date, date).Return(itx, nil)
	itx.EXPECT().FindDuplicates(gomock.Any(), params).Return(nil, nil)
	itx.EXPECT().Rollback().Return(nil)

	_, err := finance.NewService(repo).ImportBatch(context.Background(), params)
	assert.ErrorIs(t, err, finance.ErrInvalidAmount)
}

func TestService_CreateBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := finance.NewMockRepository(ctrl)
	itx := finance.NewMockImportTx(ctrl)

	date := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	params := []finance.CreateParams{statementRow("TARIFA PACOTE", "45.90", date)}

	repo.EXPECT().BeginImport(gomock.Any(), date, date).Return(itx, nil)
	itx.EXPECT().CreateEntries(gomock.Any(), gomock.Any()).Return(nil)
	itx.EXPECT().Commit().Return(nil)
	itx.EXPECT().Rollback().Return(nil)

	entries, err := finance.NewService(repo).CreateBatch(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, decimal.RequireFromString("45.90").Equal(entries[0].Amount))
	assert.Equal(t, finance.TypeExpense, entries[0].Type)
}

func TestDuplicateKey(t *testing.T) {
	date := time.Date(2025, 1, 15, 13, 45, 0, 0, time.UTC)

	a := finance.DuplicateKey(date, decimal.RequireFromString("45.9"), finance.TypeExpense, "TARIFA")
	b := finance.DuplicateKey(date.Truncate(24*time.Hour), decimal.RequireFromString("45.90"), finance.TypeExpense, "TARIFA")
	c := finance.DuplicateKey(date, decimal.RequireFromString("45.90"), finance.TypeIncome, "TARIFA")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
