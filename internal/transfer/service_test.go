package transfer_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/coopsolar/backoffice/internal/status"
	"github.com/coopsolar/backoffice/internal/transfer"
)

func TestService_Create(t *testing.T) {
	checking := uuid.New()
	savings := uuid.New()

	type testCase struct {
		name      string
		params    transfer.CreateParams
		setupMock func(m *transfer.MockRepository)
		wantErr   error
	}

	tests := []testCase{
		{
			name: "Success",
			params: transfer.CreateParams{
				SourceAccountID:      checking,
				DestinationAccountID: savings,
				Amount:               decimal.RequireFromString("5000.00"),
				Description:          "Reserva para manutencao",
				ScheduledFor:         time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC),
			},
			setupMock: func(m *transfer.MockRepository) {
				m.EXPECT().
					CreateTransfer(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, tr *transfer.Transfer) error {
						assert.Equal(t, transfer.StatusPending, tr.Status.Current())
						tr.ID = uuid.New()
						return nil
					})
			},
		},
		{
			name: "SameAccount",
			params: transfer.CreateParams{
				SourceAccountID:      checking,
				DestinationAccountID: checking,
				Amount:               decimal.NewFromInt(10),
			},
			wantErr: transfer.ErrSameAccount,
		},
		{
			name: "MissingDestination",
			params: transfer.CreateParams{
				SourceAccountID: checking,
				Amount:          decimal.NewFromInt(10),
			},
			wantErr: transfer.ErrMissingAccount,
		},
		{
			name: "ZeroAmount",
			params: transfer.CreateParams{
				SourceAccountID:      checking,
				DestinationAccountID: savings,
			},
			wantErr: transfer.ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := transfer.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			got, err := transfer.NewService(repo).Create(context.Background(), tt.params)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, got.ID)
		})
	}
}

func TestService_UpdateStatus_SameStatusIsNoOp(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	id := uuid.New()
	repo := transfer.NewMockRepository(ctrl)
	snap := status.Snapshot[transfer.Status]{ID: id, Version: 1, Tracker: status.NewTracker(transfer.StatusPending)}

	repo.EXPECT().LoadStatus(gomock.Any(), id).Return(snap, nil)
	repo.EXPECT().SaveTransition(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	res, err := transfer.NewService(repo).UpdateStatus(context.Background(), id, transfer.StatusPending)
	require.NoError(t, err)

	assert.True(t, res.NoOp())
	assert.Equal(t, transfer.StatusPending, res.Status)
	assert.Equal(t, 0, res.Tracker().Len())
}

func TestService_UpdateStatus_Failed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	id := uuid.New()
	now := time.Date(2025, 5, 2, 10, 15, 0, 0, time.UTC)
	repo := transfer.NewMockRepository(ctrl)
	snap := status.Snapshot[transfer.Status]{ID: id, Version: 1, Tracker: status.NewTracker(transfer.StatusPending)}

	repo.EXPECT().LoadStatus(gomock.Any(), id).Return(snap, nil)
	repo.EXPECT().SaveTransition(gomock.Any(), snap, gomock.Any()).Return(nil)

	res, err := transfer.NewService(repo, status.WithClock(status.FixedClock(now))).
		UpdateStatus(context.Background(), id, transfer.StatusFailed)
	require.NoError(t, err)

	require.NotNil(t, res.Appended)
	assert.Equal(t, status.Transition[transfer.Status]{
		Timestamp:      now,
		PreviousStatus: transfer.StatusPending,
		NewStatus:      transfer.StatusFailed,
	}, *res.Appended)
}

func TestService_UpdateStatus_Unknown(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	_, err := transfer.NewService(transfer.NewMockRepository(ctrl)).
		UpdateStatus(context.Background(), uuid.New(), transfer.Status("estornada"))
	assert.ErrorIs(t, err, status.ErrInvalidStatus)
}
