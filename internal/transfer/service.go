package transfer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coopsolar/backoffice/internal/status"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=transfer
type Repository interface {
	CreateTransfer(ctx context.Context, tr *Transfer) error
	GetTransfer(ctx context.Context, id uuid.UUID) (*Transfer, error)
	ListTransfers(ctx context.Context, filter ListFilter) ([]*Transfer, error)

	LoadStatus(ctx context.Context, id uuid.UUID) (status.Snapshot[Status], error)
	SaveTransition(ctx context.Context, snap status.Snapshot[Status], res status.Result[Status]) error
}

type Service struct {
	repo        Repository
	transitions *status.Updater[Status]
}

func NewService(repo Repository, opts ...status.UpdaterOption) *Service {
	return &Service{
		repo:        repo,
		transitions: status.NewUpdater(Lifecycle, repo, opts...),
	}
}

type CreateParams struct {
	SourceAccountID      uuid.UUID
	DestinationAccountID uuid.UUID
	Amount               decimal.Decimal
	Description          string
	ScheduledFor         time.Time
}

type ListFilter struct {
	Status *Status
	// AccountID matches either side of the transfer.
	AccountID *uuid.UUID
}

func (p CreateParams) validate() error {
	if p.SourceAccountID == uuid.Nil || p.DestinationAccountID == uuid.Nil {
		return ErrMissingAccount
	}

	if p.SourceAccountID == p.DestinationAccountID {
		return ErrSameAccount
	}

	if !p.Amount.IsPositive() {
		return ErrInvalidAmount
	}

	return nil
}

// Create schedules a transfer. New transfers are pending.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Transfer, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	tr := &Transfer{
		SourceAccountID:      params.SourceAccountID,
		DestinationAccountID: params.DestinationAccountID,
		Amount:               params.Amount,
		Description:          params.Description,
		ScheduledFor:         params.ScheduledFor,
		Status:               status.NewTracker(StatusPending),
	}
	if err := s.repo.CreateTransfer(ctx, tr); err != nil {
		return nil, err
	}

	return tr, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Transfer, error) {
	return s.repo.GetTransfer(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Transfer, error) {
	return s.repo.ListTransfers(ctx, filter)
}

func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, next Status) (status.Result[Status], error) {
	return s.transitions.Apply(ctx, id, next)
}
