package transfer

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coopsolar/backoffice/internal/status"
)

// Status represents the settlement state of a bank transfer.
type Status string

const (
	StatusPending   Status = "pendente"
	StatusCompleted Status = "concluida"
	StatusCancelled Status = "cancelada"
	StatusFailed    Status = "falha"
)

var Lifecycle = status.NewLifecycle("transferencia",
	StatusPending,
	StatusCompleted,
	StatusCancelled,
	StatusFailed,
)

var (
	ErrNotFound       = status.ErrNotFound
	ErrSameAccount    = errors.New("transfer source and destination must differ")
	ErrMissingAccount = errors.New("transfer requires source and destination accounts")
	ErrInvalidAmount  = errors.New("transfer amount must be positive")
)

// Transfer moves money between two of the cooperative's bank accounts.
type Transfer struct {
	ID                   uuid.UUID
	SourceAccountID      uuid.UUID
	DestinationAccountID uuid.UUID
	Amount               decimal.Decimal
	Description          string
	ScheduledFor         time.Time
	Status               status.Tracker[Status]
	Version              int64
	CreatedAt            time.Time
	UpdatedAt            *time.Time
}
