package invoice

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coopsolar/backoffice/internal/status"
)

// Status represents the billing state of an invoice.
type Status string

const (
	StatusGenerated Status = "gerada"
	StatusPending   Status = "pendente"
	StatusSent      Status = "enviada"
	StatusOverdue   Status = "atrasada"
	StatusPaid      Status = "paga"
	StatusClosed    Status = "finalizada"
)

// Lifecycle is the invoice status enumeration. Invoices carry no derived fields.
var Lifecycle = status.NewLifecycle("fatura",
	StatusGenerated,
	StatusPending,
	StatusSent,
	StatusOverdue,
	StatusPaid,
	StatusClosed,
)

var (
	ErrNotFound      = status.ErrNotFound
	ErrInvalidAmount = errors.New("invoice amount must be positive")
	ErrMissingMember = errors.New("invoice requires a member")

	ErrInvalidDocumentURL = errors.New("document url must be an absolute http(s) url")
)

// Invoice is the monthly bill issued to a cooperative member for the energy
// credited from a power plant.
type Invoice struct {
	ID             uuid.UUID
	MemberID       uuid.UUID
	PowerPlantID   *uuid.UUID
	ReferenceMonth time.Time // first day of the billed month
	DueDate        time.Time
	Amount         decimal.Decimal
	EnergyKWh      decimal.Decimal
	DocumentURL    string
	Status         status.Tracker[Status]
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}
