package finance

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coopsolar/backoffice/internal/status"
)

// Type tells whether an entry is money coming in or going out.
type Type string

const (
	TypeIncome  Type = "receita"
	TypeExpense Type = "despesa"
)

func (t Type) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// Status represents the settlement state of a financial entry.
type Status string

const (
	StatusPending   Status = "pendente"
	StatusPaid      Status = "pago"
	StatusOverdue   Status = "atrasado"
	StatusCancelled Status = "cancelado"
)

// PaymentDateField is set while an entry is paid.
const PaymentDateField = "data_pagamento"

// Lifecycle is the entry status enumeration. Entering StatusPaid stamps the
// payment date; leaving it clears the date.
var Lifecycle = status.NewLifecycle("lancamento",
	StatusPending,
	StatusPaid,
	StatusOverdue,
	StatusCancelled,
).With(status.StampWhileIn(PaymentDateField, StatusPaid))

var (
	ErrNotFound      = status.ErrNotFound
	ErrInvalidType   = errors.New("entry type must be receita or despesa")
	ErrInvalidAmount = errors.New("entry amount must be positive")
)

// Entry is a line of the cooperative's financial ledger.
type Entry struct {
	ID             uuid.UUID
	Type           Type
	Category       string
	Description    string
	RawDescription string
	Amount         decimal.Decimal
	DueDate        time.Time
	Status         status.Tracker[Status]
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}

// PaymentDate is derived from the status log: the instant the entry became
// paid, or nil while it is not paid.
func (e *Entry) PaymentDate() *time.Time {
	at, ok := e.Status.EnteredAt(StatusPaid)
	if !ok {
		return nil
	}

	return &at
}
