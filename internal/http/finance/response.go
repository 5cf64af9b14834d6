package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coopsolar/backoffice/internal/finance"
	"github.com/coopsolar/backoffice/internal/http/respond"
)

type entryResponse struct {
	ID             uuid.UUID                 `json:"id"`
	Type           finance.Type              `json:"tipo"`
	Category       string                    `json:"categoria,omitempty"`
	Description    string                    `json:"descricao"`
	RawDescription string                    `json:"descricao_original,omitempty"`
	Amount         decimal.Decimal           `json:"valor"`
	DueDate        string                    `json:"data_vencimento"`
	PaymentDate    *time.Time                `json:"data_pagamento"`
	Status         finance.Status            `json:"status"`
	History        []respond.TransitionEntry `json:"historico_status"`
	Version        int64                     `json:"version"`
	CreatedAt      time.Time                 `json:"created_at"`
	UpdatedAt      *time.Time                `json:"updated_at,omitempty"`
}

func toResponse(e *finance.Entry) entryResponse {
	return entryResponse{
		ID:             e.ID,
		Type:           e.Type,
		Category:       e.Category,
		Description:    e.Description,
		RawDescription: e.RawDescription,
		Amount:         e.Amount,
		DueDate:        e.DueDate.Format(time.DateOnly),
		PaymentDate:    e.PaymentDate(),
		Status:         e.Status.Current(),
		History:        respond.Entries(e.Status),
		Version:        e.Version,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func toResponseList(entries []*finance.Entry) []entryResponse {
	resp := make([]entryResponse, len(entries))
	for i, e := range entries {
		resp[i] = toResponse(e)
	}

	return resp
}
