package invoice

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coopsolar/backoffice/internal/http/respond"
	"github.com/coopsolar/backoffice/internal/invoice"
)

type invoiceResponse struct {
	ID             uuid.UUID                 `json:"id"`
	MemberID       uuid.UUID                 `json:"cooperado_id"`
	PowerPlantID   *uuid.UUID                `json:"usina_id,omitempty"`
	ReferenceMonth string                    `json:"mes_referencia"`
	DueDate        string                    `json:"data_vencimento"`
	Amount         decimal.Decimal           `json:"valor_total"`
	EnergyKWh      decimal.Decimal           `json:"consumo_kwh"`
	DocumentURL    string                    `json:"pdf_url,omitempty"`
	Status         invoice.Status            `json:"status"`
	History        []respond.TransitionEntry `json:"historico_status"`
	Version        int64                     `json:"version"`
	CreatedAt      time.Time                 `json:"created_at"`
	UpdatedAt      *time.Time                `json:"updated_at,omitempty"`
}

func toResponse(inv *invoice.Invoice) invoiceResponse {
	return invoiceResponse{
		ID:             inv.ID,
		MemberID:       inv.MemberID,
		PowerPlantID:   inv.PowerPlantID,
		ReferenceMonth: inv.ReferenceMonth.Format("2006-01"),
		DueDate:        inv.DueDate.Format(time.DateOnly),
		Amount:         inv.Amount,
		EnergyKWh:      inv.EnergyKWh,
		DocumentURL:    inv.DocumentURL,
		Status:         inv.Status.Current(),
		History:        respond.Entries(inv.Status),
		Version:        inv.Version,
		CreatedAt:      inv.CreatedAt,
		UpdatedAt:      inv.UpdatedAt,
	}
}

func toResponseList(invoices []*invoice.Invoice) []invoiceResponse {
	resp := make([]invoiceResponse, len(invoices))
	for i, inv := range invoices {
		resp[i] = toResponse(inv)
	}

	return resp
}
