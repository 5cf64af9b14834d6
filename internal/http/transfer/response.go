package transfer

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coopsolar/backoffice/internal/http/respond"
	"github.com/coopsolar/backoffice/internal/transfer"
)

type transferResponse struct {
	ID                   uuid.UUID                 `json:"id"`
	SourceAccountID      uuid.UUID                 `json:"conta_origem_id"`
	DestinationAccountID uuid.UUID                 `json:"conta_destino_id"`
	Amount               decimal.Decimal           `json:"valor"`
	Description          string                    `json:"descricao,omitempty"`
	ScheduledFor         string                    `json:"data_agendada"`
	Status               transfer.Status           `json:"status"`
	History              []respond.TransitionEntry `json:"historico_status"`
	Version              int64                     `json:"version"`
	CreatedAt            time.Time                 `json:"created_at"`
	UpdatedAt            *time.Time                `json:"updated_at,omitempty"`
}

func toResponse(tr *transfer.Transfer) transferResponse {
	return transferResponse{
		ID:                   tr.ID,
		SourceAccountID:      tr.SourceAccountID,
		DestinationAccountID: tr.DestinationAccountID,
		Amount:               tr.Amount,
		Description:          tr.Description,
		ScheduledFor:         tr.ScheduledFor.Format(time.DateOnly),
		Status:               tr.Status.Current(),
		History:              respond.Entries(tr.Status),
		Version:              tr.Version,
		CreatedAt:            tr.CreatedAt,
		UpdatedAt:            tr.UpdatedAt,
	}
}

func toResponseList(transfers []*transfer.Transfer) []transferResponse {
	resp := make([]transferResponse, len(transfers))
	for i, tr := range transfers {
		resp[i] = toResponse(tr)
	}

	return resp
}
