package view

import (
	"context"

	"github.com/charmbracelet/bubbles/table"
	"github.com/google/uuid"

	"github.com/coopsolar/backoffice/internal/transfer"
)

type TransferSource struct {
	svc *transfer.Service
}

func NewTransferSource(svc *transfer.Service) TransferSource {
	return TransferSource{svc: svc}
}

func (s TransferSource) Title() string { return "Transferências" }

func (s TransferSource) Columns() []table.Column {
	return []table.Column{
		{Title: "Agendada", Width: 11},
		{Title: "Origem", Width: 10},
		{Title: "Destino", Width: 10},
		{Title: "Valor", Width: 14},
		{Title: "Descrição", Width: 28},
		{Title: "Status", Width: 10},
	}
}

func (s TransferSource) Statuses() []string {
	return statusNames(transfer.Lifecycle)
}

func (s TransferSource) Load(ctx context.Context, statusFilter string) ([]Record, error) {
	var filter transfer.ListFilter

	if statusFilter != "" {
		st, err := transfer.Lifecycle.Parse(statusFilter)
		if err != nil {
			return nil, err
		}

		filter.Status = &st
	}

	transfers, err := s.svc.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	records := make([]Record, len(transfers))
	for i, tr := range transfers {
		records[i] = Record{
			ID: tr.ID,
			Cells: []string{
				FormatDate(tr.ScheduledFor),
				tr.SourceAccountID.String()[:8],
				tr.DestinationAccountID.String()[:8],
				FormatAmount(tr.Amount),
				tr.Description,
				string(tr.Status.Current()),
			},
			Status:  string(tr.Status.Current()),
			Initial: string(tr.Status.Initial()),
			History: historyLines(tr.Status),
		}
	}

	return records, nil
}

func (s TransferSource) UpdateStatus(ctx context.Context, id uuid.UUID, next string) (string, error) {
	return applyStatus(ctx, transfer.Lifecycle, id, next, s.svc.UpdateStatus)
}
