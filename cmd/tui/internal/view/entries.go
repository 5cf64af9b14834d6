package view

import (
	"context"

	"github.com/charmbracelet/bubbles/table"
	"github.com/google/uuid"

	"github.com/coopsolar/backoffice/internal/finance"
)

type EntrySource struct {
	svc *finance.Service
}

func NewEntrySource(svc *finance.Service) EntrySource {
	return EntrySource{svc: svc}
}

func (s EntrySource) Title() string { return "Lançamentos" }

func (s EntrySource) Columns() []table.Column {
	return []table.Column{
		{Title: "Vencimento", Width: 11},
		{Title: "Tipo", Width: 8},
		{Title: "Valor", Width: 14},
		{Title: "Descrição", Width: 32},
		{Title: "Categoria", Width: 12},
		{Title: "Status", Width: 10},
		{Title: "Pagamento", Width: 11},
	}
}

func (s EntrySource) Statuses() []string {
	return statusNames(finance.Lifecycle)
}

func (s EntrySource) Load(ctx context.Context, statusFilter string) ([]Record, error) {
	var filter finance.ListFilter

	if statusFilter != "" {
		st, err := finance.Lifecycle.Parse(statusFilter)
		if err != nil {
			return nil, err
		}

		filter.Status = &st
	}

	entries, err := s.svc.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	records := make([]Record, len(entries))
	for i, e := range entries {
		paid := ""
		if pd := e.PaymentDate(); pd != nil {
			paid = FormatDate(*pd)
		}

		records[i] = Record{
			ID: e.ID,
			Cells: []string{
				FormatDate(e.DueDate),
				string(e.Type),
				FormatAmount(e.Amount),
				e.Description,
				e.Category,
				string(e.Status.Current()),
				paid,
			},
			Status:  string(e.Status.Current()),
			Initial: string(e.Status.Initial()),
			History: historyLines(e.Status),
		}
	}

	return records, nil
}

func (s EntrySource) UpdateStatus(ctx context.Context, id uuid.UUID, next string) (string, error) {
	return applyStatus(ctx, finance.Lifecycle, id, next, s.svc.UpdateStatus)
}
