package view

import (
	"context"

	"github.com/charmbracelet/bubbles/table"
	"github.com/google/uuid"

	"github.com/coopsolar/backoffice/internal/invoice"
)

// InvoiceSource lists invoices and lets the operator attach their PDFs.
type InvoiceSource struct {
	svc *invoice.Service
}

func NewInvoiceSource(svc *invoice.Service) InvoiceSource {
	return InvoiceSource{svc: svc}
}

func (s InvoiceSource) Title() string { return "Faturas" }

func (s InvoiceSource) Columns() []table.Column {
	return []table.Column{
		{Title: "Mês", Width: 8},
		{Title: "Cooperado", Width: 10},
		{Title: "Vencimento", Width: 11},
		{Title: "Valor", Width: 14},
		{Title: "kWh", Width: 8},
		{Title: "Status", Width: 11},
		{Title: "PDF", Width: 4},
	}
}

func (s InvoiceSource) Statuses() []string {
	return statusNames(invoice.Lifecycle)
}

func (s InvoiceSource) Load(ctx context.Context, statusFilter string) ([]Record, error) {
	var filter invoice.ListFilter

	if statusFilter != "" {
		st, err := invoice.Lifecycle.Parse(statusFilter)
		if err != nil {
			return nil, err
		}

		filter.Status = &st
	}

	invoices, err := s.svc.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	records := make([]Record, len(invoices))
	for i, inv := range invoices {
		doc := ""
		if inv.DocumentURL != "" {
			doc = "sim"
		}

		records[i] = Record{
			ID: inv.ID,
			Cells: []string{
				FormatMonth(inv.ReferenceMonth),
				inv.MemberID.String()[:8],
				FormatDate(inv.DueDate),
				FormatAmount(inv.Amount),
				inv.EnergyKWh.StringFixed(0),
				string(inv.Status.Current()),
				doc,
			},
			Status:  string(inv.Status.Current()),
			Initial: string(inv.Status.Initial()),
			History: historyLines(inv.Status),
		}
	}

	return records, nil
}

func (s InvoiceSource) UpdateStatus(ctx context.Context, id uuid.UUID, next string) (string, error) {
	return applyStatus(ctx, invoice.Lifecycle, id, next, s.svc.UpdateStatus)
}

func (s InvoiceSource) AttachDocument(ctx context.Context, id uuid.UUID, url string) error {
	return s.svc.AttachDocument(ctx, id, url)
}
