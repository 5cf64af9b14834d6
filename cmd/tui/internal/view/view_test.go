package view

import (
	"context"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coopsolar/backoffice/internal/export"
	"github.com/coopsolar/backoffice/internal/finance"
	"github.com/coopsolar/backoffice/internal/invoice"
	"github.com/coopsolar/backoffice/internal/status"
)

func TestTimeframe_DateRange(t *testing.T) {
	now := time.Date(2025, 3, 18, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		tf        Timeframe
		wantStart time.Time
		wantEnd   time.Time
	}{
		{"ThisMonth", TimeframeThisMonth, date(2025, 3, 1), date(2025, 3, 31)},
		{"LastMonth", TimeframeLastMonth, date(2025, 2, 1), date(2025, 2, 28)},
		{"ThisYear", TimeframeThisYear, date(2025, 1, 1), date(2025, 12, 31)},
		{"All", TimeframeAll, time.Time{}, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := tt.tf.dateRange(now)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestApplyStatus_Message(t *testing.T) {
	id := uuid.New()

	applied := func(context.Context, uuid.UUID, finance.Status) (status.Result[finance.Status], error) {
		return finance.Lifecycle.Transition(status.NewTracker(finance.StatusPending), finance.StatusPaid, status.SystemClock{})
	}

	msg, err := applyStatus(context.Background(), finance.Lifecycle, id, "pago", applied)
	require.NoError(t, err)
	assert.Equal(t, "Status do lançamento atualizado de pendente para pago", msg)

	failed := func(context.Context, uuid.UUID, finance.Status) (status.Result[finance.Status], error) {
		return status.Result[finance.Status]{}, status.Persistence("saving transition", status.ErrConflict)
	}

	msg, err = applyStatus(context.Background(), finance.Lifecycle, id, "pago", failed)
	require.ErrorIs(t, err, status.ErrConflict)
	assert.Equal(t, "O status do lançamento foi alterado por outra pessoa, tente novamente", msg)
}

type fakeSource struct {
	records []Record
	updated []string
}

func (f *fakeSource) Title() string           { return "Teste" }
func (f *fakeSource) Columns() []table.Column { return []table.Column{{Title: "Status", Width: 10}} }
func (f *fakeSource) Statuses() []string      { return []string{"a", "b"} }

func (f *fakeSource) Load(context.Context, string) ([]Record, error) {
	return f.records, nil
}

func (f *fakeSource) UpdateStatus(_ context.Context, _ uuid.UUID, next string) (string, error) {
	f.updated = append(f.updated, next)
	return "ok", nil
}

func TestRecordsModel_LoadAndHistory(t *testing.T) {
	src := &fakeSource{records: []Record{{
		ID:      uuid.New(),
		Cells:   []string{"b"},
		Status:  "b",
		Initial: "a",
		History: []HistoryLine{{At: date(2025, 3, 1), From: "a", To: "b"}},
	}}}

	var m tea.Model = NewRecordsModel(src)

	msg := m.Init()()
	m, _ = m.Update(msg)
	assert.NotContains(t, m.View(), "Histórico")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("h")})
	assert.Contains(t, m.View(), "Histórico")
	assert.Contains(t, m.View(), "a → b")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("f")})
	rm := m.(RecordsModel)
	assert.Equal(t, "a", rm.filter())
}

func statementParams(day int, typ finance.Type, amount, raw string) finance.CreateParams {
	return finance.CreateParams{
		Type:           typ,
		RawDescription: raw,
		Amount:         decimal.RequireFromString(amount),
		DueDate:        date(2025, 3, day),
	}
}

func paidEntry(t *testing.T, p finance.CreateParams) *finance.Entry {
	t.Helper()

	tracker, err := status.Restore(finance.StatusPaid, []status.Transition[finance.Status]{
		{Timestamp: date(2025, 3, 20), PreviousStatus: finance.StatusPending, NewStatus: finance.StatusPaid},
	})
	require.NoError(t, err)

	return &finance.Entry{
		ID:             uuid.New(),
		Type:           p.Type,
		Description:    "Conta de luz da usina",
		RawDescription: p.RawDescription,
		Amount:         p.Amount,
		DueDate:        p.DueDate,
		Status:         tracker,
	}
}

func TestStatementReview(t *testing.T) {
	rent := statementParams(5, finance.TypeIncome, "300.00", "PIX COOPERADO 12")
	energy := statementParams(2, finance.TypeExpense, "120.50", "DEB ENEL")
	fee := statementParams(9, finance.TypeExpense, "45.90", "TARIFA PACOTE")

	r := newStatementReview(&finance.ImportResult{
		New:       []finance.CreateParams{rent, fee},
		Conflicts: []finance.Conflict{{Incoming: energy, Existing: paidEntry(t, energy)}},
	})

	require.Len(t, r.rows, 3)
	assert.Equal(t, "DEB ENEL", r.rows[0].Params.RawDescription)
	assert.False(t, r.rows[0].Keep)
	assert.Equal(t, 1, r.duplicates())
	assert.Equal(t, []finance.CreateParams{rent, fee}, r.kept())

	income, expense := r.totals()
	assert.True(t, decimal.RequireFromString("300").Equal(income))
	assert.True(t, decimal.RequireFromString("45.90").Equal(expense))

	r.toggleDuplicates()
	assert.Equal(t, []finance.CreateParams{energy, rent, fee}, r.kept())

	r.toggleDuplicates()
	r.toggle(2)
	assert.Equal(t, []finance.CreateParams{rent}, r.kept())

	r.toggle(7)
	assert.Len(t, r.kept(), 1)

	rows := r.tableRows()
	assert.Equal(t, "duplicado? pago", rows[0][5])
	assert.Equal(t, "[x]", rows[1][0])
	assert.Equal(t, "[ ]", rows[2][0])
}

func TestLedgerTotals(t *testing.T) {
	entries := []*finance.Entry{
		{Type: finance.TypeIncome, Amount: decimal.RequireFromString("300"), Category: "mensalidade"},
		{Type: finance.TypeExpense, Amount: decimal.RequireFromString("120.50")},
		{Type: finance.TypeExpense, Amount: decimal.RequireFromString("45.90")},
	}

	income, expense, uncategorized := ledgerTotals(entries)
	assert.True(t, decimal.RequireFromString("300").Equal(income))
	assert.True(t, decimal.RequireFromString("166.40").Equal(expense))
	assert.Equal(t, 2, uncategorized)
}

func TestImportModel_ReviewShowsExistingEntry(t *testing.T) {
	energy := statementParams(2, finance.TypeExpense, "120.50", "DEB ENEL")
	fee := statementParams(9, finance.TypeExpense, "45.90", "TARIFA PACOTE")

	var m tea.Model = NewImportModel(nil, nil)

	m, _ = m.Update(statementParsedMsg{result: &finance.ImportResult{
		New:       []finance.CreateParams{fee},
		Conflicts: []finance.Conflict{{Incoming: energy, Existing: paidEntry(t, energy)}},
	}})

	view := m.View()
	assert.Contains(t, view, "2 linhas, 1 possíveis duplicados")
	assert.Contains(t, view, "Lançamento existente")
	assert.Contains(t, view, "Conta de luz da usina")
	assert.Contains(t, view, "pendente → pago")
	assert.Contains(t, view, "Selecionados: 1")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")})
	assert.Equal(t, []finance.CreateParams{energy, fee}, m.(ImportModel).review.kept())

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	im := m.(ImportModel)
	assert.Equal(t, importStepSetup, im.step)
	assert.Empty(t, im.review.rows)
}

func TestImportModel_CleanImportSkipsReview(t *testing.T) {
	var m tea.Model = NewImportModel(nil, nil)

	m, _ = m.Update(statementParsedMsg{result: &finance.ImportResult{
		Imported: []*finance.Entry{
			{Type: finance.TypeIncome, Amount: decimal.RequireFromString("300")},
		},
	}})

	assert.Equal(t, importStepDone, m.(ImportModel).step)
	assert.Contains(t, m.View(), "1 lançamentos importados como pendentes")
	assert.Contains(t, m.View(), "1 sem categoria")
}

func TestExportFilter(t *testing.T) {
	period := TimeframeSelectedMsg{Start: date(2025, 2, 1), End: date(2025, 2, 28)}

	f := exportFilter(period, "paga")
	require.NotNil(t, f.From)
	require.NotNil(t, f.To)
	require.NotNil(t, f.Status)
	assert.Equal(t, date(2025, 2, 1), *f.From)
	assert.Equal(t, date(2025, 2, 28), *f.To)
	assert.Equal(t, invoice.StatusPaid, *f.Status)

	f = exportFilter(TimeframeSelectedMsg{All: true}, "")
	assert.Nil(t, f.From)
	assert.Nil(t, f.To)
	assert.Nil(t, f.Status)
}

func TestExportTotals(t *testing.T) {
	items := []export.Item{
		{Invoice: &invoice.Invoice{Amount: decimal.RequireFromString("312.45")}, FilePath: "/tmp/a.pdf"},
		{Invoice: &invoice.Invoice{Amount: decimal.RequireFromString("87.55")}},
	}

	withDocument, total := exportTotals(items)
	assert.Equal(t, 1, withDocument)
	assert.True(t, decimal.RequireFromString("400").Equal(total))
}

func TestParseCustomRange(t *testing.T) {
	start, end, err := parseCustomRange("01/02/2025", " 28/02/2025")
	require.NoError(t, err)
	assert.Equal(t, date(2025, 2, 1), start)
	assert.Equal(t, date(2025, 2, 28), end)

	_, _, err = parseCustomRange("2025-02-01", "28/02/2025")
	assert.EqualError(t, err, "data inicial inválida (DD/MM/AAAA)")

	_, _, err = parseCustomRange("01/03/2025", "28/02/2025")
	assert.EqualError(t, err, "data final anterior à inicial")
}

func TestTimeframePicker_SelectAll(t *testing.T) {
	p := NewTimeframePicker(TimeframeThisMonth)

	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyDown})
	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyDown})
	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyDown})
	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, TimeframeCustom, p.selected)

	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyUp})
	p, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, TimeframeSelectedMsg{All: true}, cmd())
	assert.True(t, p.IsSelecting())
}
