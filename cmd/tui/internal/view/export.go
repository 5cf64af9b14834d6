package view

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/coopsolar/backoffice/internal/export"
	"github.com/coopsolar/backoffice/internal/invoice"
)

const (
	exportTimeout = 2 * time.Minute
	defaultExport = "./faturas"
)

// exportFilter turns the chosen period and status into an invoice filter.
// The period applies to the reference month; an empty status means any.
func exportFilter(period TimeframeSelectedMsg, statusName string) invoice.ListFilter {
	var filter invoice.ListFilter

	if !period.All {
		from, to := period.Start, period.End
		filter.From = &from
		filter.To = &to
	}

	if statusName != "" {
		s := invoice.Status(statusName)
		filter.Status = &s
	}

	return filter
}

// exportTotals counts downloaded documents and sums the exported invoices.
func exportTotals(items []export.Item) (withDocument int, total decimal.Decimal) {
	for _, item := range items {
		if item.FilePath != "" {
			withDocument++
		}

		total = total.Add(item.Invoice.Amount)
	}

	return withDocument, total
}

func exportRows(items []export.Item) []table.Row {
	rows := make([]table.Row, len(items))

	for i, item := range items {
		inv := item.Invoice

		file := "sem documento"
		if item.FilePath != "" {
			file = filepath.Base(item.FilePath)
		}

		rows[i] = table.Row{
			FormatMonth(inv.ReferenceMonth),
			inv.MemberID.String()[:8],
			string(inv.Status.Current()),
			FormatAmount(inv.Amount),
			file,
		}
	}

	return rows
}

type exportStep int

const (
	exportStepPeriod exportStep = iota
	exportStepOptions
	exportStepRunning
	exportStepDone
)

// ExportModel downloads the PDFs of the invoices of a period, optionally
// restricted to one status, and lists what was written.
type ExportModel struct {
	CommonModel
	exportService *export.Service

	step    exportStep
	period  TimeframePicker
	chosen  TimeframeSelectedMsg
	form    *huh.Form
	dir     string
	spinner spinner.Model

	items []export.Item
	table table.Model
	err   error
}

func NewExportModel(svc *export.Service) ExportModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Mês", Width: 8},
			{Title: "Cooperado", Width: 10},
			{Title: "Status", Width: 11},
			{Title: "Valor", Width: 14},
			{Title: "Arquivo", Width: 36},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	return ExportModel{
		exportService: svc,
		period:        NewTimeframePicker(TimeframeLastMonth),
		dir:           defaultExport,
		spinner:       s,
		table:         t,
	}
}

func (m ExportModel) Title() string { return "Exportar faturas" }

func (m ExportModel) ShortHelp() string {
	switch m.step {
	case exportStepRunning:
		return "Baixando..."
	case exportStepDone:
		return "n: nova exportação | Esc: voltar ao menu"
	}

	return "Esc: voltar | Enter: confirmar"
}

func (m ExportModel) Init() tea.Cmd {
	return nil
}

func optionsForm() *huh.Form {
	statuses := []huh.Option[string]{huh.NewOption("Todos", "")}
	for _, s := range invoice.Lifecycle.Statuses() {
		statuses = append(statuses, huh.NewOption(string(s), string(s)))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("status").
				Title("Status das faturas").
				Options(statuses...),
			huh.NewInput().
				Key("dir").
				Title("Diretório de saída").
				Description("Será criado se não existir").
				Placeholder(defaultExport),
		),
	).WithWidth(50).WithShowHelp(false)
}

func (m ExportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TimeframeSelectedMsg:
		m.chosen = msg
		m.form = optionsForm()
		m.step = exportStepOptions

		return m, m.form.Init()

	case exportDoneMsg:
		m.step = exportStepDone
		m.err = msg.err
		m.items = msg.items
		m.table.SetRows(exportRows(msg.items))

		return m, nil

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.table.SetHeight(max(msg.Height-14, 5))

		return m, nil
	}

	switch m.step {
	case exportStepPeriod:
		if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc && m.period.IsSelecting() {
			return m, Back
		}

		var cmd tea.Cmd
		m.period, cmd = m.period.Update(msg)

		return m, cmd

	case exportStepOptions:
		return m.updateOptions(msg)

	case exportStepRunning:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd

	case exportStepDone:
		return m.updateDone(msg)
	}

	return m, nil
}

func (m ExportModel) updateOptions(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.step = exportStepPeriod
		m.period.Reset()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.dir = defaultExport
	if dir := strings.TrimSpace(m.form.GetString("dir")); dir != "" {
		m.dir = dir
	}

	filter := exportFilter(m.chosen, m.form.GetString("status"))
	m.step = exportStepRunning
	m.err = nil

	return m, tea.Batch(m.spinner.Tick, m.exportCmd(filter, m.dir))
}

func (m ExportModel) updateDone(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "n":
			m.step = exportStepPeriod
			m.items = nil
			m.period.Reset()

			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m ExportModel) View() string {
	pad := lipgloss.NewStyle().Padding(1)

	switch m.step {
	case exportStepPeriod:
		return pad.Render(m.period.View())
	case exportStepOptions:
		return pad.Render(m.form.View())
	case exportStepRunning:
		return pad.Render(m.spinner.View() + " Baixando os PDFs das faturas...")
	case exportStepDone:
		return pad.Render(m.viewDone())
	}

	return ""
}

func (m ExportModel) viewDone() string {
	if m.err != nil {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(fmt.Sprintf("Erro: %v", m.err))
	}

	if len(m.items) == 0 {
		return "Nenhuma fatura encontrada para o período."
	}

	withDocument, total := exportTotals(m.items)

	header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46")).Render(
		fmt.Sprintf("%d faturas | %d PDFs baixados | Total %s", len(m.items), withDocument, FormatAmount(total)),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Render(m.table.View()),
		lipgloss.NewStyle().Faint(true).Render("Resumo salvo em "+filepath.Join(m.dir, export.SummaryFile)),
	)
}

type exportDoneMsg struct {
	items []export.Item
	err   error
}

func (m ExportModel) exportCmd(filter invoice.ListFilter, dir string) tea.Cmd {
	svc := m.exportService

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), exportTimeout)
		defer cancel()

		items, err := svc.Export(ctx, filter, dir)
		if err != nil {
			return exportDoneMsg{err: err}
		}

		if err := os.WriteFile(filepath.Join(dir, export.SummaryFile), []byte(export.Summary(items)), 0o644); err != nil {
			return exportDoneMsg{err: err}
		}

		return exportDoneMsg{items: items}
	}
}
