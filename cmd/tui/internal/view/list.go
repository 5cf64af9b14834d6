package view

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/coopsolar/backoffice/internal/notify"
	"github.com/coopsolar/backoffice/internal/status"
)

// HistoryLine is one rendered status transition.
type HistoryLine struct {
	At   time.Time
	From string
	To   string
}

// Record is a table row together with what the side panels need.
type Record struct {
	ID      uuid.UUID
	Cells   []string
	Status  string
	Initial string
	History []HistoryLine
}

// Source feeds a RecordsModel with one collection of status-tracked rows.
type Source interface {
	Title() string
	Columns() []table.Column
	Statuses() []string
	Load(ctx context.Context, statusFilter string) ([]Record, error)
	// UpdateStatus returns the operator message for the outcome, also on error.
	UpdateStatus(ctx context.Context, id uuid.UUID, next string) (string, error)
}

// DocumentAttacher is implemented by sources whose rows carry a document link.
type DocumentAttacher interface {
	AttachDocument(ctx context.Context, id uuid.UUID, url string) error
}

func historyLines[S status.Value](t status.Tracker[S]) []HistoryLine {
	history := t.History()

	lines := make([]HistoryLine, len(history))
	for i, tr := range history {
		lines[i] = HistoryLine{At: tr.Timestamp, From: string(tr.PreviousStatus), To: string(tr.NewStatus)}
	}

	return lines
}

func statusNames[S status.Value](lc *status.Lifecycle[S]) []string {
	all := lc.Statuses()

	names := make([]string, len(all))
	for i, s := range all {
		names[i] = string(s)
	}

	return names
}

func applyStatus[S status.Value](
	ctx context.Context,
	lc *status.Lifecycle[S],
	id uuid.UUID,
	next string,
	apply func(context.Context, uuid.UUID, S) (status.Result[S], error),
) (string, error) {
	res, err := apply(ctx, id, S(next))

	return notify.Message(status.Outcome{
		Entity: lc.Entity(),
		ID:     id,
		From:   string(res.Previous),
		To:     next,
		NoOp:   err == nil && res.NoOp(),
		Err:    err,
	}), err
}

type listState int

const (
	listStateBrowse listState = iota
	listStateStatus
	listStateDocument
)

type RecordsModel struct {
	CommonModel
	source Source

	state   listState
	table   table.Model
	records []Record
	form    *huh.Form

	filterIdx   int
	showHistory bool

	loading bool
	err     error
	status  string
}

func NewRecordsModel(source Source) RecordsModel {
	t := table.New(
		table.WithColumns(source.Columns()),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return RecordsModel{
		source:  source,
		table:   t,
		loading: true,
	}
}

func (m RecordsModel) Title() string { return m.source.Title() }

func (m RecordsModel) ShortHelp() string {
	if m.state != listStateBrowse {
		return "Navegar formulário | Esc: cancelar"
	}

	help := "Esc: voltar | s: alterar status | h: histórico | f: filtro | r: atualizar"
	if _, ok := m.source.(DocumentAttacher); ok {
		help += " | d: documento"
	}

	return help
}

func (m RecordsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m RecordsModel) filter() string {
	if m.filterIdx == 0 {
		return ""
	}

	return m.source.Statuses()[m.filterIdx-1]
}

func (m RecordsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadRecordsMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.records = msg.records
		m.refreshTable()

		return m, nil

	case actionDoneMsg:
		m.status = msg.message
		if msg.err != nil && msg.message == "" {
			m.status = fmt.Sprintf("Erro: %v", msg.err)
		}

		m.state = listStateBrowse
		m.form = nil
		m.table.Focus()

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.table.SetHeight(msg.Height - 10)

		return m, nil
	}

	if m.state == listStateBrowse {
		return m.updateBrowse(msg)
	}

	return m.updateForm(msg)
}

func (m RecordsModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "f":
			m.filterIdx = (m.filterIdx + 1) % (len(m.source.Statuses()) + 1)
			m.loading = true

			return m, m.loadCmd()
		case "h":
			m.showHistory = !m.showHistory
			return m, nil
		case "s", "enter":
			return m.enterStatusMode()
		case "d":
			if _, ok := m.source.(DocumentAttacher); ok {
				return m.enterDocumentMode()
			}
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m RecordsModel) selected() (Record, bool) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.records) {
		return Record{}, false
	}

	return m.records[idx], true
}

func (m RecordsModel) enterStatusMode() (tea.Model, tea.Cmd) {
	rec, ok := m.selected()
	if !ok {
		return m, nil
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("status").
				Title("Novo status").
				Description("Atual: " + rec.Status).
				Options(huh.NewOptions(m.source.Statuses()...)...),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = listStateStatus
	m.table.Blur()

	return m, m.form.Init()
}

func (m RecordsModel) enterDocumentMode() (tea.Model, tea.Cmd) {
	if _, ok := m.selected(); !ok {
		return m, nil
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("url").
				Title("URL do PDF").
				Placeholder("https://...").
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("url cannot be empty")
					}

					return nil
				}),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = listStateDocument
	m.table.Blur()

	return m, m.form.Init()
}

func (m RecordsModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = listStateBrowse
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	rec, ok := m.selected()
	if !ok {
		return m, nil
	}

	if m.state == listStateDocument {
		return m, m.attachCmd(rec.ID, strings.TrimSpace(m.form.GetString("url")))
	}

	return m, m.updateStatusCmd(rec.ID, m.form.GetString("status"))
}

func (m RecordsModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Carregando...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Erro: %v", m.err))
	}

	filterLabel := "Todos"
	if f := m.filter(); f != "" {
		filterLabel = f
	}

	header := fmt.Sprintf("%s | [f] Status: %s", m.source.Title(), activeStyle(filterLabel))

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableView,
	)

	if panel := m.sidePanel(); panel != "" {
		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m RecordsModel) sidePanel() string {
	panel := lipgloss.NewStyle().
		Padding(1, 2).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Width(48)

	if m.state != listStateBrowse && m.form != nil {
		return panel.Render(m.form.View())
	}

	if !m.showHistory {
		return ""
	}

	rec, ok := m.selected()
	if !ok {
		return ""
	}

	return panel.Render("Histórico\n\n" + renderHistory(rec.Initial, rec.History))
}

func renderHistory(initial string, lines []HistoryLine) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Inicial: %s\n\n", initial)

	if len(lines) == 0 {
		sb.WriteString("Nenhuma transição registrada")
	}

	for _, h := range lines {
		fmt.Fprintf(&sb, "%s  %s → %s\n", h.At.Local().Format("02/01/2006 15:04"), h.From, h.To)
	}

	return sb.String()
}

func activeStyle(s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Render(s)
}

func (m *RecordsModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.records))
	for _, rec := range m.records {
		rows = append(rows, table.Row(rec.Cells))
	}

	m.table.SetRows(rows)
}

// Messages

type loadRecordsMsg struct {
	records []Record
	err     error
}

func (m RecordsModel) loadCmd() tea.Cmd {
	source := m.source
	filter := m.filter()

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		records, err := source.Load(ctx, filter)

		return loadRecordsMsg{records: records, err: err}
	}
}

type actionDoneMsg struct {
	message string
	err     error
}

func (m RecordsModel) updateStatusCmd(id uuid.UUID, next string) tea.Cmd {
	source := m.source

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		message, err := source.UpdateStatus(ctx, id, next)

		return actionDoneMsg{message: message, err: err}
	}
}

func (m RecordsModel) attachCmd(id uuid.UUID, url string) tea.Cmd {
	attacher, _ := m.source.(DocumentAttacher)

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		if err := attacher.AttachDocument(ctx, id, url); err != nil {
			return actionDoneMsg{err: err}
		}

		return actionDoneMsg{message: "Documento anexado"}
	}
}
