package view

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/coopsolar/backoffice/internal/finance"
	"github.com/coopsolar/backoffice/internal/importer"
)

const importTimeout = 2 * time.Minute

var bankOrder = []importer.Bank{importer.BankAuto, importer.BankSicoob, importer.BankBB, importer.BankGeneric}

var bankLabels = map[importer.Bank]string{
	importer.BankAuto:    "Detectar automaticamente",
	importer.BankSicoob:  "Sicoob",
	importer.BankBB:      "Banco do Brasil",
	importer.BankGeneric: "Genérico (CSV)",
}

// statementRow is a parsed statement line waiting for confirmation. Existing
// is set when the line matches an entry already in the ledger.
type statementRow struct {
	Params   finance.CreateParams
	Existing *finance.Entry
	Keep     bool
}

// statementReview holds every line of a statement whose batch hit suspected
// duplicates. New lines start kept, duplicates start dropped.
type statementReview struct {
	rows []statementRow
}

func newStatementReview(res *finance.ImportResult) statementReview {
	rows := make([]statementRow, 0, len(res.New)+len(res.Conflicts))

	for _, p := range res.New {
		rows = append(rows, statementRow{Params: p, Keep: true})
	}

	for _, c := range res.Conflicts {
		rows = append(rows, statementRow{Params: c.Incoming, Existing: c.Existing})
	}

	slices.SortStableFunc(rows, func(a, b statementRow) int {
		return a.Params.DueDate.Compare(b.Params.DueDate)
	})

	return statementReview{rows: rows}
}

func (r *statementReview) toggle(i int) {
	if i >= 0 && i < len(r.rows) {
		r.rows[i].Keep = !r.rows[i].Keep
	}
}

// toggleDuplicates keeps every duplicate unless all of them are already kept,
// in which case it drops them all.
func (r *statementReview) toggleDuplicates() {
	keep := false

	for _, row := range r.rows {
		if row.Existing != nil && !row.Keep {
			keep = true
			break
		}
	}

	for i := range r.rows {
		if r.rows[i].Existing != nil {
			r.rows[i].Keep = keep
		}
	}
}

func (r statementReview) kept() []finance.CreateParams {
	var params []finance.CreateParams

	for _, row := range r.rows {
		if row.Keep {
			params = append(params, row.Params)
		}
	}

	return params
}

func (r statementReview) duplicates() int {
	n := 0

	for _, row := range r.rows {
		if row.Existing != nil {
			n++
		}
	}

	return n
}

// totals sums the kept lines per entry type.
func (r statementReview) totals() (income, expense decimal.Decimal) {
	for _, row := range r.rows {
		if !row.Keep {
			continue
		}

		if row.Params.Type == finance.TypeIncome {
			income = income.Add(row.Params.Amount)
		} else {
			expense = expense.Add(row.Params.Amount)
		}
	}

	return income, expense
}

func (r statementReview) tableRows() []table.Row {
	rows := make([]table.Row, len(r.rows))

	for i, row := range r.rows {
		mark := "[ ]"
		if row.Keep {
			mark = "[x]"
		}

		situation := "novo"
		if row.Existing != nil {
			situation = "duplicado? " + string(row.Existing.Status.Current())
		}

		rows[i] = table.Row{
			mark,
			FormatDate(row.Params.DueDate),
			string(row.Params.Type),
			FormatAmount(row.Params.Amount),
			row.Params.RawDescription,
			situation,
		}
	}

	return rows
}

// ledgerTotals summarises freshly imported entries.
func ledgerTotals(entries []*finance.Entry) (income, expense decimal.Decimal, uncategorized int) {
	for _, e := range entries {
		if e.Type == finance.TypeIncome {
			income = income.Add(e.Amount)
		} else {
			expense = expense.Add(e.Amount)
		}

		if e.Category == "" {
			uncategorized++
		}
	}

	return income, expense, uncategorized
}

type importStep int

const (
	importStepSetup importStep = iota
	importStepFile
	importStepRunning
	importStepReview
	importStepDone
)

// ImportModel reads a bank statement into the ledger. When the batch hits
// suspected duplicates every line goes through a review table first.
type ImportModel struct {
	CommonModel
	financeService *finance.Service
	importService  *importer.Service

	step    importStep
	form    *huh.Form
	bank    importer.Bank
	picker  filepicker.Model
	spinner spinner.Model

	review statementReview
	table  table.Model

	imported []*finance.Entry
	err      error
}

func NewImportModel(financeSvc *finance.Service, impSvc *importer.Service) ImportModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.AllowedTypes = []string{".csv", ".CSV", ".txt"}
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.SetHeight(15)

	s := spinner.New()
	s.Spinner = spinner.Dot

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "", Width: 3},
			{Title: "Data", Width: 10},
			{Title: "Tipo", Width: 8},
			{Title: "Valor", Width: 14},
			{Title: "Descrição original", Width: 32},
			{Title: "Situação", Width: 22},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	return ImportModel{
		financeService: financeSvc,
		importService:  impSvc,
		form:           bankForm(),
		picker:         fp,
		spinner:        s,
		table:          t,
	}
}

func bankForm() *huh.Form {
	options := make([]huh.Option[string], len(bankOrder))
	for i, b := range bankOrder {
		options[i] = huh.NewOption(bankLabels[b], string(b))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("bank").
				Title("Banco do extrato").
				Description("O layout é detectado pelo cabeçalho quando automático").
				Options(options...),
		),
	).WithWidth(50).WithShowHelp(false)
}

func (m ImportModel) Title() string { return "Importar extrato" }

func (m ImportModel) ShortHelp() string {
	switch m.step {
	case importStepReview:
		return "Espaço: manter/descartar | d: todos os duplicados | Enter: importar selecionados | Esc: cancelar"
	case importStepDone:
		return "Esc: voltar ao menu"
	}

	return "Esc: voltar | Enter: selecionar"
}

func (m ImportModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case statementParsedMsg:
		return m.handleParsed(msg)

	case batchCreatedMsg:
		m.step = importStepDone
		m.err = msg.err
		m.imported = msg.entries

		return m, nil

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.table.SetHeight(max(msg.Height-14, 5))

		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m.handleEsc()
		}
	}

	switch m.step {
	case importStepSetup:
		return m.updateSetup(msg)
	case importStepFile:
		return m.updateFile(msg)
	case importStepRunning:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	case importStepReview:
		return m.updateReview(msg)
	}

	return m, nil
}

func (m ImportModel) handleEsc() (tea.Model, tea.Cmd) {
	switch m.step {
	case importStepFile, importStepReview:
		m.step = importStepSetup
		m.review = statementReview{}
		m.form = bankForm()

		return m, m.form.Init()
	case importStepRunning:
		return m, nil
	}

	return m, Back
}

func (m ImportModel) updateSetup(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.bank = importer.Bank(m.form.GetString("bank"))
	m.step = importStepFile

	return m, m.picker.Init()
}

func (m ImportModel) updateFile(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	if ok, path := m.picker.DidSelectFile(msg); ok {
		m.step = importStepRunning
		return m, tea.Batch(m.spinner.Tick, m.parseCmd(path))
	}

	return m, cmd
}

func (m ImportModel) handleParsed(msg statementParsedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.step = importStepDone
		m.err = msg.err

		return m, nil
	}

	if len(msg.result.Conflicts) == 0 {
		m.step = importStepDone
		m.imported = msg.result.Imported

		return m, nil
	}

	m.review = newStatementReview(msg.result)
	m.table.SetRows(m.review.tableRows())
	m.table.SetCursor(0)
	m.table.Focus()
	m.step = importStepReview

	return m, nil
}

func (m ImportModel) updateReview(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case " ":
			m.review.toggle(m.table.Cursor())
			m.table.SetRows(m.review.tableRows())

			return m, nil
		case "d":
			m.review.toggleDuplicates()
			m.table.SetRows(m.review.tableRows())

			return m, nil
		case "enter":
			m.step = importStepRunning
			return m, tea.Batch(m.spinner.Tick, m.createCmd(m.review.kept()))
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m ImportModel) View() string {
	pad := lipgloss.NewStyle().Padding(1)

	switch m.step {
	case importStepSetup:
		return pad.Render(m.form.View())
	case importStepFile:
		return pad.Render(fmt.Sprintf("Extrato (%s):\n\n%s", bankLabels[m.bank], m.picker.View()))
	case importStepRunning:
		return pad.Render(m.spinner.View() + " Processando extrato...")
	case importStepReview:
		return pad.Render(m.viewReview())
	case importStepDone:
		return pad.Render(m.viewDone())
	}

	return ""
}

func (m ImportModel) viewReview() string {
	income, expense := m.review.totals()

	header := fmt.Sprintf("%d linhas, %d possíveis duplicados. Marque o que deve entrar no livro.",
		len(m.review.rows), m.review.duplicates())

	footer := fmt.Sprintf("Selecionados: %d | Receitas: %s | Despesas: %s",
		len(m.review.kept()), FormatAmount(income), FormatAmount(expense))

	content := lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Render(m.table.View()),
		lipgloss.NewStyle().Faint(true).Render(footer),
	)

	if panel := m.existingPanel(); panel != "" {
		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	return content
}

// existingPanel shows the ledger entry the highlighted line may duplicate.
func (m ImportModel) existingPanel() string {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.review.rows) || m.review.rows[idx].Existing == nil {
		return ""
	}

	e := m.review.rows[idx].Existing

	var sb strings.Builder

	sb.WriteString("Lançamento existente\n\n")
	fmt.Fprintf(&sb, "%s\n%s | %s\n", e.Description, FormatDate(e.DueDate), FormatAmount(e.Amount))

	if e.Category != "" {
		fmt.Fprintf(&sb, "Categoria: %s\n", e.Category)
	}

	fmt.Fprintf(&sb, "Status: %s\n\n", e.Status.Current())
	sb.WriteString(renderHistory(string(e.Status.Initial()), historyLines(e.Status)))

	return lipgloss.NewStyle().
		Padding(1, 2).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Width(44).
		Render(sb.String())
}

func (m ImportModel) viewDone() string {
	if m.err != nil {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(fmt.Sprintf("Erro: %v", m.err))
	}

	income, expense, uncategorized := ledgerTotals(m.imported)

	lines := []string{
		lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46")).
			Render(fmt.Sprintf("%d lançamentos importados como pendentes", len(m.imported))),
		"",
		"Receitas: " + FormatAmount(income),
		"Despesas: " + FormatAmount(expense),
	}

	if uncategorized > 0 {
		lines = append(lines, "", fmt.Sprintf("%d sem categoria, use a tela de revisão para categorizar", uncategorized))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Messages

type statementParsedMsg struct {
	result *finance.ImportResult
	err    error
}

type batchCreatedMsg struct {
	entries []*finance.Entry
	err     error
}

func (m ImportModel) parseCmd(path string) tea.Cmd {
	bank := m.bank

	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return statementParsedMsg{err: err}
		}
		defer f.Close()

		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		params, err := m.importService.Import(ctx, bank, f)
		if err != nil {
			return statementParsedMsg{err: err}
		}

		result, err := m.financeService.ImportBatch(ctx, params)

		return statementParsedMsg{result: result, err: err}
	}
}

func (m ImportModel) createCmd(params []finance.CreateParams) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		entries, err := m.financeService.CreateBatch(ctx, params)

		return batchCreatedMsg{entries: entries, err: err}
	}
}
