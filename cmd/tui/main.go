package main

import (
	"context"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/coopsolar/backoffice/cmd/tui/internal/view"
	"github.com/coopsolar/backoffice/internal/config"
	"github.com/coopsolar/backoffice/internal/database"
	"github.com/coopsolar/backoffice/internal/export"
	"github.com/coopsolar/backoffice/internal/finance"
	financeStore "github.com/coopsolar/backoffice/internal/finance/store"
	"github.com/coopsolar/backoffice/internal/importer"
	"github.com/coopsolar/backoffice/internal/invoice"
	invoiceStore "github.com/coopsolar/backoffice/internal/invoice/store"
	"github.com/coopsolar/backoffice/internal/matching"
	matchingStore "github.com/coopsolar/backoffice/internal/matching/store"
	"github.com/coopsolar/backoffice/internal/notify"
	"github.com/coopsolar/backoffice/internal/status"
	"github.com/coopsolar/backoffice/internal/transfer"
	transferStore "github.com/coopsolar/backoffice/internal/transfer/store"
)

type services struct {
	invoices  *invoice.Service
	entries   *finance.Service
	transfers *transfer.Service
	matching  *matching.Service
	importer  *importer.Service
	export    *export.Service
}

type model struct {
	svc services

	currentView View
	active      tea.Model
	width       int
	height      int
}

type View int

const (
	ViewMenu View = iota
	ViewInvoices
	ViewEntries
	ViewTransfers
	ViewImport
	ViewReview
	ViewExport
)

func initialModel() model {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(context.Background(), cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// stdout belongs to bubbletea.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	transitionOpts := []status.UpdaterOption{
		status.WithNotifier(notify.NewLogger(logger)),
		status.WithAttempts(cfg.Transitions.MaxAttempts),
	}

	invoiceSvc := invoice.NewService(invoiceStore.New(db), transitionOpts...)
	matchSvc := matching.NewService(matchingStore.New(db))

	return model{
		svc: services{
			invoices:  invoiceSvc,
			entries:   finance.NewService(financeStore.New(db), transitionOpts...),
			transfers: transfer.NewService(transferStore.New(db), transitionOpts...),
			matching:  matchSvc,
			importer:  importer.NewService(matchSvc),
			export:    export.NewService(invoiceSvc, cfg.Storage.Host, cfg.Storage.Token),
		},
		currentView: ViewMenu,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) open(v View) (tea.Model, tea.Cmd) {
	switch v {
	case ViewInvoices:
		m.active = view.NewRecordsModel(view.NewInvoiceSource(m.svc.invoices))
	case ViewEntries:
		m.active = view.NewRecordsModel(view.NewEntrySource(m.svc.entries))
	case ViewTransfers:
		m.active = view.NewRecordsModel(view.NewTransferSource(m.svc.transfers))
	case ViewImport:
		m.active = view.NewImportModel(m.svc.entries, m.svc.importer)
	case ViewReview:
		m.active = view.NewReviewModel(m.svc.entries, m.svc.matching)
	case ViewExport:
		m.active = view.NewExportModel(m.svc.export)
	default:
		return m, nil
	}

	m.currentView = v

	cmds := []tea.Cmd{m.active.Init()}
	if m.width > 0 {
		size := tea.WindowSizeMsg{Width: m.width, Height: m.height}
		cmds = append(cmds, func() tea.Msg { return size })
	}

	return m, tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.currentView == ViewMenu {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "1", "2", "3", "4", "5", "6":
				return m.open(View(msg.String()[0] - '0'))
			}

			return m, nil
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		m.active = nil

		return m, nil
	}

	if m.active == nil {
		return m, nil
	}

	var cmd tea.Cmd
	m.active, cmd = m.active.Update(msg)

	return m, cmd
}

func (m model) View() string {
	if m.currentView == ViewMenu || m.active == nil {
		return lipgloss.NewStyle().Padding(2).Render(
			"Backoffice Cooperativa\n\n" +
				"1. Faturas\n" +
				"2. Lançamentos financeiros\n" +
				"3. Transferências\n" +
				"4. Importar extrato\n" +
				"5. Revisar lançamentos importados\n" +
				"6. Exportar faturas\n\n" +
				"q. Sair",
		)
	}

	content := m.active.View()
	if v, ok := m.active.(view.View); ok {
		help := lipgloss.NewStyle().Faint(true).Render(v.ShortHelp())
		content = lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().Bold(true).PaddingLeft(1).Render(v.Title()),
			content,
			lipgloss.NewStyle().PaddingLeft(1).Render(help),
		)
	}

	return content
}

func main() {
	p := tea.NewProgram(initialModel(), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
