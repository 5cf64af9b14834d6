package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/coopsolar/backoffice/internal/finance"
	"github.com/coopsolar/backoffice/internal/matching"
)

type reviewState int

const (
	reviewStateTimeframe reviewState = iota
	reviewStateReviewing
)

// ReviewModel walks imported entries that have no category yet and teaches
// the matcher how to describe them next time.
type ReviewModel struct {
	CommonModel
	financeService  *finance.Service
	matchingService *matching.Service

	state           reviewState
	timeframePicker TimeframePicker

	queue   []*finance.Entry
	current *finance.Entry
	total   int

	descInput     textinput.Model
	categoryInput textinput.Model
	focusIndex    int

	status  string
	loading bool
}

func NewReviewModel(financeSvc *finance.Service, matchSvc *matching.Service) ReviewModel {
	desc := textinput.New()
	desc.Placeholder = "Descrição"
	desc.Prompt = "Descrição: "
	desc.Width = 50

	category := textinput.New()
	category.Placeholder = "Categoria"
	category.Prompt = "Categoria: "
	category.Width = 30

	return ReviewModel{
		financeService:  financeSvc,
		matchingService: matchSvc,
		timeframePicker: NewTimeframePicker(TimeframeThisMonth),
		descInput:       desc,
		categoryInput:   category,
	}
}

func (m ReviewModel) Title() string { return "Revisar lançamentos importados" }

func (m ReviewModel) ShortHelp() string {
	if m.state == reviewStateReviewing {
		return "Enter: salvar e próximo | Tab: alternar campo | Ctrl+S: pular | Esc: voltar"
	}

	return "Esc: voltar | Enter: selecionar"
}

func (m ReviewModel) Init() tea.Cmd {
	return nil
}

func (m ReviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TimeframeSelectedMsg:
		m.state = reviewStateReviewing
		m.loading = true

		return m, m.loadCmd(msg)

	case loadReviewMsg:
		m.loading = false
		if msg.err != nil {
			m.status = fmt.Sprintf("Erro ao carregar lançamentos: %v", msg.err)
			return m, nil
		}

		m.queue = msg.entries
		m.total = len(m.queue)

		return m.next()

	case suggestionMsg:
		if m.current != nil && m.current.ID == msg.entryID {
			if msg.description != "" {
				m.descInput.SetValue(msg.description)
			}

			if msg.category != "" {
				m.categoryInput.SetValue(msg.category)
			}
		}

		return m, nil

	case learnResultMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Erro ao salvar: %v", msg.err)
			return m, nil
		}

		return m.next()

	case tea.KeyMsg:
		if m.state == reviewStateTimeframe {
			if msg.Type == tea.KeyEsc && m.timeframePicker.IsSelecting() {
				return m, Back
			}

			var cmd tea.Cmd
			m.timeframePicker, cmd = m.timeframePicker.Update(msg)

			return m, cmd
		}

		return m.updateReviewing(msg)
	}

	if m.state == reviewStateTimeframe {
		var cmd tea.Cmd
		m.timeframePicker, cmd = m.timeframePicker.Update(msg)

		return m, cmd
	}

	return m, nil
}

func (m ReviewModel) updateReviewing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.loading {
		return m, nil
	}

	switch msg.String() {
	case "esc":
		m.state = reviewStateTimeframe
		m.timeframePicker.Reset()
		m.current = nil
		m.queue = nil
		m.status = ""

		return m, nil
	case "tab", "shift+tab":
		m.focusIndex = (m.focusIndex + 1) % 2
		m.descInput.Blur()
		m.categoryInput.Blur()

		if m.focusIndex == 0 {
			m.descInput.Focus()
		} else {
			m.categoryInput.Focus()
		}

		return m, textinput.Blink
	case "ctrl+s":
		return m.next()
	case "enter":
		if m.current != nil {
			return m, m.learnCmd(m.current.RawDescription, m.descInput.Value(), m.categoryInput.Value())
		}
	}

	if m.current == nil {
		return m, nil
	}

	var cmd tea.Cmd
	if m.focusIndex == 0 {
		m.descInput, cmd = m.descInput.Update(msg)
	} else {
		m.categoryInput, cmd = m.categoryInput.Update(msg)
	}

	return m, cmd
}

func (m ReviewModel) next() (tea.Model, tea.Cmd) {
	if len(m.queue) == 0 {
		m.current = nil
		m.status = "Nenhum lançamento pendente de revisão."
		m.descInput.Blur()
		m.categoryInput.Blur()

		return m, nil
	}

	m.current = m.queue[0]
	m.queue = m.queue[1:]
	m.status = fmt.Sprintf("Revisando %d/%d", m.total-len(m.queue), m.total)

	m.descInput.SetValue(m.current.Description)
	m.categoryInput.SetValue(m.current.Category)
	m.focusIndex = 0
	m.categoryInput.Blur()
	m.descInput.Focus()

	return m, tea.Batch(textinput.Blink, m.suggestCmd(m.current))
}

func (m ReviewModel) View() string {
	if m.state == reviewStateTimeframe {
		return lipgloss.NewStyle().Padding(2).Render(m.timeframePicker.View())
	}

	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Carregando lançamentos...")
	}

	if m.current == nil {
		return lipgloss.NewStyle().Padding(2).Render(m.status + "\n\n(Esc para voltar)")
	}

	info := fmt.Sprintf(
		"Data:     %s\nTipo:     %s\nValor:    %s\nOriginal: %s\n",
		FormatDate(m.current.DueDate),
		m.current.Type,
		FormatAmount(m.current.Amount),
		m.current.RawDescription,
	)

	return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf(
		"%s\n\n%s\n%s\n%s",
		m.status, info, m.descInput.View(), m.categoryInput.View(),
	))
}

type loadReviewMsg struct {
	entries []*finance.Entry
	err     error
}

func (m ReviewModel) loadCmd(tf TimeframeSelectedMsg) tea.Cmd {
	svc := m.financeService

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		filter := finance.ListFilter{}
		if !tf.All {
			filter.From = &tf.Start
			filter.To = &tf.End
		}

		entries, err := svc.List(ctx, filter)
		if err != nil {
			return loadReviewMsg{err: err}
		}

		var pending []*finance.Entry

		for _, e := range entries {
			if e.RawDescription != "" && e.Category == "" {
				pending = append(pending, e)
			}
		}

		return loadReviewMsg{entries: pending}
	}
}

type suggestionMsg struct {
	entryID     uuid.UUID
	description string
	category    string
}

func (m ReviewModel) suggestCmd(e *finance.Entry) tea.Cmd {
	svc := m.matchingService

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		desc, category, err := svc.Suggest(ctx, e.RawDescription)
		if err != nil {
			return nil
		}

		return suggestionMsg{entryID: e.ID, description: desc, category: category}
	}
}

type learnResultMsg struct {
	err error
}

func (m ReviewModel) learnCmd(raw, desc, category string) tea.Cmd {
	svc := m.matchingService

	return func() tea.Msg {
		if strings.TrimSpace(desc) == "" {
			return learnResultMsg{}
		}

		ctx, cancel := DbCtx()
		defer cancel()

		_, err := svc.Learn(ctx, raw, desc, category)

		return learnResultMsg{err: err}
	}
}
