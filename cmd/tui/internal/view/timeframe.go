package view

import (
	"errors"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Timeframe is a predefined or custom period.
type Timeframe int

const (
	TimeframeThisMonth Timeframe = iota
	TimeframeLastMonth
	TimeframeThisYear
	TimeframeAll
	TimeframeCustom
)

func (t Timeframe) String() string {
	switch t {
	case TimeframeThisMonth:
		return "Este mês"
	case TimeframeLastMonth:
		return "Mês passado"
	case TimeframeThisYear:
		return "Este ano"
	case TimeframeAll:
		return "Todo o período"
	case TimeframeCustom:
		return "Período personalizado"
	}

	return "Desconhecido"
}

// dateRange returns the first and last day of tf relative to now.
func (t Timeframe) dateRange(now time.Time) (time.Time, time.Time) {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	switch t {
	case TimeframeThisMonth:
		return monthStart, monthStart.AddDate(0, 1, -1)
	case TimeframeLastMonth:
		start := monthStart.AddDate(0, -1, 0)
		return start, monthStart.AddDate(0, 0, -1)
	case TimeframeThisYear:
		start := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(1, 0, -1)
	}

	return time.Time{}, time.Time{}
}

// TimeframeSelectedMsg is emitted once a period is chosen. Start and End are
// zero when All is true.
type TimeframeSelectedMsg struct {
	Start time.Time
	End   time.Time
	All   bool
}

type timeframeState int

const (
	timeframeStateSelect timeframeState = iota
	timeframeStateCustom
)

const dayLayout = "02/01/2006"

// parseCustomRange reads two DD/MM/AAAA dates and checks their order.
func parseCustomRange(from, to string) (time.Time, time.Time, error) {
	start, err := time.Parse(dayLayout, strings.TrimSpace(from))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("data inicial inválida (DD/MM/AAAA)")
	}

	end, err := time.Parse(dayLayout, strings.TrimSpace(to))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("data final inválida (DD/MM/AAAA)")
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.New("data final anterior à inicial")
	}

	return start, end, nil
}

func validDay(s string) error {
	if _, err := time.Parse(dayLayout, strings.TrimSpace(s)); err != nil {
		return errors.New("use DD/MM/AAAA")
	}

	return nil
}

func customRangeForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Key("from").Title("Início").Placeholder("DD/MM/AAAA").CharLimit(10).Validate(validDay),
			huh.NewInput().Key("to").Title("Fim").Placeholder("DD/MM/AAAA").CharLimit(10).Validate(validDay),
		),
	).WithWidth(30).WithShowHelp(false)
}

// TimeframePicker selects a period, either predefined or typed as two dates.
type TimeframePicker struct {
	state    timeframeState
	selected Timeframe
	custom   *huh.Form

	err error
}

func NewTimeframePicker(initial Timeframe) TimeframePicker {
	return TimeframePicker{selected: initial}
}

func (m TimeframePicker) Update(msg tea.Msg) (TimeframePicker, tea.Cmd) {
	if m.state == timeframeStateCustom {
		return m.updateCustom(msg)
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		return m.updateSelect(keyMsg)
	}

	return m, nil
}

func (m TimeframePicker) updateSelect(msg tea.KeyMsg) (TimeframePicker, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.selected = max(m.selected-1, TimeframeThisMonth)
	case "down", "j":
		m.selected = min(m.selected+1, TimeframeCustom)
	case "enter":
		switch m.selected {
		case TimeframeCustom:
			m.state = timeframeStateCustom
			m.custom = customRangeForm()

			return m, m.custom.Init()
		case TimeframeAll:
			return m, selectRange(TimeframeSelectedMsg{All: true})
		}

		start, end := m.selected.dateRange(time.Now())

		return m, selectRange(TimeframeSelectedMsg{Start: start, End: end})
	}

	return m, nil
}

func (m TimeframePicker) updateCustom(msg tea.Msg) (TimeframePicker, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.Reset()
		return m, nil
	}

	form, cmd := m.custom.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.custom = f
	}

	if m.custom.State != huh.StateCompleted {
		return m, cmd
	}

	start, end, err := parseCustomRange(m.custom.GetString("from"), m.custom.GetString("to"))
	if err != nil {
		m.err = err
		m.custom = customRangeForm()

		return m, m.custom.Init()
	}

	m.err = nil

	return m, selectRange(TimeframeSelectedMsg{Start: start, End: end})
}

func selectRange(msg TimeframeSelectedMsg) tea.Cmd {
	return func() tea.Msg { return msg }
}

func (m TimeframePicker) View() string {
	var sb strings.Builder

	if m.state == timeframeStateCustom {
		sb.WriteString("Período personalizado\n\n")
		sb.WriteString(m.custom.View())
		sb.WriteString("\n(Enter avança, Esc volta)")
	} else {
		sb.WriteString("Período\n\n")

		for tf := TimeframeThisMonth; tf <= TimeframeCustom; tf++ {
			marker := "  "
			if m.selected == tf {
				marker = activeStyle("▸ ")
			}

			sb.WriteString(marker + tf.String() + "\n")
		}

		sb.WriteString("\n(Enter seleciona, Esc volta)")
	}

	if m.err != nil {
		sb.WriteString("\n\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("Erro: "+m.err.Error()))
	}

	return sb.String()
}

// IsSelecting reports whether the picker shows the predefined list.
func (m TimeframePicker) IsSelecting() bool {
	return m.state == timeframeStateSelect
}

func (m *TimeframePicker) Reset() {
	m.state = timeframeStateSelect
	m.custom = nil
	m.err = nil
}
