package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/cadence/internal/calendar"
	"github.com/julianstephens/cadence/internal/controller"
	"github.com/julianstephens/cadence/internal/errors"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/utils"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case opSettledMsg:
		m.pending--
		outcome, err := m.ctrl.Settle(msg.result)
		m.refresh()
		switch {
		case err != nil:
			m.status = errors.UserMessage(err)
			m.statusErr = true
		case outcome == controller.OutcomeLocalOnly:
			m.status = errors.UserMessage(errors.ErrPersistenceUnavailable)
			m.statusErr = true
		case outcome == controller.OutcomeConfirmed:
			m.setStatus("Saved")
		}

	case goalChangedMsg:
		m.pending--
		if msg.err != nil {
			m.status = errors.UserMessage(msg.err)
			m.statusErr = true
		} else {
			m.setStatus(fmt.Sprintf("Goal %q %s", msg.goal.Description, msg.verb))
		}
		m.refresh()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Tab):
			m.state = (m.state + 1) % SessionState(len(tabTitles))
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Refresh):
			if err := m.ctrl.Load(context.Background()); err != nil {
				m.setError(err)
			} else {
				m.setStatus("Reloaded")
			}
			m.refresh()
		default:
			if m.state == StateGoals {
				return m.updateGoals(msg)
			}
			return m.updateWeek(msg)
		}
	}

	return m, nil
}

func (m Model) updateWeek(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.row > 0 {
			m.row--
		}
	case key.Matches(msg, m.keys.Down):
		if m.row < len(m.byDay[m.days[m.day]])-1 {
			m.row++
		}
	case key.Matches(msg, m.keys.Left):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Right):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.PrevWeek):
		m.shiftWeek(-7)
	case key.Matches(msg, m.keys.NextWeek):
		m.shiftWeek(7)
	case key.Matches(msg, m.keys.Today):
		m.jumpTo(m.ctrl.Today())
	case key.Matches(msg, m.keys.Toggle):
		return m.toggleSelected()
	case key.Matches(msg, m.keys.ShiftEarly):
		return m.shiftSelected(-1)
	case key.Matches(msg, m.keys.ShiftLate):
		return m.shiftSelected(1)
	}
	return m, nil
}

func (m Model) updateGoals(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.goalRow > 0 {
			m.goalRow--
		}
	case key.Matches(msg, m.keys.Down):
		if m.goalRow < len(m.goals)-1 {
			m.goalRow++
		}
	case key.Matches(msg, m.keys.Complete):
		return m.changeGoal("completed", m.ctrl.CompleteGoal)
	case key.Matches(msg, m.keys.Reopen):
		return m.changeGoal("reopened", m.ctrl.ReopenGoal)
	}
	return m, nil
}

// moveCursor steps the day cursor, paging the week at either edge.
func (m *Model) moveCursor(delta int) {
	next := m.day + delta
	switch {
	case next < 0:
		m.shiftWeek(-7)
		m.day = 6
	case next > 6:
		m.shiftWeek(7)
		m.day = 0
	default:
		m.day = next
	}
	m.row = 0
	m.clampSelection()
}

func (m *Model) shiftWeek(days int) {
	start, err := utils.AddDays(m.weekStart, days)
	if err != nil {
		m.setError(err)
		return
	}
	m.weekStart = start
	m.row = 0
	m.refresh()
}

func (m Model) toggleSelected() (tea.Model, tea.Cmd) {
	inst, ok := m.selected()
	if !ok {
		return m, nil
	}
	op, err := m.ctrl.BeginToggle(calendar.KeyOf(inst))
	if err != nil {
		m.setError(err)
		return m, nil
	}
	m.pending++
	m.refresh()
	return m, runOp(op)
}

// shiftSelected moves the selected instance by delta days, the keyboard
// analogue of dragging it to a neighbouring column.
func (m Model) shiftSelected(delta int) (tea.Model, tea.Cmd) {
	inst, ok := m.selected()
	if !ok {
		return m, nil
	}
	target, err := utils.AddDays(inst.EffectiveDate, delta)
	if err != nil {
		m.setError(err)
		return m, nil
	}
	k := calendar.KeyOf(inst)
	op, err := m.ctrl.BeginMove(k, target)
	if err != nil {
		m.setError(err)
		return m, nil
	}
	m.pending++

	if target < m.days[0] || target > m.days[6] {
		start, err := utils.StartOfWeek(target)
		if err == nil {
			m.weekStart = start
		}
	}
	m.refresh()
	m.selectKey(k)
	return m, runOp(op)
}

func (m Model) changeGoal(verb string, change func(context.Context, string, string) (models.Goal, error)) (tea.Model, tea.Cmd) {
	if m.goalRow >= len(m.goals) {
		return m, nil
	}
	goalID := m.goals[m.goalRow].goal.ID
	actor := m.actorID
	m.pending++
	return m, func() tea.Msg {
		goal, err := change(context.Background(), goalID, actor)
		return goalChangedMsg{goal: goal, verb: verb, err: err}
	}
}
