// Package tui renders a week calendar of activity instances and applies
// moves and completion toggles through the controller.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/cadence/internal/calendar"
	"github.com/julianstephens/cadence/internal/controller"
	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/utils"
)

type SessionState int

const (
	StateWeek SessionState = iota
	StateGoals
)

var tabTitles = []string{"Week", "Goals"}

// opSettledMsg carries a store response back to the event loop.
type opSettledMsg struct {
	result controller.Result
}

// goalChangedMsg reports the result of a complete or reopen request.
type goalChangedMsg struct {
	goal models.Goal
	verb string
	err  error
}

type goalRow struct {
	goal     models.Goal
	progress models.Progress
}

type Model struct {
	ctrl    *controller.Controller
	actorID string
	state   SessionState
	keys    KeyMap
	help    help.Model

	weekStart string
	days      [7]string
	byDay     map[string][]models.ActivityInstance
	day       int // selected column, 0 = Monday
	row       int // selected instance within the day
	goals     []goalRow
	goalRow   int

	pending   int
	status    string
	statusErr bool
	quitting  bool
	width     int
	height    int
}

// NewModel builds a model showing the current week. actorID is the user
// whose role is checked when completing or reopening goals.
func NewModel(ctrl *controller.Controller, actorID string) Model {
	m := Model{
		ctrl:    ctrl,
		actorID: actorID,
		state:   StateWeek,
		keys:    DefaultKeyMap(),
		help:    help.New(),
	}
	m.jumpTo(ctrl.Today())
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

// jumpTo selects date and loads the week containing it.
func (m *Model) jumpTo(date string) {
	start, err := utils.StartOfWeek(date)
	if err != nil {
		m.setError(err)
		return
	}
	m.weekStart = start
	m.refresh()
	for i, d := range m.days {
		if d == date {
			m.day = i
		}
	}
	m.row = 0
}

// refresh reprojects the visible week and recomputes goal progress.
func (m *Model) refresh() {
	for i := range m.days {
		d, err := utils.AddDays(m.weekStart, i)
		if err != nil {
			m.setError(err)
			return
		}
		m.days[i] = d
	}
	instances, err := m.ctrl.GetActivityInstances(m.days[0], m.days[6])
	if err != nil {
		m.setError(err)
		return
	}
	m.byDay = calendar.GroupByDate(instances)

	m.goals = nil
	for _, g := range m.ctrl.Goals() {
		p, err := m.ctrl.GetProgress(g.ID)
		if err != nil {
			continue
		}
		m.goals = append(m.goals, goalRow{goal: g, progress: p})
	}
	m.clampSelection()
}

func (m *Model) clampSelection() {
	n := len(m.byDay[m.days[m.day]])
	if m.row >= n {
		m.row = n - 1
	}
	if m.row < 0 {
		m.row = 0
	}
	if m.goalRow >= len(m.goals) {
		m.goalRow = len(m.goals) - 1
	}
	if m.goalRow < 0 {
		m.goalRow = 0
	}
}

// selected returns the highlighted instance, if the day has any.
func (m Model) selected() (models.ActivityInstance, bool) {
	list := m.byDay[m.days[m.day]]
	if m.row < 0 || m.row >= len(list) {
		return models.ActivityInstance{}, false
	}
	return list[m.row], true
}

// selectKey moves the cursor onto the instance with key, if it is visible.
func (m *Model) selectKey(k calendar.InstanceKey) {
	for i, d := range m.days {
		for j, inst := range m.byDay[d] {
			if calendar.KeyOf(inst) == k {
				m.day, m.row = i, j
				return
			}
		}
	}
}

func (m *Model) setStatus(msg string) {
	m.status = msg
	m.statusErr = false
}

func (m *Model) setError(err error) {
	m.status = err.Error()
	m.statusErr = true
}

// runOp performs the store half of an op off the event loop.
func runOp(op *controller.Op) tea.Cmd {
	return func() tea.Msg {
		return opSettledMsg{result: op.Run(context.Background())}
	}
}

func (m Model) ShortHelp() []key.Binding {
	keys := []key.Binding{m.keys.Tab, m.keys.Quit, m.keys.Help}
	switch m.state {
	case StateWeek:
		keys = append(keys, m.keys.Toggle, m.keys.ShiftEarly, m.keys.ShiftLate)
	case StateGoals:
		keys = append(keys, m.keys.Complete, m.keys.Reopen)
	}
	return keys
}

func (m Model) FullHelp() [][]key.Binding {
	global := []key.Binding{m.keys.Tab, m.keys.Quit, m.keys.Help, m.keys.Refresh}

	var navigation, actions []key.Binding
	switch m.state {
	case StateWeek:
		navigation = []key.Binding{m.keys.Up, m.keys.Down, m.keys.Left, m.keys.Right, m.keys.PrevWeek, m.keys.NextWeek, m.keys.Today}
		actions = []key.Binding{m.keys.Toggle, m.keys.ShiftEarly, m.keys.ShiftLate}
	case StateGoals:
		navigation = []key.Binding{m.keys.Up, m.keys.Down}
		actions = []key.Binding{m.keys.Complete, m.keys.Reopen}
	}

	return [][]key.Binding{global, navigation, actions}
}
