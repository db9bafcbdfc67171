package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/cadence/internal/models"
	"github.com/julianstephens/cadence/internal/utils"
)

const minColumnWidth = 14

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case StateWeek:
		content = m.viewWeek()
	case StateGoals:
		content = m.viewGoals()
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewTabs(),
		content,
		m.viewFooter(),
		m.viewStatus(),
		m.help.View(m),
	)
}

func (m Model) viewTabs() string {
	var tabs []string
	for i, title := range tabTitles {
		if m.state == SessionState(i) {
			tabs = append(tabs, activeTabStyle.Render(title))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(title))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) columnWidth() int {
	w := (m.width - 2) / 7
	if w < minColumnWidth {
		return minColumnWidth
	}
	return w
}

func (m Model) viewWeek() string {
	today := m.ctrl.Today()
	width := m.columnWidth()

	columns := make([]string, 0, len(m.days))
	for i, d := range m.days {
		header := dayHeaderStyle
		if d == today {
			header = todayHeaderStyle
		}
		lines := []string{header.Render(dayLabel(d))}

		list := m.byDay[d]
		if len(list) == 0 {
			lines = append(lines, mutedStyle.Render("·"))
		}
		for j, inst := range list {
			line := truncate(instanceLabel(inst), width-4)
			switch {
			case i == m.day && j == m.row:
				line = selectedStyle.Render(line)
			case inst.IsCompleted:
				line = doneStyle.Render(line)
			case inst.IsException:
				line = movedStyle.Render(line)
			}
			lines = append(lines, line)
		}

		style := columnStyle
		if i == m.day {
			style = activeColumnStyle
		}
		columns = append(columns, style.Width(width-2).Render(strings.Join(lines, "\n")))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		docStyle.Render(fmt.Sprintf("Week of %s", m.weekStart)),
		lipgloss.JoinHorizontal(lipgloss.Top, columns...),
		m.viewSelected(),
	)
}

func (m Model) viewSelected() string {
	inst, ok := m.selected()
	if !ok {
		return ""
	}
	detail := fmt.Sprintf("%s · %s", inst.MechanismDescription, inst.GoalDescription)
	if inst.IsException {
		detail += fmt.Sprintf(" · moved from %s", inst.OriginalDate)
	}
	return mutedStyle.Render(detail)
}

func (m Model) viewGoals() string {
	if len(m.goals) == 0 {
		return docStyle.Render(mutedStyle.Render("No goals yet. Add one with `cadence goal add`."))
	}
	var lines []string
	for i, row := range m.goals {
		line := fmt.Sprintf("%-30s %s  %s", truncate(row.goal.Description, 30), progressBar(row.progress.Percentage, 20), progressSummary(row.progress))
		if row.goal.Completed {
			line += doneStyle.Render("  completed")
		}
		if i == m.goalRow {
			line = selectedStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return docStyle.Render(strings.Join(lines, "\n"))
}

// viewFooter shows one line of progress per goal.
func (m Model) viewFooter() string {
	if m.state != StateWeek || len(m.goals) == 0 {
		return ""
	}
	parts := make([]string, 0, len(m.goals))
	for _, row := range m.goals {
		parts = append(parts, fmt.Sprintf("%s %d%%", truncate(row.goal.Description, 18), row.progress.Percentage))
	}
	return mutedStyle.Render(strings.Join(parts, "  │  "))
}

func (m Model) viewStatus() string {
	var parts []string
	if m.ctrl.LocalOnly() {
		parts = append(parts, warningStyle.Render("⚠ local only"))
	}
	if m.pending > 0 {
		parts = append(parts, mutedStyle.Render(fmt.Sprintf("saving %d…", m.pending)))
	}
	if m.status != "" {
		if m.statusErr {
			parts = append(parts, dangerStyle.Render(m.status))
		} else {
			parts = append(parts, m.status)
		}
	}
	return strings.Join(parts, "  ")
}

func dayLabel(date string) string {
	t, err := utils.ParseDate(date)
	if err != nil {
		return date
	}
	return t.Format("Mon 01/02")
}

func instanceLabel(inst models.ActivityInstance) string {
	mark := "○"
	if inst.IsCompleted {
		mark = "✓"
	}
	if inst.IsException {
		mark += "↷"
	}
	return mark + " " + inst.MechanismDescription
}

func progressBar(pct, width int) string {
	filled := pct * width / 100
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

func progressSummary(p models.Progress) string {
	s := fmt.Sprintf("%3d%% %d/%d streak %d", p.Percentage, p.TotalCompleted, p.TotalExpected, p.CurrentStreak)
	if p.CompletionPredictionDays != nil && *p.CompletionPredictionDays > 0 {
		s += fmt.Sprintf(" ~%dd left", *p.CompletionPredictionDays)
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 1 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
