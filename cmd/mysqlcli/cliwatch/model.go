package cliwatch

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mickamy/mysqlwire/highlight"
)

// Model is the Bubble Tea model for the watch view: a scrolling list
// of completed exchanges, newest last, following the bottom unless the
// user has scrolled up. It renders only this one view -- inspecting a
// plan or highlighting SQL already exist standalone in this module's
// explain and highlight packages.
type Model struct {
	rows   <-chan Row
	events []Row
	cursor int
	follow bool
	width  int
	height int
}

// New returns a Model reading from rows until the program quits.
func New(rows <-chan Row) Model {
	return Model{rows: rows, follow: true}
}

type rowMsg Row

func waitRow(rows <-chan Row) tea.Cmd {
	return func() tea.Msg {
		row, ok := <-rows
		if !ok {
			return nil
		}
		return rowMsg(row)
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return waitRow(m.rows)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case rowMsg:
		m.events = append(m.events, Row(msg))
		if m.follow {
			m.cursor = max(len(m.events)-1, 0)
		}
		return m, waitRow(m.rows)

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			m.follow = false
			m.cursor = max(m.cursor-1, 0)
		case "down", "j":
			if m.cursor >= len(m.events)-1 {
				m.follow = true
			}
			m.cursor = min(m.cursor+1, max(len(m.events)-1, 0))
		case "G":
			m.follow = true
			m.cursor = max(len(m.events)-1, 0)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 {
		return ""
	}
	if len(m.events) == 0 {
		return "Waiting for queries...\n\n  q: quit"
	}

	innerWidth := max(m.width-4, 20)
	border := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Width(innerWidth)

	title := fmt.Sprintf(" mysqlcli -watch (%d exchanges) ", len(m.events))

	dataRows := max(m.height-4, 1)
	start := 0
	if len(m.events) > dataRows {
		start = max(m.cursor-dataRows/2, 0)
		if start+dataRows > len(m.events) {
			start = len(m.events) - dataRows
		}
	}
	end := min(start+dataRows, len(m.events))

	var lines []string
	for i := start; i < end; i++ {
		lines = append(lines, m.renderRow(i, innerWidth))
	}

	body := strings.Join(lines, "\n")
	footer := "  q: quit  j/k: scroll  G: follow latest"
	return lipgloss.JoinVertical(lipgloss.Left,
		border.Render(title+"\n"+body),
		footer,
	)
}

func (m Model) renderRow(i int, width int) string {
	row := m.events[i]

	status := ""
	switch {
	case row.Errored:
		status = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Render("E")
	case row.NPlus1:
		status = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Render("N+1")
	}

	marker := "  "
	if i == m.cursor {
		marker = "▶ "
	}

	queryWidth := width - 28
	sql := padRight(highlight.SQL(truncate(row.SQL, queryWidth)), queryWidth)
	line := marker + sql + " " + padRight(formatDuration(row.Duration), 8) + " " + padRight(status, 4)
	if row.Errored {
		line += " " + row.Detail
	}
	return line
}
