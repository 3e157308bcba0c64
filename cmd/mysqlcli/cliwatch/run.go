package cliwatch

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Run blocks rendering rows until the user quits (q/ctrl+c).
func Run(rows <-chan Row) error {
	p := tea.NewProgram(New(rows), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
