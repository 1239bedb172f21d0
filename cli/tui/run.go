package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
)

// Run runs the application until the user quits or ctx is done.
func Run(ctx context.Context, m *Model) error {
	defer m.Close()

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithMouseCellMotion(),
		tea.WithReportFocus(),
	)

	// Set the program reference for async message sending
	m.SetProgram(p)

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errors.Wrap(err, "running tui")
	}
	return nil
}
