package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sadopc/wellness/internal/tui"
)

// runDashboard launches the interactive dashboard.
func runDashboard(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	ctrl := newController(client)
	exp := newExporter(client, cfg.Export.Dir)

	logger.Info("starting dashboard", zap.String("gateway", cfg.API.BaseURL))

	app := tui.NewApp(ctrl, client, exp, logger.Named("tui"))
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(commandContext(cmd)))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
