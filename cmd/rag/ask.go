package main

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"ragqa/internal/tui"
)

func askCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ask",
		Short: "Ask questions interactively in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			// Logs would corrupt the TUI, so they go to a file instead.
			logPath := filepath.Join(os.TempDir(), "ragqa.log")
			logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer logFile.Close()

			a, err := newApp(cfg, logFile)
			if err != nil {
				return err
			}
			a.log.Info("starting interactive session", "log", logPath)
			_, err = tea.NewProgram(tui.New(cmd.Context(), a.pipeline), tea.WithAltScreen()).Run()
			return err
		},
	}
}
