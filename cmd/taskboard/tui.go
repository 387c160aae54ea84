package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"taskboard/internal/board"
	"taskboard/internal/config"
	"taskboard/internal/tui"
)

func tuiCmd() *cobra.Command {
	var (
		email    string
		password string
		boardID  uint
		logFile  string
	)
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open a board in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || boardID == 0 {
				return errors.New("--email and --board are required")
			}
			if password == "" {
				password = os.Getenv("TASKBOARD_PASSWORD")
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return runTUI(cmd.Context(), cfg, email, password, boardID, logFile)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account e-mail")
	cmd.Flags().StringVar(&password, "password", "", "account password (or TASKBOARD_PASSWORD)")
	cmd.Flags().UintVar(&boardID, "board", 0, "board id to open")
	cmd.Flags().StringVar(&logFile, "log-file", "", "write logs here instead of discarding them")
	return cmd
}

func runTUI(ctx context.Context, cfg config.Config, email, password string, boardID uint, logFile string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	// The terminal belongs to the UI; logs go to a file or nowhere.
	log.SetOutput(io.Discard)
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		log.SetOutput(f)
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	token, err := a.auth.Login(ctx, email, password)
	if err != nil {
		return errors.New("login failed")
	}
	defer func() { _ = a.auth.Logout(context.Background(), token) }()
	who := a.auth.Resolve(ctx, token)
	if who == nil {
		return errors.New("login failed")
	}

	ctrl := board.NewController(board.NewServiceBackend(a.actions, a.reader, who), boardID)
	_, err = tea.NewProgram(tui.New(ctx, ctrl), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
