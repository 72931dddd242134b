package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/bz888/blab-feedback/internal/api"
	"github.com/bz888/blab-feedback/internal/chat"
	"github.com/bz888/blab-feedback/internal/config"
	"github.com/bz888/blab-feedback/internal/logger"
	"github.com/bz888/blab-feedback/internal/ui"
	"github.com/spf13/cobra"
)

func NewRootCommand() *cobra.Command {
	cfg := config.Default()

	cmd := &cobra.Command{
		Use:           "blab-feedback",
		Short:         "Terminal chat client with star-rated answers",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Resolve(cmd.Flags()); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	cfg.BindFlags(cmd.Flags())
	return cmd
}

func run(ctx context.Context, cfg config.Config) error {
	view := ui.New(cfg.Dev)

	if err := logger.InitLogger(cfg.Dev, cfg.LogPath, view.DebugConsole()); err != nil {
		return err
	}
	defer logger.Close()

	conn := api.New(cfg.Endpoint)
	defer conn.Close()

	session := chat.NewSession(conn, view)
	view.Bind(session)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go chat.Run(ctx, conn, session, view.Dispatch)

	logger.NewLogger("main").Info("session ", session.ID(), " started against ", cfg.Endpoint)
	return view.Run()
}

func Execute() {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
