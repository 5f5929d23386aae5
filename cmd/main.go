package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ivr-voice-bridge-service/internal/app"
	"ivr-voice-bridge-service/internal/config"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

const shutdownTimeout = 30 * time.Second

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ivr-voice-bridge",
		Short: "IVR voice bridge that answers recorded caller questions by voice",
		Long: "Receives IVR webhooks, polls the telephone platform for caller recordings, " +
			"transcribes them, generates an answer and uploads it as audio for playback.",
		SilenceUsage: true,
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ivr-voice-bridge %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

func newServeCmd() *cobra.Command {
	var checkOnly bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server and processing pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if checkOnly {
				fmt.Fprintln(cmd.OutOrStdout(), "configuration ok")
				return nil
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().BoolVar(&checkOnly, "check", false, "validate configuration and exit")
	return cmd
}

func serve(ctx context.Context, cfg *config.Configuration) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	if err := application.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return application.Shutdown(shutdownCtx)
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
