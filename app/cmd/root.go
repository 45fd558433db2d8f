package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/slimevr/slimevr-launcher/internal/launcher"
)

// runFunc starts a launcher session. Tests replace it.
type runFunc func(ctx context.Context, cfg launcher.Config) error

// Execute is the entry point for the CLI.
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		cancel()
		os.Exit(1)
	}
}

// NewRootCmd wires the cobra tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(runLauncher, newDoctor())
}

func newRootCmd(run runFunc, doc *doctor) *cobra.Command {
	cfg := launcher.DefaultConfig()
	root := &cobra.Command{
		Use:           "slimevr",
		Short:         "Desktop launcher for the SlimeVR server and GUI",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}
	root.PersistentFlags().StringVarP(&cfg.LaunchFromPath, "launch-from-path", "p", "", "Directory containing slimevr.jar")
	root.PersistentFlags().BoolVar(&cfg.Debug, "debug", false, "Log at debug level and enable webview dev tools")

	root.AddCommand(newDoctorCmd(&cfg, doc))
	return root
}

func runLauncher(ctx context.Context, cfg launcher.Config) error {
	l, err := launcher.New(cfg, launcher.Deps{})
	if err != nil {
		return err
	}
	err = l.Run(ctx)
	if errors.Is(err, launcher.ErrSpawn) {
		// The user has already seen the failure in a dialog.
		return nil
	}
	return err
}
