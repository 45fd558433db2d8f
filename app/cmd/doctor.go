package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/slimevr/slimevr-launcher/internal/javaprobe"
	"github.com/slimevr/slimevr-launcher/internal/journal"
	"github.com/slimevr/slimevr-launcher/internal/launcher"
	"github.com/slimevr/slimevr-launcher/internal/launchpath"
	"github.com/slimevr/slimevr-launcher/internal/webview"
	"github.com/slimevr/slimevr-launcher/internal/windowstate"
)

var (
	colorPrimary = lipgloss.Color("39")
	colorSuccess = lipgloss.Color("42")
	colorWarning = lipgloss.Color("220")
	colorDim     = lipgloss.Color("241")

	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	headerStyle = cellStyle.Bold(true).Foreground(colorPrimary)
	okStyle     = cellStyle.Foreground(colorSuccess)
	warnStyle   = cellStyle.Foreground(colorWarning)
)

// doctor gathers what the launcher would see on this machine.
type doctor struct {
	Resolver  launcher.PathResolver
	Probe     func(ctx context.Context) []javaprobe.Installation
	Available func() bool
}

func newDoctor() *doctor {
	return &doctor{
		Resolver:  launchpath.NewResolver(),
		Probe:     javaprobe.Probe,
		Available: webview.Available,
	}
}

type check struct {
	Name    string
	Value   string
	Healthy bool
}

func newDoctorCmd(cfg *launcher.Config, doc *doctor) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Report the server, Java and webview the launcher would use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := *cfg
			if err := c.Normalize(); err != nil {
				return err
			}
			checks := doc.run(cmd.Context(), c)
			fmt.Fprintln(cmd.OutOrStdout(), renderChecks(checks))
			return nil
		},
	}
}

func (d *doctor) run(ctx context.Context, cfg launcher.Config) []check {
	var checks []check
	path, found := d.Resolver.Resolve(launchpath.Options{Override: cfg.LaunchFromPath})
	if found {
		checks = append(checks, check{"Server", path, true})
	} else {
		checks = append(checks, check{"Server", "not found", false})
	}

	var bundled string
	if found {
		bundled, _ = d.Resolver.BundledJava(path)
	}
	if bundled != "" {
		checks = append(checks, check{"Bundled Java", bundled, true})
	} else {
		checks = append(checks, check{"Bundled Java", "none", false})
	}

	installs := javaprobe.Filter(d.Probe(ctx), javaprobe.MinimumVersion)
	for _, inst := range installs {
		checks = append(checks, check{"Java " + strconv.Itoa(inst.Version), inst.Path, true})
	}
	if selected, err := javaprobe.Select(bundled, installs); err != nil {
		checks = append(checks, check{"Selected Java", fmt.Sprintf("none (need %d+)", javaprobe.MinimumVersion), false})
	} else {
		checks = append(checks, check{"Selected Java", selected, true})
	}

	if d.Available() {
		checks = append(checks, check{"Webview", "available", true})
	} else {
		checks = append(checks, check{"Webview", "missing", false})
	}

	checks = append(checks,
		check{"Config dir", cfg.ConfigDir, true},
		check{"Log dir", cfg.LogDir, true},
	)

	if state, old, err := windowstate.Load(filepath.Join(cfg.WindowStateDir(), windowstate.FileName)); err != nil {
		checks = append(checks, check{"Window state", err.Error(), false})
	} else if old {
		checks = append(checks, check{"Window state", "defaults", true})
	} else {
		checks = append(checks, check{"Window state", fmt.Sprintf("%dx%d", state.Width, state.Height), true})
	}

	checks = append(checks, lastRun(cfg.JournalPath()))
	return checks
}

func lastRun(path string) check {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return check{"Last run", "never", true}
	}
	store, err := journal.Open(path)
	if err != nil {
		return check{"Last run", err.Error(), false}
	}
	defer store.Close()
	runs, err := store.Recent(1)
	if err != nil {
		return check{"Last run", err.Error(), false}
	}
	if len(runs) == 0 {
		return check{"Last run", "never", true}
	}
	run := runs[0]
	started := run.StartedAt.Local().Format("2006-01-02 15:04:05")
	switch {
	case run.EndedAt == nil:
		return check{"Last run", started + ", still running or killed", false}
	case run.ExitCode == nil:
		return check{"Last run", started + ", ended by signal", false}
	default:
		return check{"Last run", fmt.Sprintf("%s, exit code %d", started, *run.ExitCode), *run.ExitCode == 0}
	}
}

func renderChecks(checks []check) string {
	rows := make([][]string, 0, len(checks))
	for _, c := range checks {
		rows = append(rows, []string{c.Name, c.Value})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Check", "Result").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 1 && checks[row].Healthy:
				return okStyle
			case col == 1:
				return warnStyle
			default:
				return cellStyle
			}
		}).
		String()
}
