package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/chromenode/internal/devtools"
	"github.com/smazurov/chromenode/internal/launcher"
	"github.com/smazurov/chromenode/internal/logging"
	"github.com/smazurov/chromenode/internal/shutdown"
	"github.com/smazurov/chromenode/internal/supervisor"
)

// exit ends the process after a signal-driven teardown.
var exit = os.Exit

// CreateTargetsCmd creates the targets command.
func CreateTargetsCmd() *cobra.Command {
	var cfg supervisor.Config
	var modeName string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "targets",
		Short: "Launch a browser and list its debugging targets",
		Long: `Launches a supervised browser, waits for its debugging port, lists the page ` +
			`targets and prints the title of the most recent one. The browser is killed on exit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode, err := launcher.ParseMode(modeName)
			if err != nil {
				return err
			}
			logger := logging.GetLogger("targets")

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			sup, err := supervisor.New(mode.Apply(cfg), supervisor.Options{
				Logger: logging.GetLogger("supervisor"),
			})
			if err != nil {
				return err
			}

			// Both hooks exist before the launch so that a signal during the
			// readiness wait still tears the browser down.
			hooks := shutdown.New(logger)
			hooks.Register("launch", func(context.Context) error {
				cancel()
				return nil
			})
			hooks.Register("browser", sup.Kill)
			stop := hooks.OnSignal(context.Background(), exit)
			defer stop()
			defer func() {
				if err := hooks.Run(context.Background()); err != nil {
					logger.Warn("Teardown failed", "error", err)
				}
			}()

			if err := sup.Launch(ctx); err != nil {
				return fmt.Errorf("launch browser: %w", err)
			}

			client := devtools.New(sup.Config().Host, sup.Port(), logging.GetLogger("devtools"))
			ver, err := client.Version(ctx)
			if err != nil {
				return err
			}

			targets, err := client.Targets(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (protocol %s) on %s\n\n", ver.Product, ver.Protocol, client.URL())
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTYPE\tURL")
			for _, t := range targets {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", t.ID, t.Type, t.URL)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if len(targets) == 0 {
				return nil
			}
			last := targets[len(targets)-1]
			title, err := client.Title(ctx, last.ID)
			if err != nil {
				return fmt.Errorf("attach %s: %w", last.ID, err)
			}
			fmt.Fprintf(out, "\nattached to %s: %q\n", last.ID, title)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&cfg.Port, "port", "p", supervisor.DefaultPort, "Remote debugging port")
	flags.StringVar(&cfg.URL, "url", supervisor.DefaultURL, "Page to open")
	flags.StringVarP(&cfg.ExecutablePath, "executable", "e", "", "Use this executable instead of discovery")
	flags.StringVar(&cfg.WorkspaceBase, "workspace-base", "", "Directory for browser workspaces (default: system temp dir)")
	flags.StringVar(&modeName, "mode", string(launcher.ModeHeadless), "Launch mode (default, quiet, headless)")
	flags.DurationVar(&timeout, "timeout", time.Minute, "Give up after this long")
	return cmd
}
