package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/smazurov/chromenode/internal/locator"
	"github.com/smazurov/chromenode/internal/logging"
)

// CreateLocateCmd creates the locate command.
func CreateLocateCmd() *cobra.Command {
	var executable string
	var lsregister string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "locate",
		Short: "List browser installations in launch order",
		Long: `Discovers installed browsers through the launch services registry, scores them ` +
			`and prints them highest weight first. This is the order the supervisor tries them in.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loc := locator.New(locator.Options{
				Registry:       &locator.LSRegister{Path: lsregister},
				ExecutablePath: executable,
				Logger:         logging.GetLogger("locator"),
			})

			ranked, err := loc.Locate(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(ranked.All())
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "WEIGHT\tPATH")
			for _, c := range ranked.All() {
				fmt.Fprintf(tw, "%d\t%s\n", c.Weight, c.Path)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&executable, "executable", "e", "", "Use this executable instead of discovery")
	cmd.Flags().StringVar(&lsregister, "lsregister", locator.DefaultLSRegisterPath, "Path to the lsregister tool")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print candidates as JSON")
	return cmd
}
