package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/sdx-fabric/sdxctl/pkg/sdx"
	"github.com/sdx-fabric/sdxctl/pkg/util"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "Browse available ports on the exchange",
}

var (
	portsSearch string
	portsFilter string
	portsLimit  int
	portsFields string
	portsFormat string
)

var portsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available ports",
	Long: `List available ports from the controller.

The default html format is the controller's human-readable view and is
printed verbatim. Use --format json (or --json for the full envelope)
for machine-readable rows.

Examples:
  sdxctl ports list
  sdxctl ports list --filter ampath.net --limit 20
  sdxctl ports list --format json --fields "Domain,Device,Port ID"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		res := client.GetAvailablePorts(cmd.Context(), sdxListPortsOptions())
		return emitResult(res)
	},
}

// sdxListPortsOptions merges the list flags with settings defaults.
// The fields list is normalized so "--fields 'Domain, Device'" reaches
// the controller without stray whitespace or empty entries.
func sdxListPortsOptions() sdx.ListPortsOptions {
	opts := sdx.ListPortsOptions{
		Search: portsSearch,
		Filter: portsFilter,
		Limit:  portsLimit,
		Fields: strings.Join(util.SplitCommaSeparated(portsFields), ","),
		Format: portsFormat,
	}
	if opts.Format == "" {
		opts.Format = userSettings.GetListingFormat()
	}
	if opts.Limit == 0 {
		opts.Limit = userSettings.ListingLimit
	}
	return opts
}

func init() {
	portsListCmd.Flags().StringVar(&portsSearch, "search", "", "Substring search across listing columns")
	portsListCmd.Flags().StringVar(&portsFilter, "filter", "", "Filter term (wins over --search)")
	portsListCmd.Flags().IntVar(&portsLimit, "limit", 0, "Maximum rows to return")
	portsListCmd.Flags().StringVar(&portsFields, "fields", "", "Comma-separated columns to request")
	portsListCmd.Flags().StringVar(&portsFormat, "format", "", "Listing format: html or json")

	portsCmd.AddCommand(portsListCmd)
}
