package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdx-fabric/sdxctl/pkg/cli"
	"github.com/sdx-fabric/sdxctl/pkg/sdx"
)

var endpointCmd = &cobra.Command{
	Use:   "endpoint",
	Short: "Select L2VPN endpoints",
	Long: `Select the two endpoints of an L2VPN.

An endpoint is a port URN plus a VLAN. Either name the port directly
with --port-id, or discover it with --filter/--search — discovery must
match exactly one port, otherwise the candidates are listed so you can
refine the term.

The VLAN is resolved from the port's device info unless --vlan is given.

The selection is saved to ~/.sdxctl/selection.yaml between invocations;
'endpoint clear' removes it.

Examples:
  sdxctl endpoint set first --filter ampath --prefer-untagged
  sdxctl endpoint set second --port-id urn:sdx:port:sax.br:sw01:50 --vlan 100
  sdxctl endpoint show
  sdxctl endpoint clear`,
}

var (
	endpointFilter         string
	endpointSearch         string
	endpointPortID         string
	endpointVLAN           string
	endpointPreferUntagged bool
	endpointLimit          int
	endpointFormat         string
)

var endpointSetCmd = &cobra.Command{
	Use:   "set <first|second>",
	Short: "Resolve and store one endpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res := client.SetEndpoint(cmd.Context(), sdx.SetEndpointRequest{
			Position:       args[0],
			Filter:         endpointFilter,
			Search:         endpointSearch,
			PortID:         endpointPortID,
			VLAN:           endpointVLAN,
			PreferUntagged: endpointPreferUntagged,
		})
		return emitResult(res)
	},
}

var endpointShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current endpoint selection",
	RunE: func(cmd *cobra.Command, args []string) error {
		res := client.SelectedEndpoints()
		if jsonOutput {
			return emitResult(res)
		}

		state, ok := res.Data.(map[string]any)
		if !ok {
			return emitResult(res)
		}

		t := cli.NewTable("SLOT", "PORT ID", "VLAN")
		for _, slot := range []string{"first", "second"} {
			if ep, _ := state[slot].(*sdx.Endpoint); ep != nil {
				t.Row(slot, ep.PortID, ep.VLAN)
			} else {
				t.Row(slot, cli.Dim("(not set)"), "")
			}
		}
		t.Flush()
		return nil
	},
}

var endpointClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the endpoint selection and listing caches",
	RunE: func(cmd *cobra.Command, args []string) error {
		client.ClearSelection()
		fmt.Println("Selection cleared.")
		return nil
	},
}

var endpointListCmd = &cobra.Command{
	Use:   "list <first|second>",
	Short: "List candidate endpoints and cache them for pick",
	Long: `List candidate ports for one endpoint slot.

The second-slot listing adds a "VLANs in Use" column. The rows are
cached so a following 'endpoint pick' can choose one without another
listing round-trip.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format := endpointFormat
		if format == "" {
			format = userSettings.GetListingFormat()
		}
		limit := endpointLimit
		if limit == 0 {
			limit = userSettings.ListingLimit
		}

		var res sdx.Result
		switch args[0] {
		case "first":
			res = client.GetFirstEndpoints(cmd.Context(), endpointSearch, limit, format)
		case "second":
			res = client.GetSecondEndpoints(cmd.Context(), endpointSearch, limit, format)
		default:
			return fmt.Errorf("endpoint slot must be first or second, got %q", args[0])
		}
		return emitResult(res)
	},
}

var endpointPickCmd = &cobra.Command{
	Use:   "pick <first|second>",
	Short: "Pick an endpoint from the cached listing",
	Long: `Pick an endpoint from the rows cached by 'endpoint list'.

With --filter the first matching row is taken; without it the first row
outright. Use 'endpoint set' instead when the match must be unique.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var res sdx.Result
		switch args[0] {
		case "first":
			res = client.SetFirstEndpoint(cmd.Context(), endpointFilter, endpointPreferUntagged)
		case "second":
			res = client.SetSecondEndpoint(cmd.Context(), endpointFilter, endpointPreferUntagged)
		default:
			return fmt.Errorf("endpoint slot must be first or second, got %q", args[0])
		}
		return emitResult(res)
	},
}

func init() {
	endpointSetCmd.Flags().StringVar(&endpointFilter, "filter", "", "Discovery term (must match exactly one port)")
	endpointSetCmd.Flags().StringVar(&endpointSearch, "search", "", "Discovery term (--filter wins when both given)")
	endpointSetCmd.Flags().StringVar(&endpointPortID, "port-id", "", "Exact port URN (skips discovery)")
	endpointSetCmd.Flags().StringVar(&endpointVLAN, "vlan", "", "VLAN to use (skips resolution)")
	endpointSetCmd.Flags().BoolVar(&endpointPreferUntagged, "prefer-untagged", false, "Prefer untagged when resolving the VLAN")

	endpointListCmd.Flags().StringVar(&endpointSearch, "search", "", "Substring search across listing columns")
	endpointListCmd.Flags().IntVar(&endpointLimit, "limit", 0, "Maximum rows to return")
	endpointListCmd.Flags().StringVar(&endpointFormat, "format", "", "Listing format: html or json")

	endpointPickCmd.Flags().StringVar(&endpointFilter, "filter", "", "Take the first cached row matching this term")
	endpointPickCmd.Flags().BoolVar(&endpointPreferUntagged, "prefer-untagged", false, "Prefer untagged when resolving the VLAN")

	endpointCmd.AddCommand(endpointSetCmd)
	endpointCmd.AddCommand(endpointShowCmd)
	endpointCmd.AddCommand(endpointClearCmd)
	endpointCmd.AddCommand(endpointListCmd)
	endpointCmd.AddCommand(endpointPickCmd)
}
