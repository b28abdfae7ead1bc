package main

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/sdx-fabric/sdxctl/pkg/audit"
	"github.com/sdx-fabric/sdxctl/pkg/sdx"
	"github.com/sdx-fabric/sdxctl/pkg/util"
)

var l2vpnCmd = &cobra.Command{
	Use:   "l2vpn",
	Short: "Preview, create, and manage L2VPN services",
	Long: `Preview, create, and manage L2VPN services.

Creation works from the current endpoint selection: set both endpoints
first, preview the payload, then submit it. A failed creation keeps the
selection so the command can be retried.

Examples:
  sdxctl l2vpn preview --name customer-a --notifications noc@example.net
  sdxctl l2vpn create --name customer-a --notifications noc@example.net
  sdxctl l2vpn list
  sdxctl l2vpn show <service-id>
  sdxctl l2vpn update <service-id> name=customer-b
  sdxctl l2vpn delete <service-id>`,
}

var (
	l2vpnName          string
	l2vpnNotifications string
	l2vpnFormat        string
)

var l2vpnPreviewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show the creation payload without submitting it",
	RunE: func(cmd *cobra.Command, args []string) error {
		return emitResult(client.PreviewL2VPN(l2vpnName, l2vpnNotifications))
	},
}

var l2vpnCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an L2VPN from the current selection",
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		res := client.CreateL2VPN(cmd.Context(), l2vpnName, l2vpnNotifications)

		event := audit.NewEvent(currentUser(), "l2vpn.create").
			WithName(l2vpnName).
			WithOutcome(res.StatusCode, res.Error).
			WithDuration(time.Since(start))
		if preview := client.PreviewL2VPN(l2vpnName, l2vpnNotifications); preview.OK() {
			if payload, ok := preview.Data.(sdx.L2VPNPayload); ok {
				event.WithEndpoints(endpointSummaries(payload.Endpoints)...)
			}
		}
		if err := audit.Log(event); err != nil {
			util.Warnf("Could not write audit event: %v", err)
		}

		return emitResult(res)
	},
}

var l2vpnListCmd = &cobra.Command{
	Use:   "list",
	Short: "List L2VPN services",
	RunE: func(cmd *cobra.Command, args []string) error {
		query := url.Values{}
		if l2vpnFormat != "" {
			query.Set("format", l2vpnFormat)
		}
		return emitResult(client.ListL2VPNs(cmd.Context(), query))
	},
}

var l2vpnShowCmd = &cobra.Command{
	Use:   "show <service-id>",
	Short: "Show one L2VPN service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return emitResult(client.GetL2VPN(cmd.Context(), args[0]))
	},
}

var l2vpnUpdateCmd = &cobra.Command{
	Use:   "update <service-id> <field>=<value>...",
	Short: "Update fields of an L2VPN service",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		serviceID := args[0]
		fields := make(map[string]any, len(args)-1)
		for _, arg := range args[1:] {
			key, value, err := util.ParseKeyValue(arg)
			if err != nil {
				return fmt.Errorf("field arguments take the form key=value: %w", err)
			}
			fields[key] = value
		}

		start := time.Now()
		res := client.UpdateL2VPN(cmd.Context(), serviceID, fields)

		event := audit.NewEvent(currentUser(), "l2vpn.update").
			WithServiceID(serviceID).
			WithOutcome(res.StatusCode, res.Error).
			WithDuration(time.Since(start))
		if err := audit.Log(event); err != nil {
			util.Warnf("Could not write audit event: %v", err)
		}

		return emitResult(res)
	},
}

var l2vpnDeleteCmd = &cobra.Command{
	Use:   "delete <service-id>",
	Short: "Delete an L2VPN service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start := time.Now()
		res := client.DeleteL2VPN(cmd.Context(), args[0])

		event := audit.NewEvent(currentUser(), "l2vpn.delete").
			WithServiceID(args[0]).
			WithOutcome(res.StatusCode, res.Error).
			WithDuration(time.Since(start))
		if err := audit.Log(event); err != nil {
			util.Warnf("Could not write audit event: %v", err)
		}

		return emitResult(res)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{l2vpnPreviewCmd, l2vpnCreateCmd} {
		cmd.Flags().StringVar(&l2vpnName, "name", "", "Service name")
		cmd.Flags().StringVar(&l2vpnNotifications, "notifications", "", "Notification email for the service")
		cmd.MarkFlagRequired("name")
		cmd.MarkFlagRequired("notifications")
	}

	l2vpnListCmd.Flags().StringVar(&l2vpnFormat, "format", "", "Listing format (json default)")

	l2vpnCmd.AddCommand(l2vpnPreviewCmd)
	l2vpnCmd.AddCommand(l2vpnCreateCmd)
	l2vpnCmd.AddCommand(l2vpnListCmd)
	l2vpnCmd.AddCommand(l2vpnShowCmd)
	l2vpnCmd.AddCommand(l2vpnUpdateCmd)
	l2vpnCmd.AddCommand(l2vpnDeleteCmd)
}
