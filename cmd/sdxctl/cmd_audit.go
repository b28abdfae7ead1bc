package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sdx-fabric/sdxctl/pkg/audit"
	"github.com/sdx-fabric/sdxctl/pkg/cli"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "View the provisioning audit trail",
	Long: `View the audit trail of provisioning operations.

Every create, update, and delete submitted to the controller is logged
with the user, the service, the envelope status it ended with, and how
long the round trip took.

Examples:
  sdxctl audit list
  sdxctl audit list --operation l2vpn.create --last 24h
  sdxctl audit list --failures`,
}

var (
	auditUser      string
	auditOperation string
	auditService   string
	auditLast      string
	auditLimit     int
	auditFailures  bool
)

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit events",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := audit.Filter{
			User:        auditUser,
			Operation:   auditOperation,
			ServiceID:   auditService,
			Limit:       auditLimit,
			FailureOnly: auditFailures,
		}

		if auditLast != "" {
			duration, err := time.ParseDuration(auditLast)
			if err != nil {
				return fmt.Errorf("invalid duration: %s", auditLast)
			}
			filter.StartTime = time.Now().Add(-duration)
		}

		logger, err := audit.NewFileLogger(auditLogPath(), audit.RotationConfig{})
		if err != nil {
			return fmt.Errorf("opening audit log: %w", err)
		}
		defer logger.Close()

		events, err := logger.Query(filter)
		if err != nil {
			return fmt.Errorf("querying audit log: %w", err)
		}

		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(events)
		}

		if len(events) == 0 {
			fmt.Println("No audit events found")
			return nil
		}

		t := cli.NewTable("TIMESTAMP", "USER", "OPERATION", "SERVICE", "STATUS")
		for _, event := range events {
			service := event.ServiceID
			if service == "" {
				service = event.Name
			}

			label := fmt.Sprintf("%d", event.StatusCode)
			if event.Error != "" {
				label += " " + truncate(event.Error, 40)
			}

			t.Row(
				event.Timestamp.Format("2006-01-02 15:04:05"),
				event.User,
				event.Operation,
				service,
				cli.ColorStatus(event.StatusCode, label),
			)
		}
		t.Flush()
		return nil
	},
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max]) + "..."
}

func init() {
	auditListCmd.Flags().StringVar(&auditUser, "user", "", "Filter by user")
	auditListCmd.Flags().StringVar(&auditOperation, "operation", "", "Filter by operation (e.g. l2vpn.create)")
	auditListCmd.Flags().StringVar(&auditService, "service", "", "Filter by service id")
	auditListCmd.Flags().StringVar(&auditLast, "last", "", "Show events from last duration (e.g. 24h)")
	auditListCmd.Flags().IntVar(&auditLimit, "limit", 100, "Maximum events to show")
	auditListCmd.Flags().BoolVar(&auditFailures, "failures", false, "Show only failed operations")

	auditCmd.AddCommand(auditListCmd)
}
