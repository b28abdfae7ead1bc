// Sdxctl - SDX L2VPN Provisioning Tool
//
// A CLI for provisioning point-to-point L2VPNs across an SDX
// network exchange:
//   - Port discovery against the controller's available_ports listing
//   - Guided endpoint selection with ambiguity detection
//   - Automatic VLAN resolution from device capability info
//   - Payload preview before submission
//   - Audit logging of all provisioning operations
//
// Typical session:
//
//	sdxctl ports list --filter ampath
//	sdxctl endpoint set first --filter ampath --prefer-untagged
//	sdxctl endpoint set second --port-id urn:sdx:port:sax.br:sw01:50 --vlan 100
//	sdxctl l2vpn preview --name customer-a --notifications noc@example.net
//	sdxctl l2vpn create --name customer-a --notifications noc@example.net
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/sdx-fabric/sdxctl/pkg/audit"
	"github.com/sdx-fabric/sdxctl/pkg/auth"
	"github.com/sdx-fabric/sdxctl/pkg/sdx"
	"github.com/sdx-fabric/sdxctl/pkg/settings"
	"github.com/sdx-fabric/sdxctl/pkg/util"
	"github.com/sdx-fabric/sdxctl/pkg/version"
)

var (
	// Global option flags
	baseURL        string // --url
	timeoutSeconds int    // --timeout
	verbose        bool   // -v
	jsonOutput     bool   // --json

	// Global state
	userSettings *settings.Settings
	client       *sdx.Client
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "sdxctl",
	Short:             "SDX L2VPN Provisioning Tool",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `Sdxctl provisions point-to-point L2VPNs across an SDX network exchange.

Select two endpoints, preview the creation payload, then submit:

  sdxctl endpoint set first --filter <term>
  sdxctl endpoint set second --port-id <urn> [--vlan <id>]
  sdxctl l2vpn create --name <name> --notifications <email>`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Commands that work without a controller connection
		if isOfflineCommand(cmd) {
			return nil
		}

		// Load user settings
		var err error
		userSettings, err = settings.Load()
		if err != nil {
			util.Warnf("Could not load settings: %v", err)
			userSettings = &settings.Settings{}
		}

		// Apply defaults from settings
		if baseURL == "" {
			baseURL = userSettings.GetBaseURL()
		}

		// Set log level: quiet by default, verbose on -v
		if verbose {
			util.SetLogLevel("debug")
		} else {
			util.SetLogLevel("warn")
		}

		timeout := userSettings.GetTimeout()
		if timeoutSeconds > 0 {
			timeout = time.Duration(timeoutSeconds) * time.Second
		}

		client, err = sdx.New(baseURL,
			sdx.WithTimeout(timeout),
			sdx.WithTokenSource(auth.Default(userSettings.TokenFile)),
		)
		if err != nil {
			return err
		}
		if msg := client.AuthError(); msg != "" {
			util.Warnf("No bearer token: %s (run 'sdxctl auth login')", msg)
		}

		// Restore the saved endpoint selection: the set/preview/create
		// workflow spans invocations.
		state, err := loadSession(sessionPath())
		if err != nil {
			util.Warnf("Could not load saved selection: %v", err)
		} else {
			client.RestoreSession(state)
		}

		// Initialize audit logger
		auditLogger, err := audit.NewFileLogger(auditLogPath(), audit.RotationConfig{
			MaxSize:    10 * 1024 * 1024, // 10MB
			MaxBackups: 10,
		})
		if err != nil {
			util.Warnf("Could not initialize audit logging: %v", err)
		} else {
			audit.SetDefaultLogger(auditLogger)
		}

		return nil
	},
	// Failed operations never mutate the session, so checkpointing only
	// after success loses nothing.
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if client == nil {
			return nil
		}
		if err := saveSession(sessionPath(), client.SessionState()); err != nil {
			util.Warnf("Could not save selection: %v", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "", "SDX controller base URL (default from settings or SDX_BASE_URL)")
	rootCmd.PersistentFlags().IntVar(&timeoutSeconds, "timeout", 0, "Request timeout in seconds")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "JSON output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "provision", Title: "Provisioning:"},
		&cobra.Group{ID: "meta", Title: "Configuration & Meta:"},
	)

	for _, cmd := range []*cobra.Command{portsCmd, endpointCmd, l2vpnCmd} {
		cmd.GroupID = "provision"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{authCmd, settingsCmd, auditCmd, versionCmd} {
		cmd.GroupID = "meta"
		rootCmd.AddCommand(cmd)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if version.Version == "dev" {
			fmt.Println("sdxctl dev build (use 'make build' for version info)")
		} else {
			fmt.Printf("sdxctl %s\n", version.Info())
		}
	},
}

// isOfflineCommand checks whether cmd (or any ancestor) runs without a
// controller client.
func isOfflineCommand(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "version", "settings", "auth", "audit":
			return true
		}
	}
	return false
}

func auditLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "sdxctl_audit.log"
	}
	return filepath.Join(home, ".sdxctl", "audit.log")
}
