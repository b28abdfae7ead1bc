package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sdx-fabric/sdxctl/pkg/auth"
	"github.com/sdx-fabric/sdxctl/pkg/cli"
	"github.com/sdx-fabric/sdxctl/pkg/settings"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the controller bearer token",
	Long: `Manage the bearer token used to talk to the controller.

Tokens are looked up from the SDX_TOKEN environment variable first,
then the token file (~/.sdxctl/token unless token_file is set).

Examples:
  sdxctl auth login
  sdxctl auth status`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store a bearer token",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := readToken()
		if err != nil {
			return err
		}
		if token == "" {
			return fmt.Errorf("no token entered")
		}

		if err := auth.Save(tokenFilePath(), token); err != nil {
			return fmt.Errorf("saving token: %w", err)
		}
		fmt.Printf("Token saved to %s\n", tokenFilePath())
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show where a bearer token would come from",
	RunE: func(cmd *cobra.Command, args []string) error {
		t := cli.NewTable("SOURCE", "STATUS")

		if _, err := (auth.EnvSource{}).Token(); err == nil {
			t.Row(auth.EnvVar, cli.Green("set"))
		} else {
			t.Row(auth.EnvVar, cli.Dim("not set"))
		}

		path := tokenFilePath()
		if _, err := (auth.FileSource{Path: path}).Token(); err == nil {
			t.Row(path, cli.Green("readable"))
		} else {
			t.Row(path, cli.Dim("not available"))
		}

		t.Flush()
		return nil
	},
}

// readToken prompts for the token without echo when stdin is a
// terminal, and falls back to a plain line read when it is not (so the
// token can be piped in).
func readToken() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "Bearer token: ")
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading token: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading token: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// tokenFilePath resolves the token file location from settings, not
// the client, since auth commands run without a controller connection.
func tokenFilePath() string {
	s, err := settings.Load()
	if err == nil && s.TokenFile != "" {
		return s.TokenFile
	}
	return auth.DefaultTokenPath()
}

func init() {
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authStatusCmd)
}
