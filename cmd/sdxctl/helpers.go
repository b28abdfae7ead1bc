package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/user"

	"github.com/sdx-fabric/sdxctl/pkg/sdx"
)

// errSilent signals a nonzero exit where the failure has already been
// printed in full, so main's error line would only repeat it.
var errSilent = errors.New("")

// emitResult renders a Result envelope. With --json the whole envelope
// is printed; otherwise Data is pretty-printed on success and the error
// goes to stderr on failure. Any non-2xx envelope exits nonzero.
func emitResult(res sdx.Result) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
		if !res.OK() {
			return errSilent
		}
		return nil
	}

	if !res.OK() {
		if res.StatusCode == 0 {
			return errors.New(res.Error)
		}
		return fmt.Errorf("controller returned %d: %s", res.StatusCode, res.Error)
	}

	return printData(res.Data)
}

// printData renders a success payload for humans: strings verbatim
// (html listings and the like), everything else as indented JSON.
func printData(data any) error {
	switch v := data.(type) {
	case nil:
		return nil
	case string:
		fmt.Println(v)
		return nil
	case bool:
		fmt.Println("ok")
		return nil
	default:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

// currentUser returns the invoking username for audit events.
func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "unknown"
}

// endpointSummaries renders "port_id vlan" strings for audit events.
func endpointSummaries(endpoints []sdx.Endpoint) []string {
	out := make([]string, len(endpoints))
	for i, ep := range endpoints {
		out[i] = ep.PortID + " " + ep.VLAN
	}
	return out
}
