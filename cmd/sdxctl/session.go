package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/sdx-fabric/sdxctl/pkg/sdx"
	"github.com/sdx-fabric/sdxctl/pkg/util"
)

// The endpoint selection outlives a single invocation: set first, set
// second, preview, and create all run as separate processes. The client
// keeps the session in memory, so the command layer checkpoints it to
// ~/.sdxctl/selection.yaml around every controller-facing command.

type sessionEndpoint struct {
	PortID string `yaml:"port_id"`
	VLAN   string `yaml:"vlan"`
}

type sessionFile struct {
	First      *sessionEndpoint `yaml:"first,omitempty"`
	Second     *sessionEndpoint `yaml:"second,omitempty"`
	FirstRows  []map[string]any `yaml:"first_rows,omitempty"`
	SecondRows []map[string]any `yaml:"second_rows,omitempty"`
}

func sessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "sdxctl_selection.yaml"
	}
	return filepath.Join(home, ".sdxctl", "selection.yaml")
}

// loadSession reads a saved session. A missing file yields an empty
// session, not an error.
func loadSession(path string) (sdx.SessionState, error) {
	var state sdx.SessionState

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return state, nil
		}
		return state, err
	}

	var f sessionFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return state, fmt.Errorf("%w: %s: %v", util.ErrInvalidConfig, path, err)
	}

	if f.First != nil {
		state.First = &sdx.Endpoint{PortID: f.First.PortID, VLAN: f.First.VLAN}
	}
	if f.Second != nil {
		state.Second = &sdx.Endpoint{PortID: f.Second.PortID, VLAN: f.Second.VLAN}
	}
	state.FirstRows = toSessionRows(f.FirstRows)
	state.SecondRows = toSessionRows(f.SecondRows)
	return state, nil
}

// saveSession writes the session. An empty session removes the file so
// a cleared selection leaves nothing behind.
func saveSession(path string, state sdx.SessionState) error {
	if state.First == nil && state.Second == nil &&
		len(state.FirstRows) == 0 && len(state.SecondRows) == 0 {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}

	var f sessionFile
	if state.First != nil {
		f.First = &sessionEndpoint{PortID: state.First.PortID, VLAN: state.First.VLAN}
	}
	if state.Second != nil {
		f.Second = &sessionEndpoint{PortID: state.Second.PortID, VLAN: state.Second.VLAN}
	}
	f.FirstRows = fromSessionRows(state.FirstRows)
	f.SecondRows = fromSessionRows(state.SecondRows)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(&f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func toSessionRows(rows []map[string]any) []sdx.Row {
	if len(rows) == 0 {
		return nil
	}
	out := make([]sdx.Row, len(rows))
	for i, row := range rows {
		out[i] = sdx.Row(row)
	}
	return out
}

func fromSessionRows(rows []sdx.Row) []map[string]any {
	if len(rows) == 0 {
		return nil
	}
	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		out[i] = map[string]any(row)
	}
	return out
}
