// Package auth acquires the bearer credential used to talk to the SDX
// controller. Sources are probed in order; the client records a failure
// instead of refusing to construct, so a token can still be injected at
// runtime.
package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sdx-fabric/sdxctl/pkg/util"
)

// EnvVar is the environment variable probed for a bearer token.
const EnvVar = "SDX_TOKEN"

// Source supplies a bearer credential or an error explaining why none
// is available.
type Source interface {
	Token() (string, error)
}

// EnvSource reads the token from the SDX_TOKEN environment variable.
type EnvSource struct{}

func (EnvSource) Token() (string, error) {
	token := strings.TrimSpace(os.Getenv(EnvVar))
	if token == "" {
		return "", fmt.Errorf("%s not set: %w", EnvVar, util.ErrNoCredential)
	}
	return token, nil
}

// FileSource reads the token from a file. The file may hold the raw
// token, or a JSON object carrying it under "id_token" or "token"
// (the shape written by fabric token tooling).
type FileSource struct {
	Path string
}

func (s FileSource) Token() (string, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("token file %s not found: %w", s.Path, util.ErrNoCredential)
		}
		return "", fmt.Errorf("reading token file %s: %w", s.Path, err)
	}

	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return "", fmt.Errorf("token file %s is empty: %w", s.Path, util.ErrNoCredential)
	}

	if strings.HasPrefix(trimmed, "{") {
		var wrapped struct {
			IDToken string `json:"id_token"`
			Token   string `json:"token"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return "", fmt.Errorf("parsing token file %s: %w", s.Path, err)
		}
		if wrapped.IDToken != "" {
			return wrapped.IDToken, nil
		}
		if wrapped.Token != "" {
			return wrapped.Token, nil
		}
		return "", fmt.Errorf("token file %s has no id_token or token field: %w", s.Path, util.ErrNoCredential)
	}

	return trimmed, nil
}

// Chain probes sources in order and returns the first token found.
// When every source fails, the errors are joined so the caller can
// report why each one came up empty.
type Chain []Source

func (c Chain) Token() (string, error) {
	var reasons []string
	for _, src := range c {
		token, err := src.Token()
		if err == nil && token != "" {
			return token, nil
		}
		if err != nil {
			reasons = append(reasons, err.Error())
		}
	}
	if len(reasons) == 0 {
		return "", util.ErrNoCredential
	}
	return "", fmt.Errorf("%w: %s", util.ErrNoCredential, strings.Join(reasons, "; "))
}

// DefaultTokenPath returns the default token file location.
func DefaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "sdx_token"
	}
	return filepath.Join(home, ".sdxctl", "token")
}

// Default is the standard acquisition order: environment variable,
// then the token file at path (DefaultTokenPath when path is empty).
func Default(path string) Source {
	if path == "" {
		path = DefaultTokenPath()
	}
	return Chain{EnvSource{}, FileSource{Path: path}}
}

// Save writes a token to path with owner-only permissions, creating the
// directory if needed.
func Save(path, token string) error {
	if path == "" {
		path = DefaultTokenPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}
	return os.WriteFile(path, []byte(token+"\n"), 0600)
}
