// Package util provides the shared logger, error sentinels, and string
// helpers for sdxctl.
package util

import "errors"

// Sentinel errors shared across packages. Operation outcomes travel in
// the sdx.Result envelope; these cover the construction-time and
// configuration paths that still use plain Go errors.
var (
	ErrNoCredential  = errors.New("no bearer credential available")
	ErrInvalidConfig = errors.New("invalid configuration")
)
