// Package settings manages persistent user settings for the sdxctl CLI.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sdx-fabric/sdxctl/pkg/util"
)

// Settings holds persistent user preferences. Environment variables and
// command-line flags override anything set here.
type Settings struct {
	// BaseURL is the SDX controller URL used when --url is not given
	BaseURL string `yaml:"base_url,omitempty"`

	// TokenFile overrides the default bearer-token file location
	TokenFile string `yaml:"token_file,omitempty"`

	// TimeoutSeconds bounds each request to the controller
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"`

	// ListingFormat is the default format for port listings ("html" or "json")
	ListingFormat string `yaml:"listing_format,omitempty"`

	// ListingLimit is the default row cap for port listings
	ListingLimit int `yaml:"listing_limit,omitempty"`
}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "sdxctl_settings.yaml"
	}
	return filepath.Join(home, ".sdxctl", "settings.yaml")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path. A missing file yields
// empty settings, not an error.
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", util.ErrInvalidConfig, path, err)
	}

	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path
func (s *Settings) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetBaseURL returns the configured base URL, falling back to the
// SDX_BASE_URL environment variable.
func (s *Settings) GetBaseURL() string {
	if s.BaseURL != "" {
		return s.BaseURL
	}
	return os.Getenv("SDX_BASE_URL")
}

// GetTimeout returns the configured request timeout, or 6s by default.
func (s *Settings) GetTimeout() time.Duration {
	if s.TimeoutSeconds > 0 {
		return time.Duration(s.TimeoutSeconds) * time.Second
	}
	return 6 * time.Second
}

// GetListingFormat returns the default listing format, "html" when unset.
func (s *Settings) GetListingFormat() string {
	if s.ListingFormat != "" {
		return s.ListingFormat
	}
	return "html"
}

// Set assigns a named setting from its string form. Unknown names and
// unparseable values are rejected.
func (s *Settings) Set(name, value string) error {
	switch name {
	case "base_url":
		s.BaseURL = value
	case "token_file":
		s.TokenFile = value
	case "timeout_seconds":
		var seconds int
		if _, err := fmt.Sscanf(value, "%d", &seconds); err != nil || seconds <= 0 {
			return fmt.Errorf("%w: timeout_seconds must be a positive integer, got %q", util.ErrInvalidConfig, value)
		}
		s.TimeoutSeconds = seconds
	case "listing_format":
		if value != "html" && value != "json" {
			return fmt.Errorf("%w: listing_format must be html or json, got %q", util.ErrInvalidConfig, value)
		}
		s.ListingFormat = value
	case "listing_limit":
		var limit int
		if _, err := fmt.Sscanf(value, "%d", &limit); err != nil || limit <= 0 {
			return fmt.Errorf("%w: listing_limit must be a positive integer, got %q", util.ErrInvalidConfig, value)
		}
		s.ListingLimit = limit
	default:
		return fmt.Errorf("%w: unknown setting %q", util.ErrInvalidConfig, name)
	}
	return nil
}

// Clear resets all settings to their zero values.
func (s *Settings) Clear() {
	*s = Settings{}
}
