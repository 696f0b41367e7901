// Package settings holds the gameplay settings value object pushed to clients
// in a SettingsSnapshot, and its YAML file loader.
package settings

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Settings are the server-authoritative gameplay toggles. Clients receive a
// snapshot on join and whenever the server re-syncs after a reload.
type Settings struct {
	// PvPEnabled allows participants to damage each other.
	PvPEnabled bool `yaml:"pvp_enabled" json:"pvpEnabled"`
	// BodyDamageEnabled makes body contact deal damage when PvP is on.
	BodyDamageEnabled bool `yaml:"body_damage_enabled" json:"bodyDamageEnabled"`
	// DisplayNamesEnabled shows name tags above remote participants.
	DisplayNamesEnabled bool `yaml:"display_names_enabled" json:"displayNamesEnabled"`
	// AlwaysShowMapIcons shares map icons regardless of client map items.
	AlwaysShowMapIcons bool `yaml:"always_show_map_icons" json:"alwaysShowMapIcons"`
	// CompassIconsOnly restricts shared map icons to participants carrying a compass.
	CompassIconsOnly bool `yaml:"compass_icons_only" json:"compassIconsOnly"`
	// SyncIntervalMs is the continuous-update send rate clients should use.
	SyncIntervalMs int `yaml:"sync_interval_ms" json:"syncIntervalMs"`
}

// Default returns the settings used when no file is configured.
func Default() Settings {
	return Settings{
		PvPEnabled:          false,
		BodyDamageEnabled:   false,
		DisplayNamesEnabled: true,
		AlwaysShowMapIcons:  false,
		CompassIconsOnly:    true,
		SyncIntervalMs:      50,
	}
}

// Validate checks all settings invariants.
//
// Postcondition: Returns nil if the settings are valid, or an error
// describing all violations.
func (s Settings) Validate() error {
	var errs []string

	if s.SyncIntervalMs < 10 || s.SyncIntervalMs > 1000 {
		errs = append(errs, fmt.Sprintf("sync_interval_ms must be 10-1000, got %d", s.SyncIntervalMs))
	}
	if s.BodyDamageEnabled && !s.PvPEnabled {
		errs = append(errs, "body_damage_enabled requires pvp_enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("settings validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// LoadFromBytes parses and validates settings from YAML bytes. Fields absent
// from the document keep their default values.
//
// Postcondition: Returns validated Settings or a non-nil error.
func LoadFromBytes(data []byte) (Settings, error) {
	s := Default()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parsing settings YAML: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// LoadFromFile reads and validates a settings YAML file. An empty path yields
// the defaults.
//
// Postcondition: Returns validated Settings or a non-nil error.
func LoadFromFile(path string) (Settings, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("reading settings file %s: %w", path, err)
	}
	return LoadFromBytes(data)
}
