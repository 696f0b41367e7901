package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadFromBytes(t *testing.T) {
	data := []byte(`
pvp_enabled: true
body_damage_enabled: true
display_names_enabled: false
sync_interval_ms: 100
`)
	s, err := LoadFromBytes(data)
	require.NoError(t, err)
	assert.True(t, s.PvPEnabled)
	assert.True(t, s.BodyDamageEnabled)
	assert.False(t, s.DisplayNamesEnabled)
	assert.Equal(t, 100, s.SyncIntervalMs)
	// Untouched fields keep defaults.
	assert.True(t, s.CompassIconsOnly)
}

func TestLoadFromBytes_InvalidYAML(t *testing.T) {
	_, err := LoadFromBytes([]byte("pvp_enabled: [broken"))
	assert.Error(t, err)
}

func TestLoadFromBytes_BodyDamageRequiresPvP(t *testing.T) {
	_, err := LoadFromBytes([]byte("body_damage_enabled: true"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires pvp_enabled")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pvp_enabled: true\n"), 0o644))

	s, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.True(t, s.PvPEnabled)
}

func TestLoadFromFile_EmptyPathYieldsDefaults(t *testing.T) {
	s, err := LoadFromFile("")
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate_SyncIntervalRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := Default()
		s.SyncIntervalMs = rapid.IntRange(10, 1000).Draw(t, "interval")
		assert.NoError(t, s.Validate())
	})
}

func TestValidate_SyncIntervalOutOfRange(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := Default()
		s.SyncIntervalMs = rapid.OneOf(
			rapid.IntRange(-100, 9),
			rapid.IntRange(1001, 10000),
		).Draw(t, "interval")
		assert.Error(t, s.Validate())
	})
}
