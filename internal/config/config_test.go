package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainload/internal/analysis"
	"trainload/internal/store"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 50.0, cfg.Athlete.RestingHR)
	assert.Equal(t, 70.0, cfg.Athlete.WeightKg)
	assert.Equal(t, 42.0, cfg.Load.ChronicDays)
	assert.Equal(t, 7.0, cfg.Load.AcuteDays)
	assert.Equal(t, 0.95, cfg.Peaks.Coverage)
	assert.Equal(t, "90d", cfg.Peaks.Lookback)
	assert.True(t, cfg.Wellness.SimulateWhenMissing)
	assert.Equal(t, "km", cfg.Display.DistanceUnit)
	assert.Equal(t, "min/km", cfg.Display.PaceUnit)

	// Strava config should be empty by default
	assert.Empty(t, cfg.Strava.ClientID)
	assert.Empty(t, cfg.Strava.ClientSecret)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, ErrNoConfig)
}

func TestLoadFile_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"strava": {"client_id": "12345", "client_secret": "shh"},
		"athlete": {
			"resting_hr": 45,
			"sports": {"run": {"lthr": 172, "max_hr": 192}, "Bike": {"lthr": 160}}
		}
	}`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "12345", cfg.Strava.ClientID)
	assert.Equal(t, 45.0, cfg.Athlete.RestingHR)
	assert.Equal(t, 70.0, cfg.Athlete.WeightKg, "missing keys fall back to defaults")
	assert.Equal(t, 8089, cfg.Strava.CallbackPort)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Address)

	settings := cfg.AthleteSettings()
	assert.Equal(t, 172.0, settings.For(store.SportRun).LTHR)
	assert.Equal(t, 192.0, settings.For(store.SportRun).MaxHR)
	assert.Equal(t, 160.0, settings.For(store.SportBike).LTHR)
	assert.Zero(t, settings.For(store.SportSwim).LTHR, "unset sports are substituted downstream")
}

func TestLoadFile_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `{"server": {"address": ":9000"}}`)
	t.Setenv("TRAINLOAD_SERVER_ADDRESS", ":9999")
	t.Setenv("TRAINLOAD_LOG_LEVEL", "debug")
	t.Setenv("TRAINLOAD_WELLNESS_SIMULATE_WHEN_MISSING", "false")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Address)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
	assert.False(t, cfg.Wellness.SimulateWhenMissing)
}

func TestLoadFile_InvalidJSON(t *testing.T) {
	path := writeConfig(t, `{"strava": `)
	_, err := LoadFile(path)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoConfig)
}

func TestSaveAndCreateExample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	require.NoError(t, CreateExampleFile(path))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "YOUR_CLIENT_ID", cfg.Strava.ClientID)
	assert.Equal(t, 165.0, cfg.AthleteSettings().For(store.SportRun).LTHR)
	assert.Error(t, cfg.ValidateStrava())

	// An existing file is left alone
	cfg.Strava.ClientID = "real"
	require.NoError(t, SaveFile(cfg, path))
	require.NoError(t, CreateExampleFile(path))

	again, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "real", again.Strava.ClientID)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		errContains string
	}{
		{
			name:   "defaults",
			mutate: func(*Config) {},
		},
		{
			name:        "unknown distance unit",
			mutate:      func(c *Config) { c.Display.DistanceUnit = "yards" },
			errContains: "distance_unit",
		},
		{
			name:        "unknown pace unit",
			mutate:      func(c *Config) { c.Display.PaceUnit = "min/yd" },
			errContains: "pace_unit",
		},
		{
			name:        "bad lookback",
			mutate:      func(c *Config) { c.Peaks.Lookback = "fortnight" },
			errContains: "peaks.lookback",
		},
		{
			name:        "bad log level",
			mutate:      func(c *Config) { c.Log.Level = "loud" },
			errContains: "log.level",
		},
		{
			name: "unknown sport",
			mutate: func(c *Config) {
				c.Athlete.Sports = map[string]SportConfig{"curling": {LTHR: 150}}
			},
			errContains: "curling",
		},
		{
			name: "zero lthr is substituted, not rejected",
			mutate: func(c *Config) {
				c.Athlete.Sports = map[string]SportConfig{"run": {LTHR: 0, MaxHR: -1}}
				c.Load.ChronicDays = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestValidateStrava(t *testing.T) {
	tests := []struct {
		name        string
		strava      StravaConfig
		errContains string
	}{
		{"valid", StravaConfig{ClientID: "12345", ClientSecret: "abc123secret"}, ""},
		{"empty client ID", StravaConfig{ClientSecret: "abc123secret"}, "client_id"},
		{"placeholder client ID", StravaConfig{ClientID: "YOUR_CLIENT_ID", ClientSecret: "abc123secret"}, "client_id"},
		{"empty client secret", StravaConfig{ClientID: "12345"}, "client_secret"},
		{"placeholder client secret", StravaConfig{ClientID: "12345", ClientSecret: "YOUR_CLIENT_SECRET"}, "client_secret"},
		{"both placeholders", StravaConfig{ClientID: "YOUR_CLIENT_ID", ClientSecret: "YOUR_CLIENT_SECRET"}, "client_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Strava: tt.strava}
			err := cfg.ValidateStrava()
			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestDerivedValues(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, analysis.Lookback90Days, cfg.PeakLookback())
	assert.Equal(t, analysis.DefaultLoadConstants(), cfg.LoadConstants())

	cfg.Peaks.Lookback = "all"
	assert.Equal(t, analysis.LookbackAll, cfg.PeakLookback())
	cfg.Peaks.Lookback = "garbage"
	assert.Equal(t, analysis.Lookback90Days, cfg.PeakLookback())

	cfg.Log.Level = ""
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())

	cfg.Database.Path = "/tmp/x.db"
	path, err := cfg.DatabasePath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", path)
}
