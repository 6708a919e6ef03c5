package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"trainload/internal/analysis"
	"trainload/internal/store"
)

// EnvPrefix is prepended to every environment override, e.g. TRAINLOAD_SERVER_ADDRESS
const EnvPrefix = "TRAINLOAD"

// Config represents the application configuration
type Config struct {
	Strava    StravaConfig    `mapstructure:"strava" json:"strava"`
	Athlete   AthleteConfig   `mapstructure:"athlete" json:"athlete"`
	Load      LoadConfig      `mapstructure:"load" json:"load"`
	Peaks     PeaksConfig     `mapstructure:"peaks" json:"peaks"`
	Readiness ReadinessConfig `mapstructure:"readiness" json:"readiness"`
	Wellness  WellnessConfig  `mapstructure:"wellness" json:"wellness"`
	Display   DisplayConfig   `mapstructure:"display" json:"display"`
	Server    ServerConfig    `mapstructure:"server" json:"server"`
	Database  DatabaseConfig  `mapstructure:"database" json:"database"`
	Log       LogConfig       `mapstructure:"log" json:"log"`
}

// StravaConfig holds Strava API credentials
type StravaConfig struct {
	ClientID     string `mapstructure:"client_id" json:"client_id"`
	ClientSecret string `mapstructure:"client_secret" json:"client_secret"`
	CallbackPort int    `mapstructure:"callback_port" json:"callback_port"`
}

// AthleteConfig holds athlete-specific settings. Sports is keyed by sport
// class in lower case ("run", "bike", ...).
type AthleteConfig struct {
	RestingHR float64                `mapstructure:"resting_hr" json:"resting_hr"`
	WeightKg  float64                `mapstructure:"weight_kg" json:"weight_kg"`
	Sports    map[string]SportConfig `mapstructure:"sports" json:"sports,omitempty"`
}

// SportConfig holds the heart rate anchors for one sport
type SportConfig struct {
	LTHR  float64   `mapstructure:"lthr" json:"lthr"`
	MaxHR float64   `mapstructure:"max_hr" json:"max_hr"`
	Zones []float64 `mapstructure:"zones" json:"zones,omitempty"`
}

// LoadConfig holds the load model time constants
type LoadConfig struct {
	ChronicDays      float64 `mapstructure:"chronic_days" json:"chronic_days"`
	AcuteDays        float64 `mapstructure:"acute_days" json:"acute_days"`
	MonotonySentinel float64 `mapstructure:"monotony_sentinel" json:"monotony_sentinel"`
}

// PeaksConfig holds peak curve settings
type PeaksConfig struct {
	Coverage float64 `mapstructure:"coverage" json:"coverage"`
	Lookback string  `mapstructure:"lookback" json:"lookback"`
}

// ReadinessConfig holds readiness baseline settings
type ReadinessConfig struct {
	BaselineDays int `mapstructure:"baseline_days" json:"baseline_days"`
}

// WellnessConfig controls the simulated wellness fallback
type WellnessConfig struct {
	SimulateWhenMissing bool `mapstructure:"simulate_when_missing" json:"simulate_when_missing"`
}

// DisplayConfig holds display preferences
type DisplayConfig struct {
	DistanceUnit string `mapstructure:"distance_unit" json:"distance_unit"`
	PaceUnit     string `mapstructure:"pace_unit" json:"pace_unit"`
}

// ServerConfig holds the HTTP API listen address
type ServerConfig struct {
	Address string `mapstructure:"address" json:"address"`
}

// DatabaseConfig holds the SQLite location. An empty path uses ~/.trainload/data.db.
type DatabaseConfig struct {
	Path string `mapstructure:"path" json:"path"`
}

// LogConfig holds logging preferences
type LogConfig struct {
	Level string `mapstructure:"level" json:"level"`
}

// ErrNoConfig is returned when the config file doesn't exist
var ErrNoConfig = errors.New("config file not found")

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Strava: StravaConfig{
			CallbackPort: 8089,
		},
		Athlete: AthleteConfig{
			RestingHR: analysis.DefaultRestingHR,
			WeightKg:  analysis.DefaultWeightKg,
		},
		Load: LoadConfig{
			ChronicDays:      42,
			AcuteDays:        7,
			MonotonySentinel: analysis.DefaultMonotonySentinel,
		},
		Peaks: PeaksConfig{
			Coverage: analysis.DefaultCoverage,
			Lookback: "90d",
		},
		Readiness: ReadinessConfig{
			BaselineDays: analysis.BaselineDays,
		},
		Wellness: WellnessConfig{
			SimulateWhenMissing: true,
		},
		Display: DisplayConfig{
			DistanceUnit: "km",
			PaceUnit:     "min/km",
		},
		Server: ServerConfig{
			Address: "127.0.0.1:8080",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// setDefaults registers every key so environment overrides apply even when
// the file omits them
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("strava.client_id", d.Strava.ClientID)
	v.SetDefault("strava.client_secret", d.Strava.ClientSecret)
	v.SetDefault("strava.callback_port", d.Strava.CallbackPort)
	v.SetDefault("athlete.resting_hr", d.Athlete.RestingHR)
	v.SetDefault("athlete.weight_kg", d.Athlete.WeightKg)
	v.SetDefault("load.chronic_days", d.Load.ChronicDays)
	v.SetDefault("load.acute_days", d.Load.AcuteDays)
	v.SetDefault("load.monotony_sentinel", d.Load.MonotonySentinel)
	v.SetDefault("peaks.coverage", d.Peaks.Coverage)
	v.SetDefault("peaks.lookback", d.Peaks.Lookback)
	v.SetDefault("readiness.baseline_days", d.Readiness.BaselineDays)
	v.SetDefault("wellness.simulate_when_missing", d.Wellness.SimulateWhenMissing)
	v.SetDefault("display.distance_unit", d.Display.DistanceUnit)
	v.SetDefault("display.pace_unit", d.Display.PaceUnit)
	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("log.level", d.Log.Level)
}

// Load reads the configuration from ~/.trainload/config.json
func Load() (*Config, error) {
	path, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads the configuration at path with TRAINLOAD_* environment overrides
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, ErrNoConfig
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return &cfg, nil
}

// Save writes the configuration to ~/.trainload/config.json
func Save(cfg *Config) error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}
	return SaveFile(cfg, path)
}

// SaveFile writes the configuration to path
func SaveFile(cfg *Config, path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CreateExample creates an example config file if none exists
func CreateExample() error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}
	return CreateExampleFile(path)
}

// CreateExampleFile writes an example config to path unless a file is already there
func CreateExampleFile(path string) error {
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return nil // Config exists, don't overwrite
	}

	example := DefaultConfig()
	example.Strava.ClientID = "YOUR_CLIENT_ID"
	example.Strava.ClientSecret = "YOUR_CLIENT_SECRET"
	example.Athlete.Sports = map[string]SportConfig{
		"run":  {LTHR: 165, MaxHR: 185},
		"bike": {LTHR: 158, MaxHR: 180},
	}

	return SaveFile(&example, path)
}

// Validate checks the fields that cannot be substituted at use.
// Heart rate anchors and time constants are not checked here: the analysis
// layer replaces invalid values with defaults and reports it.
func (c *Config) Validate() error {
	// Validate display units
	if c.Display.DistanceUnit != "" && c.Display.DistanceUnit != "km" && c.Display.DistanceUnit != "mi" {
		return fmt.Errorf("display.distance_unit must be \"km\" or \"mi\", got %q", c.Display.DistanceUnit)
	}
	if c.Display.PaceUnit != "" && c.Display.PaceUnit != "min/km" && c.Display.PaceUnit != "min/mi" {
		return fmt.Errorf("display.pace_unit must be \"min/km\" or \"min/mi\", got %q", c.Display.PaceUnit)
	}

	if c.Peaks.Lookback != "" {
		if _, err := analysis.ParseLookback(c.Peaks.Lookback); err != nil {
			return fmt.Errorf("peaks.lookback: %w", err)
		}
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}

	for name := range c.Athlete.Sports {
		if _, ok := sportByName(name); !ok {
			return fmt.Errorf("athlete.sports: unknown sport %q", name)
		}
	}

	return nil
}

// ValidateStrava checks the provider credentials needed to sync
func (c *Config) ValidateStrava() error {
	if c.Strava.ClientID == "" || c.Strava.ClientID == "YOUR_CLIENT_ID" {
		return errors.New("strava.client_id is required - get it from https://www.strava.com/settings/api")
	}
	if c.Strava.ClientSecret == "" || c.Strava.ClientSecret == "YOUR_CLIENT_SECRET" {
		return errors.New("strava.client_secret is required - get it from https://www.strava.com/settings/api")
	}
	return nil
}

// AthleteSettings converts the athlete section into the settings every
// analysis call takes. Version is left at 0 for the store to assign.
func (c *Config) AthleteSettings() store.AthleteSettings {
	settings := store.AthleteSettings{
		Sports:    make(map[store.Sport]store.SportSettings, len(c.Athlete.Sports)),
		WeightKg:  c.Athlete.WeightKg,
		RestingHR: c.Athlete.RestingHR,
	}
	for name, sc := range c.Athlete.Sports {
		sport, ok := sportByName(name)
		if !ok {
			continue
		}
		ss := store.SportSettings{LTHR: sc.LTHR, MaxHR: sc.MaxHR}
		copy(ss.Zones[:], sc.Zones)
		settings.Sports[sport] = ss
	}
	return settings
}

// LoadConstants returns the configured load model time constants as given.
// Callers resolve them so substitutions can be reported.
func (c *Config) LoadConstants() analysis.LoadConstants {
	return analysis.LoadConstants{
		ChronicDays: c.Load.ChronicDays,
		AcuteDays:   c.Load.AcuteDays,
	}
}

// PeakLookback returns the configured default peak lookback, 90 days when invalid
func (c *Config) PeakLookback() analysis.Lookback {
	lb, err := analysis.ParseLookback(c.Peaks.Lookback)
	if err != nil {
		return analysis.Lookback90Days
	}
	return lb
}

// LogLevel returns the slog level for log.level, info when unset
func (c *Config) LogLevel() slog.Level {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log.level must be debug, info, warn or error, got %q", s)
}

// sportByName matches a config key against the sport classes, ignoring case
func sportByName(name string) (store.Sport, bool) {
	for _, s := range store.Sports {
		if strings.EqualFold(string(s), name) {
			return s, true
		}
	}
	return "", false
}

// DatabasePath returns the configured SQLite path or the default location
func (c *Config) DatabasePath() (string, error) {
	if c.Database.Path != "" {
		return c.Database.Path, nil
	}
	return store.DefaultPath()
}

// getConfigPath returns the path to the config file
func getConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".trainload"), nil
}

// ConfigPath returns the default config file location
func ConfigPath() (string, error) {
	return getConfigPath()
}
