package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/PabloGalante/farum-insights/internal/domain"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

const envPrefix = "FARUM"

type Config struct {
	Mode     Mode   `mapstructure:"mode" validate:"oneof=local gcp"`
	Port     string `mapstructure:"port" validate:"required"`
	LogLevel string `mapstructure:"log_level"`

	GCPProjectID string `mapstructure:"gcp_project"`

	StorageBackend string `mapstructure:"storage_backend" validate:"oneof=memory firestore badger"` // "memory", "firestore" or "badger"
	BadgerPath     string `mapstructure:"badger_path"`

	EventSink      string        `mapstructure:"event_sink" validate:"oneof=log influx"`
	Influx         InfluxConfig  `mapstructure:"influx"`
	FlushInterval  time.Duration `mapstructure:"flush_interval" validate:"gt=0"`
	MetricsEnabled bool          `mapstructure:"metrics_enabled"`

	// ExperimentsFile optionally points at a YAML catalog loaded at startup.
	ExperimentsFile string `mapstructure:"experiments_file"`

	Crisis CrisisConfig `mapstructure:"crisis"`
}

type InfluxConfig struct {
	URL    string `mapstructure:"url"`
	Token  string `mapstructure:"token"`
	Org    string `mapstructure:"org"`
	Bucket string `mapstructure:"bucket"`
}

// StressThresholds are the numeric (1-10) cut points for stress severity.
type StressThresholds struct {
	Moderate int `mapstructure:"moderate" validate:"gt=0"`
	High     int `mapstructure:"high" validate:"gtfield=Moderate"`
	Crisis   int `mapstructure:"crisis" validate:"gtfield=High"`
}

// CrisisConfig drives the stress/crisis detector.
type CrisisConfig struct {
	StressThresholds StressThresholds `mapstructure:"stress_thresholds"`

	// RapidNavigationThreshold is the number of journey points within one
	// minute that counts as rapid navigation.
	RapidNavigationThreshold int      `mapstructure:"rapid_navigation_threshold" validate:"gt=0"`
	CrisisKeywords           []string `mapstructure:"crisis_keywords"`

	// SessionCheckInterval is how often idle sessions are reaped.
	SessionCheckInterval time.Duration `mapstructure:"session_check_interval" validate:"gt=0"`
	// InactivityPeriod is the idle gap that counts as an abandonment pattern.
	InactivityPeriod time.Duration `mapstructure:"inactivity_period" validate:"gt=0"`

	EscalationRules []domain.EscalationRule `mapstructure:"escalation_rules" validate:"dive"`
}

// DefaultCrisisConfig returns the documented detector defaults.
func DefaultCrisisConfig() CrisisConfig {
	return CrisisConfig{
		StressThresholds:         StressThresholds{Moderate: 5, High: 7, Crisis: 9},
		RapidNavigationThreshold: 10,
		CrisisKeywords:           []string{"help", "crisis", "emergency", "suicide", "harm", "desperate"},
		SessionCheckInterval:     30 * time.Minute,
		InactivityPeriod:         10 * time.Minute,
		EscalationRules:          DefaultEscalationRules(),
	}
}

func DefaultEscalationRules() []domain.EscalationRule {
	return []domain.EscalationRule{
		{
			Condition: domain.TriggerCrisisLevelStress,
			Severity:  domain.SeverityCrisis,
			Response: domain.CrisisResponse{
				Type:             domain.ResponseEmergencyContact,
				Message:          "We notice you may be in distress. Immediate support is available.",
				AutomaticTrigger: true,
				FollowUpRequired: true,
			},
			Priority: "critical",
		},
	}
}

func setDefaults(v *viper.Viper) {
	crisis := DefaultCrisisConfig()

	v.SetDefault("mode", string(ModeLocal))
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("gcp_project", "")
	v.SetDefault("storage_backend", "memory")
	v.SetDefault("badger_path", "./data/sessions")
	v.SetDefault("event_sink", "log")
	v.SetDefault("influx.url", "http://localhost:8086")
	v.SetDefault("influx.token", "")
	v.SetDefault("influx.org", "farum")
	v.SetDefault("influx.bucket", "wellbeing-events")
	v.SetDefault("flush_interval", 5*time.Second)
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("experiments_file", "")

	v.SetDefault("crisis.stress_thresholds.moderate", crisis.StressThresholds.Moderate)
	v.SetDefault("crisis.stress_thresholds.high", crisis.StressThresholds.High)
	v.SetDefault("crisis.stress_thresholds.crisis", crisis.StressThresholds.Crisis)
	v.SetDefault("crisis.rapid_navigation_threshold", crisis.RapidNavigationThreshold)
	v.SetDefault("crisis.crisis_keywords", crisis.CrisisKeywords)
	v.SetDefault("crisis.session_check_interval", crisis.SessionCheckInterval)
	v.SetDefault("crisis.inactivity_period", crisis.InactivityPeriod)
}

// Load reads defaults, the optional config file and FARUM_* env vars, then
// validates the result.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if len(cfg.Crisis.EscalationRules) == 0 {
		cfg.Crisis.EscalationRules = DefaultEscalationRules()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks field constraints and cross-field requirements.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Minimal validation in GCP mode
	if c.Mode == ModeGCP && c.GCPProjectID == "" {
		return errors.New("invalid config: FARUM_GCP_PROJECT must be set in gcp mode")
	}
	if c.StorageBackend == "firestore" && c.GCPProjectID == "" {
		return errors.New("invalid config: FARUM_GCP_PROJECT is required for firestore storage")
	}
	if c.EventSink == "influx" && c.Influx.URL == "" {
		return errors.New("invalid config: influx.url is required for the influx event sink")
	}
	return nil
}
