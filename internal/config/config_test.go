package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/farum-insights/internal/config"
	"github.com/PabloGalante/farum-insights/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, config.ModeLocal, cfg.Mode)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "memory", cfg.StorageBackend)
	assert.Equal(t, "log", cfg.EventSink)
	assert.Equal(t, 5*time.Second, cfg.FlushInterval)

	assert.Equal(t, config.StressThresholds{Moderate: 5, High: 7, Crisis: 9}, cfg.Crisis.StressThresholds)
	assert.Equal(t, 10, cfg.Crisis.RapidNavigationThreshold)
	assert.Equal(t, 10*time.Minute, cfg.Crisis.InactivityPeriod)
	assert.Equal(t, 30*time.Minute, cfg.Crisis.SessionCheckInterval)
	assert.Contains(t, cfg.Crisis.CrisisKeywords, "suicide")
	require.Len(t, cfg.Crisis.EscalationRules, 1)
	assert.Equal(t, domain.SeverityCrisis, cfg.Crisis.EscalationRules[0].Severity)
	assert.True(t, cfg.Crisis.EscalationRules[0].Response.AutomaticTrigger)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FARUM_PORT", "9090")
	t.Setenv("FARUM_CRISIS_RAPID_NAVIGATION_THRESHOLD", "6")
	t.Setenv("FARUM_FLUSH_INTERVAL", "2s")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 6, cfg.Crisis.RapidNavigationThreshold)
	assert.Equal(t, 2*time.Second, cfg.FlushInterval)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "farum.yaml")
	body := `
storage_backend: badger
badger_path: /tmp/farum-test
crisis:
  crisis_keywords: [panic, overwhelmed]
  escalation_rules:
    - condition: crisis-content-seeking
      severity: high
      priority: high
      response:
        type: immediate-support
        message: Support is one tap away.
        automatic_trigger: true
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "badger", cfg.StorageBackend)
	assert.Equal(t, []string{"panic", "overwhelmed"}, cfg.Crisis.CrisisKeywords)
	require.Len(t, cfg.Crisis.EscalationRules, 1)
	rule := cfg.Crisis.EscalationRules[0]
	assert.Equal(t, domain.TriggerCrisisContentSeeking, rule.Condition)
	assert.Equal(t, domain.ResponseImmediateSupport, rule.Response.Type)
	assert.True(t, rule.Response.AutomaticTrigger)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Run("unknown storage backend", func(t *testing.T) {
		t.Setenv("FARUM_STORAGE_BACKEND", "postgres")
		_, err := config.Load("")
		require.Error(t, err)
	})

	t.Run("gcp mode without project", func(t *testing.T) {
		t.Setenv("FARUM_MODE", "gcp")
		_, err := config.Load("")
		require.Error(t, err)
	})

	t.Run("inverted thresholds", func(t *testing.T) {
		t.Setenv("FARUM_CRISIS_STRESS_THRESHOLDS_CRISIS", "6")
		_, err := config.Load("")
		require.Error(t, err)
	})
}
