package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, "environment: test\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 10*time.Minute, c.Scheduler.Interval)
	assert.Equal(t, "Asia/Kolkata", c.Scheduler.Timezone)
	assert.Equal(t, []string{"NSE:NIFTY50-INDEX"}, c.Scheduler.Symbols)
	assert.Equal(t, 30, c.Calibration.MinSamples)
	assert.Equal(t, 40, c.Broker.StrikeCount)
	assert.Equal(t, 12, c.Quality.MaxStaleMinutes)
	assert.Equal(t, 7, c.Retention.Days)
	assert.InDelta(t, 0.35, c.Backtest.SlippagePct, 1e-9)
	assert.True(t, c.Features.Guardrails)
	assert.False(t, c.Features.TimingV2)
	assert.Equal(t, "info", c.Log.Level)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	_, err := Load(writeConfig(t, "strike:\n  strategy: random\n"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "scheduler:\n  session_start: \"9am\"\n"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "kafka:\n  enabled: true\n"))
	require.Error(t, err)
}

func TestApplyEnvOverrides(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	env := map[string]string{
		"ENABLE_ALL_ENHANCEMENTS": "True",
		"ENABLE_GUARDRAILS":       "False",
		"CALIBRATION_MIN_SAMPLES": "50",
		"SYMBOLS":                 "NSE:NIFTY50-INDEX, NSE:NIFTYBANK-INDEX",
		"TIMEZONE":                "UTC",
	}
	require.NoError(t, c.applyEnv(func(k string) string { return env[k] }))

	assert.Equal(t, 50, c.Calibration.MinSamples)
	assert.Equal(t, []string{"NSE:NIFTY50-INDEX", "NSE:NIFTYBANK-INDEX"}, c.Scheduler.Symbols)
	assert.Equal(t, "UTC", c.Scheduler.Timezone)
	assert.False(t, c.Features.Guardrails)

	eff := c.Features.Effective()
	assert.True(t, eff.Guardrails)
	assert.True(t, eff.RegimeV2)
	assert.True(t, eff.Calibration)
}

func TestApplyEnvRejectsBadNumbers(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	err = c.applyEnv(func(k string) string {
		if k == "DATA_RETENTION_DAYS" {
			return "seven"
		}
		return ""
	})
	require.Error(t, err)
}
