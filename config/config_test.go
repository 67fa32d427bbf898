package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/config"
	"github.com/warp/payroll-engine/recon"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
tolerance: "12"
register_rate: "15"
reference_date: "2025-09-30"
window:
  from: "2024-11"
  to: "2025-09"
policy_table: /etc/payroll/policies.yaml
server:
  port: 9090
  db: /var/lib/payroll/audit.db
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Tolerance.Equal(recon.MustDecimal("12")))
	assert.True(t, cfg.RegisterRate.Equal(recon.MustDecimal("15")))
	assert.Equal(t, time.Date(2025, time.September, 30, 0, 0, 0, 0, time.UTC), cfg.ReferenceDate)
	assert.Len(t, cfg.Window, 11)
	assert.Equal(t, recon.MonthKey("2024-11"), cfg.Window[0])
	assert.Equal(t, recon.MonthKey("2025-09"), cfg.Window[10])
	assert.Equal(t, "/etc/payroll/policies.yaml", cfg.PolicyTablePath)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "/var/lib/payroll/audit.db", cfg.DBPath)
}

func TestLoad_ServerDefaults(t *testing.T) {
	path := writeConfig(t, `
tolerance: "12"
register_rate: "15"
window:
  from: "2025-01"
  to: "2025-03"
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "audit.db", cfg.DBPath)
	assert.Equal(t, "policies.yaml", cfg.PolicyTablePath)
	assert.False(t, cfg.ReferenceDate.IsZero(), "reference date defaults to now")
}

func TestLoad_FatalConstantsHaveNoDefaults(t *testing.T) {
	tests := []struct {
		name    string
		content string
		sentinel error
	}{
		{
			"missing tolerance",
			"register_rate: \"15\"\nwindow:\n  from: \"2025-01\"\n  to: \"2025-03\"\n",
			recon.ErrToleranceMissing,
		},
		{
			"negative tolerance",
			"tolerance: \"-3\"\nregister_rate: \"15\"\nwindow:\n  from: \"2025-01\"\n  to: \"2025-03\"\n",
			recon.ErrToleranceMissing,
		},
		{
			"missing register rate",
			"tolerance: \"12\"\nwindow:\n  from: \"2025-01\"\n  to: \"2025-03\"\n",
			recon.ErrPercentageMissing,
		},
		{
			"inverted window",
			"tolerance: \"12\"\nregister_rate: \"15\"\nwindow:\n  from: \"2025-03\"\n  to: \"2025-01\"\n",
			recon.ErrEmptyWindow,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tc.content))
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.sentinel)
			assert.True(t, recon.IsConfigError(err))
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
