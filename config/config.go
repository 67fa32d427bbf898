/*
Package config loads run configuration and the override policy table.

PURPOSE:
  The engine applies business policy but never decides it: tolerance,
  the register percentage, the rolling window, and per-employee override
  lists are all supplied configuration. This package loads them from a
  config file (viper) and a declarative YAML policy table, and validates
  the parts whose absence is fatal for a run.

FILES:
  config.yaml   - run constants (tolerance, register rate, window,
                  reference date, server settings)
  policies.yaml - the override policy table (see policy_table.go)

FATAL VS DEFAULT:
  Tolerance and register percentage have no sane defaults: a run without
  them fails before any output (configuration error). Server settings
  default sensibly for local use.

SEE ALSO:
  - policy_table.go: YAML policy table into recon.RegistryConfig
  - pipeline: Consumes the loaded Config
*/
package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/warp/payroll-engine/recon"
)

// Config is the validated run configuration.
type Config struct {
	// Tolerance is the inclusive match threshold for comparison rows.
	Tolerance decimal.Decimal

	// RegisterRate is the fixed global register percentage for the
	// reimbursement variant.
	RegisterRate decimal.Decimal

	// ReferenceDate anchors tenure computation.
	ReferenceDate time.Time

	// Window is the ordered rolling window of eligible months.
	Window []recon.MonthKey

	// PolicyTablePath points at the YAML override policy table.
	PolicyTablePath string

	// Server settings.
	Port   int
	DBPath string
}

// Load reads and validates the config file at path. Missing tolerance or
// register rate is a configuration error, fatal before any output.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.db", "audit.db")
	v.SetDefault("policy_table", "policies.yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		PolicyTablePath: v.GetString("policy_table"),
		Port:            v.GetInt("server.port"),
		DBPath:          v.GetString("server.db"),
	}

	if !v.IsSet("tolerance") {
		return nil, fmt.Errorf("tolerance: %w", recon.ErrToleranceMissing)
	}
	tolerance, err := decimal.NewFromString(v.GetString("tolerance"))
	if err != nil || tolerance.IsNegative() {
		return nil, fmt.Errorf("tolerance %q: %w", v.GetString("tolerance"), recon.ErrToleranceMissing)
	}
	cfg.Tolerance = tolerance

	if !v.IsSet("register_rate") {
		return nil, fmt.Errorf("register_rate: %w", recon.ErrPercentageMissing)
	}
	rate, err := decimal.NewFromString(v.GetString("register_rate"))
	if err != nil || !rate.IsPositive() {
		return nil, fmt.Errorf("register_rate %q: %w", v.GetString("register_rate"), recon.ErrPercentageMissing)
	}
	cfg.RegisterRate = rate

	from := recon.MonthKey(v.GetString("window.from"))
	to := recon.MonthKey(v.GetString("window.to"))
	cfg.Window = recon.MonthRange(from, to)
	if len(cfg.Window) == 0 {
		return nil, fmt.Errorf("window [%s, %s]: %w", from, to, recon.ErrEmptyWindow)
	}

	if raw := v.GetString("reference_date"); raw != "" {
		ref, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, fmt.Errorf("reference_date %q: %w", raw, err)
		}
		cfg.ReferenceDate = ref
	} else {
		cfg.ReferenceDate = time.Now().UTC()
	}

	return cfg, nil
}
