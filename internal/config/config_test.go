package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		DailyLimit:     20,
		WeeklyLimit:    80,
		RequestDelay:   DurationRange{Min: 30 * time.Second, Max: 90 * time.Second},
		BreakEveryN:    5,
		BreakDuration:  DurationRange{Min: 2 * time.Minute, Max: 5 * time.Minute},
		ConfirmTimeout: 5 * time.Second,
		TargetsFile:    "targets.json",
		LedgerBackend:  "sqlite",
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("Validate() error on valid config: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero daily limit", func(c *Config) { c.DailyLimit = 0 }},
		{"negative weekly limit", func(c *Config) { c.WeeklyLimit = -1 }},
		{"inverted delay range", func(c *Config) { c.RequestDelay = DurationRange{Min: time.Minute, Max: time.Second} }},
		{"negative delay", func(c *Config) { c.RequestDelay = DurationRange{Min: -time.Second, Max: time.Second} }},
		{"inverted break range", func(c *Config) { c.BreakDuration = DurationRange{Min: time.Hour, Max: time.Minute} }},
		{"negative break every", func(c *Config) { c.BreakEveryN = -1 }},
		{"zero confirm timeout", func(c *Config) { c.ConfirmTimeout = 0 }},
		{"unknown ledger backend", func(c *Config) { c.LedgerBackend = "postgres" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() accepted an invalid config")
			}
		})
	}
}

func TestDurationRangeValid(t *testing.T) {
	tests := []struct {
		name string
		r    DurationRange
		want bool
	}{
		{"zero range", DurationRange{}, true},
		{"point range", DurationRange{Min: time.Second, Max: time.Second}, true},
		{"ordered", DurationRange{Min: time.Second, Max: time.Minute}, true},
		{"inverted", DurationRange{Min: time.Minute, Max: time.Second}, false},
		{"negative min", DurationRange{Min: -time.Second, Max: time.Second}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OUTREACH_TARGETS_FILE", "targets.json")

	cfg := Load()

	if cfg.DailyLimit != 20 || cfg.WeeklyLimit != 80 {
		t.Errorf("quota defaults = %d/%d, want 20/80", cfg.DailyLimit, cfg.WeeklyLimit)
	}
	if cfg.RequestDelay.Min != 30*time.Second || cfg.RequestDelay.Max != 90*time.Second {
		t.Errorf("delay defaults = %+v, want 30s-90s", cfg.RequestDelay)
	}
	if cfg.BreakEveryN != 5 {
		t.Errorf("break every = %d, want 5", cfg.BreakEveryN)
	}
	if cfg.BreakDuration.Min != 2*time.Minute || cfg.BreakDuration.Max != 5*time.Minute {
		t.Errorf("break defaults = %+v, want 2m-5m", cfg.BreakDuration)
	}
	if cfg.ConfirmTimeout != 5*time.Second {
		t.Errorf("confirm timeout = %v, want 5s", cfg.ConfirmTimeout)
	}
	if cfg.LedgerBackend != "sqlite" {
		t.Errorf("ledger backend = %q, want sqlite", cfg.LedgerBackend)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("OUTREACH_TARGETS_FILE", "batch.csv")
	t.Setenv("OUTREACH_DAILY_LIMIT", "5")
	t.Setenv("OUTREACH_DELAY_MIN", "1s")
	t.Setenv("OUTREACH_DELAY_MAX", "2s")
	t.Setenv("OUTREACH_LEDGER_BACKEND", "memory")

	cfg := Load()

	if cfg.TargetsFile != "batch.csv" {
		t.Errorf("targets file = %q", cfg.TargetsFile)
	}
	if cfg.DailyLimit != 5 {
		t.Errorf("daily limit = %d, want 5", cfg.DailyLimit)
	}
	if cfg.RequestDelay.Min != time.Second || cfg.RequestDelay.Max != 2*time.Second {
		t.Errorf("delay range = %+v", cfg.RequestDelay)
	}
	if cfg.LedgerBackend != "memory" {
		t.Errorf("ledger backend = %q, want memory", cfg.LedgerBackend)
	}
}

func TestLoadPanicsWithoutTargetsFile(t *testing.T) {
	t.Setenv("OUTREACH_TARGETS_FILE", "")

	defer func() {
		if recover() == nil {
			t.Error("Load() did not panic without OUTREACH_TARGETS_FILE")
		}
	}()
	Load()
}

func TestEnvHelpersFallBackOnGarbage(t *testing.T) {
	t.Setenv("OUTREACH_TEST_INT", "not-a-number")
	t.Setenv("OUTREACH_TEST_DUR", "soon")
	t.Setenv("OUTREACH_TEST_BOOL", "definitely")
	t.Setenv("OUTREACH_TEST_FLOAT", "half")

	if got := getenvInt("OUTREACH_TEST_INT", 7); got != 7 {
		t.Errorf("getenvInt = %d, want default 7", got)
	}
	if got := mustDuration("OUTREACH_TEST_DUR", time.Minute); got != time.Minute {
		t.Errorf("mustDuration = %v, want default 1m", got)
	}
	if got := mustBool("OUTREACH_TEST_BOOL", true); got != true {
		t.Errorf("mustBool = %v, want default true", got)
	}
	if got := getenvFloat("OUTREACH_TEST_FLOAT", 0.5); got != 0.5 {
		t.Errorf("getenvFloat = %v, want default 0.5", got)
	}
}
