package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// DurationRange is a closed [Min, Max] interval used for randomized delays.
type DurationRange struct {
	Min time.Duration
	Max time.Duration
}

// Valid reports whether the range is usable (non-negative, ordered).
func (r DurationRange) Valid() bool {
	return r.Min >= 0 && r.Max >= r.Min
}

type Config struct {
	// Quotas. Equality to a limit blocks, so these are hard ceilings.
	DailyLimit  int // max successful requests per local day
	WeeklyLimit int // max successful requests per trailing 7 days

	// Pacing
	RequestDelay   DurationRange // randomized wait after each sent request
	BreakEveryN    int           // take a longer break after N cumulative successes (0 = never)
	BreakDuration  DurationRange // randomized duration of the longer break
	ConfirmTimeout time.Duration // bounded wait for the post-invoke confirmation

	// Inputs / outputs
	TargetsFile string // path to the targets file (.json, .csv, .yaml)
	CSVOutput   string // path the ledger export is written to after a run

	// Ledger
	LedgerBackend string // "sqlite" | "redis" | "memory"
	DBPath        string // sqlite database file

	// Status server. Empty ListenPort disables it.
	ListenPort      string // ex: ":8080"
	ShutdownTimeout time.Duration

	// Logging
	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Redis (only read when LedgerBackend == "redis")
	RedisAddr           string
	RedisUser           string
	RedisPassword       string
	RedisDB             int
	RedisDT             time.Duration // dial timeout
	RedisRT             time.Duration // read timeout
	RedisWT             time.Duration // write timeout
	RedisPoolSize       int
	RedisConnectTimeout time.Duration // total time to retry connecting
	RedisRetryInterval  time.Duration // initial wait between retries (grows exponentially)
	RedisMaxWait        time.Duration // cap on wait between retries
	RedisPingTimeout    time.Duration // timeout per ping attempt
	RedisWarnThreshold  int           // warn after this many attempts

	// Simulated driver tuning (the only driver this repo ships).
	SimSeed           int64
	SimAlreadyRelated float64
	SimNoControl      float64
	SimNavFailure     float64
	SimAlternate      float64
	SimTimeout        float64
}

func Load() *Config {
	cfg := &Config{
		// Quotas (conservative defaults)
		DailyLimit:  getenvInt("OUTREACH_DAILY_LIMIT", 20),
		WeeklyLimit: getenvInt("OUTREACH_WEEKLY_LIMIT", 80),

		// Pacing
		RequestDelay: DurationRange{
			Min: mustDuration("OUTREACH_DELAY_MIN", 30*time.Second),
			Max: mustDuration("OUTREACH_DELAY_MAX", 90*time.Second),
		},
		BreakEveryN: getenvInt("OUTREACH_BREAK_EVERY", 5),
		BreakDuration: DurationRange{
			Min: mustDuration("OUTREACH_BREAK_MIN", 2*time.Minute),
			Max: mustDuration("OUTREACH_BREAK_MAX", 5*time.Minute),
		},
		ConfirmTimeout: mustDuration("OUTREACH_CONFIRM_TIMEOUT", 5*time.Second),

		// Inputs / outputs
		TargetsFile: requireEnv("OUTREACH_TARGETS_FILE"),
		CSVOutput:   getenv("OUTREACH_CSV_OUTPUT", "outreach_sent.csv"),

		// Ledger
		LedgerBackend: getenv("OUTREACH_LEDGER_BACKEND", "sqlite"),
		DBPath:        getenv("OUTREACH_DB_PATH", "outreach.db"),

		// Status server
		ListenPort:      getenv("OUTREACH_LISTEN_PORT", ""),
		ShutdownTimeout: mustDuration("OUTREACH_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("OUTREACH_LOG_LEVEL", "info"),
		PrettyLog: mustBool("OUTREACH_PRETTY_LOG", true),

		// Redis settings
		RedisAddr:           getenv("OUTREACH_REDIS_ADDR", "localhost:6379"),
		RedisUser:           getenv("OUTREACH_REDIS_USERNAME", "default"),
		RedisPassword:       getenv("OUTREACH_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("OUTREACH_REDIS_DB", 0),
		RedisDT:             mustDuration("OUTREACH_REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("OUTREACH_REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("OUTREACH_REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisPoolSize:       getenvInt("OUTREACH_REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("OUTREACH_REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("OUTREACH_REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisMaxWait:        mustDuration("OUTREACH_REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("OUTREACH_REDIS_PING_TIMEOUT", 5*time.Second),
		RedisWarnThreshold:  getenvInt("OUTREACH_REDIS_WARN_THRESHOLD", 3),

		// Simulated driver
		SimSeed:           getenvInt64("OUTREACH_SIM_SEED", 0),
		SimAlreadyRelated: getenvFloat("OUTREACH_SIM_ALREADY_RELATED_RATE", 0.1),
		SimNoControl:      getenvFloat("OUTREACH_SIM_NO_CONTROL_RATE", 0.05),
		SimNavFailure:     getenvFloat("OUTREACH_SIM_NAV_FAILURE_RATE", 0.05),
		SimAlternate:      getenvFloat("OUTREACH_SIM_ALTERNATE_RATE", 0.1),
		SimTimeout:        getenvFloat("OUTREACH_SIM_TIMEOUT_RATE", 0.05),
	}

	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("❌ FATAL: invalid configuration: %v", err))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		if cfg.RedisPassword != "" {
			cfgCopy.RedisPassword = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// Validate rejects configurations the core must not run with. Bad limits
// and inverted delay ranges are fatal, not clamped.
func (c *Config) Validate() error {
	if c.DailyLimit <= 0 {
		return fmt.Errorf("OUTREACH_DAILY_LIMIT must be positive, got %d", c.DailyLimit)
	}
	if c.WeeklyLimit <= 0 {
		return fmt.Errorf("OUTREACH_WEEKLY_LIMIT must be positive, got %d", c.WeeklyLimit)
	}
	if !c.RequestDelay.Valid() {
		return fmt.Errorf("request delay range invalid: min=%v max=%v", c.RequestDelay.Min, c.RequestDelay.Max)
	}
	if !c.BreakDuration.Valid() {
		return fmt.Errorf("break duration range invalid: min=%v max=%v", c.BreakDuration.Min, c.BreakDuration.Max)
	}
	if c.BreakEveryN < 0 {
		return fmt.Errorf("OUTREACH_BREAK_EVERY must be >= 0, got %d", c.BreakEveryN)
	}
	if c.ConfirmTimeout <= 0 {
		return fmt.Errorf("OUTREACH_CONFIRM_TIMEOUT must be positive, got %v", c.ConfirmTimeout)
	}
	switch c.LedgerBackend {
	case "sqlite", "redis", "memory":
	default:
		return fmt.Errorf("OUTREACH_LEDGER_BACKEND must be sqlite, redis or memory, got %q", c.LedgerBackend)
	}
	return nil
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
