package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmallet/outreach/internal/config"
	"github.com/jmallet/outreach/internal/domain"
	"github.com/jmallet/outreach/internal/driver"
	"github.com/jmallet/outreach/internal/httpserver"
	"github.com/jmallet/outreach/internal/httpserver/deps"
	"github.com/jmallet/outreach/internal/ledger"
	ledgermem "github.com/jmallet/outreach/internal/ledger/memory"
	ledgerredis "github.com/jmallet/outreach/internal/ledger/redis"
	ledgersqlite "github.com/jmallet/outreach/internal/ledger/sqlite"
	"github.com/jmallet/outreach/internal/loader"
	"github.com/jmallet/outreach/internal/logger"
	"github.com/jmallet/outreach/internal/machine"
	"github.com/jmallet/outreach/internal/orchestrator"
	"github.com/jmallet/outreach/internal/redis"
	"github.com/jmallet/outreach/internal/safety"
	"github.com/jmallet/outreach/internal/utils"
	"github.com/jmallet/outreach/internal/version"
)

type App struct {
	cfg     *config.Config
	logger  logger.Logger
	store   ledger.Ledger
	quota   *safety.Manager
	orch    *orchestrator.Orchestrator
	server  *httpserver.Server // nil when the status server is disabled
	targets []domain.Target
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	store, err := openLedger(cfg, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to open ledger: %v", err)
		os.Exit(1)
	}
	loggerClient.Info("ledger initialized",
		logger.String("backend", cfg.LedgerBackend))

	targets, err := loader.New(cfg.TargetsFile).Load()
	if err != nil {
		loggerClient.Errorf("Failed to load targets: %v", err)
		os.Exit(1)
	}
	loggerClient.Info("targets loaded",
		logger.String("file", cfg.TargetsFile),
		logger.Int("count", len(targets)))

	quota, err := safety.New(store, cfg.DailyLimit, cfg.WeeklyLimit, time.Now)
	if err != nil {
		loggerClient.Errorf("Failed to initialize quota manager: %v", err)
		os.Exit(1)
	}

	drv := driver.NewSimulated(driver.SimOptions{
		AlreadyRelatedRate: cfg.SimAlreadyRelated,
		NoControlRate:      cfg.SimNoControl,
		NavigationFailRate: cfg.SimNavFailure,
		AlternateRate:      cfg.SimAlternate,
		TimeoutRate:        cfg.SimTimeout,
		Seed:               cfg.SimSeed,
	})
	mach := machine.New(drv, cfg.ConfirmTimeout)

	orch, err := orchestrator.New(cfg, store, quota, mach, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to initialize orchestrator: %v", err)
		os.Exit(1)
	}

	var server *httpserver.Server
	if cfg.ListenPort != "" {
		d := deps.Deps{
			Logger:    loggerClient,
			StartTime: time.Now(),
			Version:   version.Version,
			Commit:    version.Commit,
			BuildDate: version.BuildDate,
			GoVersion: version.GoVersion,
			TimeNow:   time.Now,
			Ledger:    store,
			Quota:     quota,
		}
		server = httpserver.New(cfg.ListenPort, loggerClient, d)
	} else {
		loggerClient.Info("status server disabled (no listen port configured)")
	}

	return &App{
		cfg:     cfg,
		logger:  loggerClient,
		store:   store,
		quota:   quota,
		orch:    orch,
		server:  server,
		targets: targets,
	}
}

// openLedger builds the configured ledger backend.
func openLedger(cfg *config.Config, log logger.Logger) (ledger.Ledger, error) {
	switch cfg.LedgerBackend {
	case "sqlite":
		return ledgersqlite.New(cfg.DBPath)
	case "redis":
		log.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.New(redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, log)
		if err != nil {
			return nil, err
		}
		return ledgerredis.New(client), nil
	case "memory":
		log.Warn("using the in-memory ledger: history will not survive this process")
		return ledgermem.New(), nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.LedgerBackend)
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting outreach v%s", version.Version)
	a.logger.Infof("outreach %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	if a.server != nil {
		go func() {
			if err := a.server.Start(); err != nil {
				errCh <- fmt.Errorf("status server error: %w", err)
			}
		}()
	}

	if err := a.reportQuota(ctx); err != nil {
		return err
	}

	summary, runErr := a.orch.Run(ctx, a.targets)
	a.reportSummary(summary)

	// Partial results are valid even after an early stop or interrupt, so
	// the export always happens before error handling.
	if err := a.exportCSV(ctx); err != nil {
		a.logger.Warn("csv export failed", logger.Error(err))
	}

	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled):
		a.logger.Warn("⚠️ run interrupted, ledger state is safe to resume from")
	default:
		a.shutdown()
		return fmt.Errorf("run aborted: %w", runErr)
	}

	select {
	case err := <-errCh:
		a.shutdown()
		return err
	default:
	}

	a.shutdown()
	a.logger.Info("✅ outreach stopped cleanly")
	return nil
}

func (a *App) reportQuota(ctx context.Context) error {
	status, err := a.quota.QuotaStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to read quota status: %w", err)
	}
	a.logger.Info("📊 quota status",
		logger.Int("daily_used", status.DailyUsed),
		logger.Int("daily_limit", status.DailyLimit),
		logger.Int("daily_remaining", status.DailyRemaining),
		logger.Int("weekly_used", status.WeeklyUsed),
		logger.Int("weekly_limit", status.WeeklyLimit),
		logger.Int("weekly_remaining", status.WeeklyRemaining))

	if !status.CanSend() {
		next, err := a.quota.NextEligibleAt(ctx)
		if err != nil {
			return fmt.Errorf("failed to estimate next eligible time: %w", err)
		}
		a.logger.Warn("quota exhausted before starting",
			logger.Time("next_eligible", next))
	}
	return nil
}

func (a *App) reportSummary(s orchestrator.Summary) {
	a.logger.Info("run summary",
		logger.Int("loaded", s.Loaded),
		logger.Int("already_recorded", s.AlreadyRecorded),
		logger.Int("retained", s.Retained),
		logger.Int("attempted", s.Attempted),
		logger.Int("sent", s.Sent),
		logger.Int("already_related", s.AlreadyRelated),
		logger.Int("failed", s.Failed),
		logger.Int("skipped_by_quota", s.SkippedByQuota),
		logger.Duration("elapsed", s.Finished.Sub(s.Started)))
	if s.StoppedEarly {
		a.logger.Warn("run stopped early", logger.String("reason", s.StopReason))
	}
}

func (a *App) exportCSV(ctx context.Context) error {
	// After an interrupt the run context is already canceled, but the
	// export must still read the ledger; cancellation is stripped and the
	// read gets its own deadline.
	exportCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.ShutdownTimeout)
	defer cancel()

	f, err := os.Create(a.cfg.CSVOutput)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer utils.Close(f)

	n, err := ledger.ExportCSV(exportCtx, a.store, f)
	if err != nil {
		return err
	}
	a.logger.Info("ledger exported",
		logger.String("file", a.cfg.CSVOutput),
		logger.Int("entries", n))
	return nil
}

func (a *App) shutdown() {
	if a.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := a.server.Stop(shutdownCtx); err != nil {
			a.logger.Warnf("failed to stop status server: %v", err)
		}
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warnf("failed to close ledger: %v", err)
	} else {
		a.logger.Info("✅ ledger closed cleanly")
	}
}
