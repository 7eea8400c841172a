package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/instrumentalist-payouts/internal"
	"github.com/frahmantamala/instrumentalist-payouts/internal/balance"
	"github.com/frahmantamala/instrumentalist-payouts/internal/batch"
	"github.com/frahmantamala/instrumentalist-payouts/internal/core/events"
	instrumentalistPostgres "github.com/frahmantamala/instrumentalist-payouts/internal/instrumentalist/postgres"
	"github.com/frahmantamala/instrumentalist-payouts/internal/lock"
	"github.com/frahmantamala/instrumentalist-payouts/internal/payment"
	paymentPostgres "github.com/frahmantamala/instrumentalist-payouts/internal/payment/postgres"
	"github.com/frahmantamala/instrumentalist-payouts/internal/paymentgateway"
	"github.com/frahmantamala/instrumentalist-payouts/internal/recipient"
	"github.com/frahmantamala/instrumentalist-payouts/internal/reconcile"
	"github.com/frahmantamala/instrumentalist-payouts/internal/serviceevent"
	serviceEventPostgres "github.com/frahmantamala/instrumentalist-payouts/internal/serviceevent/postgres"
	"github.com/frahmantamala/instrumentalist-payouts/internal/transfer"
	"github.com/frahmantamala/instrumentalist-payouts/pkg/metrics"
	"github.com/frahmantamala/instrumentalist-payouts/pkg/redis"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Dependencies holds every long-lived component shared by the server, the
// worker and the payout commands.
type Dependencies struct {
	Config   *internal.Config
	Logger   *slog.Logger
	DB       *gorm.DB
	Reports  *paymentPostgres.ReportRepository
	Redis    *redis.Client
	Registry *prometheus.Registry
	Metrics  *metrics.PayoutMetrics
	EventBus *events.EventBus

	Payments      *payment.Service
	ServiceEvents *serviceevent.Service
	Gateway       *paymentgateway.Client
	Balance       *balance.Service
	Orchestrator  *transfer.Orchestrator
	Batch         *batch.Coordinator
	Sweeper       *reconcile.Sweeper
	Locker        lock.Locker
}

func initializeDependencies(ctx context.Context, cfg *internal.Config, logger *slog.Logger) (*Dependencies, error) {
	db, err := initDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	payoutMetrics := metrics.NewPayoutMetrics(registry)

	eventBus := events.NewEventBus(logger)
	transfer.NewEventHandler(payoutMetrics, logger).RegisterEventHandlers(eventBus)

	instrumentalistRepo := instrumentalistPostgres.NewInstrumentalistRepository(db)
	serviceEventRepo := serviceEventPostgres.NewServiceEventRepository(db)
	paymentRepo := paymentPostgres.NewPaymentRepository(db)
	reportRepo := paymentPostgres.NewReportRepository(sqlx.NewDb(sqlDB, "pgx"))

	paymentService := payment.NewService(paymentRepo, instrumentalistRepo, serviceEventRepo, eventBus, cfg.Gateway.Currency, logger)

	gatewayClient := paymentgateway.NewClient(paymentgateway.Config{
		BaseURL:   cfg.Gateway.BaseURL,
		SecretKey: cfg.Gateway.SecretKey,
		Timeout:   cfg.Gateway.GatewayTimeout(),
	}, logger, payoutMetrics)

	registryConfig := recipient.Config{Currency: cfg.Gateway.Currency, BankCodes: cfg.Gateway.BankCodes}
	recipients := recipient.NewRegistry(gatewayClient, instrumentalistRepo, registryConfig, logger)

	balanceService, err := newBalanceService(cfg, gatewayClient, reportRepo, logger)
	if err != nil {
		return nil, err
	}

	deps := &Dependencies{
		Config:        cfg,
		Logger:        logger,
		DB:            db,
		Reports:       reportRepo,
		Registry:      registry,
		Metrics:       payoutMetrics,
		EventBus:      eventBus,
		Payments:      paymentService,
		ServiceEvents: serviceevent.NewService(serviceEventRepo, logger),
		Gateway:       gatewayClient,
		Balance:       balanceService,
		Locker:        lock.NewLocal(),
	}

	if cfg.Redis.URL != "" {
		client, err := redis.New(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect redis: %w", err)
		}
		locker, err := lock.NewRedis(client, "payouts:lock:", cfg.Redis.LockTTL)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		deps.Redis = client
		deps.Locker = locker
		logger.Info("using redis payment locks")
	}

	deps.Orchestrator = transfer.NewOrchestrator(
		paymentService,
		instrumentalistRepo,
		recipients,
		gatewayClient,
		balanceService,
		deps.Locker,
		eventBus,
		transfer.Config{
			Reason:    cfg.Gateway.TransferReason,
			Preflight: cfg.Balance.PreflightCheck,
		},
		logger,
	)
	deps.Batch = batch.NewCoordinator(paymentService, deps.Orchestrator, batch.Config{
		MaxWorkers: cfg.Batch.MaxWorkers,
		MaxItems:   cfg.Batch.MaxItems,
	}, payoutMetrics, logger)
	deps.Sweeper = reconcile.NewSweeper(paymentService, gatewayClient, deps.Locker, eventBus, payoutMetrics, cfg.Reconcile.Limit, logger)

	return deps, nil
}

func newBalanceService(cfg *internal.Config, client *paymentgateway.Client, reports *paymentPostgres.ReportRepository, logger *slog.Logger) (*balance.Service, error) {
	currency := cfg.Balance.Currency
	if currency == "" {
		currency = cfg.Gateway.Currency
	}

	if cfg.Balance.Mode == internal.BalanceModeLive {
		return balance.NewService(balance.NewLiveSource(client, currency), currency, logger), nil
	}

	starting, err := cfg.Balance.Starting()
	if err != nil {
		return nil, err
	}
	return balance.NewService(balance.NewSimulatedSource(starting, reports), currency, logger), nil
}

// Close waits for in-flight event handlers and releases connections.
func (d *Dependencies) Close() {
	d.EventBus.Wait()
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("Redis close error", "error", err)
		}
	}
	if sqlDB, err := d.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			d.Logger.Error("Database close error", "error", err)
		}
	}
}

// initDB opens the gorm postgres connection and applies pool settings.
func initDB(cfg internal.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
