package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/campusearn/backend/internal/auth"
	"github.com/campusearn/backend/internal/config"
	"github.com/campusearn/backend/internal/jobs"
	"github.com/campusearn/backend/internal/lifecycle"
	"github.com/campusearn/backend/internal/repository"
	"github.com/campusearn/backend/internal/seed"
	"github.com/campusearn/backend/internal/services"
)

// app holds the wired repositories and services shared by the commands.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	pool   *pgxpool.Pool

	users    *repository.UserRepo
	settings *repository.SettingsRepo

	auth        auth.Service
	tasks       *services.TaskService
	wallet      *services.WalletService
	withdrawals *services.WithdrawalService
	profiles    *services.UserService
	stats       *services.StatsService
	ads         *services.AdService
	seeder      *seed.Seeder

	scheduler *jobs.Scheduler
	river     *river.Client[pgx.Tx]
}

func connect(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.Database.MaxConns > 0 {
		pcfg.MaxConns = cfg.Database.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("cannot reach PostgreSQL: %w", err)
	}
	return pool, nil
}

// newApp wires every service. withWorkers registers the expiry worker and
// queue; without it the river client is insert-only.
func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger, withWorkers bool) (*app, error) {
	pool, err := connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to PostgreSQL")

	a := &app{cfg: cfg, logger: logger, pool: pool, scheduler: &jobs.Scheduler{}}

	a.users = repository.NewUserRepo(pool)
	a.settings = repository.NewSettingsRepo(pool)
	taskRepo := repository.NewTaskRepo(pool)
	txRepo := repository.NewTransactionRepo(pool)
	withdrawalRepo := repository.NewWithdrawalRepo(pool)
	activityRepo := repository.NewActivityRepo(pool)
	adRepo := repository.NewAdRepo(pool)

	ledger := services.NewLedgerService(a.users, txRepo)

	a.auth = auth.NewService(a.users, auth.Options{
		Secret:         cfg.Auth.JWTSecret,
		TokenTTL:       cfg.Auth.TokenTTL.Duration,
		BootstrapAdmin: cfg.Auth.BootstrapAdmin,
	})
	a.tasks = &services.TaskService{
		Pool:     pool,
		Tasks:    taskRepo,
		Users:    a.users,
		Ledger:   ledger,
		Activity: activityRepo,
		Expiry:   a.scheduler,
		Policy: services.TaskPolicy{
			RequireModeration: cfg.Tasks.RequireModeration,
			MaxRevisions:      cfg.Tasks.MaxRevisions,
		},
		Logger: logger,
	}
	a.wallet = &services.WalletService{
		Pool:         pool,
		Users:        a.users,
		Ledger:       ledger,
		Activity:     activityRepo,
		Transactions: txRepo,
		ActivityFeed: activityRepo,
	}
	a.withdrawals = &services.WithdrawalService{
		Pool:        pool,
		Withdrawals: withdrawalRepo,
		Users:       a.users,
		Ledger:      ledger,
		Activity:    activityRepo,
		Logger:      logger,
	}
	a.profiles = &services.UserService{Pool: pool, Users: a.users}
	a.stats = &services.StatsService{
		Sources: services.RepoStatsSources{
			Users:        a.users,
			Tasks:        taskRepo,
			Transactions: txRepo,
			Withdrawals:  withdrawalRepo,
		},
		Percent: lifecycle.CommissionPercent,
	}
	a.ads = &services.AdService{Store: adRepo, Defaults: seed.DefaultAds()}
	a.seeder = &seed.Seeder{
		Pool:   pool,
		Flags:  a.settings,
		Users:  a.auth,
		Wallet: a.wallet,
		Tasks:  a.tasks,
		Ads:    adRepo,
		Logger: logger,
	}

	rcfg := &river.Config{Logger: logger}
	if withWorkers {
		workers := river.NewWorkers()
		river.AddWorker(workers, jobs.NewExpireTaskWorker(a.tasks, logger))
		rcfg.Workers = workers
		rcfg.Queues = map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.Worker.MaxWorkers},
		}
	}
	a.river, err = river.NewClient(riverpgxv5.New(pool), rcfg)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("create river client: %w", err)
	}
	// Bound after the client exists; the worker above needs a.tasks first.
	a.scheduler.Bind(jobs.RiverInsert(a.river))

	return a, nil
}

func (a *app) Close() {
	a.pool.Close()
}
