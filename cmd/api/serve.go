package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"github.com/campusearn/backend/internal/auth"
	"github.com/campusearn/backend/internal/handlers"
	"github.com/campusearn/backend/internal/middleware"
	"github.com/campusearn/backend/internal/router"
	"github.com/campusearn/backend/internal/validation"
)

var (
	servePort    int
	serveMigrate bool
)

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", true, "Apply database migrations before serving")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and background workers",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if serveMigrate {
		if err := migrateAll(ctx, a); err != nil {
			return err
		}
	}

	validator, err := validation.New()
	if err != nil {
		return err
	}

	h := router.New(router.Deps{
		Auth: auth.NewHandler(a.auth, validator, logger),
		Tasks: &handlers.TaskHandler{
			Tasks: a.tasks, Validator: validator, Logger: logger,
		},
		Wallet: &handlers.WalletHandler{
			Wallet: a.wallet, Withdrawals: a.withdrawals, Validator: validator, Logger: logger,
		},
		Users: &handlers.UserHandler{
			Users: a.profiles, Validator: validator, Logger: logger,
		},
		Admin: &handlers.AdminHandler{
			Reports:     a.wallet,
			Stats:       a.stats,
			Withdrawals: a.withdrawals,
			Users:       a.profiles,
			Seeder:      a.seeder,
			Validator:   validator,
			Logger:      logger,
		},
		Ads:          &handlers.AdHandler{Ads: a.ads, Validator: validator, Logger: logger},
		Authenticate: middleware.Authenticate(a.auth, a.users, logger),
		PaymentCheck: middleware.PaymentCheck(a.pool, middleware.PaymentLimits{
			MaxPerTask: cfg.Tasks.MaxPaymentPerTask,
			MaxPerDay:  cfg.Tasks.MaxDailySpend,
		}),
		Timeout: cfg.Server.RequestTimeout.Duration,
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{handlers.InvalidateHeader},
		AllowCredentials: true,
	}).Handler(h)

	// Start River client (runs expiry jobs)
	if err := a.river.Start(ctx); err != nil {
		return err
	}

	srv := &http.Server{Addr: cfg.Addr(), Handler: corsHandler}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown", "error", err)
	}
	if err := a.river.Stop(shutdownCtx); err != nil {
		logger.Error("River stop", "error", err)
	}
	return nil
}
