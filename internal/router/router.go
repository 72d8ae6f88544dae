// Package router mounts the HTTP API.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campusearn/backend/internal/auth"
	"github.com/campusearn/backend/internal/handlers"
	"github.com/campusearn/backend/internal/middleware"
)

// Middleware is a standard net/http middleware.
type Middleware = func(http.Handler) http.Handler

// Deps carries everything the router mounts. Authenticate guards every route
// except auth, ads reads, health and metrics. PaymentCheck runs on task
// creation only and may be nil.
type Deps struct {
	Auth         *auth.Handler
	Tasks        *handlers.TaskHandler
	Wallet       *handlers.WalletHandler
	Users        *handlers.UserHandler
	Admin        *handlers.AdminHandler
	Ads          *handlers.AdHandler
	Authenticate Middleware
	PaymentCheck Middleware
	Timeout      time.Duration
}

// New returns an http.Handler that serves the API under /api/v1.
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Instrument)
	if d.Timeout > 0 {
		r.Use(chimw.Timeout(d.Timeout))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	paymentCheck := d.PaymentCheck
	if paymentCheck == nil {
		paymentCheck = func(next http.Handler) http.Handler { return next }
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", d.Auth.Register)
		r.Post("/auth/login", d.Auth.Login)

		r.Get("/ads", d.Ads.List)
		r.Get("/ads/{type}", d.Ads.Get)

		r.Group(func(r chi.Router) {
			r.Use(d.Authenticate)

			r.Route("/tasks", func(r chi.Router) {
				r.With(paymentCheck).Post("/", d.Tasks.CreateTask)
				r.Get("/", d.Tasks.ListAll)
				r.Get("/open", d.Tasks.ListOpen)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", d.Tasks.GetTask)
					r.Post("/accept", d.Tasks.Accept)
					r.Post("/proof", d.Tasks.SubmitProof)
					r.Get("/proof", d.Tasks.ProofFiles)
					r.Post("/review", d.Tasks.Review)
					r.Post("/revision", d.Tasks.RequestRevision)
					r.Post("/approve", d.Tasks.Approve)
					r.Post("/decline", d.Tasks.Decline)
				})
			})

			r.Post("/wallet/deposit", d.Wallet.Deposit)
			r.Get("/wallet/deposit", d.Wallet.DepositBalance)
			r.Get("/wallet/balance", d.Wallet.WalletBalance)
			r.Get("/transactions", d.Wallet.History)
			r.Post("/withdrawals", d.Wallet.RequestWithdrawal)
			r.Get("/withdrawals", d.Wallet.MyWithdrawals)

			r.Route("/users", func(r chi.Router) {
				r.Get("/me", d.Users.Me)
				r.Put("/me", d.Users.SaveProfile)
				r.Get("/me/role", d.Users.Role)
				r.Patch("/me/college", d.Users.UpdateCollege)
				r.Put("/me/picture", d.Users.UploadPicture)
				r.Post("/me/verification", d.Users.SubmitVerification)
				r.Get("/{id}", d.Users.Get)
				r.Get("/{id}/tasks", d.Tasks.ListByUser)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Get("/stats", d.Admin.SystemStats)
				r.Get("/commission", d.Admin.Commission)
				r.Get("/transactions", d.Admin.Transactions)
				r.Get("/activity", d.Admin.Activity)
				r.Get("/withdrawals/pending", d.Admin.PendingWithdrawals)
				r.Post("/withdrawals/{id}/approve", d.Admin.ApproveWithdrawal)
				r.Post("/withdrawals/{id}/reject", d.Admin.RejectWithdrawal)
				r.Get("/verifications", d.Admin.PendingVerifications)
				r.Post("/verifications/{id}", d.Admin.VerifyUser)
				r.Post("/users/{id}/role", d.Admin.AssignRole)
				r.Put("/ads/{type}", d.Ads.Update)
				r.Post("/ads/reset", d.Ads.Reset)
				r.Get("/seed", d.Admin.SeedStatus)
				r.Post("/seed", d.Admin.Seed)
			})
		})
	})

	return r
}
