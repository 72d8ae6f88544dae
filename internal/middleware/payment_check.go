package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusearn/backend/internal/models"
)

// PaymentLimits caps what a provider can escrow. Zero disables a limit.
type PaymentLimits struct {
	MaxPerTask int64
	MaxPerDay  int64
}

type paymentPeek struct {
	PaymentAmount int64 `json:"payment_amount"`
}

// PaymentCheck enforces the per-task and daily escrow limits on task
// creation for the caller set by Authenticate. Reads the body to extract
// "payment_amount", then replaces r.Body so the handler can re-read it.
func PaymentCheck(pool *pgxpool.Pool, limits PaymentLimits) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := CallerFromCtx(r.Context())
			if !ok {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			if limits.MaxPerTask <= 0 && limits.MaxPerDay <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			bodyBytes, err := io.ReadAll(r.Body)
			r.Body.Close()
			if err != nil {
				http.Error(w, `{"error":"failed to read body"}`, http.StatusBadRequest)
				return
			}
			// Restore body for the handler.
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

			var peek paymentPeek
			if err := json.Unmarshal(bodyBytes, &peek); err != nil {
				// Leave malformed bodies to the handler's schema check.
				next.ServeHTTP(w, r)
				return
			}

			if limits.MaxPerTask > 0 && peek.PaymentAmount > limits.MaxPerTask {
				http.Error(w, fmt.Sprintf(`{"error":"payment %d exceeds per-task limit %d"}`, peek.PaymentAmount, limits.MaxPerTask), http.StatusForbidden)
				return
			}

			if limits.MaxPerDay > 0 {
				spent, err := dailySpendFn(r.Context(), pool, c.UserID)
				if err != nil {
					http.Error(w, `{"error":"failed to check daily spend"}`, http.StatusInternalServerError)
					return
				}
				if spent+peek.PaymentAmount > limits.MaxPerDay {
					http.Error(w, fmt.Sprintf(`{"error":"daily spend %d + payment %d exceeds daily limit %d"}`, spent, peek.PaymentAmount, limits.MaxPerDay), http.StatusForbidden)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// dailySpendFn is the function used to compute today's escrowed total.
// Tests can replace this to avoid hitting a real database.
var dailySpendFn = defaultDailySpend

// dailySpendQuery totals the user's taskPayment escrows since $3 and the
// refund deposits that point back at those same tasks.
const dailySpendQuery = `
	WITH escrows AS (
		SELECT amount, related_task_id
		FROM transactions
		WHERE user_id = $1 AND transaction_type = $2
		  AND transaction_date >= $3
	)
	SELECT
		(SELECT COALESCE(SUM(amount), 0) FROM escrows)::BIGINT,
		(SELECT COALESCE(SUM(amount), 0)
		   FROM transactions
		  WHERE user_id = $1 AND transaction_type = $4
		    AND related_task_id IN (SELECT related_task_id FROM escrows WHERE related_task_id IS NOT NULL)
		)::BIGINT
`

// defaultDailySpend returns today's (UTC) escrowed total net of refunds.
func defaultDailySpend(ctx context.Context, pool *pgxpool.Pool, userID uuid.UUID) (int64, error) {
	midnight := time.Now().UTC().Truncate(24 * time.Hour)
	var escrowed, refunded int64
	err := pool.QueryRow(ctx, dailySpendQuery,
		userID, models.TxTaskPayment, models.Nanos(midnight), models.TxDeposit,
	).Scan(&escrowed, &refunded)
	if err != nil {
		return 0, err
	}
	return netSpend(escrowed, refunded), nil
}

// netSpend never goes below zero.
func netSpend(escrowed, refunded int64) int64 {
	if refunded >= escrowed {
		return 0
	}
	return escrowed - refunded
}
