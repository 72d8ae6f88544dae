// Package seed loads the demo marketplace fixture.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"gopkg.in/yaml.v3"

	"github.com/campusearn/backend/internal/auth"
	"github.com/campusearn/backend/internal/lifecycle"
	"github.com/campusearn/backend/internal/models"
)

//go:embed demo.yaml
var demoYAML []byte

// SeededKey is the settings flag set once the fixture has been loaded.
const SeededKey = "demo_data_seeded"

type Fixture struct {
	Users []DemoUser            `yaml:"users"`
	Ads   []*models.AdPlacement `yaml:"ads"`
}

type DemoUser struct {
	Name        string         `yaml:"name"`
	PhoneNumber string         `yaml:"phone_number"`
	Password    string         `yaml:"password"`
	AppRole     models.AppRole `yaml:"app_role"`
	Deposit     int64          `yaml:"deposit"`
	Tasks       []DemoTask     `yaml:"tasks"`
}

type DemoTask struct {
	Title         string `yaml:"title"`
	Description   string `yaml:"description"`
	Category      string `yaml:"category"`
	Location      string `yaml:"location"`
	TimeRequired  string `yaml:"time_required"`
	PaymentAmount int64  `yaml:"payment_amount"`
}

// Parse decodes a fixture and checks that every provider can fund its tasks.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	for _, u := range f.Users {
		if !u.AppRole.Valid() {
			return nil, fmt.Errorf("fixture user %s: invalid app_role %q", u.PhoneNumber, u.AppRole)
		}
		var total int64
		for _, t := range u.Tasks {
			total += t.PaymentAmount
		}
		if len(u.Tasks) > 0 && !u.AppRole.IsProvider() {
			return nil, fmt.Errorf("fixture user %s: only providers post tasks", u.PhoneNumber)
		}
		if total > u.Deposit {
			return nil, fmt.Errorf("fixture user %s: tasks need %d, deposit is %d", u.PhoneNumber, total, u.Deposit)
		}
	}
	for _, a := range f.Ads {
		if !a.AdType.Valid() {
			return nil, fmt.Errorf("fixture ad %q: invalid ad_type", a.ID)
		}
	}
	return &f, nil
}

// Demo returns the embedded fixture. It panics if the embedded file is
// malformed, which the package tests rule out.
func Demo() *Fixture {
	f, err := Parse(demoYAML)
	if err != nil {
		panic(err)
	}
	return f
}

// DefaultAds are the placements restored by an ad reset.
func DefaultAds() []*models.AdPlacement {
	return Demo().Ads
}

// --- dependencies ---

type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Flags interface {
	Get(ctx context.Context, key string) (string, error)
	SetTx(ctx context.Context, tx pgx.Tx, key, value string) error
	LockTx(ctx context.Context, tx pgx.Tx, key string) error
}

type Registrar interface {
	Register(ctx context.Context, in auth.RegisterInput) (*models.User, error)
}

type Depositor interface {
	Deposit(ctx context.Context, c models.Caller, amount int64) (int64, error)
}

type TaskCreator interface {
	Create(ctx context.Context, c models.Caller, in lifecycle.CreateInput) (*models.Task, error)
}

type AdWriter interface {
	ReplaceAll(ctx context.Context, ads []*models.AdPlacement) error
}

// Seeder loads a fixture through the regular services so every balance
// change is backed by a ledger record.
type Seeder struct {
	Pool    TxBeginner
	Flags   Flags
	Users   Registrar
	Wallet  Depositor
	Tasks   TaskCreator
	Ads     AdWriter
	Fixture *Fixture
	Logger  *slog.Logger
}

func (s *Seeder) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Seeder) IsSeeded(ctx context.Context) (bool, error) {
	v, err := s.Flags.Get(ctx, SeededKey)
	if err != nil {
		return false, fmt.Errorf("read seed flag: %w", err)
	}
	return v == "true", nil
}

// EnsureSeeded loads the fixture once. It reports whether this call did the
// loading. Concurrent callers serialize on an advisory lock; the loser sees
// the flag and returns false.
func (s *Seeder) EnsureSeeded(ctx context.Context) (bool, error) {
	fixture := s.Fixture
	if fixture == nil {
		fixture = Demo()
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	if err := s.Flags.LockTx(ctx, tx, SeededKey); err != nil {
		return false, fmt.Errorf("lock seed flag: %w", err)
	}
	seeded, err := s.IsSeeded(ctx)
	if err != nil || seeded {
		return false, err
	}

	if err := s.load(ctx, fixture); err != nil {
		return false, err
	}
	if err := s.Flags.SetTx(ctx, tx, SeededKey, "true"); err != nil {
		return false, fmt.Errorf("set seed flag: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	s.logger().Info("demo data seeded", "users", len(fixture.Users), "ads", len(fixture.Ads))
	return true, nil
}

func (s *Seeder) load(ctx context.Context, f *Fixture) error {
	for _, du := range f.Users {
		u, err := s.Users.Register(ctx, auth.RegisterInput{
			Name:        du.Name,
			PhoneNumber: du.PhoneNumber,
			Password:    du.Password,
			AppRole:     du.AppRole,
		})
		if errors.Is(err, models.ErrConflict) {
			s.logger().Warn("demo user exists, skipping", "phone", du.PhoneNumber)
			continue
		}
		if err != nil {
			return fmt.Errorf("register %s: %w", du.PhoneNumber, err)
		}
		c := models.CallerFor(u)
		if du.Deposit > 0 {
			if _, err := s.Wallet.Deposit(ctx, c, du.Deposit); err != nil {
				return fmt.Errorf("deposit for %s: %w", du.PhoneNumber, err)
			}
		}
		for _, dt := range du.Tasks {
			_, err := s.Tasks.Create(ctx, c, lifecycle.CreateInput{
				Title:         dt.Title,
				Description:   dt.Description,
				Category:      dt.Category,
				Location:      dt.Location,
				TimeRequired:  dt.TimeRequired,
				PaymentAmount: dt.PaymentAmount,
			})
			if err != nil {
				return fmt.Errorf("task %q: %w", dt.Title, err)
			}
		}
	}
	if len(f.Ads) > 0 {
		if err := s.Ads.ReplaceAll(ctx, f.Ads); err != nil {
			return fmt.Errorf("ads: %w", err)
		}
	}
	return nil
}
