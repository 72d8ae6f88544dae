package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusearn/backend/internal/models"
)

var (
	// ErrDuplicatePhone is returned when registering with a phone number that already exists.
	ErrDuplicatePhone = fmt.Errorf("%w: phone number already registered", models.ErrConflict)
	// ErrInvalidCredentials covers both an unknown phone number and a wrong password.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", models.ErrUnauthenticated)
	// ErrInvalidToken is returned for expired, malformed or foreign tokens.
	ErrInvalidToken = fmt.Errorf("%w: invalid token", models.ErrUnauthenticated)
)

const DefaultTokenTTL = 24 * time.Hour

type Service interface {
	Register(ctx context.Context, in RegisterInput) (*models.User, error)
	Login(ctx context.Context, phone, password string) (string, *models.User, error)
	ValidateToken(ctx context.Context, token string) (uuid.UUID, error)
}

type RegisterInput struct {
	Name        string
	PhoneNumber string
	Password    string
	AppRole     models.AppRole
}

type Options struct {
	Secret   string
	TokenTTL time.Duration
	// BootstrapAdmin makes the first registered user an admin.
	BootstrapAdmin bool
}

type service struct {
	store          Store
	secret         []byte
	ttl            time.Duration
	bootstrapAdmin bool
	now            func() time.Time
}

func NewService(store Store, opts Options) *service {
	secret := opts.Secret
	if secret == "" {
		secret = os.Getenv("JWT_SECRET")
	}
	if secret == "" {
		secret = "campusearn-dev-secret"
	}
	ttl := opts.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &service{store: store, secret: []byte(secret), ttl: ttl, bootstrapAdmin: opts.BootstrapAdmin, now: time.Now}
}

// Ensure service implements Service at compile time.
var _ Service = (*service)(nil)

type claims struct {
	jwt.RegisteredClaims
	Role models.UserRole `json:"role"`
}

func (s *service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if in.AppRole != "" && !in.AppRole.Valid() {
		return nil, fmt.Errorf("%w: unknown app_role %q", models.ErrInvalid, in.AppRole)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(in.Name),
		PhoneNumber:  strings.TrimSpace(in.PhoneNumber),
		PasswordHash: string(hash),
		Role:         models.RoleUser,
		AppRole:      in.AppRole,
		CreatedAt:    models.Nanos(s.now()),
	}
	if err := s.store.Create(ctx, u, s.bootstrapAdmin); err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, ErrDuplicatePhone
		}
		return nil, err
	}
	return u, nil
}

func (s *service) Login(ctx context.Context, phone, password string) (string, *models.User, error) {
	u, err := s.store.GetByPhone(ctx, strings.TrimSpace(phone))
	if errors.Is(err, models.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	tok, err := s.issueToken(u.ID, u.Role)
	if err != nil {
		return "", nil, err
	}
	return tok, u, nil
}

func (s *service) issueToken(userID uuid.UUID, role models.UserRole) (string, error) {
	now := s.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Role: role,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.secret)
}

// ValidateToken returns the user id in a valid token. The role claim is
// informational; callers reload the user so role changes apply immediately.
func (s *service) ValidateToken(_ context.Context, token string) (uuid.UUID, error) {
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid {
		return uuid.Nil, ErrInvalidToken
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return id, nil
}
