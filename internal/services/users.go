package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/campusearn/backend/internal/models"
)

// UserStore is the user repository surface used by UserService.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.User, error)
	UpdateProfileTx(ctx context.Context, tx pgx.Tx, u *models.User) error
	UpdateVerificationTx(ctx context.Context, tx pgx.Tx, u *models.User) error
	SetRoleTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, role models.UserRole, now int64) error
	ListPendingVerifications(ctx context.Context) ([]*models.VerificationRequest, error)
}

// ProfileUpdate is the caller-editable part of a profile.
type ProfileUpdate struct {
	Name        string
	PhoneNumber string
	AppRole     models.AppRole
}

// RoleInfo answers the caller's role questions in one read.
type RoleInfo struct {
	Role    models.UserRole `json:"role"`
	AppRole models.AppRole  `json:"app_role,omitempty"`
	IsAdmin bool            `json:"is_admin"`
}

// UserService manages profiles, college verification and role assignment.
type UserService struct {
	Pool  TxBeginner
	Users UserStore
	Now   Clock
}

func (s *UserService) Profile(ctx context.Context, c models.Caller) (*models.User, error) {
	return s.Users.GetByID(ctx, c.UserID)
}

// Get returns another user's profile to that user or an admin.
func (s *UserService) Get(ctx context.Context, c models.Caller, id uuid.UUID) (*models.User, error) {
	if id != c.UserID && !c.IsAdmin() {
		return nil, fmt.Errorf("%w: cannot view another user's profile", models.ErrForbidden)
	}
	u, err := s.Users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.IsSystemAccount {
		return nil, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	return u, nil
}

func (s *UserService) Role(ctx context.Context, c models.Caller) RoleInfo {
	return RoleInfo{Role: c.Role, AppRole: c.AppRole, IsAdmin: c.IsAdmin()}
}

// SaveProfile updates name and phone number. The app role can be chosen once
// and never changed afterwards.
func (s *UserService) SaveProfile(ctx context.Context, c models.Caller, in ProfileUpdate) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	phone := strings.TrimSpace(in.PhoneNumber)
	if name == "" || phone == "" {
		return nil, fmt.Errorf("%w: name and phone_number are required", models.ErrInvalid)
	}
	if in.AppRole != "" && !in.AppRole.Valid() {
		return nil, fmt.Errorf("%w: unknown app_role %q", models.ErrInvalid, in.AppRole)
	}
	return s.update(ctx, c.UserID, func(u *models.User) error {
		if in.AppRole != "" && u.AppRole != "" && in.AppRole != u.AppRole {
			return fmt.Errorf("%w: app_role is already %s", models.ErrConflict, u.AppRole)
		}
		if u.AppRole == "" {
			u.AppRole = in.AppRole
		}
		u.Name = name
		u.PhoneNumber = phone
		return nil
	}, s.Users.UpdateProfileTx)
}

// UpdateCollege records college details for the next verification review.
// The verified college and year only change when an admin approves.
func (s *UserService) UpdateCollege(ctx context.Context, c models.Caller, college string, year int) (*models.User, error) {
	if err := checkCollege(college, year); err != nil {
		return nil, err
	}
	return s.update(ctx, c.UserID, func(u *models.User) error {
		u.PendingCollege = strings.TrimSpace(college)
		u.PendingYear = year
		return nil
	}, s.Users.UpdateProfileTx)
}

// UploadPicture stores an opaque reference to the caller's profile picture.
func (s *UserService) UploadPicture(ctx context.Context, c models.Caller, ref string) (*models.User, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: profile_picture is required", models.ErrInvalid)
	}
	return s.update(ctx, c.UserID, func(u *models.User) error {
		u.ProfilePicture = &ref
		return nil
	}, s.Users.UpdateProfileTx)
}

// SubmitVerification queues the calling student for college verification.
func (s *UserService) SubmitVerification(ctx context.Context, c models.Caller, college string, year int, document string) (*models.User, error) {
	if c.AppRole != models.AppRoleStudent {
		return nil, fmt.Errorf("%w: only students verify a college", models.ErrForbidden)
	}
	if err := checkCollege(college, year); err != nil {
		return nil, err
	}
	document = strings.TrimSpace(document)
	if document == "" {
		return nil, fmt.Errorf("%w: verification_document is required", models.ErrInvalid)
	}
	return s.update(ctx, c.UserID, func(u *models.User) error {
		if u.PendingVerification {
			return fmt.Errorf("%w: a verification is already pending", models.ErrConflict)
		}
		u.PendingVerification = true
		u.PendingCollege = strings.TrimSpace(college)
		u.PendingYear = year
		u.VerificationDocument = &document
		return nil
	}, s.Users.UpdateVerificationTx)
}

// PendingVerifications lists users awaiting review. Admin only.
func (s *UserService) PendingVerifications(ctx context.Context, c models.Caller) ([]*models.VerificationRequest, error) {
	if !c.IsAdmin() {
		return nil, fmt.Errorf("%w: admin only", models.ErrForbidden)
	}
	return s.Users.ListPendingVerifications(ctx)
}

// VerifyUser resolves a pending verification. Approval promotes the pending
// college and year; rejection discards them.
func (s *UserService) VerifyUser(ctx context.Context, c models.Caller, id uuid.UUID, approve bool) (*models.User, error) {
	if !c.IsAdmin() {
		return nil, fmt.Errorf("%w: admin only", models.ErrForbidden)
	}
	return s.update(ctx, id, func(u *models.User) error {
		if !u.PendingVerification {
			return fmt.Errorf("%w: no pending verification", models.ErrConflict)
		}
		u.PendingVerification = false
		if approve {
			u.Verified = true
			u.College = u.PendingCollege
			u.Year = u.PendingYear
		}
		u.PendingCollege = ""
		u.PendingYear = 0
		return nil
	}, s.Users.UpdateVerificationTx)
}

// AssignRole changes a user's platform access role. Admin only.
func (s *UserService) AssignRole(ctx context.Context, c models.Caller, id uuid.UUID, role models.UserRole) error {
	if !c.IsAdmin() {
		return fmt.Errorf("%w: admin only", models.ErrForbidden)
	}
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", models.ErrInvalid, role)
	}
	return withTx(ctx, s.Pool, func(tx pgx.Tx) error {
		return s.Users.SetRoleTx(ctx, tx, id, role, s.Now.nanos())
	})
}

func (s *UserService) update(ctx context.Context, id uuid.UUID, fn func(u *models.User) error, write func(context.Context, pgx.Tx, *models.User) error) (*models.User, error) {
	var user *models.User
	err := withTx(ctx, s.Pool, func(tx pgx.Tx) error {
		u, err := s.Users.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if u.IsSystemAccount {
			return fmt.Errorf("user %s: %w", id, models.ErrNotFound)
		}
		if err := fn(u); err != nil {
			return err
		}
		u.UpdatedAt = s.Now.nanos()
		if err := write(ctx, tx, u); err != nil {
			return err
		}
		user = u
		return nil
	})
	return user, err
}

func checkCollege(college string, year int) error {
	if strings.TrimSpace(college) == "" {
		return fmt.Errorf("%w: college is required", models.ErrInvalid)
	}
	if year < 1 || year > 10 {
		return fmt.Errorf("%w: year must be between 1 and 10", models.ErrInvalid)
	}
	return nil
}
