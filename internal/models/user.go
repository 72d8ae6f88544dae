package models

import (
	"github.com/google/uuid"
)

// PlatformAccountID is the system user whose wallet holds platform commission.
var PlatformAccountID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// UserRole is the platform access role.
type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
	RoleGuest UserRole = "guest"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleGuest:
		return true
	}
	return false
}

// AppRole is what the user does in the marketplace.
type AppRole string

const (
	AppRoleStudent    AppRole = "student"
	AppRoleTaskPoster AppRole = "taskPoster"
	AppRoleBusiness   AppRole = "business"
)

func (r AppRole) Valid() bool {
	switch r {
	case AppRoleStudent, AppRoleTaskPoster, AppRoleBusiness:
		return true
	}
	return false
}

// IsProvider reports whether the role may post tasks and fund a deposit balance.
func (r AppRole) IsProvider() bool {
	return r == AppRoleTaskPoster || r == AppRoleBusiness
}

type User struct {
	ID                   uuid.UUID `json:"id"`
	Name                 string    `json:"name"`
	PhoneNumber          string    `json:"phone_number"`
	PasswordHash         string    `json:"-"`
	Role                 UserRole  `json:"role"`
	AppRole              AppRole   `json:"app_role,omitempty"`
	Verified             bool      `json:"verified"`
	PendingVerification  bool      `json:"pending_verification"`
	VerificationDocument *string   `json:"verification_document,omitempty"`
	College              string    `json:"college"`
	Year                 int       `json:"year"`
	PendingCollege       string    `json:"-"`
	PendingYear          int       `json:"-"`
	ProfilePicture       *string   `json:"profile_picture,omitempty"`
	DepositBalance       int64     `json:"deposit_balance"`
	WalletBalance        int64     `json:"wallet_balance"`
	IsSystemAccount      bool      `json:"-"`
	CreatedAt            int64     `json:"created_at"`
	UpdatedAt            int64     `json:"updated_at"`
}

// VerificationRequest is a pending college verification awaiting admin review.
type VerificationRequest struct {
	User                 uuid.UUID `json:"user"`
	Name                 string    `json:"name"`
	College              string    `json:"college"`
	Year                 int       `json:"year"`
	VerificationDocument string    `json:"verification_document"`
}

// Caller is the authenticated identity behind a request, resolved once at the
// request boundary and passed explicitly to every service operation.
type Caller struct {
	UserID  uuid.UUID
	Role    UserRole
	AppRole AppRole
}

func (c Caller) IsAdmin() bool { return c.Role == RoleAdmin }

// CallerFor builds the caller value for a stored user.
func CallerFor(u *User) Caller {
	return Caller{UserID: u.ID, Role: u.Role, AppRole: u.AppRole}
}
