package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/campusearn/backend/internal/models"
)

func TestSaveProfile(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	c := h.addUser("", models.RoleUser, 0, 0)

	u, err := h.profiles.SaveProfile(ctx, c, ProfileUpdate{Name: " Asha ", PhoneNumber: "9000000001", AppRole: models.AppRoleStudent})
	if err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
	if u.Name != "Asha" || u.AppRole != models.AppRoleStudent {
		t.Errorf("got name %q app role %q", u.Name, u.AppRole)
	}

	// Same role again is fine; switching is not.
	if _, err := h.profiles.SaveProfile(ctx, c, ProfileUpdate{Name: "Asha R", PhoneNumber: "9000000001", AppRole: models.AppRoleStudent}); err != nil {
		t.Errorf("resave: %v", err)
	}
	if _, err := h.profiles.SaveProfile(ctx, c, ProfileUpdate{Name: "Asha", PhoneNumber: "9000000001", AppRole: models.AppRoleBusiness}); !errors.Is(err, models.ErrConflict) {
		t.Errorf("role switch: got %v, want ErrConflict", err)
	}
	if _, err := h.profiles.SaveProfile(ctx, c, ProfileUpdate{Name: "", PhoneNumber: "1"}); !errors.Is(err, models.ErrInvalid) {
		t.Errorf("empty name: got %v, want ErrInvalid", err)
	}
}

func TestGetProfile_Visibility(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := h.student()
	other := h.student()

	if _, err := h.profiles.Get(ctx, s, s.UserID); err != nil {
		t.Errorf("self: %v", err)
	}
	if _, err := h.profiles.Get(ctx, other, s.UserID); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("other user: got %v, want ErrForbidden", err)
	}
	if _, err := h.profiles.Get(ctx, h.admin(), s.UserID); err != nil {
		t.Errorf("admin: %v", err)
	}
	if _, err := h.profiles.Get(ctx, h.admin(), models.PlatformAccountID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("platform account: got %v, want ErrNotFound", err)
	}
}

func TestVerificationFlow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := h.student()
	a := h.admin()

	if _, err := h.profiles.UpdateCollege(ctx, s, "IIT Madras", 2); err != nil {
		t.Fatalf("UpdateCollege: %v", err)
	}
	u, _ := h.users.GetByID(ctx, s.UserID)
	if u.College != "" {
		t.Errorf("college changed before verification: %q", u.College)
	}

	if _, err := h.profiles.SubmitVerification(ctx, s, "IIT Madras", 2, "blob:idcard"); err != nil {
		t.Fatalf("SubmitVerification: %v", err)
	}
	if _, err := h.profiles.SubmitVerification(ctx, s, "IIT Madras", 2, "blob:idcard"); !errors.Is(err, models.ErrConflict) {
		t.Errorf("second submission: got %v, want ErrConflict", err)
	}

	pending, err := h.profiles.PendingVerifications(ctx, a)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].User != s.UserID || pending[0].VerificationDocument != "blob:idcard" {
		t.Fatalf("pending: got %+v", pending)
	}

	u, err = h.profiles.VerifyUser(ctx, a, s.UserID, true)
	if err != nil {
		t.Fatalf("VerifyUser: %v", err)
	}
	if !u.Verified || u.College != "IIT Madras" || u.Year != 2 || u.PendingVerification {
		t.Errorf("after approval: %+v", u)
	}
	if _, err := h.profiles.VerifyUser(ctx, a, s.UserID, true); !errors.Is(err, models.ErrConflict) {
		t.Errorf("nothing pending: got %v, want ErrConflict", err)
	}
}

func TestVerificationRejected(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := h.student()
	if _, err := h.profiles.SubmitVerification(ctx, s, "NIT Trichy", 3, "blob:doc"); err != nil {
		t.Fatal(err)
	}
	u, err := h.profiles.VerifyUser(ctx, h.admin(), s.UserID, false)
	if err != nil {
		t.Fatal(err)
	}
	if u.Verified || u.College != "" || u.PendingVerification {
		t.Errorf("after rejection: %+v", u)
	}
}

func TestSubmitVerification_Validation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	tests := []struct {
		name    string
		caller  models.Caller
		college string
		year    int
		doc     string
		want    error
	}{
		{"provider", h.provider(0), "X", 1, "d", models.ErrForbidden},
		{"no college", h.student(), " ", 1, "d", models.ErrInvalid},
		{"year zero", h.student(), "X", 0, "d", models.ErrInvalid},
		{"year too high", h.student(), "X", 11, "d", models.ErrInvalid},
		{"no document", h.student(), "X", 1, "", models.ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.profiles.SubmitVerification(ctx, tt.caller, tt.college, tt.year, tt.doc); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAssignRole(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := h.student()
	a := h.admin()

	if err := h.profiles.AssignRole(ctx, s, s.UserID, models.RoleAdmin); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("self-promotion: got %v, want ErrForbidden", err)
	}
	if err := h.profiles.AssignRole(ctx, a, s.UserID, "root"); !errors.Is(err, models.ErrInvalid) {
		t.Errorf("bad role: got %v, want ErrInvalid", err)
	}
	if err := h.profiles.AssignRole(ctx, a, uuid.New(), models.RoleGuest); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("unknown user: got %v, want ErrNotFound", err)
	}
	if err := h.profiles.AssignRole(ctx, a, s.UserID, models.RoleAdmin); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}
	u, _ := h.users.GetByID(ctx, s.UserID)
	if u.Role != models.RoleAdmin {
		t.Errorf("role: got %s, want admin", u.Role)
	}
}

func TestUploadPicture(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	s := h.student()
	u, err := h.profiles.UploadPicture(ctx, s, "blob:avatar")
	if err != nil {
		t.Fatal(err)
	}
	if u.ProfilePicture == nil || *u.ProfilePicture != "blob:avatar" {
		t.Errorf("picture: got %v", u.ProfilePicture)
	}
	if _, err := h.profiles.UploadPicture(ctx, s, ""); !errors.Is(err, models.ErrInvalid) {
		t.Errorf("empty ref: got %v, want ErrInvalid", err)
	}
}
