package identity

import (
	"time"

	"github.com/medipay/medipay/internal/platform/auth"
)

// User is a dashboard account. Role never changes after registration.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Role          auth.Role `json:"role"`
	Avatar        string    `json:"avatar,omitempty"`
	InstitutionID string    `json:"institution_id,omitempty"`
}

// Principal converts u into the request principal for sessionID.
func (u User) Principal(sessionID string) auth.Principal {
	return auth.Principal{
		SessionID:     sessionID,
		UserID:        u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Role:          u.Role,
		InstitutionID: u.InstitutionID,
	}
}

// Credential is a directory entry: the user plus the bcrypt hash of its
// password.
type Credential struct {
	User         User
	PasswordHash []byte
}

// Session is the result of a successful login or registration.
type Session struct {
	ID              string    `json:"session_id"`
	Token           string    `json:"token"`
	ExpiresAt       time.Time `json:"expires_at"`
	User            User      `json:"user"`
	IsAuthenticated bool      `json:"is_authenticated"`
}

// ProfileUpdate carries the fields a user may change. Nil fields are left
// untouched.
type ProfileUpdate struct {
	Name   *string `json:"name,omitempty"`
	Email  *string `json:"email,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Role     string `json:"role,omitempty" form:"role"`
}

type RegisterRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Name     string `json:"name" form:"name"`
	Role     string `json:"role" form:"role"`
}
