package model

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
	RoleParent  Role = "parent"
	RoleStaff   Role = "staff"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent, RoleParent, RoleStaff:
		return true
	}
	return false
}

type User struct {
	ID           uuid.UUID    `json:"id"`
	Username     string       `json:"username"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"`
	FirstName    string       `json:"first_name"`
	LastName     string       `json:"last_name"`
	IsSuperuser  bool         `json:"is_superuser"`
	IsActive     bool         `json:"is_active"`
	LastLogin    *time.Time   `json:"last_login,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	Profile      *UserProfile `json:"profile,omitempty"`
}

// UserProfile carries the role. A user without a profile is resolved by the
// fallback rules in services.ResolveRole.
type UserProfile struct {
	ID          uuid.UUID         `json:"id"`
	UserID      uuid.UUID         `json:"user_id"`
	Role        Role              `json:"role"`
	Phone       string            `json:"phone" validate:"phone"`
	Bio         string            `json:"bio" validate:"max=500"`
	SocialLinks map[string]string `json:"social_links,omitempty"`
	Preferences map[string]any    `json:"preferences,omitempty"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

type Actor struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Role     Role      `json:"role"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"notblank"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
	Role      Role      `json:"role"`
}

type CreateUserRequest struct {
	Username    string `json:"username" validate:"notblank,max=150"`
	Email       string `json:"email" validate:"omitempty,email"`
	Password    string `json:"password" validate:"required,min=8"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	IsSuperuser bool   `json:"is_superuser"`
	Role        Role   `json:"role" validate:"omitempty,oneof=admin teacher student parent staff"`
}

type ProfileUpdateRequest struct {
	Phone       *string           `json:"phone" validate:"omitempty,phone"`
	Bio         *string           `json:"bio" validate:"omitempty,max=500"`
	SocialLinks map[string]string `json:"social_links"`
	Preferences map[string]any    `json:"preferences"`
}
