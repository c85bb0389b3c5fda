package repository

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/pkg/pg"
	"gorm.io/datatypes"
)

type UserEntity struct {
	pg.Model
	Username     string     `gorm:"column:username;size:150;not null;uniqueIndex"`
	Email        string     `gorm:"column:email;size:254"`
	PasswordHash string     `gorm:"column:password;size:128;not null"`
	FirstName    string     `gorm:"column:first_name;size:150"`
	LastName     string     `gorm:"column:last_name;size:150"`
	IsSuperuser  bool       `gorm:"column:is_superuser;not null"`
	LastLogin    *time.Time `gorm:"column:last_login"`

	Profile *UserProfileEntity `gorm:"foreignKey:UserID"`
}

func (UserEntity) TableName() string {
	return "users"
}

func toUserEntity(m *model.User) *UserEntity {
	return &UserEntity{
		Model:        pg.Model{ID: m.ID, CreatedAt: m.CreatedAt, IsActive: m.IsActive},
		Username:     m.Username,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		IsSuperuser:  m.IsSuperuser,
		LastLogin:    m.LastLogin,
	}
}

func toUserModel(e *UserEntity) *model.User {
	if e == nil {
		return nil
	}
	return &model.User{
		ID:           e.ID,
		Username:     e.Username,
		Email:        e.Email,
		PasswordHash: e.PasswordHash,
		FirstName:    e.FirstName,
		LastName:     e.LastName,
		IsSuperuser:  e.IsSuperuser,
		IsActive:     e.IsActive,
		LastLogin:    e.LastLogin,
		CreatedAt:    e.CreatedAt,
		Profile:      toUserProfileModel(e.Profile),
	}
}

type UserProfileEntity struct {
	pg.Model
	UserID      uuid.UUID         `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Role        string            `gorm:"column:role;size:20;not null;default:student"`
	Phone       string            `gorm:"column:phone;size:17"`
	Bio         string            `gorm:"column:bio;size:500"`
	SocialLinks datatypes.JSON    `gorm:"column:social_links"`
	Preferences datatypes.JSONMap `gorm:"column:preferences"`
}

func (UserProfileEntity) TableName() string {
	return "user_profiles"
}

func toUserProfileEntity(m *model.UserProfile) *UserProfileEntity {
	e := &UserProfileEntity{
		Model:       pg.Model{ID: m.ID, UpdatedAt: m.UpdatedAt},
		UserID:      m.UserID,
		Role:        string(m.Role),
		Phone:       m.Phone,
		Bio:         m.Bio,
		Preferences: datatypes.JSONMap(m.Preferences),
	}
	if len(m.SocialLinks) > 0 {
		raw, _ := json.Marshal(m.SocialLinks)
		e.SocialLinks = datatypes.JSON(raw)
	}
	return e
}

func toUserProfileModel(e *UserProfileEntity) *model.UserProfile {
	if e == nil {
		return nil
	}
	m := &model.UserProfile{
		ID:          e.ID,
		UserID:      e.UserID,
		Role:        model.Role(e.Role),
		Phone:       e.Phone,
		Bio:         e.Bio,
		Preferences: map[string]any(e.Preferences),
		UpdatedAt:   e.UpdatedAt,
	}
	if len(e.SocialLinks) > 0 {
		_ = json.Unmarshal(e.SocialLinks, &m.SocialLinks)
	}
	return m
}
