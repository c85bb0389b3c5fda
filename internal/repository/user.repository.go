package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/pkg/pg"
	"gorm.io/gorm/clause"
)

const (
	userEntity    = "user"
	profileEntity = "user profile"
)

type UserRepository struct {
	*pg.DB
}

func NewUserRepository(db *pg.DB) *UserRepository {
	return &UserRepository{
		db,
	}
}

func (r *UserRepository) Create(ctx context.Context, u *model.User) (*model.User, error) {
	entity := toUserEntity(u)
	if err := r.Write(ctx).WithContext(ctx).Omit(clause.Associations).Create(entity).Error; err != nil {
		return nil, translate(err, userEntity, u.Username)
	}
	return toUserModel(entity), nil
}

// GetByUsername loads an active user with its profile, if any.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var entity UserEntity
	err := r.Read(ctx).WithContext(ctx).
		Preload("Profile").
		Where("username = ? AND is_active = ?", username, true).
		First(&entity).
		Error
	if err != nil {
		return nil, translate(err, userEntity, username)
	}
	return toUserModel(&entity), nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var entity UserEntity
	err := r.Read(ctx).WithContext(ctx).
		Preload("Profile").
		Where("id = ? AND is_active = ?", id, true).
		First(&entity).
		Error
	if err != nil {
		return nil, translate(err, userEntity, id.String())
	}
	return toUserModel(&entity), nil
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	err := r.Write(ctx).WithContext(ctx).
		Model(&UserEntity{}).
		Where("id = ?", id).
		UpdateColumn("last_login", at).
		Error
	return translate(err, userEntity, id.String())
}

// SaveProfile inserts the profile or replaces the existing one for the user.
func (r *UserRepository) SaveProfile(ctx context.Context, p *model.UserProfile) (*model.UserProfile, error) {
	entity := toUserProfileEntity(p)

	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role", "phone", "bio", "social_links", "preferences", "updated_at"}),
		}).
		Create(entity).
		Error
	if err != nil {
		return nil, translate(err, profileEntity, p.UserID.String())
	}

	var stored UserProfileEntity
	if err := r.Write(ctx).WithContext(ctx).Where("user_id = ?", p.UserID).First(&stored).Error; err != nil {
		return nil, translate(err, profileEntity, p.UserID.String())
	}
	return toUserProfileModel(&stored), nil
}
