package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/apperr"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/internal/outbox"
	"github.com/nimasrn/academy-ledger/internal/validation"
	"github.com/nimasrn/academy-ledger/pkg/auth"
	"github.com/nimasrn/academy-ledger/pkg/logger"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUnauthenticated    = errors.New("authentication required")
)

type Action string

const (
	ActionRead            Action = "read"
	ActionManageStudents  Action = "manage students"
	ActionManageTeachers  Action = "manage teachers"
	ActionManageBatches   Action = "manage batches"
	ActionManageLedgers   Action = "manage payments"
	ActionManageImports   Action = "import payments"
	ActionManageCatalogue Action = "manage catalogue"
	ActionRecordAcademics Action = "record grades and attendance"
	ActionManageContacts  Action = "manage contacts"
	ActionManageUsers     Action = "manage users"
	ActionEditOwnProfile  Action = "edit own profile"
)

// grants lists the roles allowed each action. Admin may do everything.
var grants = map[Action][]model.Role{
	ActionRead:            {model.RoleTeacher, model.RoleStudent, model.RoleParent, model.RoleStaff},
	ActionRecordAcademics: {model.RoleTeacher},
	ActionManageContacts:  {model.RoleStaff},
	ActionEditOwnProfile:  {model.RoleTeacher, model.RoleStudent, model.RoleParent, model.RoleStaff},
}

// ResolveRole is total: a profile with a known role wins, an unknown role
// falls back to student, and a user without a profile is admin only when
// superuser.
func ResolveRole(u *model.User) model.Role {
	switch {
	case u == nil:
		return model.RoleStudent
	case u.Profile != nil && u.Profile.Role.Valid():
		return u.Profile.Role
	case u.Profile != nil:
		return model.RoleStudent
	case u.IsSuperuser:
		return model.RoleAdmin
	}
	return model.RoleStudent
}

func Can(role model.Role, action Action) bool {
	if role == model.RoleAdmin {
		return true
	}
	for _, r := range grants[action] {
		if r == role {
			return true
		}
	}
	return false
}

// Authorize returns a PermissionError when the actor may not perform action.
func Authorize(actor *model.Actor, action Action) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	if !Can(actor.Role, action) {
		return apperr.Permission(string(actor.Role), string(action))
	}
	return nil
}

type UserRepository interface {
	Create(ctx context.Context, u *model.User) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	SaveProfile(ctx context.Context, p *model.UserProfile) (*model.UserProfile, error)
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type TokenIssuer interface {
	Issue(userID uuid.UUID, username string) (string, time.Time, error)
	Parse(raw string) (uuid.UUID, *auth.Claims, error)
}

type AuthService struct {
	userRepo   UserRepository
	tokens     TokenIssuer
	replicator Replicator
	now        func() time.Time
}

func NewAuthService(userRepo UserRepository, tokens TokenIssuer, replicator Replicator) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		tokens:     tokens,
		replicator: replicator,
		now:        time.Now,
	}
}

func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	u, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := auth.CheckPassword(u.PasswordHash, req.Password); err != nil {
		logger.Warn("login rejected", "username", u.Username)
		return nil, ErrInvalidCredentials
	}

	token, exp, err := s.tokens.Issue(u.ID, u.Username)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if err := s.userRepo.TouchLastLogin(ctx, u.ID, now); err != nil {
		logger.Warn("touch last login failed", "username", u.Username, "error", err)
	}
	u.LastLogin = &now

	return &model.LoginResponse{
		Token:     token,
		ExpiresAt: exp,
		User:      u,
		Role:      ResolveRole(u),
	}, nil
}

// Authenticate turns a bearer token into an actor. The role is resolved from
// the stored profile on every call.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.Actor, error) {
	id, _, err := s.tokens.Parse(token)
	if err != nil {
		return nil, ErrUnauthenticated
	}
	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	return &model.Actor{UserID: u.ID, Username: u.Username, Role: ResolveRole(u)}, nil
}

// CreateUser stores a user with a bcrypt hash. A profile is written only when
// a role is given; otherwise the fallback rules of ResolveRole apply.
func (s *AuthService) CreateUser(ctx context.Context, req model.CreateUserRequest) (*model.User, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	var created *model.User
	err = runAndReplicate(ctx, s.userRepo, s.replicator, func(ctx context.Context, buf *eventBuffer) error {
		u, err := s.userRepo.Create(ctx, &model.User{
			Username:     strings.TrimSpace(req.Username),
			Email:        strings.TrimSpace(req.Email),
			PasswordHash: hash,
			FirstName:    strings.TrimSpace(req.FirstName),
			LastName:     strings.TrimSpace(req.LastName),
			IsSuperuser:  req.IsSuperuser,
			IsActive:     true,
		})
		if err != nil {
			return err
		}
		created = u
		if req.Role == "" {
			return nil
		}
		p, err := s.userRepo.SaveProfile(ctx, &model.UserProfile{UserID: u.ID, Role: req.Role})
		if err != nil {
			return err
		}
		u.Profile = p
		buf.add(outbox.ProfileSaved(u, p))
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("user created", "username", created.Username, "role", ResolveRole(created))
	return created, nil
}

// UpdateProfile edits the profile of a user, creating it with the resolved
// role when missing. The role itself is not editable here.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, req model.ProfileUpdateRequest) (*model.UserProfile, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var saved *model.UserProfile
	err := runAndReplicate(ctx, s.userRepo, s.replicator, func(ctx context.Context, buf *eventBuffer) error {
		u, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return err
		}
		p := u.Profile
		if p == nil {
			p = &model.UserProfile{UserID: u.ID, Role: ResolveRole(u)}
		}
		if req.Phone != nil {
			p.Phone = strings.TrimSpace(*req.Phone)
		}
		if req.Bio != nil {
			p.Bio = strings.TrimSpace(*req.Bio)
		}
		if req.SocialLinks != nil {
			p.SocialLinks = req.SocialLinks
		}
		if req.Preferences != nil {
			p.Preferences = req.Preferences
		}
		p.UpdatedAt = s.now().UTC()
		// the upsert is keyed by user id; the stored row keeps its own id
		p.ID = uuid.Nil

		if saved, err = s.userRepo.SaveProfile(ctx, p); err != nil {
			return err
		}
		buf.add(outbox.ProfileSaved(u, saved))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}
