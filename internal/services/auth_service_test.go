package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/apperr"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRole(t *testing.T) {
	tests := []struct {
		name string
		user *model.User
		want model.Role
	}{
		{"profile role", &model.User{Profile: &model.UserProfile{Role: model.RoleTeacher}}, model.RoleTeacher},
		{"profile role beats superuser", &model.User{IsSuperuser: true, Profile: &model.UserProfile{Role: model.RoleStaff}}, model.RoleStaff},
		{"unknown profile role", &model.User{IsSuperuser: true, Profile: &model.UserProfile{Role: "janitor"}}, model.RoleStudent},
		{"superuser without profile", &model.User{IsSuperuser: true}, model.RoleAdmin},
		{"plain user without profile", &model.User{}, model.RoleStudent},
		{"nil user", nil, model.RoleStudent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveRole(tt.user))
		})
	}
}

func TestAuthorize(t *testing.T) {
	actor := func(r model.Role) *model.Actor { return &model.Actor{UserID: uuid.New(), Role: r} }

	assert.NoError(t, Authorize(actor(model.RoleAdmin), ActionManageLedgers))
	assert.NoError(t, Authorize(actor(model.RoleTeacher), ActionRecordAcademics))
	assert.NoError(t, Authorize(actor(model.RoleStaff), ActionManageContacts))
	assert.NoError(t, Authorize(actor(model.RoleParent), ActionRead))

	err := Authorize(actor(model.RoleTeacher), ActionManageLedgers)
	var perr *apperr.PermissionError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "teacher", perr.Role)

	assert.Error(t, Authorize(actor(model.RoleStudent), ActionRecordAcademics))
	assert.Error(t, Authorize(actor(model.RoleTeacher), ActionManageContacts))
	assert.ErrorIs(t, Authorize(nil, ActionRead), ErrUnauthenticated)
}

func newAuthService(env *testEnv) *AuthService {
	return NewAuthService(env.users, auth.NewTokenIssuer("secret", "academy", time.Hour), env.outbox)
}

func TestAuthService_LoginAndAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	svc := newAuthService(env)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, model.CreateUserRequest{Username: "root", Password: "correct horse", IsSuperuser: true})
	require.NoError(t, err)

	resp, err := svc.Login(ctx, model.LoginRequest{Username: "root", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, resp.Role)
	assert.NotEmpty(t, resp.Token)
	require.NotNil(t, resp.User.LastLogin)

	actor, err := svc.Authenticate(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "root", actor.Username)
	assert.Equal(t, model.RoleAdmin, actor.Role)

	_, err = svc.Login(ctx, model.LoginRequest{Username: "root", Password: "wrong password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, model.LoginRequest{Username: "nobody", Password: "whatever1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	// no profile was written, so nothing is replicated
	assert.Empty(t, env.pendingEvents(t))
}

func TestAuthService_Profiles(t *testing.T) {
	env := newTestEnv(t)
	svc := newAuthService(env)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, model.CreateUserRequest{Username: "teacher1", Password: "password1", Role: model.RoleTeacher})
	require.NoError(t, err)
	require.NotNil(t, u.Profile)
	assert.Equal(t, model.RoleTeacher, ResolveRole(u))

	p, err := svc.UpdateProfile(ctx, u.ID, model.ProfileUpdateRequest{
		Bio:         ptr(" Teaches maths "),
		Preferences: map[string]any{"theme": "dark"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Teaches maths", p.Bio)
	assert.Equal(t, model.RoleTeacher, p.Role)
	assert.Equal(t, u.Profile.ID, p.ID)

	events := env.pendingEvents(t)
	require.Len(t, events, 2)
	assert.Equal(t, model.CollectionUserProfiles, events[1].Collection)
	assert.Equal(t, u.ID.String(), events[1].DocumentID)
	assert.Contains(t, string(events[1].Payload), `"theme":"dark"`)

	t.Run("profile created on first edit", func(t *testing.T) {
		plain, err := svc.CreateUser(ctx, model.CreateUserRequest{Username: "plain", Password: "password1"})
		require.NoError(t, err)
		p, err := svc.UpdateProfile(ctx, plain.ID, model.ProfileUpdateRequest{Phone: ptr("+8801711000000")})
		require.NoError(t, err)
		assert.Equal(t, model.RoleStudent, p.Role)
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, err := svc.CreateUser(ctx, model.CreateUserRequest{Username: "teacher1", Password: "password1"})
		var ierr *apperr.IntegrityError
		assert.True(t, errors.As(err, &ierr))
	})
}
