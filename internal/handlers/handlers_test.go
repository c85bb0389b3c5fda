package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/apperr"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/internal/services"
	xhttp "github.com/nimasrn/academy-ledger/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

var adminActor = &model.Actor{UserID: uuid.MustParse("7d1c3c55-9d54-4c38-8f43-1f5c8a0f0a01"), Username: "admin", Role: model.RoleAdmin}

func setupTestContext(method, path string, body []byte) *xhttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	if body != nil {
		ctx.Request.SetBody(body)
	}
	return ctx
}

// asActor sets the actor the auth middleware would have resolved.
func asActor(ctx *xhttp.RequestCtx, a *model.Actor) *xhttp.RequestCtx {
	ctx.SetUserValue(actorKey, a)
	return ctx
}

func withParam(ctx *xhttp.RequestCtx, name, value string) *xhttp.RequestCtx {
	ctx.SetUserValue(name, value)
	return ctx
}

func decodeError(t *testing.T, ctx *xhttp.RequestCtx) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	return resp
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LoginResponse), args.Error(1)
}

func (m *MockAuthService) Authenticate(ctx context.Context, token string) (*model.Actor, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Actor), args.Error(1)
}

func (m *MockAuthService) CreateUser(ctx context.Context, req model.CreateUserRequest) (*model.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockAuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, req model.ProfileUpdateRequest) (*model.UserProfile, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserProfile), args.Error(1)
}

func TestWriteAppError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", apperr.ValidationFields(map[string]string{"amount": "must be greater than zero"}), 400},
		{"not found", apperr.NotFound("student", "STU-2025-0001"), 404},
		{"permission", apperr.Permission("teacher", "manage payments"), 403},
		{"integrity", apperr.Integrity("receipt number already used", nil), 409},
		{"wrapped not found", errors.Join(errors.New("load"), apperr.NotFound("batch", "")), 404},
		{"bad credentials", services.ErrInvalidCredentials, 401},
		{"unauthenticated", services.ErrUnauthenticated, 401},
		{"unknown", errors.New("connection reset"), 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := setupTestContext("GET", "/", nil)
			writeAppError(ctx, tt.err)
			assert.Equal(t, tt.status, ctx.Response.StatusCode())
		})
	}

	t.Run("validation fields are returned", func(t *testing.T) {
		ctx := setupTestContext("GET", "/", nil)
		writeAppError(ctx, apperr.ValidationFields(map[string]string{"phone": "invalid phone number"}))
		assert.Equal(t, "invalid phone number", decodeError(t, ctx).Fields["phone"])
	})

	t.Run("internal errors are not leaked", func(t *testing.T) {
		ctx := setupTestContext("GET", "/", nil)
		writeAppError(ctx, errors.New("pq: password authentication failed"))
		assert.Equal(t, "Internal Server Error", decodeError(t, ctx).Error)
	})
}

func TestAuthMiddleware(t *testing.T) {
	reached := func(ctx *xhttp.RequestCtx) {
		writeJSON(ctx, 200, actorOf(ctx))
	}

	t.Run("public paths skip authentication", func(t *testing.T) {
		svc := new(MockAuthService)
		h := AuthMiddleware(svc)(reached)

		for _, p := range []string{"/api/v1/health", "/api/v1/auth/login"} {
			ctx := setupTestContext("GET", p, nil)
			h(ctx)
			assert.Equal(t, 200, ctx.Response.StatusCode(), p)
		}
		svc.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything)
	})

	t.Run("missing token", func(t *testing.T) {
		h := AuthMiddleware(new(MockAuthService))(reached)
		ctx := setupTestContext("GET", "/api/v1/students", nil)
		h(ctx)
		assert.Equal(t, 401, ctx.Response.StatusCode())
	})

	t.Run("valid token sets the actor", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("Authenticate", mock.Anything, "tok-123").Return(adminActor, nil)
		h := AuthMiddleware(svc)(reached)

		ctx := setupTestContext("GET", "/api/v1/students", nil)
		ctx.Request.Header.Set("Authorization", "Bearer tok-123")
		h(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		var a model.Actor
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &a))
		assert.Equal(t, "admin", a.Username)
		svc.AssertExpectations(t)
	})

	t.Run("rejected token", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("Authenticate", mock.Anything, "expired").Return(nil, services.ErrUnauthenticated)
		h := AuthMiddleware(svc)(reached)

		ctx := setupTestContext("GET", "/api/v1/ledgers", nil)
		ctx.Request.Header.Set("Authorization", "bearer expired")
		h(ctx)
		assert.Equal(t, 401, ctx.Response.StatusCode())
	})
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := new(MockAuthService)
		exp := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
		svc.On("Login", mock.Anything, model.LoginRequest{Username: "admin", Password: "secret123"}).
			Return(&model.LoginResponse{Token: "tok", ExpiresAt: exp, Role: model.RoleAdmin}, nil)

		ctx := setupTestContext("POST", "/api/v1/auth/login", []byte(`{"username":"admin","password":"secret123"}`))
		NewAuthHandler(svc).Login(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		var resp model.LoginResponse
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
		assert.Equal(t, "tok", resp.Token)
		svc.AssertExpectations(t)
	})

	t.Run("bad credentials", func(t *testing.T) {
		svc := new(MockAuthService)
		svc.On("Login", mock.Anything, mock.Anything).Return(nil, services.ErrInvalidCredentials)

		ctx := setupTestContext("POST", "/api/v1/auth/login", []byte(`{"username":"admin","password":"nope"}`))
		NewAuthHandler(svc).Login(ctx)
		assert.Equal(t, 401, ctx.Response.StatusCode())
	})

	t.Run("invalid JSON", func(t *testing.T) {
		ctx := setupTestContext("POST", "/api/v1/auth/login", []byte("invalid json"))
		NewAuthHandler(new(MockAuthService)).Login(ctx)
		assert.Equal(t, 400, ctx.Response.StatusCode())
		assert.Contains(t, decodeError(t, ctx).Error, "invalid JSON")
	})
}

func TestAuthHandler_CreateUserNeedsAdmin(t *testing.T) {
	svc := new(MockAuthService)
	ctx := asActor(setupTestContext("POST", "/api/v1/users", []byte(`{"username":"t1","password":"password1"}`)),
		&model.Actor{UserID: uuid.New(), Role: model.RoleTeacher})
	NewAuthHandler(svc).CreateUser(ctx)

	assert.Equal(t, 403, ctx.Response.StatusCode())
	svc.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
}

func TestAuthHandler_UpdateProfile(t *testing.T) {
	svc := new(MockAuthService)
	student := &model.Actor{UserID: uuid.New(), Role: model.RoleStudent}
	phone := "+8801712345678"
	svc.On("UpdateProfile", mock.Anything, student.UserID, mock.MatchedBy(func(r model.ProfileUpdateRequest) bool {
		return r.Phone != nil && *r.Phone == phone
	})).Return(&model.UserProfile{UserID: student.UserID, Phone: phone}, nil)

	ctx := asActor(setupTestContext("PUT", "/api/v1/profile", []byte(`{"phone":"+8801712345678"}`)), student)
	NewAuthHandler(svc).UpdateProfile(ctx)

	assert.Equal(t, 200, ctx.Response.StatusCode())
	svc.AssertExpectations(t)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		ctx := setupTestContext("GET", "/api/v1/health", nil)
		NewHealthHandler(map[string]Pinger{"postgres": stubPinger{}, "redis": stubPinger{}}).GetHealth(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		var resp healthResponse
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, "ok", resp.Checks["redis"])
	})

	t.Run("dependency down", func(t *testing.T) {
		ctx := setupTestContext("GET", "/api/v1/health", nil)
		NewHealthHandler(map[string]Pinger{"redis": stubPinger{err: errors.New("dial tcp: refused")}}).GetHealth(ctx)

		assert.Equal(t, 503, ctx.Response.StatusCode())
		var resp healthResponse
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
		assert.Equal(t, "unhealthy", resp.Status)
		assert.Equal(t, "dial tcp: refused", resp.Checks["redis"])
	})
}

func TestHelperFunctions(t *testing.T) {
	t.Run("readJSON", func(t *testing.T) {
		data := map[string]string{"key": "value"}
		bodyBytes, _ := json.Marshal(data)
		ctx := setupTestContext("POST", "/", bodyBytes)

		var result map[string]string
		err := readJSON(ctx, &result)
		require.NoError(t, err)
		assert.Equal(t, "value", result["key"])
	})

	t.Run("writeError", func(t *testing.T) {
		ctx := setupTestContext("GET", "/", nil)
		writeError(ctx, 404, "not found")

		assert.Equal(t, 404, ctx.Response.StatusCode())
		assert.Contains(t, string(ctx.Response.Header.Peek("Content-Type")), "application/json")
		assert.Equal(t, "not found", decodeError(t, ctx).Error)
	})

	t.Run("pathUUID", func(t *testing.T) {
		id := uuid.New()
		got, ok := pathUUID(withParam(setupTestContext("GET", "/", nil), "id", id.String()), "id")
		assert.True(t, ok)
		assert.Equal(t, id, got)

		ctx := withParam(setupTestContext("GET", "/", nil), "id", "42")
		_, ok = pathUUID(ctx, "id")
		assert.False(t, ok)
		assert.Equal(t, 400, ctx.Response.StatusCode())
	})

	t.Run("query helpers", func(t *testing.T) {
		id := uuid.New()
		ctx := setupTestContext("GET", "/?batch_id="+id.String()+"&student_id=bad&limit=20&offset=40&from=2025-01-31", nil)

		assert.Equal(t, id, *queryUUID(ctx, "batch_id"))
		assert.Nil(t, queryUUID(ctx, "student_id"))
		limit, offset := paging(ctx)
		assert.Equal(t, 20, limit)
		assert.Equal(t, 40, offset)
		assert.Equal(t, time.January, queryTime(ctx, "from").Month())
		assert.Nil(t, queryTime(ctx, "to"))
	})

	t.Run("parseTime", func(t *testing.T) {
		parsed, err := parseTime("2024-01-01T12:00:00Z")
		require.NoError(t, err)
		assert.Equal(t, 12, parsed.Hour())

		parsed, err = parseTime("2024-01-01")
		require.NoError(t, err)
		assert.Equal(t, 1, parsed.Day())

		_, err = parseTime("invalid")
		assert.Error(t, err)
	})

	t.Run("bearerToken", func(t *testing.T) {
		ctx := setupTestContext("GET", "/", nil)
		assert.Empty(t, bearerToken(ctx))
		ctx.Request.Header.Set("Authorization", "Bearer abc.def")
		assert.Equal(t, "abc.def", bearerToken(ctx))
		ctx.Request.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
		assert.Empty(t, bearerToken(ctx))
	})
}
