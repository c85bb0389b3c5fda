package handlers

import (
	"context"
	"strings"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/internal/services"
	xhttp "github.com/nimasrn/academy-ledger/pkg/http"
)

type AuthService interface {
	Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error)
	Authenticate(ctx context.Context, token string) (*model.Actor, error)
	CreateUser(ctx context.Context, req model.CreateUserRequest) (*model.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req model.ProfileUpdateRequest) (*model.UserProfile, error)
}

type AuthHandler struct {
	svc AuthService
}

func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

func RegisterAuthRoutes(e *router.Group, h *AuthHandler) {
	e.POST("/auth/login", h.Login)
	e.GET("/auth/me", h.Me)
	e.POST("/users", h.CreateUser)
	e.PUT("/profile", h.UpdateProfile)
}

var publicPaths = []string{"/api/v1/health", "/api/v1/auth/login", "/metrics"}

// AuthMiddleware resolves the bearer token into an Actor stored on the
// request. Public paths pass through without a token.
func AuthMiddleware(svc AuthService) xhttp.MiddlewareFunc {
	return func(next xhttp.RequestHandler) xhttp.RequestHandler {
		return func(ctx *xhttp.RequestCtx) {
			path := string(ctx.Path())
			for _, p := range publicPaths {
				if strings.HasPrefix(path, p) {
					next(ctx)
					return
				}
			}
			if ctx.IsOptions() {
				next(ctx)
				return
			}

			token := bearerToken(ctx)
			if token == "" {
				writeAppError(ctx, services.ErrUnauthenticated)
				return
			}
			actor, err := svc.Authenticate(ctx, token)
			if err != nil {
				writeAppError(ctx, err)
				return
			}
			ctx.SetUserValue(actorKey, actor)
			next(ctx)
		}
	}
}

func (h *AuthHandler) Login(ctx *xhttp.RequestCtx) {
	var req model.LoginRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	resp, err := h.svc.Login(ctx, req)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, resp)
}

func (h *AuthHandler) Me(ctx *xhttp.RequestCtx) {
	a := actorOf(ctx)
	if a == nil {
		writeAppError(ctx, services.ErrUnauthenticated)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, a)
}

func (h *AuthHandler) CreateUser(ctx *xhttp.RequestCtx) {
	if !allow(ctx, services.ActionManageUsers) {
		return
	}
	var req model.CreateUserRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	u, err := h.svc.CreateUser(ctx, req)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, u)
}

func (h *AuthHandler) UpdateProfile(ctx *xhttp.RequestCtx) {
	if !allow(ctx, services.ActionEditOwnProfile) {
		return
	}
	var req model.ProfileUpdateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	p, err := h.svc.UpdateProfile(ctx, actorOf(ctx).UserID, req)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, p)
}
