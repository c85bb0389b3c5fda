package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/internal/services"
	xhttp "github.com/nimasrn/academy-ledger/pkg/http"
)

type TeacherService interface {
	Create(ctx context.Context, t model.Teacher) (*model.Teacher, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Teacher, error)
	List(ctx context.Context, search string, limit, offset int) ([]*model.Teacher, int64, error)
}

type TeacherHandler struct {
	svc TeacherService
}

func NewTeacherHandler(svc TeacherService) *TeacherHandler {
	return &TeacherHandler{svc: svc}
}

func RegisterTeacherRoutes(e *router.Group, h *TeacherHandler) {
	e.GET("/teachers", h.ListTeachers)
	e.POST("/teachers", h.CreateTeacher)
	e.GET("/teachers/{id}", h.GetTeacher)
}

func (h *TeacherHandler) ListTeachers(ctx *xhttp.RequestCtx) {
	limit, offset := paging(ctx)
	items, total, err := h.svc.List(ctx, query(ctx, "q"), limit, offset)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, listResponse[*model.Teacher]{Items: items, Total: total})
}

func (h *TeacherHandler) CreateTeacher(ctx *xhttp.RequestCtx) {
	if !allow(ctx, services.ActionManageTeachers) {
		return
	}
	var t model.Teacher
	if err := readJSON(ctx, &t); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	created, err := h.svc.Create(ctx, t)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, created)
}

func (h *TeacherHandler) GetTeacher(ctx *xhttp.RequestCtx) {
	id, ok := pathUUID(ctx, "id")
	if !ok {
		return
	}
	t, err := h.svc.Get(ctx, id)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, t)
}
