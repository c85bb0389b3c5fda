package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/internal/services"
	xhttp "github.com/nimasrn/academy-ledger/pkg/http"
)

type StudentService interface {
	EnrollStudent(ctx context.Context, req model.EnrollStudentRequest) (*model.EnrollmentResult, error)
	FindDuplicates(ctx context.Context, first, last, phone string) ([]*model.DuplicateMatch, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Student, error)
	List(ctx context.Context, f model.StudentFilter) ([]*model.Student, int64, error)
	Update(ctx context.Context, id uuid.UUID, req model.StudentUpdateRequest) (*model.Student, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Detail(ctx context.Context, id uuid.UUID) (*model.StudentDetail, error)
}

type StudentHandler struct {
	svc StudentService
}

func NewStudentHandler(svc StudentService) *StudentHandler {
	return &StudentHandler{svc: svc}
}

func RegisterStudentRoutes(e *router.Group, h *StudentHandler) {
	e.GET("/students", h.ListStudents)
	e.POST("/students", h.EnrollStudent)
	e.GET("/students/duplicates", h.FindDuplicates)
	e.GET("/students/{id}", h.GetStudent)
	e.PATCH("/students/{id}", h.UpdateStudent)
	e.DELETE("/students/{id}", h.DeleteStudent)
}

func (h *StudentHandler) ListStudents(ctx *xhttp.RequestCtx) {
	f := model.StudentFilter{
		BatchID: queryUUID(ctx, "batch_id"),
		Status:  model.StudentStatus(query(ctx, "status")),
		Search:  query(ctx, "q"),
	}
	f.Limit, f.Offset = paging(ctx)

	items, total, err := h.svc.List(ctx, f)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, listResponse[*model.Student]{Items: items, Total: total})
}

func (h *StudentHandler) EnrollStudent(ctx *xhttp.RequestCtx) {
	if !allow(ctx, services.ActionManageStudents) {
		return
	}
	var req model.EnrollStudentRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	req.EnrolledBy = actorID(ctx)

	res, err := h.svc.EnrollStudent(ctx, req)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, res)
}

// FindDuplicates is advisory; the enrollment form calls it before submitting.
func (h *StudentHandler) FindDuplicates(ctx *xhttp.RequestCtx) {
	matches, err := h.svc.FindDuplicates(ctx, query(ctx, "first_name"), query(ctx, "last_name"), query(ctx, "phone"))
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	if matches == nil {
		matches = []*model.DuplicateMatch{}
	}
	writeJSON(ctx, xhttp.StatusOK, map[string]any{"matches": matches})
}

func (h *StudentHandler) GetStudent(ctx *xhttp.RequestCtx) {
	id, ok := pathUUID(ctx, "id")
	if !ok {
		return
	}
	d, err := h.svc.Detail(ctx, id)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, d)
}

func (h *StudentHandler) UpdateStudent(ctx *xhttp.RequestCtx) {
	if !allow(ctx, services.ActionManageStudents) {
		return
	}
	id, ok := pathUUID(ctx, "id")
	if !ok {
		return
	}
	var req model.StudentUpdateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	s, err := h.svc.Update(ctx, id, req)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, s)
}

func (h *StudentHandler) DeleteStudent(ctx *xhttp.RequestCtx) {
	if !allow(ctx, services.ActionManageStudents) {
		return
	}
	id, ok := pathUUID(ctx, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(ctx, id); err != nil {
		writeAppError(ctx, err)
		return
	}
	ctx.SetStatusCode(xhttp.StatusNoContent)
}
