package handlers

import (
	"context"
	"time"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/internal/services"
	xhttp "github.com/nimasrn/academy-ledger/pkg/http"
)

type AcademicService interface {
	RecordGrade(ctx context.Context, g model.Grade) (*model.Grade, error)
	RecordAttendance(ctx context.Context, a model.Attendance) (*model.Attendance, error)
	GradesByBatch(ctx context.Context, batchID uuid.UUID, semesterID *uuid.UUID) ([]*model.Grade, error)
	AttendanceByBatch(ctx context.Context, batchID uuid.UUID, from, to *time.Time) ([]*model.Attendance, error)
}

type AcademicHandler struct {
	svc AcademicService
}

func NewAcademicHandler(svc AcademicService) *AcademicHandler {
	return &AcademicHandler{svc: svc}
}

func RegisterAcademicRoutes(e *router.Group, h *AcademicHandler) {
	e.POST("/grades", h.RecordGrade)
	e.POST("/attendance", h.RecordAttendance)
	e.GET("/batches/{id}/grades", h.GradesByBatch)
	e.GET("/batches/{id}/attendance", h.AttendanceByBatch)
}

func (h *AcademicHandler) RecordGrade(ctx *xhttp.RequestCtx) {
	if !allow(ctx, services.ActionRecordAcademics) {
		return
	}
	var g model.Grade
	if err := readJSON(ctx, &g); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if g.InstructorID == nil {
		g.InstructorID = actorID(ctx)
	}
	out, err := h.svc.RecordGrade(ctx, g)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, out)
}

func (h *AcademicHandler) RecordAttendance(ctx *xhttp.RequestCtx) {
	create(ctx, services.ActionRecordAcademics, h.svc.RecordAttendance)
}

func (h *AcademicHandler) GradesByBatch(ctx *xhttp.RequestCtx) {
	id, ok := pathUUID(ctx, "id")
	if !ok {
		return
	}
	items, err := h.svc.GradesByBatch(ctx, id, queryUUID(ctx, "semester_id"))
	list(ctx, items, err)
}

func (h *AcademicHandler) AttendanceByBatch(ctx *xhttp.RequestCtx) {
	id, ok := pathUUID(ctx, "id")
	if !ok {
		return
	}
	items, err := h.svc.AttendanceByBatch(ctx, id, queryTime(ctx, "from"), queryTime(ctx, "to"))
	list(ctx, items, err)
}
