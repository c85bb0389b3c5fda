package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/internal/services"
	xhttp "github.com/nimasrn/academy-ledger/pkg/http"
)

type CatalogueService interface {
	CreateCurrency(ctx context.Context, c model.Currency) (*model.Currency, error)
	ListCurrencies(ctx context.Context) ([]*model.Currency, error)
	CreateFeeStructure(ctx context.Context, f model.FeeStructure) (*model.FeeStructure, error)
	GetFeeStructure(ctx context.Context, id uuid.UUID) (*model.FeeStructure, error)
	ListFeeStructures(ctx context.Context) ([]*model.FeeStructure, error)
	CreateAcademicYear(ctx context.Context, y model.AcademicYear) (*model.AcademicYear, error)
	ListAcademicYears(ctx context.Context) ([]*model.AcademicYear, error)
	SetCurrentAcademicYear(ctx context.Context, id uuid.UUID) error
	CreateSemester(ctx context.Context, sem model.Semester) (*model.Semester, error)
	ListSemesters(ctx context.Context, academicYearID *uuid.UUID) ([]*model.Semester, error)
	SetCurrentSemester(ctx context.Context, id uuid.UUID) error
	CreateCourse(ctx context.Context, c model.Course) (*model.Course, error)
	GetCourse(ctx context.Context, id uuid.UUID) (*model.Course, error)
	ListCourses(ctx context.Context) ([]*model.Course, error)
	CreateBatch(ctx context.Context, b model.Batch) (*model.Batch, error)
	GetBatch(ctx context.Context, id uuid.UUID) (*model.Batch, error)
	ListBatches(ctx context.Context, status model.BatchStatus) ([]*model.Batch, error)
}

type CatalogueHandler struct {
	svc CatalogueService
}

func NewCatalogueHandler(svc CatalogueService) *CatalogueHandler {
	return &CatalogueHandler{svc: svc}
}

func RegisterCatalogueRoutes(e *router.Group, h *CatalogueHandler) {
	e.GET("/currencies", h.ListCurrencies)
	e.POST("/currencies", h.CreateCurrency)

	e.GET("/fee-structures", h.ListFeeStructures)
	e.POST("/fee-structures", h.CreateFeeStructure)
	e.GET("/fee-structures/{id}", h.GetFeeStructure)

	e.GET("/academic-years", h.ListAcademicYears)
	e.POST("/academic-years", h.CreateAcademicYear)
	e.POST("/academic-years/{id}/current", h.SetCurrentAcademicYear)

	e.GET("/semesters", h.ListSemesters)
	e.POST("/semesters", h.CreateSemester)
	e.POST("/semesters/{id}/current", h.SetCurrentSemester)

	e.GET("/courses", h.ListCourses)
	e.POST("/courses", h.CreateCourse)
	e.GET("/courses/{id}", h.GetCourse)

	e.GET("/batches", h.ListBatches)
	e.POST("/batches", h.CreateBatch)
	e.GET("/batches/{id}", h.GetBatch)
}

// create decodes the body into T and hands it to fn, answering 201.
func create[T any, R any](ctx *xhttp.RequestCtx, action services.Action, fn func(context.Context, T) (R, error)) {
	if !allow(ctx, action) {
		return
	}
	var in T
	if err := readJSON(ctx, &in); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	out, err := fn(ctx, in)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, out)
}

func list[R any](ctx *xhttp.RequestCtx, items []R, err error) {
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	if items == nil {
		items = []R{}
	}
	writeJSON(ctx, xhttp.StatusOK, listResponse[R]{Items: items, Total: int64(len(items))})
}

func get[R any](ctx *xhttp.RequestCtx, fn func(context.Context, uuid.UUID) (R, error)) {
	id, ok := pathUUID(ctx, "id")
	if !ok {
		return
	}
	out, err := fn(ctx, id)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, out)
}

func setCurrent(ctx *xhttp.RequestCtx, fn func(context.Context, uuid.UUID) error) {
	if !allow(ctx, services.ActionManageCatalogue) {
		return
	}
	id, ok := pathUUID(ctx, "id")
	if !ok {
		return
	}
	if err := fn(ctx, id); err != nil {
		writeAppError(ctx, err)
		return
	}
	ctx.SetStatusCode(xhttp.StatusNoContent)
}

func (h *CatalogueHandler) ListCurrencies(ctx *xhttp.RequestCtx) {
	items, err := h.svc.ListCurrencies(ctx)
	list(ctx, items, err)
}

func (h *CatalogueHandler) CreateCurrency(ctx *xhttp.RequestCtx) {
	create(ctx, services.ActionManageCatalogue, h.svc.CreateCurrency)
}

func (h *CatalogueHandler) ListFeeStructures(ctx *xhttp.RequestCtx) {
	items, err := h.svc.ListFeeStructures(ctx)
	list(ctx, items, err)
}

func (h *CatalogueHandler) CreateFeeStructure(ctx *xhttp.RequestCtx) {
	create(ctx, services.ActionManageCatalogue, h.svc.CreateFeeStructure)
}

func (h *CatalogueHandler) GetFeeStructure(ctx *xhttp.RequestCtx) {
	get(ctx, h.svc.GetFeeStructure)
}

func (h *CatalogueHandler) ListAcademicYears(ctx *xhttp.RequestCtx) {
	items, err := h.svc.ListAcademicYears(ctx)
	list(ctx, items, err)
}

func (h *CatalogueHandler) CreateAcademicYear(ctx *xhttp.RequestCtx) {
	create(ctx, services.ActionManageCatalogue, h.svc.CreateAcademicYear)
}

func (h *CatalogueHandler) SetCurrentAcademicYear(ctx *xhttp.RequestCtx) {
	setCurrent(ctx, h.svc.SetCurrentAcademicYear)
}

func (h *CatalogueHandler) ListSemesters(ctx *xhttp.RequestCtx) {
	items, err := h.svc.ListSemesters(ctx, queryUUID(ctx, "academic_year_id"))
	list(ctx, items, err)
}

func (h *CatalogueHandler) CreateSemester(ctx *xhttp.RequestCtx) {
	create(ctx, services.ActionManageCatalogue, h.svc.CreateSemester)
}

func (h *CatalogueHandler) SetCurrentSemester(ctx *xhttp.RequestCtx) {
	setCurrent(ctx, h.svc.SetCurrentSemester)
}

func (h *CatalogueHandler) ListCourses(ctx *xhttp.RequestCtx) {
	items, err := h.svc.ListCourses(ctx)
	list(ctx, items, err)
}

func (h *CatalogueHandler) CreateCourse(ctx *xhttp.RequestCtx) {
	create(ctx, services.ActionManageCatalogue, h.svc.CreateCourse)
}

func (h *CatalogueHandler) GetCourse(ctx *xhttp.RequestCtx) {
	get(ctx, h.svc.GetCourse)
}

func (h *CatalogueHandler) ListBatches(ctx *xhttp.RequestCtx) {
	items, err := h.svc.ListBatches(ctx, model.BatchStatus(query(ctx, "status")))
	list(ctx, items, err)
}

func (h *CatalogueHandler) CreateBatch(ctx *xhttp.RequestCtx) {
	create(ctx, services.ActionManageBatches, h.svc.CreateBatch)
}

func (h *CatalogueHandler) GetBatch(ctx *xhttp.RequestCtx) {
	get(ctx, h.svc.GetBatch)
}
