package handlers

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/internal/services"
	xhttp "github.com/nimasrn/academy-ledger/pkg/http"
)

const uploadField = "file"

type ImportService interface {
	Import(ctx context.Context, batchID uuid.UUID, fileName string, r io.Reader, importedBy *uuid.UUID) (*model.PaymentImport, error)
	Get(ctx context.Context, id uuid.UUID) (*model.PaymentImport, error)
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*model.PaymentImport, error)
	Template(ctx context.Context, w io.Writer) error
}

type ImportHandler struct {
	svc ImportService
}

func NewImportHandler(svc ImportService) *ImportHandler {
	return &ImportHandler{svc: svc}
}

func RegisterImportRoutes(e *router.Group, h *ImportHandler) {
	e.GET("/imports/template", h.Template)
	e.GET("/imports/{id}", h.GetImport)
	e.GET("/batches/{id}/imports", h.ListImports)
	e.POST("/batches/{id}/imports", h.Upload)
}

// Upload takes a multipart spreadsheet under the "file" field.
func (h *ImportHandler) Upload(ctx *xhttp.RequestCtx) {
	if !allow(ctx, services.ActionManageImports) {
		return
	}
	batchID, ok := pathUUID(ctx, "id")
	if !ok {
		return
	}
	fh, err := ctx.FormFile(uploadField)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "a spreadsheet is required in the \"file\" field")
		return
	}
	if ext := strings.ToLower(filepath.Ext(fh.Filename)); ext != ".xlsx" && ext != ".xlsm" {
		writeError(ctx, xhttp.StatusBadRequest, "only .xlsx spreadsheets are accepted")
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	defer f.Close()

	rec, err := h.svc.Import(ctx, batchID, fh.Filename, f, actorID(ctx))
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, rec)
}

func (h *ImportHandler) GetImport(ctx *xhttp.RequestCtx) {
	get(ctx, h.svc.Get)
}

func (h *ImportHandler) ListImports(ctx *xhttp.RequestCtx) {
	id, ok := pathUUID(ctx, "id")
	if !ok {
		return
	}
	items, err := h.svc.ListByBatch(ctx, id)
	list(ctx, items, err)
}

func (h *ImportHandler) Template(ctx *xhttp.RequestCtx) {
	var buf bytes.Buffer
	if err := h.svc.Template(ctx, &buf); err != nil {
		writeAppError(ctx, err)
		return
	}
	writeFile(ctx, contentTypeXLSX, "payment_import_template.xlsx", buf.Bytes())
}
