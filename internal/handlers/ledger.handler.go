package handlers

import (
	"bytes"
	"context"
	"io"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/internal/services"
	xhttp "github.com/nimasrn/academy-ledger/pkg/http"
)

const (
	contentTypePDF  = "application/pdf"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type LedgerService interface {
	Create(ctx context.Context, req model.LedgerCreateRequest) (*model.LedgerView, error)
	Get(ctx context.Context, id uuid.UUID) (*model.LedgerView, error)
	Update(ctx context.Context, id uuid.UUID, req model.LedgerUpdateRequest) (*model.LedgerView, error)
	Delete(ctx context.Context, id uuid.UUID) error
	PostTransaction(ctx context.Context, req model.PostTransactionRequest) (*model.PostTransactionResult, error)
	TransactionByReceipt(ctx context.Context, receipt string) (*model.Transaction, *model.LedgerView, error)
	Dashboard(ctx context.Context, f model.LedgerFilter) (*model.LedgerDashboard, error)
	BatchOverview(ctx context.Context, batchID uuid.UUID) (*model.BatchOverview, error)
}

type ReportService interface {
	ExportFileName(batch *model.Batch) string
	ExportBatch(ctx context.Context, batchID uuid.UUID, w io.Writer) (*model.Batch, int, error)
	Receipt(ctx context.Context, receipt string, w io.Writer) error
	LedgerSummary(ctx context.Context, ledgerID uuid.UUID, w io.Writer) error
}

type LedgerHandler struct {
	svc     LedgerService
	reports ReportService
}

func NewLedgerHandler(svc LedgerService, reports ReportService) *LedgerHandler {
	return &LedgerHandler{svc: svc, reports: reports}
}

func RegisterLedgerRoutes(e *router.Group, h *LedgerHandler) {
	e.GET("/ledgers", h.Dashboard)
	e.POST("/ledgers", h.CreateLedger)
	e.GET("/ledgers/{id}", h.GetLedger)
	e.PATCH("/ledgers/{id}", h.UpdateLedger)
	e.DELETE("/ledgers/{id}", h.DeleteLedger)
	e.POST("/ledgers/{id}/transactions", h.PostTransaction)
	e.GET("/ledgers/{id}/summary.pdf", h.LedgerSummaryPDF)

	e.GET("/receipts/{receipt}", h.GetReceipt)
	e.GET("/receipts/{receipt}/pdf", h.ReceiptPDF)

	e.GET("/batches/{id}/overview", h.BatchOverview)
	e.GET("/batches/{id}/export", h.ExportBatch)
}

type receiptResponse struct {
	Transaction *model.Transaction `json:"transaction"`
	Ledger      *model.LedgerView  `json:"ledger"`
}

func (h *LedgerHandler) Dashboard(ctx *xhttp.RequestCtx) {
	f := model.LedgerFilter{
		BatchID:   queryUUID(ctx, "batch_id"),
		StudentID: queryUUID(ctx, "student_id"),
		Status:    model.LedgerStatus(query(ctx, "status")),
		Search:    query(ctx, "q"),
	}
	f.Limit, f.Offset = paging(ctx)

	d, err := h.svc.Dashboard(ctx, f)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, d)
}

func (h *LedgerHandler) CreateLedger(ctx *xhttp.RequestCtx) {
	if !allow(ctx, services.ActionManageLedgers) {
		return
	}
	var req model.LedgerCreateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	req.CreatedBy = actorID(ctx)

	v, err := h.svc.Create(ctx, req)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, v)
}

func (h *LedgerHandler) GetLedger(ctx *xhttp.RequestCtx) {
	id, ok := pathUUID(ctx, "id")
	if !ok {
		return
	}
	v, err := h.svc.Get(ctx, id)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, v)
}

func (h *LedgerHandler) UpdateLedger(ctx *xhttp.RequestCtx) {
	if !allow(ctx, services.ActionManageLedgers) {
		return
	}
	id, ok := pathUUID(ctx, "id")
	if !ok {
		return
	}
	var req model.LedgerUpdateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	v, err := h.svc.Update(ctx, id, req)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, v)
}

func (h *LedgerHandler) DeleteLedger(ctx *xhttp.RequestCtx) {
	if !allow(ctx, services.ActionManageLedgers) {
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

func (h *LedgerHandler) PostTransaction(ctx *xhttp.RequestCtx) {
	if !allow(ctx, services.ActionManageLedgers) {
		return
	}
	id, ok := pathUUID(ctx, "id")
	if !ok {
		return
	}
	var req model.PostTransactionRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	req.LedgerID = id
	req.ProcessedBy = actorID(ctx)

	res, err := h.svc.PostTransaction(ctx, req)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, res)
}

func (h *LedgerHandler) GetReceipt(ctx *xhttp.RequestCtx) {
	tx, ledger, err := h.svc.TransactionByReceipt(ctx, pathString(ctx, "receipt"))
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, receiptResponse{Transaction: tx, Ledger: ledger})
}

func (h *LedgerHandler) ReceiptPDF(ctx *xhttp.RequestCtx) {
	receipt := pathString(ctx, "receipt")
	var buf bytes.Buffer
	if err := h.reports.Receipt(ctx, receipt, &buf); err != nil {
		writeAppError(ctx, err)
		return
	}
	writeFile(ctx, contentTypePDF, "receipt_"+receipt+".pdf", buf.Bytes())
}

func (h *LedgerHandler) LedgerSummaryPDF(ctx *xhttp.RequestCtx) {
	id, ok := pathUUID(ctx, "id")
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.reports.LedgerSummary(ctx, id, &buf); err != nil {
		writeAppError(ctx, err)
		return
	}
	writeFile(ctx, contentTypePDF, "payment_summary_"+id.String()+".pdf", buf.Bytes())
}

func (h *LedgerHandler) BatchOverview(ctx *xhttp.RequestCtx) {
	id, ok := pathUUID(ctx, "id")
	if !ok {
		return
	}
	o, err := h.svc.BatchOverview(ctx, id)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, o)
}

func (h *LedgerHandler) ExportBatch(ctx *xhttp.RequestCtx) {
	id, ok := pathUUID(ctx, "id")
	if !ok {
		return
	}
	var buf bytes.Buffer
	batch, _, err := h.reports.ExportBatch(ctx, id, &buf)
	if err != nil {
		writeAppError(ctx, err)
		return
	}
	writeFile(ctx, contentTypeXLSX, h.reports.ExportFileName(batch), buf.Bytes())
}
