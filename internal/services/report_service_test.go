package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nimasrn/academy-ledger/internal/apperr"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func (e *testEnv) reportService(ledgers *LedgerService) *ReportService {
	s := NewReportService(ledgers, e.batches, "Academy")
	s.now = func() time.Time { return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC) }
	return s
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Bank Transfer", label(string(model.PayBankTransfer)))
	assert.Equal(t, "Full Payment", label(string(model.MethodFullPayment)))
	assert.Equal(t, "Partial", label(string(model.LedgerPartial)))
	assert.Equal(t, "", label(""))
}

func TestReportService_ExportBatch(t *testing.T) {
	env := newTestEnv(t)
	ledgers := env.ledgerService()
	svc := env.reportService(ledgers)
	ctx := context.Background()

	second := env.addLedger(t, ledgers, "STU-2025-0002", "1000")
	env.addLedger(t, ledgers, "STU-2025-0001", "800")
	for _, amount := range []int64{300, 200} {
		_, err := ledgers.PostTransaction(ctx, model.PostTransactionRequest{
			LedgerID: second.ID, Amount: decimal.NewFromInt(amount), Method: model.PayBankTransfer,
		})
		require.NoError(t, err)
	}

	var buf bytes.Buffer
	batch, n, err := svc.ExportBatch(ctx, env.batch.ID, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "batch_payments_Spring_Batch_21_20250601.xlsx", svc.ExportFileName(batch))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, "Batch Payments", f.GetSheetName(0))

	rows, err := f.GetRows("Batch Payments")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, exportColumns, rows[0])

	// ordered by student code
	assert.Equal(t, "STU-2025-0001", rows[1][0])
	assert.Equal(t, "Pending", rows[1][8])

	row := rows[2]
	assert.Equal(t, "STU-2025-0002", row[0])
	assert.Equal(t, "Spring Batch 21", row[4])
	assert.Equal(t, "USD", row[6])
	assert.Equal(t, "Installments", row[7])
	assert.Equal(t, "Partial", row[8])
	assert.Equal(t, "300", row[9])
	assert.Equal(t, "200", row[11])
	assert.Equal(t, "500", row[13])
	assert.Equal(t, "500", row[14])
	assert.Equal(t, "50", row[15])

	width, err := f.GetColWidth("Batch Payments", "J")
	require.NoError(t, err)
	assert.Equal(t, float64(len("First Installment Amount")+2), width)
}

func TestReportService_ExportEmptyBatch(t *testing.T) {
	env := newTestEnv(t)
	svc := env.reportService(env.ledgerService())

	_, _, err := svc.ExportBatch(context.Background(), env.batch.ID, &bytes.Buffer{})
	var nf *apperr.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestReportService_PDFs(t *testing.T) {
	env := newTestEnv(t)
	ledgers := env.ledgerService()
	svc := env.reportService(ledgers)
	ctx := context.Background()

	view := env.addLedger(t, ledgers, "STU-2025-0001", "1000")
	res, err := ledgers.PostTransaction(ctx, model.PostTransactionRequest{
		LedgerID: view.ID, Amount: decimal.NewFromInt(250), Method: model.PayCash, Notes: "Tuition for March",
	})
	require.NoError(t, err)

	var receipt bytes.Buffer
	require.NoError(t, svc.Receipt(ctx, res.Transaction.ReceiptNumber, &receipt))
	assert.True(t, bytes.HasPrefix(receipt.Bytes(), []byte("%PDF-")))

	var summary bytes.Buffer
	require.NoError(t, svc.LedgerSummary(ctx, view.ID, &summary))
	assert.True(t, bytes.HasPrefix(summary.Bytes(), []byte("%PDF-")))

	err = svc.Receipt(ctx, "RCP-MISSING", &bytes.Buffer{})
	var nf *apperr.NotFoundError
	assert.True(t, errors.As(err, &nf))
}
