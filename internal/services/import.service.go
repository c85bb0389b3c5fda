package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/apperr"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/pkg/logger"
	"github.com/nimasrn/academy-ledger/pkg/prom"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	ColumnStudentID   = "Student ID"
	ColumnTotalAmount = "Total Amount"
	ColumnCurrencyID  = "Currency ID"
	ColumnNotes       = "Notes"

	TemplateFileName = "payment_template.xlsx"
)

var requiredImportColumns = []string{ColumnStudentID, ColumnTotalAmount}

type ImportRepository interface {
	Create(ctx context.Context, p *model.PaymentImport) (*model.PaymentImport, error)
	Finish(ctx context.Context, p *model.PaymentImport) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.PaymentImport, error)
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*model.PaymentImport, error)
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type StudentLookup interface {
	GetByCode(ctx context.Context, code string) (*model.Student, error)
}

// ImportService loads ledger targets for a whole batch from a spreadsheet.
type ImportService struct {
	importRepo   ImportRepository
	studentRepo  StudentLookup
	batchRepo    BatchReader
	currencyRepo CurrencyRepository
	ledgers      *LedgerService
}

func NewImportService(importRepo ImportRepository, studentRepo StudentLookup, batchRepo BatchReader, currencyRepo CurrencyRepository, ledgers *LedgerService) *ImportService {
	return &ImportService{
		importRepo:   importRepo,
		studentRepo:  studentRepo,
		batchRepo:    batchRepo,
		currencyRepo: currencyRepo,
		ledgers:      ledgers,
	}
}

// Import reads the first sheet and upserts one ledger per data row for the
// batch. A bad row is logged in the import record and never stops the others;
// a missing required column rejects the file before any row is touched.
func (s *ImportService) Import(ctx context.Context, batchID uuid.UUID, fileName string, r io.Reader, importedBy *uuid.UUID) (*model.PaymentImport, error) {
	batch, err := s.batchRepo.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}

	rows, err := readSheet(r)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.Validation("spreadsheet is empty")
	}
	columns := headerIndex(rows[0])
	var missing []string
	for _, col := range requiredImportColumns {
		if _, ok := columns[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, apperr.Validation("Missing required columns: %s", strings.Join(missing, ", "))
	}

	data := make([][]string, 0, len(rows)-1)
	lines := make([]int, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		data = append(data, row)
		lines = append(lines, i)
	}

	rec, err := s.importRepo.Create(ctx, &model.PaymentImport{
		BatchID:    batch.ID,
		FileName:   fileName,
		ImportedBy: importedBy,
		TotalRows:  len(data),
		Status:     model.ImportProcessing,
	})
	if err != nil {
		return nil, err
	}

	terms := ledgerTerms{
		Method:    model.MethodInstallments,
		Notes:     "Imported from " + fileName,
		CreatedBy: importedBy,
	}
	var errorLog []string
	for i, row := range data {
		// N is the 0-based data index + 2, the sheet row under a single header
		n := lines[i] + 2
		parsed := model.ImportRow{
			Row:         n,
			StudentCode: cell(row, columns, ColumnStudentID),
			Currency:    cell(row, columns, ColumnCurrencyID),
		}
		if err := s.importRow(ctx, batch, parsed, cell(row, columns, ColumnTotalAmount), terms); err != nil {
			errorLog = append(errorLog, fmt.Sprintf("Row %d: %s", n, err.Error()))
			rec.FailedImports++
			continue
		}
		rec.SuccessfulImports++
	}

	rec.Status = model.ImportCompleted
	rec.ErrorLog = strings.Join(errorLog, "\n")
	if err := s.importRepo.Finish(ctx, rec); err != nil {
		return nil, err
	}

	prom.AddImportRows(rec.SuccessfulImports, rec.FailedImports)
	logger.Info("payment import finished",
		"batch", batch.Code, "file", fileName,
		"succeeded", rec.SuccessfulImports, "failed", rec.FailedImports)
	return rec, nil
}

func (s *ImportService) importRow(ctx context.Context, batch *model.Batch, row model.ImportRow, rawTotal string, terms ledgerTerms) error {
	return s.importRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		student, err := s.studentRepo.GetByCode(ctx, row.StudentCode)
		if err != nil {
			if isNotFound(err) {
				return fmt.Errorf("Student ID '%s' not found", row.StudentCode)
			}
			return err
		}

		total, err := decimal.NewFromString(rawTotal)
		if err != nil {
			return fmt.Errorf("invalid %s %q", ColumnTotalAmount, rawTotal)
		}
		if total.IsNegative() {
			return fmt.Errorf("%s must not be negative", ColumnTotalAmount)
		}
		row.Total = total.Round(2)

		currency, err := s.importCurrency(ctx, row.Currency)
		if err != nil {
			return err
		}

		terms.Target = row.Total
		terms.CurrencyID = &currency.ID
		_, err = s.ledgers.upsertTerms(ctx, student.ID, batch.ID, terms)
		return err
	})
}

// importCurrency accepts a currency id or code; blank means the default.
func (s *ImportService) importCurrency(ctx context.Context, raw string) (*model.Currency, error) {
	var (
		c   *model.Currency
		err error
	)
	switch id, perr := uuid.Parse(raw); {
	case raw == "":
		c, err = s.currencyRepo.DefaultCurrency(ctx, s.ledgers.defaultCurrency)
	case perr == nil:
		c, err = s.currencyRepo.GetCurrency(ctx, id)
	default:
		c, err = s.currencyRepo.GetCurrencyByCode(ctx, raw)
	}
	if err != nil && isNotFound(err) {
		return nil, fmt.Errorf("currency '%s' not found", raw)
	}
	return c, err
}

func (s *ImportService) Get(ctx context.Context, id uuid.UUID) (*model.PaymentImport, error) {
	return s.importRepo.GetByID(ctx, id)
}

func (s *ImportService) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*model.PaymentImport, error) {
	return s.importRepo.ListByBatch(ctx, batchID)
}

// Template writes the sample import sheet with two example rows.
func (s *ImportService) Template(ctx context.Context, w io.Writer) error {
	currency, err := s.currencyRepo.DefaultCurrency(ctx, s.ledgers.defaultCurrency)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	rows := [][]interface{}{
		{ColumnStudentID, ColumnTotalAmount, ColumnCurrencyID, ColumnNotes},
		{"STU-2025-0001", 50000, currency.Code, "Payment for student"},
		{"STU-2025-0002", 75000, currency.Code, "Payment for student"},
	}
	for i, row := range rows {
		ref, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, ref, &row); err != nil {
			return err
		}
	}
	if err := styleHeader(f, sheet, len(rows[0])); err != nil {
		return err
	}
	return f.Write(w)
}

func readSheet(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperr.Validation("read spreadsheet: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0), excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, apperr.Validation("read spreadsheet: %v", err)
	}
	return rows, nil
}

func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := idx[h]; h != "" && !dup {
			idx[h] = i
		}
	}
	return idx
}

// cell returns the trimmed value of a named column, "" when the row is short
// or the column is absent.
func cell(row []string, columns map[string]int, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
