package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/apperr"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	exportSheet       = "Batch Payments"
	exportMaxColWidth = 50
	headerColor       = "366092"
)

var exportColumns = []string{
	"Student ID", "Student Name", "Email", "Phone", "Batch",
	"Total Amount", "Currency", "Payment Method", "Status",
	"First Installment Amount", "First Installment Date",
	"Second Installment Amount", "Second Installment Date",
	"Total Paid", "Remaining Amount", "Progress (%)", "Notes", "Created Date",
}

// ReportService renders ledgers into files: the batch spreadsheet export,
// payment receipts and ledger summaries.
type ReportService struct {
	ledgers   *LedgerService
	batchRepo BatchReader
	org       string
	now       func() time.Time
}

func NewReportService(ledgers *LedgerService, batchRepo BatchReader, org string) *ReportService {
	return &ReportService{
		ledgers:   ledgers,
		batchRepo: batchRepo,
		org:       org,
		now:       time.Now,
	}
}

// ExportFileName is batch_payments_<name>_<yyyymmdd>.xlsx.
func (s *ReportService) ExportFileName(batch *model.Batch) string {
	return fmt.Sprintf("batch_payments_%s_%s.xlsx", strings.ReplaceAll(batch.Name, " ", "_"), s.now().Format("20060102"))
}

// ExportBatch writes one row per active ledger of the batch, ordered by
// student code. It returns the batch so callers can name the file.
func (s *ReportService) ExportBatch(ctx context.Context, batchID uuid.UUID, w io.Writer) (*model.Batch, int, error) {
	batch, err := s.batchRepo.GetByID(ctx, batchID)
	if err != nil {
		return nil, 0, err
	}
	views, err := s.ledgers.LedgersOf(ctx, model.LedgerFilter{BatchID: &batchID})
	if err != nil {
		return nil, 0, err
	}
	if len(views) == 0 {
		return nil, 0, apperr.NotFound("payment records for batch", batch.Name)
	}
	sort.SliceStable(views, func(i, j int) bool {
		return studentCode(views[i].Ledger) < studentCode(views[j].Ledger)
	})

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return nil, 0, err
	}

	widths := make([]int, len(exportColumns))
	writeRow := func(n int, values []interface{}) error {
		for i, v := range values {
			if l := utf8.RuneCountInString(fmt.Sprint(v)); l > widths[i] {
				widths[i] = l
			}
		}
		ref, err := excelize.CoordinatesToCellName(1, n)
		if err != nil {
			return err
		}
		return f.SetSheetRow(exportSheet, ref, &values)
	}

	header := make([]interface{}, len(exportColumns))
	for i, c := range exportColumns {
		header[i] = c
	}
	if err := writeRow(1, header); err != nil {
		return nil, 0, err
	}
	for i, v := range views {
		if err := writeRow(i+2, exportRow(batch, v)); err != nil {
			return nil, 0, err
		}
	}

	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, 0, err
		}
		if err := f.SetColWidth(exportSheet, col, col, float64(min(width+2, exportMaxColWidth))); err != nil {
			return nil, 0, err
		}
	}
	if err := styleHeader(f, exportSheet, len(exportColumns)); err != nil {
		return nil, 0, err
	}
	if err := f.Write(w); err != nil {
		return nil, 0, err
	}
	return batch, len(views), nil
}

func exportRow(batch *model.Batch, v *model.LedgerView) []interface{} {
	var name, email, phone, currency string
	if st := v.Student; st != nil {
		name, email, phone = st.FullName(), st.Email, st.Phone
	}
	if v.Currency != nil {
		currency = v.Currency.Code
	}

	installment := func(i int) (float64, string) {
		if i >= len(v.Transactions) {
			return 0, ""
		}
		t := v.Transactions[i]
		return t.Amount.InexactFloat64(), t.PaidAt.Format("2006-01-02")
	}
	firstAmount, firstDate := installment(0)
	secondAmount, secondDate := installment(1)

	return []interface{}{
		studentCode(v.Ledger), name, email, phone, batch.Name,
		v.TargetAmount.InexactFloat64(), currency, label(string(v.Method)), label(string(v.Status)),
		firstAmount, firstDate,
		secondAmount, secondDate,
		v.TotalPaid.InexactFloat64(), v.RemainingAmount.InexactFloat64(),
		v.CompletionPercentage.Round(2).InexactFloat64(),
		v.Notes, v.CreatedAt.Format("2006-01-02"),
	}
}

// styleHeader paints the first row: bold white text on blue, centered.
func styleHeader(f *excelize.File, sheet string, columns int) error {
	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerColor}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(columns, 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

// Receipt renders a one-page PDF receipt for a posted transaction.
func (s *ReportService) Receipt(ctx context.Context, receipt string, w io.Writer) error {
	tx, view, err := s.ledgers.TransactionByReceipt(ctx, receipt)
	if err != nil {
		return err
	}

	pdf := s.newPDF("Payment Receipt " + tx.ReceiptNumber)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	s.pdfHeading(pdf, "Payment Receipt")

	code := currencyCode(view.Ledger)
	rows := [][2]string{
		{"Receipt No.", tx.ReceiptNumber},
		{"Date", tx.PaidAt.Format("2006-01-02 15:04")},
		{"Student", studentLine(view.Ledger)},
		{"Batch", batchName(view.Ledger)},
		{"Amount", money(code, tx.Amount)},
		{"Payment Method", label(string(tx.Method))},
	}
	if tx.Notes != "" {
		rows = append(rows, [2]string{"Notes", tx.Notes})
	}
	pdfTable(pdf, tr, rows)

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Account Summary", "", 1, "L", false, 0, "")
	pdfTable(pdf, tr, [][2]string{
		{"Total Amount", money(code, view.TargetAmount)},
		{"Total Paid", money(code, view.TotalPaid)},
		{"Remaining", money(code, view.RemainingAmount)},
		{"Status", label(string(view.Status))},
	})
	return pdf.Output(w)
}

// LedgerSummary renders a ledger with its full transaction history.
func (s *ReportService) LedgerSummary(ctx context.Context, ledgerID uuid.UUID, w io.Writer) error {
	view, err := s.ledgers.Get(ctx, ledgerID)
	if err != nil {
		return err
	}

	pdf := s.newPDF("Payment Summary " + studentCode(view.Ledger))
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	s.pdfHeading(pdf, "Payment Summary")

	code := currencyCode(view.Ledger)
	pdfTable(pdf, tr, [][2]string{
		{"Student", studentLine(view.Ledger)},
		{"Batch", batchName(view.Ledger)},
		{"Payment Method", label(string(view.Method))},
		{"Status", label(string(view.Status))},
		{"Total Amount", money(code, view.TargetAmount)},
		{"Total Paid", money(code, view.TotalPaid)},
		{"Remaining", money(code, view.RemainingAmount)},
		{"Progress", view.CompletionPercentage.StringFixed(2) + "%"},
	})

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Transactions", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(0x36, 0x60, 0x92)
	pdf.SetTextColor(255, 255, 255)
	widths := []float64{40, 35, 40, 35, 40}
	for i, h := range []string{"Receipt No.", "Date", "Method", "Amount", "Notes"} {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 9)
	if len(view.Transactions) == 0 {
		pdf.CellFormat(190, 7, "No payments recorded", "1", 1, "C", false, 0, "")
	}
	for _, t := range view.Transactions {
		pdf.CellFormat(widths[0], 7, t.ReceiptNumber, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, t.PaidAt.Format("2006-01-02"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[2], 7, label(string(t.Method)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[3], 7, money(code, t.Amount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 7, tr(truncate(t.Notes, 24)), "1", 1, "L", false, 0, "")
	}
	return pdf.Output(w)
}

func (s *ReportService) newPDF(title string) *fpdf.Fpdf {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreator(s.org, true)
	pdf.SetCreationDate(s.now())
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	return pdf
}

func (s *ReportService) pdfHeading(pdf *fpdf.Fpdf, title string) {
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(s.org), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 8, title, "", 1, "C", false, 0, "")
	pdf.Ln(4)
}

func pdfTable(pdf *fpdf.Fpdf, tr func(string) string, rows [][2]string) {
	for _, r := range rows {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(50, 7, r[0], "1", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(140, 7, tr(r[1]), "1", 1, "L", false, 0, "")
	}
}

// label turns an enum value like "bank_transfer" into "Bank Transfer".
func label(v string) string {
	words := strings.Split(v, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func money(code string, amount decimal.Decimal) string {
	return strings.TrimSpace(code + " " + amount.StringFixed(2))
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

func studentCode(l *model.Ledger) string {
	if l.Student == nil {
		return ""
	}
	return l.Student.StudentCode
}

func studentLine(l *model.Ledger) string {
	if l.Student == nil {
		return l.StudentID.String()
	}
	return fmt.Sprintf("%s (%s)", l.Student.FullName(), l.Student.StudentCode)
}

func batchName(l *model.Ledger) string {
	if l.Batch == nil {
		return l.BatchID.String()
	}
	return l.Batch.Name
}

func currencyCode(l *model.Ledger) string {
	if l.Currency == nil {
		return ""
	}
	return l.Currency.Code
}
