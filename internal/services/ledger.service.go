package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/apperr"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/internal/outbox"
	"github.com/nimasrn/academy-ledger/internal/validation"
	"github.com/nimasrn/academy-ledger/pkg/logger"
	"github.com/nimasrn/academy-ledger/pkg/prom"
	"github.com/shopspring/decimal"
)

type LedgerRepository interface {
	Create(ctx context.Context, l *model.Ledger) (*model.Ledger, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Ledger, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Ledger, error)
	FindByStudentBatch(ctx context.Context, studentID, batchID uuid.UUID) (*model.Ledger, error)
	Update(ctx context.Context, l *model.Ledger) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.LedgerStatus) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f model.LedgerFilter) ([]*model.Ledger, int64, error) // results, totalCount
	CountByStatus(ctx context.Context, f model.LedgerFilter) (map[model.LedgerStatus]int64, error)
	ListAll(ctx context.Context, f model.LedgerFilter) ([]*model.Ledger, error)
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type TransactionRepository interface {
	Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error)
	GetByReceipt(ctx context.Context, receipt string) (*model.Transaction, error)
	ListByLedger(ctx context.Context, ledgerID uuid.UUID) ([]*model.Transaction, error)
	ListByLedgers(ctx context.Context, ledgerIDs []uuid.UUID) (map[uuid.UUID][]*model.Transaction, error)
	SumActive(ctx context.Context, ledgerID uuid.UUID) (decimal.Decimal, error)
	RecentByStudent(ctx context.Context, studentID uuid.UUID, limit int) ([]*model.Transaction, error)
	DeactivateByLedger(ctx context.Context, ledgerID uuid.UUID) (int64, error)
}

type CurrencyRepository interface {
	GetCurrency(ctx context.Context, id uuid.UUID) (*model.Currency, error)
	GetCurrencyByCode(ctx context.Context, code string) (*model.Currency, error)
	DefaultCurrency(ctx context.Context, fallbackCode string) (*model.Currency, error)
}

type StudentReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Student, error)
}

type BatchReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Batch, error)
}

const firstInstallmentNote = "First installment payment"

type LedgerService struct {
	ledgerRepo      LedgerRepository
	transactionRepo TransactionRepository
	currencyRepo    CurrencyRepository
	studentRepo     StudentReader
	batchRepo       BatchReader
	replicator      Replicator
	defaultCurrency string
	now             func() time.Time
}

func NewLedgerService(ledgerRepo LedgerRepository, transactionRepo TransactionRepository, currencyRepo CurrencyRepository, studentRepo StudentReader, batchRepo BatchReader, replicator Replicator, defaultCurrency string) *LedgerService {
	return &LedgerService{
		ledgerRepo:      ledgerRepo,
		transactionRepo: transactionRepo,
		currencyRepo:    currencyRepo,
		studentRepo:     studentRepo,
		batchRepo:       batchRepo,
		replicator:      replicator,
		defaultCurrency: defaultCurrency,
		now:             time.Now,
	}
}

// ledgerTerms are the admin-controlled fields of a ledger.
type ledgerTerms struct {
	Target     decimal.Decimal
	CurrencyID *uuid.UUID
	Method     model.LedgerMethod
	Notes      string
	CreatedBy  *uuid.UUID
}

func (s *LedgerService) resolveCurrency(ctx context.Context, id *uuid.UUID) (*model.Currency, error) {
	if id != nil && *id != uuid.Nil {
		return s.currencyRepo.GetCurrency(ctx, *id)
	}
	return s.currencyRepo.DefaultCurrency(ctx, s.defaultCurrency)
}

// Create opens a ledger for a student in a batch, optionally posting the
// first installment in the same transaction.
func (s *LedgerService) Create(ctx context.Context, req model.LedgerCreateRequest) (*model.LedgerView, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.Method == "" {
		req.Method = model.MethodInstallments
	}
	if !req.Method.Valid() {
		return nil, apperr.Validation("unknown ledger method %q", req.Method)
	}

	var ledgerID uuid.UUID
	err := runAndReplicate(ctx, s.ledgerRepo, s.replicator, func(ctx context.Context, buf *eventBuffer) error {
		if _, err := s.studentRepo.GetByID(ctx, req.StudentID); err != nil {
			return err
		}
		if _, err := s.batchRepo.GetByID(ctx, req.BatchID); err != nil {
			return err
		}
		l, err := s.openLedger(ctx, req.StudentID, req.BatchID, ledgerTerms{
			Target:     req.TargetAmount,
			CurrencyID: req.CurrencyID,
			Method:     req.Method,
			Notes:      strings.TrimSpace(req.Notes),
			CreatedBy:  req.CreatedBy,
		})
		if err != nil {
			return err
		}
		ledgerID = l.ID

		if req.FirstPayment == nil {
			return nil
		}
		_, err = s.postInTx(ctx, model.PostTransactionRequest{
			LedgerID:    l.ID,
			Amount:      *req.FirstPayment,
			Method:      model.PayCash,
			Notes:       firstInstallmentNote,
			ProcessedBy: req.CreatedBy,
		}, buf)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, ledgerID)
}

// openLedger inserts a ledger for the pair. A soft-deleted ledger for the
// same pair is revived with the new terms, since the unique index still
// holds its row; an active one is an integrity error.
func (s *LedgerService) openLedger(ctx context.Context, studentID, batchID uuid.UUID, terms ledgerTerms) (*model.Ledger, error) {
	currency, err := s.resolveCurrency(ctx, terms.CurrencyID)
	if err != nil {
		return nil, err
	}

	existing, err := s.ledgerRepo.FindByStudentBatch(ctx, studentID, batchID)
	switch {
	case err == nil && existing.IsActive:
		return nil, apperr.Integrity(ledgerEntityName+" for student and batch already exists", nil)
	case err == nil:
		existing.TargetAmount = terms.Target
		existing.CurrencyID = currency.ID
		existing.Method = terms.Method
		existing.Notes = terms.Notes
		existing.CreatedBy = terms.CreatedBy
		existing.Status = model.LedgerPending
		existing.IsActive = true
		if err := s.ledgerRepo.Update(ctx, existing); err != nil {
			return nil, err
		}
		existing.Currency = currency
		return existing, nil
	case !isNotFound(err):
		return nil, err
	}

	return s.ledgerRepo.Create(ctx, &model.Ledger{
		StudentID:    studentID,
		BatchID:      batchID,
		TargetAmount: terms.Target,
		CurrencyID:   currency.ID,
		Method:       terms.Method,
		Status:       model.LedgerPending,
		Notes:        terms.Notes,
		CreatedBy:    terms.CreatedBy,
		IsActive:     true,
	})
}

// ensureLedger returns the active ledger of the pair, creating one with the
// given terms when there is none. Existing ledgers are left untouched.
func (s *LedgerService) ensureLedger(ctx context.Context, studentID, batchID uuid.UUID, terms ledgerTerms) (*model.Ledger, bool, error) {
	existing, err := s.ledgerRepo.FindByStudentBatch(ctx, studentID, batchID)
	if err == nil && existing.IsActive {
		return existing, false, nil
	}
	if err != nil && !isNotFound(err) {
		return nil, false, err
	}
	l, err := s.openLedger(ctx, studentID, batchID, terms)
	if err != nil {
		return nil, false, err
	}
	return l, true, nil
}

// upsertTerms overwrites the terms of the pair's ledger, creating or reviving
// it as needed, and re-projects the status against what is already paid.
func (s *LedgerService) upsertTerms(ctx context.Context, studentID, batchID uuid.UUID, terms ledgerTerms) (*model.Ledger, error) {
	existing, err := s.ledgerRepo.FindByStudentBatch(ctx, studentID, batchID)
	if err != nil {
		if isNotFound(err) {
			return s.openLedger(ctx, studentID, batchID, terms)
		}
		return nil, err
	}
	if !existing.IsActive {
		return s.openLedger(ctx, studentID, batchID, terms)
	}

	currency, err := s.resolveCurrency(ctx, terms.CurrencyID)
	if err != nil {
		return nil, err
	}
	paid, err := s.transactionRepo.SumActive(ctx, existing.ID)
	if err != nil {
		return nil, err
	}
	if err := checkTarget(terms.Target, paid); err != nil {
		return nil, err
	}
	existing.TargetAmount = terms.Target
	existing.CurrencyID = currency.ID
	existing.Notes = terms.Notes
	existing.CreatedBy = terms.CreatedBy
	existing.Status = ProjectStatus(terms.Target, paid)
	if err := s.ledgerRepo.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// Get returns an active ledger with its transactions and derived totals.
func (s *LedgerService) Get(ctx context.Context, id uuid.UUID) (*model.LedgerView, error) {
	l, err := s.ledgerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	txs, err := s.transactionRepo.ListByLedger(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	l.Transactions = txs
	return &model.LedgerView{Ledger: l, LedgerTotals: ComputeTotals(l.TargetAmount, txs)}, nil
}

// Update edits the ledger terms. Changing the target re-projects the status
// unless the same request sets the status explicitly.
func (s *LedgerService) Update(ctx context.Context, id uuid.UUID, req model.LedgerUpdateRequest) (*model.LedgerView, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.Method != nil && !req.Method.Valid() {
		return nil, apperr.Validation("unknown ledger method %q", *req.Method)
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, apperr.Validation("unknown ledger status %q", *req.Status)
	}

	err := s.ledgerRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		l, err := s.ledgerRepo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if req.CurrencyID != nil {
			c, err := s.currencyRepo.GetCurrency(ctx, *req.CurrencyID)
			if err != nil {
				return err
			}
			l.CurrencyID = c.ID
		}
		if req.Method != nil {
			l.Method = *req.Method
		}
		if req.Notes != nil {
			l.Notes = strings.TrimSpace(*req.Notes)
		}
		if req.TargetAmount != nil {
			paid, err := s.transactionRepo.SumActive(ctx, l.ID)
			if err != nil {
				return err
			}
			if err := checkTarget(*req.TargetAmount, paid); err != nil {
				return err
			}
			l.TargetAmount = *req.TargetAmount
			if req.Status == nil {
				l.Status = ProjectStatus(l.TargetAmount, paid)
			}
		}
		if req.Status != nil {
			l.Status = *req.Status
		}
		return s.ledgerRepo.Update(ctx, l)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete soft-deletes the ledger and every transaction on it, and removes
// the transactions from the replica.
func (s *LedgerService) Delete(ctx context.Context, id uuid.UUID) error {
	return runAndReplicate(ctx, s.ledgerRepo, s.replicator, func(ctx context.Context, buf *eventBuffer) error {
		if _, err := s.ledgerRepo.GetForUpdate(ctx, id); err != nil {
			return err
		}
		txs, err := s.transactionRepo.ListByLedger(ctx, id)
		if err != nil {
			return err
		}
		if err := s.ledgerRepo.Deactivate(ctx, id); err != nil {
			return err
		}
		n, err := s.transactionRepo.DeactivateByLedger(ctx, id)
		if err != nil {
			return err
		}
		for _, tx := range txs {
			buf.add(outbox.Deleted(model.CollectionPayments, tx.ReceiptNumber))
		}
		logger.Info("ledger deleted", "ledger_id", id, "transactions", n)
		return nil
	})
}

// PostTransaction records a payment against a ledger. The ledger row stays
// locked until the transaction commits, so concurrent posts on one ledger
// are checked against each other's effect.
func (s *LedgerService) PostTransaction(ctx context.Context, req model.PostTransactionRequest) (*model.PostTransactionResult, error) {
	var res *model.PostTransactionResult
	err := runAndReplicate(ctx, s.ledgerRepo, s.replicator, func(ctx context.Context, buf *eventBuffer) error {
		var err error
		res, err = s.postInTx(ctx, req, buf)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *LedgerService) postInTx(ctx context.Context, req model.PostTransactionRequest, buf *eventBuffer) (*model.PostTransactionResult, error) {
	if !req.Amount.IsPositive() {
		prom.AddTransactionRejected("non_positive")
		return nil, apperr.Validation("amount must be positive")
	}
	if req.Method == "" {
		req.Method = model.PayCash
	}
	if !req.Method.Valid() {
		prom.AddTransactionRejected("method")
		return nil, apperr.Validation("unknown payment method %q", req.Method)
	}

	l, err := s.ledgerRepo.GetForUpdate(ctx, req.LedgerID)
	if err != nil {
		return nil, err
	}
	paid, err := s.transactionRepo.SumActive(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	remaining := l.TargetAmount.Sub(paid).Round(2)
	if req.Amount.GreaterThan(remaining.Add(OverpaymentTolerance)) {
		prom.AddTransactionRejected("overpayment")
		return nil, &apperr.ValidationError{
			Message: "amount exceeds remaining balance",
			Fields: map[string]string{
				"amount": fmt.Sprintf("remaining balance is %s", remaining.StringFixed(2)),
			},
		}
	}

	receipt := strings.ToUpper(strings.TrimSpace(req.ReceiptNumber))
	if receipt == "" {
		if receipt, err = NewReceiptNumber(); err != nil {
			return nil, fmt.Errorf("generate receipt number: %w", err)
		}
	}

	created, err := s.transactionRepo.Create(ctx, &model.Transaction{
		LedgerID:      l.ID,
		Amount:        req.Amount,
		Method:        req.Method,
		ReceiptNumber: receipt,
		PaidAt:        s.now().UTC(),
		ProcessedBy:   req.ProcessedBy,
		Notes:         strings.TrimSpace(req.Notes),
		IsActive:      true,
	})
	if err != nil {
		return nil, err
	}

	paid = paid.Add(created.Amount)
	status := ProjectStatus(l.TargetAmount, paid)
	if status != l.Status {
		if err := s.ledgerRepo.UpdateStatus(ctx, l.ID, status); err != nil {
			return nil, err
		}
		l.Status = status
	}
	totals := totalsFor(l.TargetAmount, paid)

	studentCode := l.StudentID.String()
	if l.Student != nil {
		studentCode = l.Student.StudentCode
	}
	buf.add(outbox.PaymentPosted(created, l, studentCode, totals))

	currencyCode := ""
	if l.Currency != nil {
		currencyCode = l.Currency.Code
	}
	prom.AddTransactionPosted(string(created.Method), currencyCode, created.Amount.InexactFloat64())

	return &model.PostTransactionResult{
		Transaction:     created,
		RemainingAmount: totals.RemainingAmount,
		Status:          status,
	}, nil
}

// TransactionByReceipt returns a transaction and the ledger it belongs to.
func (s *LedgerService) TransactionByReceipt(ctx context.Context, receipt string) (*model.Transaction, *model.LedgerView, error) {
	tx, err := s.transactionRepo.GetByReceipt(ctx, strings.ToUpper(strings.TrimSpace(receipt)))
	if err != nil {
		return nil, nil, err
	}
	view, err := s.Get(ctx, tx.LedgerID)
	if err != nil {
		return nil, nil, err
	}
	return tx, view, nil
}

// Dashboard lists ledgers with their totals, plus per-status counts of the
// whole filtered set.
func (s *LedgerService) Dashboard(ctx context.Context, f model.LedgerFilter) (*model.LedgerDashboard, error) {
	ledgers, total, err := s.ledgerRepo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	counts, err := s.ledgerRepo.CountByStatus(ctx, f)
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, ledgers)
	if err != nil {
		return nil, err
	}
	return &model.LedgerDashboard{Items: views, Total: total, StatusCounts: counts}, nil
}

// LedgersOf returns every active ledger matching f with derived totals.
func (s *LedgerService) LedgersOf(ctx context.Context, f model.LedgerFilter) ([]*model.LedgerView, error) {
	ledgers, err := s.ledgerRepo.ListAll(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, ledgers)
}

func (s *LedgerService) views(ctx context.Context, ledgers []*model.Ledger) ([]*model.LedgerView, error) {
	ids := make([]uuid.UUID, len(ledgers))
	for i, l := range ledgers {
		ids[i] = l.ID
	}
	txs, err := s.transactionRepo.ListByLedgers(ctx, ids)
	if err != nil {
		return nil, err
	}
	views := make([]*model.LedgerView, len(ledgers))
	for i, l := range ledgers {
		l.Transactions = txs[l.ID]
		views[i] = &model.LedgerView{Ledger: l, LedgerTotals: ComputeTotals(l.TargetAmount, l.Transactions)}
	}
	return views, nil
}

func (s *LedgerService) BatchOverview(ctx context.Context, batchID uuid.UUID) (*model.BatchOverview, error) {
	batch, err := s.batchRepo.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	views, err := s.LedgersOf(ctx, model.LedgerFilter{BatchID: &batchID})
	if err != nil {
		return nil, err
	}

	o := &model.BatchOverview{
		Batch:        batch,
		LedgerCount:  len(views),
		TotalTarget:  decimal.Zero,
		StatusCounts: make(map[model.LedgerStatus]int64, len(model.LedgerStatuses)),
	}
	for _, st := range model.LedgerStatuses {
		o.StatusCounts[st] = 0
	}
	paid := decimal.Zero
	for _, v := range views {
		o.TotalTarget = o.TotalTarget.Add(v.TargetAmount)
		paid = paid.Add(v.TotalPaid)
		o.StatusCounts[v.Status]++
	}
	totals := totalsFor(o.TotalTarget, paid)
	o.TotalTarget = o.TotalTarget.Round(2)
	o.TotalPaid = totals.TotalPaid
	o.TotalRemaining = totals.RemainingAmount
	o.CompletionPercentage = totals.CompletionPercentage
	return o, nil
}

const ledgerEntityName = "payment record"

func isNotFound(err error) bool {
	var nf *apperr.NotFoundError
	return errors.As(err, &nf)
}
