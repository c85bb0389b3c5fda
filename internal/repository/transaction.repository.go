package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/pkg/pg"
	"github.com/shopspring/decimal"
)

const transactionEntity = "payment transaction"

type TransactionRepository struct {
	*pg.DB
}

func NewTransactionRepository(db *pg.DB) *TransactionRepository {
	return &TransactionRepository{
		db,
	}
}

func (r *TransactionRepository) Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	entity := toTransactionEntity(txn)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, translate(err, transactionEntity, txn.ReceiptNumber)
	}

	return toTransactionModel(entity), nil
}

func (r *TransactionRepository) GetByReceipt(ctx context.Context, receipt string) (*model.Transaction, error) {
	var entity TransactionEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("receipt_number = ? AND is_active = ?", receipt, true).
		First(&entity).
		Error
	if err != nil {
		return nil, translate(err, transactionEntity, receipt)
	}
	return toTransactionModel(&entity), nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	var entity TransactionEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&entity).
		Error
	if err != nil {
		return nil, translate(err, transactionEntity, id.String())
	}
	return toTransactionModel(&entity), nil
}

// ListByLedger returns the active transactions of a ledger in posting order.
func (r *TransactionRepository) ListByLedger(ctx context.Context, ledgerID uuid.UUID) ([]*model.Transaction, error) {
	var entities []*TransactionEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("student_payment_id = ? AND is_active = ?", ledgerID, true).
		Order("payment_date ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, translate(err, transactionEntity, "list")
	}
	return toTransactionModels(entities), nil
}

// ListByLedgers groups the active transactions of several ledgers by ledger id.
func (r *TransactionRepository) ListByLedgers(ctx context.Context, ledgerIDs []uuid.UUID) (map[uuid.UUID][]*model.Transaction, error) {
	out := make(map[uuid.UUID][]*model.Transaction, len(ledgerIDs))
	if len(ledgerIDs) == 0 {
		return out, nil
	}

	var entities []*TransactionEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("student_payment_id IN ? AND is_active = ?", ledgerIDs, true).
		Order("payment_date ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, translate(err, transactionEntity, "list")
	}
	for _, e := range entities {
		out[e.LedgerID] = append(out[e.LedgerID], toTransactionModel(e))
	}
	return out, nil
}

// SumActive adds up the active amounts of a ledger. Amounts are summed in Go
// so the result keeps decimal precision on every driver.
func (r *TransactionRepository) SumActive(ctx context.Context, ledgerID uuid.UUID) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	err := r.Read(ctx).WithContext(ctx).
		Model(&TransactionEntity{}).
		Where("student_payment_id = ? AND is_active = ?", ledgerID, true).
		Pluck("amount", &amounts).
		Error
	if err != nil {
		return decimal.Zero, translate(err, transactionEntity, "sum")
	}
	return decimal.Sum(decimal.Zero, amounts...), nil
}

// RecentByStudent returns the latest active transactions across all ledgers of a student.
func (r *TransactionRepository) RecentByStudent(ctx context.Context, studentID uuid.UUID, limit int) ([]*model.Transaction, error) {
	limit, _ = pageBounds(limit, 0)

	var entities []*TransactionEntity
	err := r.Read(ctx).WithContext(ctx).
		Joins("JOIN student_payments ON student_payments.id = payment_transactions.student_payment_id").
		Where("student_payments.student_id = ? AND payment_transactions.is_active = ?", studentID, true).
		Order("payment_transactions.payment_date DESC").
		Limit(limit).
		Find(&entities).
		Error
	if err != nil {
		return nil, translate(err, transactionEntity, "list")
	}
	return toTransactionModels(entities), nil
}

// DeactivateByLedger soft-deletes every transaction of a ledger and reports
// how many rows changed.
func (r *TransactionRepository) DeactivateByLedger(ctx context.Context, ledgerID uuid.UUID) (int64, error) {
	result := r.Write(ctx).WithContext(ctx).
		Model(&TransactionEntity{}).
		Where("student_payment_id = ? AND is_active = ?", ledgerID, true).
		Update("is_active", false)
	if result.Error != nil {
		return 0, translate(result.Error, transactionEntity, ledgerID.String())
	}
	return result.RowsAffected, nil
}
