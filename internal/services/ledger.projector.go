package services

import (
	"crypto/rand"
	"math/big"

	"github.com/nimasrn/academy-ledger/internal/apperr"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/shopspring/decimal"
)

// OverpaymentTolerance absorbs fixed-point rounding when a payment settles
// the balance. It is a flat amount in every currency.
var OverpaymentTolerance = decimal.RequireFromString("0.01")

var hundred = decimal.NewFromInt(100)

// ProjectStatus derives the ledger status from what has been paid. Overdue is
// never derived here.
func ProjectStatus(target, totalPaid decimal.Decimal) model.LedgerStatus {
	switch {
	case totalPaid.GreaterThanOrEqual(target):
		return model.LedgerCompleted
	case totalPaid.IsPositive():
		return model.LedgerPartial
	}
	return model.LedgerPending
}

// checkTarget rejects a target that what is already paid would overshoot by
// more than the tolerance.
func checkTarget(target, totalPaid decimal.Decimal) error {
	if target.LessThan(totalPaid.Sub(OverpaymentTolerance)) {
		return &apperr.ValidationError{
			Message: "target amount is below the amount already paid",
			Fields:  map[string]string{"total_paid": totalPaid.StringFixed(2)},
		}
	}
	return nil
}

// ComputeTotals sums the active transactions and derives the remaining
// balance and completion percentage, each rounded to two places.
func ComputeTotals(target decimal.Decimal, txs []*model.Transaction) model.LedgerTotals {
	paid := decimal.Zero
	for _, tx := range txs {
		if tx.IsActive {
			paid = paid.Add(tx.Amount)
		}
	}
	return totalsFor(target, paid)
}

func totalsFor(target, paid decimal.Decimal) model.LedgerTotals {
	totals := model.LedgerTotals{
		TotalPaid:            paid.Round(2),
		RemainingAmount:      target.Sub(paid).Round(2),
		CompletionPercentage: decimal.Zero,
	}
	if target.IsPositive() {
		totals.CompletionPercentage = paid.Div(target).Mul(hundred).Round(2)
	}
	return totals
}

const (
	receiptPrefix   = "RCP"
	receiptAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	receiptLength   = 8
)

// NewReceiptNumber returns "RCP" followed by eight random characters from
// [A-Z0-9].
func NewReceiptNumber() (string, error) {
	buf := make([]byte, 0, len(receiptPrefix)+receiptLength)
	buf = append(buf, receiptPrefix...)
	max := big.NewInt(int64(len(receiptAlphabet)))
	for i := 0; i < receiptLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf = append(buf, receiptAlphabet[n.Int64()])
	}
	return string(buf), nil
}
