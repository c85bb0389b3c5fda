package fixtures

import (
	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/shopspring/decimal"
)

var (
	ValidPhones = []string{
		"01712345678",
		"+8801712345678",
		"+14155550123",
		"123456789",
	}

	InvalidPhones = []string{
		"123",
		"phone",
		"+",
		"0171-234-5678",
	}
)

func Amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func AmountPtr(s string) *decimal.Decimal {
	d := Amount(s)
	return &d
}

// EnrollRequest enrolls into batchID with a target amount and no first installment.
func EnrollRequest(first, last, phone string, batchID uuid.UUID, target string) model.EnrollStudentRequest {
	return model.EnrollStudentRequest{
		FirstName:    first,
		LastName:     last,
		Phone:        phone,
		BatchID:      &batchID,
		TargetAmount: AmountPtr(target),
		LedgerMethod: model.MethodInstallments,
	}
}

func EnrollWithInstallment(first, last, phone string, batchID uuid.UUID, target, installment string) model.EnrollStudentRequest {
	req := EnrollRequest(first, last, phone, batchID, target)
	req.FirstInstallment = AmountPtr(installment)
	return req
}

func Payment(ledgerID uuid.UUID, amount string, method model.PaymentMethod) model.PostTransactionRequest {
	return model.PostTransactionRequest{
		LedgerID: ledgerID,
		Amount:   Amount(amount),
		Method:   method,
	}
}

func AdminUser(username string) model.CreateUserRequest {
	return model.CreateUserRequest{
		Username:    username,
		Password:    "correct-horse-battery",
		IsSuperuser: true,
		Role:        model.RoleAdmin,
	}
}
