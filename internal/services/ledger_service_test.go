package services

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"

	"github.com/nimasrn/academy-ledger/internal/apperr"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func post(t *testing.T, svc *LedgerService, ledger *model.LedgerView, amount string) (*model.PostTransactionResult, error) {
	t.Helper()
	return svc.PostTransaction(context.Background(), model.PostTransactionRequest{
		LedgerID: ledger.ID,
		Amount:   decimal.RequireFromString(amount),
		Method:   model.PayCash,
	})
}

func TestProjectStatus(t *testing.T) {
	tests := []struct {
		name   string
		target string
		paid   string
		want   model.LedgerStatus
	}{
		{"nothing paid", "1000", "0", model.LedgerPending},
		{"part paid", "1000", "0.01", model.LedgerPartial},
		{"just short", "1000", "999.99", model.LedgerPartial},
		{"exactly paid", "1000", "1000", model.LedgerCompleted},
		{"over paid within tolerance", "1000", "1000.01", model.LedgerCompleted},
		{"zero target", "0", "0", model.LedgerCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProjectStatus(decimal.RequireFromString(tt.target), decimal.RequireFromString(tt.paid))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeTotals(t *testing.T) {
	txs := []*model.Transaction{
		{Amount: decimal.RequireFromString("100.5"), IsActive: true},
		{Amount: decimal.RequireFromString("200"), IsActive: true},
		{Amount: decimal.RequireFromString("500"), IsActive: false},
	}

	totals := ComputeTotals(decimal.NewFromInt(1000), txs)
	assertAmount(t, "300.5", totals.TotalPaid)
	assertAmount(t, "699.5", totals.RemainingAmount)
	assertAmount(t, "30.05", totals.CompletionPercentage)

	zero := ComputeTotals(decimal.Zero, nil)
	assert.True(t, zero.CompletionPercentage.IsZero())
	assert.True(t, zero.TotalPaid.IsZero())
}

func TestNewReceiptNumber(t *testing.T) {
	pattern := regexp.MustCompile(`^RCP[A-Z0-9]{8}$`)
	seen := make(map[string]struct{})
	for i := 0; i < 500; i++ {
		r, err := NewReceiptNumber()
		require.NoError(t, err)
		assert.Regexp(t, pattern, r)
		seen[r] = struct{}{}
	}
	assert.Len(t, seen, 500)
}

func TestLedgerService_PostTransaction_ProjectsStatus(t *testing.T) {
	env := newTestEnv(t)
	svc := env.ledgerService()
	ledger := env.addLedger(t, svc, "STU-2025-0001", "1000")
	assert.Equal(t, model.LedgerPending, ledger.Status)

	res, err := post(t, svc, ledger, "400")
	require.NoError(t, err)
	assert.Equal(t, model.LedgerPartial, res.Status)
	assertAmount(t, "600", res.RemainingAmount)
	assert.Equal(t, model.PayCash, res.Transaction.Method)
	assert.False(t, res.Transaction.PaidAt.IsZero())

	res, err = post(t, svc, ledger, "600")
	require.NoError(t, err)
	assert.Equal(t, model.LedgerCompleted, res.Status)
	assertAmount(t, "0", res.RemainingAmount)

	view, err := svc.Get(context.Background(), ledger.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LedgerCompleted, view.Status)
	assertAmount(t, "1000", view.TotalPaid)
	assertAmount(t, "100", view.CompletionPercentage)
	assert.Len(t, view.Transactions, 2)
}

func TestLedgerService_PostTransaction_RejectsNonPositive(t *testing.T) {
	env := newTestEnv(t)
	svc := env.ledgerService()
	ledger := env.addLedger(t, svc, "STU-2025-0001", "1000")

	for _, amount := range []string{"0", "-5", "-0.01"} {
		t.Run(amount, func(t *testing.T) {
			res, err := post(t, svc, ledger, amount)
			assert.Nil(t, res)
			var verr *apperr.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, "amount must be positive", verr.Message)
		})
	}

	assert.Zero(t, env.countRows(t, "payment_transactions", ""))
	view, err := svc.Get(context.Background(), ledger.ID)
	require.NoError(t, err)
	assert.Equal(t, model.LedgerPending, view.Status)
}

func TestLedgerService_PostTransaction_RejectsOverpayment(t *testing.T) {
	env := newTestEnv(t)
	svc := env.ledgerService()
	ledger := env.addLedger(t, svc, "STU-2025-0001", "100")

	_, err := post(t, svc, ledger, "40")
	require.NoError(t, err)

	res, err := post(t, svc, ledger, "60.02")
	assert.Nil(t, res)
	var verr *apperr.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "amount exceeds remaining balance", verr.Message)
	assert.Contains(t, verr.Fields["amount"], "60.00")
	assert.Equal(t, int64(1), env.countRows(t, "payment_transactions", ""))

	// the tolerance lets a rounding cent through
	res, err = post(t, svc, ledger, "60.01")
	require.NoError(t, err)
	assert.Equal(t, model.LedgerCompleted, res.Status)

	view, err := svc.Get(context.Background(), ledger.ID)
	require.NoError(t, err)
	assert.True(t, view.TotalPaid.LessThanOrEqual(view.TargetAmount.Add(OverpaymentTolerance)))

	_, err = post(t, svc, ledger, "0.01")
	require.Error(t, err)
}

func TestLedgerService_PostTransaction_UnknownLedger(t *testing.T) {
	env := newTestEnv(t)
	svc := env.ledgerService()

	_, err := svc.PostTransaction(context.Background(), model.PostTransactionRequest{
		LedgerID: env.batch.ID,
		Amount:   decimal.NewFromInt(10),
	})
	var nf *apperr.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestLedgerService_PostTransaction_Receipts(t *testing.T) {
	env := newTestEnv(t)
	svc := env.ledgerService()
	ledger := env.addLedger(t, svc, "STU-2025-0001", "1000")

	receipts := make(map[string]struct{})
	for i := 0; i < 20; i++ {
		res, err := post(t, svc, ledger, "10")
		require.NoError(t, err)
		assert.Regexp(t, `^RCP[A-Z0-9]{8}$`, res.Transaction.ReceiptNumber)
		receipts[res.Transaction.ReceiptNumber] = struct{}{}
	}
	assert.Len(t, receipts, 20)

	t.Run("supplied receipt is kept", func(t *testing.T) {
		res, err := svc.PostTransaction(context.Background(), model.PostTransactionRequest{
			LedgerID: ledger.ID, Amount: decimal.NewFromInt(5), ReceiptNumber: "rcpmanual01",
		})
		require.NoError(t, err)
		assert.Equal(t, "RCPMANUAL01", res.Transaction.ReceiptNumber)
	})

	t.Run("duplicate receipt is an integrity error", func(t *testing.T) {
		before := env.countRows(t, "payment_transactions", "")
		_, err := svc.PostTransaction(context.Background(), model.PostTransactionRequest{
			LedgerID: ledger.ID, Amount: decimal.NewFromInt(5), ReceiptNumber: "RCPMANUAL01",
		})
		var ierr *apperr.IntegrityError
		assert.True(t, errors.As(err, &ierr))
		assert.Equal(t, before, env.countRows(t, "payment_transactions", ""))
	})
}

func TestLedgerService_PostTransaction_Concurrent(t *testing.T) {
	env := newTestEnv(t)
	svc := env.ledgerService()
	ledger := env.addLedger(t, svc, "STU-2025-0001", "100")

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PostTransaction(context.Background(), model.PostTransactionRequest{
				LedgerID: ledger.ID, Amount: decimal.NewFromInt(20),
			})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, accepted)
	view, err := svc.Get(context.Background(), ledger.ID)
	require.NoError(t, err)
	assertAmount(t, "100", view.TotalPaid)
}

func TestLedgerService_PostTransaction_Replicates(t *testing.T) {
	env := newTestEnv(t)
	svc := env.ledgerService()
	ledger := env.addLedger(t, svc, "STU-2025-0001", "1000")

	res, err := post(t, svc, ledger, "250")
	require.NoError(t, err)

	events := env.pendingEvents(t)
	require.Len(t, events, 1)
	assert.Equal(t, model.CollectionPayments, events[0].Collection)
	assert.Equal(t, res.Transaction.ReceiptNumber, events[0].DocumentID)
	assert.Contains(t, string(events[0].Payload), `"student_id":"STU-2025-0001"`)
	assert.Contains(t, string(events[0].Payload), `"ledger_status":"partial"`)
}

func TestLedgerService_PostTransaction_FlushesAfterCommit(t *testing.T) {
	env := newTestEnv(t)
	rep := new(MockReplicator)
	svc := NewLedgerService(env.ledgers, env.transactions, env.catalogue, env.students, env.batches, rep, "USD")
	ledger := env.addLedger(t, svc, "STU-2025-0001", "100")

	oneEvent := mock.MatchedBy(func(events []*model.OutboxEvent) bool { return len(events) == 1 })
	rep.On("Record", mock.Anything, oneEvent).Return(nil).Once()
	rep.On("Flush", mock.Anything, oneEvent).Once()

	_, err := post(t, svc, ledger, "30")
	require.NoError(t, err)

	_, err = post(t, svc, ledger, "500")
	require.Error(t, err)

	rep.AssertExpectations(t)
	rep.AssertNumberOfCalls(t, "Flush", 1)
}

func TestLedgerService_PostTransaction_RecordFailureRollsBack(t *testing.T) {
	env := newTestEnv(t)
	rep := new(MockReplicator)
	svc := NewLedgerService(env.ledgers, env.transactions, env.catalogue, env.students, env.batches, rep, "USD")
	ledger := env.addLedger(t, svc, "STU-2025-0001", "100")

	rep.On("Record", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	_, err := post(t, svc, ledger, "30")
	require.Error(t, err)
	assert.Zero(t, env.countRows(t, "payment_transactions", ""))
	rep.AssertNotCalled(t, "Flush", mock.Anything, mock.Anything)
}

func TestLedgerService_Create(t *testing.T) {
	env := newTestEnv(t)
	svc := env.ledgerService()
	ctx := context.Background()
	student := env.addStudent(t, "STU-2025-0001", "Karim", "Hossain")

	t.Run("with first payment", func(t *testing.T) {
		first := decimal.NewFromInt(300)
		view, err := svc.Create(ctx, model.LedgerCreateRequest{
			StudentID:    student.ID,
			BatchID:      env.batch.ID,
			TargetAmount: decimal.NewFromInt(1000),
			FirstPayment: &first,
		})
		require.NoError(t, err)
		assert.Equal(t, model.MethodInstallments, view.Method)
		assert.Equal(t, model.LedgerPartial, view.Status)
		assertAmount(t, "700", view.RemainingAmount)
		require.Len(t, view.Transactions, 1)
		assert.Equal(t, "First installment payment", view.Transactions[0].Notes)
		require.NotNil(t, view.Currency)
		assert.Equal(t, "USD", view.Currency.Code)
	})

	t.Run("second ledger for the pair is rejected", func(t *testing.T) {
		_, err := svc.Create(ctx, model.LedgerCreateRequest{
			StudentID: student.ID, BatchID: env.batch.ID, TargetAmount: decimal.NewFromInt(10),
		})
		var ierr *apperr.IntegrityError
		assert.True(t, errors.As(err, &ierr))
	})

	t.Run("first payment above target leaves nothing behind", func(t *testing.T) {
		other := env.addStudent(t, "STU-2025-0002", "Nadia", "Islam")
		first := decimal.NewFromInt(2000)
		_, err := svc.Create(ctx, model.LedgerCreateRequest{
			StudentID: other.ID, BatchID: env.batch.ID, TargetAmount: decimal.NewFromInt(1000), FirstPayment: &first,
		})
		require.Error(t, err)
		assert.Zero(t, env.countRows(t, "student_payments", "student_id = ?", other.ID))
	})

	t.Run("unknown student", func(t *testing.T) {
		_, err := svc.Create(ctx, model.LedgerCreateRequest{
			StudentID: env.batch.ID, BatchID: env.batch.ID, TargetAmount: decimal.NewFromInt(10),
		})
		var nf *apperr.NotFoundError
		assert.True(t, errors.As(err, &nf))
	})

	t.Run("negative target", func(t *testing.T) {
		_, err := svc.Create(ctx, model.LedgerCreateRequest{
			StudentID: student.ID, BatchID: env.batch.ID, TargetAmount: decimal.NewFromInt(-1),
		})
		var verr *apperr.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Contains(t, verr.Fields, "target_amount")
	})
}

func TestLedgerService_Delete(t *testing.T) {
	env := newTestEnv(t)
	svc := env.ledgerService()
	ctx := context.Background()
	ledger := env.addLedger(t, svc, "STU-2025-0001", "1000")

	first, err := post(t, svc, ledger, "100")
	require.NoError(t, err)
	second, err := post(t, svc, ledger, "200")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, ledger.ID))

	_, err = svc.Get(ctx, ledger.ID)
	var nf *apperr.NotFoundError
	assert.True(t, errors.As(err, &nf))

	// rows stay, flagged inactive
	assert.Equal(t, int64(2), env.countRows(t, "payment_transactions", "student_payment_id = ?", ledger.ID))
	assert.Zero(t, env.countRows(t, "payment_transactions", "student_payment_id = ? AND is_active = ?", ledger.ID, true))
	assert.Equal(t, int64(1), env.countRows(t, "student_payments", "id = ? AND is_active = ?", ledger.ID, false))

	paid, err := env.transactions.SumActive(ctx, ledger.ID)
	require.NoError(t, err)
	assert.True(t, paid.IsZero())

	deleted := map[string]bool{}
	for _, e := range env.pendingEvents(t) {
		if e.Operation == model.ReplicaDelete {
			deleted[e.DocumentID] = true
		}
	}
	assert.True(t, deleted[first.Transaction.ReceiptNumber])
	assert.True(t, deleted[second.Transaction.ReceiptNumber])

	t.Run("deleting twice", func(t *testing.T) {
		err := svc.Delete(ctx, ledger.ID)
		var nf *apperr.NotFoundError
		assert.True(t, errors.As(err, &nf))
	})

	t.Run("recreate revives the pair", func(t *testing.T) {
		view, err := svc.Create(ctx, model.LedgerCreateRequest{
			StudentID: ledger.StudentID, BatchID: ledger.BatchID, TargetAmount: decimal.NewFromInt(500),
		})
		require.NoError(t, err)
		assert.Equal(t, ledger.ID, view.ID)
		assert.Equal(t, model.LedgerPending, view.Status)
		assert.True(t, view.TotalPaid.IsZero())
		assert.Empty(t, view.Transactions)
	})
}

func TestLedgerService_Get_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	svc := env.ledgerService()
	ledger := env.addLedger(t, svc, "STU-2025-0001", "333.33")
	_, err := post(t, svc, ledger, "111.11")
	require.NoError(t, err)

	a, err := svc.Get(context.Background(), ledger.ID)
	require.NoError(t, err)
	b, err := svc.Get(context.Background(), ledger.ID)
	require.NoError(t, err)

	assert.Equal(t, a.TotalPaid.String(), b.TotalPaid.String())
	assert.Equal(t, a.RemainingAmount.String(), b.RemainingAmount.String())
	assert.Equal(t, a.CompletionPercentage.String(), b.CompletionPercentage.String())
	assertAmount(t, "33.33", a.CompletionPercentage)
}

func TestLedgerService_Update(t *testing.T) {
	env := newTestEnv(t)
	svc := env.ledgerService()
	ctx := context.Background()
	ledger := env.addLedger(t, svc, "STU-2025-0001", "1000")
	_, err := post(t, svc, ledger, "500")
	require.NoError(t, err)

	t.Run("lowering the target re-projects", func(t *testing.T) {
		view, err := svc.Update(ctx, ledger.ID, model.LedgerUpdateRequest{TargetAmount: ptr(decimal.NewFromInt(500))})
		require.NoError(t, err)
		assert.Equal(t, model.LedgerCompleted, view.Status)
		assertAmount(t, "0", view.RemainingAmount)
	})

	t.Run("target below paid is rejected", func(t *testing.T) {
		_, err := svc.Update(ctx, ledger.ID, model.LedgerUpdateRequest{TargetAmount: ptr(decimal.NewFromInt(100))})
		var verr *apperr.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "500.00", verr.Fields["total_paid"])

		view, err := svc.Get(ctx, ledger.ID)
		require.NoError(t, err)
		assertAmount(t, "500", view.TargetAmount)
		assert.True(t, view.TotalPaid.LessThanOrEqual(view.TargetAmount.Add(OverpaymentTolerance)))
		assert.False(t, view.RemainingAmount.IsNegative())
	})

	t.Run("target within tolerance of paid", func(t *testing.T) {
		view, err := svc.Update(ctx, ledger.ID, model.LedgerUpdateRequest{TargetAmount: ptr(decimal.RequireFromString("499.99"))})
		require.NoError(t, err)
		assert.Equal(t, model.LedgerCompleted, view.Status)
	})

	t.Run("explicit status wins", func(t *testing.T) {
		view, err := svc.Update(ctx, ledger.ID, model.LedgerUpdateRequest{
			TargetAmount: ptr(decimal.NewFromInt(2000)),
			Status:       ptr(model.LedgerOverdue),
			Notes:        ptr("  chased twice "),
		})
		require.NoError(t, err)
		assert.Equal(t, model.LedgerOverdue, view.Status)
		assert.Equal(t, "chased twice", view.Notes)
	})

	t.Run("unknown currency", func(t *testing.T) {
		_, err := svc.Update(ctx, ledger.ID, model.LedgerUpdateRequest{CurrencyID: &env.batch.ID})
		var nf *apperr.NotFoundError
		assert.True(t, errors.As(err, &nf))
	})

	t.Run("bad method", func(t *testing.T) {
		_, err := svc.Update(ctx, ledger.ID, model.LedgerUpdateRequest{Method: ptr(model.LedgerMethod("barter"))})
		var verr *apperr.ValidationError
		assert.True(t, errors.As(err, &verr))
	})
}

func TestLedgerService_DashboardAndOverview(t *testing.T) {
	env := newTestEnv(t)
	svc := env.ledgerService()
	ctx := context.Background()

	a := env.addLedger(t, svc, "STU-2025-0001", "1000")
	b := env.addLedger(t, svc, "STU-2025-0002", "500")
	env.addLedger(t, svc, "STU-2025-0003", "250")

	_, err := post(t, svc, a, "1000")
	require.NoError(t, err)
	_, err = post(t, svc, b, "100")
	require.NoError(t, err)

	dash, err := svc.Dashboard(ctx, model.LedgerFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), dash.Total)
	assert.Len(t, dash.Items, 2)
	assert.Equal(t, int64(1), dash.StatusCounts[model.LedgerCompleted])
	assert.Equal(t, int64(1), dash.StatusCounts[model.LedgerPartial])
	assert.Equal(t, int64(1), dash.StatusCounts[model.LedgerPending])
	assert.Equal(t, int64(0), dash.StatusCounts[model.LedgerOverdue])

	searched, err := svc.Dashboard(ctx, model.LedgerFilter{Search: "stu-2025-0002"})
	require.NoError(t, err)
	require.Len(t, searched.Items, 1)
	assert.Equal(t, b.ID, searched.Items[0].ID)
	assertAmount(t, "400", searched.Items[0].RemainingAmount)

	o, err := svc.BatchOverview(ctx, env.batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, o.LedgerCount)
	assertAmount(t, "1750", o.TotalTarget)
	assertAmount(t, "1100", o.TotalPaid)
	assertAmount(t, "650", o.TotalRemaining)
	assertAmount(t, "62.86", o.CompletionPercentage)
}
