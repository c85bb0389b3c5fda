package services

import (
	"context"
	"testing"
	"time"

	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/internal/outbox"
	"github.com/nimasrn/academy-ledger/internal/repository"
	"github.com/nimasrn/academy-ledger/pkg/pg"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	db  *pg.DB
	raw *gorm.DB

	ledgers      *repository.LedgerRepository
	transactions *repository.TransactionRepository
	catalogue    *repository.CatalogueRepository
	students     *repository.StudentRepository
	teachers     *repository.TeacherRepository
	batches      *repository.BatchRepository
	academic     *repository.AcademicRepository
	contacts     *repository.ContactRepository
	users        *repository.UserRepository
	imports      *repository.ImportRepository
	outboxStore  *repository.OutboxRepository
	outbox       *outbox.Outbox

	currency *model.Currency
	batch    *model.Batch
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, raw := repository.OpenTestDB(t)
	e := &testEnv{
		db:           db,
		raw:          raw,
		ledgers:      repository.NewLedgerRepository(db),
		transactions: repository.NewTransactionRepository(db),
		catalogue:    repository.NewCatalogueRepository(db),
		students:     repository.NewStudentRepository(db),
		teachers:     repository.NewTeacherRepository(db),
		batches:      repository.NewBatchRepository(db),
		academic:     repository.NewAcademicRepository(db),
		contacts:     repository.NewContactRepository(db),
		users:        repository.NewUserRepository(db),
		imports:      repository.NewImportRepository(db),
		outboxStore:  repository.NewOutboxRepository(db),
	}
	e.outbox = outbox.New(e.outboxStore, nil)

	ctx := context.Background()
	var err error
	e.currency, err = e.catalogue.CreateCurrency(ctx, &model.Currency{
		Code: "USD", Name: "US Dollar", Symbol: "$", ExchangeRate: decimal.NewFromInt(1), IsDefault: true,
	})
	require.NoError(t, err)
	e.batch, err = e.batches.Create(ctx, &model.Batch{Name: "Spring Batch 21", Code: "B21", Status: model.BatchActive})
	require.NoError(t, err)
	return e
}

func (e *testEnv) ledgerService() *LedgerService {
	return NewLedgerService(e.ledgers, e.transactions, e.catalogue, e.students, e.batches, e.outbox, "USD")
}

func (e *testEnv) addStudent(t *testing.T, code, first, last string) *model.Student {
	t.Helper()
	s, err := e.students.Create(context.Background(), &model.Student{
		StudentCode:    code,
		FirstName:      first,
		LastName:       last,
		BatchID:        &e.batch.ID,
		EnrollmentDate: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		Status:         model.StudentActive,
	})
	require.NoError(t, err)
	return s
}

// addLedger opens a ledger with the given target for a fresh student.
func (e *testEnv) addLedger(t *testing.T, svc *LedgerService, code string, target string) *model.LedgerView {
	t.Helper()
	s := e.addStudent(t, code, "Student", code)
	view, err := svc.Create(context.Background(), model.LedgerCreateRequest{
		StudentID:    s.ID,
		BatchID:      e.batch.ID,
		TargetAmount: decimal.RequireFromString(target),
	})
	require.NoError(t, err)
	return view
}

func (e *testEnv) pendingEvents(t *testing.T) []*model.OutboxEvent {
	t.Helper()
	events, err := e.outboxStore.Pending(context.Background(), time.Now().UTC().Add(time.Hour), 1000)
	require.NoError(t, err)
	return events
}

func (e *testEnv) countRows(t *testing.T, table string, where string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := e.raw.Table(table)
	if where != "" {
		q = q.Where(where, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}

func ptr[T any](v T) *T {
	return &v
}

type MockReplicator struct {
	mock.Mock
}

func (m *MockReplicator) Record(ctx context.Context, events ...*model.OutboxEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

func (m *MockReplicator) Flush(ctx context.Context, events []*model.OutboxEvent) {
	m.Called(ctx, events)
}
