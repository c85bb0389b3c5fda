package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/apperr"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogueService_Currencies(t *testing.T) {
	env := newTestEnv(t)
	svc := NewCatalogueService(env.catalogue, env.batches)
	ctx := context.Background()

	bdt, err := svc.CreateCurrency(ctx, model.Currency{
		Code: "bdt", Name: "Taka", Symbol: "৳", ExchangeRate: decimal.RequireFromString("0.0091"), IsDefault: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "BDT", bdt.Code)

	def, err := env.catalogue.DefaultCurrency(ctx, "USD")
	require.NoError(t, err)
	assert.Equal(t, bdt.ID, def.ID)

	usd, err := env.catalogue.GetCurrency(ctx, env.currency.ID)
	require.NoError(t, err)
	assert.False(t, usd.IsDefault)

	_, err = svc.CreateCurrency(ctx, model.Currency{Code: "EURO", Name: "Euro", Symbol: "€", ExchangeRate: decimal.NewFromInt(1)})
	var verr *apperr.ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = svc.CreateCurrency(ctx, model.Currency{Code: "usd", Name: "Again", Symbol: "$", ExchangeRate: decimal.NewFromInt(1)})
	var ierr *apperr.IntegrityError
	assert.True(t, errors.As(err, &ierr))
}

func TestCatalogueService_FeeStructure(t *testing.T) {
	env := newTestEnv(t)
	svc := NewCatalogueService(env.catalogue, env.batches)
	ctx := context.Background()

	fee, err := svc.CreateFeeStructure(ctx, model.FeeStructure{
		Name:        "Diploma",
		TotalAmount: decimal.NewFromInt(1000),
		CurrencyID:  env.currency.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, fee.InstallmentCount)
	assertAmount(t, "500", fee.InstallmentAmount())
	assert.Equal(t, "USD", fee.Currency.Code)

	_, err = svc.CreateFeeStructure(ctx, model.FeeStructure{
		Name: "Orphan", TotalAmount: decimal.NewFromInt(10), CurrencyID: uuid.New(),
	})
	var nf *apperr.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestCatalogueService_Calendar(t *testing.T) {
	env := newTestEnv(t)
	svc := NewCatalogueService(env.catalogue, env.batches)
	ctx := context.Background()

	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	dec := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	y1, err := svc.CreateAcademicYear(ctx, model.AcademicYear{Name: "2025", StartDate: jan, EndDate: dec, IsCurrent: true})
	require.NoError(t, err)
	y2, err := svc.CreateAcademicYear(ctx, model.AcademicYear{Name: "2026", StartDate: jan.AddDate(1, 0, 0), EndDate: dec.AddDate(1, 0, 0), IsCurrent: true})
	require.NoError(t, err)

	years, err := svc.ListAcademicYears(ctx)
	require.NoError(t, err)
	current := map[uuid.UUID]bool{}
	for _, y := range years {
		current[y.ID] = y.IsCurrent
	}
	assert.False(t, current[y1.ID])
	assert.True(t, current[y2.ID])

	_, err = svc.CreateAcademicYear(ctx, model.AcademicYear{Name: "bad", StartDate: dec, EndDate: jan})
	var verr *apperr.ValidationError
	assert.True(t, errors.As(err, &verr))

	sem, err := svc.CreateSemester(ctx, model.Semester{Name: "Spring", AcademicYearID: y2.ID, StartDate: jan, EndDate: dec, IsCurrent: true})
	require.NoError(t, err)
	assert.True(t, sem.IsCurrent)

	_, err = svc.CreateSemester(ctx, model.Semester{Name: "Lost", AcademicYearID: uuid.New(), StartDate: jan, EndDate: dec})
	var nf *apperr.NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestCatalogueService_CreateBatch(t *testing.T) {
	env := newTestEnv(t)
	svc := NewCatalogueService(env.catalogue, env.batches)
	ctx := context.Background()

	b, err := svc.CreateBatch(ctx, model.Batch{Name: "Evening Batch 22"})
	require.NoError(t, err)
	assert.Equal(t, "B22", b.Code)
	assert.Equal(t, model.BatchPlanning, b.Status)

	explicit, err := svc.CreateBatch(ctx, model.Batch{Name: "Weekend", Code: "WKND", Status: model.BatchActive})
	require.NoError(t, err)
	assert.Equal(t, "WKND", explicit.Code)

	// same derived code as the fixture batch
	_, err = svc.CreateBatch(ctx, model.Batch{Name: "Morning Batch 21"})
	var ierr *apperr.IntegrityError
	assert.True(t, errors.As(err, &ierr))

	_, err = svc.CreateBatch(ctx, model.Batch{Name: "Odd 23", FeeStructureID: ptr(uuid.New())})
	var nf *apperr.NotFoundError
	assert.True(t, errors.As(err, &nf))

	course, err := svc.CreateCourse(ctx, model.Course{Code: "cs101", Name: "Programming", Credits: 3})
	require.NoError(t, err)
	assert.Equal(t, "CS101", course.Code)
}
