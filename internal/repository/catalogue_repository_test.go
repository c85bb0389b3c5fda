package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nimasrn/academy-ledger/internal/apperr"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogueRepository_Currencies(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCatalogueRepository(db.DB)
	ctx := context.Background()

	t.Run("fallback code when nothing is default", func(t *testing.T) {
		_, err := repo.CreateCurrency(ctx, &model.Currency{Code: "BDT", Name: "Bangladeshi Taka", Symbol: "৳", ExchangeRate: decimal.NewFromInt(110)})
		require.NoError(t, err)

		c, err := repo.DefaultCurrency(ctx, "bdt")
		require.NoError(t, err)
		assert.Equal(t, "BDT", c.Code)
	})

	t.Run("flagged default wins", func(t *testing.T) {
		usd, err := repo.CreateCurrency(ctx, &model.Currency{Code: "USD", Name: "US Dollar", Symbol: "$", ExchangeRate: decimal.NewFromInt(1), IsDefault: true})
		require.NoError(t, err)

		c, err := repo.DefaultCurrency(ctx, "BDT")
		require.NoError(t, err)
		assert.Equal(t, usd.ID, c.ID)
	})

	t.Run("duplicate code", func(t *testing.T) {
		_, err := repo.CreateCurrency(ctx, &model.Currency{Code: "USD", Name: "Again", Symbol: "$", ExchangeRate: decimal.NewFromInt(1)})
		var integrity *apperr.IntegrityError
		assert.True(t, errors.As(err, &integrity))
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := repo.GetCurrencyByCode(ctx, "EUR")
		var notFound *apperr.NotFoundError
		assert.True(t, errors.As(err, &notFound))
	})

	list, err := repo.ListCurrencies(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestCatalogueRepository_SetCurrent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCatalogueRepository(db.DB)
	ctx := context.Background()

	y1, err := repo.CreateAcademicYear(ctx, &model.AcademicYear{
		Name:      "2024-2025",
		StartDate: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		IsCurrent: true,
	})
	require.NoError(t, err)
	y2, err := repo.CreateAcademicYear(ctx, &model.AcademicYear{
		Name:      "2025-2026",
		StartDate: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.NoError(t, repo.SetCurrentAcademicYear(ctx, y2.ID))

	got1, err := repo.GetAcademicYear(ctx, y1.ID)
	require.NoError(t, err)
	got2, err := repo.GetAcademicYear(ctx, y2.ID)
	require.NoError(t, err)
	assert.False(t, got1.IsCurrent)
	assert.True(t, got2.IsCurrent)

	t.Run("unknown id rolls back", func(t *testing.T) {
		err := repo.SetCurrentSemester(ctx, y1.ID)
		var notFound *apperr.NotFoundError
		assert.True(t, errors.As(err, &notFound))
	})
}

func TestCatalogueRepository_FeeStructure(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCatalogueRepository(db.DB)
	ctx := context.Background()

	usd, err := repo.CreateCurrency(ctx, &model.Currency{Code: "USD", Name: "US Dollar", Symbol: "$", ExchangeRate: decimal.NewFromInt(1)})
	require.NoError(t, err)

	fs, err := repo.CreateFeeStructure(ctx, &model.FeeStructure{
		Name:             "Standard",
		TotalAmount:      decimal.NewFromInt(1000),
		CurrencyID:       usd.ID,
		InstallmentCount: 3,
	})
	require.NoError(t, err)

	loaded, err := repo.GetFeeStructure(ctx, fs.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Currency)
	assert.Equal(t, "USD", loaded.Currency.Code)
	assert.Equal(t, "333.33", loaded.InstallmentAmount().StringFixed(2))
}
