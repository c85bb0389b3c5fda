package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/pkg/logger"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const seedDateLayout = "2006-01-02"

type seedCurrency struct {
	Code         string `mapstructure:"code"`
	Name         string `mapstructure:"name"`
	Symbol       string `mapstructure:"symbol"`
	ExchangeRate string `mapstructure:"exchange_rate"`
	Default      bool   `mapstructure:"default"`
}

type seedFeeStructure struct {
	Name         string `mapstructure:"name"`
	Description  string `mapstructure:"description"`
	TotalAmount  string `mapstructure:"total_amount"`
	Currency     string `mapstructure:"currency"`
	Installments int    `mapstructure:"installments"`
}

type seedSemester struct {
	Name      string `mapstructure:"name"`
	StartDate string `mapstructure:"start_date"`
	EndDate   string `mapstructure:"end_date"`
	Current   bool   `mapstructure:"current"`
}

type seedAcademicYear struct {
	Name      string         `mapstructure:"name"`
	StartDate string         `mapstructure:"start_date"`
	EndDate   string         `mapstructure:"end_date"`
	Current   bool           `mapstructure:"current"`
	Semesters []seedSemester `mapstructure:"semesters"`
}

type seedCourse struct {
	Code        string `mapstructure:"code"`
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	Credits     int    `mapstructure:"credits"`
}

type seedBatch struct {
	Name         string `mapstructure:"name"`
	Code         string `mapstructure:"code"`
	AcademicYear string `mapstructure:"academic_year"`
	FeeStructure string `mapstructure:"fee_structure"`
	StartDate    string `mapstructure:"start_date"`
	EndDate      string `mapstructure:"end_date"`
	Status       string `mapstructure:"status"`
}

// seedCatalogue is the reference data loaded by `cli seed`.
type seedCatalogue struct {
	Currencies    []seedCurrency     `mapstructure:"currencies"`
	FeeStructures []seedFeeStructure `mapstructure:"fee_structures"`
	AcademicYears []seedAcademicYear `mapstructure:"academic_years"`
	Courses       []seedCourse       `mapstructure:"courses"`
	Batches       []seedBatch        `mapstructure:"batches"`
}

type CatalogueSeeder interface {
	CreateCurrency(ctx context.Context, c model.Currency) (*model.Currency, error)
	ListCurrencies(ctx context.Context) ([]*model.Currency, error)
	CreateFeeStructure(ctx context.Context, f model.FeeStructure) (*model.FeeStructure, error)
	ListFeeStructures(ctx context.Context) ([]*model.FeeStructure, error)
	CreateAcademicYear(ctx context.Context, y model.AcademicYear) (*model.AcademicYear, error)
	ListAcademicYears(ctx context.Context) ([]*model.AcademicYear, error)
	CreateSemester(ctx context.Context, s model.Semester) (*model.Semester, error)
	ListSemesters(ctx context.Context, academicYearID *uuid.UUID) ([]*model.Semester, error)
	CreateCourse(ctx context.Context, c model.Course) (*model.Course, error)
	ListCourses(ctx context.Context) ([]*model.Course, error)
	CreateBatch(ctx context.Context, b model.Batch) (*model.Batch, error)
	ListBatches(ctx context.Context, status model.BatchStatus) ([]*model.Batch, error)
}

// loadSeed reads a yaml/json/toml catalogue file. SEED_ prefixed environment
// variables override top-level keys.
func loadSeed(path string) (*seedCatalogue, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("SEED")
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "reading seed file %s", path)
	}

	var c seedCatalogue
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "decoding seed file")
	}
	return &c, nil
}

type seedResult struct {
	Created int
	Skipped int
}

// applySeed creates every entry that does not exist yet. Entries are matched
// by currency code, course code, batch code and by name otherwise, so the
// command can be re-run against a populated database.
func applySeed(ctx context.Context, svc CatalogueSeeder, c *seedCatalogue) (seedResult, error) {
	var res seedResult

	currencies, err := svc.ListCurrencies(ctx)
	if err != nil {
		return res, err
	}
	currencyByCode := make(map[string]uuid.UUID, len(currencies))
	for _, cur := range currencies {
		currencyByCode[cur.Code] = cur.ID
	}
	for _, sc := range c.Currencies {
		code := strings.ToUpper(strings.TrimSpace(sc.Code))
		if _, ok := currencyByCode[code]; ok {
			res.Skipped++
			continue
		}
		rate := decimal.NewFromInt(1)
		if sc.ExchangeRate != "" {
			if rate, err = decimal.NewFromString(sc.ExchangeRate); err != nil {
				return res, errors.Wrapf(err, "currency %s: exchange_rate", code)
			}
		}
		created, err := svc.CreateCurrency(ctx, model.Currency{
			Code:         code,
			Name:         sc.Name,
			Symbol:       sc.Symbol,
			ExchangeRate: rate,
			IsDefault:    sc.Default,
		})
		if err != nil {
			return res, errors.Wrapf(err, "currency %s", code)
		}
		currencyByCode[created.Code] = created.ID
		res.Created++
	}

	fees, err := svc.ListFeeStructures(ctx)
	if err != nil {
		return res, err
	}
	feeByName := make(map[string]uuid.UUID, len(fees))
	for _, f := range fees {
		feeByName[f.Name] = f.ID
	}
	for _, sf := range c.FeeStructures {
		name := strings.TrimSpace(sf.Name)
		if _, ok := feeByName[name]; ok {
			res.Skipped++
			continue
		}
		currencyID, ok := currencyByCode[strings.ToUpper(sf.Currency)]
		if !ok {
			return res, fmt.Errorf("fee structure %s: unknown currency %q", name, sf.Currency)
		}
		total, err := decimal.NewFromString(sf.TotalAmount)
		if err != nil {
			return res, errors.Wrapf(err, "fee structure %s: total_amount", name)
		}
		created, err := svc.CreateFeeStructure(ctx, model.FeeStructure{
			Name:             name,
			Description:      sf.Description,
			TotalAmount:      total,
			CurrencyID:       currencyID,
			InstallmentCount: sf.Installments,
		})
		if err != nil {
			return res, errors.Wrapf(err, "fee structure %s", name)
		}
		feeByName[created.Name] = created.ID
		res.Created++
	}

	years, err := svc.ListAcademicYears(ctx)
	if err != nil {
		return res, err
	}
	yearByName := make(map[string]uuid.UUID, len(years))
	for _, y := range years {
		yearByName[y.Name] = y.ID
	}
	for _, sy := range c.AcademicYears {
		name := strings.TrimSpace(sy.Name)
		yearID, ok := yearByName[name]
		if ok {
			res.Skipped++
		} else {
			start, end, err := seedDates(sy.StartDate, sy.EndDate)
			if err != nil {
				return res, errors.Wrapf(err, "academic year %s", name)
			}
			created, err := svc.CreateAcademicYear(ctx, model.AcademicYear{
				Name:      name,
				StartDate: start,
				EndDate:   end,
				IsCurrent: sy.Current,
			})
			if err != nil {
				return res, errors.Wrapf(err, "academic year %s", name)
			}
			yearID = created.ID
			yearByName[name] = yearID
			res.Created++
		}

		semesters, err := svc.ListSemesters(ctx, &yearID)
		if err != nil {
			return res, err
		}
		existing := make(map[string]bool, len(semesters))
		for _, s := range semesters {
			existing[s.Name] = true
		}
		for _, ss := range sy.Semesters {
			if existing[strings.TrimSpace(ss.Name)] {
				res.Skipped++
				continue
			}
			start, end, err := seedDates(ss.StartDate, ss.EndDate)
			if err != nil {
				return res, errors.Wrapf(err, "semester %s", ss.Name)
			}
			if _, err := svc.CreateSemester(ctx, model.Semester{
				Name:           ss.Name,
				AcademicYearID: yearID,
				StartDate:      start,
				EndDate:        end,
				IsCurrent:      ss.Current,
			}); err != nil {
				return res, errors.Wrapf(err, "semester %s", ss.Name)
			}
			res.Created++
		}
	}

	courses, err := svc.ListCourses(ctx)
	if err != nil {
		return res, err
	}
	courseCodes := make(map[string]bool, len(courses))
	for _, co := range courses {
		courseCodes[co.Code] = true
	}
	for _, sc := range c.Courses {
		code := strings.ToUpper(strings.TrimSpace(sc.Code))
		if courseCodes[code] {
			res.Skipped++
			continue
		}
		if _, err := svc.CreateCourse(ctx, model.Course{
			Code:        code,
			Name:        sc.Name,
			Description: sc.Description,
			Credits:     sc.Credits,
		}); err != nil {
			return res, errors.Wrapf(err, "course %s", code)
		}
		res.Created++
	}

	batches, err := svc.ListBatches(ctx, "")
	if err != nil {
		return res, err
	}
	batchNames := make(map[string]bool, len(batches))
	for _, b := range batches {
		batchNames[b.Name] = true
	}
	for _, sb := range c.Batches {
		name := strings.TrimSpace(sb.Name)
		if batchNames[name] {
			res.Skipped++
			continue
		}
		b := model.Batch{Name: name, Code: sb.Code, Status: model.BatchStatus(sb.Status)}
		if sb.AcademicYear != "" {
			id, ok := yearByName[sb.AcademicYear]
			if !ok {
				return res, fmt.Errorf("batch %s: unknown academic year %q", name, sb.AcademicYear)
			}
			b.AcademicYearID = &id
		}
		if sb.FeeStructure != "" {
			id, ok := feeByName[sb.FeeStructure]
			if !ok {
				return res, fmt.Errorf("batch %s: unknown fee structure %q", name, sb.FeeStructure)
			}
			b.FeeStructureID = &id
		}
		if sb.StartDate != "" && sb.EndDate != "" {
			start, end, err := seedDates(sb.StartDate, sb.EndDate)
			if err != nil {
				return res, errors.Wrapf(err, "batch %s", name)
			}
			b.StartDate, b.EndDate = &start, &end
		}
		if _, err := svc.CreateBatch(ctx, b); err != nil {
			return res, errors.Wrapf(err, "batch %s", name)
		}
		res.Created++
	}

	logger.Info("seed applied", "created", res.Created, "skipped", res.Skipped)
	return res, nil
}

func seedDates(start, end string) (time.Time, time.Time, error) {
	s, err := time.Parse(seedDateLayout, start)
	if err != nil {
		return time.Time{}, time.Time{}, errors.Wrap(err, "start_date")
	}
	e, err := time.Parse(seedDateLayout, end)
	if err != nil {
		return time.Time{}, time.Time{}, errors.Wrap(err, "end_date")
	}
	return s, e, nil
}
