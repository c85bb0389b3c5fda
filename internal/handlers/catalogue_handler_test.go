package handlers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/apperr"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCatalogueService struct {
	mock.Mock
}

func ret[T any](args mock.Arguments) (T, error) {
	var zero T
	if args.Get(0) == nil {
		return zero, args.Error(1)
	}
	return args.Get(0).(T), args.Error(1)
}

func (m *MockCatalogueService) CreateCurrency(ctx context.Context, c model.Currency) (*model.Currency, error) {
	return ret[*model.Currency](m.Called(ctx, c))
}

func (m *MockCatalogueService) ListCurrencies(ctx context.Context) ([]*model.Currency, error) {
	return ret[[]*model.Currency](m.Called(ctx))
}

func (m *MockCatalogueService) CreateFeeStructure(ctx context.Context, f model.FeeStructure) (*model.FeeStructure, error) {
	return ret[*model.FeeStructure](m.Called(ctx, f))
}

func (m *MockCatalogueService) GetFeeStructure(ctx context.Context, id uuid.UUID) (*model.FeeStructure, error) {
	return ret[*model.FeeStructure](m.Called(ctx, id))
}

func (m *MockCatalogueService) ListFeeStructures(ctx context.Context) ([]*model.FeeStructure, error) {
	return ret[[]*model.FeeStructure](m.Called(ctx))
}

func (m *MockCatalogueService) CreateAcademicYear(ctx context.Context, y model.AcademicYear) (*model.AcademicYear, error) {
	return ret[*model.AcademicYear](m.Called(ctx, y))
}

func (m *MockCatalogueService) ListAcademicYears(ctx context.Context) ([]*model.AcademicYear, error) {
	return ret[[]*model.AcademicYear](m.Called(ctx))
}

func (m *MockCatalogueService) SetCurrentAcademicYear(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCatalogueService) CreateSemester(ctx context.Context, sem model.Semester) (*model.Semester, error) {
	return ret[*model.Semester](m.Called(ctx, sem))
}

func (m *MockCatalogueService) ListSemesters(ctx context.Context, academicYearID *uuid.UUID) ([]*model.Semester, error) {
	return ret[[]*model.Semester](m.Called(ctx, academicYearID))
}

func (m *MockCatalogueService) SetCurrentSemester(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCatalogueService) CreateCourse(ctx context.Context, c model.Course) (*model.Course, error) {
	return ret[*model.Course](m.Called(ctx, c))
}

func (m *MockCatalogueService) GetCourse(ctx context.Context, id uuid.UUID) (*model.Course, error) {
	return ret[*model.Course](m.Called(ctx, id))
}

func (m *MockCatalogueService) ListCourses(ctx context.Context) ([]*model.Course, error) {
	return ret[[]*model.Course](m.Called(ctx))
}

func (m *MockCatalogueService) CreateBatch(ctx context.Context, b model.Batch) (*model.Batch, error) {
	return ret[*model.Batch](m.Called(ctx, b))
}

func (m *MockCatalogueService) GetBatch(ctx context.Context, id uuid.UUID) (*model.Batch, error) {
	return ret[*model.Batch](m.Called(ctx, id))
}

func (m *MockCatalogueService) ListBatches(ctx context.Context, status model.BatchStatus) ([]*model.Batch, error) {
	return ret[[]*model.Batch](m.Called(ctx, status))
}

func TestCatalogueHandler_Currencies(t *testing.T) {
	t.Run("create", func(t *testing.T) {
		svc := new(MockCatalogueService)
		svc.On("CreateCurrency", mock.Anything, mock.MatchedBy(func(c model.Currency) bool {
			return c.Code == "BDT" && c.ExchangeRate.Equal(decimal.RequireFromString("1.0000"))
		})).Return(&model.Currency{ID: uuid.New(), Code: "BDT", Symbol: "৳"}, nil)

		body := []byte(`{"code":"BDT","name":"Bangladeshi Taka","symbol":"৳","exchange_rate":"1.0000"}`)
		ctx := asActor(setupTestContext("POST", "/api/v1/currencies", body), adminActor)
		NewCatalogueHandler(svc).CreateCurrency(ctx)

		assert.Equal(t, 201, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("duplicate code", func(t *testing.T) {
		svc := new(MockCatalogueService)
		svc.On("CreateCurrency", mock.Anything, mock.Anything).Return(nil, apperr.Integrity("currency BDT already exists", nil))

		ctx := asActor(setupTestContext("POST", "/api/v1/currencies", []byte(`{"code":"BDT"}`)), adminActor)
		NewCatalogueHandler(svc).CreateCurrency(ctx)
		assert.Equal(t, 409, ctx.Response.StatusCode())
	})

	t.Run("staff may not edit the catalogue", func(t *testing.T) {
		svc := new(MockCatalogueService)
		ctx := asActor(setupTestContext("POST", "/api/v1/currencies", []byte(`{"code":"USD"}`)), &model.Actor{UserID: uuid.New(), Role: model.RoleStaff})
		NewCatalogueHandler(svc).CreateCurrency(ctx)

		assert.Equal(t, 403, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "CreateCurrency", mock.Anything, mock.Anything)
	})

	t.Run("list", func(t *testing.T) {
		svc := new(MockCatalogueService)
		svc.On("ListCurrencies", mock.Anything).Return([]*model.Currency{{Code: "BDT"}, {Code: "USD"}}, nil)

		ctx := asActor(setupTestContext("GET", "/api/v1/currencies", nil), adminActor)
		NewCatalogueHandler(svc).ListCurrencies(ctx)

		var resp listResponse[*model.Currency]
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
		assert.Equal(t, int64(2), resp.Total)
		assert.Equal(t, "USD", resp.Items[1].Code)
	})
}

func TestCatalogueHandler_Batches(t *testing.T) {
	svc := new(MockCatalogueService)
	h := NewCatalogueHandler(svc)
	id := uuid.New()

	svc.On("ListBatches", mock.Anything, model.BatchStatus("active")).Return([]*model.Batch{{ID: id, Name: "Spring Batch 21"}}, nil)
	svc.On("GetBatch", mock.Anything, id).Return(&model.Batch{ID: id, Name: "Spring Batch 21", StudentCount: 30}, nil)

	ctx := asActor(setupTestContext("GET", "/api/v1/batches?status=active", nil), adminActor)
	h.ListBatches(ctx)
	assert.Equal(t, 200, ctx.Response.StatusCode())

	ctx = withParam(asActor(setupTestContext("GET", "/", nil), adminActor), "id", id.String())
	h.GetBatch(ctx)
	assert.Equal(t, 200, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), `"student_count":30`)

	svc.AssertExpectations(t)
}

func TestCatalogueHandler_SetCurrentSemester(t *testing.T) {
	svc := new(MockCatalogueService)
	id := uuid.New()
	svc.On("SetCurrentSemester", mock.Anything, id).Return(nil)

	ctx := withParam(asActor(setupTestContext("POST", "/", nil), adminActor), "id", id.String())
	NewCatalogueHandler(svc).SetCurrentSemester(ctx)

	assert.Equal(t, 204, ctx.Response.StatusCode())
	svc.AssertExpectations(t)
}

type MockAcademicService struct {
	mock.Mock
}

func (m *MockAcademicService) RecordGrade(ctx context.Context, g model.Grade) (*model.Grade, error) {
	return ret[*model.Grade](m.Called(ctx, g))
}

func (m *MockAcademicService) RecordAttendance(ctx context.Context, a model.Attendance) (*model.Attendance, error) {
	return ret[*model.Attendance](m.Called(ctx, a))
}

func (m *MockAcademicService) GradesByBatch(ctx context.Context, batchID uuid.UUID, semesterID *uuid.UUID) ([]*model.Grade, error) {
	return ret[[]*model.Grade](m.Called(ctx, batchID, semesterID))
}

func (m *MockAcademicService) AttendanceByBatch(ctx context.Context, batchID uuid.UUID, from, to *time.Time) ([]*model.Attendance, error) {
	return ret[[]*model.Attendance](m.Called(ctx, batchID, from, to))
}

func TestAcademicHandler(t *testing.T) {
	teacher := &model.Actor{UserID: uuid.New(), Role: model.RoleTeacher}

	t.Run("teachers record grades", func(t *testing.T) {
		svc := new(MockAcademicService)
		svc.On("RecordGrade", mock.Anything, mock.MatchedBy(func(g model.Grade) bool {
			return g.MidtermScore == 70 && g.InstructorID != nil && *g.InstructorID == teacher.UserID
		})).Return(&model.Grade{TotalScore: 73, LetterGrade: "B"}, nil)

		body := []byte(`{"assignment_score":80,"quiz_score":90,"midterm_score":70,"final_score":60}`)
		ctx := asActor(setupTestContext("POST", "/api/v1/grades", body), teacher)
		NewAcademicHandler(svc).RecordGrade(ctx)

		assert.Equal(t, 201, ctx.Response.StatusCode())
		assert.Contains(t, string(ctx.Response.Body()), `"letter_grade":"B"`)
		svc.AssertExpectations(t)
	})

	t.Run("parents may not record attendance", func(t *testing.T) {
		svc := new(MockAcademicService)
		ctx := asActor(setupTestContext("POST", "/api/v1/attendance", []byte(`{}`)), &model.Actor{UserID: uuid.New(), Role: model.RoleParent})
		NewAcademicHandler(svc).RecordAttendance(ctx)
		assert.Equal(t, 403, ctx.Response.StatusCode())
	})

	t.Run("attendance by batch with range", func(t *testing.T) {
		svc := new(MockAcademicService)
		batchID := uuid.New()
		from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
		svc.On("AttendanceByBatch", mock.Anything, batchID, &from, (*time.Time)(nil)).Return([]*model.Attendance{}, nil)

		ctx := withParam(asActor(setupTestContext("GET", "/?from=2025-03-01", nil), teacher), "id", batchID.String())
		NewAcademicHandler(svc).AttendanceByBatch(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})
}

type MockContactService struct {
	mock.Mock
}

func (m *MockContactService) Create(ctx context.Context, c model.Contact, createdBy *uuid.UUID) (*model.Contact, error) {
	return ret[*model.Contact](m.Called(ctx, c, createdBy))
}

func (m *MockContactService) Get(ctx context.Context, id uuid.UUID) (*model.Contact, error) {
	return ret[*model.Contact](m.Called(ctx, id))
}

func (m *MockContactService) List(ctx context.Context, f model.ContactFilter) ([]*model.Contact, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Contact), args.Get(1).(int64), args.Error(2)
}

func (m *MockContactService) Update(ctx context.Context, id uuid.UUID, req model.ContactUpdateRequest) (*model.Contact, error) {
	return ret[*model.Contact](m.Called(ctx, id, req))
}

func (m *MockContactService) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func TestContactHandler(t *testing.T) {
	staff := &model.Actor{UserID: uuid.New(), Role: model.RoleStaff}

	t.Run("staff create contacts", func(t *testing.T) {
		svc := new(MockContactService)
		svc.On("Create", mock.Anything, mock.MatchedBy(func(c model.Contact) bool { return c.Name == "Karim" }), &staff.UserID).
			Return(&model.Contact{ID: uuid.New(), Name: "Karim"}, nil)

		ctx := asActor(setupTestContext("POST", "/api/v1/contacts", []byte(`{"name":"Karim","phone":"01812345678"}`)), staff)
		NewContactHandler(svc).CreateContact(ctx)

		assert.Equal(t, 201, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("search", func(t *testing.T) {
		svc := new(MockContactService)
		svc.On("List", mock.Anything, model.ContactFilter{Search: "kar", Limit: 5}).Return([]*model.Contact{{Name: "Karim"}}, int64(1), nil)

		ctx := asActor(setupTestContext("GET", "/api/v1/contacts?q=kar&limit=5", nil), staff)
		NewContactHandler(svc).ListContacts(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("delete missing", func(t *testing.T) {
		svc := new(MockContactService)
		id := uuid.New()
		svc.On("Delete", mock.Anything, id).Return(apperr.NotFound("contact", id.String()))

		ctx := withParam(asActor(setupTestContext("DELETE", "/", nil), staff), "id", id.String())
		NewContactHandler(svc).DeleteContact(ctx)
		assert.Equal(t, 404, ctx.Response.StatusCode())
	})
}
