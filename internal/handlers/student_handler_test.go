package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/apperr"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStudentService struct {
	mock.Mock
}

func (m *MockStudentService) EnrollStudent(ctx context.Context, req model.EnrollStudentRequest) (*model.EnrollmentResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EnrollmentResult), args.Error(1)
}

func (m *MockStudentService) FindDuplicates(ctx context.Context, first, last, phone string) ([]*model.DuplicateMatch, error) {
	args := m.Called(ctx, first, last, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.DuplicateMatch), args.Error(1)
}

func (m *MockStudentService) Get(ctx context.Context, id uuid.UUID) (*model.Student, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Student), args.Error(1)
}

func (m *MockStudentService) List(ctx context.Context, f model.StudentFilter) ([]*model.Student, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Student), args.Get(1).(int64), args.Error(2)
}

func (m *MockStudentService) Update(ctx context.Context, id uuid.UUID, req model.StudentUpdateRequest) (*model.Student, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Student), args.Error(1)
}

func (m *MockStudentService) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStudentService) Detail(ctx context.Context, id uuid.UUID) (*model.StudentDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StudentDetail), args.Error(1)
}

func TestStudentHandler_EnrollStudent(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := new(MockStudentService)
		h := NewStudentHandler(svc)

		svc.On("EnrollStudent", mock.Anything, mock.MatchedBy(func(r model.EnrollStudentRequest) bool {
			return r.FirstName == "Rahim" && r.Phone == "01712345678" &&
				r.EnrolledBy != nil && *r.EnrolledBy == adminActor.UserID
		})).Return(&model.EnrollmentResult{
			Student: &model.Student{StudentCode: "STU-2025-0001", FirstName: "Rahim"},
			Ledger:  &model.Ledger{Status: model.LedgerPending},
		}, nil)

		body := []byte(`{"first_name":"Rahim","last_name":"Uddin","phone":"01712345678"}`)
		ctx := asActor(setupTestContext("POST", "/api/v1/students", body), adminActor)
		h.EnrollStudent(ctx)

		assert.Equal(t, 201, ctx.Response.StatusCode())
		var resp model.EnrollmentResult
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
		assert.Equal(t, "STU-2025-0001", resp.Student.StudentCode)
		assert.Equal(t, model.LedgerPending, resp.Ledger.Status)
		svc.AssertExpectations(t)
	})

	t.Run("validation error", func(t *testing.T) {
		svc := new(MockStudentService)
		svc.On("EnrollStudent", mock.Anything, mock.Anything).
			Return(nil, apperr.ValidationFields(map[string]string{"first_name": "first_name is required"}))

		ctx := asActor(setupTestContext("POST", "/api/v1/students", []byte(`{"phone":"01712345678"}`)), adminActor)
		NewStudentHandler(svc).EnrollStudent(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
		assert.Equal(t, "first_name is required", decodeError(t, ctx).Fields["first_name"])
	})

	t.Run("students may not enroll", func(t *testing.T) {
		svc := new(MockStudentService)
		ctx := asActor(setupTestContext("POST", "/api/v1/students", []byte(`{}`)), &model.Actor{UserID: uuid.New(), Role: model.RoleStudent})
		NewStudentHandler(svc).EnrollStudent(ctx)

		assert.Equal(t, 403, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "EnrollStudent", mock.Anything, mock.Anything)
	})
}

func TestStudentHandler_ListStudents(t *testing.T) {
	svc := new(MockStudentService)
	h := NewStudentHandler(svc)

	svc.On("List", mock.Anything, model.StudentFilter{
		Status: model.StudentActive,
		Search: "STU-2025",
		Limit:  10,
		Offset: 10,
	}).Return([]*model.Student{{StudentCode: "STU-2025-0011"}}, int64(11), nil)

	ctx := asActor(setupTestContext("GET", "/api/v1/students?status=active&q=STU-2025&limit=10&offset=10", nil), adminActor)
	h.ListStudents(ctx)

	assert.Equal(t, 200, ctx.Response.StatusCode())
	var resp listResponse[*model.Student]
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &resp))
	assert.Equal(t, int64(11), resp.Total)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "STU-2025-0011", resp.Items[0].StudentCode)
	svc.AssertExpectations(t)
}

func TestStudentHandler_FindDuplicates(t *testing.T) {
	svc := new(MockStudentService)
	h := NewStudentHandler(svc)
	svc.On("FindDuplicates", mock.Anything, "Rahim", "Uddin", "").Return(nil, nil)

	ctx := asActor(setupTestContext("GET", "/api/v1/students/duplicates?first_name=Rahim&last_name=Uddin", nil), adminActor)
	h.FindDuplicates(ctx)

	assert.Equal(t, 200, ctx.Response.StatusCode())
	assert.JSONEq(t, `{"matches":[]}`, string(ctx.Response.Body()))
}

func TestStudentHandler_Detail(t *testing.T) {
	svc := new(MockStudentService)
	h := NewStudentHandler(svc)
	id := uuid.New()
	svc.On("Detail", mock.Anything, id).Return(nil, apperr.NotFound("student", id.String()))

	ctx := withParam(asActor(setupTestContext("GET", "/", nil), adminActor), "id", id.String())
	h.GetStudent(ctx)
	assert.Equal(t, 404, ctx.Response.StatusCode())
}

func TestStudentHandler_UpdateAndDelete(t *testing.T) {
	svc := new(MockStudentService)
	h := NewStudentHandler(svc)
	id := uuid.New()

	svc.On("Update", mock.Anything, id, mock.MatchedBy(func(r model.StudentUpdateRequest) bool {
		return r.Status != nil && *r.Status == model.StudentGraduated && r.FirstName == nil
	})).Return(&model.Student{ID: id, Status: model.StudentGraduated}, nil)
	svc.On("Delete", mock.Anything, id).Return(nil)

	ctx := withParam(asActor(setupTestContext("PATCH", "/", []byte(`{"status":"graduated"}`)), adminActor), "id", id.String())
	h.UpdateStudent(ctx)
	assert.Equal(t, 200, ctx.Response.StatusCode())

	ctx = withParam(asActor(setupTestContext("DELETE", "/", nil), adminActor), "id", id.String())
	h.DeleteStudent(ctx)
	assert.Equal(t, 204, ctx.Response.StatusCode())

	svc.AssertExpectations(t)
}
