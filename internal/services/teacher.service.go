package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/internal/validation"
	"github.com/nimasrn/academy-ledger/pkg/logger"
)

type TeacherRepository interface {
	Create(ctx context.Context, t *model.Teacher) (*model.Teacher, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Teacher, error)
	MaxCode(ctx context.Context, prefix string) (string, error)
	List(ctx context.Context, search string, limit, offset int) ([]*model.Teacher, int64, error)
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type TeacherService struct {
	teacherRepo TeacherRepository
	now         func() time.Time
}

func NewTeacherService(teacherRepo TeacherRepository) *TeacherService {
	return &TeacherService{
		teacherRepo: teacherRepo,
		now:         time.Now,
	}
}

// Create assigns the employee code from the hire year and stores the teacher.
func (s *TeacherService) Create(ctx context.Context, t model.Teacher) (*model.Teacher, error) {
	if err := validation.Struct(t); err != nil {
		return nil, err
	}
	t.ID = uuid.Nil
	t.FirstName = strings.TrimSpace(t.FirstName)
	t.LastName = strings.TrimSpace(t.LastName)
	if t.HireDate.IsZero() {
		t.HireDate = s.now()
	}
	t.HireDate = dayOf(t.HireDate)
	if t.EmploymentType == "" {
		t.EmploymentType = model.EmploymentFullTime
	}
	if t.Status == "" {
		t.Status = model.TeacherActive
	}
	t.IsActive = true

	var created *model.Teacher
	err := s.teacherRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		code, err := NextCode(ctx, s.teacherRepo, EmployeeCodePrefix, t.HireDate.Year())
		if err != nil {
			return err
		}
		t.EmployeeCode = code
		created, err = s.teacherRepo.Create(ctx, &t)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info("teacher created", "employee_id", created.EmployeeCode)
	return created, nil
}

func (s *TeacherService) Get(ctx context.Context, id uuid.UUID) (*model.Teacher, error) {
	return s.teacherRepo.GetByID(ctx, id)
}

func (s *TeacherService) List(ctx context.Context, search string, limit, offset int) ([]*model.Teacher, int64, error) {
	return s.teacherRepo.List(ctx, strings.TrimSpace(search), limit, offset)
}
