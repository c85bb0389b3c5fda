package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/internal/outbox"
	"github.com/nimasrn/academy-ledger/internal/validation"
)

type AcademicRepository interface {
	UpsertGrade(ctx context.Context, g *model.Grade) (*model.Grade, error)
	GradesByBatch(ctx context.Context, batchID uuid.UUID, semesterID *uuid.UUID) ([]*model.Grade, error)
	GradesByStudent(ctx context.Context, studentID uuid.UUID) ([]*model.Grade, error)
	UpsertAttendance(ctx context.Context, a *model.Attendance) (*model.Attendance, error)
	AttendanceByBatch(ctx context.Context, batchID uuid.UUID, from, to *time.Time) ([]*model.Attendance, error)
	AttendanceByStudent(ctx context.Context, studentID uuid.UUID, limit int) ([]*model.Attendance, error)
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type CourseReader interface {
	GetCourse(ctx context.Context, id uuid.UUID) (*model.Course, error)
	GetSemester(ctx context.Context, id uuid.UUID) (*model.Semester, error)
}

// AcademicService keeps the grade book and the attendance register.
type AcademicService struct {
	academicRepo AcademicRepository
	studentRepo  StudentReader
	batchRepo    BatchReader
	courseRepo   CourseReader
	replicator   Replicator
}

func NewAcademicService(academicRepo AcademicRepository, studentRepo StudentReader, batchRepo BatchReader, courseRepo CourseReader, replicator Replicator) *AcademicService {
	return &AcademicService{
		academicRepo: academicRepo,
		studentRepo:  studentRepo,
		batchRepo:    batchRepo,
		courseRepo:   courseRepo,
		replicator:   replicator,
	}
}

// RecordGrade computes the total and letter and stores the grade, replacing
// any earlier grade for the same student, course and semester.
func (s *AcademicService) RecordGrade(ctx context.Context, g model.Grade) (*model.Grade, error) {
	g.ID = uuid.Nil
	ApplyDefaultWeights(&g)
	if err := validation.Struct(g); err != nil {
		return nil, err
	}
	g.Notes = strings.TrimSpace(g.Notes)
	CalculateGrade(&g)

	var stored *model.Grade
	err := runAndReplicate(ctx, s.academicRepo, s.replicator, func(ctx context.Context, buf *eventBuffer) error {
		student, err := s.studentRepo.GetByID(ctx, g.StudentID)
		if err != nil {
			return err
		}
		if _, err := s.batchRepo.GetByID(ctx, g.BatchID); err != nil {
			return err
		}
		course, err := s.courseRepo.GetCourse(ctx, g.CourseID)
		if err != nil {
			return err
		}
		if _, err := s.courseRepo.GetSemester(ctx, g.SemesterID); err != nil {
			return err
		}

		stored, err = s.academicRepo.UpsertGrade(ctx, &g)
		if err != nil {
			return err
		}
		stored.CourseCredits = course.Credits
		buf.add(outbox.GradeRecorded(stored, student.StudentCode, course.Name))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// RecordAttendance marks a student for one course on one day. The date is
// truncated to the calendar day in UTC.
func (s *AcademicService) RecordAttendance(ctx context.Context, a model.Attendance) (*model.Attendance, error) {
	if err := validation.Struct(a); err != nil {
		return nil, err
	}
	a.ID = uuid.Nil
	a.Date = dayOf(a.Date)
	a.Notes = strings.TrimSpace(a.Notes)

	var stored *model.Attendance
	err := runAndReplicate(ctx, s.academicRepo, s.replicator, func(ctx context.Context, buf *eventBuffer) error {
		student, err := s.studentRepo.GetByID(ctx, a.StudentID)
		if err != nil {
			return err
		}
		if _, err := s.batchRepo.GetByID(ctx, a.BatchID); err != nil {
			return err
		}
		course, err := s.courseRepo.GetCourse(ctx, a.CourseID)
		if err != nil {
			return err
		}

		stored, err = s.academicRepo.UpsertAttendance(ctx, &a)
		if err != nil {
			return err
		}
		buf.add(outbox.AttendanceRecorded(stored, student.StudentCode, course.Name))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (s *AcademicService) GradesByBatch(ctx context.Context, batchID uuid.UUID, semesterID *uuid.UUID) ([]*model.Grade, error) {
	if _, err := s.batchRepo.GetByID(ctx, batchID); err != nil {
		return nil, err
	}
	return s.academicRepo.GradesByBatch(ctx, batchID, semesterID)
}

func (s *AcademicService) AttendanceByBatch(ctx context.Context, batchID uuid.UUID, from, to *time.Time) ([]*model.Attendance, error) {
	if _, err := s.batchRepo.GetByID(ctx, batchID); err != nil {
		return nil, err
	}
	if from != nil {
		d := dayOf(*from)
		from = &d
	}
	if to != nil {
		d := dayOf(*to)
		to = &d
	}
	return s.academicRepo.AttendanceByBatch(ctx, batchID, from, to)
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
