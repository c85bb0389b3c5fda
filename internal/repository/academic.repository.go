package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/pkg/pg"
	"gorm.io/gorm/clause"
)

const (
	gradeEntity      = "grade"
	attendanceEntity = "attendance"
)

// AcademicRepository keeps the grade book and the attendance register.
type AcademicRepository struct {
	*pg.DB
}

func NewAcademicRepository(db *pg.DB) *AcademicRepository {
	return &AcademicRepository{
		db,
	}
}

// UpsertGrade inserts or replaces the grade for (student, course, semester).
func (r *AcademicRepository) UpsertGrade(ctx context.Context, g *model.Grade) (*model.Grade, error) {
	entity := toGradeEntity(g)
	entity.IsActive = true

	err := r.Write(ctx).WithContext(ctx).
		Omit("Course").
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "student_id"}, {Name: "course_id"}, {Name: "semester_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"batch_id", "assignment_score", "quiz_score", "midterm_score", "final_score",
				"assignment_weight", "quiz_weight", "midterm_weight", "final_weight",
				"total_score", "letter_grade", "instructor_id", "notes", "is_active", "updated_at",
			}),
		}).
		Create(entity).
		Error
	if err != nil {
		return nil, translate(err, gradeEntity, "")
	}

	return r.getGrade(ctx, g.StudentID, g.CourseID, g.SemesterID)
}

func (r *AcademicRepository) getGrade(ctx context.Context, studentID, courseID, semesterID uuid.UUID) (*model.Grade, error) {
	var entity GradeEntity
	err := r.Write(ctx).WithContext(ctx).
		Where("student_id = ? AND course_id = ? AND semester_id = ?", studentID, courseID, semesterID).
		First(&entity).
		Error
	if err != nil {
		return nil, translate(err, gradeEntity, "")
	}
	return toGradeModel(&entity), nil
}

func (r *AcademicRepository) GradesByBatch(ctx context.Context, batchID uuid.UUID, semesterID *uuid.UUID) ([]*model.Grade, error) {
	q := r.Read(ctx).WithContext(ctx).
		Preload("Course").
		Where("batch_id = ? AND is_active = ?", batchID, true)
	if semesterID != nil {
		q = q.Where("semester_id = ?", *semesterID)
	}

	var entities []*GradeEntity
	if err := q.Order("created_at ASC").Find(&entities).Error; err != nil {
		return nil, translate(err, gradeEntity, "list")
	}
	return toGradeModels(entities), nil
}

func (r *AcademicRepository) GradesByStudent(ctx context.Context, studentID uuid.UUID) ([]*model.Grade, error) {
	var entities []*GradeEntity
	err := r.Read(ctx).WithContext(ctx).
		Preload("Course").
		Where("student_id = ? AND is_active = ?", studentID, true).
		Order("created_at DESC").
		Find(&entities).
		Error
	if err != nil {
		return nil, translate(err, gradeEntity, "list")
	}
	return toGradeModels(entities), nil
}

// UpsertAttendance records the status for (student, date, course), replacing
// an earlier mark for the same day.
func (r *AcademicRepository) UpsertAttendance(ctx context.Context, a *model.Attendance) (*model.Attendance, error) {
	entity := toAttendanceEntity(a)
	entity.IsActive = true

	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "date"}, {Name: "course_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"batch_id", "status", "notes", "is_active", "updated_at"}),
		}).
		Create(entity).
		Error
	if err != nil {
		return nil, translate(err, attendanceEntity, "")
	}

	var stored AttendanceEntity
	err = r.Write(ctx).WithContext(ctx).
		Where("student_id = ? AND date = ? AND course_id = ?", a.StudentID, a.Date, a.CourseID).
		First(&stored).
		Error
	if err != nil {
		return nil, translate(err, attendanceEntity, "")
	}
	return toAttendanceModel(&stored), nil
}

func (r *AcademicRepository) AttendanceByBatch(ctx context.Context, batchID uuid.UUID, from, to *time.Time) ([]*model.Attendance, error) {
	q := r.Read(ctx).WithContext(ctx).Where("batch_id = ? AND is_active = ?", batchID, true)
	if from != nil {
		q = q.Where("date >= ?", *from)
	}
	if to != nil {
		q = q.Where("date <= ?", *to)
	}

	var entities []*AttendanceEntity
	if err := q.Order("date DESC").Find(&entities).Error; err != nil {
		return nil, translate(err, attendanceEntity, "list")
	}
	return toAttendanceModels(entities), nil
}

func (r *AcademicRepository) AttendanceByStudent(ctx context.Context, studentID uuid.UUID, limit int) ([]*model.Attendance, error) {
	limit, _ = pageBounds(limit, 0)

	var entities []*AttendanceEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("student_id = ? AND is_active = ?", studentID, true).
		Order("date DESC").
		Limit(limit).
		Find(&entities).
		Error
	if err != nil {
		return nil, translate(err, attendanceEntity, "list")
	}
	return toAttendanceModels(entities), nil
}
