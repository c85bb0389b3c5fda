package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/pkg/pg"
)

type GradeEntity struct {
	pg.Model
	BatchID          uuid.UUID  `gorm:"column:batch_id;type:uuid;not null;index"`
	StudentID        uuid.UUID  `gorm:"column:student_id;type:uuid;not null;uniqueIndex:ux_batch_grades_student_course_semester"`
	CourseID         uuid.UUID  `gorm:"column:course_id;type:uuid;not null;uniqueIndex:ux_batch_grades_student_course_semester"`
	SemesterID       uuid.UUID  `gorm:"column:semester_id;type:uuid;not null;uniqueIndex:ux_batch_grades_student_course_semester"`
	AssignmentScore  float64    `gorm:"column:assignment_score;type:numeric(5,2);not null"`
	QuizScore        float64    `gorm:"column:quiz_score;type:numeric(5,2);not null"`
	MidtermScore     float64    `gorm:"column:midterm_score;type:numeric(5,2);not null"`
	FinalScore       float64    `gorm:"column:final_score;type:numeric(5,2);not null"`
	AssignmentWeight float64    `gorm:"column:assignment_weight;type:numeric(5,2);not null"`
	QuizWeight       float64    `gorm:"column:quiz_weight;type:numeric(5,2);not null"`
	MidtermWeight    float64    `gorm:"column:midterm_weight;type:numeric(5,2);not null"`
	FinalWeight      float64    `gorm:"column:final_weight;type:numeric(5,2);not null"`
	TotalScore       float64    `gorm:"column:total_score;type:numeric(5,2);not null"`
	LetterGrade      string     `gorm:"column:letter_grade;size:2;not null"`
	InstructorID     *uuid.UUID `gorm:"column:instructor_id;type:uuid"`
	Notes            string     `gorm:"column:notes;type:text"`

	Course *CourseEntity `gorm:"foreignKey:CourseID"`
}

func (GradeEntity) TableName() string {
	return "batch_grades"
}

func toGradeEntity(m *model.Grade) *GradeEntity {
	return &GradeEntity{
		Model: pg.Model{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
			IsActive:  m.IsActive,
		},
		BatchID:          m.BatchID,
		StudentID:        m.StudentID,
		CourseID:         m.CourseID,
		SemesterID:       m.SemesterID,
		AssignmentScore:  m.AssignmentScore,
		QuizScore:        m.QuizScore,
		MidtermScore:     m.MidtermScore,
		FinalScore:       m.FinalScore,
		AssignmentWeight: m.AssignmentWeight,
		QuizWeight:       m.QuizWeight,
		MidtermWeight:    m.MidtermWeight,
		FinalWeight:      m.FinalWeight,
		TotalScore:       m.TotalScore,
		LetterGrade:      m.LetterGrade,
		InstructorID:     m.InstructorID,
		Notes:            m.Notes,
	}
}

func toGradeModel(e *GradeEntity) *model.Grade {
	m := &model.Grade{
		ID:               e.ID,
		BatchID:          e.BatchID,
		StudentID:        e.StudentID,
		CourseID:         e.CourseID,
		SemesterID:       e.SemesterID,
		AssignmentScore:  e.AssignmentScore,
		QuizScore:        e.QuizScore,
		MidtermScore:     e.MidtermScore,
		FinalScore:       e.FinalScore,
		AssignmentWeight: e.AssignmentWeight,
		QuizWeight:       e.QuizWeight,
		MidtermWeight:    e.MidtermWeight,
		FinalWeight:      e.FinalWeight,
		TotalScore:       e.TotalScore,
		LetterGrade:      e.LetterGrade,
		InstructorID:     e.InstructorID,
		Notes:            e.Notes,
		IsActive:         e.IsActive,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
	if e.Course != nil {
		m.CourseCredits = e.Course.Credits
	}
	return m
}

func toGradeModels(entities []*GradeEntity) []*model.Grade {
	models := make([]*model.Grade, len(entities))
	for i, e := range entities {
		models[i] = toGradeModel(e)
	}
	return models
}

type AttendanceEntity struct {
	pg.Model
	BatchID   uuid.UUID `gorm:"column:batch_id;type:uuid;not null;index"`
	StudentID uuid.UUID `gorm:"column:student_id;type:uuid;not null;uniqueIndex:ux_attendance_student_date_course"`
	CourseID  uuid.UUID `gorm:"column:course_id;type:uuid;not null;uniqueIndex:ux_attendance_student_date_course"`
	Date      time.Time `gorm:"column:date;type:date;not null;uniqueIndex:ux_attendance_student_date_course"`
	Status    string    `gorm:"column:status;size:10;not null;default:present"`
	Notes     string    `gorm:"column:notes;type:text"`
}

func (AttendanceEntity) TableName() string {
	return "batch_attendance"
}

func toAttendanceEntity(m *model.Attendance) *AttendanceEntity {
	return &AttendanceEntity{
		Model:     pg.Model{ID: m.ID, CreatedAt: m.CreatedAt, IsActive: m.IsActive},
		BatchID:   m.BatchID,
		StudentID: m.StudentID,
		CourseID:  m.CourseID,
		Date:      m.Date,
		Status:    string(m.Status),
		Notes:     m.Notes,
	}
}

func toAttendanceModel(e *AttendanceEntity) *model.Attendance {
	return &model.Attendance{
		ID:        e.ID,
		BatchID:   e.BatchID,
		StudentID: e.StudentID,
		CourseID:  e.CourseID,
		Date:      e.Date,
		Status:    model.AttendanceStatus(e.Status),
		Notes:     e.Notes,
		IsActive:  e.IsActive,
		CreatedAt: e.CreatedAt,
	}
}

func toAttendanceModels(entities []*AttendanceEntity) []*model.Attendance {
	models := make([]*model.Attendance, len(entities))
	for i, e := range entities {
		models[i] = toAttendanceModel(e)
	}
	return models
}
