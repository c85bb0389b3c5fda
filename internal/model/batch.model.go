package model

import (
	"time"

	"github.com/google/uuid"
)

type BatchStatus string

const (
	BatchPlanning  BatchStatus = "planning"
	BatchActive    BatchStatus = "active"
	BatchCompleted BatchStatus = "completed"
	BatchCancelled BatchStatus = "cancelled"
)

type Batch struct {
	ID             uuid.UUID   `json:"id"`
	Name           string      `json:"name" validate:"notblank,max=50"`
	Code           string      `json:"code" validate:"max=20"`
	AcademicYearID *uuid.UUID  `json:"academic_year_id,omitempty"`
	SemesterID     *uuid.UUID  `json:"semester_id,omitempty"`
	StartDate      *time.Time  `json:"start_date,omitempty"`
	EndDate        *time.Time  `json:"end_date,omitempty"`
	Status         BatchStatus `json:"status" validate:"omitempty,oneof=planning active completed cancelled"`
	CoordinatorID  *uuid.UUID  `json:"coordinator_id,omitempty"`
	FeeStructureID *uuid.UUID  `json:"fee_structure_id,omitempty"`
	IsActive       bool        `json:"is_active"`
	CreatedAt      time.Time   `json:"created_at"`
	StudentCount   int64       `json:"student_count"`
}

type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceExcused AttendanceStatus = "excused"
)

type Attendance struct {
	ID        uuid.UUID        `json:"id"`
	BatchID   uuid.UUID        `json:"batch_id" validate:"required"`
	StudentID uuid.UUID        `json:"student_id" validate:"required"`
	CourseID  uuid.UUID        `json:"course_id" validate:"required"`
	Date      time.Time        `json:"date" validate:"required"`
	Status    AttendanceStatus `json:"status" validate:"required,oneof=present absent late excused"`
	Notes     string           `json:"notes"`
	IsActive  bool             `json:"is_active"`
	CreatedAt time.Time        `json:"created_at"`
}

// Grade is one student's result in one course for one semester.
type Grade struct {
	ID               uuid.UUID  `json:"id"`
	BatchID          uuid.UUID  `json:"batch_id" validate:"required"`
	StudentID        uuid.UUID  `json:"student_id" validate:"required"`
	CourseID         uuid.UUID  `json:"course_id" validate:"required"`
	SemesterID       uuid.UUID  `json:"semester_id" validate:"required"`
	AssignmentScore  float64    `json:"assignment_score" validate:"gte=0,lte=100"`
	QuizScore        float64    `json:"quiz_score" validate:"gte=0,lte=100"`
	MidtermScore     float64    `json:"midterm_score" validate:"gte=0,lte=100"`
	FinalScore       float64    `json:"final_score" validate:"gte=0,lte=100"`
	AssignmentWeight float64    `json:"assignment_weight" validate:"gte=0,lte=100"`
	QuizWeight       float64    `json:"quiz_weight" validate:"gte=0,lte=100"`
	MidtermWeight    float64    `json:"midterm_weight" validate:"gte=0,lte=100"`
	FinalWeight      float64    `json:"final_weight" validate:"gte=0,lte=100"`
	TotalScore       float64    `json:"total_score"`
	LetterGrade      string     `json:"letter_grade"`
	InstructorID     *uuid.UUID `json:"instructor_id,omitempty"`
	Notes            string     `json:"notes"`
	IsActive         bool       `json:"is_active"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	CourseCredits    int        `json:"course_credits,omitempty"`
}
