package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EmploymentType string

const (
	EmploymentFullTime EmploymentType = "full_time"
	EmploymentPartTime EmploymentType = "part_time"
	EmploymentContract EmploymentType = "contract"
	EmploymentVisiting EmploymentType = "visiting"
)

type TeacherStatus string

const (
	TeacherActive   TeacherStatus = "active"
	TeacherInactive TeacherStatus = "inactive"
	TeacherOnLeave  TeacherStatus = "on_leave"
	TeacherRetired  TeacherStatus = "retired"
)

type Teacher struct {
	ID              uuid.UUID        `json:"id"`
	EmployeeCode    string           `json:"employee_id"`
	UserID          *uuid.UUID       `json:"user_id,omitempty"`
	FirstName       string           `json:"first_name" validate:"notblank,max=150"`
	LastName        string           `json:"last_name" validate:"max=150"`
	Email           string           `json:"email" validate:"omitempty,email"`
	Phone           string           `json:"phone" validate:"phone"`
	Designation     string           `json:"designation"`
	Specialization  string           `json:"specialization"`
	HireDate        time.Time        `json:"hire_date"`
	Salary          *decimal.Decimal `json:"salary,omitempty" validate:"omitempty,dgte=0"`
	EmploymentType  EmploymentType   `json:"employment_type" validate:"omitempty,oneof=full_time part_time contract visiting"`
	Qualifications  string           `json:"qualifications"`
	ExperienceYears int              `json:"experience_years" validate:"gte=0"`
	Status          TeacherStatus    `json:"status" validate:"omitempty,oneof=active inactive on_leave retired"`
	IsActive        bool             `json:"is_active"`
	CreatedAt       time.Time        `json:"created_at"`
}

func (t *Teacher) FullName() string {
	if t.LastName == "" {
		return t.FirstName
	}
	return t.FirstName + " " + t.LastName
}
