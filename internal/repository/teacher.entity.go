package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/pkg/pg"
	"github.com/shopspring/decimal"
)

type TeacherEntity struct {
	pg.Model
	EmployeeCode    string              `gorm:"column:employee_id;size:20;not null;uniqueIndex"`
	UserID          *uuid.UUID          `gorm:"column:user_id;type:uuid"`
	FirstName       string              `gorm:"column:first_name;size:150;not null"`
	LastName        string              `gorm:"column:last_name;size:150"`
	Email           string              `gorm:"column:email;size:254"`
	Phone           string              `gorm:"column:phone;size:17"`
	Designation     string              `gorm:"column:designation;size:100"`
	Specialization  string              `gorm:"column:specialization;size:200"`
	HireDate        time.Time           `gorm:"column:hire_date;type:date;not null"`
	Salary          decimal.NullDecimal `gorm:"column:salary;type:numeric(10,2)"`
	EmploymentType  string              `gorm:"column:employment_type;size:20;not null;default:full_time"`
	Qualifications  string              `gorm:"column:qualifications;type:text"`
	ExperienceYears int                 `gorm:"column:experience_years;not null;default:0"`
	Status          string              `gorm:"column:status;size:20;not null;default:active"`
}

func (TeacherEntity) TableName() string {
	return "teachers"
}

func toTeacherEntity(m *model.Teacher) *TeacherEntity {
	e := &TeacherEntity{
		Model:           pg.Model{ID: m.ID, CreatedAt: m.CreatedAt, IsActive: m.IsActive},
		EmployeeCode:    m.EmployeeCode,
		UserID:          m.UserID,
		FirstName:       m.FirstName,
		LastName:        m.LastName,
		Email:           m.Email,
		Phone:           m.Phone,
		Designation:     m.Designation,
		Specialization:  m.Specialization,
		HireDate:        m.HireDate,
		EmploymentType:  string(m.EmploymentType),
		Qualifications:  m.Qualifications,
		ExperienceYears: m.ExperienceYears,
		Status:          string(m.Status),
	}
	if m.Salary != nil {
		e.Salary = decimal.NewNullDecimal(*m.Salary)
	}
	return e
}

func toTeacherModel(e *TeacherEntity) *model.Teacher {
	m := &model.Teacher{
		ID:              e.ID,
		EmployeeCode:    e.EmployeeCode,
		UserID:          e.UserID,
		FirstName:       e.FirstName,
		LastName:        e.LastName,
		Email:           e.Email,
		Phone:           e.Phone,
		Designation:     e.Designation,
		Specialization:  e.Specialization,
		HireDate:        e.HireDate,
		EmploymentType:  model.EmploymentType(e.EmploymentType),
		Qualifications:  e.Qualifications,
		ExperienceYears: e.ExperienceYears,
		Status:          model.TeacherStatus(e.Status),
		IsActive:        e.IsActive,
		CreatedAt:       e.CreatedAt,
	}
	if e.Salary.Valid {
		salary := e.Salary.Decimal
		m.Salary = &salary
	}
	return m
}
