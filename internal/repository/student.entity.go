package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/pkg/pg"
)

type StudentEntity struct {
	pg.Model
	StudentCode                  string     `gorm:"column:student_id;size:20;not null;uniqueIndex"`
	UserID                       *uuid.UUID `gorm:"column:user_id;type:uuid"`
	FirstName                    string     `gorm:"column:first_name;size:150;not null"`
	LastName                     string     `gorm:"column:last_name;size:150"`
	Email                        string     `gorm:"column:email;size:254"`
	Phone                        string     `gorm:"column:phone;size:17;index"`
	DateOfBirth                  *time.Time `gorm:"column:date_of_birth;type:date"`
	Gender                       string     `gorm:"column:gender;size:10"`
	Nationality                  string     `gorm:"column:nationality;size:50"`
	Address                      string     `gorm:"column:address;type:text"`
	City                         string     `gorm:"column:city;size:50"`
	State                        string     `gorm:"column:state;size:50"`
	PostalCode                   string     `gorm:"column:postal_code;size:10"`
	Country                      string     `gorm:"column:country;size:50"`
	BatchID                      *uuid.UUID `gorm:"column:batch_id;type:uuid;index"`
	EnrollmentDate               time.Time  `gorm:"column:enrollment_date;type:date;not null"`
	Status                       string     `gorm:"column:status;size:20;not null;default:active"`
	EmergencyContactName         string     `gorm:"column:emergency_contact_name;size:100"`
	EmergencyContactPhone        string     `gorm:"column:emergency_contact_phone;size:17"`
	EmergencyContactRelationship string     `gorm:"column:emergency_contact_relationship;size:50"`
	Note                         string     `gorm:"column:note;type:text"`
}

func (StudentEntity) TableName() string {
	return "students"
}

func toStudentEntity(m *model.Student) *StudentEntity {
	if m == nil {
		return nil
	}
	return &StudentEntity{
		Model: pg.Model{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
			IsActive:  m.IsActive,
		},
		StudentCode:                  m.StudentCode,
		UserID:                       m.UserID,
		FirstName:                    m.FirstName,
		LastName:                     m.LastName,
		Email:                        m.Email,
		Phone:                        m.Phone,
		DateOfBirth:                  m.DateOfBirth,
		Gender:                       m.Gender,
		Nationality:                  m.Nationality,
		Address:                      m.Address,
		City:                         m.City,
		State:                        m.State,
		PostalCode:                   m.PostalCode,
		Country:                      m.Country,
		BatchID:                      m.BatchID,
		EnrollmentDate:               m.EnrollmentDate,
		Status:                       string(m.Status),
		EmergencyContactName:         m.EmergencyContactName,
		EmergencyContactPhone:        m.EmergencyContactPhone,
		EmergencyContactRelationship: m.EmergencyContactRelationship,
		Note:                         m.Note,
	}
}

func toStudentModel(e *StudentEntity) *model.Student {
	if e == nil {
		return nil
	}
	return &model.Student{
		ID:                           e.ID,
		StudentCode:                  e.StudentCode,
		UserID:                       e.UserID,
		FirstName:                    e.FirstName,
		LastName:                     e.LastName,
		Email:                        e.Email,
		Phone:                        e.Phone,
		DateOfBirth:                  e.DateOfBirth,
		Gender:                       e.Gender,
		Nationality:                  e.Nationality,
		Address:                      e.Address,
		City:                         e.City,
		State:                        e.State,
		PostalCode:                   e.PostalCode,
		Country:                      e.Country,
		BatchID:                      e.BatchID,
		EnrollmentDate:               e.EnrollmentDate,
		Status:                       model.StudentStatus(e.Status),
		EmergencyContactName:         e.EmergencyContactName,
		EmergencyContactPhone:        e.EmergencyContactPhone,
		EmergencyContactRelationship: e.EmergencyContactRelationship,
		Note:                         e.Note,
		IsActive:                     e.IsActive,
		CreatedAt:                    e.CreatedAt,
		UpdatedAt:                    e.UpdatedAt,
	}
}

func toStudentModels(entities []*StudentEntity) []*model.Student {
	models := make([]*model.Student, len(entities))
	for i, e := range entities {
		models[i] = toStudentModel(e)
	}
	return models
}
