package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type StudentStatus string

const (
	StudentActive    StudentStatus = "active"
	StudentInactive  StudentStatus = "inactive"
	StudentGraduated StudentStatus = "graduated"
	StudentSuspended StudentStatus = "suspended"
	StudentWithdrawn StudentStatus = "withdrawn"
)

type Student struct {
	ID                           uuid.UUID     `json:"id"`
	StudentCode                  string        `json:"student_id"`
	UserID                       *uuid.UUID    `json:"user_id,omitempty"`
	FirstName                    string        `json:"first_name"`
	LastName                     string        `json:"last_name"`
	Email                        string        `json:"email"`
	Phone                        string        `json:"phone"`
	DateOfBirth                  *time.Time    `json:"date_of_birth,omitempty"`
	Gender                       string        `json:"gender"`
	Nationality                  string        `json:"nationality"`
	Address                      string        `json:"address"`
	City                         string        `json:"city"`
	State                        string        `json:"state"`
	PostalCode                   string        `json:"postal_code"`
	Country                      string        `json:"country"`
	BatchID                      *uuid.UUID    `json:"batch_id,omitempty"`
	EnrollmentDate               time.Time     `json:"enrollment_date"`
	Status                       StudentStatus `json:"status"`
	EmergencyContactName         string        `json:"emergency_contact_name"`
	EmergencyContactPhone        string        `json:"emergency_contact_phone"`
	EmergencyContactRelationship string        `json:"emergency_contact_relationship"`
	Note                         string        `json:"note"`
	IsActive                     bool          `json:"is_active"`
	CreatedAt                    time.Time     `json:"created_at"`
	UpdatedAt                    time.Time     `json:"updated_at"`
}

func (s *Student) FullName() string {
	switch {
	case s.FirstName == "":
		return s.LastName
	case s.LastName == "":
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

type StudentFilter struct {
	BatchID *uuid.UUID
	Status  StudentStatus
	Search  string
	Limit   int
	Offset  int
}

type EnrollStudentRequest struct {
	FirstName                    string           `json:"first_name" validate:"notblank,max=150"`
	LastName                     string           `json:"last_name" validate:"max=150"`
	Email                        string           `json:"email" validate:"omitempty,email"`
	Phone                        string           `json:"phone" validate:"phone"`
	DateOfBirth                  *time.Time       `json:"date_of_birth"`
	Gender                       string           `json:"gender" validate:"omitempty,oneof=male female other"`
	Nationality                  string           `json:"nationality"`
	Address                      string           `json:"address"`
	City                         string           `json:"city"`
	State                        string           `json:"state"`
	PostalCode                   string           `json:"postal_code"`
	Country                      string           `json:"country"`
	BatchID                      *uuid.UUID       `json:"batch_id"`
	EnrollmentDate               *time.Time       `json:"enrollment_date"`
	EmergencyContactName         string           `json:"emergency_contact_name"`
	EmergencyContactPhone        string           `json:"emergency_contact_phone" validate:"phone"`
	EmergencyContactRelationship string           `json:"emergency_contact_relationship"`
	Note                         string           `json:"note"`
	UserID                       *uuid.UUID       `json:"user_id"`
	TargetAmount                 *decimal.Decimal `json:"target_amount" validate:"omitempty,dgte=0"`
	CurrencyID                   *uuid.UUID       `json:"currency_id"`
	LedgerMethod                 LedgerMethod     `json:"payment_method" validate:"omitempty,oneof=installments full_payment"`
	FirstInstallment             *decimal.Decimal `json:"first_installment" validate:"omitempty,dgt=0"`
	EnrolledBy                   *uuid.UUID       `json:"-"`
}

// StudentUpdateRequest is a partial update; nil fields are left alone.
type StudentUpdateRequest struct {
	FirstName   *string        `json:"first_name" validate:"omitempty,notblank"`
	LastName    *string        `json:"last_name"`
	Email       *string        `json:"email" validate:"omitempty,email"`
	Phone       *string        `json:"phone" validate:"omitempty,phone"`
	Address     *string        `json:"address"`
	City        *string        `json:"city"`
	Country     *string        `json:"country"`
	BatchID     *uuid.UUID     `json:"batch_id"`
	Status      *StudentStatus `json:"status" validate:"omitempty,oneof=active inactive graduated suspended withdrawn"`
	Note        *string        `json:"note"`
	Nationality *string        `json:"nationality"`
}

type EnrollmentResult struct {
	Student     *Student     `json:"student"`
	Ledger      *Ledger      `json:"ledger,omitempty"`
	Transaction *Transaction `json:"transaction,omitempty"`
}

type DuplicateMatch struct {
	Student *Student `json:"student"`
	// name | phone
	MatchType string `json:"match_type"`
}

type StudentDetail struct {
	Student            *Student       `json:"student"`
	Batch              *Batch         `json:"batch,omitempty"`
	Ledgers            []*LedgerView  `json:"ledgers"`
	RecentTransactions []*Transaction `json:"recent_transactions"`
	Grades             []*Grade       `json:"grades"`
	Attendance         []*Attendance  `json:"attendance"`
	GPA                float64        `json:"gpa"`
}
