package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/apperr"
	"github.com/nimasrn/academy-ledger/internal/model"
	"github.com/nimasrn/academy-ledger/internal/outbox"
	"github.com/nimasrn/academy-ledger/internal/validation"
	"github.com/nimasrn/academy-ledger/pkg/logger"
	"github.com/shopspring/decimal"
)

type StudentRepository interface {
	Create(ctx context.Context, s *model.Student) (*model.Student, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Student, error)
	GetByCode(ctx context.Context, code string) (*model.Student, error)
	MaxCode(ctx context.Context, prefix string) (string, error)
	Updates(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f model.StudentFilter) ([]*model.Student, int64, error) // results, totalCount
	FindByName(ctx context.Context, first, last string) ([]*model.Student, error)
	FindByPhone(ctx context.Context, phone string) ([]*model.Student, error)
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// StudentRecords reads a student's grade book and attendance register.
type StudentRecords interface {
	GradesByStudent(ctx context.Context, studentID uuid.UUID) ([]*model.Grade, error)
	AttendanceByStudent(ctx context.Context, studentID uuid.UUID, limit int) ([]*model.Attendance, error)
}

type SemesterLister interface {
	ListSemesters(ctx context.Context, academicYearID *uuid.UUID) ([]*model.Semester, error)
}

const (
	recentTransactionLimit = 10
	recentAttendanceLimit  = 30
)

type StudentService struct {
	studentRepo  StudentRepository
	batchRepo    BatchReader
	ledgers      *LedgerService
	recordsRepo  StudentRecords
	semesterRepo SemesterLister
	replicator   Replicator
	now          func() time.Time
}

func NewStudentService(studentRepo StudentRepository, batchRepo BatchReader, ledgers *LedgerService, recordsRepo StudentRecords, semesterRepo SemesterLister, replicator Replicator) *StudentService {
	return &StudentService{
		studentRepo:  studentRepo,
		batchRepo:    batchRepo,
		ledgers:      ledgers,
		recordsRepo:  recordsRepo,
		semesterRepo: semesterRepo,
		replicator:   replicator,
		now:          time.Now,
	}
}

// EnrollStudent assigns the student code, stores the student, opens the
// ledger for the batch and posts the first installment when one is given,
// all in one transaction.
func (s *StudentService) EnrollStudent(ctx context.Context, req model.EnrollStudentRequest) (*model.EnrollmentResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if req.BatchID == nil && (req.FirstInstallment != nil || req.TargetAmount != nil) {
		return nil, apperr.ValidationFields(map[string]string{"batch_id": "a batch is required to open a payment record"})
	}
	if req.FirstInstallment != nil && req.TargetAmount == nil {
		return nil, apperr.ValidationFields(map[string]string{"target_amount": "required with a first installment"})
	}

	enrolled := dayOf(s.now())
	if req.EnrollmentDate != nil {
		enrolled = dayOf(*req.EnrollmentDate)
	}

	result := &model.EnrollmentResult{}
	err := runAndReplicate(ctx, s.studentRepo, s.replicator, func(ctx context.Context, buf *eventBuffer) error {
		var batch *model.Batch
		if req.BatchID != nil {
			b, err := s.batchRepo.GetByID(ctx, *req.BatchID)
			if err != nil {
				return err
			}
			batch = b
		}

		code, err := NextCode(ctx, s.studentRepo, StudentCodePrefix, enrolled.Year())
		if err != nil {
			return err
		}

		student, err := s.studentRepo.Create(ctx, &model.Student{
			StudentCode:                  code,
			UserID:                       req.UserID,
			FirstName:                    strings.TrimSpace(req.FirstName),
			LastName:                     strings.TrimSpace(req.LastName),
			Email:                        strings.TrimSpace(req.Email),
			Phone:                        strings.TrimSpace(req.Phone),
			DateOfBirth:                  req.DateOfBirth,
			Gender:                       req.Gender,
			Nationality:                  req.Nationality,
			Address:                      req.Address,
			City:                         req.City,
			State:                        req.State,
			PostalCode:                   req.PostalCode,
			Country:                      req.Country,
			BatchID:                      req.BatchID,
			EnrollmentDate:               enrolled,
			Status:                       model.StudentActive,
			EmergencyContactName:         req.EmergencyContactName,
			EmergencyContactPhone:        req.EmergencyContactPhone,
			EmergencyContactRelationship: req.EmergencyContactRelationship,
			Note:                         req.Note,
			IsActive:                     true,
		})
		if err != nil {
			return err
		}
		result.Student = student
		buf.add(outbox.StudentUpserted(student, batch))

		if batch == nil {
			return nil
		}
		ledger, _, err := s.ledgers.ensureLedger(ctx, student.ID, batch.ID, enrollmentTerms(student, req))
		if err != nil {
			return err
		}
		result.Ledger = ledger

		if req.FirstInstallment == nil {
			return nil
		}
		posted, err := s.ledgers.postInTx(ctx, model.PostTransactionRequest{
			LedgerID:    ledger.ID,
			Amount:      *req.FirstInstallment,
			Method:      model.PayCash,
			Notes:       firstInstallmentNote,
			ProcessedBy: req.EnrolledBy,
		}, buf)
		if err != nil {
			return err
		}
		ledger.Status = posted.Status
		result.Transaction = posted.Transaction
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("student enrolled", "student_id", result.Student.StudentCode, "batch_id", req.BatchID)
	return result, nil
}

// enrollmentTerms uses the admin-supplied payment terms, or the automatic
// zero-target ledger when none were given.
func enrollmentTerms(student *model.Student, req model.EnrollStudentRequest) ledgerTerms {
	if req.TargetAmount == nil {
		return ledgerTerms{
			Target: decimal.Zero,
			Method: model.MethodInstallments,
			Notes:  "Auto-created payment record for " + student.FullName(),
		}
	}
	method := req.LedgerMethod
	if method == "" {
		method = model.MethodInstallments
	}
	return ledgerTerms{
		Target:     *req.TargetAmount,
		CurrencyID: req.CurrencyID,
		Method:     method,
		CreatedBy:  req.EnrolledBy,
	}
}

// FindDuplicates looks for students that may be the same person: both names
// contained in the other's names in either order, or a phone containing the
// given one. Each student is reported once; a name match wins.
func (s *StudentService) FindDuplicates(ctx context.Context, first, last, phone string) ([]*model.DuplicateMatch, error) {
	byName, err := s.studentRepo.FindByName(ctx, first, last)
	if err != nil {
		return nil, err
	}
	byPhone, err := s.studentRepo.FindByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{}, len(byName)+len(byPhone))
	matches := make([]*model.DuplicateMatch, 0, len(byName)+len(byPhone))
	add := func(students []*model.Student, kind string) {
		for _, st := range students {
			if _, dup := seen[st.ID]; dup {
				continue
			}
			seen[st.ID] = struct{}{}
			matches = append(matches, &model.DuplicateMatch{Student: st, MatchType: kind})
		}
	}
	add(byName, "name")
	add(byPhone, "phone")
	return matches, nil
}

func (s *StudentService) Get(ctx context.Context, id uuid.UUID) (*model.Student, error) {
	return s.studentRepo.GetByID(ctx, id)
}

func (s *StudentService) List(ctx context.Context, f model.StudentFilter) ([]*model.Student, int64, error) {
	return s.studentRepo.List(ctx, f)
}

// Update applies a partial update and replicates the result.
func (s *StudentService) Update(ctx context.Context, id uuid.UUID, req model.StudentUpdateRequest) (*model.Student, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	setString := func(col string, v *string) {
		if v != nil {
			fields[col] = strings.TrimSpace(*v)
		}
	}
	setString("first_name", req.FirstName)
	setString("last_name", req.LastName)
	setString("email", req.Email)
	setString("phone", req.Phone)
	setString("address", req.Address)
	setString("city", req.City)
	setString("country", req.Country)
	setString("note", req.Note)
	setString("nationality", req.Nationality)
	if req.Status != nil {
		fields["status"] = string(*req.Status)
	}
	if req.BatchID != nil {
		fields["batch_id"] = *req.BatchID
	}

	var updated *model.Student
	err := runAndReplicate(ctx, s.studentRepo, s.replicator, func(ctx context.Context, buf *eventBuffer) error {
		if req.BatchID != nil {
			if _, err := s.batchRepo.GetByID(ctx, *req.BatchID); err != nil {
				return err
			}
		}
		if err := s.studentRepo.Updates(ctx, id, fields); err != nil {
			return err
		}
		st, err := s.studentRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		updated = st
		buf.add(outbox.StudentUpserted(st, s.batchOf(ctx, st)))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete soft-deletes the student and removes it from the replica. Ledgers
// are kept.
func (s *StudentService) Delete(ctx context.Context, id uuid.UUID) error {
	return runAndReplicate(ctx, s.studentRepo, s.replicator, func(ctx context.Context, buf *eventBuffer) error {
		st, err := s.studentRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.studentRepo.Deactivate(ctx, id); err != nil {
			return err
		}
		buf.add(outbox.Deleted(model.CollectionStudents, st.StudentCode))
		return nil
	})
}

// Detail gathers everything the student page shows. GPA covers the grades
// of the current semester only.
func (s *StudentService) Detail(ctx context.Context, id uuid.UUID) (*model.StudentDetail, error) {
	st, err := s.studentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d := &model.StudentDetail{Student: st, Batch: s.batchOf(ctx, st)}

	if d.Ledgers, err = s.ledgers.LedgersOf(ctx, model.LedgerFilter{StudentID: &id}); err != nil {
		return nil, err
	}
	if d.RecentTransactions, err = s.ledgers.transactionRepo.RecentByStudent(ctx, id, recentTransactionLimit); err != nil {
		return nil, err
	}
	if d.Grades, err = s.recordsRepo.GradesByStudent(ctx, id); err != nil {
		return nil, err
	}
	if d.Attendance, err = s.recordsRepo.AttendanceByStudent(ctx, id, recentAttendanceLimit); err != nil {
		return nil, err
	}

	semesters, err := s.semesterRepo.ListSemesters(ctx, nil)
	if err != nil {
		return nil, err
	}
	for _, sem := range semesters {
		if !sem.IsCurrent {
			continue
		}
		var current []*model.Grade
		for _, g := range d.Grades {
			if g.SemesterID == sem.ID {
				current = append(current, g)
			}
		}
		d.GPA = GPA(current)
		break
	}
	return d, nil
}

// batchOf returns the student's batch, or nil when it has none or it is gone.
func (s *StudentService) batchOf(ctx context.Context, st *model.Student) *model.Batch {
	if st.BatchID == nil {
		return nil
	}
	b, err := s.batchRepo.GetByID(ctx, *st.BatchID)
	if err != nil {
		if !isNotFound(err) {
			logger.Warn("load student batch failed", "student_id", st.StudentCode, "error", err)
		}
		return nil
	}
	return b
}
