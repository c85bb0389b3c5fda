package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/academy-ledger/internal/model"
)

func newEvent(collection, docID string, op model.ReplicaOp, payload map[string]any) *model.OutboxEvent {
	var raw json.RawMessage
	if payload != nil {
		raw, _ = json.Marshal(payload)
	}
	return &model.OutboxEvent{
		ReplicaEvent: model.ReplicaEvent{
			ID:         uuid.New(),
			Collection: collection,
			DocumentID: docID,
			Operation:  op,
			Payload:    raw,
			OccurredAt: time.Now().UTC(),
		},
		Status: model.OutboxPending,
	}
}

func isoDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02")
}

func optionalID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

// StudentUpserted replicates a student keyed by student code. batch may be nil.
func StudentUpserted(s *model.Student, batch *model.Batch) *model.OutboxEvent {
	data := map[string]any{
		"student_id":                     s.StudentCode,
		"user_id":                        optionalID(s.UserID),
		"first_name":                     s.FirstName,
		"last_name":                      s.LastName,
		"email":                          s.Email,
		"date_of_birth":                  isoDate(s.DateOfBirth),
		"gender":                         s.Gender,
		"nationality":                    s.Nationality,
		"phone":                          s.Phone,
		"address":                        s.Address,
		"city":                           s.City,
		"state":                          s.State,
		"postal_code":                    s.PostalCode,
		"country":                        s.Country,
		"batch_id":                       optionalID(s.BatchID),
		"batch_name":                     nil,
		"enrollment_date":                s.EnrollmentDate.Format("2006-01-02"),
		"status":                         string(s.Status),
		"emergency_contact_name":         s.EmergencyContactName,
		"emergency_contact_phone":        s.EmergencyContactPhone,
		"emergency_contact_relationship": s.EmergencyContactRelationship,
		"is_active":                      s.IsActive,
	}
	if batch != nil {
		data["batch_name"] = batch.Name
	}
	return newEvent(model.CollectionStudents, s.StudentCode, model.ReplicaUpsert, data)
}

// PaymentPosted replicates a transaction keyed by receipt number together
// with the ledger figures after it was applied.
func PaymentPosted(tx *model.Transaction, ledger *model.Ledger, studentCode string, totals model.LedgerTotals) *model.OutboxEvent {
	data := map[string]any{
		"transaction_id":   tx.ID.String(),
		"payment_id":       ledger.ID.String(),
		"student_id":       studentCode,
		"batch_id":         ledger.BatchID.String(),
		"amount":           tx.Amount.InexactFloat64(),
		"payment_method":   string(tx.Method),
		"payment_date":     tx.PaidAt.Format(time.RFC3339),
		"receipt_number":   tx.ReceiptNumber,
		"notes":            tx.Notes,
		"processed_by":     optionalID(tx.ProcessedBy),
		"ledger_status":    string(ledger.Status),
		"total_amount":     ledger.TargetAmount.InexactFloat64(),
		"total_paid":       totals.TotalPaid.InexactFloat64(),
		"remaining_amount": totals.RemainingAmount.InexactFloat64(),
		"is_active":        tx.IsActive,
	}
	if ledger.Currency != nil {
		data["currency_code"] = ledger.Currency.Code
	}
	return newEvent(model.CollectionPayments, tx.ReceiptNumber, model.ReplicaUpsert, data)
}

func GradeRecorded(g *model.Grade, studentCode, courseName string) *model.OutboxEvent {
	data := map[string]any{
		"grade_id":         g.ID.String(),
		"student_id":       studentCode,
		"batch_id":         g.BatchID.String(),
		"course_id":        g.CourseID.String(),
		"course_name":      courseName,
		"semester_id":      g.SemesterID.String(),
		"assignment_score": g.AssignmentScore,
		"quiz_score":       g.QuizScore,
		"midterm_score":    g.MidtermScore,
		"final_score":      g.FinalScore,
		"total_score":      g.TotalScore,
		"letter_grade":     g.LetterGrade,
		"instructor_id":    optionalID(g.InstructorID),
		"notes":            g.Notes,
		"is_active":        g.IsActive,
	}
	return newEvent(model.CollectionGrades, g.ID.String(), model.ReplicaUpsert, data)
}

func AttendanceRecorded(a *model.Attendance, studentCode, courseName string) *model.OutboxEvent {
	data := map[string]any{
		"attendance_id": a.ID.String(),
		"student_id":    studentCode,
		"batch_id":      a.BatchID.String(),
		"course_id":     a.CourseID.String(),
		"course_name":   courseName,
		"date":          a.Date.Format("2006-01-02"),
		"status":        string(a.Status),
		"notes":         a.Notes,
		"is_active":     a.IsActive,
	}
	return newEvent(model.CollectionAttendance, a.ID.String(), model.ReplicaUpsert, data)
}

func ProfileSaved(u *model.User, p *model.UserProfile) *model.OutboxEvent {
	data := map[string]any{
		"user_id":    u.ID.String(),
		"username":   u.Username,
		"email":      u.Email,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"role":       string(p.Role),
		"phone":      p.Phone,
		"bio":        p.Bio,
		"is_active":  u.IsActive,
	}
	for k, v := range p.Preferences {
		if _, taken := data[k]; !taken {
			data[k] = v
		}
	}
	return newEvent(model.CollectionUserProfiles, u.ID.String(), model.ReplicaUpsert, data)
}

// Deleted removes a document from the replica.
func Deleted(collection, docID string) *model.OutboxEvent {
	return newEvent(collection, docID, model.ReplicaDelete, nil)
}
