package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	CollectionStudents     = "students"
	CollectionPayments     = "payments"
	CollectionGrades       = "grades"
	CollectionAttendance   = "attendance"
	CollectionUserProfiles = "user_profiles"
)

type ReplicaOp string

const (
	ReplicaUpsert ReplicaOp = "upsert"
	ReplicaDelete ReplicaOp = "delete"
)

type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "pending"
	OutboxPublished OutboxStatus = "published"
)

// ReplicaEvent is one denormalized document change headed for the replica.
type ReplicaEvent struct {
	ID         uuid.UUID       `json:"id"`
	Collection string          `json:"collection"`
	DocumentID string          `json:"document_id"`
	Operation  ReplicaOp       `json:"operation"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type OutboxEvent struct {
	ReplicaEvent
	Status      OutboxStatus `json:"status"`
	Attempts    int          `json:"attempts"`
	LastError   string       `json:"last_error"`
	PublishedAt *time.Time   `json:"published_at,omitempty"`
}
