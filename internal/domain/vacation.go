package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Vacation request statuses. A request starts "pendiente"; admins move it to
// "aprobada"/"rechazada", the owner may move it to "cancelada" while pending.
// All other states are terminal.
const (
	StatusPending   = "pendiente"
	StatusApproved  = "aprobada"
	StatusRejected  = "rechazada"
	StatusCancelled = "cancelada"
)

// Vacation event types written to the audit trail.
const (
	EventRequestCreated   = "CREATED"
	EventRequestApproved  = "APPROVED"
	EventRequestRejected  = "REJECTED"
	EventRequestCancelled = "CANCELLED"
)

// VacationRequest is one row of the request ledger. total_days is the
// business-day count computed at creation time and never recomputed.
type VacationRequest struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	StartDate    DateOnly   `gorm:"column:start_date;type:date;not null" json:"start_date"`
	EndDate      DateOnly   `gorm:"column:end_date;type:date;not null" json:"end_date"`
	TotalDays    int        `gorm:"column:total_days;not null" json:"total_days"`
	Status       string     `gorm:"column:status;type:varchar(20);default:'pendiente';index" json:"status"`
	Reason       *string    `gorm:"column:reason" json:"reason"`
	ApproverID   *uuid.UUID `gorm:"column:approver_id;type:uuid" json:"approver_id"`
	DecisionAt   *time.Time `gorm:"column:decision_at" json:"decision_at"`
	AdminComment *string    `gorm:"column:admin_comment" json:"admin_comment"`
	CreatedAt    time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (VacationRequest) TableName() string {
	return "vacation_requests"
}

func (r *VacationRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// VacationBalance is keyed by (user_id, year). Absence of a row means an
// all-zero balance and the admission balance check is skipped.
type VacationBalance struct {
	UserID        uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	Year          int       `gorm:"column:year;primaryKey" json:"year"`
	DaysAllocated int       `gorm:"column:days_allocated;not null;default:0" json:"days_allocated"`
	DaysCarried   int       `gorm:"column:days_carried;not null;default:0" json:"days_carried"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (VacationBalance) TableName() string {
	return "vacation_balances"
}

// VacationPolicy rows are string key/value pairs; consumers parse them into a
// typed policy set with defaults.
type VacationPolicy struct {
	Key         string    `gorm:"column:key;primaryKey" json:"key"`
	Value       string    `gorm:"column:value;not null" json:"value"`
	Description string    `gorm:"column:description" json:"description"`
	UpdatedAt   time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (VacationPolicy) TableName() string {
	return "vacation_policies"
}

// VacationEvent is the append-only audit trail for a request. Events are
// written in the same transaction as the mutation they record.
type VacationEvent struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	RequestID uuid.UUID      `gorm:"column:request_id;type:uuid;not null;index" json:"request_id"`
	EventType string         `gorm:"column:event_type;type:varchar(20);not null" json:"event_type"`
	ActorID   *uuid.UUID     `gorm:"column:actor_id;type:uuid" json:"actor_id"`
	EventData datatypes.JSON `gorm:"column:event_data;type:json" json:"event_data"`
	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (VacationEvent) TableName() string {
	return "vacation_events"
}

func (e *VacationEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
