package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ExtensionStatus string

const (
	ExtensionPending  ExtensionStatus = "pending"
	ExtensionApproved ExtensionStatus = "approved"
	ExtensionRejected ExtensionStatus = "rejected"
)

// ExtensionRequest asks for more days on a complaint's deadline. Only the
// most recent pending request of a complaint is actionable; decided
// requests are terminal.
type ExtensionRequest struct {
	ID                string          `gorm:"type:uuid;primaryKey" json:"id"`
	ComplaintID       string          `gorm:"type:uuid;not null;index:idx_extension_complaint_status" json:"complaint_id"`
	RequestedBy       string          `gorm:"type:uuid;not null" json:"requested_by"`
	RequestedByUserID string          `gorm:"type:uuid" json:"requested_by_user_id,omitempty"`
	RequestedByRole   Role            `gorm:"type:text;not null" json:"requested_by_role"`
	DaysRequested     int             `gorm:"not null" json:"days_requested"`
	Reason            string          `gorm:"type:text" json:"reason,omitempty"`
	Status            ExtensionStatus `gorm:"type:text;not null;index:idx_extension_complaint_status" json:"status"`
	DaysGranted       int             `json:"days_granted,omitempty"`
	DecidedBy         *string         `gorm:"type:uuid" json:"decided_by,omitempty"`
	DecidedAt         *time.Time      `json:"decided_at,omitempty"`
	Notes             string          `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *ExtensionRequest) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return
}

// Decide moves a pending request into its terminal state.
func (r *ExtensionRequest) Decide(status ExtensionStatus, deciderID string, at time.Time, notes string) {
	r.Status = status
	r.DecidedBy = &deciderID
	r.DecidedAt = &at
	r.Notes = notes
}

func (r ExtensionRequest) Clone() ExtensionRequest {
	out := r
	out.DecidedBy = cloneString(r.DecidedBy)
	out.DecidedAt = cloneTime(r.DecidedAt)
	return out
}
