package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Officer is the person a complaint gets assigned to. Email is the
// system-wide deduplication key. AssignedComplaints is derived from
// Complaint.AssignedOfficerID and must never drift from it.
type Officer struct {
	ID                 string         `gorm:"type:uuid;primaryKey" json:"id"`
	Name               string         `gorm:"type:text;not null" json:"name"`
	Designation        string         `gorm:"type:text" json:"designation"`
	Email              string         `gorm:"type:text;uniqueIndex;not null" json:"email"`
	Phone              string         `gorm:"type:text" json:"phone,omitempty"`
	UserID             *string        `gorm:"type:uuid;uniqueIndex" json:"user_id,omitempty"`
	AssignedComplaints pq.StringArray `gorm:"type:text[]" json:"assigned_complaints"`

	Arrived int `gorm:"not null" json:"arrived"`
	Acted   int `gorm:"not null" json:"acted"`
	Closed  int `gorm:"not null" json:"closed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (o *Officer) BeforeCreate(tx *gorm.DB) (err error) {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	return
}

func (o *Officer) HasComplaint(complaintID string) bool {
	for _, id := range o.AssignedComplaints {
		if id == complaintID {
			return true
		}
	}
	return false
}

// AddComplaint appends complaintID unless it is already listed.
// It reports whether the list changed.
func (o *Officer) AddComplaint(complaintID string) bool {
	if o.HasComplaint(complaintID) {
		return false
	}
	o.AssignedComplaints = append(o.AssignedComplaints, complaintID)
	return true
}

// RemoveComplaint drops every occurrence of complaintID. Missing ids are a
// no-op, which tolerates legacy rows whose list was never populated.
func (o *Officer) RemoveComplaint(complaintID string) bool {
	kept := o.AssignedComplaints[:0]
	removed := false
	for _, id := range o.AssignedComplaints {
		if id == complaintID {
			removed = true
			continue
		}
		kept = append(kept, id)
	}
	o.AssignedComplaints = kept
	return removed
}

func (o Officer) Clone() Officer {
	out := o
	out.UserID = cloneString(o.UserID)
	out.AssignedComplaints = append(pq.StringArray(nil), o.AssignedComplaints...)
	return out
}
