package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ComplaintStatus string

const (
	StatusPending    ComplaintStatus = "pending"
	StatusInProgress ComplaintStatus = "in_progress"
	StatusResolved   ComplaintStatus = "resolved"
	StatusRejected   ComplaintStatus = "rejected"
)

// Valid reports whether s is one of the known complaint statuses.
func (s ComplaintStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved, StatusRejected:
		return true
	}
	return false
}

// Complaint is a citizen grievance. AssignedOfficerID is the authoritative
// link to the responsible officer; Officer.AssignedComplaints mirrors it.
type Complaint struct {
	ID              string          `gorm:"type:uuid;primaryKey" json:"id"`
	Title           string          `gorm:"type:text" json:"title"`
	Description     string          `gorm:"type:text" json:"description"`
	CitizenName     string          `gorm:"type:text" json:"citizen_name,omitempty"`
	CreatedByUserID string          `gorm:"type:text;index" json:"created_by_user_id,omitempty"`
	Status          ComplaintStatus `gorm:"type:text;not null;index" json:"status"`

	IsOfficerAssigned bool       `gorm:"not null" json:"is_officer_assigned"`
	AssignedOfficerID *string    `gorm:"type:uuid;index" json:"assigned_officer_id,omitempty"`
	AssignedToUserID  *string    `gorm:"type:uuid;index" json:"assigned_to_user_id,omitempty"`
	AssignedTime      *time.Time `json:"assigned_time,omitempty"`

	// TimeBoundary is the number of days allowed for resolution.
	TimeBoundary int  `gorm:"not null" json:"time_boundary"`
	IsExtended   bool `gorm:"not null" json:"is_extended"`

	IsComplaintClosed    bool            `gorm:"not null" json:"is_complaint_closed"`
	ActualResolutionDate *time.Time      `json:"actual_resolution_date,omitempty"`
	ClosingDetails       *ClosingDetails `gorm:"type:jsonb;serializer:json" json:"closing_details,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClosingDetails is written once when a complaint is closed and kept for
// audit when the complaint is later reopened.
type ClosingDetails struct {
	ClosedAt        time.Time       `json:"closed_at"`
	Remarks         string          `json:"remarks"`
	Attachments     []string        `json:"attachments,omitempty"`
	ClosedByOfficer ClosedByOfficer `json:"closed_by_officer"`
	ClosingProof    string          `json:"closing_proof,omitempty"`
}

type ClosedByOfficer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (c *Complaint) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return
}

// IsAssignedTo reports whether officerID is the complaint's current officer.
func (c *Complaint) IsAssignedTo(officerID string) bool {
	return c.IsOfficerAssigned && c.AssignedOfficerID != nil && *c.AssignedOfficerID == officerID
}

// ClearAssignment drops the officer link on the complaint side only.
func (c *Complaint) ClearAssignment() {
	c.IsOfficerAssigned = false
	c.AssignedOfficerID = nil
	c.AssignedToUserID = nil
	c.AssignedTime = nil
}

// Clone returns a deep copy.
func (c Complaint) Clone() Complaint {
	out := c
	out.AssignedOfficerID = cloneString(c.AssignedOfficerID)
	out.AssignedToUserID = cloneString(c.AssignedToUserID)
	out.AssignedTime = cloneTime(c.AssignedTime)
	out.ActualResolutionDate = cloneTime(c.ActualResolutionDate)
	if c.ClosingDetails != nil {
		d := *c.ClosingDetails
		d.Attachments = append([]string(nil), c.ClosingDetails.Attachments...)
		out.ClosingDetails = &d
	}
	return out
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
