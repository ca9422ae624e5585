// Package storage is the entity store: complaints, officers, users,
// extension requests, timeline events, notes and documents.
package storage

import (
	"context"
	"errors"

	"grievance/backend/internal/models"
)

// OfficerCounter names one of the officer's statistic columns.
type OfficerCounter string

const (
	CounterActed  OfficerCounter = "acted"
	CounterClosed OfficerCounter = "closed"
)

func (c OfficerCounter) valid() bool {
	return c == CounterActed || c == CounterClosed
}

var (
	ErrNotFound  = errors.New("storage: not found")
	ErrDuplicate = errors.New("storage: duplicate key")
)

// Storage is implemented by the gorm-backed Service and by Memory.
// Single calls are atomic per row; WithTx groups calls into one transaction
// that is committed when fn returns nil and aborted otherwise.
type Storage interface {
	WithTx(ctx context.Context, fn func(tx Storage) error) error

	CreateComplaint(ctx context.Context, c *models.Complaint) error
	GetComplaintByID(ctx context.Context, id string) (*models.Complaint, error)
	// GetComplaintForUpdate reads a complaint and, inside a transaction,
	// locks it until the transaction ends.
	GetComplaintForUpdate(ctx context.Context, id string) (*models.Complaint, error)
	UpdateComplaint(ctx context.Context, c *models.Complaint) error
	ListComplaintIDsByOfficer(ctx context.Context, officerID string) ([]string, error)

	CreateOfficer(ctx context.Context, o *models.Officer) error
	GetOfficerByID(ctx context.Context, id string) (*models.Officer, error)
	GetOfficerByEmail(ctx context.Context, email string) (*models.Officer, error)
	GetOfficerByUserID(ctx context.Context, userID string) (*models.Officer, error)
	// GetOfficerForUpdate reads an officer and, inside a transaction, locks
	// it until the transaction ends. Writers of AssignedComplaints must hold
	// this lock.
	GetOfficerForUpdate(ctx context.Context, id string) (*models.Officer, error)
	UpdateOfficer(ctx context.Context, o *models.Officer) error
	// IncrementOfficerCounter adds one to a single counter column and leaves
	// the rest of the row alone.
	IncrementOfficerCounter(ctx context.Context, officerID string, counter OfficerCounter) error

	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	ListUserIDsByRole(ctx context.Context, role models.Role) ([]string, error)
	ListTelegramLinkedUsers(ctx context.Context) ([]models.User, error)

	CreateExtensionRequest(ctx context.Context, r *models.ExtensionRequest) error
	GetLatestPendingExtension(ctx context.Context, complaintID string) (*models.ExtensionRequest, error)
	UpdateExtensionRequest(ctx context.Context, r *models.ExtensionRequest) error

	CreateTimelineEvent(ctx context.Context, e *models.TimelineEvent) error
	FindTimelineEventByKey(ctx context.Context, complaintID, key string) (*models.TimelineEvent, error)
	ListTimelineEvents(ctx context.Context, complaintID string) ([]models.TimelineEvent, error)

	CreateNote(ctx context.Context, n *models.Note) error
	ListNotes(ctx context.Context, complaintID string, kind models.AuthorKind) ([]models.Note, error)
	CreateDocument(ctx context.Context, d *models.Document) error
	ListDocuments(ctx context.Context, complaintID string, kind models.AuthorKind) ([]models.Document, error)
}
