package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuthorKind discriminates admin and officer notes/documents that share a table.
type AuthorKind string

const (
	AuthorAdmin   AuthorKind = "admin"
	AuthorOfficer AuthorKind = "officer"
)

func (k AuthorKind) Valid() bool {
	return k == AuthorAdmin || k == AuthorOfficer
}

type Note struct {
	ID           string     `gorm:"type:uuid;primaryKey" json:"id"`
	ComplaintID  string     `gorm:"type:uuid;not null;index:idx_note_complaint_kind" json:"complaint_id"`
	AuthorKind   AuthorKind `gorm:"type:text;not null;index:idx_note_complaint_kind" json:"author_kind"`
	AuthorUserID string     `gorm:"type:text" json:"author_user_id"`
	OfficerID    *string    `gorm:"type:uuid" json:"officer_id,omitempty"`
	Body         string     `gorm:"type:text;not null" json:"body"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (n *Note) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return
}

// Document is metadata for an attachment; the bytes live in object storage.
type Document struct {
	ID           string     `gorm:"type:uuid;primaryKey" json:"id"`
	ComplaintID  string     `gorm:"type:uuid;not null;index:idx_document_complaint_kind" json:"complaint_id"`
	AuthorKind   AuthorKind `gorm:"type:text;not null;index:idx_document_complaint_kind" json:"author_kind"`
	AuthorUserID string     `gorm:"type:text" json:"author_user_id"`
	OfficerID    *string    `gorm:"type:uuid" json:"officer_id,omitempty"`
	FileName     string     `gorm:"type:text;not null" json:"file_name"`
	URL          string     `gorm:"type:text;not null" json:"url"`
	ContentType  string     `gorm:"type:text" json:"content_type,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (d *Document) BeforeCreate(tx *gorm.DB) (err error) {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return
}
