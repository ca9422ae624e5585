package complaint

import (
	"context"
	"strings"

	"grievance/backend/internal/apperr"
	"grievance/backend/internal/models"
	"grievance/backend/internal/storage"
)

// Author says who writes a note or document. OfficerID is required for
// officer authors and must be the complaint's assigned officer.
type Author struct {
	Kind      models.AuthorKind
	OfficerID string
}

type DocumentInput struct {
	FileName    string
	URL         string
	ContentType string
}

func (s *Service) checkAuthor(ctx context.Context, complaintID string, author Author) (*models.Complaint, error) {
	if !author.Kind.Valid() {
		return nil, apperr.Validation("unknown author kind %q", author.Kind)
	}
	c, err := s.getComplaint(ctx, s.Storage, complaintID, false)
	if err != nil {
		return nil, err
	}
	if author.Kind == models.AuthorOfficer && !c.IsAssignedTo(author.OfficerID) {
		return nil, apperr.Validation("only the assigned officer can add officer notes to complaint %s", complaintID)
	}
	return c, nil
}

func (a Author) officerRef() *string {
	if a.Kind != models.AuthorOfficer {
		return nil
	}
	id := a.OfficerID
	return &id
}

func (s *Service) AddNote(ctx context.Context, complaintID string, author Author, body string, actor *models.Actor) (*models.Note, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperr.Validation("note body is required")
	}
	if _, err := s.checkAuthor(ctx, complaintID, author); err != nil {
		return nil, err
	}

	n := &models.Note{
		ComplaintID: complaintID,
		AuthorKind:  author.Kind,
		OfficerID:   author.officerRef(),
		Body:        body,
		CreatedAt:   s.now(),
	}
	if actor != nil {
		n.AuthorUserID = actor.UserID
	}
	if err := s.Storage.CreateNote(ctx, n); err != nil {
		return nil, err
	}
	if author.Kind == models.AuthorOfficer {
		s.bumpCounter(ctx, author.OfficerID, storage.CounterActed)
	}
	s.Log.NoteAdded(ctx, n, actor)
	return n, nil
}

func (s *Service) AddDocument(ctx context.Context, complaintID string, author Author, in DocumentInput, actor *models.Actor) (*models.Document, error) {
	if strings.TrimSpace(in.FileName) == "" || strings.TrimSpace(in.URL) == "" {
		return nil, apperr.Validation("document file name and url are required")
	}
	if _, err := s.checkAuthor(ctx, complaintID, author); err != nil {
		return nil, err
	}

	d := &models.Document{
		ComplaintID: complaintID,
		AuthorKind:  author.Kind,
		OfficerID:   author.officerRef(),
		FileName:    strings.TrimSpace(in.FileName),
		URL:         strings.TrimSpace(in.URL),
		ContentType: in.ContentType,
		CreatedAt:   s.now(),
	}
	if actor != nil {
		d.AuthorUserID = actor.UserID
	}
	if err := s.Storage.CreateDocument(ctx, d); err != nil {
		return nil, err
	}
	s.Log.DocumentAdded(ctx, d, actor)
	return d, nil
}

func (s *Service) Notes(ctx context.Context, complaintID string, kind models.AuthorKind) ([]models.Note, error) {
	if !kind.Valid() {
		return nil, apperr.Validation("unknown author kind %q", kind)
	}
	if _, err := s.getComplaint(ctx, s.Storage, complaintID, false); err != nil {
		return nil, err
	}
	return s.Storage.ListNotes(ctx, complaintID, kind)
}

func (s *Service) Documents(ctx context.Context, complaintID string, kind models.AuthorKind) ([]models.Document, error) {
	if !kind.Valid() {
		return nil, apperr.Validation("unknown author kind %q", kind)
	}
	if _, err := s.getComplaint(ctx, s.Storage, complaintID, false); err != nil {
		return nil, err
	}
	return s.Storage.ListDocuments(ctx, complaintID, kind)
}

// MarkDocumentsSummarized records that the complaint's documents were
// summarized. It can be called on every run; nobody is notified.
func (s *Service) MarkDocumentsSummarized(ctx context.Context, complaintID string, actor *models.Actor) error {
	if _, err := s.getComplaint(ctx, s.Storage, complaintID, false); err != nil {
		return err
	}
	admin, err := s.Storage.ListDocuments(ctx, complaintID, models.AuthorAdmin)
	if err != nil {
		return err
	}
	officer, err := s.Storage.ListDocuments(ctx, complaintID, models.AuthorOfficer)
	if err != nil {
		return err
	}
	s.Log.DocumentsSummarized(ctx, complaintID, len(admin)+len(officer), actor)
	return nil
}
