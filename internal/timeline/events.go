package timeline

import (
	"context"
	"fmt"
	"time"

	"grievance/backend/internal/models"
)

// OfficerRef is the officer identity copied into event payloads so the
// trail stays readable after the officer record changes.
type OfficerRef struct {
	OfficerID string
	UserID    string
	Name      string
	Email     string
}

// RefFor builds an OfficerRef from an officer record.
func RefFor(o *models.Officer) OfficerRef {
	if o == nil {
		return OfficerRef{}
	}
	ref := OfficerRef{OfficerID: o.ID, Name: o.Name, Email: o.Email}
	if o.UserID != nil {
		ref.UserID = *o.UserID
	}
	return ref
}

func (r OfficerRef) put(payload map[string]any, prefix string) {
	payload[prefix+"id"] = r.OfficerID
	payload[prefix+"user_id"] = r.UserID
	payload[prefix+"name"] = r.Name
	payload[prefix+"email"] = r.Email
}

func actorID(actor *models.Actor) string {
	if actor == nil {
		return ""
	}
	return actor.UserID
}

func (l *Log) Created(ctx context.Context, c *models.Complaint, actor *models.Actor) *models.TimelineEvent {
	payload := map[string]any{
		"title":      c.Title,
		"status":     string(c.Status),
		"created_by": c.CreatedByUserID,
	}
	return l.AppendEvent(ctx, c.ID, models.EventCreated, payload, actor, "created-"+c.ID, At(c.CreatedAt))
}

func (l *Log) StatusChanged(ctx context.Context, complaintID string, from, to models.ComplaintStatus, actor *models.Actor) *models.TimelineEvent {
	payload := map[string]any{
		"from":       string(from),
		"to":         string(to),
		"changed_by": actorID(actor),
	}
	return l.AppendEvent(ctx, complaintID, models.EventStatusChanged, payload, actor, "")
}

func (l *Log) OfficerAssigned(ctx context.Context, complaintID string, officer OfficerRef, at time.Time, actor *models.Actor) *models.TimelineEvent {
	payload := map[string]any{"assigned_by": actorID(actor)}
	officer.put(payload, "officer_")
	key := fmt.Sprintf("assigned-%s-%s-%d", complaintID, officer.OfficerID, at.UnixNano())
	return l.AppendEvent(ctx, complaintID, models.EventOfficerAssigned, payload, actor, key, At(at))
}

func (l *Log) OfficerReassigned(ctx context.Context, complaintID string, previous, next OfficerRef, at time.Time, actor *models.Actor) *models.TimelineEvent {
	payload := map[string]any{"reassigned_by": actorID(actor)}
	previous.put(payload, "previous_officer_")
	next.put(payload, "new_officer_")
	key := fmt.Sprintf("reassigned-%s-%s-%d", complaintID, next.OfficerID, at.UnixNano())
	return l.AppendEvent(ctx, complaintID, models.EventOfficerReassigned, payload, actor, key, At(at))
}

func (l *Log) OfficerUnassigned(ctx context.Context, complaintID string, previous OfficerRef, at time.Time, actor *models.Actor) *models.TimelineEvent {
	payload := map[string]any{"unassigned_by": actorID(actor)}
	previous.put(payload, "previous_officer_")
	key := fmt.Sprintf("unassigned-%s-%s-%d", complaintID, previous.OfficerID, at.UnixNano())
	return l.AppendEvent(ctx, complaintID, models.EventOfficerUnassigned, payload, actor, key, At(at))
}

// ComplaintReopened records that a closed complaint went back to work.
// closing is the retained closure snapshot.
func (l *Log) ComplaintReopened(ctx context.Context, complaintID string, officer OfficerRef, closing *models.ClosingDetails, at time.Time, actor *models.Actor) *models.TimelineEvent {
	payload := map[string]any{"reopened_by": actorID(actor)}
	officer.put(payload, "officer_")
	if closing != nil {
		payload["previously_closed_at"] = closing.ClosedAt
	}
	key := fmt.Sprintf("reopened-%s-%d", complaintID, at.UnixNano())
	return l.AppendEvent(ctx, complaintID, models.EventComplaintReopened, payload, actor, key, At(at))
}

func (l *Log) ComplaintClosed(ctx context.Context, c *models.Complaint, closedByUserID string, actor *models.Actor) *models.TimelineEvent {
	d := c.ClosingDetails
	if d == nil {
		return nil
	}
	payload := map[string]any{
		"remarks":           d.Remarks,
		"attachments":       d.Attachments,
		"closing_proof":     d.ClosingProof,
		"closed_by_officer": d.ClosedByOfficer.ID,
		"closed_by_name":    d.ClosedByOfficer.Name,
		"closed_by_email":   d.ClosedByOfficer.Email,
		"closed_by_user_id": closedByUserID,
	}
	key := fmt.Sprintf("closed-%s-%d", c.ID, d.ClosedAt.UnixNano())
	return l.AppendEvent(ctx, c.ID, models.EventComplaintClosed, payload, actor, key, At(d.ClosedAt))
}

func (l *Log) ExtensionRequested(ctx context.Context, r *models.ExtensionRequest, actor *models.Actor) *models.TimelineEvent {
	payload := map[string]any{
		"request_id":           r.ID,
		"days_requested":       r.DaysRequested,
		"reason":               r.Reason,
		"requested_by":         r.RequestedBy,
		"requested_by_user_id": r.RequestedByUserID,
	}
	return l.AppendEvent(ctx, r.ComplaintID, models.EventExtensionRequested, payload, actor, "ext-requested-"+r.ID)
}

func (l *Log) ExtensionApproved(ctx context.Context, r *models.ExtensionRequest, newBoundary int, actor *models.Actor) *models.TimelineEvent {
	payload := decisionPayload(r, actor)
	payload["days_granted"] = r.DaysGranted
	payload["time_boundary"] = newBoundary
	return l.AppendEvent(ctx, r.ComplaintID, models.EventExtensionApproved, payload, actor, "ext-approved-"+r.ID)
}

func (l *Log) ExtensionRejected(ctx context.Context, r *models.ExtensionRequest, actor *models.Actor) *models.TimelineEvent {
	return l.AppendEvent(ctx, r.ComplaintID, models.EventExtensionRejected, decisionPayload(r, actor), actor, "ext-rejected-"+r.ID)
}

func decisionPayload(r *models.ExtensionRequest, actor *models.Actor) map[string]any {
	payload := map[string]any{
		"request_id":           r.ID,
		"days_requested":       r.DaysRequested,
		"requested_by_user_id": r.RequestedByUserID,
		"decided_by":           actorID(actor),
		"notes":                r.Notes,
	}
	if r.DecidedBy != nil {
		payload["decided_by"] = *r.DecidedBy
	}
	return payload
}

func (l *Log) NoteAdded(ctx context.Context, n *models.Note, actor *models.Actor) *models.TimelineEvent {
	eventType := models.EventNoteAdded
	if n.AuthorKind == models.AuthorAdmin {
		eventType = models.EventAdminNoteAdded
	}
	payload := map[string]any{
		"note_id":        n.ID,
		"body":           n.Body,
		"author_user_id": n.AuthorUserID,
	}
	return l.AppendEvent(ctx, n.ComplaintID, eventType, payload, actor, "note-"+n.ID)
}

func (l *Log) DocumentAdded(ctx context.Context, d *models.Document, actor *models.Actor) *models.TimelineEvent {
	eventType := models.EventDocumentAdded
	if d.AuthorKind == models.AuthorAdmin {
		eventType = models.EventAdminDocumentAdded
	}
	payload := map[string]any{
		"document_id":    d.ID,
		"file_name":      d.FileName,
		"url":            d.URL,
		"author_user_id": d.AuthorUserID,
	}
	return l.AppendEvent(ctx, d.ComplaintID, eventType, payload, actor, "doc-"+d.ID)
}

// DocumentsSummarized is recorded on every summarization run and never
// notifies.
func (l *Log) DocumentsSummarized(ctx context.Context, complaintID string, documentCount int, actor *models.Actor) *models.TimelineEvent {
	payload := map[string]any{"document_count": documentCount}
	return l.AppendEvent(ctx, complaintID, models.EventDocumentsSummarized, payload, actor, "", TimelineOnly())
}
