package models

import "time"

type EventType string

const (
	EventCreated             EventType = "created"
	EventStatusChanged       EventType = "status_changed"
	EventComplaintUpdated    EventType = "complaint_updated"
	EventPriorityChanged     EventType = "priority_changed"
	EventDeadlineChanged     EventType = "deadline_changed"
	EventOfficerAssigned     EventType = "officer_assigned"
	EventOfficerReassigned   EventType = "officer_reassigned"
	EventOfficerUnassigned   EventType = "officer_unassigned"
	EventExtensionRequested  EventType = "extension_requested"
	EventExtensionApproved   EventType = "extension_approved"
	EventExtensionRejected   EventType = "extension_rejected"
	EventComplaintClosed     EventType = "complaint_closed"
	EventComplaintReopened   EventType = "complaint_reopened"
	EventNoteAdded           EventType = "note_added"
	EventAdminNoteAdded      EventType = "admin_note_added"
	EventDocumentAdded       EventType = "document_added"
	EventAdminDocumentAdded  EventType = "admin_document_added"
	EventDocumentsSummarized EventType = "documents_summarized"
	EventMeetingScheduled    EventType = "meeting_scheduled"
	EventFeedbackReceived    EventType = "feedback_received"
	EventResearchCompleted   EventType = "research_completed"
	EventLetterDrafted       EventType = "letter_drafted"
	EventLetterSent          EventType = "letter_sent"
	EventAnalysisCompleted   EventType = "analysis_completed"
	EventReminderSent        EventType = "reminder_sent"
)

// EventTypes lists every known event type.
var EventTypes = []EventType{
	EventCreated, EventStatusChanged, EventComplaintUpdated, EventPriorityChanged,
	EventDeadlineChanged, EventOfficerAssigned, EventOfficerReassigned,
	EventOfficerUnassigned, EventExtensionRequested, EventExtensionApproved,
	EventExtensionRejected, EventComplaintClosed, EventComplaintReopened,
	EventNoteAdded, EventAdminNoteAdded, EventDocumentAdded, EventAdminDocumentAdded,
	EventDocumentsSummarized, EventMeetingScheduled, EventFeedbackReceived,
	EventResearchCompleted, EventLetterDrafted, EventLetterSent,
	EventAnalysisCompleted, EventReminderSent,
}

func (t EventType) Valid() bool {
	for _, known := range EventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Actor is whoever caused an event. System-originated events leave it empty.
type Actor struct {
	UserID string `gorm:"type:text" json:"user_id,omitempty"`
	Role   Role   `gorm:"type:text" json:"role,omitempty"`
	Name   string `gorm:"type:text" json:"name,omitempty"`
}

// TimelineEvent is one immutable fact about a complaint. Rows are only ever
// inserted. At most one row exists per (ComplaintID, IdempotencyKey); the
// key is nil rather than empty when absent so key-less events never collide.
type TimelineEvent struct {
	ID             string         `gorm:"type:text;primaryKey" json:"id"`
	ComplaintID    string         `gorm:"type:uuid;not null;index;uniqueIndex:idx_timeline_complaint_key,where:idempotency_key IS NOT NULL" json:"complaint_id"`
	Type           EventType      `gorm:"type:text;not null" json:"event_type"`
	At             time.Time      `gorm:"not null;index" json:"at"`
	Actor          Actor          `gorm:"embedded;embeddedPrefix:actor_" json:"actor"`
	Payload        map[string]any `gorm:"type:jsonb;serializer:json" json:"payload"`
	IdempotencyKey *string        `gorm:"type:text;uniqueIndex:idx_timeline_complaint_key" json:"idempotency_key,omitempty"`
}

func (e TimelineEvent) Clone() TimelineEvent {
	out := e
	out.IdempotencyKey = cloneString(e.IdempotencyKey)
	if e.Payload != nil {
		out.Payload = make(map[string]any, len(e.Payload))
		for k, v := range e.Payload {
			out.Payload[k] = v
		}
	}
	return out
}

// Notification is what a connected client receives for a timeline event.
type Notification struct {
	Type        string         `json:"type"`
	EventID     string         `json:"event_id"`
	EventType   EventType      `json:"event_type"`
	ComplaintID string         `json:"complaint_id"`
	At          time.Time      `json:"at"`
	Actor       Actor          `json:"actor"`
	Payload     map[string]any `json:"payload,omitempty"`
}

// NotificationFor wraps a timeline event for delivery.
func NotificationFor(e *TimelineEvent) Notification {
	return Notification{
		Type:        "timeline_event",
		EventID:     e.ID,
		EventType:   e.Type,
		ComplaintID: e.ComplaintID,
		At:          e.At,
		Actor:       e.Actor,
		Payload:     e.Payload,
	}
}
