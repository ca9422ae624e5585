package notify

import "grievance/backend/internal/models"

// ReceiverKind is an abstract notification target resolved to concrete user
// ids at dispatch time.
type ReceiverKind string

const (
	Admins             ReceiverKind = "admins"
	AssignedOfficer    ReceiverKind = "assigned_officer"
	PreviousOfficer    ReceiverKind = "previous_officer"
	NewOfficer         ReceiverKind = "new_officer"
	ExtensionRequester ReceiverKind = "extension_requester"
)

// Route says who hears about an event type.
type Route struct {
	Receivers []ReceiverKind
	// ExcludeSelfPayloadKey names a payload field holding a user id that is
	// dropped from the admins set, usually the admin who acted.
	ExcludeSelfPayloadKey string
	// AssignedOfficerExceptCloser skips the assigned officer when they are
	// the one who closed the complaint.
	AssignedOfficerExceptCloser bool
}

// Payload keys read during resolution.
const (
	keyPreviousOfficerUserID = "previous_officer_user_id"
	keyNewOfficerUserID      = "new_officer_user_id"
	keyRequestedByUserID     = "requested_by_user_id"
	keyClosedByUserID        = "closed_by_user_id"
)

// Routes is the static event to receiver table. Event types missing from
// it notify nobody.
var Routes = map[models.EventType]Route{
	models.EventCreated:          {Receivers: []ReceiverKind{Admins}, ExcludeSelfPayloadKey: "created_by"},
	models.EventStatusChanged:    {Receivers: []ReceiverKind{AssignedOfficer, Admins}, ExcludeSelfPayloadKey: "changed_by"},
	models.EventComplaintUpdated: {Receivers: []ReceiverKind{AssignedOfficer}},
	models.EventPriorityChanged:  {Receivers: []ReceiverKind{AssignedOfficer}},
	models.EventDeadlineChanged:  {Receivers: []ReceiverKind{AssignedOfficer}},

	models.EventOfficerAssigned: {
		Receivers:             []ReceiverKind{AssignedOfficer, Admins},
		ExcludeSelfPayloadKey: "assigned_by",
	},
	models.EventOfficerReassigned: {
		Receivers:             []ReceiverKind{PreviousOfficer, NewOfficer, Admins},
		ExcludeSelfPayloadKey: "reassigned_by",
	},
	models.EventOfficerUnassigned: {
		Receivers:             []ReceiverKind{PreviousOfficer, Admins},
		ExcludeSelfPayloadKey: "unassigned_by",
	},

	models.EventExtensionRequested: {Receivers: []ReceiverKind{Admins}},
	models.EventExtensionApproved: {
		Receivers:             []ReceiverKind{ExtensionRequester, Admins},
		ExcludeSelfPayloadKey: "decided_by",
	},
	models.EventExtensionRejected: {
		Receivers:             []ReceiverKind{ExtensionRequester, Admins},
		ExcludeSelfPayloadKey: "decided_by",
	},

	models.EventComplaintClosed: {
		Receivers:                   []ReceiverKind{AssignedOfficer, Admins},
		AssignedOfficerExceptCloser: true,
	},
	models.EventComplaintReopened: {
		Receivers:             []ReceiverKind{AssignedOfficer, Admins},
		ExcludeSelfPayloadKey: "reopened_by",
	},

	models.EventNoteAdded:          {Receivers: []ReceiverKind{Admins}},
	models.EventAdminNoteAdded:     {Receivers: []ReceiverKind{AssignedOfficer, Admins}, ExcludeSelfPayloadKey: "author_user_id"},
	models.EventDocumentAdded:      {Receivers: []ReceiverKind{Admins}},
	models.EventAdminDocumentAdded: {Receivers: []ReceiverKind{AssignedOfficer, Admins}, ExcludeSelfPayloadKey: "author_user_id"},

	models.EventMeetingScheduled:  {Receivers: []ReceiverKind{AssignedOfficer, Admins}},
	models.EventFeedbackReceived:  {Receivers: []ReceiverKind{AssignedOfficer, Admins}},
	models.EventResearchCompleted: {Receivers: []ReceiverKind{Admins}},
	models.EventLetterDrafted:     {Receivers: []ReceiverKind{Admins}},
	models.EventLetterSent:        {Receivers: []ReceiverKind{AssignedOfficer, Admins}},
	models.EventAnalysisCompleted: {Receivers: []ReceiverKind{Admins}},
	models.EventReminderSent:      {Receivers: []ReceiverKind{AssignedOfficer}},
}
