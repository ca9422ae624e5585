package complaint_test

import (
	"testing"

	"grievance/backend/internal/complaint"
	"grievance/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddNote(t *testing.T) {
	h := newHarness(t)
	c, o := assignedComplaint(t, h)

	officerNote, err := h.svc.AddNote(h.ctx, c.ID, complaint.Author{Kind: models.AuthorOfficer, OfficerID: o.ID}, "Visited the site", officerActor(o))
	require.NoError(t, err)
	adminNote, err := h.svc.AddNote(h.ctx, c.ID, complaint.Author{Kind: models.AuthorAdmin}, "Escalate if needed", h.root())
	require.NoError(t, err)

	assert.Equal(t, o.ID, *officerNote.OfficerID)
	assert.Nil(t, adminNote.OfficerID)
	assert.Equal(t, 1, h.officer(t, o.ID).Acted)

	officerNotes, err := h.svc.Notes(h.ctx, c.ID, models.AuthorOfficer)
	require.NoError(t, err)
	require.Len(t, officerNotes, 1)
	assert.Equal(t, "Visited the site", officerNotes[0].Body)
	adminNotes, err := h.svc.Notes(h.ctx, c.ID, models.AuthorAdmin)
	require.NoError(t, err)
	require.Len(t, adminNotes, 1)

	assert.Len(t, h.events(t, c.ID, models.EventNoteAdded), 1)
	assert.Len(t, h.events(t, c.ID, models.EventAdminNoteAdded), 1)
	assert.Equal(t, []string{*o.UserID, h.admins[1].ID, h.admins[2].ID}, h.pub.receivers(models.EventAdminNoteAdded))
}

func TestAddNote_Validation(t *testing.T) {
	h := newHarness(t)
	c, _ := assignedComplaint(t, h)
	other := h.newOfficer(t, "Bob", "bob@city.gov")

	_, err := h.svc.AddNote(h.ctx, c.ID, complaint.Author{Kind: models.AuthorOfficer, OfficerID: other.ID}, "Not my case", nil)
	assert.True(t, isValidation(err))
	_, err = h.svc.AddNote(h.ctx, c.ID, complaint.Author{Kind: "citizen"}, "hello", nil)
	assert.True(t, isValidation(err))
	_, err = h.svc.AddNote(h.ctx, c.ID, complaint.Author{Kind: models.AuthorAdmin}, "   ", nil)
	assert.True(t, isValidation(err))
	_, err = h.svc.AddNote(h.ctx, "missing", complaint.Author{Kind: models.AuthorAdmin}, "hello", nil)
	assert.True(t, isNotFound(err))
	_, err = h.svc.Notes(h.ctx, c.ID, "citizen")
	assert.True(t, isValidation(err))
}

func TestAddDocument(t *testing.T) {
	h := newHarness(t)
	c, o := assignedComplaint(t, h)

	d, err := h.svc.AddDocument(h.ctx, c.ID, complaint.Author{Kind: models.AuthorOfficer, OfficerID: o.ID}, complaint.DocumentInput{
		FileName:    "site.jpg",
		URL:         "s3://docs/site.jpg",
		ContentType: "image/jpeg",
	}, officerActor(o))
	require.NoError(t, err)

	events := h.events(t, c.ID, models.EventDocumentAdded)
	require.Len(t, events, 1)
	assert.Equal(t, "doc-"+d.ID, *events[0].IdempotencyKey)

	docs, err := h.svc.Documents(h.ctx, c.ID, models.AuthorOfficer)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
	adminDocs, err := h.svc.Documents(h.ctx, c.ID, models.AuthorAdmin)
	require.NoError(t, err)
	assert.Empty(t, adminDocs)

	_, err = h.svc.AddDocument(h.ctx, c.ID, complaint.Author{Kind: models.AuthorAdmin}, complaint.DocumentInput{FileName: "x.pdf"}, nil)
	assert.True(t, isValidation(err), "url required")
}

func TestMarkDocumentsSummarized(t *testing.T) {
	h := newHarness(t)
	c, _ := assignedComplaint(t, h)
	_, err := h.svc.AddDocument(h.ctx, c.ID, complaint.Author{Kind: models.AuthorAdmin}, complaint.DocumentInput{FileName: "a.pdf", URL: "s3://a"}, h.root())
	require.NoError(t, err)

	require.NoError(t, h.svc.MarkDocumentsSummarized(h.ctx, c.ID, h.root()))
	require.NoError(t, h.svc.MarkDocumentsSummarized(h.ctx, c.ID, h.root()))

	events := h.events(t, c.ID, models.EventDocumentsSummarized)
	require.Len(t, events, 2)
	assert.EqualValues(t, 1, events[0].Payload["document_count"])
	assert.Empty(t, h.pub.receivers(models.EventDocumentsSummarized))
}
