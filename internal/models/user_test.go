package models_test

import (
	"grievance/backend/internal/models"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// TestUserBeforeCreate_GeneratesUUID verifies that the BeforeCreate hook generates a valid UUID.
func TestUserBeforeCreate_GeneratesUUID(t *testing.T) {
	user := &models.User{Email: "officer@city.gov", Role: models.RoleOfficer}

	assert.Empty(t, user.ID, "User ID should be empty before BeforeCreate")

	err := user.BeforeCreate(nil) // nil *gorm.DB is acceptable for this hook

	assert.NoError(t, err)
	parsed, parseErr := uuid.Parse(user.ID)
	assert.NoError(t, parseErr, "User ID must be a valid UUID string")
	assert.NotEqual(t, uuid.Nil, parsed)
}

// TestUserBeforeCreate_PreservesExistingID verifies that the hook doesn't overwrite an existing ID.
func TestUserBeforeCreate_PreservesExistingID(t *testing.T) {
	existingID := uuid.New().String()
	user := &models.User{ID: existingID, Email: "admin@city.gov", Role: models.RoleAdmin}

	err := user.BeforeCreate(nil)

	assert.NoError(t, err)
	assert.Equal(t, existingID, user.ID, "BeforeCreate should preserve existing ID")
}

func TestBeforeCreate_AllEntities(t *testing.T) {
	complaint := &models.Complaint{}
	officer := &models.Officer{}
	ext := &models.ExtensionRequest{}
	note := &models.Note{}
	doc := &models.Document{}

	assert.NoError(t, complaint.BeforeCreate(nil))
	assert.NoError(t, officer.BeforeCreate(nil))
	assert.NoError(t, ext.BeforeCreate(nil))
	assert.NoError(t, note.BeforeCreate(nil))
	assert.NoError(t, doc.BeforeCreate(nil))

	ids := map[string]bool{}
	for _, id := range []string{complaint.ID, officer.ID, ext.ID, note.ID, doc.ID} {
		assert.NotEmpty(t, id)
		ids[id] = true
	}
	assert.Len(t, ids, 5, "every entity should get its own id")
}

// TestStructTags verifies that struct tags are correctly defined for GORM and JSON.
func TestStructTags(t *testing.T) {
	userType := reflect.TypeOf(models.User{})
	emailField, found := userType.FieldByName("Email")
	assert.True(t, found)
	assert.Contains(t, emailField.Tag.Get("gorm"), "uniqueIndex", "Email should have unique index")

	officerType := reflect.TypeOf(models.Officer{})
	listField, found := officerType.FieldByName("AssignedComplaints")
	assert.True(t, found)
	assert.Contains(t, listField.Tag.Get("gorm"), "type:text[]", "AssignedComplaints should use PostgreSQL array type")

	eventType := reflect.TypeOf(models.TimelineEvent{})
	keyField, found := eventType.FieldByName("IdempotencyKey")
	assert.True(t, found)
	assert.Equal(t, reflect.Ptr, keyField.Type.Kind(), "IdempotencyKey must be nullable")
	assert.Contains(t, keyField.Tag.Get("gorm"), "uniqueIndex:idx_timeline_complaint_key")
	complaintField, _ := eventType.FieldByName("ComplaintID")
	assert.Contains(t, complaintField.Tag.Get("gorm"), "uniqueIndex:idx_timeline_complaint_key")
}

func TestEventTypes(t *testing.T) {
	assert.Len(t, models.EventTypes, 25)
	assert.True(t, models.EventOfficerReassigned.Valid())
	assert.False(t, models.EventType("officer_teleported").Valid())
}

func TestComplaintClone_IsDeep(t *testing.T) {
	officerID := "officer-1"
	c := models.Complaint{
		AssignedOfficerID: &officerID,
		ClosingDetails:    &models.ClosingDetails{Remarks: "done", Attachments: []string{"a.pdf"}},
	}

	cp := c.Clone()
	*cp.AssignedOfficerID = "officer-2"
	cp.ClosingDetails.Attachments[0] = "b.pdf"

	assert.Equal(t, "officer-1", *c.AssignedOfficerID)
	assert.Equal(t, "a.pdf", c.ClosingDetails.Attachments[0])
}

// BenchmarkUserBeforeCreate measures UUID generation performance.
func BenchmarkUserBeforeCreate(b *testing.B) {
	user := &models.User{Email: "benchmark@city.gov"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		user.ID = ""
		_ = user.BeforeCreate(nil)
	}
}
