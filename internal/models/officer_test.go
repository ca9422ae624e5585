package models_test

import (
	"grievance/backend/internal/models"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestOfficer_AddComplaintIsIdempotent(t *testing.T) {
	o := &models.Officer{}

	assert.True(t, o.AddComplaint("c1"))
	assert.False(t, o.AddComplaint("c1"), "second add must not duplicate")
	assert.Equal(t, pq.StringArray{"c1"}, o.AssignedComplaints)
}

func TestOfficer_RemoveComplaint(t *testing.T) {
	tests := []struct {
		name    string
		list    pq.StringArray
		remove  string
		want    pq.StringArray
		removed bool
	}{
		{name: "present", list: pq.StringArray{"c1", "c2"}, remove: "c1", want: pq.StringArray{"c2"}, removed: true},
		{name: "legacy empty list", list: nil, remove: "c1", want: pq.StringArray{}, removed: false},
		{name: "absent", list: pq.StringArray{"c2"}, remove: "c1", want: pq.StringArray{"c2"}, removed: false},
		{name: "duplicated legacy entry", list: pq.StringArray{"c1", "c3", "c1"}, remove: "c1", want: pq.StringArray{"c3"}, removed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &models.Officer{AssignedComplaints: tt.list}
			got := o.RemoveComplaint(tt.remove)
			assert.Equal(t, tt.removed, got)
			assert.ElementsMatch(t, tt.want, o.AssignedComplaints)
			assert.False(t, o.HasComplaint(tt.remove))
		})
	}
}

func TestOfficerClone_DoesNotShareList(t *testing.T) {
	o := models.Officer{AssignedComplaints: pq.StringArray{"c1"}}
	cp := o.Clone()
	cp.AddComplaint("c2")
	assert.Len(t, o.AssignedComplaints, 1)
}
