package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"grievance/backend/internal/models"
	"grievance/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_WithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	c := &models.Complaint{Status: models.StatusPending, TimeBoundary: 7}
	require.NoError(t, m.CreateComplaint(ctx, c))

	boom := errors.New("boom")
	err := m.WithTx(ctx, func(tx storage.Storage) error {
		got, err := tx.GetComplaintForUpdate(ctx, c.ID)
		require.NoError(t, err)
		got.TimeBoundary = 30
		require.NoError(t, tx.UpdateComplaint(ctx, got))
		return boom
	})

	assert.ErrorIs(t, err, boom)
	after, err := m.GetComplaintByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, after.TimeBoundary, "aborted transaction must leave no trace")
}

func TestMemory_WithTxCommits(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	c := &models.Complaint{Status: models.StatusPending}
	require.NoError(t, m.CreateComplaint(ctx, c))

	err := m.WithTx(ctx, func(tx storage.Storage) error {
		return tx.WithTx(ctx, func(inner storage.Storage) error {
			got, err := inner.GetComplaintByID(ctx, c.ID)
			if err != nil {
				return err
			}
			got.Status = models.StatusInProgress
			return inner.UpdateComplaint(ctx, got)
		})
	})

	require.NoError(t, err)
	after, _ := m.GetComplaintByID(ctx, c.ID)
	assert.Equal(t, models.StatusInProgress, after.Status)
}

func TestMemory_FailNextIsOneShot(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	c := &models.Complaint{}
	require.NoError(t, m.CreateComplaint(ctx, c))

	injected := errors.New("disk full")
	m.FailNext("UpdateComplaint", injected)

	assert.ErrorIs(t, m.UpdateComplaint(ctx, c), injected)
	assert.NoError(t, m.UpdateComplaint(ctx, c))
}

func TestMemory_ReadsAreCopies(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	o := &models.Officer{Name: "Ada", Email: "ada@city.gov"}
	require.NoError(t, m.CreateOfficer(ctx, o))

	got, err := m.GetOfficerByID(ctx, o.ID)
	require.NoError(t, err)
	got.AddComplaint("c1")

	again, _ := m.GetOfficerByID(ctx, o.ID)
	assert.Empty(t, again.AssignedComplaints)
}

func TestMemory_UniqueOfficerEmail(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	require.NoError(t, m.CreateOfficer(ctx, &models.Officer{Name: "A", Email: "Ada@City.gov "}))

	err := m.CreateOfficer(ctx, &models.Officer{Name: "B", Email: "ada@city.gov"})
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	found, err := m.GetOfficerByEmail(ctx, "ADA@city.gov")
	require.NoError(t, err)
	assert.Equal(t, "A", found.Name)
}

func TestMemory_TimelineKeyUniquePerComplaint(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	key := "note-1"

	require.NoError(t, m.CreateTimelineEvent(ctx, &models.TimelineEvent{ID: "e1", ComplaintID: "c1", IdempotencyKey: &key}))
	assert.ErrorIs(t, m.CreateTimelineEvent(ctx, &models.TimelineEvent{ID: "e2", ComplaintID: "c1", IdempotencyKey: &key}), storage.ErrDuplicate)
	assert.NoError(t, m.CreateTimelineEvent(ctx, &models.TimelineEvent{ID: "e3", ComplaintID: "c2", IdempotencyKey: &key}))

	// key-less events never collide
	assert.NoError(t, m.CreateTimelineEvent(ctx, &models.TimelineEvent{ID: "e4", ComplaintID: "c1"}))
	assert.NoError(t, m.CreateTimelineEvent(ctx, &models.TimelineEvent{ID: "e5", ComplaintID: "c1"}))

	events, _ := m.ListTimelineEvents(ctx, "c1")
	assert.Len(t, events, 3)

	found, err := m.FindTimelineEventByKey(ctx, "c1", key)
	require.NoError(t, err)
	assert.Equal(t, "e1", found.ID)
}

func TestMemory_LatestPendingExtension(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	older := &models.ExtensionRequest{ComplaintID: "c1", Status: models.ExtensionPending, DaysRequested: 3, CreatedAt: base}
	newer := &models.ExtensionRequest{ComplaintID: "c1", Status: models.ExtensionPending, DaysRequested: 5, CreatedAt: base.Add(time.Hour)}
	decided := &models.ExtensionRequest{ComplaintID: "c1", Status: models.ExtensionRejected, DaysRequested: 9, CreatedAt: base.Add(2 * time.Hour)}
	require.NoError(t, m.CreateExtensionRequest(ctx, older))
	require.NoError(t, m.CreateExtensionRequest(ctx, newer))
	require.NoError(t, m.CreateExtensionRequest(ctx, decided))

	got, err := m.GetLatestPendingExtension(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID)

	_, err = m.GetLatestPendingExtension(ctx, "c2")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMemory_NotesFilteredByAuthorKind(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	require.NoError(t, m.CreateNote(ctx, &models.Note{ComplaintID: "c1", AuthorKind: models.AuthorAdmin, Body: "admin"}))
	require.NoError(t, m.CreateNote(ctx, &models.Note{ComplaintID: "c1", AuthorKind: models.AuthorOfficer, Body: "officer"}))
	require.NoError(t, m.CreateDocument(ctx, &models.Document{ComplaintID: "c1", AuthorKind: models.AuthorOfficer, FileName: "a.pdf", URL: "s3://a"}))

	adminNotes, _ := m.ListNotes(ctx, "c1", models.AuthorAdmin)
	require.Len(t, adminNotes, 1)
	assert.Equal(t, "admin", adminNotes[0].Body)

	adminDocs, _ := m.ListDocuments(ctx, "c1", models.AuthorAdmin)
	officerDocs, _ := m.ListDocuments(ctx, "c1", models.AuthorOfficer)
	assert.Empty(t, adminDocs)
	assert.Len(t, officerDocs, 1)
}

func TestMemory_ListUserIDsByRoleKeepsCreationOrder(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	a1 := &models.User{Email: "a1@city.gov", Role: models.RoleAdmin}
	o1 := &models.User{Email: "o1@city.gov", Role: models.RoleOfficer}
	a2 := &models.User{Email: "a2@city.gov", Role: models.RoleAdmin}
	for _, u := range []*models.User{a1, o1, a2} {
		require.NoError(t, m.CreateUser(ctx, u))
	}

	ids, err := m.ListUserIDsByRole(ctx, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, []string{a1.ID, a2.ID}, ids)
}

func TestMemory_RollbackKeepsWritesMadeOutsideTheTransaction(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	c := &models.Complaint{Status: models.StatusPending, TimeBoundary: 7}
	require.NoError(t, m.CreateComplaint(ctx, c))

	boom := errors.New("precondition failed")
	err := m.WithTx(ctx, func(tx storage.Storage) error {
		got, err := tx.GetComplaintForUpdate(ctx, c.ID)
		require.NoError(t, err)
		got.TimeBoundary = 30
		require.NoError(t, tx.UpdateComplaint(ctx, got))
		require.NoError(t, tx.CreateNote(ctx, &models.Note{ComplaintID: c.ID, AuthorKind: models.AuthorAdmin, Body: "inside"}))
		require.NoError(t, tx.CreateUser(ctx, &models.User{Email: "inside@city.gov", Role: models.RoleAdmin}))

		done := make(chan error, 1)
		go func() {
			done <- m.CreateNote(ctx, &models.Note{ComplaintID: c.ID, AuthorKind: models.AuthorAdmin, Body: "outside"})
		}()
		require.NoError(t, <-done)
		return boom
	})
	require.ErrorIs(t, err, boom)

	notes, err := m.ListNotes(ctx, c.ID, models.AuthorAdmin)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "outside", notes[0].Body)

	after, _ := m.GetComplaintByID(ctx, c.ID)
	assert.Equal(t, 7, after.TimeBoundary)
	_, err = m.GetUserByEmail(ctx, "inside@city.gov")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	ids, _ := m.ListUserIDsByRole(ctx, models.RoleAdmin)
	assert.Empty(t, ids)
}

func TestMemory_RollbackRestoresUpdatedExtension(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	r := &models.ExtensionRequest{ComplaintID: "c1", Status: models.ExtensionPending, DaysRequested: 3}
	require.NoError(t, m.CreateExtensionRequest(ctx, r))

	_ = m.WithTx(ctx, func(tx storage.Storage) error {
		decided := *r
		decided.Status = models.ExtensionApproved
		require.NoError(t, tx.UpdateExtensionRequest(ctx, &decided))
		require.NoError(t, tx.CreateExtensionRequest(ctx, &models.ExtensionRequest{ComplaintID: "c1", Status: models.ExtensionPending}))
		return errors.New("abort")
	})

	reqs := m.ExtensionRequests("c1")
	require.Len(t, reqs, 1)
	assert.Equal(t, models.ExtensionPending, reqs[0].Status)
}

func TestMemory_IncrementOfficerCounter(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	o := &models.Officer{Name: "Ada", Email: "ada@city.gov", AssignedComplaints: []string{"c1"}, Arrived: 1}
	require.NoError(t, m.CreateOfficer(ctx, o))

	require.NoError(t, m.IncrementOfficerCounter(ctx, o.ID, storage.CounterClosed))
	require.NoError(t, m.IncrementOfficerCounter(ctx, o.ID, storage.CounterActed))
	require.NoError(t, m.IncrementOfficerCounter(ctx, o.ID, storage.CounterActed))

	got, _ := m.GetOfficerByID(ctx, o.ID)
	assert.Equal(t, 1, got.Closed)
	assert.Equal(t, 2, got.Acted)
	assert.Equal(t, 1, got.Arrived)
	assert.Equal(t, []string{"c1"}, []string(got.AssignedComplaints))

	assert.ErrorIs(t, m.IncrementOfficerCounter(ctx, "nobody", storage.CounterClosed), storage.ErrNotFound)
	assert.Error(t, m.IncrementOfficerCounter(ctx, o.ID, storage.OfficerCounter("arrived; drop table")))
}

func TestMemory_CounterWaitsForOfficerLock(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	o := &models.Officer{Name: "Ada", Email: "ada@city.gov"}
	require.NoError(t, m.CreateOfficer(ctx, o))

	bumped := make(chan error, 1)
	err := m.WithTx(ctx, func(tx storage.Storage) error {
		locked, err := tx.GetOfficerForUpdate(ctx, o.ID)
		require.NoError(t, err)

		go func() { bumped <- m.IncrementOfficerCounter(ctx, o.ID, storage.CounterClosed) }()
		select {
		case <-bumped:
			t.Fatal("counter write did not wait for the officer lock")
		case <-time.After(50 * time.Millisecond):
		}

		locked.AddComplaint("c1")
		locked.Arrived++
		return tx.UpdateOfficer(ctx, locked)
	})
	require.NoError(t, err)

	select {
	case err := <-bumped:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("counter write never ran")
	}
	got, _ := m.GetOfficerByID(ctx, o.ID)
	assert.Equal(t, 1, got.Closed)
	assert.Equal(t, 1, got.Arrived)
	assert.Equal(t, []string{"c1"}, []string(got.AssignedComplaints))
}
