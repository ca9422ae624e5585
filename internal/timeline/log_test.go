package timeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"grievance/backend/internal/models"
	"grievance/backend/internal/storage"
	"grievance/backend/internal/timeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, e *models.TimelineEvent) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func newLog(t *testing.T) (*timeline.Log, *storage.Memory, *MockDispatcher) {
	store := storage.NewMemory()
	d := new(MockDispatcher)
	return timeline.New(store, d, zaptest.NewLogger(t)), store, d
}

var admin = &models.Actor{UserID: "admin-1", Role: models.RoleAdmin, Name: "Root"}

func TestAppendEvent_SameKeyTwiceStoresOnceAndDispatchesOnce(t *testing.T) {
	ctx := context.Background()
	l, store, d := newLog(t)
	d.On("Dispatch", mock.Anything, mock.AnythingOfType("*models.TimelineEvent")).Return(nil)

	first := l.AppendEvent(ctx, "c1", models.EventNoteAdded, map[string]any{"note_id": "n1"}, admin, "note-n1")
	second := l.AppendEvent(ctx, "c1", models.EventNoteAdded, map[string]any{"note_id": "n1"}, admin, "note-n1")

	require.NotNil(t, first)
	assert.Nil(t, second)
	events, _ := store.ListTimelineEvents(ctx, "c1")
	assert.Len(t, events, 1)
	d.AssertNumberOfCalls(t, "Dispatch", 1)
}

func TestAppendEvent_ConcurrentDuplicateIsSuppressed(t *testing.T) {
	ctx := context.Background()
	l, store, d := newLog(t)

	// the lookup misses but the insert loses to a concurrent writer
	store.FailNext("FindTimelineEventByKey", storage.ErrNotFound)
	store.FailNext("CreateTimelineEvent", storage.ErrDuplicate)

	got := l.AppendEvent(ctx, "c1", models.EventExtensionApproved, nil, admin, "ext-approved-r1")

	assert.Nil(t, got)
	d.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
}

func TestAppendEvent_WriteFailureStillDispatches(t *testing.T) {
	ctx := context.Background()
	l, store, d := newLog(t)
	d.On("Dispatch", mock.Anything, mock.MatchedBy(func(e *models.TimelineEvent) bool {
		return e.Type == models.EventComplaintClosed && e.ComplaintID == "c1"
	})).Return(nil)
	store.FailNext("CreateTimelineEvent", errors.New("connection reset"))

	got := l.AppendEvent(ctx, "c1", models.EventComplaintClosed, nil, admin, "closed-c1-1")

	assert.Nil(t, got)
	d.AssertNumberOfCalls(t, "Dispatch", 1)
	events, _ := store.ListTimelineEvents(ctx, "c1")
	assert.Empty(t, events)
}

func TestAppendEvent_DispatchFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	l, store, d := newLog(t)
	d.On("Dispatch", mock.Anything, mock.Anything).Return(errors.New("redis down"))

	got := l.AppendEvent(ctx, "c1", models.EventStatusChanged, nil, admin, "")

	require.NotNil(t, got)
	events, _ := store.ListTimelineEvents(ctx, "c1")
	assert.Len(t, events, 1)
}

func TestAppendEvent_DispatchPanicIsContained(t *testing.T) {
	ctx := context.Background()
	l, _, d := newLog(t)
	d.On("Dispatch", mock.Anything, mock.Anything).Run(func(mock.Arguments) { panic("boom") })

	assert.NotPanics(t, func() {
		assert.NotNil(t, l.AppendEvent(ctx, "c1", models.EventStatusChanged, nil, nil, ""))
	})
}

func TestAppendEvent_TimelineOnlySkipsDispatch(t *testing.T) {
	ctx := context.Background()
	l, store, d := newLog(t)

	require.NotNil(t, l.DocumentsSummarized(ctx, "c1", 3, admin))
	require.NotNil(t, l.DocumentsSummarized(ctx, "c1", 4, admin))

	d.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
	events, _ := store.ListTimelineEvents(ctx, "c1")
	assert.Len(t, events, 2, "summaries are repeatable facts")
}

func TestAppendEvent_KeylessEventsNeverCollide(t *testing.T) {
	ctx := context.Background()
	l, store, d := newLog(t)
	d.On("Dispatch", mock.Anything, mock.Anything).Return(nil)

	l.AppendEvent(ctx, "c1", models.EventStatusChanged, nil, admin, "")
	l.AppendEvent(ctx, "c1", models.EventStatusChanged, nil, admin, "")

	events, _ := store.ListTimelineEvents(ctx, "c1")
	require.Len(t, events, 2)
	for _, e := range events {
		assert.Nil(t, e.IdempotencyKey)
	}
}

func TestAppendEvent_ActorIsOptional(t *testing.T) {
	ctx := context.Background()
	l, _, d := newLog(t)
	d.On("Dispatch", mock.Anything, mock.Anything).Return(nil)

	e := l.AppendEvent(ctx, "c1", models.EventReminderSent, nil, nil, "")

	require.NotNil(t, e)
	assert.Equal(t, models.Actor{}, e.Actor)
	assert.NotNil(t, e.Payload)
	assert.False(t, e.At.IsZero())
}

func TestAppendEvent_NilDispatcher(t *testing.T) {
	l := timeline.New(storage.NewMemory(), nil, nil)
	assert.NotNil(t, l.AppendEvent(context.Background(), "c1", models.EventCreated, nil, nil, ""))
}

func TestTypedWrappers_NaturalKeys(t *testing.T) {
	ctx := context.Background()
	l, _, d := newLog(t)
	d.On("Dispatch", mock.Anything, mock.Anything).Return(nil)

	note := &models.Note{ID: "n1", ComplaintID: "c1", AuthorKind: models.AuthorAdmin, Body: "call back"}
	e := l.NoteAdded(ctx, note, admin)
	require.NotNil(t, e)
	assert.Equal(t, models.EventAdminNoteAdded, e.Type)
	assert.Equal(t, "note-n1", *e.IdempotencyKey)
	assert.Nil(t, l.NoteAdded(ctx, note, admin), "retried call site must not record twice")

	doc := &models.Document{ID: "d1", ComplaintID: "c1", AuthorKind: models.AuthorOfficer, FileName: "site.jpg"}
	e = l.DocumentAdded(ctx, doc, admin)
	require.NotNil(t, e)
	assert.Equal(t, models.EventDocumentAdded, e.Type)
	assert.Equal(t, "doc-d1", *e.IdempotencyKey)

	req := &models.ExtensionRequest{ID: "r1", ComplaintID: "c1", DaysRequested: 3, RequestedByUserID: "u-off"}
	e = l.ExtensionRequested(ctx, req, admin)
	require.NotNil(t, e)
	assert.Equal(t, "ext-requested-r1", *e.IdempotencyKey)
	assert.Equal(t, "u-off", e.Payload["requested_by_user_id"])
}

func TestOfficerReassigned_CarriesBothOfficers(t *testing.T) {
	ctx := context.Background()
	l, _, d := newLog(t)
	d.On("Dispatch", mock.Anything, mock.Anything).Return(nil)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	prev := timeline.OfficerRef{OfficerID: "o1", UserID: "u1", Name: "Ada", Email: "ada@city.gov"}
	next := timeline.OfficerRef{OfficerID: "o2", UserID: "u2", Name: "Bob", Email: "bob@city.gov"}
	e := l.OfficerReassigned(ctx, "c1", prev, next, at, admin)

	require.NotNil(t, e)
	assert.Equal(t, at, e.At)
	assert.Equal(t, "u1", e.Payload["previous_officer_user_id"])
	assert.Equal(t, "ada@city.gov", e.Payload["previous_officer_email"])
	assert.Equal(t, "u2", e.Payload["new_officer_user_id"])
	assert.Equal(t, "Bob", e.Payload["new_officer_name"])
	assert.Equal(t, "admin-1", e.Payload["reassigned_by"])
}

func TestRefFor(t *testing.T) {
	uid := "u1"
	ref := timeline.RefFor(&models.Officer{ID: "o1", Name: "Ada", Email: "ada@city.gov", UserID: &uid})
	assert.Equal(t, timeline.OfficerRef{OfficerID: "o1", UserID: "u1", Name: "Ada", Email: "ada@city.gov"}, ref)
	assert.Equal(t, timeline.OfficerRef{}, timeline.RefFor(nil))
}
