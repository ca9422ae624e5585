package storage

import (
	"context"
	"slices"
	"sync"

	"grievance/backend/internal/models"
)

// memTx is the Storage handed to a Memory transaction. Writes go through
// the journal; officer rows stay locked until the transaction ends.
type memTx struct {
	*Memory
	journal *journal
	held    map[string]*sync.Mutex
}

// WithTx runs nested transactions inside the enclosing one.
func (t *memTx) WithTx(ctx context.Context, fn func(tx Storage) error) error {
	return fn(t)
}

func (t *memTx) hold(officerID string) {
	if _, ok := t.held[officerID]; ok {
		return
	}
	l := t.rowLock(officerID)
	l.Lock()
	t.held[officerID] = l
}

func (t *memTx) release() {
	for id, l := range t.held {
		l.Unlock()
		delete(t.held, id)
	}
}

func (t *memTx) GetOfficerForUpdate(ctx context.Context, id string) (*models.Officer, error) {
	t.hold(id)
	return t.GetOfficerByID(ctx, id)
}

func (t *memTx) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	return t.createComplaint(t.journal, c)
}

func (t *memTx) UpdateComplaint(ctx context.Context, c *models.Complaint) error {
	return t.updateComplaint(t.journal, c)
}

func (t *memTx) CreateOfficer(ctx context.Context, o *models.Officer) error {
	return t.createOfficer(t.journal, o)
}

func (t *memTx) UpdateOfficer(ctx context.Context, o *models.Officer) error {
	t.hold(o.ID)
	return t.updateOfficer(t.journal, o)
}

func (t *memTx) IncrementOfficerCounter(ctx context.Context, officerID string, counter OfficerCounter) error {
	t.hold(officerID)
	return t.incrementOfficerCounter(t.journal, officerID, counter)
}

func (t *memTx) CreateUser(ctx context.Context, u *models.User) error {
	return t.createUser(t.journal, u)
}

func (t *memTx) UpdateUser(ctx context.Context, u *models.User) error {
	return t.updateUser(t.journal, u)
}

func (t *memTx) CreateExtensionRequest(ctx context.Context, r *models.ExtensionRequest) error {
	return t.createExtensionRequest(t.journal, r)
}

func (t *memTx) UpdateExtensionRequest(ctx context.Context, r *models.ExtensionRequest) error {
	return t.updateExtensionRequest(t.journal, r)
}

func (t *memTx) CreateTimelineEvent(ctx context.Context, e *models.TimelineEvent) error {
	return t.createTimelineEvent(t.journal, e)
}

func (t *memTx) CreateNote(ctx context.Context, n *models.Note) error {
	return t.createNote(t.journal, n)
}

func (t *memTx) CreateDocument(ctx context.Context, d *models.Document) error {
	return t.createDocument(t.journal, d)
}

// journal records how to undo each write of a transaction. Entries touch
// only the rows the transaction wrote. A nil journal records nothing.
// Every method is called with Memory.mu held.
type journal struct {
	undo []func(s *memState)
}

func (j *journal) push(fn func(s *memState)) {
	if j != nil {
		j.undo = append(j.undo, fn)
	}
}

func (j *journal) rollback(s *memState) {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i](s)
	}
	j.undo = nil
}

func (j *journal) complaint(s *memState, id string) {
	if j == nil {
		return
	}
	prev, existed := s.complaints[id]
	j.push(func(s *memState) {
		if existed {
			s.complaints[id] = prev
		} else {
			delete(s.complaints, id)
		}
	})
}

func (j *journal) officer(s *memState, id string) {
	if j == nil {
		return
	}
	prev, existed := s.officers[id]
	j.push(func(s *memState) {
		if existed {
			s.officers[id] = prev
		} else {
			delete(s.officers, id)
		}
	})
}

func (j *journal) user(s *memState, id string) {
	if j == nil {
		return
	}
	prev, existed := s.users[id]
	j.push(func(s *memState) {
		if existed {
			s.users[id] = prev
			return
		}
		delete(s.users, id)
		s.userOrder = slices.DeleteFunc(s.userOrder, func(other string) bool { return other == id })
	})
}

func (j *journal) extension(s *memState, id string) {
	if j == nil {
		return
	}
	i := slices.IndexFunc(s.extensions, func(r models.ExtensionRequest) bool { return r.ID == id })
	if i < 0 {
		j.push(func(s *memState) {
			s.extensions = slices.DeleteFunc(s.extensions, func(r models.ExtensionRequest) bool { return r.ID == id })
		})
		return
	}
	prev := s.extensions[i].Clone()
	j.push(func(s *memState) {
		for k := range s.extensions {
			if s.extensions[k].ID == id {
				s.extensions[k] = prev
			}
		}
	})
}

func (j *journal) event(id string) {
	j.push(func(s *memState) {
		s.events = slices.DeleteFunc(s.events, func(e models.TimelineEvent) bool { return e.ID == id })
	})
}

func (j *journal) note(id string) {
	j.push(func(s *memState) {
		s.notes = slices.DeleteFunc(s.notes, func(n models.Note) bool { return n.ID == id })
	})
}

func (j *journal) document(id string) {
	j.push(func(s *memState) {
		s.documents = slices.DeleteFunc(s.documents, func(d models.Document) bool { return d.ID == id })
	})
}
