package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"grievance/backend/internal/models"
)

// Memory is an in-process Storage. Reads return copies, so callers never
// alias stored state. Transactions run one at a time; writes made through
// the transaction are journaled and undone when fn fails, so writes made
// concurrently outside it survive. Officer rows carry a lock like
// SELECT ... FOR UPDATE. Fault injection makes a named operation fail once.
type Memory struct {
	mu     sync.Mutex
	txMu   sync.Mutex
	state  *memState
	faults map[string]error
	rows   map[string]*sync.Mutex
}

type memState struct {
	complaints map[string]models.Complaint
	officers   map[string]models.Officer
	users      map[string]models.User
	userOrder  []string
	extensions []models.ExtensionRequest
	events     []models.TimelineEvent
	notes      []models.Note
	documents  []models.Document
}

var _ Storage = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		state: &memState{
			complaints: make(map[string]models.Complaint),
			officers:   make(map[string]models.Officer),
			users:      make(map[string]models.User),
		},
		faults: make(map[string]error),
		rows:   make(map[string]*sync.Mutex),
	}
}

// FailNext makes the next call of the named operation (e.g. "UpdateComplaint")
// return err without touching state.
func (m *Memory) FailNext(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[op] = err
}

// fault must be called with m.mu held.
func (m *Memory) fault(op string) error {
	if err, ok := m.faults[op]; ok {
		delete(m.faults, op)
		return err
	}
	return nil
}

func (m *Memory) WithTx(ctx context.Context, fn func(tx Storage) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	tx := &memTx{Memory: m, journal: &journal{}, held: make(map[string]*sync.Mutex)}
	defer tx.release()

	if err := fn(tx); err != nil {
		m.mu.Lock()
		tx.journal.rollback(m.state)
		m.mu.Unlock()
		return err
	}
	return nil
}

// rowLock returns the lock guarding officer id.
func (m *Memory) rowLock(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.rows[id]
	if !ok {
		l = &sync.Mutex{}
		m.rows[id] = l
	}
	return l
}

func stamp(created, updated *time.Time) {
	now := time.Now().UTC()
	if created != nil && created.IsZero() {
		*created = now
	}
	if updated != nil {
		*updated = now
	}
}

func (m *Memory) CreateComplaint(ctx context.Context, c *models.Complaint) error {
	return m.createComplaint(nil, c)
}

func (m *Memory) createComplaint(j *journal, c *models.Complaint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault("CreateComplaint"); err != nil {
		return err
	}
	_ = c.BeforeCreate(nil)
	if _, ok := m.state.complaints[c.ID]; ok {
		return ErrDuplicate
	}
	stamp(&c.CreatedAt, &c.UpdatedAt)
	j.complaint(m.state, c.ID)
	m.state.complaints[c.ID] = c.Clone()
	return nil
}

func (m *Memory) GetComplaintByID(ctx context.Context, id string) (*models.Complaint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault("GetComplaintByID"); err != nil {
		return nil, err
	}
	c, ok := m.state.complaints[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := c.Clone()
	return &out, nil
}

// GetComplaintForUpdate needs no row lock here: transactions already run
// one at a time and every complaint writer runs in one.
func (m *Memory) GetComplaintForUpdate(ctx context.Context, id string) (*models.Complaint, error) {
	return m.GetComplaintByID(ctx, id)
}

func (m *Memory) UpdateComplaint(ctx context.Context, c *models.Complaint) error {
	return m.updateComplaint(nil, c)
}

func (m *Memory) updateComplaint(j *journal, c *models.Complaint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault("UpdateComplaint"); err != nil {
		return err
	}
	if _, ok := m.state.complaints[c.ID]; !ok {
		return ErrNotFound
	}
	stamp(nil, &c.UpdatedAt)
	j.complaint(m.state, c.ID)
	m.state.complaints[c.ID] = c.Clone()
	return nil
}

func (m *Memory) ListComplaintIDsByOfficer(ctx context.Context, officerID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []models.Complaint
	for _, c := range m.state.complaints {
		if c.IsAssignedTo(officerID) {
			matched = append(matched, c)
		}
	}
	sortByCreated(matched)
	ids := make([]string, 0, len(matched))
	for _, c := range matched {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func sortByCreated(cs []models.Complaint) {
	sort.SliceStable(cs, func(i, j int) bool { return cs[i].CreatedAt.Before(cs[j].CreatedAt) })
}

func (m *Memory) CreateOfficer(ctx context.Context, o *models.Officer) error {
	return m.createOfficer(nil, o)
}

func (m *Memory) createOfficer(j *journal, o *models.Officer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault("CreateOfficer"); err != nil {
		return err
	}
	_ = o.BeforeCreate(nil)
	o.Email = normalizeEmail(o.Email)
	if err := m.checkOfficerUnique(o); err != nil {
		return err
	}
	if _, ok := m.state.officers[o.ID]; ok {
		return ErrDuplicate
	}
	stamp(&o.CreatedAt, &o.UpdatedAt)
	j.officer(m.state, o.ID)
	m.state.officers[o.ID] = o.Clone()
	return nil
}

func (m *Memory) checkOfficerUnique(o *models.Officer) error {
	for id, other := range m.state.officers {
		if id == o.ID {
			continue
		}
		if other.Email == o.Email {
			return ErrDuplicate
		}
		if o.UserID != nil && other.UserID != nil && *o.UserID == *other.UserID {
			return ErrDuplicate
		}
	}
	return nil
}

func (m *Memory) GetOfficerByID(ctx context.Context, id string) (*models.Officer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.state.officers[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := o.Clone()
	return &out, nil
}

func (m *Memory) GetOfficerByEmail(ctx context.Context, email string) (*models.Officer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = normalizeEmail(email)
	for _, o := range m.state.officers {
		if o.Email == email {
			out := o.Clone()
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) GetOfficerByUserID(ctx context.Context, userID string) (*models.Officer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.state.officers {
		if o.UserID != nil && *o.UserID == userID {
			out := o.Clone()
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

// GetOfficerForUpdate outside a transaction is a plain read; the lock
// would be released as soon as the statement ends.
func (m *Memory) GetOfficerForUpdate(ctx context.Context, id string) (*models.Officer, error) {
	return m.GetOfficerByID(ctx, id)
}

func (m *Memory) UpdateOfficer(ctx context.Context, o *models.Officer) error {
	l := m.rowLock(o.ID)
	l.Lock()
	defer l.Unlock()
	return m.updateOfficer(nil, o)
}

func (m *Memory) updateOfficer(j *journal, o *models.Officer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault("UpdateOfficer"); err != nil {
		return err
	}
	if _, ok := m.state.officers[o.ID]; !ok {
		return ErrNotFound
	}
	if err := m.checkOfficerUnique(o); err != nil {
		return err
	}
	stamp(nil, &o.UpdatedAt)
	j.officer(m.state, o.ID)
	m.state.officers[o.ID] = o.Clone()
	return nil
}

func (m *Memory) IncrementOfficerCounter(ctx context.Context, officerID string, counter OfficerCounter) error {
	l := m.rowLock(officerID)
	l.Lock()
	defer l.Unlock()
	return m.incrementOfficerCounter(nil, officerID, counter)
}

func (m *Memory) incrementOfficerCounter(j *journal, officerID string, counter OfficerCounter) error {
	if !counter.valid() {
		return fmt.Errorf("storage: unknown officer counter %q", counter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault("IncrementOfficerCounter"); err != nil {
		return err
	}
	o, ok := m.state.officers[officerID]
	if !ok {
		return ErrNotFound
	}
	switch counter {
	case CounterActed:
		o.Acted++
	case CounterClosed:
		o.Closed++
	}
	j.officer(m.state, officerID)
	m.state.officers[officerID] = o
	return nil
}

func (m *Memory) CreateUser(ctx context.Context, u *models.User) error {
	return m.createUser(nil, u)
}

func (m *Memory) createUser(j *journal, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault("CreateUser"); err != nil {
		return err
	}
	_ = u.BeforeCreate(nil)
	u.Email = normalizeEmail(u.Email)
	if _, ok := m.state.users[u.ID]; ok {
		return ErrDuplicate
	}
	if u.Email != "" {
		for _, other := range m.state.users {
			if other.Email == u.Email {
				return ErrDuplicate
			}
		}
	}
	stamp(&u.CreatedAt, &u.UpdatedAt)
	j.user(m.state, u.ID)
	m.state.users[u.ID] = u.Clone()
	m.state.userOrder = append(m.state.userOrder, u.ID)
	return nil
}

func (m *Memory) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault("GetUserByID"); err != nil {
		return nil, err
	}
	u, ok := m.state.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := u.Clone()
	return &out, nil
}

func (m *Memory) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = normalizeEmail(email)
	for _, id := range m.state.userOrder {
		if u := m.state.users[id]; u.Email == email {
			out := u.Clone()
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) UpdateUser(ctx context.Context, u *models.User) error {
	return m.updateUser(nil, u)
}

func (m *Memory) updateUser(j *journal, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.state.users[u.ID]; !ok {
		return ErrNotFound
	}
	stamp(nil, &u.UpdatedAt)
	j.user(m.state, u.ID)
	m.state.users[u.ID] = u.Clone()
	return nil
}

func (m *Memory) ListUserIDsByRole(ctx context.Context, role models.Role) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault("ListUserIDsByRole"); err != nil {
		return nil, err
	}
	var ids []string
	for _, id := range m.state.userOrder {
		if m.state.users[id].Role == role {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *Memory) ListTelegramLinkedUsers(ctx context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var users []models.User
	for _, id := range m.state.userOrder {
		if u := m.state.users[id]; u.TelegramChatID != nil {
			users = append(users, u.Clone())
		}
	}
	return users, nil
}

func (m *Memory) CreateExtensionRequest(ctx context.Context, r *models.ExtensionRequest) error {
	return m.createExtensionRequest(nil, r)
}

func (m *Memory) createExtensionRequest(j *journal, r *models.ExtensionRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault("CreateExtensionRequest"); err != nil {
		return err
	}
	_ = r.BeforeCreate(nil)
	stamp(&r.CreatedAt, &r.UpdatedAt)
	j.extension(m.state, r.ID)
	m.state.extensions = append(m.state.extensions, r.Clone())
	return nil
}

func (m *Memory) GetLatestPendingExtension(ctx context.Context, complaintID string) (*models.ExtensionRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.ExtensionRequest
	for i := range m.state.extensions {
		r := &m.state.extensions[i]
		if r.ComplaintID != complaintID || r.Status != models.ExtensionPending {
			continue
		}
		if latest == nil || !r.CreatedAt.Before(latest.CreatedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	out := latest.Clone()
	return &out, nil
}

func (m *Memory) UpdateExtensionRequest(ctx context.Context, r *models.ExtensionRequest) error {
	return m.updateExtensionRequest(nil, r)
}

func (m *Memory) updateExtensionRequest(j *journal, r *models.ExtensionRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault("UpdateExtensionRequest"); err != nil {
		return err
	}
	for i := range m.state.extensions {
		if m.state.extensions[i].ID == r.ID {
			stamp(nil, &r.UpdatedAt)
			j.extension(m.state, r.ID)
			m.state.extensions[i] = r.Clone()
			return nil
		}
	}
	return ErrNotFound
}

// ExtensionRequests returns every request of a complaint in creation order.
func (m *Memory) ExtensionRequests(complaintID string) []models.ExtensionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ExtensionRequest
	for _, r := range m.state.extensions {
		if r.ComplaintID == complaintID {
			out = append(out, r.Clone())
		}
	}
	return out
}

func (m *Memory) CreateTimelineEvent(ctx context.Context, e *models.TimelineEvent) error {
	return m.createTimelineEvent(nil, e)
}

func (m *Memory) createTimelineEvent(j *journal, e *models.TimelineEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault("CreateTimelineEvent"); err != nil {
		return err
	}
	for _, other := range m.state.events {
		if other.ID == e.ID {
			return ErrDuplicate
		}
		if e.IdempotencyKey != nil && other.IdempotencyKey != nil &&
			other.ComplaintID == e.ComplaintID && *other.IdempotencyKey == *e.IdempotencyKey {
			return ErrDuplicate
		}
	}
	j.event(e.ID)
	m.state.events = append(m.state.events, e.Clone())
	return nil
}

func (m *Memory) FindTimelineEventByKey(ctx context.Context, complaintID, key string) (*models.TimelineEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault("FindTimelineEventByKey"); err != nil {
		return nil, err
	}
	for _, e := range m.state.events {
		if e.ComplaintID == complaintID && e.IdempotencyKey != nil && *e.IdempotencyKey == key {
			out := e.Clone()
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListTimelineEvents(ctx context.Context, complaintID string) ([]models.TimelineEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var events []models.TimelineEvent
	for _, e := range m.state.events {
		if e.ComplaintID == complaintID {
			events = append(events, e.Clone())
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].At.Before(events[j].At) })
	return events, nil
}

func (m *Memory) CreateNote(ctx context.Context, n *models.Note) error {
	return m.createNote(nil, n)
}

func (m *Memory) createNote(j *journal, n *models.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault("CreateNote"); err != nil {
		return err
	}
	_ = n.BeforeCreate(nil)
	stamp(&n.CreatedAt, nil)
	j.note(n.ID)
	m.state.notes = append(m.state.notes, *n)
	return nil
}

func (m *Memory) ListNotes(ctx context.Context, complaintID string, kind models.AuthorKind) ([]models.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var notes []models.Note
	for _, n := range m.state.notes {
		if n.ComplaintID == complaintID && n.AuthorKind == kind {
			notes = append(notes, n)
		}
	}
	return notes, nil
}

func (m *Memory) CreateDocument(ctx context.Context, d *models.Document) error {
	return m.createDocument(nil, d)
}

func (m *Memory) createDocument(j *journal, d *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fault("CreateDocument"); err != nil {
		return err
	}
	_ = d.BeforeCreate(nil)
	stamp(&d.CreatedAt, nil)
	j.document(d.ID)
	m.state.documents = append(m.state.documents, *d)
	return nil
}

func (m *Memory) ListDocuments(ctx context.Context, complaintID string, kind models.AuthorKind) ([]models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var docs []models.Document
	for _, d := range m.state.documents {
		if d.ComplaintID == complaintID && d.AuthorKind == kind {
			docs = append(docs, d)
		}
	}
	return docs, nil
}
