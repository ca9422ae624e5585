package complaint

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"grievance/backend/internal/apperr"
	"grievance/backend/internal/config"
	"grievance/backend/internal/models"
	"grievance/backend/internal/storage"
	"grievance/backend/internal/timeline"

	"go.uber.org/zap"
)

// Executive identifies the person a complaint is assigned to. Email is the
// deduplication key across complaints.
type Executive struct {
	Name        string
	Designation string
	Email       string
	Phone       string
}

func (e Executive) validate() error {
	var missing []string
	if strings.TrimSpace(e.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(e.Designation) == "" {
		missing = append(missing, "designation")
	}
	if strings.TrimSpace(e.Email) == "" {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		return apperr.Validation("executive %s required", strings.Join(missing, ", "))
	}
	return nil
}

// officerPlan is the find-or-create decision for an executive's email.
type officerPlan int

const (
	// needsBoth: no officer with the email exists.
	needsBoth officerPlan = iota
	// needsUserOnly: the officer exists without a usable user account.
	needsUserOnly
	// reuse: officer and linked user both exist.
	reuse
)

func (p officerPlan) String() string {
	switch p {
	case needsBoth:
		return "needs_both"
	case needsUserOnly:
		return "needs_user_only"
	default:
		return "reuse"
	}
}

func planFor(officer *models.Officer, user *models.User) officerPlan {
	switch {
	case officer == nil:
		return needsBoth
	case user == nil:
		return needsUserOnly
	default:
		return reuse
	}
}

// assignment is what a committed assignment change reports to the timeline.
type assignment struct {
	complaint *models.Complaint
	previous  *timeline.OfficerRef
	next      timeline.OfficerRef
	reopened  bool
	closing   *models.ClosingDetails
	at        time.Time
}

// AssignOfficer assigns the complaint to the officer identified by the
// executive's email, creating the officer and its user account as needed.
func (s *Service) AssignOfficer(ctx context.Context, complaintID string, exec Executive, actor *models.Actor) (*models.Complaint, error) {
	if err := exec.validate(); err != nil {
		return nil, err
	}

	var res *assignment
	err := s.Storage.WithTx(ctx, func(tx storage.Storage) error {
		c, err := s.getComplaint(ctx, tx, complaintID, true)
		if err != nil {
			return err
		}
		officer, user, err := s.findOrCreateOfficer(ctx, tx, exec)
		if err != nil {
			return err
		}
		res, err = s.assignLocked(ctx, tx, c, officer, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.recordAssignment(ctx, res, actor)
	return res.complaint, nil
}

// findOrCreateOfficer resolves the executive to an officer with a linked
// user. The plan is computed once from the officer and user lookups.
func (s *Service) findOrCreateOfficer(ctx context.Context, tx storage.Storage, exec Executive) (*models.Officer, *models.User, error) {
	email := strings.ToLower(strings.TrimSpace(exec.Email))

	officer, err := tx.GetOfficerByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		officer, err = nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	var user *models.User
	if officer != nil && officer.UserID != nil {
		user, err = tx.GetUserByID(ctx, *officer.UserID)
		if errors.Is(err, storage.ErrNotFound) {
			user, err = nil, nil
		}
		if err != nil {
			return nil, nil, err
		}
	}

	plan := planFor(officer, user)
	s.logger.Debug("resolved officer", zap.String("email", email), zap.Stringer("plan", plan))

	switch plan {
	case needsBoth:
		user, err = s.officerUser(ctx, tx, exec, email)
		if err != nil {
			return nil, nil, err
		}
		officer = &models.Officer{
			Name:        strings.TrimSpace(exec.Name),
			Designation: strings.TrimSpace(exec.Designation),
			Email:       email,
			Phone:       strings.TrimSpace(exec.Phone),
			UserID:      &user.ID,
		}
		if err := tx.CreateOfficer(ctx, officer); err != nil {
			return nil, nil, err
		}
	case needsUserOnly:
		user, err = s.officerUser(ctx, tx, exec, email)
		if err != nil {
			return nil, nil, err
		}
		locked, err := tx.GetOfficerForUpdate(ctx, officer.ID)
		if err != nil {
			return nil, nil, err
		}
		locked.UserID = &user.ID
		if err := tx.UpdateOfficer(ctx, locked); err != nil {
			return nil, nil, err
		}
		officer = locked
	}
	return officer, user, nil
}

// officerUser creates the officer's user account, adopting an existing
// unlinked officer account with the same email.
func (s *Service) officerUser(ctx context.Context, tx storage.Storage, exec Executive, email string) (*models.User, error) {
	existing, err := tx.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != models.RoleOfficer {
			return nil, apperr.Validation("email %s belongs to a %s account", email, existing.Role)
		}
		if _, err := tx.GetOfficerByUserID(ctx, existing.ID); err == nil {
			return nil, apperr.Validation("user %s is already linked to another officer", existing.ID)
		} else if !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return existing, nil
	case !errors.Is(err, storage.ErrNotFound):
		return nil, err
	}

	u := &models.User{
		Email: email,
		Name:  strings.TrimSpace(exec.Name),
		Role:  models.RoleOfficer,
	}
	if err := tx.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// AssignExistingOfficer assigns the complaint to a known officer. A
// complaint held by another officer is moved the same way ReassignOfficer
// moves it.
func (s *Service) AssignExistingOfficer(ctx context.Context, complaintID, officerID string, actor *models.Actor) (*models.Complaint, error) {
	var res *assignment
	err := s.Storage.WithTx(ctx, func(tx storage.Storage) error {
		c, err := s.getComplaint(ctx, tx, complaintID, true)
		if err != nil {
			return err
		}
		officer, err := s.getOfficer(ctx, tx, officerID)
		if err != nil {
			return err
		}
		user, err := s.linkedUser(ctx, tx, officer)
		if err != nil {
			return err
		}
		res, err = s.assignLocked(ctx, tx, c, officer, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.recordAssignment(ctx, res, actor)
	return res.complaint, nil
}

// ReassignOfficer moves an assigned complaint to a different officer and
// reopens it if it was closed.
func (s *Service) ReassignOfficer(ctx context.Context, complaintID, newOfficerID string, actor *models.Actor) (*models.Complaint, error) {
	var res *assignment
	err := s.Storage.WithTx(ctx, func(tx storage.Storage) error {
		c, err := s.getComplaint(ctx, tx, complaintID, true)
		if err != nil {
			return err
		}
		if !c.IsOfficerAssigned || c.AssignedOfficerID == nil {
			return apperr.Validation("complaint %s is not assigned", complaintID)
		}
		if *c.AssignedOfficerID == newOfficerID {
			return apperr.Validation("complaint %s is already assigned to officer %s", complaintID, newOfficerID)
		}
		officer, err := s.getOfficer(ctx, tx, newOfficerID)
		if err != nil {
			return err
		}
		user, err := s.linkedUser(ctx, tx, officer)
		if err != nil {
			return err
		}
		res, err = s.transfer(ctx, tx, c, officer, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.recordAssignment(ctx, res, actor)
	return res.complaint, nil
}

// UnassignComplaint drops the officer link. An in-progress complaint goes
// back to pending; any other status is kept.
func (s *Service) UnassignComplaint(ctx context.Context, complaintID string, actor *models.Actor) (*models.Complaint, error) {
	var (
		c    *models.Complaint
		prev timeline.OfficerRef
		at   = s.now()
	)
	err := s.Storage.WithTx(ctx, func(tx storage.Storage) error {
		var err error
		c, err = s.getComplaint(ctx, tx, complaintID, true)
		if err != nil {
			return err
		}
		if !c.IsOfficerAssigned || c.AssignedOfficerID == nil {
			return apperr.Validation("complaint %s is not assigned", complaintID)
		}
		locked, err := s.lockOfficers(ctx, tx, *c.AssignedOfficerID)
		if err != nil {
			return err
		}
		prev, err = s.detachPrevious(ctx, tx, c, locked[*c.AssignedOfficerID])
		if err != nil {
			return err
		}
		c.ClearAssignment()
		if c.Status == models.StatusInProgress {
			c.Status = models.StatusPending
		}
		return tx.UpdateComplaint(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	s.Log.OfficerUnassigned(ctx, c.ID, prev, at, actor)
	return c, nil
}

// assignLocked assigns c to officer. It refuses a no-op assignment and
// routes a held complaint through transfer.
func (s *Service) assignLocked(ctx context.Context, tx storage.Storage, c *models.Complaint, officer *models.Officer, user *models.User) (*assignment, error) {
	if c.IsAssignedTo(officer.ID) {
		return nil, apperr.Validation("complaint %s is already assigned to officer %s", c.ID, officer.ID)
	}
	return s.transfer(ctx, tx, c, officer, user)
}

// transfer points c at next and keeps both officers' lists in step with
// it: the previous officer loses c, next gains it once, and a closed
// complaint is reopened with its closing details kept.
func (s *Service) transfer(ctx context.Context, tx storage.Storage, c *models.Complaint, next *models.Officer, nextUser *models.User) (*assignment, error) {
	res := &assignment{at: s.now()}

	prevID := ""
	if c.IsOfficerAssigned && c.AssignedOfficerID != nil {
		prevID = *c.AssignedOfficerID
	}
	nextID := next.ID
	locked, err := s.lockOfficers(ctx, tx, prevID, nextID)
	if err != nil {
		return nil, err
	}
	if next = locked[nextID]; next == nil {
		return nil, apperr.NotFound("officer", nextID)
	}

	if prevID != "" {
		prev, err := s.detachPrevious(ctx, tx, c, locked[prevID])
		if err != nil {
			return nil, err
		}
		res.previous = &prev
	}

	if next.AddComplaint(c.ID) {
		next.Arrived++
		if err := tx.UpdateOfficer(ctx, next); err != nil {
			return nil, err
		}
	}

	c.IsOfficerAssigned = true
	c.AssignedOfficerID = &next.ID
	c.AssignedToUserID = &nextUser.ID
	c.AssignedTime = &res.at
	c.Status = models.StatusInProgress
	c.TimeBoundary = config.DefaultTimeBoundaryDays
	c.IsExtended = false
	if c.IsComplaintClosed {
		c.IsComplaintClosed = false
		res.reopened = true
		res.closing = c.ClosingDetails
	}
	if err := tx.UpdateComplaint(ctx, c); err != nil {
		return nil, err
	}

	res.complaint = c
	res.next = timeline.RefFor(next)
	return res, nil
}

// lockOfficers locks the named officer rows in id order, so two
// transactions touching the same pair cannot deadlock. Empty ids are
// skipped and missing officers are left out of the result.
func (s *Service) lockOfficers(ctx context.Context, tx storage.Storage, ids ...string) (map[string]*models.Officer, error) {
	ordered := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(ordered, id) {
			ordered = append(ordered, id)
		}
	}
	slices.Sort(ordered)

	locked := make(map[string]*models.Officer, len(ordered))
	for _, id := range ordered {
		o, err := tx.GetOfficerForUpdate(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		locked[id] = o
	}
	return locked, nil
}

// detachPrevious removes c from prev's list. prev is the locked row of the
// current officer, or nil when that record has vanished. A missing entry is
// not an error.
func (s *Service) detachPrevious(ctx context.Context, tx storage.Storage, c *models.Complaint, prev *models.Officer) (timeline.OfficerRef, error) {
	ref := timeline.OfficerRef{OfficerID: *c.AssignedOfficerID}
	if c.AssignedToUserID != nil {
		ref.UserID = *c.AssignedToUserID
	}

	if prev == nil {
		s.logger.Warn("previous officer record missing", zap.String("officer_id", ref.OfficerID), zap.String("complaint_id", c.ID))
		return ref, nil
	}
	ref.Name, ref.Email = prev.Name, prev.Email
	if ref.UserID == "" && prev.UserID != nil {
		ref.UserID = *prev.UserID
	}
	if prev.RemoveComplaint(c.ID) {
		if err := tx.UpdateOfficer(ctx, prev); err != nil {
			return ref, err
		}
	}
	return ref, nil
}

func (s *Service) recordAssignment(ctx context.Context, res *assignment, actor *models.Actor) {
	if res.previous == nil {
		s.Log.OfficerAssigned(ctx, res.complaint.ID, res.next, res.at, actor)
	} else {
		s.Log.OfficerReassigned(ctx, res.complaint.ID, *res.previous, res.next, res.at, actor)
	}
	if res.reopened {
		s.Log.ComplaintReopened(ctx, res.complaint.ID, res.next, res.closing, res.at, actor)
	}
}

// ReconcileOfficer rebuilds the officer's complaint list from the
// complaints that point at it and reports what changed.
func (s *Service) ReconcileOfficer(ctx context.Context, officerID string) (added, removed []string, err error) {
	err = s.Storage.WithTx(ctx, func(tx storage.Storage) error {
		officer, err := tx.GetOfficerForUpdate(ctx, officerID)
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound("officer", officerID)
		}
		if err != nil {
			return err
		}
		want, err := tx.ListComplaintIDsByOfficer(ctx, officerID)
		if err != nil {
			return err
		}

		wantSet := make(map[string]struct{}, len(want))
		for _, id := range want {
			wantSet[id] = struct{}{}
			if !officer.HasComplaint(id) {
				added = append(added, id)
			}
		}
		seen := make(map[string]struct{}, len(officer.AssignedComplaints))
		for _, id := range officer.AssignedComplaints {
			if _, ok := wantSet[id]; !ok {
				removed = append(removed, id)
			} else if _, dup := seen[id]; dup {
				removed = append(removed, id)
			}
			seen[id] = struct{}{}
		}
		if len(added) == 0 && len(removed) == 0 {
			return nil
		}
		officer.AssignedComplaints = append(officer.AssignedComplaints[:0], want...)
		return tx.UpdateOfficer(ctx, officer)
	})
	if err != nil {
		return nil, nil, err
	}
	if len(added) > 0 || len(removed) > 0 {
		s.logger.Info("officer list reconciled",
			zap.String("officer_id", officerID),
			zap.Strings("added", added),
			zap.Strings("removed", removed),
		)
	}
	return added, removed, nil
}
