// Package complaint implements the grievance lifecycle: creation, officer
// assignment and reassignment, closure and reopening, deadline extensions,
// and notes/documents. Every mutation is written to the store first and
// then recorded on the timeline; timeline and notification failures never
// fail the operation.
package complaint

import (
	"context"
	"errors"
	"strings"
	"time"

	"grievance/backend/internal/apperr"
	"grievance/backend/internal/config"
	"grievance/backend/internal/models"
	"grievance/backend/internal/storage"
	"grievance/backend/internal/timeline"

	"go.uber.org/zap"
)

// Service handles the business logic for complaints.
type Service struct {
	Storage storage.Storage
	Log     *timeline.Log

	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new complaint service.
func NewService(s storage.Storage, tl *timeline.Log, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		Storage: s,
		Log:     tl,
		logger:  logger.Named("complaint"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// NewComplaint is what a citizen files. Title is required.
type NewComplaint struct {
	Title       string
	Description string
	CitizenName string
}

// CreateComplaint stores a pending complaint and records who filed it.
func (s *Service) CreateComplaint(ctx context.Context, in NewComplaint, actor *models.Actor) (*models.Complaint, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.Validation("title is required")
	}
	c := &models.Complaint{
		Title:        title,
		Description:  strings.TrimSpace(in.Description),
		CitizenName:  strings.TrimSpace(in.CitizenName),
		Status:       models.StatusPending,
		TimeBoundary: config.DefaultTimeBoundaryDays,
		CreatedAt:    s.now(),
	}
	if actor != nil {
		c.CreatedByUserID = actor.UserID
	}
	if err := s.Storage.CreateComplaint(ctx, c); err != nil {
		return nil, err
	}
	s.Log.Created(ctx, c, actor)
	return c, nil
}

// ChangeStatus moves a complaint to status. Closing goes through
// CloseComplaint, which also snapshots the closure.
func (s *Service) ChangeStatus(ctx context.Context, complaintID string, status models.ComplaintStatus, actor *models.Actor) (*models.Complaint, error) {
	if !status.Valid() {
		return nil, apperr.Validation("unknown status %q", status)
	}
	var (
		c    *models.Complaint
		from models.ComplaintStatus
	)
	err := s.Storage.WithTx(ctx, func(tx storage.Storage) error {
		var err error
		c, err = s.getComplaint(ctx, tx, complaintID, true)
		if err != nil {
			return err
		}
		if c.Status == status {
			return apperr.Validation("complaint is already %s", status)
		}
		if status == models.StatusInProgress && !c.IsOfficerAssigned {
			return apperr.Validation("complaint has no assigned officer")
		}
		from = c.Status
		c.Status = status
		return tx.UpdateComplaint(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	s.Log.StatusChanged(ctx, c.ID, from, status, actor)
	return c, nil
}

// GetComplaint returns the complaint or a NotFoundError.
func (s *Service) GetComplaint(ctx context.Context, complaintID string) (*models.Complaint, error) {
	return s.getComplaint(ctx, s.Storage, complaintID, false)
}

// Timeline returns the complaint's events, oldest first.
func (s *Service) Timeline(ctx context.Context, complaintID string) ([]models.TimelineEvent, error) {
	if _, err := s.getComplaint(ctx, s.Storage, complaintID, false); err != nil {
		return nil, err
	}
	return s.Log.Events(ctx, complaintID)
}

func (s *Service) getComplaint(ctx context.Context, st storage.Storage, id string, forUpdate bool) (*models.Complaint, error) {
	var (
		c   *models.Complaint
		err error
	)
	if forUpdate {
		c, err = st.GetComplaintForUpdate(ctx, id)
	} else {
		c, err = st.GetComplaintByID(ctx, id)
	}
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("complaint", id)
	}
	return c, err
}

func (s *Service) getOfficer(ctx context.Context, st storage.Storage, id string) (*models.Officer, error) {
	o, err := st.GetOfficerByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("officer", id)
	}
	return o, err
}

// linkedUser loads the officer's user account.
func (s *Service) linkedUser(ctx context.Context, st storage.Storage, o *models.Officer) (*models.User, error) {
	if o.UserID == nil || *o.UserID == "" {
		return nil, apperr.NotFound("user for officer", o.ID)
	}
	u, err := st.GetUserByID(ctx, *o.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("user", *o.UserID)
	}
	return u, err
}

// bumpCounter adds one to an officer statistic. Counters are statistics;
// a failed write is logged and otherwise ignored.
func (s *Service) bumpCounter(ctx context.Context, officerID string, counter storage.OfficerCounter) {
	if err := s.Storage.IncrementOfficerCounter(ctx, officerID, counter); err != nil {
		s.logger.Warn("officer counter not updated",
			zap.String("officer_id", officerID),
			zap.String("counter", string(counter)),
			zap.Error(err))
	}
}
