package complaint

import (
	"context"
	"errors"
	"strings"

	"grievance/backend/internal/apperr"
	"grievance/backend/internal/config"
	"grievance/backend/internal/models"
	"grievance/backend/internal/storage"
)

func validateDays(days int) error {
	if days < config.MinExtensionDays || days > config.MaxExtensionDays {
		return apperr.Validation("days must be between %d and %d", config.MinExtensionDays, config.MaxExtensionDays)
	}
	return nil
}

// RequestOfficerExtension files a pending extension request from the
// complaint's assigned officer.
func (s *Service) RequestOfficerExtension(ctx context.Context, complaintID, officerID string, days int, reason string, actor *models.Actor) (*models.ExtensionRequest, error) {
	if err := validateDays(days); err != nil {
		return nil, err
	}
	c, err := s.getComplaint(ctx, s.Storage, complaintID, false)
	if err != nil {
		return nil, err
	}
	if !c.IsAssignedTo(officerID) {
		return nil, apperr.Validation("only the assigned officer can request an extension for complaint %s", complaintID)
	}
	if c.IsComplaintClosed {
		return nil, apperr.Validation("complaint %s is closed", complaintID)
	}

	r := &models.ExtensionRequest{
		ComplaintID:     complaintID,
		RequestedBy:     officerID,
		RequestedByRole: models.RoleOfficer,
		DaysRequested:   days,
		Reason:          strings.TrimSpace(reason),
		Status:          models.ExtensionPending,
		CreatedAt:       s.now(),
	}
	if c.AssignedToUserID != nil {
		r.RequestedByUserID = *c.AssignedToUserID
	}
	if err := s.Storage.CreateExtensionRequest(ctx, r); err != nil {
		return nil, err
	}
	s.Log.ExtensionRequested(ctx, r, actor)
	return r, nil
}

// ApproveExtension approves the most recent pending request and extends
// the deadline by days, or by the requested amount when days is nil. The
// request and the complaint change together or not at all.
func (s *Service) ApproveExtension(ctx context.Context, complaintID, adminID string, days *int, notes string, actor *models.Actor) (*models.ExtensionRequest, error) {
	var (
		req      *models.ExtensionRequest
		boundary int
	)
	err := s.Storage.WithTx(ctx, func(tx storage.Storage) error {
		c, err := s.getComplaint(ctx, tx, complaintID, true)
		if err != nil {
			return err
		}
		req, err = s.pendingExtension(ctx, tx, complaintID)
		if err != nil {
			return err
		}

		granted := req.DaysRequested
		if days != nil {
			granted = *days
		}
		if err := validateDays(granted); err != nil {
			return err
		}

		req.Decide(models.ExtensionApproved, adminID, s.now(), strings.TrimSpace(notes))
		req.DaysGranted = granted
		if err := tx.UpdateExtensionRequest(ctx, req); err != nil {
			return err
		}

		c.TimeBoundary += granted
		c.IsExtended = true
		if err := tx.UpdateComplaint(ctx, c); err != nil {
			return err
		}
		boundary = c.TimeBoundary
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Log.ExtensionApproved(ctx, req, boundary, actor)
	return req, nil
}

// RejectExtension rejects the most recent pending request.
func (s *Service) RejectExtension(ctx context.Context, complaintID, adminID, notes string, actor *models.Actor) (*models.ExtensionRequest, error) {
	var req *models.ExtensionRequest
	err := s.Storage.WithTx(ctx, func(tx storage.Storage) error {
		if _, err := s.getComplaint(ctx, tx, complaintID, true); err != nil {
			return err
		}
		var err error
		req, err = s.pendingExtension(ctx, tx, complaintID)
		if err != nil {
			return err
		}
		req.Decide(models.ExtensionRejected, adminID, s.now(), strings.TrimSpace(notes))
		return tx.UpdateExtensionRequest(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	s.Log.ExtensionRejected(ctx, req, actor)
	return req, nil
}

func (s *Service) pendingExtension(ctx context.Context, st storage.Storage, complaintID string) (*models.ExtensionRequest, error) {
	r, err := st.GetLatestPendingExtension(ctx, complaintID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.Validation("complaint %s has no pending extension request", complaintID)
	}
	return r, err
}
