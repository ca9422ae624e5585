package complaint

import (
	"context"
	"strings"

	"grievance/backend/internal/apperr"
	"grievance/backend/internal/config"
	"grievance/backend/internal/models"
	"grievance/backend/internal/storage"

	"go.uber.org/zap"
)

type CloseInput struct {
	Remarks      string
	Attachments  []string
	ClosingProof string
	// FallbackName and FallbackEmail identify the closer when their user
	// record cannot be read.
	FallbackName  string
	FallbackEmail string
}

// CloseComplaint resolves the complaint on behalf of its assigned officer
// and stores the closure snapshot.
func (s *Service) CloseComplaint(ctx context.Context, complaintID, officerID string, in CloseInput, actor *models.Actor) (*models.Complaint, error) {
	remarks := strings.TrimSpace(in.Remarks)
	if len(remarks) < config.MinClosingRemarksLength {
		return nil, apperr.Validation("closing remarks must be at least %d characters", config.MinClosingRemarksLength)
	}

	var (
		c              *models.Complaint
		closedByUserID string
	)
	err := s.Storage.WithTx(ctx, func(tx storage.Storage) error {
		var err error
		c, err = s.getComplaint(ctx, tx, complaintID, true)
		if err != nil {
			return err
		}
		if c.IsComplaintClosed {
			return apperr.Validation("complaint %s is already closed", complaintID)
		}
		if !c.IsAssignedTo(officerID) {
			return apperr.Validation("only the assigned officer can close complaint %s", complaintID)
		}

		closer := models.ClosedByOfficer{ID: officerID, Name: in.FallbackName, Email: in.FallbackEmail}
		if c.AssignedToUserID != nil {
			closedByUserID = *c.AssignedToUserID
		}
		if u, err := s.closerUser(ctx, tx, officerID); err != nil {
			s.logger.Warn("closer lookup failed, using caller details",
				zap.String("complaint_id", complaintID),
				zap.String("officer_id", officerID),
				zap.Error(err),
			)
		} else {
			closer.Name, closer.Email = u.Name, u.Email
			closedByUserID = u.ID
		}
		if closedByUserID == "" && actor != nil {
			closedByUserID = actor.UserID
		}

		now := s.now()
		c.Status = models.StatusResolved
		c.IsComplaintClosed = true
		c.ActualResolutionDate = &now
		c.ClosingDetails = &models.ClosingDetails{
			ClosedAt:        now,
			Remarks:         remarks,
			Attachments:     append([]string(nil), in.Attachments...),
			ClosedByOfficer: closer,
			ClosingProof:    strings.TrimSpace(in.ClosingProof),
		}
		return tx.UpdateComplaint(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	s.bumpCounter(ctx, officerID, storage.CounterClosed)
	s.Log.ComplaintClosed(ctx, c, closedByUserID, actor)
	return c, nil
}

func (s *Service) closerUser(ctx context.Context, st storage.Storage, officerID string) (*models.User, error) {
	o, err := st.GetOfficerByID(ctx, officerID)
	if err != nil {
		return nil, err
	}
	u, err := s.linkedUser(ctx, st, o)
	if err != nil {
		return nil, err
	}
	if u.Name == "" {
		u.Name = o.Name
	}
	return u, nil
}
