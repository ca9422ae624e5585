package handler

import (
	"context"
	"errors"
	"net/http"

	"grievance/backend/internal/apperr"
	"grievance/backend/internal/complaint"
	"grievance/backend/internal/models"
	"grievance/backend/internal/obs"
	"grievance/backend/internal/realtime"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OfficerLookup maps an officer's user account to the officer record.
type OfficerLookup interface {
	GetOfficerByUserID(ctx context.Context, userID string) (*models.Officer, error)
}

// Handler wires the HTTP surface to the complaint service and the
// notification hub.
type Handler struct {
	Complaints *complaint.Service
	Officers   OfficerLookup
	Hub        *realtime.Hub
	Auth       *Auth

	logger *zap.Logger
}

func NewHandler(complaints *complaint.Service, officers OfficerLookup, hub *realtime.Hub, auth *Auth, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Complaints: complaints,
		Officers:   officers,
		Hub:        hub,
		Auth:       auth,
		logger:     logger.Named("http"),
	}
}

// Register mounts every route on r.
func (h *Handler) Register(r *gin.Engine, limiter gin.HandlerFunc) {
	r.Use(obs.Instrument())
	if limiter != nil {
		r.Use(limiter)
	}

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(obs.Handler()))
	r.GET("/ws", h.ServeWebSocket)

	admin := RequireRole(models.RoleAdmin)
	officer := RequireRole(models.RoleOfficer)
	staff := RequireRole(models.RoleAdmin, models.RoleOfficer)

	g := r.Group("/complaints", h.Auth.Middleware())
	g.POST("", h.CreateComplaint)
	g.POST("/:id/assign", admin, h.AssignOfficer)
	g.POST("/:id/reassign", admin, h.ReassignOfficer)
	g.POST("/:id/unassign", admin, h.UnassignComplaint)
	g.POST("/:id/status", admin, h.ChangeStatus)
	g.POST("/:id/close", officer, h.CloseComplaint)
	g.POST("/:id/extensions", officer, h.RequestExtension)
	g.POST("/:id/extensions/approve", admin, h.ApproveExtension)
	g.POST("/:id/extensions/reject", admin, h.RejectExtension)
	g.POST("/:id/notes", staff, h.AddNote)
	g.POST("/:id/documents", staff, h.AddDocument)
	g.GET("/:id/timeline", staff, h.Timeline)
}

// respondError maps the domain error taxonomy onto status codes.
func (h *Handler) respondError(c *gin.Context, err error) {
	var (
		validation *apperr.ValidationError
		notFound   *apperr.NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error()})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	default:
		h.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}
