package handler

import (
	"errors"
	"net/http"

	"grievance/backend/internal/complaint"
	"grievance/backend/internal/models"
	"grievance/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

type createComplaintRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	CitizenName string `json:"citizen_name"`
}

// assignRequest names either a known officer or an executive to find or
// create by email.
type assignRequest struct {
	OfficerID   string `json:"officer_id"`
	Name        string `json:"name"`
	Designation string `json:"designation"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
}

type reassignRequest struct {
	OfficerID string `json:"officer_id" binding:"required"`
}

type statusRequest struct {
	Status models.ComplaintStatus `json:"status" binding:"required"`
}

type closeRequest struct {
	Remarks      string   `json:"remarks"`
	Attachments  []string `json:"attachments"`
	ClosingProof string   `json:"closing_proof"`
}

type extensionRequest struct {
	Days   int    `json:"days"`
	Reason string `json:"reason"`
}

type decisionRequest struct {
	Days  *int   `json:"days"`
	Notes string `json:"notes"`
}

type noteRequest struct {
	Body string `json:"body"`
}

type documentRequest struct {
	FileName    string `json:"file_name"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
}

// bind decodes the JSON body; an empty body is allowed for requests whose
// fields are all optional.
func bind(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return false
	}
	return true
}

// officerFor resolves the calling officer's record.
func (h *Handler) officerFor(c *gin.Context) (*models.Officer, bool) {
	actor := actorFrom(c)
	o, err := h.Officers.GetOfficerByUserID(c.Request.Context(), actor.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusForbidden, gin.H{"error": "No officer profile for this account"})
		return nil, false
	}
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	return o, true
}

// author derives the note/document author from the caller's role.
func (h *Handler) author(c *gin.Context) (complaint.Author, bool) {
	if actorFrom(c).Role == models.RoleAdmin {
		return complaint.Author{Kind: models.AuthorAdmin}, true
	}
	o, ok := h.officerFor(c)
	if !ok {
		return complaint.Author{}, false
	}
	return complaint.Author{Kind: models.AuthorOfficer, OfficerID: o.ID}, true
}

func (h *Handler) CreateComplaint(c *gin.Context) {
	var req createComplaintRequest
	if !bind(c, &req) {
		return
	}
	out, err := h.Complaints.CreateComplaint(c.Request.Context(), complaint.NewComplaint{
		Title:       req.Title,
		Description: req.Description,
		CitizenName: req.CitizenName,
	}, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *Handler) AssignOfficer(c *gin.Context) {
	var req assignRequest
	if !bind(c, &req) {
		return
	}
	var (
		out *models.Complaint
		err error
	)
	if req.OfficerID != "" {
		out, err = h.Complaints.AssignExistingOfficer(c.Request.Context(), c.Param("id"), req.OfficerID, actorFrom(c))
	} else {
		out, err = h.Complaints.AssignOfficer(c.Request.Context(), c.Param("id"), complaint.Executive{
			Name:        req.Name,
			Designation: req.Designation,
			Email:       req.Email,
			Phone:       req.Phone,
		}, actorFrom(c))
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) ReassignOfficer(c *gin.Context) {
	var req reassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "officer_id is required"})
		return
	}
	out, err := h.Complaints.ReassignOfficer(c.Request.Context(), c.Param("id"), req.OfficerID, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) UnassignComplaint(c *gin.Context) {
	out, err := h.Complaints.UnassignComplaint(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) ChangeStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}
	out, err := h.Complaints.ChangeStatus(c.Request.Context(), c.Param("id"), req.Status, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) CloseComplaint(c *gin.Context) {
	var req closeRequest
	if !bind(c, &req) {
		return
	}
	o, ok := h.officerFor(c)
	if !ok {
		return
	}
	actor := actorFrom(c)
	out, err := h.Complaints.CloseComplaint(c.Request.Context(), c.Param("id"), o.ID, complaint.CloseInput{
		Remarks:       req.Remarks,
		Attachments:   req.Attachments,
		ClosingProof:  req.ClosingProof,
		FallbackName:  actor.Name,
		FallbackEmail: o.Email,
	}, actor)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) RequestExtension(c *gin.Context) {
	var req extensionRequest
	if !bind(c, &req) {
		return
	}
	o, ok := h.officerFor(c)
	if !ok {
		return
	}
	out, err := h.Complaints.RequestOfficerExtension(c.Request.Context(), c.Param("id"), o.ID, req.Days, req.Reason, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *Handler) ApproveExtension(c *gin.Context) {
	var req decisionRequest
	if !bind(c, &req) {
		return
	}
	actor := actorFrom(c)
	out, err := h.Complaints.ApproveExtension(c.Request.Context(), c.Param("id"), actor.UserID, req.Days, req.Notes, actor)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) RejectExtension(c *gin.Context) {
	var req decisionRequest
	if !bind(c, &req) {
		return
	}
	actor := actorFrom(c)
	out, err := h.Complaints.RejectExtension(c.Request.Context(), c.Param("id"), actor.UserID, req.Notes, actor)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) AddNote(c *gin.Context) {
	var req noteRequest
	if !bind(c, &req) {
		return
	}
	author, ok := h.author(c)
	if !ok {
		return
	}
	out, err := h.Complaints.AddNote(c.Request.Context(), c.Param("id"), author, req.Body, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *Handler) AddDocument(c *gin.Context) {
	var req documentRequest
	if !bind(c, &req) {
		return
	}
	author, ok := h.author(c)
	if !ok {
		return
	}
	out, err := h.Complaints.AddDocument(c.Request.Context(), c.Param("id"), author, complaint.DocumentInput{
		FileName:    req.FileName,
		URL:         req.URL,
		ContentType: req.ContentType,
	}, actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *Handler) Timeline(c *gin.Context) {
	events, err := h.Complaints.Timeline(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
