package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"fundportal/internal/repository"
	"fundportal/internal/scheduler"
	"fundportal/internal/service/escalation"
)

type EscalationHandler struct {
	service   *escalation.Service
	repo      *repository.EscalationRepository
	scheduler *scheduler.Scheduler
	logger    *zap.Logger
}

func NewEscalationHandler(
	service *escalation.Service,
	repo *repository.EscalationRepository,
	sched *scheduler.Scheduler,
	logger *zap.Logger,
) *EscalationHandler {
	return &EscalationHandler{
		service:   service,
		repo:      repo,
		scheduler: sched,
		logger:    logger,
	}
}

// List handles GET /api/escalations
func (h *EscalationHandler) List(c *gin.Context) {
	status := c.Query("status")
	projectID, _ := strconv.Atoi(c.Query("project_id"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	escalations, err := h.repo.List(c.Request.Context(), status, projectID, limit)
	if err != nil {
		h.logger.Error("Failed to list escalations", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list escalations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"escalations": escalations})
}

// Stats handles GET /api/escalations/stats
func (h *EscalationHandler) Stats(c *gin.Context) {
	stats, err := h.repo.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to compute escalation stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// Get handles GET /api/escalations/:id
func (h *EscalationHandler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid escalation id"})
		return
	}

	esc, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, escalation.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "escalation not found"})
			return
		}
		h.logger.Error("Failed to load escalation", zap.Int("escalation_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load escalation"})
		return
	}

	c.JSON(http.StatusOK, esc)
}

// Create handles POST /api/escalations
func (h *EscalationHandler) Create(c *gin.Context) {
	var req struct {
		ProjectID   int    `json:"project_id" binding:"required"`
		MilestoneID *int   `json:"milestone_id"`
		Level       int    `json:"escalation_level" binding:"required"`
		Type        string `json:"escalation_type"`
		Description string `json:"description" binding:"required"`
		EscalatedTo int    `json:"escalated_to" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	esc, err := h.service.Create(c.Request.Context(), escalation.CreateParams{
		ProjectID:   req.ProjectID,
		MilestoneID: req.MilestoneID,
		Level:       req.Level,
		Type:        req.Type,
		Description: req.Description,
		EscalatedTo: req.EscalatedTo,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, esc)
}

// Resolve handles POST /api/escalations/:id/resolve
func (h *EscalationHandler) Resolve(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid escalation id"})
		return
	}

	var req struct {
		Notes string `json:"resolution_notes" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "resolution_notes is required"})
		return
	}

	resolved, err := h.service.Resolve(c.Request.Context(), id, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, escalation.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "escalation not found"})
		case errors.Is(err, escalation.ErrAlreadyResolved):
			c.JSON(http.StatusConflict, gin.H{"error": "escalation already resolved"})
		default:
			h.logger.Error("Failed to resolve escalation", zap.Int("escalation_id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve escalation"})
		}
		return
	}

	c.JSON(http.StatusOK, resolved)
}

// TriggerCheck handles POST /api/escalations/trigger-check
func (h *EscalationHandler) TriggerCheck(c *gin.Context) {
	if err := h.scheduler.RunNow(c.Request.Context()); err != nil {
		if errors.Is(err, scheduler.ErrSweepSkipped) {
			c.JSON(http.StatusConflict, gin.H{"error": "escalation check skipped: a sweep is already running"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "escalation check failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "escalation check completed"})
}
