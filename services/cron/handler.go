package cron

import (
	"net/http"
	"strconv"

	"studiodesk/pkg/config"
	"studiodesk/pkg/errutil"
	"studiodesk/pkg/middleware"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func RegisterRoutes(r *gin.Engine, cfg *config.Config, h *Handler) {
	r.GET("/v1/scoring/freeze", h.FreezeState)

	cron := r.Group("/v1/cron", middleware.SchedulerSecret(cfg.Scheduler.Secret))
	cron.POST("/recalculate", h.enqueue(JobRecalculate))
	cron.POST("/health-sweep", h.enqueue(JobHealthSweep))
	cron.POST("/freeze", h.Freeze)
	cron.GET("/runs", h.ListRuns)
}

func (h *Handler) enqueue(job string) gin.HandlerFunc {
	return func(c *gin.Context) {
		run, err := h.svc.Enqueue(c.Request.Context(), job)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusAccepted, run)
	}
}

type FreezeRequest struct {
	Frozen *bool `json:"frozen" binding:"required"`
}

func (h *Handler) Freeze(c *gin.Context) {
	var req FreezeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return
	}
	run, err := h.svc.SetFreeze(c.Request.Context(), *req.Frozen, TriggerHTTP)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *Handler) FreezeState(c *gin.Context) {
	frozen, err := h.svc.Frozen(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"frozen": frozen})
}

func (h *Handler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	runs, err := h.svc.Runs(c.Request.Context(), c.Query("job"), limit)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": runs})
}
