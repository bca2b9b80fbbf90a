package task

import (
	"net/http"

	"studiodesk/pkg/errutil"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	v1 := r.Group("/v1")

	v1.POST("/users", h.CreateUser)
	v1.GET("/users/:id", h.GetUser)
	v1.PATCH("/users/:id/capacity", h.SetCapacity)

	tasks := v1.Group("/tasks")
	tasks.POST("", h.Create)
	tasks.GET("", h.List)
	tasks.POST("/batch", h.Batch)
	tasks.GET("/:id", h.Get)
	tasks.PATCH("/:id", h.Update)
	tasks.DELETE("/:id", h.Delete)
	tasks.POST("/:id/status", h.ChangeStatus)
	tasks.GET("/:id/score", h.Score)
	tasks.GET("/:id/audit", h.Audit)
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return false
	}
	return true
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateTaskRequest
	if !bind(c, &req) {
		return
	}
	t, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *Handler) List(c *gin.Context) {
	var req ListTasksRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid query", err))
		return
	}
	tasks, page, err := h.svc.List(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": tasks, "page_info": page})
}

func (h *Handler) Get(c *gin.Context) {
	t, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) Update(c *gin.Context) {
	var req UpdateTaskRequest
	if !bind(c, &req) {
		return
	}
	t, err := h.svc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

type changeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) ChangeStatus(c *gin.Context) {
	var req changeStatusRequest
	if !bind(c, &req) {
		return
	}
	t, err := h.svc.ChangeStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *Handler) Batch(c *gin.Context) {
	var req BatchRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.svc.Batch(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Score(c *gin.Context) {
	view, err := h.svc.Score(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) Audit(c *gin.Context) {
	entries, err := h.svc.Audit(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if !bind(c, &req) {
		return
	}
	u, err := h.svc.CreateUser(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *Handler) GetUser(c *gin.Context) {
	u, err := h.svc.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, u)
}

type capacityRequest struct {
	AtCapacity *bool `json:"at_capacity" binding:"required"`
}

func (h *Handler) SetCapacity(c *gin.Context) {
	var req capacityRequest
	if !bind(c, &req) {
		return
	}
	u, err := h.svc.SetCapacity(c.Request.Context(), c.Param("id"), *req.AtCapacity)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, u)
}
