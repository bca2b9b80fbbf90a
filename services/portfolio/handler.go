package portfolio

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
	v1.POST("/clients", h.CreateClient)
	v1.GET("/clients/:id", h.GetClient)
	v1.PATCH("/clients/:id/archive", h.ArchiveClient)
	v1.GET("/clients/:id/invoices", h.ListInvoices)

	v1.POST("/projects", h.CreateProject)
	v1.GET("/projects/:id", h.GetProject)
	v1.PATCH("/projects/:id/archive", h.ArchiveProject)

	v1.POST("/invoices", h.CreateInvoice)
	v1.PATCH("/invoices/:id/paid", h.MarkInvoicePaid)
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		_ = c.Error(errutil.BadRequest("invalid request body", err))
		return false
	}
	return true
}

func (h *Handler) CreateClient(c *gin.Context) {
	var req CreateClientRequest
	if !bind(c, &req) {
		return
	}
	client, err := h.svc.CreateClient(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, client)
}

func (h *Handler) GetClient(c *gin.Context) {
	client, err := h.svc.GetClient(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, client)
}

func (h *Handler) ArchiveClient(c *gin.Context) {
	client, err := h.svc.ArchiveClient(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, client)
}

func (h *Handler) ListInvoices(c *gin.Context) {
	invoices, err := h.svc.ListInvoices(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": invoices})
}

func (h *Handler) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if !bind(c, &req) {
		return
	}
	project, err := h.svc.CreateProject(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (h *Handler) GetProject(c *gin.Context) {
	project, err := h.svc.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *Handler) ArchiveProject(c *gin.Context) {
	project, err := h.svc.ArchiveProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *Handler) CreateInvoice(c *gin.Context) {
	var req CreateInvoiceRequest
	if !bind(c, &req) {
		return
	}
	inv, err := h.svc.CreateInvoice(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, inv)
}

func (h *Handler) MarkInvoicePaid(c *gin.Context) {
	inv, err := h.svc.MarkInvoicePaid(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, inv)
}
