package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, svc *Service) {
	v1 := r.Group("/v1")
	v1.GET("/projects/:id/health", func(c *gin.Context) {
		score, err := svc.ComputeProject(c.Request.Context(), c.Param("id"))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, score)
	})
	v1.GET("/clients/:id/health", func(c *gin.Context) {
		score, err := svc.ComputeClient(c.Request.Context(), c.Param("id"))
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, score)
	})
}
