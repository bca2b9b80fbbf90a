package scoring

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, svc *Service) {
	r.GET("/v1/scoring/weights", func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.Weights())
	})
}
