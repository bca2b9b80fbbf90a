package notify

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, svc *Service) {
	r.GET("/v1/users/:id/notifications", func(c *gin.Context) {
		items, err := svc.ListForUser(c.Request.Context(), c.Param("id"), c.Query("unread") == "true")
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": items})
	})
}
