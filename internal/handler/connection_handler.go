package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jimmygitz3/final-project/internal/middleware"
	"github.com/jimmygitz3/final-project/internal/model"
	"github.com/jimmygitz3/final-project/internal/service"
)

type ConnectionHandler struct {
	Svc *service.ConnectionService
}

func (h *ConnectionHandler) RegisterRoutes(r Routes) {
	r.Protected.GET("/connections/check/:listingId", h.Check)
	r.Protected.GET("/connections/my-connections", h.Mine)
}

// GET /api/connections/check/:listingId
func (h *ConnectionHandler) Check(c *gin.Context) {
	listingID, ok := pathID(c, "listingId")
	if !ok {
		return
	}
	check, err := h.Svc.CheckAccess(c.Request.Context(), middleware.UserID(c), listingID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, check)
}

func (h *ConnectionHandler) Mine(c *gin.Context) {
	views, err := h.Svc.ListForTenant(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if views == nil {
		views = []model.ConnectionView{}
	}
	c.JSON(http.StatusOK, views)
}
