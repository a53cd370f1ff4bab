package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jimmygitz3/final-project/internal/middleware"
	"github.com/jimmygitz3/final-project/internal/model"
	"github.com/jimmygitz3/final-project/internal/service"
)

type ActivityHandler struct {
	Svc *service.ActivityService
}

func (h *ActivityHandler) RegisterRoutes(r Routes) {
	r.Protected.GET("/activity/feed", h.Feed)
	r.Protected.GET("/activity/stats", h.Stats)
}

func (h *ActivityHandler) Feed(c *gin.Context) {
	feed, err := h.Svc.Feed(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if feed == nil {
		feed = []model.Activity{}
	}
	c.JSON(http.StatusOK, feed)
}

func (h *ActivityHandler) Stats(c *gin.Context) {
	stats, err := h.Svc.Stats(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
