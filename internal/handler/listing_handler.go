package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jimmygitz3/final-project/internal/middleware"
	"github.com/jimmygitz3/final-project/internal/model"
	"github.com/jimmygitz3/final-project/internal/service"
)

// ListingHandler serves listing CRUD, availability and maintenance routes.
type ListingHandler struct {
	Svc *service.ListingService
}

func (h *ListingHandler) RegisterRoutes(r Routes) {
	r.Public.GET("/listings", h.Search)
	r.Optional.GET("/listings/:id", h.GetListingByID)

	r.Protected.POST("/listings", h.CreateListing)
	r.Protected.PUT("/listings/:id", h.UpdateListing)
	r.Protected.GET("/listings/my/listings", h.MyListings)
	r.Protected.PATCH("/listings/:id/mark-unavailable", h.MarkUnavailable)
	r.Protected.PATCH("/listings/:id/restore-availability", h.RestoreAvailability)

	maintenance := r.Protected.Group("/maintenance", middleware.RequireRole(string(model.RoleLandlord)))
	maintenance.GET("/pending-deletion", h.PendingDeletion)
	maintenance.POST("/cleanup", h.Cleanup)
}

// GET /api/listings?county=...&town=...&propertyType=...&minPrice=...&maxPrice=...&university=...&limit=...&offset=...
func (h *ListingHandler) Search(c *gin.Context) {
	f := model.ListingFilter{
		County:       c.Query("county"),
		Town:         c.Query("town"),
		PropertyType: model.PropertyType(c.Query("propertyType")),
		University:   c.Query("university"),
	}
	if v := c.Query("minPrice"); v != "" {
		if min, err := strconv.ParseFloat(v, 64); err == nil {
			f.MinPrice = &min
		}
	}
	if v := c.Query("maxPrice"); v != "" {
		if max, err := strconv.ParseFloat(v, 64); err == nil {
			f.MaxPrice = &max
		}
	}
	f.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "0"))
	f.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	list, err := h.Svc.Search(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []model.Listing{}
	}
	c.JSON(http.StatusOK, list)
}

// GET /api/listings/:id
func (h *ListingHandler) GetListingByID(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	detail, err := h.Svc.Get(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *ListingHandler) CreateListing(c *gin.Context) {
	var req service.ListingInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	listing, err := h.Svc.Create(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, listing)
}

func (h *ListingHandler) UpdateListing(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req service.ListingUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	listing, err := h.Svc.Update(c.Request.Context(), id, middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *ListingHandler) MyListings(c *gin.Context) {
	list, err := h.Svc.MyListings(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []model.Listing{}
	}
	c.JSON(http.StatusOK, list)
}

// PATCH /api/listings/:id/mark-unavailable
func (h *ListingHandler) MarkUnavailable(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	listing, err := h.Svc.MarkUnavailable(c.Request.Context(), id, middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":             "Listing marked as unavailable. It will be automatically deleted in 24 hours.",
		"scheduledDeletionAt": listing.ScheduledDeletionAt,
	})
}

// PATCH /api/listings/:id/restore-availability
func (h *ListingHandler) RestoreAvailability(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, err := h.Svc.RestoreAvailability(c.Request.Context(), id, middleware.UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Listing availability restored successfully."})
}

// GET /api/maintenance/pending-deletion?window=2h
func (h *ListingHandler) PendingDeletion(c *gin.Context) {
	window := service.DefaultPendingWindow
	if v := c.Query("window"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid window"})
			return
		}
		window = d
	}
	list, err := h.Svc.PendingDeletion(c.Request.Context(), middleware.UserID(c), window)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(list), "listings": list})
}

// POST /api/maintenance/cleanup
func (h *ListingHandler) Cleanup(c *gin.Context) {
	manifest, err := h.Svc.CleanupOwned(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":         "Cleanup completed",
		"deletedCount":    manifest.DeletedCount,
		"deletedListings": manifest.DeletedListings,
	})
}
