package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jimmygitz3/final-project/internal/middleware"
	"github.com/jimmygitz3/final-project/internal/model"
	"github.com/jimmygitz3/final-project/internal/service"
)

// ReviewHandler ties HTTP requests to the ReviewService.
type ReviewHandler struct {
	reviewSvc *service.ReviewService
}

// NewReviewHandler constructs a ReviewHandler.
func NewReviewHandler(rs *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewSvc: rs}
}

// RegisterRoutes registers:
//
//	GET   /api/reviews/listing/:listingId
//	GET   /api/reviews/listing/:listingId/summary
//	GET   /api/reviews/stats
//	POST  /api/reviews
//	PATCH /api/reviews/:reviewId/helpful
func (h *ReviewHandler) RegisterRoutes(r Routes) {
	r.Public.GET("/reviews/listing/:listingId", h.GetReviews)
	r.Public.GET("/reviews/listing/:listingId/summary", h.Summary)
	r.Public.GET("/reviews/stats", h.Stats)
	r.Protected.POST("/reviews", h.CreateReview)
	r.Protected.PATCH("/reviews/:reviewId/helpful", h.MarkHelpful)
}

// GetReviews handles GET /api/reviews/listing/:listingId
func (h *ReviewHandler) GetReviews(c *gin.Context) {
	listingID, ok := pathID(c, "listingId")
	if !ok {
		return
	}
	reviews, err := h.reviewSvc.GetReviews(c.Request.Context(), listingID)
	if err != nil {
		respondError(c, err)
		return
	}
	if reviews == nil {
		reviews = []model.Review{}
	}
	c.JSON(http.StatusOK, reviews)
}

func (h *ReviewHandler) Summary(c *gin.Context) {
	listingID, ok := pathID(c, "listingId")
	if !ok {
		return
	}
	summary, err := h.reviewSvc.Summary(c.Request.Context(), listingID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *ReviewHandler) Stats(c *gin.Context) {
	stats, err := h.reviewSvc.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// CreateReview handles POST /api/reviews
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	var req service.ReviewInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}
	review, err := h.reviewSvc.CreateReview(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

func (h *ReviewHandler) MarkHelpful(c *gin.Context) {
	reviewID, ok := pathID(c, "reviewId")
	if !ok {
		return
	}
	votes, err := h.reviewSvc.MarkHelpful(c.Request.Context(), reviewID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"helpful": votes})
}
