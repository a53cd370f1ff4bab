package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jimmygitz3/final-project/internal/middleware"
	"github.com/jimmygitz3/final-project/internal/service"
)

// maxPhotoSize caps a single uploaded image.
const maxPhotoSize = 5 << 20

type PhotoHandler struct {
	Svc *service.ListingService
}

func (h *PhotoHandler) RegisterRoutes(r Routes) {
	r.Protected.POST("/listings/:id/photos", h.UploadPhoto)
	r.Public.GET("/listings/:id/photos/:photoId", h.DownloadPhoto)
}

func (h *PhotoHandler) UploadPhoto(c *gin.Context) {
	listingID, ok := pathID(c, "id")
	if !ok {
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Size > maxPhotoSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot open file"})
		return
	}
	defer file.Close()

	filename := fmt.Sprintf("listing_%s_%s", listingID.Hex(), fileHeader.Filename)
	photoID, err := h.Svc.AddPhoto(c.Request.Context(), listingID, middleware.UserID(c), filename, file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"photo_id":  photoID,
		"photo_url": fmt.Sprintf("/api/listings/%s/photos/%s", listingID.Hex(), photoID),
	})
}

func (h *PhotoHandler) DownloadPhoto(c *gin.Context) {
	listingID, ok := pathID(c, "id")
	if !ok {
		return
	}
	data, err := h.Svc.Photo(c.Request.Context(), listingID, c.Param("photoId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, http.DetectContentType(data), data)
}
