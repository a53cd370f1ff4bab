package handler

import (
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/jimmygitz3/final-project/internal/apperr"
)

var registerOnce sync.Once

// RegisterValidators adds the "objectid" rule to gin's binding engine.
func RegisterValidators() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
				return primitive.IsValidObjectID(fl.Field().String())
			})
		}
	})
}

func statusOf(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation, apperr.KindConflict, apperr.KindGateway:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindAuthorization:
		return http.StatusForbidden
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"error", "details"}. Unclassified errors are
// logged and answered with a generic 500.
func respondError(c *gin.Context, err error) {
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Kind != apperr.KindInternal {
		body := gin.H{"error": ae.Message}
		if ae.Details != nil {
			body["details"] = ae.Details
		}
		if ae.Kind == apperr.KindGateway {
			log.Printf("[Handler] %s %s: %v", c.Request.Method, c.FullPath(), err)
		}
		c.JSON(statusOf(ae.Kind), body)
		return
	}
	log.Printf("[Handler] %s %s: %v", c.Request.Method, c.FullPath(), err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
}

func badPayload(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload", "details": err.Error()})
}

// pathID parses an ObjectID path parameter, answering 400 when malformed.
func pathID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return primitive.NilObjectID, false
	}
	return id, true
}
