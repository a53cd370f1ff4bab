package handler

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/jimmygitz3/final-project/internal/middleware"
	"github.com/jimmygitz3/final-project/internal/service"
)

// Routes are the /api groups a handler registers on: open to everyone,
// caller recorded when a token is sent, and token required.
type Routes struct {
	Public    *gin.RouterGroup
	Optional  *gin.RouterGroup
	Protected *gin.RouterGroup
}

type Services struct {
	Auth        *service.AuthService
	Listings    *service.ListingService
	Payments    *service.PaymentService
	Connections *service.ConnectionService
	Reviews     *service.ReviewService
	Activity    *service.ActivityService
}

// NewRouter builds the engine with every route under /api.
func NewRouter(svc Services, tokens *middleware.Tokens, origins []string) *gin.Engine {
	RegisterValidators()

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
		corsCfg.AllowCredentials = true
	}

	r := gin.Default()
	r.Use(cors.New(corsCfg))

	api := r.Group("/api")
	routes := Routes{
		Public:    api,
		Optional:  api.Group("", middleware.OptionalAuth(tokens)),
		Protected: api.Group("", middleware.JWTAuth(tokens)),
	}
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	(&AuthHandler{Svc: svc.Auth}).RegisterRoutes(routes)
	(&ListingHandler{Svc: svc.Listings}).RegisterRoutes(routes)
	(&PhotoHandler{Svc: svc.Listings}).RegisterRoutes(routes)
	(&PaymentHandler{Svc: svc.Payments}).RegisterRoutes(routes)
	(&ConnectionHandler{Svc: svc.Connections}).RegisterRoutes(routes)
	NewReviewHandler(svc.Reviews).RegisterRoutes(routes)
	(&ActivityHandler{Svc: svc.Activity}).RegisterRoutes(routes)
	return r
}
