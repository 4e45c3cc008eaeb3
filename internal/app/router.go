package app

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"louage/internal/handler"
	"louage/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	TripHandler         *handler.TripHandler
	BookingHandler      *handler.BookingHandler
	UserHandler         *handler.UserHandler
	NotificationHandler *handler.NotificationHandler
	PricingHandler      *handler.PricingHandler
	RedisClient         *redis.Client // nil disables idempotency keys
	NewRelicApp         *newrelic.Application
	JWTSecret           string
	AllowedOrigins      []string
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(deps.AllowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = deps.AllowedOrigins
	}
	router.Use(cors.New(corsConfig))

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	if deps.RedisClient != nil {
		router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")

	// Registration stays open so clients can obtain an identity.
	v1.POST("/users/register", deps.UserHandler.Register)

	api := v1.Group("", middleware.Auth(deps.JWTSecret))
	{
		// User routes.
		users := api.Group("/users")
		{
			users.GET("", deps.UserHandler.GetAll)
			users.GET("/:id", deps.UserHandler.GetUser)

			users.GET("/:id/notifications", deps.NotificationHandler.List)
			users.GET("/:id/notifications/unread-count", deps.NotificationHandler.UnreadCount)
			users.GET("/:id/notifications/stream", deps.NotificationHandler.Stream)
			users.POST("/:id/notifications/read-all", deps.NotificationHandler.MarkAllAsRead)
			users.POST("/:id/notifications/:nid/read", deps.NotificationHandler.MarkAsRead)
			users.DELETE("/:id/notifications/:nid", deps.NotificationHandler.Delete)
		}

		api.GET("/drivers/:id/punctuality", deps.UserHandler.Punctuality)
		api.GET("/passengers/:id/bookings", deps.BookingHandler.ListForPassenger)

		// Trip routes.
		trips := api.Group("/trips")
		{
			trips.POST("", deps.TripHandler.CreateTrip)
			trips.GET("", deps.TripHandler.ListTrips)
			trips.GET("/:id", deps.TripHandler.GetTrip)
			trips.GET("/:id/bookings", deps.TripHandler.ListBookings)
			trips.POST("/:id/start", deps.TripHandler.StartTrip)
			trips.POST("/:id/complete", deps.TripHandler.CompleteTrip)
			trips.POST("/:id/cancel", deps.TripHandler.CancelTrip)
		}

		// Booking routes.
		bookings := api.Group("/bookings")
		{
			bookings.POST("", deps.BookingHandler.Submit)
			bookings.GET("/:id", deps.BookingHandler.GetBooking)
			bookings.GET("/:id/receipt", deps.BookingHandler.Receipt)
			bookings.POST("/:id/accept", deps.BookingHandler.Accept)
			bookings.POST("/:id/decline", deps.BookingHandler.Decline)
			bookings.POST("/:id/cancel", deps.BookingHandler.Cancel)
		}

		api.POST("/pricing/quote", deps.PricingHandler.Quote)
	}

	return router
}
