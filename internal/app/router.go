package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"airlink/internal/handler"
	"airlink/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	FlightHandler   *handler.FlightHandler
	CheckoutHandler *handler.CheckoutHandler
	CouponHandler   *handler.CouponHandler
	PaymentHandler  *handler.PaymentHandler
	SessionTokens   *middleware.SessionTokens
	AllowedOrigins  []string
	RedisClient     *redis.Client
	NewRelicApp     *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.Logger())
	router.Use(middleware.CORS(deps.AllowedOrigins))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Flight catalogue routes.
		flights := v1.Group("/flights")
		{
			flights.GET("/search", deps.FlightHandler.Search)
			flights.GET("/availability", deps.FlightHandler.Availability)
			flights.GET("/:id/fares", deps.FlightHandler.Fares)
		}

		// Coupon routes.
		coupons := v1.Group("/coupons")
		{
			coupons.GET("", deps.CouponHandler.List)
			coupons.POST("/validate", deps.CouponHandler.Validate)
		}

		// Checkout creation is public and returns the session token.
		v1.POST("/checkout", deps.CheckoutHandler.Start)
		v1.POST("/checkout/import", deps.CheckoutHandler.Import)

		// Checkout routes scoped to the session in the token.
		checkout := v1.Group("/checkout")
		checkout.Use(middleware.CheckoutSession(deps.SessionTokens))
		checkout.Use(middleware.NewRelicAttributes())
		{
			checkout.GET("", deps.CheckoutHandler.Get)
			checkout.DELETE("", deps.CheckoutHandler.Abandon)
			checkout.GET("/stages/:stage", deps.CheckoutHandler.Navigate)
			checkout.PUT("/legs/:direction", deps.CheckoutHandler.SelectLeg)
			checkout.GET("/seats/:direction", deps.CheckoutHandler.SeatMap)
			checkout.PUT("/seats/:direction", deps.CheckoutHandler.SelectSeats)
			checkout.GET("/buses", deps.CheckoutHandler.Buses)
			checkout.PUT("/buses", deps.CheckoutHandler.SelectBus)
			checkout.POST("/buses/skip", deps.CheckoutHandler.SkipBus)
			checkout.PUT("/passenger", deps.CheckoutHandler.SavePassenger)
			checkout.POST("/coupon", deps.CouponHandler.Apply)
			checkout.DELETE("/coupon", deps.CouponHandler.Remove)
			checkout.POST("/payment", middleware.IdempotencyMiddleware(deps.RedisClient), deps.PaymentHandler.Submit)
		}

		// Gateway callbacks and reservation lookup.
		v1.POST("/payments/webhooks/:processor", deps.PaymentHandler.Webhook)
		v1.GET("/reservations/:code", deps.PaymentHandler.GetReservation)
	}

	return router
}
