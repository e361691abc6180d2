package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"bookly/internal/infra/config"
	"bookly/internal/infra/obs"
)

type Handlers struct {
	Auth           AuthHTTP
	Booking        BookingHTTP
	WaitingList    WaitingListHTTP
	Resources      ResourceHTTP
	Me             MeHTTP
	AuthMiddleware gin.HandlerFunc
	RateLimiter    *obs.RateLimiter
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the gin engine. Tests drive it directly through httptest.
func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))

	registerSwaggerRoutes(router)

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.RateLimiter != nil {
		api.Use(h.RateLimiter.Middleware())
	}
	if h.AuthMiddleware != nil {
		api.Use(h.AuthMiddleware)
	}
	if h.Auth != nil {
		api.POST("/auth/login", h.Auth.Login)
		api.GET("/auth/me", h.Auth.Me)
	}
	if h.Booking != nil {
		bookings := api.Group("/bookings")
		bookings.GET("", h.Booking.List)
		bookings.POST("", h.Booking.Create)
		bookings.GET("/:id", h.Booking.Get)
		bookings.PATCH("/:id", h.Booking.Update)
		bookings.POST("/:id/approve", h.Booking.Approve)
		bookings.POST("/:id/reject", h.Booking.Reject)
		bookings.POST("/:id/cancel", h.Booking.Cancel)
	}
	if h.WaitingList != nil {
		waiting := api.Group("/waiting-list")
		waiting.GET("", h.WaitingList.List)
		waiting.POST("", h.WaitingList.Add)
		waiting.DELETE("/:id", h.WaitingList.Remove)
		waiting.POST("/:id/promote", h.WaitingList.Promote)
	}
	if h.Resources != nil {
		api.GET("/resources", h.Resources.List)
		api.GET("/resources/:id/schedule", h.Resources.Schedule)
	}
	if h.Me != nil {
		meGroup := api.Group("/me")
		meGroup.GET("/bookings", h.Me.ListBookings)
		meGroup.GET("/notifications", h.Me.ListNotifications)
	}

	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
