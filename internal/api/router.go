package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	bookingHttp "github.com/nekogravitycat/demo-booking-scheduler/internal/booking/http"
)

// Config holds what the router needs from the container.
type Config struct {
	IsProduction   bool
	AllowedOrigins []string
	Logger         *slog.Logger
	BookingHandler *bookingHttp.Handler
}

var devOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

// NewRouter assembles the global middleware (request logger, recovery, CORS)
// and registers the health check and the booking routes.
func NewRouter(cfg Config) *gin.Engine {
	r := gin.New()

	r.Use(RequestLogger(cfg.Logger), gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if cfg.IsProduction {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowOrigins = devOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type"}
	corsConfig.ExposeHeaders = []string{RequestIDHeader}
	// cors.New panics on an empty origin list.
	if len(corsConfig.AllowOrigins) > 0 {
		r.Use(cors.New(corsConfig))
	}

	r.SetHTMLTemplate(bookingHttp.Templates())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	bookingHttp.RegisterRoutes(r.Group("/api"), &r.RouterGroup, cfg.BookingHandler)

	return r
}
