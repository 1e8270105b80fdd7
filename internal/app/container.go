package app

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/demo-booking-scheduler/internal/actiontoken"
	"github.com/nekogravitycat/demo-booking-scheduler/internal/api"
	"github.com/nekogravitycat/demo-booking-scheduler/internal/booking"
	bookingHttp "github.com/nekogravitycat/demo-booking-scheduler/internal/booking/http"
	"github.com/nekogravitycat/demo-booking-scheduler/internal/calendar"
	"github.com/nekogravitycat/demo-booking-scheduler/internal/config"
	"github.com/nekogravitycat/demo-booking-scheduler/internal/notification"
)

// Config holds the dependencies and settings required to start the application.
// Exactly one of DBPool and SQLDB is used, chosen by Settings.StoreDriver.
type Config struct {
	Settings *config.Config
	DBPool   *pgxpool.Pool
	SQLDB    *sql.DB
	Mailer   notification.Mailer
	Logger   *slog.Logger

	// Now overrides the wall clock; tests pin it.
	Now func() time.Time
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router     *gin.Engine
	Dispatcher *notification.Dispatcher
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) (*Container, error) {
	s := cfg.Settings
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Store
	var repo booking.Repository
	switch s.StoreDriver {
	case config.StoreDriverPostgres:
		if cfg.DBPool == nil {
			return nil, fmt.Errorf("store driver %q needs a database pool", s.StoreDriver)
		}
		repo = booking.NewPgxRepository(cfg.DBPool)
	case config.StoreDriverSQLite:
		if cfg.SQLDB == nil {
			return nil, fmt.Errorf("store driver %q needs a database handle", s.StoreDriver)
		}
		repo = booking.NewSQLiteRepository(cfg.SQLDB)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", s.StoreDriver)
	}
	repo = booking.NewRetryingRepository(repo, booking.RetryPolicy{
		Attempts: s.StoreAttempts,
		Timeout:  s.StoreAttemptTimeout,
		Delay:    s.StoreRetryDelay,
	}, logger)

	// Action links
	var codec actiontoken.Codec = actiontoken.NewBase64Codec()
	if s.ActionTokenSecret != "" {
		codec = actiontoken.NewSignedCodec(s.ActionTokenSecret)
	}

	// Messages
	if cfg.Mailer == nil {
		return nil, fmt.Errorf("mail transport is required")
	}
	sender := notification.Address{Name: s.MailFromName, Email: s.MailFrom}
	composer := notification.NewComposer(notification.ComposerConfig{
		From:         sender,
		CompanyEmail: s.CompanyEmail,
		FrontendURL:  s.FrontendURL,
		MeetingTitle: s.MeetingTitle,
	})
	dispatcher := notification.NewDispatcher(cfg.Mailer, s.DispatchTimeout, logger)

	// Booking module
	linkBase := s.PublicBaseURL
	if linkBase == "" {
		linkBase = s.FrontendURL
	}
	opts := []booking.ServiceOption{booking.WithLogger(logger)}
	if cfg.Now != nil {
		opts = append(opts, booking.WithClock(cfg.Now))
	}
	invites := calendar.NewBuilder()
	if cfg.Now != nil {
		invites = calendar.NewBuilder(calendar.WithClock(cfg.Now))
	}
	bookingService := booking.NewService(repo, codec, invites, composer, dispatcher, booking.ServiceConfig{
		Location:        s.Location,
		MeetingTitle:    s.MeetingTitle,
		MeetingLocation: s.MeetingLocation,
		Organizer:       calendar.Participant{Name: sender.Name, Email: sender.Email},
		LinkBase:        linkBase,
	}, opts...)
	bookingHandler := bookingHttp.NewHandler(bookingService, bookingHttp.LinkConfig{
		PublicBaseURL: s.PublicBaseURL,
		FrontendURL:   s.FrontendURL,
	})

	// Router
	router := api.NewRouter(api.Config{
		IsProduction:   s.IsProduction(),
		AllowedOrigins: s.AllowedOrigins(),
		Logger:         logger,
		BookingHandler: bookingHandler,
	})

	return &Container{
		Router:     router,
		Dispatcher: dispatcher,
	}, nil
}
