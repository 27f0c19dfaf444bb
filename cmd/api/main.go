package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/khaledm/eventide/docs"
	"github.com/khaledm/eventide/internal/config"
	"github.com/khaledm/eventide/internal/database"
	"github.com/khaledm/eventide/internal/deleterequest"
	"github.com/khaledm/eventide/internal/event"
	"github.com/khaledm/eventide/internal/export"
	"github.com/khaledm/eventide/internal/series"
	"github.com/khaledm/eventide/internal/user"
	mw "github.com/khaledm/eventide/pkg/middleware"
	"github.com/khaledm/eventide/pkg/token"
)

// @title           Eventide API
// @version         1.0
// @description     Calendar and event management API with users, recurring events, series and admin review workflows.
// @BasePath        /api/v1
func main() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).With().
		Timestamp().
		Logger()
	zerolog.DefaultContextLogger = &logger

	// Load .env file
	if err := godotenv.Load(); err != nil {
		logger.Info().Msg("No .env file found, using environment variables")
	}

	cfg := config.Load()

	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	// Initialize database connection
	db, err := database.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	logger.Info().Msg("Connected to database successfully")

	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	tokens := token.NewManager(cfg.JWTSecret, cfg.TokenTTL)
	auth := mw.Auth(tokens)

	// User feature
	userRepo := user.NewRepository(db)
	userService := user.NewService(userRepo, tokens, cfg.BcryptCost, logger)
	userHandler := user.NewHandler(userService)

	// Event feature (user directory injected for invite resolution)
	eventRepo := event.NewRepository(db)
	eventService := event.NewService(eventRepo, userRepo, logger)
	eventHandler := event.NewHandler(eventService)

	// Series feature
	seriesRepo := series.NewRepository(db)
	seriesService := series.NewService(seriesRepo, logger)
	seriesHandler := series.NewHandler(seriesService)

	// Delete-request feature (account deletion routed through user repository)
	deleteRepo := deleterequest.NewRepository(db)
	deleteService := deleterequest.NewService(deleteRepo, userRepo, logger)
	deleteHandler := deleterequest.NewHandler(deleteService)

	// Calendar export feature
	exportService := export.NewService(eventRepo, logger)
	exportHandler := export.NewHandler(exportService)

	// Nightly purge of reviewed delete requests
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.PurgeCronTab, func() {
		deleteService.PurgeOld(context.Background())
	}); err != nil {
		logger.Fatal().Err(err).Str("schedule", cfg.PurgeCronTab).Msg("Invalid purge schedule")
	}
	scheduler.Start()
	defer scheduler.Stop()

	r := chi.NewRouter()

	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/swagger/*", httpSwagger.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// User routes manage their own auth split (register/login are public)
		r.Mount("/users", userHandler.Routes(auth))

		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Mount("/events", eventHandler.Routes())
			r.Mount("/series", seriesHandler.Routes())
			r.Mount("/delete-requests", deleteHandler.Routes())
			r.Mount("/calendar", exportHandler.Routes())
		})
	})

	handler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(r)

	logger.Info().Str("port", cfg.Port).Msg("Server starting")
	if err := http.ListenAndServe(":"+cfg.Port, handler); err != nil {
		logger.Fatal().Err(err).Msg("Server failed to start")
	}
}
