package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/expohall/expohall-api/internal/http/handlers"
	httpmw "github.com/expohall/expohall-api/internal/http/middleware"
	"github.com/expohall/expohall-api/internal/platform/mailer"
	"github.com/expohall/expohall-api/internal/platform/unsplash"
	"github.com/expohall/expohall-api/internal/repo/postgres"
	"github.com/expohall/expohall-api/internal/scheduler"
	"github.com/expohall/expohall-api/internal/service"
	"github.com/expohall/expohall-api/pkg/config"
	"github.com/expohall/expohall-api/pkg/database"
	"github.com/expohall/expohall-api/pkg/events"
	"github.com/expohall/expohall-api/pkg/logger"
	mw "github.com/expohall/expohall-api/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	// Connect to database
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Connect to Redis (rate limiting)
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Error("Invalid Redis URL", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	// Connect to event bus
	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	mailSvc := buildMailer(cfg)

	unsplashClient := unsplash.NewClient(cfg.Unsplash.AccessKey)
	if !unsplashClient.Enabled() {
		logger.Warn("Unsplash disabled, events keep uploaded images only")
	}

	// Initialize repositories
	companyRepo := postgres.NewCompanyRepo(pool)
	adminRepo := postgres.NewAdminRepo(pool)
	eventRepo := postgres.NewEventRepo(pool)
	surveyRepo := postgres.NewSurveyRepo(pool)

	// Initialize services
	magicLinkSvc := service.NewMagicLinkService(companyRepo, mailSvc, eventBus, cfg)
	authSvc := service.NewAuthService(companyRepo, adminRepo, eventBus, cfg)
	reportSvc := service.NewReportService(surveyRepo, mailSvc, eventBus)
	cleanupSvc := service.NewCleanupService(companyRepo)

	limiter := httpmw.NewRateLimiter(redisClient, httpmw.RateLimitConfig{
		Requests: cfg.RateLimit.Requests,
		Window:   cfg.RateLimit.Window,
		KeyFunc:  httpmw.MagicLinkKeyFunc,
	})

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(magicLinkSvc, authSvc, limiter, cfg)
	adminHandler := handlers.NewAdminHandler(authSvc, magicLinkSvc, companyRepo, cfg)
	eventHandler := handlers.NewEventHandler(eventRepo, unsplashClient, eventBus, cfg)
	visitorHandler := handlers.NewVisitorHandler(eventRepo, surveyRepo, eventBus)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("api"))
	r.Use(mw.Logging)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(mw.Health)

	// Routes
	r.Mount("/auth", authHandler.Routes())
	r.Mount("/admin", adminHandler.Routes())
	r.Mount("/events", eventHandler.Routes())
	r.Mount("/visitor", visitorHandler.Routes())

	// Scheduled jobs
	sched := scheduler.New(cfg, reportSvc.SendDailyReports, cleanupSvc.SweepExpiredTokens)
	if err := sched.Start(); err != nil {
		logger.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down api...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Shutdown error", "error", err)
		}
	}()

	logger.Info("Starting api", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}

// buildMailer picks the delivery backend: log-only in dev, MailerSend when an
// API key is present, SMTP otherwise.
func buildMailer(cfg *config.Config) mailer.Service {
	switch {
	case cfg.Email.DevMode:
		logger.Info("Email dev mode, printing messages to logs")
		return mailer.NewDevMailer()
	case cfg.Email.MailerSendKey != "":
		return mailer.NewMailer(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.SMTPFrom)
	default:
		return mailer.NewSMTPMailer(cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPFrom, cfg.Email.SMTPUser, cfg.Email.SMTPPass, cfg.Email.SMTPUseTLS)
	}
}
