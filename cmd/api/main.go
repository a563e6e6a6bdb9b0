package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/globalbeauty/concierge-api/internal/config"
	"github.com/globalbeauty/concierge-api/internal/email"
	authHandler "github.com/globalbeauty/concierge-api/internal/handler/auth"
	bookingHandler "github.com/globalbeauty/concierge-api/internal/handler/booking"
	clinicHandler "github.com/globalbeauty/concierge-api/internal/handler/clinic"
	healthHandler "github.com/globalbeauty/concierge-api/internal/handler/health"
	opsHandler "github.com/globalbeauty/concierge-api/internal/handler/ops"
	opsauthHandler "github.com/globalbeauty/concierge-api/internal/handler/opsauth"
	reviewHandler "github.com/globalbeauty/concierge-api/internal/handler/review"
	"github.com/globalbeauty/concierge-api/internal/middleware"
	"github.com/globalbeauty/concierge-api/internal/repository/postgres"
	"github.com/globalbeauty/concierge-api/internal/router"
	authService "github.com/globalbeauty/concierge-api/internal/service/auth"
	bookingService "github.com/globalbeauty/concierge-api/internal/service/booking"
	clinicService "github.com/globalbeauty/concierge-api/internal/service/clinic"
	identityService "github.com/globalbeauty/concierge-api/internal/service/identity"
	notifyService "github.com/globalbeauty/concierge-api/internal/service/notify"
	opsauthService "github.com/globalbeauty/concierge-api/internal/service/opsauth"
	reviewService "github.com/globalbeauty/concierge-api/internal/service/review"
	"github.com/globalbeauty/concierge-api/internal/worker"
	"github.com/globalbeauty/concierge-api/pkg/logger"
	"github.com/globalbeauty/concierge-api/pkg/messaging"
	redisBroker "github.com/globalbeauty/concierge-api/pkg/messaging/redis"
	"github.com/globalbeauty/concierge-api/pkg/metrics"
	"github.com/globalbeauty/concierge-api/pkg/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(&logger.Config{
		Level:      logger.ParseLevel(cfg.LogLevel),
		TimeFormat: time.RFC3339,
		Pretty:     cfg.LogPretty,
		Output:     os.Stdout,
	})

	if err := postgres.RunMigrations(cfg.Database.URL()); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	var broker messaging.Broker
	if cfg.Redis.URL != "" {
		broker, err = redisBroker.NewBroker(redisBroker.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, log)
		if err != nil {
			// The API serves without the event stream; subscribers catch up
			// once Redis returns.
			log.Warn().Err(err).Msg("event broker unavailable, continuing without it")
			broker = nil
		} else {
			defer broker.Close()
		}
	}

	m := metrics.New("concierge")

	bookingRepo := postgres.NewBookingRepository(db)
	reviewRepo := postgres.NewReviewRepository(db)
	clinicRepo := postgres.NewClinicRepository(db)
	userRepo := postgres.NewUserRepository(db)
	opsUserRepo := postgres.NewOpsUserRepository(db)
	sessionRepo := postgres.NewSessionRepository(db)

	sender := email.NewSMTPSender(cfg.SMTP, log)
	hasher := security.NewBcryptHasher(12)

	identitySvc := identityService.NewService(sessionRepo, userRepo, opsUserRepo, bookingRepo, log)
	notifySvc := notifyService.NewService(sender, clinicRepo, m, log)
	bookingSvc := bookingService.NewService(bookingRepo, clinicRepo, notifySvc, broker, m, log)
	reviewSvc := reviewService.NewService(reviewRepo, bookingRepo, clinicRepo, m, log)
	clinicSvc := clinicService.NewService(clinicRepo, log)
	authSvc := authService.NewService(userRepo, sessionRepo,
		authService.NewGoogleVerifier(cfg.Google.ClientID), cfg.Session.ExpiryDays, m, log)
	opsauthSvc := opsauthService.NewService(opsUserRepo, sessionRepo, hasher,
		cfg.Ops.AdminSecret, cfg.Session.ExpiryDays, m, log)

	authMw := middleware.NewAuth(identitySvc, cfg.Session.CacheTTL)

	cookieMaxAge := cfg.Session.ExpiryDays * 24 * 3600
	secureCookie := cfg.Session.SecureCookies

	r := router.New(authMw, log, router.Config{
		RateLimit:     rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:     cfg.RateLimit.Burst,
		CORSConfig:    middleware.DefaultCORSConfig(),
		MetricsPrefix: "concierge_http",
	})
	r.Setup(
		healthHandler.NewHandler(db),
		clinicHandler.NewHandler(clinicSvc),
		bookingHandler.NewHandler(bookingSvc, identitySvc),
		reviewHandler.NewHandler(reviewSvc),
		authHandler.NewHandler(authSvc, authMw, cookieMaxAge, secureCookie),
		opsauthHandler.NewHandler(opsauthSvc, authMw, cookieMaxAge, secureCookie),
		opsHandler.NewHandler(bookingSvc, notifySvc),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cleanup := worker.NewSessionCleanup(sessionRepo, cfg.Session.SweepInterval, cfg.Session.RetentionDays, m, log)
	go cleanup.Run(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
