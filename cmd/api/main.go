package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/schoolhub/schoolhub-api/internal/config"
	"github.com/schoolhub/schoolhub-api/internal/domain/school"
	"github.com/schoolhub/schoolhub-api/internal/domain/staff"
	"github.com/schoolhub/schoolhub-api/internal/domain/user"
	"github.com/schoolhub/schoolhub-api/internal/middleware"
	"github.com/schoolhub/schoolhub-api/internal/pkg/database"
	"github.com/schoolhub/schoolhub-api/internal/pkg/email"
	"github.com/schoolhub/schoolhub-api/internal/pkg/jwt"
	"github.com/schoolhub/schoolhub-api/internal/pkg/logger"
	"github.com/schoolhub/schoolhub-api/internal/pkg/response"
	"github.com/schoolhub/schoolhub-api/migrations"
)

func main() {
	cfg := config.Load()

	if err := logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}

	// Database
	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := migrations.Apply(migrateCtx, db); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}
	cancel()

	// Redis (optional)
	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redisClient)

	// Shared services
	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)
	emailService := email.NewService(email.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.EmailFrom,
		FromName:  cfg.EmailFromName,
	}, cfg.FrontendURL)
	defer emailService.Close()

	// Repositories
	userRepo := user.NewRepository(db)
	schoolRepo := school.NewRepository(db)
	staffRepo := staff.NewRepository(db)

	// Permission plumbing: Redis-cached grant lookups feeding the
	// authorization decision procedure and the route guard.
	permCache := staff.NewPermissionCache(redisClient)
	grants := staff.NewCachedPermissions(staffRepo, permCache)
	authorizer := staff.NewAuthorizer(staffRepo, grants)
	guard := staff.NewGuard(authorizer, &subdomainResolver{schools: schoolRepo})

	staffService := staff.NewService(staffRepo, userRepo, schoolRepo, grants, permCache, &emailNotifier{emails: emailService})
	staffHandler := staff.NewHandler(staffService, guard)

	// Populate the permission catalog. A failure here is retried lazily on
	// the first default grant, so it only warns.
	catalogCtx, cancelCatalog := context.WithTimeout(context.Background(), 10*time.Second)
	if err := staffRepo.EnsureCatalog(catalogCtx); err != nil {
		log.Warn().Err(err).Msg("Failed to populate permission catalog")
	}
	cancelCatalog()

	// Router
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recover)
	r.Use(middleware.Logger)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		response.OK(w, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		staff.RegisterRoutes(r, staffHandler, guard, middleware.Auth(jwtService))
	})

	// Server with graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	log.Info().Msg("Server stopped")
}

// subdomainResolver resolves an explicit school hint to an id via the
// school directory. Hints that are valid UUIDs never reach this resolver.
type subdomainResolver struct {
	schools school.Repository
}

func (r *subdomainResolver) ResolveSchool(ctx context.Context, hint string) (uuid.UUID, error) {
	sch, err := r.schools.GetBySubdomain(ctx, hint)
	if err != nil {
		return uuid.Nil, err
	}
	if sch == nil {
		return uuid.Nil, school.ErrSchoolNotFound
	}
	return sch.ID, nil
}

// emailNotifier adapts the email service to the staff notifier contract
type emailNotifier struct {
	emails *email.Service
}

func (n *emailNotifier) RoleChanged(to, name, oldRole, newRole, schoolName string) {
	n.emails.SendRoleChanged(to, name, oldRole, newRole, schoolName)
}

func (n *emailNotifier) PrincipalPromoted(to, name, schoolName string) {
	n.emails.SendPrincipalPromoted(to, name, schoolName)
}

func (n *emailNotifier) WelcomeAdmin(to, name, schoolName, role, tempPassword string) {
	n.emails.SendWelcomeAdmin(to, name, schoolName, role, to, tempPassword)
}
