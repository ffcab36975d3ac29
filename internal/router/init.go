package router

import (
	userapp "github.com/bapconnect/connect-api/internal/application"
	"github.com/bapconnect/connect-api/internal/container"
	"github.com/bapconnect/connect-api/internal/infrastructure/auth"
	"github.com/bapconnect/connect-api/internal/infrastructure/events"
	gcsinfra "github.com/bapconnect/connect-api/internal/infrastructure/gcs"
	pginfra "github.com/bapconnect/connect-api/internal/infrastructure/postgres"
	handlers "github.com/bapconnect/connect-api/internal/interface/http"
	"github.com/bapconnect/connect-api/internal/router/modules"
)

// buildService wires the user service from container singletons.
func buildService() (*userapp.Service, *auth.Provider) {
	cfg := container.GetConfig()

	repo := pginfra.NewUserRepository(container.GetPGPool(), cfg.AppBaseURL)
	store := gcsinfra.NewAvatarStore(container.GetGCS(), cfg.GCSBucket)
	provider := auth.NewProvider(repo, container.GetJWT(), container.GetRedis(), container.GetLogger())
	publisher := events.NewRabbitPublisher(container.GetRabbitPub(), cfg.VerifyEmailURL)

	svc := userapp.NewService(
		repo,
		container.GetCipher(),
		store,
		provider,
		publisher,
		container.GetLogger(),
		container.GetES(),
		cfg.ESUsersIndex,
	)
	if cfg.VerifyTokenTTL > 0 {
		svc.VerifyTokenTTL = cfg.VerifyTokenTTL
	}
	return svc, provider
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	svc, provider := buildService()
	logger := container.GetLogger()

	userHandler := handlers.NewUserHandler(svc, logger)
	authHandler := handlers.NewAuthHandler(svc, logger)
	emailHandler := handlers.NewEmailHandler(svc, logger)

	r.Add(modules.NewUserModule(userHandler, provider))
	r.Add(modules.NewAuthModule(authHandler, provider))
	r.Add(modules.NewEmailModule(emailHandler))
	if container.GetConfig().DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
