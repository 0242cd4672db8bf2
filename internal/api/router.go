package api

import (
	"net/http"
	"time"

	"contest_registry/internal/api/handler"
	"contest_registry/internal/api/middleware"
	"contest_registry/internal/app/service"
	"contest_registry/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

func NewRouter(svc *service.Services, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition", "Location"},
		AllowCredentials: true,
	}).Handler)

	// Verifies a bearer token when present; routes opt into requiring one with middleware.Authenticator.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	middleware.SetUserLookup(svc.Auth)
	transfer := handler.NewTransferHandler(svc.Export, svc.ImportJobs)
	authHandler := handler.NewAuthHandler(svc.Auth)

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Route("/auth", authHandler.RegisterRoutes)
		v1.Route("/users", authHandler.RegisterUserRoutes)

		v1.Route("/supervisors", handler.NewSupervisorHandler(svc.Supervisors, transfer).RegisterRoutes)
		v1.Route("/contestants", handler.NewContestantHandler(svc.Contestants, transfer).RegisterRoutes)
		v1.Route("/competitions", handler.NewCompetitionHandler(svc.Competitions, transfer).RegisterRoutes)
		v1.Route("/scores", handler.NewScoreHandler(svc.Scores, transfer).RegisterRoutes)

		v1.Route("/imports", transfer.RegisterJobRoutes)
	})

	return r
}
