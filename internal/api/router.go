package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"

	"github.com/safeinsights/management-app-sub003/internal/api/handler"
	"github.com/safeinsights/management-app-sub003/internal/app/service"
	"github.com/safeinsights/management-app-sub003/internal/platform/config"
)

func NewRouter(
	cfg *config.Config,
	tokenAuth *jwtauth.JWTAuth,
	jobStatusService *service.JobStatusService,
	studyService *service.StudyService,
	keyService *service.KeyService,
	orgService *service.OrgService,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Verifies a bearer JWT when present and puts claims in context; the
	// webhook route ignores these and checks its own shared secret.
	r.Use(jwtauth.Verifier(tokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(v1 chi.Router) {
		webhookHandler := handler.NewWebhookHandler(jobStatusService, cfg.WebhookSecret, logger)
		v1.Route("/webhook", webhookHandler.RegisterRoutes)

		studyHandler := handler.NewStudyHandler(studyService)
		v1.Route("/studies", studyHandler.RegisterRoutes)

		jobHandler := handler.NewJobHandler(studyService)
		v1.Route("/jobs", jobHandler.RegisterRoutes)

		keyHandler := handler.NewKeyHandler(keyService)
		v1.Route("/keys", keyHandler.RegisterRoutes)

		orgHandler := handler.NewOrgHandler(orgService)
		v1.Route("/orgs", orgHandler.RegisterRoutes)
	})

	return r
}
