package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/application"
)

type Handler struct {
	service *application.Service
	logger  *slog.Logger
}

func NewHandler(service *application.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// RouterOptions carries the optional observability hooks.
type RouterOptions struct {
	Metrics  http.Handler
	Observer RequestObserver
	// Ready reports dependency readiness; nil means always ready.
	Ready func(ctx context.Context) error
}

func NewRouter(handler *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware(handler.logger))
	r.Use(loggingMiddleware(handler.logger, opts.Observer))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ok", nil) })
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if opts.Ready != nil {
			if err := opts.Ready(req.Context()); err != nil {
				writeError(w, http.StatusServiceUnavailable, "not_ready", err.Error(), requestIDFromContext(req.Context()))
				return
			}
		}
		writeSuccess(w, http.StatusOK, "ready", nil)
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/feed", func(r chi.Router) {
			r.Get("/for-you", handler.getForYouFeed)
			r.Get("/trending", handler.getTrendingFeed)
			r.Get("/following", handler.getFollowingFeed)
			r.Get("/weights", handler.getWeights)
		})

		r.Route("/experiments", func(r chi.Router) {
			r.Post("/events", handler.recordExperimentEvent)
			r.Get("/{experiment_id}/results", handler.getExperimentResults)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Route("/cohorts", func(r chi.Router) {
				r.Post("/", handler.createCohort)
				r.Get("/", handler.listCohorts)
				r.Get("/{cohort_id}", handler.getCohort)
				r.Put("/{cohort_id}", handler.updateCohort)
				r.Delete("/{cohort_id}", handler.deleteCohort)
			})
			r.Route("/experiments", func(r chi.Router) {
				r.Post("/", handler.createExperiment)
				r.Get("/", handler.listExperiments)
				r.Get("/{experiment_id}", handler.getExperiment)
				r.Put("/{experiment_id}", handler.updateExperiment)
				r.Post("/{experiment_id}/start", handler.startExperiment)
				r.Post("/{experiment_id}/pause", handler.pauseExperiment)
				r.Post("/{experiment_id}/complete", handler.completeExperiment)
			})
			r.Route("/editor-picks", func(r chi.Router) {
				r.Post("/", handler.addEditorPick)
				r.Get("/", handler.listEditorPicks)
				r.Delete("/{post_id}", handler.removeEditorPick)
			})
		})
	})
	return r
}
