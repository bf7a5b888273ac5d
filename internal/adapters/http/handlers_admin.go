package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/application"
	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/contracts"
	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/domain"
)

func (h *Handler) createCohort(w http.ResponseWriter, r *http.Request) {
	var req contracts.CohortRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	cohort, err := h.service.CreateCohort(r.Context(), application.CohortInput{
		Name:        req.Name,
		Description: req.Description,
		Config:      req.Config,
		Priority:    req.Priority,
		Active:      req.IsActive,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "cohort created", contracts.NewCohortResponse(cohort))
}

func (h *Handler) listCohorts(w http.ResponseWriter, r *http.Request) {
	cohorts, err := h.service.ListCohorts(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	out := make([]contracts.CohortResponse, 0, len(cohorts))
	for _, c := range cohorts {
		out = append(out, contracts.NewCohortResponse(c))
	}
	writeSuccess(w, http.StatusOK, "", out)
}

func (h *Handler) getCohort(w http.ResponseWriter, r *http.Request) {
	cohort, err := h.service.GetCohort(r.Context(), chi.URLParam(r, "cohort_id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", contracts.NewCohortResponse(cohort))
}

func (h *Handler) updateCohort(w http.ResponseWriter, r *http.Request) {
	var req contracts.CohortUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	cohort, err := h.service.UpdateCohort(r.Context(), chi.URLParam(r, "cohort_id"), application.CohortUpdate{
		Name:        req.Name,
		Description: req.Description,
		Config:      req.Config,
		Priority:    req.Priority,
		Active:      req.IsActive,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "cohort updated", contracts.NewCohortResponse(cohort))
}

func (h *Handler) deleteCohort(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteCohort(r.Context(), chi.URLParam(r, "cohort_id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "cohort deleted", nil)
}

func (h *Handler) createExperiment(w http.ResponseWriter, r *http.Request) {
	var req contracts.ExperimentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	experiment, err := h.service.CreateExperiment(r.Context(), application.ExperimentInput{
		Name:        req.Name,
		Description: req.Description,
		CohortID:    req.CohortID,
		CreatedBy:   req.CreatedBy,
		Variants:    req.Variants,
		EndDate:     req.EndDate,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "experiment created", contracts.NewExperimentResponse(experiment))
}

func (h *Handler) listExperiments(w http.ResponseWriter, r *http.Request) {
	experiments, err := h.service.ListExperiments(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	out := make([]contracts.ExperimentResponse, 0, len(experiments))
	for _, e := range experiments {
		out = append(out, contracts.NewExperimentResponse(e))
	}
	writeSuccess(w, http.StatusOK, "", out)
}

func (h *Handler) getExperiment(w http.ResponseWriter, r *http.Request) {
	experiment, err := h.service.GetExperiment(r.Context(), chi.URLParam(r, "experiment_id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", contracts.NewExperimentResponse(experiment))
}

func (h *Handler) updateExperiment(w http.ResponseWriter, r *http.Request) {
	var req contracts.ExperimentUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	experiment, err := h.service.UpdateExperiment(r.Context(), chi.URLParam(r, "experiment_id"), application.ExperimentUpdate{
		Name:        req.Name,
		Description: req.Description,
		Variants:    req.Variants,
		EndDate:     req.EndDate,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "experiment updated", contracts.NewExperimentResponse(experiment))
}

func (h *Handler) startExperiment(w http.ResponseWriter, r *http.Request) {
	h.transitionExperiment(w, r, "experiment started", h.service.StartExperiment)
}

func (h *Handler) pauseExperiment(w http.ResponseWriter, r *http.Request) {
	h.transitionExperiment(w, r, "experiment paused", h.service.PauseExperiment)
}

func (h *Handler) completeExperiment(w http.ResponseWriter, r *http.Request) {
	h.transitionExperiment(w, r, "experiment completed", h.service.CompleteExperiment)
}

func (h *Handler) transitionExperiment(
	w http.ResponseWriter,
	r *http.Request,
	message string,
	apply func(ctx context.Context, experimentID string) (domain.Experiment, error),
) {
	experiment, err := apply(r.Context(), chi.URLParam(r, "experiment_id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, message, contracts.NewExperimentResponse(experiment))
}

func (h *Handler) addEditorPick(w http.ResponseWriter, r *http.Request) {
	var req contracts.EditorPickRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	pick, err := h.service.AddEditorPick(r.Context(), application.EditorPickInput{
		PostID:   req.PostID,
		Priority: req.Priority,
		AddedBy:  req.AddedBy,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "editor pick added", pick)
}

func (h *Handler) listEditorPicks(w http.ResponseWriter, r *http.Request) {
	picks, err := h.service.ListEditorPicks(r.Context())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", picks)
}

func (h *Handler) removeEditorPick(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RemoveEditorPick(r.Context(), chi.URLParam(r, "post_id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "editor pick removed", nil)
}
