package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/contracts"
	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, contracts.SuccessResponse{Status: "success", Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message, requestID string) {
	writeJSON(w, status, contracts.ErrorResponse{Status: "error", Error: contracts.ErrorPayload{Code: code, Message: message, RequestID: requestID}})
}

func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := mapDomainError(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			"module", "adapters.http",
			"layer", "adapter",
			"operation", r.Method+" "+r.URL.Path,
			"outcome", "failure",
			"error", err,
		)
		if status == http.StatusInternalServerError {
			message = "internal server error"
		}
	}
	writeError(w, status, code, message, requestIDFromContext(r.Context()))
}

func mapDomainError(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, domain.ErrInvalidWeightConfig):
		return http.StatusBadRequest, "invalid_weight_config"
	case errors.Is(err, domain.ErrInvalidVariants):
		return http.StatusBadRequest, "invalid_variants"
	case errors.Is(err, domain.ErrExperimentDuration):
		return http.StatusBadRequest, "experiment_too_short"
	case errors.Is(err, domain.ErrUnsupportedEventType):
		return http.StatusBadRequest, "unsupported_event_type"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrExperimentTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, domain.ErrExperimentNotEditable):
		return http.StatusConflict, "experiment_not_editable"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrDependencyUnavailable):
		return http.StatusServiceUnavailable, "dependency_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
