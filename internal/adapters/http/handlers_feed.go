package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/application"
	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/contracts"
	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/domain"
)

const maxRequestBody = 1 << 20

func (h *Handler) getForYouFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, err := queryInt(q.Get("offset"), "offset")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	limit, err := queryInt(q.Get("limit"), "limit")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	page, err := h.service.GetForYouFeed(r.Context(), application.ForYouInput{
		UserID:           q.Get("user_id"),
		Interests:        queryCSV(q["interests"]),
		CohortIDs:        queryCSV(q["cohort_ids"]),
		ExcludeAuthorIDs: queryCSV(q["exclude_author_ids"]),
		Offset:           offset,
		Limit:            limit,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", page)
}

func (h *Handler) getTrendingFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, err := queryInt(q.Get("offset"), "offset")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	limit, err := queryInt(q.Get("limit"), "limit")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	page, err := h.service.GetTrendingFeed(r.Context(), offset, limit)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", page)
}

func (h *Handler) getFollowingFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	depth, err := queryInt(q.Get("depth"), "depth")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	limit, err := queryInt(q.Get("limit"), "limit")
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	page, err := h.service.GetFollowingFeed(r.Context(), application.FollowingInput{
		FollowingIDs:     queryCSV(q["following_ids"]),
		ExcludeAuthorIDs: queryCSV(q["exclude_author_ids"]),
		Cursor:           q.Get("cursor"),
		Depth:            depth,
		Limit:            limit,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", page)
}

func (h *Handler) getWeights(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resolved, err := h.service.ResolveWeights(r.Context(), q.Get("user_id"), queryCSV(q["cohort_ids"]))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", contracts.WeightsResponse{
		Config:     resolved.Config.Spec(),
		Provenance: resolved.Provenance,
	})
}

func (h *Handler) recordExperimentEvent(w http.ResponseWriter, r *http.Request) {
	var req contracts.ExperimentEventRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	ack, err := h.service.RecordExperimentEvent(r.Context(), application.ExperimentEventInput{
		ExperimentID:       req.ExperimentID,
		UserID:             req.UserID,
		VariantName:        req.VariantName,
		EventType:          req.EventType,
		PostID:             req.PostID,
		SessionDurationSec: req.SessionDurationSec,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusAccepted, "event recorded", ack)
}

func (h *Handler) getExperimentResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.GetExperimentResults(r.Context(), chi.URLParam(r, "experiment_id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", results)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

func queryInt(raw, name string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidInput, name)
	}
	return v, nil
}

// queryCSV accepts both repeated parameters and comma separated values.
func queryCSV(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
