package contracts

import (
	"time"

	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/domain"
)

type CohortRequest struct {
	Name        string                  `json:"name"`
	Description string                  `json:"description,omitempty"`
	Config      domain.WeightConfigSpec `json:"algorithm_config"`
	Priority    int                     `json:"priority"`
	IsActive    *bool                   `json:"is_active,omitempty"`
}

type CohortUpdateRequest struct {
	Name        *string                  `json:"name,omitempty"`
	Description *string                  `json:"description,omitempty"`
	Config      *domain.WeightConfigSpec `json:"algorithm_config,omitempty"`
	Priority    *int                     `json:"priority,omitempty"`
	IsActive    *bool                    `json:"is_active,omitempty"`
}

type CohortResponse struct {
	CohortID    string                  `json:"cohort_id"`
	Name        string                  `json:"name"`
	Description string                  `json:"description,omitempty"`
	Config      domain.WeightConfigSpec `json:"algorithm_config"`
	Priority    int                     `json:"priority"`
	IsActive    bool                    `json:"is_active"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

func NewCohortResponse(c domain.Cohort) CohortResponse {
	return CohortResponse{
		CohortID:    c.CohortID,
		Name:        c.Name,
		Description: c.Description,
		Config:      c.Config.Spec(),
		Priority:    c.Priority,
		IsActive:    c.Active,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

type ExperimentRequest struct {
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	CohortID    string               `json:"cohort_id,omitempty"`
	Variants    []domain.VariantSpec `json:"variants"`
	EndDate     *time.Time           `json:"end_date,omitempty"`
	CreatedBy   string               `json:"created_by,omitempty"`
}

type ExperimentUpdateRequest struct {
	Name        *string              `json:"name,omitempty"`
	Description *string              `json:"description,omitempty"`
	Variants    []domain.VariantSpec `json:"variants,omitempty"`
	EndDate     *time.Time           `json:"end_date,omitempty"`
}

type ExperimentResponse struct {
	ExperimentID string                    `json:"experiment_id"`
	CohortID     string                    `json:"cohort_id,omitempty"`
	Name         string                    `json:"name"`
	Description  string                    `json:"description,omitempty"`
	Status       string                    `json:"status"`
	Variants     []domain.VariantSpec      `json:"variants"`
	StartDate    *time.Time                `json:"start_date,omitempty"`
	EndDate      *time.Time                `json:"end_date,omitempty"`
	CreatedBy    string                    `json:"created_by,omitempty"`
	Results      *domain.ExperimentResults `json:"results,omitempty"`
	CreatedAt    time.Time                 `json:"created_at"`
	UpdatedAt    time.Time                 `json:"updated_at"`
}

func NewExperimentResponse(e domain.Experiment) ExperimentResponse {
	variants := make([]domain.VariantSpec, 0, len(e.Variants))
	for _, v := range e.Variants {
		variants = append(variants, v.Spec())
	}
	return ExperimentResponse{
		ExperimentID: e.ExperimentID,
		CohortID:     e.CohortID,
		Name:         e.Name,
		Description:  e.Description,
		Status:       e.Status,
		Variants:     variants,
		StartDate:    e.StartDate,
		EndDate:      e.EndDate,
		CreatedBy:    e.CreatedBy,
		Results:      e.Results,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

type ExperimentEventRequest struct {
	ExperimentID       string `json:"experiment_id"`
	UserID             string `json:"user_id"`
	VariantName        string `json:"variant_name,omitempty"`
	EventType          string `json:"event_type"`
	PostID             string `json:"post_id,omitempty"`
	SessionDurationSec *int64 `json:"session_duration_s,omitempty"`
}

type EditorPickRequest struct {
	PostID   string `json:"post_id"`
	Priority int    `json:"priority"`
	AddedBy  string `json:"added_by,omitempty"`
}

type WeightsResponse struct {
	Config     domain.WeightConfigSpec `json:"config"`
	Provenance string                  `json:"provenance"`
}

type SuccessResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type ErrorResponse struct {
	Status string       `json:"status"`
	Error  ErrorPayload `json:"error"`
}

type ErrorPayload struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"request_id,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}
