package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
	"github.com/viralforge/mesh/services/data-ai/M60-feed-ranking-engine/internal/domain"
)

func toDomainCandidatePost(m postModel) domain.CandidatePost {
	return domain.CandidatePost{
		PostID: m.PostID, AuthorID: m.AuthorID, PublishedAt: m.PublishedAt.UTC(),
		Tags: []string(m.Tags), Hashtags: []string(m.Hashtags),
		LikeCount: m.LikeCount, CommentCount: m.CommentCount, ShareCount: m.ShareCount,
	}
}

func toDomainCandidatePosts(rows []postModel) []domain.CandidatePost {
	out := make([]domain.CandidatePost, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainCandidatePost(row))
	}
	return out
}

func toDomainEditorPick(m editorPickModel) domain.EditorPick {
	return domain.EditorPick{PostID: m.PostID, Priority: m.Priority, Active: m.IsActive, AddedBy: m.AddedBy, CreatedAt: m.CreatedAt.UTC()}
}

// toDomainCohort rebuilds the weight config through the domain constructor;
// a row that no longer validates is reported instead of served.
func toDomainCohort(m cohortModel) (domain.Cohort, error) {
	var spec domain.WeightConfigSpec
	if err := json.Unmarshal(m.AlgorithmConfig, &spec); err != nil {
		return domain.Cohort{}, fmt.Errorf("decode cohort %s config: %w", m.CohortID, err)
	}
	cfg, err := spec.Build()
	if err != nil {
		return domain.Cohort{}, fmt.Errorf("cohort %s: %w", m.CohortID, err)
	}
	return domain.Cohort{
		CohortID: m.CohortID, Name: m.Name, Description: m.Description, Config: cfg,
		Priority: m.Priority, Active: m.IsActive, CreatedAt: m.CreatedAt.UTC(), UpdatedAt: m.UpdatedAt.UTC(),
	}, nil
}

func fromDomainCohort(c domain.Cohort) (cohortModel, error) {
	raw, err := json.Marshal(c.Config.Spec())
	if err != nil {
		return cohortModel{}, err
	}
	return cohortModel{
		CohortID: c.CohortID, Name: c.Name, Description: c.Description, AlgorithmConfig: raw,
		Priority: c.Priority, IsActive: c.Active, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt,
	}, nil
}

func toDomainExperiment(m experimentModel) (domain.Experiment, error) {
	var specs []domain.VariantSpec
	if err := json.Unmarshal(m.Variants, &specs); err != nil {
		return domain.Experiment{}, fmt.Errorf("decode experiment %s variants: %w", m.ExperimentID, err)
	}
	variants, err := domain.BuildVariants(specs)
	if err != nil {
		return domain.Experiment{}, fmt.Errorf("experiment %s: %w", m.ExperimentID, err)
	}
	e := domain.Experiment{
		ExperimentID: m.ExperimentID, Name: m.Name, Description: m.Description, Status: m.Status,
		Variants: variants, StartDate: m.StartDate, EndDate: m.EndDate, CreatedBy: m.CreatedBy,
		CreatedAt: m.CreatedAt.UTC(), UpdatedAt: m.UpdatedAt.UTC(),
	}
	if m.CohortID != nil {
		e.CohortID = *m.CohortID
	}
	if len(m.Results) > 0 {
		var results domain.ExperimentResults
		if err := json.Unmarshal(m.Results, &results); err == nil {
			e.Results = &results
		}
	}
	return e, nil
}

func fromDomainExperiment(e domain.Experiment) (experimentModel, error) {
	specs := make([]domain.VariantSpec, 0, len(e.Variants))
	for _, v := range e.Variants {
		specs = append(specs, v.Spec())
	}
	variants, err := json.Marshal(specs)
	if err != nil {
		return experimentModel{}, err
	}
	m := experimentModel{
		ExperimentID: e.ExperimentID, Name: e.Name, Description: e.Description, Status: e.Status,
		Variants: variants, StartDate: e.StartDate, EndDate: e.EndDate, CreatedBy: e.CreatedBy,
		CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt,
	}
	if e.CohortID != "" {
		cohortID := e.CohortID
		m.CohortID = &cohortID
	}
	if e.Results != nil {
		if m.Results, err = json.Marshal(e.Results); err != nil {
			return experimentModel{}, err
		}
	}
	return m, nil
}

func fromDomainExperimentEvent(e domain.ExperimentEvent) experimentEventModel {
	return experimentEventModel{
		EventID: e.EventID, ExperimentID: e.ExperimentID, UserID: e.UserID, VariantName: e.VariantName,
		EventType: e.EventType, PostID: e.PostID, SessionDurationSec: e.SessionDurationSec, OccurredAt: e.OccurredAt,
	}
}

func toDomainVariantCounts(r variantCountsRow) domain.VariantCounts {
	return domain.VariantCounts{
		Variant: r.VariantName, Impressions: r.Impressions, Clicks: r.Clicks, Likes: r.Likes,
		SessionStarts: r.SessionStarts, AvgSessionDuration: r.AvgSessionDuration,
	}
}

func stringArray(values []string) pq.StringArray {
	return pq.StringArray(values)
}
