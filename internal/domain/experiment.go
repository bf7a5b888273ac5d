package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	ExperimentStatusDraft     = "DRAFT"
	ExperimentStatusRunning   = "RUNNING"
	ExperimentStatusPaused    = "PAUSED"
	ExperimentStatusCompleted = "COMPLETED"

	MinExperimentDuration = 7 * 24 * time.Hour

	totalTrafficPct = 100
	minVariants     = 2
)

type Cohort struct {
	CohortID    string       `json:"cohort_id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Config      WeightConfig `json:"-"`
	Priority    int          `json:"priority"`
	Active      bool         `json:"is_active"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// SelectAuthoritativeCohort picks the active cohort with the lowest priority
// number. Equal priorities fall back to ascending cohort id so the choice is
// stable for a given input set.
func SelectAuthoritativeCohort(cohorts []Cohort) (Cohort, bool) {
	var (
		best  Cohort
		found bool
	)
	for _, c := range cohorts {
		if !c.Active {
			continue
		}
		if !found || c.Priority < best.Priority || (c.Priority == best.Priority && c.CohortID < best.CohortID) {
			best = c
			found = true
		}
	}
	return best, found
}

type Variant struct {
	Name       string       `json:"name"`
	TrafficPct int          `json:"traffic_pct"`
	Config     WeightConfig `json:"-"`
}

// VariantSpec is the unvalidated wire form of a variant.
type VariantSpec struct {
	Name       string           `json:"name"`
	TrafficPct int              `json:"traffic_pct"`
	Config     WeightConfigSpec `json:"config"`
}

func (v Variant) Spec() VariantSpec {
	return VariantSpec{Name: v.Name, TrafficPct: v.TrafficPct, Config: v.Config.Spec()}
}

// BuildVariants validates a variant list: at least two uniquely named
// variants, each with a valid weight config, traffic summing to exactly 100.
// The returned slice is ordered by name.
func BuildVariants(specs []VariantSpec) ([]Variant, error) {
	if len(specs) < minVariants {
		return nil, fmt.Errorf("%w: at least %d variants are required, got %d", ErrInvalidVariants, minVariants, len(specs))
	}
	seen := make(map[string]struct{}, len(specs))
	total := 0
	out := make([]Variant, 0, len(specs))
	for _, spec := range specs {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: variant name is required", ErrInvalidVariants)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: duplicate variant name %q", ErrInvalidVariants, name)
		}
		seen[name] = struct{}{}
		if spec.TrafficPct < 0 || spec.TrafficPct > totalTrafficPct {
			return nil, fmt.Errorf("%w: variant %q traffic_pct must be within [0,100]", ErrInvalidVariants, name)
		}
		cfg, err := spec.Config.Build()
		if err != nil {
			return nil, fmt.Errorf("variant %q: %w", name, err)
		}
		total += spec.TrafficPct
		out = append(out, Variant{Name: name, TrafficPct: spec.TrafficPct, Config: cfg})
	}
	if total != totalTrafficPct {
		return nil, fmt.Errorf("%w: traffic_pct must sum to 100, got %d", ErrInvalidVariants, total)
	}
	SortVariants(out)
	return out, nil
}

func SortVariants(variants []Variant) {
	sort.SliceStable(variants, func(i, j int) bool { return variants[i].Name < variants[j].Name })
}

type Experiment struct {
	ExperimentID string             `json:"experiment_id"`
	CohortID     string             `json:"cohort_id,omitempty"`
	Name         string             `json:"name"`
	Description  string             `json:"description,omitempty"`
	Status       string             `json:"status"`
	Variants     []Variant          `json:"variants"`
	StartDate    *time.Time         `json:"start_date,omitempty"`
	EndDate      *time.Time         `json:"end_date,omitempty"`
	CreatedBy    string             `json:"created_by,omitempty"`
	Results      *ExperimentResults `json:"results,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

func (e Experiment) Variant(name string) (Variant, bool) {
	for _, v := range e.Variants {
		if v.Name == name {
			return v, true
		}
	}
	return Variant{}, false
}

// Editable reports whether variants and dates may still change.
func (e Experiment) Editable() bool {
	return e.Status == ExperimentStatusDraft || e.Status == ExperimentStatusPaused
}

// Start moves DRAFT or PAUSED to RUNNING. When an end date is set it must lie
// at least MinExperimentDuration after now.
func (e *Experiment) Start(now time.Time) error {
	if e.Status != ExperimentStatusDraft && e.Status != ExperimentStatusPaused {
		return fmt.Errorf("%w: cannot start from %s", ErrExperimentTransition, e.Status)
	}
	if e.EndDate != nil && e.EndDate.Before(now.Add(MinExperimentDuration)) {
		return fmt.Errorf("%w: end_date must be at least 7 days from now", ErrExperimentDuration)
	}
	e.Status = ExperimentStatusRunning
	start := now.UTC()
	e.StartDate = &start
	e.UpdatedAt = start
	return nil
}

func (e *Experiment) Pause(now time.Time) error {
	if e.Status != ExperimentStatusRunning {
		return fmt.Errorf("%w: cannot pause from %s", ErrExperimentTransition, e.Status)
	}
	e.Status = ExperimentStatusPaused
	e.UpdatedAt = now.UTC()
	return nil
}

func (e *Experiment) Complete(now time.Time) error {
	if e.Status != ExperimentStatusRunning && e.Status != ExperimentStatusPaused {
		return fmt.Errorf("%w: cannot complete from %s", ErrExperimentTransition, e.Status)
	}
	e.Status = ExperimentStatusCompleted
	e.UpdatedAt = now.UTC()
	return nil
}

func IsValidExperimentStatus(status string) bool {
	switch status {
	case ExperimentStatusDraft, ExperimentStatusRunning, ExperimentStatusPaused, ExperimentStatusCompleted:
		return true
	default:
		return false
	}
}
