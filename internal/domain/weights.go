package domain

import (
	"fmt"
	"math"
	"strings"
)

const (
	DefaultRecencyWeight      = 0.40
	DefaultSpecialtyWeight    = 0.30
	DefaultAffinityWeight     = 0.30
	DefaultColdStartThreshold = 10
	DefaultAffinityCeiling    = 50.0

	weightSumTolerance = 1e-6
)

const (
	ProvenanceDefault = "default"

	provenanceCohortPrefix     = "cohort:"
	provenanceExperimentPrefix = "experiment:"
)

// Weights is the raw weight triple fed into CompositeScore. It carries no
// invariants of its own; WeightConfig is the validated form.
type Weights struct {
	Recency   float64 `json:"recency"`
	Specialty float64 `json:"specialty"`
	Affinity  float64 `json:"affinity"`
}

// WeightConfig is a validated scoring configuration. The zero value is not
// usable; build one with NewWeightConfig, WeightConfigSpec.Build or
// DefaultWeightConfig.
type WeightConfig struct {
	weights            Weights
	coldStartThreshold int
	affinityCeiling    float64
}

// NewWeightConfig validates the inputs: weights present, non-negative and
// summing to 1.0; threshold non-negative; ceiling strictly positive.
func NewWeightConfig(recency, specialty, affinity float64, coldStartThreshold int, affinityCeiling float64) (WeightConfig, error) {
	for name, w := range map[string]float64{"recency": recency, "specialty": specialty, "affinity": affinity} {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return WeightConfig{}, fmt.Errorf("%w: %s weight must be a non-negative number", ErrInvalidWeightConfig, name)
		}
	}
	if sum := recency + specialty + affinity; math.Abs(sum-1.0) > weightSumTolerance {
		return WeightConfig{}, fmt.Errorf("%w: weights must sum to 1.0, got %.6f", ErrInvalidWeightConfig, sum)
	}
	if coldStartThreshold < 0 {
		return WeightConfig{}, fmt.Errorf("%w: cold_start_threshold must be >= 0", ErrInvalidWeightConfig)
	}
	if math.IsNaN(affinityCeiling) || math.IsInf(affinityCeiling, 0) || affinityCeiling <= 0 {
		return WeightConfig{}, fmt.Errorf("%w: affinity_ceiling must be > 0", ErrInvalidWeightConfig)
	}
	return WeightConfig{
		weights:            Weights{Recency: recency, Specialty: specialty, Affinity: affinity},
		coldStartThreshold: coldStartThreshold,
		affinityCeiling:    affinityCeiling,
	}, nil
}

func DefaultWeightConfig() WeightConfig {
	return WeightConfig{
		weights:            Weights{Recency: DefaultRecencyWeight, Specialty: DefaultSpecialtyWeight, Affinity: DefaultAffinityWeight},
		coldStartThreshold: DefaultColdStartThreshold,
		affinityCeiling:    DefaultAffinityCeiling,
	}
}

func (c WeightConfig) Weights() Weights         { return c.weights }
func (c WeightConfig) ColdStartThreshold() int  { return c.coldStartThreshold }
func (c WeightConfig) AffinityCeiling() float64 { return c.affinityCeiling }

// Spec returns the serialisable form of the config.
func (c WeightConfig) Spec() WeightConfigSpec {
	recency, specialty, affinity := c.weights.Recency, c.weights.Specialty, c.weights.Affinity
	threshold, ceiling := c.coldStartThreshold, c.affinityCeiling
	return WeightConfigSpec{
		Recency:            &recency,
		Specialty:          &specialty,
		Affinity:           &affinity,
		ColdStartThreshold: &threshold,
		AffinityCeiling:    &ceiling,
	}
}

// WeightConfigSpec is the wire/storage shape of a weight config. It is never
// trusted directly: Build runs it through NewWeightConfig.
type WeightConfigSpec struct {
	Recency            *float64 `json:"recency"`
	Specialty          *float64 `json:"specialty"`
	Affinity           *float64 `json:"affinity"`
	ColdStartThreshold *int     `json:"cold_start_threshold,omitempty"`
	AffinityCeiling    *float64 `json:"affinity_ceiling,omitempty"`
}

// Build requires all three weights; threshold and ceiling fall back to the
// global defaults when omitted.
func (s WeightConfigSpec) Build() (WeightConfig, error) {
	if s.Recency == nil || s.Specialty == nil || s.Affinity == nil {
		return WeightConfig{}, fmt.Errorf("%w: recency, specialty and affinity weights are required", ErrInvalidWeightConfig)
	}
	threshold := DefaultColdStartThreshold
	if s.ColdStartThreshold != nil {
		threshold = *s.ColdStartThreshold
	}
	ceiling := DefaultAffinityCeiling
	if s.AffinityCeiling != nil {
		ceiling = *s.AffinityCeiling
	}
	return NewWeightConfig(*s.Recency, *s.Specialty, *s.Affinity, threshold, ceiling)
}

// ResolvedWeights is the output of weight resolution for one user.
type ResolvedWeights struct {
	Config     WeightConfig
	Provenance string
}

func CohortProvenance(cohortID string) string {
	return provenanceCohortPrefix + cohortID
}

func ExperimentProvenance(experimentID, variant string) string {
	return provenanceExperimentPrefix + experimentID + ":" + variant
}

// ProvenanceSource reduces a provenance tag to its layer name, for metrics.
func ProvenanceSource(provenance string) string {
	switch {
	case strings.HasPrefix(provenance, provenanceExperimentPrefix):
		return "experiment"
	case strings.HasPrefix(provenance, provenanceCohortPrefix):
		return "cohort"
	default:
		return ProvenanceDefault
	}
}
