package domain

import (
	"errors"
	"testing"
)

func TestNewWeightConfigValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewWeightConfig(0.5, 0.25, 0.25, 5, 20); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
	bad := []struct {
		name             string
		r, s, a, ceiling float64
		threshold        int
	}{
		{"negative weight", -0.1, 0.6, 0.5, 50, 10},
		{"sum below one", 0.3, 0.3, 0.3, 50, 10},
		{"zero ceiling", 0.4, 0.3, 0.3, 0, 10},
		{"negative ceiling", 0.4, 0.3, 0.3, -5, 10},
		{"negative threshold", 0.4, 0.3, 0.3, 50, -1},
	}
	for _, tc := range bad {
		if _, err := NewWeightConfig(tc.r, tc.s, tc.a, tc.threshold, tc.ceiling); !errors.Is(err, ErrInvalidWeightConfig) {
			t.Fatalf("%s: expected ErrInvalidWeightConfig, got %v", tc.name, err)
		}
	}
}

func TestWeightConfigSpecRoundTripAndDefaults(t *testing.T) {
	t.Parallel()

	r, s, a := 0.6, 0.2, 0.2
	cfg, err := WeightConfigSpec{Recency: &r, Specialty: &s, Affinity: &a}.Build()
	if err != nil {
		t.Fatalf("build spec: %v", err)
	}
	if cfg.ColdStartThreshold() != DefaultColdStartThreshold || cfg.AffinityCeiling() != DefaultAffinityCeiling {
		t.Fatalf("expected defaults for omitted fields, got %d/%v", cfg.ColdStartThreshold(), cfg.AffinityCeiling())
	}
	again, err := cfg.Spec().Build()
	if err != nil || again != cfg {
		t.Fatalf("expected spec round trip to preserve config, got %+v (err=%v)", again, err)
	}
	if _, err := (WeightConfigSpec{Recency: &r, Specialty: &s}).Build(); !errors.Is(err, ErrInvalidWeightConfig) {
		t.Fatalf("expected missing weight to be rejected, got %v", err)
	}
}

func TestProvenanceSource(t *testing.T) {
	t.Parallel()
	cases := []struct{ in, want string }{
		{ProvenanceDefault, "default"},
		{CohortProvenance("c1"), "cohort"},
		{ExperimentProvenance("e1", "treat"), "experiment"},
	}
	for _, tc := range cases {
		if got := ProvenanceSource(tc.in); got != tc.want {
			t.Fatalf("provenance %q: expected %q, got %q", tc.in, tc.want, got)
		}
	}
}
