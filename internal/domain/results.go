package domain

import (
	"math"
	"sort"
	"time"
)

const (
	wilsonZ95          = 1.96
	ControlVariantName = "control"
)

// VariantCounts is the raw per-variant aggregate of experiment events.
type VariantCounts struct {
	Variant            string
	Impressions        int64
	Clicks             int64
	Likes              int64
	SessionStarts      int64
	AvgSessionDuration *float64
}

type ConfidenceInterval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// VariantResult holds the derived metrics. Ratios with a zero denominator are
// nil rather than zero.
type VariantResult struct {
	Variant            string              `json:"variant"`
	Impressions        int64               `json:"impressions"`
	Clicks             int64               `json:"clicks"`
	Likes              int64               `json:"likes"`
	SessionStarts      int64               `json:"session_starts"`
	CTR                *float64            `json:"ctr"`
	CTRCI              *ConfidenceInterval `json:"ctr_ci"`
	LikesPerSession    *float64            `json:"likes_per_session"`
	AvgSessionDuration *float64            `json:"avg_session_duration_s"`
	IsControl          bool                `json:"is_control"`
	IsSignificant      bool                `json:"is_significant"`
}

type ExperimentResults struct {
	ExperimentID   string                   `json:"experiment_id"`
	ControlVariant string                   `json:"control_variant,omitempty"`
	Variants       map[string]VariantResult `json:"variants"`
	ComputedAt     time.Time                `json:"computed_at"`
}

// WilsonInterval is the 95% Wilson score interval for successes/trials.
// Returns false when there are no trials.
func WilsonInterval(successes, trials int64) (ConfidenceInterval, bool) {
	if trials <= 0 {
		return ConfidenceInterval{}, false
	}
	n := float64(trials)
	p := float64(successes) / n
	z2 := wilsonZ95 * wilsonZ95
	denom := 1 + z2/n
	centre := (p + z2/(2*n)) / denom
	margin := wilsonZ95 * math.Sqrt(p*(1-p)/n+z2/(4*n*n)) / denom
	return ConfidenceInterval{
		Lower: math.Max(0, centre-margin),
		Upper: math.Min(1, centre+margin),
	}, true
}

// ControlVariant returns "control" when present, else the first variant
// name in ascending order.
func ControlVariant(names []string) string {
	if len(names) == 0 {
		return ""
	}
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	for _, n := range sorted {
		if n == ControlVariantName {
			return n
		}
	}
	return sorted[0]
}

// ComputeResults derives per-variant metrics. A variant is significant when
// its CTR interval lies entirely above the control's: a non-overlap check,
// not a hypothesis test.
func ComputeResults(experimentID string, configured []string, counts []VariantCounts, now time.Time) ExperimentResults {
	byName := make(map[string]VariantCounts, len(counts)+len(configured))
	for _, name := range configured {
		byName[name] = VariantCounts{Variant: name}
	}
	for _, c := range counts {
		byName[c.Variant] = c
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	control := ControlVariant(names)

	out := ExperimentResults{
		ExperimentID:   experimentID,
		ControlVariant: control,
		Variants:       make(map[string]VariantResult, len(byName)),
		ComputedAt:     now.UTC(),
	}
	for name, c := range byName {
		r := VariantResult{
			Variant:            name,
			Impressions:        c.Impressions,
			Clicks:             c.Clicks,
			Likes:              c.Likes,
			SessionStarts:      c.SessionStarts,
			AvgSessionDuration: c.AvgSessionDuration,
			IsControl:          name == control,
		}
		if c.Impressions > 0 {
			ctr := float64(c.Clicks) / float64(c.Impressions)
			r.CTR = &ctr
		}
		if ci, ok := WilsonInterval(c.Clicks, c.Impressions); ok {
			r.CTRCI = &ci
		}
		if c.SessionStarts > 0 {
			lps := float64(c.Likes) / float64(c.SessionStarts)
			r.LikesPerSession = &lps
		}
		out.Variants[name] = r
	}

	ctrl, ok := out.Variants[control]
	if !ok || ctrl.CTRCI == nil {
		return out
	}
	for name, r := range out.Variants {
		if name == control || r.CTRCI == nil {
			continue
		}
		r.IsSignificant = r.CTRCI.Lower > ctrl.CTRCI.Upper
		out.Variants[name] = r
	}
	return out
}
