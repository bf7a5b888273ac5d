package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	recencyHalfLifeHours = 24.0

	hashtagMatchScore = 0.7

	affinityPointsLike    = 1.0
	affinityPointsComment = 3.0
	affinityPointsShare   = 5.0
)

// RecencyScore decays with a 24h half-life: 1.0 at age 0, 0.5 at 24h.
// Posts dated in the future (clock skew) score 1.0.
func RecencyScore(publishedAt, now time.Time) float64 {
	hours := now.Sub(publishedAt).Hours()
	if hours < 0 {
		hours = 0
	}
	return Clamp(0, math.Pow(2, -hours/recencyHalfLifeHours), 1)
}

// SpecialtyScore classifies topic relevance. A controlled-tag match always
// wins over a hashtag match; the two are never blended.
func SpecialtyScore(postTags, postHashtags, interests []string) float64 {
	if len(interests) == 0 {
		return 0
	}
	interestSet := normalizedSet(interests)
	if overlaps(postTags, interestSet) {
		return 1.0
	}
	if overlaps(postHashtags, interestSet) {
		return hashtagMatchScore
	}
	return 0
}

// RawAffinityPoints weighs interactions: like=1, comment=3, share=5.
func RawAffinityPoints(counts InteractionCounts) float64 {
	return float64(counts.Likes)*affinityPointsLike +
		float64(counts.Comments)*affinityPointsComment +
		float64(counts.Shares)*affinityPointsShare
}

// AffinityScore normalises raw points against the ceiling, capped at 1.0.
func AffinityScore(rawPoints, ceiling float64) (float64, error) {
	if math.IsNaN(ceiling) || ceiling <= 0 {
		return 0, fmt.Errorf("%w: affinity ceiling must be > 0, got %v", ErrInvalidWeightConfig, ceiling)
	}
	return Clamp(0, rawPoints/ceiling, 1), nil
}

// CompositeScore is the plain weighted sum. Weights are not renormalised.
func CompositeScore(recency, specialty, affinity float64, w Weights) float64 {
	return w.Recency*recency + w.Specialty*specialty + w.Affinity*affinity
}

// EngagementScore ranks trending posts: likes + 2*comments + 3*shares.
func EngagementScore(likes, comments, shares int64) int64 {
	return likes + comments*2 + shares*3
}

func Clamp(min, v, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func normalizeTag(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func normalizedSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		if n := normalizeTag(v); n != "" {
			out[n] = struct{}{}
		}
	}
	return out
}

func overlaps(values []string, set map[string]struct{}) bool {
	for _, v := range values {
		if _, ok := set[normalizeTag(v)]; ok {
			return true
		}
	}
	return false
}
