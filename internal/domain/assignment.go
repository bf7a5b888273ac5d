package domain

import (
	"crypto/sha256"
	"math/big"
)

const assignmentBuckets = 100

var bucketModulus = big.NewInt(assignmentBuckets)

// AssignmentBucket maps (user, experiment) to [0,100) by reading the SHA-256
// digest of "user:experiment" as a big-endian integer.
func AssignmentBucket(userID, experimentID string) int {
	sum := sha256.Sum256([]byte(userID + ":" + experimentID))
	n := new(big.Int).SetBytes(sum[:])
	return int(n.Mod(n, bucketModulus).Int64())
}

// VariantForBucket walks the variants in name order and returns the first
// whose cumulative traffic exceeds bucket. Variants must already be validated.
func VariantForBucket(variants []Variant, bucket int) (Variant, bool) {
	if len(variants) == 0 {
		return Variant{}, false
	}
	ordered := make([]Variant, len(variants))
	copy(ordered, variants)
	SortVariants(ordered)

	cumulative := 0
	for _, v := range ordered {
		cumulative += v.TrafficPct
		if bucket < cumulative {
			return v, true
		}
	}
	return ordered[len(ordered)-1], true
}

// AssignVariant is the single assignment function shared by weight resolution
// and experiment telemetry.
func AssignVariant(userID string, experiment Experiment) (Variant, bool) {
	return VariantForBucket(experiment.Variants, AssignmentBucket(userID, experiment.ExperimentID))
}
