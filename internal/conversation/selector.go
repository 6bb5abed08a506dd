package conversation

import (
	"casino-webhook-backend/internal/catalog"
)

// SelectResponse picks the best candidate for the given parameters.
//
// Conditioned candidates are scored by the fraction of condition pairs
// whose expected value exactly matches the parameter value. The
// candidate with the strictly highest score wins; equal scores keep the
// earlier candidate, so ties resolve in catalog order (primary-key
// order in the database, file order in the YAML catalog). Any score
// above zero beats the default candidate; the first default encountered
// is the fallback when nothing scores.
//
// The second return value is false when no candidate could be selected
// at all: every conditioned candidate scored zero and no default exists.
func SelectResponse(candidates []catalog.CandidateResponse, parameters map[string]string) (catalog.CandidateResponse, bool) {
	var (
		best      catalog.CandidateResponse
		bestScore float64
		hasBest   bool

		fallback    catalog.CandidateResponse
		hasFallback bool
	)

	for _, candidate := range candidates {
		if !candidate.HasCondition() {
			if !hasFallback {
				fallback = candidate
				hasFallback = true
			}
			continue
		}
		if score := conditionScore(candidate.Condition, parameters); score > bestScore {
			best = candidate
			bestScore = score
			hasBest = true
		}
	}

	if hasBest && bestScore > 0 {
		return best, true
	}
	if hasFallback {
		return fallback, true
	}
	return catalog.CandidateResponse{}, false
}

// conditionScore is the fraction of condition pairs matched exactly by
// the parameters.
func conditionScore(condition, parameters map[string]string) float64 {
	if len(condition) == 0 {
		return 0
	}
	matched := 0
	for key, expected := range condition {
		if parameters[key] == expected {
			matched++
		}
	}
	return float64(matched) / float64(len(condition))
}
