package retrieval

import "github.com/calmbox/calmbox/internal/domain"

// Policy holds the quality-aware rerank weights. Both weights are
// non-negative, so the adjusted distance never exceeds the raw distance.
type Policy struct {
	WQuality float64
	WEnabled float64
}

// DefaultPolicy is the medium-strength rerank used when the policy document
// does not override the weights.
func DefaultPolicy() Policy {
	return Policy{WQuality: 0.015, WEnabled: 0.005}
}

// finalDistance shrinks the raw vector distance for high-quality and
// explicitly enabled chunks. Lower is better.
func finalDistance(distance, qualityScore float64, status string, p Policy) float64 {
	q := qualityScore
	if q < 0 {
		q = 0
	}
	if q > 5 {
		q = 5
	}

	enabled := 0.0
	if status == domain.StatusEnabled {
		enabled = 1.0
	}

	return distance - p.WQuality*(q/5.0) - p.WEnabled*enabled
}
