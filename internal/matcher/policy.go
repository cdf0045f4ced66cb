// file: internal/matcher/policy.go
// version: 1.0.0
// guid: 3f95c74f-be34-4ea5-b68a-8ca5b81a482d

package matcher

import (
	"fmt"
	"math"
	"time"
)

// Decision is the outcome of matching a title against the catalog.
type Decision string

const (
	DecisionAutoMatch   Decision = "AUTO_MATCH"
	DecisionEscalate    Decision = "ESCALATE"
	DecisionNeedsReview Decision = "NEEDS_REVIEW"
	DecisionNewSeries   Decision = "NEW_SERIES"
)

// Method names recorded in matching logs.
const (
	MethodLocalHighConfidence = "local_high_confidence"
	MethodLocalLowConfidence  = "local_low_confidence"
	MethodLLMVerification     = "llm_verification"
	MethodManualReview        = "manual_review_required"
	MethodNewSeries           = "new_series"
)

// Policy holds the tunable constants of the matcher. The reference values
// come from DefaultPolicy and were chosen empirically.
type Policy struct {
	AutoMatchThreshold float64       `json:"auto_match_threshold" yaml:"auto_match_threshold"`
	EscalateThreshold  float64       `json:"escalate_threshold" yaml:"escalate_threshold"`
	ReviewThreshold    float64       `json:"review_threshold" yaml:"review_threshold"`
	EditWeight         float64       `json:"edit_weight" yaml:"edit_weight"`
	TokenWeight        float64       `json:"token_weight" yaml:"token_weight"`
	ShortlistFloor     float64       `json:"shortlist_floor" yaml:"shortlist_floor"`
	ShortlistSize      int           `json:"shortlist_size" yaml:"shortlist_size"`
	OracleTimeout      time.Duration `json:"oracle_timeout" yaml:"oracle_timeout"`
	// ArcVocabulary and SpinoffVocabulary apply when the matched series has
	// no policy entry for a subtitle.
	ArcVocabulary     []string `json:"arc_vocabulary" yaml:"arc_vocabulary"`
	SpinoffVocabulary []string `json:"spinoff_vocabulary" yaml:"spinoff_vocabulary"`
}

// DefaultArcVocabulary lists subtitles that normally mark an arc of the same
// series.
var DefaultArcVocabulary = []string{"superstar", "extra", "special", "omake", "side story", "gaiden", "back stage"}

// DefaultSpinoffVocabulary lists subtitles that normally mark a distinct
// series.
var DefaultSpinoffVocabulary = []string{"another story", "side-b", "alternative", "remake", "parallel"}

// DefaultPolicy returns the reference thresholds and weights.
func DefaultPolicy() Policy {
	return Policy{
		AutoMatchThreshold: 0.90,
		EscalateThreshold:  0.85,
		ReviewThreshold:    0.80,
		EditWeight:         0.6,
		TokenWeight:        0.4,
		ShortlistFloor:     0.75,
		ShortlistSize:      5,
		OracleTimeout:      30 * time.Second,
		ArcVocabulary:      append([]string(nil), DefaultArcVocabulary...),
		SpinoffVocabulary:  append([]string(nil), DefaultSpinoffVocabulary...),
	}
}

// Validate checks that thresholds are ordered within [0,1] and that the
// score weights sum to one.
func (p Policy) Validate() error {
	for name, v := range map[string]float64{
		"auto_match_threshold": p.AutoMatchThreshold,
		"escalate_threshold":   p.EscalateThreshold,
		"review_threshold":     p.ReviewThreshold,
		"shortlist_floor":      p.ShortlistFloor,
		"edit_weight":          p.EditWeight,
		"token_weight":         p.TokenWeight,
	} {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return fmt.Errorf("%s must be within [0,1], got %v", name, v)
		}
	}
	if !(p.ReviewThreshold <= p.EscalateThreshold && p.EscalateThreshold <= p.AutoMatchThreshold) {
		return fmt.Errorf("thresholds must satisfy review <= escalate <= auto, got %.2f/%.2f/%.2f",
			p.ReviewThreshold, p.EscalateThreshold, p.AutoMatchThreshold)
	}
	if math.Abs(p.EditWeight+p.TokenWeight-1) > 1e-9 {
		return fmt.Errorf("edit_weight + token_weight must equal 1, got %.3f", p.EditWeight+p.TokenWeight)
	}
	if p.ShortlistSize < 1 {
		return fmt.Errorf("shortlist_size must be positive, got %d", p.ShortlistSize)
	}
	if p.OracleTimeout <= 0 {
		return fmt.Errorf("oracle_timeout must be positive, got %s", p.OracleTimeout)
	}
	return nil
}

// Band maps a score to its decision band. ESCALATE is returned as-is; the
// matcher resolves it through the oracle.
func (p Policy) Band(score float64) Decision {
	switch {
	case score >= p.AutoMatchThreshold:
		return DecisionAutoMatch
	case score >= p.EscalateThreshold:
		return DecisionEscalate
	case score >= p.ReviewThreshold:
		return DecisionNeedsReview
	default:
		return DecisionNewSeries
	}
}
