// file: internal/matcher/matcher.go
// version: 2.0.0
// guid: ee700492-0791-4f8d-9d39-26fc2a29a45e

// Package matcher decides which catalog series a normalized title belongs
// to. Scoring is pure; the only suspension point is the optional oracle
// consulted for ambiguous scores.
package matcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jdfalk/manga-organizer/internal/normalize"
)

// Candidate is a catalog series as seen by the matcher. Matching never
// modifies candidates.
type Candidate struct {
	ID             string   `json:"id"`
	Code           string   `json:"code,omitempty"`
	TitleCanonical string   `json:"title_canonical"`
	Aliases        []string `json:"aliases,omitempty"`
	TreatAsArc     []string `json:"treat_as_arc,omitempty"`
	TreatAsSpinoff []string `json:"treat_as_spinoff,omitempty"`
	TitleLocked    bool     `json:"title_locked"`
	DoNotTranslate bool     `json:"do_not_translate,omitempty"`
}

// OracleVerdict is an external classifier's answer for an ambiguous title.
type OracleVerdict struct {
	Matched    bool   `json:"matched"`
	SeriesID   string `json:"series_id,omitempty"`
	Confidence string `json:"confidence,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Raw        string `json:"raw,omitempty"`
}

// Oracle verifies ambiguous matches. Implementations must honour ctx
// cancellation.
type Oracle interface {
	Verify(ctx context.Context, filename string, shortlist []Candidate) (OracleVerdict, error)
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(ctx context.Context, filename string, shortlist []Candidate) (OracleVerdict, error)

// Verify calls f.
func (f OracleFunc) Verify(ctx context.Context, filename string, shortlist []Candidate) (OracleVerdict, error) {
	return f(ctx, filename, shortlist)
}

// Result is the matcher's decision for one title. Via and Candidate are nil
// exactly when Decision is NEW_SERIES.
type Result struct {
	Score         float64        `json:"score"`
	Via           *string        `json:"via"`
	Decision      Decision       `json:"decision"`
	Candidate     *Candidate     `json:"candidate,omitempty"`
	LowConfidence bool           `json:"low_confidence,omitempty"`
	Method        string         `json:"method"`
	Reason        string         `json:"reason,omitempty"`
	Oracle        *OracleVerdict `json:"oracle,omitempty"`
	OracleError   string         `json:"oracle_error,omitempty"`

	// Set by ApplySubtitlePolicy.
	Classification Classification `json:"classification,omitempty"`
	Marker         string         `json:"marker,omitempty"`
	// Related is the series a spin-off or sequel was split away from.
	Related *Candidate `json:"related,omitempty"`
}

// Matched reports whether the result points at an existing series.
func (r Result) Matched() bool {
	return r.Decision == DecisionAutoMatch && r.Candidate != nil
}

// Matcher applies a Policy to catalog lookups.
type Matcher struct {
	policy Policy
}

// New creates a Matcher. An invalid policy falls back to DefaultPolicy.
func New(policy Policy) *Matcher {
	if err := policy.Validate(); err != nil {
		log.Warn().Err(err).Msg("invalid matcher policy, using defaults")
		policy = DefaultPolicy()
	}
	return &Matcher{policy: policy}
}

// Policy returns the policy in use.
func (m *Matcher) Policy() Policy {
	return m.policy
}

var defaultMatcher = New(DefaultPolicy())

// MatchAgainstCatalog matches title with the reference policy.
func MatchAgainstCatalog(ctx context.Context, title normalize.Title, filename string, catalog []Candidate, oracle Oracle) Result {
	return defaultMatcher.MatchAgainstCatalog(ctx, title, filename, catalog, oracle)
}

// MatchAgainstCatalog finds the best-scoring candidate for title and turns
// its score into a decision. Scores in the escalation band are sent to
// oracle together with a shortlist; a missing, failing or slow oracle
// degrades to a low-confidence AUTO_MATCH.
func (m *Matcher) MatchAgainstCatalog(ctx context.Context, title normalize.Title, filename string, catalog []Candidate, oracle Oracle) Result {
	if len(catalog) == 0 {
		return newSeries(0, "empty catalog")
	}
	if title.IsEmpty() {
		return newSeries(0, "nothing comparable in title")
	}

	ranked := m.policy.Rank(title.Comparable, catalog, 0)
	if len(ranked) == 0 {
		return newSeries(0, "no candidate scored")
	}
	best := ranked[0]

	switch m.policy.Band(best.Score) {
	case DecisionAutoMatch:
		r := matched(best, DecisionAutoMatch, MethodLocalHighConfidence)
		r.Reason = fmt.Sprintf("score %.3f via %q", best.Score, best.Via)
		return r
	case DecisionEscalate:
		return m.escalate(ctx, filename, best, m.shortlist(ranked), oracle)
	case DecisionNeedsReview:
		r := matched(best, DecisionNeedsReview, MethodManualReview)
		r.Reason = fmt.Sprintf("score %.3f against %q needs manual review", best.Score, best.Candidate.TitleCanonical)
		return r
	default:
		return newSeries(best.Score, fmt.Sprintf("best score %.3f below review threshold", best.Score))
	}
}

// shortlist returns the ranked candidates at or above the shortlist floor,
// capped at the policy size. The best candidate is always included.
func (m *Matcher) shortlist(ranked []Scored) []Scored {
	out := make([]Scored, 0, m.policy.ShortlistSize)
	for i, s := range ranked {
		if i > 0 && s.Score < m.policy.ShortlistFloor {
			break
		}
		if len(out) == m.policy.ShortlistSize {
			break
		}
		out = append(out, s)
	}
	return out
}

func (m *Matcher) escalate(ctx context.Context, filename string, best Scored, shortlist []Scored, oracle Oracle) Result {
	fallback := func(reason string, err error) Result {
		r := matched(best, DecisionAutoMatch, MethodLocalLowConfidence)
		r.LowConfidence = true
		r.Reason = reason
		if err != nil {
			r.OracleError = err.Error()
		}
		log.Warn().
			Str("filename", filename).
			Str("series", best.Candidate.TitleCanonical).
			Float64("score", best.Score).
			Err(err).
			Msg("low-confidence auto match: " + reason)
		return r
	}

	if oracle == nil {
		return fallback("oracle unavailable", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, m.policy.OracleTimeout)
	defer cancel()

	candidates := make([]Candidate, len(shortlist))
	for i, s := range shortlist {
		candidates[i] = s.Candidate
	}

	verdict, err := verifyWithin(ctx, oracle, filename, candidates)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fallback("oracle timed out", err)
		}
		return fallback("oracle failed", err)
	}

	if !verdict.Matched {
		r := newSeries(best.Score, "oracle classified as new series")
		r.Method = MethodLLMVerification
		r.Oracle = &verdict
		if verdict.Reason != "" {
			r.Reason += ": " + verdict.Reason
		}
		return r
	}

	for _, s := range shortlist {
		if s.Candidate.ID == verdict.SeriesID {
			r := matched(s, DecisionAutoMatch, MethodLLMVerification)
			r.Oracle = &verdict
			r.Reason = fmt.Sprintf("oracle confirmed %q (%s)", s.Candidate.TitleCanonical, verdict.Confidence)
			return r
		}
	}
	return fallback(fmt.Sprintf("oracle picked %q outside the shortlist", verdict.SeriesID), nil)
}

type oracleReply struct {
	verdict OracleVerdict
	err     error
}

// verifyWithin calls oracle.Verify and gives up when ctx is done, even if
// the oracle ignores ctx. A verdict that arrives after the deadline is
// discarded.
func verifyWithin(ctx context.Context, oracle Oracle, filename string, shortlist []Candidate) (OracleVerdict, error) {
	done := make(chan oracleReply, 1)
	go func() {
		v, err := oracle.Verify(ctx, filename, shortlist)
		done <- oracleReply{verdict: v, err: err}
	}()

	select {
	case <-ctx.Done():
		return OracleVerdict{}, ctx.Err()
	case reply := <-done:
		if reply.err == nil && ctx.Err() != nil {
			return OracleVerdict{}, ctx.Err()
		}
		return reply.verdict, reply.err
	}
}

func matched(s Scored, decision Decision, method string) Result {
	c := s.Candidate
	via := s.Via
	return Result{
		Score:     s.Score,
		Via:       &via,
		Decision:  decision,
		Candidate: &c,
		Method:    method,
	}
}

func newSeries(score float64, reason string) Result {
	return Result{
		Score:    score,
		Decision: DecisionNewSeries,
		Method:   MethodNewSeries,
		Reason:   reason,
	}
}
