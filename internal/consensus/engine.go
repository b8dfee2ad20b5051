// Package consensus reconciles several independent, unreliable recognizer
// results into a single trustworthy decision per capture.
package consensus

import (
	"fmt"
	"strings"

	"captcha-solver/internal/recognize"
)

// Strategy names a disagreement-resolution policy.
type Strategy string

const (
	// Strict only accepts when the primary and verifying recognizer agree;
	// everything else goes to human review.
	Strict Strategy = "strict"
	// Balanced accepts disagreements when either side is highly confident,
	// taking the more confident candidate.
	Balanced Strategy = "balanced"
	// Lenient trusts the primary whenever it produces a complete code, and
	// falls back to the verifier when it doesn't.
	Lenient Strategy = "lenient"
)

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(s)) {
	case Strict:
		return Strict, nil
	case Balanced:
		return Balanced, nil
	case Lenient:
		return Lenient, nil
	}
	return "", fmt.Errorf("unknown strategy %q (want strict, balanced or lenient)", s)
}

// Status is the terminal state of one capture's decision.
type Status string

const (
	// StatusMatch means the decision agrees with a previously known label.
	StatusMatch Status = "Match"
	// StatusAuto means the decision was accepted without a prior label to
	// confirm it.
	StatusAuto Status = "Auto"
	// StatusSuspicious means the decision conflicts with an existing
	// label; the existing label is protected unless overridden.
	StatusSuspicious Status = "Suspicious"
	// StatusReview means the recognizers disagree in a way the strategy
	// won't resolve; a human adjudicates. This is an expected terminal
	// state, not an error.
	StatusReview Status = "Review"
	// StatusFail means no recognizer produced a complete code.
	StatusFail Status = "Fail"
)

// Decision is the consensus outcome for one capture.
type Decision struct {
	Status Status
	Label  string // decided code; empty for Review/Fail
	Reason string
	// Apply reports whether downstream side effects (renames, writes) may
	// proceed. It is false for Review/Fail and for Suspicious without an
	// explicit override, which keeps a possibly-wrong consensus from
	// destroying existing ground truth.
	Apply bool
}

// Engine applies a strategy to a fixed set of recognizer outputs.
// The first auxiliary result is the verifying recognizer and drives the
// decision table together with the primary; any further auxiliaries are
// observational only.
type Engine struct {
	Strategy Strategy
	// HighConfidence is the balanced-strategy acceptance bar. A
	// disagreement is auto-resolved only when one side exceeds it.
	HighConfidence float64
	// Override permits side effects even when the decision contradicts an
	// existing label.
	Override bool
}

// NewEngine creates an engine with the default 0.9 confidence bar.
func NewEngine(strategy Strategy) *Engine {
	return &Engine{Strategy: strategy, HighConfidence: 0.9}
}

// Decide runs the decision table over the primary result, the auxiliary
// results and an optional previously known label ("" when unknown).
func (e *Engine) Decide(primary recognize.Result, aux []recognize.Result, existing string) Decision {
	var verifier recognize.Result
	if len(aux) > 0 {
		verifier = aux[0]
	}

	d := e.tentative(primary, verifier)

	// A prior label never changes the computed code, only the status and
	// whether acting on it is allowed.
	if d.Label != "" && existing != "" {
		if d.Label == existing {
			d.Status = StatusMatch
			d.Reason = "decision confirms existing label"
		} else {
			d.Status = StatusSuspicious
			d.Reason = fmt.Sprintf("existing label %s conflicts with decision %s", existing, d.Label)
			if !e.Override {
				d.Apply = false
			}
		}
	}
	return d
}

func (e *Engine) tentative(primary, verifier recognize.Result) Decision {
	pv, vv := primary.Valid(), verifier.Valid()

	switch {
	case pv && vv:
		if primary.Text == verifier.Text {
			return Decision{Status: StatusAuto, Label: primary.Text, Apply: true,
				Reason: "recognizers agree"}
		}
		switch e.Strategy {
		case Strict:
			return Decision{Status: StatusReview,
				Reason: fmt.Sprintf("recognizers disagree (%s vs %s)", primary.Text, verifier.Text)}
		case Balanced:
			if primary.Confidence > e.HighConfidence || verifier.Confidence > e.HighConfidence {
				winner := primary
				if verifier.Confidence > primary.Confidence {
					winner = verifier
				}
				return Decision{Status: StatusAuto, Label: winner.Text, Apply: true,
					Reason: fmt.Sprintf("took higher-confidence result from %s (%.0f%% vs %.0f%%)",
						winner.Source, primary.Confidence*100, verifier.Confidence*100)}
			}
			return Decision{Status: StatusReview,
				Reason: "recognizers disagree and neither is confident"}
		default: // Lenient
			return Decision{Status: StatusAuto, Label: primary.Text, Apply: true,
				Reason: "template result preferred over disagreeing auxiliary"}
		}

	case pv:
		if e.Strategy == Strict {
			return Decision{Status: StatusReview,
				Reason: "auxiliary recognizer failed, strict mode requires agreement"}
		}
		return Decision{Status: StatusAuto, Label: primary.Text, Apply: true,
			Reason: "only the template recognizer succeeded"}

	case vv:
		if e.Strategy == Lenient {
			return Decision{Status: StatusAuto, Label: verifier.Text, Apply: true,
				Reason: fmt.Sprintf("only %s succeeded", verifier.Source)}
		}
		return Decision{Status: StatusReview,
			Reason: "template matching failed"}

	default:
		return Decision{Status: StatusFail, Reason: "no recognizer produced a complete code"}
	}
}
