package consensus

import (
	"fmt"
	"sort"
	"strings"

	"captcha-solver/internal/recognize"
)

// Stats are purely observational batch counters. They never feed back into
// decisions, and every field is an order-independent sum so parallel
// workers can fold into one accumulator behind a lock.
type Stats struct {
	Total         int
	BothAgree     int // primary and verifier valid and equal
	BothDisagree  int
	PrimaryOnly   int
	VerifierOnly  int
	BothFailed    int
	AutoLabeled   int
	NeedReview    int
	LabelMatch    int
	LabelMismatch int

	// AgreeBySource counts, per recognizer, how often its output matched
	// the final decision.
	AgreeBySource map[string]int
}

// NewStats creates a zeroed accumulator.
func NewStats() *Stats {
	return &Stats{AgreeBySource: make(map[string]int)}
}

// Add folds one capture's decision into the counters.
func (st *Stats) Add(d Decision, primary recognize.Result, aux []recognize.Result) {
	st.Total++

	var verifier recognize.Result
	if len(aux) > 0 {
		verifier = aux[0]
	}
	switch {
	case primary.Valid() && verifier.Valid():
		if primary.Text == verifier.Text {
			st.BothAgree++
		} else {
			st.BothDisagree++
		}
	case primary.Valid():
		st.PrimaryOnly++
	case verifier.Valid():
		st.VerifierOnly++
	default:
		st.BothFailed++
	}

	switch d.Status {
	case StatusMatch:
		st.AutoLabeled++
		st.LabelMatch++
	case StatusAuto:
		st.AutoLabeled++
	case StatusSuspicious:
		st.LabelMismatch++
	case StatusReview:
		st.NeedReview++
	}

	if d.Label != "" {
		if primary.Text == d.Label {
			st.AgreeBySource[primary.Source]++
		}
		for _, r := range aux {
			if r.Text == d.Label {
				st.AgreeBySource[r.Source]++
			}
		}
	}
}

// Merge folds another accumulator into this one.
func (st *Stats) Merge(other *Stats) {
	st.Total += other.Total
	st.BothAgree += other.BothAgree
	st.BothDisagree += other.BothDisagree
	st.PrimaryOnly += other.PrimaryOnly
	st.VerifierOnly += other.VerifierOnly
	st.BothFailed += other.BothFailed
	st.AutoLabeled += other.AutoLabeled
	st.NeedReview += other.NeedReview
	st.LabelMatch += other.LabelMatch
	st.LabelMismatch += other.LabelMismatch
	for src, n := range other.AgreeBySource {
		st.AgreeBySource[src] += n
	}
}

// Summary renders the counters for terminal output.
func (st *Stats) Summary() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total:            %d\n", st.Total))
	sb.WriteString(fmt.Sprintf("Recognizers agree: %d\n", st.BothAgree))
	sb.WriteString(fmt.Sprintf("Disagreements:    %d\n", st.BothDisagree))
	sb.WriteString(fmt.Sprintf("Template only:    %d\n", st.PrimaryOnly))
	sb.WriteString(fmt.Sprintf("Verifier only:    %d\n", st.VerifierOnly))
	sb.WriteString(fmt.Sprintf("All failed:       %d\n", st.BothFailed))
	sb.WriteString(fmt.Sprintf("Auto labeled:     %d\n", st.AutoLabeled))
	sb.WriteString(fmt.Sprintf("Need review:      %d\n", st.NeedReview))
	sb.WriteString(fmt.Sprintf("Label matches:    %d\n", st.LabelMatch))
	sb.WriteString(fmt.Sprintf("Label conflicts:  %d\n", st.LabelMismatch))

	if len(st.AgreeBySource) > 0 {
		sources := make([]string, 0, len(st.AgreeBySource))
		for src := range st.AgreeBySource {
			sources = append(sources, src)
		}
		sort.Strings(sources)
		sb.WriteString("Agreement with final decision:\n")
		for _, src := range sources {
			sb.WriteString(fmt.Sprintf("  %-10s %d\n", src, st.AgreeBySource[src]))
		}
	}
	return sb.String()
}
