package consensus

import (
	"strings"
	"testing"

	"captcha-solver/internal/recognize"
)

func TestStatsAdd(t *testing.T) {
	st := NewStats()
	e := NewEngine(Balanced)

	add := func(p recognize.Result, aux []recognize.Result, existing string) {
		st.Add(e.Decide(p, aux, existing), p, aux)
	}

	add(primary("4607", 0.8), []recognize.Result{res("4607", 0.5)}, "")     // agree, Auto
	add(primary("4607", 0.8), []recognize.Result{res("4601", 0.6)}, "")     // disagree, Review
	add(primary("4607", 0.8), []recognize.Result{res("", 0)}, "")           // primary only, Auto
	add(primary("", 0), []recognize.Result{res("4607", 0.9)}, "")           // verifier only, Review
	add(primary("", 0), []recognize.Result{res("", 0)}, "")                 // both failed
	add(primary("4607", 0.8), []recognize.Result{res("4607", 0.5)}, "4607") // Match
	add(primary("4607", 0.8), []recognize.Result{res("4607", 0.5)}, "1111") // Suspicious

	if st.Total != 7 {
		t.Fatalf("Total = %d, want 7", st.Total)
	}
	if st.BothAgree != 3 || st.BothDisagree != 1 || st.PrimaryOnly != 1 ||
		st.VerifierOnly != 1 || st.BothFailed != 1 {
		t.Fatalf("branch counters: %+v", st)
	}
	if st.AutoLabeled != 3 || st.NeedReview != 2 {
		t.Fatalf("decision counters: %+v", st)
	}
	if st.LabelMatch != 1 || st.LabelMismatch != 1 {
		t.Fatalf("label counters: %+v", st)
	}
	// Four decisions carried a label; the template recognizer matched all
	// four, the verifier three.
	if st.AgreeBySource["template"] != 4 || st.AgreeBySource["test"] != 3 {
		t.Fatalf("AgreeBySource = %v", st.AgreeBySource)
	}
}

func TestStatsMerge(t *testing.T) {
	a, b := NewStats(), NewStats()
	e := NewEngine(Lenient)

	p := primary("4607", 0.8)
	aux := []recognize.Result{res("4607", 0.5)}
	a.Add(e.Decide(p, aux, ""), p, aux)
	b.Add(e.Decide(p, aux, ""), p, aux)
	b.Add(e.Decide(primary("", 0), nil, ""), primary("", 0), nil)

	a.Merge(b)
	if a.Total != 3 || a.BothAgree != 2 || a.BothFailed != 1 {
		t.Fatalf("merged: %+v", a)
	}
	if a.AgreeBySource["template"] != 2 {
		t.Fatalf("merged AgreeBySource = %v", a.AgreeBySource)
	}
}

func TestStatsSummary(t *testing.T) {
	st := NewStats()
	e := NewEngine(Balanced)
	p := primary("4607", 0.8)
	aux := []recognize.Result{res("4607", 0.5)}
	st.Add(e.Decide(p, aux, ""), p, aux)

	out := st.Summary()
	for _, want := range []string{"Total:", "Auto labeled:", "template"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
