package ledger

import (
	"path/filepath"
	"testing"

	"captcha-solver/internal/consensus"
	"captcha-solver/internal/recognize"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "decisions.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func testResults() []recognize.Result {
	return []recognize.Result{
		{Source: "template", Text: "4607", Confidence: 0.8},
		{Source: "tesseract", Text: "4607", Confidence: 0.61},
	}
}

func TestRecordAndCount(t *testing.T) {
	l := newTestLedger(t)

	auto := consensus.Decision{Status: consensus.StatusAuto, Label: "4607", Apply: true}
	review := consensus.Decision{Status: consensus.StatusReview, Reason: "recognizers disagree"}

	if err := l.Record("vc0001.bmp", "", auto, consensus.Balanced, testResults()); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := l.Record("vc0002.bmp", "", review, consensus.Balanced, testResults()); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := l.Record("vc0003.bmp", "", review, consensus.Balanced, testResults()); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	counts, err := l.CountByStatus()
	if err != nil {
		t.Fatalf("CountByStatus failed: %v", err)
	}
	if counts[consensus.StatusAuto] != 1 || counts[consensus.StatusReview] != 2 {
		t.Fatalf("counts = %v", counts)
	}
}

func TestReviewQueue(t *testing.T) {
	l := newTestLedger(t)

	auto := consensus.Decision{Status: consensus.StatusAuto, Label: "4607", Apply: true}
	review := consensus.Decision{Status: consensus.StatusReview, Reason: "template matching failed"}

	if err := l.Record("good.bmp", "", auto, consensus.Strict, testResults()); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"r1.bmp", "r2.bmp"} {
		if err := l.Record(name, "", review, consensus.Strict, testResults()); err != nil {
			t.Fatal(err)
		}
	}

	queue, err := l.ReviewQueue(0)
	if err != nil {
		t.Fatalf("ReviewQueue failed: %v", err)
	}
	if len(queue) != 2 {
		t.Fatalf("queue = %v, want 2 entries", queue)
	}

	limited, err := l.ReviewQueue(1)
	if err != nil {
		t.Fatalf("ReviewQueue(1) failed: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("limited queue = %v, want 1 entry", limited)
	}
}
