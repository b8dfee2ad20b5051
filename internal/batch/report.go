package batch

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"captcha-solver/internal/consensus"
)

// WriteReport renders a markdown comparison report over a finished run:
// the decision counters, per-recognizer accuracy against the captures that
// carried ground truth, and the confidence distribution of each recognizer.
func WriteReport(path string, outcomes []Outcome, stats *consensus.Stats, strategy consensus.Strategy) error {
	var sb strings.Builder

	sb.WriteString("# Captcha recognition report\n\n")
	sb.WriteString(fmt.Sprintf("Generated %s, strategy `%s`, %d captures.\n\n",
		time.Now().Format("2006-01-02 15:04"), strategy, stats.Total))

	sb.WriteString("## Decisions\n\n")
	sb.WriteString("| Counter | Value |\n|---|---|\n")
	sb.WriteString(fmt.Sprintf("| Recognizers agree | %d |\n", stats.BothAgree))
	sb.WriteString(fmt.Sprintf("| Disagreements | %d |\n", stats.BothDisagree))
	sb.WriteString(fmt.Sprintf("| Template only | %d |\n", stats.PrimaryOnly))
	sb.WriteString(fmt.Sprintf("| Verifier only | %d |\n", stats.VerifierOnly))
	sb.WriteString(fmt.Sprintf("| All failed | %d |\n", stats.BothFailed))
	sb.WriteString(fmt.Sprintf("| Auto labeled | %d |\n", stats.AutoLabeled))
	sb.WriteString(fmt.Sprintf("| Need review | %d |\n", stats.NeedReview))
	sb.WriteString(fmt.Sprintf("| Label matches | %d |\n", stats.LabelMatch))
	sb.WriteString(fmt.Sprintf("| Label conflicts | %d |\n\n", stats.LabelMismatch))

	writeRecognizerTable(&sb, outcomes)
	writeReviewList(&sb, outcomes)

	return os.WriteFile(path, []byte(sb.String()), 0o644)
}

// writeRecognizerTable compares every recognizer that appeared in the run
// against the embedded ground truth.
func writeRecognizerTable(sb *strings.Builder, outcomes []Outcome) {
	type tally struct {
		correct, labeled int
		confidences      []float64
	}
	bySource := make(map[string]*tally)
	var order []string

	for _, out := range outcomes {
		if out.Err != nil {
			continue
		}
		for _, res := range out.Results {
			t := bySource[res.Source]
			if t == nil {
				t = &tally{}
				bySource[res.Source] = t
				order = append(order, res.Source)
			}
			t.confidences = append(t.confidences, res.Confidence)
			if out.Existing != "" {
				t.labeled++
				if res.Text == out.Existing {
					t.correct++
				}
			}
		}
	}
	if len(order) == 0 {
		return
	}

	sb.WriteString("## Recognizers\n\n")
	sb.WriteString("| Recognizer | Accuracy | Labeled | Mean conf | Stddev |\n|---|---|---|---|---|\n")
	for _, src := range order {
		t := bySource[src]
		accuracy := "n/a"
		if t.labeled > 0 {
			accuracy = fmt.Sprintf("%.1f%%", 100*float64(t.correct)/float64(t.labeled))
		}
		mean, std := stat.MeanStdDev(t.confidences, nil)
		sb.WriteString(fmt.Sprintf("| %s | %s | %d | %.2f | %.2f |\n",
			src, accuracy, t.labeled, mean, std))
	}
	sb.WriteString("\n")
}

// writeReviewList names the captures a human still has to look at.
func writeReviewList(sb *strings.Builder, outcomes []Outcome) {
	var lines []string
	for _, out := range outcomes {
		if out.Err != nil {
			lines = append(lines, fmt.Sprintf("- `%s`: unreadable (%v)", out.Path, out.Err))
			continue
		}
		switch out.Decision.Status {
		case consensus.StatusReview, consensus.StatusSuspicious:
			lines = append(lines, fmt.Sprintf("- `%s`: %s, %s",
				out.Path, out.Decision.Status, out.Decision.Reason))
		}
	}
	if len(lines) == 0 {
		return
	}
	sb.WriteString("## Needs attention\n\n")
	sb.WriteString(strings.Join(lines, "\n"))
	sb.WriteString("\n")
}
