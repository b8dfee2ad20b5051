// Package batch runs the recognition pipeline over directories of captures:
// parallel consensus labeling, accuracy evaluation against embedded ground
// truth, and a comparison report over the recognizers.
package batch

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"captcha-solver/internal/consensus"
	"captcha-solver/internal/imageio"
	"captcha-solver/internal/recognize"
)

// Recorder persists decisions as they are made. The SQLite ledger satisfies
// it; a nil Recorder disables persistence.
type Recorder interface {
	Record(capture, existing string, d consensus.Decision,
		strategy consensus.Strategy, results []recognize.Result) error
}

// Outcome is everything the run learned about one capture.
type Outcome struct {
	Path     string
	Existing string
	Results  []recognize.Result // primary first, then auxiliaries
	Decision consensus.Decision
	Err      error // load failure; Decision is zero when set
}

// Runner executes consensus labeling over a capture directory. The
// recognizers and engine are shared across workers; the template store is
// read-only during a run and the Tesseract engine serializes itself, so the
// only coordination the runner adds is around stats and renames.
type Runner struct {
	Primary   recognize.Recognizer
	Auxiliary []recognize.Recognizer
	Engine    *consensus.Engine
	Workers   int
	DryRun    bool     // decide and count, but touch nothing on disk
	Rename    bool     // rename captures to carry the decided label
	FailedDir string   // when set, captures nobody could read are copied here
	Ledger    Recorder // optional decision log
	Verbose   bool

	renameMu sync.Mutex
}

// Run processes every capture in dir and returns the per-capture outcomes
// in path order together with the aggregate counters.
func (r *Runner) Run(dir string) ([]Outcome, *consensus.Stats, error) {
	paths, err := imageio.ListCaptures(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list captures in %s: %w", dir, err)
	}
	fmt.Printf("Processing %d captures in %s\n", len(paths), dir)

	workers := r.Workers
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan string)
	results := make(chan Outcome)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				results <- r.process(path)
			}
		}()
	}
	go func() {
		for _, p := range paths {
			jobs <- p
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	// Stats and the ledger have a single writer: this collection loop.
	stats := consensus.NewStats()
	outcomes := make([]Outcome, 0, len(paths))
	for out := range results {
		outcomes = append(outcomes, out)
		if out.Err != nil {
			fmt.Printf("  %s: %v\n", filepath.Base(out.Path), out.Err)
			continue
		}
		stats.Add(out.Decision, out.Results[0], out.Results[1:])
		if r.Verbose {
			fmt.Printf("  %s: %s %s (%s)\n", filepath.Base(out.Path),
				out.Decision.Status, out.Decision.Label, out.Decision.Reason)
		}
		if r.Ledger != nil && !r.DryRun {
			if err := r.Ledger.Record(out.Path, out.Existing, out.Decision,
				r.Engine.Strategy, out.Results); err != nil {
				fmt.Printf("  warning: ledger write failed for %s: %v\n",
					filepath.Base(out.Path), err)
			}
		}
	}

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Path < outcomes[j].Path })
	return outcomes, stats, nil
}

// process recognizes one capture and applies any decided side effects.
func (r *Runner) process(path string) Outcome {
	out := Outcome{Path: path, Existing: imageio.LabelFromName(path)}

	img, err := imageio.Load(path)
	if err != nil {
		out.Err = err
		if r.FailedDir != "" && !r.DryRun {
			r.copyFailed(path)
		}
		return out
	}

	out.Results = make([]recognize.Result, 0, 1+len(r.Auxiliary))
	out.Results = append(out.Results, recognize.Observe(r.Primary, img))
	for _, aux := range r.Auxiliary {
		out.Results = append(out.Results, recognize.Observe(aux, img))
	}

	out.Decision = r.Engine.Decide(out.Results[0], out.Results[1:], out.Existing)

	if out.Decision.Status == consensus.StatusFail && r.FailedDir != "" && !r.DryRun {
		r.copyFailed(path)
	}
	if r.Rename && out.Decision.Apply && !r.DryRun {
		r.rename(&out)
	}
	return out
}

// rename moves a capture to its labeled name. The existence check and the
// move run under one lock so two workers deciding the same code cannot race
// into the same destination; a collision is a warning and a skip, never an
// overwrite.
func (r *Runner) rename(out *Outcome) {
	target := imageio.LabeledName(out.Path, out.Decision.Label)
	if target == out.Path {
		return
	}

	r.renameMu.Lock()
	defer r.renameMu.Unlock()
	if _, err := os.Stat(target); err == nil {
		fmt.Printf("  warning: %s already exists, keeping %s\n",
			filepath.Base(target), filepath.Base(out.Path))
		return
	}
	if err := os.Rename(out.Path, target); err != nil {
		fmt.Printf("  warning: failed to rename %s: %v\n", filepath.Base(out.Path), err)
		return
	}
	out.Path = target
}

// copyFailed stashes an unreadable or unrecognizable capture for later
// inspection.
func (r *Runner) copyFailed(path string) {
	if err := os.MkdirAll(r.FailedDir, 0o755); err != nil {
		fmt.Printf("  warning: failed to create %s: %v\n", r.FailedDir, err)
		return
	}
	dst := filepath.Join(r.FailedDir, filepath.Base(path))
	if err := copyFile(path, dst); err != nil {
		fmt.Printf("  warning: failed to copy %s: %v\n", filepath.Base(path), err)
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Mismatch is one evaluation disagreement between a recognizer and the
// label embedded in the filename.
type Mismatch struct {
	Path string
	Want string
	Got  string
}

// Evaluation aggregates a recognizer's accuracy run over a labeled
// directory.
type Evaluation struct {
	Correct     int
	Total       int
	Mismatches  []Mismatch
	Confidences []float64 // one entry per evaluated capture
}

// Accuracy returns the fraction of evaluated captures answered correctly.
func (e Evaluation) Accuracy() float64 {
	if e.Total == 0 {
		return 0
	}
	return float64(e.Correct) / float64(e.Total)
}

// Evaluate measures a single recognizer against the labels embedded in the
// capture filenames of dir. Unlabeled captures are skipped.
func Evaluate(rec recognize.Recognizer, dir string) (Evaluation, error) {
	paths, err := imageio.ListCaptures(dir)
	if err != nil {
		return Evaluation{}, fmt.Errorf("failed to list captures in %s: %w", dir, err)
	}

	var ev Evaluation
	for _, path := range paths {
		want := imageio.LabelFromName(path)
		if want == "" {
			continue
		}
		img, err := imageio.Load(path)
		if err != nil {
			fmt.Printf("  %s: %v\n", filepath.Base(path), err)
			continue
		}
		ev.Total++
		res := recognize.Observe(rec, img)
		ev.Confidences = append(ev.Confidences, res.Confidence)
		if res.Text == want {
			ev.Correct++
		} else {
			ev.Mismatches = append(ev.Mismatches, Mismatch{Path: path, Want: want, Got: res.Text})
		}
	}
	return ev, nil
}

// SaveMismatches copies every mismatched capture into dir for inspection.
func SaveMismatches(mismatches []Mismatch, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	for _, m := range mismatches {
		dst := filepath.Join(dir, filepath.Base(m.Path))
		if err := copyFile(m.Path, dst); err != nil {
			return fmt.Errorf("failed to copy %s: %w", filepath.Base(m.Path), err)
		}
	}
	return nil
}
