package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"captcha-solver/internal/consensus"
	"captcha-solver/internal/imageio"
)

// Watch processes new captures as they land in dir until ctx is cancelled,
// folding every decision into stats. Capture grabbers write files in place,
// so creates and writes are debounced: a file is handed to the pipeline only
// once it has stayed quiet for a moment.
func (r *Runner) Watch(ctx context.Context, dir string, stats *consensus.Stats) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	fmt.Printf("Watching %s for new captures\n", dir)

	const settle = 300 * time.Millisecond
	pending := map[string]time.Time{}
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !imageio.IsCapture(ev.Name) {
				continue
			}
			pending[ev.Name] = time.Now()

		case <-ticker.C:
			now := time.Now()
			for path, seen := range pending {
				if now.Sub(seen) < settle {
					continue
				}
				delete(pending, path)
				r.handleWatched(path, stats)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fmt.Printf("watch error: %v\n", err)
		}
	}
}

func (r *Runner) handleWatched(path string, stats *consensus.Stats) {
	out := r.process(path)
	if out.Err != nil {
		fmt.Printf("  %s: %v\n", filepath.Base(path), out.Err)
		return
	}
	stats.Add(out.Decision, out.Results[0], out.Results[1:])
	fmt.Printf("  %s: %s %s (%s)\n", filepath.Base(out.Path),
		out.Decision.Status, out.Decision.Label, out.Decision.Reason)
	if r.Ledger != nil && !r.DryRun {
		if err := r.Ledger.Record(out.Path, out.Existing, out.Decision,
			r.Engine.Strategy, out.Results); err != nil {
			fmt.Printf("  warning: ledger write failed for %s: %v\n",
				filepath.Base(out.Path), err)
		}
	}
}
