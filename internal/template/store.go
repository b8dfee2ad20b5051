// Package template holds the per-digit glyph exemplars the primary
// recognizer matches against, and the nearest-template classifier itself.
package template

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	_ "golang.org/x/image/bmp"

	"captcha-solver/internal/glyph"
)

// ClassCount is the number of digit classes; a usable store covers all of
// them.
const ClassCount = 10

// Hard failures surfaced to callers. A store that misses classes has no
// meaningful partial behavior, so these abort recognition instead of
// degrading it.
var (
	ErrStoreIncomplete = errors.New("template store does not cover all digit classes 0-9")
	ErrNoTemplates     = errors.New("template store holds no templates")
)

// Mode selects how AddSample treats existing exemplars.
type Mode int

const (
	// ModeOverwrite keeps a single exemplar per class. Without Force it is
	// a no-op when one already exists, so re-running ingestion cannot
	// silently replace curated templates.
	ModeOverwrite Mode = iota
	// ModeAppend adds a new exemplar under a fresh sequence id and keeps
	// all prior ones.
	ModeAppend
)

// Template is one canonical normalized glyph tagged with its digit class.
type Template struct {
	Class int
	Seq   int // 0 for the single overwrite-mode exemplar
	Glyph *glyph.Mask
	Path  string // source file, empty for in-memory templates
}

// Store maps digit classes to their exemplar lists. Reads during
// classification take the read lock; AddSample is the only mutation and is
// never expected to run concurrently with a batch.
type Store struct {
	mu      sync.RWMutex
	dir     string // persistence root, empty for purely in-memory stores
	classes [ClassCount][]Template
}

// NewStore creates an empty in-memory store rooted at dir for persistence.
// An empty dir disables persistence (used by tests and synthetic setups).
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Load reads every exemplar under dir into a store. It fails with
// ErrStoreIncomplete unless at least one exemplar exists for every class.
func Load(dir string) (*Store, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read template dir %s: %w", dir, err)
	}

	s := NewStore(dir)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		class, seq, ok := parseExemplarName(e.Name())
		if !ok {
			continue
		}
		path := filepath.Join(dir, e.Name())
		m, err := readExemplar(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load exemplar %s: %w", path, err)
		}
		s.classes[class] = append(s.classes[class], Template{
			Class: class,
			Seq:   seq,
			Glyph: glyph.Normalize(m),
			Path:  path,
		})
	}

	covered := 0
	for class := 0; class < ClassCount; class++ {
		sort.Slice(s.classes[class], func(i, j int) bool {
			return s.classes[class][i].Seq < s.classes[class][j].Seq
		})
		if len(s.classes[class]) > 0 {
			covered++
		}
	}
	if covered < ClassCount {
		return nil, fmt.Errorf("found %d of %d classes in %s: %w",
			covered, ClassCount, dir, ErrStoreIncomplete)
	}
	return s, nil
}

// Dir returns the persistence root ("" for in-memory stores).
func (s *Store) Dir() string {
	return s.dir
}

// Complete reports whether every class has at least one exemplar.
func (s *Store) Complete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for class := 0; class < ClassCount; class++ {
		if len(s.classes[class]) == 0 {
			return false
		}
	}
	return true
}

// Len returns the total exemplar count.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for class := 0; class < ClassCount; class++ {
		n += len(s.classes[class])
	}
	return n
}

// ExemplarCount returns the number of exemplars stored for one class.
func (s *Store) ExemplarCount(class int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if class < 0 || class >= ClassCount {
		return 0
	}
	return len(s.classes[class])
}

// AddSample stores a glyph mask as a new exemplar for class. The mask may
// be any size; it is normalized before storage. Returns true when the store
// changed (overwrite mode without force is a no-op on a populated class).
func (s *Store) AddSample(class int, m *glyph.Mask, mode Mode, force bool) (bool, error) {
	if class < 0 || class >= ClassCount {
		return false, fmt.Errorf("digit class out of range: %d", class)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var tpl Template
	switch mode {
	case ModeOverwrite:
		if len(s.classes[class]) > 0 && !force {
			return false, nil
		}
		tpl = Template{Class: class, Seq: 0, Glyph: glyph.Normalize(m)}
		if s.dir != "" {
			tpl.Path = filepath.Join(s.dir, fmt.Sprintf("%d.png", class))
			if err := writeExemplar(tpl.Path, m); err != nil {
				return false, err
			}
		}
		s.classes[class] = []Template{tpl}
	case ModeAppend:
		seq := 1
		for _, t := range s.classes[class] {
			if t.Seq >= seq {
				seq = t.Seq + 1
			}
		}
		tpl = Template{Class: class, Seq: seq, Glyph: glyph.Normalize(m)}
		if s.dir != "" {
			tpl.Path = filepath.Join(s.dir, fmt.Sprintf("%d-%d.png", class, seq))
			if err := writeExemplar(tpl.Path, m); err != nil {
				return false, err
			}
		}
		s.classes[class] = append(s.classes[class], tpl)
	default:
		return false, fmt.Errorf("unknown template mode: %d", mode)
	}
	return true, nil
}

// IngestCapture slices a labeled capture into its four glyphs and stores
// each under the corresponding label digit. Captures that do not segment
// into exactly four clean components are skipped entirely, never partially
// ingested. Returns the number of exemplars added.
func (s *Store) IngestCapture(img image.Image, label string, mode Mode, force bool) (int, error) {
	if len(label) != 4 || !allDigits(label) {
		return 0, nil
	}

	mask := glyph.Binarize(img, glyph.DefaultBinarizeOptions())
	comps := glyph.Components(mask, glyph.DefaultSegmentOptions().MinComponentSize)
	if len(comps) != 4 {
		return 0, nil
	}

	added := 0
	for i, c := range comps {
		class := int(label[i] - '0')
		changed, err := s.AddSample(class, mask.Crop(c.Bounds), mode, force)
		if err != nil {
			return added, err
		}
		if changed {
			added++
		}
	}
	return added, nil
}

// parseExemplarName maps "3.png" to (3,0) and "3-7.png" to (3,7).
func parseExemplarName(name string) (class, seq int, ok bool) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if !strings.EqualFold(filepath.Ext(name), ".png") &&
		!strings.EqualFold(filepath.Ext(name), ".bmp") {
		return 0, 0, false
	}
	head, tail, hasSeq := strings.Cut(stem, "-")
	if len(head) != 1 || head[0] < '0' || head[0] > '9' {
		return 0, 0, false
	}
	class = int(head[0] - '0')
	if !hasSeq {
		return class, 0, true
	}
	seq, err := strconv.Atoi(tail)
	if err != nil {
		return 0, 0, false
	}
	return class, seq, true
}

// Exemplars are persisted as black glyph on white ground, so loading never
// depends on histogram background detection the way raw captures do.
func writeExemplar(path string, m *glyph.Mask) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create template dir: %w", err)
	}

	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.At(x, y) {
				img.SetGray(x, y, color.Gray{Y: 0})
			} else {
				img.SetGray(x, y, color.Gray{Y: 0xff})
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to write exemplar: %w", err)
	}
	defer f.Close()
	return png.Encode(f, img)
}

func readExemplar(path string) (*glyph.Mask, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	m := glyph.NewMask(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			m.Set(x, y, g.Y < 0x80)
		}
	}
	return m, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
