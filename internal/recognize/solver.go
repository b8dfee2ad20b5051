package recognize

import (
	"fmt"
	"image"

	"captcha-solver/internal/glyph"
	"captcha-solver/internal/template"
)

// SolverName identifies the primary template recognizer in results and
// reports.
const SolverName = "template"

// Template matching produces no native confidence; a complete 4-digit
// answer gets this fixed estimate, mirroring its observed reliability
// relative to the auxiliaries.
const templateConfidence = 0.8

// Solver is the primary recognizer: binarize, segment, normalize, then
// nearest-template classification. It only reads the store, so one Solver
// is shared by all batch workers.
type Solver struct {
	store    *template.Store
	binarize glyph.BinarizeOptions
	segment  glyph.SegmentOptions
}

// NewSolver creates a solver over a loaded template store with default
// pipeline parameters.
func NewSolver(store *template.Store) *Solver {
	return &Solver{
		store:    store,
		binarize: glyph.DefaultBinarizeOptions(),
		segment:  glyph.DefaultSegmentOptions(),
	}
}

// Solve returns the authoritative template-match recognition for a capture.
// It fails hard when the store is unusable; segmentation ambiguity is
// absorbed by the strip fallback and never surfaces as an error.
func (s *Solver) Solve(img image.Image) (string, error) {
	if s.store.Len() == 0 {
		return "", template.ErrNoTemplates
	}

	mask := glyph.Binarize(img, s.binarize)
	comps := glyph.Segment(mask, s.segment)

	norms := make([]*glyph.Mask, 0, len(comps))
	for _, c := range comps {
		norms = append(norms, glyph.Normalize(mask.Crop(c.Bounds)))
	}

	code, err := s.store.Classify(norms)
	if err != nil {
		return "", fmt.Errorf("template classification failed: %w", err)
	}
	return code, nil
}

// Name implements Recognizer.
func (s *Solver) Name() string { return SolverName }

// Recognize implements Recognizer.
func (s *Solver) Recognize(img image.Image) (Result, error) {
	code, err := s.Solve(img)
	if err != nil {
		return Result{Source: SolverName}, err
	}
	res := Result{Source: SolverName, Text: code}
	if res.Valid() {
		res.Confidence = templateConfidence
	}
	return res, nil
}
