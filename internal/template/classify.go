package template

import (
	"fmt"

	"captcha-solver/internal/glyph"
)

// Match finds the nearest template to a normalized glyph by pixel Hamming
// distance across every exemplar of every class. Ties are broken
// deterministically: classes are scanned 0 through 9 and exemplars in
// sequence order, and only a strictly smaller distance displaces the
// current best, so the lowest digit class (then lowest sequence) wins.
func (s *Store) Match(norm *glyph.Mask) (class int, distance int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bestClass, bestDist := -1, 0
	for c := 0; c < ClassCount; c++ {
		for _, t := range s.classes[c] {
			d := glyph.Hamming(norm, t.Glyph)
			if bestClass < 0 || d < bestDist {
				bestClass, bestDist = c, d
			}
		}
	}
	if bestClass < 0 {
		return 0, 0, ErrNoTemplates
	}
	return bestClass, bestDist, nil
}

// Classify maps an ordered list of normalized glyph masks to the digit
// string of their nearest templates. The input order is the reading order
// established by segmentation, so the result is the candidate code.
func (s *Store) Classify(norms []*glyph.Mask) (string, error) {
	out := make([]byte, 0, len(norms))
	for i, n := range norms {
		class, _, err := s.Match(n)
		if err != nil {
			return "", fmt.Errorf("glyph %d: %w", i, err)
		}
		out = append(out, byte('0'+class))
	}
	return string(out), nil
}
