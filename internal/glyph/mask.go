// Package glyph turns raw captcha captures into comparable digit glyphs:
// binary masks, connected components, and fixed-size normalized glyphs.
package glyph

import (
	"image"
	"strings"
)

// Mask is a binary foreground/background grid derived from a capture.
// Foreground pixels are true. A Mask is never mutated after construction;
// the noise cleanup pass builds a new one.
type Mask struct {
	Width  int
	Height int
	bits   []bool
}

// NewMask creates an all-background mask of the given size.
func NewMask(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		bits:   make([]bool, width*height),
	}
}

// At reports whether (x,y) is foreground. Out-of-range coordinates are
// background.
func (m *Mask) At(x, y int) bool {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return false
	}
	return m.bits[y*m.Width+x]
}

// Set marks (x,y) as foreground (v=true) or background.
func (m *Mask) Set(x, y int, v bool) {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return
	}
	m.bits[y*m.Width+x] = v
}

// Count returns the number of foreground pixels.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the mask.
func (m *Mask) Clone() *Mask {
	c := NewMask(m.Width, m.Height)
	copy(c.bits, m.bits)
	return c
}

// Crop returns the sub-mask covered by r (exclusive max, clamped to the
// mask bounds).
func (m *Mask) Crop(r image.Rectangle) *Mask {
	r = r.Intersect(image.Rect(0, 0, m.Width, m.Height))
	c := NewMask(r.Dx(), r.Dy())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c.Set(x-r.Min.X, y-r.Min.Y, m.At(x, y))
		}
	}
	return c
}

// Hamming returns the number of differing cells between two equal-sized
// masks. Panics are avoided by treating size mismatch as all-different,
// which callers never hit after normalization.
func Hamming(a, b *Mask) int {
	if a.Width != b.Width || a.Height != b.Height {
		return a.Width*a.Height + b.Width*b.Height
	}
	d := 0
	for i := range a.bits {
		if a.bits[i] != b.bits[i] {
			d++
		}
	}
	return d
}

// BinarizeOptions controls mask construction.
type BinarizeOptions struct {
	// Background forces a specific palette index as background. Negative
	// means autodetect (most frequent index), which must be done per image
	// because the encoder shifts palette order between runs.
	Background int

	// NoiseThreshold removes foreground pixels with this many or fewer
	// 4-connected foreground neighbors. 0 removes isolated dots only; a
	// negative value disables cleanup.
	NoiseThreshold int
}

// DefaultBinarizeOptions matches the capture encoder: autodetected
// background, isolated dots removed.
func DefaultBinarizeOptions() BinarizeOptions {
	return BinarizeOptions{Background: -1, NoiseThreshold: 0}
}

// Binarize converts a capture into a foreground mask. For paletted images
// the palette index drives the comparison directly; other images are
// quantized by exact color so the histogram logic is identical.
func Binarize(img image.Image, opts BinarizeOptions) *Mask {
	idx, bg := pixelIndices(img, opts.Background)
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	mask := NewMask(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			mask.Set(x, y, idx[y*w+x] != bg)
		}
	}

	if opts.NoiseThreshold < 0 {
		return mask
	}
	return removeNoise(mask, opts.NoiseThreshold)
}

// removeNoise drops foreground pixels with too few foreground neighbors.
// Neighbor counts come from the original mask in a single pass, so removing
// one dot cannot cascade into removing its neighbors.
func removeNoise(mask *Mask, threshold int) *Mask {
	cleaned := mask.Clone()
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			if !mask.At(x, y) {
				continue
			}
			neighbors := 0
			if mask.At(x+1, y) {
				neighbors++
			}
			if mask.At(x-1, y) {
				neighbors++
			}
			if mask.At(x, y+1) {
				neighbors++
			}
			if mask.At(x, y-1) {
				neighbors++
			}
			if neighbors <= threshold {
				cleaned.Set(x, y, false)
			}
		}
	}
	return cleaned
}

// pixelIndices flattens the capture into per-pixel indices and returns the
// background index (autodetected as the histogram peak unless forced).
func pixelIndices(img image.Image, forcedBackground int) ([]int, int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	idx := make([]int, w*h)

	if p, ok := img.(*image.Paletted); ok {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				idx[y*w+x] = int(p.ColorIndexAt(b.Min.X+x, b.Min.Y+y))
			}
		}
	} else {
		// Assign indices by exact color value in scan order.
		type rgba struct{ r, g, b, a uint32 }
		seen := make(map[rgba]int)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, g, bl, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				key := rgba{r, g, bl, a}
				i, ok := seen[key]
				if !ok {
					i = len(seen)
					seen[key] = i
				}
				idx[y*w+x] = i
			}
		}
	}

	if forcedBackground >= 0 {
		return idx, forcedBackground
	}

	hist := make(map[int]int)
	for _, i := range idx {
		hist[i]++
	}
	bg, best := 0, -1
	for i, n := range hist {
		if n > best || (n == best && i < bg) {
			bg, best = i, n
		}
	}
	return idx, bg
}

// Preview renders the mask as ASCII art for terminal inspection.
func (m *Mask) Preview() string {
	var sb strings.Builder
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.At(x, y) {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		if y < m.Height-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
