package glyph

import (
	"image"
	"sort"
)

// Component is one candidate glyph: its bounding box inside the source mask
// plus the foreground pixels that produced it. Fallback components carry no
// pixels when their strip is empty.
type Component struct {
	Bounds image.Rectangle
	Pixels []image.Point
}

// SegmentOptions controls component extraction.
type SegmentOptions struct {
	// ExpectedGlyphs is the number of glyph regions the classifier needs.
	// Segment always returns exactly this many components.
	ExpectedGlyphs int

	// MinComponentSize drops connected components with fewer foreground
	// pixels, which removes residual speckle.
	MinComponentSize int
}

// DefaultSegmentOptions matches the 4-digit capture format.
func DefaultSegmentOptions() SegmentOptions {
	return SegmentOptions{ExpectedGlyphs: 4, MinComponentSize: 8}
}

// Segment splits the mask into exactly ExpectedGlyphs components, ordered
// left to right. The primary path is 4-connected flood fill; whenever that
// yields the wrong count (merged or split glyphs, blank captures) it falls
// back to equal-width vertical strips so the classifier always receives a
// full set of regions. Approximate-but-complete beats precise-but-missing
// here: a sliced glyph still usually matches its template.
func Segment(mask *Mask, opts SegmentOptions) []Component {
	comps := connectedComponents(mask, opts.MinComponentSize)
	if len(comps) == opts.ExpectedGlyphs {
		return comps
	}
	return stripFallback(mask, opts.ExpectedGlyphs)
}

// Components runs the strict primary path only: flood fill with no strip
// fallback. Template ingestion uses this to reject captures that do not
// segment cleanly.
func Components(mask *Mask, minSize int) []Component {
	return connectedComponents(mask, minSize)
}

// connectedComponents runs 4-connected flood fill over foreground pixels and
// returns the surviving components sorted by leftmost x.
func connectedComponents(mask *Mask, minSize int) []Component {
	seen := make([]bool, mask.Width*mask.Height)
	var comps []Component

	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			if seen[y*mask.Width+x] || !mask.At(x, y) {
				continue
			}

			stack := []image.Point{{X: x, Y: y}}
			seen[y*mask.Width+x] = true
			var pixels []image.Point

			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				pixels = append(pixels, p)

				for _, d := range [4]image.Point{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
					nx, ny := p.X+d.X, p.Y+d.Y
					if nx < 0 || nx >= mask.Width || ny < 0 || ny >= mask.Height {
						continue
					}
					if seen[ny*mask.Width+nx] || !mask.At(nx, ny) {
						continue
					}
					seen[ny*mask.Width+nx] = true
					stack = append(stack, image.Point{X: nx, Y: ny})
				}
			}

			if len(pixels) < minSize {
				continue
			}
			comps = append(comps, Component{
				Bounds: boundsOf(pixels),
				Pixels: pixels,
			})
		}
	}

	sort.SliceStable(comps, func(i, j int) bool {
		return comps[i].Bounds.Min.X < comps[j].Bounds.Min.X
	})
	return comps
}

// stripFallback partitions the mask width into count equal strips (the last
// strip absorbs the integer-division remainder) and returns one component
// per strip: the bounding box of the strip's foreground pixels, or the full
// strip when it holds none.
func stripFallback(mask *Mask, count int) []Component {
	stripW := mask.Width / count
	comps := make([]Component, 0, count)

	for i := 0; i < count; i++ {
		x0 := i * stripW
		x1 := (i + 1) * stripW // exclusive
		if i == count-1 {
			x1 = mask.Width
		}

		var pixels []image.Point
		for y := 0; y < mask.Height; y++ {
			for x := x0; x < x1; x++ {
				if mask.At(x, y) {
					pixels = append(pixels, image.Point{X: x, Y: y})
				}
			}
		}

		if len(pixels) == 0 {
			comps = append(comps, Component{
				Bounds: image.Rect(x0, 0, x1, mask.Height),
			})
			continue
		}
		comps = append(comps, Component{
			Bounds: boundsOf(pixels),
			Pixels: pixels,
		})
	}
	return comps
}

func boundsOf(pixels []image.Point) image.Rectangle {
	r := image.Rectangle{
		Min: pixels[0],
		Max: pixels[0].Add(image.Point{X: 1, Y: 1}),
	}
	for _, p := range pixels[1:] {
		if p.X < r.Min.X {
			r.Min.X = p.X
		}
		if p.Y < r.Min.Y {
			r.Min.Y = p.Y
		}
		if p.X+1 > r.Max.X {
			r.Max.X = p.X + 1
		}
		if p.Y+1 > r.Max.Y {
			r.Max.Y = p.Y + 1
		}
	}
	return r
}
