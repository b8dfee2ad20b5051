package glyph

import (
	"image"

	"golang.org/x/image/draw"
)

// Canonical glyph resolution. Every segmented glyph is resampled to this
// fixed shape before template comparison, so Hamming distance is defined
// between glyphs of any raw size.
const (
	CanonicalWidth  = 9
	CanonicalHeight = 11
)

// Normalize resamples a glyph mask to the canonical size using
// nearest-neighbor sampling. Nearest-neighbor keeps the mask strictly
// binary; any interpolation would break the Hamming comparison. The result
// depends only on the input mask, never on call order.
func Normalize(mask *Mask) *Mask {
	return Resample(mask, CanonicalWidth, CanonicalHeight)
}

// Resample resizes a mask to an arbitrary target size with nearest-neighbor
// sampling.
func Resample(mask *Mask, width, height int) *Mask {
	if mask.Width == width && mask.Height == height {
		return mask.Clone()
	}

	src := image.NewGray(image.Rect(0, 0, max(mask.Width, 1), max(mask.Height, 1)))
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			if mask.At(x, y) {
				src.Pix[y*src.Stride+x] = 0xff
			}
		}
	}

	dst := image.NewGray(image.Rect(0, 0, width, height))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	out := NewMask(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			out.Set(x, y, dst.Pix[y*dst.Stride+x] != 0)
		}
	}
	return out
}
