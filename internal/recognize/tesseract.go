package recognize

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"
)

// TesseractName identifies the Tesseract auxiliary recognizer.
const TesseractName = "tesseract"

// DigitChars restricts Tesseract to the captcha alphabet.
const DigitChars = "0123456789"

// Tesseract wraps a gosseract client as an auxiliary recognizer.
// Construction is expensive, so one instance is built before batch work
// starts and shared by all workers; the underlying client is stateful, so
// recognition calls are serialized by an internal mutex.
type Tesseract struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewTesseract creates the auxiliary OCR engine configured for 4-digit
// codes on a single line.
func NewTesseract() (*Tesseract, error) {
	client := gosseract.NewClient()

	if err := client.SetLanguage("eng"); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}

	// Dictionary correction only hurts: codes aren't words.
	_ = client.SetVariable("load_system_dawg", "false")
	_ = client.SetVariable("load_freq_dawg", "false")

	if err := client.SetWhitelist(DigitChars); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set whitelist: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set PSM: %w", err)
	}

	return &Tesseract{client: client}, nil
}

// Close releases OCR resources.
func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client != nil {
		err := t.client.Close()
		t.client = nil
		return err
	}
	return nil
}

// Name implements Recognizer.
func (t *Tesseract) Name() string { return TesseractName }

// Recognize implements Recognizer. Confidence is the mean word confidence
// Tesseract reports, scaled to 0..1.
func (t *Tesseract) Recognize(img image.Image) (Result, error) {
	buf, err := encodeForOCR(img)
	if err != nil {
		return Result{Source: TesseractName}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return Result{Source: TesseractName}, fmt.Errorf("tesseract engine closed")
	}

	if err := t.client.SetImageFromBytes(buf); err != nil {
		return Result{Source: TesseractName}, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := t.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return Result{Source: TesseractName}, fmt.Errorf("OCR failed: %w", err)
	}

	var text strings.Builder
	var confSum float64
	confCount := 0
	for _, box := range boxes {
		word := strings.TrimSpace(box.Word)
		if word == "" {
			continue
		}
		for i := 0; i < len(word); i++ {
			if word[i] >= '0' && word[i] <= '9' {
				text.WriteByte(word[i])
			}
		}
		confSum += box.Confidence
		confCount++
	}

	res := Result{Source: TesseractName, Text: text.String()}
	if confCount > 0 {
		res.Confidence = confSum / float64(confCount) / 100.0
	}
	return res, nil
}

// encodeForOCR prepares a capture for Tesseract: modest 2x nearest-neighbor
// upscale (aggressive upscaling degrades accuracy on these glyphs),
// grayscale with detail preserved rather than hard binarization, and a
// white border so glyphs don't touch the edges. Returns PNG bytes.
func encodeForOCR(img image.Image) ([]byte, error) {
	mat, err := imageToMat(img)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	scaled := gocv.NewMat()
	defer scaled.Close()
	gocv.Resize(mat, &scaled, image.Point{}, 2, 2, gocv.InterpolationNearestNeighbor)

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(scaled, &gray, gocv.ColorBGRToGray)

	padded := gocv.NewMat()
	defer padded.Close()
	gocv.CopyMakeBorder(gray, &padded, 10, 10, 10, 10,
		gocv.BorderConstant, color.RGBA{R: 255, G: 255, B: 255, A: 255})

	buf, err := gocv.IMEncode(gocv.PNGFileExt, padded)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}

// imageToMat converts a decoded capture into a BGR Mat.
func imageToMat(img image.Image) (gocv.Mat, error) {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)

	mat, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC4, rgba.Pix)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to build Mat: %w", err)
	}
	defer mat.Close()

	bgr := gocv.NewMat()
	gocv.CvtColor(mat, &bgr, gocv.ColorRGBAToBGR)
	return bgr, nil
}
