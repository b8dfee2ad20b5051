// Package recognize defines the recognizer capability and its two built-in
// implementations: the primary template matcher and the Tesseract
// auxiliary. Further recognizers (e.g. a trained CNN served elsewhere) plug
// in through the same interface.
package recognize

import (
	"image"
)

// Result is one recognizer's verdict on a capture.
type Result struct {
	Source     string  // recognizer name
	Text       string  // predicted code, "" on failure
	Confidence float64 // 0..1
}

// Valid reports whether the prediction is a complete 4-digit code.
func (r Result) Valid() bool {
	if len(r.Text) != 4 {
		return false
	}
	for i := 0; i < len(r.Text); i++ {
		if r.Text[i] < '0' || r.Text[i] > '9' {
			return false
		}
	}
	return true
}

// Recognizer produces a (code, confidence) guess for a capture. Each
// implementation is independent and opaque to the consensus engine.
type Recognizer interface {
	Name() string
	Recognize(img image.Image) (Result, error)
}

// Observe runs a recognizer and converts any failure into an empty
// zero-confidence result. The consensus engine is built to tolerate partial
// recognizer failure, so errors are absorbed here instead of propagated.
func Observe(r Recognizer, img image.Image) Result {
	res, err := r.Recognize(img)
	if err != nil {
		return Result{Source: r.Name()}
	}
	res.Source = r.Name()
	return res
}
