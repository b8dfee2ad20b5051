// Package imageio loads captcha captures and handles the filename
// conventions of the capture archive. Ground truth encoded in filenames is
// decoded here, at the edge; the recognition core only ever receives it as
// an explicit parameter.
package imageio

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/png"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	_ "golang.org/x/image/bmp"
)

var labelPattern = regexp.MustCompile(`(\d{4})`)

// Load decodes a capture from disk. BMP, GIF and PNG are supported; the
// legacy encoder emits paletted BMPs.
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode capture %s: %w", path, err)
	}
	return img, nil
}

// LabelFromName extracts the ground-truth code embedded in a filename.
// The last 4-digit group of the stem wins, so a serial prefix like
// vc0001_4607.bmp yields 4607, not 0001. Returns "" when no label is
// present.
func LabelFromName(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	matches := labelPattern.FindAllString(stem, -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1]
}

// LabeledName returns the filename a capture should carry once label has
// been decided: an existing embedded label is replaced in place, otherwise
// the label is appended to the stem.
func LabeledName(path, label string) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	if existing := LabelFromName(path); existing != "" && strings.Contains(stem, existing) {
		// Replace the last occurrence so serial prefixes survive.
		i := strings.LastIndex(stem, existing)
		stem = stem[:i] + label + stem[i+len(existing):]
	} else {
		stem = stem + "_" + label
	}
	return filepath.Join(dir, stem+ext)
}

// IsCapture reports whether a filename looks like a capture image.
func IsCapture(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".bmp", ".gif", ".png":
		return true
	}
	return false
}

// ListCaptures returns the capture files directly inside dir, sorted by the
// directory's natural order.
func ListCaptures(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !IsCapture(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	return out, nil
}
