package template

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"captcha-solver/internal/glyph"
)

// testFont is a 5x7 pixel font whose digits are 4-connected and mutually
// distinct, shaped roughly like the capture glyphs.
var testFont = [10][]string{
	{"#####", "#...#", "#...#", "#...#", "#...#", "#...#", "#####"},
	{"..#..", ".##..", "..#..", "..#..", "..#..", "..#..", ".###."},
	{"#####", "....#", "....#", "#####", "#....", "#....", "#####"},
	{"#####", "....#", "....#", ".####", "....#", "....#", "#####"},
	{"#...#", "#...#", "#...#", "#####", "....#", "....#", "....#"},
	{"#####", "#....", "#....", "#####", "....#", "....#", "#####"},
	{"#####", "#....", "#....", "#####", "#...#", "#...#", "#####"},
	{"#####", "....#", "....#", "....#", "....#", "....#", "....#"},
	{"#####", "#...#", "#...#", "#####", "#...#", "#...#", "#####"},
	{"#####", "#...#", "#...#", "#####", "....#", "....#", "#####"},
}

func digitMask(t *testing.T, digit int) *glyph.Mask {
	t.Helper()
	rows := testFont[digit]
	m := glyph.NewMask(len(rows[0]), len(rows))
	for y, row := range rows {
		for x := 0; x < len(row); x++ {
			m.Set(x, y, row[x] == '#')
		}
	}
	return m
}

// captureImage renders a code as a paletted capture: white ground at index
// 0, glyphs at index 1, drawn at x = 2, 12, 22, ... with clear gaps.
func captureImage(t *testing.T, code string) *image.Paletted {
	t.Helper()
	pal := color.Palette{
		color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
		color.RGBA{A: 0xff},
	}
	img := image.NewPaletted(image.Rect(0, 0, 2+10*len(code), 11), pal)
	for i := 0; i < len(code); i++ {
		rows := testFont[code[i]-'0']
		for y, row := range rows {
			for x := 0; x < len(row); x++ {
				if row[x] == '#' {
					img.SetColorIndex(2+10*i+x, 2+y, 1)
				}
			}
		}
	}
	return img
}

func fullStore(t *testing.T, dir string) *Store {
	t.Helper()
	s := NewStore(dir)
	for class := 0; class < ClassCount; class++ {
		if _, err := s.AddSample(class, digitMask(t, class), ModeOverwrite, false); err != nil {
			t.Fatalf("AddSample(%d) failed: %v", class, err)
		}
	}
	return s
}

func TestAddSampleOverwriteProtectsExisting(t *testing.T) {
	s := NewStore("")
	changed, err := s.AddSample(3, digitMask(t, 3), ModeOverwrite, false)
	if err != nil || !changed {
		t.Fatalf("first AddSample: changed=%v err=%v", changed, err)
	}

	changed, err = s.AddSample(3, digitMask(t, 8), ModeOverwrite, false)
	if err != nil {
		t.Fatalf("second AddSample failed: %v", err)
	}
	if changed {
		t.Fatal("overwrite without force replaced an existing exemplar")
	}

	changed, err = s.AddSample(3, digitMask(t, 8), ModeOverwrite, true)
	if err != nil || !changed {
		t.Fatalf("forced AddSample: changed=%v err=%v", changed, err)
	}
	if s.ExemplarCount(3) != 1 {
		t.Fatalf("overwrite mode kept %d exemplars, want 1", s.ExemplarCount(3))
	}
}

func TestAddSampleAppendSequences(t *testing.T) {
	s := NewStore("")
	for i := 0; i < 3; i++ {
		if _, err := s.AddSample(5, digitMask(t, 5), ModeAppend, false); err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
	}
	if s.ExemplarCount(5) != 3 {
		t.Fatalf("got %d exemplars, want 3", s.ExemplarCount(5))
	}
	if s.classes[5][0].Seq != 1 || s.classes[5][2].Seq != 3 {
		t.Fatalf("sequences %d..%d, want 1..3", s.classes[5][0].Seq, s.classes[5][2].Seq)
	}
}

func TestAddSampleRejectsBadClass(t *testing.T) {
	s := NewStore("")
	if _, err := s.AddSample(10, digitMask(t, 0), ModeOverwrite, false); err == nil {
		t.Fatal("class 10 accepted")
	}
	if _, err := s.AddSample(-1, digitMask(t, 0), ModeOverwrite, false); err == nil {
		t.Fatal("class -1 accepted")
	}
}

func TestLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	fullStore(t, dir)

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !loaded.Complete() || loaded.Len() != ClassCount {
		t.Fatalf("loaded store: complete=%v len=%d", loaded.Complete(), loaded.Len())
	}

	for class := 0; class < ClassCount; class++ {
		got, dist, err := loaded.Match(glyph.Normalize(digitMask(t, class)))
		if err != nil {
			t.Fatalf("Match(%d) failed: %v", class, err)
		}
		if got != class || dist != 0 {
			t.Errorf("Match(%d) = (%d, %d), want (%d, 0)", class, got, dist, class)
		}
	}
}

func TestLoadIncompleteStore(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	for class := 0; class < 7; class++ {
		if _, err := s.AddSample(class, digitMask(t, class), ModeOverwrite, false); err != nil {
			t.Fatalf("AddSample failed: %v", err)
		}
	}

	if _, err := Load(dir); !errors.Is(err, ErrStoreIncomplete) {
		t.Fatalf("Load = %v, want ErrStoreIncomplete", err)
	}
}

func TestIngestCapture(t *testing.T) {
	s := NewStore("")
	n, err := s.IngestCapture(captureImage(t, "0123"), "0123", ModeOverwrite, false)
	if err != nil {
		t.Fatalf("IngestCapture failed: %v", err)
	}
	if n != 4 {
		t.Fatalf("added %d exemplars, want 4", n)
	}
	for _, class := range []int{0, 1, 2, 3} {
		if s.ExemplarCount(class) != 1 {
			t.Errorf("class %d has %d exemplars, want 1", class, s.ExemplarCount(class))
		}
	}
}

func TestIngestCaptureSkipsBadLabels(t *testing.T) {
	s := NewStore("")
	for _, label := range []string{"", "123", "12345", "12a4"} {
		n, err := s.IngestCapture(captureImage(t, "0123"), label, ModeOverwrite, false)
		if err != nil {
			t.Fatalf("IngestCapture(%q) failed: %v", label, err)
		}
		if n != 0 {
			t.Errorf("label %q ingested %d exemplars, want 0", label, n)
		}
	}
}

func TestIngestCaptureSkipsBadSegmentation(t *testing.T) {
	// Three glyphs under a four-digit label: nothing may be ingested, not
	// even the three that segmented fine.
	s := NewStore("")
	n, err := s.IngestCapture(captureImage(t, "012"), "0123", ModeOverwrite, false)
	if err != nil {
		t.Fatalf("IngestCapture failed: %v", err)
	}
	if n != 0 || s.Len() != 0 {
		t.Fatalf("partial ingestion: added=%d len=%d", n, s.Len())
	}
}

func TestParseExemplarName(t *testing.T) {
	cases := []struct {
		name       string
		class, seq int
		ok         bool
	}{
		{"3.png", 3, 0, true},
		{"3-7.png", 3, 7, true},
		{"9.bmp", 9, 0, true},
		{"3.txt", 0, 0, false},
		{"33.png", 0, 0, false},
		{"a.png", 0, 0, false},
		{"3-x.png", 0, 0, false},
	}
	for _, c := range cases {
		class, seq, ok := parseExemplarName(c.name)
		if class != c.class || seq != c.seq || ok != c.ok {
			t.Errorf("parseExemplarName(%q) = (%d,%d,%v), want (%d,%d,%v)",
				c.name, class, seq, ok, c.class, c.seq, c.ok)
		}
	}
}

func TestClassify(t *testing.T) {
	s := fullStore(t, "")
	norms := make([]*glyph.Mask, 0, 4)
	for _, d := range []int{4, 6, 0, 7} {
		norms = append(norms, glyph.Normalize(digitMask(t, d)))
	}
	code, err := s.Classify(norms)
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if code != "4607" {
		t.Fatalf("Classify = %q, want 4607", code)
	}
}

func TestClassifyEmptyStore(t *testing.T) {
	s := NewStore("")
	if _, err := s.Classify([]*glyph.Mask{glyph.NewMask(9, 11)}); !errors.Is(err, ErrNoTemplates) {
		t.Fatalf("got %v, want ErrNoTemplates", err)
	}
}

func TestMatchTieBreaksToLowestClass(t *testing.T) {
	// Identical exemplars under two classes: the probe is equidistant and
	// must resolve to the lower class.
	s := NewStore("")
	same := digitMask(t, 8)
	if _, err := s.AddSample(2, same, ModeOverwrite, false); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddSample(6, same, ModeOverwrite, false); err != nil {
		t.Fatal(err)
	}

	class, _, err := s.Match(glyph.Normalize(same))
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if class != 2 {
		t.Fatalf("tie resolved to class %d, want 2", class)
	}
}
