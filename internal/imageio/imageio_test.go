package imageio

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestLabelFromName(t *testing.T) {
	cases := []struct {
		path, want string
	}{
		{"vc0001_4607.bmp", "4607"},
		{"4607.png", "4607"},
		{"capture.gif", ""},
		{"vc12345.bmp", "1234"},
		{"a_0001_b_9999.png", "9999"},
		{"dir/with_1234/file_5678.bmp", "5678"},
	}
	for _, c := range cases {
		if got := LabelFromName(c.path); got != c.want {
			t.Errorf("LabelFromName(%q) = %q, want %q", c.path, got, c.want)
		}
	}
}

func TestLabeledName(t *testing.T) {
	cases := []struct {
		path, label, want string
	}{
		{"vc0001_4607.bmp", "1111", "vc0001_1111.bmp"},
		{"capture.png", "4607", "capture_4607.png"},
		{"a_0001_b_9999.png", "1234", "a_0001_b_1234.png"},
	}
	for _, c := range cases {
		if got := LabeledName(c.path, c.label); got != c.want {
			t.Errorf("LabeledName(%q, %s) = %q, want %q", c.path, c.label, got, c.want)
		}
	}
}

func TestIsCapture(t *testing.T) {
	for _, name := range []string{"a.bmp", "b.GIF", "c.png"} {
		if !IsCapture(name) {
			t.Errorf("IsCapture(%q) = false", name)
		}
	}
	for _, name := range []string{"a.jpg", "notes.txt", "store.db"} {
		if IsCapture(name) {
			t.Errorf("IsCapture(%q) = true", name)
		}
	}
}

func TestListCaptures(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.bmp", "skip.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.png"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := ListCaptures(dir)
	if err != nil {
		t.Fatalf("ListCaptures failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %v, want 2 captures", got)
	}
	if filepath.Base(got[0]) != "a.bmp" || filepath.Base(got[1]) != "b.png" {
		t.Fatalf("got %v", got)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cap.png")
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	src.Set(1, 1, color.Black)

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, src); err != nil {
		t.Fatal(err)
	}
	f.Close()

	img, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if img.Bounds().Dx() != 3 || img.Bounds().Dy() != 2 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.png")); err == nil {
		t.Fatal("missing file loaded")
	}
}
