// Command templatetrain builds the digit template store from a directory of
// labeled captures. Labels come from the capture filenames; captures that
// don't segment cleanly into four glyphs are skipped.
//
// Usage: templatetrain -captures <dir> [options]
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"captcha-solver/internal/config"
	"captcha-solver/internal/imageio"
	"captcha-solver/internal/template"
)

func main() {
	capturesDir := flag.String("captures", "", "Directory of labeled captures")
	templateDir := flag.String("templates", "", "Template store directory (default from config)")
	configPath := flag.String("config", "captcha.yaml", "Config file")
	appendMode := flag.Bool("append", false, "Keep existing exemplars and add variants")
	force := flag.Bool("force", false, "Overwrite existing exemplars in overwrite mode")
	verbose := flag.Bool("v", false, "Verbose per-capture output")
	flag.Parse()

	if *capturesDir == "" {
		fmt.Println("Usage: templatetrain -captures <dir> [-templates <dir>] [-append] [-force]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *templateDir == "" {
		*templateDir = cfg.TemplateDir
	}

	mode := template.ModeOverwrite
	if *appendMode {
		mode = template.ModeAppend
	}

	// Start from whatever the store already holds so append mode sequences
	// correctly. A missing or incomplete store is normal while training.
	store, err := template.Load(*templateDir)
	if err != nil {
		store = template.NewStore(*templateDir)
	}
	if err := os.MkdirAll(*templateDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating %s: %v\n", *templateDir, err)
		os.Exit(1)
	}

	paths, err := imageio.ListCaptures(*capturesDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing captures: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Training from %d captures in %s\n", len(paths), *capturesDir)

	ingested, skipped, added := 0, 0, 0
	for _, path := range paths {
		label := imageio.LabelFromName(path)
		if label == "" {
			skipped++
			if *verbose {
				fmt.Printf("  %s: no label in filename, skipped\n", filepath.Base(path))
			}
			continue
		}
		img, err := imageio.Load(path)
		if err != nil {
			fmt.Printf("  %s: %v\n", filepath.Base(path), err)
			skipped++
			continue
		}
		n, err := store.IngestCapture(img, label, mode, *force)
		if err != nil {
			skipped++
			if *verbose {
				fmt.Printf("  %s: %v\n", filepath.Base(path), err)
			}
			continue
		}
		ingested++
		added += n
		if *verbose {
			fmt.Printf("  %s: label %s, %d exemplars written\n", filepath.Base(path), label, n)
		}
	}

	fmt.Printf("\nIngested %d captures (%d skipped), wrote %d exemplars\n", ingested, skipped, added)
	for class := 0; class < template.ClassCount; class++ {
		fmt.Printf("  digit %d: %d exemplars\n", class, store.ExemplarCount(class))
	}
	if !store.Complete() {
		fmt.Println("\nWarning: store does not yet cover all ten digits")
	}
}
