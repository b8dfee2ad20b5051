// Command captchaeval measures recognizer accuracy against a directory of
// captures whose filenames carry the true code.
//
// Usage: captchaeval -captures <dir> [options]
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/stat"

	"captcha-solver/internal/batch"
	"captcha-solver/internal/config"
	"captcha-solver/internal/recognize"
	"captcha-solver/internal/template"
)

func main() {
	capturesDir := flag.String("captures", "", "Directory of labeled captures")
	templateDir := flag.String("templates", "", "Template store directory (default from config)")
	configPath := flag.String("config", "captcha.yaml", "Config file")
	withOCR := flag.Bool("tesseract", false, "Also evaluate the Tesseract recognizer")
	showMiss := flag.Bool("mismatches", false, "List every mismatched capture")
	failedDir := flag.String("save-failed", "", "Copy mismatched captures to this directory")
	flag.Parse()

	if *capturesDir == "" {
		fmt.Println("Usage: captchaeval -captures <dir> [-templates <dir>] [-tesseract]")
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

	fmt.Printf("Loading templates from %s\n", *templateDir)
	store, err := template.Load(*templateDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading templates: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("  %d exemplars loaded\n", store.Len())

	recognizers := []recognize.Recognizer{recognize.NewSolver(store)}
	if *withOCR {
		tess, err := recognize.NewTesseract()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error starting Tesseract: %v\n", err)
			os.Exit(1)
		}
		defer tess.Close()
		recognizers = append(recognizers, tess)
	}

	for _, rec := range recognizers {
		fmt.Printf("\nEvaluating %s recognizer\n", rec.Name())
		ev, err := batch.Evaluate(rec, *capturesDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if ev.Total == 0 {
			fmt.Println("  no labeled captures found")
			continue
		}
		mean, std := stat.MeanStdDev(ev.Confidences, nil)
		fmt.Printf("  %d/%d correct (%.1f%%), confidence %.2f ± %.2f\n",
			ev.Correct, ev.Total, 100*ev.Accuracy(), mean, std)
		if *showMiss {
			for _, m := range ev.Mismatches {
				got := m.Got
				if got == "" {
					got = "(nothing)"
				}
				fmt.Printf("  %s: want %s, got %s\n", filepath.Base(m.Path), m.Want, got)
			}
		}
		if *failedDir != "" && len(ev.Mismatches) > 0 {
			dst := filepath.Join(*failedDir, rec.Name())
			if err := batch.SaveMismatches(ev.Mismatches, dst); err != nil {
				fmt.Fprintf(os.Stderr, "Error saving mismatches: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("  %d mismatched captures copied to %s\n", len(ev.Mismatches), dst)
		}
	}
}
