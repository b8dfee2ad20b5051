// Command dualverify runs the template matcher and Tesseract over a capture
// directory, reconciles the two through the consensus engine, and optionally
// renames captures to carry the decided codes.
//
// Usage: dualverify -dir <dir> [options]
package main

import (
	"flag"
	"fmt"
	"os"

	"captcha-solver/internal/batch"
	"captcha-solver/internal/config"
	"captcha-solver/internal/consensus"
	"captcha-solver/internal/ledger"
	"captcha-solver/internal/recognize"
	"captcha-solver/internal/template"
	"captcha-solver/internal/version"
)

func main() {
	dir := flag.String("dir", "", "Directory of captures to verify")
	templateDir := flag.String("templates", "", "Template store directory (default from config)")
	configPath := flag.String("config", "captcha.yaml", "Config file")
	strategyName := flag.String("strategy", "", "Consensus strategy: strict, balanced or lenient (default from config)")
	workers := flag.Int("workers", 0, "Worker pool size (default from config)")
	dryRun := flag.Bool("dry-run", false, "Decide and report, but touch nothing on disk")
	rename := flag.Bool("rename", false, "Rename captures to carry decided labels")
	force := flag.Bool("force", false, "Allow relabeling captures whose existing label conflicts")
	reportPath := flag.String("report", "", "Write a markdown comparison report to this path")
	failedDir := flag.String("save-failed", "", "Copy unrecognizable captures to this directory")
	ledgerPath := flag.String("ledger", "", "SQLite decision log (default from config)")
	verbose := flag.Bool("v", false, "Verbose per-capture output")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if *dir == "" {
		fmt.Println("Usage: dualverify -dir <dir> [-strategy strict|balanced|lenient] [-rename] [-dry-run]")
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
	if *strategyName == "" {
		*strategyName = cfg.Strategy
	}
	if *workers == 0 {
		*workers = cfg.Workers
	}
	if *ledgerPath == "" {
		*ledgerPath = cfg.LedgerPath
	}

	strategy, err := consensus.ParseStrategy(*strategyName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loading templates from %s\n", *templateDir)
	store, err := template.Load(*templateDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading templates: %v\n", err)
		os.Exit(1)
	}

	tess, err := recognize.NewTesseract()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting Tesseract: %v\n", err)
		os.Exit(1)
	}
	defer tess.Close()

	engine := consensus.NewEngine(strategy)
	engine.HighConfidence = cfg.HighConfidence
	engine.Override = *force

	runner := &batch.Runner{
		Primary:   recognize.NewSolver(store),
		Auxiliary: []recognize.Recognizer{tess},
		Engine:    engine,
		Workers:   *workers,
		DryRun:    *dryRun,
		Rename:    *rename,
		FailedDir: *failedDir,
		Verbose:   *verbose,
	}
	if *ledgerPath != "" {
		led, err := ledger.Open(*ledgerPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
			os.Exit(1)
		}
		defer led.Close()
		runner.Ledger = led
	}

	fmt.Printf("Strategy: %s (workers=%d, dry-run=%v)\n", strategy, *workers, *dryRun)
	outcomes, stats, err := runner.Run(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n%s", stats.Summary())

	if *reportPath != "" {
		if err := batch.WriteReport(*reportPath, outcomes, stats, strategy); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nReport written to %s\n", *reportPath)
	}
}
