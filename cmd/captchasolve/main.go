// Command captchasolve recognizes captures with the template matcher: a
// single image, a whole directory, or a directory watched for new arrivals.
//
// Usage: captchasolve -image <file> | -dir <dir> [-watch]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"captcha-solver/internal/batch"
	"captcha-solver/internal/config"
	"captcha-solver/internal/consensus"
	"captcha-solver/internal/glyph"
	"captcha-solver/internal/imageio"
	"captcha-solver/internal/recognize"
	"captcha-solver/internal/template"
	"captcha-solver/internal/version"
)

func main() {
	imagePath := flag.String("image", "", "Single capture to solve")
	dir := flag.String("dir", "", "Directory of captures to solve")
	watch := flag.Bool("watch", false, "Keep watching -dir for new captures")
	templateDir := flag.String("templates", "", "Template store directory (default from config)")
	configPath := flag.String("config", "captcha.yaml", "Config file")
	preview := flag.Bool("preview", false, "Print the binarized capture as ASCII art")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	if *imagePath == "" && *dir == "" {
		fmt.Println("Usage: captchasolve -image <file> | -dir <dir> [-watch]")
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

	store, err := template.Load(*templateDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading templates: %v\n", err)
		os.Exit(1)
	}
	solver := recognize.NewSolver(store)

	if *imagePath != "" {
		solveOne(solver, *imagePath, *preview)
		return
	}

	if !*watch {
		paths, err := imageio.ListCaptures(*dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing captures: %v\n", err)
			os.Exit(1)
		}
		for _, path := range paths {
			solveOne(solver, path, *preview)
		}
		return
	}

	// Watch mode runs captures through the full consensus runner so the
	// terminal shows the same statuses the batch tools report.
	strategy, err := consensus.ParseStrategy(cfg.Strategy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	runner := &batch.Runner{
		Primary: solver,
		Engine:  consensus.NewEngine(strategy),
		Workers: cfg.Workers,
		DryRun:  true,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	stats := consensus.NewStats()
	if err := runner.Watch(ctx, *dir, stats); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\n%s", stats.Summary())
}

func solveOne(solver *recognize.Solver, path string, preview bool) {
	img, err := imageio.Load(path)
	if err != nil {
		fmt.Printf("%s: %v\n", filepath.Base(path), err)
		return
	}
	if preview {
		fmt.Println(glyph.Binarize(img, glyph.DefaultBinarizeOptions()).Preview())
	}
	code, err := solver.Solve(img)
	if err != nil {
		fmt.Printf("%s: %v\n", filepath.Base(path), err)
		return
	}
	fmt.Printf("%s: %s\n", filepath.Base(path), code)
}
