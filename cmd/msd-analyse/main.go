// Command msd-analyse estimates effective diffusion constants and drift
// velocities from a precomputed MSD table, writes the log-log overview
// figure to Dt_1.pdf and shows the figures in the browser.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/diffusion.report/internal/config"
	"github.com/banshee-data/diffusion.report/internal/diffusion"
	"github.com/banshee-data/diffusion.report/internal/figure"
	"github.com/banshee-data/diffusion.report/internal/fsutil"
	"github.com/banshee-data/diffusion.report/internal/monitoring"
	"github.com/banshee-data/diffusion.report/internal/report"
	"github.com/banshee-data/diffusion.report/internal/security"
	"github.com/banshee-data/diffusion.report/internal/store"
	"github.com/banshee-data/diffusion.report/internal/trajectory"
	"github.com/banshee-data/diffusion.report/internal/version"
	"github.com/banshee-data/diffusion.report/internal/viewer"
)

var (
	configPath  = flag.String("config", "", "Path to JSON run configuration (optional)")
	history     = flag.Int("history", 0, "Print the last n recorded runs from results_db and exit")
	showVersion = flag.Bool("version", false, "Print version information and exit")
)

// pipeline holds everything one analysis run touches.
type pipeline struct {
	fsys       fsutil.FileSystem
	inputPath  string
	outputPath string
	stdout     io.Writer
	open       viewer.Opener
	cfg        *config.RunConfig
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	fsys := fsutil.OSFileSystem{}
	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(fsys, *configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *history > 0 {
		if err := printHistory(ctx, os.Stdout, cfg, *history); err != nil {
			log.Fatalf("failed to read run history: %v", err)
		}
		return
	}

	p := &pipeline{
		fsys:       fsys,
		inputPath:  trajectory.DefaultPath,
		outputPath: figure.OverviewPath,
		stdout:     os.Stdout,
		open:       viewer.OpenBrowser,
		cfg:        cfg,
	}
	if err := p.run(ctx); err != nil {
		stop()
		log.Fatalf("%v", err)
	}
}

// run loads the table, fits it, prints the constants, writes the overview
// figure, records the run and finally shows the interactive page.
func (p *pipeline) run(ctx context.Context) error {
	done := monitoring.Stage("loading " + p.inputPath)
	tab, err := trajectory.Load(p.fsys, p.inputPath)
	if err != nil {
		return fmt.Errorf("failed to load table: %w", err)
	}
	done()
	monitoring.Logf("loaded %d rows", tab.Len())

	a, err := diffusion.Analyse(tab)
	if err != nil {
		return fmt.Errorf("failed to analyse table: %w", err)
	}
	if err := report.Write(p.stdout, a.Constants); err != nil {
		return fmt.Errorf("failed to write constants: %w", err)
	}

	if err := security.ValidateOutputPath(p.outputPath); err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}
	done = monitoring.Stage("rendering " + p.outputPath)
	if err := figure.SaveOverview(p.fsys, a, p.outputPath); err != nil {
		return fmt.Errorf("failed to save overview figure: %w", err)
	}
	done()

	if path := p.cfg.GetResultsDB(); path != "" {
		if err := record(ctx, path, p.inputPath, a); err != nil {
			return err
		}
	}

	if !p.cfg.GetOpenBrowser() {
		return nil
	}
	var page bytes.Buffer
	vo := figure.ViewOptions{MaxPoints: p.cfg.GetMaxViewPoints(), AssetsHost: p.cfg.GetAssetsHost()}
	if err := figure.RenderPage(&page, a, vo); err != nil {
		return fmt.Errorf("failed to render interactive page: %w", err)
	}
	if err := viewer.Show(ctx, page.Bytes(), a.Constants, p.open); err != nil {
		return fmt.Errorf("viewer failed: %w", err)
	}
	return nil
}

func record(ctx context.Context, dbPath, inputPath string, a *diffusion.Analysis) error {
	if err := security.ValidateOutputPath(dbPath); err != nil {
		return fmt.Errorf("invalid results_db path: %w", err)
	}
	s, err := store.Open(dbPath, nil)
	if err != nil {
		return fmt.Errorf("failed to open results database: %w", err)
	}
	defer s.Close()

	if _, err := s.RecordRun(ctx, store.NewRun(inputPath, a)); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

func printHistory(ctx context.Context, w io.Writer, cfg *config.RunConfig, n int) error {
	path := cfg.GetResultsDB()
	if path == "" {
		return fmt.Errorf("results_db is not set in the config")
	}
	s, err := store.Open(path, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	schema, err := s.Version(ctx)
	if err != nil {
		return err
	}
	runs, err := s.Runs(ctx, n)
	if err != nil {
		return err
	}
	return report.WriteHistory(w, schema, runs)
}
