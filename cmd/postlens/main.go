// Command postlens turns an export of LinkedIn posts into per-category
// Markdown archives.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cognicore/postlens/internal/logger"
	"github.com/cognicore/postlens/pkg/postlens/config"
	"github.com/cognicore/postlens/pkg/postlens/ingest"
	"github.com/cognicore/postlens/pkg/postlens/pipeline"
	"github.com/cognicore/postlens/pkg/postlens/store"
	"github.com/cognicore/postlens/pkg/postlens/store/sqlite"
)

type options struct {
	input      string
	out        string
	configPath string
	format     string
	workers    int
	generated  string
	db         string
	dedupe     bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(runMain(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// runMain returns the process exit code.
func runMain(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, "postlens:", err)
		return 1
	}
	if err := run(ctx, opts, stdout); err != nil {
		fmt.Fprintln(stderr, "postlens:", err)
		return 1
	}
	return 0
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("postlens", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.input, "input", "", "Input file of posts, JSONL or CSV (required)")
	fs.StringVar(&opts.out, "out", "", "Output directory for the category archives (required)")
	fs.StringVar(&opts.configPath, "config", "", "YAML config file (optional, built-in defaults otherwise)")
	fs.StringVar(&opts.format, "format", "", "Input format: jsonl or csv (default: from file extension)")
	fs.IntVar(&opts.workers, "workers", 0, "Worker count (overrides config)")
	fs.StringVar(&opts.generated, "generated", "", "Generated timestamp, RFC3339 (default: latest post time)")
	fs.StringVar(&opts.db, "db", "", "SQLite run ledger path (optional)")
	fs.BoolVar(&opts.dedupe, "dedupe", false, "Drop later posts with the same date and text")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	if opts.input == "" {
		return opts, errors.New("--input required")
	}
	if opts.out == "" {
		return opts, errors.New("--out required")
	}
	return opts, nil
}

// apply copies the flags that were set onto cfg.
func (opts options) apply(cfg *config.Config) {
	if opts.workers != 0 {
		cfg.Workers = opts.workers
	}
	if opts.generated != "" {
		cfg.GeneratedAt = opts.generated
	}
	if opts.db != "" {
		cfg.DB = opts.db
	}
	if opts.dedupe {
		cfg.Dedupe = true
	}
}

func run(ctx context.Context, opts options, stdout io.Writer) error {
	comp, err := (&config.Loader{ConfigPath: opts.configPath, Override: opts.apply}).Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg, log := comp.Config, comp.Logger
	defer log.Sync()

	batch, err := ingest.NewReader(log.With(logger.String("stage", "ingest"))).LoadFile(opts.input, opts.format)
	if err != nil {
		return err
	}
	log.Info("posts loaded",
		logger.String("input", opts.input),
		logger.Int("posts", len(batch.Posts)),
		logger.Int("rejected", len(batch.Rejections)),
	)

	var st store.Store
	if cfg.DB != "" {
		if st, err = sqlite.OpenSQLite(ctx, cfg.DB); err != nil {
			return fmt.Errorf("open run ledger: %w", err)
		}
	}

	p, err := pipeline.New(pipeline.Options{
		Scorer:      comp.Scorer,
		Categorizer: comp.Categorizer,
		Extractor:   comp.Extractor,
		Store:       st,
		Workers:     cfg.Workers,
		Dedupe:      cfg.Dedupe,
		Logger:      log.With(logger.String("stage", "pipeline")),
	})
	if err != nil {
		if st != nil {
			st.Close()
		}
		return err
	}
	defer p.Close()

	report, err := p.Run(ctx, batch, comp.GeneratedAt)
	if err != nil {
		return err
	}
	written, err := report.Write(opts.out)
	if err != nil {
		return err
	}
	if err := p.Record(ctx, report, opts.input, opts.out); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "run %s: %d posts, %d rejected, %d unscored, %d duplicates dropped\n",
		report.RunID, len(report.Results), report.Rejected, report.Unscored, report.Duplicates)
	for _, w := range written {
		state := "unchanged"
		if w.Changed {
			state = "written"
		}
		fmt.Fprintf(stdout, "  %-28s %3d posts  %s\n", w.Path, w.Entries, state)
	}
	return nil
}
