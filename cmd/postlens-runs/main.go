// Command postlens-runs prints the run ledger written by postlens -db.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cognicore/postlens/pkg/postlens/config"
	"github.com/cognicore/postlens/pkg/postlens/store"
	"github.com/cognicore/postlens/pkg/postlens/store/sqlite"
)

func main() {
	os.Exit(runMain(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// runDetail is the JSON view of one run.
type runDetail struct {
	store.RunSummary
	FinishedAt time.Time      `json:"finished_at"`
	OutputDir  string         `json:"output_dir"`
	Unrated    []unratedPost  `json:"unscored_posts"`
	Spans      map[string]int `json:"spans"`
}

type unratedPost struct {
	PostID  string `json:"post_id"`
	Ordinal int    `json:"ordinal"`
	Error   string `json:"error"`
}

func runMain(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("postlens-runs", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dbPath := fs.String("db", "", "SQLite run ledger path (default: POSTLENS_DB)")
	limit := fs.Int("limit", 20, "Number of runs to list (0 = all)")
	runID := fs.String("run", "", "Show one run in detail")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	if err := run(ctx, *dbPath, *runID, *limit, stdout); err != nil {
		fmt.Fprintln(stderr, "postlens-runs:", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, dbPath, runID string, limit int, stdout io.Writer) error {
	if dbPath == "" {
		cfg, err := config.Load("")
		if err != nil {
			return err
		}
		dbPath = cfg.DB
	}
	if dbPath == "" {
		return errors.New("--db required")
	}
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("run ledger %s: %w", dbPath, err)
	}

	st, err := sqlite.OpenSQLite(ctx, dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")

	if runID == "" {
		runs, err := st.ListRuns(ctx, limit)
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		if runs == nil {
			runs = []store.RunSummary{}
		}
		return enc.Encode(runs)
	}

	r, err := st.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	return enc.Encode(detail(r))
}

func detail(r store.Run) runDetail {
	d := runDetail{
		RunSummary: r.Summary(),
		FinishedAt: r.FinishedAt,
		OutputDir:  r.OutputDir,
		Unrated:    []unratedPost{},
		Spans:      map[string]int{},
	}
	for _, p := range r.Posts {
		if p.Rate == nil {
			d.Unrated = append(d.Unrated, unratedPost{PostID: p.PostID, Ordinal: p.Ordinal, Error: p.RateErr})
		}
		for _, s := range p.Spans {
			d.Spans[s.Kind]++
		}
	}
	return d
}
