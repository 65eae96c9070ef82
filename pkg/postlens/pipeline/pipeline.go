// Package pipeline runs ingested posts through scoring, categorization and
// extraction, and groups the results into archive documents.
package pipeline

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/postlens/internal/logger"
	"github.com/cognicore/postlens/pkg/postlens/archive"
	"github.com/cognicore/postlens/pkg/postlens/categorize"
	"github.com/cognicore/postlens/pkg/postlens/category"
	"github.com/cognicore/postlens/pkg/postlens/engagement"
	"github.com/cognicore/postlens/pkg/postlens/extract"
	"github.com/cognicore/postlens/pkg/postlens/ingest"
	"github.com/cognicore/postlens/pkg/postlens/internalerr"
	"github.com/cognicore/postlens/pkg/postlens/store"
)

// DefaultWorkers is used when Options.Workers is not positive.
const DefaultWorkers = 4

// Options configures a Pipeline. Store is optional.
type Options struct {
	Scorer      *engagement.Scorer
	Categorizer *categorize.Categorizer
	Extractor   *extract.Extractor
	Store       store.Store
	Workers     int
	Dedupe      bool
	Logger      logger.Logger
}

// Pipeline is the postlens processing facade.
type Pipeline struct {
	scorer      *engagement.Scorer
	categorizer *categorize.Categorizer
	extractor   *extract.Extractor
	store       store.Store
	workers     int
	dedupe      bool
	log         logger.Logger

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// Result is everything computed for one post.
type Result struct {
	Post     ingest.Post
	Score    engagement.Score
	Decision categorize.Decision
	Spans    []extract.Span
}

// Report is the outcome of one Run.
type Report struct {
	RunID       string
	StartedAt   time.Time
	FinishedAt  time.Time
	GeneratedAt time.Time

	// Results are in ingestion order.
	Results    []Result
	Documents  map[category.Category]archive.Document
	Rejected   int
	Duplicates int
	Unscored   int
}

// New creates a Pipeline with the given dependencies.
func New(opts Options) (*Pipeline, error) {
	if opts.Scorer == nil || opts.Categorizer == nil || opts.Extractor == nil {
		return nil, fmt.Errorf("pipeline needs a scorer, categorizer and extractor: %w", internalerr.ErrInvalidConfig)
	}
	p := &Pipeline{
		scorer:      opts.Scorer,
		categorizer: opts.Categorizer,
		extractor:   opts.Extractor,
		store:       opts.Store,
		workers:     opts.Workers,
		dedupe:      opts.Dedupe,
		log:         opts.Logger,
		entropy:     ulid.Monotonic(rand.Reader, 0),
		now:         time.Now,
	}
	if p.workers <= 0 {
		p.workers = DefaultWorkers
	}
	if p.log == nil {
		p.log = logger.NewNop()
	}
	return p, nil
}

// Close releases the store, if any.
func (p *Pipeline) Close() error {
	if p.store == nil {
		return nil
	}
	return p.store.Close()
}

// Process scores, categorizes and extracts one post. It never fails; a
// scoring problem is carried in Result.Score.Err.
func (p *Pipeline) Process(post ingest.Post) Result {
	r := Result{
		Post:     post,
		Score:    p.scorer.Score(post),
		Decision: p.categorizer.Categorize(post),
		Spans:    p.extractor.Extract(post),
	}
	p.log.Debug("post processed",
		logger.String("post_id", post.ID),
		logger.Int("interactions", post.Interactions()),
		logger.String("category", string(r.Decision.Category)),
		logger.String("method", r.Decision.Method),
		logger.Int("spans", len(r.Spans)),
	)
	return r
}

// Run processes every post of batch on the worker pool and builds the
// archive documents. A zero generatedAt stamps the documents with the
// latest post timestamp.
func (p *Pipeline) Run(ctx context.Context, batch ingest.Batch, generatedAt time.Time) (*Report, error) {
	started := p.now().UTC()
	report := &Report{
		RunID:     p.newRunID(started),
		StartedAt: started,
		Rejected:  len(batch.Rejections),
	}
	log := p.log.With(logger.String("run_id", report.RunID))

	posts := batch.Posts
	if p.dedupe {
		posts, report.Duplicates = dedupe(posts, log)
	}
	if len(posts) == 0 {
		return nil, fmt.Errorf("run pipeline: no posts to process: %w", internalerr.ErrInvalidInput)
	}

	results := make([]Result, len(posts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, post := range posts {
		if gctx.Err() != nil {
			break
		}
		i, post := i, post
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.Process(post)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("process posts: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("process posts: %w", err)
	}
	report.Results = results

	if generatedAt.IsZero() {
		generatedAt = LatestPost(posts)
	}
	report.GeneratedAt = generatedAt.UTC()
	report.Documents = Documents(results, report.GeneratedAt)

	for _, r := range results {
		if r.Score.OK() {
			continue
		}
		report.Unscored++
		log.Warn("post not scored",
			logger.String("post_id", r.Post.ID),
			logger.Error(r.Score.Err),
		)
	}
	report.FinishedAt = p.now().UTC()

	log.Info("run complete",
		logger.Int("posts", len(results)),
		logger.Int("rejected", report.Rejected),
		logger.Int("duplicates", report.Duplicates),
		logger.Int("unscored", report.Unscored),
		logger.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

// Record stores the report in the run ledger. Without a store it does
// nothing.
func (p *Pipeline) Record(ctx context.Context, report *Report, input, outputDir string) error {
	if p.store == nil {
		return nil
	}
	if err := p.store.SaveRun(ctx, report.Run(input, outputDir)); err != nil {
		return fmt.Errorf("record run %s: %w", report.RunID, err)
	}
	return nil
}

func (p *Pipeline) newRunID(t time.Time) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), p.entropy).String()
}

// Documents groups results by category and ranks each group. Every
// category gets a document, possibly empty.
func Documents(results []Result, generatedAt time.Time) map[category.Category]archive.Document {
	docs := make(map[category.Category]archive.Document, len(category.All()))
	for _, c := range category.All() {
		docs[c] = archive.Document{Category: c, GeneratedAt: generatedAt}
	}
	for _, r := range results {
		doc := docs[r.Decision.Category]
		doc.Entries = append(doc.Entries, entry(r))
		docs[r.Decision.Category] = doc
	}
	for c, doc := range docs {
		doc.Sort()
		docs[c] = doc
	}
	return docs
}

func entry(r Result) archive.Entry {
	e := archive.Entry{Post: r.Post, Score: r.Score}
	for _, s := range r.Spans {
		switch s.Kind {
		case extract.KindBelief:
			e.Beliefs = append(e.Beliefs, s.Text)
		case extract.KindPreference:
			e.Preferences = append(e.Preferences, s.Text)
		}
	}
	return e
}

// LatestPost returns the most recent post timestamp.
func LatestPost(posts []ingest.Post) time.Time {
	var latest time.Time
	for _, p := range posts {
		if p.PostedAt.After(latest) {
			latest = p.PostedAt
		}
	}
	return latest
}

// dedupe drops later posts with the same date and text as an earlier one.
func dedupe(posts []ingest.Post, log logger.Logger) ([]ingest.Post, int) {
	type key struct{ day, text string }
	seen := make(map[key]string, len(posts))
	out := make([]ingest.Post, 0, len(posts))
	for _, post := range posts {
		k := key{post.PostedAt.UTC().Format("2006-01-02"), post.Text}
		if first, ok := seen[k]; ok {
			log.Warn("duplicate post dropped",
				logger.String("post_id", post.ID),
				logger.String("duplicate_of", first),
			)
			continue
		}
		seen[k] = post.ID
		out = append(out, post)
	}
	return out, len(posts) - len(out)
}

// Run converts the report into a run ledger record.
func (r *Report) Run(input, outputDir string) store.Run {
	run := store.Run{
		ID:          r.RunID,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
		GeneratedAt: r.GeneratedAt,
		Input:       input,
		OutputDir:   outputDir,
		Rejected:    r.Rejected,
		Posts:       make([]store.PostRecord, len(r.Results)),
	}
	for i, res := range r.Results {
		rec := store.PostRecord{
			Ordinal:  res.Post.Ordinal,
			PostID:   res.Post.ID,
			PostedAt: res.Post.PostedAt,
			Category: string(res.Decision.Category),
			Method:   res.Decision.Method,
		}
		if res.Score.OK() {
			rate := res.Score.Rate
			rec.Rate = &rate
		} else {
			rec.RateErr = res.Score.Err.Error()
		}
		for _, s := range res.Spans {
			rec.Spans = append(rec.Spans, store.SpanRecord{
				Kind:    string(s.Kind),
				Text:    s.Text,
				Start:   s.Start,
				End:     s.End,
				Trigger: s.Trigger,
			})
		}
		run.Posts[i] = rec
	}
	store.SortPosts(run.Posts)
	return run
}

// Write renders the documents into dir.
func (r *Report) Write(dir string) ([]archive.WriteResult, error) {
	results, err := archive.WriteDir(dir, r.Documents, r.GeneratedAt)
	if err != nil {
		return results, fmt.Errorf("write archive: %w", err)
	}
	return results, nil
}
