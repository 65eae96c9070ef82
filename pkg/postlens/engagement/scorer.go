package engagement

import (
	"github.com/cognicore/postlens/pkg/postlens/ingest"
)

// Score is the per-post outcome of engagement scoring. Err is set when the
// post could not be scored; such posts are excluded from ranking.
type Score struct {
	Rate        float64
	Denominator float64
	Source      string
	Err         error
}

// OK reports whether the post has a usable rate.
func (s Score) OK() bool { return s.Err == nil }

// Scorer computes engagement rates against configured denominators.
type Scorer struct {
	denominators Denominators
}

// NewScorer creates a scorer.
func NewScorer(d Denominators) *Scorer {
	return &Scorer{denominators: d}
}

// Score computes p's rate. Failures are returned inside the Score, never
// as a separate error, so one bad post cannot stop a batch.
func (s *Scorer) Score(p ingest.Post) Score {
	denom, source, err := s.denominators.Resolve(p)
	if err != nil {
		return Score{Err: err}
	}
	rate, err := Rate(p.Reactions, p.Comments, p.Shares, denom)
	return Score{Rate: rate, Denominator: denom, Source: source, Err: err}
}
