// Package linkage finds duplicate records: blocking bins produce candidate
// pairs, a composite similarity scores them and a decider keeps the pairs
// above the threshold.
package linkage

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"golang.org/x/sync/errgroup"

	ferrors "github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/partitioning"
	"github.com/Ramsey-B/fern/pkg/similarity"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Mode selects deduplication within one collection or linkage across two
type Mode string

const (
	ModeIntra Mode = "intra"
	ModeInter Mode = "inter"
)

// metric label values
const (
	modeIntra = string(ModeIntra)
	modeInter = string(ModeInter)
)

// Config holds the static linkage configuration
type Config struct {
	// Mode is used by Run. The zero value is ModeIntra.
	Mode       Mode
	Strategy   partitioning.Strategy
	Similarity *similarity.Composite
	Decider    *Decider
	// Workers bounds concurrent scoring tasks
	Workers int
	// BatchSize is the number of candidate pairs per scoring task
	BatchSize int
}

// DefaultConfig returns sensible defaults for the tunables
func DefaultConfig() Config {
	return Config{
		Workers:   4,
		BatchSize: 256,
	}
}

// PairFailure records a candidate pair whose scoring failed.
type PairFailure struct {
	LeftIndex  int    `json:"left_index"`
	RightIndex int    `json:"right_index"`
	Error      string `json:"error"`
}

// Result is the outcome of one linkage run.
type Result struct {
	Matches    []Match       `json:"matches"`
	Candidates int           `json:"candidates"`
	Bins       int           `json:"bins"`
	Failures   []PairFailure `json:"failures,omitempty"`
}

// Linker runs record linkage. It holds only immutable configuration and is
// safe for concurrent use.
type Linker struct {
	config Config
	logger ectologger.Logger
}

// NewLinker creates a linker
func NewLinker(config Config, logger ectologger.Logger) (*Linker, error) {
	if config.Strategy == nil {
		return nil, ferrors.NewConfigError("a partitioning strategy is required").AddComponent("linkage")
	}
	if config.Similarity == nil {
		return nil, ferrors.NewConfigError("a similarity function is required").AddComponent("linkage")
	}
	if config.Decider == nil {
		return nil, ferrors.NewConfigError("a match decider is required").AddComponent("linkage")
	}
	defaults := DefaultConfig()
	if config.Workers <= 0 {
		config.Workers = defaults.Workers
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	return &Linker{config: config, logger: logger}, nil
}

// LinkIntra deduplicates records within a single collection
func (l *Linker) LinkIntra(ctx context.Context, records []any) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "linkage.Linker.LinkIntra")
	defer span.End()

	start := time.Now()
	log := l.logger.WithContext(ctx).WithFields(map[string]any{
		"mode":    modeIntra,
		"records": len(records),
	})

	bins, err := partitioning.Partition(records, l.config.Strategy, partitioning.Left)
	if err != nil {
		metrics.LinkageRunsTotal.WithLabelValues(modeIntra, "error").Inc()
		log.WithError(err).Error("Failed to partition records")
		return nil, err
	}
	observeBins(modeIntra, bins)

	pairs := GenerateIntra(records, bins)
	result, err := l.evaluate(ctx, modeIntra, pairs)
	if err != nil {
		metrics.LinkageRunsTotal.WithLabelValues(modeIntra, "error").Inc()
		log.WithError(err).Error("Linkage run aborted")
		return nil, err
	}
	result.Bins = len(bins)

	l.finish(log, modeIntra, start, result)
	return result, nil
}

// LinkInter links records of a left collection to records of a right collection
func (l *Linker) LinkInter(ctx context.Context, left, right []any) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "linkage.Linker.LinkInter")
	defer span.End()

	start := time.Now()
	log := l.logger.WithContext(ctx).WithFields(map[string]any{
		"mode":          modeInter,
		"left_records":  len(left),
		"right_records": len(right),
	})

	leftBins, err := partitioning.Partition(left, l.config.Strategy, partitioning.Left)
	if err != nil {
		metrics.LinkageRunsTotal.WithLabelValues(modeInter, "error").Inc()
		log.WithError(err).Error("Failed to partition left records")
		return nil, err
	}
	rightBins, err := partitioning.Partition(right, l.config.Strategy, partitioning.Right)
	if err != nil {
		metrics.LinkageRunsTotal.WithLabelValues(modeInter, "error").Inc()
		log.WithError(err).Error("Failed to partition right records")
		return nil, err
	}
	observeBins(modeInter, leftBins)
	observeBins(modeInter, rightBins)

	joined := partitioning.Join(leftBins, rightBins)
	pairs := GenerateInter(left, right, joined)
	result, err := l.evaluate(ctx, modeInter, pairs)
	if err != nil {
		metrics.LinkageRunsTotal.WithLabelValues(modeInter, "error").Inc()
		log.WithError(err).Error("Linkage run aborted")
		return nil, err
	}
	result.Bins = len(joined)

	l.finish(log, modeInter, start, result)
	return result, nil
}

// Run links records in the configured mode. right is ignored for
// intra-source linkage.
func (l *Linker) Run(ctx context.Context, records, right []any) (*Result, error) {
	if l.config.Mode == ModeInter {
		return l.LinkInter(ctx, records, right)
	}
	return l.LinkIntra(ctx, records)
}

// Score scores and decides a single pair outside of a run.
func (l *Linker) Score(left, right any) (similarity.Score, bool, error) {
	score, err := l.config.Similarity.Score(left, right)
	if err != nil {
		return similarity.Score{}, false, err
	}
	return score, l.config.Decider.Accepts(score.Value), nil
}

// outcome is the per-pair result slot written by exactly one scoring task.
type outcome struct {
	match   *Match
	failure *PairFailure
}

// evaluate scores pairs in batches across workers. Each task writes only its
// own slots, so the result order is the candidate order for any worker count.
func (l *Linker) evaluate(ctx context.Context, mode string, pairs []CandidatePair) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "linkage.Linker.evaluate")
	defer span.End()

	outcomes := make([]outcome, len(pairs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(l.config.Workers)

	for start := 0; start < len(pairs); start += l.config.BatchSize {
		end := min(start+l.config.BatchSize, len(pairs))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gCtx.Err(); err != nil {
					return err
				}
				outcomes[i] = l.scorePair(pairs[i])
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{Candidates: len(pairs), Matches: []Match{}}
	for _, o := range outcomes {
		switch {
		case o.failure != nil:
			result.Failures = append(result.Failures, *o.failure)
		case o.match != nil:
			result.Matches = append(result.Matches, *o.match)
		}
	}

	metrics.CandidatePairsTotal.WithLabelValues(mode).Add(float64(len(pairs)))
	metrics.MatchesTotal.WithLabelValues(mode).Add(float64(len(result.Matches)))
	metrics.PairFailuresTotal.WithLabelValues(mode).Add(float64(len(result.Failures)))
	return result, nil
}

func (l *Linker) scorePair(pair CandidatePair) outcome {
	score, err := l.config.Similarity.Score(pair.Left, pair.Right)
	if err != nil {
		return outcome{failure: &PairFailure{LeftIndex: pair.LeftIndex, RightIndex: pair.RightIndex, Error: err.Error()}}
	}

	match, ok, err := l.config.Decider.Decide(pair, score.Value)
	if err != nil {
		return outcome{failure: &PairFailure{LeftIndex: pair.LeftIndex, RightIndex: pair.RightIndex, Error: err.Error()}}
	}
	if !ok {
		return outcome{}
	}
	match.Metrics = score.Metrics
	return outcome{match: &match}
}

func (l *Linker) finish(log ectologger.Logger, mode string, start time.Time, result *Result) {
	metrics.LinkageDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	metrics.LinkageRunsTotal.WithLabelValues(mode, "success").Inc()

	for _, f := range result.Failures {
		log.WithFields(map[string]any{
			"left_index":  f.LeftIndex,
			"right_index": f.RightIndex,
		}).Warn("Failed to score candidate pair: " + f.Error)
	}

	log.WithFields(map[string]any{
		"bins":       result.Bins,
		"candidates": result.Candidates,
		"matches":    len(result.Matches),
		"failures":   len(result.Failures),
		"duration":   time.Since(start).String(),
	}).Info("Linkage run completed")
}

func observeBins(mode string, bins []partitioning.Bin) {
	for _, bin := range bins {
		metrics.BinSize.WithLabelValues(mode).Observe(float64(len(bin.Members)))
	}
}
