package fusion

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"golang.org/x/sync/errgroup"

	ferrors "github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/value"
)

var (
	// ErrWeightCount is returned when values and weights differ in length.
	ErrWeightCount = errors.New("values and weights differ in length")
	// ErrInvalidWeight is returned for negative, NaN or infinite weights.
	ErrInvalidWeight = errors.New("weights must be non-negative finite numbers")
)

// Config holds the static fusion configuration
type Config struct {
	// Default fuses fields without their own rule. Nil means most_trusted.
	Default Rule
	// Fields maps dotted field paths to rules
	Fields map[string]Rule
	// Schema lists the known field paths. When set, every rule path must
	// appear in it.
	Schema []string
	// Workers bounds concurrently fused clusters
	Workers int
}

// FusedCluster is the outcome of fusing one cluster.
type FusedCluster struct {
	ID    string `json:"id,omitempty"`
	Value any    `json:"value"`
	Error string `json:"error,omitempty"`
}

// Engine dispatches fusion rules per field. It holds only immutable
// configuration and is safe for concurrent use.
type Engine struct {
	defaultRule Rule
	fields      map[string]Rule
	// parents holds every proper prefix of a configured path, marking the
	// objects whose fields are fused individually.
	parents map[string]struct{}
	workers int
	logger  ectologger.Logger
}

// NewEngine validates cfg and creates an engine
func NewEngine(cfg Config, logger ectologger.Logger) (*Engine, error) {
	if len(cfg.Schema) > 0 {
		for path := range cfg.Fields {
			if !ectolinq.Contains(cfg.Schema, path) {
				return nil, ferrors.NewConfigError("rule references a field outside the schema").AddComponent("fusion").AddField(path)
			}
		}
	}

	e := &Engine{
		defaultRule: cfg.Default,
		fields:      make(map[string]Rule, len(cfg.Fields)),
		parents:     make(map[string]struct{}),
		workers:     cfg.Workers,
		logger:      logger,
	}
	if e.defaultRule == nil {
		e.defaultRule = MostTrusted{}
	}
	if e.workers <= 0 {
		e.workers = 4
	}

	for path, rule := range cfg.Fields {
		if rule == nil {
			return nil, ferrors.NewConfigError("field has no rule").AddComponent("fusion").AddField(path)
		}
		if path == "" || strings.HasPrefix(path, ".") || strings.HasSuffix(path, ".") {
			return nil, ferrors.NewConfigError("malformed field path").AddComponent("fusion").AddField(path)
		}
		e.fields[path] = rule
		for i := strings.Index(path, "."); i >= 0; i = nextDot(path, i) {
			e.parents[path[:i]] = struct{}{}
		}
	}
	return e, nil
}

func nextDot(path string, after int) int {
	i := strings.Index(path[after+1:], ".")
	if i < 0 {
		return -1
	}
	return after + 1 + i
}

// Fuse fuses a cluster with the default rule
func (e *Engine) Fuse(values []any, weights []float64) (any, error) {
	if err := checkWeights(values, weights); err != nil {
		return nil, err
	}
	return e.defaultRule.Fuse(values, weights)
}

// FuseWith fuses a cluster with the rule configured for path, falling back
// to the default rule
func (e *Engine) FuseWith(path string, values []any, weights []float64) (any, error) {
	if err := checkWeights(values, weights); err != nil {
		return nil, err
	}
	return e.ruleFor(path).Fuse(values, weights)
}

// FuseRecords fuses object records field by field. A field absent from a
// record contributes nothing for that record; an explicit null is passed to
// the rule. Nested objects are fused field by field when a rule targets one
// of their fields. Null records are skipped.
func (e *Engine) FuseRecords(records []any, weights []float64) (map[string]any, error) {
	if err := checkWeights(records, weights); err != nil {
		return nil, err
	}

	objects := make([]map[string]any, 0, len(records))
	objectWeights := make([]float64, 0, len(records))
	for i, record := range records {
		if value.IsNull(record) || value.IsMissing(record) {
			continue
		}
		obj, ok := value.Normalize(record).(map[string]any)
		if !ok {
			return nil, fmt.Errorf("record %d is a %s, not an object", i, value.KindOf(record))
		}
		objects = append(objects, obj)
		objectWeights = append(objectWeights, weights[i])
	}
	return e.fuseObjects("", objects, objectWeights)
}

func (e *Engine) fuseObjects(prefix string, objects []map[string]any, weights []float64) (map[string]any, error) {
	seen := make(map[string]struct{})
	var names []string
	for _, obj := range objects {
		for k := range obj {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				names = append(names, k)
			}
		}
	}
	sort.Strings(names)

	out := make(map[string]any, len(names))
	for _, name := range names {
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}

		var values []any
		var fieldWeights []float64
		for i, obj := range objects {
			if v, ok := obj[name]; ok {
				values = append(values, v)
				fieldWeights = append(fieldWeights, weights[i])
			}
		}

		fused, err := e.fuseField(path, values, fieldWeights)
		if err != nil {
			return nil, err
		}
		out[name] = fused
	}
	return out, nil
}

func (e *Engine) fuseField(path string, values []any, weights []float64) (any, error) {
	if _, ok := e.fields[path]; !ok {
		if _, nested := e.parents[path]; nested {
			if objects, objectWeights, ok := asObjects(values, weights); ok {
				return e.fuseObjects(path, objects, objectWeights)
			}
		}
	}

	fused, err := e.ruleFor(path).Fuse(values, weights)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", path, err)
	}
	return fused, nil
}

// asObjects reports whether every non-null value is an object, returning
// those objects with their weights.
func asObjects(values []any, weights []float64) ([]map[string]any, []float64, bool) {
	var objects []map[string]any
	var objectWeights []float64
	for i, v := range values {
		if value.IsNull(v) {
			continue
		}
		obj, ok := v.(map[string]any)
		if !ok {
			return nil, nil, false
		}
		objects = append(objects, obj)
		objectWeights = append(objectWeights, weights[i])
	}
	return objects, objectWeights, len(objects) > 0
}

// FuseCluster fuses object clusters field by field and anything else with
// the default rule.
func (e *Engine) FuseCluster(values []any, weights []float64) (any, error) {
	if weights == nil {
		weights = UniformWeights(len(values))
	}
	if isObjectCluster(values) {
		return e.FuseRecords(values, weights)
	}
	return e.Fuse(values, weights)
}

func isObjectCluster(values []any) bool {
	found := false
	for _, v := range values {
		if value.IsNull(v) {
			continue
		}
		if value.KindOf(v) != value.KindObject {
			return false
		}
		found = true
	}
	return found
}

// FuseClusters fuses independent clusters concurrently. Results are in
// input order. A cluster that fails to fuse is reported in its result and
// does not stop the others.
func (e *Engine) FuseClusters(ctx context.Context, clusters []models.Cluster) ([]FusedCluster, error) {
	ctx, span := tracing.StartSpan(ctx, "fusion.Engine.FuseClusters")
	defer span.End()

	start := time.Now()
	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"clusters": len(clusters),
		"workers":  e.workers,
	})

	results := make([]FusedCluster, len(clusters))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, cluster := range clusters {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			results[i] = FusedCluster{ID: cluster.ID}
			fused, err := e.FuseCluster(cluster.Values, clusterWeights(cluster))
			if err != nil {
				results[i].Error = err.Error()
				return nil
			}
			results[i].Value = fused
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("Fusion aborted")
		return nil, err
	}

	failed := 0
	for _, r := range results {
		status := "success"
		if r.Error != "" {
			status = "error"
			failed++
			log.WithFields(map[string]any{"cluster_id": r.ID}).Warn("Failed to fuse cluster: " + r.Error)
		}
		metrics.FusionClustersTotal.WithLabelValues(status).Inc()
	}
	metrics.FusionDuration.Observe(time.Since(start).Seconds())

	log.WithFields(map[string]any{
		"failed":   failed,
		"duration": time.Since(start).String(),
	}).Info("Fusion completed")
	return results, nil
}

func (e *Engine) ruleFor(path string) Rule {
	if rule, ok := e.fields[path]; ok {
		return rule
	}
	return e.defaultRule
}

// UniformWeights returns n weights of 1.
func UniformWeights(n int) []float64 {
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1
	}
	return weights
}

func clusterWeights(c models.Cluster) []float64 {
	if len(c.Weights) == 0 {
		return UniformWeights(len(c.Values))
	}
	return c.Weights
}

func checkWeights(values []any, weights []float64) error {
	if len(values) != len(weights) {
		return fmt.Errorf("%w: %d values, %d weights", ErrWeightCount, len(values), len(weights))
	}
	for i, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: weight %d is %v", ErrInvalidWeight, i, w)
		}
	}
	return nil
}
