package fusion

import (
	"github.com/Gobusters/ectologger"

	ferrors "github.com/Ramsey-B/fern/pkg/errors"
	"github.com/Ramsey-B/fern/pkg/models"
)

// Build compiles a declarative fusion spec into an Engine. workers is used
// when the spec does not set its own worker count.
func Build(spec models.FusionSpec, workers int, logger ectologger.Logger) (*Engine, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	cfg := Config{
		Fields:  make(map[string]Rule, len(spec.Fields)),
		Schema:  spec.Schema,
		Workers: workers,
	}
	if spec.Workers > 0 {
		cfg.Workers = spec.Workers
	}

	if spec.Default != nil {
		rule, err := New(string(spec.Default.Rule), spec.Default.Params)
		if err != nil {
			return nil, ferrors.WrapConfigError(err).AddField("default")
		}
		cfg.Default = rule
	}

	for path, rs := range spec.Fields {
		rule, err := New(string(rs.Rule), rs.Params)
		if err != nil {
			return nil, ferrors.WrapConfigError(err).AddField(path)
		}
		cfg.Fields[path] = rule
	}

	return NewEngine(cfg, logger)
}
