// Package expressions evaluates JMESPath expressions over record values.
package expressions

import (
	"fmt"
	"sync"

	"github.com/jmespath/go-jmespath"

	"github.com/Ramsey-B/fern/pkg/value"
)

// DefaultCacheSize bounds the compiled expressions kept by NewEvaluator.
const DefaultCacheSize = 512

// Evaluator compiles JMESPath expressions once and evaluates them over
// normalized record values. It is safe for concurrent use.
type Evaluator struct {
	mu       sync.RWMutex
	compiled map[string]*jmespath.JMESPath
	limit    int
}

func NewEvaluator() *Evaluator {
	return NewEvaluatorWithLimit(DefaultCacheSize)
}

// NewEvaluatorWithLimit keeps at most limit compiled expressions. A full
// cache is dropped and refilled.
func NewEvaluatorWithLimit(limit int) *Evaluator {
	if limit < 1 {
		limit = 1
	}
	return &Evaluator{compiled: make(map[string]*jmespath.JMESPath), limit: limit}
}

// Evaluate runs expression against data. Typed Go slices and numbers are
// normalized to decoded-JSON shapes first; Missing searches as null.
func (e *Evaluator) Evaluate(expression string, data any) (any, error) {
	program, err := e.compile(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid expression %q: %w", expression, err)
	}

	input := value.Normalize(data)
	if value.IsMissing(input) {
		input = nil
	}

	out, err := program.Search(input)
	if err != nil {
		return nil, fmt.Errorf("evaluating %q: %w", expression, err)
	}
	return out, nil
}

// Validate compiles expression without evaluating it.
func (e *Evaluator) Validate(expression string) error {
	_, err := e.compile(expression)
	return err
}

// Cached reports how many compiled expressions are held.
func (e *Evaluator) Cached() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiled)
}

func (e *Evaluator) compile(expression string) (*jmespath.JMESPath, error) {
	e.mu.RLock()
	program, ok := e.compiled[expression]
	e.mu.RUnlock()
	if ok {
		return program, nil
	}

	program, err := jmespath.Compile(expression)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	if len(e.compiled) >= e.limit {
		e.compiled = make(map[string]*jmespath.JMESPath, e.limit)
	}
	e.compiled[expression] = program
	e.mu.Unlock()
	return program, nil
}
