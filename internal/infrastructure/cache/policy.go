package cache

import (
	"fmt"
	"time"

	"github.com/google/cel-go/cel"

	"tradeflow/internal/domain/reports"
)

// DefaultStaleExpression drops entries whose last_updated is older than 30 days.
const DefaultStaleExpression = "has_timestamp && age_hours > 720.0"

// StalePolicy evaluates a CEL expression per cache entry. Variables:
//
//	key           string  cache key
//	has_timestamp bool    entry carries last_updated
//	age_hours     double  hours since last_updated (0 without timestamp)
//
// The expression must return a bool; true means the entry is dropped.
type StalePolicy struct {
	expr    string
	program cel.Program
}

var _ reports.StalePolicy = (*StalePolicy)(nil)

// NewStalePolicy compiles expr. An empty expr selects DefaultStaleExpression.
func NewStalePolicy(expr string) (*StalePolicy, error) {
	if expr == "" {
		expr = DefaultStaleExpression
	}

	env, err := cel.NewEnv(
		cel.Variable("key", cel.StringType),
		cel.Variable("has_timestamp", cel.BoolType),
		cel.Variable("age_hours", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile stale policy %q: %w", expr, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("stale policy %q must return bool, got %s", expr, ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build stale policy: %w", err)
	}
	return &StalePolicy{expr: expr, program: program}, nil
}

// Expression returns the source expression.
func (p *StalePolicy) Expression() string { return p.expr }

// IsStale implements reports.StalePolicy.
func (p *StalePolicy) IsStale(key string, lastUpdated *time.Time, now time.Time) (bool, error) {
	age := 0.0
	if lastUpdated != nil {
		age = now.Sub(*lastUpdated).Hours()
	}

	out, _, err := p.program.Eval(map[string]any{
		"key":           key,
		"has_timestamp": lastUpdated != nil,
		"age_hours":     age,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate stale policy: %w", err)
	}
	stale, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("stale policy returned %T", out.Value())
	}
	return stale, nil
}
