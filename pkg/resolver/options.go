package resolver

import (
	"go.uber.org/zap"

	"github.com/perdasilva/depres/pkg/depspec"
)

const (
	DefaultMaxRestarts     = 5
	DefaultMaxAnyOfRetries = 16
)

type Option func(r *Resolver)

// WithGrammar sets the grammar the target string is parsed under.
func WithGrammar(g depspec.Grammar) Option {
	return func(r *Resolver) {
		r.grammar = g
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithRootFlags sets the flag states conditionals in the target string are
// evaluated against.
func WithRootFlags(flags map[string]bool) Option {
	return func(r *Resolver) {
		r.rootFlags = make(map[string]bool, len(flags))
		for flag, enabled := range flags {
			r.rootFlags[flag] = enabled
		}
	}
}

// WithMaxRestarts bounds how often a conflict on any single resolution
// may restart the run.
func WithMaxRestarts(n int) Option {
	return func(r *Resolver) {
		r.maxRestarts = n
	}
}

// WithMaxAnyOfRetries bounds how often the resolver backtracks into any
// single || ( ) group.
func WithMaxAnyOfRetries(n int) Option {
	return func(r *Resolver) {
		r.maxAnyOfRetries = n
	}
}

// WithPreferInstalled makes the resolver choose an installed candidate
// over a newer one when both match.
func WithPreferInstalled(prefer bool) Option {
	return func(r *Resolver) {
		r.preferInstalled = prefer
	}
}

// WithPlanCheck cross-checks every plan with the SAT solver.
func WithPlanCheck(check bool) Option {
	return func(r *Resolver) {
		r.planCheck = check
	}
}
