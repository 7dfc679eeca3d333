// Package source provides the key/value backends placeholder tokens resolve
// against: SSM Parameter Store, Secrets Manager and the process environment.
package source

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Source is a single name -> value backend.
type Source interface {
	Kind() Kind
	Lookup(ctx context.Context, name string) (string, error)
}

// Set routes lookups to the source registered for each Kind. A Set is built
// once per batch run and shared by every file in it; it holds no mutable state
// after construction.
type Set struct {
	sources map[Kind]Source
	timeout time.Duration
	logger  *zap.Logger
}

// SetOption configures a Set.
type SetOption func(*Set)

// WithTimeout bounds every single lookup. Zero disables the bound.
func WithTimeout(d time.Duration) SetOption {
	return func(s *Set) { s.timeout = d }
}

// WithLogger attaches a logger for lookup tracing.
func WithLogger(l *zap.Logger) SetOption {
	return func(s *Set) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSet builds a Set. A later source of the same Kind replaces an earlier one.
func NewSet(sources []Source, opts ...SetOption) *Set {
	s := &Set{
		sources: make(map[Kind]Source, len(sources)),
		logger:  zap.NewNop(),
	}
	for _, src := range sources {
		s.sources[src.Kind()] = src
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lookup resolves name against the source for kind. Every failure comes back
// as a *LookupError.
func (s *Set) Lookup(ctx context.Context, kind Kind, name string) (string, error) {
	src, ok := s.sources[kind]
	if !ok {
		return "", &LookupError{Source: kind.String(), Name: name, Err: ErrNoSource}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	value, err := src.Lookup(ctx, name)
	if err != nil {
		return "", &LookupError{Source: kind.String(), Name: name, Err: err}
	}
	s.logger.Debug("resolved value",
		zap.Stringer("source", kind),
		zap.String("name", name),
		zap.Duration("took", time.Since(start)))
	return value, nil
}
