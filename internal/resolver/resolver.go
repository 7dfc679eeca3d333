// Package resolver replaces placeholder tokens in text templates with values
// from parameter store, secrets manager, the environment or a value table.
package resolver

import (
	"bytes"
	"context"
	"fmt"

	"github.com/30Piraten/fmtcf/internal/source"
	"github.com/30Piraten/fmtcf/internal/values"
	"go.uber.org/zap"
)

// Lookuper resolves a name against the source for kind. *source.Set
// implements it.
type Lookuper interface {
	Lookup(ctx context.Context, kind source.Kind, name string) (string, error)
}

// Resolver substitutes tokens. It keeps no state between calls, so one
// Resolver can serve many files concurrently.
type Resolver struct {
	sources Lookuper
	values  values.Table
	ignored map[string]bool
	logger  *zap.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithValues sets the table bare tokens resolve against.
func WithValues(t values.Table) Option {
	return func(r *Resolver) { r.values = t }
}

// WithIgnoredNames leaves bare tokens with these names as literal text when
// the value table has no entry for them. A table entry still wins.
func WithIgnoredNames(names ...string) Option {
	return func(r *Resolver) {
		for _, name := range names {
			r.ignored[name] = true
		}
	}
}

// RuntimeNames are __name__ identifiers that bundlers and language runtimes
// put into built output. They are not placeholders.
var RuntimeNames = []string{
	// webpack
	"webpack_require", "webpack_exports", "webpack_modules", "webpack_module_cache",
	"webpack_public_path", "webpack_hash", "webpack_chunkname", "webpack_nonce",
	"webpack_init_sharing", "webpack_share_scopes", "non_webpack_require",
	"webpack_base_uri", "webpack_runtime_id", "system_context",
	// JavaScript
	"proto", "defineGetter", "defineSetter", "lookupGetter", "lookupSetter",
	"esModule", "dirname", "filename", "NEXT_DATA", "VUE_OPTIONS_API",
	"VUE_PROD_DEVTOOLS", "DEV",
	// Python
	"init", "main", "name", "file", "dict", "class", "all", "version",
}

// WithLogger sets the logger used for per-file progress.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// New builds a Resolver. sources may be nil when only bare mode is used.
func New(sources Lookuper, opts ...Option) *Resolver {
	r := &Resolver{
		sources: sources,
		values:  values.Table{},
		ignored: map[string]bool{},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns template with every token of the given mode replaced.
// Tokens are resolved once per distinct token text and the result is reused
// for repeats. Substituted values are not rescanned. On error nothing is
// returned: callers never see a partially resolved template.
func (r *Resolver) Resolve(ctx context.Context, mode Mode, template []byte) ([]byte, error) {
	tokens, err := scan(mode, template)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return template, nil
	}

	cache := make(map[string]string, len(tokens))
	var out bytes.Buffer
	out.Grow(len(template))
	last := 0
	for _, tok := range tokens {
		value, ok := cache[tok.text]
		if !ok {
			value, err = r.lookup(ctx, mode, tok)
			if err != nil {
				return nil, &TokenError{Token: tok.text, Line: lineOf(template, tok.start), Err: err}
			}
			cache[tok.text] = value
		}
		out.Write(template[last:tok.start])
		out.WriteString(value)
		last = tok.end
	}
	out.Write(template[last:])

	r.logger.Debug("resolved template",
		zap.Stringer("mode", mode),
		zap.Int("tokens", len(tokens)),
		zap.Int("unique", len(cache)))
	return out.Bytes(), nil
}

func (r *Resolver) lookup(ctx context.Context, mode Mode, tok token) (string, error) {
	if mode == Bare {
		value, ok := r.values.Lookup(tok.name)
		if !ok && r.ignored[tok.name] {
			return tok.text, nil
		}
		if !ok {
			return "", &source.LookupError{Source: "values", Name: tok.name, Err: source.ErrNotFound}
		}
		return value, nil
	}
	if r.sources == nil {
		return "", &source.LookupError{Source: tok.kind.String(), Name: tok.name, Err: source.ErrNoSource}
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("lookup cancelled: %w", err)
	}
	return r.sources.Lookup(ctx, tok.kind, tok.name)
}
