package source

import (
	"context"
	"os"
)

// Env resolves names against the process environment.
type Env struct {
	lookup func(string) (string, bool)
}

// NewEnv returns an environment source. A nil lookup uses os.LookupEnv.
func NewEnv(lookup func(string) (string, bool)) *Env {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &Env{lookup: lookup}
}

func (e *Env) Kind() Kind { return Environment }

// Lookup returns the variable value. Set but empty is a valid value.
func (e *Env) Lookup(_ context.Context, name string) (string, error) {
	value, ok := e.lookup(name)
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}
