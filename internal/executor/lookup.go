package executor

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotLookup  = errors.New("executor: argument set is not a lookup set")
	ErrNoResolver = errors.New("executor: lookup argument set has no resolver")
)

// lookupCell memoizes the outcome of resolving a lookup argument set.
type lookupCell struct {
	done  bool
	value any
	err   error
}

// checkLookup requires exactly one non-null value.
func (s *ArgumentSet) checkLookup(index int) error {
	count := 0
	for _, v := range s.values {
		if v != nil {
			count++
		}
	}
	switch {
	case count == 0:
		return &Error{Kind: KindInvalidArgument, Issue: IssueMissingLookupValue, Path: s.path, Index: index}
	case count > 1:
		return &Error{Kind: KindInvalidArgument, Issue: IssueAmbiguousLookupValues, Path: s.path, Index: index}
	}
	return nil
}

// LookupKey returns the single populated argument of a lookup set.
func (s *ArgumentSet) LookupKey() (string, any, bool) {
	if !s.def.Lookup() {
		return "", nil, false
	}
	for _, arg := range s.def.Arguments() {
		if v := s.values[arg.Name]; v != nil {
			return arg.Name, v, true
		}
	}
	return "", nil, false
}

// Resolve runs the lookup resolver once and returns its memoized result on
// every later call.
func (s *ArgumentSet) Resolve(ctx context.Context) (any, error) {
	if s.lookup.done {
		return s.lookup.value, s.lookup.err
	}
	value, err := s.resolve(ctx)
	s.lookup = lookupCell{done: true, value: value, err: err}
	return value, err
}

func (s *ArgumentSet) resolve(ctx context.Context) (any, error) {
	if !s.def.Lookup() {
		return nil, ErrNotLookup
	}
	resolver := s.def.Resolver()
	if resolver == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoResolver, s.def.ID)
	}
	key, value, _ := s.LookupKey()

	req := s.req.WithContext(ctx)
	return resolver(req, key, value)
}
