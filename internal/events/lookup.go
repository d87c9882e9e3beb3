package events

import "time"

// LookupStart is emitted before a lookup argument set is resolved.
type LookupStart struct {
	ArgumentSet string
	Key         string
}

// LookupFinish is emitted after the lookup resolver returns.
type LookupFinish struct {
	ArgumentSet string
	Key         string
	Err         error
	Duration    time.Duration
}
