package events

import "time"

// ConstructStart is emitted before raw input is constructed into an
// argument set.
type ConstructStart struct {
	ArgumentSet string
}

// ConstructFinish is emitted after construction completes.
type ConstructFinish struct {
	ArgumentSet string
	Err         error
	Duration    time.Duration
}

// SerializeStart is emitted before a value is serialized through a field set.
// Name identifies the field set, e.g. the endpoint or object it belongs to.
type SerializeStart struct {
	Name string
}

// SerializeFinish is emitted after serialization completes.
type SerializeFinish struct {
	Name     string
	Fields   int
	Err      error
	Duration time.Duration
}
