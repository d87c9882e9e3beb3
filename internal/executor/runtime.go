package executor

import (
	"context"
	"time"

	eventbus "github.com/hanpama/apiform/internal/eventbus"
	events "github.com/hanpama/apiform/internal/events"
	schema "github.com/hanpama/apiform/internal/schema"
)

// Executor runs construction, lookup resolution and serialization, publishing
// start and finish events on its bus for tracing and metrics.
type Executor struct {
	bus *eventbus.Bus
}

// NewExecutor returns an Executor publishing to bus. bus may be nil.
func NewExecutor(bus *eventbus.Bus) *Executor {
	return &Executor{bus: bus}
}

// Construct is Construct with events. The request carries ctx.
func (e *Executor) Construct(ctx context.Context, raw any, def *schema.ArgumentSet, req *schema.Request) (*ArgumentSet, error) {
	if !def.Built() {
		return nil, unbuiltArgumentSet(def)
	}
	eventbus.Publish(ctx, e.bus, events.ConstructStart{ArgumentSet: def.ID})
	start := time.Now()
	set, err := Construct(raw, def, req.WithContext(ctx))
	eventbus.Publish(ctx, e.bus, events.ConstructFinish{
		ArgumentSet: def.ID,
		Err:         err,
		Duration:    time.Since(start),
	})
	return set, err
}

// Resolve resolves a lookup argument set with events.
func (e *Executor) Resolve(ctx context.Context, set *ArgumentSet) (any, error) {
	key, _, _ := set.LookupKey()
	eventbus.Publish(ctx, e.bus, events.LookupStart{ArgumentSet: set.def.ID, Key: key})
	start := time.Now()
	v, err := set.Resolve(ctx)
	eventbus.Publish(ctx, e.bus, events.LookupFinish{
		ArgumentSet: set.def.ID,
		Key:         key,
		Err:         err,
		Duration:    time.Since(start),
	})
	return v, err
}

// Serialize is Serialize with events. name identifies fs in events.
func (e *Executor) Serialize(ctx context.Context, name string, source any, fs *schema.FieldSet, req *schema.Request) (map[string]any, error) {
	eventbus.Publish(ctx, e.bus, events.SerializeStart{Name: name})
	start := time.Now()
	out, err := Serialize(source, fs, req.WithContext(ctx), Path{})
	eventbus.Publish(ctx, e.bus, events.SerializeFinish{
		Name:     name,
		Fields:   len(out),
		Err:      err,
		Duration: time.Since(start),
	})
	return out, err
}
