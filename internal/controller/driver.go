package controller

import (
	"context"
	"sync"
)

// Driver runs the reducer headlessly. Dispatch reduces an event and runs
// the resulting effects synchronously, feeding their events back until the
// queue is empty. Results are applied in the order they arrive.
type Driver struct {
	mu      sync.Mutex
	reducer Reducer
	runner  EffectRunner
	state   State
	onState func(State)
}

// NewDriver creates a Driver starting from initial.
func NewDriver(reducer Reducer, runner EffectRunner, initial State) *Driver {
	return &Driver{
		reducer: reducer,
		runner:  runner,
		state:   initial,
	}
}

// OnState registers fn to observe every committed state.
func (d *Driver) OnState(fn func(State)) {
	d.mu.Lock()
	d.onState = fn
	d.mu.Unlock()
}

// State returns the current snapshot.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Dispatch applies ev and every follow-up event, then returns the final state.
func (d *Driver) Dispatch(ctx context.Context, ev Event) State {
	d.mu.Lock()
	defer d.mu.Unlock()

	queue := []Event{ev}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		var effects []Effect
		d.state, effects = d.reducer.Reduce(d.state, next)
		if d.onState != nil {
			d.onState(d.state)
		}

		for _, eff := range effects {
			if d.runner == nil {
				continue
			}
			if out := d.runner.Run(ctx, eff); out != nil {
				queue = append(queue, out)
			}
		}
	}
	return d.state
}
