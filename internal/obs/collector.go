package obs

import "sync"

// Collector records events for inspection in tests.
type Collector struct {
	mu     sync.Mutex
	events []Recorded
}

// Recorded is one captured event with its fields.
type Recorded struct {
	Event  Event
	Fields []Field
}

func (c *Collector) Emit(ev Event, fields ...Field) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, Recorded{Event: ev, Fields: fields})
}

// Count returns how many times ev was emitted.
func (c *Collector) Count(ev Event) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, r := range c.events {
		if r.Event == ev {
			n++
		}
	}
	return n
}

// Events returns a copy of all recorded events in emission order.
func (c *Collector) Events() []Recorded {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Recorded, len(c.events))
	copy(out, c.events)
	return out
}
