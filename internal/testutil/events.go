package testutil

import (
	"sync"
	"time"

	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/events"
)

// EventCollector is a thread-safe event collector for test assertions.
// Subscribe its Handler to a bus and then query collected events.
type EventCollector struct {
	mu     sync.Mutex
	events []events.Event
	cond   *sync.Cond
}

// NewEventCollector creates a new EventCollector.
func NewEventCollector() *EventCollector {
	ec := &EventCollector{}
	ec.cond = sync.NewCond(&ec.mu)
	return ec
}

// Handler returns a function suitable for bus.Subscribe().
func (c *EventCollector) Handler(e events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	c.cond.Broadcast()
}

// Events returns all collected events.
func (c *EventCollector) Events() []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]events.Event, len(c.events))
	copy(result, c.events)
	return result
}

// Count returns how many events of type typ were collected.
func (c *EventCollector) Count(typ events.EventType) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e.Type() == typ {
			n++
		}
	}
	return n
}

// WaitFor blocks until an event of type typ is observed or timeout
// expires. It returns the first such event.
func (c *EventCollector) WaitFor(typ events.EventType, timeout time.Duration) (events.Event, bool) {
	deadline := time.Now().Add(timeout)

	timer := time.AfterFunc(timeout, func() {
		c.mu.Lock()
		c.cond.Broadcast()
		c.mu.Unlock()
	})
	defer timer.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		for _, e := range c.events {
			if e.Type() == typ {
				return e, true
			}
		}
		if !time.Now().Before(deadline) {
			return nil, false
		}
		c.cond.Wait()
	}
}
