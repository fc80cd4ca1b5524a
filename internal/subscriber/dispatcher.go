package subscriber

import (
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Lifecycle event names. Per-filter events are derived with
// TransactionEvent and BatchEvent; the filter name is the routing key.
const (
	EventBeforePoll = "before_poll"
	EventPoll       = "poll"
	EventError      = "error"
)

// TransactionEvent names the per-transaction event for a filter.
func TransactionEvent(filterName string) string { return "transaction:" + filterName }

// BatchEvent names the once-per-poll batch event for a filter.
func BatchEvent(filterName string) string { return "batch:" + filterName }

// Handler receives one emission payload.
type Handler func(payload any)

// HandlerError reports a handler that panicked. It is delivered on the
// error event, except for failures of error handlers themselves, which are
// only logged to avoid a feedback loop.
type HandlerError struct {
	Event string
	Panic any
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler for %q panicked: %v", e.Event, e.Panic)
}

// registration is one handler on one event. Each registration owns a FIFO
// queue drained by its own goroutine, so a handler sees emissions in the
// order the subscriber issued them while never blocking the emitter or the
// other handlers.
type registration struct {
	id    uuid.UUID
	event string
	fn    Handler

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []any
	closed bool
}

func (r *registration) push(payload any) {
	r.mu.Lock()
	if !r.closed {
		r.queue = append(r.queue, payload)
		r.cond.Signal()
	}
	r.mu.Unlock()
}

func (r *registration) close() {
	r.mu.Lock()
	r.closed = true
	r.cond.Signal()
	r.mu.Unlock()
}

// EventBus is a thread-safe named event bus. Registrations and emissions
// may race; listener iteration happens on a snapshot taken under the lock.
type EventBus struct {
	mu        sync.Mutex
	listeners map[string][]*registration
}

func NewEventBus() *EventBus {
	return &EventBus{listeners: make(map[string][]*registration)}
}

// On registers fn for event and returns a handle for Off. Handlers for the
// same event are retained in registration order.
func (b *EventBus) On(event string, fn Handler) uuid.UUID {
	reg := &registration{id: uuid.New(), event: event, fn: fn}
	reg.cond = sync.NewCond(&reg.mu)

	b.mu.Lock()
	b.listeners[event] = append(b.listeners[event], reg)
	b.mu.Unlock()

	go b.drain(reg)
	return reg.id
}

// Off removes the registration with the given handle. Payloads already
// queued are still delivered.
func (b *EventBus) Off(event string, id uuid.UUID) {
	b.mu.Lock()
	regs := b.listeners[event]
	for i, reg := range regs {
		if reg.id == id {
			b.listeners[event] = append(regs[:i:i], regs[i+1:]...)
			reg.close()
			break
		}
	}
	b.mu.Unlock()
}

// Emit queues payload for every handler registered on event and returns
// without waiting for any of them.
func (b *EventBus) Emit(event string, payload any) {
	b.mu.Lock()
	regs := make([]*registration, len(b.listeners[event]))
	copy(regs, b.listeners[event])
	b.mu.Unlock()

	for _, reg := range regs {
		reg.push(payload)
	}
}

// Close tears down every registration. Queued payloads are still delivered
// before the drain goroutines exit.
func (b *EventBus) Close() {
	b.mu.Lock()
	var all []*registration
	for event, regs := range b.listeners {
		all = append(all, regs...)
		delete(b.listeners, event)
	}
	b.mu.Unlock()

	for _, reg := range all {
		reg.close()
	}
}

func (b *EventBus) drain(reg *registration) {
	for {
		reg.mu.Lock()
		for len(reg.queue) == 0 && !reg.closed {
			reg.cond.Wait()
		}
		if len(reg.queue) == 0 && reg.closed {
			reg.mu.Unlock()
			return
		}
		payload := reg.queue[0]
		reg.queue = reg.queue[1:]
		reg.mu.Unlock()

		b.invoke(reg, payload)
	}
}

// invoke runs one handler call, isolating panics so one failing handler
// cannot stop delivery to the others.
func (b *EventBus) invoke(reg *registration, payload any) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Dispatcher] Handler for %q panicked: %v", reg.event, r)
			if reg.event != EventError {
				b.Emit(EventError, &HandlerError{Event: reg.event, Panic: r})
			}
		}
	}()
	reg.fn(payload)
}
