// Package event implements the best-effort, non-blocking lifecycle event
// fan-out described in the core's external-interfaces contract: code and
// token lifecycle notifications for plugins, with emission failures kept
// entirely out of the protocol response path.
package event

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Type identifies a lifecycle event.
type Type string

const (
	TypeCodeIssued         Type = "code.issued"
	TypeCodeConsumed       Type = "code.consumed"
	TypeCodeExpired        Type = "code.expired"
	TypeTokenIssued        Type = "token.issued"
	TypeTokenValidated     Type = "token.validated"
	TypeTokenRevoked       Type = "token.revoked"
	TypeTokenExpired       Type = "token.expired"
	TypeClientRegistered   Type = "client.registered"
	TypeClientAuthenticated Type = "client.authenticated"
)

// Event is the envelope handed to every subscriber.
type Event struct {
	ID            string
	Type          Type
	Timestamp     time.Time
	UserID        string
	ClientID      string
	Attributes    map[string]string
	CorrelationID string
}

// Subscriber receives events an Emitter publishes. Handle must not block
// indefinitely; AsyncEmitter gives it a fixed queue but no per-call
// timeout of its own.
type Subscriber interface {
	Handle(ctx context.Context, evt Event)
}

// FilterMode selects which of a Subscriber's events AsyncEmitter
// actually delivers.
type FilterMode int

const (
	// FilterAllowAll delivers every event.
	FilterAllowAll FilterMode = iota
	// FilterInclude delivers only event types named in Filter.Types.
	FilterInclude
	// FilterExclude delivers every event type except those named in
	// Filter.Types.
	FilterExclude
)

// Filter narrows the events a subscription receives.
type Filter struct {
	Mode  FilterMode
	Types map[Type]bool
}

func (f Filter) allows(t Type) bool {
	switch f.Mode {
	case FilterInclude:
		return f.Types[t]
	case FilterExclude:
		return !f.Types[t]
	default:
		return true
	}
}

// Emitter publishes lifecycle events. Publish must never return an error
// that the caller is expected to act on: emission is best-effort by
// design.
type Emitter interface {
	Publish(ctx context.Context, t Type, userID, clientID string, attrs map[string]string)
}

type subscription struct {
	subscriber Subscriber
	filter     Filter
}

// AsyncEmitter fans events out to subscribers over a bounded channel, so
// a slow or stuck subscriber degrades event delivery rather than the
// protocol request that triggered the event.
type AsyncEmitter struct {
	queue  chan Event
	subs   []subscription
	logger *slog.Logger
}

// NewAsyncEmitter starts an AsyncEmitter with the given subscribers and
// queue depth. Call Close to stop the delivery goroutine.
func NewAsyncEmitter(queueDepth int, logger *slog.Logger, subs ...Subscriber) *AsyncEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	if queueDepth <= 0 {
		queueDepth = 256
	}
	wrapped := make([]subscription, len(subs))
	for i, s := range subs {
		wrapped[i] = subscription{subscriber: s, filter: Filter{Mode: FilterAllowAll}}
	}
	e := &AsyncEmitter{queue: make(chan Event, queueDepth), subs: wrapped, logger: logger}
	go e.run()
	return e
}

// Subscribe adds a subscriber with an explicit filter, for callers that
// want narrower delivery than NewAsyncEmitter's default allow-all.
func (e *AsyncEmitter) Subscribe(s Subscriber, filter Filter) {
	e.subs = append(e.subs, subscription{subscriber: s, filter: filter})
}

// Publish enqueues evt for delivery. If the queue is full, the event is
// dropped and logged rather than blocking the caller: a backlogged
// subscriber must never slow down the protocol endpoint that published
// the event.
func (e *AsyncEmitter) Publish(ctx context.Context, t Type, userID, clientID string, attrs map[string]string) {
	evt := Event{
		ID: uuid.NewString(), Type: t, Timestamp: time.Now().UTC(),
		UserID: userID, ClientID: clientID, Attributes: attrs,
	}
	select {
	case e.queue <- evt:
	default:
		e.logger.Warn("event queue full, dropping event", "event_type", t, "event_id", evt.ID)
	}
}

func (e *AsyncEmitter) run() {
	for evt := range e.queue {
		for _, sub := range e.subs {
			if !sub.filter.allows(evt.Type) {
				continue
			}
			e.deliver(sub.subscriber, evt)
		}
	}
}

func (e *AsyncEmitter) deliver(s Subscriber, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("event subscriber panicked", "event_type", evt.Type, "event_id", evt.ID, "panic", r)
		}
	}()
	s.Handle(context.Background(), evt)
}

// Close closes the queue: events already queued are still delivered,
// then the delivery goroutine exits. Publish panics if called after
// Close, and Close itself may be called at most once.
func (e *AsyncEmitter) Close() {
	close(e.queue)
}
