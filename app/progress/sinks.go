package progress

import (
	"log/slog"
	"sync"
)

const subscriberBuffer = 64

// Broadcast keeps the latest event and fans events out to subscribers.
// Slow subscribers lose their oldest buffered events, never the newest.
type Broadcast struct {
	mu     sync.Mutex
	last   Event
	seen   bool
	closed bool
	subs   map[chan Event]struct{}
}

func NewBroadcast() *Broadcast {
	return &Broadcast{subs: make(map[chan Event]struct{})}
}

func (b *Broadcast) Send(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.last, b.seen = e, true
	for ch := range b.subs {
		push(ch, e)
	}
	if e.Terminal() {
		b.closed = true
		for ch := range b.subs {
			close(ch)
		}
		b.subs = nil
	}
}

// Last returns the latest event and whether any was sent.
func (b *Broadcast) Last() (Event, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last, b.seen
}

// Subscribe returns a channel that starts with the latest event and is
// closed after the terminal one. cancel detaches it early.
func (b *Broadcast) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if b.seen {
		ch <- b.last
	}
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	b.subs[ch] = struct{}{}
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[ch]; ok {
				delete(b.subs, ch)
				close(ch)
			}
		})
	}
}

func push(ch chan Event, e Event) {
	for {
		select {
		case ch <- e:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// LogSink writes step changes and the terminal event to logger.
func LogSink(logger *slog.Logger) Sink {
	if logger == nil {
		logger = slog.Default()
	}
	var step int
	return SinkFunc(func(e Event) {
		attrs := []any{
			"operation", e.Operation,
			"source", e.Source,
			"percent", e.Percent,
			"processed", e.Counters.Processed,
			"skipped", e.Counters.Skipped,
		}
		switch {
		case e.Status == StatusFailed:
			logger.Error("Run failed", append(attrs, "error", e.Error)...)
		case e.Status == StatusDone:
			logger.Info("Run completed", attrs...)
		case e.Step != step:
			step = e.Step
			logger.Info("Run step", append(attrs, "step", e.Step, "steps", e.Steps, "message", e.Message)...)
		default:
			logger.Debug("Run progress", attrs...)
		}
	})
}
