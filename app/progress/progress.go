// Package progress reports the state of a long running synchronization as
// a stream of events: overall percentage across steps, refined by the
// ready/total tasks of the current step, plus item counters.
package progress

import (
	"errors"
	"math"
	"sync"
	"time"
)

var (
	ErrAlreadyOpen = errors.New("progress channel already open")
	ErrNotOpen     = errors.New("progress channel not open")
)

type Status string

const (
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

type Counters struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
}

type Event struct {
	Operation string    `json:"operation"`
	Source    string    `json:"source"`
	Status    Status    `json:"status"`
	Step      int       `json:"step"`
	Steps     int       `json:"steps"`
	Message   string    `json:"message,omitempty"`
	Ready     int64     `json:"ready"`
	Total     int64     `json:"total"`
	Percent   float64   `json:"percent"`
	Counters  Counters  `json:"counters"`
	Error     string    `json:"error,omitempty"`
	Time      time.Time `json:"time"`
}

// Terminal reports whether e closes the channel.
func (e Event) Terminal() bool {
	return e.Status == StatusDone || e.Status == StatusFailed
}

// Sink receives events synchronously; implementations must not block.
type Sink interface {
	Send(Event)
}

type SinkFunc func(Event)

func (f SinkFunc) Send(e Event) { f(e) }

// Multi fans events out to every non-nil sink in order.
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(e Event) {
		for _, s := range sinks {
			if s != nil {
				s.Send(e)
			}
		}
	})
}

// Channel is the stateful reporter one orchestrator run writes to. It is
// safe for concurrent use, and reusable after Close.
type Channel struct {
	mu   sync.Mutex
	sink Sink
	open bool
	ev   Event
	// last emitted percent in tenths, to drop redundant task updates
	shown int
}

func New(sink Sink) *Channel {
	if sink == nil {
		sink = SinkFunc(func(Event) {})
	}
	return &Channel{sink: sink}
}

// Open starts a run of steps steps and emits the initial event.
func (c *Channel) Open(operation, source string, steps int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open {
		return ErrAlreadyOpen
	}
	c.open = true
	c.ev = Event{
		Operation: operation,
		Source:    source,
		Status:    StatusRunning,
		Steps:     max(steps, 0),
	}
	c.emit()
	return nil
}

// Step moves to the next step and resets its tasks.
func (c *Channel) Step(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return
	}
	if c.ev.Step < c.ev.Steps {
		c.ev.Step++
	}
	c.ev.Message = message
	c.ev.Ready, c.ev.Total = 0, 0
	c.emit()
}

// Tasks sets the progress within the current step. Events are emitted only
// when the visible percentage moves.
func (c *Channel) Tasks(ready, total int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return
	}
	c.ev.Ready, c.ev.Total = max(ready, 0), max(total, 0)
	if tenths(c.percent()) == c.shown {
		return
	}
	c.emit()
}

// Count records item counters; they ride along with the next event.
func (c *Channel) Count(processed, skipped int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return
	}
	c.ev.Counters = Counters{Processed: processed, Skipped: skipped}
}

// Close emits the terminal event: success when err is nil, failure
// carrying err's message otherwise.
func (c *Channel) Close(err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return ErrNotOpen
	}
	c.open = false

	if err != nil {
		c.ev.Status = StatusFailed
		c.ev.Error = err.Error()
	} else {
		c.ev.Status = StatusDone
		c.ev.Step = c.ev.Steps
		c.ev.Ready, c.ev.Total = 0, 0
	}
	c.emit()
	return nil
}

func (c *Channel) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Last returns the most recent event.
func (c *Channel) Last() Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ev
}

func (c *Channel) emit() {
	c.ev.Percent = c.percent()
	c.ev.Time = time.Now()
	c.shown = tenths(c.ev.Percent)
	c.sink.Send(c.ev)
}

func (c *Channel) percent() float64 {
	return Percent(c.ev.Step, c.ev.Steps, c.ev.Ready, c.ev.Total, c.ev.Status == StatusDone)
}

// Percent is the overall completion of a run at step (1-based) of steps
// with ready of total tasks done in that step.
func Percent(step, steps int, ready, total int64, done bool) float64 {
	if done {
		return 100
	}
	if steps <= 0 || step <= 0 {
		return 0
	}

	within := 0.0
	if total > 0 {
		within = math.Min(float64(ready)/float64(total), 1)
	}
	p := (float64(step-1) + within) / float64(steps) * 100
	return math.Round(math.Min(p, 100)*100) / 100
}

func tenths(p float64) int {
	return int(p * 10)
}
