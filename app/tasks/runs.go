package tasks

import (
	"sync"
	"time"

	"github.com/lysyi3m/video-comb/app/progress"
)

const DefaultRunHistory = 100

// Run tracks the outcome and live progress of one submitted task across
// its attempts.
type Run struct {
	ID        string
	Type      TaskType
	Source    string
	Limit     int
	CreatedAt time.Time

	mu         sync.Mutex
	events     *progress.Broadcast
	attempts   int
	done       bool
	count      int
	err        error
	finishedAt time.Time
}

type RunStatus struct {
	ID         string          `json:"id"`
	Type       TaskType        `json:"type"`
	Source     string          `json:"source"`
	Limit      int             `json:"limit,omitempty"`
	Attempts   int             `json:"attempts"`
	Done       bool            `json:"done"`
	Count      int             `json:"count"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Event      *progress.Event `json:"event,omitempty"`
}

func newRun(id string, taskType TaskType, source string, limit int) *Run {
	return &Run{
		ID:        id,
		Type:      taskType,
		Source:    source,
		Limit:     limit,
		CreatedAt: time.Now(),
		events:    progress.NewBroadcast(),
	}
}

// begin starts an attempt and returns the sink for its events. A retry
// gets a fresh broadcast since the previous one ended with its failure.
func (r *Run) begin() progress.Sink {
	r.mu.Lock()
	defer r.mu.Unlock()

	if last, ok := r.events.Last(); ok && last.Terminal() {
		r.events = progress.NewBroadcast()
	}
	r.attempts++
	r.done = false
	return r.events
}

func (r *Run) finish(count int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.done = true
	r.count = count
	r.err = err
	r.finishedAt = time.Now()
}

func (r *Run) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Subscribe follows the events of the current attempt.
func (r *Run) Subscribe() (<-chan progress.Event, func()) {
	r.mu.Lock()
	events := r.events
	r.mu.Unlock()
	return events.Subscribe()
}

func (r *Run) Status() RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := RunStatus{
		ID:        r.ID,
		Type:      r.Type,
		Source:    r.Source,
		Limit:     r.Limit,
		Attempts:  r.attempts,
		Done:      r.done,
		Count:     r.count,
		CreatedAt: r.CreatedAt,
	}
	if r.err != nil {
		s.Error = r.err.Error()
	}
	if r.done {
		at := r.finishedAt
		s.FinishedAt = &at
	}
	if e, ok := r.events.Last(); ok {
		s.Event = &e
	}
	return s
}

// Runs keeps the most recent runs by id. Once full, the oldest finished
// runs are dropped first.
type Runs struct {
	mu    sync.Mutex
	max   int
	byID  map[string]*Run
	order []string
}

func NewRuns(max int) *Runs {
	if max <= 0 {
		max = DefaultRunHistory
	}
	return &Runs{max: max, byID: make(map[string]*Run)}
}

func (rs *Runs) Add(r *Run) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.byID[r.ID] = r
	rs.order = append(rs.order, r.ID)

	for i := 0; len(rs.order) > rs.max && i < len(rs.order); {
		old := rs.byID[rs.order[i]]
		if !old.Status().Done {
			i++
			continue
		}
		delete(rs.byID, old.ID)
		rs.order = append(rs.order[:i], rs.order[i+1:]...)
	}
}

func (rs *Runs) Get(id string) (*Run, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	r, ok := rs.byID[id]
	return r, ok
}

// List returns runs newest first.
func (rs *Runs) List() []RunStatus {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	out := make([]RunStatus, 0, len(rs.order))
	for i := len(rs.order) - 1; i >= 0; i-- {
		out = append(out, rs.byID[rs.order[i]].Status())
	}
	return out
}
