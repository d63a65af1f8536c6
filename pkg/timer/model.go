// Package timer is the task timer engine: a collection of stopwatches of which
// at most one runs at a time, persisted on every change and reconciled against
// the wall clock when loaded.
package timer

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("timer not found")
	ErrAmbiguous       = errors.New("timer id prefix is ambiguous")
	ErrTimerRunning    = errors.New("timer is running")
	ErrNothingToCommit = errors.New("timer has no elapsed time")
	ErrNoTask          = errors.New("timer has no task assigned")
	ErrElapsedDecrease = errors.New("elapsed time cannot decrease")
)

// TaskTimer is one stopwatch. LastObservedAt is set exactly when Running is
// true.
type TaskTimer struct {
	ID             string
	TaskRef        string // empty until a task is chosen
	ElapsedSeconds int64
	Running        bool
	LastObservedAt *time.Time
}

// Elapsed returns the accumulated time as a duration.
func (t TaskTimer) Elapsed() time.Duration {
	return time.Duration(t.ElapsedSeconds) * time.Second
}

func (t *TaskTimer) clone() TaskTimer {
	c := *t
	if t.LastObservedAt != nil {
		at := *t.LastObservedAt
		c.LastObservedAt = &at
	}
	return c
}

// Patch holds the fields Update merges into a timer. Nil fields are left
// alone.
type Patch struct {
	TaskRef        *string
	ElapsedSeconds *int64
}

// record is the persisted form of a TaskTimer.
type record struct {
	ID         string `json:"id"`
	TaskID     string `json:"task_id"`
	TimeSpent  int64  `json:"timeSpent"`
	IsRunning  bool   `json:"isRunning"`
	LastUpdate *int64 `json:"lastUpdate,omitempty"` // epoch milliseconds
}

func encode(timers []*TaskTimer) ([]byte, error) {
	recs := make([]record, 0, len(timers))
	for _, t := range timers {
		r := record{
			ID:        t.ID,
			TaskID:    t.TaskRef,
			TimeSpent: t.ElapsedSeconds,
			IsRunning: t.Running,
		}
		if t.Running && t.LastObservedAt != nil {
			ms := t.LastObservedAt.UnixMilli()
			r.LastUpdate = &ms
		}
		recs = append(recs, r)
	}
	return json.Marshal(recs)
}

func decode(blob []byte) ([]record, error) {
	var recs []record
	if err := json.Unmarshal(blob, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}
