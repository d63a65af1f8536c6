package timer

import (
	"time"

	"github.com/google/uuid"

	"github.com/harrisonrobin/tally/pkg/logger"
)

// Reconcile rebuilds the timer collection from a persisted blob and folds in
// the wall-clock time that passed while nothing was ticking. It never fails:
// a missing or unreadable blob yields a single blank timer.
func Reconcile(blob []byte, now time.Time) []*TaskTimer {
	var recs []record
	if len(blob) > 0 {
		var err error
		recs, err = decode(blob)
		if err != nil {
			logger.Warn("discarding unreadable timer state", "error", err.Error())
			recs = nil
		}
	}

	nowMs := now.UnixMilli()
	seen := make(map[string]bool, len(recs))
	timers := make([]*TaskTimer, 0, len(recs))
	observed := make(map[*TaskTimer]int64)
	var newest *TaskTimer

	for _, r := range recs {
		t := &TaskTimer{
			ID:             r.ID,
			TaskRef:        r.TaskID,
			ElapsedSeconds: r.TimeSpent,
			Running:        r.IsRunning,
		}
		if t.ID == "" || seen[t.ID] {
			t.ID = uuid.New().String()
		}
		seen[t.ID] = true
		if t.ElapsedSeconds < 0 {
			t.ElapsedSeconds = 0
		}

		if t.Running {
			at := nowMs
			if r.LastUpdate != nil {
				at = *r.LastUpdate
			}
			observed[t] = at
			if newest == nil || at > observed[newest] {
				newest = t
			}
		}
		timers = append(timers, t)
	}

	// Two writers may have left more than one timer running. The one observed
	// last keeps running; the others stop and are credited only up to its
	// observation, since it had taken over by then.
	for _, t := range timers {
		if !t.Running {
			continue
		}
		until := nowMs
		if t != newest && observed[newest] < until {
			until = observed[newest]
		}
		if delta := (until - observed[t]) / 1000; delta > 0 {
			t.ElapsedSeconds += delta
		}
		if t == newest {
			at := now
			t.LastObservedAt = &at
		} else {
			t.Running = false
		}
	}

	if len(timers) == 0 {
		timers = append(timers, newTimer())
	}
	return timers
}

func newTimer() *TaskTimer {
	return &TaskTimer{ID: uuid.New().String()}
}
