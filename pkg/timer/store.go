package timer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/harrisonrobin/tally/pkg/clock"
	"github.com/harrisonrobin/tally/pkg/logger"
	"github.com/harrisonrobin/tally/pkg/report"
	"github.com/harrisonrobin/tally/pkg/storage"
)

// StateKey is the storage key the whole collection is written under.
const StateKey = "timers"

// Store owns the timer collection. Every operation holds the store lock for
// its whole duration, so mutations and ticks never interleave.
type Store struct {
	mu      sync.Mutex
	clock   clock.Clock
	adapter storage.Adapter
	timers  []*TaskTimer
}

// Open loads and reconciles the persisted collection and writes the result
// back before returning.
func Open(clk clock.Clock, adapter storage.Adapter) (*Store, error) {
	blob, err := adapter.Read(StateKey)
	if err != nil {
		logger.Warn("could not read timer state, starting fresh", "error", err.Error())
		blob = nil
	}

	s := &Store{
		clock:   clk,
		adapter: adapter,
		timers:  Reconcile(blob, clk.Now()),
	}
	if err := s.persist(); err != nil {
		return nil, err
	}
	return s, nil
}

// List returns a copy of every timer in insertion order.
func (s *Store) List() []TaskTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TaskTimer, 0, len(s.timers))
	for _, t := range s.timers {
		out = append(out, t.clone())
	}
	return out
}

func (s *Store) Get(id string) (TaskTimer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.timers[i].clone(), true
	}
	return TaskTimer{}, false
}

// Resolve expands a unique id prefix into a full timer id. An exact id wins
// over longer ids it is a prefix of.
func (s *Store) Resolve(prefix string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prefix == "" {
		return "", ErrNotFound
	}
	if s.indexOf(prefix) >= 0 {
		return prefix, nil
	}
	var match string
	for _, t := range s.timers {
		if strings.HasPrefix(t.ID, prefix) {
			if match != "" {
				return "", fmt.Errorf("%w: %s", ErrAmbiguous, prefix)
			}
			match = t.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, prefix)
	}
	return match, nil
}

// Add appends a blank timer. The timer is added even when the write-through
// fails; the error only reports the failed write.
func (s *Store) Add() (TaskTimer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := newTimer()
	s.timers = append(s.timers, t)
	return t.clone(), s.persist()
}

// Update merges p into the timer with the given id. Unknown ids are ignored.
func (s *Store) Update(id string, p Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil
	}
	t := s.timers[i]
	if p.ElapsedSeconds != nil && *p.ElapsedSeconds < t.ElapsedSeconds {
		return ErrElapsedDecrease
	}
	if p.TaskRef != nil {
		t.TaskRef = *p.TaskRef
	}
	if p.ElapsedSeconds != nil {
		t.ElapsedSeconds = *p.ElapsedSeconds
	}
	return s.persist()
}

// Delete removes a stopped timer. Unknown ids are ignored; running timers are
// refused with ErrTimerRunning.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil
	}
	if s.timers[i].Running {
		return ErrTimerRunning
	}
	s.remove(i)
	return s.persist()
}

// StartStop toggles the timer with the given id. Any other running timer is
// stopped first, so at most one timer runs afterwards.
func (s *Store) StartStop(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil
	}

	for j, t := range s.timers {
		if j != i && t.Running {
			t.Running = false
			t.LastObservedAt = nil
		}
	}

	t := s.timers[i]
	t.Running = !t.Running
	if t.Running {
		now := s.clock.Now()
		t.LastObservedAt = &now
		logger.Debug("timer started", "id", t.ID)
	} else {
		t.LastObservedAt = nil
		logger.Debug("timer stopped", "id", t.ID, "elapsed", t.Elapsed().String())
	}
	return s.persist()
}

// Tick credits every running timer with the whole seconds since it was last
// observed, one per tick when ticks arrive on time. The sub-second remainder
// carries over to the next tick, so a slow or dropped tick loses nothing. If
// the clock went backwards the observation restarts at now.
func (s *Store) Tick() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	for _, t := range s.timers {
		if !t.Running {
			continue
		}
		if t.LastObservedAt == nil || now.Before(*t.LastObservedAt) {
			at := now
			t.LastObservedAt = &at
			continue
		}
		whole := now.Sub(*t.LastObservedAt) / time.Second
		if whole == 0 {
			continue
		}
		t.ElapsedSeconds += int64(whole)
		at := t.LastObservedAt.Add(whole * time.Second)
		t.LastObservedAt = &at
	}
	return s.persist()
}

// Commit hands a finished timer to r as a quantized report dated date and
// deletes the timer once r accepts it. The timer is kept if r fails.
func (s *Store) Commit(ctx context.Context, id string, r report.Reporter, date time.Time) (report.Report, error) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return report.Report{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	t := s.timers[i].clone()
	s.mu.Unlock()

	switch {
	case t.Running:
		return report.Report{}, ErrTimerRunning
	case t.ElapsedSeconds <= 0:
		return report.Report{}, ErrNothingToCommit
	case t.TaskRef == "":
		return report.Report{}, ErrNoTask
	}

	rep := report.Report{
		TimerID: t.ID,
		TaskID:  t.TaskRef,
		Length:  Quantize(t.ElapsedSeconds),
		Date:    date,
	}
	if err := r.CreateReport(ctx, rep); err != nil {
		return report.Report{}, fmt.Errorf("create report: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		if s.timers[i].Running {
			logger.Warn("timer restarted during commit, discarding it anyway", "id", id)
		}
		s.remove(i)
	}
	logger.Info("timer committed", "id", id, "task", rep.TaskID, "hours", rep.Length)
	return rep, s.persist()
}

func (s *Store) indexOf(id string) int {
	for i, t := range s.timers {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// remove drops the timer at i and reseeds a blank timer if none are left.
func (s *Store) remove(i int) {
	s.timers = append(s.timers[:i], s.timers[i+1:]...)
	if len(s.timers) == 0 {
		s.timers = append(s.timers, newTimer())
	}
}

// persist writes the whole collection. Callers hold s.mu.
func (s *Store) persist() error {
	blob, err := encode(s.timers)
	if err != nil {
		return fmt.Errorf("encode timers: %w", err)
	}
	if err := s.adapter.Write(StateKey, blob); err != nil {
		return fmt.Errorf("persist timers: %w", err)
	}
	return nil
}
