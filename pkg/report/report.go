package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const dateLayout = "2006-01-02"

// Report is a committed block of billable work.
type Report struct {
	TimerID string    `json:"-"`
	TaskID  string    `json:"task_id"`
	Length  float64   `json:"length"` // hours, in quarter-hour steps
	Date    time.Time `json:"-"`
}

// MarshalJSON writes the date as YYYY-MM-DD.
func (r Report) MarshalJSON() ([]byte, error) {
	type alias Report
	return json.Marshal(struct {
		alias
		Date string `json:"date"`
	}{alias(r), r.Date.Format(dateLayout)})
}

// Reporter creates a report with an external system. A nil error means the
// report exists and the originating timer may be discarded.
type Reporter interface {
	CreateReport(ctx context.Context, r Report) error
}

type journalLine struct {
	TimerID string  `json:"timer_id"`
	TaskID  string  `json:"task_id"`
	Length  float64 `json:"length"`
	Date    string  `json:"date"`
}

// Journal appends reports as JSON lines to a local file.
type Journal struct {
	Path string
	mu   sync.Mutex
}

func NewJournal(path string) *Journal {
	return &Journal{Path: path}
}

func (j *Journal) CreateReport(ctx context.Context, r Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(j.Path), 0700); err != nil {
		return fmt.Errorf("failed to create journal directory: %w", err)
	}
	f, err := os.OpenFile(j.Path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer f.Close()

	line := journalLine{
		TimerID: r.TimerID,
		TaskID:  r.TaskID,
		Length:  r.Length,
		Date:    r.Date.Format(dateLayout),
	}
	if err := json.NewEncoder(f).Encode(line); err != nil {
		return fmt.Errorf("failed to append report: %w", err)
	}
	return nil
}
