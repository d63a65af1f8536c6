package util

import (
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/tally/pkg/report"
)

// TimerIDProperty is the private extended property that ties a calendar event
// to the timer it was committed from.
const TimerIDProperty = "tally_timer_id"

// FormatElapsed renders seconds as H:MM:SS.
func FormatElapsed(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d:%02d", seconds/3600, seconds/60%60, seconds%60)
}

// FormatHours renders billable hours with two decimals, e.g. "1.25h".
func FormatHours(hours float64) string {
	return fmt.Sprintf("%.2fh", hours)
}

// ConvertReportToCalendarEvent builds the calendar event for a committed
// report. The event starts on the report date at startHour (local time of the
// date) and lasts the billed length.
func ConvertReportToCalendarEvent(rep report.Report, title, colorID string, startHour int) (*calendar.Event, error) {
	if rep.TaskID == "" {
		return nil, fmt.Errorf("could not convert report without a task")
	}
	if rep.Length <= 0 {
		return nil, fmt.Errorf("could not convert report of length %v", rep.Length)
	}
	if title == "" {
		title = rep.TaskID
	}

	y, m, d := rep.Date.Date()
	start := time.Date(y, m, d, startHour, 0, 0, 0, rep.Date.Location())
	end := start.Add(time.Duration(rep.Length * float64(time.Hour)))

	var desc strings.Builder
	desc.WriteString("Accounting:\n")
	desc.WriteString(fmt.Sprintf("• billed: %s\n", FormatHours(rep.Length)))
	desc.WriteString(fmt.Sprintf("• date: %s\n", rep.Date.Format("2006-01-02")))
	desc.WriteString(fmt.Sprintf("\nTask: %s\n", rep.TaskID))
	desc.WriteString(fmt.Sprintf("Timer: %s\n", rep.TimerID))

	return &calendar.Event{
		Summary:     title,
		ColorId:     colorID,
		Description: desc.String(),
		Start: &calendar.EventDateTime{
			DateTime: start.Format(time.RFC3339),
		},
		End: &calendar.EventDateTime{
			DateTime: end.Format(time.RFC3339),
		},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{
				TimerIDProperty: rep.TimerID,
				"task_id":       rep.TaskID,
			},
		},
	}, nil
}
