package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/harrisonrobin/tally/pkg/colors"
	"github.com/harrisonrobin/tally/pkg/index"
	"github.com/harrisonrobin/tally/pkg/report"
	"github.com/harrisonrobin/tally/pkg/util"
)

// fakeCalendar is a minimal in-memory Events API.
type fakeCalendar struct {
	mu      sync.Mutex
	events  map[string]*calendar.Event
	inserts int
}

func (f *fakeCalendar) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /calendars/{cal}/events", func(w http.ResponseWriter, r *http.Request) {
		var ev calendar.Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.inserts++
		ev.Id = "evt-" + ev.ExtendedProperties.Private[util.TimerIDProperty]
		f.events[ev.Id] = &ev
		f.mu.Unlock()
		json.NewEncoder(w).Encode(&ev)
	})
	mux.HandleFunc("GET /calendars/{cal}/events", func(w http.ResponseWriter, r *http.Request) {
		want := r.URL.Query().Get("privateExtendedProperty")
		f.mu.Lock()
		defer f.mu.Unlock()
		out := &calendar.Events{Items: []*calendar.Event{}}
		for _, ev := range f.events {
			if util.TimerIDProperty+"="+ev.ExtendedProperties.Private[util.TimerIDProperty] == want {
				out.Items = append(out.Items, ev)
			}
		}
		json.NewEncoder(w).Encode(out)
	})
	mux.HandleFunc("GET /calendars/{cal}/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		ev, ok := f.events[r.PathValue("id")]
		if !ok {
			http.Error(w, `{"error":{"code":404,"message":"Not Found"}}`, http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(ev)
	})
	return mux
}

type describer map[string]string

func (d describer) Describe(id string) string { return d[id] }

func newTestClient(t *testing.T) (*CalendarClient, *fakeCalendar, *index.EventIndex) {
	t.Helper()
	fake := &fakeCalendar{events: map[string]*calendar.Event{}}
	ts := httptest.NewServer(fake.handler())
	t.Cleanup(ts.Close)

	srv, err := calendar.NewService(context.Background(),
		option.WithEndpoint(ts.URL+"/"),
		option.WithHTTPClient(ts.Client()),
	)
	require.NoError(t, err)

	dir := t.TempDir()
	idx, err := index.NewEventIndex(filepath.Join(dir, "events.json"))
	require.NoError(t, err)
	cc, err := colors.NewColorCache(filepath.Join(dir, "colors.json"))
	require.NoError(t, err)

	client := NewCalendarClient(srv, "cal", Options{
		Index:     idx,
		Colors:    cc,
		Describer: describer{"task-1": "Write invoice"},
		StartHour: 8,
	})
	return client, fake, idx
}

func TestCreateReportInsertsEvent(t *testing.T) {
	client, fake, idx := newTestClient(t)
	rep := report.Report{
		TimerID: "t1",
		TaskID:  "task-1",
		Length:  0.5,
		Date:    time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC),
	}

	require.NoError(t, client.CreateReport(context.Background(), rep))

	require.Equal(t, 1, fake.inserts)
	ev := fake.events["evt-t1"]
	require.NotNil(t, ev)
	assert.Equal(t, "Write invoice", ev.Summary)
	assert.Equal(t, "2024-05-06T08:00:00Z", ev.Start.DateTime)
	assert.Equal(t, "2024-05-06T08:30:00Z", ev.End.DateTime)
	assert.Equal(t, "evt-t1", idx.Get("t1"))
}

func TestCreateReportIsIdempotent(t *testing.T) {
	client, fake, idx := newTestClient(t)
	rep := report.Report{TimerID: "t1", TaskID: "task-1", Length: 1, Date: time.Now()}

	require.NoError(t, client.CreateReport(context.Background(), rep))
	require.NoError(t, client.CreateReport(context.Background(), rep))
	assert.Equal(t, 1, fake.inserts)

	// A lost index still finds the event through its extended property.
	idx.Remove("t1")
	require.NoError(t, client.CreateReport(context.Background(), rep))
	assert.Equal(t, 1, fake.inserts)
	assert.Equal(t, "evt-t1", idx.Get("t1"))
}

func TestCreateReportDropsStaleIndexEntry(t *testing.T) {
	client, fake, idx := newTestClient(t)
	idx.Set("t2", "evt-gone")

	rep := report.Report{TimerID: "t2", TaskID: "task-9", Length: 0.25, Date: time.Now()}
	require.NoError(t, client.CreateReport(context.Background(), rep))

	assert.Equal(t, 1, fake.inserts)
	assert.Equal(t, "evt-t2", idx.Get("t2"))
	assert.Equal(t, "task-9", fake.events["evt-t2"].Summary)
}
