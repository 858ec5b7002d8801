package scheduler

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchrank/internal/client"
	"matchrank/internal/parser"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPartitionEvenRange(t *testing.T) {
	// 14 days split cleanly into two 7-day windows.
	windows := Partition(day(2024, 8, 1), day(2024, 8, 14), 7)
	require.Len(t, windows, 2)
	assert.Equal(t, day(2024, 8, 1), windows[0].From)
	assert.Equal(t, day(2024, 8, 7), windows[0].To)
	assert.Equal(t, day(2024, 8, 8), windows[1].From)
	assert.Equal(t, day(2024, 8, 14), windows[1].To)
}

func TestPartitionClipsFinalWindow(t *testing.T) {
	windows := Partition(day(2024, 8, 1), day(2024, 8, 10), 7)
	require.Len(t, windows, 2)
	assert.Equal(t, day(2024, 8, 10), windows[1].To, "Final window must not extend past the end date")
}

func TestPartitionSingleDay(t *testing.T) {
	windows := Partition(day(2024, 8, 1), day(2024, 8, 1), 7)
	require.Len(t, windows, 1)
	assert.Equal(t, windows[0].From, windows[0].To)
}

func TestPartitionStartAfterEnd(t *testing.T) {
	assert.Nil(t, Partition(day(2024, 8, 10), day(2024, 8, 1), 7))
}

// fakeFetcher scripts per-competition behavior.
type fakeFetcher struct {
	mu    sync.Mutex
	calls []string
	// hang lists competitions whose fetch never completes.
	hang map[string]bool
	// fail maps competitions to the error their fetch returns.
	fail map[string]error
}

func (f *fakeFetcher) FetchMatches(ctx context.Context, code, dateFrom, dateTo string) (*client.MatchesPage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, code)
	f.mu.Unlock()

	if f.hang[code] {
		// Outlives the scheduler's bounded wait, then unwinds.
		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
		}
		return nil, context.DeadlineExceeded
	}
	if err := f.fail[code]; err != nil {
		return nil, err
	}
	return &client.MatchesPage{
		Competition: code,
		DateFrom:    dateFrom,
		DateTo:      dateTo,
		Body:        []byte(`{"matches":[]}`),
	}, nil
}

func (f *fakeFetcher) fetched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// fakeIngestor counts ingested bodies.
type fakeIngestor struct {
	mu       sync.Mutex
	calls    int
	inserted int
}

func (f *fakeIngestor) ParseAndStore(_ context.Context, _ string, _ []byte) (*parser.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return &parser.Result{Inserted: f.inserted}, nil
}

func fastOptions(competitions ...string) Options {
	return Options{
		Competitions:     competitions,
		WindowDays:       7,
		CompetitionDelay: time.Millisecond,
		FetchWait:        100 * time.Millisecond,
	}
}

func TestRunProcessesAllWindowsAndCompetitions(t *testing.T) {
	fetcher := &fakeFetcher{}
	ingestor := &fakeIngestor{inserted: 2}
	s := New(fetcher, ingestor, fastOptions("E0", "SP1"))

	summary, err := s.Run(context.Background(), day(2024, 8, 1), day(2024, 8, 14))
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Windows)
	assert.Equal(t, 4, summary.Completed, "Two windows times two competitions")
	assert.Equal(t, 8, summary.Inserted)
	assert.False(t, summary.Stopped)
	assert.Equal(t, StateDone, s.State())
	assert.Len(t, fetcher.fetched(), 4)
}

func TestRunTimeoutDoesNotStallBatch(t *testing.T) {
	fetcher := &fakeFetcher{hang: map[string]bool{"E0": true}}
	ingestor := &fakeIngestor{}
	s := New(fetcher, ingestor, fastOptions("E0", "SP1"))

	summary, err := s.Run(context.Background(), day(2024, 8, 1), day(2024, 8, 7))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.TimedOut)
	assert.Equal(t, 1, summary.Completed, "The hang must not block the next competition")
	assert.Contains(t, fetcher.fetched(), "SP1")
}

func TestRunPermissionErrorOnlySkipsTheCompetition(t *testing.T) {
	denied := &client.APIError{Kind: client.KindPermission, StatusCode: http.StatusForbidden, Competition: "E0", Message: "denied"}
	fetcher := &fakeFetcher{fail: map[string]error{"E0": denied}}
	ingestor := &fakeIngestor{}
	s := New(fetcher, ingestor, fastOptions("E0", "SP1"))

	summary, err := s.Run(context.Background(), day(2024, 8, 1), day(2024, 8, 7))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Errored)
	assert.Equal(t, 1, summary.Completed)
	assert.Equal(t, 1, summary.Windows, "The window still completes")
}

func TestRunStopIsCooperative(t *testing.T) {
	fetcher := &fakeFetcher{}
	ingestor := &fakeIngestor{}
	s := New(fetcher, ingestor, fastOptions("E0"))

	s.Stop()
	summary, err := s.Run(context.Background(), day(2024, 8, 1), day(2024, 9, 30))
	require.NoError(t, err)

	assert.True(t, summary.Stopped)
	assert.Equal(t, 0, summary.Windows)
	assert.Equal(t, StateStopped, s.State())
	assert.Empty(t, fetcher.fetched(), "No fetch may start after a stop request")
}

func TestRunContextCancelStopsRun(t *testing.T) {
	fetcher := &fakeFetcher{}
	ingestor := &fakeIngestor{}
	s := New(fetcher, ingestor, fastOptions("E0"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := s.Run(ctx, day(2024, 8, 1), day(2024, 8, 7))
	require.NoError(t, err)
	assert.True(t, summary.Stopped)
}

func TestRunEmitsProgressEvents(t *testing.T) {
	fetcher := &fakeFetcher{}
	ingestor := &fakeIngestor{}
	s := New(fetcher, ingestor, fastOptions("E0"))

	_, err := s.Run(context.Background(), day(2024, 8, 1), day(2024, 8, 7))
	require.NoError(t, err)

	var types []EventType
	for {
		select {
		case ev := <-s.Events():
			types = append(types, ev.Type)
			continue
		default:
		}
		break
	}

	assert.Equal(t, []EventType{EventWindowStart, EventCompetitionDone, EventWindowDone, EventRunDone}, types)
}

func TestRunEventOverflowDoesNotBlock(t *testing.T) {
	fetcher := &fakeFetcher{}
	ingestor := &fakeIngestor{}
	opts := fastOptions("E0")
	opts.EventBuffer = 1
	s := New(fetcher, ingestor, opts)

	// Nobody drains the events channel; the run must still finish.
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.Run(context.Background(), day(2024, 8, 1), day(2024, 8, 31))
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run blocked on event emission")
	}
}
