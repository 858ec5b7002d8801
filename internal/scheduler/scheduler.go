// Package scheduler drives batched ingestion: it partitions a date range into
// fixed-size windows, fetches each competition sequentially within a window,
// and hands successful responses to the parser. One fetch is in flight at a
// time; a bounded wait keeps an unresponsive competition from stalling a batch.
package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"matchrank/internal/client"
	"matchrank/internal/metrics"
	"matchrank/internal/parser"
)

// State is the scheduler lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopped
	StateDone
)

// Outcome is the terminal status of one competition fetch within a window.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeTimedOut  Outcome = "timed_out"
	OutcomeErrored   Outcome = "errored"
)

// EventType tags progress events for the presentation collaborator.
type EventType string

const (
	EventWindowStart     EventType = "window_start"
	EventCompetitionDone EventType = "competition_done"
	EventWindowDone      EventType = "window_done"
	EventRunDone         EventType = "run_done"
)

// Event is one progress notification.
type Event struct {
	Type        EventType
	Window      Window
	Competition string
	Outcome     Outcome
	Inserted    int
	Skipped     int
	Message     string
}

// Window is one batch date sub-range, inclusive on both ends.
type Window struct {
	From time.Time
	To   time.Time
}

// Partition splits [start, end] into windows of the given day count computed
// forward from start; the final window is clipped to end. Returns nil when
// start is after end.
func Partition(start, end time.Time, days int) []Window {
	start = start.Truncate(24 * time.Hour)
	end = end.Truncate(24 * time.Hour)
	if start.After(end) {
		return nil
	}

	var windows []Window
	for cur := start; !cur.After(end); cur = cur.AddDate(0, 0, days) {
		to := cur.AddDate(0, 0, days-1)
		if to.After(end) {
			to = end
		}
		windows = append(windows, Window{From: cur, To: to})
	}
	return windows
}

// Fetcher performs one bounded fetch for a (competition, date-range) window.
type Fetcher interface {
	FetchMatches(ctx context.Context, competitionCode, dateFrom, dateTo string) (*client.MatchesPage, error)
}

// Ingestor persists one fetched response.
type Ingestor interface {
	ParseAndStore(ctx context.Context, competitionCode string, body []byte) (*parser.Result, error)
}

// Options configures one scheduler instance.
type Options struct {
	Competitions     []string
	WindowDays       int
	CompetitionDelay time.Duration
	FetchWait        time.Duration
	EventBuffer      int
}

func (o *Options) withDefaults() {
	if o.WindowDays <= 0 {
		o.WindowDays = 7
	}
	if o.CompetitionDelay <= 0 {
		o.CompetitionDelay = 1 * time.Second
	}
	if o.FetchWait <= 0 {
		o.FetchWait = 45 * time.Second
	}
	if o.EventBuffer <= 0 {
		o.EventBuffer = 64
	}
}

// Summary reports one completed (or stopped) run.
type Summary struct {
	Windows   int
	Completed int
	TimedOut  int
	Errored   int
	Inserted  int
	Skipped   int
	Stopped   bool
}

// Scheduler runs the batched ingestion loop. One instance supports one run at
// a time; Stop is cooperative and only prevents further iterations.
type Scheduler struct {
	fetcher  Fetcher
	ingestor Ingestor
	opts     Options

	state  atomic.Int32
	stop   atomic.Bool
	events chan Event
}

// New creates a scheduler over a fetcher and an ingestor.
func New(fetcher Fetcher, ingestor Ingestor, opts Options) *Scheduler {
	opts.withDefaults()
	return &Scheduler{
		fetcher:  fetcher,
		ingestor: ingestor,
		opts:     opts,
		events:   make(chan Event, opts.EventBuffer),
	}
}

// Events exposes progress notifications. Events are dropped, not blocked on,
// when no consumer keeps up; they are advisory.
func (s *Scheduler) Events() <-chan Event {
	return s.events
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Stop requests a cooperative stop. The flag is checked at the top of each
// window and competition iteration; an in-flight wait is not cancelled.
func (s *Scheduler) Stop() {
	s.stop.Store(true)
	log.Info().Msg("Scheduler stop requested")
}

// Run processes every window of [start, end] sequentially. Records committed
// before a stop or failure stay committed; nothing is rolled back.
func (s *Scheduler) Run(ctx context.Context, start, end time.Time) (*Summary, error) {
	runStart := time.Now()
	s.state.Store(int32(StateRunning))
	summary := &Summary{}

	defer func() {
		if summary.Stopped {
			s.state.Store(int32(StateStopped))
		} else {
			s.state.Store(int32(StateDone))
		}
		metrics.RunDuration.Observe(time.Since(runStart).Seconds())
		s.emit(Event{Type: EventRunDone, Inserted: summary.Inserted, Skipped: summary.Skipped})
	}()

	windows := Partition(start, end, s.opts.WindowDays)
	log.Info().
		Int("windows", len(windows)).
		Int("competitions", len(s.opts.Competitions)).
		Time("start", start).
		Time("end", end).
		Msg("Ingestion run starting")

	for _, window := range windows {
		if s.stopping(ctx) {
			summary.Stopped = true
			return summary, nil
		}

		s.emit(Event{Type: EventWindowStart, Window: window})
		log.Info().
			Time("from", window.From).
			Time("to", window.To).
			Msg("Batch window starting")

		for i, code := range s.opts.Competitions {
			if s.stopping(ctx) {
				summary.Stopped = true
				return summary, nil
			}
			if i > 0 {
				// Fixed inter-request delay to respect the feed's rate limits.
				if !s.sleep(ctx, s.opts.CompetitionDelay) {
					summary.Stopped = true
					return summary, nil
				}
			}
			s.runCompetition(ctx, code, window, summary)
		}

		summary.Windows++
		metrics.WindowsProcessed.Inc()
		s.emit(Event{Type: EventWindowDone, Window: window})
	}

	log.Info().
		Int("windows", summary.Windows).
		Int("inserted", summary.Inserted).
		Int("timed_out", summary.TimedOut).
		Int("errored", summary.Errored).
		Dur("duration", time.Since(runStart)).
		Msg("Ingestion run complete")
	return summary, nil
}

type fetchResult struct {
	page *client.MatchesPage
	err  error
}

// runCompetition dispatches one fetch asynchronously and blocks on the result
// with a bounded wait. A timeout marks the competition TimedOut and the batch
// moves on; the abandoned goroutine drains into a buffered channel.
func (s *Scheduler) runCompetition(ctx context.Context, code string, window Window, summary *Summary) {
	from := window.From.Format("2006-01-02")
	to := window.To.Format("2006-01-02")

	resultCh := make(chan fetchResult, 1)
	go func() {
		page, err := s.fetcher.FetchMatches(ctx, code, from, to)
		resultCh <- fetchResult{page: page, err: err}
	}()

	wait := time.NewTimer(s.opts.FetchWait)
	defer wait.Stop()

	select {
	case res := <-resultCh:
		if res.err != nil {
			s.recordError(code, window, res.err, summary)
			return
		}
		s.ingest(ctx, code, window, res.page, summary)

	case <-wait.C:
		log.Warn().
			Str("competition", code).
			Dur("wait", s.opts.FetchWait).
			Msg("Fetch did not complete within wait, marking timed out")
		summary.TimedOut++
		metrics.RecordCompetitionOutcome(code, string(OutcomeTimedOut))
		s.emit(Event{
			Type:        EventCompetitionDone,
			Window:      window,
			Competition: code,
			Outcome:     OutcomeTimedOut,
			Message:     "fetch did not complete within wait",
		})

	case <-ctx.Done():
		summary.Stopped = true
	}
}

func (s *Scheduler) ingest(ctx context.Context, code string, window Window, page *client.MatchesPage, summary *Summary) {
	res, err := s.ingestor.ParseAndStore(ctx, code, page.Body)
	if res != nil {
		summary.Inserted += res.Inserted
		summary.Skipped += res.Skipped
	}
	if err != nil {
		s.recordError(code, window, err, summary)
		return
	}

	summary.Completed++
	metrics.RecordCompetitionOutcome(code, string(OutcomeCompleted))
	s.emit(Event{
		Type:        EventCompetitionDone,
		Window:      window,
		Competition: code,
		Outcome:     OutcomeCompleted,
		Inserted:    res.Inserted,
		Skipped:     res.Skipped,
	})
}

// recordError surfaces a competition failure and advances the run. Permission
// and rate-limit failures are fatal only for the competition, never the run.
func (s *Scheduler) recordError(code string, window Window, err error, summary *Summary) {
	kind := "error"
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		kind = string(apiErr.Kind)
	}

	log.Error().
		Err(err).
		Str("competition", code).
		Str("kind", kind).
		Msg("Competition fetch failed, continuing run")

	summary.Errored++
	metrics.RecordCompetitionOutcome(code, string(OutcomeErrored))
	metrics.RecordError("scheduler", kind)
	s.emit(Event{
		Type:        EventCompetitionDone,
		Window:      window,
		Competition: code,
		Outcome:     OutcomeErrored,
		Message:     err.Error(),
	})
}

// stopping reports whether the run should end before the next iteration.
func (s *Scheduler) stopping(ctx context.Context) bool {
	return s.stop.Load() || ctx.Err() != nil
}

// sleep waits for d unless the context ends first. Returns false on cancel.
func (s *Scheduler) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func (s *Scheduler) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
	}
}
