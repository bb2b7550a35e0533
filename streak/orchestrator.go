package streak

import (
	"context"
	"errors"
	"sync"
	"time"

	"skystreak/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

var (
	runsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skystreak_runs_started_total",
		Help: "The total number of streak computations started",
	})

	runsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "skystreak_runs_dropped_total",
		Help: "The total number of triggers dropped because a run was in flight",
	})
)

// DefaultDebounce is the quiet period collapsing bursts of readiness signals
// into one run.
const DefaultDebounce = 300 * time.Millisecond

// Display receives the outcome of each run. A new result or error replaces
// whatever was shown before; errors are never stacked.
type Display interface {
	ShowRefreshing(handle string)
	ShowStreak(result models.StreakResult)
	ShowError(handle string, message string)
}

// Resolver turns a configured handle into its canonical form.
type Resolver interface {
	ResolveHandle(ctx context.Context, handle string) (string, error)
}

// RecordStore persists the last computed result per handle.
type RecordStore interface {
	Put(ctx context.Context, handle string, record models.StreakRecord) error
	Delete(ctx context.Context, handle string) error
}

// Orchestrator sequences one account's streak computation: debounced
// readiness triggers, immediate refreshes, single-flight execution and
// delivery to the display.
type Orchestrator struct {
	handle   string
	resolver Resolver
	index    *Index
	today    *TodayChecker
	calc     *Calculator
	store    RecordStore
	display  Display

	// Single-permit guard: concurrent triggers are dropped, not queued.
	sem *semaphore.Weighted

	mu       sync.Mutex
	pending  *time.Timer
	debounce time.Duration

	now func() time.Time
}

func NewOrchestrator(handle string, resolver Resolver, index *Index, today *TodayChecker, calc *Calculator, store RecordStore, display Display) *Orchestrator {
	return &Orchestrator{
		handle:   handle,
		resolver: resolver,
		index:    index,
		today:    today,
		calc:     calc,
		store:    store,
		display:  display,
		sem:      semaphore.NewWeighted(1),
		debounce: DefaultDebounce,
		now:      time.Now,
	}
}

// Ready schedules a run after the quiet period. A new signal cancels any
// pending not-yet-started run and reschedules; a run that has already started
// is unaffected.
func (o *Orchestrator) Ready(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pending != nil {
		o.pending.Stop()
	}
	o.pending = time.AfterFunc(o.debounce, func() {
		if !o.sem.TryAcquire(1) {
			runsDropped.Inc()
			return
		}
		defer o.sem.Release(1)
		o.compute(ctx)
	})
}

// Refresh bypasses the debounce, clears the day cache and the persisted
// record, and recomputes from scratch. Returns false when a run is already in
// flight; the request is dropped with no effect on that run.
func (o *Orchestrator) Refresh(ctx context.Context) bool {
	if !o.sem.TryAcquire(1) {
		runsDropped.Inc()
		log.WithFields(log.Fields{
			"handle": o.handle,
		}).Info("Refresh dropped, run already in flight")
		return false
	}

	go func() {
		defer o.sem.Release(1)

		o.index.Reset()
		if err := o.store.Delete(ctx, o.handle); err != nil {
			log.WithFields(log.Fields{
				"handle": o.handle,
				"error":  err,
			}).Warn("Failed to clear persisted streak record")
		}

		o.compute(ctx)
	}()

	return true
}

func (o *Orchestrator) compute(ctx context.Context) {
	runsStarted.Inc()
	o.display.ShowRefreshing(o.handle)

	resolved, err := o.resolver.ResolveHandle(ctx, o.handle)
	if err != nil {
		o.fail(err)
		return
	}

	postedToday := o.today.HasPostedToday(ctx, resolved)

	historical, err := o.calc.Historical(ctx, resolved, models.DayOf(o.now()))
	if err != nil {
		o.fail(err)
		return
	}

	total := historical
	if postedToday {
		total++
	}

	record := models.StreakRecord{
		CheckedAt: o.now(),
		Count:     total,
	}
	if err := o.store.Put(ctx, o.handle, record); err != nil {
		o.fail(err)
		return
	}

	log.WithFields(log.Fields{
		"handle":      o.handle,
		"count":       total,
		"postedToday": postedToday,
	}).Info("Streak computed")

	o.display.ShowStreak(models.StreakResult{
		Handle:      o.handle,
		Count:       total,
		PostedToday: postedToday,
		CheckedAt:   record.CheckedAt,
	})
}

func (o *Orchestrator) fail(err error) {
	log.WithFields(log.Fields{
		"handle": o.handle,
		"error":  err,
	}).Error("Streak computation failed")

	o.display.ShowError(o.handle, userMessage(err))
}

// userMessage maps an internal error to the single message shown to users.
func userMessage(err error) string {
	var identityErr *models.IdentityResolutionError
	var netErr *models.NetworkError
	var malformedErr *models.MalformedResponseError

	switch {
	case errors.As(err, &identityErr):
		return "Could not resolve the account handle"
	case errors.As(err, &netErr):
		return "Bluesky is unreachable right now, try again later"
	case errors.As(err, &malformedErr):
		return "Bluesky returned an unexpected response"
	default:
		return "Could not compute the streak"
	}
}
