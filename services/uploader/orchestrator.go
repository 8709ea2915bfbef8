package uploader

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"roomsync/config"
	"roomsync/metrics"
	"roomsync/models"
	"roomsync/services/schedule"
	"roomsync/services/session"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SourceStatus summarizes one calendar after a cycle.
type SourceStatus struct {
	Calendar    string `json:"calendar"`
	Events      int    `json:"events"`
	Fingerprint string `json:"fingerprint"`
	Changed     bool   `json:"changed"`
	Error       string `json:"error,omitempty"`
}

// CycleResult describes one polling cycle.
type CycleResult struct {
	ID             string         `json:"id"`
	Started        time.Time      `json:"started"`
	Finished       time.Time      `json:"finished"`
	Sources        []SourceStatus `json:"sources"`
	Pushed         bool           `json:"pushed"`
	Rooms          []string       `json:"rooms,omitempty"`
	SkippedRooms   []string       `json:"skippedRooms,omitempty"`
	Uploads        int            `json:"uploads"`
	Failed         int            `json:"failed"`
	Timeouts       int            `json:"timeouts"`
	RetryScheduled bool           `json:"retryScheduled"`
}

// Options configures an Orchestrator.
type Options struct {
	Sources     []*models.CalendarSource
	Locations   models.Locations
	Feed        EventSource
	Uploader    ScheduleUploader
	Location    *time.Location
	Concurrency int
	Now         func() time.Time
	Logger      *zap.Logger
}

// Orchestrator runs polling cycles: it refreshes every calendar, decides
// whether today's schedules changed and pushes them to the displays.
type Orchestrator struct {
	sources     []*models.CalendarSource
	locations   models.Locations
	feed        EventSource
	uploader    ScheduleUploader
	loc         *time.Location
	concurrency int
	now         func() time.Time
	logger      *zap.Logger

	running atomic.Bool
	// retry is set when an upload timed out; the next cycle pushes again.
	retry atomic.Bool

	mu   sync.RWMutex
	last *CycleResult
}

func NewOrchestrator(opts Options) *Orchestrator {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		sources:     opts.Sources,
		locations:   opts.Locations,
		feed:        opts.Feed,
		uploader:    opts.Uploader,
		loc:         loc,
		concurrency: opts.Concurrency,
		now:         now,
		logger:      logger,
	}
}

// SourcesFromConfig creates empty schedule state for each configured calendar.
func SourcesFromConfig(calendars []config.CalendarConfig) []*models.CalendarSource {
	sources := make([]*models.CalendarSource, 0, len(calendars))
	for _, c := range calendars {
		sources = append(sources, &models.CalendarSource{Class: c.Class, Year: c.Year, Section: c.Section})
	}
	return sources
}

// RunCycle performs one polling cycle. Only one cycle runs at a time; a
// call made while another is in progress returns ErrCycleInProgress.
func (o *Orchestrator) RunCycle(ctx context.Context) (CycleResult, error) {
	if !o.running.CompareAndSwap(false, true) {
		o.logger.Warn("Previous sync cycle still running, skipping trigger")
		metrics.CyclesTotal.WithLabelValues("skipped").Inc()
		return CycleResult{}, ErrCycleInProgress
	}
	defer o.running.Store(false)

	res := CycleResult{ID: uuid.NewString(), Started: o.now()}
	logger := o.logger.With(zap.String("cycle", res.ID))
	now := res.Started.In(o.loc)

	changed := o.refresh(ctx, logger, now, &res)
	if changed || o.retry.Load() {
		o.retry.Store(false)
		o.push(ctx, logger, now, &res)
		res.Pushed = true
	} else {
		logger.Debug("No schedule changes")
	}
	res.RetryScheduled = o.retry.Load()
	res.Finished = o.now()

	outcome := "unchanged"
	if res.Pushed {
		outcome = "pushed"
	}
	metrics.CyclesTotal.WithLabelValues(outcome).Inc()
	metrics.CycleDuration.Observe(res.Finished.Sub(res.Started).Seconds())

	o.mu.Lock()
	o.last = &res
	o.mu.Unlock()
	return res, nil
}

// refresh fetches and rebuilds every calendar concurrently. A failing feed
// leaves its calendar untouched for this cycle.
func (o *Orchestrator) refresh(ctx context.Context, logger *zap.Logger, now time.Time, res *CycleResult) bool {
	statuses := make([]SourceStatus, len(o.sources))
	var g errgroup.Group
	for i, src := range o.sources {
		g.Go(func() error {
			status := SourceStatus{Calendar: src.Key()}
			defer func() {
				status.Events = len(src.Events)
				status.Fingerprint = src.Fingerprint
				statuses[i] = status
			}()

			raw, err := o.feed.Fetch(ctx, src)
			if err != nil {
				metrics.FeedFetchErrorsTotal.WithLabelValues(src.Key()).Inc()
				logger.Error("Failed to fetch calendar", zap.String("calendar", src.Key()), zap.Error(err))
				status.Error = err.Error()
				return nil
			}
			changed, err := schedule.Rebuild(src, raw, now, o.loc)
			if err != nil {
				logger.Error("Failed to rebuild calendar", zap.String("calendar", src.Key()), zap.Error(err))
				status.Error = err.Error()
				return nil
			}
			status.Changed = changed
			if changed {
				logger.Info("Calendar changed", zap.String("calendar", src.Key()), zap.Int("events", len(src.Events)))
			}
			return nil
		})
	}
	g.Wait()

	res.Sources = statuses
	changed := false
	for _, s := range statuses {
		changed = changed || s.Changed
	}
	return changed
}

// push uploads today's entries of every room to each of its displays.
func (o *Orchestrator) push(ctx context.Context, logger *zap.Logger, now time.Time, res *CycleResult) {
	today := schedule.Today(schedule.Merge(o.sources), now)

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	if o.concurrency > 0 {
		g.SetLimit(o.concurrency)
	}

	for _, room := range schedule.Rooms(today) {
		devices := o.locations.Devices(room)
		if len(devices) == 0 {
			logger.Info("Skipping room", zap.Error(&ConfigurationError{Room: room}))
			res.SkippedRooms = append(res.SkippedRooms, room)
			continue
		}
		entries := schedule.ForRoom(today, room)
		res.Rooms = append(res.Rooms, room)

		for _, device := range devices {
			g.Go(func() error {
				err := o.uploader.UploadSchedule(ctx, device.MAC, entries)

				mu.Lock()
				defer mu.Unlock()
				res.Uploads++
				fields := []zap.Field{zap.String("room", device.Room), zap.String("mac", device.MAC)}
				switch {
				case err == nil:
					metrics.UploadsTotal.WithLabelValues("ok").Inc()
					logger.Info("Uploaded schedule", append(fields, zap.Int("entries", len(entries)))...)
				case session.IsTimeout(err):
					res.Timeouts++
					o.retry.Store(true)
					metrics.UploadsTotal.WithLabelValues("timeout").Inc()
					logger.Warn("Upload timed out, retrying next cycle", append(fields, zap.Error(err))...)
				default:
					res.Failed++
					metrics.UploadsTotal.WithLabelValues("error").Inc()
					logger.Error("Upload failed", append(fields, zap.Error(err))...)
				}
				return nil
			})
		}
	}
	g.Wait()
}

// LastResult returns the most recent finished cycle, if any.
func (o *Orchestrator) LastResult() (CycleResult, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.last == nil {
		return CycleResult{}, false
	}
	return *o.last, true
}

// Running reports whether a cycle is in progress.
func (o *Orchestrator) Running() bool {
	return o.running.Load()
}
