package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"roomsync/services/uploader"

	cronlib "github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const DefaultSpec = "@every 1m"

// Runner runs one polling cycle.
type Runner interface {
	RunCycle(ctx context.Context) (uploader.CycleResult, error)
}

// Scheduler fires the polling cycle once at startup and then on a cron spec.
type Scheduler struct {
	cron   *cronlib.Cron
	runner Runner
	logger *zap.Logger
	ctx    context.Context

	startup sync.WaitGroup
}

// NewScheduler validates spec and registers the polling job. Ticks that fire
// while the previous job is still running are skipped.
func NewScheduler(spec string, runner Runner, logger *zap.Logger) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := zapLogger{logger.Sugar()}
	s := &Scheduler{
		cron: cronlib.New(
			cronlib.WithLogger(cl),
			cronlib.WithChain(cronlib.Recover(cl), cronlib.SkipIfStillRunning(cl)),
		),
		runner: runner,
		logger: logger,
		ctx:    context.Background(),
	}
	if _, err := s.cron.AddFunc(spec, func() { s.run("tick") }); err != nil {
		return nil, fmt.Errorf("invalid poll schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start runs a cycle right away and starts the cron loop. It stops when ctx
// is cancelled; the returned channel closes once the startup run and any
// running cron jobs have finished.
func (s *Scheduler) Start(ctx context.Context) <-chan struct{} {
	s.ctx = ctx
	done := make(chan struct{})

	s.logger.Info("[Scheduler] Starting polling scheduler")
	s.startup.Add(1)
	go func() {
		defer s.startup.Done()
		s.run("startup")
	}()
	s.cron.Start()

	go func() {
		<-ctx.Done()
		s.logger.Info("[Scheduler] Shutdown signal received")
		<-s.cron.Stop().Done()
		s.startup.Wait()
		close(done)
	}()
	return done
}

func (s *Scheduler) run(trigger string) {
	res, err := s.runner.RunCycle(s.ctx)
	switch {
	case errors.Is(err, uploader.ErrCycleInProgress):
		s.logger.Info("[Scheduler] Cycle skipped, previous one still running", zap.String("trigger", trigger))
	case err != nil:
		s.logger.Error("[Scheduler] Cycle failed", zap.String("trigger", trigger), zap.Error(err))
	default:
		s.logger.Debug("[Scheduler] Cycle finished",
			zap.String("trigger", trigger),
			zap.String("cycle", res.ID),
			zap.Bool("pushed", res.Pushed),
			zap.Int("uploads", res.Uploads))
	}
}

// zapLogger adapts zap to cron's logger interface.
type zapLogger struct {
	s *zap.SugaredLogger
}

func (l zapLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l zapLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
