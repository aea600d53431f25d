// Package scheduler runs aggregation passes on a cron schedule.
package scheduler

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/user/contestcal/internal/aggregator"
	"github.com/user/contestcal/internal/config"
	"github.com/user/contestcal/pkg/logger"
)

// Refresher runs one aggregation pass.
type Refresher interface {
	Refresh(ctx context.Context) (*aggregator.Summary, error)
}

// Scheduler triggers a refresh on every cron tick. A tick that fires while
// the previous pass is still running is skipped.
type Scheduler struct {
	c          *cron.Cron
	refresher  Refresher
	spec       string
	runOnStart bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler for the aggregation config. It does not start it.
func New(cfg config.AggregationConfig, refresher Refresher) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())

	cl := cronLogger{log: logger.With("scheduler")}
	s := &Scheduler{
		c:          cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		refresher:  refresher,
		spec:       cfg.Cron,
		runOnStart: cfg.RunOnStart,
		ctx:        ctx,
		cancel:     cancel,
	}

	if _, err := s.c.AddFunc(cfg.Cron, s.run); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

// Start begins the cron loop and, if configured, one immediate pass.
func (s *Scheduler) Start() {
	if s.runOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.run()
		}()
	}
	s.c.Start()
	logger.Info().Str("cron", s.spec).Bool("run_on_start", s.runOnStart).Msg("Scheduler started")
}

// Stop cancels a running pass and waits for it to return.
func (s *Scheduler) Stop() {
	logger.Info().Msg("Stopping scheduler")
	s.cancel()
	<-s.c.Stop().Done()
	s.wg.Wait()
}

func (s *Scheduler) run() {
	if s.ctx.Err() != nil {
		return
	}
	summary, err := s.refresher.Refresh(s.ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Scheduled aggregation failed")
		return
	}
	logger.Debug().Str("run_id", summary.RunID).Int("stored", summary.Stored).Msg("Scheduled aggregation done")
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
