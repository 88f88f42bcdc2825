package maintenance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// DefaultSchedule runs maintenance once a day at midnight
const DefaultSchedule = "@daily"

// Disabled is the schedule value that turns maintenance off
const Disabled = "off"

// runTimeout bounds a single maintenance pass
const runTimeout = 5 * time.Minute

// Optimizer refreshes store statistics; *database.DB satisfies it
type Optimizer interface {
	Optimize(ctx context.Context) error
}

// Scheduler runs store maintenance on a cron schedule
type Scheduler struct {
	db       Optimizer
	schedule string
	cron     *cron.Cron
	entryID  cron.EntryID
	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	running  bool
}

// New creates a scheduler. An empty or Disabled schedule turns it off.
func New(db Optimizer, schedule string) *Scheduler {
	return &Scheduler{
		db:       db,
		schedule: schedule,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// Start registers the job and starts cron
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if s.schedule == "" || s.schedule == Disabled {
		log.Info().Msg("Database maintenance disabled")
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())

	id, err := s.cron.AddFunc(s.schedule, s.scheduledRun)
	if err != nil {
		s.cancel()
		return fmt.Errorf("invalid maintenance schedule %q: %w", s.schedule, err)
	}
	s.entryID = id

	s.cron.Start()
	s.running = true

	log.Info().
		Str("schedule", s.schedule).
		Time("next_run", s.cron.Entry(id).Next).
		Msg("Database maintenance scheduler started")
	return nil
}

// Stop cancels any in-flight run and waits for cron to drain
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.cron.Remove(s.entryID)
	s.entryID = 0
	s.mu.Unlock()

	// Released before waiting: a job in flight takes the lock in scheduledRun.
	ctx := s.cron.Stop()
	<-ctx.Done()

	log.Info().Msg("Database maintenance scheduler stopped")
}

// RunNow performs one maintenance pass synchronously
func (s *Scheduler) RunNow(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	start := time.Now()
	if err := s.db.Optimize(ctx); err != nil {
		return err
	}
	log.Debug().Dur("duration", time.Since(start)).Msg("Database maintenance completed")
	return nil
}

// scheduledRun is called by cron
func (s *Scheduler) scheduledRun() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	if err := s.RunNow(ctx); err != nil {
		log.Error().Err(err).Msg("Scheduled database maintenance failed")
	}
}
