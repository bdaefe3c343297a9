package archive

import (
	"cgd/internal/archive/interfaces"
	"cgd/internal/guard"
	"cgd/internal/providers"
	"cgd/internal/structures"
	"context"
	"sync"
	"time"

	"github.com/roylee0704/gron"
)

type Scheduler struct {
	config   *structures.Config
	logger   providers.Logger
	archiver *Archiver
	limiter  guard.LimiterInterface
	cron     *gron.Cron
	opsMu    sync.Mutex
}

func (s *Scheduler) Init() {
	s.cron = gron.New()

	if s.archiver.Enabled() {
		s.cron.AddFunc(gron.Every(s.config.Archive.Interval), func() {
			s.opsMu.Lock()
			defer s.opsMu.Unlock()

			if _, err := s.archiver.Run(context.Background()); err != nil {
				s.logger.Errorf(providers.TypeApp, "Error while archiving events: %s", err)
			}
		})
	}

	sweep := s.config.RateLimit.SweepInterval
	if sweep <= 0 {
		sweep = 5 * time.Minute
	}
	s.cron.AddFunc(gron.Every(sweep), func() {
		s.limiter.Sweep()
		allowed, rejected := s.limiter.Totals()
		s.logger.Debugf(providers.TypeApp, "Rate limiter swept: %d buckets live, %d/%d allowed/rejected", s.limiter.Len(), allowed, rejected)
	})

	s.cron.Start()
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Flush runs a final archive pass during shutdown.
func (s *Scheduler) Flush() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	if !s.archiver.Enabled() {
		return nil
	}
	s.logger.Infof(providers.TypeApp, "Flushing expired events to cold storage...")
	if _, err := s.archiver.Run(context.Background()); err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while flushing archive: %s", err)
		return err
	}
	return nil
}

func NewScheduler(config *structures.Config, logger providers.Logger, archiver *Archiver, limiter guard.LimiterInterface) interfaces.SchedulerInterface {
	return &Scheduler{
		config:   config,
		logger:   logger,
		archiver: archiver,
		limiter:  limiter,
	}
}
