// Package scheduler runs the engine's one global tick: a fixed-order pass
// over the sequence processor, the A/B test and winner phases, and plain
// scheduled campaigns, guarded so overlapping ticks never run concurrently
// (spec.md §5).
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/driftloop/mailcore/internal/abtest"
	"github.com/driftloop/mailcore/internal/campaign"
	"github.com/driftloop/mailcore/internal/sequence"
	"github.com/driftloop/mailcore/pkg/logger"
)

// Scheduler drives the periodic tick. It holds no state of its own beyond
// the single-flight guard; every processor it calls reads its due work
// fresh from the Store each tick (spec.md §9 design note: no hidden
// singletons).
type Scheduler struct {
	sequences  *sequence.Processor
	abtest     *abtest.Orchestrator
	campaigns  *campaign.Dispatcher
	interval   time.Duration
	logger     logger.Logger

	mu      sync.Mutex
	running bool
}

func New(sequences *sequence.Processor, ab *abtest.Orchestrator, campaigns *campaign.Dispatcher, interval time.Duration, log logger.Logger) *Scheduler {
	return &Scheduler{sequences: sequences, abtest: ab, campaigns: campaigns, interval: interval, logger: log}
}

// Run blocks, firing Tick on every interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick performs one pass in the fixed order of spec.md §5: sequence
// processor, A/B test phase, A/B winner phase, then plain scheduled
// campaigns. If a tick is already in flight, this call is a no-op rather
// than queueing — the next ticker fire will pick up any work this one
// couldn't reach.
func (s *Scheduler) Tick(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("scheduler: tick already in flight, skipping")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	now := time.Now().UTC()

	if err := s.sequences.Tick(ctx, now); err != nil {
		s.logger.WithField("error", err.Error()).Error("scheduler: sequence processor tick failed")
	}
	if err := s.abtest.RunTestPhase(ctx, now); err != nil {
		s.logger.WithField("error", err.Error()).Error("scheduler: ab test phase tick failed")
	}
	if err := s.abtest.RunWinnerPhase(ctx, now); err != nil {
		s.logger.WithField("error", err.Error()).Error("scheduler: ab winner phase tick failed")
	}
	if err := s.campaigns.DispatchScheduled(ctx, now); err != nil {
		s.logger.WithField("error", err.Error()).Error("scheduler: scheduled campaign dispatch tick failed")
	}
}
