// Package scheduler owns the recurring ingestion tick loop
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/abelzeko/weather-monitor/internal/entities"
	"github.com/robfig/cron/v3"
)

// CycleRunner is the single operation the scheduler drives on each tick.
type CycleRunner interface {
	RunCycle(ctx context.Context) entities.CycleReport
}

// Scheduler fires one ingestion cycle per interval until stopped. A panic
// inside a cycle is recovered by the cron chain so the tick loop survives.
type Scheduler struct {
	cron     *cron.Cron
	runner   CycleRunner
	interval time.Duration
}

// New creates a scheduler that runs the given cycle at the given cadence.
func New(runner CycleRunner, interval time.Duration) *Scheduler {
	c := cron.New(cron.WithChain(
		cron.Recover(cron.DefaultLogger),
	))
	return &Scheduler{
		cron:     c,
		runner:   runner,
		interval: interval,
	}
}

// Start registers the recurring job and begins ticking. One cycle is run
// immediately so the store has data before the first interval elapses.
func (s *Scheduler) Start() error {
	spec := fmt.Sprintf("@every %s", s.interval)
	_, err := s.cron.AddFunc(spec, func() {
		s.runner.RunCycle(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to schedule ingestion cycle: %v", err)
	}

	log.Printf("Scheduler started, fetching weather data every %s", s.interval)

	// Initial cycle on startup, isolated like the recurring ones.
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Recovered from panic in initial ingestion cycle: %v", r)
			}
		}()
		s.runner.RunCycle(context.Background())
	}()

	s.cron.Start()
	return nil
}

// Stop halts the tick loop and waits for an in-flight cycle to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Scheduler stopped")
}
