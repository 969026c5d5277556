// Package scheduler drives periodic maintenance through the job queue.
// Cron only enqueues; the queue's uniqueness guarantee means an
// already-running sweep is never doubled up.
package scheduler

import (
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/mediakeep/mediakeep/internal/jobs"
)

type Scheduler struct {
	cron  *cron.Cron
	queue *jobs.Queue
}

func New(queue *jobs.Queue) *Scheduler {
	return &Scheduler{cron: cron.New(), queue: queue}
}

// Register wires the GC and verify sweeps. Specs use standard five-field
// cron syntax.
func (s *Scheduler) Register(gcSpec, verifySpec string) error {
	if _, err := s.cron.AddFunc(gcSpec, func() {
		if _, err := s.queue.EnqueueUnique(jobs.TaskGarbageSweep, jobs.GarbageSweepPayload{}, "maintenance-gc"); err != nil {
			log.Printf("Scheduler: enqueue GC sweep failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("gc schedule %q: %w", gcSpec, err)
	}

	if _, err := s.cron.AddFunc(verifySpec, func() {
		if _, err := s.queue.EnqueueUnique(jobs.TaskVerifySweep, jobs.VerifySweepPayload{}, "maintenance-verify"); err != nil {
			log.Printf("Scheduler: enqueue verify sweep failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("verify schedule %q: %w", verifySpec, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Println("Scheduler: maintenance schedules active")
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
