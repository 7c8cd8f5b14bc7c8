package jobs

import (
	"context"
	"time"

	"oddsley/internal/tasks"

	"github.com/sirupsen/logrus"
)

// entry is one scheduled task invocation.
type entry struct {
	name     string
	params   tasks.Params
	interval time.Duration
}

// Scheduler runs registered tasks on fixed intervals, each in its own
// goroutine: run once immediately, then tick. It is a thin at-least-once
// interval runner; durable queuing is not its job.
type Scheduler struct {
	registry *tasks.Registry
	logger   *logrus.Logger
	entries  []entry
	stopChan chan struct{}
}

func NewScheduler(registry *tasks.Registry, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		registry: registry,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Add schedules a task to run every interval.
func (s *Scheduler) Add(name string, params tasks.Params, interval time.Duration) {
	s.entries = append(s.entries, entry{name: name, params: params, interval: interval})
}

// Start launches one loop per scheduled entry.
func (s *Scheduler) Start() {
	for _, e := range s.entries {
		s.logger.WithFields(logrus.Fields{
			"task":     e.name,
			"interval": e.interval.String(),
		}).Info("Scheduling task")
		go s.runLoop(e)
	}
}

// Stop stops all scheduled loops.
func (s *Scheduler) Stop() {
	close(s.stopChan)
}

func (s *Scheduler) runLoop(e entry) {
	s.runOnce(e)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runOnce(e)
		case <-s.stopChan:
			s.logger.WithField("task", e.name).Info("Stopping scheduled task")
			return
		}
	}
}

func (s *Scheduler) runOnce(e entry) {
	if _, err := s.registry.Run(context.Background(), e.name, e.params); err != nil {
		s.logger.WithField("task", e.name).Errorf("Scheduled run failed: %v", err)
	}
}
