// Package worker implements the single background worker described in
// spec.md §4.H: a task list drained once a second, each task
// self-terminating by returning true when it has nothing left to do.
package worker

import (
	"sync"
	"time"
)

// Task is a retriable unit of work. It returns true when it should be
// removed from the task list (it has converged / has nothing left to do).
type Task func() (done bool)

// SweepInterval is the fixed delay between sweeps of the task list,
// matching the teacher's hand-rolled one-second scheduling — a full
// cron-style scheduler would be overkill for a single fixed-interval
// sweep with no task priorities.
const SweepInterval = time.Second

// Service owns a single worker goroutine and a list of tasks. Tasks are
// independent, self-terminating retriers; the service itself does no
// prioritization or scheduling beyond the fixed sweep interval.
type Service struct {
	mu      sync.Mutex
	tasks   []Task
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New returns an idle Service with no running worker.
func New() *Service {
	return &Service{}
}

// PushTask appends task to the list. If the list was empty, a fresh
// worker goroutine is spawned (joining any previous one first); otherwise
// the task simply joins the existing sweep.
func (s *Service) PushTask(task Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasEmpty := len(s.tasks) == 0
	s.tasks = append(s.tasks, task)

	if wasEmpty {
		s.joinLocked()
		s.running = true
		s.stopCh = make(chan struct{})
		s.doneCh = make(chan struct{})
		go s.run(s.stopCh, s.doneCh)
	}
}

// joinLocked waits for a previous worker goroutine to exit. Caller must
// hold s.mu... but run() also needs s.mu, so joinLocked must not be called
// while the previous worker could still be trying to acquire it. Since the
// previous worker only exits (closing doneCh) after observing an empty
// task list — which happens right before PushTask would re-populate it —
// this is safe in practice; run() never blocks on s.mu while idle-waiting.
func (s *Service) joinLocked() {
	if s.doneCh == nil {
		return
	}
	done := s.doneCh
	s.mu.Unlock()
	<-done
	s.mu.Lock()
}

func (s *Service) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	for {
		s.mu.Lock()
		remaining := s.tasks[:0:0]
		for _, t := range s.tasks {
			if !t() {
				remaining = append(remaining, t)
			}
		}
		s.tasks = remaining
		empty := len(s.tasks) == 0
		if empty {
			s.running = false
		}
		s.mu.Unlock()

		if empty {
			return
		}

		select {
		case <-stopCh:
			return
		case <-time.After(SweepInterval):
		}
	}
}

// Stop signals the worker to exit and joins it. Safe to call when no
// worker is running.
func (s *Service) Stop() {
	s.mu.Lock()
	stopCh := s.stopCh
	doneCh := s.doneCh
	running := s.running
	s.running = false
	s.mu.Unlock()

	if !running || stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh
}
