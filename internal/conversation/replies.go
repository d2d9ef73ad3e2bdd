// ABOUTME: Cancellable delayed tasks used for simulated replies
// ABOUTME: Tasks that fire after cancellation are discarded

package conversation

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type scheduler struct {
	mu     sync.Mutex
	tasks  map[string]*time.Timer
	logger *slog.Logger
}

func newScheduler(logger *slog.Logger) *scheduler {
	return &scheduler{
		tasks:  make(map[string]*time.Timer),
		logger: logger,
	}
}

// schedule runs fn after delay unless the task is cancelled first.
func (s *scheduler) schedule(delay time.Duration, fn func()) string {
	id := uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks[id] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		_, live := s.tasks[id]
		delete(s.tasks, id)
		s.mu.Unlock()

		if !live {
			return
		}
		fn()
	})
	return id
}

func (s *scheduler) cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return false
	}
	t.Stop()
	delete(s.tasks, id)
	return true
}

func (s *scheduler) cancelAll() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.tasks)
	for id, t := range s.tasks {
		t.Stop()
		delete(s.tasks, id)
	}
	return n
}

func (s *scheduler) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
