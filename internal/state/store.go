package state

import (
	"fmt"
	"sync"
	"time"
)

// Snapshot is the latest host list known to the UI.
type Snapshot struct {
	Hosts               []string
	HasHosts            bool
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int
}

// IsOffline returns true when the API has been unreachable for multiple polls.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update replaces the stored host list. When err is non-nil the previous list
// is kept but the error is recorded for visibility.
func (s *Store) Update(hosts []string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.LastUpdated = time.Now()
	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.ConsecutiveFailures++
		return
	}

	s.snapshot.Hosts = cloneHosts(hosts)
	s.snapshot.HasHosts = true
	s.snapshot.LastError = nil
	s.snapshot.ConsecutiveFailures = 0
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Hosts = cloneHosts(s.snapshot.Hosts)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneHosts(hosts []string) []string {
	if len(hosts) == 0 {
		return nil
	}
	dup := make([]string, len(hosts))
	copy(dup, hosts)
	return dup
}
