package store

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"
)

// Memory keeps records in process memory. It is safe for concurrent use.
type Memory struct {
	mu    sync.RWMutex
	hosts map[string]map[string]Record
}

// NewMemory returns an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{hosts: make(map[string]map[string]Record)}
}

func (m *Memory) Save(_ context.Context, rec Record) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snaps, ok := m.hosts[rec.Host]
	if !ok {
		snaps = make(map[string]Record)
		m.hosts[rec.Host] = snaps
	}
	if _, exists := snaps[rec.Timestamp]; exists {
		return false, nil
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.Data = slices.Clone(rec.Data)
	snaps[rec.Timestamp] = rec
	return true, nil
}

func (m *Memory) ListHosts(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.hosts)), nil
}

func (m *Memory) ListSnapshots(_ context.Context, host string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.hosts[host])), nil
}

func (m *Memory) Get(_ context.Context, host, timestamp string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.hosts[host][timestamp]
	if !ok {
		return Record{}, ErrNotFound
	}
	rec.Data = slices.Clone(rec.Data)
	return rec, nil
}

func (m *Memory) Close() error { return nil }

var _ Repository = (*Memory)(nil)
