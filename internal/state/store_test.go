package state

import (
	"errors"
	"testing"
	"time"
)

func TestStore_UpdateAndSnapshotClone(t *testing.T) {
	var s Store

	before := time.Now()
	s.Update([]string{"10.0.0.1", "10.0.0.2"}, nil)

	snap := s.Snapshot()
	if !snap.HasHosts || len(snap.Hosts) != 2 || snap.Hosts[0] != "10.0.0.1" {
		t.Fatalf("snapshot hosts = %#v, want 2 hosts", snap.Hosts)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
	if snap.LastError != nil {
		t.Fatalf("LastError = %v, want nil", snap.LastError)
	}

	snap.Hosts[0] = "mutated"
	if got := s.Snapshot().Hosts[0]; got != "10.0.0.1" {
		t.Fatalf("Snapshot should clone hosts; got %q", got)
	}
}

func TestStore_EmptyListStillCountsAsLoaded(t *testing.T) {
	var s Store
	if s.Snapshot().HasHosts {
		t.Fatalf("HasHosts = true before first update")
	}
	s.Update(nil, nil)
	snap := s.Snapshot()
	if !snap.HasHosts || len(snap.Hosts) != 0 {
		t.Fatalf("snapshot = %#v, want loaded empty list", snap)
	}
}

func TestStore_UpdateErrorKeepsPreviousHosts(t *testing.T) {
	var s Store
	s.Update([]string{"10.0.0.1"}, nil)

	origErr := errors.New("boom")
	s.Update(nil, origErr)

	snap := s.Snapshot()
	if len(snap.Hosts) != 1 || snap.Hosts[0] != "10.0.0.1" {
		t.Fatalf("hosts changed on error: %#v", snap.Hosts)
	}
	if snap.LastError == nil || snap.LastError.Error() != "boom" {
		t.Fatalf("LastError = %v, want boom", snap.LastError)
	}
	if !errors.Is(snap.LastError, origErr) {
		t.Fatalf("LastError should wrap the recorded error")
	}
}

func TestStore_ConsecutiveFailures(t *testing.T) {
	var s Store

	if s.Snapshot().IsOffline() {
		t.Fatal("IsOffline() = true, want false with 0 failures")
	}

	s.Update(nil, errors.New("fail 1"))
	if snap := s.Snapshot(); snap.ConsecutiveFailures != 1 || snap.IsOffline() {
		t.Fatalf("after 1 failure: failures=%d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}

	s.Update(nil, errors.New("fail 2"))
	if snap := s.Snapshot(); snap.ConsecutiveFailures != 2 || !snap.IsOffline() {
		t.Fatalf("after 2 failures: failures=%d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}

	s.Update([]string{"10.0.0.1"}, nil)
	if snap := s.Snapshot(); snap.ConsecutiveFailures != 0 || snap.IsOffline() {
		t.Fatalf("after success: failures=%d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}
}
