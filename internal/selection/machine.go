// Package selection tracks the host and the two snapshot slots chosen for a
// comparison.
package selection

import "errors"

// ErrNoHost reports a snapshot selection made before any host was chosen.
var ErrNoHost = errors.New("no host selected")

// State is the derived selection state.
type State int

const (
	NoHost State = iota
	HostSelected
	PartialSnapshots
	ReadyToCompare
)

func (s State) String() string {
	switch s {
	case NoHost:
		return "no-host"
	case HostSelected:
		return "host-selected"
	case PartialSnapshots:
		return "partial-snapshots"
	case ReadyToCompare:
		return "ready-to-compare"
	default:
		return "unknown"
	}
}

// Selection is the current host and snapshot slots. Empty strings mean unset.
type Selection struct {
	Host string
	A    string
	B    string
}

// Complete reports whether host and both slots are set.
func (s Selection) Complete() bool {
	return s.Host != "" && s.A != "" && s.B != ""
}

// Machine holds the selection for one session. The zero value is ready to use
// and starts in NoHost. It is not safe for concurrent use.
type Machine struct {
	sel        Selection
	generation uint64
}

// SelectHost resets both snapshot slots and moves to HostSelected, or to NoHost
// when host is empty. Selecting the current host again is still a full reset.
// It returns the new generation.
func (m *Machine) SelectHost(host string) uint64 {
	m.sel = Selection{Host: host}
	m.generation++
	return m.generation
}

// SelectSnapshotA sets slot A; an empty timestamp clears it.
func (m *Machine) SelectSnapshotA(ts string) error {
	if m.sel.Host == "" {
		return ErrNoHost
	}
	m.sel.A = ts
	return nil
}

// SelectSnapshotB sets slot B; an empty timestamp clears it.
func (m *Machine) SelectSnapshotB(ts string) error {
	if m.sel.Host == "" {
		return ErrNoHost
	}
	m.sel.B = ts
	return nil
}

// State derives the machine state from the current selection.
func (m *Machine) State() State {
	switch {
	case m.sel.Host == "":
		return NoHost
	case m.sel.A != "" && m.sel.B != "":
		return ReadyToCompare
	case m.sel.A != "" || m.sel.B != "":
		return PartialSnapshots
	default:
		return HostSelected
	}
}

// Selection returns a copy of the current selection.
func (m *Machine) Selection() Selection {
	return m.sel
}

// CanCompare reports whether a comparison may be requested.
func (m *Machine) CanCompare() bool {
	return m.State() == ReadyToCompare
}

// Generation increments on every SelectHost call. Responses tagged with an
// older generation belong to a previous host choice.
func (m *Machine) Generation() uint64 {
	return m.generation
}
