package compare

import (
	"context"

	"github.com/five82/hostdiff/internal/diff"
	"github.com/five82/hostdiff/internal/selection"
)

// Session pairs the selection machine with an orchestrator so that host
// changes always invalidate the comparison state.
type Session struct {
	machine selection.Machine
	orch    *Orchestrator
}

// NewSession starts a session with no host selected.
func NewSession(orch *Orchestrator) *Session {
	return &Session{orch: orch}
}

// View is the presentation read model.
type View struct {
	Selection  selection.Selection
	State      selection.State
	CanCompare bool
	Generation uint64
	Outcome    Outcome
}

// SelectHost resets the snapshot slots and clears any result or pending
// request. It returns the new selection generation.
func (s *Session) SelectHost(host string) uint64 {
	gen := s.machine.SelectHost(host)
	s.orch.Invalidate()
	return gen
}

// SelectSnapshotA sets slot A. A displayed result stays visible.
func (s *Session) SelectSnapshotA(ts string) error {
	return s.machine.SelectSnapshotA(ts)
}

// SelectSnapshotB sets slot B. A displayed result stays visible.
func (s *Session) SelectSnapshotB(ts string) error {
	return s.machine.SelectSnapshotB(ts)
}

// CanCompare reports whether RequestCompare would issue a request.
func (s *Session) CanCompare() bool {
	return s.machine.CanCompare()
}

// Selection returns the current selection.
func (s *Session) Selection() selection.Selection {
	return s.machine.Selection()
}

// Generation returns the selection generation.
func (s *Session) Generation() uint64 {
	return s.machine.Generation()
}

// RequestCompare begins a compare for the current selection. Outside
// ReadyToCompare it returns ErrIncompleteSelection and no request is issued.
func (s *Session) RequestCompare() (Request, error) {
	if !s.machine.CanCompare() {
		s.orch.notice = incompleteNotice
		return Request{}, ErrIncompleteSelection
	}
	return s.orch.Begin(s.machine.Selection())
}

// Fetch performs the external call for req. It is safe to run off the event
// loop.
func (s *Session) Fetch(ctx context.Context, req Request) (diff.Result, error) {
	return s.orch.Fetch(ctx, req)
}

// Resolve applies a compare response; stale responses return false.
func (s *Session) Resolve(req Request, res diff.Result, err error) bool {
	return s.orch.Resolve(req, res, err)
}

// View returns everything presentation needs.
func (s *Session) View() View {
	return View{
		Selection:  s.machine.Selection(),
		State:      s.machine.State(),
		CanCompare: s.machine.CanCompare(),
		Generation: s.machine.Generation(),
		Outcome:    s.orch.Outcome(),
	}
}
