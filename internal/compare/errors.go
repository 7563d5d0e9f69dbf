package compare

import (
	"errors"
	"fmt"

	"github.com/five82/hostdiff/internal/diff"
)

// ErrIncompleteSelection reports a compare attempt without a host and both
// snapshots chosen.
var ErrIncompleteSelection = errors.New("pick host and two snapshots")

const incompleteNotice = "Pick host and two snapshots."

// codedError is implemented by collaborator errors that carry a server error
// code, such as *api.APIError.
type codedError interface {
	ErrorCode() string
}

const codeMalformedSnapshot = "malformed_snapshot"

// TransportError wraps a failed collaborator call. It matches
// diff.ErrMalformedSnapshot when the failure was a malformed snapshot.
type TransportError struct {
	Request   Request
	Err       error
	Malformed bool
}

func (e *TransportError) Error() string {
	if e.Malformed {
		return fmt.Sprintf("compare %s %s..%s: snapshot is malformed: %v", e.Request.Host, e.Request.A, e.Request.B, e.Err)
	}
	return fmt.Sprintf("compare %s %s..%s failed: %v", e.Request.Host, e.Request.A, e.Request.B, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, diff.ErrMalformedSnapshot) see through a server
// reported malformed snapshot.
func (e *TransportError) Is(target error) bool {
	return e.Malformed && target == diff.ErrMalformedSnapshot
}

func newTransportError(req Request, err error) *TransportError {
	var te *TransportError
	if errors.As(err, &te) {
		return te
	}
	malformed := errors.Is(err, diff.ErrMalformedSnapshot)
	var coded codedError
	if errors.As(err, &coded) && coded.ErrorCode() == codeMalformedSnapshot {
		malformed = true
	}
	return &TransportError{Request: req, Err: err, Malformed: malformed}
}
