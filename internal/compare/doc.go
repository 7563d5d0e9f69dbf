// Package compare drives snapshot comparisons for an interactive session.
//
// # Overview
//
// The Orchestrator turns a complete selection into a compare request,
// tracks whether it is pending, and exposes the latest result or error for
// display. Session pairs it with a selection.Machine so that every host
// change invalidates the comparison state.
//
// # Request Lifecycle
//
// A compare runs in three steps so that the network call can happen off the
// Bubble Tea update loop:
//
//	req, err := session.RequestCompare()   // on the loop: gate, clear, mark pending
//	res, err := session.Fetch(ctx, req)    // in a tea.Cmd: external call only
//	session.Resolve(req, res, err)         // on the loop: apply if still latest
//
// Every Begin and every Invalidate bumps a sequence number. Resolve applies a
// response only when its request carries the latest sequence; anything else
// is discarded and logged at debug level. A slow response for an older
// selection can therefore never overwrite a newer one.
//
// # Gating
//
// RequestCompare and Begin both refuse an incomplete selection with
// ErrIncompleteSelection. No request is issued and the previous result and
// error stay as they were; only a validation notice is recorded.
//
// # Errors
//
// A failed fetch becomes a *TransportError with one human readable message.
// When the server reports a malformed snapshot the error also matches
// diff.ErrMalformedSnapshot. No retry is attempted.
package compare
