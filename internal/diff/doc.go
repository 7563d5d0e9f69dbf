// Package diff compares two snapshots of the same host.
//
// # Overview
//
// Compare is a pure function: given the same two snapshots it returns the
// same Result, with every list in the same order. Services are matched on
// their (port, protocol) identity:
//
//   - Added: identities only in snapshot B, carrying the B-side record
//   - Removed: identities only in snapshot A, carrying the A-side record
//   - Modified: identities in both whose field mappings differ
//
// All three lists are sorted ascending by port, then protocol.
//
// # Field Equality
//
// Field values are compared with deep structural equality (go-cmp). There is
// no coercion: the number 80 and the string "80" differ, nested objects and
// arrays are compared element by element, and a field present on one side
// only is a change even when the present value is null. Values decoded from
// uploads keep their JSON number literal (json.Number), so 80 and 80.0 are
// reported as a change.
//
// # Wire Format
//
//	{
//	  "services_added":    [{"port": 443, "protocol": "HTTPS", ...}],
//	  "services_removed":  [{"port": 22, "protocol": "SSH", ...}],
//	  "services_modified": [{"port": 80, "protocol": "HTTP",
//	                         "changes": {"status": {"before": 200, "after": 301}}}]
//	}
//
// A side that is absent is encoded by leaving out its "before" or "after" key.
//
// # Errors
//
// A snapshot that repeats an identity fails the whole comparison with
// ErrMalformedSnapshot; no partial result is returned. Comparing a snapshot
// with itself yields an empty Result.
package diff
