package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/five82/hostdiff/internal/diff"
)

// Error codes carried in ErrorResponse.Code.
const (
	CodeInvalidUpload     = "invalid_upload"
	CodeBadRequest        = "bad_request"
	CodeNotFound          = "not_found"
	CodeMalformedSnapshot = "malformed_snapshot"
	CodeInternal          = "internal"
)

// ErrMalformedResponse reports a success response whose body does not have
// the expected shape.
var ErrMalformedResponse = errors.New("malformed response")

// HealthResponse mirrors /api/health.
type HealthResponse struct {
	Status string `json:"status"`
}

// UploadResponse mirrors /api/upload.
type UploadResponse struct {
	OK        bool   `json:"ok"`
	IP        string `json:"ip"`
	Timestamp string `json:"timestamp"`
	Created   bool   `json:"created"`
	Checksum  string `json:"checksum"`
}

// HostsResponse mirrors /api/hosts.
type HostsResponse struct {
	Hosts []string `json:"hosts"`
}

// SnapshotsResponse mirrors /api/snapshots/{ip}.
type SnapshotsResponse struct {
	IP         string   `json:"ip"`
	Timestamps []string `json:"timestamps"`
}

// DiffResponse mirrors /api/diff/{ip}/{ts1}/{ts2}.
type DiffResponse struct {
	IP   string      `json:"ip"`
	TS1  string      `json:"ts1"`
	TS2  string      `json:"ts2"`
	Diff diff.Result `json:"diff"`
}

// ErrorResponse is the body of every non-success response.
type ErrorResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

// APIError is returned by Client for non-success responses.
type APIError struct {
	Path   string
	Status int
	Code   string
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api %s returned status %d", e.Path, e.Status)
	}
	return fmt.Sprintf("api %s returned status %d: %s", e.Path, e.Status, e.Detail)
}

// ErrorCode returns the server error code, if any.
func (e *APIError) ErrorCode() string {
	return e.Code
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
