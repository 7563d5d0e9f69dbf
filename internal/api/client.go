package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/five82/hostdiff/internal/diff"
)

// Backend groups the operations the interactive client consumes.
type Backend interface {
	ListHosts(ctx context.Context) ([]string, error)
	ListSnapshots(ctx context.Context, host string) ([]string, error)
	Upload(ctx context.Context, filename string, r io.Reader) (UploadResponse, error)
	FetchDiff(ctx context.Context, host, a, b string) (diff.Result, error)
}

// Ensure Client implements Backend at compile time.
var _ Backend = (*Client)(nil)

// Client talks to the hostdiff HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

const (
	DefaultAPIBind   = "127.0.0.1:7490"
	defaultUserAgent = "hostdiff/0.1"
	requestTimeout   = 10 * time.Second
	maxErrorBody     = 64 << 10
)

// NewClient builds a Client using the provided apiBind host:port value.
func NewClient(apiBind string) (*Client, error) {
	base, err := parseBaseURL(apiBind)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
	}, nil
}

// BaseURL returns the resolved server address.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Health checks that the server is reachable.
func (c *Client) Health(ctx context.Context) error {
	var payload HealthResponse
	if err := c.do(ctx, http.MethodGet, apiPath("health"), &payload); err != nil {
		return err
	}
	if payload.Status != "ok" {
		return fmt.Errorf("server reported status %q", payload.Status)
	}
	return nil
}

// ListHosts returns every host with at least one snapshot, ascending.
func (c *Client) ListHosts(ctx context.Context) ([]string, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var payload HostsResponse
	if err := c.do(ctx, http.MethodGet, apiPath("hosts"), &payload); err != nil {
		return nil, err
	}
	return payload.Hosts, nil
}

// ListSnapshots returns the snapshot timestamps of host, ascending.
func (c *Client) ListSnapshots(ctx context.Context, host string) ([]string, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(host) == "" {
		return nil, fmt.Errorf("host required")
	}
	var payload SnapshotsResponse
	if err := c.do(ctx, http.MethodGet, apiPath("snapshots", host), &payload); err != nil {
		return nil, err
	}
	return payload.Timestamps, nil
}

// Upload sends one snapshot file as multipart field "file".
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (UploadResponse, error) {
	if c == nil {
		return UploadResponse{}, fmt.Errorf("client is nil")
	}
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return UploadResponse{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return UploadResponse{}, fmt.Errorf("read %s: %w", filename, err)
	}
	if err := form.Close(); err != nil {
		return UploadResponse{}, fmt.Errorf("close form: %w", err)
	}

	var payload UploadResponse
	if err := c.send(ctx, http.MethodPost, apiPath("upload"), &body, form.FormDataContentType(), &payload); err != nil {
		return UploadResponse{}, err
	}
	return payload, nil
}

// FetchSnapshot returns the stored upload document of one snapshot.
func (c *Client) FetchSnapshot(ctx context.Context, host, timestamp string) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, apiPath("snapshot", host, timestamp), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// FetchDiff asks the server to compare snapshots a and b of host.
func (c *Client) FetchDiff(ctx context.Context, host, a, b string) (diff.Result, error) {
	if c == nil {
		return diff.Result{}, fmt.Errorf("client is nil")
	}
	var payload struct {
		Diff json.RawMessage `json:"diff"`
	}
	if err := c.do(ctx, http.MethodGet, apiPath("diff", host, a, b), &payload); err != nil {
		return diff.Result{}, err
	}
	return decodeDiff(payload.Diff)
}

// diffLists are the keys every diff object must carry.
var diffLists = []string{"services_added", "services_removed", "services_modified"}

// decodeDiff rejects a missing or partial diff instead of reading it as
// "no changes".
func decodeDiff(raw json.RawMessage) (diff.Result, error) {
	if isNull(raw) {
		return diff.Result{}, fmt.Errorf("%w: diff is missing", ErrMalformedResponse)
	}
	var lists map[string]json.RawMessage
	if err := json.Unmarshal(raw, &lists); err != nil || lists == nil {
		return diff.Result{}, fmt.Errorf("%w: diff is not an object", ErrMalformedResponse)
	}
	for _, key := range diffLists {
		if v, ok := lists[key]; !ok || isNull(v) {
			return diff.Result{}, fmt.Errorf("%w: diff has no %s", ErrMalformedResponse, key)
		}
	}
	var res diff.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return diff.Result{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return res, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// apiPath joins escaped segments under /api.
func apiPath(segments ...string) *url.URL {
	raw := make([]string, len(segments))
	for i, s := range segments {
		raw[i] = url.PathEscape(s)
	}
	return &url.URL{
		Path:    "/api/" + strings.Join(segments, "/"),
		RawPath: "/api/" + strings.Join(raw, "/"),
	}
}

func (c *Client) do(ctx context.Context, method string, rel *url.URL, dest any) error {
	return c.send(ctx, method, rel, nil, "", dest)
}

func (c *Client) send(ctx context.Context, method string, rel *url.URL, body io.Reader, contentType string, dest any) error {
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(rel.Path, resp)
	}
	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(path string, resp *http.Response) error {
	apiErr := &APIError{Path: path, Status: resp.StatusCode}
	var payload ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&payload); err == nil {
		apiErr.Code = payload.Code
		apiErr.Detail = payload.Detail
	}
	return apiErr
}

func parseBaseURL(apiBind string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiBind)
	if trimmed == "" {
		trimmed = DefaultAPIBind
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_bind %q: %w", apiBind, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
