package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/five82/hostdiff/internal/api"
	"github.com/five82/hostdiff/internal/compare"
	"github.com/five82/hostdiff/internal/diff"
	"github.com/five82/hostdiff/internal/ingest"
	"github.com/five82/hostdiff/internal/store"
)

const (
	hostIP = "203.0.113.10"
	ts1    = "2025-09-10T03:00:00Z"
	ts2    = "2025-09-11T03:00:00Z"
)

var (
	uploadA = `{"ip":"203.0.113.10","timestamp":"2025-09-10T03:00:00Z","services":[
		{"port":22,"protocol":"SSH","banner":"OpenSSH_8.9"},
		{"port":80,"protocol":"HTTP","status":200}]}`
	uploadB = `{"ip":"203.0.113.10","timestamp":"2025-09-11T03:00:00Z","services":[
		{"port":80,"protocol":"HTTP","status":301},
		{"port":443,"protocol":"HTTPS","tls":"tlsv1_3"}]}`
)

func newTestServer(t *testing.T) (*httptest.Server, *ingest.Ingester) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	repo := store.NewMemory()
	ing := ingest.New(repo, nil, logger)
	ts := httptest.NewServer(New(repo, ing, logger).Handler())
	t.Cleanup(ts.Close)
	return ts, ing
}

func postUpload(t *testing.T, base, filename, body string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	resp, err := http.Post(base+"/api/upload", form.FormDataContentType(), &buf)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := get(t, ts.URL+"/api/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decodeBody[api.HealthResponse](t, resp).Status)
}

func TestUploadListAndDiff(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postUpload(t, ts.URL, "a.json", uploadA)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	up := decodeBody[api.UploadResponse](t, resp)
	assert.True(t, up.OK)
	assert.True(t, up.Created)
	assert.Equal(t, hostIP, up.IP)
	assert.Equal(t, ts1, up.Timestamp)
	assert.NotEmpty(t, up.Checksum)

	resp = postUpload(t, ts.URL, "b.json", uploadB)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	hosts := decodeBody[api.HostsResponse](t, get(t, ts.URL+"/api/hosts"))
	assert.Equal(t, []string{hostIP}, hosts.Hosts)

	snaps := decodeBody[api.SnapshotsResponse](t, get(t, ts.URL+"/api/snapshots/"+hostIP))
	assert.Equal(t, hostIP, snaps.IP)
	assert.Equal(t, []string{ts1, ts2}, snaps.Timestamps)

	resp = get(t, ts.URL+"/api/diff/"+hostIP+"/"+ts1+"/"+ts2)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeBody[api.DiffResponse](t, resp)
	assert.Equal(t, hostIP, out.IP)
	assert.Equal(t, ts1, out.TS1)
	assert.Equal(t, ts2, out.TS2)
	require.Len(t, out.Diff.Added, 1)
	assert.Equal(t, 443, out.Diff.Added[0].Port)
	require.Len(t, out.Diff.Removed, 1)
	assert.Equal(t, 22, out.Diff.Removed[0].Port)
	require.Len(t, out.Diff.Modified, 1)
	change := out.Diff.Modified[0].Changes["status"]
	assert.Equal(t, json.Number("200"), change.Before.Data)
	assert.Equal(t, json.Number("301"), change.After.Data)
}

func TestDiff_SelfDiffAndQueryRoute(t *testing.T) {
	ts, _ := newTestServer(t)
	postUpload(t, ts.URL, "a.json", uploadA)

	resp := get(t, ts.URL+"/api/diff?ip="+hostIP+"&timestamp1="+ts1+"&timestamp2="+ts1)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeBody[api.DiffResponse](t, resp)
	assert.True(t, out.Diff.Empty())

	resp = get(t, ts.URL+"/api/diff?ip="+hostIP)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, api.CodeBadRequest, decodeBody[api.ErrorResponse](t, resp).Code)
}

func TestDiff_NotFound(t *testing.T) {
	ts, _ := newTestServer(t)
	postUpload(t, ts.URL, "a.json", uploadA)

	resp := get(t, ts.URL+"/api/diff/"+hostIP+"/"+ts1+"/1999-01-01T00:00:00Z")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decodeBody[api.ErrorResponse](t, resp)
	assert.Equal(t, api.CodeNotFound, body.Code)
	assert.Equal(t, "Snapshot not found", body.Detail)
}

func TestDiff_DuplicateServiceIsUnprocessable(t *testing.T) {
	ts, _ := newTestServer(t)
	dup := `{"ip":"203.0.113.10","timestamp":"2025-09-12T00:00:00Z","services":[
		{"port":80,"protocol":"tcp"},{"port":80,"protocol":"tcp","banner":"x"}]}`
	require.Equal(t, http.StatusOK, postUpload(t, ts.URL, "dup.json", dup).StatusCode)
	postUpload(t, ts.URL, "a.json", uploadA)

	resp := get(t, ts.URL+"/api/diff/"+hostIP+"/"+ts1+"/2025-09-12T00:00:00Z")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := decodeBody[api.ErrorResponse](t, resp)
	assert.Equal(t, api.CodeMalformedSnapshot, body.Code)
	assert.Contains(t, body.Detail, "80/tcp")
}

func TestUpload_Errors(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postUpload(t, ts.URL, "scan.json", `{"services":[]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody[api.ErrorResponse](t, resp)
	assert.Equal(t, api.CodeInvalidUpload, body.Code)
	assert.Contains(t, body.Detail, "missing 'ip' or 'timestamp'")

	resp = postUpload(t, ts.URL, "scan.json", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp2, err := http.Post(ts.URL+"/api/upload", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestUpload_DuplicateIsIdempotent(t *testing.T) {
	ts, _ := newTestServer(t)
	first := decodeBody[api.UploadResponse](t, postUpload(t, ts.URL, "a.json", uploadA))
	second := decodeBody[api.UploadResponse](t, postUpload(t, ts.URL, "a.json", uploadA))
	assert.True(t, first.Created)
	assert.False(t, second.Created)
	assert.True(t, second.OK)
}

func TestUpload_FilenameFallback(t *testing.T) {
	ts, _ := newTestServer(t)
	resp := postUpload(t, ts.URL, "host_10.0.0.7_2025-09-10T03-00-00Z.json", `{"services":[]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	up := decodeBody[api.UploadResponse](t, resp)
	assert.Equal(t, "10.0.0.7", up.IP)
	assert.Equal(t, "2025-09-10T03:00:00Z", up.Timestamp)
}

func TestSnapshot_RawAndETag(t *testing.T) {
	ts, _ := newTestServer(t)
	up := decodeBody[api.UploadResponse](t, postUpload(t, ts.URL, "a.json", uploadA))

	resp := get(t, ts.URL+"/api/snapshot/"+hostIP+"/"+ts1)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	etag := resp.Header.Get("ETag")
	assert.Equal(t, `"`+up.Checksum+`"`, etag)
	var doc map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Equal(t, hostIP, doc["ip"])

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/snapshot/"+hostIP+"/"+ts1, nil)
	require.NoError(t, err)
	req.Header.Set("If-None-Match", etag)
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotModified, resp2.StatusCode)

	resp = get(t, ts.URL+"/api/snapshot/"+hostIP+"/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSnapshots_UnknownHostIsEmpty(t *testing.T) {
	ts, _ := newTestServer(t)
	out := decodeBody[api.SnapshotsResponse](t, get(t, ts.URL+"/api/snapshots/192.0.2.1"))
	assert.Equal(t, []string{}, out.Timestamps)
}

func TestMiddleware_CORSAndRequestID(t *testing.T) {
	ts, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/upload", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	resp = get(t, ts.URL+"/api/health")
	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))

	const id = "0b0c8f4e-7c1a-4f7e-9a53-0f4e8f0b2a11"
	req, err = http.NewRequest(http.MethodGet, ts.URL+"/api/health", nil)
	require.NoError(t, err)
	req.Header.Set(requestIDHeader, id)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, id, resp.Header.Get(requestIDHeader))
}

func TestClientAndOrchestratorAgainstServer(t *testing.T) {
	ts, _ := newTestServer(t)
	client, err := api.NewClient(ts.URL)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = client.Upload(ctx, "a.json", strings.NewReader(uploadA))
	require.NoError(t, err)
	_, err = client.Upload(ctx, "b.json", strings.NewReader(uploadB))
	require.NoError(t, err)

	orch := compare.New(client, nil)
	res, err := orch.Run(ctx, hostIP, ts2, ts1)
	require.NoError(t, err)
	assert.Equal(t, diff.Summary{Added: 1, Removed: 1, Modified: 1}, res.Summary())
	assert.Equal(t, 22, res.Added[0].Port, "A/B order is respected")

	_, err = orch.Run(ctx, hostIP, ts1, "missing")
	var te *compare.TransportError
	require.True(t, errors.As(err, &te), "got %T", err)
	assert.True(t, api.IsNotFound(err))
	assert.NotEmpty(t, orch.Outcome().Err)
	assert.Nil(t, orch.Outcome().Result)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := New(store.NewMemory(), ingest.New(store.NewMemory(), nil, nil), zaptest.NewLogger(t))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/api/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
