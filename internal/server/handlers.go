package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/five82/hostdiff/internal/api"
	"github.com/five82/hostdiff/internal/diff"
	"github.com/five82/hostdiff/internal/snapshot"
	"github.com/five82/hostdiff/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, api.HealthResponse{Status: "ok"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, api.CodeInvalidUpload, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, api.CodeInvalidUpload, fmt.Sprintf("read upload: %v", err))
		return
	}

	receipt, err := s.ingester.Ingest(r.Context(), header.Filename, raw)
	if err != nil {
		if errors.Is(err, snapshot.ErrInvalidSnapshot) {
			s.writeError(w, r, http.StatusBadRequest, api.CodeInvalidUpload, err.Error())
			return
		}
		s.writeInternal(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.UploadResponse{
		OK:        true,
		IP:        receipt.Host,
		Timestamp: receipt.Timestamp,
		Created:   receipt.Created,
		Checksum:  receipt.Checksum,
	})
}

func (s *Server) handleHosts(w http.ResponseWriter, r *http.Request) {
	hosts, err := s.repo.ListHosts(r.Context())
	if err != nil {
		s.writeInternal(w, r, err)
		return
	}
	if hosts == nil {
		hosts = []string{}
	}
	writeJSON(w, http.StatusOK, api.HostsResponse{Hosts: hosts})
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	host := r.PathValue("ip")
	timestamps, err := s.repo.ListSnapshots(r.Context(), host)
	if err != nil {
		s.writeInternal(w, r, err)
		return
	}
	if timestamps == nil {
		timestamps = []string{}
	}
	writeJSON(w, http.StatusOK, api.SnapshotsResponse{IP: host, Timestamps: timestamps})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	rec, err := s.repo.Get(r.Context(), r.PathValue("ip"), r.PathValue("ts"))
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	etag := `"` + rec.Checksum + `"`
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rec.Data)
}

func (s *Server) handleDiffPath(w http.ResponseWriter, r *http.Request) {
	s.serveDiff(w, r, r.PathValue("ip"), r.PathValue("ts1"), r.PathValue("ts2"))
}

func (s *Server) handleDiffQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	host := strings.TrimSpace(q.Get("ip"))
	a := strings.TrimSpace(q.Get("timestamp1"))
	b := strings.TrimSpace(q.Get("timestamp2"))
	if host == "" || a == "" || b == "" {
		s.writeError(w, r, http.StatusBadRequest, api.CodeBadRequest, "ip, timestamp1 and timestamp2 are required")
		return
	}
	s.serveDiff(w, r, host, a, b)
}

func (s *Server) serveDiff(w http.ResponseWriter, r *http.Request, host, a, b string) {
	res, err := s.FetchDiff(r.Context(), host, a, b)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, api.DiffResponse{IP: host, TS1: a, TS2: b, Diff: res})
}

func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.writeError(w, r, http.StatusNotFound, api.CodeNotFound, "Snapshot not found")
	case errors.Is(err, diff.ErrMalformedSnapshot):
		s.writeError(w, r, http.StatusUnprocessableEntity, api.CodeMalformedSnapshot, err.Error())
	default:
		s.writeInternal(w, r, err)
	}
}

func (s *Server) writeInternal(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Error("request failed",
		zap.String("path", r.URL.Path),
		zap.String("request_id", requestID(r.Context())),
		zap.Error(err),
	)
	writeJSON(w, http.StatusInternalServerError, api.ErrorResponse{Detail: "internal error", Code: api.CodeInternal})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, code, detail string) {
	s.log.Debug("request rejected",
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("code", code),
		zap.String("detail", detail),
	)
	writeJSON(w, status, api.ErrorResponse{Detail: detail, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
