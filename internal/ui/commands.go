package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/hostdiff/internal/api"
	"github.com/five82/hostdiff/internal/compare"
	"github.com/five82/hostdiff/internal/diff"
	"github.com/five82/hostdiff/internal/state"
)

// Messages

type tickMsg time.Time

type hostsMsg state.Snapshot

// snapshotsMsg carries the snapshot list for host as requested under
// selection generation.
type snapshotsMsg struct {
	host       string
	generation uint64
	timestamps []string
	err        error
}

type compareResultMsg struct {
	req    compare.Request
	result diff.Result
	err    error
}

type uploadRequestMsg struct {
	path string
}

type uploadResultMsg struct {
	path string
	resp api.UploadResponse
	err  error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchHostsCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return hostsMsg(store.Snapshot())
	}
}

func fetchSnapshotsCmd(ctx context.Context, backend api.Backend, host string, generation uint64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, FetchTimeout)
		defer cancel()

		timestamps, err := backend.ListSnapshots(ctx, host)
		return snapshotsMsg{host: host, generation: generation, timestamps: timestamps, err: err}
	}
}

func compareCmd(ctx context.Context, session *compare.Session, req compare.Request) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, CompareTimeout)
		defer cancel()

		res, err := session.Fetch(ctx, req)
		return compareResultMsg{req: req, result: res, err: err}
	}
}

func uploadCmd(ctx context.Context, backend api.Backend, path string) tea.Cmd {
	return func() tea.Msg {
		file, err := os.Open(path)
		if err != nil {
			return uploadResultMsg{path: path, err: fmt.Errorf("open %s: %w", filepath.Base(path), err)}
		}
		defer func() { _ = file.Close() }()

		ctx, cancel := context.WithTimeout(ctx, FetchTimeout)
		defer cancel()

		resp, err := backend.Upload(ctx, filepath.Base(path), file)
		return uploadResultMsg{path: path, resp: resp, err: err}
	}
}
