package compare

import (
	"context"

	"go.uber.org/zap"

	"github.com/five82/hostdiff/internal/diff"
	"github.com/five82/hostdiff/internal/selection"
)

// DiffFetcher performs the external comparison.
type DiffFetcher interface {
	FetchDiff(ctx context.Context, host, a, b string) (diff.Result, error)
}

// Request identifies one compare attempt. Seq increases with every attempt
// and every invalidation.
type Request struct {
	Seq  uint64
	Host string
	A    string
	B    string
}

// Outcome is what presentation reads after each event.
type Outcome struct {
	Result  *diff.Result
	Err     string
	Notice  string
	Pending bool
	Request Request
}

// Orchestrator issues compare requests and keeps only the latest one's
// outcome. Begin, Resolve and Invalidate must be called from one goroutine;
// Fetch may run anywhere.
type Orchestrator struct {
	fetcher DiffFetcher
	logger  *zap.Logger

	seq     uint64
	current Request
	result  *diff.Result
	err     error
	notice  string
	pending bool
}

// New builds an orchestrator over fetcher. A nil logger discards output.
func New(fetcher DiffFetcher, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{fetcher: fetcher, logger: logger.Named("compare")}
}

// Begin starts a new attempt for sel. An incomplete selection is rejected
// with ErrIncompleteSelection and only records a notice. Otherwise the
// previous result, error and notice are cleared and the request is pending.
func (o *Orchestrator) Begin(sel selection.Selection) (Request, error) {
	if !sel.Complete() {
		o.notice = incompleteNotice
		return Request{}, ErrIncompleteSelection
	}
	o.seq++
	o.current = Request{Seq: o.seq, Host: sel.Host, A: sel.A, B: sel.B}
	o.result = nil
	o.err = nil
	o.notice = ""
	o.pending = true
	o.logger.Debug("compare requested",
		zap.Uint64("seq", o.current.Seq),
		zap.String("host", sel.Host),
		zap.String("a", sel.A),
		zap.String("b", sel.B),
	)
	return o.current, nil
}

// Fetch runs the external call for req without touching orchestrator state.
// Failures are returned as *TransportError.
func (o *Orchestrator) Fetch(ctx context.Context, req Request) (diff.Result, error) {
	res, err := o.fetcher.FetchDiff(ctx, req.Host, req.A, req.B)
	if err != nil {
		return diff.Result{}, newTransportError(req, err)
	}
	return res, nil
}

// Resolve applies the outcome of req. It returns false and changes nothing
// when req is no longer the latest request.
func (o *Orchestrator) Resolve(req Request, res diff.Result, err error) bool {
	if req.Seq != o.seq || !o.pending {
		o.logger.Debug("stale compare response discarded",
			zap.Uint64("seq", req.Seq),
			zap.Uint64("latest", o.seq),
		)
		return false
	}
	o.pending = false
	if err != nil {
		o.result = nil
		o.err = newTransportError(req, err)
		o.logger.Warn("compare failed", zap.Uint64("seq", req.Seq), zap.Error(err))
		return true
	}
	o.result = &res
	o.err = nil
	o.logger.Debug("compare resolved",
		zap.Uint64("seq", req.Seq),
		zap.Int("added", len(res.Added)),
		zap.Int("removed", len(res.Removed)),
		zap.Int("modified", len(res.Modified)),
	)
	return true
}

// Invalidate discards any displayed or outstanding outcome.
func (o *Orchestrator) Invalidate() {
	o.seq++
	o.current = Request{}
	o.result = nil
	o.err = nil
	o.notice = ""
	o.pending = false
}

// Run performs a full compare synchronously.
func (o *Orchestrator) Run(ctx context.Context, host, a, b string) (diff.Result, error) {
	req, err := o.Begin(selection.Selection{Host: host, A: a, B: b})
	if err != nil {
		return diff.Result{}, err
	}
	res, err := o.Fetch(ctx, req)
	o.Resolve(req, res, err)
	if err != nil {
		return diff.Result{}, err
	}
	return res, nil
}

// Outcome returns the state for presentation.
func (o *Orchestrator) Outcome() Outcome {
	out := Outcome{
		Result:  o.result,
		Notice:  o.notice,
		Pending: o.pending,
		Request: o.current,
	}
	if o.err != nil {
		out.Err = o.err.Error()
	}
	return out
}

// Err returns the error of the latest resolved request.
func (o *Orchestrator) Err() error {
	return o.err
}

