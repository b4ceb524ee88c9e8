// Package dispatcher implements the fan-out/fan-in response aggregator
// (spec.md §4.4): given a set of target endpoint keys, it issues concurrent
// requests, merges their responses, and reduces partial failures into the
// three wire-level outcomes spec.md §7 defines.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/dreamware/librarian/internal/protocol"
	"github.com/dreamware/librarian/internal/registry"
)

const (
	// DefaultTimeout bounds a single endpoint call when no override is
	// configured (spec.md §4.4: "configurable, default bounded, e.g. 30s").
	DefaultTimeout = 30 * time.Second

	msgNoSupport  = "No library support for this operation for the requested type(s)"
	msgAllFailed  = "Error in responses from libraries, none of the targeted endpoints could be reached"
	msgUnknownFmt = "Received lookup with unrecognized resource ID: %s"
)

// Sender is the Dispatcher's capability to actually talk to one endpoint.
// It is the only I/O boundary in this package, so tests can substitute a
// fake that never touches the network.
type Sender interface {
	SendSearch(ctx context.Context, addr string, req protocol.SearchRequest) (protocol.SearchResponse, error)
	SendTransform(ctx context.Context, addr string, req protocol.TransformRequest) (protocol.SearchResponse, error)
	SendLookup(ctx context.Context, addr string, req protocol.LookupRequest) (protocol.LookupResponse, error)
}

// Dispatcher issues requests to the endpoints the Router selected and
// aggregates their responses.
type Dispatcher struct {
	reg     *registry.Registry
	sender  Sender
	timeout time.Duration
	log     *zap.SugaredLogger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTimeout overrides the per-endpoint call deadline.
func WithTimeout(d time.Duration) Option {
	return func(disp *Dispatcher) { disp.timeout = d }
}

// WithLogger attaches a structured logger; a no-op logger is used if omitted.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(disp *Dispatcher) { disp.log = l }
}

// New builds a Dispatcher that resolves endpoint keys to addresses via reg
// and talks to them through sender.
func New(reg *registry.Registry, sender Sender, opts ...Option) *Dispatcher {
	d := &Dispatcher{reg: reg, sender: sender, timeout: DefaultTimeout, log: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// call is one target's outcome, used internally to drive the 0/1/N
// reduction below.
type call struct {
	key  string
	resp protocol.SearchResponse
	err  error
}

// DispatchSearch fans req out to targets and merges their SearchResponses.
func (d *Dispatcher) DispatchSearch(ctx context.Context, req protocol.SearchRequest, targets []string) protocol.SearchResponse {
	return d.dispatchEnvelope(ctx, targets, func(ctx context.Context, addr string) (protocol.SearchResponse, error) {
		return d.sender.SendSearch(ctx, addr, req)
	})
}

// DispatchTransform fans req out to targets and merges their SearchResponses.
func (d *Dispatcher) DispatchTransform(ctx context.Context, req protocol.TransformRequest, targets []string) protocol.SearchResponse {
	return d.dispatchEnvelope(ctx, targets, func(ctx context.Context, addr string) (protocol.SearchResponse, error) {
		return d.sender.SendTransform(ctx, addr, req)
	})
}

func (d *Dispatcher) dispatchEnvelope(ctx context.Context, targets []string, do func(context.Context, string) (protocol.SearchResponse, error)) protocol.SearchResponse {
	switch len(targets) {
	case 0:
		return protocol.SearchResponse{Error: msgNoSupport}
	case 1:
		addr := d.addrOf(targets[0])
		cctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()
		resp, err := do(cctx, addr)
		if err != nil {
			d.log.Warnw("endpoint call failed", "endpoint", targets[0], "error", err)
			return protocol.SearchResponse{Error: msgAllFailed}
		}
		return resp
	default:
		return d.reduce(d.fanOut(ctx, targets, do))
	}
}

func (d *Dispatcher) fanOut(ctx context.Context, targets []string, do func(context.Context, string) (protocol.SearchResponse, error)) []call {
	results := make([]call, len(targets))
	var wg sync.WaitGroup
	wg.Add(len(targets))
	for i, key := range targets {
		go func(i int, key string) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()
			resp, err := do(cctx, d.addrOf(key))
			results[i] = call{key: key, resp: resp, err: err}
		}(i, key)
	}
	wg.Wait()
	return results
}

// reduce implements the ≥2-target reduction rule from spec.md §4.4:
// concatenate successful results (order unspecified), surface the generic
// failure message only if every target failed.
func (d *Dispatcher) reduce(calls []call) protocol.SearchResponse {
	var results []protocol.SearchResult
	var errs error
	succeeded := 0

	for _, c := range calls {
		if c.err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", c.key, c.err))
			continue
		}
		succeeded++
		results = append(results, c.resp.Results...)
	}

	if succeeded == 0 {
		if errs != nil {
			d.log.Warnw("all endpoints failed", "error", errs)
		}
		return protocol.SearchResponse{Error: msgAllFailed}
	}
	if errs != nil {
		d.log.Infow("partial fan-out failure, returning successful results", "error", errs)
	}
	return protocol.SearchResponse{Results: results}
}

// DispatchLookup issues a single-target lookup, or synthesizes the
// UnknownResource stub when no target was selected (the registry didn't
// recognize the resourceId — spec.md §4.4/§7).
func (d *Dispatcher) DispatchLookup(ctx context.Context, req protocol.LookupRequest, targets []string) protocol.LookupResponse {
	if len(targets) == 0 {
		return protocol.StubError(req.Kind, req.ID, fmt.Sprintf(msgUnknownFmt, req.ID.ResourceID))
	}

	addr := d.addrOf(targets[0])
	cctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	resp, err := d.sender.SendLookup(cctx, addr, req)
	if err != nil {
		d.log.Warnw("lookup call failed", "endpoint", targets[0], "error", err)
		return protocol.StubError(req.Kind, req.ID, msgAllFailed)
	}
	return resp
}

func (d *Dispatcher) addrOf(key string) string {
	rec, ok := d.reg.Lookup(key)
	if !ok {
		return ""
	}
	return rec.Addr()
}
