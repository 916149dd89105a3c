package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"pagesift/internal/types"
)

// State represents the driver's current lifecycle state.
type State int32

const (
	StateIdle       State = 0
	StateFetching   State = 1
	StateExtracting State = 2
	StatePersisting State = 3
	StatePaginating State = 4
	StateTerminated State = 5
	StateFailed     State = 6
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateExtracting:
		return "extracting"
	case StatePersisting:
		return "persisting"
	case StatePaginating:
		return "paginating"
	case StateTerminated:
		return "terminated"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Fetcher is the interface the driver requires of a page fetcher.
type Fetcher interface {
	Fetch(ctx context.Context, ref *types.PageRef) (*types.Page, error)
	Close() error
}

// Extractor is the interface the driver requires of a record extractor.
type Extractor interface {
	Schema() types.Schema
	Extract(page *types.Page) ([]*types.Record, error)
}

// Paginator is the interface the driver requires of a pagination
// controller.
type Paginator interface {
	First() *types.PageRef
	HasNext(st *types.PipelineState) bool
	Advance(ctx context.Context, st *types.PipelineState) (*types.PageRef, error)
}

// Sink is the interface the driver requires of an incremental sink.
type Sink interface {
	Open(schema types.Schema) error
	Write(rec *types.Record) error
	Close() error
}

// Result summarizes one completed run.
type Result struct {
	State          State
	PagesVisited   int
	RecordsWritten int
	Elapsed        time.Duration
}

// Driver orchestrates one sequential run: for each page,
// fetch -> extract -> persist, then paginate, until a terminal
// condition or a page-level failure. The sink handle and the fetcher's
// session resource are owned by the driver for the run's duration and
// released on every exit path.
type Driver struct {
	fetcher   Fetcher
	extractor Extractor
	paginator Paginator
	sink      Sink
	logger    *slog.Logger
	state     atomic.Int32
}

// New creates a Driver over the four collaborators.
func New(f Fetcher, e Extractor, p Paginator, s Sink, logger *slog.Logger) *Driver {
	return &Driver{
		fetcher:   f,
		extractor: e,
		paginator: p,
		sink:      s,
		logger:    logger.With("component", "driver"),
	}
}

// State returns the driver's current lifecycle state.
func (d *Driver) State() State {
	return State(d.state.Load())
}

func (d *Driver) setState(s State) {
	d.state.Store(int32(s))
}

// Run executes the pipeline to completion. On failure the originating
// error is returned after cleanup; rows written before the failing
// page are preserved in the sink. There is no automatic retry.
func (d *Driver) Run(ctx context.Context) (res *Result, err error) {
	start := time.Now()
	st := &types.PipelineState{}
	res = &Result{}

	d.setState(StateIdle)

	// Cleanup runs on every exit path: success, page-level error, or
	// cancellation.
	defer func() {
		if cerr := d.sink.Close(); cerr != nil {
			d.logger.Error("sink close failed", "error", cerr)
			if err == nil {
				err = cerr
				res.State = StateFailed
				d.setState(StateFailed)
			}
		}
		if cerr := d.fetcher.Close(); cerr != nil {
			d.logger.Error("fetcher close failed", "error", cerr)
		}
		res.PagesVisited = st.PagesVisited
		res.RecordsWritten = st.RecordsEmitted
		res.Elapsed = time.Since(start)
	}()

	if err := d.sink.Open(d.extractor.Schema()); err != nil {
		return d.fail(res, err)
	}

	ref := d.paginator.First()
	st.PageIndex = ref.Index

	for {
		// Cancellation is honored once per iteration boundary, not
		// preemptively mid-fetch.
		if cerr := ctx.Err(); cerr != nil {
			return d.fail(res, fmt.Errorf("%w: %v", types.ErrRunCancelled, cerr))
		}

		d.setState(StateFetching)
		page, err := d.fetcher.Fetch(ctx, ref)
		if err != nil {
			return d.fail(res, err)
		}

		d.setState(StateExtracting)
		records, err := d.extractor.Extract(page)
		if err != nil {
			return d.fail(res, err)
		}

		d.setState(StatePersisting)
		for _, rec := range records {
			if err := d.sink.Write(rec); err != nil {
				return d.fail(res, err)
			}
			st.RecordsEmitted++
		}
		st.PagesVisited++

		d.logger.Info("page processed",
			"page", ref.Index,
			"url", ref.URL,
			"records", len(records),
			"total_records", st.RecordsEmitted,
		)

		d.setState(StatePaginating)
		if !d.paginator.HasNext(st) {
			st.Done = true
			d.setState(StateTerminated)
			res.State = StateTerminated
			d.logger.Info("run terminated",
				"pages", st.PagesVisited,
				"records", st.RecordsEmitted,
			)
			return res, nil
		}

		ref, err = d.paginator.Advance(ctx, st)
		if err != nil {
			return d.fail(res, err)
		}
		st.PageIndex = ref.Index
	}
}

func (d *Driver) fail(res *Result, err error) (*Result, error) {
	d.setState(StateFailed)
	res.State = StateFailed
	d.logger.Error("run failed", "error", err)
	return res, err
}
