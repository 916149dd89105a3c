package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"pagesift/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// --- Fakes ---

type fakeFetcher struct {
	pages   map[int]string // index -> body
	failAt  int            // fetch of this index fails (0 = never)
	fetched []int
	closed  bool
}

func (f *fakeFetcher) Fetch(ctx context.Context, ref *types.PageRef) (*types.Page, error) {
	f.fetched = append(f.fetched, ref.Index)
	if f.failAt != 0 && ref.Index == f.failAt {
		return nil, &types.FetchError{URL: ref.URL, Err: types.ErrMarkerTimeout}
	}
	body, ok := f.pages[ref.Index]
	if !ok {
		return nil, &types.FetchError{URL: ref.URL, StatusCode: 404, Err: fmt.Errorf("no such page")}
	}
	return types.NewPage(*ref, []byte(body), 0), nil
}

func (f *fakeFetcher) Close() error {
	f.closed = true
	return nil
}

type fakeExtractor struct {
	schema  types.Schema
	perPage map[int][]map[string]string // index -> field maps
}

func (e *fakeExtractor) Schema() types.Schema { return e.schema }

func (e *fakeExtractor) Extract(page *types.Page) ([]*types.Record, error) {
	var records []*types.Record
	for _, fields := range e.perPage[page.Ref.Index] {
		rec := types.NewRecord(page.Ref.Index)
		for k, v := range fields {
			rec.Set(k, v)
		}
		records = append(records, rec)
	}
	return records, nil
}

type fakePaginator struct {
	maxPages int
	nextAt   map[int]bool // interactive-style affordance presence; nil = always
	failAt   int          // advance from this index fails (0 = never)
}

func (p *fakePaginator) First() *types.PageRef {
	return &types.PageRef{Index: 1, URL: "http://x/page-1.html"}
}

func (p *fakePaginator) HasNext(st *types.PipelineState) bool {
	if st.PageIndex >= p.maxPages {
		return false
	}
	if p.nextAt != nil {
		return p.nextAt[st.PageIndex]
	}
	return true
}

func (p *fakePaginator) Advance(ctx context.Context, st *types.PipelineState) (*types.PageRef, error) {
	if p.failAt != 0 && st.PageIndex == p.failAt {
		return nil, &types.NavigationError{Selector: ".next", Err: types.ErrMarkerTimeout}
	}
	next := st.PageIndex + 1
	return &types.PageRef{Index: next, URL: fmt.Sprintf("http://x/page-%d.html", next)}, nil
}

type memorySink struct {
	schema  types.Schema
	rows    [][]string
	opened  bool
	closed  bool
	openErr error
	failAt  int // write of the Nth row fails (0 = never)
}

func (s *memorySink) Open(schema types.Schema) error {
	if s.openErr != nil {
		return s.openErr
	}
	s.schema = schema
	s.opened = true
	return nil
}

func (s *memorySink) Write(rec *types.Record) error {
	if s.failAt != 0 && len(s.rows)+1 == s.failAt {
		return &types.SinkError{Backend: "memory", Err: fmt.Errorf("disk full")}
	}
	s.rows = append(s.rows, rec.Row(s.schema))
	return nil
}

func (s *memorySink) Close() error {
	s.closed = true
	return nil
}

func bookRow(title, price string) map[string]string {
	return map[string]string{"title": title, "price": price}
}

// --- Tests ---

func TestRunTemplatedThreePages(t *testing.T) {
	// Three pages of two containers each: the output must hold all six
	// records in page order.
	f := &fakeFetcher{pages: map[int]string{1: "a", 2: "b", 3: "c"}}
	e := &fakeExtractor{
		schema: types.Schema{"title", "price"},
		perPage: map[int][]map[string]string{
			1: {bookRow("t1a", "p1a"), bookRow("t1b", "p1b")},
			2: {bookRow("t2a", "p2a"), bookRow("t2b", "p2b")},
			3: {bookRow("t3a", "p3a"), bookRow("t3b", "p3b")},
		},
	}
	p := &fakePaginator{maxPages: 3}
	s := &memorySink{}

	d := New(f, e, p, s, testLogger)
	res, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if res.State != StateTerminated {
		t.Errorf("expected Terminated, got %s", res.State)
	}
	if res.PagesVisited != 3 {
		t.Errorf("expected 3 pages visited, got %d", res.PagesVisited)
	}
	if res.RecordsWritten != 6 {
		t.Errorf("expected 6 records, got %d", res.RecordsWritten)
	}

	wantOrder := []int{1, 2, 3}
	for i, idx := range wantOrder {
		if f.fetched[i] != idx {
			t.Errorf("fetch order: expected %v, got %v", wantOrder, f.fetched)
			break
		}
	}
	if s.rows[0][0] != "t1a" || s.rows[5][0] != "t3b" {
		t.Errorf("rows out of order: %v", s.rows)
	}
	if !s.closed || !f.closed {
		t.Error("cleanup must run on the success path")
	}
}

func TestRunInteractiveTerminatesWithoutAffordance(t *testing.T) {
	// Next affordance present on page 1 only: exactly 2 pages visited,
	// run ends Terminated, not Failed.
	f := &fakeFetcher{pages: map[int]string{1: "a", 2: "b", 3: "c"}}
	e := &fakeExtractor{
		schema:  types.Schema{"title", "price"},
		perPage: map[int][]map[string]string{1: {bookRow("t1", "p1")}, 2: {bookRow("t2", "p2")}},
	}
	p := &fakePaginator{maxPages: 10, nextAt: map[int]bool{1: true}}
	s := &memorySink{}

	d := New(f, e, p, s, testLogger)
	res, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if res.State != StateTerminated {
		t.Errorf("expected Terminated, got %s", res.State)
	}
	if res.PagesVisited != 2 {
		t.Errorf("expected exactly 2 pages, got %d", res.PagesVisited)
	}
}

func TestRunPageBoundBeatsAffordance(t *testing.T) {
	// The configured page bound wins even while a next control remains
	// present.
	f := &fakeFetcher{pages: map[int]string{1: "a", 2: "b", 3: "c", 4: "d"}}
	e := &fakeExtractor{schema: types.Schema{"title", "price"}}
	p := &fakePaginator{maxPages: 2, nextAt: map[int]bool{1: true, 2: true, 3: true}}
	s := &memorySink{}

	d := New(f, e, p, s, testLogger)
	res, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.PagesVisited != 2 {
		t.Errorf("expected bound to stop the run at 2 pages, got %d", res.PagesVisited)
	}
	if res.State != StateTerminated {
		t.Errorf("expected Terminated, got %s", res.State)
	}
}

func TestRunFetchFailurePreservesPartialResults(t *testing.T) {
	// Fetch of page 2 times out: run Fails with a FetchError, rows from
	// page 1 survive, and both resources are released.
	f := &fakeFetcher{pages: map[int]string{1: "a"}, failAt: 2}
	e := &fakeExtractor{
		schema:  types.Schema{"title", "price"},
		perPage: map[int][]map[string]string{1: {bookRow("t1a", "p1a"), bookRow("t1b", "p1b")}},
	}
	p := &fakePaginator{maxPages: 5}
	s := &memorySink{}

	d := New(f, e, p, s, testLogger)
	res, err := d.Run(context.Background())
	if err == nil {
		t.Fatal("expected run to fail")
	}

	var fetchErr *types.FetchError
	if !errors.As(err, &fetchErr) {
		t.Errorf("expected FetchError, got %T: %v", err, err)
	}
	if res.State != StateFailed {
		t.Errorf("expected Failed, got %s", res.State)
	}
	if len(s.rows) != 2 {
		t.Errorf("rows written before the failure must be preserved, got %d", len(s.rows))
	}
	if !s.closed {
		t.Error("sink must be closed on the failure path")
	}
	if !f.closed {
		t.Error("session resource must be released on the failure path")
	}
}

func TestRunMarkerTimeoutOnFirstPage(t *testing.T) {
	// The marker never appears on page 1: Failed with FetchError and
	// zero rows written (the file-level analogue is a header-only
	// output).
	f := &fakeFetcher{failAt: 1}
	e := &fakeExtractor{schema: types.Schema{"title", "price"}}
	p := &fakePaginator{maxPages: 3}
	s := &memorySink{}

	d := New(f, e, p, s, testLogger)
	res, err := d.Run(context.Background())
	if err == nil {
		t.Fatal("expected run to fail")
	}
	if !errors.Is(err, types.ErrMarkerTimeout) {
		t.Errorf("expected marker timeout cause, got %v", err)
	}
	if res.RecordsWritten != 0 {
		t.Errorf("expected no records, got %d", res.RecordsWritten)
	}
	if !s.opened {
		t.Error("sink is opened before the first fetch")
	}
	if !s.closed || !f.closed {
		t.Error("cleanup must run when the first fetch fails")
	}
}

func TestRunNavigationFailure(t *testing.T) {
	f := &fakeFetcher{pages: map[int]string{1: "a", 2: "b"}}
	e := &fakeExtractor{
		schema:  types.Schema{"title", "price"},
		perPage: map[int][]map[string]string{1: {bookRow("t1", "p1")}},
	}
	p := &fakePaginator{maxPages: 5, failAt: 1}
	s := &memorySink{}

	d := New(f, e, p, s, testLogger)
	res, err := d.Run(context.Background())
	if err == nil {
		t.Fatal("expected run to fail")
	}

	var navErr *types.NavigationError
	if !errors.As(err, &navErr) {
		t.Errorf("expected NavigationError, got %T: %v", err, err)
	}
	if res.State != StateFailed {
		t.Errorf("expected Failed, got %s", res.State)
	}
	if len(s.rows) != 1 {
		t.Errorf("page 1 rows must be preserved, got %d", len(s.rows))
	}
}

func TestRunSinkOpenFailure(t *testing.T) {
	f := &fakeFetcher{pages: map[int]string{1: "a"}}
	e := &fakeExtractor{schema: types.Schema{"title"}}
	p := &fakePaginator{maxPages: 1}
	s := &memorySink{openErr: &types.SinkError{Backend: "csv", Err: fmt.Errorf("permission denied")}}

	d := New(f, e, p, s, testLogger)
	res, err := d.Run(context.Background())
	if err == nil {
		t.Fatal("expected run to fail")
	}

	var sinkErr *types.SinkError
	if !errors.As(err, &sinkErr) {
		t.Errorf("expected SinkError, got %T", err)
	}
	if res.State != StateFailed {
		t.Errorf("expected Failed, got %s", res.State)
	}
	if len(f.fetched) != 0 {
		t.Error("no page may be fetched when the sink cannot open")
	}
	if !f.closed {
		t.Error("session resource must be released when the sink cannot open")
	}
}

func TestRunSinkWriteFailure(t *testing.T) {
	f := &fakeFetcher{pages: map[int]string{1: "a"}}
	e := &fakeExtractor{
		schema:  types.Schema{"title", "price"},
		perPage: map[int][]map[string]string{1: {bookRow("t1", "p1"), bookRow("t2", "p2")}},
	}
	p := &fakePaginator{maxPages: 3}
	s := &memorySink{failAt: 2}

	d := New(f, e, p, s, testLogger)
	res, err := d.Run(context.Background())
	if err == nil {
		t.Fatal("expected run to fail")
	}
	if res.State != StateFailed {
		t.Errorf("expected Failed, got %s", res.State)
	}
	if len(s.rows) != 1 {
		t.Errorf("the row written before the failure must be preserved, got %d", len(s.rows))
	}
}

func TestRunZeroContainersProceeds(t *testing.T) {
	// Pages with no containers are not errors; pagination continues.
	f := &fakeFetcher{pages: map[int]string{1: "a", 2: "b"}}
	e := &fakeExtractor{schema: types.Schema{"title"}}
	p := &fakePaginator{maxPages: 2}
	s := &memorySink{}

	d := New(f, e, p, s, testLogger)
	res, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.State != StateTerminated {
		t.Errorf("expected Terminated, got %s", res.State)
	}
	if res.PagesVisited != 2 {
		t.Errorf("expected 2 pages, got %d", res.PagesVisited)
	}
	if res.RecordsWritten != 0 {
		t.Errorf("expected 0 records, got %d", res.RecordsWritten)
	}
}

func TestRunCancellationAtIterationBoundary(t *testing.T) {
	f := &fakeFetcher{pages: map[int]string{1: "a", 2: "b", 3: "c"}}
	e := &fakeExtractor{schema: types.Schema{"title"}}
	p := &fakePaginator{maxPages: 3}
	s := &memorySink{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := New(f, e, p, s, testLogger)
	res, err := d.Run(ctx)
	if err == nil {
		t.Fatal("expected cancelled run to fail")
	}
	if !errors.Is(err, types.ErrRunCancelled) {
		t.Errorf("expected ErrRunCancelled, got %v", err)
	}
	if res.State != StateFailed {
		t.Errorf("expected Failed, got %s", res.State)
	}
	if len(f.fetched) != 0 {
		t.Error("cancellation before the first boundary must not fetch")
	}
	if !s.closed || !f.closed {
		t.Error("cancellation must still run the cleanup path")
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateIdle:       "idle",
		StateFetching:   "fetching",
		StateExtracting: "extracting",
		StatePersisting: "persisting",
		StatePaginating: "paginating",
		StateTerminated: "terminated",
		StateFailed:     "failed",
		State(42):       "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
