package types

// PipelineState holds the transient counters of one pipeline run.
// Owned exclusively by the driver and mutated only between iterations;
// the run is single-threaded and strictly sequential.
type PipelineState struct {
	// PageIndex is the 1-based index of the page currently being
	// processed.
	PageIndex int

	// RecordsEmitted is the total number of records written so far.
	RecordsEmitted int

	// PagesVisited is the number of pages fully processed.
	PagesVisited int

	// Done is set once a terminal condition has been observed.
	Done bool
}
