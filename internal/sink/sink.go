package sink

import (
	"fmt"
	"log/slog"

	"pagesift/internal/config"
	"pagesift/internal/types"
)

// Sink persists records incrementally as they are produced.
type Sink interface {
	// Open prepares the destination for a fresh run with the given
	// fixed schema. A prior output at the same destination is
	// replaced, never appended to.
	Open(schema types.Schema) error

	// Write appends exactly one row and durably persists it before
	// returning.
	Write(rec *types.Record) error

	// Close flushes pending state and releases the destination.
	Close() error

	// Name returns the sink backend identifier.
	Name() string
}

// New creates the configured sink backend.
func New(cfg *config.SinkConfig, logger *slog.Logger) (Sink, error) {
	switch cfg.Type {
	case "csv":
		return NewCSVSink(cfg.Path, logger), nil
	case "mongo":
		return NewMongoSink(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported sink type: %s", cfg.Type)
	}
}
