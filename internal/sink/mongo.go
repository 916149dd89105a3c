package sink

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pagesift/internal/config"
	"pagesift/internal/types"
)

// MongoSink writes records to a MongoDB collection, one insert per
// record so every acknowledged write is durable on its own.
type MongoSink struct {
	uri        string
	database   string
	collName   string
	cmdTimeout time.Duration

	client     *mongo.Client
	collection *mongo.Collection
	schema     types.Schema
	count      int
	logger     *slog.Logger
}

// NewMongoSink creates a MongoDB sink. No connection is made until
// Open.
func NewMongoSink(cfg *config.SinkConfig, logger *slog.Logger) *MongoSink {
	return &MongoSink{
		uri:        cfg.URI,
		database:   cfg.Database,
		collName:   cfg.Collection,
		cmdTimeout: cfg.CommandTimeout,
		logger:     logger.With("component", "mongo_sink"),
	}
}

func (s *MongoSink) Name() string { return "mongodb" }

// Open connects, verifies the server is reachable, and starts the run
// from an empty collection so one run never appends to stale rows.
func (s *MongoSink) Open(schema types.Schema) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cmdTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(s.uri))
	if err != nil {
		return &types.SinkError{Backend: s.Name(), Err: fmt.Errorf("connect: %w", err)}
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return &types.SinkError{Backend: s.Name(), Err: fmt.Errorf("ping: %w", err)}
	}

	s.client = client
	s.collection = client.Database(s.database).Collection(s.collName)
	s.schema = schema

	if err := s.collection.Drop(ctx); err != nil {
		_ = client.Disconnect(ctx)
		s.client = nil
		return &types.SinkError{Backend: s.Name(), Err: fmt.Errorf("reset collection: %w", err)}
	}

	s.logger.Debug("sink opened", "database", s.database, "collection", s.collName)
	return nil
}

// Write inserts one document per record, fields in schema order with
// unresolved fields carrying the Unknown placeholder.
func (s *MongoSink) Write(rec *types.Record) error {
	if s.collection == nil {
		return &types.SinkError{Backend: s.Name(), Err: types.ErrSinkNotOpen}
	}

	doc := make(map[string]any, len(s.schema)+1)
	doc["_page"] = rec.PageIndex
	for _, name := range s.schema {
		doc[name] = rec.Value(name)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cmdTimeout)
	defer cancel()

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return &types.SinkError{Backend: s.Name(), Err: fmt.Errorf("insert: %w", err)}
	}

	s.count++
	return nil
}

// Close disconnects from the server. Safe to call when Open never
// succeeded.
func (s *MongoSink) Close() error {
	if s.client == nil {
		return nil
	}

	s.logger.Info("mongo sink closing", "rows", s.count)

	ctx, cancel := context.WithTimeout(context.Background(), s.cmdTimeout)
	defer cancel()

	err := s.client.Disconnect(ctx)
	s.client = nil
	s.collection = nil
	if err != nil {
		return &types.SinkError{Backend: s.Name(), Err: err}
	}
	return nil
}
