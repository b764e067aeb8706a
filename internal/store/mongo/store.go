package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/zap"

	"github.com/spigell/resume-query/internal/metrics"
	"github.com/spigell/resume-query/internal/query"
	"github.com/spigell/resume-query/internal/resume"
)

const (
	driverName     = "mongo"
	defaultTimeout = 30 * time.Second
)

type collection interface {
	Find(ctx context.Context, filter any, opts ...options.Lister[options.FindOptions]) (*mongo.Cursor, error)
}

// Config holds the MongoDB connection settings.
type Config struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
	// Limit caps the number of returned documents. Zero means no limit.
	Limit int64
}

// Store reads standardized resumes from a MongoDB collection.
type Store struct {
	client  *mongo.Client
	coll    collection
	timeout time.Duration
	limit   int64
	logger  *zap.Logger
}

// New connects to MongoDB and verifies the connection with a ping.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	if cfg.Database == "" || cfg.Collection == "" {
		return nil, errors.New("mongo database and collection are required")
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	s := newStore(client.Database(cfg.Database).Collection(cfg.Collection), cfg, logger)
	s.client = client

	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return s, nil
}

func newStore(coll collection, cfg Config, logger *zap.Logger) *Store {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Store{
		coll:    coll,
		timeout: timeout,
		limit:   cfg.Limit,
		logger:  logger.With(zap.String("store", driverName)),
	}
}

// Find returns every resume matching the filter. An empty filter matches nothing
// and does not reach the database.
func (s *Store) Find(ctx context.Context, filter query.Filter) ([]resume.Record, error) {
	if filter.IsEmpty() {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	records, err := s.find(ctx, filter)
	metrics.StoreQueryDuration.WithLabelValues(driverName).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.StoreQueriesTotal.WithLabelValues(driverName, "error").Inc()
		return nil, err
	}

	metrics.StoreQueriesTotal.WithLabelValues(driverName, "success").Inc()
	s.logger.Debug("mongo query completed",
		zap.Int("conditions", filter.Len()),
		zap.Int("found", len(records)),
		zap.Duration("duration", time.Since(start)),
	)

	return records, nil
}

func (s *Store) find(ctx context.Context, filter query.Filter) ([]resume.Record, error) {
	opts := options.Find()
	if s.limit > 0 {
		opts.SetLimit(s.limit)
	}

	cursor, err := s.coll.Find(ctx, filter.BSON(), opts)
	if err != nil {
		return nil, fmt.Errorf("find resumes: %w", err)
	}

	var docs []bson.Raw
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("read resumes: %w", err)
	}

	records := make([]resume.Record, 0, len(docs))
	for _, raw := range docs {
		doc, err := toMap(raw)
		if err != nil {
			return nil, err
		}

		rec, err := resume.Decode(doc)
		if err != nil {
			s.logger.Warn("resume decoded partially", zap.String("name", rec.Name), zap.Error(err))
		}
		records = append(records, rec)
	}

	return records, nil
}

// toMap converts a BSON document into plain JSON-compatible Go values.
func toMap(raw bson.Raw) (map[string]any, error) {
	ext, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return nil, fmt.Errorf("convert resume document: %w", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(ext, &doc); err != nil {
		return nil, fmt.Errorf("convert resume document: %w", err)
	}
	return doc, nil
}

// Ping checks that the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s.client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}
