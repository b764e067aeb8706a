// Package memory serves resumes from JSON files loaded into memory. It applies
// the same matching rules as the MongoDB store and is meant for local runs and tests.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/resume-query/internal/metrics"
	"github.com/spigell/resume-query/internal/query"
	"github.com/spigell/resume-query/internal/resume"
)

const driverName = "memory"

// Store keeps raw resume documents in memory.
type Store struct {
	docs   []map[string]any
	limit  int
	logger *zap.Logger
}

// New creates a store over the given documents.
func New(docs []map[string]any, limit int, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{docs: docs, limit: limit, logger: logger.With(zap.String("store", driverName))}
}

// Load reads resumes from path. A file may hold a single resume object or an
// array of them; a directory is scanned for *.json files.
func Load(path string, limit int, logger *zap.Logger) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("resume file is required for the memory store")
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	files := []string{path}
	if info.IsDir() {
		files, err = filepath.Glob(filepath.Join(path, "*.json"))
		if err != nil {
			return nil, err
		}
		sort.Strings(files)
	}

	var docs []map[string]any
	for _, file := range files {
		loaded, err := readFile(file)
		if err != nil {
			return nil, err
		}
		docs = append(docs, loaded...)
	}

	return New(docs, limit, logger), nil
}

func readFile(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var docs []map[string]any
		if err := json.Unmarshal(data, &docs); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return docs, nil
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return []map[string]any{doc}, nil
}

func (s *Store) Len() int { return len(s.docs) }

// Find returns the resumes matching the filter in load order.
func (s *Store) Find(ctx context.Context, filter query.Filter) ([]resume.Record, error) {
	if filter.IsEmpty() {
		return nil, nil
	}

	start := time.Now()
	defer func() {
		metrics.StoreQueryDuration.WithLabelValues(driverName).Observe(time.Since(start).Seconds())
	}()

	var records []resume.Record
	for _, doc := range s.docs {
		if err := ctx.Err(); err != nil {
			metrics.StoreQueriesTotal.WithLabelValues(driverName, "error").Inc()
			return nil, err
		}
		if !filter.Matches(doc) {
			continue
		}

		rec, err := resume.Decode(doc)
		if err != nil {
			s.logger.Warn("resume decoded partially", zap.String("name", rec.Name), zap.Error(err))
		}
		records = append(records, rec)

		if s.limit > 0 && len(records) >= s.limit {
			break
		}
	}

	metrics.StoreQueriesTotal.WithLabelValues(driverName, "success").Inc()
	return records, nil
}
