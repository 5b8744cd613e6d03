// Package view serves read-only queries over the latest canonical table.
package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/couchcryptid/grid-capacity-etl/internal/adapter/output"
	"github.com/couchcryptid/grid-capacity-etl/internal/domain"
	"github.com/couchcryptid/grid-capacity-etl/internal/observability"
)

// ErrNotLoaded is returned while no canonical table is available.
var ErrNotLoaded = errors.New("canonical table not loaded")

// Store caches the canonical table in memory and reloads it when the
// file's modification time or size changes.
type Store struct {
	path      string
	minRadius float64
	maxRadius float64
	metrics   *observability.Metrics
	logger    *slog.Logger

	mu      sync.RWMutex
	recs    []domain.CanonicalRecord
	modTime time.Time
	size    int64
	loaded  bool
}

// NewStore creates a Store over the canonical CSV at path. Nothing is read
// until the first query.
func NewStore(path string, minRadius, maxRadius float64, metrics *observability.Metrics, logger *slog.Logger) *Store {
	return &Store{
		path:      path,
		minRadius: minRadius,
		maxRadius: maxRadius,
		metrics:   metrics,
		logger:    logger,
	}
}

// Snapshot returns the current table. The returned slice is shared and
// must not be modified.
func (s *Store) Snapshot() ([]domain.CanonicalRecord, error) {
	fi, err := os.Stat(s.path)
	if err != nil {
		s.mu.RLock()
		recs, loaded := s.recs, s.loaded
		s.mu.RUnlock()
		if loaded {
			s.logger.Warn("canonical table unavailable, serving cached snapshot", "path", s.path, "error", err)
			return recs, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrNotLoaded, err)
	}

	s.mu.RLock()
	fresh := s.loaded && fi.ModTime().Equal(s.modTime) && fi.Size() == s.size
	recs := s.recs
	s.mu.RUnlock()
	if fresh {
		return recs, nil
	}
	return s.reload(fi)
}

func (s *Store) reload(fi os.FileInfo) ([]domain.CanonicalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Another caller may have reloaded while we waited for the lock.
	if s.loaded && fi.ModTime().Equal(s.modTime) && fi.Size() == s.size {
		return s.recs, nil
	}

	recs, err := output.ReadCSVFile(s.path)
	if err != nil {
		if s.loaded {
			s.logger.Warn("reload failed, serving cached snapshot", "path", s.path, "error", err)
			return s.recs, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrNotLoaded, err)
	}

	s.recs, s.modTime, s.size, s.loaded = recs, fi.ModTime(), fi.Size(), true
	s.metrics.SnapshotReloads.Inc()
	s.metrics.SnapshotRecords.Set(float64(len(recs)))
	s.logger.Info("canonical table loaded", "path", s.path, "records", len(recs))
	return recs, nil
}

// CheckReadiness reports whether a canonical table can be served.
func (s *Store) CheckReadiness(_ context.Context) error {
	_, err := s.Snapshot()
	return err
}

// Records returns the records matching f with radius recomputed over the
// filtered set.
func (s *Store) Records(f domain.Filter) ([]domain.CanonicalRecord, error) {
	recs, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return domain.ApplyRadius(domain.ApplyFilter(recs, f), s.minRadius, s.maxRadius), nil
}

// Options returns the cascading filter options for the selections in f.
func (s *Store) Options(f domain.Filter) (domain.Options, error) {
	recs, err := s.Snapshot()
	if err != nil {
		return domain.Options{}, err
	}
	return domain.CascadingOptions(recs, f), nil
}

// Stats summarizes the records matching f.
func (s *Store) Stats(f domain.Filter) (domain.Stats, error) {
	recs, err := s.Snapshot()
	if err != nil {
		return domain.Stats{}, err
	}
	return domain.Summarize(domain.ApplyFilter(recs, f)), nil
}

// Nearest returns the record matching f closest to (lat, lon), with radius
// relative to the filtered set.
func (s *Store) Nearest(f domain.Filter, lat, lon float64) (domain.CanonicalRecord, bool, error) {
	recs, err := s.Records(f)
	if err != nil {
		return domain.CanonicalRecord{}, false, err
	}
	r, ok := domain.Nearest(recs, lat, lon)
	return r, ok, nil
}
