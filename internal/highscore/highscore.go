// Package highscore persists the personal best WPM as a single JSON number.
package highscore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/verte-zerg/speedtype/internal/config"
	"github.com/verte-zerg/speedtype/internal/logging"
)

// ErrPersistence is returned when the best score cannot be written.
var ErrPersistence = errors.New("failed to persist high score")

// Store owns the high-score file and caches the last known best.
type Store struct {
	path    string
	best    float64
	loadErr error
}

// Open loads the best score from path. A missing file yields a zero best.
// An unreadable or corrupt file also starts from zero: the problem is logged,
// kept in LoadErr, and the next Save replaces the file.
func Open(path string, logger *slog.Logger) *Store {
	s := &Store{path: path}
	best, err := s.Load()
	if err != nil {
		logging.OrDiscard(logger).Warn("high score reset to zero", "path", path, "err", err)
		s.loadErr = err
		return s
	}
	s.best = best
	return s
}

// LoadErr reports why the persisted best could not be used at Open.
func (s *Store) LoadErr() error {
	return s.loadErr
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Best returns the cached best score.
func (s *Store) Best() float64 {
	return s.best
}

// Load reads the persisted value from disk. No file means no prior record.
func (s *Store) Load() (float64, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read high score: %w", err)
	}
	var value float64
	if err := json.Unmarshal(data, &value); err != nil {
		return 0, fmt.Errorf("failed to decode high score %s: %w", s.path, err)
	}
	return value, nil
}

// Save rewrites the file with value and updates the cached best.
func (s *Store) Save(value float64) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := config.WriteAtomic(s.path, data); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	s.best = value
	return nil
}
