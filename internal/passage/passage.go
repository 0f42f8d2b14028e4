// Package passage loads typing passages keyed by difficulty.
package passage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned when the passage file or the requested difficulty is missing.
var ErrNotFound = errors.New("passage not found")

var preferredOrder = []string{"Easy", "Medium", "Hard"}

// Repository reads passages from a JSON or YAML file. The file is re-read on
// every call so edits are picked up without restarting.
type Repository struct {
	path string
}

// NewRepository returns a repository backed by the file at path.
func NewRepository(path string) *Repository {
	return &Repository{path: path}
}

// Path returns the backing file path.
func (r *Repository) Path() string {
	return r.path
}

// Get returns the passage text for difficulty.
func (r *Repository) Get(difficulty string) (string, error) {
	all, err := r.load()
	if err != nil {
		return "", err
	}
	text, ok := all[difficulty]
	if !ok || strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no text for difficulty %q: %w", difficulty, ErrNotFound)
	}
	return text, nil
}

// Difficulties lists the available difficulty names. Easy, Medium and Hard
// come first when present; the rest follow sorted.
func (r *Repository) Difficulties() ([]string, error) {
	all, err := r.load()
	if err != nil {
		return nil, err
	}
	return orderDifficulties(all), nil
}

func (r *Repository) load() (map[string]string, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, fmt.Errorf("failed to read passage file: %w", err)
	}
	all := map[string]string{}
	if isYAML(r.path) {
		err = yaml.Unmarshal(data, &all)
	} else {
		err = json.Unmarshal(data, &all)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode passage file %s: %w", r.path, err)
	}
	return all, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

func orderDifficulties(all map[string]string) []string {
	out := make([]string, 0, len(all))
	seen := map[string]struct{}{}
	for _, name := range preferredOrder {
		if _, ok := all[name]; ok {
			out = append(out, name)
			seen[name] = struct{}{}
		}
	}
	rest := make([]string, 0, len(all))
	for name := range all {
		if _, ok := seen[name]; !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}
