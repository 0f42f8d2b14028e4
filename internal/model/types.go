// Package model defines shared data structures.
package model

import "time"

// WordCountMode selects how typed words are counted.
type WordCountMode string

const (
	// WordCountCumulative adds the token count of the whole buffer on every input event.
	WordCountCumulative WordCountMode = "cumulative"
	// WordCountCompleted counts each completed word of the buffer once.
	WordCountCompleted WordCountMode = "completed"
)

// Valid reports whether the mode is known.
func (m WordCountMode) Valid() bool {
	return m == WordCountCumulative || m == WordCountCompleted
}

// Config defines typing test settings.
type Config struct {
	Difficulty   string
	Duration     time.Duration
	PassagesPath string
	ScorePath    string
	WordCount    WordCountMode
	FastTick     time.Duration
	SlowTick     time.Duration
}

// HistoryConfig defines filters and options for history output.
type HistoryConfig struct {
	Difficulty string
	Since      *time.Time
	Last       int
	Window     int
}

// SessionRecord captures a finished typing session.
type SessionRecord struct {
	ID         int64
	StartedAt  time.Time
	EndedAt    time.Time
	Difficulty string
	Duration   time.Duration
	WordCount  int
	ErrorCount int
	WPM        float64
	Mode       WordCountMode
	NewBest    bool
}
