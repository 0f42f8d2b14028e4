// Package session implements a single timed typing test.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/verte-zerg/speedtype/internal/logging"
	"github.com/verte-zerg/speedtype/internal/model"
	"github.com/verte-zerg/speedtype/internal/stats"
)

// DefaultDuration is the length of a test when none is configured.
const DefaultDuration = 60 * time.Second

var (
	// ErrNoPassage is returned when starting without a passage.
	ErrNoPassage = errors.New("no passage loaded")
	// ErrRunning is returned when the passage is changed mid-test.
	ErrRunning = errors.New("session is running")
)

// State is the lifecycle stage of a session.
type State int

const (
	Idle State = iota
	Running
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// ScoreKeeper holds the persisted personal best.
type ScoreKeeper interface {
	Best() float64
	Save(value float64) error
}

// Recorder stores finished sessions.
type Recorder interface {
	InsertSession(ctx context.Context, rec model.SessionRecord) (int64, error)
}

// Options configures a Session. Zero values fall back to defaults.
type Options struct {
	Duration time.Duration
	Mode     model.WordCountMode
	Now      func() time.Time
	Scores   ScoreKeeper
	History  Recorder
	View     View
	Logger   *slog.Logger
}

// Result is the outcome of a finished session.
type Result struct {
	WPM     float64
	Errors  int
	Words   int
	NewBest bool
	Saved   bool
}

// Session is the state machine for one typing test. It is not safe for
// concurrent use; all calls must come from the same event loop.
type Session struct {
	duration time.Duration
	mode     model.WordCountMode
	now      func() time.Time
	scores   ScoreKeeper
	history  Recorder
	view     View
	log      *slog.Logger

	difficulty string
	passage    string

	state     State
	startedAt time.Time
	endedAt   time.Time

	buffer      string
	wordCount   int
	errorCount  int
	prevCorrect bool

	result Result
}

// New returns an idle session.
func New(opts Options) *Session {
	s := &Session{
		duration: opts.Duration,
		mode:     opts.Mode,
		now:      opts.Now,
		scores:   opts.Scores,
		history:  opts.History,
		view:     opts.View,
		log:      logging.OrDiscard(opts.Logger),
	}
	if s.duration <= 0 {
		s.duration = DefaultDuration
	}
	if !s.mode.Valid() {
		s.mode = model.WordCountCumulative
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.view == nil {
		s.view = nopView{}
	}
	return s
}

// SetPassage replaces the reference text. It is rejected while a test runs.
func (s *Session) SetPassage(difficulty, text string) error {
	if s.state == Running {
		return ErrRunning
	}
	s.difficulty = difficulty
	s.passage = text
	return nil
}

// Start begins a new test from Idle or Finished.
func (s *Session) Start() error {
	if s.passage == "" {
		return ErrNoPassage
	}
	s.clear()
	s.state = Running
	s.startedAt = s.now()
	s.log.Debug("session started", "difficulty", s.difficulty, "duration", s.duration, "mode", s.mode)
	s.view.ShowTimer(int(s.duration.Seconds()))
	s.view.ShowScore(0)
	return nil
}

// Reset returns the session to Idle and clears all counters.
func (s *Session) Reset() {
	s.clear()
	s.state = Idle
	s.view.ShowTimer(int(s.duration.Seconds()))
}

func (s *Session) clear() {
	s.startedAt = time.Time{}
	s.endedAt = time.Time{}
	s.buffer = ""
	s.wordCount = 0
	s.errorCount = 0
	s.prevCorrect = false
	s.result = Result{}
}

// OnInput evaluates the full current input buffer. Calls outside Running
// are ignored.
func (s *Session) OnInput(text string) {
	if s.state != Running {
		return
	}
	s.buffer = text

	correct := strings.HasPrefix(s.passage, text)
	switch {
	case correct && !s.prevCorrect:
		s.errorCount = max(0, s.errorCount-1)
		s.prevCorrect = true
	case !correct && s.prevCorrect:
		s.errorCount++
		s.prevCorrect = false
	}

	switch s.mode {
	case model.WordCountCompleted:
		s.wordCount = completedWords(text, s.passage)
	default:
		s.wordCount += len(strings.Fields(text))
	}
}

// completedWords counts the words of text that are finished: every token
// followed by whitespace, plus the trailing token once the whole passage
// has been typed.
func completedWords(text, passage string) int {
	n := len(strings.Fields(text))
	if n == 0 || text == passage {
		return n
	}
	last, _ := utf8.DecodeLastRuneInString(text)
	if !unicode.IsSpace(last) {
		n--
	}
	return n
}

// Tick re-evaluates the countdown. When time is up the session finishes and
// the result is finalized exactly once.
func (s *Session) Tick() {
	if s.state != Running {
		return
	}
	remaining := s.Remaining()
	s.view.ShowTimer(max(0, int(remaining.Seconds())))
	if remaining > 0 {
		return
	}
	s.finish()
}

// RefreshScore pushes the live speed to the view.
func (s *Session) RefreshScore() {
	if s.state != Running {
		return
	}
	s.view.ShowScore(s.CurrentWPM())
}

func (s *Session) finish() {
	s.state = Finished
	s.endedAt = s.now()

	wpm := stats.FinalWPM(s.wordCount, s.duration)
	s.result = Result{WPM: wpm, Errors: s.errorCount, Words: s.wordCount}

	if s.scores != nil && wpm > s.scores.Best() {
		s.result.NewBest = true
		if err := s.scores.Save(wpm); err != nil {
			s.log.Warn("failed to save high score", "wpm", wpm, "err", err)
			s.view.ShowError(ErrorPersistence, err.Error())
		} else {
			s.result.Saved = true
			s.view.ShowBest(wpm)
		}
	}

	s.record()
	s.log.Info("session finished",
		"difficulty", s.difficulty,
		"wpm", wpm,
		"words", s.wordCount,
		"errors", s.errorCount,
		"new_best", s.result.NewBest,
	)
	s.view.ShowResult(wpm, s.errorCount)
}

func (s *Session) record() {
	if s.history == nil {
		return
	}
	rec := model.SessionRecord{
		StartedAt:  s.startedAt,
		EndedAt:    s.endedAt,
		Difficulty: s.difficulty,
		Duration:   s.duration,
		WordCount:  s.wordCount,
		ErrorCount: s.errorCount,
		WPM:        s.result.WPM,
		Mode:       s.mode,
		NewBest:    s.result.NewBest && s.result.Saved,
	}
	if _, err := s.history.InsertSession(context.Background(), rec); err != nil {
		s.log.Warn("failed to record session", "err", err)
	}
}

// CurrentWPM returns words over elapsed seconds, or 0 before any time passed.
func (s *Session) CurrentWPM() float64 {
	return stats.LiveWPM(s.wordCount, s.Elapsed())
}

// Elapsed returns the time spent in the current test.
func (s *Session) Elapsed() time.Duration {
	switch s.state {
	case Running:
		return s.now().Sub(s.startedAt)
	case Finished:
		return s.endedAt.Sub(s.startedAt)
	default:
		return 0
	}
}

// Remaining returns the time left on the countdown.
func (s *Session) Remaining() time.Duration {
	switch s.state {
	case Running:
		return s.duration - s.Elapsed()
	case Finished:
		return 0
	default:
		return s.duration
	}
}

// State returns the lifecycle stage.
func (s *Session) State() State { return s.state }

// Duration returns the configured test length.
func (s *Session) Duration() time.Duration { return s.duration }

// Mode returns the word counting mode.
func (s *Session) Mode() model.WordCountMode { return s.mode }

// Difficulty returns the name of the loaded passage.
func (s *Session) Difficulty() string { return s.difficulty }

// Passage returns the reference text.
func (s *Session) Passage() string { return s.passage }

// Buffer returns the last evaluated input.
func (s *Session) Buffer() string { return s.buffer }

// WordCount returns the current word count.
func (s *Session) WordCount() int { return s.wordCount }

// ErrorCount returns the current error count.
func (s *Session) ErrorCount() int { return s.errorCount }

// Result returns the outcome once Finished.
func (s *Session) Result() (Result, bool) {
	return s.result, s.state == Finished
}
