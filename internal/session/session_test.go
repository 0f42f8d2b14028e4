package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/speedtype/internal/model"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fakeScores struct {
	best  float64
	saves []float64
	err   error
}

func (f *fakeScores) Best() float64 { return f.best }

func (f *fakeScores) Save(v float64) error {
	f.saves = append(f.saves, v)
	if f.err != nil {
		return f.err
	}
	f.best = v
	return nil
}

type fakeRecorder struct {
	records []model.SessionRecord
	err     error
}

func (f *fakeRecorder) InsertSession(_ context.Context, rec model.SessionRecord) (int64, error) {
	f.records = append(f.records, rec)
	return int64(len(f.records)), f.err
}

type shownError struct {
	kind ErrorKind
	msg  string
}

type recordingView struct {
	scores  []float64
	timers  []int
	results [][2]float64
	bests   []float64
	errors  []shownError
}

func (v *recordingView) ShowScore(wpm float64) { v.scores = append(v.scores, wpm) }
func (v *recordingView) ShowTimer(s int) { v.timers = append(v.timers, s) }
func (v *recordingView) ShowBest(wpm float64) { v.bests = append(v.bests, wpm) }
func (v *recordingView) ShowResult(wpm float64, errs int) {
	v.results = append(v.results, [2]float64{wpm, float64(errs)})
}
func (v *recordingView) ShowError(kind ErrorKind, msg string) {
	v.errors = append(v.errors, shownError{kind: kind, msg: msg})
}

type fixture struct {
	clock   *fakeClock
	scores  *fakeScores
	history *fakeRecorder
	view    *recordingView
	s       *Session
}

func newFixture(t *testing.T, passage string, mode model.WordCountMode) *fixture {
	t.Helper()
	f := &fixture{
		clock:   newFakeClock(),
		scores:  &fakeScores{},
		history: &fakeRecorder{},
		view:    &recordingView{},
	}
	f.s = New(Options{
		Duration: 60 * time.Second,
		Mode:     mode,
		Now:      f.clock.Now,
		Scores:   f.scores,
		History:  f.history,
		View:     f.view,
	})
	require.NoError(t, f.s.SetPassage("Easy", passage))
	return f
}

func TestNewDefaults(t *testing.T) {
	s := New(Options{})
	assert.Equal(t, Idle, s.State())
	assert.Equal(t, DefaultDuration, s.Duration())
	assert.Equal(t, model.WordCountCumulative, s.Mode())
	assert.Equal(t, DefaultDuration, s.Remaining())
	assert.Zero(t, s.CurrentWPM())
}

func TestStartRequiresPassage(t *testing.T) {
	s := New(Options{})
	assert.ErrorIs(t, s.Start(), ErrNoPassage)
	assert.Equal(t, Idle, s.State())
}

func TestIdleCallsAreNoOps(t *testing.T) {
	f := newFixture(t, "the quick fox", model.WordCountCumulative)

	f.s.OnInput("thx")
	f.s.Tick()
	f.s.RefreshScore()

	assert.Equal(t, Idle, f.s.State())
	assert.Zero(t, f.s.ErrorCount())
	assert.Zero(t, f.s.WordCount())
	assert.Empty(t, f.s.Buffer())
	assert.Empty(t, f.view.timers)
	assert.Empty(t, f.view.scores)
}

func TestCorrectPrefixesKeepErrorsAtZero(t *testing.T) {
	f := newFixture(t, "the quick fox", model.WordCountCumulative)
	require.NoError(t, f.s.Start())

	for _, in := range []string{"t", "th", "the", "the q"} {
		f.s.OnInput(in)
		assert.Zero(t, f.s.ErrorCount(), in)
	}
}

func TestErrorRecovery(t *testing.T) {
	f := newFixture(t, "the quick fox", model.WordCountCumulative)
	require.NoError(t, f.s.Start())

	f.s.OnInput("the")
	assert.Zero(t, f.s.ErrorCount())
	f.s.OnInput("thx")
	assert.Equal(t, 1, f.s.ErrorCount())
	f.s.OnInput("thxx")
	assert.Equal(t, 1, f.s.ErrorCount())
	f.s.OnInput("the")
	assert.Zero(t, f.s.ErrorCount())
}

func TestInputLongerThanPassageIsIncorrect(t *testing.T) {
	f := newFixture(t, "fox", model.WordCountCumulative)
	require.NoError(t, f.s.Start())

	f.s.OnInput("fox")
	f.s.OnInput("foxy")
	assert.Equal(t, 1, f.s.ErrorCount())
}

func TestErrorCountNeverNegative(t *testing.T) {
	f := newFixture(t, "abc", model.WordCountCumulative)
	require.NoError(t, f.s.Start())

	inputs := []string{"x", "xx", "a", "ab", "x", "a", "ax", "axx", "abc", "b", "a", "", "z"}
	for _, in := range inputs {
		f.s.OnInput(in)
		assert.GreaterOrEqual(t, f.s.ErrorCount(), 0, in)
	}
}

func TestIncorrectFirstInputDoesNotCount(t *testing.T) {
	f := newFixture(t, "abc", model.WordCountCumulative)
	require.NoError(t, f.s.Start())

	// previous state starts incorrect, so a wrong first key is not a transition.
	f.s.OnInput("x")
	assert.Zero(t, f.s.ErrorCount())
}

func TestCumulativeWordCount(t *testing.T) {
	f := newFixture(t, "the quick fox", model.WordCountCumulative)
	require.NoError(t, f.s.Start())

	f.s.OnInput("the")
	f.s.OnInput("the ")
	f.s.OnInput("the q")
	assert.Equal(t, 1+1+2, f.s.WordCount())
}

func TestCompletedWordCount(t *testing.T) {
	f := newFixture(t, "the quick fox", model.WordCountCompleted)
	require.NoError(t, f.s.Start())

	steps := []struct {
		in   string
		want int
	}{
		{"t", 0},
		{"the", 0},
		{"the ", 1},
		{"the qu", 1},
		{"the quick ", 2},
		{"the quick", 1},
		{"the quick fo", 2},
		{"the quick fox", 3},
	}
	for _, step := range steps {
		f.s.OnInput(step.in)
		assert.Equal(t, step.want, f.s.WordCount(), step.in)
	}
}

func TestCurrentWPMUsesElapsedClock(t *testing.T) {
	f := newFixture(t, "a b c d e", model.WordCountCompleted)
	require.NoError(t, f.s.Start())

	f.s.OnInput("a b c d e")
	assert.Zero(t, f.s.CurrentWPM())

	f.clock.Advance(10 * time.Second)
	assert.InDelta(t, 0.5, f.s.CurrentWPM(), 1e-9)
	assert.Equal(t, 50*time.Second, f.s.Remaining())

	f.s.RefreshScore()
	require.NotEmpty(t, f.view.scores)
	assert.InDelta(t, 0.5, f.view.scores[len(f.view.scores)-1], 1e-9)
}

func TestTickCountsDown(t *testing.T) {
	f := newFixture(t, "abc", model.WordCountCumulative)
	require.NoError(t, f.s.Start())

	f.clock.Advance(1500 * time.Millisecond)
	f.s.Tick()
	assert.Equal(t, Running, f.s.State())
	assert.Equal(t, []int{60, 58}, f.view.timers)
}

func typeWords(s *Session, n int) {
	// cumulative mode adds five tokens per event.
	for i := 0; i < n/5; i++ {
		s.OnInput("a b c d e")
	}
}

func TestExpiryPersistsNewBest(t *testing.T) {
	f := newFixture(t, "a b c d e", model.WordCountCumulative)
	f.scores.best = 0.5
	require.NoError(t, f.s.Start())
	typeWords(f.s, 50)
	require.Equal(t, 50, f.s.WordCount())

	f.clock.Advance(60 * time.Second)
	f.s.Tick()

	assert.Equal(t, Finished, f.s.State())
	res, ok := f.s.Result()
	require.True(t, ok)
	assert.InDelta(t, 50.0/60.0, res.WPM, 1e-9)
	assert.True(t, res.NewBest)
	assert.True(t, res.Saved)
	require.Len(t, f.scores.saves, 1)
	assert.InDelta(t, 0.83, f.scores.best, 0.005)
	assert.Equal(t, []float64{res.WPM}, f.view.bests)
	require.Len(t, f.view.results, 1)
	assert.Equal(t, 0, f.view.timers[len(f.view.timers)-1])

	require.Len(t, f.history.records, 1)
	rec := f.history.records[0]
	assert.Equal(t, "Easy", rec.Difficulty)
	assert.Equal(t, 50, rec.WordCount)
	assert.True(t, rec.NewBest)
	assert.Equal(t, 60*time.Second, rec.EndedAt.Sub(rec.StartedAt))
}

func TestExpiryKeepsHigherBest(t *testing.T) {
	f := newFixture(t, "a b c d e", model.WordCountCumulative)
	f.scores.best = 10
	require.NoError(t, f.s.Start())
	typeWords(f.s, 50)

	f.clock.Advance(61 * time.Second)
	f.s.Tick()

	res, ok := f.s.Result()
	require.True(t, ok)
	assert.False(t, res.NewBest)
	assert.Empty(t, f.scores.saves)
	assert.Empty(t, f.view.bests)
	assert.Len(t, f.view.results, 1)
}

func TestFinalizationIsIdempotent(t *testing.T) {
	f := newFixture(t, "a b c d e", model.WordCountCumulative)
	require.NoError(t, f.s.Start())
	typeWords(f.s, 10)
	f.s.OnInput("a x")

	f.clock.Advance(60 * time.Second)
	f.s.Tick()
	words, errs := f.s.WordCount(), f.s.ErrorCount()

	for i := 0; i < 5; i++ {
		f.clock.Advance(time.Second)
		f.s.Tick()
		f.s.OnInput("a b c")
	}

	assert.Equal(t, words, f.s.WordCount())
	assert.Equal(t, errs, f.s.ErrorCount())
	assert.Len(t, f.scores.saves, 1)
	assert.Len(t, f.view.results, 1)
	assert.Len(t, f.history.records, 1)
}

func TestPersistenceFailureStillReportsResult(t *testing.T) {
	f := newFixture(t, "a b c d e", model.WordCountCumulative)
	f.scores.err = errors.New("disk full")
	require.NoError(t, f.s.Start())
	typeWords(f.s, 5)

	f.clock.Advance(60 * time.Second)
	f.s.Tick()

	res, ok := f.s.Result()
	require.True(t, ok)
	assert.True(t, res.NewBest)
	assert.False(t, res.Saved)
	require.Len(t, f.view.errors, 1)
	assert.Equal(t, ErrorPersistence, f.view.errors[0].kind)
	assert.Contains(t, f.view.errors[0].msg, "disk full")
	assert.Len(t, f.view.results, 1)
	assert.Empty(t, f.view.bests)
	require.Len(t, f.history.records, 1)
	assert.False(t, f.history.records[0].NewBest)
}

func TestHistoryFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, "a", model.WordCountCumulative)
	f.history.err = errors.New("locked")
	require.NoError(t, f.s.Start())

	f.clock.Advance(60 * time.Second)
	f.s.Tick()

	assert.Equal(t, Finished, f.s.State())
	assert.Len(t, f.view.results, 1)
	assert.Empty(t, f.view.errors)
}

func TestRestartAfterFinish(t *testing.T) {
	f := newFixture(t, "the quick fox", model.WordCountCumulative)
	require.NoError(t, f.s.Start())
	f.s.OnInput("the")
	f.s.OnInput("thx")
	f.clock.Advance(60 * time.Second)
	f.s.Tick()
	require.Equal(t, Finished, f.s.State())

	require.NoError(t, f.s.Start())
	assert.Equal(t, Running, f.s.State())
	assert.Zero(t, f.s.WordCount())
	assert.Zero(t, f.s.ErrorCount())
	assert.Empty(t, f.s.Buffer())
	_, ok := f.s.Result()
	assert.False(t, ok)
	assert.Equal(t, 60*time.Second, f.s.Remaining())
}

func TestResetReturnsToIdle(t *testing.T) {
	f := newFixture(t, "the quick fox", model.WordCountCumulative)
	require.NoError(t, f.s.Start())
	f.s.OnInput("the")
	f.clock.Advance(5 * time.Second)

	f.s.Reset()
	assert.Equal(t, Idle, f.s.State())
	assert.Zero(t, f.s.WordCount())
	assert.Zero(t, f.s.Elapsed())

	f.clock.Advance(120 * time.Second)
	f.s.Tick()
	assert.Equal(t, Idle, f.s.State())
	assert.Empty(t, f.scores.saves)
}

func TestSetPassageRejectedWhileRunning(t *testing.T) {
	f := newFixture(t, "abc", model.WordCountCumulative)
	require.NoError(t, f.s.Start())

	assert.ErrorIs(t, f.s.SetPassage("Hard", "xyz"), ErrRunning)
	assert.Equal(t, "abc", f.s.Passage())

	f.s.Reset()
	require.NoError(t, f.s.SetPassage("Hard", "xyz"))
	assert.Equal(t, "Hard", f.s.Difficulty())
	assert.Equal(t, "xyz", f.s.Passage())
}

func TestStateAndErrorKindStrings(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "finished", Finished.String())
	assert.Equal(t, "passage not found", ErrorNotFound.String())
	assert.Equal(t, "no difficulty selected", ErrorNoDifficulty.String())
	assert.Equal(t, "persistence failed", ErrorPersistence.String())
}
