package stats

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/speedtype/internal/model"
)

type fakeLister struct {
	sessions []model.SessionRecord
	err      error
	got      model.HistoryConfig
}

func (f *fakeLister) ListSessions(_ context.Context, cfg model.HistoryConfig) ([]model.SessionRecord, error) {
	f.got = cfg
	return f.sessions, f.err
}

func sessions(wpms ...float64) []model.SessionRecord {
	out := make([]model.SessionRecord, len(wpms))
	for i, w := range wpms {
		end := time.Date(2026, 1, 1, 12, i, 0, 0, time.UTC)
		out[i] = model.SessionRecord{
			StartedAt:  end.Add(-time.Minute),
			EndedAt:    end,
			Difficulty: "Easy",
			Duration:   time.Minute,
			WPM:        w,
			ErrorCount: i,
			NewBest:    i == len(wpms)-1,
		}
	}
	return out
}

func TestSummarize(t *testing.T) {
	sum := Summarize(sessions(1, 2, 3))
	assert.Equal(t, 3, sum.Sessions)
	assert.InDelta(t, 2.0, sum.AvgWPM, 1e-9)
	assert.InDelta(t, 3.0, sum.BestWPM, 1e-9)
	assert.InDelta(t, 1.0, sum.AvgErrors, 1e-9)

	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestBuildReport(t *testing.T) {
	lister := &fakeLister{sessions: sessions(1, 3, 5)}
	cfg := model.HistoryConfig{Difficulty: "Easy", Window: 2}

	report, err := BuildReport(context.Background(), lister, cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg, lister.got)
	assert.Len(t, report.Sessions, 3)
	assert.Equal(t, []float64{1, 2, 4}, report.Trend)
	assert.InDelta(t, 5.0, report.Summary.BestWPM, 1e-9)
}

func TestBuildReportError(t *testing.T) {
	lister := &fakeLister{err: errors.New("boom")}
	_, err := BuildReport(context.Background(), lister, model.HistoryConfig{})
	assert.EqualError(t, err, "boom")
}

func TestRenderHistory(t *testing.T) {
	report, err := BuildReport(context.Background(), &fakeLister{sessions: sessions(0.5, 0.9)}, model.HistoryConfig{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, RenderHistory(&buf, report, 0))
	out := buf.String()
	for _, want := range []string{"Sessions: 2", "Best WPM: 0.90", "Avg WPM: 0.70", "Trend", "Recent Sessions", "Difficulty", "60s"} {
		assert.Contains(t, out, want)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.True(t, strings.HasSuffix(lines[len(lines)-1], "*"))
}

func TestRenderHistoryLimitsRowsAndWidth(t *testing.T) {
	wpms := make([]float64, 15)
	for i := range wpms {
		wpms[i] = float64(i)
	}
	report, err := BuildReport(context.Background(), &fakeLister{sessions: sessions(wpms...)}, model.HistoryConfig{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, RenderHistory(&buf, report, 5))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

	var trend string
	for i, line := range lines {
		if line == "Trend" {
			trend = lines[i+1]
		}
	}
	assert.Len(t, trend, 5)

	var tableLines int
	for i, line := range lines {
		if line == "Recent Sessions" {
			tableLines = len(lines) - i - 2
		}
	}
	assert.Equal(t, historyRows, tableLines)
}

func TestRenderHistoryEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderHistory(&buf, Report{}, 0))
	assert.Equal(t, "No sessions found.\n", buf.String())
}
