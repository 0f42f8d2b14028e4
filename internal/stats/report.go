package stats

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/verte-zerg/speedtype/internal/model"
)

const historyRows = 10

// SessionLister provides finished sessions for reporting.
type SessionLister interface {
	ListSessions(ctx context.Context, cfg model.HistoryConfig) ([]model.SessionRecord, error)
}

// Summary aggregates a set of sessions.
type Summary struct {
	Sessions  int
	AvgWPM    float64
	BestWPM   float64
	AvgErrors float64
}

// Summarize computes aggregate figures for sessions.
func Summarize(sessions []model.SessionRecord) Summary {
	if len(sessions) == 0 {
		return Summary{}
	}
	var sum Summary
	var totalWPM, totalErrors float64
	for _, s := range sessions {
		totalWPM += s.WPM
		totalErrors += float64(s.ErrorCount)
		sum.BestWPM = max(sum.BestWPM, s.WPM)
	}
	count := float64(len(sessions))
	sum.Sessions = len(sessions)
	sum.AvgWPM = totalWPM / count
	sum.AvgErrors = totalErrors / count
	return sum
}

// Report contains precomputed data for history rendering.
type Report struct {
	Sessions []model.SessionRecord
	Summary  Summary
	Trend    []float64
}

// BuildReport loads sessions and prepares them for rendering.
func BuildReport(ctx context.Context, st SessionLister, cfg model.HistoryConfig) (Report, error) {
	sessions, err := st.ListSessions(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	wpms := make([]float64, len(sessions))
	for i, s := range sessions {
		wpms[i] = s.WPM
	}
	return Report{
		Sessions: sessions,
		Summary:  Summarize(sessions),
		Trend:    MovingAverage(wpms, cfg.Window),
	}, nil
}

// RenderHistory prints the summary, trend sparkline and the latest sessions.
// width limits the sparkline; zero means unlimited.
func RenderHistory(w io.Writer, report Report, width int) error {
	if len(report.Sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	sum := report.Summary
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d", sum.Sessions),
		fmt.Sprintf("Avg WPM: %.2f", sum.AvgWPM),
		fmt.Sprintf("Best WPM: %.2f", sum.BestWPM),
		fmt.Sprintf("Avg Errors: %.1f", sum.AvgErrors),
		"",
	}
	trend := report.Trend
	if width > 0 && len(trend) > width {
		trend = trend[len(trend)-width:]
	}
	if spark := Sparkline(trend); spark != "" {
		lines = append(lines, "Trend", spark, "")
	}

	recent := report.Sessions
	if len(recent) > historyRows {
		recent = recent[len(recent)-historyRows:]
	}
	rows := make([][]string, 0, len(recent))
	for _, s := range recent {
		best := ""
		if s.NewBest {
			best = "*"
		}
		rows = append(rows, []string{
			s.EndedAt.Local().Format("2006-01-02 15:04"),
			s.Difficulty,
			strconv.Itoa(int(s.Duration.Seconds())) + "s",
			fmt.Sprintf("%.2f", s.WPM),
			strconv.Itoa(s.ErrorCount),
			best,
		})
	}
	lines = append(lines, "Recent Sessions")
	lines = append(lines, formatTable(
		[]string{"Ended", "Difficulty", "Time", "WPM", "Errors", "Best"},
		rows,
		map[int]bool{2: true, 3: true, 4: true},
	)...)

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
