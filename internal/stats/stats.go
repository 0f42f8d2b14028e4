// Package stats contains speed calculations and history reporting.
package stats

import (
	"math"
	"strings"
	"time"
)

const sparkChars = " .:-=+*#%@"

// LiveWPM computes the running speed as words over elapsed seconds.
func LiveWPM(words int, elapsed time.Duration) float64 {
	return perSecond(words, elapsed)
}

// FinalWPM computes the result of a finished test as words over the fixed
// test duration in seconds.
func FinalWPM(words int, duration time.Duration) float64 {
	return perSecond(words, duration)
}

func perSecond(words int, d time.Duration) float64 {
	secs := d.Seconds()
	if secs <= 0 || words <= 0 {
		return 0
	}
	return float64(words) / secs
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}
