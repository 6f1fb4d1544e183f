// Package stats contains score calculations and history reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/cpstest/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Round2 rounds half up to two decimal places.
func Round2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}

// CPS returns clicks per second rounded to two decimals.
func CPS(clicks int, seconds float64) float64 {
	if seconds <= 0 {
		return 0
	}
	return Round2(float64(clicks) / seconds)
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

// Summary aggregates a list of history records.
type Summary struct {
	Tests     int
	AvgCPS    float64
	BestCPS   float64
	Clicks    int
	BestMulti int
}

// Summarize computes aggregate figures for records.
func Summarize(records []model.HistoryRecord) Summary {
	var s Summary
	if len(records) == 0 {
		return s
	}
	var total float64
	for _, r := range records {
		total += r.CPS
		s.Clicks += r.Clicks
		s.BestCPS = math.Max(s.BestCPS, r.CPS)
		s.BestMulti = max(s.BestMulti, r.Multi)
	}
	s.Tests = len(records)
	s.AvgCPS = Round2(total / float64(len(records)))
	return s
}

// RenderSummary prints aggregate figures for records.
func RenderSummary(w io.Writer, title string, records []model.HistoryRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintf(w, "%s: no history yet.\n", title)
		return err
	}
	s := Summarize(records)
	lines := []string{
		title,
		fmt.Sprintf("Tests: %d", s.Tests),
		fmt.Sprintf("Avg CPS: %.2f", s.AvgCPS),
		fmt.Sprintf("Best CPS: %.2f", s.BestCPS),
		fmt.Sprintf("Total clicks: %d", s.Clicks),
	}
	if s.BestMulti > 0 {
		lines = append(lines, fmt.Sprintf("Best multi-clicks: %d", s.BestMulti))
	}
	// Records are stored newest first; the trend reads left to right.
	values := make([]float64, len(records))
	for i, r := range records {
		values[len(records)-1-i] = r.CPS
	}
	lines = append(lines, fmt.Sprintf("Trend: [%s]", Sparkline(values)), "")
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
