package stats

import (
	"bytes"
	"strings"
	"testing"

	"github.com/verte-zerg/cpstest/internal/model"
)

func TestRound2HalfUp(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{7.4, 7.4},
		{1.005 + 1e-9, 1.01},
		{2.344, 2.34},
		{0, 0},
	}
	for _, tc := range cases {
		if got := Round2(tc.in); got != tc.want {
			t.Fatalf("Round2(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestCPS(t *testing.T) {
	if got := CPS(37, 5); got != 7.4 {
		t.Fatalf("expected 7.4, got %v", got)
	}
	if got := CPS(10, 3); got != 3.33 {
		t.Fatalf("expected 3.33, got %v", got)
	}
	if got := CPS(5, 0); got != 0 {
		t.Fatalf("expected 0 for zero duration, got %v", got)
	}
}

func TestSparklineFlat(t *testing.T) {
	if got := Sparkline([]float64{3, 3, 3}); got != "+++" {
		t.Fatalf("unexpected flat sparkline %q", got)
	}
	if got := Sparkline([]float64{0, 10}); got != " @" {
		t.Fatalf("unexpected sparkline %q", got)
	}
}

func TestSummarize(t *testing.T) {
	records := []model.HistoryRecord{
		{TestTime: 5, Clicks: 40, CPS: 8},
		{TestTime: 5, Clicks: 35, CPS: 7, Multi: 4},
		{TestTime: 5, Clicks: 30, CPS: 6},
	}
	s := Summarize(records)
	if s.Tests != 3 || s.AvgCPS != 7 || s.BestCPS != 8 || s.Clicks != 105 || s.BestMulti != 4 {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSummary(&buf, "Click Test", nil); err != nil {
		t.Fatalf("render empty: %v", err)
	}
	if !strings.Contains(buf.String(), "no history yet") {
		t.Fatalf("expected empty notice, got %q", buf.String())
	}
	buf.Reset()
	records := []model.HistoryRecord{{CPS: 9}, {CPS: 5}}
	if err := RenderSummary(&buf, "Click Test", records); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Tests: 2", "Avg CPS: 7.00", "Best CPS: 9.00", "Trend: [ @]"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}
}
