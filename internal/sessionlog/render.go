package sessionlog

import (
	"fmt"
	"io"
	"time"
)

// DefaultGapThreshold flags any interval longer than two poll periods.
const DefaultGapThreshold = 2 * time.Second

// RenderPlain writes a plain-text report of the log to w.
func RenderPlain(w io.Writer, l *Log) {
	s := l.Summary()

	fmt.Fprintln(w, "## Summary")
	fmt.Fprintf(w, "  File:      %s\n", l.Name)
	fmt.Fprintf(w, "  Metric:    %s\n", l.Metric)
	fmt.Fprintf(w, "  Readings:  %d\n", s.Count)
	if s.Count > 0 {
		fmt.Fprintf(w, "  First:     %s\n", s.First.Format(TimestampLayout))
		fmt.Fprintf(w, "  Last:      %s\n", s.Last.Format(TimestampLayout))
		fmt.Fprintf(w, "  Duration:  %s\n", s.Duration)
	}
	if s.Numeric && s.Count > 0 {
		fmt.Fprintf(w, "  Min:       %g\n", s.Min)
		fmt.Fprintf(w, "  Max:       %g\n", s.Max)
		fmt.Fprintf(w, "  Mean:      %.3f\n", s.Mean)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "## Readings")
	if len(l.Rows) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, row := range l.Rows {
		fmt.Fprintf(w, "  %s  %s\n", row.Timestamp.Format(TimestampLayout), row.Value)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "## Gaps")
	gaps := l.Gaps(DefaultGapThreshold)
	if len(gaps) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, g := range gaps {
		fmt.Fprintf(w, "  %s → %s  (%s)\n", g.From.Format(TimestampLayout), g.To.Format("15:04:05"), g.Length())
	}
}
