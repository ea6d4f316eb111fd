// Package sessionlog reads and writes recording session files.
//
// A session file is CSV: a header "Timestamp,<metric>" followed by one
// "<timestamp>,<value>" row per recorded sample.
package sessionlog

import (
	"time"
)

// TimestampLayout is the layout of the timestamp column.
const TimestampLayout = "2006-01-02 15:04:05"

// TimestampHeader is the first header cell of every session file.
const TimestampHeader = "Timestamp"

// Log is the parsed content of one session file.
type Log struct {
	Name   string // file name, e.g. data_1714564800.csv
	Metric string // second header cell, e.g. "O2 Level"
	Rows   []Row
}

// Row is one recorded sample.
type Row struct {
	Timestamp time.Time
	Value     string
}

// Summary holds aggregate facts about a Log.
type Summary struct {
	Count    int
	First    time.Time
	Last     time.Time
	Duration time.Duration
	// Numeric is true when every value parsed as a number; Min, Max and Mean
	// are only meaningful then.
	Numeric bool
	Min     float64
	Max     float64
	Mean    float64
}

// Gap is a stretch between two consecutive rows that is longer than the
// expected cadence, typically a pause or a run of failed polls.
type Gap struct {
	From time.Time
	To   time.Time
}

// Length returns the duration of the gap.
func (g Gap) Length() time.Duration {
	return g.To.Sub(g.From)
}
