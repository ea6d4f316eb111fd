package sessionlog

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// Parse decodes the content of a session file. name is recorded on the
// returned Log for display only.
func Parse(name string, data []byte) (*Log, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = 2

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("not a valid session file: empty")
		}
		return nil, fmt.Errorf("not a valid session file: %w", err)
	}
	if header[0] != TimestampHeader {
		return nil, fmt.Errorf("not a valid session file: first header cell is %q, want %q", header[0], TimestampHeader)
	}

	log := &Log{Name: name, Metric: header[1], Rows: []Row{}}
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("not a valid session file: %w", err)
		}
		ts, err := time.ParseInLocation(TimestampLayout, rec[0], time.Local)
		if err != nil {
			return nil, fmt.Errorf("not a valid session file: line %d: bad timestamp %q", line, rec[0])
		}
		log.Rows = append(log.Rows, Row{Timestamp: ts, Value: rec[1]})
	}
	return log, nil
}

// Summary computes aggregate facts over the rows.
func (l *Log) Summary() Summary {
	s := Summary{Count: len(l.Rows)}
	if s.Count == 0 {
		return s
	}
	s.First = l.Rows[0].Timestamp
	s.Last = l.Rows[len(l.Rows)-1].Timestamp
	s.Duration = s.Last.Sub(s.First)

	s.Numeric = true
	s.Min, s.Max = math.Inf(1), math.Inf(-1)
	var sum float64
	for _, row := range l.Rows {
		v, err := strconv.ParseFloat(strings.TrimSpace(row.Value), 64)
		if err != nil {
			s.Numeric = false
			s.Min, s.Max, s.Mean = 0, 0, 0
			return s
		}
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
		sum += v
	}
	s.Mean = sum / float64(s.Count)
	return s
}

// Gaps returns every interval between consecutive rows longer than
// threshold, in file order.
func (l *Log) Gaps(threshold time.Duration) []Gap {
	var gaps []Gap
	for i := 1; i < len(l.Rows); i++ {
		prev, next := l.Rows[i-1].Timestamp, l.Rows[i].Timestamp
		if next.Sub(prev) > threshold {
			gaps = append(gaps, Gap{From: prev, To: next})
		}
	}
	return gaps
}
