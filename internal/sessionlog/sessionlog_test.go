package sessionlog

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"pgregory.net/rapid"
)

func TestCreateWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data_1.csv")

	w, err := Create(path, "O2 Level")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := Create(path, "O2 Level"); err == nil {
		t.Fatal("second Create on the same path should fail")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got, want := string(data), "Timestamp,O2 Level\n"; got != want {
		t.Errorf("content = %q, want %q", got, want)
	}
}

func TestAppendFlushesEachRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data_2.csv")
	w, err := Create(path, "O2 Level")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer w.Close()

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)
	if err := w.Append(ts, "20.9"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	// Read before Close: the row must already be on disk.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "Timestamp,O2 Level\n2024-05-01 12:00:00,20.9\n"
	if string(data) != want {
		t.Errorf("content = %q, want %q", data, want)
	}
}

func TestAppendWritesValuesLiterally(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data_3.csv")
	w, err := Create(path, "O2 Level")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer w.Close()

	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)
	if err := w.Append(ts, " 020.9 "); err != nil {
		t.Fatalf("Append: %v", err)
	}
	for _, v := range []string{"20,9", `1"2`, "20.9\r", "a\nb"} {
		if err := w.Append(ts, v); !errors.Is(err, ErrUnsafeField) {
			t.Errorf("Append(%q) = %v, want ErrUnsafeField", v, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "Timestamp,O2 Level\n2024-05-01 12:00:00, 020.9 \n"
	if string(data) != want {
		t.Fatalf("content = %q, want %q", data, want)
	}
	log, err := Parse("data_3.csv", data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(log.Rows) != 1 || log.Rows[0].Value != " 020.9 " {
		t.Errorf("rows = %+v", log.Rows)
	}
}

func TestCreateRejectsUnsafeMetric(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data_4.csv")
	if _, err := Create(path, "O2, %"); !errors.Is(err, ErrUnsafeField) {
		t.Fatalf("Create = %v, want ErrUnsafeField", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file created for a rejected metric name")
	}
}

// Feature: gaslog, Property: written rows parse back unchanged
func TestWriteParseRoundTrip(t *testing.T) {
	dir := t.TempDir()
	rapid.Check(t, func(rt *rapid.T) {
		path := filepath.Join(dir, rapid.StringMatching(`[a-z]{8}`).Draw(rt, "name")+".csv")
		os.Remove(path)

		w, err := Create(path, "O2 Level")
		if err != nil {
			rt.Fatalf("Create: %v", err)
		}
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)
		values := rapid.SliceOfN(rapid.StringMatching(`[0-9]{1,3}\.[0-9]`), 0, 20).Draw(rt, "values")
		for i, v := range values {
			if err := w.Append(base.Add(time.Duration(i)*time.Second), v); err != nil {
				rt.Fatalf("Append: %v", err)
			}
		}
		w.Close()

		data, err := os.ReadFile(path)
		if err != nil {
			rt.Fatalf("ReadFile: %v", err)
		}
		log, err := Parse(filepath.Base(path), data)
		if err != nil {
			rt.Fatalf("Parse: %v", err)
		}
		if log.Metric != "O2 Level" {
			rt.Errorf("metric = %q", log.Metric)
		}
		if len(log.Rows) != len(values) {
			rt.Fatalf("rows = %d, want %d", len(log.Rows), len(values))
		}
		for i, v := range values {
			if log.Rows[i].Value != v {
				rt.Errorf("row %d value = %q, want %q", i, log.Rows[i].Value, v)
			}
			if want := base.Add(time.Duration(i) * time.Second); !log.Rows[i].Timestamp.Equal(want) {
				rt.Errorf("row %d timestamp = %v, want %v", i, log.Rows[i].Timestamp, want)
			}
		}
	})
}

func TestParseRejectsInvalidFiles(t *testing.T) {
	cases := map[string]string{
		"empty":         "",
		"wrong header":  "Time,O2\n",
		"bad timestamp": "Timestamp,O2 Level\nyesterday,20.9\n",
		"extra field":   "Timestamp,O2 Level\n2024-05-01 12:00:00,20.9,x\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse("x.csv", []byte(content)); err == nil {
				t.Errorf("expected error for %q", content)
			}
		})
	}
}

func TestSummaryAndGaps(t *testing.T) {
	content := "Timestamp,O2 Level\n" +
		"2024-05-01 12:00:00,20.9\n" +
		"2024-05-01 12:00:01,20.8\n" +
		"2024-05-01 12:00:10,21.0\n"
	log, err := Parse("data_1.csv", []byte(content))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	s := log.Summary()
	if s.Count != 3 || !s.Numeric {
		t.Fatalf("summary = %+v", s)
	}
	if s.Min != 20.8 || s.Max != 21.0 {
		t.Errorf("min/max = %v/%v", s.Min, s.Max)
	}
	if s.Duration != 10*time.Second {
		t.Errorf("duration = %v", s.Duration)
	}

	gaps := log.Gaps(DefaultGapThreshold)
	if len(gaps) != 1 || gaps[0].Length() != 9*time.Second {
		t.Errorf("gaps = %+v", gaps)
	}
}

func TestSummaryNonNumeric(t *testing.T) {
	log, err := Parse("x.csv", []byte("Timestamp,O2 Level\n2024-05-01 12:00:00,O 0209.5\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s := log.Summary(); s.Numeric {
		t.Errorf("expected non-numeric summary, got %+v", s)
	}
}

func TestRenderPlainSections(t *testing.T) {
	log := &Log{Name: "data_1.csv", Metric: "O2 Level", Rows: []Row{
		{Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local), Value: "20.9"},
	}}
	var buf bytes.Buffer
	RenderPlain(&buf, log)
	out := buf.String()

	prev := -1
	for _, section := range []string{"## Summary", "## Readings", "## Gaps"} {
		idx := strings.Index(out, section)
		if idx == -1 {
			t.Fatalf("section %q missing:\n%s", section, out)
		}
		if idx < prev {
			t.Errorf("section %q out of order", section)
		}
		prev = idx
	}
	if !strings.Contains(out, "2024-05-01 12:00:00  20.9") {
		t.Errorf("reading row missing:\n%s", out)
	}
}

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestFollowCopiesAppendedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data_3.csv")
	w, err := Create(path, "O2 Level")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- Follow(ctx, path, out) }()

	waitFor(t, func() bool { return strings.Contains(out.String(), "Timestamp,O2 Level") })

	if err := w.Append(time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local), "20.9"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	waitFor(t, func() bool { return strings.Contains(out.String(), "2024-05-01 12:00:00,20.9") })

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Follow returned %v", err)
	}
}

func TestFollowMissingFile(t *testing.T) {
	err := Follow(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), &bytes.Buffer{})
	if !os.IsNotExist(err) {
		t.Errorf("err = %v, want not-exist", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
