package state_test

import (
	"sync"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/fakeyudi/gaslog/internal/state"
)

func TestLatestSampleEmptyBeforeFirstPoll(t *testing.T) {
	s := state.NewStore()
	if _, ok := s.LatestSample(); ok {
		t.Fatal("expected no sample on a fresh store")
	}
}

// TestSetLatestSampleRejectsEmptyAndOlder verifies the latest sample is never
// replaced by an empty value or by a sample captured earlier.
func TestSetLatestSampleRejectsEmptyAndOlder(t *testing.T) {
	s := state.NewStore()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	if !s.SetLatestSample(state.Sample{Timestamp: base, Value: "20.9"}) {
		t.Fatal("first sample rejected")
	}
	if s.SetLatestSample(state.Sample{Timestamp: base.Add(time.Second), Value: ""}) {
		t.Error("empty sample accepted")
	}
	if s.SetLatestSample(state.Sample{Timestamp: base.Add(-time.Second), Value: "19.0"}) {
		t.Error("older sample accepted")
	}

	got, ok := s.LatestSample()
	if !ok || got.Value != "20.9" {
		t.Fatalf("latest = %+v, %v; want 20.9", got, ok)
	}
}

// Feature: gaslog, Property: latest sample is monotonic in capture time
func TestLatestSampleMonotonic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := state.NewStore()
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		offsets := rapid.SliceOfN(rapid.IntRange(0, 100), 1, 30).Draw(t, "offsets")

		var newest time.Time
		for i, off := range offsets {
			ts := base.Add(time.Duration(off) * time.Second)
			s.SetLatestSample(state.Sample{Timestamp: ts, Value: "v"})
			if i == 0 || ts.After(newest) {
				newest = ts
			}
			got, _ := s.LatestSample()
			if !got.Timestamp.Equal(newest) {
				t.Fatalf("after %d updates latest is %v, want %v", i+1, got.Timestamp, newest)
			}
		}
	})
}

func TestArchiveCurrentMovesSessionToHistory(t *testing.T) {
	s := state.NewStore()
	s.BeginSession(state.Session{ID: "data_1.csv", Status: state.Active})
	s.SetCurrentStatus(state.Paused)

	cur, ok := s.CurrentSession()
	if !ok || cur.Status != state.Paused {
		t.Fatalf("current = %+v, %v; want paused session", cur, ok)
	}

	done, ok := s.ArchiveCurrent()
	if !ok || done.Status != state.Stopped || done.ID != "data_1.csv" {
		t.Fatalf("archived = %+v, %v", done, ok)
	}
	if _, ok := s.CurrentSession(); ok {
		t.Error("session still open after archive")
	}
	if h := s.History(); len(h) != 1 || h[0] != "data_1.csv" {
		t.Errorf("history = %v", h)
	}
	if _, ok := s.ArchiveCurrent(); ok {
		t.Error("second archive should be a no-op")
	}
}

func TestHistoryReturnsCopy(t *testing.T) {
	s := state.NewStore()
	s.RestoreHistory([]string{"a.csv", "b.csv"})

	h := s.History()
	h[0] = "mutated"
	if got := s.History()[0]; got != "a.csv" {
		t.Errorf("History leaked internal slice: got %q", got)
	}
}

// TestConcurrentReadersSeeWholeSamples hammers the store from several
// goroutines; run with -race to catch unsynchronised access.
func TestConcurrentReadersSeeWholeSamples(t *testing.T) {
	s := state.NewStore()
	base := time.Now()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			v := "a"
			if i%2 == 1 {
				v = "b"
			}
			s.SetLatestSample(state.Sample{Timestamp: base.Add(time.Duration(i) * time.Millisecond), Value: v})
		}
	}()
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				if smp, ok := s.LatestSample(); ok && smp.Value != "a" && smp.Value != "b" {
					t.Errorf("torn sample %+v", smp)
					return
				}
				_ = s.History()
			}
		}()
	}
	wg.Wait()
}
