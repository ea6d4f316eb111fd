package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fakeyudi/gaslog/internal/recording"
	"github.com/fakeyudi/gaslog/internal/server"
	"github.com/fakeyudi/gaslog/internal/state"
)

type appliance struct {
	dir   string
	store *state.Store
	ctrl  *recording.Controller
	srv   *httptest.Server
}

func newAppliance(t *testing.T) *appliance {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()
	store := state.NewStore()
	ctrl, err := recording.NewController(store, recording.Options{Dir: dir, Logger: quiet})
	if err != nil {
		t.Fatal(err)
	}
	files, err := server.OpenFileSource(dir)
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(server.NewHandler(server.Deps{
		Store:      store,
		Controller: ctrl,
		Files:      files,
		Logger:     quiet,
	}))
	t.Cleanup(func() {
		srv.Close()
		files.Close()
		ctrl.Stop()
	})
	return &appliance{dir: dir, store: store, ctrl: ctrl, srv: srv}
}

func TestControlAndStatus(t *testing.T) {
	a := newAppliance(t)
	c, err := New(a.srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := c.Control(ctx, recording.ActionStart); err != nil {
		t.Fatalf("Control: %v", err)
	}
	st, err := c.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.State != "active" || st.Session == "" {
		t.Errorf("status = %+v", st)
	}

	a.store.SetLatestSample(state.Sample{Timestamp: time.Now(), Value: "20.9"})
	if v, err := c.Latest(ctx); err != nil || v != "20.9" {
		t.Errorf("Latest = %q, %v", v, err)
	}
}

func TestFilesAndViewFile(t *testing.T) {
	a := newAppliance(t)
	c, _ := New(a.srv.URL+"/", nil)
	ctx := context.Background()

	files, err := c.Files(ctx)
	if err != nil || files == nil || len(files) != 0 {
		t.Fatalf("Files = %v, %v", files, err)
	}

	c.Control(ctx, recording.ActionStart)
	a.ctrl.Append(state.Sample{Timestamp: time.Now(), Value: "20.9"})
	c.Control(ctx, recording.ActionStop)

	files, err = c.Files(ctx)
	if err != nil || len(files) != 1 {
		t.Fatalf("Files = %v, %v", files, err)
	}
	got, err := c.ViewFile(ctx, files[0])
	if err != nil {
		t.Fatalf("ViewFile: %v", err)
	}
	want, _ := os.ReadFile(filepath.Join(a.dir, files[0]))
	if string(got) != string(want) {
		t.Errorf("ViewFile = %q, want %q", got, want)
	}
}

func TestViewFileNotFound(t *testing.T) {
	a := newAppliance(t)
	c, _ := New(a.srv.URL, nil)

	for _, name := range []string{"missing.csv", "../sessions.json", "x.txt"} {
		if _, err := c.ViewFile(context.Background(), name); !errors.Is(err, ErrNotFound) {
			t.Errorf("ViewFile(%q) err = %v, want ErrNotFound", name, err)
		}
	}
}

func TestStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "could not start session", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, _ := New(srv.URL, nil)
	err := c.Control(context.Background(), recording.ActionStart)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.Code != http.StatusInternalServerError || !strings.Contains(se.Body, "could not start") {
		t.Errorf("StatusError = %+v", se)
	}
	if !strings.Contains(se.URL, "action=start") {
		t.Errorf("URL = %q", se.URL)
	}
}

func TestNewValidatesURL(t *testing.T) {
	if _, err := New("http://", nil); err == nil {
		t.Error("expected error for URL without host")
	}
	c, err := New("localhost:8080", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.base.Scheme != "http" || c.base.Host != "localhost:8080" {
		t.Errorf("base = %v", c.base)
	}
}
