package cmd

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestControlCommandsDriveAppliance(t *testing.T) {
	isolate(t)
	r := startAppliance(t, &stubLink{value: "20.9"})

	out, err := executeCommand(rootCmd, "start", "--server", r.url)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	sess, ok := r.store.CurrentSession()
	if !ok {
		t.Fatal("no session after start")
	}
	if want := "Recording: active (" + sess.ID + ")"; !strings.Contains(out, want) {
		t.Errorf("start output %q, want %q", out, want)
	}

	out, err = executeCommand(rootCmd, "pause", "--server", r.url)
	if err != nil || !strings.Contains(out, "Recording: paused") {
		t.Errorf("pause: %q, %v", out, err)
	}
	out, err = executeCommand(rootCmd, "resume", "--server", r.url)
	if err != nil || !strings.Contains(out, "Recording: active") {
		t.Errorf("resume: %q, %v", out, err)
	}
	out, err = executeCommand(rootCmd, "stop", "--server", r.url)
	if err != nil || !strings.Contains(out, "Recording: idle") {
		t.Errorf("stop: %q, %v", out, err)
	}

	out, err = executeCommand(rootCmd, "files", "--server", r.url)
	if err != nil || strings.TrimSpace(out) != sess.ID {
		t.Errorf("files: %q, %v", out, err)
	}
}

func TestStatusCommand(t *testing.T) {
	isolate(t)
	r := startAppliance(t, &stubLink{value: "19.8"})
	waitFor(t, func() bool {
		_, ok := r.store.LatestSample()
		return ok
	})

	out, err := executeCommand(rootCmd, "status", "--server", r.url)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"Recording: idle", "Latest: 19.8", "Sessions: 0"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestFilesCommandEmpty(t *testing.T) {
	isolate(t)
	r := startAppliance(t, &stubLink{value: "1"})

	out, err := executeCommand(rootCmd, "files", "--server", r.url)
	if err != nil || !strings.Contains(out, "no sessions recorded") {
		t.Errorf("files: %q, %v", out, err)
	}
}

func TestOperatorCommandReportsServerError(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "sensor on fire", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := executeCommand(rootCmd, "start", "--server", srv.URL)
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Fatalf("err = %v", err)
	}
}

func TestServerURLFromProjectConfig(t *testing.T) {
	isolate(t)
	r := startAppliance(t, &stubLink{value: "1"})
	writeProjectConfig(t, `{"server_url": "`+r.url+`"}`)

	out, err := executeCommand(rootCmd, "status")
	if err != nil || !strings.Contains(out, "Recording: idle") {
		t.Errorf("status: %q, %v", out, err)
	}
}
