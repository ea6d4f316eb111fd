package web

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestEmbeddedPage(t *testing.T) {
	data, err := NewPage("").Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for _, want := range []string{"<!DOCTYPE html>", "/data", "/control?action=", "/files"} {
		if !bytes.Contains(data, []byte(want)) {
			t.Errorf("embedded page missing %q", want)
		}
	}
}

func TestOverridePage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.html")
	if err := os.WriteFile(path, []byte("<p>custom</p>"), 0o644); err != nil {
		t.Fatal(err)
	}
	data, err := NewPage(path).Load()
	if err != nil || string(data) != "<p>custom</p>" {
		t.Errorf("Load = %q, %v", data, err)
	}
}

func TestMissingOverride(t *testing.T) {
	if _, err := NewPage(filepath.Join(t.TempDir(), "gone.html")).Load(); err == nil {
		t.Error("expected error for missing page")
	}
}
