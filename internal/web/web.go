// Package web provides the landing page served at "/".
package web

import (
	_ "embed"
	"fmt"
	"os"
)

//go:embed index.html
var indexHTML []byte

// Page loads the landing page, either the embedded copy or a file on disk.
type Page struct {
	path string
}

// NewPage returns a Page reading path on every load. An empty path selects
// the embedded page.
func NewPage(path string) *Page {
	return &Page{path: path}
}

// Load returns the page content.
func (p *Page) Load() ([]byte, error) {
	if p.path == "" {
		return indexHTML, nil
	}
	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("loading landing page: %w", err)
	}
	return data, nil
}
