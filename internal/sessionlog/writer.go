package sessionlog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// ErrUnsafeField means a value contains a comma, a double quote or a line
// break and would not stay a single bare field of its row.
var ErrUnsafeField = errors.New("field contains a comma, quote or line break")

// unsafeChars are the characters that would make a CSV reader see a
// different row than the one written.
const unsafeChars = ",\"\r\n"

// CheckField reports whether s can be written as a bare field.
func CheckField(s string) error {
	if strings.ContainsAny(s, unsafeChars) {
		return fmt.Errorf("%q: %w", s, ErrUnsafeField)
	}
	return nil
}

// Writer appends rows to a session file. Rows are written literally as
// "<timestamp>,<value>\n", never quoted. It is not safe for concurrent use;
// the recording controller serialises access.
type Writer struct {
	f *os.File
}

// Create creates a new session file at path and writes its header. It fails
// if the file already exists, so a header is never written twice.
func Create(path, metric string) (*Writer, error) {
	if err := CheckField(metric); err != nil {
		return nil, fmt.Errorf("metric name: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}
	w := &Writer{f: f}
	if err := w.write(TimestampHeader, metric); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write header: %w", err)
	}
	return w, nil
}

// Append writes one row. A value that is not a safe bare field is rejected
// and nothing is written.
func (w *Writer) Append(ts time.Time, value string) error {
	if err := CheckField(value); err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	if err := w.write(ts.Format(TimestampLayout), value); err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	return nil
}

// Close closes the file.
func (w *Writer) Close() error {
	return w.f.Close()
}

// write issues the row in a single call on the unbuffered file.
func (w *Writer) write(fields ...string) error {
	_, err := io.WriteString(w.f, strings.Join(fields, ",")+"\n")
	return err
}
