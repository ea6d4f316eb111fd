// Package sensor talks to the serial gas sensor and runs the polling loop
// that keeps the latest reading fresh.
package sensor

import (
	"errors"
	"fmt"
	"time"
)

// QueryCommand asks the sensor for one reading.
const QueryCommand = "%\r\n"

// maxReply is the largest reply read in one cycle.
const maxReply = 256

var (
	// ErrTimeout means the sensor sent nothing before the read timeout.
	ErrTimeout = errors.New("sensor: read timed out")
	// ErrEmptyReply means the reply held only line terminators.
	ErrEmptyReply = errors.New("sensor: empty reply")
)

// Link is a request/reply channel to the sensor.
type Link interface {
	Send(cmd string) error
	// ReadReply returns whatever the sensor sent within timeout, or
	// ErrTimeout when nothing arrived.
	ReadReply(timeout time.Duration) (string, error)
	Close() error
}

// LinkError reports a failure of the underlying serial line.
type LinkError struct {
	Op   string // open, write, read or close
	Port string
	Err  error
}

func (e *LinkError) Error() string {
	if e.Port == "" {
		return fmt.Sprintf("sensor %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("sensor %s %s: %v", e.Op, e.Port, e.Err)
}

func (e *LinkError) Unwrap() error { return e.Err }
