package state

import "time"

// Sample is one sensor reading with its capture time.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Value     string    `json:"value"`
}

// Status is the lifecycle position of a recording session.
type Status int

const (
	// Idle means no session is open. It is never stored on a Session record.
	Idle Status = iota
	Active
	Paused
	Stopped
)

func (s Status) String() string {
	switch s {
	case Active:
		return "active"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	default:
		return "idle"
	}
}

// Session represents one bounded recording interval and its backing file.
type Session struct {
	ID        string    `json:"id"`
	Status    Status    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	Path      string    `json:"-"` // full path of the CSV file
}
