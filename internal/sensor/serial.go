package sensor

import (
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// SerialLink is a Link over a serial port configured 8N1.
type SerialLink struct {
	port serial.Port
	name string
}

// OpenSerial opens the named port at baud.
func OpenSerial(name string, baud int) (*SerialLink, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, &LinkError{Op: "open", Port: name, Err: err}
	}
	return &SerialLink{port: p, name: name}, nil
}

// Name returns the device path the link was opened on.
func (s *SerialLink) Name() string { return s.name }

func (s *SerialLink) Send(cmd string) error {
	if _, err := s.port.Write([]byte(cmd)); err != nil {
		return &LinkError{Op: "write", Port: s.name, Err: err}
	}
	return nil
}

func (s *SerialLink) ReadReply(timeout time.Duration) (string, error) {
	if err := s.port.SetReadTimeout(timeout); err != nil {
		return "", &LinkError{Op: "read", Port: s.name, Err: err}
	}
	buf := make([]byte, maxReply)
	n, err := s.port.Read(buf)
	if err != nil {
		return "", &LinkError{Op: "read", Port: s.name, Err: err}
	}
	// go.bug.st/serial reports a timeout as a zero-length read.
	if n == 0 {
		return "", ErrTimeout
	}
	return string(buf[:n]), nil
}

func (s *SerialLink) Close() error {
	if err := s.port.Close(); err != nil {
		return &LinkError{Op: "close", Port: s.name, Err: err}
	}
	return nil
}

// PortInfo describes a serial port found on the host.
type PortInfo struct {
	Name    string
	IsUSB   bool
	VID     string
	PID     string
	Serial  string
	Product string
}

// ListPorts enumerates the serial ports present on the host.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}
	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		ports = append(ports, PortInfo{
			Name:    d.Name,
			IsUSB:   d.IsUSB,
			VID:     d.VID,
			PID:     d.PID,
			Serial:  d.SerialNumber,
			Product: d.Product,
		})
	}
	return ports, nil
}
