package uniden

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

// Serial defaults for the scanner's remote port.
const (
	// DefaultBaudRate is the factory setting of the scanner's remote port.
	DefaultBaudRate = 57600

	// DefaultReadTimeout bounds how long a single reply may take.
	DefaultReadTimeout = 100 * time.Millisecond

	// readChunkSize is the number of bytes requested per serial read.
	readChunkSize = 64

	// maxLineLength caps a reply line; longer input is returned as-is.
	maxLineLength = 1024
)

// SupportedBaudRates lists the rates the scanner's remote port accepts.
var SupportedBaudRates = []int{9600, 19200, 38400, 57600}

// allow tests to override the serial library
var (
	openPort     = func(name string, mode *serial.Mode) (portHandle, error) { return serial.Open(name, mode) }
	getPortsList = serial.GetPortsList
)

// portHandle is the subset of serial.Port used by the transport.
type portHandle interface {
	SetReadTimeout(timeout time.Duration) error
	ResetInputBuffer() error
	Write([]byte) (int, error)
	Read([]byte) (int, error)
	Close() error
}

// Transport is a duplex line stream to the scanner.
// Implementations are used by one exchange at a time.
type Transport interface {
	// WriteLine writes one command line. The caller supplies the terminator.
	WriteLine(line string) error

	// ReadLine returns the next non-blank reply line, trimmed.
	// It returns ErrReadTimeout when nothing arrives before the deadline.
	ReadLine() (string, error)

	// Timeout returns the current read timeout.
	Timeout() time.Duration

	// SetTimeout changes the read timeout for subsequent reads.
	SetTimeout(d time.Duration) error

	// Close releases the underlying port.
	Close() error
}

// SerialConfig holds serial port settings.
type SerialConfig struct {
	// Port is the device path, e.g. "/dev/ttyUSB0" or "COM3".
	Port string

	// BaudRate must be one of SupportedBaudRates.
	// Default: 57600.
	BaudRate int

	// ReadTimeout bounds a single reply.
	// Default: 100 milliseconds.
	ReadTimeout time.Duration
}

// Ensure serialTransport implements Transport.
var _ Transport = (*serialTransport)(nil)

// serialTransport is a Transport over a go.bug.st serial port.
type serialTransport struct {
	name    string
	port    portHandle
	timeout time.Duration

	// pending holds bytes read past the last line terminator.
	pending []byte

	closeOnce sync.Once
	closeErr  error
}

// OpenSerial opens the scanner's serial port at 8 data bits, no parity,
// one stop bit and no flow control.
//
// Returns a *ConnectionError wrapping ErrConnectionFailed if the
// port cannot be opened or configured.
func OpenSerial(cfg SerialConfig) (Transport, error) {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Port == "" {
		return nil, &ConnectionError{Port: cfg.Port, Cause: fmt.Errorf("port name is empty")}
	}
	if !IsSupportedBaudRate(cfg.BaudRate) {
		return nil, &ConnectionError{Port: cfg.Port, Cause: fmt.Errorf("unsupported baud rate %d", cfg.BaudRate)}
	}

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := openPort(cfg.Port, mode)
	if err != nil {
		return nil, &ConnectionError{Port: cfg.Port, Cause: err}
	}

	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		port.Close() //nolint:errcheck // already failing
		return nil, &ConnectionError{Port: cfg.Port, Cause: fmt.Errorf("set read timeout: %w", err)}
	}

	return &serialTransport{
		name:    cfg.Port,
		port:    port,
		timeout: cfg.ReadTimeout,
	}, nil
}

// ListPorts returns the serial ports present on this host.
func ListPorts() ([]string, error) {
	ports, err := getPortsList()
	if err != nil {
		return nil, fmt.Errorf("listing serial ports: %w", err)
	}
	return ports, nil
}

// IsSupportedBaudRate reports whether rate is accepted by the scanner.
func IsSupportedBaudRate(rate int) bool {
	for _, r := range SupportedBaudRates {
		if r == rate {
			return true
		}
	}
	return false
}

// WriteLine discards any stale input and writes line to the port.
func (t *serialTransport) WriteLine(line string) error {
	t.pending = t.pending[:0]
	if err := t.port.ResetInputBuffer(); err != nil {
		return fmt.Errorf("reset input buffer: %w", err)
	}

	data := []byte(line)
	for len(data) > 0 {
		n, err := t.port.Write(data)
		if err != nil {
			return fmt.Errorf("write %s: %w", t.name, err)
		}
		data = data[n:]
	}
	return nil
}

// ReadLine returns the next line terminated by CR or LF.
//
// Blank lines are skipped. If the deadline passes with a partial line
// buffered, the partial line is returned.
func (t *serialTransport) ReadLine() (string, error) {
	chunk := make([]byte, readChunkSize)

	for {
		if line, ok := t.nextLine(); ok {
			if line == "" {
				continue
			}
			return line, nil
		}

		if len(t.pending) >= maxLineLength {
			return t.flushPending(), nil
		}

		n, err := t.port.Read(chunk)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", t.name, err)
		}
		if n == 0 {
			// go.bug.st/serial returns (0, nil) when the read timeout expires.
			if line := t.flushPending(); line != "" {
				return line, nil
			}
			return "", ErrReadTimeout
		}
		t.pending = append(t.pending, chunk[:n]...)
	}
}

// nextLine extracts one terminated line from pending, if present.
func (t *serialTransport) nextLine() (string, bool) {
	i := bytes.IndexAny(t.pending, "\r\n")
	if i < 0 {
		return "", false
	}
	line := strings.TrimSpace(string(t.pending[:i]))
	t.pending = t.pending[i+1:]
	return line, true
}

// flushPending returns and clears whatever is buffered.
func (t *serialTransport) flushPending() string {
	line := strings.TrimSpace(string(t.pending))
	t.pending = t.pending[:0]
	return line
}

// Timeout returns the current read timeout.
func (t *serialTransport) Timeout() time.Duration {
	return t.timeout
}

// SetTimeout changes the read timeout.
func (t *serialTransport) SetTimeout(d time.Duration) error {
	if err := t.port.SetReadTimeout(d); err != nil {
		return fmt.Errorf("set read timeout: %w", err)
	}
	t.timeout = d
	return nil
}

// Close closes the port. Safe to call multiple times.
func (t *serialTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.port.Close()
	})
	return t.closeErr
}
