package uniden

import (
	"errors"
	"testing"
	"time"

	"go.bug.st/serial"
)

// withFakePort swaps the serial opener for the duration of a test.
func withFakePort(t *testing.T, port *fakePort, openErr error) *serial.Mode {
	t.Helper()

	var captured serial.Mode
	orig := openPort
	openPort = func(_ string, mode *serial.Mode) (portHandle, error) {
		captured = *mode
		if openErr != nil {
			return nil, openErr
		}
		return port, nil
	}
	t.Cleanup(func() { openPort = orig })
	return &captured
}

func openFake(t *testing.T, port *fakePort) Transport {
	t.Helper()
	withFakePort(t, port, nil)
	tr, err := OpenSerial(SerialConfig{Port: "/dev/ttyUSB0"})
	if err != nil {
		t.Fatalf("OpenSerial() error = %v", err)
	}
	return tr
}

func TestOpenSerialDefaults(t *testing.T) {
	port := &fakePort{}
	mode := withFakePort(t, port, nil)

	tr, err := OpenSerial(SerialConfig{Port: "/dev/ttyUSB0"})
	if err != nil {
		t.Fatalf("OpenSerial() error = %v", err)
	}
	defer tr.Close()

	if mode.BaudRate != DefaultBaudRate {
		t.Errorf("BaudRate = %d, want %d", mode.BaudRate, DefaultBaudRate)
	}
	if mode.DataBits != 8 || mode.Parity != serial.NoParity || mode.StopBits != serial.OneStopBit {
		t.Errorf("mode = %+v, want 8N1", *mode)
	}
	if port.readTimeout != DefaultReadTimeout {
		t.Errorf("read timeout = %v, want %v", port.readTimeout, DefaultReadTimeout)
	}
	if tr.Timeout() != DefaultReadTimeout {
		t.Errorf("Timeout() = %v, want %v", tr.Timeout(), DefaultReadTimeout)
	}
}

func TestOpenSerialErrors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     SerialConfig
		openErr error
	}{
		{"empty port", SerialConfig{}, nil},
		{"unsupported baud", SerialConfig{Port: "/dev/ttyUSB0", BaudRate: 115200}, nil},
		{"open fails", SerialConfig{Port: "/dev/ttyUSB9"}, errFakeIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withFakePort(t, &fakePort{}, tt.openErr)

			_, err := OpenSerial(tt.cfg)
			if !errors.Is(err, ErrConnectionFailed) {
				t.Fatalf("OpenSerial() error = %v, want ErrConnectionFailed", err)
			}
			var cerr *ConnectionError
			if !errors.As(err, &cerr) {
				t.Fatalf("error is %T, want *ConnectionError", err)
			}
			if tt.openErr != nil && !errors.Is(err, tt.openErr) {
				t.Errorf("error does not wrap cause: %v", err)
			}
		})
	}
}

func TestIsSupportedBaudRate(t *testing.T) {
	for _, rate := range []int{9600, 19200, 38400, 57600} {
		if !IsSupportedBaudRate(rate) {
			t.Errorf("IsSupportedBaudRate(%d) = false", rate)
		}
	}
	for _, rate := range []int{0, 4800, 115200} {
		if IsSupportedBaudRate(rate) {
			t.Errorf("IsSupportedBaudRate(%d) = true", rate)
		}
	}
}

func TestReadLine(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
		want   []string
	}{
		{"carriage return", []string{"MDL,BC246T\r"}, []string{"MDL,BC246T"}},
		{"line feed", []string{"SCT,3\n"}, []string{"SCT,3"}},
		{"split across reads", []string{"STS,", "A,B", "\r"}, []string{"STS,A,B"}},
		{"blank lines skipped", []string{"\r\n\r\nKEY,OK\r\n"}, []string{"KEY,OK"}},
		{"two lines in one read", []string{"A\rB\r"}, []string{"A", "B"}},
		{"partial line at deadline", []string{"PRG,O"}, []string{"PRG,O"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := &fakePort{}
			port.feed(tt.chunks...)
			tr := openFake(t, port)

			for _, want := range tt.want {
				got, err := tr.ReadLine()
				if err != nil {
					t.Fatalf("ReadLine() error = %v", err)
				}
				if got != want {
					t.Errorf("ReadLine() = %q, want %q", got, want)
				}
			}

			if _, err := tr.ReadLine(); !errors.Is(err, ErrReadTimeout) {
				t.Errorf("ReadLine() after input = %v, want ErrReadTimeout", err)
			}
		})
	}
}

func TestReadLineTimeout(t *testing.T) {
	tr := openFake(t, &fakePort{})

	got, err := tr.ReadLine()
	if !errors.Is(err, ErrReadTimeout) {
		t.Fatalf("ReadLine() error = %v, want ErrReadTimeout", err)
	}
	if got != "" {
		t.Errorf("ReadLine() = %q, want empty", got)
	}
}

func TestReadLineError(t *testing.T) {
	port := &fakePort{readErr: errFakeIO}
	tr := openFake(t, port)

	if _, err := tr.ReadLine(); !errors.Is(err, errFakeIO) {
		t.Errorf("ReadLine() error = %v, want wrapped i/o error", err)
	}
}

func TestWriteLine(t *testing.T) {
	port := &fakePort{writeLimit: 3}
	tr := openFake(t, port)

	// Leftover bytes from an earlier reply.
	st := tr.(*serialTransport)
	st.pending = append(st.pending, []byte("OLD")...)

	if err := tr.WriteLine("KEY,S,P\r"); err != nil {
		t.Fatalf("WriteLine() error = %v", err)
	}
	if string(port.written) != "KEY,S,P\r" {
		t.Errorf("written = %q, want %q", port.written, "KEY,S,P\r")
	}
	if port.resets != 1 {
		t.Errorf("ResetInputBuffer calls = %d, want 1", port.resets)
	}
	if len(st.pending) != 0 {
		t.Errorf("pending = %q, want empty after write", st.pending)
	}
}

func TestSetTimeout(t *testing.T) {
	port := &fakePort{}
	tr := openFake(t, port)

	if err := tr.SetTimeout(10 * time.Second); err != nil {
		t.Fatalf("SetTimeout() error = %v", err)
	}
	if tr.Timeout() != 10*time.Second || port.readTimeout != 10*time.Second {
		t.Errorf("Timeout() = %v, port = %v, want 10s", tr.Timeout(), port.readTimeout)
	}
}

func TestTransportCloseIdempotent(t *testing.T) {
	port := &fakePort{}
	tr := openFake(t, port)

	if err := tr.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if port.closed != 1 {
		t.Errorf("port closed %d times, want 1", port.closed)
	}
}

func TestListPorts(t *testing.T) {
	orig := getPortsList
	t.Cleanup(func() { getPortsList = orig })

	getPortsList = func() ([]string, error) { return []string{"/dev/ttyUSB0", "/dev/ttyUSB1"}, nil }
	ports, err := ListPorts()
	if err != nil {
		t.Fatalf("ListPorts() error = %v", err)
	}
	if len(ports) != 2 || ports[0] != "/dev/ttyUSB0" {
		t.Errorf("ListPorts() = %v", ports)
	}

	getPortsList = func() ([]string, error) { return nil, errFakeIO }
	if _, err := ListPorts(); !errors.Is(err, errFakeIO) {
		t.Errorf("ListPorts() error = %v, want wrapped i/o error", err)
	}
}
