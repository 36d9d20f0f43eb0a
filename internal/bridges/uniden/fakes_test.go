package uniden

import (
	"errors"
	"strings"
	"sync"
	"time"
)

// fakeReply is one scripted response: a line, or an error from ReadLine.
type fakeReply struct {
	line string
	err  error
}

// fakeTransport implements Transport with a queue of scripted replies.
// When the queue is empty ReadLine times out.
type fakeTransport struct {
	mu             sync.Mutex
	written        []string
	replies        []fakeReply
	timeout        time.Duration
	timeoutHistory []time.Duration
	closed         int
	writeErr       error
	setTimeoutErr  error

	// overlap detection for the serialisation test
	inFlight   bool
	overlapped bool
}

func newFakeTransport(lines ...string) *fakeTransport {
	f := &fakeTransport{timeout: DefaultReadTimeout}
	f.queue(lines...)
	return f
}

func (f *fakeTransport) queue(lines ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range lines {
		f.replies = append(f.replies, fakeReply{line: l})
	}
}

func (f *fakeTransport) queueErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, fakeReply{err: err})
}

func (f *fakeTransport) WriteLine(line string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight {
		f.overlapped = true
	}
	f.inFlight = true
	if f.writeErr != nil {
		f.inFlight = false
		return f.writeErr
	}
	f.written = append(f.written, line)
	return nil
}

func (f *fakeTransport) ReadLine() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight = false
	if len(f.replies) == 0 {
		return "", ErrReadTimeout
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r.line, r.err
}

func (f *fakeTransport) Timeout() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.timeout
}

func (f *fakeTransport) SetTimeout(d time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setTimeoutErr != nil {
		return f.setTimeoutErr
	}
	f.timeout = d
	f.timeoutHistory = append(f.timeoutHistory, d)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeTransport) Written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.written...)
}

// WrittenLines returns the written commands without terminators.
func (f *fakeTransport) WrittenLines() []string {
	lines := f.Written()
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, Terminator)
	}
	return lines
}

// newTestDevice returns a device over a fake transport with scripted replies.
func newTestDevice(lines ...string) (*Device, *fakeTransport) {
	ft := newFakeTransport(lines...)
	return NewDevice(ft, DeviceConfig{Port: "/dev/ttyTEST"}), ft
}

// fakePort implements portHandle. Each Read returns the next chunk;
// an empty queue behaves like an expired read timeout.
type fakePort struct {
	mu          sync.Mutex
	chunks      [][]byte
	written     []byte
	readTimeout time.Duration
	resets      int
	closed      int
	readErr     error
	writeLimit  int
}

func (p *fakePort) feed(chunks ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range chunks {
		p.chunks = append(p.chunks, []byte(c))
	}
}

func (p *fakePort) SetReadTimeout(d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readTimeout = d
	return nil
}

func (p *fakePort) ResetInputBuffer() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resets++
	return nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(b)
	if p.writeLimit > 0 && n > p.writeLimit {
		n = p.writeLimit
	}
	p.written = append(p.written, b[:n]...)
	return n, nil
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.readErr != nil {
		return 0, p.readErr
	}
	if len(p.chunks) == 0 {
		return 0, nil
	}
	c := p.chunks[0]
	n := copy(b, c)
	if n < len(c) {
		p.chunks[0] = c[n:]
	} else {
		p.chunks = p.chunks[1:]
	}
	return n, nil
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

var errFakeIO = errors.New("fake i/o failure")
