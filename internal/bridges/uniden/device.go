package uniden

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultClearTimeout is the read timeout used while the scanner erases
// its memory in response to CLR.
const DefaultClearTimeout = 10 * time.Second

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// DeviceConfig holds scanner session configuration.
type DeviceConfig struct {
	// Port is the serial device path.
	Port string

	// BaudRate of the remote port.
	// Default: 57600.
	BaudRate int

	// ReadTimeout bounds a single reply.
	// Default: 100 milliseconds.
	ReadTimeout time.Duration

	// ClearTimeout bounds the CLR reply.
	// Default: 10 seconds.
	ClearTimeout time.Duration
}

// DeviceStats holds session statistics.
type DeviceStats struct {
	CommandsTotal uint64
	ErrorsTotal   uint64
	TimeoutsTotal uint64
	LastActivity  time.Time
	Program       bool
	PoweredOff    bool
}

// Scanner is the set of device operations used by the bridge and the API.
// It allows mocking the scanner in tests.
type Scanner interface {
	Model() (string, error)
	Firmware() (string, error)
	Status() (Status, error)
	Talkgroup() (Talkgroup, error)
	Program() bool
	SetProgram(enable bool) error
	Key(code KeyCode, mode KeyMode) error
	QuickSearch(qs QuickSearch) error
	PowerOff() error
	Stats() DeviceStats
}

// Ensure Device implements Scanner.
var _ Scanner = (*Device)(nil)

// Device is a session with one scanner.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Each command holds the session lock for its full write and read, so
//     exactly one command is in flight at a time.
//
// Program mode is tracked on the client. It starts false, changes only
// through SetProgram and is forced false whenever a mode change is not
// acknowledged with OK.
type Device struct {
	cfg       DeviceConfig
	transport Transport

	// Session state, guarded by mu.
	mu         sync.Mutex
	program    bool
	poweredOff bool
	closed     bool

	// Logger (optional)
	logger   Logger
	loggerMu sync.RWMutex

	// Statistics (atomic for lock-free reads)
	commandsTotal atomic.Uint64
	errorsTotal   atomic.Uint64
	timeoutsTotal atomic.Uint64
	lastActivity  atomic.Int64 // Unix timestamp
	programFlag   atomic.Bool
	poweredFlag   atomic.Bool
}

// Open opens the serial port and returns a session in non-program mode.
//
// Returns a *ConnectionError wrapping ErrConnectionFailed if the port
// cannot be opened.
func Open(cfg DeviceConfig) (*Device, error) {
	t, err := OpenSerial(SerialConfig{
		Port:        cfg.Port,
		BaudRate:    cfg.BaudRate,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, err
	}
	return NewDevice(t, cfg), nil
}

// NewDevice wraps an already open transport. The device takes ownership
// of the transport and closes it on Close.
func NewDevice(t Transport, cfg DeviceConfig) *Device {
	if cfg.ClearTimeout == 0 {
		cfg.ClearTimeout = DefaultClearTimeout
	}
	return &Device{
		cfg:       cfg,
		transport: t,
	}
}

// SetLogger sets the logger for this device.
func (d *Device) SetLogger(logger Logger) {
	d.loggerMu.Lock()
	d.logger = logger
	d.loggerMu.Unlock()
}

// Port returns the configured serial device path.
func (d *Device) Port() string {
	return d.cfg.Port
}

// Exchange sends one command and decodes its reply.
func (d *Device) Exchange(cmd Command) (Reply, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.exchangeLocked(cmd)
}

// exchangeLocked performs one write and one read. Caller must hold d.mu.
func (d *Device) exchangeLocked(cmd Command) (Reply, error) {
	if d.closed {
		return Reply{}, &ProtocolError{Command: cmd.Name, Err: ErrClosed}
	}
	if d.poweredOff {
		return Reply{}, &ProtocolError{Command: cmd.Name, Err: ErrPoweredOff}
	}

	d.commandsTotal.Add(1)
	d.logDebug("sending command", "command", cmd.Line())

	if err := d.transport.WriteLine(cmd.Encode()); err != nil {
		d.errorsTotal.Add(1)
		d.logError("write failed", err, "command", cmd.Name)
		return Reply{}, &ProtocolError{Command: cmd.Name, Err: fmt.Errorf("%w: %w", ErrConnectionFailed, err)}
	}

	line, err := d.transport.ReadLine()
	if err != nil {
		d.errorsTotal.Add(1)
		if errors.Is(err, ErrReadTimeout) {
			d.timeoutsTotal.Add(1)
			d.logDebug("no reply", "command", cmd.Name, "timeout", d.transport.Timeout())
			return Reply{}, &ProtocolError{Command: cmd.Name, Err: fmt.Errorf("%w: %w", ErrNoResponse, err)}
		}
		d.logError("read failed", err, "command", cmd.Name)
		return Reply{}, &ProtocolError{Command: cmd.Name, Err: fmt.Errorf("%w: %w", ErrConnectionFailed, err)}
	}

	d.lastActivity.Store(time.Now().Unix())
	d.logDebug("received reply", "command", cmd.Name, "reply", line)

	reply, err := Decode(cmd.Name, line)
	if err != nil {
		d.errorsTotal.Add(1)
		return Reply{}, err
	}
	return reply, nil
}

// query sends cmd and returns the scalar reply.
func (d *Device) query(cmd Command) (string, error) {
	reply, err := d.Exchange(cmd)
	if err != nil {
		return "", err
	}
	return reply.Scalar(), nil
}

// queryInt sends cmd and parses the scalar reply as an integer.
func (d *Device) queryInt(cmd Command) (int, error) {
	reply, err := d.Exchange(cmd)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(reply.Scalar())
	if err != nil {
		return 0, unexpected(reply, err)
	}
	return n, nil
}

// queryRecord sends cmd and binds the reply to names.
func (d *Device) queryRecord(cmd Command, names []string) (Record, error) {
	reply, err := d.Exchange(cmd)
	if err != nil {
		return nil, err
	}
	return reply.Record(names...), nil
}

// action sends cmd and requires an OK reply.
func (d *Device) action(cmd Command) error {
	reply, err := d.Exchange(cmd)
	if err != nil {
		return err
	}
	if !reply.IsOK() {
		return unexpected(reply, nil)
	}
	return nil
}

// unexpected builds an ErrUnexpectedReply for a reply that decoded but
// could not be interpreted.
func unexpected(reply Reply, cause error) error {
	err := ErrUnexpectedReply
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrUnexpectedReply, cause)
	}
	return &ProtocolError{Command: reply.Command, Response: reply.Raw, Err: err}
}

// Model returns the scanner's model name (MDL).
func (d *Device) Model() (string, error) {
	return d.query(NewCommand("MDL"))
}

// Firmware returns the firmware version (VER) without its "VR" prefix.
func (d *Device) Firmware() (string, error) {
	v, err := d.query(NewCommand("VER"))
	if err != nil {
		return "", err
	}
	if len(v) < 2 {
		return v, nil
	}
	return v[2:], nil
}

// Program reports whether the session believes the scanner is in
// program mode.
func (d *Device) Program() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.program
}

// SetProgram enters (PRG) or exits (EPG) program mode.
//
// The tracked flag becomes true only when PRG is answered with OK. Any
// other reply or failure leaves the session out of program mode.
func (d *Device) SetProgram(enable bool) error {
	name := "EPG"
	if enable {
		name = "PRG"
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	reply, err := d.exchangeLocked(NewCommand(name))
	ok := err == nil && reply.IsOK()
	d.program = enable && ok
	d.programFlag.Store(d.program)

	if err != nil {
		return err
	}
	if !ok {
		return unexpected(reply, nil)
	}

	d.logInfo("program mode changed", "program", d.program)
	return nil
}

// Key presses a front-panel key remotely (KEY).
func (d *Device) Key(code KeyCode, mode KeyMode) error {
	if !code.Valid() {
		return fmt.Errorf("%w: key code %q", ErrInvalidArgument, string(code))
	}
	if !mode.Valid() {
		return fmt.Errorf("%w: key mode %q", ErrInvalidArgument, string(mode))
	}
	return d.action(NewCommand("KEY", code, mode))
}

// Press is Key with KeyPress.
func (d *Device) Press(code KeyCode) error {
	return d.Key(code, KeyPress)
}

// PowerOff turns the scanner off (POF).
//
// The scanner accepts no further commands afterwards, so the session
// rejects every later command with ErrPoweredOff. The port stays open
// until Close.
func (d *Device) PowerOff() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	reply, err := d.exchangeLocked(NewCommand("POF"))
	if err != nil {
		return err
	}
	if !reply.IsOK() {
		return unexpected(reply, nil)
	}

	d.poweredOff = true
	d.program = false
	d.poweredFlag.Store(true)
	d.programFlag.Store(false)
	d.logInfo("scanner powered off")
	return nil
}

// withTimeout runs fn with the transport read timeout temporarily set
// to timeout. The previous timeout is restored on every path.
func (d *Device) withTimeout(timeout time.Duration, fn func() error) (err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}

	previous := d.transport.Timeout()
	if err := d.transport.SetTimeout(timeout); err != nil {
		return fmt.Errorf("widen read timeout: %w", err)
	}
	defer func() {
		if rerr := d.transport.SetTimeout(previous); rerr != nil {
			d.logError("restore read timeout failed", rerr)
			if err == nil {
				err = fmt.Errorf("restore read timeout: %w", rerr)
			}
		}
	}()

	return fn()
}

// Settings returns the program-mode settings accessor.
func (d *Device) Settings() *Settings {
	return &Settings{device: d}
}

// Systems returns the stored system collection accessor.
func (d *Device) Systems() *Systems {
	return &Systems{device: d}
}

// Stats returns session statistics.
func (d *Device) Stats() DeviceStats {
	return DeviceStats{
		CommandsTotal: d.commandsTotal.Load(),
		ErrorsTotal:   d.errorsTotal.Load(),
		TimeoutsTotal: d.timeoutsTotal.Load(),
		LastActivity:  time.Unix(d.lastActivity.Load(), 0),
		Program:       d.programFlag.Load(),
		PoweredOff:    d.poweredFlag.Load(),
	}
}

// Close ends the session and closes the transport.
// Safe to call multiple times.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	d.program = false
	d.programFlag.Store(false)

	if err := d.transport.Close(); err != nil {
		return fmt.Errorf("closing transport: %w", err)
	}
	return nil
}

func (d *Device) logDebug(msg string, keysAndValues ...any) {
	d.loggerMu.RLock()
	logger := d.logger
	d.loggerMu.RUnlock()

	if logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

func (d *Device) logInfo(msg string, keysAndValues ...any) {
	d.loggerMu.RLock()
	logger := d.logger
	d.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (d *Device) logError(msg string, err error, keysAndValues ...any) {
	d.loggerMu.RLock()
	logger := d.logger
	d.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, append([]any{"error", err}, keysAndValues...)...)
	}
}
