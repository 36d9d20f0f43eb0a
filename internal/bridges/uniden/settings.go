package uniden

import (
	"fmt"
	"strconv"
)

// Settings reads and writes global scanner settings.
//
// Every operation here is accepted by the scanner only in program mode.
// Outside it the scanner answers NG, which surfaces as
// ErrCommandUnavailable.
type Settings struct {
	device *Device
}

// OpeningMessage is the two-line message shown at power on.
type OpeningMessage struct {
	Line1 string `json:"line1"`
	Line2 string `json:"line2"`
}

// maxOpeningLine is the display width of one opening message line.
const maxOpeningLine = 16

// Backlight returns the backlight mode (BLT).
func (s *Settings) Backlight() (Backlight, error) {
	v, err := s.device.query(NewCommand("BLT"))
	if err != nil {
		return "", err
	}
	return Backlight(v), nil
}

// SetBacklight sets the backlight mode (BLT).
func (s *Settings) SetBacklight(b Backlight) error {
	if !b.Valid() {
		return fmt.Errorf("%w: backlight %q", ErrInvalidArgument, string(b))
	}
	return s.device.action(NewCommand("BLT", b))
}

// BatterySave returns the battery save setting (BSV).
func (s *Settings) BatterySave() (Toggle, error) {
	return s.toggle("BSV")
}

// SetBatterySave sets the battery save setting (BSV).
//
// Off is omitted from the command line, so SetBatterySave(Off) sends a
// bare BSV.
func (s *Settings) SetBatterySave(t Toggle) error {
	return s.device.action(NewCommand("BSV", t))
}

// KeyBeep returns the key beep setting (KBP).
func (s *Settings) KeyBeep() (Toggle, error) {
	return s.toggle("KBP")
}

// SetKeyBeep sets the key beep setting (KBP).
func (s *Settings) SetKeyBeep(t Toggle) error {
	return s.device.action(NewCommand("KBP", t))
}

// OpeningMessage returns the power-on message (OMS).
func (s *Settings) OpeningMessage() (OpeningMessage, error) {
	rec, err := s.device.queryRecord(NewCommand("OMS"), OpeningMessageFields)
	if err != nil {
		return OpeningMessage{}, err
	}
	return OpeningMessage{Line1: rec.Get("l1_char"), Line2: rec.Get("l2_char")}, nil
}

// SetOpeningMessage sets the power-on message (OMS).
func (s *Settings) SetOpeningMessage(m OpeningMessage) error {
	if len(m.Line1) > maxOpeningLine || len(m.Line2) > maxOpeningLine {
		return fmt.Errorf("%w: opening message lines are limited to %d characters", ErrInvalidArgument, maxOpeningLine)
	}
	return s.device.action(NewCommand("OMS", m.Line1, m.Line2))
}

// PriorityMode returns the priority setting (PRI).
func (s *Settings) PriorityMode() (PriorityMode, error) {
	n, err := s.device.queryInt(NewCommand("PRI"))
	if err != nil {
		return 0, err
	}
	return PriorityMode(n), nil
}

// SetPriorityMode sets the priority setting (PRI).
func (s *Settings) SetPriorityMode(p PriorityMode) error {
	if !p.Valid() {
		return fmt.Errorf("%w: priority mode %d", ErrInvalidArgument, int(p))
	}
	return s.device.action(NewCommand("PRI", p))
}

// Clear erases all scanner memory and restores defaults (CLR).
//
// The scanner takes several seconds to answer, so the read timeout is
// widened to the configured clear timeout for this one exchange.
func (s *Settings) Clear() error {
	d := s.device
	return d.withTimeout(d.cfg.ClearTimeout, func() error {
		reply, err := d.exchangeLocked(NewCommand("CLR"))
		if err != nil {
			return err
		}
		if !reply.IsOK() {
			return unexpected(reply, nil)
		}
		d.logInfo("scanner memory cleared")
		return nil
	})
}

// Snapshot holds every global setting.
type Snapshot struct {
	Backlight      Backlight      `json:"backlight"`
	BatterySave    Toggle         `json:"battery_save"`
	KeyBeep        Toggle         `json:"key_beep"`
	OpeningMessage OpeningMessage `json:"opening_message"`
	PriorityMode   PriorityMode   `json:"priority_mode"`
}

// Snapshot reads every global setting. It stops at the first failure.
func (s *Settings) Snapshot() (Snapshot, error) {
	var snap Snapshot
	var err error

	if snap.Backlight, err = s.Backlight(); err != nil {
		return Snapshot{}, err
	}
	if snap.BatterySave, err = s.BatterySave(); err != nil {
		return Snapshot{}, err
	}
	if snap.KeyBeep, err = s.KeyBeep(); err != nil {
		return Snapshot{}, err
	}
	if snap.OpeningMessage, err = s.OpeningMessage(); err != nil {
		return Snapshot{}, err
	}
	if snap.PriorityMode, err = s.PriorityMode(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (s *Settings) toggle(name string) (Toggle, error) {
	reply, err := s.device.Exchange(NewCommand(name))
	if err != nil {
		return Off, err
	}
	n, err := strconv.Atoi(reply.Scalar())
	if err != nil || (n != 0 && n != 1) {
		return Off, unexpected(reply, err)
	}
	return Toggle(n), nil
}
