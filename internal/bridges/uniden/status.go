package uniden

import "fmt"

// Status is the scanner's display state as reported by STS.
type Status struct {
	Line1     string   `json:"line1"`
	Line1Mode LineMode `json:"line1_mode"`
	Line2     string   `json:"line2"`
	Line2Mode LineMode `json:"line2_mode"`
	Icon1     string   `json:"icon1"`
	Icon2     string   `json:"icon2"`
	Reserved  string   `json:"reserved,omitempty"`
	Squelch   bool     `json:"squelch"`
	Mute      bool     `json:"mute"`
	Battery   bool     `json:"battery_low"`
	Weather   bool     `json:"weather_alert"`
}

// statusFromRecord builds a Status from an STS record.
func statusFromRecord(rec Record) Status {
	return Status{
		Line1:     rec.Get("l1_char"),
		Line1Mode: LineMode(rec.Get("l1_mode")),
		Line2:     rec.Get("l2_char"),
		Line2Mode: LineMode(rec.Get("l2_mode")),
		Icon1:     rec.Get("icon1"),
		Icon2:     rec.Get("icon2"),
		Reserved:  rec.Get("reserve"),
		Squelch:   rec.Get("sql") == "1",
		Mute:      rec.Get("mut") == "1",
		Battery:   rec.Get("bat") == "1",
		Weather:   rec.Get("wat") == "1",
	}
}

// Status returns the current display state (STS).
func (d *Device) Status() (Status, error) {
	rec, err := d.queryRecord(NewCommand("STS"), StatusFields)
	if err != nil {
		return Status{}, err
	}
	return statusFromRecord(rec), nil
}

// Talkgroup is the trunked talkgroup currently received, as reported by GID.
type Talkgroup struct {
	SystemType SystemType `json:"sys_type"`
	TGID       string     `json:"tgid"`
	Search     bool       `json:"id_search"`
	Name1      string     `json:"name1"`
	Name2      string     `json:"name2"`
	Name3      string     `json:"name3"`
}

// Active reports whether a talkgroup is being received.
func (t Talkgroup) Active() bool {
	return t.TGID != ""
}

// Talkgroup returns the talkgroup currently received (GID).
func (d *Device) Talkgroup() (Talkgroup, error) {
	rec, err := d.queryRecord(NewCommand("GID"), TalkgroupFields)
	if err != nil {
		return Talkgroup{}, err
	}
	return Talkgroup{
		SystemType: SystemType(rec.Get("sys_type")),
		TGID:       rec.Get("tgid"),
		Search:     rec.Get("id_srch_mode") == "1",
		Name1:      rec.Get("name1"),
		Name2:      rec.Get("name2"),
		Name3:      rec.Get("name3"),
	}, nil
}

// Quick search limits.
const (
	maxDelay = 5
)

// QuickSearch holds the arguments of QSH, which tunes an arbitrary
// frequency and enters quick search hold mode.
//
// Zero-valued fields are omitted from the command line like any other
// argument, so the fields after them shift left on the wire.
type QuickSearch struct {
	// Frequency in units of 100 Hz, e.g. 1625500 for 162.55 MHz.
	Frequency int `json:"frequency"`

	// Step in units of 10 Hz (500 = 5 kHz). 0 selects AUTO.
	Step int `json:"step,omitempty"`

	// Modulation. Empty selects AUTO.
	Modulation Modulation `json:"modulation,omitempty"`

	Attenuation  Toggle  `json:"attenuation,omitempty"`
	Delay        int     `json:"delay,omitempty"`
	DataSkip     Toggle  `json:"data_skip,omitempty"`
	CodeSearch   Toggle  `json:"code_search,omitempty"`
	Screen       Bitmask `json:"screen,omitempty"`
	RepeaterFind Toggle  `json:"repeater_find,omitempty"`
}

// Validate checks argument ranges.
func (q QuickSearch) Validate() error {
	if q.Frequency <= 0 {
		return fmt.Errorf("%w: frequency %d", ErrInvalidArgument, q.Frequency)
	}
	if q.Step < 0 {
		return fmt.Errorf("%w: step %d", ErrInvalidArgument, q.Step)
	}
	if q.Modulation != "" && !q.Modulation.Valid() {
		return fmt.Errorf("%w: modulation %q", ErrInvalidArgument, string(q.Modulation))
	}
	if q.Delay < 0 || q.Delay > maxDelay {
		return fmt.Errorf("%w: delay %d (0-%d)", ErrInvalidArgument, q.Delay, maxDelay)
	}
	if q.Screen != "" {
		if err := q.Screen.Validate(ScreenWidth); err != nil {
			return fmt.Errorf("%w: screen: %w", ErrInvalidArgument, err)
		}
	}
	return nil
}

// Command returns the QSH command for q.
func (q QuickSearch) Command() Command {
	mod := q.Modulation
	if mod == "" {
		mod = ModAuto
	}
	return NewCommand("QSH",
		q.Frequency, q.Step, mod, q.Attenuation, q.Delay,
		q.DataSkip, q.CodeSearch, q.Screen, q.RepeaterFind)
}

// QuickSearch tunes a frequency in quick search hold mode (QSH).
func (d *Device) QuickSearch(q QuickSearch) error {
	if err := q.Validate(); err != nil {
		return err
	}
	return d.action(q.Command())
}
