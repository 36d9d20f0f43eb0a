package uniden

import (
	"fmt"
	"strings"
)

// Toggle is a two-state device setting sent as 0 or 1.
//
// Off is the zero value and is therefore never transmitted as an argument.
type Toggle int

// Toggle values.
const (
	Off Toggle = 0
	On  Toggle = 1
)

// Bool reports whether the toggle is On.
func (t Toggle) Bool() bool { return t == On }

// ToggleOf converts a bool to a Toggle.
func ToggleOf(b bool) Toggle {
	if b {
		return On
	}
	return Off
}

// KeyCode identifies a front-panel key pressed remotely with KEY.
// Several keys share a code; the aliases below follow the panel labels.
type KeyCode string

// Key codes.
const (
	KeyMenu     KeyCode = "M"
	KeyFunc     KeyCode = "F"
	KeyHold     KeyCode = "H"
	KeyScan     KeyCode = "S"
	KeySearch   KeyCode = "S"
	KeyLockout  KeyCode = "L"
	KeyLight    KeyCode = "!"
	KeyLock     KeyCode = "!"
	KeyOne      KeyCode = "1"
	KeyPriority KeyCode = "1"
	KeyTwo      KeyCode = "2"
	KeyWeather  KeyCode = "2"
	KeyThree    KeyCode = "3"
	KeyFour     KeyCode = "4"
	KeyFive     KeyCode = "5"
	KeySix      KeyCode = "6"
	KeySeven    KeyCode = "7"
	KeyRecall   KeyCode = "7"
	KeyEight    KeyCode = "8"
	KeyNine     KeyCode = "9"
	KeyZero     KeyCode = "0"
	KeyDot      KeyCode = "."
	KeyNo       KeyCode = "."
	KeyReverse  KeyCode = "."
	KeyEnter    KeyCode = "E"
	KeyYes      KeyCode = "E"
	KeyAtt      KeyCode = "E"
	KeyVFORight KeyCode = ">"
	KeyVFOLeft  KeyCode = "<"
	KeyVFOPush  KeyCode = "^"
	KeyPower    KeyCode = "P"
)

var validKeyCodes = map[KeyCode]bool{
	KeyMenu: true, KeyFunc: true, KeyHold: true, KeyScan: true, KeyLockout: true,
	KeyLight: true, KeyOne: true, KeyTwo: true, KeyThree: true, KeyFour: true,
	KeyFive: true, KeySix: true, KeySeven: true, KeyEight: true, KeyNine: true,
	KeyZero: true, KeyDot: true, KeyEnter: true, KeyVFORight: true,
	KeyVFOLeft: true, KeyVFOPush: true, KeyPower: true,
}

// Valid reports whether k is a code the scanner recognises.
func (k KeyCode) Valid() bool { return validKeyCodes[k] }

// KeyMode selects how a remote key press is performed.
type KeyMode string

// Key modes.
const (
	KeyPress     KeyMode = "P"
	KeyLongPress KeyMode = "L"
	KeyHoldDown  KeyMode = "H"
	KeyRelease   KeyMode = "R"
)

// Valid reports whether m is a recognised key mode.
func (m KeyMode) Valid() bool {
	switch m {
	case KeyPress, KeyLongPress, KeyHoldDown, KeyRelease:
		return true
	}
	return false
}

// Modulation selects the demodulator for quick search.
type Modulation string

// Modulations.
const (
	ModAuto Modulation = "AUTO"
	ModFM   Modulation = "FM"
	ModNFM  Modulation = "NFM"
	ModAM   Modulation = "AM"
)

// Valid reports whether m is a recognised modulation.
func (m Modulation) Valid() bool {
	switch m {
	case ModAuto, ModFM, ModNFM, ModAM:
		return true
	}
	return false
}

// SystemType is the trunking or conventional type of a stored system.
type SystemType string

// System types.
const (
	Conventional     SystemType = "CNV"
	Motorola800T2Std SystemType = "M82S"
	Motorola800T2Spl SystemType = "M82P"
	Motorola900T2    SystemType = "M92"
	MotorolaVHFT2    SystemType = "MV2"
	MotorolaUHFT2    SystemType = "MU2"
	Motorola800T1Std SystemType = "M81S"
	Motorola800T1Spl SystemType = "M81P"
	EDACSNarrow      SystemType = "EDN"
	EDACSWide        SystemType = "EDW"
	EDACSSCAT        SystemType = "EDS"
	LTR              SystemType = "LTR"
	Motorola800T2Cus SystemType = "M82C"
	Motorola800T1Cus SystemType = "M81C"
)

// SystemTypes lists every system type the scanner supports.
var SystemTypes = []SystemType{
	Conventional, Motorola800T2Std, Motorola800T2Spl, Motorola900T2,
	MotorolaVHFT2, MotorolaUHFT2, Motorola800T1Std, Motorola800T1Spl,
	EDACSNarrow, EDACSWide, EDACSSCAT, LTR, Motorola800T2Cus, Motorola800T1Cus,
}

// Valid reports whether t is a recognised system type.
func (t SystemType) Valid() bool {
	for _, s := range SystemTypes {
		if s == t {
			return true
		}
	}
	return false
}

// QuickKey is the system quick key: "0" to "9", or "." for none.
type QuickKey string

// QuickKeyNone means the system has no quick key assigned.
const QuickKeyNone QuickKey = "."

// Backlight is the display backlight mode.
type Backlight string

// Backlight modes.
const (
	BacklightInfinite Backlight = "IF"
	BacklightTenSec   Backlight = "10"
	BacklightThirty   Backlight = "30"
	BacklightKeypress Backlight = "KY"
	BacklightSquelch  Backlight = "SQ"
)

// Valid reports whether b is a recognised backlight mode.
func (b Backlight) Valid() bool {
	switch b {
	case BacklightInfinite, BacklightTenSec, BacklightThirty, BacklightKeypress, BacklightSquelch:
		return true
	}
	return false
}

// PriorityMode is the priority channel setting.
//
// PriorityPlusOn is accepted by the device on later firmware; it has not
// been confirmed on every unit.
type PriorityMode int

// Priority modes.
const (
	PriorityOff    PriorityMode = 0
	PriorityOn     PriorityMode = 1
	PriorityPlusOn PriorityMode = 2
)

// Valid reports whether p is a recognised priority mode.
func (p PriorityMode) Valid() bool {
	return p >= PriorityOff && p <= PriorityPlusOn
}

// LineMode is the display attribute of a status line.
type LineMode string

// Line display modes.
const (
	LineNormal  LineMode = " "
	LineReverse LineMode = "*"
	LineCursor  LineMode = "_"
	LineBlink   LineMode = "#"
)

// IconMode is the display state of a status icon row.
type IconMode string

// Icon display modes.
const (
	IconOff   IconMode = "0"
	IconOn    IconMode = "1"
	IconBlink IconMode = "2"
)

// Bitmask is a fixed-width string of 0/1 digits used by the lockout and
// screen commands. The leftmost digit is bit 0.
//
// The empty Bitmask is omitted from commands.
type Bitmask string

// NewBitmask returns an all-clear mask of the given width.
func NewBitmask(width int) Bitmask {
	return Bitmask(strings.Repeat("0", width))
}

// Width returns the number of digits.
func (b Bitmask) Width() int { return len(b) }

// Bit reports whether position i is set. Out of range positions are clear.
func (b Bitmask) Bit(i int) bool {
	if i < 0 || i >= len(b) {
		return false
	}
	return b[i] == '1'
}

// With returns a copy of b with position i set or cleared.
func (b Bitmask) With(i int, set bool) Bitmask {
	if i < 0 || i >= len(b) {
		return b
	}
	buf := []byte(b)
	if set {
		buf[i] = '1'
	} else {
		buf[i] = '0'
	}
	return Bitmask(buf)
}

// Validate checks the mask has the expected width and only 0/1 digits.
func (b Bitmask) Validate(width int) error {
	if len(b) != width {
		return fmt.Errorf("bitmask %q: want %d digits, got %d", string(b), width, len(b))
	}
	for i := 0; i < len(b); i++ {
		if b[i] != '0' && b[i] != '1' {
			return fmt.Errorf("bitmask %q: invalid digit %q at %d", string(b), b[i], i)
		}
	}
	return nil
}

// Widths of the bitmask arguments.
const (
	QuickLockoutWidth      = 10
	GroupQuickLockoutWidth = 10
	ScreenWidth            = 8
)

// Screen flag positions within an 8-digit quick search screen mask.
// The layout is as documented for the BC246T and has not been verified
// on hardware.
const (
	ScreenPager = 0
	ScreenUHFTV = 1
)

// Reply field names, in wire order, for commands with structured replies.
var (
	StatusFields = []string{
		"l1_char", "l1_mode", "l2_char", "l2_mode", "icon1", "icon2",
		"reserve", "sql", "mut", "bat", "wat",
	}

	TalkgroupFields = []string{
		"sys_type", "tgid", "id_srch_mode", "name1", "name2", "name3",
	}

	OpeningMessageFields = []string{"l1_char", "l2_char"}

	SystemFields = []string{
		"sys_type", "name", "quick_key", "hld", "lout", "att", "dly", "skp", "emg",
		"rev_index", "fwd_index", "chn_grp_head", "chn_grp_tail", "seq_no",
	}
)
