package uniden

import "testing"

func TestToggle(t *testing.T) {
	if !On.Bool() || Off.Bool() {
		t.Error("Toggle.Bool() mismatch")
	}
	if ToggleOf(true) != On || ToggleOf(false) != Off {
		t.Error("ToggleOf() mismatch")
	}
}

func TestKeyCodeValid(t *testing.T) {
	for _, k := range []KeyCode{"M", "F", "H", "S", "L", "!", "1", "9", "0", ".", "E", ">", "<", "^", "P"} {
		if !k.Valid() {
			t.Errorf("KeyCode(%q).Valid() = false", k)
		}
	}
	for _, k := range []KeyCode{"", "Z", "10", "s"} {
		if k.Valid() {
			t.Errorf("KeyCode(%q).Valid() = true", k)
		}
	}
	if KeySearch != KeyScan || KeyYes != KeyEnter || KeyNo != KeyDot {
		t.Error("key aliases do not share codes")
	}
}

func TestEnumValid(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
		got   bool
	}{
		{"key mode P", true, KeyPress.Valid()},
		{"key mode R", true, KeyRelease.Valid()},
		{"key mode X", false, KeyMode("X").Valid()},
		{"modulation NFM", true, ModNFM.Valid()},
		{"modulation USB", false, Modulation("USB").Valid()},
		{"system type EDS", true, EDACSSCAT.Valid()},
		{"system type P25", false, SystemType("P25").Valid()},
		{"backlight KY", true, BacklightKeypress.Valid()},
		{"backlight 60", false, Backlight("60").Valid()},
		{"priority off", true, PriorityOff.Valid()},
		{"priority plus on", true, PriorityPlusOn.Valid()},
		{"priority 3", false, PriorityMode(3).Valid()},
		{"priority -1", false, PriorityMode(-1).Valid()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.valid {
				t.Errorf("Valid() = %v, want %v", tt.got, tt.valid)
			}
		})
	}
}

func TestSystemTypesComplete(t *testing.T) {
	if len(SystemTypes) != 14 {
		t.Errorf("len(SystemTypes) = %d, want 14", len(SystemTypes))
	}
	seen := make(map[SystemType]bool)
	for _, st := range SystemTypes {
		if seen[st] {
			t.Errorf("duplicate system type %q", st)
		}
		seen[st] = true
	}
}

func TestBitmask(t *testing.T) {
	b := NewBitmask(QuickLockoutWidth)
	if b != "0000000000" || b.Width() != 10 {
		t.Fatalf("NewBitmask(10) = %q", b)
	}

	b = b.With(0, true).With(9, true)
	if b != "1000000001" {
		t.Errorf("With() = %q, want 1000000001", b)
	}
	if !b.Bit(0) || b.Bit(1) || !b.Bit(9) {
		t.Errorf("Bit() mismatch for %q", b)
	}
	if b.Bit(-1) || b.Bit(10) {
		t.Error("out of range Bit() = true")
	}
	if got := b.With(20, true); got != b {
		t.Errorf("out of range With() = %q, want unchanged", got)
	}
	if got := b.With(0, false); got != "0000000001" {
		t.Errorf("With(0, false) = %q", got)
	}
}

func TestBitmaskValidate(t *testing.T) {
	tests := []struct {
		mask    Bitmask
		width   int
		wantErr bool
	}{
		{"01010101", ScreenWidth, false},
		{"0101010", ScreenWidth, true},
		{"010101012", 9, true},
		{"", 0, false},
		{"1111111111", QuickLockoutWidth, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.mask), func(t *testing.T) {
			err := tt.mask.Validate(tt.width)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%d) error = %v, wantErr %v", tt.width, err, tt.wantErr)
			}
		})
	}
}

func TestNewSystem(t *testing.T) {
	sys := NewSystem(LTR)
	if sys.Type != LTR || sys.Index != UnboundIndex || sys.ForwardIndex != UnboundIndex {
		t.Errorf("NewSystem() = %+v", *sys)
	}
	if sys.Bound() {
		t.Error("Bound() = true for a new system")
	}
	var nilSys *System
	if nilSys.Bound() {
		t.Error("Bound() = true for nil")
	}
}
