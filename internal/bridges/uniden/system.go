package uniden

import (
	"fmt"
	"strconv"
)

// UnboundIndex is the Index of a System not yet stored on the scanner,
// and the value of linkage fields the scanner has not reported.
const UnboundIndex = -1

// System is one stored system record.
//
// Index, ReverseIndex, ForwardIndex, ChannelGroupHead, ChannelGroupTail
// and SequenceNumber are assigned by the scanner and are read-only here.
type System struct {
	Index          int        `json:"index"`
	Type           SystemType `json:"sys_type"`
	Name           string     `json:"name"`
	QuickKey       QuickKey   `json:"quick_key"`
	HoldTime       int        `json:"hold_time"`
	Lockout        Toggle     `json:"lockout"`
	Attenuation    Toggle     `json:"attenuation"`
	Delay          int        `json:"delay"`
	DataSkip       Toggle     `json:"data_skip"`
	EmergencyAlert Toggle     `json:"emergency_alert"`

	ReverseIndex     int `json:"rev_index"`
	ForwardIndex     int `json:"fwd_index"`
	ChannelGroupHead int `json:"chn_grp_head"`
	ChannelGroupTail int `json:"chn_grp_tail"`
	SequenceNumber   int `json:"seq_no"`
}

// NewSystem returns an unbound system of the given type.
func NewSystem(t SystemType) *System {
	return &System{
		Index:            UnboundIndex,
		Type:             t,
		ReverseIndex:     UnboundIndex,
		ForwardIndex:     UnboundIndex,
		ChannelGroupHead: UnboundIndex,
		ChannelGroupTail: UnboundIndex,
		SequenceNumber:   UnboundIndex,
	}
}

// Bound reports whether the scanner has assigned this system an index.
func (s *System) Bound() bool {
	return s != nil && s.Index > 0
}

// systemFromRecord builds a System from a SIN record.
func systemFromRecord(index int, rec Record) (*System, error) {
	sys := NewSystem(SystemType(rec.Get("sys_type")))
	sys.Index = index
	sys.Name = rec.Get("name")
	sys.QuickKey = QuickKey(rec.Get("quick_key"))

	ints := []struct {
		field string
		dst   *int
		def   int
	}{
		{"hld", &sys.HoldTime, 0},
		{"dly", &sys.Delay, 0},
		{"rev_index", &sys.ReverseIndex, UnboundIndex},
		{"fwd_index", &sys.ForwardIndex, UnboundIndex},
		{"chn_grp_head", &sys.ChannelGroupHead, UnboundIndex},
		{"chn_grp_tail", &sys.ChannelGroupTail, UnboundIndex},
		{"seq_no", &sys.SequenceNumber, UnboundIndex},
	}
	for _, f := range ints {
		v, err := parseIntField(rec, f.field, f.def)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}

	toggles := []struct {
		field string
		dst   *Toggle
	}{
		{"lout", &sys.Lockout},
		{"att", &sys.Attenuation},
		{"skp", &sys.DataSkip},
		{"emg", &sys.EmergencyAlert},
	}
	for _, f := range toggles {
		v, err := parseIntField(rec, f.field, 0)
		if err != nil {
			return nil, err
		}
		*f.dst = Toggle(v)
	}

	return sys, nil
}

// parseIntField parses a numeric field. A missing or empty field yields def.
func parseIntField(rec Record, field string, def int) (int, error) {
	raw := rec.Get(field)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: field %s=%q", ErrUnexpectedReply, field, raw)
	}
	return n, nil
}
