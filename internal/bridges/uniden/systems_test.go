package uniden

import (
	"errors"
	"testing"
)

func TestSystemsWindow(t *testing.T) {
	dev, ft := newTestDevice("SCT,3", "SIH,5", "SIT,7")
	sys := dev.Systems()

	if n, err := sys.Count(); err != nil || n != 3 {
		t.Errorf("Count() = %d, %v; want 3", n, err)
	}
	if n, err := sys.Head(); err != nil || n != 5 {
		t.Errorf("Head() = %d, %v; want 5", n, err)
	}
	if n, err := sys.Tail(); err != nil || n != 7 {
		t.Errorf("Tail() = %d, %v; want 7", n, err)
	}
	assertWritten(t, ft, "SCT", "SIH", "SIT")
}

func TestSystemsCountNotNumeric(t *testing.T) {
	dev, _ := newTestDevice("SCT,many")
	if _, err := dev.Systems().Count(); !errors.Is(err, ErrUnexpectedReply) {
		t.Errorf("Count() error = %v, want ErrUnexpectedReply", err)
	}
}

func TestSystemsIndices(t *testing.T) {
	dev, _ := newTestDevice("SIH,5", "SCT,3")

	got, err := dev.Systems().Indices()
	if err != nil {
		t.Fatalf("Indices() error = %v", err)
	}
	want := []int{5, 6, 7}
	if len(got) != len(want) {
		t.Fatalf("Indices() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Indices()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestSystemsAll(t *testing.T) {
	dev, ft := newTestDevice(
		"SIH,5", "SCT,3",
		"SIN,CNV,ALPHA,1,2,0,0,0,0,0,-1,6,10,11,1",
		"SIN,M82S,BRAVO,2,0,1,0,0,0,0,5,7,12,12,2",
		"SIN,LTR,CHARLIE,.,0,0,1,3,1,1,6,-1,13,14,3",
	)

	var names []string
	var indices []int
	for sys, err := range dev.Systems().All() {
		if err != nil {
			t.Fatalf("All() error = %v", err)
		}
		names = append(names, sys.Name)
		indices = append(indices, sys.Index)
	}

	if len(names) != 3 || names[0] != "ALPHA" || names[1] != "BRAVO" || names[2] != "CHARLIE" {
		t.Errorf("names = %v", names)
	}
	if len(indices) != 3 || indices[0] != 5 || indices[2] != 7 {
		t.Errorf("indices = %v", indices)
	}
	assertWritten(t, ft, "SIH", "SCT", "SIN,5", "SIN,6", "SIN,7")
}

func TestSystemsAllEmpty(t *testing.T) {
	dev, ft := newTestDevice("SIH,0", "SCT,0")

	for sys, err := range dev.Systems().All() {
		t.Fatalf("All() yielded %v, %v for an empty scanner", sys, err)
	}
	assertWritten(t, ft, "SIH", "SCT")
}

func TestSystemsAllStopsAfterError(t *testing.T) {
	dev, ft := newTestDevice(
		"SIH,1", "SCT,3",
		"SIN,CNV,ONE,1,0,0,0,0,0,0,-1,2,1,1,1",
		"SIN,NG",
	)

	var got int
	var gotErr error
	for sys, err := range dev.Systems().All() {
		if err != nil {
			if sys != nil {
				t.Errorf("error yielded with system %+v", sys)
			}
			gotErr = err
			continue
		}
		got++
	}

	if got != 1 {
		t.Errorf("systems yielded = %d, want 1", got)
	}
	if !errors.Is(gotErr, ErrCommandUnavailable) {
		t.Errorf("error = %v, want ErrCommandUnavailable", gotErr)
	}
	assertWritten(t, ft, "SIH", "SCT", "SIN,1", "SIN,2")
}

func TestSystemsAllWindowError(t *testing.T) {
	dev, ft := newTestDevice("SIH,NG")

	var errs int
	for _, err := range dev.Systems().All() {
		if !errors.Is(err, ErrCommandUnavailable) {
			t.Errorf("error = %v, want ErrCommandUnavailable", err)
		}
		errs++
	}
	if errs != 1 {
		t.Errorf("yielded %d values, want 1", errs)
	}
	assertWritten(t, ft, "SIH")
}

func TestSystemsAllEarlyBreak(t *testing.T) {
	dev, ft := newTestDevice(
		"SIH,1", "SCT,3",
		"SIN,CNV,ONE,1,0,0,0,0,0,0,-1,2,1,1,1",
	)

	for range dev.Systems().All() {
		break
	}
	assertWritten(t, ft, "SIH", "SCT", "SIN,1")
}

func TestSystemsAllRerunnable(t *testing.T) {
	dev, ft := newTestDevice(
		"SIH,2", "SCT,1", "SIN,CNV,FIRST,1,0,0,0,0,0,0,-1,-1,1,1,1",
		"SIH,2", "SCT,1", "SIN,CNV,SECOND,1,0,0,0,0,0,0,-1,-1,1,1,1",
	)
	seq := dev.Systems().All()

	for _, want := range []string{"FIRST", "SECOND"} {
		var names []string
		for sys, err := range seq {
			if err != nil {
				t.Fatalf("All() error = %v", err)
			}
			names = append(names, sys.Name)
		}
		if len(names) != 1 || names[0] != want {
			t.Errorf("pass names = %v, want [%s]", names, want)
		}
	}
	if got := len(ft.Written()); got != 6 {
		t.Errorf("written %d commands, want 6", got)
	}
}

func TestSystemsList(t *testing.T) {
	dev, _ := newTestDevice(
		"SIH,1", "SCT,2",
		"SIN,CNV,ONE,1,0,0,0,0,0,0,-1,2,1,1,1",
		"SIN,CNV,TWO,2,0,0,0,0,0,0,1,-1,2,2,2",
	)

	list, err := dev.Systems().List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 || list[1].Name != "TWO" {
		t.Errorf("List() = %+v", list)
	}

	dev, _ = newTestDevice("SIH,1", "SCT,2", "SIN,CNV,ONE,1,0,0,0,0,0,0,-1,2,1,1,1")
	if _, err := dev.Systems().List(); !errors.Is(err, ErrNoResponse) {
		t.Errorf("List() error = %v, want ErrNoResponse", err)
	}
}

func TestSystemsGet(t *testing.T) {
	dev, ft := newTestDevice("SIN,M82S,COUNTY,3,5,1,0,2,1,1,4,9,20,22,6")

	sys, err := dev.Systems().Get(8)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	want := System{
		Index:            8,
		Type:             Motorola800T2Std,
		Name:             "COUNTY",
		QuickKey:         "3",
		HoldTime:         5,
		Lockout:          On,
		Attenuation:      Off,
		Delay:            2,
		DataSkip:         On,
		EmergencyAlert:   On,
		ReverseIndex:     4,
		ForwardIndex:     9,
		ChannelGroupHead: 20,
		ChannelGroupTail: 22,
		SequenceNumber:   6,
	}
	if *sys != want {
		t.Errorf("Get() = %+v, want %+v", *sys, want)
	}
	if !sys.Bound() {
		t.Error("Bound() = false for a stored system")
	}
	assertWritten(t, ft, "SIN,8")
}

func TestSystemsGetShortRecord(t *testing.T) {
	dev, _ := newTestDevice("SIN,CNV,SHORT")

	sys, err := dev.Systems().Get(1)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if sys.Name != "SHORT" || sys.HoldTime != 0 || sys.ForwardIndex != UnboundIndex || sys.SequenceNumber != UnboundIndex {
		t.Errorf("Get() = %+v, want defaults for missing fields", *sys)
	}
}

func TestSystemsGetBadField(t *testing.T) {
	dev, _ := newTestDevice("SIN,CNV,BAD,1,x")

	_, err := dev.Systems().Get(1)
	if !errors.Is(err, ErrUnexpectedReply) {
		t.Fatalf("Get() error = %v, want ErrUnexpectedReply", err)
	}
	var perr *ProtocolError
	if !errors.As(err, &perr) || perr.Command != "SIN" {
		t.Errorf("error = %#v, want *ProtocolError for SIN", err)
	}
}

func TestSystemsInvalidIndex(t *testing.T) {
	dev, ft := newTestDevice()
	s := dev.Systems()

	for _, index := range []int{0, -1} {
		if _, err := s.Get(index); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Get(%d) error = %v, want ErrInvalidArgument", index, err)
		}
		if err := s.Remove(index); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Remove(%d) error = %v, want ErrInvalidArgument", index, err)
		}
		if _, err := s.GroupQuickLockout(index); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("GroupQuickLockout(%d) error = %v, want ErrInvalidArgument", index, err)
		}
	}
	if len(ft.Written()) != 0 {
		t.Errorf("invalid index wrote %q", ft.Written())
	}
}

func TestSystemsAppend(t *testing.T) {
	tests := []struct {
		name      string
		replies   []string
		wantIndex int
		wantErr   error
		written   []string
	}{
		{"assigned", []string{"CSY,12", "SIN,M82S,,.,0,0,0,0,0,0,11,-1,-1,-1,12"}, 12, nil, []string{"CSY,M82S", "SIN,12"}},
		{"read back fails", []string{"CSY,12"}, 12, ErrNoResponse, []string{"CSY,M82S", "SIN,12"}},
		{"memory full", []string{"CSY,-1"}, UnboundIndex, ErrNoFreeSlot, []string{"CSY,M82S"}},
		{"zero index", []string{"CSY,0"}, UnboundIndex, ErrUnexpectedReply, []string{"CSY,M82S"}},
		{"not numeric", []string{"CSY,abc"}, UnboundIndex, ErrUnexpectedReply, []string{"CSY,M82S"}},
		{"refused", []string{"CSY,NG"}, UnboundIndex, ErrCommandUnavailable, []string{"CSY,M82S"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, ft := newTestDevice(tt.replies...)
			sys := NewSystem(Motorola800T2Std)
			sys.Name = "STALE"

			err := dev.Systems().Append(sys)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Append() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Append() error = %v, want %v", err, tt.wantErr)
			}
			if sys.Index != tt.wantIndex {
				t.Errorf("Index = %d, want %d", sys.Index, tt.wantIndex)
			}
			if tt.wantErr == nil {
				if sys.Name != "" || sys.ReverseIndex != 11 {
					t.Errorf("after read-back Name = %q ReverseIndex = %d, want scanner defaults", sys.Name, sys.ReverseIndex)
				}
			}
			assertWritten(t, ft, tt.written...)
		})
	}
}

func TestSystemsAppendInvalidType(t *testing.T) {
	dev, ft := newTestDevice()

	if err := dev.Systems().Append(NewSystem("P25")); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Append(P25) error = %v, want ErrInvalidArgument", err)
	}
	if err := dev.Systems().Append(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Append(nil) error = %v, want ErrInvalidArgument", err)
	}
	if len(ft.Written()) != 0 {
		t.Errorf("invalid append wrote %q", ft.Written())
	}
}

func TestSystemsRemoveSystem(t *testing.T) {
	dev, ft := newTestDevice("DSY,OK")
	sys := NewSystem(Conventional)
	sys.Index = 4

	if err := dev.Systems().RemoveSystem(sys); err != nil {
		t.Fatalf("RemoveSystem() error = %v", err)
	}
	if sys.Bound() {
		t.Errorf("Index = %d after remove, want unbound", sys.Index)
	}
	assertWritten(t, ft, "DSY,4")

	if err := dev.Systems().RemoveSystem(sys); !errors.Is(err, ErrUnboundSystem) {
		t.Errorf("RemoveSystem(unbound) error = %v, want ErrUnboundSystem", err)
	}
	if err := dev.Systems().RemoveSystem(nil); !errors.Is(err, ErrUnboundSystem) {
		t.Errorf("RemoveSystem(nil) error = %v, want ErrUnboundSystem", err)
	}
}

func TestSystemsRemoveFailureKeepsIndex(t *testing.T) {
	dev, _ := newTestDevice("DSY,NG")
	sys := NewSystem(Conventional)
	sys.Index = 4

	if err := dev.Systems().RemoveSystem(sys); !errors.Is(err, ErrCommandUnavailable) {
		t.Fatalf("RemoveSystem() error = %v, want ErrCommandUnavailable", err)
	}
	if sys.Index != 4 {
		t.Errorf("Index = %d, want 4", sys.Index)
	}
}

func TestSystemsRefresh(t *testing.T) {
	dev, ft := newTestDevice("SIN,CNV,RENAMED,1,0,0,0,0,0,0,-1,-1,1,1,1")
	sys := NewSystem(Conventional)
	sys.Index = 3
	sys.Name = "OLD"

	if err := dev.Systems().Refresh(sys); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if sys.Name != "RENAMED" || sys.Index != 3 {
		t.Errorf("Refresh() = %+v", *sys)
	}
	assertWritten(t, ft, "SIN,3")

	if err := dev.Systems().Refresh(NewSystem(Conventional)); !errors.Is(err, ErrUnboundSystem) {
		t.Errorf("Refresh(unbound) error = %v, want ErrUnboundSystem", err)
	}
}

func TestQuickLockout(t *testing.T) {
	dev, ft := newTestDevice("QSL,1000000001", "QSL,OK")
	s := dev.Systems()

	mask, err := s.QuickLockout()
	if err != nil {
		t.Fatalf("QuickLockout() error = %v", err)
	}
	if !mask.Bit(0) || mask.Bit(1) || !mask.Bit(9) {
		t.Errorf("QuickLockout() = %q", mask)
	}

	if err := s.SetQuickLockout(mask.With(1, true)); err != nil {
		t.Fatalf("SetQuickLockout() error = %v", err)
	}
	assertWritten(t, ft, "QSL", "QSL,1100000001")

	if err := s.SetQuickLockout("101"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetQuickLockout(short) error = %v, want ErrInvalidArgument", err)
	}
}

func TestGroupQuickLockout(t *testing.T) {
	dev, ft := newTestDevice("QGL,0000000000", "QGL,OK")
	s := dev.Systems()

	mask, err := s.GroupQuickLockout(2)
	if err != nil {
		t.Fatalf("GroupQuickLockout() error = %v", err)
	}
	if mask != NewBitmask(GroupQuickLockoutWidth) {
		t.Errorf("GroupQuickLockout() = %q", mask)
	}

	if err := s.SetGroupQuickLockout(2, mask.With(3, true)); err != nil {
		t.Fatalf("SetGroupQuickLockout() error = %v", err)
	}
	assertWritten(t, ft, "QGL,2", "QGL,2,0001000000")

	if err := s.SetGroupQuickLockout(2, "00000000002"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetGroupQuickLockout(bad) error = %v, want ErrInvalidArgument", err)
	}
	if err := s.SetGroupQuickLockout(0, mask); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("SetGroupQuickLockout(0) error = %v, want ErrInvalidArgument", err)
	}
}
