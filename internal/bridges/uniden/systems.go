package uniden

import (
	"fmt"
	"iter"
)

// Systems is a live view of the scanner's stored systems.
//
// Count, Head and Tail are read from the scanner on every call. Every
// operation requires program mode.
type Systems struct {
	device *Device
}

// Count returns the number of stored systems (SCT).
func (s *Systems) Count() (int, error) {
	return s.device.queryInt(NewCommand("SCT"))
}

// Head returns the index of the first stored system (SIH).
func (s *Systems) Head() (int, error) {
	return s.device.queryInt(NewCommand("SIH"))
}

// Tail returns the index of the last stored system (SIT).
func (s *Systems) Tail() (int, error) {
	return s.device.queryInt(NewCommand("SIT"))
}

// Indices returns the window [head, head+count) that All iterates.
func (s *Systems) Indices() ([]int, error) {
	head, count, err := s.window()
	if err != nil {
		return nil, err
	}
	out := make([]int, count)
	for i := range count {
		out[i] = head + i
	}
	return out, nil
}

func (s *Systems) window() (head, count int, err error) {
	if head, err = s.Head(); err != nil {
		return 0, 0, err
	}
	if count, err = s.Count(); err != nil {
		return 0, 0, err
	}
	if count < 0 {
		count = 0
	}
	return head, count, nil
}

// All iterates the stored systems in [head, head+count).
//
// Head and count are read when iteration starts, and each record is
// fetched as it is reached. Creating or deleting systems on the scanner
// while iterating gives undefined results. Iteration stops after the
// first error, which is yielded with a nil System. The sequence may be
// ranged over more than once; each pass reads the window afresh.
func (s *Systems) All() iter.Seq2[*System, error] {
	return func(yield func(*System, error) bool) {
		head, count, err := s.window()
		if err != nil {
			yield(nil, err)
			return
		}
		for i := range count {
			sys, err := s.Get(head + i)
			if !yield(sys, err) || err != nil {
				return
			}
		}
	}
}

// List reads every stored system.
func (s *Systems) List() ([]*System, error) {
	var out []*System
	for sys, err := range s.All() {
		if err != nil {
			return nil, err
		}
		out = append(out, sys)
	}
	return out, nil
}

// Get reads the system stored at index (SIN).
func (s *Systems) Get(index int) (*System, error) {
	if index <= 0 {
		return nil, fmt.Errorf("%w: system index %d", ErrInvalidArgument, index)
	}
	rec, err := s.device.queryRecord(NewCommand("SIN", index), SystemFields)
	if err != nil {
		return nil, err
	}
	sys, err := systemFromRecord(index, rec)
	if err != nil {
		return nil, &ProtocolError{Command: "SIN", Err: err}
	}
	return sys, nil
}

// Append creates a system of sys.Type on the scanner (CSY), binds sys to
// the index the scanner assigned and re-reads it (SIN). The other fields
// of sys are not sent; they take the scanner's defaults.
//
// If the read-back fails sys stays bound and the error is returned.
func (s *Systems) Append(sys *System) error {
	if sys == nil || !sys.Type.Valid() {
		var t SystemType
		if sys != nil {
			t = sys.Type
		}
		return fmt.Errorf("%w: system type %q", ErrInvalidArgument, string(t))
	}

	reply, err := s.device.Exchange(NewCommand("CSY", sys.Type))
	if err != nil {
		return err
	}

	index, err := parseIntField(reply.Record("index"), "index", 0)
	if err != nil || index == 0 {
		return unexpected(reply, err)
	}
	if index == UnboundIndex {
		return &ProtocolError{Command: "CSY", Response: reply.Raw, Err: ErrNoFreeSlot}
	}

	sys.Index = index
	s.device.logInfo("system created", "index", index, "sys_type", string(sys.Type))

	if err := s.Refresh(sys); err != nil {
		return fmt.Errorf("read back system %d: %w", index, err)
	}
	return nil
}

// Remove deletes the system stored at index (DSY).
func (s *Systems) Remove(index int) error {
	if index <= 0 {
		return fmt.Errorf("%w: system index %d", ErrInvalidArgument, index)
	}
	if err := s.device.action(NewCommand("DSY", index)); err != nil {
		return err
	}
	s.device.logInfo("system deleted", "index", index)
	return nil
}

// RemoveSystem deletes a bound system and unbinds it.
func (s *Systems) RemoveSystem(sys *System) error {
	if !sys.Bound() {
		return ErrUnboundSystem
	}
	if err := s.Remove(sys.Index); err != nil {
		return err
	}
	sys.Index = UnboundIndex
	return nil
}

// Refresh re-reads a bound system in place.
func (s *Systems) Refresh(sys *System) error {
	if !sys.Bound() {
		return ErrUnboundSystem
	}
	fresh, err := s.Get(sys.Index)
	if err != nil {
		return err
	}
	*sys = *fresh
	return nil
}

// QuickLockout returns the system quick key lockout mask (QSL).
func (s *Systems) QuickLockout() (Bitmask, error) {
	v, err := s.device.query(NewCommand("QSL"))
	if err != nil {
		return "", err
	}
	return Bitmask(v), nil
}

// SetQuickLockout sets the system quick key lockout mask (QSL).
func (s *Systems) SetQuickLockout(mask Bitmask) error {
	if err := mask.Validate(QuickLockoutWidth); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return s.device.action(NewCommand("QSL", mask))
}

// GroupQuickLockout returns the group quick key lockout mask of the
// system at index (QGL).
func (s *Systems) GroupQuickLockout(index int) (Bitmask, error) {
	if index <= 0 {
		return "", fmt.Errorf("%w: system index %d", ErrInvalidArgument, index)
	}
	v, err := s.device.query(NewCommand("QGL", index))
	if err != nil {
		return "", err
	}
	return Bitmask(v), nil
}

// SetGroupQuickLockout sets the group quick key lockout mask of the
// system at index (QGL).
func (s *Systems) SetGroupQuickLockout(index int, mask Bitmask) error {
	if index <= 0 {
		return fmt.Errorf("%w: system index %d", ErrInvalidArgument, index)
	}
	if err := mask.Validate(GroupQuickLockoutWidth); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return s.device.action(NewCommand("QGL", index, mask))
}
