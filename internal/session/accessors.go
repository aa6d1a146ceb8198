package session

import "fieldcore/internal/fieldcore"

// IntScalar returns the current value of an `int`-kind cell and whether one
// has been set, for fieldops.Run's compare-predicate dispatch ("if
// count(pos) == 0 OR compare predicate holds against the current
// scalar"). Returns (0, false) for any other kind or an empty cell.
func (s *Session) IntScalar(pos int32) (int64, bool) {
	if pos < 0 || int(pos) >= len(s.cells) {
		return 0, false
	}
	cell := s.cells[pos]
	if cell == nil || cell.Kind != fieldcore.KindInt {
		return 0, false
	}
	return cell.intVal, cell.intValSet
}

// FieldFor exposes the registry lookup fieldops.Run needs (kind/flags of
// the dispatch target) without re-exporting the registry itself.
func (s *Session) FieldFor(pos int32) (*fieldcore.FieldInfo, bool) {
	return s.fieldFor(pos)
}

// The StopSPI/StopSaving/MinSaving/StopYara control flags are exported as
// plain fields for read access, but fieldops.Run needs to tell
// "never set" apart from "set to the zero value" to implement the pseudo-op
// dispatch's "if current ... differs" rule, hence the paired *Value/Set*
// accessors below rather than just touching the fields directly.

func (s *Session) StopSPIValue() (uint8, bool)    { return s.StopSPI, s.stopSPISet }
func (s *Session) StopSavingValue() (uint16, bool) { return s.StopSaving, s.stopSavingSet }
func (s *Session) MinSavingValue() (uint8, bool)   { return s.MinSaving, s.minSavingSet }
func (s *Session) StopYaraValue() (bool, bool)     { return s.StopYara, s.stopYaraSet }

func (s *Session) SetStopSPI(v uint8) {
	s.StopSPI, s.stopSPISet = v, true
}

func (s *Session) SetStopSaving(v uint16) {
	s.StopSaving, s.stopSavingSet = v, true
}

func (s *Session) SetMinSaving(v uint8) {
	s.MinSaving, s.minSavingSet = v, true
}

func (s *Session) SetStopYara(v bool) {
	s.StopYara, s.stopYaraSet = v, true
}
