package session

import "fieldcore/internal/fieldcore"

// costForAdd implements the per-kind serialization cost table. first
// indicates whether this is the cell's first-ever stored value (in which
// case dbFieldLen is charged once, in addition to the per-value cost);
// valueLen is the length relevant to that kind's per-value formula (ignored
// for int-ish/float-ish/ip4/ip6 rows, which are fixed).
func costForAdd(kind fieldcore.FieldKind, first bool, dbFieldLen, valueLen int) int {
	cost := 0
	if first {
		cost += dbFieldLen
	}
	switch {
	case isStringish(kind):
		cost += 6 + 2*valueLen
	case isIntish(kind):
		cost += 13
	case isFloatish(kind):
		cost += 15
	case kind == fieldcore.KindIP || kind == fieldcore.KindIPMap:
		cost += 3 + valueLen + 100
	}
	return cost
}

// costForIPv4Add is the fixed cost row for addIp4 (the "ip v4/v6
// add"): 3 + 15 (length of a dotted-quad string) + 100.
func costForIPv4Add(first bool, dbFieldLen int) int {
	cost := 3 + 15 + 100
	if first {
		cost += dbFieldLen
	}
	return cost
}

// costForIPv6Add is the fixed cost row for addIp6: 3 + 30 (length of a
// textual IPv6 address) + 100.
func costForIPv6Add(first bool, dbFieldLen int) int {
	cost := 3 + 30 + 100
	if first {
		cost += dbFieldLen
	}
	return cost
}

// costForObjectAdd implements the "object first"/subsequent split row:
// first add costs 3 + dbFieldLen + 4 + len; every later add costs 3 + len.
func costForObjectAdd(first bool, dbFieldLen, valueLen int) int {
	if first {
		return 3 + dbFieldLen + 4 + valueLen
	}
	return 3 + valueLen
}

func isStringish(kind fieldcore.FieldKind) bool {
	switch kind {
	case fieldcore.KindString, fieldcore.KindStringArray, fieldcore.KindStringSet, fieldcore.KindStringMap:
		return true
	default:
		return false
	}
}

func isIntish(kind fieldcore.FieldKind) bool {
	switch kind {
	case fieldcore.KindInt, fieldcore.KindIntArray, fieldcore.KindIntSet, fieldcore.KindIntMap:
		return true
	default:
		return false
	}
}

func isFloatish(kind fieldcore.FieldKind) bool {
	switch kind {
	case fieldcore.KindFloat, fieldcore.KindFloatArray, fieldcore.KindFloatMap:
		return true
	default:
		return false
	}
}

// applyCost folds delta into cell's jsonSize and, if the new total exceeds
// FieldMaxJSONSize, raises the session's MidSave flag. MidSave only ever
// transitions false->true; a cell that's already past the threshold and
// grows further does not re-notify anything (there's nothing to re-notify;
// MidSave is a flat bool, not a counter).
func (s *Session) applyCost(cell *Cell, delta int) {
	cell.addJSONCost(delta)
	if cell.JSONSize > FieldMaxJSONSize {
		s.MidSave = true
	}
}
