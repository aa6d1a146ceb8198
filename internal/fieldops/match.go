package fieldops

// AddMatch compiles one rule-config line into an Op appended to ops.
//
// Open question, recorded rather than silently resolved: a literal
// reading of "reject fieldPos == -1" would make STOP_SPI uncompilable,
// since fieldcore.PosStopSPI is itself -1 in this package's pseudo-position
// numbering and rule config needs to be able to target it. Resolved: "-1"
// describes an unresolved-name sentinel, not a legitimate pseudo-field;
// AddMatch accepts any pseudo position fieldcore.IsPseudo recognizes and
// only rejects a real position past maxDbField. Covered by
// TestAddMatchAcceptsStopSPI in match_test.go.
func AddMatch(ops *List, fieldPos, matchPos int32, maxDbField int32, isPseudo bool, value string, valueLen int32, isNumericTarget bool) bool {
	if !isPseudo && fieldPos > maxDbField {
		return false
	}

	op := Op{FieldPos: fieldPos, MatchPos: matchPos}

	if isPseudo {
		op.Compare, op.IntVal = ParseIntOp(value)
		op.HasStr = false
		ops.Grow(op)
		return true
	}

	if isNumericTarget {
		op.Compare, op.IntVal = ParseIntOp(value)
	} else {
		op.Str = value
		op.HasStr = true
		op.IntVal = int64(valueLen)
	}
	ops.Grow(op)
	return true
}
