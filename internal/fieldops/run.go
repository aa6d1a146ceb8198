package fieldops

import (
	"fieldcore/internal/fieldcore"
	"fieldcore/internal/fieldreg"
	"fieldcore/internal/session"
)

// Side names which half of a session a DROP_SRC/DROP_DST pseudo-op applies
// to; DROP_SESSION applies to both.
type Side uint8

const (
	SideSrc Side = iota
	SideDst
	SideBoth
)

// DropHook pushes a drop-hash entry for session, keyed by side, with TTL
// ttl seconds. The packet engine is the external collaborator that
// consumes the drop table; this core only calls the hook.
type DropHook func(s *session.Session, side Side, ttl int32)

// Run implements the run contract: execute ops in order against
// session, with matchPos (-1 if none) driving the one-step remap
// substitution. registry supplies the remap table, the minInternalField
// ignore-rule boundary, and per-position field metadata. drop may be nil
// (no packet-engine collaborator wired).
func Run(s *session.Session, registry *fieldreg.Registry, ops *List, matchPos int32, drop DropHook) {
	for _, op := range ops.Ops {
		if fieldcore.IsPseudo(op.FieldPos) {
			runPseudo(s, op, drop)
			continue
		}

		fieldPos := op.FieldPos
		if matchPos >= 0 {
			if remapped, ok := registry.Remap(fieldPos, matchPos); ok && remapped >= 0 {
				fieldPos = remapped
			}
		}

		if fieldPos >= registry.MinInternalField() {
			// Internal fields cannot be set by rules in this release,
			// per the documented limitation.
			continue
		}

		fi, ok := s.FieldFor(fieldPos)
		if !ok {
			continue
		}

		dispatchReal(s, fieldPos, fi, op)
	}
}

func runPseudo(s *session.Session, op Op, drop DropHook) {
	switch op.FieldPos {
	case fieldcore.PosStopSPI:
		v := clamp(op.IntVal, 0, 1)
		if cur, set := s.StopSPIValue(); !set || int64(cur) != v {
			s.SetStopSPI(uint8(v))
		}

	case fieldcore.PosStopPCAP:
		v := clamp(op.IntVal, 0, 65535)
		if cur, set := s.StopSavingValue(); !set || int64(cur) != v {
			s.SetStopSaving(uint16(v))
			if s.PacketsCaptured >= uint64(v) {
				s.Tag("truncated-pcap")
			}
		}

	case fieldcore.PosMinSave:
		v := clamp(op.IntVal, 0, 255)
		if cur, set := s.MinSavingValue(); !set || int64(cur) != v {
			s.SetMinSaving(uint8(v))
		}

	case fieldcore.PosDropSrc:
		if drop != nil {
			drop(s, SideSrc, int32(op.IntVal))
		}
	case fieldcore.PosDropDst:
		if drop != nil {
			drop(s, SideDst, int32(op.IntVal))
		}
	case fieldcore.PosDropSession:
		if drop != nil {
			drop(s, SideBoth, int32(op.IntVal))
		}

	case fieldcore.PosStopYara:
		v := clamp(op.IntVal, 0, 1)
		if cur, set := s.StopYaraValue(); !set || boolToInt64(cur) != v {
			s.SetStopYara(v != 0)
		}
	}
}

func dispatchReal(s *session.Session, pos int32, fi *fieldcore.FieldInfo, op Op) {
	switch fi.Kind {
	case fieldcore.KindInt:
		cur, has := s.IntScalar(pos)
		if !has || comparePasses(op.Compare, op.IntVal, cur) {
			s.AddInt(pos, op.IntVal)
		}

	case fieldcore.KindIntArray, fieldcore.KindIntSet, fieldcore.KindIntMap:
		s.AddInt(pos, op.IntVal)

	case fieldcore.KindFloat, fieldcore.KindFloatArray, fieldcore.KindFloatMap:
		s.AddFloat(pos, op.FloatVal)

	case fieldcore.KindIP, fieldcore.KindIPMap:
		if op.HasStr {
			s.AddIpStr(pos, op.Str)
		}

	case fieldcore.KindString, fieldcore.KindStringArray, fieldcore.KindStringSet, fieldcore.KindStringMap:
		if op.HasStr {
			s.AddString(pos, op.Str, true)
		}

	case fieldcore.KindObject:
		// unsupported target, per the "object: ignored" rule.
	}
}

// comparePasses implements the "compare predicate for int scalars":
// SET -> v != current; SET_IF_MORE -> v > current; SET_IF_LESS -> v < current.
func comparePasses(c Compare, v, current int64) bool {
	switch c {
	case SetIfMore:
		return v > current
	case SetIfLess:
		return v < current
	default:
		return v != current
	}
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func boolToInt64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
