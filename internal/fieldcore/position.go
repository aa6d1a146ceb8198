package fieldcore

// FieldsMax is the default compile-time bound on the number of positions a
// single process can hand out. It is a power of two so the remap table can
// be sized as a convenient square matrix when a fixed bound is wanted; the
// registry in internal/fieldreg sizes the remap table lazily instead, but
// FieldsMax still gates the fatal position-space overflow check.
// internal/config can override this at startup.
const FieldsMax int32 = 1 << 13 // 8192

// Pseudo-field positions. These never name a real backing-store slot; they
// only ever appear as the fieldPos of a field operation (see
// internal/fieldops), where they mutate session-level control flags instead
// of a typed cell.
const (
	PosStopSPI     int32 = -1
	PosStopPCAP    int32 = -2
	PosMinSave     int32 = -3
	PosDropSrc     int32 = -4
	PosDropDst     int32 = -5
	PosDropSession int32 = -6
	PosStopYara    int32 = -7
)

// IsPseudo reports whether pos names a pseudo-field rather than a real
// registry position.
func IsPseudo(pos int32) bool {
	switch pos {
	case PosStopSPI, PosStopPCAP, PosMinSave, PosDropSrc, PosDropDst, PosDropSession, PosStopYara:
		return true
	default:
		return false
	}
}

// PseudoName returns a human-readable name for a pseudo-field position, or
// "" if pos does not name one. Used for diagnostics only.
func PseudoName(pos int32) string {
	switch pos {
	case PosStopSPI:
		return "STOP_SPI"
	case PosStopPCAP:
		return "STOP_PCAP"
	case PosMinSave:
		return "MIN_SAVE"
	case PosDropSrc:
		return "DROP_SRC"
	case PosDropDst:
		return "DROP_DST"
	case PosDropSession:
		return "DROP_SESSION"
	case PosStopYara:
		return "STOP_YARA"
	default:
		return ""
	}
}
