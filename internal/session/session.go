package session

import (
	"fmt"
	"net"
	"net/netip"
	"strings"
	"sync"

	"github.com/go-errors/errors"
	"golang.org/x/net/idna"

	"fieldcore/internal/fieldcore"
	"fieldcore/internal/fieldreg"
	"fieldcore/internal/rulehook"
)

// Session owns one bidirectional conversation's field store and control
// state: affined to a single packet thread for its whole life, so none of
// this needs locking.
type Session struct {
	Key      string // opaque caller-supplied handle (5-tuple key, etc.)
	registry *fieldreg.Registry
	rules    *rulehook.Bus

	cells []*Cell // indexed by pos; nil entry until first add

	// MidSave is an advisory flag: once any cell's jsonSize crosses
	// FieldMaxJSONSize, the surrounding pipeline may force an early flush.
	MidSave bool

	// Tags is the session tag set (truncated-field-*, bad-hostname,
	// bad-punycode, truncated-pcap, protocol names, ...).
	Tags map[string]struct{}

	// Control flags mutated only through fieldops.Run's pseudo-field
	// dispatch.
	StopSPI       uint8
	stopSPISet    bool
	StopSaving    uint16
	stopSavingSet bool
	MinSaving     uint8
	minSavingSet  bool
	StopYara      bool
	stopYaraSet   bool

	// PacketsCaptured lets STOP_PCAP's "already captured that many packets"
	// truncated-pcap check run without reaching into the packet engine,
	// which this core does not implement.
	PacketsCaptured uint64

	// The fields below are the pre-computed session inputs the internal
	// fields' getters read: raw 5-tuple/accounting inputs the packet
	// engine and TCP/IP reassembler would normally supply. Both are
	// external collaborators this core does not implement, so it just
	// exposes plain settable fields for them; the internal-field getters
	// installed by RegisterInternalFields read these directly.
	IPSrc, IPDst     netip.Addr
	PortSrc, PortDst uint16
	TCPFlags         map[string]bool // keys: syn, syn-ack, ack, psh, rst, fin, urg
	PacketsSrc, PacketsDst     uint64
	DataBytesSrc, DataBytesDst uint64

	deferred   []deferredFree
	deferredMu sync.Mutex
}

type deferredFree struct {
	value any
	free  func(any)
}

// New constructs an empty session bound to registry for field metadata
// lookups and rules for rule-set notifications. rules may be nil (no rule
// engine wired).
func New(registry *fieldreg.Registry, rules *rulehook.Bus) *Session {
	return &Session{
		registry: registry,
		rules:    rules,
		cells:    make([]*Cell, registry.FieldsMax()),
		Tags:     make(map[string]struct{}),
	}
}

// Tag adds a session tag (truncated-field-<dbField>, bad-hostname, ...).
func (s *Session) Tag(tag string) {
	s.Tags[tag] = struct{}{}
}

// fieldFor returns the FieldInfo for pos and whether the position is usable
// at all (registered, not disabled, in range). A currently-nil cell is
// created lazily by each AddX method through ensureCell, not here, since
// only some callers need to allocate (Count on a never-touched position
// must not allocate one).
func (s *Session) fieldFor(pos int32) (*fieldcore.FieldInfo, bool) {
	if pos < 0 || int(pos) >= len(s.cells) {
		return nil, false
	}
	fi := s.registry.FieldAt(pos)
	if fi == nil || fi.Disabled() {
		return nil, false
	}
	return fi, true
}

// ensureCell returns the cell at pos, allocating and kind-tagging it on
// first use. Panics (logic bug) if the cell already exists with a
// different kind than fi.Kind.
func (s *Session) ensureCell(pos int32, fi *fieldcore.FieldInfo) *Cell {
	cell := s.cells[pos]
	if cell == nil {
		cell = &Cell{Kind: fi.Kind}
		s.cells[pos] = cell
		return cell
	}
	if cell.Kind != fi.Kind {
		panic(errors.Wrap(fmt.Errorf("session: kind mismatch at pos %d: cell is %s, field is %s", pos, cell.Kind, fi.Kind), 1))
	}
	return cell
}

// notify fires the rule hook bus for a successful add on a rule-enabled
// field.
func (s *Session) notify(fi *fieldcore.FieldInfo, pos int32, value any) {
	if s.rules != nil && fi.RuleEnabled() {
		s.rules.Notify(s, pos, value)
	}
}

// truncateString clamps a string value to FieldMaxElementSize, tagging the
// session "truncated-field-<dbField>". Returns the (possibly shortened)
// value.
func (s *Session) truncateString(fi *fieldcore.FieldInfo, value string) string {
	if len(value) <= FieldMaxElementSize {
		return value
	}
	s.Tag("truncated-field-" + fi.DBField)
	return value[:FieldMaxElementSize]
}

// AddString adds a string value to the field at pos, truncating and
// tagging it if it exceeds FieldMaxElementSize. The copy parameter mirrors
// a buffer-ownership distinction that matters in a C implementation; Go's
// garbage collector makes the copy-vs-borrow choice a no-op here, since
// every AddX call already takes ownership of its own string header.
func (s *Session) AddString(pos int32, value string, copy bool) (string, bool) {
	fi, ok := s.fieldFor(pos)
	if !ok {
		return "", false
	}
	value = s.truncateString(fi, value)
	cell := s.ensureCell(pos, fi)

	switch fi.Kind {
	case fieldcore.KindString:
		first := cell.str == nil
		cell.str = &value
		s.applyCost(cell, costForAdd(fi.Kind, first, len(fi.DBField), len(value)))
		s.notify(fi, pos, value)
		return value, true

	case fieldcore.KindStringArray:
		if fi.Flags().Has(fieldcore.FlagDiffFromLast) && len(cell.strArray) > 0 && cell.strArray[len(cell.strArray)-1] == value {
			return "", false
		}
		first := len(cell.strArray) == 0
		cell.strArray = append(cell.strArray, value)
		s.applyCost(cell, costForAdd(fi.Kind, first, len(fi.DBField), len(value)))
		s.notify(fi, pos, value)
		return value, true

	case fieldcore.KindStringSet:
		if cell.strSet == nil {
			cell.strSet = make(map[string]setEntry)
		}
		if _, exists := cell.strSet[value]; exists {
			return "", false
		}
		first := len(cell.strSet) == 0
		cell.strSet[value] = setEntry{Length: len(value), UTF8: true}
		s.applyCost(cell, costForAdd(fi.Kind, first, len(fi.DBField), len(value)))
		s.notify(fi, pos, value)
		return value, true

	case fieldcore.KindStringMap:
		if cell.strMap == nil {
			cell.strMap = make(map[string]struct{})
		}
		if _, exists := cell.strMap[value]; exists {
			return "", false
		}
		first := len(cell.strMap) == 0
		cell.strMap[value] = struct{}{}
		s.applyCost(cell, costForAdd(fi.Kind, first, len(fi.DBField), len(value)))
		s.notify(fi, pos, value)
		return value, true

	default:
		panic(errors.Wrap(fmt.Errorf("session: AddString on non-string kind %s at pos %d", fi.Kind, pos), 1))
	}
}

// AddStringUserWord is AddString restricted to strSet cells, additionally
// storing an opaque per-entry user word alongside each set member.
func (s *Session) AddStringUserWord(pos int32, value string, uw any, copy bool) (string, bool) {
	fi, ok := s.fieldFor(pos)
	if !ok {
		return "", false
	}
	if fi.Kind != fieldcore.KindStringSet {
		panic(errors.Wrap(fmt.Errorf("session: AddStringUserWord on non-strSet kind %s at pos %d", fi.Kind, pos), 1))
	}
	value = s.truncateString(fi, value)
	cell := s.ensureCell(pos, fi)
	if cell.strSet == nil {
		cell.strSet = make(map[string]setEntry)
	}
	if _, exists := cell.strSet[value]; exists {
		return "", false
	}
	first := len(cell.strSet) == 0
	cell.strSet[value] = setEntry{Length: len(value), UTF8: true, UW: uw}
	s.applyCost(cell, costForAdd(fi.Kind, first, len(fi.DBField), len(value)))
	s.notify(fi, pos, value)
	return value, true
}

// AddStringLower lowercases ASCII letters in value and stores the result
// with AddString.
func (s *Session) AddStringLower(pos int32, value string) (string, bool) {
	return s.AddString(pos, strings.ToLower(value), true)
}

// AddStringHost converts value to its Unicode hostname form (punycode
// decoding via golang.org/x/net/idna) and stores it. Tags bad-punycode if
// the input looked like punycode ("xn--") and failed to decode, else
// bad-hostname on any other conversion failure or non-UTF8 result.
func (s *Session) AddStringHost(pos int32, value string) (string, bool, error) {
	_, ok := s.fieldFor(pos)
	if !ok {
		return "", false, nil
	}

	decoded, err := idna.ToUnicode(value)
	if err != nil || !isValidUTF8(decoded) {
		if strings.Contains(value, "xn--") {
			s.Tag("bad-punycode")
		} else {
			s.Tag("bad-hostname")
		}
		return "", false, fmt.Errorf("session: AddStringHost: invalid hostname %q: %w", value, errOrInvalidUTF8(err))
	}

	stored, ok := s.AddString(pos, decoded, true)
	return stored, ok, nil
}

func errOrInvalidUTF8(err error) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("result is not valid UTF-8")
}

func isValidUTF8(s string) bool {
	return strings.ToValidUTF8(s, "�") == s
}

// AddInt implements the addInt across int/intArray/intSet/intMap.
func (s *Session) AddInt(pos int32, v int64) (int64, bool) {
	fi, ok := s.fieldFor(pos)
	if !ok {
		return 0, false
	}
	cell := s.ensureCell(pos, fi)

	switch fi.Kind {
	case fieldcore.KindInt:
		first := !cell.intValSet
		cell.intVal, cell.intValSet = v, true
		s.applyCost(cell, costForAdd(fi.Kind, first, len(fi.DBField), 0))
		s.notify(fi, pos, v)
		return v, true

	case fieldcore.KindIntArray:
		if fi.Flags().Has(fieldcore.FlagDiffFromLast) && len(cell.intArray) > 0 && cell.intArray[len(cell.intArray)-1] == v {
			return 0, false
		}
		first := len(cell.intArray) == 0
		cell.intArray = append(cell.intArray, v)
		s.applyCost(cell, costForAdd(fi.Kind, first, len(fi.DBField), 0))
		s.notify(fi, pos, v)
		return v, true

	case fieldcore.KindIntSet, fieldcore.KindIntMap:
		m := cell.intSet
		if fi.Kind == fieldcore.KindIntMap {
			m = cell.intMap
		}
		if m == nil {
			m = make(map[int64]struct{})
		}
		if _, exists := m[v]; exists {
			if fi.Kind == fieldcore.KindIntMap {
				cell.intMap = m
			} else {
				cell.intSet = m
			}
			return 0, false
		}
		first := len(m) == 0
		m[v] = struct{}{}
		if fi.Kind == fieldcore.KindIntMap {
			cell.intMap = m
		} else {
			cell.intSet = m
		}
		s.applyCost(cell, costForAdd(fi.Kind, first, len(fi.DBField), 0))
		s.notify(fi, pos, v)
		return v, true

	default:
		panic(errors.Wrap(fmt.Errorf("session: AddInt on non-int kind %s at pos %d", fi.Kind, pos), 1))
	}
}

// AddFloat adds a value across float/floatArray/floatMap, depending on fi.Kind.
//
// floatMap dedups on first insert, matching strMap/intMap: a duplicate
// value returns (0, false) without a second cost charge. See
// TestFloatMapDedupMatchesOtherMaps in session_test.go.
func (s *Session) AddFloat(pos int32, v float64) (float64, bool) {
	fi, ok := s.fieldFor(pos)
	if !ok {
		return 0, false
	}
	cell := s.ensureCell(pos, fi)

	switch fi.Kind {
	case fieldcore.KindFloat:
		first := !cell.floatValSet
		cell.floatVal, cell.floatValSet = v, true
		s.applyCost(cell, costForAdd(fi.Kind, first, len(fi.DBField), 0))
		s.notify(fi, pos, v)
		return v, true

	case fieldcore.KindFloatArray:
		if fi.Flags().Has(fieldcore.FlagDiffFromLast) && len(cell.floatArray) > 0 && cell.floatArray[len(cell.floatArray)-1] == v {
			return 0, false
		}
		first := len(cell.floatArray) == 0
		cell.floatArray = append(cell.floatArray, v)
		s.applyCost(cell, costForAdd(fi.Kind, first, len(fi.DBField), 0))
		s.notify(fi, pos, v)
		return v, true

	case fieldcore.KindFloatMap:
		if cell.floatMap == nil {
			cell.floatMap = make(map[float64]struct{})
		}
		if _, exists := cell.floatMap[v]; exists {
			return 0, false
		}
		first := len(cell.floatMap) == 0
		cell.floatMap[v] = struct{}{}
		s.applyCost(cell, costForAdd(fi.Kind, first, len(fi.DBField), 0))
		s.notify(fi, pos, v)
		return v, true

	default:
		panic(errors.Wrap(fmt.Errorf("session: AddFloat on non-float kind %s at pos %d", fi.Kind, pos), 1))
	}
}

// AddIpStr parses s as an IPv4 dotted or IPv6 textual address and stores
// it. IPv4 addresses are mapped into the v4-mapped IPv6 space
// ::ffff:0:0/96, matching netip.Addr's own As4-in-6 representation.
func (s *Session) AddIpStr(pos int32, str string) (netip.Addr, bool, error) {
	fi, ok := s.fieldFor(pos)
	if !ok {
		return netip.Addr{}, false, nil
	}
	addr, err := netip.ParseAddr(str)
	if err != nil {
		return netip.Addr{}, false, fmt.Errorf("session: AddIpStr: %w", err)
	}
	if addr.Is4() {
		addr = netip.AddrFrom16(addr.As16())
	}
	stored, ok := s.storeIP(pos, fi, addr, len(str))
	return stored, ok, nil
}

// AddIp4 stores a 32-bit big-endian IPv4 address using the fixed v4 cost
// row, per the "ip v4/v6 add" distinction from addIpStr.
func (s *Session) AddIp4(pos int32, u32 uint32) (netip.Addr, bool) {
	fi, ok := s.fieldFor(pos)
	if !ok {
		return netip.Addr{}, false
	}
	b := [4]byte{byte(u32 >> 24), byte(u32 >> 16), byte(u32 >> 8), byte(u32)}
	addr := netip.AddrFrom16(netip.AddrFrom4(b).As16())
	return s.storeIPFixedCost(pos, fi, addr, costForIPv4Add)
}

// AddIp6 stores a 16-byte IPv6 address using the fixed v6 cost row.
func (s *Session) AddIp6(pos int32, bytes16 [16]byte) (netip.Addr, bool) {
	fi, ok := s.fieldFor(pos)
	if !ok {
		return netip.Addr{}, false
	}
	addr := netip.AddrFrom16(bytes16)
	return s.storeIPFixedCost(pos, fi, addr, costForIPv6Add)
}

func (s *Session) storeIP(pos int32, fi *fieldcore.FieldInfo, addr netip.Addr, strLen int) (netip.Addr, bool) {
	cell := s.ensureCell(pos, fi)
	switch fi.Kind {
	case fieldcore.KindIP:
		first := !cell.ipValSet
		cell.ipVal, cell.ipValSet = addr, true
		s.applyCost(cell, costForAdd(fi.Kind, first, len(fi.DBField), strLen))
		s.notify(fi, pos, addr)
		return addr, true
	case fieldcore.KindIPMap:
		if cell.ipMap == nil {
			cell.ipMap = make(map[netip.Addr]struct{})
		}
		if _, exists := cell.ipMap[addr]; exists {
			return netip.Addr{}, false
		}
		first := len(cell.ipMap) == 0
		cell.ipMap[addr] = struct{}{}
		s.applyCost(cell, costForAdd(fi.Kind, first, len(fi.DBField), strLen))
		s.notify(fi, pos, addr)
		return addr, true
	default:
		panic(errors.Wrap(fmt.Errorf("session: AddIpStr on non-ip kind %s at pos %d", fi.Kind, pos), 1))
	}
}

func (s *Session) storeIPFixedCost(pos int32, fi *fieldcore.FieldInfo, addr netip.Addr, costFn func(first bool, dbFieldLen int) int) (netip.Addr, bool) {
	cell := s.ensureCell(pos, fi)
	switch fi.Kind {
	case fieldcore.KindIP:
		first := !cell.ipValSet
		cell.ipVal, cell.ipValSet = addr, true
		s.applyCost(cell, costFn(first, len(fi.DBField)))
		s.notify(fi, pos, addr)
		return addr, true
	case fieldcore.KindIPMap:
		if cell.ipMap == nil {
			cell.ipMap = make(map[netip.Addr]struct{})
		}
		if _, exists := cell.ipMap[addr]; exists {
			return netip.Addr{}, false
		}
		first := len(cell.ipMap) == 0
		cell.ipMap[addr] = struct{}{}
		s.applyCost(cell, costFn(first, len(fi.DBField)))
		s.notify(fi, pos, addr)
		return addr, true
	default:
		panic(errors.Wrap(fmt.Errorf("session: AddIp4/AddIp6 on non-ip kind %s at pos %d", fi.Kind, pos), 1))
	}
}

// AddMacOui formats mac6 in canonical colon notation into posMac and, on
// success, looks up the OUI via the registry's OUILookupFunc (if wired) and
// stores the result into posOui. The OUI lookup is best-effort: a nil
// OUILookupFunc or empty result simply leaves posOui untouched.
func (s *Session) AddMacOui(posMac, posOui int32, mac6 [6]byte) (string, bool) {
	hw := net.HardwareAddr(mac6[:])
	macStr, ok := s.AddString(posMac, hw.String(), true)
	if !ok {
		return "", false
	}
	if lookup := s.registryOUILookup(); lookup != nil {
		if oui := lookup(mac6); oui != "" {
			s.AddString(posOui, oui, true)
		}
	}
	return macStr, true
}

func (s *Session) registryOUILookup() func(mac [6]byte) string {
	return s.registry.OUILookupFunc
}

// AddObject dedups obj by the field's registered codec (Hash/Equal) and
// stores it. Panics if the field has no Codec (a registration bug) or is
// not KindObject.
func (s *Session) AddObject(pos int32, obj any) (any, bool) {
	fi, ok := s.fieldFor(pos)
	if !ok {
		return nil, false
	}
	if fi.Kind != fieldcore.KindObject {
		panic(errors.Wrap(fmt.Errorf("session: AddObject on non-object kind %s at pos %d", fi.Kind, pos), 1))
	}
	if fi.Codec == nil {
		panic(errors.Wrap(fmt.Errorf("session: AddObject at pos %d has no registered ObjectCodec", pos), 1))
	}

	cell := s.ensureCell(pos, fi)
	hash := fi.Codec.Hash(obj)
	for _, entry := range cell.objEntries {
		if entry.hash == hash && fi.Codec.Equal(entry.value, obj) {
			return nil, false
		}
	}

	first := len(cell.objEntries) == 0
	cell.objEntries = append(cell.objEntries, objEntry{hash: hash, value: obj})
	saved, err := fi.Codec.Save(obj)
	valueLen := 0
	if err == nil {
		valueLen = len(saved)
	}
	s.applyCost(cell, costForObjectAdd(first, len(fi.DBField), valueLen))
	s.notify(fi, pos, obj)
	return obj, true
}

// Count returns the cardinality of the cell at pos, or 0 if it has never
// been written to, per the "1 for scalars" rule.
func (s *Session) Count(pos int32) int {
	if pos < 0 || int(pos) >= len(s.cells) {
		return 0
	}
	cell := s.cells[pos]
	if cell == nil {
		return 0
	}
	return cell.count()
}

// FreeLater enqueues a value for deferred release: a queue for late-bound
// pointers (e.g. a computed community id). Drained by DrainDeferred at a
// thread quiescence boundary.
func (s *Session) FreeLater(value any, free func(any)) {
	s.deferredMu.Lock()
	s.deferred = append(s.deferred, deferredFree{value: value, free: free})
	s.deferredMu.Unlock()
}

// DrainDeferred runs and clears every pending deferred-free entry.
func (s *Session) DrainDeferred() {
	s.deferredMu.Lock()
	pending := s.deferred
	s.deferred = nil
	s.deferredMu.Unlock()

	for _, d := range pending {
		d.free(d.value)
	}
}

// Free tears down every cell in the session, per the type-dispatched
// teardown contract (for object cells, this also calls the registered
// codec's Release), then drains any deferred frees.
func (s *Session) Free() {
	for pos, cell := range s.cells {
		if cell == nil {
			continue
		}
		if cell.Kind == fieldcore.KindObject {
			if fi := s.registry.FieldAt(int32(pos)); fi != nil && fi.Codec != nil {
				for _, entry := range cell.objEntries {
					fi.Codec.Release(entry.value)
				}
			}
		}
		s.cells[pos] = nil
	}
	s.DrainDeferred()
}
