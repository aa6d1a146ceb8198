package session

import (
	"fmt"
	"net/netip"

	"fieldcore/internal/fieldcore"
	"fieldcore/internal/fieldreg"
)

// RegisterInternalFields installs the initial internal computed fields:
// ip.src, port.src, ip.dst, port.dst,
// tcpflags.{syn,syn-ack,ack,psh,rst,fin,urg}, packets.{src,dst},
// databytes.{src,dst}, communityId, ip.dst:port, dst.ip:port. Each getter
// reads a plain field this package exposes on *Session; none of them
// allocate session storage through the AddX path, since internal fields
// cannot be set by rules.
//
// Must run once, after fieldreg.Bootstrap and before any session
// processing, in the single-threaded startup phase.
func RegisterInternalFields(r *fieldreg.Registry) {
	r.ByExpAddInternal("ip.src", fieldcore.KindIP,
		func(sess any) any { return sess.(*Session).IPSrc },
		func(sess any, value any) { sess.(*Session).IPSrc = value.(netip.Addr) })

	r.ByExpAddInternal("port.src", fieldcore.KindInt,
		func(sess any) any { return int64(sess.(*Session).PortSrc) },
		func(sess any, value any) { sess.(*Session).PortSrc = uint16(value.(int64)) })

	r.ByExpAddInternal("ip.dst", fieldcore.KindIP,
		func(sess any) any { return sess.(*Session).IPDst },
		func(sess any, value any) { sess.(*Session).IPDst = value.(netip.Addr) })

	r.ByExpAddInternal("port.dst", fieldcore.KindInt,
		func(sess any) any { return int64(sess.(*Session).PortDst) },
		func(sess any, value any) { sess.(*Session).PortDst = uint16(value.(int64)) })

	for _, flag := range []string{"syn", "syn-ack", "ack", "psh", "rst", "fin", "urg"} {
		flag := flag
		r.ByExpAddInternal("tcpflags."+flag, fieldcore.KindInt,
			func(sess any) any { return boolToInt(sess.(*Session).TCPFlags[flag]) },
			func(sess any, value any) {
				s := sess.(*Session)
				if s.TCPFlags == nil {
					s.TCPFlags = make(map[string]bool)
				}
				s.TCPFlags[flag] = value.(int64) != 0
			})
	}

	r.ByExpAddInternal("packets.src", fieldcore.KindInt,
		func(sess any) any { return int64(sess.(*Session).PacketsSrc) },
		func(sess any, value any) { sess.(*Session).PacketsSrc = uint64(value.(int64)) })
	r.ByExpAddInternal("packets.dst", fieldcore.KindInt,
		func(sess any) any { return int64(sess.(*Session).PacketsDst) },
		func(sess any, value any) { sess.(*Session).PacketsDst = uint64(value.(int64)) })

	r.ByExpAddInternal("databytes.src", fieldcore.KindInt,
		func(sess any) any { return int64(sess.(*Session).DataBytesSrc) },
		func(sess any, value any) { sess.(*Session).DataBytesSrc = uint64(value.(int64)) })
	r.ByExpAddInternal("databytes.dst", fieldcore.KindInt,
		func(sess any) any { return int64(sess.(*Session).DataBytesDst) },
		func(sess any, value any) { sess.(*Session).DataBytesDst = uint64(value.(int64)) })

	// communityId dispatches to the registry's injected community-id
	// helper (an external collaborator this core does not implement) and
	// enqueues the result on the session's deferred-free queue, since the
	// returned string must be freed after the session finishes. Go's
	// garbage collector makes the free callback itself a no-op; the queue
	// entry is kept anyway so the accounting shape (and its test coverage)
	// matches the memory-management contract rather than silently
	// dropping it.
	r.ByExpAddInternal("communityId", fieldcore.KindString,
		func(sess any) any {
			s := sess.(*Session)
			if r.CommunityIDFunc == nil {
				return ""
			}
			id := r.CommunityIDFunc(s)
			s.FreeLater(id, func(any) {})
			return id
		},
		nil)

	// ip.dst:port / dst.ip:port format the full address:port string at its
	// real length via fmt.Sprintf. A fixed-size stack buffer, the kind of
	// bug a C getter could have here, has no analog in Go.
	ipPortGetter := func(sess any) any {
		s := sess.(*Session)
		return fmt.Sprintf("%s:%d", s.IPDst, s.PortDst)
	}
	r.ByExpAddInternal("ip.dst:port", fieldcore.KindString, ipPortGetter, nil)
	r.ByExpAddInternal("dst.ip:port", fieldcore.KindString, ipPortGetter, nil)
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
