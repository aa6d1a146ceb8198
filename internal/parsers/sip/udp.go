package sip

import (
	"fieldcore/internal/classify"
	"fieldcore/internal/session"
)

// parseUDP treats each datagram as one complete SIP message. A UDP SIP
// session never needs more than this single parse call, but stays
// registered (returning Continue) in case the transport carries more than
// one message on the same session.
func parseUDP(s *session.Session, userData any, data []byte, direction int) classify.Action {
	parseMessage(s, data)
	return classify.Continue
}
