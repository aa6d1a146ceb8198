// Package sip is a worked example of the classifier/parser contract, not a
// complete SIP stack. It recognizes the protocol's first-line/header-line
// shape well enough to populate a representative field set and is not
// meant to be RFC 3261 complete.
package sip

import (
	"fieldcore/internal/classify"
	"fieldcore/internal/fieldcore"
	"fieldcore/internal/fieldreg"
)

// fields holds the positions Register assigns, closed over by the parse
// functions so they never have to re-resolve an expression by name on the
// hot path.
type fields struct {
	method     int32
	statusCode int32
	callID     int32
	from       int32
	to         int32
	userAgent  int32
	via        int32
	contact    int32
	user       int32
}

var f fields

// magicSets are the classifier byte patterns the names for both
// transports: "SIP/2.0" catches responses, the four request lines catch
// the commonly seen request methods.
var magicSets = [][]byte{
	[]byte("SIP/2.0"),
	[]byte("INVITE sip:"),
	[]byte("REGISTER sip:"),
	[]byte("OPTIONS sip:"),
	[]byte("NOTIFY sip:"),
}

// Register installs the sip.* field set and the UDP/TCP classifiers. Must
// run during the single-threaded startup phase, same as fieldreg.Bootstrap.
func Register(r *fieldreg.Registry, d *classify.Dispatcher) {
	setCnt := fieldcore.FlagCnt

	f.method = r.Define("sip", fieldcore.KindStringSet, "sip.method", "SIP Method", "sip.method", "SIP request method", setCnt, fieldcore.Options{})
	f.statusCode = r.Define("sip", fieldcore.KindInt, "sip.statuscode", "SIP Status Code", "sip.statuscode", "SIP response status code", 0, fieldcore.Options{})
	f.callID = r.Define("sip", fieldcore.KindStringSet, "sip.callid", "SIP Call-ID", "sip.callid", "SIP Call-ID header", setCnt, fieldcore.Options{})
	f.from = r.Define("sip", fieldcore.KindStringSet, "sip.from", "SIP From", "sip.from", "SIP From header", setCnt, fieldcore.Options{})
	f.to = r.Define("sip", fieldcore.KindStringSet, "sip.to", "SIP To", "sip.to", "SIP To header", setCnt, fieldcore.Options{})
	f.userAgent = r.Define("sip", fieldcore.KindStringSet, "sip.user-agent", "SIP User-Agent", "sip.user-agent", "SIP User-Agent header", setCnt, fieldcore.Options{})
	f.via = r.Define("sip", fieldcore.KindStringSet, "sip.via", "SIP Via", "sip.via", "SIP Via header", setCnt, fieldcore.Options{})
	f.contact = r.Define("sip", fieldcore.KindStringSet, "sip.contact", "SIP Contact", "sip.contact", "SIP Contact header", setCnt, fieldcore.Options{})
	f.user = r.Define("sip", fieldcore.KindStringSet, "sip.user", "SIP User", "sip.user", "SIP user part (From/To/Contact/Authorization)", setCnt, fieldcore.Options{Category: "user"})

	for _, magic := range magicSets {
		d.RegisterUDP(classify.Classifier{Name: "sip", Offset: 0, Magic: magic, ClassifyFn: classifyUDP})
		d.RegisterTCP(classify.Classifier{Name: "sip", Offset: 0, Magic: magic, ClassifyFn: classifyTCP})
	}
}

func classifyUDP(state *classify.SessionState, data []byte, direction int) bool {
	state.AddProtocol("sip")
	state.RegisterParser(parseUDP, nil, noopFree)
	return true
}

func classifyTCP(state *classify.SessionState, data []byte, direction int) bool {
	state.AddProtocol("sip")
	buf := classify.NewBuffer()
	state.RegisterParser(parseTCP, buf, classify.SessionFree)
	return true
}

func noopFree(any) {}
