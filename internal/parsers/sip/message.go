package sip

import (
	"strconv"
	"strings"

	"fieldcore/internal/session"
)

// requestMethods is the RFC 3261 method set (first-char dispatch in the
// original; a plain set lookup serves the same purpose idiomatically here).
var requestMethods = map[string]struct{}{
	"INVITE": {}, "ACK": {}, "BYE": {}, "CANCEL": {}, "OPTIONS": {},
	"REGISTER": {}, "PRACK": {}, "SUBSCRIBE": {}, "NOTIFY": {}, "PUBLISH": {},
	"INFO": {}, "REFER": {}, "MESSAGE": {}, "UPDATE": {},
}

// compactHeaderNames maps RFC 3261's single-letter compact header forms to
// their canonical names.
var compactHeaderNames = map[string]string{
	"i": "call-id",
	"f": "from",
	"t": "to",
	"v": "via",
	"m": "contact",
	"l": "content-length",
}

// parseMessage parses one complete SIP message (first line + headers) out
// of data and stores recognized fields into s, per the shared
// message-parsing rules.
func parseMessage(s *session.Session, data []byte) {
	text := string(data)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	if len(lines) == 0 {
		return
	}

	parseFirstLine(s, lines[0])

	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		parseHeaderLine(s, line)
	}
}

func parseFirstLine(s *session.Session, line string) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return
	}

	if parts[0] == "SIP/2.0" {
		code, err := strconv.Atoi(parts[1])
		if err == nil && code >= 100 && code <= 699 {
			s.AddInt(f.statusCode, int64(code))
		}
		return
	}

	method := strings.ToUpper(parts[0])
	if _, ok := requestMethods[method]; ok {
		s.AddString(f.method, method, true)
	}
}

func parseHeaderLine(s *session.Session, line string) {
	name, value, ok := strings.Cut(line, ":")
	if !ok {
		return
	}
	name = strings.ToLower(strings.TrimSpace(name))
	value = strings.TrimSpace(value)

	if canonical, ok := compactHeaderNames[name]; ok {
		name = canonical
	}

	switch name {
	case "call-id":
		s.AddString(f.callID, value, true)
	case "from":
		s.AddString(f.from, value, true)
		extractUser(s, value)
	case "to":
		s.AddString(f.to, value, true)
		extractUser(s, value)
	case "user-agent":
		s.AddString(f.userAgent, value, true)
	case "via":
		s.AddString(f.via, value, true)
	case "contact":
		s.AddString(f.contact, value, true)
		extractUser(s, value)
	case "authorization":
		extractAuthUser(s, value)
	case "content-length":
		// recognized but not stored as its own field; TCP framing uses it
		// directly (see tcp.go).
	}
}

// extractUser pulls the user part out of a "sip[s]:user@host" URI embedded
// anywhere in value (From/To/Contact headers commonly wrap it in
// "Display Name <sip:user@host>").
func extractUser(s *session.Session, value string) {
	idx := strings.Index(value, "sip:")
	if idx < 0 {
		idx = strings.Index(value, "sips:")
		if idx < 0 {
			return
		}
		idx += len("sips:")
	} else {
		idx += len("sip:")
	}

	rest := value[idx:]
	at := strings.IndexByte(rest, '@')
	if at < 0 {
		return
	}
	user := rest[:at]
	if user == "" {
		return
	}
	s.AddString(f.user, user, true)
}

// extractAuthUser pulls the `username="..."` token out of an Authorization
// header value.
func extractAuthUser(s *session.Session, value string) {
	const key = "username=\""
	idx := strings.Index(value, key)
	if idx < 0 {
		return
	}
	rest := value[idx+len(key):]
	end := strings.IndexByte(rest, '"')
	if end < 0 {
		return
	}
	user := rest[:end]
	if user == "" {
		return
	}
	s.AddString(f.user, user, true)
}
