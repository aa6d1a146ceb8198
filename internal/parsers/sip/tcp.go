package sip

import (
	"bytes"
	"strconv"
	"strings"

	"fieldcore/internal/classify"
	"fieldcore/internal/session"
)

// maxIterations bounds the accumulate-and-parse loop over the parser's
// whole lifetime (the buffer's version counter is never reset), matching
// the "give up after ~200 iterations" guard against a pathological
// stream that never completes a header block.
const maxIterations = 200

// parseTCP accumulates bytes until a double line-ending terminates the
// header block, processes it as one SIP message, optionally skips a
// Content-Length body, and repeats for any further messages already
// buffered.
func parseTCP(s *session.Session, userData any, data []byte, direction int) classify.Action {
	buf := userData.(*classify.Buffer)
	dir := classify.Dir(direction)
	buf.Append(dir, data)

	for {
		if buf.IncVersion() > maxIterations {
			return classify.Unregister
		}

		raw := buf.Bytes(dir)
		end, sepLen, ok := findHeaderEnd(raw)
		if !ok {
			return classify.Continue
		}

		headerBlock := raw[:end]
		contentLength := extractContentLength(headerBlock)
		total := end + sepLen + contentLength
		if total > len(raw) {
			// Body not fully buffered yet; wait for more data before
			// consuming this message.
			return classify.Continue
		}

		parseMessage(s, headerBlock)
		buf.Del(dir, total)

		if len(buf.Bytes(dir)) == 0 {
			return classify.Continue
		}
	}
}

// findHeaderEnd locates the first double line-ending in raw (CRLF or LF,
// per the "line endings may be CRLF or LF"), returning the offset
// of the header block's end and the separator's length.
func findHeaderEnd(raw []byte) (end int, sepLen int, ok bool) {
	crlf := bytes.Index(raw, []byte("\r\n\r\n"))
	lf := bytes.Index(raw, []byte("\n\n"))

	switch {
	case crlf < 0 && lf < 0:
		return 0, 0, false
	case crlf < 0:
		return lf, 2, true
	case lf < 0:
		return crlf, 4, true
	case crlf <= lf:
		return crlf, 4, true
	default:
		return lf, 2, true
	}
}

// extractContentLength scans a header block for a Content-Length header
// (canonical or the "l" compact form) and returns its value, or 0 if
// absent or unparseable.
func extractContentLength(headerBlock []byte) int {
	text := strings.ReplaceAll(string(headerBlock), "\r\n", "\n")
	for _, line := range strings.Split(text, "\n") {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "content-length" && name != "l" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return 0
		}
		return n
	}
	return 0
}
