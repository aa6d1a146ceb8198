package sip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTCPAccumulatesUntilHeadersComplete(t *testing.T) {
	_, d, state := newTestSetup(t)

	part1 := []byte("REGISTER sip:example.com SIP/2.0\r\nCall-ID: ")
	part2 := []byte("abc@example.com\r\n\r\n")

	d.ClassifyTCP(state, part1, 0)
	require.True(t, state.HasProtocol("sip"))

	d.Dispatch(state, part1, 0)
	assert.Equal(t, 0, state.Session.Count(f.callID), "header block incomplete, nothing parsed yet")

	d.Dispatch(state, part2, 0)
	assert.Equal(t, 1, state.Session.Count(f.callID))
}

func TestTCPWaitsForFullContentLengthBody(t *testing.T) {
	_, d, state := newTestSetup(t)

	headers := []byte("REGISTER sip:example.com SIP/2.0\r\nCall-ID: x@example.com\r\nContent-Length: 10\r\n\r\n")
	partialBody := []byte("12345")
	restOfBody := []byte("67890")

	d.ClassifyTCP(state, headers, 0)
	d.Dispatch(state, headers, 0)
	assert.Equal(t, 0, state.Session.Count(f.callID), "must wait for the full body before parsing the message")

	d.Dispatch(state, partialBody, 0)
	assert.Equal(t, 0, state.Session.Count(f.callID))

	d.Dispatch(state, restOfBody, 0)
	assert.Equal(t, 1, state.Session.Count(f.callID))
}

func TestTCPUnregistersAfterTooManyIterations(t *testing.T) {
	_, d, state := newTestSetup(t)

	d.ClassifyTCP(state, []byte("REGISTER sip:example.com SIP/2.0\r\n"), 0)

	for i := 0; i < maxIterations+5; i++ {
		d.Dispatch(state, []byte("x"), 0)
	}

	// After exceeding the iteration guard the parser must have unregistered
	// itself; feeding a complete message afterward parses nothing.
	d.Dispatch(state, []byte("Call-ID: late@example.com\r\n\r\n"), 0)
	assert.Equal(t, 0, state.Session.Count(f.callID))
}
