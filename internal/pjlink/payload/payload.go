// Package payload parses a line buffer (terminator already stripped) into
// a RawPayload, and serializes a RawPayload back to wire bytes. Single-line,
// fixed-offset framing: no multi-chunk reassembly needed.
package payload

import (
	"fmt"

	perrors "github.com/mateusmeyer/pjlink-server/internal/errors"
	"github.com/mateusmeyer/pjlink-server/internal/pjlink/wire"
)

// minLineLength is header(1) + command body with class(5) + separator(1).
const minLineLength = 7

// RawPayload is the addressable record: the 5-byte command body (class digit
// + 4-letter opcode), the separator byte, and the trailing transmission
// parameter. The header and terminator are wire framing only and are never
// stored here.
type RawPayload struct {
	CommandBodyWithClass [5]byte
	Separator            byte
	TransmissionParameter []byte
}

// Class returns the class digit (byte 0 of CommandBodyWithClass).
func (p RawPayload) Class() byte { return p.CommandBodyWithClass[0] }

// Opcode returns the 4-letter opcode (bytes 1..4 of CommandBodyWithClass).
func (p RawPayload) Opcode() string { return string(p.CommandBodyWithClass[1:]) }

// Body returns the full 5-byte command body (class + opcode) as a string,
// suitable for logging or for pairing a response with its request.
func (p RawPayload) Body() string { return string(p.CommandBodyWithClass[:]) }

// Parse decodes a line buffer (with the trailing terminator already
// stripped by the caller) into a RawPayload. A short line or a missing
// header byte is a FramingError — the connection is closed with no wire
// reply.
func Parse(line []byte) (RawPayload, error) {
	if len(line) < minLineLength {
		return RawPayload{}, perrors.NewFramingError("payload.parse",
			fmt.Errorf("line too short: %d bytes (need >= %d)", len(line), minLineLength))
	}
	if line[0] != wire.Header {
		return RawPayload{}, perrors.NewFramingError("payload.parse",
			fmt.Errorf("missing header byte 0x%02x, got 0x%02x", wire.Header, line[0]))
	}

	var p RawPayload
	copy(p.CommandBodyWithClass[:], line[1:6])
	p.Separator = line[6]
	if len(line) > minLineLength {
		param := make([]byte, len(line)-minLineLength)
		copy(param, line[minLineLength:])
		p.TransmissionParameter = param
	}
	return p, nil
}

// Serialize renders a RawPayload to wire bytes: header, command body,
// separator, parameter, terminator. Per the documented compatibility quirk,
// if the last parameter byte is 0x00 it is overwritten in place with the
// terminator rather than the terminator being appended after it.
func Serialize(p RawPayload) []byte {
	n := len(p.TransmissionParameter)
	out := make([]byte, 0, minLineLength+n+1)
	out = append(out, wire.Header)
	out = append(out, p.CommandBodyWithClass[:]...)
	out = append(out, p.Separator)
	out = append(out, p.TransmissionParameter...)

	if n > 0 && out[len(out)-1] == 0x00 {
		out[len(out)-1] = wire.Terminator
		return out
	}
	return append(out, wire.Terminator)
}
