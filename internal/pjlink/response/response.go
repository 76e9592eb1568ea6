// Package response implements the PJLink response algebra a Handler
// returns, and its rendering back onto a RawPayload paired with the
// originating request's command body. Same total-function, no-panic style
// as payload.Serialize.
package response

import (
	"github.com/mateusmeyer/pjlink-server/internal/pjlink/payload"
	"github.com/mateusmeyer/pjlink-server/internal/pjlink/wire"
)

// Kind discriminates the Response union.
type Kind int

const (
	Ok Kind = iota
	Undefined
	OutOfParameter
	UnavailableTime
	ProjectorOrDisplayFailure
	Single
	Multiple
	Empty
)

// Response is the value a Handler returns for a classified command.
type Response struct {
	Kind  Kind
	Byte  byte   // meaningful only for Kind == Single
	Bytes []byte // meaningful only for Kind == Multiple
}

// NewOk, NewUndefined, ... construct the named fixed-token variants.
func NewOk() Response                        { return Response{Kind: Ok} }
func NewUndefined() Response                 { return Response{Kind: Undefined} }
func NewOutOfParameter() Response            { return Response{Kind: OutOfParameter} }
func NewUnavailableTime() Response           { return Response{Kind: UnavailableTime} }
func NewProjectorOrDisplayFailure() Response { return Response{Kind: ProjectorOrDisplayFailure} }
func NewEmpty() Response                     { return Response{Kind: Empty} }

// NewSingle wraps a one-byte parameter response, e.g. a power-state query
// answer. If b happens to equal the single-byte prefix of no error token
// (all error tokens are 4 bytes) this is never ambiguous with the named
// error variants.
func NewSingle(b byte) Response { return Response{Kind: Single, Byte: b} }

// NewMultiple wraps a multi-byte parameter response. If bs happens to equal
// the literal bytes of an error token, rendering collapses it to that named
// variant — callers may build responses either way.
func NewMultiple(bs []byte) Response { return Response{Kind: Multiple, Bytes: bs} }

// tokenBytes returns the literal wire bytes for each fixed-token Kind.
func tokenBytes(k Kind) []byte {
	switch k {
	case Ok:
		return []byte(wire.TokenOK)
	case Undefined:
		return []byte(wire.TokenUndefinedCommand)
	case OutOfParameter:
		return []byte(wire.TokenOutOfParameter)
	case UnavailableTime:
		return []byte(wire.TokenUnavailableTime)
	case ProjectorOrDisplayFailure:
		return []byte(wire.TokenProjectorOrDisplayFailure)
	default:
		return nil
	}
}

// errorTokenKind returns the named Kind whose literal bytes equal bs, or
// (0, false) if bs doesn't match any error token. Used to collapse a
// Single/Multiple response built from raw bytes back to its named variant
// (the reverse mapping from token bytes back to a named Kind).
func errorTokenKind(bs []byte) (Kind, bool) {
	for _, k := range []Kind{Undefined, OutOfParameter, UnavailableTime, ProjectorOrDisplayFailure} {
		if string(bs) == string(tokenBytes(k)) {
			return k, true
		}
	}
	return 0, false
}

// parameterBytes renders a Response to its transmission-parameter bytes,
// collapsing Single/Multiple onto a named error variant when their bytes
// match one exactly.
func parameterBytes(r Response) []byte {
	switch r.Kind {
	case Ok, Undefined, OutOfParameter, UnavailableTime, ProjectorOrDisplayFailure:
		return tokenBytes(r.Kind)
	case Single:
		if k, ok := errorTokenKind([]byte{r.Byte}); ok {
			return tokenBytes(k)
		}
		return []byte{r.Byte}
	case Multiple:
		if k, ok := errorTokenKind(r.Bytes); ok {
			return tokenBytes(k)
		}
		return r.Bytes
	case Empty:
		return nil
	default:
		return nil
	}
}

// Render serializes r as the response to requestBody (the originating
// request's CommandBodyWithClass): the same command body as the request,
// with separator '='.
func Render(requestBody [5]byte, r Response) []byte {
	p := payload.RawPayload{
		CommandBodyWithClass:  requestBody,
		Separator:             wire.ResponseSeparator,
		TransmissionParameter: parameterBytes(r),
	}
	return payload.Serialize(p)
}
