// Package session implements the per-connection state machine: greet,
// optional challenge-response authentication, then a sustained
// request/response loop. Collapsed into one Worker type rather than split
// across a connection object and a separate handshake object, since
// PJLink's handshake is a single short exchange and the request/response
// loop that follows has no separate framing layer to split out.
package session

import (
	"bufio"
	"bytes"
	"io"
	"log/slog"
	"net"

	perrors "github.com/mateusmeyer/pjlink-server/internal/errors"
	"github.com/mateusmeyer/pjlink-server/internal/logger"
	"github.com/mateusmeyer/pjlink-server/internal/pjlink/auth"
	"github.com/mateusmeyer/pjlink-server/internal/pjlink/command"
	"github.com/mateusmeyer/pjlink-server/internal/pjlink/handler"
	"github.com/mateusmeyer/pjlink-server/internal/pjlink/payload"
	"github.com/mateusmeyer/pjlink-server/internal/pjlink/response"
	"github.com/mateusmeyer/pjlink-server/internal/pjlink/wire"
)

// state is the connection state machine's current phase.
type state int

const (
	stateGreet state = iota
	stateAwaitAuth
	stateReady
	stateClosed
)

// Worker owns one accepted TCP connection end to end: all session state is
// owned by one connection worker, never shared.
type Worker struct {
	conn   net.Conn
	h      handler.Handler
	connID uint64
	log    *slog.Logger

	r        *bufio.Reader
	state    state
	salt     string
	password string
}

// NewWorker constructs a Worker for an accepted connection. h should already
// be wrapped with handler.Guard by the caller (the server supervisor owns
// exactly one guarded instance shared by every worker).
func NewWorker(conn net.Conn, h handler.Handler, connID uint64) *Worker {
	base := logger.WithConn(logger.Logger(), connID, conn.RemoteAddr().String())
	return &Worker{
		conn:   conn,
		h:      h,
		connID: connID,
		log:    base,
		r:      bufio.NewReader(conn),
		state:  stateGreet,
	}
}

// Run drives the worker through Greet -> (AwaitAuth) -> Ready -> Closed. It
// blocks until the connection closes for any reason and never returns an
// error: every failure is logged and simply ends the session, matching
// the close-with-no-reply policy for socket/framing errors.
func (w *Worker) Run() {
	defer w.conn.Close()

	if !w.greet() {
		return
	}
	if w.state == stateAwaitAuth {
		if !w.awaitAuth() {
			return
		}
	}
	w.readyLoop()
}

// greet implements the Greet state: consult handler.Password, write the
// nullified or challenge prologue, and move to Ready or AwaitAuth.
func (w *Worker) greet() bool {
	password, required := w.h.Password(w.connID)
	if !required {
		if err := w.writeRaw([]byte(wire.AuthPrologueNullified + "\r")); err != nil {
			w.log.Debug("greet write failed", "error", err)
			return false
		}
		w.state = stateReady
		return true
	}

	salt, err := auth.NewSalt()
	if err != nil {
		w.log.Error("salt generation failed", "error", err)
		return false
	}
	w.salt = salt
	w.password = password
	if err := w.writeRaw([]byte(wire.AuthPrologueChallenge + salt + "\r")); err != nil {
		w.log.Debug("greet write failed", "error", err)
		return false
	}
	w.state = stateAwaitAuth
	return true
}

func (w *Worker) awaitAuth() bool {
	line, err := w.readRawUpTo(wire.Terminator)
	if err != nil {
		w.log.Debug("await-auth read failed", "error", err)
		return false
	}
	if len(line) < wire.OfferedHashLength {
		w.writeAuthError()
		return false
	}
	offered := line[:wire.OfferedHashLength]
	if !auth.VerifyOffered(offered, w.salt, w.password) {
		w.writeAuthError()
		return false
	}

	w.state = stateReady
	rest := line[wire.OfferedHashLength:]
	if len(rest) == 0 {
		return true
	}
	// The remainder of the same line is the first request, processed
	// immediately as if already in Ready.
	return w.handleLine(rest)
}

func (w *Worker) writeAuthError() {
	if err := w.writeRaw([]byte(wire.AuthPrologueError + "\r")); err != nil {
		w.log.Debug("auth-error write failed", "error", err)
	}
}

func (w *Worker) readyLoop() {
	for {
		line, err := w.readRawUpTo(wire.Terminator)
		if err != nil {
			if err != io.EOF {
				w.log.Debug("ready read failed", "error", err)
			}
			return
		}
		if !w.handleLine(line) {
			return
		}
	}
}

// handleLine runs one full request/response cycle in the Ready state:
// parse, classify, call the handler, render, write. Returns false if the
// connection should close.
func (w *Worker) handleLine(line []byte) bool {
	raw, err := payload.Parse(line)
	if err != nil {
		w.log.Debug("framing error", "error", err)
		return false
	}

	cmd := command.Classify(raw)
	cmdLog := logger.WithCommand(w.log, raw.Body(), raw.Class())

	resp := w.h.HandleCommand(cmd, raw, w.connID)
	wireBytes := response.Render(raw.CommandBodyWithClass, resp)
	if err := w.writeRaw(wireBytes); err != nil {
		cmdLog.Debug("response write failed", "error", err)
		return false
	}
	return true
}

// readRawUpTo reads up to and including terminator, returning the bytes
// before it (terminator stripped). This is logically "one byte at a time
// until terminator"; bufio.Reader.ReadBytes achieves the same
// boundary behavior without a byte-at-a-time syscall per read.
func (w *Worker) readRawUpTo(terminator byte) ([]byte, error) {
	line, err := w.r.ReadBytes(terminator)
	if err != nil {
		if err == io.EOF && len(line) == 0 {
			return nil, io.EOF
		}
		return nil, perrors.NewFramingError("session.read", err)
	}
	return bytes.TrimSuffix(line, []byte{terminator}), nil
}

func (w *Worker) writeRaw(b []byte) error {
	_, err := w.conn.Write(b)
	return err
}
