// Package handler defines the external collaborator contract: the two
// operations a user-owned state object must implement for the core to
// drive a session — a small set of callback methods a connection worker
// invokes, the same shape as any pluggable per-connection handler.
package handler

import (
	"sync"

	"github.com/mateusmeyer/pjlink-server/internal/pjlink/command"
	"github.com/mateusmeyer/pjlink-server/internal/pjlink/payload"
	"github.com/mateusmeyer/pjlink-server/internal/pjlink/response"
)

// Handler is the user-owned state object shared across all connection
// workers behind one exclusive lock. Implementations must not block
// indefinitely in HandleCommand: doing so serializes every other session.
type Handler interface {
	// Password returns the session's required password, or ("", false) to
	// disable authentication for that connection. Called once per session
	// before any command is processed.
	Password(connID uint64) (password string, required bool)

	// HandleCommand is called once per received request, after
	// authentication succeeds (or is skipped). raw is the original parsed
	// payload, provided alongside cmd so a handler can fall back to the raw
	// bytes for opcodes the classifier left as command.Unknown.
	HandleCommand(cmd command.Command, raw payload.RawPayload, connID uint64) response.Response
}

// guarded wraps a Handler so every call acquires a single exclusive lock for
// its own duration only — held for a single call only, never across a read,
// write, or the entire session. One guarded instance
// is shared by every connection worker the server spawns.
type guarded struct {
	mu    sync.Mutex
	inner Handler
}

// Guard wraps h so concurrent connection workers serialize their calls into
// it without holding the lock across any socket I/O.
func Guard(h Handler) Handler {
	return &guarded{inner: h}
}

func (g *guarded) Password(connID uint64) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inner.Password(connID)
}

func (g *guarded) HandleCommand(cmd command.Command, raw payload.RawPayload, connID uint64) response.Response {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inner.HandleCommand(cmd, raw, connID)
}
