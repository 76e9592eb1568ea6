// Package server is the supervisor that binds sockets, spawns the TCP
// acceptor and the optional UDP discovery worker, and owns the one shared
// (guarded) Handler instance. Config/applyDefaults and the
// ListenTCPOnly/ListenTCPAndUDP/Stop/Addr surface follow the usual shape for this kind of listener supervisor; an
// errgroup.Group runs the TCP and UDP loops as siblings under one
// cancellation, since this supervisor coordinates two independent listener
// kinds rather than one.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mateusmeyer/pjlink-server/internal/logger"
	"github.com/mateusmeyer/pjlink-server/internal/pjlink/connid"
	"github.com/mateusmeyer/pjlink-server/internal/pjlink/discovery"
	"github.com/mateusmeyer/pjlink-server/internal/pjlink/handler"
	"github.com/mateusmeyer/pjlink-server/internal/pjlink/session"
)

// Config holds the bind addresses this supervisor listens on.
type Config struct {
	TCPAddr string
	UDPAddr string // discovery bind address for ListenTCPAndUDP; empty uses TCPAddr
}

// applyDefaults fills zero values with sensible defaults.
func (c *Config) applyDefaults() {
	if c.TCPAddr == "" {
		c.TCPAddr = ":4352"
	}
}

// Server binds sockets and dispatches accepted connections to session
// workers against one shared, guarded Handler.
type Server struct {
	cfg Config
	h   handler.Handler
	log *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	disc     *discovery.Worker
	group    *errgroup.Group
	cancel   context.CancelFunc
}

// New constructs an unstarted Server. h is wrapped with handler.Guard so
// every worker shares exactly one exclusive lock over it.
func New(cfg Config, h handler.Handler) *Server {
	cfg.applyDefaults()
	return &Server{
		cfg: cfg,
		h:   handler.Guard(h),
		log: logger.Logger().With("component", "pjlink_server"),
	}
}

// ListenTCPOnly binds the TCP listener only and spawns its acceptor.
// Bind failure is fatal and returned to the caller.
func (s *Server) ListenTCPOnly(ctx context.Context) error {
	return s.start(ctx, false)
}

// ListenTCPAndUDP binds the TCP listener plus the UDP discovery socket and
// spawns both workers.
func (s *Server) ListenTCPAndUDP(ctx context.Context) error {
	return s.start(ctx, true)
}

func (s *Server) start(ctx context.Context, withUDP bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return errors.New("server already started")
	}

	ln, err := net.Listen("tcp", s.cfg.TCPAddr)
	if err != nil {
		return fmt.Errorf("listen tcp %s: %w", s.cfg.TCPAddr, err)
	}
	s.listener = ln

	var disc *discovery.Worker
	if withUDP {
		udpAddr := s.cfg.UDPAddr
		if udpAddr == "" {
			udpAddr = s.cfg.TCPAddr
		}
		disc, err = discovery.NewWorker(udpAddr)
		if err != nil {
			_ = ln.Close()
			s.listener = nil
			return fmt.Errorf("bind udp discovery: %w", err)
		}
		s.disc = disc
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	group, _ := errgroup.WithContext(runCtx)
	s.group = group

	group.Go(func() error {
		s.acceptLoop(runCtx)
		return nil
	})
	if disc != nil {
		group.Go(func() error {
			disc.Run()
			return nil
		})
	}

	s.log.Info("pjlink server listening", "tcp_addr", ln.Addr().String(), "udp_enabled", withUDP)
	return nil
}

// acceptLoop runs until the listener closes. Each accepted connection gets
// its own session.Worker goroutine and a freshly allocated connection id.
func (s *Server) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn("accept error", "error", err)
			continue
		}

		id := connid.Next()
		w := session.NewWorker(conn, s.h, id)
		go w.Run()
	}
}

// Stop closes the listening sockets; in-flight session workers finish their
// current request and exit when their connection closes. Idempotent and
// safe to call on an unstarted server.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	err := s.listener.Close()
	s.listener = nil
	if s.disc != nil {
		_ = s.disc.Close()
		s.disc = nil
	}
	if s.group != nil {
		_ = s.group.Wait()
		s.group = nil
	}
	s.log.Info("pjlink server stopped")
	return err
}

// Addr returns the bound TCP listener address, or nil if not started.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// UDPAddr returns the bound discovery socket's address, or nil if the
// discovery worker isn't running. TCP and UDP occupy independent port
// namespaces even when configured with the same port string, so this is
// the only reliable way to learn the discovery socket's actual port
// (relevant whenever Config.UDPAddr asks for an ephemeral port).
func (s *Server) UDPAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disc == nil {
		return nil
	}
	return &net.UDPAddr{Port: s.disc.LocalPort()}
}
