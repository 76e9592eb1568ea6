// Package discovery is the UDP worker that answers PJLink's broadcast
// search datagram. Uses bufpool for its fixed-size receive buffer, and logs
// and continues on a bad datagram rather than exiting the worker.
package discovery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"syscall"

	"github.com/mateusmeyer/pjlink-server/internal/bufpool"
	"github.com/mateusmeyer/pjlink-server/internal/logger"
	"github.com/mateusmeyer/pjlink-server/internal/pjlink/wire"
)

// searchMessage is the exact logical message a client sends to be answered:
// header byte, command body, terminator.
var searchMessage = append([]byte{wire.Header}, append([]byte(wire.SearchBody), wire.Terminator)...)

// Worker answers PJLink broadcast discovery datagrams on one bound UDP
// socket: a single goroutine listening for %2SRCH datagrams.
type Worker struct {
	conn *net.UDPConn
	log  *slog.Logger
}

// broadcastListenConfig sets SO_BROADCAST on the underlying fd before bind,
// so this socket can receive datagrams sent to the subnet broadcast address
// rather than only ones addressed to it directly.
var broadcastListenConfig = net.ListenConfig{
	Control: func(network, address string, c syscall.RawConn) error {
		var sockErr error
		if err := c.Control(func(fd uintptr) {
			sockErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1)
		}); err != nil {
			return err
		}
		return sockErr
	},
}

// NewWorker binds a UDP socket on addr with broadcast permission enabled and
// returns a Worker ready for Run. Bind failure is fatal and returned to the
// caller.
func NewWorker(addr string) (*Worker, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve udp addr %s: %w", addr, err)
	}
	packetConn, err := broadcastListenConfig.ListenPacket(context.Background(), "udp", udpAddr.String())
	if err != nil {
		return nil, fmt.Errorf("listen udp %s: %w", addr, err)
	}
	conn, ok := packetConn.(*net.UDPConn)
	if !ok {
		packetConn.Close()
		return nil, fmt.Errorf("listen udp %s: unexpected packet conn type %T", addr, packetConn)
	}
	return &Worker{
		conn: conn,
		log:  logger.Logger().With("component", "pjlink_discovery"),
	}, nil
}

// LocalPort returns the UDP port this worker is bound to — the port
// discovery replies are always rewritten to, regardless of the port the
// request arrived on.
func (w *Worker) LocalPort() int {
	if addr, ok := w.conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.Port
	}
	return 0
}

// Close releases the bound socket.
func (w *Worker) Close() error { return w.conn.Close() }

// Run reads datagrams until the socket is closed. Unknown or truncated
// datagrams are logged and ignored; the worker never exits on a bad
// datagram: errors are logged and iteration continues.
func (w *Worker) Run() {
	buf := bufpool.Get(wire.MaxUDPDiscoveryMessage)
	defer bufpool.Put(buf)

	for {
		n, remote, err := w.conn.ReadFromUDP(buf)
		if err != nil {
			if isClosedErr(err) {
				return
			}
			w.log.Warn("udp read error", "error", err)
			continue
		}
		w.handleDatagram(buf[:n], remote)
	}
}

func (w *Worker) handleDatagram(data []byte, remote *net.UDPAddr) {
	msg := logicalMessage(data)
	if msg == nil || !bytes.Equal(msg, searchMessage) {
		w.log.Debug("ignoring non-search datagram", "remote", remote.String(), "len", len(data))
		return
	}

	mac := primaryMACOrZero()
	reply := buildAcknowledgement(mac)
	if err := w.reply(reply, remote); err != nil {
		w.log.Warn("udp reply failed", "error", err, "remote", remote.String())
	}
}

// logicalMessage scans for the first terminator byte within the received
// prefix; everything up to and including it is the logical message. Returns
// nil if no terminator is present (a truncated datagram).
func logicalMessage(data []byte) []byte {
	idx := bytes.IndexByte(data, wire.Terminator)
	if idx < 0 {
		return nil
	}
	return data[:idx+1]
}

// buildAcknowledgement renders "%2ACKN=<mac>\r" directly: discovery
// datagrams are fixed-shape enough that going through the general
// payload/response pipeline would add indirection without benefit.
func buildAcknowledgement(mac string) []byte {
	out := make([]byte, 0, wire.MaxUDPDiscoveryMessage)
	out = append(out, wire.Header)
	out = append(out, wire.AcknowledgeBody...)
	out = append(out, wire.ResponseSeparator)
	out = append(out, mac...)
	out = append(out, wire.Terminator)
	return out
}

// reply sends resp back to remote's IP, but on this worker's own bound port
// rather than the origin's port as received.
func (w *Worker) reply(resp []byte, remote *net.UDPAddr) error {
	dst := &net.UDPAddr{IP: remote.IP, Port: w.LocalPort()}
	_, err := w.conn.WriteToUDP(resp, dst)
	return err
}

func isClosedErr(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
