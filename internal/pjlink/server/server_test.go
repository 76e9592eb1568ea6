package server

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/mateusmeyer/pjlink-server/internal/pjlink/command"
	"github.com/mateusmeyer/pjlink-server/internal/pjlink/payload"
	"github.com/mateusmeyer/pjlink-server/internal/pjlink/response"
)

type fakeHandler struct{}

func (fakeHandler) Password(connID uint64) (string, bool) { return "", false }

func (fakeHandler) HandleCommand(cmd command.Command, raw payload.RawPayload, connID uint64) response.Response {
	if cmd.Opcode == command.Power1 && cmd.Power == command.PowerQuery {
		return response.NewSingle('0')
	}
	return response.NewUndefined()
}

func TestServerTCPOnlyRoundTrip(t *testing.T) {
	s := New(Config{TCPAddr: "127.0.0.1:0"}, fakeHandler{})
	if err := s.ListenTCPOnly(context.Background()); err != nil {
		t.Fatalf("ListenTCPOnly: %v", err)
	}
	defer s.Stop()

	conn, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	greet, err := r.ReadString(0x0d)
	if err != nil {
		t.Fatalf("read greet: %v", err)
	}
	if greet != "PJLINK 0\r" {
		t.Fatalf("greet = %q, want %q", greet, "PJLINK 0\r")
	}

	conn.Write([]byte("%1POWR ?\r"))
	resp, err := r.ReadString(0x0d)
	if err != nil {
		t.Fatalf("read resp: %v", err)
	}
	if resp != "%1POWR=0\r" {
		t.Fatalf("resp = %q, want %q", resp, "%1POWR=0\r")
	}
}

func TestServerStopIsIdempotent(t *testing.T) {
	s := New(Config{TCPAddr: "127.0.0.1:0"}, fakeHandler{})
	if err := s.Stop(); err != nil {
		t.Fatalf("stop on unstarted server: %v", err)
	}
	if err := s.ListenTCPOnly(context.Background()); err != nil {
		t.Fatalf("ListenTCPOnly: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("first stop: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}

func TestServerTCPAndUDP(t *testing.T) {
	s := New(Config{TCPAddr: "127.0.0.1:0"}, fakeHandler{})
	if err := s.ListenTCPAndUDP(context.Background()); err != nil {
		t.Fatalf("ListenTCPAndUDP: %v", err)
	}
	defer s.Stop()

	udpAddr, ok := s.UDPAddr().(*net.UDPAddr)
	if !ok {
		t.Fatalf("expected *net.UDPAddr, got %T", s.UDPAddr())
	}

	client, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.2")})
	if err != nil {
		t.Fatalf("udp client listen: %v", err)
	}
	defer client.Close()

	// The discovery reply is addressed to the sender's IP at the discovery
	// port, so it is read on a second loopback address bound to that port.
	receiver, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.2"), Port: udpAddr.Port})
	if err != nil {
		t.Fatalf("udp receiver listen: %v", err)
	}
	defer receiver.Close()

	dst := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: udpAddr.Port}
	client.WriteToUDP([]byte("%2SRCH\r"), dst)

	receiver.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 64)
	n, _, err := receiver.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("udp read: %v", err)
	}
	if string(buf[:7]) != "%2ACKN=" {
		t.Fatalf("unexpected udp reply: %q", buf[:n])
	}
}
