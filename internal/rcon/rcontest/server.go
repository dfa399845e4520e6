// Package rcontest runs an in-process RCON server for tests.
package rcontest

import (
	"encoding/binary"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"

	"fractalcraft.ai/internal/rcon"
)

// Reply computes the body sent back for a command.
type Reply func(cmd string) string

// Server accepts connections on a loopback port and records every command it receives.
type Server struct {
	T        *testing.T
	Password string

	// Reply defaults to an empty body.
	Reply Reply
	// RawReply, when set, replaces the framed reply with arbitrary bytes, then closes.
	RawReply func(cmd string) []byte

	ln net.Listener
	wg sync.WaitGroup

	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	commands []string
	logins   []string
}

func NewServer(t *testing.T, password string) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &Server{T: t, Password: password, ln: ln, conns: map[net.Conn]struct{}{}}
	s.wg.Add(1)
	go s.accept()
	t.Cleanup(s.Close)
	return s
}

func (s *Server) Addr() string { return s.ln.Addr().String() }

func (s *Server) Close() {
	_ = s.ln.Close()
	s.mu.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

func (s *Server) Logins() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.logins...)
}

func (s *Server) accept() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serve(conn)
		}()
	}
}

func (s *Server) serve(conn net.Conn) {
	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()
	authed := false
	for {
		req, err := rcon.ReadPacket(conn)
		if err != nil {
			if !errors.Is(err, rcon.ErrConnClosed) && !errors.Is(err, net.ErrClosed) {
				s.T.Logf("rcontest: read: %v", err)
			}
			return
		}
		switch req.Type {
		case rcon.TypeAuth:
			s.mu.Lock()
			s.logins = append(s.logins, req.Body)
			s.mu.Unlock()
			id := req.ID
			if req.Body != s.Password {
				id = rcon.AuthFailedID
			} else {
				authed = true
			}
			if err := rcon.WritePacket(conn, rcon.Packet{ID: id, Type: rcon.TypeAuthResponse}); err != nil {
				return
			}
		case rcon.TypeCommand:
			if !authed {
				return
			}
			s.mu.Lock()
			s.commands = append(s.commands, req.Body)
			s.mu.Unlock()
			if s.RawReply != nil {
				_, _ = conn.Write(s.RawReply(req.Body))
				return
			}
			body := ""
			if s.Reply != nil {
				body = s.Reply(req.Body)
			}
			if err := rcon.WritePacket(conn, rcon.Packet{ID: req.ID, Type: rcon.TypeResponse, Body: body}); err != nil {
				return
			}
		default:
			return
		}
	}
}

// Frame builds a raw frame with an arbitrary declared length, for malformed-reply tests.
func Frame(declaredLen int32, id, typ int32, body string) []byte {
	b := make([]byte, 12+len(body)+2)
	binary.LittleEndian.PutUint32(b[0:4], uint32(declaredLen))
	binary.LittleEndian.PutUint32(b[4:8], uint32(id))
	binary.LittleEndian.PutUint32(b[8:12], uint32(typ))
	copy(b[12:], body)
	return b
}

// SetBlockReply answers setblock like a vanilla server.
func SetBlockReply(cmd string) string {
	if strings.HasPrefix(cmd, "setblock ") {
		return "Changed the block"
	}
	return ""
}
