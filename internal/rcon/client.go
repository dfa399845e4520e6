package rcon

import (
	"context"
	"io"
	"net"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultAddr is where a local game server listens for RCON by default.
const DefaultAddr = "localhost:25575"

type Option func(*Client)

// WithTimeout bounds every round trip. Zero (the default) means a stalled server blocks
// forever. A context deadline takes precedence.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) { c.log = l }
}

// Client owns one connection. It is not safe for concurrent use.
type Client struct {
	conn    net.Conn
	addr    string
	timeout time.Duration
	log     logrus.FieldLogger

	nextID int32
	authed bool
	broken error
}

// Dial opens the stream. It does not authenticate.
func Dial(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnError{Addr: addr, Err: err}
	}
	return NewClient(conn, addr, opts...), nil
}

// NewClient wraps an already open stream.
func NewClient(conn net.Conn, addr string, opts ...Option) *Client {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	c := &Client{
		conn: conn,
		addr: addr,
		log:  discard,
	}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.WithField("addr", addr)
	return c
}

func (c *Client) Addr() string        { return c.addr }
func (c *Client) Authenticated() bool { return c.authed }

func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Authenticate sends the login frame and reads one acknowledgement. A reply carrying
// AuthFailedID is ErrAuthFailed.
func (c *Client) Authenticate(ctx context.Context, password string) error {
	id := c.allocID()
	resp, err := c.roundTrip(ctx, "login", Packet{ID: id, Type: TypeAuth, Body: password})
	if err != nil {
		return err
	}
	if resp.ID == AuthFailedID {
		return ErrAuthFailed
	}
	c.authed = true
	c.log.WithField("id", id).Debug("authenticated")
	return nil
}

// Command sends one console command and returns the reply body. Reply ids are not
// matched against request ids.
func (c *Client) Command(ctx context.Context, cmd string) (string, error) {
	if !c.authed {
		return "", ErrNotAuthenticated
	}
	resp, err := c.roundTrip(ctx, "command", Packet{ID: c.allocID(), Type: TypeCommand, Body: cmd})
	if err != nil {
		return "", err
	}
	return resp.Body, nil
}

func (c *Client) allocID() int32 {
	c.nextID++
	if c.nextID <= 0 {
		c.nextID = 1
	}
	return c.nextID
}

func (c *Client) roundTrip(ctx context.Context, op string, req Packet) (Packet, error) {
	if c.broken != nil {
		return Packet{}, &ProtocolError{Op: op, Err: c.broken}
	}
	frame, err := req.MarshalBinary()
	if err != nil {
		return Packet{}, &ProtocolError{Op: op, Err: err}
	}
	if err := c.setDeadline(ctx); err != nil {
		return Packet{}, c.fail(op, err)
	}
	if _, err := c.conn.Write(frame); err != nil {
		return Packet{}, c.fail(op, err)
	}
	resp, err := ReadPacket(c.conn)
	if err != nil {
		return Packet{}, c.fail(op, err)
	}
	c.log.WithFields(logrus.Fields{
		"op":      op,
		"req_id":  req.ID,
		"resp_id": resp.ID,
		"type":    resp.Type,
		"bytes":   len(resp.Body),
	}).Trace("round trip")
	return resp, nil
}

func (c *Client) setDeadline(ctx context.Context) error {
	var dl time.Time
	if d, ok := ctx.Deadline(); ok {
		dl = d
	} else if c.timeout > 0 {
		dl = time.Now().Add(c.timeout)
	}
	return c.conn.SetDeadline(dl)
}

func (c *Client) fail(op string, err error) error {
	c.broken = err
	return &ProtocolError{Op: op, Err: err}
}
