// Package webrcon speaks the websocket RCON dialect: the password travels in the URL path
// and commands are JSON envelopes matched to replies by Identifier.
package webrcon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"fractalcraft.ai/internal/rcon"
)

// ClientName is sent in every request envelope.
const ClientName = "WebRcon"

// maxEnvelope caps one websocket message. Reply bodies are held to rcon.MaxBodySize
// after decoding; the envelope and JSON escaping may take more room than that.
const maxEnvelope = 64 << 10

// Message is the envelope used in both directions.
type Message struct {
	Identifier int    `json:"Identifier"`
	Message    string `json:"Message"`
	Name       string `json:"Name,omitempty"`
	Type       string `json:"Type,omitempty"`
	Stacktrace string `json:"Stacktrace,omitempty"`
}

type Client struct {
	conn    *websocket.Conn
	addr    string
	timeout time.Duration
	nextID  int
	broken  error
}

// URL builds ws://host:port/<password>.
func URL(addr, password string) string {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/" + password}
	return u.String()
}

// Dial connects; the server authenticates during the upgrade. A rejected upgrade is
// reported as rcon.ErrAuthFailed, an unreachable endpoint as *rcon.ConnError.
func Dial(ctx context.Context, addr, password string, timeout time.Duration) (*Client, error) {
	target := addr
	if !strings.HasPrefix(addr, "ws://") && !strings.HasPrefix(addr, "wss://") {
		target = URL(addr, password)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w: upgrade status %d", rcon.ErrAuthFailed, resp.StatusCode)
		}
		return nil, &rcon.ConnError{Addr: addr, Err: err}
	}
	conn.SetReadLimit(maxEnvelope)
	return &Client{conn: conn, addr: addr, timeout: timeout}, nil
}

func (c *Client) Addr() string { return c.addr }

func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

// Command sends one command and waits for the reply carrying the same Identifier.
// Unsolicited broadcasts (other identifiers) are skipped.
func (c *Client) Command(ctx context.Context, cmd string) (string, error) {
	if c.broken != nil {
		return "", &rcon.ProtocolError{Op: "command", Err: c.broken}
	}
	c.nextID++
	id := c.nextID

	var dl time.Time
	if d, ok := ctx.Deadline(); ok {
		dl = d
	} else if c.timeout > 0 {
		dl = time.Now().Add(c.timeout)
	}
	_ = c.conn.SetWriteDeadline(dl)
	_ = c.conn.SetReadDeadline(dl)

	if err := c.conn.WriteJSON(Message{Identifier: id, Message: cmd, Name: ClientName}); err != nil {
		return "", c.fail(err)
	}
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				return "", c.fail(fmt.Errorf("%w: %v", rcon.ErrFrameTooLarge, err))
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || errors.Is(err, websocket.ErrCloseSent) {
				return "", c.fail(fmt.Errorf("%w: %v", rcon.ErrConnClosed, err))
			}
			return "", c.fail(err)
		}
		var m Message
		if err := json.Unmarshal(raw, &m); err != nil {
			return "", c.fail(fmt.Errorf("%w: %v", rcon.ErrMalformedFrame, err))
		}
		if m.Identifier != id {
			continue
		}
		if len(m.Message) > rcon.MaxBodySize {
			return "", c.fail(fmt.Errorf("%w: %d byte reply", rcon.ErrFrameTooLarge, len(m.Message)))
		}
		return m.Message, nil
	}
}

func (c *Client) fail(err error) error {
	c.broken = err
	return &rcon.ProtocolError{Op: "command", Err: err}
}
