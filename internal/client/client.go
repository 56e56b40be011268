package client

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"huddle/internal/domain"
	"huddle/internal/signal"
)

// Client is one signaling connection. It is not safe for concurrent use;
// the probe CLI and tests drive it from a single goroutine.
type Client struct {
	conn *websocket.Conn

	// Init is the server's opening frame, captured by Dial.
	Init signal.ServerInit
}

// Dial connects and waits for the server's init frame. server accepts
// http(s):// or ws(s):// URLs; room may be empty to join the server's
// default room.
func Dial(ctx context.Context, server, roomName, user string) (*Client, error) {
	u, err := url.Parse(server)
	if err != nil {
		return nil, fmt.Errorf("parse server URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = "/ws"
	q := u.Query()
	q.Set("user", user)
	if roomName != "" {
		q.Set("room", roomName)
	}
	u.RawQuery = q.Encode()

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s: %w", u, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", u, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	c := &Client{conn: conn}
	env, err := c.Read()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("read init: %w", err)
	}
	if env.Action != signal.ServerInitAction {
		conn.Close()
		return nil, fmt.Errorf("expected init, got %q", env.Action)
	}
	if err := env.Decode(&c.Init); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// Read returns the next server frame.
func (c *Client) Read() (signal.ServerEnvelope, error) {
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			return signal.ServerEnvelope{}, err
		}
		if mt != websocket.TextMessage {
			continue
		}
		return signal.ParseServer(data)
	}
}

// ReadUntil reads frames until one matches the wanted action, discarding
// others, or the deadline passes.
func (c *Client) ReadUntil(action signal.ServerAction, timeout time.Duration) (signal.ServerEnvelope, error) {
	deadline := time.Now().Add(timeout)
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return signal.ServerEnvelope{}, err
	}
	defer c.conn.SetReadDeadline(time.Time{})

	for {
		env, err := c.Read()
		if err != nil {
			return signal.ServerEnvelope{}, fmt.Errorf("waiting for %s: %w", action, err)
		}
		if env.Action == action {
			return env, nil
		}
	}
}

// SendInit announces receive capabilities; required before consuming.
func (c *Client) SendInit(rtpCapabilities []string) error {
	return c.send(signal.ClientInitAction, signal.ClientInit{RTPCapabilities: rtpCapabilities})
}

// SendEcho broadcasts a text line to the room.
func (c *Client) SendEcho(text string) error {
	return c.send(signal.ClientEcho, signal.Echo{Text: text})
}

// SendPresence reports loading, playing or idle.
func (c *Client) SendPresence(p domain.Presence) error {
	return c.send(signal.ClientNotification, signal.Notification{Kind: string(p)})
}

// SendConsume asks the server to forward a producer to us.
func (c *Client) SendConsume(producerID string) error {
	return c.send(signal.ClientConsume, signal.Consume{ProducerID: producerID})
}

// Send writes one arbitrary client frame.
func (c *Client) Send(action signal.ClientAction, payload any) error {
	return c.send(action, payload)
}

func (c *Client) send(action signal.ClientAction, payload any) error {
	data, err := signal.MarshalClient(action, payload)
	if err != nil {
		return err
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close says goodbye and drops the connection.
func (c *Client) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.conn.Close()
}
