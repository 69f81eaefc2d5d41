package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/astromechza/inkboard/pkg/protocol"
)

var ErrClosed = errors.New("connection closed")

type frame struct {
	kind int
	data []byte
}

// Client is a peer's connection to the relay. Server messages arrive on
// Events as protocol events; the channel is closed after Disconnected.
type Client struct {
	conn   *websocket.Conn
	events chan protocol.Event
	send   chan frame

	// done is closed by Close, gone when the read side ends.
	done      chan struct{}
	gone      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	mu    sync.Mutex
	state protocol.ConnectionState
}

// Dial connects to a relay websocket endpoint. Only ws and wss URLs are
// accepted.
func Dial(ctx context.Context, rawURL string) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid relay url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("invalid relay url %q: scheme must be ws or wss", rawURL)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", u.Redacted(), err)
	}

	c := &Client{
		conn:   conn,
		events: make(chan protocol.Event, 64),
		send:   make(chan frame, 64),
		done:   make(chan struct{}),
		gone:   make(chan struct{}),
		state:  protocol.StateConnected,
	}
	c.events <- protocol.Connected{}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(c.events)
		defer close(c.gone)
		defer conn.Close()
		err := c.readLoop()
		c.mu.Lock()
		if err != nil {
			slog.Warn(err.Error())
			c.state = protocol.StateError
		} else {
			c.state = protocol.StateDisconnected
		}
		c.mu.Unlock()
		c.emit(protocol.Disconnected{})
	}()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer conn.Close()
		if err := c.writeLoop(); err != nil {
			slog.Warn(err.Error())
		}
	}()

	return c, nil
}

func (c *Client) Events() <-chan protocol.Event {
	return c.events
}

func (c *Client) State() protocol.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) emit(ev protocol.Event) {
	select {
	case c.events <- ev:
	case <-c.done:
		// Keep whatever still fits once the caller has stopped reading.
		select {
		case c.events <- ev:
		default:
		}
	}
}

func (c *Client) readLoop() error {
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return nil
			default:
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return fmt.Errorf("failed to read message: %w", err)
			}
			return nil
		}
		if mt != websocket.TextMessage {
			continue
		}
		msg, err := protocol.UnmarshalServer(data)
		if err != nil {
			c.emit(protocol.ErrorEvent{Message: err.Error()})
			continue
		}
		c.emit(protocol.FromServer(msg))
	}
}

func (c *Client) writeLoop() error {
	for {
		select {
		case f := <-c.send:
			if err := c.conn.WriteMessage(f.kind, f.data); err != nil {
				return fmt.Errorf("failed to write message: %w", err)
			}
		case <-c.gone:
			return nil
		case <-c.done:
			_ = c.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second),
			)
			return nil
		}
	}
}

func (c *Client) queue(f frame) error {
	select {
	case <-c.done:
		return ErrClosed
	case <-c.gone:
		return ErrClosed
	default:
	}
	select {
	case c.send <- f:
		return nil
	case <-c.done:
		return ErrClosed
	case <-c.gone:
		return ErrClosed
	}
}

func (c *Client) Send(m protocol.ClientMessage) error {
	raw, err := protocol.MarshalClient(m)
	if err != nil {
		return err
	}
	return c.SendText(raw)
}

// SendText sends an already encoded client message.
func (c *Client) SendText(raw []byte) error {
	return c.queue(frame{kind: websocket.TextMessage, data: raw})
}

// SendBinary sends raw document bytes, which the relay treats as a sync.
func (c *Client) SendBinary(data []byte) error {
	return c.queue(frame{kind: websocket.BinaryMessage, data: data})
}

// Close ends the connection and waits for its goroutines to exit.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	c.wg.Wait()
	return nil
}
