package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/astromechza/inkboard/pkg/protocol"
)

type peer struct {
	id      string
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter

	// room is guarded by the hub's mutex.
	room *room
}

// push queues a frame, dropping it if the peer is not keeping up.
func (p *peer) push(raw []byte) {
	select {
	case p.send <- raw:
	default:
		slog.Warn("send queue full, dropping frame", "peer", p.id)
	}
}

func (p *peer) enqueue(m protocol.ServerMessage) {
	raw, err := protocol.MarshalServer(m)
	if err != nil {
		slog.Error("failed to encode message", "peer", p.id, "err", err)
		return
	}
	p.push(raw)
}

// Serve runs a peer connection until either side closes it. It takes
// ownership of conn.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn) {
	p := &peer{
		id:      h.newPeerID(),
		conn:    conn,
		send:    make(chan []byte, h.sendBuffer),
		limiter: rate.NewLimiter(h.awarenessRate, h.awarenessBurst),
	}
	if h.readLimit > 0 {
		conn.SetReadLimit(h.readLimit)
	}
	h.register(p)
	defer h.unregister(p)
	slog.Info("new connection", "peer", p.id, "remote", conn.RemoteAddr())

	done := make(chan struct{})
	wg := new(sync.WaitGroup)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(done)
		defer conn.Close()
		if err := h.readLoop(ctx, p); err != nil {
			slog.Warn(err.Error(), "peer", p.id)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer conn.Close()
		if err := p.writeLoop(done); err != nil {
			slog.Warn(err.Error(), "peer", p.id)
		}
	}()

	wg.Wait()
	slog.Info("connection closed", "peer", p.id)
}

func (h *Hub) readLoop(ctx context.Context, p *peer) error {
	for {
		mt, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return fmt.Errorf("failed to read message: %w", err)
			}
			return nil
		}
		switch mt {
		case websocket.TextMessage:
			h.handleText(ctx, p, data)
		case websocket.BinaryMessage:
			h.sync(ctx, p, protocol.EncodePayload(data), data)
		default:
		}
	}
}

func (h *Hub) handleText(ctx context.Context, p *peer, data []byte) {
	msg, err := protocol.UnmarshalClient(data)
	if err != nil {
		slog.Warn("invalid message", "peer", p.id, "err", err)
		p.enqueue(protocol.ErrorMessage{Message: "Invalid message: " + err.Error()})
		return
	}
	switch m := msg.(type) {
	case protocol.Join:
		h.join(ctx, p, m.Room)
	case protocol.Leave:
		h.leave(p)
	case protocol.Sync:
		payload, err := protocol.DecodePayload(m.Data)
		if err != nil {
			p.enqueue(protocol.ErrorMessage{Message: "Invalid sync payload: " + err.Error()})
			return
		}
		h.sync(ctx, p, m.Data, payload)
	case protocol.Awareness:
		h.awareness(p, m)
	}
}

func (p *peer) writeLoop(done <-chan struct{}) error {
	for {
		select {
		case raw := <-p.send:
			if err := p.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return fmt.Errorf("failed to write message: %w", err)
			}
		case <-done:
			return nil
		}
	}
}
