// Package relay is the room based websocket relay that whiteboard peers sync
// through. The relay never looks inside sync payloads: it forwards them to the
// other peers in the room and remembers the latest one for late joiners.
package relay

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"sort"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/astromechza/inkboard/pkg/protocol"
	"github.com/astromechza/inkboard/pkg/storage"
)

const (
	DefaultSendBuffer     = 256
	DefaultReadLimit      = 16 << 20
	DefaultAwarenessRate  = 30
	DefaultAwarenessBurst = 10
)

type HubOption func(*Hub)

// WithStore persists the latest sync payload of every room.
func WithStore(store storage.BlobStore) HubOption {
	return func(h *Hub) {
		h.store = store
	}
}

func WithSendBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

func WithReadLimit(n int64) HubOption {
	return func(h *Hub) {
		h.readLimit = n
	}
}

// WithAwarenessLimit bounds how many awareness frames per second a single
// peer may send. A non-positive rate disables the limit.
func WithAwarenessLimit(perSecond float64, burst int) HubOption {
	return func(h *Hub) {
		if perSecond <= 0 {
			h.awarenessRate = rate.Inf
		} else {
			h.awarenessRate = rate.Limit(perSecond)
		}
		h.awarenessBurst = burst
	}
}

type room struct {
	name     string
	peers    mapset.Set[*peer]
	lastSync *string
}

type Hub struct {
	store          storage.BlobStore
	sendBuffer     int
	readLimit      int64
	awarenessRate  rate.Limit
	awarenessBurst int

	mu    sync.Mutex
	rooms map[string]*room
	peers mapset.Set[*peer]
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		sendBuffer:     DefaultSendBuffer,
		readLimit:      DefaultReadLimit,
		awarenessRate:  DefaultAwarenessRate,
		awarenessBurst: DefaultAwarenessBurst,
		rooms:          make(map[string]*room),
		peers:          mapset.NewThreadUnsafeSet[*peer](),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RoomInfo describes a live room.
type RoomInfo struct {
	Room  string `json:"room"`
	Peers int    `json:"peers"`
}

// Rooms lists the rooms that currently have peers, sorted by name.
func (h *Hub) Rooms() []RoomInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]RoomInfo, 0, len(h.rooms))
	for _, r := range h.rooms {
		out = append(out, RoomInfo{Room: r.name, Peers: r.peers.Cardinality()})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Room < out[j].Room
	})
	return out
}

// Latest returns the last sync payload seen in a room, falling back to the
// store when the room is not live. ok is false if there is none.
func (h *Hub) Latest(ctx context.Context, name string) ([]byte, bool, error) {
	h.mu.Lock()
	var last *string
	if r, found := h.rooms[name]; found {
		last = r.lastSync
	}
	h.mu.Unlock()
	if last != nil {
		data, err := protocol.DecodePayload(*last)
		if err != nil {
			return nil, false, err
		}
		return data, true, nil
	}
	data, err := h.loadPersisted(ctx, name)
	if err != nil {
		return nil, false, err
	}
	return data, data != nil, nil
}

// Close disconnects every peer. Their connections unwind on their own.
func (h *Hub) Close() {
	h.mu.Lock()
	peers := h.peers.ToSlice()
	h.mu.Unlock()
	for _, p := range peers {
		_ = p.conn.Close()
	}
}

func roomKey(name string) string {
	return "room_" + base64.RawURLEncoding.EncodeToString([]byte(name))
}

func (h *Hub) loadPersisted(ctx context.Context, name string) ([]byte, error) {
	if h.store == nil {
		return nil, nil
	}
	data, err := h.store.Load(ctx, roomKey(name))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return data, nil
}

func (h *Hub) persist(ctx context.Context, name string, data []byte) {
	if h.store == nil {
		return
	}
	if err := h.store.Save(ctx, roomKey(name), data); err != nil {
		slog.Error("failed to persist room state", "room", name, "err", err)
	}
}

func (h *Hub) register(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.peers.Add(p)
}

func (h *Hub) unregister(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(p)
	h.peers.Remove(p)
}

func (h *Hub) newPeerID() string {
	return uuid.NewString()
}

// broadcastLocked sends m to everyone in r except from.
func (h *Hub) broadcastLocked(r *room, from *peer, m protocol.ServerMessage) {
	raw, err := protocol.MarshalServer(m)
	if err != nil {
		slog.Error("failed to encode broadcast", "err", err)
		return
	}
	r.peers.Each(func(p *peer) bool {
		if p != from {
			p.push(raw)
		}
		return false
	})
}

func (h *Hub) join(ctx context.Context, p *peer, name string) {
	h.mu.Lock()
	_, live := h.rooms[name]
	h.mu.Unlock()

	var persisted *string
	if !live {
		data, err := h.loadPersisted(ctx, name)
		if err != nil {
			slog.Error("failed to load room state", "room", name, "err", err)
		} else if data != nil {
			enc := protocol.EncodePayload(data)
			persisted = &enc
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(p)
	r, ok := h.rooms[name]
	if !ok {
		r = &room{name: name, peers: mapset.NewThreadUnsafeSet[*peer](), lastSync: persisted}
		h.rooms[name] = r
	}
	r.peers.Add(p)
	p.room = r

	p.enqueue(protocol.Joined{Room: name, PeerCount: r.peers.Cardinality(), InitialSync: r.lastSync})
	h.broadcastLocked(r, p, protocol.PeerJoined{PeerID: p.id})
	slog.Info("peer joined room", "peer", p.id, "room", name, "peers", r.peers.Cardinality())
}

func (h *Hub) leave(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(p)
}

func (h *Hub) leaveLocked(p *peer) {
	r := p.room
	if r == nil {
		return
	}
	p.room = nil
	r.peers.Remove(p)
	if r.peers.Cardinality() == 0 {
		delete(h.rooms, r.name)
	} else {
		h.broadcastLocked(r, p, protocol.PeerLeft{PeerID: p.id})
	}
	slog.Info("peer left room", "peer", p.id, "room", r.name)
}

// sync records data as the room's latest state and forwards it. encoded and
// data are the same payload in its two forms.
func (h *Hub) sync(ctx context.Context, p *peer, encoded string, data []byte) {
	h.mu.Lock()
	r := p.room
	if r == nil {
		h.mu.Unlock()
		return
	}
	r.lastSync = &encoded
	h.broadcastLocked(r, p, protocol.PeerSync{From: p.id, Data: encoded})
	name := r.name
	h.mu.Unlock()

	h.persist(ctx, name, data)
}

func (h *Hub) awareness(p *peer, m protocol.Awareness) {
	if !p.limiter.Allow() {
		slog.Debug("dropping awareness over limit", "peer", p.id)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if p.room == nil {
		return
	}
	h.broadcastLocked(p.room, p, protocol.PeerAwareness{From: p.id, PeerID: m.PeerID, AwarenessState: m.AwarenessState})
}
