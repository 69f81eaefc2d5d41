// Package collab ties a board document to a relay room: it queues outgoing
// frames for the transport and applies what comes back.
package collab

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/astromechza/inkboard/pkg/board"
	"github.com/astromechza/inkboard/pkg/protocol"
)

// ErrApply marks a sync payload that could not be merged. The document is left
// as it was.
var ErrApply = errors.New("could not apply change")

type Session struct {
	mu   sync.Mutex
	doc  *board.Document
	undo *board.UndoManager

	room      string
	inRoom    bool
	awareness protocol.AwarenessState
	outgoing  [][]byte

	// lastBroadcast is nil until the first broadcast, which sends a snapshot.
	lastBroadcast board.Version
}

func NewSession(doc *board.Document, opts ...board.UndoOption) *Session {
	return &Session{
		doc:  doc,
		undo: board.NewUndoManager(doc, opts...),
	}
}

func (s *Session) Document() *board.Document {
	return s.doc
}

func (s *Session) UndoManager() *board.UndoManager {
	return s.undo
}

func (s *Session) queue(m protocol.ClientMessage) error {
	raw, err := protocol.MarshalClient(m)
	if err != nil {
		return err
	}
	s.outgoing = append(s.outgoing, raw)
	return nil
}

// JoinRoom asks the relay to join room. The session counts as in the room once
// the relay confirms.
func (s *Session) JoinRoom(room string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue(protocol.Join{Room: room})
}

func (s *Session) LeaveRoom() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inRoom {
		return nil
	}
	s.inRoom = false
	s.room = ""
	s.lastBroadcast = nil
	return s.queue(protocol.Leave{})
}

func (s *Session) CurrentRoom() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room, s.inRoom
}

func (s *Session) InRoom() bool {
	_, ok := s.CurrentRoom()
	return ok
}

func (s *Session) SetCursor(x, y float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.awareness.Cursor = &protocol.CursorPosition{X: x, Y: y}
	return s.queueAwareness()
}

func (s *Session) ClearCursor() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.awareness.Cursor = nil
	return s.queueAwareness()
}

func (s *Session) SetUserInfo(name, color string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.awareness.User = &protocol.UserInfo{Name: name, Color: color}
	return s.queueAwareness()
}

func (s *Session) Awareness() protocol.AwarenessState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.awareness
}

func (s *Session) queueAwareness() error {
	if !s.inRoom {
		return nil
	}
	return s.queue(protocol.Awareness{PeerID: s.doc.PeerID(), AwarenessState: s.awareness})
}

// BroadcastSync queues the changes made since the previous broadcast. The
// first broadcast in a room carries a full snapshot.
func (s *Session) BroadcastSync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inRoom {
		return nil
	}
	if s.lastBroadcast == nil {
		return s.broadcastSnapshotLocked()
	}
	version := s.doc.Version()
	if version.Equal(s.lastBroadcast) {
		return nil
	}
	delta, err := s.doc.ExportUpdates(s.lastBroadcast)
	if err != nil {
		return err
	}
	if len(delta) > 0 {
		if err := s.queue(protocol.Sync{Data: protocol.EncodePayload(delta)}); err != nil {
			return err
		}
	}
	s.lastBroadcast = version
	return nil
}

// BroadcastSnapshot queues the full document history.
func (s *Session) BroadcastSnapshot() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inRoom {
		return nil
	}
	return s.broadcastSnapshotLocked()
}

func (s *Session) broadcastSnapshotLocked() error {
	version := s.doc.Version()
	if err := s.queue(protocol.Sync{Data: protocol.EncodePayload(s.doc.ExportSnapshot())}); err != nil {
		return err
	}
	s.lastBroadcast = version
	return nil
}

// TakeOutgoing drains the queued frames in order.
func (s *Session) TakeOutgoing() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.outgoing
	s.outgoing = nil
	return out
}

func (s *Session) HasOutgoing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outgoing) > 0
}

// HandleMessage parses a raw server frame and applies it.
func (s *Session) HandleMessage(raw []byte) (protocol.Event, error) {
	msg, err := protocol.UnmarshalServer(raw)
	if err != nil {
		return nil, err
	}
	ev := protocol.FromServer(msg)
	return ev, s.HandleEvent(ev)
}

// HandleEvent applies an event to the session and document.
func (s *Session) HandleEvent(ev protocol.Event) error {
	switch v := ev.(type) {
	case protocol.JoinedRoom:
		s.mu.Lock()
		defer s.mu.Unlock()
		s.room, s.inRoom = v.Room, true
		if err := s.importLocked(v.InitialSync); err != nil {
			return err
		}
		// stored inverses do not account for the history we just received
		s.undo.ClearUndoHistory()
		slog.Debug("joined room", "room", v.Room, "peers", v.PeerCount)
		return s.broadcastSnapshotLocked()
	case protocol.PeerJoinedEvent:
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.inRoom {
			return nil
		}
		return s.broadcastSnapshotLocked()
	case protocol.SyncReceived:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.importLocked(v.Data)
	case protocol.Disconnected:
		s.mu.Lock()
		defer s.mu.Unlock()
		s.inRoom, s.room = false, ""
		s.lastBroadcast = nil
	}
	return nil
}

func (s *Session) importLocked(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := s.doc.Import(data); err != nil {
		return fmt.Errorf("%w: %v", ErrApply, err)
	}
	return nil
}
