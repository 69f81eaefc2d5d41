package protocol

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// EncodePayload wraps document bytes for a JSON message using the standard
// alphabet with padding.
func EncodePayload(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodePayload accepts padded or unpadded standard base64.
func DecodePayload(s string) ([]byte, error) {
	if out, err := base64.StdEncoding.DecodeString(s); err == nil {
		return out, nil
	}
	out, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return out, nil
}

type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateError
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Event is what the rest of the application sees of the relay connection:
// lifecycle changes plus server messages with payloads already decoded.
type Event interface {
	isEvent()
}

type Connected struct{}

type Disconnected struct{}

type JoinedRoom struct {
	Room        string
	PeerCount   int
	InitialSync []byte
}

type PeerJoinedEvent struct {
	PeerID string
}

type PeerLeftEvent struct {
	PeerID string
}

type SyncReceived struct {
	From string
	Data []byte
}

type AwarenessReceived struct {
	From   string
	PeerID uint64
	State  AwarenessState
}

type ErrorEvent struct {
	Message string
}

func (Connected) isEvent()         {}
func (Disconnected) isEvent()      {}
func (JoinedRoom) isEvent()        {}
func (PeerJoinedEvent) isEvent()   {}
func (PeerLeftEvent) isEvent()     {}
func (SyncReceived) isEvent()      {}
func (AwarenessReceived) isEvent() {}
func (ErrorEvent) isEvent()        {}

// FromServer converts a server message to an event. A payload that is not
// valid base64 becomes an ErrorEvent.
func FromServer(m ServerMessage) Event {
	switch v := m.(type) {
	case Joined:
		ev := JoinedRoom{Room: v.Room, PeerCount: v.PeerCount}
		if v.InitialSync != nil {
			data, err := DecodePayload(*v.InitialSync)
			if err != nil {
				return ErrorEvent{Message: "invalid initial sync: " + err.Error()}
			}
			ev.InitialSync = data
		}
		return ev
	case PeerJoined:
		return PeerJoinedEvent{PeerID: v.PeerID}
	case PeerLeft:
		return PeerLeftEvent{PeerID: v.PeerID}
	case PeerSync:
		data, err := DecodePayload(v.Data)
		if err != nil {
			return ErrorEvent{Message: fmt.Sprintf("invalid sync from %s: %v", v.From, err)}
		}
		return SyncReceived{From: v.From, Data: data}
	case PeerAwareness:
		return AwarenessReceived{From: v.From, PeerID: v.PeerID, State: v.AwarenessState}
	case ErrorMessage:
		return ErrorEvent{Message: v.Message}
	}
	return ErrorEvent{Message: fmt.Sprintf("unexpected server message %T", m)}
}
