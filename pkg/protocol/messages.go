// Package protocol defines the JSON messages exchanged with the relay and the
// local events they turn into. Sync payloads are opaque document bytes carried
// as base64 strings; nothing here looks inside them.
package protocol

import (
	"encoding/json"
	"fmt"
)

const (
	TypeJoin       = "join"
	TypeLeave      = "leave"
	TypeSync       = "sync"
	TypeAwareness  = "awareness"
	TypeJoined     = "joined"
	TypePeerJoined = "peer_joined"
	TypePeerLeft   = "peer_left"
	TypeError      = "error"
)

type CursorPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type UserInfo struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// AwarenessState is ephemeral presence. It is flattened into the awareness
// messages rather than nested.
type AwarenessState struct {
	Cursor *CursorPosition `json:"cursor,omitempty"`
	User   *UserInfo       `json:"user,omitempty"`
}

// ClientMessage is sent from a peer to the relay.
type ClientMessage interface {
	clientType() string
}

type Join struct {
	Room string `json:"room"`
}

type Leave struct{}

type Sync struct {
	Data string `json:"data"`
}

type Awareness struct {
	PeerID uint64 `json:"peer_id"`
	AwarenessState
}

func (Join) clientType() string      { return TypeJoin }
func (Leave) clientType() string     { return TypeLeave }
func (Sync) clientType() string      { return TypeSync }
func (Awareness) clientType() string { return TypeAwareness }

// ServerMessage is sent from the relay to a peer.
type ServerMessage interface {
	serverType() string
}

type Joined struct {
	Room      string `json:"room"`
	PeerCount int    `json:"peer_count"`
	// InitialSync is the last payload seen in the room, if any.
	InitialSync *string `json:"initial_sync,omitempty"`
}

type PeerJoined struct {
	PeerID string `json:"peer_id"`
}

type PeerLeft struct {
	PeerID string `json:"peer_id"`
}

type PeerSync struct {
	From string `json:"from"`
	Data string `json:"data"`
}

type PeerAwareness struct {
	From   string `json:"from"`
	PeerID uint64 `json:"peer_id"`
	AwarenessState
}

type ErrorMessage struct {
	Message string `json:"message"`
}

func (Joined) serverType() string        { return TypeJoined }
func (PeerJoined) serverType() string    { return TypePeerJoined }
func (PeerLeft) serverType() string      { return TypePeerLeft }
func (PeerSync) serverType() string      { return TypeSync }
func (PeerAwareness) serverType() string { return TypeAwareness }
func (ErrorMessage) serverType() string  { return TypeError }

// withType marshals v and adds the "type" discriminant as the first field.
func withType(typ string, v interface{}) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	tag, _ := json.Marshal(typ)
	out := make([]byte, 0, len(body)+len(tag)+9)
	out = append(out, `{"type":`...)
	out = append(out, tag...)
	if len(body) > 2 {
		out = append(out, ',')
		out = append(out, body[1:]...)
	} else {
		out = append(out, '}')
	}
	return out, nil
}

func peekType(raw []byte) (string, error) {
	var head struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return "", fmt.Errorf("failed to decode message: %w", err)
	}
	if head.Type == nil {
		return "", fmt.Errorf("message has no type")
	}
	return *head.Type, nil
}

func MarshalClient(m ClientMessage) ([]byte, error) {
	out, err := withType(m.clientType(), m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s message: %w", m.clientType(), err)
	}
	return out, nil
}

func MarshalServer(m ServerMessage) ([]byte, error) {
	out, err := withType(m.serverType(), m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s message: %w", m.serverType(), err)
	}
	return out, nil
}

func decode[T any](raw []byte, typ string) (T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("failed to decode %s message: %w", typ, err)
	}
	return v, nil
}

func UnmarshalClient(raw []byte) (ClientMessage, error) {
	typ, err := peekType(raw)
	if err != nil {
		return nil, err
	}
	switch typ {
	case TypeJoin:
		return decode[Join](raw, typ)
	case TypeLeave:
		return Leave{}, nil
	case TypeSync:
		return decode[Sync](raw, typ)
	case TypeAwareness:
		return decode[Awareness](raw, typ)
	}
	return nil, fmt.Errorf("unknown client message type %q", typ)
}

func UnmarshalServer(raw []byte) (ServerMessage, error) {
	typ, err := peekType(raw)
	if err != nil {
		return nil, err
	}
	switch typ {
	case TypeJoined:
		return decode[Joined](raw, typ)
	case TypePeerJoined:
		return decode[PeerJoined](raw, typ)
	case TypePeerLeft:
		return decode[PeerLeft](raw, typ)
	case TypeSync:
		return decode[PeerSync](raw, typ)
	case TypeAwareness:
		return decode[PeerAwareness](raw, typ)
	case TypeError:
		return decode[ErrorMessage](raw, typ)
	}
	return nil, fmt.Errorf("unknown server message type %q", typ)
}
