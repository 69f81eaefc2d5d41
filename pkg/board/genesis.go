package board

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/automerge/automerge-go"
	"github.com/google/uuid"
)

const (
	keyName   = "name"
	keyShapes = "shapes"
	keyZOrder = "z_order"

	// genesisActor is "inkboard-genesis" in hex. Every document starts from the
	// same change made by this actor at the unix epoch so that the root
	// containers have the same identity on every peer.
	genesisActor = "696e6b626f6172642d67656e65736973"
)

var (
	genesisOnce  sync.Once
	genesisBytes []byte
	genesisErr   error
)

func genesis() ([]byte, error) {
	genesisOnce.Do(func() {
		genesisBytes, genesisErr = buildGenesis()
	})
	return genesisBytes, genesisErr
}

func buildGenesis() ([]byte, error) {
	doc := automerge.New()
	if err := doc.SetActorID(genesisActor); err != nil {
		return nil, fmt.Errorf("failed to set genesis actor: %w", err)
	}
	root := doc.RootMap()
	if err := root.Set(keyName, automerge.NewText("")); err != nil {
		return nil, fmt.Errorf("failed to create name: %w", err)
	}
	if err := root.Set(keyShapes, automerge.NewMap()); err != nil {
		return nil, fmt.Errorf("failed to create shapes: %w", err)
	}
	if err := root.Set(keyZOrder, automerge.NewList()); err != nil {
		return nil, fmt.Errorf("failed to create z order: %w", err)
	}
	epoch := time.Unix(0, 0).UTC()
	if _, err := doc.Commit("genesis", automerge.CommitOptions{Time: &epoch}); err != nil {
		return nil, fmt.Errorf("failed to commit genesis: %w", err)
	}
	return doc.Save(), nil
}

// newActorID returns a fresh random actor id in the hex form automerge expects.
func newActorID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:])
}

// peerIDFromActor folds the leading eight bytes of an actor id into a number
// that is stable for the lifetime of the document.
func peerIDFromActor(actor string) uint64 {
	raw, err := hex.DecodeString(actor)
	if err != nil {
		return 0
	}
	var buf [8]byte
	copy(buf[:], raw)
	return binary.BigEndian.Uint64(buf[:])
}
