package board

import (
	"fmt"
	"sort"

	"github.com/automerge/automerge-go"
)

// Version is a causal frontier: the heads of a document at some point in time.
type Version []automerge.ChangeHash

// Strings renders the version as hex hashes for transport.
func (v Version) Strings() []string {
	out := make([]string, len(v))
	for i, h := range v {
		out[i] = h.String()
	}
	return out
}

// Equal compares two versions ignoring order.
func (v Version) Equal(o Version) bool {
	if len(v) != len(o) {
		return false
	}
	a, b := v.Strings(), o.Strings()
	sort.Strings(a)
	sort.Strings(b)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func ParseVersion(hashes []string) (Version, error) {
	out := make(Version, 0, len(hashes))
	for _, s := range hashes {
		h, err := automerge.NewChangeHash(s)
		if err != nil {
			return nil, fmt.Errorf("failed to parse change hash %q: %w", s, err)
		}
		out = append(out, h)
	}
	return out, nil
}
