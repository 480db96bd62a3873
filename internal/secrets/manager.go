package secrets

import (
	"fmt"

	"stash-go/internal/stash"
)

// Static is an in-memory stash.KeyManager. It is immutable after
// construction and therefore safe for concurrent use.
type Static struct {
	name    string
	current int
	keys    map[int][]byte
}

var _ stash.KeyManager = (*Static)(nil)

// NewStatic creates a key manager over fixed key material. The keys map is
// copied; current must be present in it.
func NewStatic(name string, current int, keys map[int][]byte) (*Static, error) {
	if name == "" {
		return nil, fmt.Errorf("key manager name is required")
	}
	if _, ok := keys[current]; !ok {
		return nil, fmt.Errorf("current version %d has no key material", current)
	}
	copied := make(map[int][]byte, len(keys))
	for v, k := range keys {
		kk := make([]byte, len(k))
		copy(kk, k)
		copied[v] = kk
	}
	return &Static{name: name, current: current, keys: copied}, nil
}

func (s *Static) Name() string        { return s.name }
func (s *Static) CurrentVersion() int { return s.current }

// Get returns the key material for version. Unknown versions are an error,
// never a fallback to another version.
func (s *Static) Get(version int) ([]byte, error) {
	key, ok := s.keys[version]
	if !ok {
		return nil, fmt.Errorf("key manager %q has no version %d", s.name, version)
	}
	out := make([]byte, len(key))
	copy(out, key)
	return out, nil
}
