package stash

import (
	"encoding/json"
	"errors"
)

// MetadataValue is an immutable, keyed attachment describing how a file's
// bytes are stored, without being part of the caller-facing attributes.
// At most one value per key may be attached to an entity.
type MetadataValue interface {
	// Key identifies the value within the entity's metadata collection.
	Key() string

	// Visible reports whether the value may be exposed to end users.
	// Invisible values are still persisted by the owning entity.
	Visible() bool

	// Payload returns every field for persistence, secrets included.
	Payload() map[string]any
}

// MetaKeyEncryption is the collection key for EncryptionMetadata.
const MetaKeyEncryption = "encryption"

// EncryptionMetadata records how a file was encrypted at rest: the per-file
// random sub-key, the name of the key manager that held the master key, and
// the master key version in use at encryption time.
type EncryptionMetadata struct {
	randomKey []byte
	keyName   string
	version   int
}

// NewEncryptionMetadata builds encryption metadata from a per-file sub-key.
func NewEncryptionMetadata(randomKey []byte, version int, keyName string) (*EncryptionMetadata, error) {
	if len(randomKey) == 0 {
		return nil, errors.New("empty random key")
	}
	k := make([]byte, len(randomKey))
	copy(k, randomKey)
	return &EncryptionMetadata{randomKey: k, keyName: keyName, version: version}, nil
}

func (m *EncryptionMetadata) Key() string   { return MetaKeyEncryption }
func (m *EncryptionMetadata) Visible() bool { return false }

// RandomKey returns a copy of the per-file sub-key.
func (m *EncryptionMetadata) RandomKey() []byte {
	k := make([]byte, len(m.randomKey))
	copy(k, m.randomKey)
	return k
}

func (m *EncryptionMetadata) KeyName() string { return m.keyName }
func (m *EncryptionMetadata) Version() int    { return m.version }

// KeyCompatible reports whether manager is the one that encrypted the file.
// Name must match exactly; a mismatch is a hard decryption failure, never a
// silent fallback.
func (m *EncryptionMetadata) KeyCompatible(manager KeyManager) bool {
	return manager.Name() == m.keyName
}

// Payload includes the random key so callers can persist and restore it.
func (m *EncryptionMetadata) Payload() map[string]any {
	return map[string]any{
		"random_key": m.RandomKey(),
		"key_name":   m.keyName,
		"version":    m.version,
	}
}

// MarshalJSON omits the random key. JSON output is the user-facing view;
// persistence goes through Payload.
func (m *EncryptionMetadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"key_name": m.keyName,
		"version":  m.version,
	})
}

var _ MetadataValue = (*EncryptionMetadata)(nil)
