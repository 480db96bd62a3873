package stash

// KeyManager provides lookup of versioned cryptographic key material by
// name. Implementations must be read-only after construction so they are
// safe to share between concurrent operations.
type KeyManager interface {
	// Name identifies the manager. Decryption requires the active
	// manager's name to match the name recorded at encryption time.
	Name() string

	// CurrentVersion is the version new encryptions are keyed with.
	CurrentVersion() int

	// Get returns the key material for a specific version.
	Get(version int) ([]byte, error)
}
