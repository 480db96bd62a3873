// Package secrets provides key managers and the authenticated encryption
// used by storage implementations. Content encryption uses filippo.io/age
// streams keyed by a passphrase derived from the manager's master key and
// a per-file random sub-key, so every file is encrypted under a distinct
// key while the master never touches the file directly.
package secrets

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"filippo.io/age"
)

// FileKeySize is the size of the per-file random sub-key.
const FileKeySize = 32

// The derived passphrase is a full-entropy 256-bit value, so the scrypt
// work factor adds nothing to its strength; a low factor keeps per-file
// encryption setup cheap.
const scryptWorkFactor = 10

// NewFileKey generates a fresh per-file sub-key.
func NewFileKey() ([]byte, error) {
	key := make([]byte, FileKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating file key: %w", err)
	}
	return key, nil
}

// filePassphrase binds the per-file key to the master key.
func filePassphrase(master, fileKey []byte) string {
	mac := hmac.New(sha256.New, master)
	mac.Write(fileKey)
	return hex.EncodeToString(mac.Sum(nil))
}

// EncryptWriter returns a stage that encrypts everything written to it and
// forwards ciphertext to next. Close finalizes the stream without closing
// next. The same (master, fileKey) pair must be presented to DecryptReader.
func EncryptWriter(next io.Writer, master, fileKey []byte) (io.WriteCloser, error) {
	if len(master) == 0 || len(fileKey) == 0 {
		return nil, fmt.Errorf("empty key material")
	}
	recipient, err := age.NewScryptRecipient(filePassphrase(master, fileKey))
	if err != nil {
		return nil, fmt.Errorf("creating recipient: %w", err)
	}
	recipient.SetWorkFactor(scryptWorkFactor)

	w, err := age.Encrypt(next, recipient)
	if err != nil {
		return nil, fmt.Errorf("creating encrypted writer: %w", err)
	}
	return w, nil
}

// DecryptReader wraps src with a decrypting reader. Wrong key material
// fails here with an age header error, never by returning garbage bytes.
func DecryptReader(src io.Reader, master, fileKey []byte) (io.Reader, error) {
	if len(master) == 0 || len(fileKey) == 0 {
		return nil, fmt.Errorf("empty key material")
	}
	identity, err := age.NewScryptIdentity(filePassphrase(master, fileKey))
	if err != nil {
		return nil, fmt.Errorf("creating identity: %w", err)
	}

	r, err := age.Decrypt(src, identity)
	if err != nil {
		return nil, fmt.Errorf("decrypting stream: %w", err)
	}
	return r, nil
}
