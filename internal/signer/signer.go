// Package signer issues and verifies the expiring tokens embedded in
// signed file URLs. The token is base64url("{expires}:{signatureHex}")
// without padding, where the signature is ed25519 over
// "{fileid}:{filename}:{expires}". Verification is stateless: expiry is a
// pure function of the embedded timestamp and the wall clock.
package signer

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"stash-go/internal/stash"
)

// Signer derives ed25519 key pairs from the seeds held by a key manager.
// It carries no per-call state and is safe for concurrent use.
type Signer struct {
	keys  stash.KeyManager
	clock stash.Clock
}

// New creates a Signer over the given signing-seed manager.
func New(keys stash.KeyManager, clock stash.Clock) *Signer {
	return &Signer{keys: keys, clock: clock}
}

// Sign returns a token tying the entity identity to an expiry ttl from
// now. Key material problems surface as a *stash.Fault.
func (s *Signer) Sign(fileid, filename string, ttl time.Duration) (string, error) {
	key, err := s.currentKey()
	if err != nil {
		return "", stash.NewFault(stash.OpSign, err)
	}

	expires := s.clock.Now().Unix() + int64(ttl/time.Second)
	payload := signPayload(fileid, filename, expires)
	signature := hex.EncodeToString(ed25519.Sign(key, []byte(payload)))

	token := fmt.Sprintf("%d:%s", expires, signature)
	return base64.RawURLEncoding.EncodeToString([]byte(token)), nil
}

// Verify checks a token against the entity's current identity. Malformed
// or mismatched tokens return stash.ErrInvalidSignature and stale ones
// stash.ErrExpiredSignature; both are recoverable. Key material problems
// are a *stash.Fault.
func (s *Signer) Verify(fileid, filename, token string) error {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return fmt.Errorf("%w: malformed token", stash.ErrInvalidSignature)
	}

	expiresField, signatureHex, ok := strings.Cut(string(raw), ":")
	if !ok || expiresField == "" || signatureHex == "" {
		return fmt.Errorf("%w: missing token fields", stash.ErrInvalidSignature)
	}

	expires, err := strconv.ParseInt(expiresField, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: malformed expiry", stash.ErrInvalidSignature)
	}
	if s.clock.Now().Unix() > expires {
		return stash.ErrExpiredSignature
	}

	signature, err := hex.DecodeString(signatureHex)
	if err != nil {
		return fmt.Errorf("%w: malformed signature encoding", stash.ErrInvalidSignature)
	}

	key, err := s.currentKey()
	if err != nil {
		return stash.NewFault(stash.OpVerify, err)
	}
	pub, _ := key.Public().(ed25519.PublicKey)

	payload := signPayload(fileid, filename, expires)
	if !ed25519.Verify(pub, []byte(payload), signature) {
		return stash.ErrInvalidSignature
	}
	return nil
}

func signPayload(fileid, filename string, expires int64) string {
	return fmt.Sprintf("%s:%s:%d", fileid, filename, expires)
}

// currentKey derives the private key from the manager's current seed.
func (s *Signer) currentKey() (ed25519.PrivateKey, error) {
	seed, err := s.keys.Get(s.keys.CurrentVersion())
	if err != nil {
		return nil, fmt.Errorf("loading signing seed: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("signing seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return ed25519.NewKeyFromSeed(seed), nil
}
