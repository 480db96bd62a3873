package secrets

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"filippo.io/age"
)

// Key files live as <dir>/<name>.v<N>.key, one version per file, holding
// the hex-encoded key. Protected files are the same content encrypted with
// age's scrypt passphrase encryption; the age intro line identifies them.

const ageIntro = "age-encryption.org/v1"

// ErrPassphraseRequired is returned when key files are passphrase
// protected and none was supplied.
var ErrPassphraseRequired = errors.New("key files are passphrase protected")

func keyFileName(name string, version int) string {
	return fmt.Sprintf("%s.v%d.key", name, version)
}

// IsProtected reports whether the named key material is passphrase
// protected, by inspecting the first version file found.
func IsProtected(dir, name string) (bool, error) {
	versions, err := listVersions(dir, name)
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(filepath.Join(dir, keyFileName(name, versions[0])))
	if err != nil {
		return false, fmt.Errorf("reading key file: %w", err)
	}
	return bytes.HasPrefix(data, []byte(ageIntro)), nil
}

// Load reads every version of the named key material from dir and returns
// an immutable manager with the highest version current. passphrase may be
// empty for unprotected files.
func Load(dir, name, passphrase string) (*Static, error) {
	versions, err := listVersions(dir, name)
	if err != nil {
		return nil, err
	}

	keys := make(map[int][]byte, len(versions))
	current := 0
	for _, v := range versions {
		key, err := readKeyFile(filepath.Join(dir, keyFileName(name, v)), passphrase)
		if err != nil {
			return nil, fmt.Errorf("loading %s version %d: %w", name, v, err)
		}
		keys[v] = key
		if v > current {
			current = v
		}
	}
	return NewStatic(name, current, keys)
}

// Init generates version 1 of the named key material. With a passphrase
// the file is written age-encrypted. Fails if any version already exists.
func Init(dir, name, passphrase string) error {
	if _, err := listVersions(dir, name); err == nil {
		return fmt.Errorf("key material %q already exists in %s", name, dir)
	}
	return writeKeyFile(dir, name, 1, passphrase)
}

// Rotate adds a fresh key one version above the current highest. Existing
// versions stay readable so previously encrypted files remain decryptable.
func Rotate(dir, name, passphrase string) (int, error) {
	versions, err := listVersions(dir, name)
	if err != nil {
		return 0, err
	}
	next := versions[len(versions)-1] + 1
	if err := writeKeyFile(dir, name, next, passphrase); err != nil {
		return 0, err
	}
	return next, nil
}

func writeKeyFile(dir, name string, version int, passphrase string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}

	key, err := NewFileKey()
	if err != nil {
		return err
	}
	content := []byte(hex.EncodeToString(key) + "\n")

	if passphrase != "" {
		recipient, err := age.NewScryptRecipient(passphrase)
		if err != nil {
			return fmt.Errorf("creating scrypt recipient: %w", err)
		}
		var buf bytes.Buffer
		w, err := age.Encrypt(&buf, recipient)
		if err != nil {
			return fmt.Errorf("creating encrypted writer: %w", err)
		}
		if _, err := w.Write(content); err != nil {
			return fmt.Errorf("encrypting key file: %w", err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("finalizing key file encryption: %w", err)
		}
		content = buf.Bytes()
	}

	path := filepath.Join(dir, keyFileName(name, version))
	if err := os.WriteFile(path, content, 0600); err != nil {
		return fmt.Errorf("writing key file: %w", err)
	}
	return nil
}

func readKeyFile(path, passphrase string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}

	if bytes.HasPrefix(data, []byte(ageIntro)) {
		if passphrase == "" {
			return nil, ErrPassphraseRequired
		}
		identity, err := age.NewScryptIdentity(passphrase)
		if err != nil {
			return nil, fmt.Errorf("creating scrypt identity: %w", err)
		}
		r, err := age.Decrypt(bytes.NewReader(data), identity)
		if err != nil {
			return nil, fmt.Errorf("unlocking key file: %w", err)
		}
		if data, err = io.ReadAll(r); err != nil {
			return nil, fmt.Errorf("reading unlocked key file: %w", err)
		}
	}

	key, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("decoding key file: %w", err)
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("key file is empty")
	}
	return key, nil
}

// listVersions returns the sorted versions present for name, erroring when
// none exist.
func listVersions(dir, name string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading key directory: %w", err)
	}

	var versions []int
	prefix := name + ".v"
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) || !strings.HasSuffix(e.Name(), ".key") {
			continue
		}
		v, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(e.Name(), prefix), ".key"))
		if err != nil || v < 1 {
			continue
		}
		versions = append(versions, v)
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("no key files for %q in %s", name, dir)
	}

	sort.Ints(versions)
	return versions, nil
}
