package app

import (
	"encoding/json"
	"fmt"
	"time"

	"stash-go/internal/stash"
)

// entityJSON is the wire form of a file entity for CLI round trips. It
// stands in for the external record store: whatever the upload emits here
// is everything later commands need back. Unlike the entity's own JSON
// view, it carries the per-file random key.
type entityJSON struct {
	FileID           string          `json:"fileid"`
	Filename         string          `json:"filename"`
	OriginalFilename string          `json:"original_filename"`
	Extension        string          `json:"extension"`
	Mimetype         string          `json:"mimetype"`
	Hash             string          `json:"hash"`
	Filesize         int64           `json:"filesize"`
	BucketName       string          `json:"bucketname"`
	Provider         string          `json:"provider"`
	AbsolutePath     *string         `json:"absolute_path"`
	Encrypted        bool            `json:"encrypted"`
	Compressed       bool            `json:"compressed"`
	URIPath          string          `json:"uri_path"`
	Region           string          `json:"region,omitempty"`
	Public           bool            `json:"public"`
	Caption          string          `json:"caption,omitempty"`
	SchemaVersion    int             `json:"schema_version"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Encryption       *encryptionJSON `json:"encryption,omitempty"`
}

type encryptionJSON struct {
	RandomKey []byte `json:"random_key"`
	KeyName   string `json:"key_name"`
	Version   int    `json:"version"`
}

// MarshalEntity encodes an entity, including the encryption metadata needed
// to decrypt it later.
func MarshalEntity(e *stash.Entity) ([]byte, error) {
	out := entityJSON{
		FileID:           e.FileID,
		Filename:         e.Filename,
		OriginalFilename: e.OriginalFilename,
		Extension:        e.Extension,
		Mimetype:         e.Mimetype,
		Hash:             e.Hash,
		Filesize:         e.Filesize,
		BucketName:       e.BucketName,
		Provider:         e.Provider,
		AbsolutePath:     e.AbsolutePath,
		Encrypted:        e.Encrypted,
		Compressed:       e.Compressed,
		URIPath:          e.URIPath,
		Region:           e.Region,
		Public:           e.Public,
		Caption:          e.Caption,
		SchemaVersion:    e.SchemaVersion,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}

	if m, ok := e.GetMeta(stash.MetaKeyEncryption).(*stash.EncryptionMetadata); ok {
		out.Encryption = &encryptionJSON{
			RandomKey: m.RandomKey(),
			KeyName:   m.KeyName(),
			Version:   m.Version(),
		}
	}

	return json.MarshalIndent(out, "", "  ")
}

// UnmarshalEntity decodes an entity previously written by MarshalEntity.
func UnmarshalEntity(data []byte) (*stash.Entity, error) {
	var in entityJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decoding entity: %w", err)
	}

	e := &stash.Entity{
		FileID:           in.FileID,
		Filename:         in.Filename,
		OriginalFilename: in.OriginalFilename,
		Extension:        in.Extension,
		Mimetype:         in.Mimetype,
		Hash:             in.Hash,
		Filesize:         in.Filesize,
		BucketName:       in.BucketName,
		Provider:         in.Provider,
		AbsolutePath:     in.AbsolutePath,
		Encrypted:        in.Encrypted,
		Compressed:       in.Compressed,
		URIPath:          in.URIPath,
		Region:           in.Region,
		Public:           in.Public,
		Caption:          in.Caption,
		SchemaVersion:    in.SchemaVersion,
		CreatedAt:        in.CreatedAt,
		UpdatedAt:        in.UpdatedAt,
	}

	if in.Encryption != nil {
		m, err := stash.NewEncryptionMetadata(in.Encryption.RandomKey, in.Encryption.Version, in.Encryption.KeyName)
		if err != nil {
			return nil, fmt.Errorf("decoding encryption metadata: %w", err)
		}
		e.AddMeta(m)
	}

	return e, nil
}
