package stash

import "time"

// Entity is the read-side view of a stored file. Records are owned by an
// external persistence layer; this package only consumes the attributes and
// the metadata collection. A nil AbsolutePath means the backing bytes have
// already been removed.
type Entity struct {
	FileID           string
	Filename         string
	OriginalFilename string
	Extension        string
	Mimetype         string
	Hash             string
	Filesize         int64
	BucketName       string
	Provider         string
	AbsolutePath     *string
	Encrypted        bool
	Compressed       bool
	URIPath          string
	Region           string
	Public           bool
	Caption          string
	SchemaVersion    int
	CreatedAt        time.Time
	UpdatedAt        time.Time

	meta     []MetadataValue
	modified bool
}

// GetMeta returns the metadata value stored under key, or nil.
func (e *Entity) GetMeta(key string) MetadataValue {
	for _, m := range e.meta {
		if m.Key() == key {
			return m
		}
	}
	return nil
}

// AddMeta attaches value to the entity. Returns false if a value with the
// same key is already present; existing values are never overwritten.
func (e *Entity) AddMeta(value MetadataValue) bool {
	if value == nil || e.HasMeta(value.Key()) {
		return false
	}
	e.meta = append(e.meta, value)
	e.modified = true
	return true
}

// RemoveMeta detaches the value stored under key, reporting whether one
// was present.
func (e *Entity) RemoveMeta(key string) bool {
	for i, m := range e.meta {
		if m.Key() == key {
			e.meta = append(e.meta[:i], e.meta[i+1:]...)
			e.modified = true
			return true
		}
	}
	return false
}

// HasMeta reports whether a value is stored under key.
func (e *Entity) HasMeta(key string) bool {
	return e.GetMeta(key) != nil
}

// Metadata returns the attached values in insertion order.
func (e *Entity) Metadata() []MetadataValue {
	out := make([]MetadataValue, len(e.meta))
	copy(out, e.meta)
	return out
}

// SameHash reports whether the entity's content digest matches hash.
func (e *Entity) SameHash(hash string) bool {
	return e.Hash != "" && e.Hash == hash
}

// IsModified reports whether the metadata collection changed since the
// entity was loaded.
func (e *Entity) IsModified() bool { return e.modified }

// Readable reports whether the entity's bytes are still accessible.
func (e *Entity) Readable() bool { return e.AbsolutePath != nil }
