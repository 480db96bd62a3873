package stash

import "testing"

func newEncMeta(t *testing.T) *EncryptionMetadata {
	t.Helper()
	m, err := NewEncryptionMetadata(make([]byte, 32), 1, "secrets")
	if err != nil {
		t.Fatalf("NewEncryptionMetadata() error = %v", err)
	}
	return m
}

func TestEntity_MetaCollection(t *testing.T) {
	e := &Entity{}
	m := newEncMeta(t)

	if e.HasMeta(MetaKeyEncryption) {
		t.Fatal("HasMeta() = true on empty entity")
	}
	if !e.AddMeta(m) {
		t.Fatal("AddMeta() = false, want true")
	}
	if e.AddMeta(m) {
		t.Error("AddMeta() = true for duplicate key, want false")
	}
	if got := e.GetMeta(MetaKeyEncryption); got != MetadataValue(m) {
		t.Errorf("GetMeta() = %v, want the added value", got)
	}
	if !e.IsModified() {
		t.Error("IsModified() = false after AddMeta")
	}
	if !e.RemoveMeta(MetaKeyEncryption) {
		t.Error("RemoveMeta() = false, want true")
	}
	if e.RemoveMeta(MetaKeyEncryption) {
		t.Error("RemoveMeta() = true for absent key, want false")
	}
	if got := len(e.Metadata()); got != 0 {
		t.Errorf("len(Metadata()) = %d, want 0", got)
	}
}

func TestEntity_SameHash(t *testing.T) {
	e := &Entity{Hash: "abc"}
	if !e.SameHash("abc") {
		t.Error("SameHash(abc) = false, want true")
	}
	if e.SameHash("def") {
		t.Error("SameHash(def) = true, want false")
	}
	empty := &Entity{}
	if empty.SameHash("") {
		t.Error("SameHash on empty hash = true, want false")
	}
}

func TestEntity_Readable(t *testing.T) {
	path := "/tmp/x"
	e := &Entity{AbsolutePath: &path}
	if !e.Readable() {
		t.Error("Readable() = false with path set")
	}
	e.AbsolutePath = nil
	if e.Readable() {
		t.Error("Readable() = true with nil path")
	}
}

func TestEncryptionMetadata(t *testing.T) {
	key := []byte{1, 2, 3, 4}
	m, err := NewEncryptionMetadata(key, 3, "master")
	if err != nil {
		t.Fatalf("NewEncryptionMetadata() error = %v", err)
	}

	// Mutating the caller's slice must not affect the stored copy.
	key[0] = 99
	if got := m.RandomKey(); got[0] != 1 {
		t.Errorf("RandomKey()[0] = %d, want 1", got[0])
	}

	if m.Key() != MetaKeyEncryption {
		t.Errorf("Key() = %q, want %q", m.Key(), MetaKeyEncryption)
	}
	if m.Visible() {
		t.Error("Visible() = true, want false")
	}
	if m.Version() != 3 || m.KeyName() != "master" {
		t.Errorf("Version()/KeyName() = %d/%q, want 3/master", m.Version(), m.KeyName())
	}

	if _, err := NewEncryptionMetadata(nil, 1, "x"); err == nil {
		t.Error("NewEncryptionMetadata(nil) error = nil, want error")
	}

	payload := m.Payload()
	if _, ok := payload["random_key"]; !ok {
		t.Error("Payload() missing random_key")
	}
}

func TestEncryptionMetadata_MarshalJSON(t *testing.T) {
	m := newEncMeta(t)
	data, err := m.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	if s := string(data); s != `{"key_name":"secrets","version":1}` {
		t.Errorf("MarshalJSON() = %s", s)
	}
}
