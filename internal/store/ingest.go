package store

import (
	"fmt"
	"io"
	"time"

	"stash-go/internal/pipeline"
	"stash-go/internal/secrets"
	"stash-go/internal/signer"
	"stash-go/internal/stash"
)

// runIngestion composes Sniffer → Accumulator → (gzip) → (cipher) → sink
// and runs src through it in one pass. Cipher construction failures are
// raised before any byte is written. On success the returned metadata
// lacks only Filepath, which the caller knows.
func runIngestion(src io.Reader, sink io.WriteCloser, popts Options, uopts stash.UploadOptions,
	keys stash.KeyManager) (*stash.UploadMeta, error) {

	var meta []stash.MetadataValue
	stages := []io.WriteCloser{sink}
	next := io.Writer(sink)

	if uopts.Encrypt {
		fileKey, err := secrets.NewFileKey()
		if err != nil {
			return nil, stash.NewFault(stash.OpEncrypt, err)
		}
		encMeta, err := stash.NewEncryptionMetadata(fileKey, keys.CurrentVersion(), keys.Name())
		if err != nil {
			return nil, stash.NewFault(stash.OpEncrypt, err)
		}
		master, err := keys.Get(keys.CurrentVersion())
		if err != nil {
			return nil, stash.NewFault(stash.OpEncrypt, err)
		}
		cipher, err := secrets.EncryptWriter(next, master, fileKey)
		if err != nil {
			return nil, stash.NewFault(stash.OpEncrypt, err)
		}
		meta = append(meta, encMeta)
		stages = append([]io.WriteCloser{cipher}, stages...)
		next = cipher
	}

	if uopts.Compress {
		gz := pipeline.NewGzip(next)
		stages = append([]io.WriteCloser{gz}, stages...)
		next = gz
	}

	acc := pipeline.NewAccumulator(next)
	stages = append([]io.WriteCloser{acc}, stages...)

	sniffer := pipeline.NewSniffer(acc, popts.AllowedTypes, popts.SniffMinBytes, popts.ChunkSize)
	stages = append([]io.WriteCloser{sniffer}, stages...)

	if err := pipeline.NewChain(popts.ChunkSize, stages...).Run(src); err != nil {
		return nil, err
	}

	return &stash.UploadMeta{
		Extension: sniffer.Extension(),
		Mimetype:  sniffer.Mimetype(),
		Hash:      acc.Hash(),
		Size:      acc.Size(),
		Meta:      meta,
	}, nil
}

// openStream reverses the at-rest transforms recorded on the entity:
// decrypt first, then decompress. A missing or foreign encryption record
// is a hard decryption fault, never a silent fallback.
func openStream(raw io.ReadCloser, file *stash.Entity, keys stash.KeyManager) (io.ReadCloser, error) {
	r := io.Reader(raw)

	if file.Encrypted {
		encMeta, _ := file.GetMeta(stash.MetaKeyEncryption).(*stash.EncryptionMetadata)
		if encMeta == nil {
			return nil, stash.NewFault(stash.OpDecrypt, fmt.Errorf("entity %s has no encryption metadata", file.FileID))
		}
		if !encMeta.KeyCompatible(keys) {
			return nil, stash.NewFault(stash.OpDecrypt,
				fmt.Errorf("entity %s was encrypted by %q, active key manager is %q",
					file.FileID, encMeta.KeyName(), keys.Name()))
		}
		master, err := keys.Get(encMeta.Version())
		if err != nil {
			return nil, stash.NewFault(stash.OpDecrypt, err)
		}
		if r, err = secrets.DecryptReader(r, master, encMeta.RandomKey()); err != nil {
			return nil, stash.NewFault(stash.OpDecrypt, err)
		}
	}

	if file.Compressed {
		gz, err := pipeline.NewGunzip(r)
		if err != nil {
			return nil, stash.NewFault(stash.OpDecrypt, err)
		}
		r = gz
	}

	return &wrappedStream{Reader: r, closer: raw}, nil
}

// wrappedStream reads from the transformed reader while Close releases
// the raw source.
type wrappedStream struct {
	io.Reader
	closer io.Closer
}

func (w *wrappedStream) Close() error { return w.closer.Close() }

// signEntity is the shared Sign implementation: compatibility check,
// token issuance, URL composition.
func signEntity(s stash.Storage, sg *signer.Signer, file *stash.Entity, base string, ttl time.Duration) (*stash.SignedURL, error) {
	if err := stash.CheckCompatible(s, file); err != nil {
		return nil, err
	}
	token, err := sg.Sign(file.FileID, file.Filename, ttl)
	if err != nil {
		return nil, err
	}
	urls, err := signer.URLs(base, file.URIPath, file.Filename, file.Extension, file.FileID, token)
	if err != nil {
		return nil, stash.NewFault(stash.OpSign, err)
	}
	return urls, nil
}

// checkEntitySignature is the shared CheckSignature implementation.
func checkEntitySignature(s stash.Storage, sg *signer.Signer, file *stash.Entity, token string) error {
	if err := stash.CheckCompatible(s, file); err != nil {
		return err
	}
	return sg.Verify(file.FileID, file.Filename, token)
}
