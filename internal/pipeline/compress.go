package pipeline

import (
	"io"

	"github.com/klauspost/compress/gzip"
)

// NewGzip returns a compressing stage in front of next. gzip.Writer's
// Close flushes the stream without closing next, which is exactly the
// stage contract.
func NewGzip(next io.Writer) *gzip.Writer {
	return gzip.NewWriter(next)
}

// NewGunzip wraps an at-rest compressed stream for reading back.
func NewGunzip(src io.Reader) (io.ReadCloser, error) {
	r, err := gzip.NewReader(src)
	if err != nil {
		return nil, err
	}
	return r, nil
}
