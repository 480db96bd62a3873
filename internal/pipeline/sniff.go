package pipeline

import (
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"stash-go/internal/stash"
)

// DefaultSniffBytes is the minimum sample size before classification is
// attempted. Content-type detectors need a few KiB of leading bytes to
// recognize magic numbers reliably.
const DefaultSniffBytes = 4100

// Sniffer classifies content type from a stream's leading bytes and
// validates the result against an allow-list. Bytes are never held back:
// every chunk is forwarded downstream immediately, and a copy of the
// leading chunks is retained only until one contiguous sample can be
// presented to the detector. After classification all writes pass through
// untouched.
//
// Classification runs exactly once: when the accumulated size reaches the
// minimum, when a shorter-than-chunk-size write marks the stream's final
// chunk, or at Close for streams shorter than the minimum. A negative
// result aborts the whole chain with stash.ErrUnsupportedType.
type Sniffer struct {
	next      io.Writer
	allowed   []string
	minBytes  int
	chunkSize int

	sample     []byte
	seen       int
	classified bool
	mime       string
	ext        string
}

// NewSniffer creates a sniffing stage in front of next. minBytes and
// chunkSize fall back to DefaultSniffBytes and DefaultChunkSize.
func NewSniffer(next io.Writer, allowed []string, minBytes, chunkSize int) *Sniffer {
	if minBytes <= 0 {
		minBytes = DefaultSniffBytes
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Sniffer{next: next, allowed: allowed, minBytes: minBytes, chunkSize: chunkSize}
}

func (s *Sniffer) Write(p []byte) (int, error) {
	if s.classified {
		return s.next.Write(p)
	}

	s.seen += len(p)
	finalChunk := len(p) < s.chunkSize

	if s.seen >= s.minBytes || finalChunk {
		sample := p
		if len(s.sample) > 0 {
			sample = append(s.sample, p...)
		}
		if err := s.classify(sample); err != nil {
			return 0, err
		}
		s.sample = nil
	} else {
		s.sample = append(s.sample, p...)
	}

	return s.next.Write(p)
}

// Close runs the end-of-stream classification for streams that never
// reached the minimum sample size. Bytes already forwarded downstream
// cannot be recalled at this point; the sink's failure path is responsible
// for discarding partial output when the returned error aborts the chain.
func (s *Sniffer) Close() error {
	if s.classified {
		return nil
	}
	return s.classify(s.sample)
}

func (s *Sniffer) classify(sample []byte) error {
	detected := mimetype.Detect(sample)
	for _, allow := range s.allowed {
		if detected.Is(allow) {
			s.mime = allow
			s.ext = strings.TrimPrefix(detected.Extension(), ".")
			if s.ext == "" {
				s.ext = "bin"
			}
			s.classified = true
			return nil
		}
	}
	if detected.Is("application/octet-stream") {
		return fmt.Errorf("%w: content type could not be detected (allowed: %s)",
			stash.ErrUnsupportedType, strings.Join(s.allowed, ", "))
	}
	return fmt.Errorf("%w: %s is not allowed (allowed: %s)",
		stash.ErrUnsupportedType, detected.String(), strings.Join(s.allowed, ", "))
}

// Mimetype returns the allow-listed MIME string chosen by classification.
// Valid only after a successful classification.
func (s *Sniffer) Mimetype() string { return s.mime }

// Extension returns the detector's extension for the classified type,
// without the leading dot.
func (s *Sniffer) Extension() string { return s.ext }
