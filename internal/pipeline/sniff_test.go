package pipeline

import (
	"bytes"
	"errors"
	"testing"

	"stash-go/internal/stash"
)

// jpegBytes builds n bytes that sniff as image/jpeg.
func jpegBytes(n int) []byte {
	b := make([]byte, n)
	copy(b, []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00})
	if n >= 2 {
		b[n-2], b[n-1] = 0xFF, 0xD9
	}
	return b
}

// pngBytes builds n bytes that sniff as image/png.
func pngBytes(n int) []byte {
	b := make([]byte, n)
	copy(b, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'})
	return b
}

func TestSniffer_ClassifiesLongStream(t *testing.T) {
	// 5120 bytes in 256-byte chunks: classification must fire mid-stream
	// once the accumulated sample crosses the minimum.
	src := jpegBytes(5120)
	sink := &collectWriter{}
	sniffer := NewSniffer(sink, []string{"image/jpeg"}, 4100, 256)

	chain := NewChain(256, sniffer, sink)
	if err := chain.Run(bytes.NewReader(src)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if sniffer.Mimetype() != "image/jpeg" {
		t.Errorf("Mimetype() = %q, want image/jpeg", sniffer.Mimetype())
	}
	if sniffer.Extension() != "jpg" {
		t.Errorf("Extension() = %q, want jpg", sniffer.Extension())
	}
	if !bytes.Equal(sink.buf.Bytes(), src) {
		t.Error("sniffer altered the byte stream")
	}
}

func TestSniffer_ClassifiesShortFinalChunk(t *testing.T) {
	// 127 bytes with a 128-byte chunk hint: the single short write marks
	// the final chunk and triggers classification inside Write.
	src := jpegBytes(127)
	sink := &collectWriter{}
	sniffer := NewSniffer(sink, []string{"image/jpeg"}, 4100, 128)

	chain := NewChain(128, sniffer, sink)
	if err := chain.Run(bytes.NewReader(src)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sniffer.Mimetype() != "image/jpeg" {
		t.Errorf("Mimetype() = %q, want image/jpeg", sniffer.Mimetype())
	}
}

func TestSniffer_ClassifiesAtCloseForShortStreams(t *testing.T) {
	// 256 bytes in exact 128-byte chunks: no write is ever short, the
	// total never reaches the minimum, so classification must run exactly
	// once over the full buffered content at end of stream.
	src := jpegBytes(256)
	sink := &collectWriter{}
	sniffer := NewSniffer(sink, []string{"image/jpeg"}, 4100, 128)

	chain := NewChain(128, sniffer, sink)
	if err := chain.Run(bytes.NewReader(src)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sniffer.Mimetype() != "image/jpeg" {
		t.Errorf("Mimetype() = %q, want image/jpeg", sniffer.Mimetype())
	}
	if !bytes.Equal(sink.buf.Bytes(), src) {
		t.Error("buffered bytes were not forwarded downstream")
	}
}

func TestSniffer_EndOfStreamFailureAbortsChain(t *testing.T) {
	// Disallowed type, stream shorter than the minimum, exact chunks: the
	// failure can only surface in the end-of-stream flush and must still
	// abort the pipeline even though bytes already reached the sink.
	src := pngBytes(256)
	sink := &collectWriter{}
	sniffer := NewSniffer(sink, []string{"image/jpeg"}, 4100, 128)

	chain := NewChain(128, sniffer, sink)
	err := chain.Run(bytes.NewReader(src))
	if !errors.Is(err, stash.ErrUnsupportedType) {
		t.Fatalf("Run() error = %v, want ErrUnsupportedType", err)
	}
	if sink.buf.Len() == 0 {
		t.Error("bytes forwarded during buffering should have reached the sink")
	}
}

func TestSniffer_RejectsDisallowedType(t *testing.T) {
	src := pngBytes(5000)
	sink := &collectWriter{}
	sniffer := NewSniffer(sink, []string{"image/jpeg"}, 4100, 256)

	err := NewChain(256, sniffer, sink).Run(bytes.NewReader(src))
	if !errors.Is(err, stash.ErrUnsupportedType) {
		t.Fatalf("Run() error = %v, want ErrUnsupportedType", err)
	}
}

func TestSniffer_RejectsUndetectableContent(t *testing.T) {
	src := make([]byte, 5000) // all zeros, no magic number
	sink := &collectWriter{}
	sniffer := NewSniffer(sink, []string{"image/jpeg"}, 4100, 256)

	err := NewChain(256, sniffer, sink).Run(bytes.NewReader(src))
	if !errors.Is(err, stash.ErrUnsupportedType) {
		t.Fatalf("Run() error = %v, want ErrUnsupportedType", err)
	}
}

func TestSniffer_RejectsEmptyStream(t *testing.T) {
	sink := &collectWriter{}
	sniffer := NewSniffer(sink, []string{"image/jpeg"}, 4100, 256)

	err := NewChain(256, sniffer, sink).Run(bytes.NewReader(nil))
	if !errors.Is(err, stash.ErrUnsupportedType) {
		t.Fatalf("Run() error = %v, want ErrUnsupportedType", err)
	}
}

func TestSniffer_PassThroughAfterClassification(t *testing.T) {
	src := jpegBytes(10000)
	sink := &collectWriter{}
	sniffer := NewSniffer(sink, []string{"image/jpeg"}, 4100, 512)

	if err := NewChain(512, sniffer, sink).Run(bytes.NewReader(src)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !bytes.Equal(sink.buf.Bytes(), src) {
		t.Error("post-classification bytes were not passed through untouched")
	}
}
