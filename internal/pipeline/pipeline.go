// Package pipeline composes single-pass stream stages for file ingestion.
// A stage is an io.WriteCloser that transforms or observes bytes before
// forwarding them to the next stage; Close flushes the stage's own state
// without closing its downstream writer. The Chain combinator runs the
// source through every stage exactly once and aborts all of them on the
// first failure.
package pipeline

import "io"

// Chain is an ordered list of stages, outermost first. Each stage wraps
// the next; the last element is the sink.
type Chain struct {
	stages    []io.WriteCloser
	chunkSize int
}

// DefaultChunkSize is the read-buffer hint when the caller provides none.
const DefaultChunkSize = 64 * 1024

// NewChain builds a chain over already-wired stages. The order of stages
// is the close order: outermost (the stage the source is written into)
// first, sink last.
func NewChain(chunkSize int, stages ...io.WriteCloser) *Chain {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Chain{stages: stages, chunkSize: chunkSize}
}

// Run streams src through the chain in chunkSize reads and then closes
// every stage outermost-first, so each stage can flush into the next
// before the next is finalized. The first error (read, write, or close)
// wins; later stages are still closed so no resource leaks, but their
// errors are discarded once one is recorded.
func (c *Chain) Run(src io.Reader) error {
	if len(c.stages) == 0 {
		return nil
	}

	var first error
	top := c.stages[0]
	buf := make([]byte, c.chunkSize)

	// A manual read loop keeps the chunk-size hint honest: io.CopyBuffer
	// would bypass buf for sources implementing WriterTo.
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := top.Write(buf[:n]); werr != nil {
				first = werr
				break
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			first = rerr
			break
		}
	}

	for _, s := range c.stages {
		if cerr := s.Close(); cerr != nil && first == nil {
			first = cerr
		}
	}
	return first
}
