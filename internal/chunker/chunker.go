// Package chunker splits extracted document text into overlapping fixed-size
// segments. Splitting prefers paragraph breaks, then line breaks, then spaces,
// then raw characters, so that pieces end on the most natural boundary that
// still satisfies the size bound.
package chunker

import "strings"

// DefaultChunkSize is the default number of characters per segment.
const DefaultChunkSize = 1000

// DefaultOverlap is the default number of characters shared between adjacent
// segments.
const DefaultOverlap = 200

var separators = []string{"\n\n", "\n", " ", ""}

// Chunker is a deterministic, pure text splitter. The same input always
// produces the same output.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the maximum segment length in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between adjacent segments in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Overlap must leave room for forward progress.
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}

	return c
}

// Split breaks text into pieces of at most the configured chunk size, with
// adjacent pieces sharing the trailing overlap of their predecessor. Empty or
// whitespace-only text yields no pieces; text shorter than the chunk size
// yields exactly one piece equal to the input.
func (c *Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if len(text) <= c.chunkSize {
		return []string{text}
	}

	pieces := c.split(text, 0)

	return c.applyOverlap(pieces)
}

// split recursively divides text on the separator at the given priority level
// until every piece satisfies the size bound.
func (c *Chunker) split(text string, level int) []string {
	if len(text) <= c.chunkSize {
		if text == "" {
			return nil
		}
		return []string{text}
	}

	if level >= len(separators) {
		return c.hardSplit(text)
	}

	sep := separators[level]
	if sep == "" {
		return c.hardSplit(text)
	}

	parts := splitKeep(text, sep)
	if len(parts) == 1 {
		// Separator absent, try the next finer one.
		return c.split(text, level+1)
	}

	var out []string
	var pending string

	flush := func() {
		if pending != "" {
			out = append(out, c.split(pending, level+1)...)
			pending = ""
		}
	}

	for _, part := range parts {
		if len(pending)+len(part) <= c.chunkSize {
			pending += part
			continue
		}

		flush()
		pending = part
	}
	flush()

	return out
}

// splitKeep splits text on sep, keeping each separator attached to the piece
// it terminates, so no characters are lost across chunk boundaries.
func splitKeep(text, sep string) []string {
	raw := strings.SplitAfter(text, sep)
	// SplitAfter can produce a trailing empty element when text ends in sep.
	if n := len(raw); n > 0 && raw[n-1] == "" {
		raw = raw[:n-1]
	}
	return raw
}

// hardSplit cuts text at exact character offsets. Last resort when no
// separator produces pieces within the bound.
func (c *Chunker) hardSplit(text string) []string {
	var out []string
	for start := 0; start < len(text); start += c.chunkSize {
		end := start + c.chunkSize
		if end > len(text) {
			end = len(text)
		}
		out = append(out, text[start:end])
	}
	return out
}

// applyOverlap prepends the trailing overlap of each piece to its successor so
// no boundary severs a semantic unit. Pieces are re-bounded afterwards.
func (c *Chunker) applyOverlap(pieces []string) []string {
	if c.overlap == 0 || len(pieces) < 2 {
		return pieces
	}

	out := make([]string, 0, len(pieces))
	out = append(out, pieces[0])

	for i := 1; i < len(pieces); i++ {
		prev := pieces[i-1]
		tail := prev
		if len(prev) > c.overlap {
			tail = prev[len(prev)-c.overlap:]
		}

		joined := tail + pieces[i]
		if len(joined) <= c.chunkSize {
			out = append(out, joined)
			continue
		}

		// Keep the bound: trim the borrowed prefix rather than the piece's
		// own content.
		excess := len(joined) - c.chunkSize
		if excess >= len(tail) {
			out = append(out, pieces[i])
		} else {
			out = append(out, joined[excess:])
		}
	}

	return out
}
