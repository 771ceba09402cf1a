// Package chunker splits long documents into bounded, overlapping chunks
// suitable for embedding. Chunk sizes are measured in words.
package chunker

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidOverlap indicates the configured overlap is not smaller than the
// chunk size, which would make the window stride non-positive.
var ErrInvalidOverlap = errors.New("overlap must be smaller than max chunk size")

const (
	// DefaultMaxChunkSize is the default chunk bound in words.
	DefaultMaxChunkSize = 512
	// DefaultOverlap is the default number of words carried across adjacent chunks.
	DefaultOverlap = 50
)

// sentencePattern matches sentences terminated by '.', '!' or '?'.
var sentencePattern = regexp.MustCompile(`(?m)(?U)[^.!?]+[.!?]`)

// Chunker splits text into chunks of at most maxChunkSize words, with
// adjacent chunks sharing the trailing overlap words. The sentence-aware mode
// accumulates whole sentences; the sliding mode is a pure token window.
type Chunker struct {
	maxChunkSize int
	overlap      int
	sentences    bool
}

// New creates a sentence-aware chunker. maxChunkSize must be positive and
// overlap must be non-negative and smaller than maxChunkSize.
func New(maxChunkSize, overlap int) (*Chunker, error) {
	return newChunker(maxChunkSize, overlap, true)
}

// NewSliding creates a chunker that ignores sentence boundaries and uses a
// pure sliding window over whitespace-split tokens.
func NewSliding(maxChunkSize, overlap int) (*Chunker, error) {
	return newChunker(maxChunkSize, overlap, false)
}

func newChunker(maxChunkSize, overlap int, sentences bool) (*Chunker, error) {
	if maxChunkSize <= 0 {
		return nil, fmt.Errorf("max chunk size must be positive, got %d", maxChunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("overlap must be non-negative, got %d", overlap)
	}
	if overlap >= maxChunkSize {
		return nil, fmt.Errorf("%w: overlap %d, max chunk size %d", ErrInvalidOverlap, overlap, maxChunkSize)
	}
	return &Chunker{
		maxChunkSize: maxChunkSize,
		overlap:      overlap,
		sentences:    sentences,
	}, nil
}

// Split breaks text into chunks. Empty or whitespace-only input yields no
// chunks; any input with at least one token yields at least one chunk.
func (c *Chunker) Split(text string) []string {
	if !c.sentences {
		return c.slideWindow(strings.Fields(text))
	}

	var chunks []string
	var current []string

	for _, sentence := range splitSentences(text) {
		words := strings.Fields(sentence)
		if len(words) == 0 {
			continue
		}

		if len(current)+len(words) > c.maxChunkSize && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current = c.carryOverlap(current)
			// The carried words plus the sentence must still fit the
			// budget; drop the oldest carried words when they don't.
			if room := c.maxChunkSize - len(words); len(current) > room {
				if room < 0 {
					room = 0
				}
				current = current[len(current)-room:]
			}
		}

		if len(words) > c.maxChunkSize {
			// A single sentence wider than the chunk bound cannot be kept
			// whole; window-split it so the size invariant holds.
			windows := c.slideWindow(append(current, words...))
			chunks = append(chunks, windows[:len(windows)-1]...)
			current = strings.Fields(windows[len(windows)-1])
			continue
		}

		current = append(current, words...)
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}

// carryOverlap returns the trailing overlap words of a closed chunk, copied
// so the next chunk does not alias the previous one's backing array.
func (c *Chunker) carryOverlap(words []string) []string {
	if c.overlap <= 0 {
		return nil
	}
	start := len(words) - c.overlap
	if start < 0 {
		start = 0
	}
	return append([]string(nil), words[start:]...)
}

// slideWindow chunks tokens with stride maxChunkSize-overlap. The stride is
// always positive because overlap < maxChunkSize is enforced at construction.
func (c *Chunker) slideWindow(words []string) []string {
	if len(words) == 0 {
		return nil
	}
	stride := c.maxChunkSize - c.overlap

	var chunks []string
	for i := 0; i < len(words); i += stride {
		end := i + c.maxChunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}

// splitSentences tokenizes text into sentences on terminal punctuation. Any
// trailing text without a terminator is kept as a final sentence.
func splitSentences(text string) []string {
	matches := sentencePattern.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return []string{trimmed}
		}
		return nil
	}

	sentences := make([]string, 0, len(matches)+1)
	for _, m := range matches {
		if s := strings.TrimSpace(text[m[0]:m[1]]); s != "" {
			sentences = append(sentences, s)
		}
	}
	if rest := strings.TrimSpace(text[matches[len(matches)-1][1]:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}
