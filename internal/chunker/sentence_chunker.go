package chunker

import (
	"strings"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// Defaults match the chunking parameters the ingestion pipeline was tuned
// with: ten sentences per chunk, three shared with the previous chunk.
const (
	DefaultChunkSize = 10
	DefaultOverlap   = 3
)

// SentenceChunker splits text into overlapping windows of whole sentences.
// Sentence boundaries come from a Punkt tokenizer rather than naive
// period-splitting, so abbreviations and decimals do not break sentences.
type SentenceChunker struct {
	chunkSize int
	overlap   int
	tokenizer *sentences.DefaultSentenceTokenizer
}

// NewSentenceChunker builds a chunker with the given window size and overlap,
// both in sentences. Out-of-range values are clamped: chunkSize <= 0 falls
// back to DefaultChunkSize, overlap < 0 to 0, and overlap >= chunkSize to
// chunkSize-1 so the window always advances.
func NewSentenceChunker(chunkSize, overlap int) (*SentenceChunker, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}
	tok, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, err
	}
	return &SentenceChunker{chunkSize: chunkSize, overlap: overlap, tokenizer: tok}, nil
}

// Overlap returns the number of sentences shared between consecutive chunks.
func (c *SentenceChunker) Overlap() int { return c.overlap }

// Sentences segments text into trimmed, non-empty sentences.
func (c *SentenceChunker) Sentences(text string) []string {
	var out []string
	for _, s := range c.tokenizer.Tokenize(text) {
		t := strings.TrimSpace(s.Text)
		if t == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Chunk slides a window of chunkSize sentences over the text, advancing by
// chunkSize-overlap each step, and joins each window with single spaces.
// The final chunk may be shorter; empty input yields no chunks.
func (c *SentenceChunker) Chunk(text string) []string {
	sents := c.Sentences(text)
	if len(sents) == 0 {
		return nil
	}
	step := c.chunkSize - c.overlap
	var chunks []string
	for start := 0; start < len(sents); start += step {
		end := start + c.chunkSize
		if end > len(sents) {
			end = len(sents)
		}
		chunks = append(chunks, strings.Join(sents[start:end], " "))
	}
	return chunks
}
