package indexer

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMaxChunkSize is the chunk size used when none is configured, in runes.
	DefaultMaxChunkSize = 500

	sentenceDelimiter = ". "
)

// Split cuts text into passages of at most maxChunkSize runes.
// Sentences (delimited by ". ") are accumulated greedily; a sentence that does
// not fit closes the current passage and starts the next one. A single sentence
// longer than maxChunkSize is emitted whole. Passages are trimmed of surrounding
// whitespace and blank passages are dropped, so empty input yields no chunks.
// Joining the result with a single space reproduces the sentence sequence.
func Split(text string, maxChunkSize int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []string
	var buf strings.Builder
	bufLen := 0

	flush := func() {
		if s := strings.TrimSpace(buf.String()); s != "" {
			chunks = append(chunks, s)
		}
		buf.Reset()
		bufLen = 0
	}

	parts := strings.Split(text, sentenceDelimiter)
	for i, part := range parts {
		piece := part
		// Only re-add the delimiter where Split consumed one.
		if i < len(parts)-1 {
			piece += sentenceDelimiter
		}

		partLen := utf8.RuneCountInString(part)
		if bufLen > 0 && bufLen+partLen >= maxChunkSize {
			flush()
		}
		buf.WriteString(piece)
		bufLen += utf8.RuneCountInString(piece)
	}
	flush()

	return chunks
}

// SplitChunks is Split with each passage tagged by source and position.
func SplitChunks(text, source string, maxChunkSize int) []Chunk {
	texts := Split(text, maxChunkSize)
	chunks := make([]Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = Chunk{Index: i, Source: source, Text: t}
	}
	return chunks
}
