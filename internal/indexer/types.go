package indexer

// Chunk is a bounded-size passage of a source document.
type Chunk struct {
	Index  int    // Chunk index within the source (starts at 0)
	Source string // Source identifier the chunk was cut from
	Text   string // Chunk text content
}
