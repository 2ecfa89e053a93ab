package rag

// NoContextFound is returned by Retrieve when the index holds nothing to match.
const NoContextFound = "No relevant document context found."

// DefaultK is the number of passages retrieved per question.
const DefaultK = 3

// Passage is one retrieved chunk with its provenance.
type Passage struct {
	// Text is the chunk text as stored in the index.
	Text string `json:"text"`
	// Source identifies the document the chunk came from.
	Source string `json:"source"`
	// ChunkIndex is the chunk's position within its source.
	ChunkIndex int `json:"chunk_index"`
	// Score is the cosine similarity to the question, higher is closer.
	Score float32 `json:"score"`
	// Rank is 1-based.
	Rank int `json:"rank"`
}
