package models

// Page holds the raw extracted text of one document page.
type Page struct {
	Text       string
	PageNumber int // 1-based
	Source     string
	TotalPages int
}

// Chunk is a bounded slice of a page's text, the unit stored in the vector index.
type Chunk struct {
	Content     string
	Source      string
	PageNumber  int
	ChunkIndex  int // position within the page's chunk sequence, 0-based
	TotalChunks int // sibling count for the same page
}

// SearchResult pairs a chunk with its similarity score for one query.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Citation is a query-time view over a retrieved chunk. Index is the
// retrieval rank, 1-based, re-assigned per query.
type Citation struct {
	Index      int    `json:"index"`
	Source     string `json:"source"`
	PageNumber int    `json:"page_number"`
	ChunkIndex int    `json:"chunk_index"`
	Preview    string `json:"preview"`
}

// QueryResponse is the structured result of one query against the pipeline.
// Model is the only way a consumer can tell which generation path produced
// the answer.
type QueryResponse struct {
	Answer        string     `json:"answer"`
	Citations     []Citation `json:"citations"`
	Question      string     `json:"question"`
	ContextLength int        `json:"context_length"`
	Model         string     `json:"model"`
}
