package model

// RechercheRequest is the body of POST /recherche
type RechercheRequest struct {
	Prompt string `json:"prompt"`
}

// RechercheResponse is the body answered by POST /recherche
type RechercheResponse struct {
	Success bool        `json:"success"`
	Results []RawRecord `json:"results"`
}

// SearchRequest runs the hero search flow for a session
type SearchRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

// SearchResponse represents the modal state after a submit
type SearchResponse struct {
	SessionID string       `json:"session_id"`
	Stage     Stage        `json:"stage"`
	Query     string       `json:"query"`
	Items     []SearchItem `json:"items"`
	Took      int64        `json:"took_ms"` // Response time in milliseconds
}

// HistoryResponse lists a session's past queries, most recent first
type HistoryResponse struct {
	SessionID string         `json:"session_id"`
	Entries   []HistoryEntry `json:"entries"`
}

// EmbeddingBatchRequest represents a batch embedding update request
type EmbeddingBatchRequest struct {
	Embeddings []EmbeddingItem `json:"embeddings" binding:"required"`
}

// EmbeddingItem is the vector of one search document
type EmbeddingItem struct {
	SourceTable string    `json:"source_table" binding:"required"`
	RecordID    string    `json:"record_id" binding:"required"`
	Embedding   []float32 `json:"embedding" binding:"required"`
}

// EmbeddingBatchResponse represents the response for batch embedding update
type EmbeddingBatchResponse struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}
