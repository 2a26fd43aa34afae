package model

// SearchItem is the display-ready shape every raw record is normalized into
type SearchItem struct {
	ID          RecordID `json:"id"`
	Title       string   `json:"title"`
	Image       string   `json:"image,omitempty"`
	Route       string   `json:"route"`
	Type        string   `json:"type,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Location    string   `json:"location,omitempty"`
	SourceTable string   `json:"source_table"`
	Similarity  *float64 `json:"similarity,omitempty"`
}

// Stage is the coarse-grained mode of the search modal
type Stage string

const (
	StageIdle    Stage = "idle"
	StageLoading Stage = "loading"
	StageResults Stage = "results"
)

// HistoryEntry is one persisted past query, date in epoch milliseconds
type HistoryEntry struct {
	Q    string `json:"q"`
	Date int64  `json:"date"`
}
