package domain

import "time"

// Embedding is one indexed chunk of a property, room or knowledge document.
type Embedding struct {
	ID         string
	PropertyID string
	SourceType SourceType
	SourceID   string
	ChunkIndex int
	Content    string
	Metadata   map[string]any
	Vector     []float32
	Model      string
	UpdatedAt  time.Time
}
