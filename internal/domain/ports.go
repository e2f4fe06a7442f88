package domain

import (
	"context"
	"time"
)

type PropertyRepository interface {
	// ListProperties returns every property with its account display name.
	ListProperties(ctx context.Context) ([]Property, error)
	GetProperty(ctx context.Context, id string) (Property, error)
	GetHostProfile(ctx context.Context, propertyID string) (*HostProfile, error)
}

type RoomRepository interface {
	// ListActiveRooms returns active rooms of the given properties.
	ListActiveRooms(ctx context.Context, propertyIDs []string) ([]Room, error)
	// ListActiveRoomsByID returns active rooms of one property restricted to ids.
	ListActiveRoomsByID(ctx context.Context, propertyID string, ids []string) ([]Room, error)
	GetRoom(ctx context.Context, propertyID, roomID string) (Room, error)
	ListGuestTiers(ctx context.Context, roomID string) ([]GuestPricingTier, error)
	// ListDateOverrides returns overrides with from <= date < to.
	ListDateOverrides(ctx context.Context, roomID string, from, to time.Time) ([]DatePriceOverride, error)
}

type BookingRepository interface {
	// ListConflicts returns non-cancelled bookings of roomID overlapping [checkIn, checkOut).
	ListConflicts(ctx context.Context, roomID string, checkIn, checkOut time.Time) ([]Booking, error)
	GetBooking(ctx context.Context, id string) (Booking, error)
	// InRoomTx runs fn in one transaction holding an exclusive lock on roomID.
	InRoomTx(ctx context.Context, roomID string, fn func(tx BookingTx) error) error
}

// BookingTx is the write side of a booking, valid only inside InRoomTx.
type BookingTx interface {
	ListConflicts(ctx context.Context, roomID string, checkIn, checkOut time.Time) ([]Booking, error)
	GetOrCreateGuest(ctx context.Context, g GuestLookup) (string, error)
	InsertBooking(ctx context.Context, b Booking) error
}

type AuditRepository interface {
	InsertAudit(ctx context.Context, e AuditEntry) error
	ListAudit(ctx context.Context, q AuditQuery) ([]AuditEntry, error)
}

type CurrencyRepository interface {
	// CurrencyDisplays returns code -> display for the requested codes.
	CurrencyDisplays(ctx context.Context, codes []string) (map[string]string, error)
}

// EmbeddingRepository persists the vectors behind semantic search.
type EmbeddingRepository interface {
	ListEmbeddings(ctx context.Context, propertyID string) ([]Embedding, error)
	// UpsertEmbedding replaces the row keyed by (SourceType, SourceID, ChunkIndex).
	UpsertEmbedding(ctx context.Context, e Embedding) error
}

// Store is the relational data store the core reads and writes.
type Store interface {
	PropertyRepository
	RoomRepository
	BookingRepository
	AuditRepository
	CurrencyRepository
}

// Embedder turns texts into vectors, one per input, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type SourceType string

const (
	SourceProperty       SourceType = "property"
	SourceRoom           SourceType = "room"
	SourceKnowledgeChunk SourceType = "knowledge_chunk"
)

type SemanticHit struct {
	SourceType SourceType
	SourceID   string
	Content    string
	Similarity float64
	Metadata   map[string]any
}

// SemanticSearcher returns items of one property ranked by similarity to text.
type SemanticSearcher interface {
	Search(ctx context.Context, propertyID, text string, limit int, threshold float64) ([]SemanticHit, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// RateLimiter admits or rejects one request for key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
