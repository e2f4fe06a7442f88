// Package apptest holds an in-memory store and a seeded fixture for tests of the services and front doors.
package apptest

import (
	"context"
	"sort"
	"sync"
	"time"

	"monobook/internal/domain"
)

// MemStore is an in-memory domain.Store. InRoomTx serializes writers like a row lock would.
type MemStore struct {
	mu        sync.Mutex
	txMu      sync.Mutex
	Props     []domain.Property
	Hosts     map[string]domain.HostProfile
	Rooms     []domain.Room
	Tiers     []domain.GuestPricingTier
	Overrides []domain.DatePriceOverride
	Bookings  []domain.Booking
	Guests    []domain.Guest
	Audit     []domain.AuditEntry
	Displays  map[string]string
	Vectors   []domain.Embedding

	FailRooms    error
	FailAudit    error
	FailUpsert   error
	DisplayCalls int
	// BeforeInsert runs inside InRoomTx right before the conflict re-check.
	BeforeInsert func()
}

func (s *MemStore) ListProperties(context.Context) ([]domain.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Property(nil), s.Props...), nil
}

func (s *MemStore) GetProperty(_ context.Context, id string) (domain.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.Props {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Property{}, domain.ErrNotFound
}

func (s *MemStore) GetHostProfile(_ context.Context, propertyID string) (*domain.HostProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if hp, ok := s.Hosts[propertyID]; ok {
		return &hp, nil
	}
	return nil, nil
}

func (s *MemStore) ListActiveRooms(_ context.Context, propertyIDs []string) ([]domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailRooms != nil {
		return nil, s.FailRooms
	}
	want := map[string]bool{}
	for _, id := range propertyIDs {
		want[id] = true
	}
	var out []domain.Room
	for _, r := range s.Rooms {
		if want[r.PropertyID] && r.Status == domain.RoomActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemStore) ListActiveRoomsByID(_ context.Context, propertyID string, ids []string) ([]domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []domain.Room
	for _, r := range s.Rooms {
		if r.PropertyID == propertyID && want[r.ID] && r.Status == domain.RoomActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemStore) GetRoom(_ context.Context, propertyID, roomID string) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.Rooms {
		if r.ID == roomID && r.PropertyID == propertyID {
			return r, nil
		}
	}
	return domain.Room{}, domain.ErrNotFound
}

func (s *MemStore) ListGuestTiers(_ context.Context, roomID string) ([]domain.GuestPricingTier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.GuestPricingTier
	for _, t := range s.Tiers {
		if t.RoomID == roomID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *MemStore) ListDateOverrides(_ context.Context, roomID string, from, to time.Time) ([]domain.DatePriceOverride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.DatePriceOverride
	for _, o := range s.Overrides {
		if o.RoomID == roomID && !o.Date.Before(from) && o.Date.Before(to) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *MemStore) listConflicts(roomID string, ci, co time.Time) []domain.Booking {
	var out []domain.Booking
	for _, b := range s.Bookings {
		if b.RoomID == roomID && b.Status != domain.BookingCancelled && b.CheckIn.Before(co) && b.CheckOut.After(ci) {
			out = append(out, b)
		}
	}
	return out
}

func (s *MemStore) ListConflicts(_ context.Context, roomID string, ci, co time.Time) ([]domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listConflicts(roomID, ci, co), nil
}

func (s *MemStore) GetBooking(_ context.Context, id string) (domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.Bookings {
		if b.ID == id {
			return b, nil
		}
	}
	return domain.Booking{}, domain.ErrNotFound
}

func (s *MemStore) InRoomTx(ctx context.Context, roomID string, fn func(tx domain.BookingTx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	if s.BeforeInsert != nil {
		s.BeforeInsert()
	}
	tx := &memTx{s: s}
	if err := fn(tx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Guests = append(s.Guests, tx.guests...)
	s.Bookings = append(s.Bookings, tx.bookings...)
	return nil
}

// memTx buffers writes until commit.
type memTx struct {
	s        *MemStore
	guests   []domain.Guest
	bookings []domain.Booking
}

func (t *memTx) ListConflicts(ctx context.Context, roomID string, ci, co time.Time) ([]domain.Booking, error) {
	return t.s.ListConflicts(ctx, roomID, ci, co)
}

func (t *memTx) GetOrCreateGuest(_ context.Context, g domain.GuestLookup) (string, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, existing := range append(append([]domain.Guest(nil), t.s.Guests...), t.guests...) {
		if existing.PropertyID != g.PropertyID || existing.Name != g.Name {
			continue
		}
		if g.Email != nil && (existing.Email == nil || *existing.Email != *g.Email) {
			continue
		}
		return existing.ID, nil
	}
	id := "guest-" + g.Name
	if g.Email != nil {
		id += "-" + *g.Email
	}
	t.guests = append(t.guests, domain.Guest{ID: id, PropertyID: g.PropertyID, Name: g.Name, Email: g.Email})
	return id, nil
}

func (t *memTx) InsertBooking(_ context.Context, b domain.Booking) error {
	t.bookings = append(t.bookings, b)
	return nil
}

func (s *MemStore) InsertAudit(_ context.Context, e domain.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAudit != nil {
		return s.FailAudit
	}
	s.Audit = append(s.Audit, e)
	return nil
}

func (s *MemStore) ListAudit(_ context.Context, q domain.AuditQuery) ([]domain.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AuditEntry
	for _, e := range s.Audit {
		if e.PropertyID != q.PropertyID {
			continue
		}
		if q.Source != nil && e.Source != *q.Source {
			continue
		}
		if q.Before != nil {
			older := e.CreatedAt.Before(q.Before.CreatedAt) ||
				(e.CreatedAt.Equal(q.Before.CreatedAt) && e.ID < q.Before.ID)
			if !older {
				continue
			}
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *MemStore) CurrencyDisplays(_ context.Context, codes []string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DisplayCalls++
	out := map[string]string{}
	for _, c := range codes {
		if d, ok := s.Displays[c]; ok {
			out[c] = d
		}
	}
	return out, nil
}

// AddBooking stores b as if another writer had committed it.
func (s *MemStore) ListEmbeddings(_ context.Context, propertyID string) ([]domain.Embedding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Embedding
	for _, e := range s.Vectors {
		if e.PropertyID == propertyID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemStore) UpsertEmbedding(_ context.Context, e domain.Embedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUpsert != nil {
		return s.FailUpsert
	}
	for i, x := range s.Vectors {
		if x.SourceType == e.SourceType && x.SourceID == e.SourceID && x.ChunkIndex == e.ChunkIndex {
			s.Vectors[i] = e
			return nil
		}
	}
	s.Vectors = append(s.Vectors, e)
	return nil
}

func (s *MemStore) AddBooking(b domain.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Bookings = append(s.Bookings, b)
}

func (s *MemStore) BookingsFor(roomID string) []domain.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Booking
	for _, b := range s.Bookings {
		if b.RoomID == roomID {
			out = append(out, b)
		}
	}
	return out
}

func (s *MemStore) AuditFor(tool string) []domain.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.AuditEntry
	for _, e := range s.Audit {
		if e.ToolName == tool {
			out = append(out, e)
		}
	}
	return out
}

// Semantic returns canned hits or an error.
type Semantic struct {
	Hits []domain.SemanticHit
	Err  error
	// Limit and Threshold record the arguments and threshold of the last call.
	Limit     int
	Threshold float64
}

func (f *Semantic) Search(_ context.Context, _ string, _ string, limit int, threshold float64) ([]domain.SemanticHit, error) {
	f.Limit, f.Threshold = limit, threshold
	return f.Hits, f.Err
}

