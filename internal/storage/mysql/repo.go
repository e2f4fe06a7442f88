package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"monobook/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func valJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func nullStr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullF64(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}

// inPlaceholders returns "(?,?,...)" for n values.
func inPlaceholders(n int) string {
	return "(" + strings.TrimSuffix(strings.Repeat("?,", n), ",") + ")"
}

func stringArgs(xs []string) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// -----------------------------------------------------------------------------
// properties
// -----------------------------------------------------------------------------

func scanProperty(s scanner) (domain.Property, error) {
	var p domain.Property
	var desc, city, country sql.NullString
	var lat, lng, rating sql.NullFloat64
	if err := s.Scan(&p.ID, &p.AccountID, &p.Name, &desc, &city, &country, &lat, &lng, &rating); err != nil {
		return domain.Property{}, err
	}
	p.Description = desc.String
	p.City, p.Country = nullStr(city), nullStr(country)
	p.Lat, p.Lng, p.Rating = nullF64(lat), nullF64(lng), nullF64(rating)
	return p, nil
}

func (r *Repo) ListProperties(ctx context.Context) ([]domain.Property, error) {
	rows, err := r.db.QueryContext(ctx, listPropertiesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) GetProperty(ctx context.Context, id string) (domain.Property, error) {
	p, err := scanProperty(r.db.QueryRowContext(ctx, getPropertySQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Property{}, domain.ErrNotFound
	}
	return p, err
}

// GetHostProfile returns nil without error when the property has no host profile.
func (r *Repo) GetHostProfile(ctx context.Context, propertyID string) (*domain.HostProfile, error) {
	var hp domain.HostProfile
	var bio sql.NullString
	var rating sql.NullFloat64
	err := r.db.QueryRowContext(ctx, getHostProfileSQL, propertyID).
		Scan(&hp.PropertyID, &hp.Name, &bio, &hp.Superhost, &rating)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	hp.Bio = bio.String
	hp.Rating = nullF64(rating)
	return &hp, nil
}

// -----------------------------------------------------------------------------
// rooms & pricing
// -----------------------------------------------------------------------------

func scanRoom(s scanner) (domain.Room, error) {
	var rm domain.Room
	var desc, currency, bed sql.NullString
	var amenities, images []byte
	var status string
	if err := s.Scan(&rm.ID, &rm.PropertyID, &rm.Name, &rm.Type, &desc, &rm.PricePerNight, &currency,
		&rm.MaxGuests, &bed, &amenities, &images, &status, &rm.CreatedAt); err != nil {
		return domain.Room{}, err
	}
	rm.Description = desc.String
	rm.CurrencyCode = currency.String
	rm.BedConfig = bed.String
	rm.Status = domain.RoomStatus(status)
	if len(amenities) > 0 {
		if err := json.Unmarshal(amenities, &rm.Amenities); err != nil {
			return domain.Room{}, fmt.Errorf("room %s amenities: %w", rm.ID, err)
		}
	}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &rm.Images); err != nil {
			return domain.Room{}, fmt.Errorf("room %s images: %w", rm.ID, err)
		}
	}
	return rm, nil
}

func (r *Repo) queryRooms(ctx context.Context, query string, args ...any) ([]domain.Room, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Room
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}

func (r *Repo) ListActiveRooms(ctx context.Context, propertyIDs []string) ([]domain.Room, error) {
	if len(propertyIDs) == 0 {
		return nil, nil
	}
	q := listActiveRoomsPrefix + inPlaceholders(len(propertyIDs)) + "\nORDER BY property_id, price_per_night, id"
	return r.queryRooms(ctx, q, stringArgs(propertyIDs)...)
}

func (r *Repo) ListActiveRoomsByID(ctx context.Context, propertyID string, ids []string) ([]domain.Room, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := listActiveRoomsByIDPrefix + inPlaceholders(len(ids))
	args := append([]any{propertyID}, stringArgs(ids)...)
	return r.queryRooms(ctx, q, args...)
}

func (r *Repo) GetRoom(ctx context.Context, propertyID, roomID string) (domain.Room, error) {
	rm, err := scanRoom(r.db.QueryRowContext(ctx, getRoomSQL, propertyID, roomID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Room{}, domain.ErrNotFound
	}
	return rm, err
}

func (r *Repo) ListGuestTiers(ctx context.Context, roomID string) ([]domain.GuestPricingTier, error) {
	rows, err := r.db.QueryContext(ctx, listGuestTiersSQL, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.GuestPricingTier
	for rows.Next() {
		var t domain.GuestPricingTier
		if err := rows.Scan(&t.RoomID, &t.MinGuests, &t.MaxGuests, &t.PricePerNight); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repo) ListDateOverrides(ctx context.Context, roomID string, from, to time.Time) ([]domain.DatePriceOverride, error) {
	rows, err := r.db.QueryContext(ctx, listDateOverridesSQL, roomID, from.Format(time.DateOnly), to.Format(time.DateOnly))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DatePriceOverride
	for rows.Next() {
		var o domain.DatePriceOverride
		if err := rows.Scan(&o.RoomID, &o.Date, &o.Price); err != nil {
			return nil, err
		}
		o.Date = o.Date.UTC()
		out = append(out, o)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------
// bookings
// -----------------------------------------------------------------------------

func scanBooking(s scanner) (domain.Booking, error) {
	var b domain.Booking
	var guestName, conv sql.NullString
	var status, source string
	if err := s.Scan(&b.ID, &b.PropertyID, &b.RoomID, &b.GuestID, &guestName, &b.CheckIn, &b.CheckOut,
		&b.TotalPrice, &status, &b.AIHandled, &source, &conv, &b.CreatedAt); err != nil {
		return domain.Booking{}, err
	}
	b.GuestName, b.ConversationID = nullStr(guestName), nullStr(conv)
	b.Status = domain.BookingStatus(status)
	b.Source = domain.Channel(source)
	b.CheckIn, b.CheckOut = b.CheckIn.UTC(), b.CheckOut.UTC()
	return b, nil
}

func listConflicts(ctx context.Context, q queryer, roomID string, checkIn, checkOut time.Time) ([]domain.Booking, error) {
	rows, err := q.QueryContext(ctx, listConflictsSQL, roomID, checkOut.Format(time.DateOnly), checkIn.Format(time.DateOnly))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repo) ListConflicts(ctx context.Context, roomID string, checkIn, checkOut time.Time) ([]domain.Booking, error) {
	return listConflicts(ctx, r.db, roomID, checkIn, checkOut)
}

func (r *Repo) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, getBookingSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, err
}

// InRoomTx locks the room row for the lifetime of fn. fn's error rolls back.
func (r *Repo) InRoomTx(ctx context.Context, roomID string, fn func(tx domain.BookingTx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked string
	if err = tx.QueryRowContext(ctx, lockRoomSQL, roomID).Scan(&locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = domain.ErrNotFound
		}
		return err
	}
	if err = fn(&bookingTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

type bookingTx struct{ tx *sql.Tx }

func (b *bookingTx) ListConflicts(ctx context.Context, roomID string, checkIn, checkOut time.Time) ([]domain.Booking, error) {
	return listConflicts(ctx, b.tx, roomID, checkIn, checkOut)
}

func (b *bookingTx) GetOrCreateGuest(ctx context.Context, g domain.GuestLookup) (string, error) {
	var id string
	var err error
	if g.Email != nil {
		err = b.tx.QueryRowContext(ctx, findGuestByEmailSQL, g.PropertyID, g.Name, *g.Email).Scan(&id)
	} else {
		err = b.tx.QueryRowContext(ctx, findGuestSQL, g.PropertyID, g.Name).Scan(&id)
	}
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	id = uuid.NewString()
	if _, err := b.tx.ExecContext(ctx, insertGuestSQL, id, g.PropertyID, g.Name, valStr(g.Email)); err != nil {
		return "", err
	}
	return id, nil
}

func (b *bookingTx) InsertBooking(ctx context.Context, bk domain.Booking) error {
	_, err := b.tx.ExecContext(ctx, insertBookingSQL,
		bk.ID,
		bk.PropertyID,
		bk.RoomID,
		bk.GuestID,
		bk.CheckIn.Format(time.DateOnly),
		bk.CheckOut.Format(time.DateOnly),
		bk.TotalPrice,
		string(bk.Status),
		bk.AIHandled,
		string(bk.Source),
		valStr(bk.ConversationID),
		bk.CreatedAt,
	)
	return err
}

// -----------------------------------------------------------------------------
// audit log
// -----------------------------------------------------------------------------

func (r *Repo) InsertAudit(ctx context.Context, e domain.AuditEntry) error {
	_, err := r.db.ExecContext(ctx, insertAuditSQL,
		e.ID,
		e.PropertyID,
		valStr(e.ConversationID),
		string(e.Source),
		e.ToolName,
		e.Description,
		string(e.Status),
		valJSON(e.RequestPayload),
		valJSON(e.ResponsePayload),
		e.CreatedAt,
	)
	return err
}

// ListAudit returns entries newest first, strictly older than q.Before when set.
func (r *Repo) ListAudit(ctx context.Context, q domain.AuditQuery) ([]domain.AuditEntry, error) {
	query := listAuditPrefix
	args := []any{q.PropertyID}
	if q.Source != nil {
		query += " AND source = ?"
		args = append(args, string(*q.Source))
	}
	if q.Before != nil {
		query += " AND (created_at < ? OR (created_at = ? AND id < ?))"
		args = append(args, q.Before.CreatedAt, q.Before.CreatedAt, q.Before.ID)
	}
	query += "\nORDER BY created_at DESC, id DESC\nLIMIT ?"
	args = append(args, q.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var conv sql.NullString
		var source, status string
		var req, resp []byte
		if err := rows.Scan(&e.ID, &e.PropertyID, &conv, &source, &e.ToolName, &e.Description, &status,
			&req, &resp, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.ConversationID = nullStr(conv)
		e.Source = domain.Channel(source)
		e.Status = domain.AuditStatus(status)
		if len(req) > 0 {
			e.RequestPayload = append(json.RawMessage(nil), req...)
		}
		if len(resp) > 0 {
			e.ResponsePayload = append(json.RawMessage(nil), resp...)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------
// currencies
// -----------------------------------------------------------------------------

func (r *Repo) CurrencyDisplays(ctx context.Context, codes []string) (map[string]string, error) {
	out := map[string]string{}
	if len(codes) == 0 {
		return out, nil
	}
	rows, err := r.db.QueryContext(ctx, currencyDisplaysPrefix+inPlaceholders(len(codes)), stringArgs(codes)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var code, display string
		if err := rows.Scan(&code, &display); err != nil {
			return nil, err
		}
		out[code] = display
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------
// embeddings
// -----------------------------------------------------------------------------

func (r *Repo) ListEmbeddings(ctx context.Context, propertyID string) ([]domain.Embedding, error) {
	rows, err := r.db.QueryContext(ctx, listEmbeddingsSQL, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Embedding
	for rows.Next() {
		var e domain.Embedding
		var sourceType string
		var meta, vec []byte
		if err := rows.Scan(&e.ID, &e.PropertyID, &sourceType, &e.SourceID, &e.ChunkIndex, &e.Content,
			&meta, &vec, &e.Model, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.SourceType = domain.SourceType(sourceType)
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Metadata); err != nil {
				return nil, fmt.Errorf("embedding %s metadata: %w", e.ID, err)
			}
		}
		if err := json.Unmarshal(vec, &e.Vector); err != nil {
			return nil, fmt.Errorf("embedding %s vector: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repo) UpsertEmbedding(ctx context.Context, e domain.Embedding) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	var meta []byte
	if len(e.Metadata) > 0 {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return err
		}
		meta = b
	}
	vec, err := json.Marshal(e.Vector)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, upsertEmbeddingSQL,
		e.ID,
		e.PropertyID,
		string(e.SourceType),
		e.SourceID,
		e.ChunkIndex,
		e.Content,
		valJSON(meta),
		string(vec),
		e.Model,
	)
	return err
}
