package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"monobook/internal/adapters/observability"
	"monobook/internal/domain"
)

const defaultBookingGuests = 2

type BookingService struct {
	Deps
	avail *AvailabilityService
}

func NewBookingService(d Deps) *BookingService {
	return &BookingService{Deps: d, avail: NewAvailabilityService(d.Store)}
}

func (s *BookingService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

type AvailabilityResult struct {
	Available bool   `json:"available"`
	RoomID    string `json:"room_id"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
	Conflicts int    `json:"conflicts"`
}

func (s *BookingService) CheckAvailability(ctx context.Context, call Call, roomID, checkIn, checkOut string) (AvailabilityResult, error) {
	st, verr := validStay(checkIn, checkOut, s.today())
	if verr != nil {
		return AvailabilityResult{}, verr
	}
	n, err := s.avail.Conflicts(ctx, roomID, st.CheckIn, st.CheckOut)
	if err != nil {
		return AvailabilityResult{}, persistence("check availability", err)
	}
	res := AvailabilityResult{Available: n == 0, RoomID: roomID, CheckIn: checkIn, CheckOut: checkOut, Conflicts: n}

	word := "available"
	if !res.Available {
		word = "unavailable"
	}
	s.Auditor.Record(ctx, call, "check_availability",
		fmt.Sprintf("Checked availability for room %s: %s", roomID, word), domain.AuditSuccess,
		map[string]any{"room_id": roomID, "check_in": checkIn, "check_out": checkOut},
		map[string]any{"available": res.Available})
	return res, nil
}

type PriceQuote struct {
	RoomID          string  `json:"room_id"`
	RoomName        string  `json:"room_name"`
	Nights          int     `json:"nights"`
	NightlyRate     float64 `json:"nightly_rate"`
	Subtotal        float64 `json:"subtotal"`
	Taxes           float64 `json:"taxes"`
	ServiceFee      float64 `json:"service_fee"`
	Total           float64 `json:"total"`
	Currency        string  `json:"currency"`
	CurrencyDisplay string  `json:"currency_display"`
}

// CalculatePrice quotes a stay; guests 0 means the default party of two.
func (s *BookingService) CalculatePrice(ctx context.Context, call Call, roomID, checkIn, checkOut string, guests int) (PriceQuote, error) {
	st, verr := validStay(checkIn, checkOut, s.today())
	if verr != nil {
		return PriceQuote{}, verr
	}
	if guests == 0 {
		guests = defaultBookingGuests
	}
	if msg := ValidateGuestCount(guests); msg != "" {
		return PriceQuote{}, validation(CodeInvalidGuestCount, msg)
	}
	room, err := s.getRoom(ctx, call.PropertyID, roomID)
	if err != nil {
		return PriceQuote{}, err
	}
	q, err := s.quote(ctx, room, guests, st)
	if err != nil {
		return PriceQuote{}, err
	}
	pq := s.priceQuote(ctx, room, q)

	s.Auditor.Record(ctx, call, "calculate_price",
		fmt.Sprintf("Calculated price for %s: %s%.2f", room.Name, pq.CurrencyDisplay, pq.Total), domain.AuditSuccess,
		map[string]any{"room_id": roomID, "check_in": checkIn, "check_out": checkOut, "guests": guests},
		map[string]any{"total": pq.Total})
	return pq, nil
}

type BookingRequest struct {
	RoomID     string
	GuestName  string
	GuestEmail *string
	CheckIn    string
	CheckOut   string
	Guests     int
	// Status defaults to ai_pending.
	Status domain.BookingStatus
}

type BookingResult struct {
	BookingID       string               `json:"booking_id"`
	Status          domain.BookingStatus `json:"status"`
	GuestName       string               `json:"guest_name"`
	GuestEmail      *string              `json:"guest_email,omitempty"`
	RoomID          string               `json:"room_id"`
	RoomName        string               `json:"room_name"`
	CheckIn         string               `json:"check_in"`
	CheckOut        string               `json:"check_out"`
	Nights          int                  `json:"nights"`
	Guests          int                  `json:"guests"`
	Total           float64              `json:"total"`
	Currency        string               `json:"currency"`
	CurrencyDisplay string               `json:"currency_display"`
	Message         string               `json:"message"`
}

// CreateBooking validates, prices and books a stay. The conflict re-check, guest upsert and insert
// share one transaction that holds the room lock, so overlapping concurrent requests cannot both win.
func (s *BookingService) CreateBooking(ctx context.Context, call Call, req BookingRequest) (BookingResult, error) {
	res, err := s.createBooking(ctx, call, req)
	if err != nil {
		outcome := "error"
		if e, ok := AsError(err); ok {
			outcome = e.Code
		}
		observability.ObserveBooking(string(call.Channel), outcome)
		s.Auditor.Record(ctx, call, "create_booking", "Booking failed: "+err.Error(), domain.AuditError,
			map[string]any{"room_id": req.RoomID, "check_in": req.CheckIn, "check_out": req.CheckOut}, nil)
		return BookingResult{}, err
	}
	observability.ObserveBooking(string(call.Channel), string(res.Status))
	s.Auditor.Record(ctx, call, "create_booking", "Created booking for "+res.GuestName, domain.AuditSuccess,
		map[string]any{"room_id": req.RoomID, "check_in": req.CheckIn, "check_out": req.CheckOut},
		map[string]any{"booking_id": res.BookingID, "total": res.Total})
	return res, nil
}

func (s *BookingService) createBooking(ctx context.Context, call Call, req BookingRequest) (BookingResult, error) {
	st, verr := validStay(req.CheckIn, req.CheckOut, s.today())
	if verr != nil {
		return BookingResult{}, verr
	}
	if msg := ValidateGuestCount(req.Guests); msg != "" {
		return BookingResult{}, validation(CodeInvalidGuestCount, msg)
	}
	name := strings.TrimSpace(req.GuestName)
	if name == "" {
		return BookingResult{}, validation(CodeInvalidRequest, "guest_name is required.")
	}
	status := req.Status
	if status == "" {
		status = domain.BookingAIPending
	}
	if status == domain.BookingCancelled {
		return BookingResult{}, validation(CodeInvalidRequest, "A booking cannot be created as cancelled.")
	}
	if !call.Channel.Valid() {
		return BookingResult{}, validation(CodeInvalidRequest, fmt.Sprintf("Unknown source channel %q.", call.Channel))
	}

	ok, err := s.avail.IsAvailable(ctx, req.RoomID, st.CheckIn, st.CheckOut)
	if err != nil {
		return BookingResult{}, persistence("check availability", err)
	}
	if !ok {
		return BookingResult{}, errRoomUnavailable
	}

	room, err := s.getRoom(ctx, call.PropertyID, req.RoomID)
	if err != nil {
		return BookingResult{}, err
	}
	q, err := s.quote(ctx, room, req.Guests, st)
	if err != nil {
		return BookingResult{}, err
	}

	b := domain.Booking{
		ID:             uuid.NewString(),
		PropertyID:     call.PropertyID,
		RoomID:         room.ID,
		GuestName:      &name,
		CheckIn:        st.CheckIn,
		CheckOut:       st.CheckOut,
		TotalPrice:     q.Total,
		Status:         status,
		AIHandled:      call.Channel != domain.ChannelAPI,
		Source:         call.Channel,
		ConversationID: call.ConversationID,
		CreatedAt:      s.now(),
	}
	err = s.Store.InRoomTx(ctx, room.ID, func(tx domain.BookingTx) error {
		conflicts, err := tx.ListConflicts(ctx, room.ID, st.CheckIn, st.CheckOut)
		if err != nil {
			return err
		}
		for _, c := range conflicts {
			if c.Overlaps(st.CheckIn, st.CheckOut) {
				return domain.ErrRoomUnavailable
			}
		}
		guestID, err := tx.GetOrCreateGuest(ctx, domain.GuestLookup{PropertyID: call.PropertyID, Name: name, Email: req.GuestEmail})
		if err != nil {
			return err
		}
		b.GuestID = guestID
		return tx.InsertBooking(ctx, b)
	})
	switch {
	case errors.Is(err, domain.ErrRoomUnavailable):
		return BookingResult{}, errRoomUnavailable
	case errors.Is(err, domain.ErrNotFound):
		return BookingResult{}, notFound(CodeRoomNotFound, "Room not found.")
	case err != nil:
		return BookingResult{}, persistence("create booking", err)
	}

	pq := s.priceQuote(ctx, room, q)
	return BookingResult{
		BookingID:       b.ID,
		Status:          b.Status,
		GuestName:       name,
		GuestEmail:      req.GuestEmail,
		RoomID:          room.ID,
		RoomName:        room.Name,
		CheckIn:         req.CheckIn,
		CheckOut:        req.CheckOut,
		Nights:          q.Nights,
		Guests:          req.Guests,
		Total:           q.Total,
		Currency:        pq.Currency,
		CurrencyDisplay: pq.CurrencyDisplay,
		Message:         ConfirmationMessage(b.ID),
	}, nil
}

// ConfirmationMessage quotes the first 8 characters of the booking id, uppercased.
func ConfirmationMessage(bookingID string) string {
	short := bookingID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("Booking created successfully! Confirmation ID: %s", strings.ToUpper(short))
}

type BookingStatusResult struct {
	BookingID  string               `json:"booking_id"`
	Status     domain.BookingStatus `json:"status"`
	GuestName  string               `json:"guest_name"`
	CheckIn    string               `json:"check_in"`
	CheckOut   string               `json:"check_out"`
	TotalPrice float64              `json:"total_price"`
}

func (s *BookingService) GetBookingStatus(ctx context.Context, call Call, bookingID string) (BookingStatusResult, error) {
	b, err := s.Store.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return BookingStatusResult{}, notFound(CodeNotFound, "Booking not found.")
		}
		return BookingStatusResult{}, persistence("get booking", err)
	}
	if b.PropertyID != call.PropertyID {
		return BookingStatusResult{}, notFound(CodeNotFound, "Booking not found for this property.")
	}
	ci, co := stay{CheckIn: b.CheckIn, CheckOut: b.CheckOut}.strings()
	res := BookingStatusResult{
		BookingID: b.ID, Status: b.Status, GuestName: deref(b.GuestName),
		CheckIn: ci, CheckOut: co, TotalPrice: b.TotalPrice,
	}
	s.Auditor.Record(ctx, call, "get_booking_status", "Retrieved booking status: "+string(b.Status),
		domain.AuditSuccess, map[string]any{"booking_id": bookingID}, map[string]any{"status": b.Status})
	return res, nil
}

func (s *BookingService) getRoom(ctx context.Context, propertyID, roomID string) (domain.Room, error) {
	room, err := s.Store.GetRoom(ctx, propertyID, roomID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Room{}, notFound(CodeRoomNotFound, "Room not found.")
		}
		return domain.Room{}, persistence("get room", err)
	}
	if room.Status != domain.RoomActive {
		return domain.Room{}, notFound(CodeRoomNotFound, "Room not found.")
	}
	return room, nil
}

func (s *BookingService) quote(ctx context.Context, room domain.Room, guests int, st stay) (StayQuote, error) {
	tiers, err := s.Store.ListGuestTiers(ctx, room.ID)
	if err != nil {
		return StayQuote{}, persistence("list guest tiers", err)
	}
	overrides, err := s.Store.ListDateOverrides(ctx, room.ID, st.CheckIn, st.CheckOut)
	if err != nil {
		return StayQuote{}, persistence("list date overrides", err)
	}
	return ComputeStayTotal(room, &guests, st.CheckIn, st.CheckOut, tiers, overrides), nil
}

func (s *BookingService) priceQuote(ctx context.Context, room domain.Room, q StayQuote) PriceQuote {
	code := NormalizeCurrency(room.CurrencyCode)
	displays := map[string]string{}
	if s.Currency != nil {
		if m, err := s.Currency.FetchDisplayMap(ctx, []string{code}); err == nil {
			displays = m
		}
	}
	return PriceQuote{
		RoomID: room.ID, RoomName: room.Name, Nights: q.Nights, NightlyRate: q.NightlyRate,
		Subtotal: q.Subtotal, Taxes: q.Taxes, ServiceFee: q.ServiceFee, Total: q.Total,
		Currency: code, CurrencyDisplay: ResolveCurrencyDisplay(code, displays),
	}
}
