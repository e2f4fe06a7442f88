package apptest

import (
	"errors"
	"time"

	"monobook/internal/app"
	"monobook/internal/domain"
)

// FixedNow pins the services' clock.
var FixedNow = time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

// Today is the calendar date of FixedNow.
func Today() time.Time { return app.Today(FixedNow) }

func DateStr(offsetDays int) string {
	return Today().AddDate(0, 0, offsetDays).Format("2006-01-02")
}

func Str(s string) *string       { return &s }
func Int(i int) *int             { return &i }
func F64(f float64) *float64     { return &f }
func OnDay(offset int) time.Time { return Today().AddDate(0, 0, offset) }

// NewFixture seeds three properties: two in Ukraine and one in Poland.
// room-1 is booked (confirmed) for [Today+30, Today+32); room-2 has a cancelled booking for the same nights.
func NewFixture() *MemStore {
	return &MemStore{
		Props: []domain.Property{
			{ID: "prop-1", Name: "Volosyanka Hills Hotel", Description: "Carpathian mountain retreat",
				City: Str("Volosyanka"), Country: Str("Ukraine"), Lat: F64(48.8470), Lng: F64(23.4219), Rating: F64(4.8)},
			{ID: "prop-2", Name: "Lviv Central Stay", Description: "Old town apartments",
				City: Str("Lviv"), Country: Str("Ukraine"), Lat: F64(49.8397), Lng: F64(24.0297)},
			{ID: "prop-3", Name: "Tatry Lodge", Description: "Lodge near the slopes",
				City: Str("Zakopane"), Country: Str("Poland"), Lat: F64(49.2992), Lng: F64(19.9496)},
		},
		Hosts: map[string]domain.HostProfile{
			"prop-1": {PropertyID: "prop-1", Name: "Olena", Bio: "Local guide", Superhost: true, Rating: F64(4.9)},
		},
		Rooms: []domain.Room{
			{ID: "room-1", PropertyID: "prop-1", Name: "Panorama Suite", Type: "Suite", Description: "Mountain view",
				PricePerNight: 120, CurrencyCode: "USD", MaxGuests: 2, Status: domain.RoomActive,
				Amenities: []string{"WiFi", "Pet Friendly", "Balcony"}},
			{ID: "room-2", PropertyID: "prop-1", Name: "Family Loft", Type: "Family Room", Description: "Two levels",
				PricePerNight: 180, CurrencyCode: "USD", MaxGuests: 5, Status: domain.RoomActive,
				Amenities: []string{"WiFi", "Kitchen"}},
			{ID: "room-3", PropertyID: "prop-2", Name: "City Compact", Type: "Standard Room", Description: "Cosy",
				PricePerNight: 90, CurrencyCode: "UAH", MaxGuests: 2, Status: domain.RoomActive},
			{ID: "room-4", PropertyID: "prop-3", Name: "Tatry Deluxe", Type: "Deluxe", Description: "Fireplace",
				PricePerNight: 200, CurrencyCode: "PLN", MaxGuests: 3, Status: domain.RoomActive},
			{ID: "room-5", PropertyID: "prop-1", Name: "Attic Draft", Type: "Suite",
				PricePerNight: 10, CurrencyCode: "USD", MaxGuests: 2, Status: domain.RoomDraft},
		},
		Tiers: []domain.GuestPricingTier{
			{RoomID: "room-2", MinGuests: 1, MaxGuests: 2, PricePerNight: 150},
			{RoomID: "room-2", MinGuests: 3, MaxGuests: 5, PricePerNight: 220},
		},
		Overrides: []domain.DatePriceOverride{
			{RoomID: "room-2", Date: OnDay(30), Price: 300},
			{RoomID: "room-3", Date: OnDay(30), Price: 150},
		},
		Bookings: []domain.Booking{
			{ID: "bk-confirmed", PropertyID: "prop-1", RoomID: "room-1", GuestName: Str("Existing Guest"),
				CheckIn: OnDay(30), CheckOut: OnDay(32), TotalPrice: 278.4, Status: domain.BookingConfirmed},
			{ID: "bk-cancelled", PropertyID: "prop-1", RoomID: "room-2",
				CheckIn: OnDay(30), CheckOut: OnDay(32), TotalPrice: 100, Status: domain.BookingCancelled},
		},
		Displays: map[string]string{"USD": "$", "UAH": "₴", "PLN": ""},
	}
}

// NewDeps wires s into service dependencies with the clock pinned to FixedNow.
func NewDeps(s *MemStore) app.Deps {
	return app.Deps{
		Store:    s,
		Currency: app.NewCurrencyService(s, nil, 0),
		Auditor:  app.NewAuditor(s),
		Now:      func() time.Time { return FixedNow },
	}
}

// ErrCode is the app error code in err's chain, or "".
func ErrCode(err error) string {
	var e *app.Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
