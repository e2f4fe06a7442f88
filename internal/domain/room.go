package domain

import "time"

type RoomStatus string

const (
	RoomActive  RoomStatus = "active"
	RoomDraft   RoomStatus = "draft"
	RoomDeleted RoomStatus = "deleted"
)

type Room struct {
	ID            string
	PropertyID    string
	Name          string
	Type          string
	Description   string
	PricePerNight float64
	CurrencyCode  string
	MaxGuests     int
	BedConfig     string
	Amenities     []string
	Images        []string
	Status        RoomStatus
	CreatedAt     time.Time
}

// GuestPricingTier is a flat nightly rate for an inclusive guest-count range.
type GuestPricingTier struct {
	RoomID        string
	MinGuests     int
	MaxGuests     int
	PricePerNight float64
}

func (t GuestPricingTier) Contains(guests int) bool {
	return t.MinGuests <= guests && guests <= t.MaxGuests
}

// DatePriceOverride replaces the nightly rate for one calendar date.
type DatePriceOverride struct {
	RoomID string
	Date   time.Time
	Price  float64
}
