package domain

import (
	"fmt"
	"strings"
	"time"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingAIPending BookingStatus = "ai_pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

func ParseBookingStatus(s string) (BookingStatus, error) {
	switch st := BookingStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case BookingPending, BookingAIPending, BookingConfirmed, BookingCancelled:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// Booking occupies the half-open interval [CheckIn, CheckOut).
type Booking struct {
	ID             string
	PropertyID     string
	RoomID         string
	GuestID        string
	GuestName      *string
	CheckIn        time.Time
	CheckOut       time.Time
	TotalPrice     float64
	Status         BookingStatus
	AIHandled      bool
	Source         Channel
	ConversationID *string
	CreatedAt      time.Time
}

// Overlaps reports whether b blocks a stay in [checkIn, checkOut).
func (b Booking) Overlaps(checkIn, checkOut time.Time) bool {
	if b.Status == BookingCancelled {
		return false
	}
	return b.CheckIn.Before(checkOut) && b.CheckOut.After(checkIn)
}

type Guest struct {
	ID         string
	PropertyID string
	Name       string
	Email      *string
	Phone      *string
	CreatedAt  time.Time
}

// GuestLookup identifies a guest for get-or-create. Name matches case-sensitively;
// Email narrows the match only when set.
type GuestLookup struct {
	PropertyID string
	Name       string
	Email      *string
}
