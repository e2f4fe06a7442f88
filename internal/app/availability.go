package app

import (
	"context"
	"time"

	"monobook/internal/domain"
)

type AvailabilityService struct {
	bookings domain.BookingRepository
}

func NewAvailabilityService(b domain.BookingRepository) *AvailabilityService {
	return &AvailabilityService{bookings: b}
}

// IsAvailable reports whether no non-cancelled booking overlaps [checkIn, checkOut).
func (s *AvailabilityService) IsAvailable(ctx context.Context, roomID string, checkIn, checkOut time.Time) (bool, error) {
	n, err := s.Conflicts(ctx, roomID, checkIn, checkOut)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

func (s *AvailabilityService) Conflicts(ctx context.Context, roomID string, checkIn, checkOut time.Time) (int, error) {
	bs, err := s.bookings.ListConflicts(ctx, roomID, checkIn, checkOut)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, b := range bs {
		if b.Overlaps(checkIn, checkOut) {
			n++
		}
	}
	return n, nil
}

// FilterAvailable keeps the rooms free for the whole stay, preserving order.
func (s *AvailabilityService) FilterAvailable(ctx context.Context, rooms []domain.Room, checkIn, checkOut time.Time) ([]domain.Room, error) {
	out := rooms[:0:0]
	for _, r := range rooms {
		ok, err := s.IsAvailable(ctx, r.ID, checkIn, checkOut)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}
