package app_test

import (
	"testing"

	"monobook/internal/app"
	"monobook/internal/domain"
)

func TestComputeStayTotal_TierAndOverride(t *testing.T) {
	s := newFixture()
	room := s.Rooms[1] // Family Loft

	q := app.ComputeStayTotal(room, pint(4), onDay(30), onDay(32), s.Tiers, s.Overrides)

	// night 1 overridden to 300, night 2 uses the 3-5 guest tier (220)
	if q.Nights != 2 || q.NightlyRate != 220 || q.Subtotal != 520 {
		t.Fatalf("unexpected quote: %+v", q)
	}
	if q.Taxes != 62.4 || q.ServiceFee != 20.8 || q.Total != 603.2 {
		t.Fatalf("unexpected totals: %+v", q)
	}
}

func TestComputeStayTotal_NilGuestsIgnoresTiers(t *testing.T) {
	s := newFixture()
	room := s.Rooms[1]

	q := app.ComputeStayTotal(room, nil, onDay(40), onDay(43), s.Tiers, nil)
	if q.NightlyRate != 180 || q.Subtotal != 540 {
		t.Fatalf("want base price for nil guests, got %+v", q)
	}
}

func TestComputeStayTotal_NoMatchingTierUsesBase(t *testing.T) {
	room := domain.Room{PricePerNight: 100}
	tiers := []domain.GuestPricingTier{{MinGuests: 3, MaxGuests: 4, PricePerNight: 150}}

	if got := app.NightlyRate(room, pint(2), tiers); got != 100 {
		t.Fatalf("want base 100, got %v", got)
	}
	if got := app.NightlyRate(room, pint(3), tiers); got != 150 {
		t.Fatalf("want tier 150, got %v", got)
	}
}

func TestComputeStayTotal_FirstMatchingTierWins(t *testing.T) {
	room := domain.Room{PricePerNight: 100}
	tiers := []domain.GuestPricingTier{
		{MinGuests: 1, MaxGuests: 4, PricePerNight: 110},
		{MinGuests: 2, MaxGuests: 2, PricePerNight: 999},
	}
	if got := app.NightlyRate(room, pint(2), tiers); got != 110 {
		t.Fatalf("want first tier 110, got %v", got)
	}
}

func TestComputeStayTotal_ZeroNightsIsDegenerate(t *testing.T) {
	q := app.ComputeStayTotal(domain.Room{PricePerNight: 100}, nil, onDay(5), onDay(5), nil, nil)
	if q.Nights != 0 || q.Total != 0 {
		t.Fatalf("want zero quote, got %+v", q)
	}
}

func TestComputeStayTotal_RoundsToCents(t *testing.T) {
	q := app.ComputeStayTotal(domain.Room{PricePerNight: 10.05}, nil, onDay(1), onDay(2), nil, nil)
	// 10.05 * 0.12 = 1.206, 10.05 * 0.04 = 0.402
	if q.Taxes != 1.21 || q.ServiceFee != 0.4 || q.Total != 11.66 {
		t.Fatalf("unexpected rounding: %+v", q)
	}
}

func TestComputeStayTotal_NonDecreasingInGuests(t *testing.T) {
	// base sits above the top tier, so falling off the last tier never gets cheaper
	room := domain.Room{PricePerNight: 250}
	tiers := []domain.GuestPricingTier{
		{MinGuests: 1, MaxGuests: 2, PricePerNight: 100},
		{MinGuests: 3, MaxGuests: 4, PricePerNight: 150},
		{MinGuests: 5, MaxGuests: 6, PricePerNight: 200},
	}

	prev := 0.0
	for g := 1; g <= 8; g++ {
		q := app.ComputeStayTotal(room, pint(g), onDay(10), onDay(13), tiers, nil)
		if q.Total < prev {
			t.Fatalf("total dropped at %d guests: %v < %v", g, q.Total, prev)
		}
		prev = q.Total
	}
	if q := app.ComputeStayTotal(room, pint(8), onDay(10), onDay(13), tiers, nil); q.NightlyRate != 250 {
		t.Fatalf("want base rate above the last tier, got %+v", q)
	}
}
