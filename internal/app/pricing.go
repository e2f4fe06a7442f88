package app

import (
	"math"
	"time"

	"monobook/internal/domain"
)

const (
	taxRate        = 0.12
	serviceFeeRate = 0.04
)

// roundTo rounds half away from zero to the given number of decimals.
func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

type StayQuote struct {
	Nights      int
	NightlyRate float64
	Subtotal    float64
	Taxes       float64
	ServiceFee  float64
	Total       float64
}

// NightlyRate returns the first tier containing guests, else the room base price.
// A nil guest count always uses the base price.
func NightlyRate(room domain.Room, guests *int, tiers []domain.GuestPricingTier) float64 {
	if guests == nil {
		return room.PricePerNight
	}
	for _, t := range tiers {
		if t.Contains(*guests) {
			return t.PricePerNight
		}
	}
	return room.PricePerNight
}

// ComputeStayTotal prices every night in [checkIn, checkOut). Zero nights yields a zero quote.
func ComputeStayTotal(room domain.Room, guests *int, checkIn, checkOut time.Time,
	tiers []domain.GuestPricingTier, overrides []domain.DatePriceOverride) StayQuote {

	rate := NightlyRate(room, guests, tiers)
	byDate := make(map[string]float64, len(overrides))
	for _, o := range overrides {
		byDate[o.Date.Format(dateLayout)] = o.Price
	}

	q := StayQuote{Nights: nightsBetween(checkIn, checkOut), NightlyRate: rate}
	for i := 0; i < q.Nights; i++ {
		day := checkIn.AddDate(0, 0, i).Format(dateLayout)
		if p, ok := byDate[day]; ok {
			q.Subtotal += p
		} else {
			q.Subtotal += rate
		}
	}
	q.Subtotal = roundTo(q.Subtotal, 2)
	q.Taxes = roundTo(q.Subtotal*taxRate, 2)
	q.ServiceFee = roundTo(q.Subtotal*serviceFeeRate, 2)
	q.Total = roundTo(q.Subtotal+q.Taxes+q.ServiceFee, 2)
	return q
}
