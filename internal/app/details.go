package app

import (
	"context"
	"errors"
	"sort"

	"monobook/internal/domain"
)

type HostInfo struct {
	Name      string   `json:"name"`
	Bio       string   `json:"bio,omitempty"`
	Superhost bool     `json:"superhost"`
	Rating    *float64 `json:"rating,omitempty"`
}

type PropertyInfo struct {
	PropertyID  string    `json:"property_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	City        *string   `json:"city"`
	Country     *string   `json:"country"`
	Lat         *float64  `json:"lat"`
	Lng         *float64  `json:"lng"`
	Rating      *float64  `json:"rating"`
	Host        *HostInfo `json:"host,omitempty"`
}

func (s *SearchService) GetPropertyInfo(ctx context.Context, call Call) (PropertyInfo, error) {
	p, err := s.Store.GetProperty(ctx, call.PropertyID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return PropertyInfo{}, notFound(CodeNotFound, "Property not found.")
		}
		return PropertyInfo{}, persistence("get property", err)
	}
	info := PropertyInfo{
		PropertyID: p.ID, Name: p.Name, Description: p.Description,
		City: p.City, Country: p.Country, Lat: p.Lat, Lng: p.Lng, Rating: p.Rating,
	}
	hp, err := s.Store.GetHostProfile(ctx, p.ID)
	if err != nil {
		return PropertyInfo{}, persistence("get host profile", err)
	}
	if hp != nil {
		info.Host = &HostInfo{Name: hp.Name, Bio: hp.Bio, Superhost: hp.Superhost, Rating: hp.Rating}
	}

	s.Auditor.Record(ctx, call, "get_property_info", "Retrieved property info", domain.AuditSuccess,
		map[string]any{"property_id": call.PropertyID}, map[string]any{"name": info.Name})
	return info, nil
}

type PricingTier struct {
	MinGuests     int     `json:"min_guests"`
	MaxGuests     int     `json:"max_guests"`
	PricePerNight float64 `json:"price_per_night"`
}

type RoomDetails struct {
	RoomMatch
	BedConfig    string        `json:"bed_config,omitempty"`
	Status       string        `json:"status"`
	PricingTiers []PricingTier `json:"pricing_tiers"`
}

func (s *SearchService) GetRoomDetails(ctx context.Context, call Call, roomID string) (RoomDetails, error) {
	r, err := s.Store.GetRoom(ctx, call.PropertyID, roomID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return RoomDetails{}, notFound(CodeRoomNotFound, "Room not found.")
		}
		return RoomDetails{}, persistence("get room", err)
	}
	tiers, err := s.Store.ListGuestTiers(ctx, r.ID)
	if err != nil {
		return RoomDetails{}, persistence("list guest tiers", err)
	}
	sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].MinGuests < tiers[j].MinGuests })

	displays := map[string]string{}
	if s.Currency != nil {
		if m, err := s.Currency.FetchDisplayMap(ctx, []string{r.CurrencyCode}); err == nil {
			displays = m
		}
	}
	d := RoomDetails{
		RoomMatch:    toRoomMatch(r, displays),
		BedConfig:    r.BedConfig,
		Status:       string(r.Status),
		PricingTiers: make([]PricingTier, 0, len(tiers)),
	}
	for _, t := range tiers {
		d.PricingTiers = append(d.PricingTiers, PricingTier{MinGuests: t.MinGuests, MaxGuests: t.MaxGuests, PricePerNight: t.PricePerNight})
	}

	s.Auditor.Record(ctx, call, "get_room_details", "Retrieved room details: "+r.Name, domain.AuditSuccess,
		map[string]any{"room_id": roomID}, map[string]any{"name": r.Name})
	return d, nil
}
