package app

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"monobook/internal/adapters/observability"
	"monobook/internal/domain"
)

const defaultRadiusKM = 20.0

var petFriendlyKeywords = []string{"pet friendly", "pets allowed", "pets welcome", "pet-friendly"}

// HotelSearchFilters are the cross-property search inputs. Empty strings and nil pointers mean "not given".
type HotelSearchFilters struct {
	Query             string   `json:"query,omitempty"`
	PropertyName      string   `json:"property_name,omitempty"`
	City              string   `json:"city,omitempty"`
	Country           string   `json:"country,omitempty"`
	RoomName          string   `json:"room_name,omitempty"`
	Lat               *float64 `json:"lat,omitempty"`
	Lng               *float64 `json:"lng,omitempty"`
	RadiusKM          *float64 `json:"radius_km,omitempty"`
	CheckIn           string   `json:"check_in,omitempty"`
	CheckOut          string   `json:"check_out,omitempty"`
	Guests            *int     `json:"guests,omitempty"`
	PetFriendly       bool     `json:"pet_friendly,omitempty"`
	BudgetPerNightMax *float64 `json:"budget_per_night_max,omitempty"`
	BudgetTotalMax    *float64 `json:"budget_total_max,omitempty"`
}

// AppliedFilters echoes the non-empty, trimmed inputs.
type AppliedFilters struct {
	Query             string   `json:"query,omitempty"`
	PropertyName      string   `json:"property_name,omitempty"`
	City              string   `json:"city,omitempty"`
	Country           string   `json:"country,omitempty"`
	RoomName          string   `json:"room_name,omitempty"`
	Lat               *float64 `json:"lat,omitempty"`
	Lng               *float64 `json:"lng,omitempty"`
	RadiusKM          *float64 `json:"radius_km,omitempty"`
	CheckIn           string   `json:"check_in,omitempty"`
	CheckOut          string   `json:"check_out,omitempty"`
	Guests            *int     `json:"guests,omitempty"`
	PetFriendly       *bool    `json:"pet_friendly,omitempty"`
	BudgetPerNightMax *float64 `json:"budget_per_night_max,omitempty"`
	BudgetTotalMax    *float64 `json:"budget_total_max,omitempty"`
}

type RoomMatch struct {
	ID                  string   `json:"id"`
	PropertyID          string   `json:"property_id"`
	Name                string   `json:"name"`
	Type                string   `json:"type"`
	Description         string   `json:"description"`
	PricePerNight       float64  `json:"price_per_night"`
	Currency            string   `json:"currency"`
	CurrencyDisplay     string   `json:"currency_display"`
	MaxGuests           int      `json:"max_guests"`
	Amenities           []string `json:"amenities"`
	Images              []string `json:"images"`
	PetFriendly         bool     `json:"pet_friendly"`
	EstimatedTotalPrice *float64 `json:"estimated_total_price,omitempty"`
}

type HotelMatch struct {
	PropertyID          string      `json:"property_id"`
	PropertyName        string      `json:"property_name"`
	Description         string      `json:"description"`
	City                *string     `json:"city"`
	Country             *string     `json:"country"`
	Lat                 *float64    `json:"lat"`
	Lng                 *float64    `json:"lng"`
	DistanceKM          *float64    `json:"distance_km"`
	MinPricePerNight    float64     `json:"min_price_per_night"`
	AvailableRoomsCount int         `json:"available_rooms_count"`
	PetFriendlyOption   bool        `json:"pet_friendly_option"`
	MatchingRooms       []RoomMatch `json:"matching_rooms"`
}

type HotelSearchResult struct {
	Hotels         []HotelMatch   `json:"hotels"`
	CountHotels    int            `json:"count_hotels"`
	CountRooms     int            `json:"count_rooms"`
	AppliedFilters AppliedFilters `json:"applied_filters"`
	Message        string         `json:"message"`
}

type hotelQuery struct {
	applied      AppliedFilters
	query        string
	propertyName string
	city         string
	country      string
	roomName     string
	origin       *domain.Coords
	radiusKM     float64
	stay         *stay
	guests       *int
	petFriendly  bool
	perNightMax  *float64
	totalMax     *float64
}

type SearchService struct {
	Deps
	avail *AvailabilityService
}

func NewSearchService(d Deps) *SearchService {
	return &SearchService{Deps: d, avail: NewAvailabilityService(d.Store)}
}

// validateHotelFilters applies the checks in order and returns the first failure.
func (s *SearchService) validateHotelFilters(f HotelSearchFilters) (hotelQuery, *Error) {
	q := hotelQuery{
		query:        strings.TrimSpace(f.Query),
		propertyName: strings.TrimSpace(f.PropertyName),
		city:         strings.TrimSpace(f.City),
		country:      strings.TrimSpace(f.Country),
		roomName:     strings.TrimSpace(f.RoomName),
		guests:       f.Guests,
		petFriendly:  f.PetFriendly,
		perNightMax:  f.BudgetPerNightMax,
		totalMax:     f.BudgetTotalMax,
	}
	a := AppliedFilters{
		Query: q.query, PropertyName: q.propertyName, City: q.city, Country: q.country, RoomName: q.roomName,
	}

	if (f.Lat == nil) != (f.Lng == nil) {
		return q, validation(CodeInvalidFilters, "Both lat and lng must be provided together.")
	}
	if f.RadiusKM != nil && *f.RadiusKM <= 0 {
		return q, validation(CodeInvalidFilters, "radius_km must be greater than 0.")
	}
	if f.Lat != nil {
		radius := defaultRadiusKM
		if f.RadiusKM != nil {
			radius = *f.RadiusKM
		}
		q.origin = &domain.Coords{Lat: *f.Lat, Lng: *f.Lng}
		q.radiusKM = radius
		a.Lat, a.Lng, a.RadiusKM = f.Lat, f.Lng, &radius
	}

	if q.query == "" && q.propertyName == "" && q.city == "" && q.country == "" && q.roomName == "" && q.origin == nil {
		return q, validation(CodeInvalidFilters,
			"At least one search criterion is required: query, property_name, city, country, room_name, or lat/lng.")
	}

	checkIn, checkOut := strings.TrimSpace(f.CheckIn), strings.TrimSpace(f.CheckOut)
	if (checkIn == "") != (checkOut == "") {
		return q, validation(CodeInvalidFilters, "Both check_in and check_out must be provided together.")
	}
	if checkIn != "" {
		st, err := validStay(checkIn, checkOut, s.today())
		if err != nil {
			return q, err
		}
		q.stay = &st
		a.CheckIn, a.CheckOut = checkIn, checkOut
	}

	if f.Guests != nil {
		if msg := ValidateGuestCount(*f.Guests); msg != "" {
			return q, validation(CodeInvalidGuestCount, msg)
		}
		a.Guests = f.Guests
	}

	if f.BudgetPerNightMax != nil {
		if *f.BudgetPerNightMax <= 0 {
			return q, validation(CodeInvalidFilters, "budget_per_night_max must be greater than 0.")
		}
		a.BudgetPerNightMax = f.BudgetPerNightMax
	}
	if f.BudgetTotalMax != nil {
		if *f.BudgetTotalMax <= 0 {
			return q, validation(CodeInvalidFilters, "budget_total_max must be greater than 0.")
		}
		if q.stay == nil {
			return q, validation(CodeInvalidFilters, "budget_total_max requires both check_in and check_out dates.")
		}
		a.BudgetTotalMax = f.BudgetTotalMax
	}
	if f.PetFriendly {
		t := true
		a.PetFriendly = &t
	}
	q.applied = a
	return q, nil
}

type hotelCandidate struct {
	prop     domain.Property
	distance *float64
}

// SearchHotels runs the cross-property filter and ranking pipeline.
func (s *SearchService) SearchHotels(ctx context.Context, call Call, f HotelSearchFilters) (HotelSearchResult, error) {
	q, verr := s.validateHotelFilters(f)
	if verr != nil {
		observability.ObserveSearch("hotels", string(call.Channel), "invalid")
		return HotelSearchResult{}, verr
	}

	res, err := s.searchHotels(ctx, q)
	if err != nil {
		observability.ObserveSearch("hotels", string(call.Channel), "error")
		return HotelSearchResult{}, err
	}
	observability.ObserveSearch("hotels", string(call.Channel), "ok")

	for _, h := range res.Hotels {
		c := call
		c.PropertyID = h.PropertyID
		s.Auditor.Record(ctx, c, "search_hotels",
			fmt.Sprintf("Searched hotels: %d hotel(s), %d room(s) matched", res.CountHotels, res.CountRooms),
			domain.AuditSuccess, res.AppliedFilters,
			map[string]any{
				"count_hotels":   res.CountHotels,
				"count_rooms":    res.CountRooms,
				"matching_rooms": len(h.MatchingRooms),
			})
	}
	return res, nil
}

func (s *SearchService) searchHotels(ctx context.Context, q hotelQuery) (HotelSearchResult, error) {
	// 1) property candidates
	props, err := s.Store.ListProperties(ctx)
	if err != nil {
		return HotelSearchResult{}, persistence("list properties", err)
	}
	var cands []hotelCandidate
	for _, p := range props {
		if !containsFold(p.Name, q.propertyName) || !containsFold(deref(p.City), q.city) || !containsFold(deref(p.Country), q.country) {
			continue
		}
		c := hotelCandidate{prop: p}
		if q.origin != nil {
			pc := p.Coords()
			if pc == nil {
				continue
			}
			d := HaversineKM(q.origin.Lat, q.origin.Lng, pc.Lat, pc.Lng)
			if d > q.radiusKM {
				continue
			}
			d = roundTo(d, 3)
			c.distance = &d
		}
		cands = append(cands, c)
	}

	// 2) nothing to search
	if len(cands) == 0 {
		return newHotelSearchResult(nil, q.applied), nil
	}

	// 3) room candidates
	ids := make([]string, len(cands))
	for i, c := range cands {
		ids[i] = c.prop.ID
	}
	rooms, err := s.Store.ListActiveRooms(ctx, ids)
	if err != nil {
		return HotelSearchResult{}, persistence("list rooms", err)
	}
	filtered := rooms[:0:0]
	for _, r := range rooms {
		if r.Status != domain.RoomActive {
			continue
		}
		if q.roomName != "" && !containsFold(r.Name, q.roomName) && !containsFold(r.Type, q.roomName) {
			continue
		}
		if q.guests != nil && r.MaxGuests < *q.guests {
			continue
		}
		if q.petFriendly && !isPetFriendly(r) {
			continue
		}
		if q.perNightMax != nil && r.PricePerNight > *q.perNightMax {
			continue
		}
		filtered = append(filtered, r)
	}

	// 4) availability
	if q.stay != nil && len(filtered) > 0 {
		filtered, err = s.avail.FilterAvailable(ctx, filtered, q.stay.CheckIn, q.stay.CheckOut)
		if err != nil {
			return HotelSearchResult{}, persistence("check availability", err)
		}
	}

	// 5) total budget
	estimates := map[string]float64{}
	if q.totalMax != nil {
		kept := filtered[:0:0]
		for _, r := range filtered {
			quote, err := s.quoteRoom(ctx, r, q.guests, *q.stay)
			if err != nil {
				return HotelSearchResult{}, err
			}
			if quote.Total <= *q.totalMax {
				estimates[r.ID] = quote.Total
				kept = append(kept, r)
			}
		}
		filtered = kept
	}

	byProp := map[string][]domain.Room{}
	for _, r := range filtered {
		byProp[r.PropertyID] = append(byProp[r.PropertyID], r)
	}

	// 6) free-text relevance
	matching := map[string][]domain.Room{}
	var codes []string
	for _, c := range cands {
		for _, r := range byProp[c.prop.ID] {
			if q.query == "" || matchesQuery(c.prop, r, q.query) {
				matching[c.prop.ID] = append(matching[c.prop.ID], r)
				codes = append(codes, r.CurrencyCode)
			}
		}
	}

	displays := map[string]string{}
	if s.Currency != nil && len(codes) > 0 {
		if m, err := s.Currency.FetchDisplayMap(ctx, codes); err != nil {
			log.Warn().Err(err).Msg("currency display lookup failed; using codes")
		} else {
			displays = m
		}
	}

	// 7) group and rank rooms
	var hotels []HotelMatch
	for _, c := range cands {
		ms := matching[c.prop.ID]
		if len(ms) == 0 {
			continue
		}
		group := byProp[c.prop.ID]
		sort.SliceStable(ms, func(i, j int) bool { return ms[i].PricePerNight < ms[j].PricePerNight })

		h := HotelMatch{
			PropertyID:          c.prop.ID,
			PropertyName:        c.prop.Name,
			Description:         c.prop.Description,
			City:                c.prop.City,
			Country:             c.prop.Country,
			Lat:                 c.prop.Lat,
			Lng:                 c.prop.Lng,
			DistanceKM:          c.distance,
			MinPricePerNight:    math.Inf(1),
			AvailableRoomsCount: len(group),
		}
		for _, r := range group {
			h.MinPricePerNight = math.Min(h.MinPricePerNight, r.PricePerNight)
			if isPetFriendly(r) {
				h.PetFriendlyOption = true
			}
		}
		for _, r := range ms {
			m := toRoomMatch(r, displays)
			if est, ok := estimates[r.ID]; ok {
				e := est
				m.EstimatedTotalPrice = &e
			}
			h.MatchingRooms = append(h.MatchingRooms, m)
		}
		hotels = append(hotels, h)
	}

	// 8) rank hotels
	sortHotels(hotels, q.origin != nil)
	return newHotelSearchResult(hotels, q.applied), nil
}

func (s *SearchService) quoteRoom(ctx context.Context, r domain.Room, guests *int, st stay) (StayQuote, error) {
	tiers, err := s.Store.ListGuestTiers(ctx, r.ID)
	if err != nil {
		return StayQuote{}, persistence("list guest tiers", err)
	}
	overrides, err := s.Store.ListDateOverrides(ctx, r.ID, st.CheckIn, st.CheckOut)
	if err != nil {
		return StayQuote{}, persistence("list date overrides", err)
	}
	return ComputeStayTotal(r, guests, st.CheckIn, st.CheckOut, tiers, overrides), nil
}

func newHotelSearchResult(hotels []HotelMatch, applied AppliedFilters) HotelSearchResult {
	if hotels == nil {
		hotels = []HotelMatch{}
	}
	res := HotelSearchResult{Hotels: hotels, CountHotels: len(hotels), AppliedFilters: applied}
	for _, h := range hotels {
		res.CountRooms += len(h.MatchingRooms)
	}
	if res.CountHotels > 0 {
		res.Message = fmt.Sprintf("Found %d hotel(s) with %d matching room(s).", res.CountHotels, res.CountRooms)
	} else {
		res.Message = "No hotels matched the provided filters."
	}
	return res
}

// sortHotels orders by distance (missing last) then name when a coordinate filter is active, else by name.
func sortHotels(hs []HotelMatch, byDistance bool) {
	sort.SliceStable(hs, func(i, j int) bool {
		if byDistance {
			di, dj := math.Inf(1), math.Inf(1)
			if hs[i].DistanceKM != nil {
				di = *hs[i].DistanceKM
			}
			if hs[j].DistanceKM != nil {
				dj = *hs[j].DistanceKM
			}
			if di != dj {
				return di < dj
			}
		}
		return strings.ToLower(hs[i].PropertyName) < strings.ToLower(hs[j].PropertyName)
	})
}

func toRoomMatch(r domain.Room, displays map[string]string) RoomMatch {
	code := NormalizeCurrency(r.CurrencyCode)
	return RoomMatch{
		ID:              r.ID,
		PropertyID:      r.PropertyID,
		Name:            r.Name,
		Type:            r.Type,
		Description:     r.Description,
		PricePerNight:   r.PricePerNight,
		Currency:        code,
		CurrencyDisplay: ResolveCurrencyDisplay(code, displays),
		MaxGuests:       r.MaxGuests,
		Amenities:       nonNil(r.Amenities),
		Images:          nonNil(r.Images),
		PetFriendly:     isPetFriendly(r),
	}
}

func isPetFriendly(r domain.Room) bool {
	for _, a := range r.Amenities {
		la := strings.ToLower(a)
		for _, kw := range petFriendlyKeywords {
			if strings.Contains(la, kw) {
				return true
			}
		}
	}
	return false
}

func matchesQuery(p domain.Property, r domain.Room, query string) bool {
	fields := []string{r.Name, r.Type, r.Description, p.Name, p.Description, deref(p.City), deref(p.Country)}
	fields = append(fields, r.Amenities...)
	for _, f := range fields {
		if containsFold(f, query) {
			return true
		}
	}
	return false
}

// containsFold is a case-insensitive substring test; an empty needle always matches.
func containsFold(s, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(needle))
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
