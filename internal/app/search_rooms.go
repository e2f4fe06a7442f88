package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"monobook/internal/adapters/observability"
	"monobook/internal/domain"
)

const (
	roomSearchLimit          = 10
	roomSearchThreshold      = 0.5
	knowledgeSearchLimit     = 5
	knowledgeSearchThreshold = 0.6
)

type RoomSearchRequest struct {
	Query    string `json:"query"`
	CheckIn  string `json:"check_in,omitempty"`
	CheckOut string `json:"check_out,omitempty"`
	Guests   *int   `json:"guests,omitempty"`
}

type RoomSearchResult struct {
	PropertyID   string      `json:"property_id"`
	PropertyName string      `json:"property_name"`
	Rooms        []RoomMatch `json:"rooms"`
	Count        int         `json:"count"`
	Message      string      `json:"message,omitempty"`
}

// SearchRooms finds rooms of one property: semantic candidates (or every active room when the
// oracle yields none), then guest-capacity and availability filters.
func (s *SearchService) SearchRooms(ctx context.Context, call Call, req RoomSearchRequest) (RoomSearchResult, error) {
	var st *stay
	checkIn, checkOut := strings.TrimSpace(req.CheckIn), strings.TrimSpace(req.CheckOut)
	if (checkIn == "") != (checkOut == "") {
		return RoomSearchResult{}, validation(CodeInvalidDates, "Both check_in and check_out must be provided together.")
	}
	if checkIn != "" {
		v, err := validStay(checkIn, checkOut, s.today())
		if err != nil {
			return RoomSearchResult{}, err
		}
		st = &v
	}
	if req.Guests != nil {
		if msg := ValidateGuestCount(*req.Guests); msg != "" {
			return RoomSearchResult{}, validation(CodeInvalidGuestCount, msg)
		}
	}

	prop, err := s.Store.GetProperty(ctx, call.PropertyID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return RoomSearchResult{}, notFound(CodeNotFound, "Property not found.")
		}
		return RoomSearchResult{}, persistence("get property", err)
	}

	rooms, err := s.candidateRooms(ctx, prop.ID, strings.TrimSpace(req.Query))
	if err != nil {
		return RoomSearchResult{}, err
	}
	if req.Guests != nil {
		kept := rooms[:0:0]
		for _, r := range rooms {
			if r.MaxGuests >= *req.Guests {
				kept = append(kept, r)
			}
		}
		rooms = kept
	}
	if st != nil {
		rooms, err = s.avail.FilterAvailable(ctx, rooms, st.CheckIn, st.CheckOut)
		if err != nil {
			return RoomSearchResult{}, persistence("check availability", err)
		}
	}

	codes := make([]string, 0, len(rooms))
	for _, r := range rooms {
		codes = append(codes, r.CurrencyCode)
	}
	displays := map[string]string{}
	if s.Currency != nil && len(codes) > 0 {
		if m, err := s.Currency.FetchDisplayMap(ctx, codes); err == nil {
			displays = m
		}
	}

	res := RoomSearchResult{PropertyID: prop.ID, PropertyName: prop.Name, Rooms: []RoomMatch{}}
	for _, r := range rooms {
		res.Rooms = append(res.Rooms, toRoomMatch(r, displays))
	}
	res.Count = len(res.Rooms)
	if res.Count == 0 {
		res.Message = "No rooms found for this property."
	}
	observability.ObserveSearch("rooms", string(call.Channel), "ok")

	s.Auditor.Record(ctx, call, "search_rooms", fmt.Sprintf("Searched rooms: '%s'", req.Query), domain.AuditSuccess,
		map[string]any{"query": req.Query, "check_in": checkIn, "check_out": checkOut, "guests": req.Guests},
		map[string]any{"count": res.Count})
	return res, nil
}

// candidateRooms keeps the oracle's ranking; an oracle failure or an empty room hit list falls back
// to every active room of the property.
func (s *SearchService) candidateRooms(ctx context.Context, propertyID, query string) ([]domain.Room, error) {
	var ids []string
	if s.Semantic != nil && query != "" {
		hits, err := s.Semantic.Search(ctx, propertyID, query, roomSearchLimit, roomSearchThreshold)
		if err != nil {
			log.Warn().Err(err).Str("property_id", propertyID).Msg("semantic room search failed; listing all rooms")
		}
		for _, h := range hits {
			if h.SourceType == domain.SourceRoom {
				ids = append(ids, h.SourceID)
			}
		}
	}

	if len(ids) == 0 {
		rooms, err := s.Store.ListActiveRooms(ctx, []string{propertyID})
		if err != nil {
			return nil, persistence("list rooms", err)
		}
		return rooms, nil
	}

	rooms, err := s.Store.ListActiveRoomsByID(ctx, propertyID, ids)
	if err != nil {
		return nil, persistence("list rooms", err)
	}
	rank := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, seen := rank[id]; !seen {
			rank[id] = i
		}
	}
	ordered := make([]domain.Room, len(rooms))
	copy(ordered, rooms)
	sort.SliceStable(ordered, func(i, j int) bool { return rank[ordered[i].ID] < rank[ordered[j].ID] })
	return ordered, nil
}

type KnowledgeHit struct {
	Content    string  `json:"content"`
	FileName   string  `json:"file_name"`
	Similarity float64 `json:"similarity"`
}

type KnowledgeSearchResult struct {
	Results []KnowledgeHit `json:"results"`
	Count   int            `json:"count"`
}

func (s *SearchService) SearchKnowledgeBase(ctx context.Context, call Call, query string) (KnowledgeSearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return KnowledgeSearchResult{}, validation(CodeInvalidFilters, "query is required.")
	}
	if s.Semantic == nil {
		return KnowledgeSearchResult{}, persistence("semantic search", errors.New("semantic search is not configured"))
	}
	hits, err := s.Semantic.Search(ctx, call.PropertyID, query, knowledgeSearchLimit, knowledgeSearchThreshold)
	if err != nil {
		return KnowledgeSearchResult{}, persistence("semantic search", err)
	}
	res := KnowledgeSearchResult{Results: []KnowledgeHit{}}
	for _, h := range hits {
		if h.SourceType != domain.SourceKnowledgeChunk {
			continue
		}
		fileName, _ := h.Metadata["file_name"].(string)
		res.Results = append(res.Results, KnowledgeHit{
			Content:    h.Content,
			FileName:   fileName,
			Similarity: roundTo(h.Similarity, 3),
		})
	}
	res.Count = len(res.Results)

	s.Auditor.Record(ctx, call, "search_knowledge_base", fmt.Sprintf("Searched knowledge base: '%s'", query),
		domain.AuditSuccess, map[string]any{"query": query}, map[string]any{"count": res.Count})
	return res, nil
}
