// Package agenttools exposes the search and booking services as named JSON tools for
// conversational agents. Expected failures come back as {"error": msg} results, not Go errors.
package agenttools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"monobook/internal/app"
	"monobook/internal/domain"
)

var (
	ErrUnknownTool = errors.New("unknown tool")
	ErrInvalidArgs = errors.New("invalid arguments")
)

type handler func(ctx context.Context, call app.Call, args json.RawMessage) (any, error)

type Tool struct {
	Name        string
	Description string
	run         handler
}

type Registry struct {
	search   *app.SearchService
	booking  *app.BookingService
	validate *validator.Validate
	tools    map[string]Tool
}

func New(search *app.SearchService, booking *app.BookingService) *Registry {
	r := &Registry{search: search, booking: booking, validate: validator.New(), tools: map[string]Tool{}}
	r.add("search_hotels", "Search hotels across properties by location, dates, guests and budget.", r.searchHotels)
	r.add("search_rooms", "Search rooms of this property by natural-language description.", r.searchRooms)
	r.add("get_property_info", "Get property details and host profile.", r.getPropertyInfo)
	r.add("get_room_details", "Get one room with its guest pricing tiers.", r.getRoomDetails)
	r.add("search_knowledge_base", "Search the property's uploaded documents.", r.searchKnowledgeBase)
	r.add("check_availability", "Check whether a room is free for the given dates.", r.checkAvailability)
	r.add("calculate_price", "Quote a stay including taxes and service fee.", r.calculatePrice)
	r.add("create_booking", "Book a room for a guest.", r.createBooking)
	r.add("get_booking_status", "Look up a booking by id.", r.getBookingStatus)
	return r
}

func (r *Registry) add(name, desc string, h handler) {
	r.tools[name] = Tool{Name: name, Description: desc, run: h}
}

// Tools lists the registered tools sorted by name.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Call runs a tool. ErrUnknownTool and ErrInvalidArgs report caller mistakes; any other error
// is a collaborator fault.
func (r *Registry) Call(ctx context.Context, call app.Call, name string, args json.RawMessage) (any, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return t.run(ctx, call, args)
}

func (r *Registry) bind(args json.RawMessage, dst any) error {
	if len(strings.TrimSpace(string(args))) > 0 {
		if err := json.Unmarshal(args, dst); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidArgs, err)
		}
	}
	if err := r.validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	return nil
}

// errorResult turns an expected failure into its {"error": msg} shape and passes faults through.
func errorResult(err error, extra map[string]any) (any, error) {
	e, ok := app.AsError(err)
	if !ok || e.Kind == app.KindPersistence {
		return nil, err
	}
	out := map[string]any{"error": e.Msg}
	for k, v := range extra {
		out[k] = v
	}
	return out, nil
}

func (r *Registry) searchHotels(ctx context.Context, call app.Call, args json.RawMessage) (any, error) {
	var f app.HotelSearchFilters
	if err := r.bind(args, &f); err != nil {
		return nil, err
	}
	res, err := r.search.SearchHotels(ctx, call, f)
	if err != nil {
		return errorResult(err, nil)
	}
	return res, nil
}

type roomSearchArgs struct {
	Query    string `json:"query" validate:"required"`
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
	Guests   *int   `json:"guests"`
}

func (r *Registry) searchRooms(ctx context.Context, call app.Call, args json.RawMessage) (any, error) {
	var a roomSearchArgs
	if err := r.bind(args, &a); err != nil {
		return nil, err
	}
	res, err := r.search.SearchRooms(ctx, call, app.RoomSearchRequest{
		Query: a.Query, CheckIn: a.CheckIn, CheckOut: a.CheckOut, Guests: a.Guests,
	})
	if err != nil {
		return errorResult(err, nil)
	}
	return res, nil
}

func (r *Registry) getPropertyInfo(ctx context.Context, call app.Call, _ json.RawMessage) (any, error) {
	res, err := r.search.GetPropertyInfo(ctx, call)
	if err != nil {
		return errorResult(err, nil)
	}
	return res, nil
}

type roomArgs struct {
	RoomID string `json:"room_id" validate:"required"`
}

func (r *Registry) getRoomDetails(ctx context.Context, call app.Call, args json.RawMessage) (any, error) {
	var a roomArgs
	if err := r.bind(args, &a); err != nil {
		return nil, err
	}
	res, err := r.search.GetRoomDetails(ctx, call, a.RoomID)
	if err != nil {
		return errorResult(err, nil)
	}
	return res, nil
}

type knowledgeArgs struct {
	Query string `json:"query" validate:"required"`
}

func (r *Registry) searchKnowledgeBase(ctx context.Context, call app.Call, args json.RawMessage) (any, error) {
	var a knowledgeArgs
	if err := r.bind(args, &a); err != nil {
		return nil, err
	}
	res, err := r.search.SearchKnowledgeBase(ctx, call, a.Query)
	if err != nil {
		return errorResult(err, nil)
	}
	return res, nil
}

type stayArgs struct {
	RoomID   string `json:"room_id" validate:"required"`
	CheckIn  string `json:"check_in" validate:"required"`
	CheckOut string `json:"check_out" validate:"required"`
}

func (r *Registry) checkAvailability(ctx context.Context, call app.Call, args json.RawMessage) (any, error) {
	var a stayArgs
	if err := r.bind(args, &a); err != nil {
		return nil, err
	}
	res, err := r.booking.CheckAvailability(ctx, call, a.RoomID, a.CheckIn, a.CheckOut)
	if err != nil {
		return errorResult(err, map[string]any{"available": false})
	}
	return res, nil
}

type priceArgs struct {
	stayArgs
	Guests int `json:"guests" validate:"gte=0"`
}

func (r *Registry) calculatePrice(ctx context.Context, call app.Call, args json.RawMessage) (any, error) {
	var a priceArgs
	if err := r.bind(args, &a); err != nil {
		return nil, err
	}
	res, err := r.booking.CalculatePrice(ctx, call, a.RoomID, a.CheckIn, a.CheckOut, a.Guests)
	if err != nil {
		return errorResult(err, nil)
	}
	return res, nil
}

type bookingArgs struct {
	stayArgs
	GuestName  string  `json:"guest_name" validate:"required"`
	GuestEmail *string `json:"guest_email" validate:"omitempty,email"`
	Guests     int     `json:"guests"`
}

func (r *Registry) createBooking(ctx context.Context, call app.Call, args json.RawMessage) (any, error) {
	var a bookingArgs
	if err := r.bind(args, &a); err != nil {
		return nil, err
	}
	if a.Guests == 0 {
		a.Guests = 2
	}
	res, err := r.booking.CreateBooking(ctx, call, app.BookingRequest{
		RoomID: a.RoomID, GuestName: a.GuestName, GuestEmail: a.GuestEmail,
		CheckIn: a.CheckIn, CheckOut: a.CheckOut, Guests: a.Guests, Status: domain.BookingAIPending,
	})
	if err != nil {
		return errorResult(err, nil)
	}
	return res, nil
}

type bookingStatusArgs struct {
	BookingID string `json:"booking_id" validate:"required"`
}

func (r *Registry) getBookingStatus(ctx context.Context, call app.Call, args json.RawMessage) (any, error) {
	var a bookingStatusArgs
	if err := r.bind(args, &a); err != nil {
		return nil, err
	}
	res, err := r.booking.GetBookingStatus(ctx, call, a.BookingID)
	if err != nil {
		return errorResult(err, nil)
	}
	return res, nil
}
