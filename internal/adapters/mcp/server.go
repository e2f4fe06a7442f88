// Package mcpad serves the hotel search and booking tools to third-party chat hosts over MCP.
package mcpad

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"monobook/internal/app"
	"monobook/internal/domain"
)

const (
	// HeaderKey carries the shared secret when one is configured.
	HeaderKey = "X-Monobook-MCP-Key"
	widgetKey = "monobook/widget"
	channel   = domain.ChannelChatGPT
)

type tools struct {
	search  *app.SearchService
	booking *app.BookingService
}

// New builds the MCP server with the chat-host tool set registered.
func New(search *app.SearchService, booking *app.BookingService, version string) *server.MCPServer {
	s := server.NewMCPServer("monobook", version, server.WithToolCapabilities(false), server.WithRecovery())
	t := &tools{search: search, booking: booking}

	s.AddTool(mcp.NewTool("search_hotels",
		mcp.WithDescription("Search hotels by location, dates, guests, pets and budget."),
		mcp.WithString("query", mcp.Description("Free text matched against hotel and room fields")),
		mcp.WithString("property_name", mcp.Description("Hotel name contains")),
		mcp.WithString("city", mcp.Description("City contains")),
		mcp.WithString("country", mcp.Description("Country contains")),
		mcp.WithString("room_name", mcp.Description("Room name or type contains")),
		mcp.WithNumber("lat", mcp.Description("Latitude of the search centre")),
		mcp.WithNumber("lng", mcp.Description("Longitude of the search centre")),
		mcp.WithNumber("radius_km", mcp.Description("Search radius in km (default 20)")),
		mcp.WithString("check_in", mcp.Description("YYYY-MM-DD")),
		mcp.WithString("check_out", mcp.Description("YYYY-MM-DD")),
		mcp.WithNumber("guests", mcp.Description("Number of guests")),
		mcp.WithBoolean("pet_friendly", mcp.Description("Only rooms that allow pets")),
		mcp.WithNumber("budget_per_night_max", mcp.Description("Maximum nightly price")),
		mcp.WithNumber("budget_total_max", mcp.Description("Maximum total for the stay, taxes included")),
	), t.searchHotels)

	s.AddTool(mcp.NewTool("search_rooms",
		mcp.WithDescription("Search rooms of one hotel by description."),
		mcp.WithString("property_id", mcp.Required()),
		mcp.WithString("query", mcp.Required(), mcp.Description("What the guest is looking for")),
		mcp.WithString("check_in", mcp.Description("YYYY-MM-DD")),
		mcp.WithString("check_out", mcp.Description("YYYY-MM-DD")),
		mcp.WithNumber("guests"),
	), t.searchRooms)

	s.AddTool(mcp.NewTool("check_availability",
		mcp.WithDescription("Check whether a room is free for the given dates."),
		mcp.WithString("property_id", mcp.Required()),
		mcp.WithString("room_id", mcp.Required()),
		mcp.WithString("check_in", mcp.Required(), mcp.Description("YYYY-MM-DD")),
		mcp.WithString("check_out", mcp.Required(), mcp.Description("YYYY-MM-DD")),
	), t.checkAvailability)

	s.AddTool(mcp.NewTool("create_booking",
		mcp.WithDescription("Book a room. The booking is confirmed immediately."),
		mcp.WithString("property_id", mcp.Required()),
		mcp.WithString("room_id", mcp.Required()),
		mcp.WithString("guest_name", mcp.Required()),
		mcp.WithString("guest_email"),
		mcp.WithString("check_in", mcp.Required(), mcp.Description("YYYY-MM-DD")),
		mcp.WithString("check_out", mcp.Required(), mcp.Description("YYYY-MM-DD")),
		mcp.WithNumber("guests", mcp.Required()),
	), t.createBooking)

	return s
}

// Handler serves s over stateless streamable HTTP, guarded by secret when it is non-empty.
func Handler(s *server.MCPServer, secret string) http.Handler {
	h := server.NewStreamableHTTPServer(s, server.WithStateLess(true))
	if secret == "" {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if subtle.ConstantTimeCompare([]byte(r.Header.Get(HeaderKey)), []byte(secret)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		h.ServeHTTP(w, r)
	})
}

func result(tool string, structured any, text string) *mcp.CallToolResult {
	res := mcp.NewToolResultStructured(structured, text)
	res.Meta = mcp.NewMetaFromMap(map[string]any{widgetKey: tool})
	return res
}

func errorResult(tool string, err error) *mcp.CallToolResult {
	msg := err.Error()
	if e, ok := app.AsError(err); ok {
		msg = e.Msg
		if e.Kind == app.KindPersistence {
			log.Error().Err(err).Str("tool", tool).Msg("mcp tool failed")
		}
	}
	res := result(tool, map[string]any{"error": msg}, msg)
	res.IsError = true
	return res
}

func (t *tools) searchHotels(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var f app.HotelSearchFilters
	if err := req.BindArguments(&f); err != nil {
		return errorResult("search_hotels", fmt.Errorf("invalid arguments: %w", err)), nil
	}
	res, err := t.search.SearchHotels(ctx, app.Call{Channel: channel}, f)
	if err != nil {
		return errorResult("search_hotels", err), nil
	}
	return result("search_hotels", res, fmt.Sprintf("Found %d hotel(s).", res.CountHotels)), nil
}

type roomSearchArgs struct {
	PropertyID string `json:"property_id"`
	Query      string `json:"query"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	Guests     *int   `json:"guests"`
}

func (t *tools) searchRooms(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var a roomSearchArgs
	if err := req.BindArguments(&a); err != nil {
		return errorResult("search_rooms", fmt.Errorf("invalid arguments: %w", err)), nil
	}
	res, err := t.search.SearchRooms(ctx, app.Call{PropertyID: a.PropertyID, Channel: channel}, app.RoomSearchRequest{
		Query: a.Query, CheckIn: a.CheckIn, CheckOut: a.CheckOut, Guests: a.Guests,
	})
	if err != nil {
		return errorResult("search_rooms", err), nil
	}
	return result("search_rooms", res, fmt.Sprintf("Found %d room(s).", res.Count)), nil
}

func (t *tools) checkAvailability(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	propertyID, err := req.RequireString("property_id")
	if err != nil {
		return errorResult("check_availability", err), nil
	}
	res, err := t.booking.CheckAvailability(ctx, app.Call{PropertyID: propertyID, Channel: channel},
		req.GetString("room_id", ""), req.GetString("check_in", ""), req.GetString("check_out", ""))
	if err != nil {
		return errorResult("check_availability", err), nil
	}
	text := "Room is available."
	if !res.Available {
		text = "Room is not available for the selected dates."
	}
	return result("check_availability", res, text), nil
}

func (t *tools) createBooking(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	propertyID, err := req.RequireString("property_id")
	if err != nil {
		return errorResult("create_booking", err), nil
	}
	var email *string
	if e := req.GetString("guest_email", ""); e != "" {
		email = &e
	}
	res, err := t.booking.CreateBooking(ctx, app.Call{PropertyID: propertyID, Channel: channel}, app.BookingRequest{
		RoomID:     req.GetString("room_id", ""),
		GuestName:  req.GetString("guest_name", ""),
		GuestEmail: email,
		CheckIn:    req.GetString("check_in", ""),
		CheckOut:   req.GetString("check_out", ""),
		Guests:     req.GetInt("guests", 2),
		Status:     domain.BookingConfirmed,
	})
	if err != nil {
		return errorResult("create_booking", err), nil
	}
	return result("create_booking", res, res.Message), nil
}
