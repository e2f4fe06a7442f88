package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"monobook/internal/adapters/agenttools"
	"monobook/internal/app"
	"monobook/internal/domain"
)

const maxBodyBytes = 1 << 20

type Handlers struct {
	Search  *app.SearchService
	Booking *app.BookingService
	Audit   *app.Auditor
	Tools   *agenttools.Registry
	// Limiter guards the agent tool endpoint; nil disables limiting.
	Limiter domain.RateLimiter
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	Code   string `json:"code,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/hotels/search", h.searchHotels)
	s.mux.Route("/v1/properties/{propertyID}", func(r chi.Router) {
		r.Get("/", h.getProperty)
		r.Post("/rooms/search", h.searchRooms)
		r.Get("/rooms/{roomID}", h.getRoom)
		r.Get("/rooms/{roomID}/availability", h.checkAvailability)
		r.Get("/rooms/{roomID}/price", h.calculatePrice)
		r.Post("/knowledge/search", h.searchKnowledge)
		r.Post("/bookings", h.createBooking)
		r.Get("/bookings/{bookingID}", h.getBooking)
		r.Get("/audit", h.listAudit)
		r.With(Conversation, RateLimit(h.Limiter, "agent")).Post("/agent/tools/{tool}", h.callTool)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblemCode(w, status, title, detail, "")
}

func writeProblemCode(w http.ResponseWriter, status int, title, detail, code string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail, Code: code}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeAppError maps service errors onto problem responses. Collaborator faults are logged, not echoed.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := app.AsError(err)
	if !ok {
		e = &app.Error{Kind: app.KindPersistence, Code: app.CodePersistence, Msg: err.Error(), Err: err}
	}
	switch e.Kind {
	case app.KindValidation:
		writeProblemCode(w, http.StatusBadRequest, "Bad Request", e.Msg, e.Code)
	case app.KindNotFound:
		writeProblemCode(w, http.StatusNotFound, "Not Found", e.Msg, e.Code)
	case app.KindConflict:
		writeProblemCode(w, http.StatusConflict, "Conflict", e.Msg, e.Code)
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeProblemCode(w, http.StatusInternalServerError, "Internal Server Error", "the request could not be completed", e.Code)
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCacheable answers GETs with a weak ETag and honours If-None-Match.
func writeCacheable(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write JSON body")
	}
}

func call(r *http.Request, ch domain.Channel) app.Call {
	return app.Call{PropertyID: chi.URLParam(r, "propertyID"), Channel: ch, ConversationID: conversationID(r.Context())}
}

func (h *Handlers) searchHotels(w http.ResponseWriter, r *http.Request) {
	f, err := parseHotelFilters(r.URL.Query())
	if err != nil {
		writeProblemCode(w, http.StatusBadRequest, "Bad Request", err.Error(), app.CodeInvalidFilters)
		return
	}
	res, err := h.Search.SearchHotels(r.Context(), app.Call{Channel: domain.ChannelAPI}, f)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeCacheable(w, r, res)
}

func (h *Handlers) getProperty(w http.ResponseWriter, r *http.Request) {
	res, err := h.Search.GetPropertyInfo(r.Context(), call(r, domain.ChannelAPI))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeCacheable(w, r, res)
}

func (h *Handlers) getRoom(w http.ResponseWriter, r *http.Request) {
	res, err := h.Search.GetRoomDetails(r.Context(), call(r, domain.ChannelAPI), chi.URLParam(r, "roomID"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeCacheable(w, r, res)
}

func (h *Handlers) searchRooms(w http.ResponseWriter, r *http.Request) {
	var body roomSearchBody
	if !decodeBody(w, r, &body) {
		return
	}
	res, err := h.Search.SearchRooms(r.Context(), call(r, domain.ChannelAPI), app.RoomSearchRequest{
		Query: body.Query, CheckIn: body.CheckIn, CheckOut: body.CheckOut, Guests: body.Guests,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) searchKnowledge(w http.ResponseWriter, r *http.Request) {
	var body knowledgeBody
	if !decodeBody(w, r, &body) {
		return
	}
	res, err := h.Search.SearchKnowledgeBase(r.Context(), call(r, domain.ChannelAPI), body.Query)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) checkAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.Booking.CheckAvailability(r.Context(), call(r, domain.ChannelAPI),
		chi.URLParam(r, "roomID"), q.Get("check_in"), q.Get("check_out"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) calculatePrice(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	guests := 0
	if gs := q.Get("guests"); gs != "" {
		g, err := strconv.Atoi(gs)
		if err != nil {
			writeProblemCode(w, http.StatusBadRequest, "Bad Request", "guests must be an integer", app.CodeInvalidGuestCount)
			return
		}
		guests = g
	}
	res, err := h.Booking.CalculatePrice(r.Context(), call(r, domain.ChannelAPI),
		chi.URLParam(r, "roomID"), q.Get("check_in"), q.Get("check_out"), guests)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeCacheable(w, r, res)
}

func (h *Handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	var body createBookingBody
	if !decodeBody(w, r, &body) {
		return
	}
	ch := domain.ChannelAPI
	if body.Source != "" {
		parsed, err := domain.ParseChannel(body.Source)
		if err != nil {
			writeProblemCode(w, http.StatusBadRequest, "Bad Request", err.Error(), app.CodeInvalidRequest)
			return
		}
		ch = parsed
	}
	status := domain.BookingPending
	if body.Status != "" {
		status = domain.BookingStatus(body.Status)
	}
	res, err := h.Booking.CreateBooking(r.Context(), call(r, ch), app.BookingRequest{
		RoomID: body.RoomID, GuestName: body.GuestName, GuestEmail: body.GuestEmail,
		CheckIn: body.CheckIn, CheckOut: body.CheckOut, Guests: body.Guests, Status: status,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	w.Header().Set("Location", r.URL.Path+"/"+res.BookingID)
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handlers) getBooking(w http.ResponseWriter, r *http.Request) {
	res, err := h.Booking.GetBookingStatus(r.Context(), call(r, domain.ChannelAPI), chi.URLParam(r, "bookingID"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) listAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := app.AuditLogRequest{PropertyID: chi.URLParam(r, "propertyID"), Source: q.Get("source"), Cursor: q.Get("cursor")}
	if ls := q.Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil {
			writeProblemCode(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 100", app.CodeInvalidFilters)
			return
		}
		req.Limit = l
	}
	page, err := h.Audit.ListAuditLog(r.Context(), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// callTool runs one agent tool. Expected tool failures are 200 responses carrying {"error": ...}.
func (h *Handlers) callTool(w http.ResponseWriter, r *http.Request) {
	args, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeProblem(w, http.StatusRequestEntityTooLarge, "Payload Too Large", "request body too large")
		return
	}
	tool := chi.URLParam(r, "tool")
	res, err := h.Tools.Call(r.Context(), call(r, domain.ChannelWidget), tool, args)
	switch {
	case errors.Is(err, agenttools.ErrUnknownTool):
		writeProblem(w, http.StatusNotFound, "Not Found", "unknown tool "+strings.TrimSpace(tool))
		return
	case errors.Is(err, agenttools.ErrInvalidArgs):
		writeProblemCode(w, http.StatusBadRequest, "Bad Request", err.Error(), app.CodeInvalidRequest)
		return
	case err != nil:
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
