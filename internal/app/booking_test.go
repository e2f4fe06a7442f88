package app_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"monobook/internal/app"
	"monobook/internal/domain"
)

func bookingCall(propertyID string, ch domain.Channel) app.Call {
	return app.Call{PropertyID: propertyID, Channel: ch}
}

func TestCreateBooking_PricesAndStoresBooking(t *testing.T) {
	s := newFixture()
	svc := app.NewBookingService(newDeps(s))

	res, err := svc.CreateBooking(context.Background(), bookingCall("prop-1", domain.ChannelWidget), app.BookingRequest{
		RoomID: "room-2", GuestName: " Ana Kovalenko ", GuestEmail: pstr("ana@example.com"),
		CheckIn: dateStr(30), CheckOut: dateStr(32), Guests: 4,
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if res.Status != domain.BookingAIPending || res.GuestName != "Ana Kovalenko" || res.Nights != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Total != 603.2 || res.Currency != "USD" || res.CurrencyDisplay != "$" {
		t.Fatalf("unexpected price: %+v", res)
	}
	want := "Booking created successfully! Confirmation ID: " + strings.ToUpper(res.BookingID[:8])
	if res.Message != want {
		t.Fatalf("message = %q, want %q", res.Message, want)
	}

	var stored *domain.Booking
	for _, b := range s.BookingsFor("room-2") {
		if b.ID == res.BookingID {
			b := b
			stored = &b
		}
	}
	if stored == nil {
		t.Fatalf("booking %s not stored", res.BookingID)
	}
	if !stored.AIHandled || stored.Source != domain.ChannelWidget || stored.GuestID == "" {
		t.Fatalf("unexpected stored booking: %+v", stored)
	}

	entries := s.AuditFor("create_booking")
	if len(entries) != 1 || entries[0].Status != domain.AuditSuccess || entries[0].Description != "Created booking for Ana Kovalenko" {
		t.Fatalf("unexpected audit: %+v", entries)
	}
}

func TestCreateBooking_APIChannelIsNotAIHandled(t *testing.T) {
	s := newFixture()
	svc := app.NewBookingService(newDeps(s))

	res, err := svc.CreateBooking(context.Background(), bookingCall("prop-2", domain.ChannelAPI), app.BookingRequest{
		RoomID: "room-3", GuestName: "Taras", CheckIn: dateStr(5), CheckOut: dateStr(6), Guests: 1,
		Status: domain.BookingConfirmed,
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	b := s.BookingsFor("room-3")[0]
	if b.AIHandled || b.Status != domain.BookingConfirmed || res.CurrencyDisplay != "₴" {
		t.Fatalf("unexpected booking: %+v / %+v", b, res)
	}
}

func TestCreateBooking_SecondOverlappingRequestIsRejected(t *testing.T) {
	s := newFixture()
	svc := app.NewBookingService(newDeps(s))
	call := bookingCall("prop-3", domain.ChannelChatGPT)
	req := app.BookingRequest{RoomID: "room-4", GuestName: "Marek", CheckIn: dateStr(10), CheckOut: dateStr(13), Guests: 2}

	if _, err := svc.CreateBooking(context.Background(), call, req); err != nil {
		t.Fatalf("first booking: %v", err)
	}
	req.CheckIn, req.CheckOut = dateStr(12), dateStr(14)
	_, err := svc.CreateBooking(context.Background(), call, req)
	if errCode(err) != app.CodeRoomUnavailable {
		t.Fatalf("want room_unavailable, got %v", err)
	}
	if err.Error() != "Room is not available for the selected dates." {
		t.Fatalf("message = %q", err.Error())
	}

	// back-to-back stays share a boundary day
	req.CheckIn, req.CheckOut = dateStr(13), dateStr(15)
	if _, err := svc.CreateBooking(context.Background(), call, req); err != nil {
		t.Fatalf("adjacent booking: %v", err)
	}

	var failed int
	for _, e := range s.AuditFor("create_booking") {
		if e.Status == domain.AuditError {
			failed++
		}
	}
	if failed != 1 {
		t.Fatalf("want one failed audit entry, got %d", failed)
	}
}

func TestCreateBooking_ConcurrentRequestsYieldOneBooking(t *testing.T) {
	s := newFixture()
	svc := app.NewBookingService(newDeps(s))
	const n = 8

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		ok          int
		unavailable int
		other       []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.CreateBooking(context.Background(), bookingCall("prop-3", domain.ChannelMCP), app.BookingRequest{
				RoomID: "room-4", GuestName: fmt.Sprintf("Guest %d", i), CheckIn: dateStr(20), CheckOut: dateStr(23), Guests: 2,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errCode(err) == app.CodeRoomUnavailable:
				unavailable++
			default:
				other = append(other, err)
			}
		}(i)
	}
	wg.Wait()

	if len(other) > 0 {
		t.Fatalf("unexpected errors: %v", other)
	}
	if ok != 1 || unavailable != n-1 {
		t.Fatalf("want 1 success and %d conflicts, got %d and %d", n-1, ok, unavailable)
	}
	if got := len(s.BookingsFor("room-4")); got != 1 {
		t.Fatalf("want exactly one stored booking, got %d", got)
	}
}

func TestCreateBooking_RechecksConflictsInsideTransaction(t *testing.T) {
	s := newFixture()
	// another writer commits between the availability pre-check and the transaction
	s.BeforeInsert = func() {
		s.AddBooking(domain.Booking{
			ID: "bk-sneaky", PropertyID: "prop-1", RoomID: "room-2",
			CheckIn: onDay(40), CheckOut: onDay(42), Status: domain.BookingConfirmed,
		})
	}
	svc := app.NewBookingService(newDeps(s))

	_, err := svc.CreateBooking(context.Background(), bookingCall("prop-1", domain.ChannelWidget), app.BookingRequest{
		RoomID: "room-2", GuestName: "Late", CheckIn: dateStr(41), CheckOut: dateStr(43), Guests: 2,
	})
	if errCode(err) != app.CodeRoomUnavailable {
		t.Fatalf("want room_unavailable, got %v", err)
	}
	for _, b := range s.BookingsFor("room-2") {
		if b.ID != "bk-sneaky" && b.ID != "bk-cancelled" {
			t.Fatalf("losing booking was stored: %+v", b)
		}
	}
}

func TestCreateBooking_ReusesGuestByNameAndEmail(t *testing.T) {
	s := newFixture()
	svc := app.NewBookingService(newDeps(s))
	call := bookingCall("prop-3", domain.ChannelWidget)

	for _, days := range [][2]int{{3, 4}, {5, 6}} {
		_, err := svc.CreateBooking(context.Background(), call, app.BookingRequest{
			RoomID: "room-4", GuestName: "Ola", GuestEmail: pstr("ola@example.com"),
			CheckIn: dateStr(days[0]), CheckOut: dateStr(days[1]), Guests: 1,
		})
		if err != nil {
			t.Fatalf("CreateBooking: %v", err)
		}
	}
	bs := s.BookingsFor("room-4")
	if len(bs) != 2 || bs[0].GuestID != bs[1].GuestID || len(s.Guests) != 1 {
		t.Fatalf("want a single reused guest, got bookings %+v guests %+v", bs, s.Guests)
	}
}

func TestCreateBooking_Validation(t *testing.T) {
	base := app.BookingRequest{RoomID: "room-2", GuestName: "Ana", CheckIn: dateStr(3), CheckOut: dateStr(5), Guests: 2}
	cases := []struct {
		name string
		call app.Call
		mod  func(*app.BookingRequest)
		code string
	}{
		{"past dates", bookingCall("prop-1", domain.ChannelWidget), func(r *app.BookingRequest) { r.CheckIn = dateStr(-1) }, app.CodeInvalidDates},
		{"too many guests", bookingCall("prop-1", domain.ChannelWidget), func(r *app.BookingRequest) { r.Guests = 21 }, app.CodeInvalidGuestCount},
		{"blank name", bookingCall("prop-1", domain.ChannelWidget), func(r *app.BookingRequest) { r.GuestName = "  " }, app.CodeInvalidRequest},
		{"cancelled status", bookingCall("prop-1", domain.ChannelWidget), func(r *app.BookingRequest) { r.Status = domain.BookingCancelled }, app.CodeInvalidRequest},
		{"unknown channel", bookingCall("prop-1", domain.Channel("fax")), func(*app.BookingRequest) {}, app.CodeInvalidRequest},
		{"unknown room", bookingCall("prop-1", domain.ChannelWidget), func(r *app.BookingRequest) { r.RoomID = "room-404" }, app.CodeRoomNotFound},
		{"draft room", bookingCall("prop-1", domain.ChannelWidget), func(r *app.BookingRequest) { r.RoomID = "room-5" }, app.CodeRoomNotFound},
		{"room of another property", bookingCall("prop-2", domain.ChannelWidget), func(*app.BookingRequest) {}, app.CodeRoomNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newFixture()
			req := base
			tc.mod(&req)
			_, err := app.NewBookingService(newDeps(s)).CreateBooking(context.Background(), tc.call, req)
			if errCode(err) != tc.code {
				t.Fatalf("want %s, got %v", tc.code, err)
			}
			if len(s.BookingsFor(req.RoomID)) > 1 {
				t.Fatalf("no booking should be stored")
			}
		})
	}
}

func TestCheckAvailability(t *testing.T) {
	s := newFixture()
	svc := app.NewBookingService(newDeps(s))
	call := bookingCall("prop-1", domain.ChannelWidget)

	res, err := svc.CheckAvailability(context.Background(), call, "room-1", dateStr(30), dateStr(32))
	if err != nil {
		t.Fatalf("CheckAvailability: %v", err)
	}
	if res.Available || res.Conflicts != 1 {
		t.Fatalf("room-1 should be taken: %+v", res)
	}

	res, err = svc.CheckAvailability(context.Background(), call, "room-2", dateStr(30), dateStr(32))
	if err != nil || !res.Available || res.Conflicts != 0 {
		t.Fatalf("room-2 should be free: %+v (%v)", res, err)
	}

	entries := s.AuditFor("check_availability")
	if len(entries) != 2 || entries[0].Description != "Checked availability for room room-1: unavailable" {
		t.Fatalf("unexpected audit: %+v", entries)
	}

	if _, err := svc.CheckAvailability(context.Background(), call, "room-1", "tomorrow", dateStr(3)); errCode(err) != app.CodeInvalidDates {
		t.Fatalf("want invalid_dates, got %v", err)
	}
}

func TestCalculatePrice_DefaultsToTwoGuests(t *testing.T) {
	s := newFixture()
	svc := app.NewBookingService(newDeps(s))

	q, err := svc.CalculatePrice(context.Background(), bookingCall("prop-1", domain.ChannelWidget), "room-2", dateStr(30), dateStr(32), 0)
	if err != nil {
		t.Fatalf("CalculatePrice: %v", err)
	}
	// 300 override + 150 tier for two guests
	if q.NightlyRate != 150 || q.Subtotal != 450 || q.Taxes != 54 || q.ServiceFee != 18 || q.Total != 522 {
		t.Fatalf("unexpected quote: %+v", q)
	}
	if q.RoomName != "Family Loft" || q.CurrencyDisplay != "$" {
		t.Fatalf("unexpected quote labels: %+v", q)
	}
}

func TestGetBookingStatus(t *testing.T) {
	s := newFixture()
	svc := app.NewBookingService(newDeps(s))
	ctx := context.Background()

	res, err := svc.GetBookingStatus(ctx, bookingCall("prop-1", domain.ChannelWidget), "bk-confirmed")
	if err != nil {
		t.Fatalf("GetBookingStatus: %v", err)
	}
	if res.Status != domain.BookingConfirmed || res.GuestName != "Existing Guest" || res.CheckIn != dateStr(30) || res.TotalPrice != 278.4 {
		t.Fatalf("unexpected status: %+v", res)
	}

	_, err = svc.GetBookingStatus(ctx, bookingCall("prop-2", domain.ChannelWidget), "bk-confirmed")
	if e, _ := app.AsError(err); e == nil || e.Msg != "Booking not found for this property." {
		t.Fatalf("want property mismatch, got %v", err)
	}
	_, err = svc.GetBookingStatus(ctx, bookingCall("prop-1", domain.ChannelWidget), "bk-missing")
	if e, _ := app.AsError(err); e == nil || e.Msg != "Booking not found." {
		t.Fatalf("want not found, got %v", err)
	}
}

func TestConfirmationMessage(t *testing.T) {
	got := app.ConfirmationMessage("a1b2c3d4-e5f6-0000-0000-000000000000")
	if got != "Booking created successfully! Confirmation ID: A1B2C3D4" {
		t.Fatalf("got %q", got)
	}
}
