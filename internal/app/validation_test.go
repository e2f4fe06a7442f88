package app_test

import (
	"testing"

	"monobook/internal/app"
)

func TestValidateDates(t *testing.T) {
	cases := []struct {
		name      string
		in, out   string
		wantError string
	}{
		{"valid", dateStr(1), dateStr(3), ""},
		{"today is allowed", dateStr(0), dateStr(1), ""},
		{"bad format", "2030/01/01", dateStr(3), "Invalid date format. Use YYYY-MM-DD."},
		{"past", dateStr(-1), dateStr(2), "Check-in date cannot be in the past."},
		{"same day", dateStr(4), dateStr(4), "Check-out must be after check-in."},
		{"reversed", dateStr(5), dateStr(4), "Check-out must be after check-in."},
		{"31 nights", dateStr(1), dateStr(32), "Maximum stay is 30 nights."},
		{"30 nights", dateStr(1), dateStr(31), ""},
		{"too far ahead", dateStr(366), dateStr(367), "Cannot book more than 1 year in advance."},
		{"exactly a year ahead", dateStr(365), dateStr(366), ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := app.ValidateDates(tc.in, tc.out, today()); got != tc.wantError {
				t.Fatalf("ValidateDates(%s, %s) = %q, want %q", tc.in, tc.out, got, tc.wantError)
			}
		})
	}
}

func TestValidateGuestCount(t *testing.T) {
	cases := map[int]string{
		0:  "Guest count must be at least 1.",
		-3: "Guest count must be at least 1.",
		1:  "",
		20: "",
		21: "Maximum 20 guests per booking.",
	}
	for n, want := range cases {
		if got := app.ValidateGuestCount(n); got != want {
			t.Fatalf("ValidateGuestCount(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestToday_TruncatesToUTCDate(t *testing.T) {
	got := app.Today(fixedNow)
	if got.Hour() != 0 || got.Day() != 19 || got.Location().String() != "UTC" {
		t.Fatalf("unexpected today: %v", got)
	}
}
