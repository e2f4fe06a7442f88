package app

import "time"

const (
	dateLayout     = "2006-01-02"
	maxStayNights  = 30
	maxAdvanceDays = 365
	maxGuests      = 20
)

// ParseDate parses YYYY-MM-DD as a UTC calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}

// Today is the UTC calendar date of now.
func Today(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func nightsBetween(checkIn, checkOut time.Time) int {
	return int(checkOut.Sub(checkIn).Hours() / 24)
}

// ValidateDates returns the message of the first violated rule, or "" when the stay is valid.
func ValidateDates(checkIn, checkOut string, today time.Time) string {
	ci, err1 := ParseDate(checkIn)
	co, err2 := ParseDate(checkOut)
	if err1 != nil || err2 != nil {
		return "Invalid date format. Use YYYY-MM-DD."
	}
	switch {
	case ci.Before(today):
		return "Check-in date cannot be in the past."
	case !co.After(ci):
		return "Check-out must be after check-in."
	case nightsBetween(ci, co) > maxStayNights:
		return "Maximum stay is 30 nights."
	case ci.After(today.AddDate(0, 0, maxAdvanceDays)):
		return "Cannot book more than 1 year in advance."
	}
	return ""
}

func ValidateGuestCount(n int) string {
	if n < 1 {
		return "Guest count must be at least 1."
	}
	if n > maxGuests {
		return "Maximum 20 guests per booking."
	}
	return ""
}

// stay is a validated date range.
type stay struct {
	CheckIn, CheckOut time.Time
}

func (s stay) Nights() int { return nightsBetween(s.CheckIn, s.CheckOut) }

func (s stay) strings() (string, string) {
	return s.CheckIn.Format(dateLayout), s.CheckOut.Format(dateLayout)
}

func validStay(checkIn, checkOut string, today time.Time) (stay, *Error) {
	if msg := ValidateDates(checkIn, checkOut, today); msg != "" {
		return stay{}, validation(CodeInvalidDates, msg)
	}
	ci, _ := ParseDate(checkIn)
	co, _ := ParseDate(checkOut)
	return stay{CheckIn: ci, CheckOut: co}, nil
}
