package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"monobook/internal/app"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report json field names instead of Go ones
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type roomSearchBody struct {
	Query    string `json:"query" validate:"required"`
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
	Guests   *int   `json:"guests"`
}

type knowledgeBody struct {
	Query string `json:"query" validate:"required"`
}

type createBookingBody struct {
	RoomID     string  `json:"room_id" validate:"required"`
	GuestName  string  `json:"guest_name" validate:"required,max=255"`
	GuestEmail *string `json:"guest_email" validate:"omitempty,email"`
	CheckIn    string  `json:"check_in" validate:"required"`
	CheckOut   string  `json:"check_out" validate:"required"`
	Guests     int     `json:"guests"`
	Status     string  `json:"status" validate:"omitempty,oneof=pending ai_pending confirmed"`
	Source     string  `json:"source"`
}

// decodeBody decodes and validates a JSON body, writing a 400 problem on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeProblemCode(w, http.StatusBadRequest, "Invalid JSON", err.Error(), app.CodeInvalidRequest)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeProblemCode(w, http.StatusBadRequest, "Bad Request", validationDetail(err), app.CodeInvalidRequest)
		return false
	}
	return true
}

func validationDetail(err error) string {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err.Error()
	}
	parts := make([]string, 0, len(ves))
	for _, fe := range ves {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

// parseHotelFilters reads search filters from query parameters; only malformed numbers are rejected here.
func parseHotelFilters(q url.Values) (app.HotelSearchFilters, error) {
	f := app.HotelSearchFilters{
		Query:        q.Get("query"),
		PropertyName: q.Get("property_name"),
		City:         q.Get("city"),
		Country:      q.Get("country"),
		RoomName:     q.Get("room_name"),
		CheckIn:      q.Get("check_in"),
		CheckOut:     q.Get("check_out"),
	}
	var err error
	floats := []struct {
		name string
		dst  **float64
	}{
		{"lat", &f.Lat}, {"lng", &f.Lng}, {"radius_km", &f.RadiusKM},
		{"budget_per_night_max", &f.BudgetPerNightMax}, {"budget_total_max", &f.BudgetTotalMax},
	}
	for _, fl := range floats {
		if *fl.dst, err = optFloat(q, fl.name); err != nil {
			return f, err
		}
	}
	if gs := q.Get("guests"); gs != "" {
		g, err := strconv.Atoi(gs)
		if err != nil {
			return f, fmt.Errorf("guests must be an integer")
		}
		f.Guests = &g
	}
	if ps := q.Get("pet_friendly"); ps != "" {
		b, err := strconv.ParseBool(ps)
		if err != nil {
			return f, fmt.Errorf("pet_friendly must be a boolean")
		}
		f.PetFriendly = b
	}
	return f, nil
}

func optFloat(q url.Values, name string) (*float64, error) {
	s := q.Get(name)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be a number", name)
	}
	return &v, nil
}
