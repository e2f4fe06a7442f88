package domain

// Property is a bookable hotel. Name comes from the owning account.
type Property struct {
	ID          string
	AccountID   string
	Name        string
	Description string
	City        *string
	Country     *string
	Lat, Lng    *float64
	Rating      *float64
}

// Coords returns the property location, or nil when either coordinate is missing.
func (p Property) Coords() *Coords {
	if p.Lat == nil || p.Lng == nil {
		return nil
	}
	return &Coords{Lat: *p.Lat, Lng: *p.Lng}
}

type Coords struct{ Lat, Lng float64 }

type HostProfile struct {
	PropertyID string
	Name       string
	Bio        string
	Superhost  bool
	Rating     *float64
}
