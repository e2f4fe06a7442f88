package app_test

import (
	"context"
	"testing"

	"monobook/internal/app"
)

func TestGetPropertyInfo(t *testing.T) {
	s := newFixture()
	svc := app.NewSearchService(newDeps(s))

	info, err := svc.GetPropertyInfo(context.Background(), roomsCall("prop-1"))
	if err != nil {
		t.Fatalf("GetPropertyInfo: %v", err)
	}
	if info.Name != "Volosyanka Hills Hotel" || info.Rating == nil || *info.Rating != 4.8 {
		t.Fatalf("unexpected info: %+v", info)
	}
	if info.Host == nil || info.Host.Name != "Olena" || !info.Host.Superhost {
		t.Fatalf("unexpected host: %+v", info.Host)
	}

	info, err = svc.GetPropertyInfo(context.Background(), roomsCall("prop-2"))
	if err != nil || info.Host != nil {
		t.Fatalf("want no host for prop-2, got %+v (%v)", info.Host, err)
	}

	if _, err := svc.GetPropertyInfo(context.Background(), roomsCall("nope")); errCode(err) != app.CodeNotFound {
		t.Fatalf("want not_found, got %v", err)
	}
	if len(s.AuditFor("get_property_info")) != 2 {
		t.Fatalf("want audit entries for successful lookups only")
	}
}

func TestGetRoomDetails(t *testing.T) {
	s := newFixture()
	// stored out of order
	s.Tiers[0], s.Tiers[1] = s.Tiers[1], s.Tiers[0]
	svc := app.NewSearchService(newDeps(s))

	d, err := svc.GetRoomDetails(context.Background(), roomsCall("prop-1"), "room-2")
	if err != nil {
		t.Fatalf("GetRoomDetails: %v", err)
	}
	if d.Name != "Family Loft" || d.Status != "active" || d.CurrencyDisplay != "$" {
		t.Fatalf("unexpected details: %+v", d)
	}
	if len(d.PricingTiers) != 2 || d.PricingTiers[0].MinGuests != 1 || d.PricingTiers[1].PricePerNight != 220 {
		t.Fatalf("unexpected tiers: %+v", d.PricingTiers)
	}

	if _, err := svc.GetRoomDetails(context.Background(), roomsCall("prop-2"), "room-2"); errCode(err) != app.CodeRoomNotFound {
		t.Fatalf("room of another property must not resolve, got %v", err)
	}
}
