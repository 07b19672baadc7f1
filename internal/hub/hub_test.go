package hub

import (
	"context"
	"errors"
	"testing"
)

func TestEligibleSourcesExcludeAgencies(t *testing.T) {
	d := NewInMemory()
	ctx := context.Background()

	main, _ := d.Add(ctx, "Kingston & St. Andrew Depot", TypeMain, "Kingston")
	sub, _ := d.Add(ctx, "St. Catherine Depot", TypeSub, "St. Catherine")
	agency, _ := d.Add(ctx, "Red Cross Outpost", TypeAgency, "St. James")

	eligible, err := d.EligibleSources(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(eligible) != 2 {
		t.Fatalf("expected 2 eligible hubs, got %d", len(eligible))
	}
	for _, h := range eligible {
		if h.ID == agency.ID {
			t.Fatal("agency hub must never be a supply source")
		}
	}

	// Deactivated government hubs drop out too.
	if err := d.SetActive(ctx, sub.ID, false); err != nil {
		t.Fatal(err)
	}
	eligible, _ = d.EligibleSources(ctx)
	if len(eligible) != 1 || eligible[0].ID != main.ID {
		t.Fatalf("expected only the main depot, got %+v", eligible)
	}
}

func TestParseType(t *testing.T) {
	for _, typ := range []Type{TypeMain, TypeSub, TypeAgency} {
		got, err := ParseType(typ.String())
		if err != nil || got != typ {
			t.Fatalf("round trip failed for %s: %v", typ, err)
		}
	}
	if _, err := ParseType("DEPOT"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGetUnknownHub(t *testing.T) {
	d := NewInMemory()
	if _, err := d.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
