package event

import (
	"context"
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAddValidates(t *testing.T) {
	ctx := context.Background()
	d := NewInMemory()

	if _, err := d.Add(ctx, Event{StartDate: date(2025, 7, 1)}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing name err = %v, want ErrInvalidInput", err)
	}
	if _, err := d.Add(ctx, Event{Name: "Hurricane Beryl"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing start date err = %v, want ErrInvalidInput", err)
	}
	if _, err := d.Add(ctx, Event{
		Name:      "Hurricane Beryl",
		StartDate: date(2025, 7, 1),
		EndDate:   date(2025, 6, 1),
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("end before start err = %v, want ErrInvalidInput", err)
	}

	e, err := d.Add(ctx, Event{Name: "  Hurricane Beryl ", Type: TypeHurricane, StartDate: date(2025, 7, 1)})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if e.ID == "" || e.Name != "Hurricane Beryl" || !e.Active {
		t.Fatalf("unexpected event: %+v", e)
	}
}

func TestActiveExcludesClosedEvents(t *testing.T) {
	ctx := context.Background()
	d := NewInMemory()

	beryl, err := d.Add(ctx, Event{Name: "Hurricane Beryl", Type: TypeHurricane, StartDate: date(2024, 7, 1)})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := d.Add(ctx, Event{Name: "May Floods", Type: TypeFlood, StartDate: date(2025, 5, 12)}); err != nil {
		t.Fatalf("add: %v", err)
	}

	beryl.Active = false
	beryl.EndDate = date(2024, 8, 15)
	if _, err := d.Update(ctx, beryl); err != nil {
		t.Fatalf("update: %v", err)
	}

	active, err := d.Active(ctx)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if len(active) != 1 || active[0].Name != "May Floods" {
		t.Fatalf("unexpected active events: %+v", active)
	}

	all, err := d.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].Name != "May Floods" {
		t.Fatalf("listing not newest-first: %+v", all)
	}
}

func TestUpdateUnknownEvent(t *testing.T) {
	d := NewInMemory()
	_, err := d.Update(context.Background(), Event{ID: "missing", Name: "x", StartDate: date(2025, 1, 1)})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestParseType(t *testing.T) {
	if typ, err := ParseType(""); err != nil || typ != TypeUnspecified {
		t.Fatalf("empty = (%v, %v), want Unspecified", typ, err)
	}
	if typ, err := ParseType("hurricane"); err != nil || typ != TypeHurricane {
		t.Fatalf("hurricane = (%v, %v)", typ, err)
	}
	if _, err := ParseType("meteor"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}
