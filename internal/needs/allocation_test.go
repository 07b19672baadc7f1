package needs

import (
	"errors"
	"testing"

	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/stock"
)

func TestCheckAvailabilityPoolsEligibleHubs(t *testing.T) {
	f := newFixture(t)
	f.receive("Rice-25kg", f.main.ID, 40)
	f.receive("Rice-25kg", f.sub.ID, 20)
	f.receive("Rice-25kg", f.agency.ID, 500) // agency stock never counts

	res, err := f.wf.Engine().CheckAvailability(f.ctx, []AllocationRequest{
		{SKU: "Rice-25kg", Qty: 100},
	})
	if err != nil {
		t.Fatalf("check availability: %v", err)
	}
	if !res.IsPartial {
		t.Fatalf("expected partial result")
	}
	item := res.Items[0]
	if item.Available != 60 || item.Allocated != 60 {
		t.Fatalf("availability = %+v, want available 60 allocated 60", item)
	}
}

func TestCheckAvailabilityCapsAtRequested(t *testing.T) {
	f := newFixture(t)
	f.receive("Water-1L", f.main.ID, 1000)

	res, err := f.wf.Engine().CheckAvailability(f.ctx, []AllocationRequest{
		{SKU: "Water-1L", Qty: 300},
	})
	if err != nil {
		t.Fatalf("check availability: %v", err)
	}
	if res.IsPartial {
		t.Fatalf("unexpected partial result: %+v", res)
	}
	if res.Items[0].Allocated != 300 || res.Items[0].Available != 1000 {
		t.Fatalf("availability = %+v", res.Items[0])
	}
}

func TestCheckAvailabilityIgnoresDeactivatedHubs(t *testing.T) {
	f := newFixture(t)
	f.receive("Rice-25kg", f.sub.ID, 50)
	if err := f.hubs.SetActive(f.ctx, f.sub.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	res, err := f.wf.Engine().CheckAvailability(f.ctx, []AllocationRequest{
		{SKU: "Rice-25kg", Qty: 10},
	})
	if err != nil {
		t.Fatalf("check availability: %v", err)
	}
	if res.Items[0].Available != 0 {
		t.Fatalf("available = %d, want 0", res.Items[0].Available)
	}
}

func TestValidateAllocationsCumulativeDrawDown(t *testing.T) {
	f := newFixture(t)
	f.receive("Rice-25kg", f.main.ID, 50)

	// Each row fits alone; together they oversubscribe the hub.
	err := f.wf.Engine().ValidateAllocations(f.ctx, []Fulfilment{
		{SKU: "Rice-25kg", HubID: f.main.ID, Qty: 30},
		{SKU: "Rice-25kg", HubID: f.main.ID, Qty: 30},
	})
	var insufficient *stock.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("err = %v, want InsufficientStockError", err)
	}
	s := insufficient.Shortfalls[0]
	if s.Available != 50 || s.Requested != 60 {
		t.Fatalf("shortfall = %+v", s)
	}
}

func TestValidateAllocationsRejectsAgencySource(t *testing.T) {
	f := newFixture(t)
	f.receive("Rice-25kg", f.agency.ID, 100)

	err := f.wf.Engine().ValidateAllocations(f.ctx, []Fulfilment{
		{SKU: "Rice-25kg", HubID: f.agency.ID, Qty: 10},
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestProgressPercent(t *testing.T) {
	cases := []struct {
		allocated, requested int
		want                 int
		ok                   bool
	}{
		{0, 100, 0, true},
		{33, 100, 33, true},
		{1, 3, 33, true}, // floor, not round
		{2, 3, 66, true},
		{100, 100, 100, true},
		{60, 80, 75, true},
		{5, 0, 0, false},
	}
	for _, tc := range cases {
		got, ok := ProgressPercent(tc.allocated, tc.requested)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ProgressPercent(%d, %d) = %d, %v; want %d, %v",
				tc.allocated, tc.requested, got, ok, tc.want, tc.ok)
		}
	}
}
