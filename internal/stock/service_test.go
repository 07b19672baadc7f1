package stock

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func seedIn(t *testing.T, s *InMemory, sku, hub string, qty int) {
	t.Helper()
	if _, err := s.Append(context.Background(), Movement{SKU: sku, HubID: hub, Direction: In, Qty: qty}); err != nil {
		t.Fatalf("seed %s@%s: %v", sku, hub, err)
	}
}

func TestDerivedStock(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	seedIn(t, s, "ITM-RICE25", "h1", 100)
	seedIn(t, s, "ITM-RICE25", "h1", 20)
	if _, err := s.Append(ctx, Movement{SKU: "ITM-RICE25", HubID: "h1", Direction: Out, Qty: 60}); err != nil {
		t.Fatal(err)
	}

	got, err := s.StockAt(ctx, "ITM-RICE25", "h1")
	if err != nil {
		t.Fatal(err)
	}
	if got != 60 {
		t.Fatalf("stock = %d, want 60", got)
	}
}

func TestOutCannotOversubscribe(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	seedIn(t, s, "ITM-WATER1", "h1", 10)

	_, err := s.Append(ctx, Movement{SKU: "ITM-WATER1", HubID: "h1", Direction: Out, Qty: 11})
	var insufficient *InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	sf := insufficient.Shortfalls
	if len(sf) != 1 || sf[0].Available != 10 || sf[0].Requested != 11 {
		t.Fatalf("unexpected shortfalls: %+v", sf)
	}

	// Nothing was written.
	got, _ := s.StockAt(ctx, "ITM-WATER1", "h1")
	if got != 10 {
		t.Fatalf("stock = %d, want 10", got)
	}
}

func TestAppendAllIsAtomic(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	seedIn(t, s, "ITM-RICE25", "h1", 50)
	seedIn(t, s, "ITM-TARPS", "h1", 5)

	before, _, _ := s.ListMovements(ctx, 1000, 0)

	_, err := s.AppendAll(ctx, []Movement{
		{SKU: "ITM-RICE25", HubID: "h1", Direction: Out, Qty: 20},
		{SKU: "ITM-TARPS", HubID: "h1", Direction: Out, Qty: 9}, // shortfall
	})
	var insufficient *InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}

	after, _, _ := s.ListMovements(ctx, 1000, 0)
	if len(after) != len(before) {
		t.Fatalf("failed batch appended %d rows", len(after)-len(before))
	}
	if got, _ := s.StockAt(ctx, "ITM-RICE25", "h1"); got != 50 {
		t.Fatalf("rice stock mutated to %d on failed batch", got)
	}
}

func TestAppendAllSequencesAndBalances(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	seedIn(t, s, "ITM-RICE25", "hA", 20)
	seedIn(t, s, "ITM-RICE25", "hB", 30)

	out, err := s.AppendAll(ctx, []Movement{
		{SKU: "ITM-RICE25", HubID: "hA", Direction: Out, Qty: 20},
		{SKU: "ITM-RICE25", HubID: "dest", Direction: In, Qty: 20},
		{SKU: "ITM-RICE25", HubID: "hB", Direction: Out, Qty: 30},
		{SKU: "ITM-RICE25", HubID: "dest", Direction: In, Qty: 30},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 4 {
		t.Fatalf("appended %d rows, want 4", len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[i].Sequence != out[i-1].Sequence+1 {
			t.Fatalf("sequences not contiguous: %d then %d", out[i-1].Sequence, out[i].Sequence)
		}
	}
	byHub, _ := s.StockBySKU(ctx, "ITM-RICE25")
	if byHub["hA"] != 0 || byHub["hB"] != 0 || byHub["dest"] != 50 {
		t.Fatalf("unexpected balances: %v", byHub)
	}
}

func TestConcurrentOuts(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	seedIn(t, s, "ITM-RICE25", "h1", 1000)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Append(ctx, Movement{SKU: "ITM-RICE25", HubID: "h1", Direction: Out, Qty: 30})
		}()
	}
	wg.Wait()

	got, _ := s.StockAt(ctx, "ITM-RICE25", "h1")
	if got < 0 {
		t.Fatalf("stock went negative under concurrency: %d", got)
	}
	// 33 withdrawals of 30 fit into 1000; the rest must have been refused.
	if got != 1000-33*30 {
		t.Fatalf("stock = %d, want %d", got, 1000-33*30)
	}
}

func TestCatalog(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	item, err := s.RegisterItem(ctx, Item{Name: "Rice 25kg", Category: "Food", Unit: "bag", MinQty: 40})
	if err != nil {
		t.Fatal(err)
	}
	if item.SKU == "" {
		t.Fatal("expected generated SKU")
	}

	seedIn(t, s, item.SKU, "h1", 25)
	low, err := s.LowStock(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(low) != 1 || low[0].Stock != 25 {
		t.Fatalf("unexpected low stock report: %+v", low)
	}

	seedIn(t, s, item.SKU, "h2", 100)
	low, _ = s.LowStock(ctx)
	if len(low) != 0 {
		t.Fatalf("item above threshold still reported: %+v", low)
	}
}

func TestValidation(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	cases := []Movement{
		{SKU: "", HubID: "h1", Direction: In, Qty: 1},
		{SKU: "ITM-X", HubID: "", Direction: In, Qty: 1},
		{SKU: "ITM-X", HubID: "h1", Direction: DirectionUnknown, Qty: 1},
		{SKU: "ITM-X", HubID: "h1", Direction: In, Qty: 0},
		{SKU: "ITM-X", HubID: "h1", Direction: In, Qty: -3},
	}
	for i, m := range cases {
		if _, err := s.Append(ctx, m); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}
