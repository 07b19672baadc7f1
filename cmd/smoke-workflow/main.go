package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/hub"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/identity"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/needs"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/stock"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/stream"
)

// Runs the whole fulfilment workflow in process against in-memory stores and
// verifies stock conservation at the end.
func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hubs := hub.NewInMemory()
	depot, err := hubs.Add(ctx, "Kingston Central Depot", hub.TypeMain, "Kingston")
	if err != nil {
		log.Fatalf("add main hub: %v", err)
	}
	agency, err := hubs.Add(ctx, "Red Cross Relief Centre", hub.TypeAgency, "Kingston")
	if err != nil {
		log.Fatalf("add agency hub: %v", err)
	}

	ledger := stock.NewInMemory()
	store := needs.NewInMemoryStore()
	wf := needs.NewWorkflow(store, needs.NewEngine(ledger, hubs), needs.NewLockManager(store), hubs, stream.New(),
		needs.NewInMemoryCommitter(store, ledger))

	field := identity.User{ID: "u-field", FullName: "Field Officer", Role: identity.RoleFieldPersonnel, HubID: agency.ID}
	officer := identity.User{ID: "u-officer", FullName: "Logistics Officer", Role: identity.RoleLogisticsOfficer}
	manager := identity.User{ID: "u-manager", FullName: "Logistics Manager", Role: identity.RoleLogisticsManager}
	warehouse := identity.User{ID: "u-warehouse", FullName: "Warehouse Staff", Role: identity.RoleWarehouseStaff, HubID: depot.ID}

	const seeded = 100
	if _, err := ledger.Append(ctx, stock.Movement{
		SKU: "ITM-000001", Direction: stock.In, Qty: seeded, HubID: depot.ID, CreatedBy: warehouse.ID,
	}); err != nil {
		log.Fatalf("seed stock: %v", err)
	}

	l, err := wf.CreateDraft(ctx, field, needs.CreateInput{
		HubID: agency.ID,
		Items: []needs.ItemInput{{SKU: "ITM-000001", Qty: 60}},
	})
	if err != nil {
		log.Fatalf("create draft: %v", err)
	}
	if _, err := wf.Submit(ctx, field, l.ID); err != nil {
		log.Fatalf("submit: %v", err)
	}
	if err := wf.Locks().Acquire(ctx, l.ID, officer); err != nil {
		log.Fatalf("acquire lock: %v", err)
	}
	rows := []needs.AllocationInput{{SKU: "ITM-000001", HubID: depot.ID, Qty: 60}}
	if _, err := wf.SaveFulfilment(ctx, officer, l.ID, rows); err != nil {
		log.Fatalf("save fulfilment: %v", err)
	}
	if _, err := wf.SubmitForApproval(ctx, officer, l.ID, nil); err != nil {
		log.Fatalf("submit for approval: %v", err)
	}
	if _, err := wf.Approve(ctx, manager, l.ID, "smoke approval"); err != nil {
		log.Fatalf("approve: %v", err)
	}
	if _, err := wf.Dispatch(ctx, warehouse, l.ID); err != nil {
		log.Fatalf("dispatch: %v", err)
	}
	final, err := wf.ConfirmReceipt(ctx, field, l.ID)
	if err != nil {
		log.Fatalf("confirm receipt: %v", err)
	}
	if final.Status != needs.StatusCompleted {
		log.Fatalf("expected Completed, got %s", final.Status)
	}

	atMain, err := ledger.StockAt(ctx, "ITM-000001", depot.ID)
	if err != nil {
		log.Fatalf("stock at depot: %v", err)
	}
	atAgency, err := ledger.StockAt(ctx, "ITM-000001", agency.ID)
	if err != nil {
		log.Fatalf("stock at agency: %v", err)
	}
	if atMain+atAgency != seeded {
		log.Fatalf("stock conservation failed: %d + %d", atMain, atAgency)
	}
	if atMain != 40 || atAgency != 60 {
		log.Fatalf("unexpected balances: depot=%d agency=%d", atMain, atAgency)
	}

	fmt.Printf("✅ workflow smoke test passed: %s completed, depot=%d agency=%d\n", final.Number, atMain, atAgency)
}
