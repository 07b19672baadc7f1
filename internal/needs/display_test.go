package needs

import "testing"

func TestResolveLineItemStatus(t *testing.T) {
	cases := []struct {
		name       string
		status     Status
		requested  int
		allocated  int
		wantLabel  string
		wantBadge  string
		wantDetail string
	}{
		{"zero requested", StatusApproved, 0, 0, "No Quantity", "text-bg-secondary", "Requested quantity is zero"},
		{"draft", StatusDraft, 10, 0, "Draft", "text-bg-secondary", "Awaiting submission"},
		{"submitted", StatusSubmitted, 10, 0, "Submitted", "text-bg-primary", "Awaiting logistics review"},
		{"prepared unfilled", StatusFulfilmentPrepared, 10, 0, "Unfilled", "text-bg-secondary", "No stock filled"},
		{"prepared partial", StatusFulfilmentPrepared, 100, 60, "Partially Filled", "text-bg-warning", "60% filled"},
		{"awaiting full", StatusAwaitingApproval, 10, 10, "Fulfilled", "text-bg-success", "100% fulfilled"},
		{"approved unfilled", StatusApproved, 10, 0, "Unfilled", "text-bg-secondary", "Awaiting dispatch"},
		{"approved full", StatusApproved, 10, 10, "Fulfilled", "text-bg-success", "Ready for dispatch"},
		{"dispatched partial", StatusDispatched, 3, 1, "Partially Filled", "text-bg-warning", "33% filled"},
		{"dispatched full", StatusDispatched, 10, 10, "Filled", "text-bg-success", "In transit to agency"},
		{"dispatched none", StatusDispatched, 10, 0, "Unfilled", "text-bg-danger", "No items sent"},
		{"received partial", StatusReceived, 100, 75, "Partially Filled", "text-bg-warning", "75% received"},
		{"received full", StatusReceived, 10, 10, "Filled", "text-bg-success", "Full quantity received"},
		{"completed", StatusCompleted, 10, 10, "Completed", "text-bg-success", "Workflow complete"},
		{"rejected", StatusRejected, 10, 5, "Rejected", "text-bg-danger", "Fulfilment rejected"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveLineItemStatus(tc.status, tc.requested, tc.allocated)
			if got.Label != tc.wantLabel {
				t.Fatalf("label = %q, want %q", got.Label, tc.wantLabel)
			}
			if got.BadgeClass != tc.wantBadge {
				t.Fatalf("badge = %q, want %q", got.BadgeClass, tc.wantBadge)
			}
			if got.DetailText != tc.wantDetail {
				t.Fatalf("detail = %q, want %q", got.DetailText, tc.wantDetail)
			}
		})
	}
}

func TestResolveLineItemStatusProgress(t *testing.T) {
	got := ResolveLineItemStatus(StatusAwaitingApproval, 80, 60)
	if !got.HasProgress || got.ProgressPct != 75 {
		t.Fatalf("progress = %+v, want 75", got)
	}
	got = ResolveLineItemStatus(StatusDispatched, 80, 60)
	if got.HasProgress {
		t.Fatalf("dispatched rows carry no progress bar: %+v", got)
	}
}

func TestResolveHeaderStatus(t *testing.T) {
	hs := ResolveHeaderStatus(StatusAwaitingApproval)
	if hs.Label != "Awaiting Approval" || hs.BadgeClass != "text-bg-warning" {
		t.Fatalf("header = %+v", hs)
	}
	hs = ResolveHeaderStatus(StatusResentForDispatch)
	if hs.Label != "Resent for Dispatch" || hs.BadgeClass != "text-bg-secondary" {
		t.Fatalf("fallback header = %+v", hs)
	}
}

func TestResolveItemStatuses(t *testing.T) {
	l := List{
		Status: StatusApproved,
		Items: []Item{
			{SKU: "Rice-25kg", Qty: 100},
			{SKU: "Water-1L", Qty: 50},
		},
		Fulfilments: []Fulfilment{
			{SKU: "Rice-25kg", HubID: "h1", Qty: 40},
			{SKU: "Rice-25kg", HubID: "h2", Qty: 20},
		},
	}
	out := ResolveItemStatuses(l)
	if out["Rice-25kg"].Label != "Partially Filled" || out["Rice-25kg"].ProgressPct != 60 {
		t.Fatalf("rice status = %+v", out["Rice-25kg"])
	}
	if out["Water-1L"].Label != "Unfilled" {
		t.Fatalf("water status = %+v", out["Water-1L"])
	}
}
