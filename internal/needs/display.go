package needs

import "fmt"

// LineItemStatus is the resolved display state for one requested item line.
// Pure data; the consumer decides how to render it.
type LineItemStatus struct {
	Label       string `json:"label"`
	BadgeClass  string `json:"badge_class"`
	DetailText  string `json:"detail_text,omitempty"`
	ProgressPct int    `json:"progress_pct"`
	HasProgress bool   `json:"has_progress"`
}

// HeaderStatus is the resolved display state for the needs-list header badge.
type HeaderStatus struct {
	Label      string `json:"label"`
	BadgeClass string `json:"badge_class"`
}

// ResolveLineItemStatus maps (workflow status, requested, allocated) to a
// display state. It is the single source of truth for item status across all
// workflow phases and is deterministic for a given input.
func ResolveLineItemStatus(status Status, requested, allocated int) LineItemStatus {
	if requested == 0 {
		return LineItemStatus{
			Label:      "No Quantity",
			BadgeClass: "text-bg-secondary",
			DetailText: "Requested quantity is zero",
		}
	}
	pct, _ := ProgressPercent(allocated, requested)

	switch status {
	case StatusDraft:
		return LineItemStatus{
			Label:      "Draft",
			BadgeClass: "text-bg-secondary",
			DetailText: "Awaiting submission",
		}
	case StatusSubmitted:
		return LineItemStatus{
			Label:      "Submitted",
			BadgeClass: "text-bg-primary",
			DetailText: "Awaiting logistics review",
		}
	case StatusFulfilmentPrepared, StatusAwaitingApproval:
		switch {
		case allocated == 0:
			return LineItemStatus{
				Label:       "Unfilled",
				BadgeClass:  "text-bg-secondary",
				DetailText:  "No stock filled",
				HasProgress: true,
			}
		case allocated < requested:
			return LineItemStatus{
				Label:       "Partially Filled",
				BadgeClass:  "text-bg-warning",
				DetailText:  fmt.Sprintf("%d%% filled", pct),
				ProgressPct: pct,
				HasProgress: true,
			}
		default:
			return LineItemStatus{
				Label:       "Fulfilled",
				BadgeClass:  "text-bg-success",
				DetailText:  "100% fulfilled",
				ProgressPct: 100,
				HasProgress: true,
			}
		}
	case StatusApproved:
		switch {
		case allocated == 0:
			return LineItemStatus{
				Label:       "Unfilled",
				BadgeClass:  "text-bg-secondary",
				DetailText:  "Awaiting dispatch",
				HasProgress: true,
			}
		case allocated < requested:
			return LineItemStatus{
				Label:       "Partially Filled",
				BadgeClass:  "text-bg-warning",
				DetailText:  fmt.Sprintf("%d%% filled", pct),
				ProgressPct: pct,
				HasProgress: true,
			}
		default:
			return LineItemStatus{
				Label:       "Fulfilled",
				BadgeClass:  "text-bg-success",
				DetailText:  "Ready for dispatch",
				ProgressPct: 100,
				HasProgress: true,
			}
		}
	case StatusDispatched:
		switch {
		case allocated == 0:
			return LineItemStatus{
				Label:      "Unfilled",
				BadgeClass: "text-bg-danger",
				DetailText: "No items sent",
			}
		case allocated < requested:
			return LineItemStatus{
				Label:      "Partially Filled",
				BadgeClass: "text-bg-warning",
				DetailText: fmt.Sprintf("%d%% filled", pct),
			}
		default:
			return LineItemStatus{
				Label:      "Filled",
				BadgeClass: "text-bg-success",
				DetailText: "In transit to agency",
			}
		}
	case StatusReceived:
		switch {
		case allocated == 0:
			return LineItemStatus{
				Label:      "Unfilled",
				BadgeClass: "text-bg-danger",
				DetailText: "No items received",
			}
		case allocated < requested:
			return LineItemStatus{
				Label:      "Partially Filled",
				BadgeClass: "text-bg-warning",
				DetailText: fmt.Sprintf("%d%% received", pct),
			}
		default:
			return LineItemStatus{
				Label:      "Filled",
				BadgeClass: "text-bg-success",
				DetailText: "Full quantity received",
			}
		}
	case StatusCompleted:
		return LineItemStatus{
			Label:      "Completed",
			BadgeClass: "text-bg-success",
			DetailText: "Workflow complete",
		}
	case StatusRejected:
		return LineItemStatus{
			Label:      "Rejected",
			BadgeClass: "text-bg-danger",
			DetailText: "Fulfilment rejected",
		}
	}

	return LineItemStatus{
		Label:      status.String(),
		BadgeClass: "text-bg-secondary",
		DetailText: "Unknown workflow state",
	}
}

var headerStatuses = map[Status]HeaderStatus{
	StatusDraft:              {Label: "Draft", BadgeClass: "text-bg-secondary"},
	StatusSubmitted:          {Label: "Submitted", BadgeClass: "text-bg-primary"},
	StatusFulfilmentPrepared: {Label: "Fulfilment Prepared", BadgeClass: "text-bg-secondary"},
	StatusAwaitingApproval:   {Label: "Awaiting Approval", BadgeClass: "text-bg-warning"},
	StatusApproved:           {Label: "Approved", BadgeClass: "text-bg-success"},
	StatusDispatched:         {Label: "Dispatched", BadgeClass: "text-bg-info"},
	StatusReceived:           {Label: "Received", BadgeClass: "text-bg-primary"},
	StatusCompleted:          {Label: "Completed", BadgeClass: "text-bg-success"},
	StatusRejected:           {Label: "Rejected", BadgeClass: "text-bg-danger"},
}

// ResolveHeaderStatus maps the workflow status to the header badge display.
func ResolveHeaderStatus(status Status) HeaderStatus {
	if hs, ok := headerStatuses[status]; ok {
		return hs
	}
	return HeaderStatus{Label: status.String(), BadgeClass: "text-bg-secondary"}
}

// ResolveItemStatuses resolves every requested line on a list against its
// current allocation rows.
func ResolveItemStatuses(l List) map[string]LineItemStatus {
	out := make(map[string]LineItemStatus, len(l.Items))
	for _, it := range l.Items {
		out[it.SKU] = ResolveLineItemStatus(l.Status, it.Qty, l.AllocatedQty(it.SKU))
	}
	return out
}
