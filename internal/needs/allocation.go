package needs

import (
	"context"
	"fmt"
	"strings"

	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/hub"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/identity"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/stock"
)

// AllocationRequest is one (item, requested qty) pair to check availability for.
type AllocationRequest struct {
	SKU string `json:"sku"`
	Qty int    `json:"qty"`
}

// Availability is the proposed allocation for one requested item.
type Availability struct {
	SKU       string `json:"sku"`
	Requested int    `json:"requested"`
	Allocated int    `json:"allocated"`
	Available int    `json:"available"`
}

// AvailabilityResult classifies a whole request as fully or partially satisfiable.
type AvailabilityResult struct {
	IsPartial bool           `json:"is_partial"`
	Items     []Availability `json:"items"`
}

// Engine proposes and validates per-hub allocations against derived stock.
type Engine struct {
	stock stock.Service
	hubs  hub.Directory
}

// NewEngine wires the allocation engine over the stock ledger and hub directory.
func NewEngine(st stock.Service, hubs hub.Directory) *Engine {
	return &Engine{stock: st, hubs: hubs}
}

// CheckAvailability pools stock across all eligible hubs (agency hubs are
// never counted), caps each proposal at min(requested, available) and flags
// the result partial when any item falls short. Read-only.
func (e *Engine) CheckAvailability(ctx context.Context, reqs []AllocationRequest) (AvailabilityResult, error) {
	if len(reqs) == 0 {
		return AvailabilityResult{}, fmt.Errorf("%w: no items requested", ErrInvalidInput)
	}
	sources, err := e.hubs.EligibleSources(ctx)
	if err != nil {
		return AvailabilityResult{}, err
	}
	eligible := make(map[string]bool, len(sources))
	for _, h := range sources {
		eligible[h.ID] = true
	}

	result := AvailabilityResult{Items: make([]Availability, 0, len(reqs))}
	for _, req := range reqs {
		if strings.TrimSpace(req.SKU) == "" {
			return AvailabilityResult{}, fmt.Errorf("%w: sku is required", ErrInvalidInput)
		}
		if req.Qty <= 0 {
			return AvailabilityResult{}, fmt.Errorf("%w: requested qty for %s must be > 0", ErrInvalidInput, req.SKU)
		}
		byHub, err := e.stock.StockBySKU(ctx, req.SKU)
		if err != nil {
			return AvailabilityResult{}, err
		}
		available := 0
		for hubID, qty := range byHub {
			if eligible[hubID] && qty > 0 {
				available += qty
			}
		}
		allocated := min(req.Qty, max(0, available))
		if allocated < req.Qty {
			result.IsPartial = true
		}
		result.Items = append(result.Items, Availability{
			SKU:       req.SKU,
			Requested: req.Qty,
			Allocated: allocated,
			Available: available,
		})
	}
	return result, nil
}

// ValidateAllocations checks every (item, hub) row strictly against that
// hub's current derived stock and the hub's source eligibility. Any single
// violation aborts the whole set with an itemized error.
func (e *Engine) ValidateAllocations(ctx context.Context, rows []Fulfilment) error {
	if len(rows) == 0 {
		return ErrNoAllocations
	}
	// Rows from the same hub draw down the same pool; validate cumulatively.
	drawn := make(map[string]map[string]int)
	var shortfalls []stock.Shortfall
	for _, row := range rows {
		if strings.TrimSpace(row.SKU) == "" || strings.TrimSpace(row.HubID) == "" {
			return fmt.Errorf("%w: allocation rows need a sku and a source hub", ErrInvalidInput)
		}
		if row.Qty <= 0 {
			return fmt.Errorf("%w: allocation for %s at hub %s must be > 0", ErrInvalidInput, row.SKU, row.HubID)
		}
		h, err := e.hubs.Get(ctx, row.HubID)
		if err != nil {
			return fmt.Errorf("%w: unknown source hub %s", ErrInvalidInput, row.HubID)
		}
		if !h.EligibleSource() {
			return fmt.Errorf("%w: hub %s is not an eligible supply source", ErrInvalidInput, h.Name)
		}
		available, err := e.stock.StockAt(ctx, row.SKU, row.HubID)
		if err != nil {
			return err
		}
		if drawn[row.SKU] == nil {
			drawn[row.SKU] = make(map[string]int)
		}
		drawn[row.SKU][row.HubID] += row.Qty
		if want := drawn[row.SKU][row.HubID]; want > available {
			shortfalls = append(shortfalls, stock.Shortfall{
				SKU:       row.SKU,
				HubID:     row.HubID,
				Available: available,
				Requested: want,
			})
		}
	}
	if len(shortfalls) > 0 {
		return &stock.InsufficientStockError{Shortfalls: shortfalls}
	}
	return nil
}

// PlanDispatch builds the movement batch for a dispatch: one OUT movement at
// the source hub and one IN movement at the destination hub per allocation
// row. It writes nothing; the committer re-validates the batch against live
// stock and appends it together with the list save, so stock that moved since
// the allocation was prepared aborts the whole dispatch with the full
// shortfall list and zero rows written.
func (e *Engine) PlanDispatch(l List, actor identity.User) ([]stock.Movement, error) {
	var batch []stock.Movement
	notes := fmt.Sprintf("Dispatched via needs list %s", l.Number)
	for _, row := range l.Fulfilments {
		if row.Qty <= 0 {
			continue
		}
		batch = append(batch,
			stock.Movement{
				SKU:       row.SKU,
				Direction: stock.Out,
				Qty:       row.Qty,
				HubID:     row.HubID,
				EventID:   l.EventID,
				Notes:     notes,
				CreatedBy: actor.ID,
			},
			stock.Movement{
				SKU:       row.SKU,
				Direction: stock.In,
				Qty:       row.Qty,
				HubID:     l.HubID,
				EventID:   l.EventID,
				Notes:     notes,
				CreatedBy: actor.ID,
			},
		)
	}
	if len(batch) == 0 {
		return nil, ErrNoAllocations
	}
	return batch, nil
}

// ProgressPercent computes floor(allocated/requested*100). The second return
// is false when requested is zero; callers must render an explicit
// "no quantity" case instead of a division result.
func ProgressPercent(allocated, requested int) (int, bool) {
	if requested <= 0 {
		return 0, false
	}
	return allocated * 100 / requested, true
}
