package needs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/audit"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/hub"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/identity"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/obs"
)

// ItemInput is one requested line supplied when creating or editing a draft.
type ItemInput struct {
	SKU           string `json:"sku"`
	Qty           int    `json:"qty"`
	Justification string `json:"justification,omitempty"`
}

// AllocationInput is one (item, source hub, qty) row of a prepared fulfilment.
type AllocationInput struct {
	SKU   string `json:"sku"`
	HubID string `json:"hub_id"`
	Qty   int    `json:"qty"`
}

// CreateInput carries everything needed to open a draft needs list.
type CreateInput struct {
	HubID    string      `json:"hub_id"`
	EventID  string      `json:"event_id,omitempty"`
	Priority Priority    `json:"priority"`
	Notes    string      `json:"notes,omitempty"`
	Items    []ItemInput `json:"items"`
}

// Workflow enforces the needs-list status transitions and the role, hub and
// lock preconditions for each one. Every operation either commits fully or
// returns a structured failure with nothing written.
type Workflow struct {
	store     Store
	engine    *Engine
	locks     *LockManager
	hubs      hub.Directory
	events    Publisher
	committer Committer
	now       func() time.Time
}

// NewWorkflow wires the workflow over its collaborators. events may be nil.
// The committer must share storage with store and the engine's ledger so the
// multi-record transitions commit atomically.
func NewWorkflow(store Store, engine *Engine, locks *LockManager, hubs hub.Directory, events Publisher, committer Committer) *Workflow {
	return &Workflow{
		store:     store,
		engine:    engine,
		locks:     locks,
		hubs:      hubs,
		events:    events,
		committer: committer,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Locks exposes the lock manager for callers that drive the edit session.
func (w *Workflow) Locks() *LockManager { return w.locks }

// Engine exposes the allocation engine for read-only availability checks.
func (w *Workflow) Engine() *Engine { return w.engine }

// Store exposes the backing store for read paths.
func (w *Workflow) Store() Store { return w.store }

// CreateDraft opens a new needs list in Draft for the actor's hub.
func (w *Workflow) CreateDraft(ctx context.Context, actor identity.User, in CreateInput) (List, error) {
	if !actor.Role.CanRequestRelief() {
		return List{}, fmt.Errorf("%w: role %s cannot create needs lists", ErrPermission, actor.Role)
	}
	hubID := strings.TrimSpace(in.HubID)
	if hubID == "" {
		hubID = actor.HubID
	}
	if hubID == "" {
		return List{}, fmt.Errorf("%w: a requesting hub is required", ErrInvalidInput)
	}
	if actor.Role != identity.RoleAdmin && actor.HubID != hubID {
		return List{}, fmt.Errorf("%w: cannot create a needs list for another hub", ErrPermission)
	}
	if _, err := w.hubs.Get(ctx, hubID); err != nil {
		return List{}, fmt.Errorf("%w: unknown hub %s", ErrInvalidInput, hubID)
	}
	items, err := buildItems(in.Items)
	if err != nil {
		return List{}, err
	}

	l := List{
		HubID:     hubID,
		EventID:   strings.TrimSpace(in.EventID),
		Status:    StatusDraft,
		Priority:  in.Priority,
		Notes:     strings.TrimSpace(in.Notes),
		CreatedBy: actor.ID,
		CreatedAt: w.now(),
		Items:     items,
	}
	created, err := w.store.CreateList(ctx, l)
	if err != nil {
		return List{}, err
	}
	w.record(ctx, created, StatusUnknown, StatusDraft, actor, "Needs list created", "create")
	return created, nil
}

// UpdateDraftItems replaces the item lines of a Draft. Any other status
// rejects item-list mutation.
func (w *Workflow) UpdateDraftItems(ctx context.Context, actor identity.User, listID string, inputs []ItemInput) (List, error) {
	l, err := w.store.GetList(ctx, listID)
	if err != nil {
		return List{}, err
	}
	if err := w.requireOwner(actor, l); err != nil {
		return List{}, err
	}
	if l.Status != StatusDraft {
		return List{}, fmt.Errorf("%w: items can only be edited in Draft (current: %s)", ErrState, l.Status)
	}
	items, err := buildItems(inputs)
	if err != nil {
		return List{}, err
	}
	l.Items = items
	if err := w.store.SaveList(ctx, l); err != nil {
		return List{}, err
	}
	return w.store.GetList(ctx, listID)
}

// Submit moves a Draft with at least one item line to Submitted.
func (w *Workflow) Submit(ctx context.Context, actor identity.User, listID string) (List, error) {
	l, err := w.store.GetList(ctx, listID)
	if err != nil {
		return List{}, err
	}
	if err := w.requireOwner(actor, l); err != nil {
		w.refused("submit")
		return List{}, err
	}
	if l.Status != StatusDraft {
		w.refused("submit")
		return List{}, fmt.Errorf("%w: only Draft lists can be submitted (current: %s)", ErrState, l.Status)
	}
	if len(l.Items) == 0 {
		w.refused("submit")
		return List{}, ErrNoItems
	}
	from := l.Status
	l.Status = StatusSubmitted
	l.SubmittedAt = w.now()
	if err := w.store.SaveList(ctx, l); err != nil {
		return List{}, err
	}
	w.record(ctx, l, from, l.Status, actor, "Submitted for logistics review", "submit")
	return l, nil
}

// SaveFulfilment replaces the allocation rows of a list under preparation and
// marks it Fulfilment Prepared. The actor must hold a live edit lock.
func (w *Workflow) SaveFulfilment(ctx context.Context, actor identity.User, listID string, rows []AllocationInput) (List, error) {
	l, err := w.store.GetList(ctx, listID)
	if err != nil {
		return List{}, err
	}
	if !actor.Role.CanPrepareFulfilment() {
		w.refused("prepare")
		return List{}, fmt.Errorf("%w: role %s cannot prepare fulfilment", ErrPermission, actor.Role)
	}
	if l.Status != StatusSubmitted && l.Status != StatusFulfilmentPrepared {
		w.refused("prepare")
		return List{}, fmt.Errorf("%w: fulfilment can be prepared from Submitted or Fulfilment Prepared (current: %s)", ErrState, l.Status)
	}
	if err := w.requireLiveLock(l, actor); err != nil {
		w.refused("prepare")
		return List{}, err
	}
	fulfilments, err := w.buildAllocations(ctx, l, rows)
	if err != nil {
		w.refused("prepare")
		return List{}, err
	}

	from := l.Status
	// Full replacement of the allocation set; the prior rows are discarded
	// only here, after every validation passed.
	l.Fulfilments = fulfilments
	l.Status = StatusFulfilmentPrepared
	l.PreparedBy = actor.ID
	l.PreparedAt = w.now()
	l.LockedAt = w.now() // saving extends the session
	if err := w.store.SaveList(ctx, l); err != nil {
		return List{}, err
	}
	w.record(ctx, l, from, l.Status, actor, "Fulfilment draft saved", "prepare")
	return l, nil
}

// SubmitForApproval saves the allocation rows (when provided) and hands the
// list to an approver. Managers approve directly instead of using this path.
func (w *Workflow) SubmitForApproval(ctx context.Context, actor identity.User, listID string, rows []AllocationInput) (List, error) {
	if actor.Role == identity.RoleLogisticsManager {
		w.refused("submit_for_approval")
		return List{}, fmt.Errorf("%w: managers approve directly instead of submitting for approval", ErrPermission)
	}
	l, err := w.store.GetList(ctx, listID)
	if err != nil {
		return List{}, err
	}
	if !actor.Role.CanPrepareFulfilment() {
		w.refused("submit_for_approval")
		return List{}, fmt.Errorf("%w: role %s cannot prepare fulfilment", ErrPermission, actor.Role)
	}
	if l.Status != StatusSubmitted && l.Status != StatusFulfilmentPrepared {
		w.refused("submit_for_approval")
		return List{}, fmt.Errorf("%w: approval can be requested from Submitted or Fulfilment Prepared (current: %s)", ErrState, l.Status)
	}
	if err := w.requireLiveLock(l, actor); err != nil {
		w.refused("submit_for_approval")
		return List{}, err
	}
	if len(rows) > 0 {
		fulfilments, err := w.buildAllocations(ctx, l, rows)
		if err != nil {
			w.refused("submit_for_approval")
			return List{}, err
		}
		l.Fulfilments = fulfilments
		l.PreparedBy = actor.ID
		l.PreparedAt = w.now()
	}
	if len(l.Fulfilments) == 0 {
		w.refused("submit_for_approval")
		return List{}, ErrNoAllocations
	}

	from := l.Status
	l.Status = StatusAwaitingApproval
	clearLock(&l)
	if err := w.store.SaveList(ctx, l); err != nil {
		return List{}, err
	}
	w.record(ctx, l, from, l.Status, actor, "Submitted for approval", "submit_for_approval")
	return l, nil
}

// Approve accepts a prepared fulfilment plan.
func (w *Workflow) Approve(ctx context.Context, actor identity.User, listID, notes string) (List, error) {
	l, err := w.store.GetList(ctx, listID)
	if err != nil {
		return List{}, err
	}
	if !actor.Role.CanApproveFulfilment() {
		w.refused("approve")
		return List{}, fmt.Errorf("%w: role %s cannot approve fulfilment", ErrPermission, actor.Role)
	}
	if l.Status != StatusAwaitingApproval && l.Status != StatusFulfilmentPrepared {
		w.refused("approve")
		return List{}, fmt.Errorf("%w: approval applies to Awaiting Approval or Fulfilment Prepared (current: %s)", ErrState, l.Status)
	}
	if len(l.Fulfilments) == 0 {
		w.refused("approve")
		return List{}, ErrNoAllocations
	}

	from := l.Status
	l.Status = StatusApproved
	l.ApprovedBy = actor.ID
	l.ApprovedAt = w.now()
	clearLock(&l)
	if err := w.store.SaveList(ctx, l); err != nil {
		return List{}, err
	}
	if notes == "" {
		notes = "Fulfilment approved"
	}
	w.record(ctx, l, from, l.Status, actor, notes, "approve")
	return l, nil
}

// Reject sends a prepared fulfilment back to Submitted, discarding the
// allocation rows and clearing the preparer fields.
func (w *Workflow) Reject(ctx context.Context, actor identity.User, listID, reason string) (List, error) {
	l, err := w.store.GetList(ctx, listID)
	if err != nil {
		return List{}, err
	}
	if !actor.Role.CanApproveFulfilment() {
		w.refused("reject")
		return List{}, fmt.Errorf("%w: role %s cannot reject fulfilment", ErrPermission, actor.Role)
	}
	if l.Status != StatusAwaitingApproval && l.Status != StatusFulfilmentPrepared {
		w.refused("reject")
		return List{}, fmt.Errorf("%w: rejection applies to Awaiting Approval or Fulfilment Prepared (current: %s)", ErrState, l.Status)
	}

	from := l.Status
	l.Status = StatusSubmitted
	l.Fulfilments = nil
	l.PreparedBy = ""
	l.PreparedAt = time.Time{}
	l.RejectedBy = actor.ID
	clearLock(&l)
	if err := w.store.SaveList(ctx, l); err != nil {
		return List{}, err
	}
	if reason == "" {
		reason = "Fulfilment rejected"
	}
	w.record(ctx, l, from, l.Status, actor, reason, "reject")
	return l, nil
}

// Dispatch re-validates every allocation row against live stock and, only if
// all pass, appends the ledger movements and marks the list Dispatched. The
// movements and the status change are one commit: a failure in either leaves
// the list Approved with zero movements written.
func (w *Workflow) Dispatch(ctx context.Context, actor identity.User, listID string) (List, error) {
	l, err := w.store.GetList(ctx, listID)
	if err != nil {
		return List{}, err
	}
	if !actor.Role.CanDispatch() {
		w.refused("dispatch")
		return List{}, fmt.Errorf("%w: role %s cannot dispatch", ErrPermission, actor.Role)
	}
	if actor.Role == identity.RoleWarehouseStaff && !l.HubHoldsAllocation(actor.HubID) {
		w.refused("dispatch")
		return List{}, fmt.Errorf("%w: your hub holds no allocation on this needs list", ErrPermission)
	}
	if l.Status != StatusApproved && l.Status != StatusResentForDispatch {
		w.refused("dispatch")
		return List{}, fmt.Errorf("%w: only Approved or Resent for Dispatch lists can be dispatched (current: %s)", ErrState, l.Status)
	}

	batch, err := w.engine.PlanDispatch(l, actor)
	if err != nil {
		w.refused("dispatch")
		return List{}, err
	}

	from := l.Status
	l.Status = StatusDispatched
	l.DispatchedBy = actor.ID
	l.DispatchedAt = w.now()
	movements, err := w.committer.CommitDispatch(ctx, l, batch)
	if err != nil {
		w.refused("dispatch")
		return List{}, err
	}
	for _, m := range movements {
		obs.ObserveMovement(m.Direction.String())
	}
	w.record(ctx, l, from, l.Status, actor,
		fmt.Sprintf("Dispatched: %d ledger movements appended", len(movements)), "dispatch")
	return l, nil
}

// ConfirmReceipt completes the workflow once the requesting hub has the goods.
func (w *Workflow) ConfirmReceipt(ctx context.Context, actor identity.User, listID string) (List, error) {
	l, err := w.store.GetList(ctx, listID)
	if err != nil {
		return List{}, err
	}
	if err := w.requireOwner(actor, l); err != nil {
		w.refused("receive")
		return List{}, err
	}
	if l.Status != StatusDispatched {
		w.refused("receive")
		return List{}, fmt.Errorf("%w: receipt can only be confirmed for Dispatched lists (current: %s)", ErrState, l.Status)
	}

	from := l.Status
	now := w.now()
	l.Status = StatusCompleted
	l.ReceivedBy = actor.ID
	l.ReceivedAt = now
	l.FulfilledAt = now
	if err := w.store.SaveList(ctx, l); err != nil {
		return List{}, err
	}
	w.record(ctx, l, from, l.Status, actor, "Receipt confirmed by requesting hub", "receive")
	return l, nil
}

// DeleteDraft removes a Draft entirely, cascading to its children.
func (w *Workflow) DeleteDraft(ctx context.Context, actor identity.User, listID string) error {
	l, err := w.store.GetList(ctx, listID)
	if err != nil {
		return err
	}
	if err := w.requireOwner(actor, l); err != nil {
		return err
	}
	if l.Status != StatusDraft {
		return fmt.Errorf("%w: only Draft lists can be deleted (current: %s)", ErrState, l.Status)
	}
	if err := w.store.DeleteList(ctx, listID); err != nil {
		return err
	}
	_ = audit.LogEvent(ctx, "needs.delete", map[string]any{"list": l.Number})
	return nil
}

func buildItems(inputs []ItemInput) ([]Item, error) {
	seen := make(map[string]bool, len(inputs))
	items := make([]Item, 0, len(inputs))
	for _, in := range inputs {
		sku := strings.TrimSpace(in.SKU)
		if sku == "" {
			return nil, fmt.Errorf("%w: item sku is required", ErrInvalidInput)
		}
		if in.Qty <= 0 {
			return nil, fmt.Errorf("%w: quantity for %s must be > 0", ErrInvalidInput, sku)
		}
		if seen[sku] {
			return nil, fmt.Errorf("%w: duplicate item %s", ErrInvalidInput, sku)
		}
		seen[sku] = true
		items = append(items, Item{SKU: sku, Qty: in.Qty, Justification: strings.TrimSpace(in.Justification)})
	}
	return items, nil
}

// buildAllocations converts and validates a submitted allocation set: every
// row must target a requested item, per-item sums must not exceed the
// requested quantity, and every (item, hub) pair must fit that hub's current
// derived stock. Validation happens before any replacement, so a rejected set
// leaves the prior rows untouched.
func (w *Workflow) buildAllocations(ctx context.Context, l List, rows []AllocationInput) ([]Fulfilment, error) {
	if len(rows) == 0 {
		return nil, ErrNoAllocations
	}
	fulfilments := make([]Fulfilment, 0, len(rows))
	perItem := make(map[string]int)
	for _, row := range rows {
		sku := strings.TrimSpace(row.SKU)
		hubID := strings.TrimSpace(row.HubID)
		if sku == "" || hubID == "" {
			return nil, fmt.Errorf("%w: allocation rows need a sku and a source hub", ErrInvalidInput)
		}
		if row.Qty <= 0 {
			return nil, fmt.Errorf("%w: allocation for %s at hub %s must be > 0", ErrInvalidInput, sku, hubID)
		}
		requested := l.RequestedQty(sku)
		if requested == 0 {
			return nil, fmt.Errorf("%w: %s is not requested on this needs list", ErrInvalidInput, sku)
		}
		perItem[sku] += row.Qty
		if perItem[sku] > requested {
			return nil, fmt.Errorf("%w: %s allocated %d of %d requested", ErrOverAllocated, sku, perItem[sku], requested)
		}
		fulfilments = append(fulfilments, Fulfilment{SKU: sku, HubID: hubID, Qty: row.Qty})
	}
	if err := w.engine.ValidateAllocations(ctx, fulfilments); err != nil {
		return nil, err
	}
	return fulfilments, nil
}

func (w *Workflow) requireOwner(actor identity.User, l List) error {
	if actor.Role == identity.RoleAdmin {
		return nil
	}
	if !actor.Role.CanRequestRelief() {
		return fmt.Errorf("%w: role %s cannot act for the requesting hub", ErrPermission, actor.Role)
	}
	if actor.HubID != l.HubID {
		return fmt.Errorf("%w: needs list belongs to another hub", ErrPermission)
	}
	return nil
}

// requireLiveLock distinguishes "you never held the lock" from "your session
// expired mid-edit"; both reject the write and the caller must reload.
func (w *Workflow) requireLiveLock(l List, actor identity.User) error {
	if w.locks.holdsLiveLock(l, actor.ID) {
		return nil
	}
	if l.LockedBy == actor.ID {
		return ErrLockExpired
	}
	return ErrNotHolder
}

func clearLock(l *List) {
	l.LockedBy = ""
	l.LockedByName = ""
	l.LockedAt = time.Time{}
}

func (w *Workflow) refused(transition string) {
	obs.ObserveTransition(transition, false)
}

// record appends the history row, emits the audit event and metrics, and
// publishes the transition to stream subscribers. Called only after the list
// has been saved.
func (w *Workflow) record(ctx context.Context, l List, from, to Status, actor identity.User, notes, transition string) {
	_ = w.store.AppendStatusChange(ctx, StatusChange{
		ListID:    l.ID,
		From:      from,
		To:        to,
		ChangedBy: actor.ID,
		Notes:     notes,
		CreatedAt: w.now(),
	})
	obs.ObserveTransition(transition, true)
	_ = audit.LogEvent(ctx, "needs."+transition, map[string]any{
		"list":  l.Number,
		"from":  from.String(),
		"to":    to.String(),
		"notes": notes,
	})
	if w.events != nil {
		w.events.Publish(Event{
			ListID:    l.ID,
			Number:    l.Number,
			From:      from,
			To:        to,
			Actor:     actor.ID,
			Timestamp: w.now(),
		})
	}
}
