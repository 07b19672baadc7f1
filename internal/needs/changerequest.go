package needs

import (
	"context"
	"fmt"
	"strings"

	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/identity"
)

// CreateChangeRequest opens a revision request against an Approved list. The
// requester must be warehouse staff at a hub that holds at least one
// allocation row on the list (admins may act for any hub).
func (w *Workflow) CreateChangeRequest(ctx context.Context, actor identity.User, listID, reason string) (ChangeRequest, error) {
	l, err := w.store.GetList(ctx, listID)
	if err != nil {
		return ChangeRequest{}, err
	}
	if actor.Role != identity.RoleWarehouseStaff && actor.Role != identity.RoleAdmin {
		return ChangeRequest{}, fmt.Errorf("%w: role %s cannot request fulfilment changes", ErrPermission, actor.Role)
	}
	if l.Status != StatusApproved {
		return ChangeRequest{}, fmt.Errorf("%w: change requests apply to Approved lists (current: %s)", ErrState, l.Status)
	}
	if actor.Role == identity.RoleWarehouseStaff && !l.HubHoldsAllocation(actor.HubID) {
		return ChangeRequest{}, fmt.Errorf("%w: your hub holds no allocation on this needs list", ErrPermission)
	}
	if strings.TrimSpace(reason) == "" {
		return ChangeRequest{}, ErrReasonRequired
	}
	for _, existing := range w.mustListChangeRequests(ctx, listID) {
		if existing.Status.Actionable() {
			return ChangeRequest{}, fmt.Errorf("%w: a change request is already open for this needs list", ErrState)
		}
	}

	cr, err := w.store.CreateChangeRequest(ctx, ChangeRequest{
		ListID:      l.ID,
		HubID:       actor.HubID,
		Reason:      strings.TrimSpace(reason),
		Status:      ChangeRequestPendingReview,
		RequestedBy: actor.ID,
		CreatedAt:   w.now(),
	})
	if err != nil {
		return ChangeRequest{}, err
	}
	w.record(ctx, l, l.Status, l.Status, actor, "Change requested: "+cr.Reason, "change_request")
	return cr, nil
}

// OpenChangeRequest moves a Pending Review request to In Progress and
// acquires the edit lock on the parent list for the reviewer. An Approved
// list is only editable through this path.
func (w *Workflow) OpenChangeRequest(ctx context.Context, actor identity.User, requestID string) (ChangeRequest, error) {
	cr, err := w.store.GetChangeRequest(ctx, requestID)
	if err != nil {
		return ChangeRequest{}, err
	}
	if !actor.Role.CanApproveFulfilment() {
		return ChangeRequest{}, fmt.Errorf("%w: role %s cannot review change requests", ErrPermission, actor.Role)
	}
	if cr.Status != ChangeRequestPendingReview && cr.Status != ChangeRequestClarificationNeeded {
		return ChangeRequest{}, fmt.Errorf("%w: change request is %s", ErrState, cr.Status)
	}
	if err := w.locks.Acquire(ctx, cr.ListID, actor); err != nil {
		return ChangeRequest{}, err
	}

	cr.Status = ChangeRequestInProgress
	cr.ReviewedBy = actor.ID
	if err := w.store.UpdateChangeRequest(ctx, cr); err != nil {
		return ChangeRequest{}, err
	}
	return cr, nil
}

// ApproveChangeRequest commits a revised allocation set on an Approved list.
// It writes an immutable version snapshot, moves the parent to Resent for
// Dispatch, closes the request as Approved & Resent and releases the lock.
// A reason is mandatory.
func (w *Workflow) ApproveChangeRequest(ctx context.Context, actor identity.User, requestID string, rows []AllocationInput, reason string) (List, error) {
	cr, err := w.store.GetChangeRequest(ctx, requestID)
	if err != nil {
		return List{}, err
	}
	if !actor.Role.CanApproveFulfilment() {
		w.refused("change_approve")
		return List{}, fmt.Errorf("%w: role %s cannot approve change requests", ErrPermission, actor.Role)
	}
	if cr.Status != ChangeRequestInProgress {
		w.refused("change_approve")
		return List{}, fmt.Errorf("%w: change request must be In Progress (current: %s)", ErrState, cr.Status)
	}
	if strings.TrimSpace(reason) == "" {
		w.refused("change_approve")
		return List{}, ErrReasonRequired
	}
	l, err := w.store.GetList(ctx, cr.ListID)
	if err != nil {
		return List{}, err
	}
	// A list already resent once may carry an imported open request; both
	// states accept a revision while the request is active.
	if l.Status != StatusApproved && l.Status != StatusResentForDispatch {
		w.refused("change_approve")
		return List{}, fmt.Errorf("%w: parent list must be Approved or Resent for Dispatch (current: %s)", ErrState, l.Status)
	}
	if err := w.requireLiveLock(l, actor); err != nil {
		w.refused("change_approve")
		return List{}, err
	}
	fulfilments, err := w.buildAllocations(ctx, l, rows)
	if err != nil {
		w.refused("change_approve")
		return List{}, err
	}

	version := FulfilmentVersion{
		ListID:     l.ID,
		PrevStatus: l.Status,
		NewStatus:  StatusResentForDispatch,
		PrevRows:   l.Fulfilments,
		NewRows:    fulfilments,
		Reason:     strings.TrimSpace(reason),
		ChangedBy:  actor.ID,
		CreatedAt:  w.now(),
	}

	from := l.Status
	l.Fulfilments = fulfilments
	l.Status = StatusResentForDispatch
	l.ApprovedBy = actor.ID
	l.ApprovedAt = w.now()
	clearLock(&l)

	cr.Status = ChangeRequestApprovedResent
	cr.ReviewedBy = actor.ID
	cr.ResolutionNotes = strings.TrimSpace(reason)

	// One commit for all three records: the snapshot never exists without the
	// revised list, and the list is never resent with the request still open.
	if _, err := w.committer.CommitChangeApproval(ctx, l, version, cr); err != nil {
		w.refused("change_approve")
		return List{}, err
	}
	w.record(ctx, l, from, l.Status, actor, "Fulfilment revised: "+strings.TrimSpace(reason), "change_approve")
	return l, nil
}

// RejectChangeRequest closes the request without touching the parent list,
// which stays Approved with its original allocation rows.
func (w *Workflow) RejectChangeRequest(ctx context.Context, actor identity.User, requestID, notes string) (ChangeRequest, error) {
	return w.closeChangeRequest(ctx, actor, requestID, ChangeRequestRejected, notes)
}

// RequestClarification sends the request back to its originator. It may be
// reopened later through OpenChangeRequest.
func (w *Workflow) RequestClarification(ctx context.Context, actor identity.User, requestID, notes string) (ChangeRequest, error) {
	if strings.TrimSpace(notes) == "" {
		return ChangeRequest{}, ErrReasonRequired
	}
	return w.closeChangeRequest(ctx, actor, requestID, ChangeRequestClarificationNeeded, notes)
}

func (w *Workflow) closeChangeRequest(ctx context.Context, actor identity.User, requestID string, to ChangeRequestStatus, notes string) (ChangeRequest, error) {
	cr, err := w.store.GetChangeRequest(ctx, requestID)
	if err != nil {
		return ChangeRequest{}, err
	}
	if !actor.Role.CanApproveFulfilment() {
		return ChangeRequest{}, fmt.Errorf("%w: role %s cannot review change requests", ErrPermission, actor.Role)
	}
	if !cr.Status.Actionable() {
		return ChangeRequest{}, fmt.Errorf("%w: change request is %s", ErrState, cr.Status)
	}
	cr.Status = to
	cr.ReviewedBy = actor.ID
	cr.ResolutionNotes = strings.TrimSpace(notes)
	if err := w.store.UpdateChangeRequest(ctx, cr); err != nil {
		return ChangeRequest{}, err
	}
	// The reviewer may have held the edit lock while the request was In
	// Progress; let it go so the list is not blocked for the full timeout.
	_ = w.locks.Release(ctx, cr.ListID, actor.ID)
	return cr, nil
}

// ActiveChangeRequest returns the open request for a list, if any.
func (w *Workflow) ActiveChangeRequest(ctx context.Context, listID string) (ChangeRequest, error) {
	for _, cr := range w.mustListChangeRequests(ctx, listID) {
		if cr.Status.Actionable() {
			return cr, nil
		}
	}
	return ChangeRequest{}, ErrNoActiveChangeRequest
}

func (w *Workflow) mustListChangeRequests(ctx context.Context, listID string) []ChangeRequest {
	out, err := w.store.ListChangeRequests(ctx, listID)
	if err != nil {
		return nil
	}
	return out
}
