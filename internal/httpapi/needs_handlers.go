package httpapi

import (
	"net/http"
	"strings"

	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/identity"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/needs"
)

type listResponse struct {
	needs.List
	Header       needs.HeaderStatus              `json:"header_status"`
	ItemStatuses map[string]needs.LineItemStatus `json:"item_statuses"`
	Lock         needs.LockStatus                `json:"lock"`
}

type approvalRequest struct {
	Notes string `json:"notes,omitempty"`
}

type rejectionRequest struct {
	Reason string `json:"reason,omitempty"`
}

type fulfilmentRequest struct {
	Rows []needs.AllocationInput `json:"rows"`
}

type itemsRequest struct {
	Items []needs.ItemInput `json:"items"`
}

type changeRequestInput struct {
	Reason string `json:"reason"`
}

func (a *API) handleNeedsListCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listNeedsLists(w, r)
	case http.MethodPost:
		a.createNeedsList(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleNeedsListResource(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/v1/needs-lists/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	id := parts[0]

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			a.getNeedsList(w, r, id)
		case http.MethodDelete:
			a.deleteNeedsList(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
		}
	case len(parts) == 2:
		a.needsListAction(w, r, id, parts[1])
	case len(parts) == 3 && parts[1] == "lock" && parts[2] == "extend":
		a.extendLock(w, r, id)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) needsListAction(w http.ResponseWriter, r *http.Request, id, action string) {
	switch action {
	case "items":
		if r.Method != http.MethodPut {
			methodNotAllowed(w, r, http.MethodPut)
			return
		}
		a.updateItems(w, r, id)
	case "submit":
		a.transition(w, r, func(u identity.User) (needs.List, error) {
			return a.workflow.Submit(r.Context(), u, id)
		})
	case "fulfilment":
		if r.Method != http.MethodPut {
			methodNotAllowed(w, r, http.MethodPut)
			return
		}
		a.saveFulfilment(w, r, id)
	case "submit-approval":
		a.submitForApproval(w, r, id)
	case "approve":
		a.approve(w, r, id)
	case "reject":
		a.reject(w, r, id)
	case "dispatch":
		a.transition(w, r, func(u identity.User) (needs.List, error) {
			return a.workflow.Dispatch(r.Context(), u, id)
		})
	case "receive":
		a.transition(w, r, func(u identity.User) (needs.List, error) {
			return a.workflow.ConfirmReceipt(r.Context(), u, id)
		})
	case "lock":
		a.handleLock(w, r, id)
	case "history":
		a.statusHistory(w, r, id)
	case "versions":
		a.listVersions(w, r, id)
	case "change-requests":
		a.handleListChangeRequests(w, r, id)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

// transition runs a body-less POST workflow operation for the actor.
func (a *API) transition(w http.ResponseWriter, r *http.Request, op func(identity.User) (needs.List, error)) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	u, ok := actor(w, r)
	if !ok {
		return
	}
	l, err := op(u)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.decorate(r, l))
}

func (a *API) listNeedsLists(w http.ResponseWriter, r *http.Request) {
	if _, ok := actor(w, r); !ok {
		return
	}
	lists, err := a.workflow.Store().ListLists(r.Context())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	out := make([]listResponse, 0, len(lists))
	for _, l := range lists {
		out = append(out, a.decorate(r, l))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (a *API) createNeedsList(w http.ResponseWriter, r *http.Request) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	var req needs.CreateInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	l, err := a.workflow.CreateDraft(r.Context(), u, req)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/needs-lists/"+l.ID)
	writeJSON(w, http.StatusCreated, a.decorate(r, l))
}

func (a *API) getNeedsList(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := actor(w, r); !ok {
		return
	}
	l, err := a.workflow.Store().GetList(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.decorate(r, l))
}

func (a *API) deleteNeedsList(w http.ResponseWriter, r *http.Request, id string) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	if err := a.workflow.DeleteDraft(r.Context(), u, id); err != nil {
		handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) updateItems(w http.ResponseWriter, r *http.Request, id string) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	var req itemsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	l, err := a.workflow.UpdateDraftItems(r.Context(), u, id, req.Items)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.decorate(r, l))
}

func (a *API) saveFulfilment(w http.ResponseWriter, r *http.Request, id string) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	var req fulfilmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	l, err := a.workflow.SaveFulfilment(r.Context(), u, id, req.Rows)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.decorate(r, l))
}

func (a *API) submitForApproval(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	u, ok := actor(w, r)
	if !ok {
		return
	}
	var req fulfilmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	l, err := a.workflow.SubmitForApproval(r.Context(), u, id, req.Rows)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.decorate(r, l))
}

func (a *API) approve(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	u, ok := actor(w, r)
	if !ok {
		return
	}
	var req approvalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	l, err := a.workflow.Approve(r.Context(), u, id, req.Notes)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.decorate(r, l))
}

func (a *API) reject(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	u, ok := actor(w, r)
	if !ok {
		return
	}
	var req rejectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	l, err := a.workflow.Reject(r.Context(), u, id, req.Reason)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.decorate(r, l))
}

func (a *API) handleLock(w http.ResponseWriter, r *http.Request, id string) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	locks := a.workflow.Locks()
	switch r.Method {
	case http.MethodGet:
		st, err := locks.Status(r.Context(), id, u.ID)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	case http.MethodPost:
		if err := locks.Acquire(r.Context(), id, u); err != nil {
			handleDomainError(w, r, err)
			return
		}
		st, err := locks.Status(r.Context(), id, u.ID)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	case http.MethodDelete:
		if err := locks.Release(r.Context(), id, u.ID); err != nil {
			handleDomainError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost, http.MethodDelete)
	}
}

func (a *API) extendLock(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	u, ok := actor(w, r)
	if !ok {
		return
	}
	if err := a.workflow.Locks().Extend(r.Context(), id, u); err != nil {
		handleDomainError(w, r, err)
		return
	}
	st, err := a.workflow.Locks().Status(r.Context(), id, u.ID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) statusHistory(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := actor(w, r); !ok {
		return
	}
	rows, err := a.workflow.Store().StatusHistory(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": rows})
}

func (a *API) listVersions(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := actor(w, r); !ok {
		return
	}
	rows, err := a.workflow.Store().ListVersions(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": rows})
}

func (a *API) handleListChangeRequests(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := actor(w, r); !ok {
			return
		}
		rows, err := a.workflow.Store().ListChangeRequests(r.Context(), id)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": rows})
	case http.MethodPost:
		u, ok := actor(w, r)
		if !ok {
			return
		}
		var req changeRequestInput
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		cr, err := a.workflow.CreateChangeRequest(r.Context(), u, id, req.Reason)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, cr)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleChangeRequestResource(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/v1/change-requests/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	id := parts[0]

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		if _, ok := actor(w, r); !ok {
			return
		}
		cr, err := a.workflow.Store().GetChangeRequest(r.Context(), id)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, cr)
		return
	}
	if len(parts) != 2 || r.Method != http.MethodPost {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	u, ok := actor(w, r)
	if !ok {
		return
	}

	switch parts[1] {
	case "open":
		cr, err := a.workflow.OpenChangeRequest(r.Context(), u, id)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, cr)
	case "approve":
		var req struct {
			Rows   []needs.AllocationInput `json:"rows"`
			Reason string                  `json:"reason"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		l, err := a.workflow.ApproveChangeRequest(r.Context(), u, id, req.Rows, req.Reason)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, a.decorate(r, l))
	case "reject":
		var req struct {
			Notes string `json:"notes,omitempty"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		cr, err := a.workflow.RejectChangeRequest(r.Context(), u, id, req.Notes)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, cr)
	case "clarify":
		var req struct {
			Notes string `json:"notes"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		cr, err := a.workflow.RequestClarification(r.Context(), u, id, req.Notes)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, cr)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if _, ok := actor(w, r); !ok {
		return
	}
	var req struct {
		Items []needs.AllocationRequest `json:"items"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	res, err := a.workflow.Engine().CheckAvailability(r.Context(), req.Items)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// decorate attaches resolved display and lock state to a list payload.
func (a *API) decorate(r *http.Request, l needs.List) listResponse {
	viewerID := ""
	if u, ok := identity.ActorFromContext(r.Context()); ok {
		viewerID = u.ID
	}
	st, err := a.workflow.Locks().Status(r.Context(), l.ID, viewerID)
	if err != nil {
		st = needs.LockStatus{}
	}
	return listResponse{
		List:         l,
		Header:       needs.ResolveHeaderStatus(l.Status),
		ItemStatuses: needs.ResolveItemStatuses(l),
		Lock:         st,
	}
}
