package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/audit"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/hub"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/obs"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/stock"
)

type movementRequest struct {
	SKU           string `json:"sku"`
	Direction     string `json:"direction"`
	Qty           int    `json:"qty"`
	HubID         string `json:"hub_id"`
	DonorID       string `json:"donor_id,omitempty"`
	BeneficiaryID string `json:"beneficiary_id,omitempty"`
	EventID       string `json:"event_id,omitempty"`
	ExpiryDate    string `json:"expiry_date,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

type listMovementsResponse struct {
	Items     []stock.Movement `json:"items"`
	NextAfter uint64           `json:"next_after"`
	AsOf      time.Time        `json:"as_of"`
}

func (a *API) handleStockCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listMovements(w, r)
	case http.MethodPost:
		a.appendMovement(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleStockResource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := actor(w, r); !ok {
		return
	}
	sku := strings.TrimPrefix(r.URL.Path, "/v1/stock/")
	if sku == "" || strings.Contains(sku, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	byHub, err := a.ledger.StockBySKU(r.Context(), sku)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	total := 0
	for _, qty := range byHub {
		total += qty
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sku":    sku,
		"by_hub": byHub,
		"total":  total,
	})
}

func (a *API) appendMovement(w http.ResponseWriter, r *http.Request) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	if !u.Role.CanRecordMovements() {
		writeError(w, r, http.StatusForbidden, "role cannot record stock movements")
		return
	}
	var req movementRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	direction, err := stock.ParseDirection(req.Direction)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}

	m, err := a.ledger.Append(r.Context(), stock.Movement{
		SKU:           strings.TrimSpace(req.SKU),
		Direction:     direction,
		Qty:           req.Qty,
		HubID:         strings.TrimSpace(req.HubID),
		DonorID:       strings.TrimSpace(req.DonorID),
		BeneficiaryID: strings.TrimSpace(req.BeneficiaryID),
		EventID:       strings.TrimSpace(req.EventID),
		ExpiryDate:    strings.TrimSpace(req.ExpiryDate),
		Notes:         strings.TrimSpace(req.Notes),
		CreatedBy:     u.ID,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	obs.ObserveMovement(m.Direction.String())
	_ = audit.LogEvent(r.Context(), "stock.movement.append", map[string]any{
		"sku":       m.SKU,
		"direction": m.Direction.String(),
		"qty":       m.Qty,
		"hub":       m.HubID,
	})
	writeJSON(w, http.StatusCreated, m)
}

func (a *API) listMovements(w http.ResponseWriter, r *http.Request) {
	if _, ok := actor(w, r); !ok {
		return
	}
	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), 100, 1, 1000)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	afterParam := strings.TrimSpace(r.URL.Query().Get("after"))
	var after uint64
	if afterParam != "" {
		v, err := strconv.ParseUint(afterParam, 10, 64)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "after must be a non-negative integer")
			return
		}
		after = v
	}

	items, next, err := a.ledger.ListMovements(r.Context(), limit, after)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listMovementsResponse{
		Items:     items,
		NextAfter: next,
		AsOf:      time.Now().UTC(),
	})
}

func (a *API) handleItems(w http.ResponseWriter, r *http.Request) {
	if a.catalog == nil {
		writeError(w, r, http.StatusServiceUnavailable, "item catalog unavailable")
		return
	}
	switch r.Method {
	case http.MethodGet:
		if _, ok := actor(w, r); !ok {
			return
		}
		items, err := a.catalog.ListItems(r.Context())
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPost:
		u, ok := actor(w, r)
		if !ok {
			return
		}
		if !u.Role.CanRecordMovements() {
			writeError(w, r, http.StatusForbidden, "role cannot manage the item catalog")
			return
		}
		var req stock.Item
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		item, err := a.catalog.RegisterItem(r.Context(), req)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, item)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleLowStock(w http.ResponseWriter, r *http.Request) {
	if a.catalog == nil {
		writeError(w, r, http.StatusServiceUnavailable, "item catalog unavailable")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := actor(w, r); !ok {
		return
	}
	entries, err := a.catalog.LowStock(r.Context())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": entries})
}

func (a *API) handleHubs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := actor(w, r); !ok {
		return
	}
	var (
		hubs []hub.Hub
		err  error
	)
	if r.URL.Query().Get("eligible") == "true" {
		hubs, err = a.hubs.EligibleSources(r.Context())
	} else {
		hubs, err = a.hubs.List(r.Context())
	}
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": hubs})
}

func parsePositiveInt(raw string, def, min, max int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("limit must be an integer")
	}
	if val < min || val > max {
		return 0, errors.New("limit must be between 1 and 1000")
	}
	return val, nil
}
