package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/event"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/hub"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/identity"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/needs"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/obs"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/stock"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/stream"
)

// ReadyProbe reports service readiness (database ping when configured).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer over the workflow, ledger and directories.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	workflow *needs.Workflow
	ledger   stock.Service
	catalog  stock.Catalog
	hubs     hub.Directory
	events   event.Directory
	users    identity.Registry
	stream   *stream.Stream

	rateBurst  int
	ratePerSec int
}

// New wires the API routes. stream and catalog may be nil.
func New(rp ReadyProbe, version string, wf *needs.Workflow, ledger stock.Service, catalog stock.Catalog, hubs hub.Directory, events event.Directory, users identity.Registry, s *stream.Stream) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		workflow:   wf,
		ledger:     ledger,
		catalog:    catalog,
		hubs:       hubs,
		events:     events,
		users:      users,
		stream:     s,
		rateBurst:  40,
		ratePerSec: 20,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/auth/token", a.handleAuthToken)

	a.mux.HandleFunc("/v1/needs-lists", a.handleNeedsListCollection)
	a.mux.HandleFunc("/v1/needs-lists/", a.handleNeedsListResource)
	a.mux.HandleFunc("/v1/change-requests/", a.handleChangeRequestResource)
	a.mux.HandleFunc("/v1/availability", a.handleAvailability)

	a.mux.HandleFunc("/v1/stock", a.handleStockCollection)
	a.mux.HandleFunc("/v1/stock/", a.handleStockResource)
	a.mux.HandleFunc("/v1/items", a.handleItems)
	a.mux.HandleFunc("/v1/items/low-stock", a.handleLowStock)
	a.mux.HandleFunc("/v1/hubs", a.handleHubs)
	a.mux.HandleFunc("/v1/events", a.handleEvents)
	a.mux.HandleFunc("/v1/events/", a.handleEventResource)

	a.mux.HandleFunc("/v1/stream", a.Stream)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler assembles the middleware chain around the mux.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = Logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "relief-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "relief-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// handleDomainError translates sentinel errors into HTTP status codes. An
// insufficient-stock failure returns the itemized shortfall list so the
// client can surface every violation at once.
func handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var insufficient *stock.InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		payload := map[string]any{
			"error":      "insufficient stock",
			"shortfalls": insufficient.Shortfalls,
		}
		if rid := RequestIDFromContext(r.Context()); rid != "" {
			payload["request_id"] = rid
		}
		writeJSON(w, http.StatusConflict, payload)
	case errors.Is(err, needs.ErrNotFound), errors.Is(err, hub.ErrNotFound),
		errors.Is(err, event.ErrNotFound),
		errors.Is(err, stock.ErrNotFound), errors.Is(err, identity.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, needs.ErrPermission):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, needs.ErrLockHeld):
		obs.ObserveLockConflict()
		writeError(w, r, http.StatusLocked, err.Error())
	case errors.Is(err, needs.ErrLockExpired), errors.Is(err, needs.ErrNotHolder),
		errors.Is(err, needs.ErrState), errors.Is(err, needs.ErrNoActiveChangeRequest):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, needs.ErrInvalidInput), errors.Is(err, needs.ErrNoItems),
		errors.Is(err, needs.ErrNoAllocations), errors.Is(err, needs.ErrOverAllocated),
		errors.Is(err, needs.ErrReasonRequired), errors.Is(err, hub.ErrInvalidInput),
		errors.Is(err, event.ErrInvalidInput),
		errors.Is(err, stock.ErrInvalidInput), errors.Is(err, stock.ErrInvalidQty):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
