package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/event"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/hub"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/identity"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/needs"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/stock"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/stream"
)

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T

	mainHub   hub.Hub
	agencyHub hub.Hub
	ledger    *stock.InMemory
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	t.Setenv("RELIEF_AUTH_SECRET", "test-secret")
	identity.ResetSecretForTests()

	ctx := context.Background()
	hubs := hub.NewInMemory()
	mainHub, err := hubs.Add(ctx, "Kingston Main Depot", hub.TypeMain, "Kingston")
	if err != nil {
		t.Fatalf("add hub: %v", err)
	}
	agencyHub, err := hubs.Add(ctx, "Red Cross Shelter", hub.TypeAgency, "Kingston")
	if err != nil {
		t.Fatalf("add hub: %v", err)
	}

	users := identity.NewInMemory()
	seed := []struct {
		email string
		name  string
		role  identity.Role
		hubID string
	}{
		{"field@relief.local", "Fay Morris", identity.RoleFieldPersonnel, agencyHub.ID},
		{"officer@relief.local", "Owen Clarke", identity.RoleLogisticsOfficer, mainHub.ID},
		{"manager@relief.local", "Marcia Brown", identity.RoleLogisticsManager, mainHub.ID},
		{"warehouse@relief.local", "Winston Gayle", identity.RoleWarehouseStaff, mainHub.ID},
		{"admin@relief.local", "Ava Grant", identity.RoleAdmin, ""},
	}
	for _, s := range seed {
		if _, err := users.Create(ctx, s.email, s.name, "correct horse", s.role, s.hubID); err != nil {
			t.Fatalf("seed user %s: %v", s.email, err)
		}
	}

	ledger := stock.NewInMemory()
	store := needs.NewInMemoryStore()
	engine := needs.NewEngine(ledger, hubs)
	locks := needs.NewLockManager(store)
	events := stream.New()
	wf := needs.NewWorkflow(store, engine, locks, hubs, events, needs.NewInMemoryCommitter(store, ledger))

	api := New(ReadyProbe{}, "test", wf, ledger, ledger, hubs, event.NewInMemory(), users, events)
	api.rateBurst = 1000
	api.ratePerSec = 1000

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL:   srv.URL,
		client:    srv.Client(),
		t:         t,
		mainHub:   mainHub,
		agencyHub: agencyHub,
		ledger:    ledger,
	}
}

func (c *apiClient) do(method, path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPost, path, body, headers)
}

func (c *apiClient) put(path string, body any, headers map[string]string) *http.Response {
	return c.do(http.MethodPut, path, body, headers)
}

func (c *apiClient) get(path string, params url.Values, headers map[string]string) *http.Response {
	c.t.Helper()
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		c.t.Fatalf("parse url: %v", err)
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("get request: %v", err)
	}
	return resp
}

func (c *apiClient) login(email string) map[string]string {
	c.t.Helper()
	resp := c.post("/v1/auth/token", map[string]any{
		"email":    email,
		"password": "correct horse",
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("unexpected token status for %s: %d", email, resp.StatusCode)
	}
	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.t.Fatalf("decode token response: %v", err)
	}
	if payload.Token == "" {
		c.t.Fatalf("empty token issued")
	}
	return map[string]string{"Authorization": "Bearer " + payload.Token}
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func expectStatus(t *testing.T, r *http.Response, want int) {
	t.Helper()
	if r.StatusCode != want {
		t.Fatalf("unexpected status: %d (want %d)", r.StatusCode, want)
	}
}

func TestAPIFulfilmentWorkflow(t *testing.T) {
	api := newTestAPI(t)

	field := api.login("field@relief.local")
	officer := api.login("officer@relief.local")
	manager := api.login("manager@relief.local")
	warehouse := api.login("warehouse@relief.local")

	// Seed stock at the main depot through the API.
	resp := api.post("/v1/stock", map[string]any{
		"sku":       "Rice-25kg",
		"direction": "IN",
		"qty":       100,
		"hub_id":    api.mainHub.ID,
		"notes":     "initial donation intake",
	}, warehouse)
	expectStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	// Field personnel raise a needs list for their agency hub.
	resp = api.post("/v1/needs-lists", map[string]any{
		"hub_id": api.agencyHub.ID,
		"items":  []map[string]any{{"sku": "Rice-25kg", "qty": 80, "justification": "shelter demand"}},
	}, field)
	expectStatus(t, resp, http.StatusCreated)
	created := decode[listResponse](t, resp)
	if created.Number != "NL-000001" {
		t.Fatalf("unexpected list number: %s", created.Number)
	}
	id := created.List.ID

	resp = api.post("/v1/needs-lists/"+id+"/submit", nil, field)
	expectStatus(t, resp, http.StatusOK)
	submitted := decode[listResponse](t, resp)
	if submitted.Status != needs.StatusSubmitted {
		t.Fatalf("status = %s, want Submitted", submitted.Status)
	}

	// Availability check pools eligible hubs only.
	resp = api.post("/v1/availability", map[string]any{
		"items": []map[string]any{{"sku": "Rice-25kg", "qty": 80}},
	}, officer)
	expectStatus(t, resp, http.StatusOK)
	avail := decode[needs.AvailabilityResult](t, resp)
	if avail.IsPartial || avail.Items[0].Available != 100 {
		t.Fatalf("unexpected availability: %+v", avail)
	}

	// The officer takes the edit lock and prepares the fulfilment.
	resp = api.post("/v1/needs-lists/"+id+"/lock", nil, officer)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	// A second editor is refused while the lock is live.
	resp = api.post("/v1/needs-lists/"+id+"/lock", nil, manager)
	expectStatus(t, resp, http.StatusLocked)
	resp.Body.Close()

	resp = api.put("/v1/needs-lists/"+id+"/fulfilment", map[string]any{
		"rows": []map[string]any{{"sku": "Rice-25kg", "hub_id": api.mainHub.ID, "qty": 60}},
	}, officer)
	expectStatus(t, resp, http.StatusOK)
	prepared := decode[listResponse](t, resp)
	if prepared.Status != needs.StatusFulfilmentPrepared {
		t.Fatalf("status = %s, want Fulfilment Prepared", prepared.Status)
	}
	if st := prepared.ItemStatuses["Rice-25kg"]; st.Label != "Partially Filled" || st.ProgressPct != 75 {
		t.Fatalf("unexpected item status: %+v", st)
	}

	resp = api.post("/v1/needs-lists/"+id+"/submit-approval", map[string]any{}, officer)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = api.post("/v1/needs-lists/"+id+"/approve", map[string]any{"notes": "plan looks right"}, manager)
	expectStatus(t, resp, http.StatusOK)
	approved := decode[listResponse](t, resp)
	if approved.Status != needs.StatusApproved {
		t.Fatalf("status = %s, want Approved", approved.Status)
	}

	resp = api.post("/v1/needs-lists/"+id+"/dispatch", nil, warehouse)
	expectStatus(t, resp, http.StatusOK)
	dispatched := decode[listResponse](t, resp)
	if dispatched.Status != needs.StatusDispatched {
		t.Fatalf("status = %s, want Dispatched", dispatched.Status)
	}

	// Ledger reflects the transfer: 40 left at main, 60 at the agency.
	resp = api.get("/v1/stock/Rice-25kg", nil, officer)
	expectStatus(t, resp, http.StatusOK)
	balances := decode[map[string]any](t, resp)
	byHub := balances["by_hub"].(map[string]any)
	if byHub[api.mainHub.ID].(float64) != 40 || byHub[api.agencyHub.ID].(float64) != 60 {
		t.Fatalf("unexpected balances: %+v", byHub)
	}

	resp = api.post("/v1/needs-lists/"+id+"/receive", nil, field)
	expectStatus(t, resp, http.StatusOK)
	completed := decode[listResponse](t, resp)
	if completed.Status != needs.StatusCompleted {
		t.Fatalf("status = %s, want Completed", completed.Status)
	}
	if completed.Header.Label != "Completed" {
		t.Fatalf("header = %+v", completed.Header)
	}

	// Transition history is fully recorded.
	resp = api.get("/v1/needs-lists/"+id+"/history", nil, field)
	expectStatus(t, resp, http.StatusOK)
	history := decode[map[string][]needs.StatusChange](t, resp)
	if len(history["items"]) != 7 {
		t.Fatalf("history rows = %d, want 7", len(history["items"]))
	}
}

func TestAPIChangeRequestFlow(t *testing.T) {
	api := newTestAPI(t)

	field := api.login("field@relief.local")
	officer := api.login("officer@relief.local")
	manager := api.login("manager@relief.local")
	warehouse := api.login("warehouse@relief.local")

	resp := api.post("/v1/stock", map[string]any{
		"sku": "Tarpaulin", "direction": "IN", "qty": 50, "hub_id": api.mainHub.ID,
	}, warehouse)
	expectStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	resp = api.post("/v1/needs-lists", map[string]any{
		"hub_id": api.agencyHub.ID,
		"items":  []map[string]any{{"sku": "Tarpaulin", "qty": 30}},
	}, field)
	expectStatus(t, resp, http.StatusCreated)
	id := decode[listResponse](t, resp).List.ID

	resp = api.post("/v1/needs-lists/"+id+"/submit", nil, field)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()
	resp = api.post("/v1/needs-lists/"+id+"/lock", nil, officer)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()
	resp = api.post("/v1/needs-lists/"+id+"/submit-approval", map[string]any{
		"rows": []map[string]any{{"sku": "Tarpaulin", "hub_id": api.mainHub.ID, "qty": 30}},
	}, officer)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()
	resp = api.post("/v1/needs-lists/"+id+"/approve", map[string]any{}, manager)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	// Warehouse staff flag a problem with the approved plan.
	resp = api.post("/v1/needs-lists/"+id+"/change-requests", map[string]any{
		"reason": "pallet damaged in storage",
	}, warehouse)
	expectStatus(t, resp, http.StatusCreated)
	cr := decode[needs.ChangeRequest](t, resp)

	resp = api.post("/v1/change-requests/"+cr.ID+"/open", nil, manager)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = api.post("/v1/change-requests/"+cr.ID+"/approve", map[string]any{
		"rows":   []map[string]any{{"sku": "Tarpaulin", "hub_id": api.mainHub.ID, "qty": 20}},
		"reason": "reduced after damage assessment",
	}, manager)
	expectStatus(t, resp, http.StatusOK)
	revised := decode[listResponse](t, resp)
	if revised.Status != needs.StatusResentForDispatch {
		t.Fatalf("status = %s, want Resent for Dispatch", revised.Status)
	}

	resp = api.get("/v1/needs-lists/"+id+"/versions", nil, manager)
	expectStatus(t, resp, http.StatusOK)
	versions := decode[map[string][]needs.FulfilmentVersion](t, resp)
	if len(versions["items"]) != 1 || versions["items"][0].Version != 1 {
		t.Fatalf("unexpected versions: %+v", versions["items"])
	}

	resp = api.post("/v1/needs-lists/"+id+"/dispatch", nil, warehouse)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()
}

func TestAPIInsufficientStockPayload(t *testing.T) {
	api := newTestAPI(t)

	field := api.login("field@relief.local")
	officer := api.login("officer@relief.local")
	warehouse := api.login("warehouse@relief.local")

	resp := api.post("/v1/stock", map[string]any{
		"sku": "Water-1L", "direction": "IN", "qty": 10, "hub_id": api.mainHub.ID,
	}, warehouse)
	expectStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	resp = api.post("/v1/needs-lists", map[string]any{
		"hub_id": api.agencyHub.ID,
		"items":  []map[string]any{{"sku": "Water-1L", "qty": 40}},
	}, field)
	expectStatus(t, resp, http.StatusCreated)
	id := decode[listResponse](t, resp).List.ID

	resp = api.post("/v1/needs-lists/"+id+"/submit", nil, field)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()
	resp = api.post("/v1/needs-lists/"+id+"/lock", nil, officer)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = api.put("/v1/needs-lists/"+id+"/fulfilment", map[string]any{
		"rows": []map[string]any{{"sku": "Water-1L", "hub_id": api.mainHub.ID, "qty": 40}},
	}, officer)
	expectStatus(t, resp, http.StatusConflict)
	body := decode[map[string]any](t, resp)
	shortfalls, ok := body["shortfalls"].([]any)
	if !ok || len(shortfalls) != 1 {
		t.Fatalf("expected itemized shortfalls, got %+v", body)
	}
	row := shortfalls[0].(map[string]any)
	if row["available"].(float64) != 10 || row["requested"].(float64) != 40 {
		t.Fatalf("unexpected shortfall row: %+v", row)
	}
}

func TestAPIEnforcesAuth(t *testing.T) {
	api := newTestAPI(t)

	resp := api.post("/v1/needs-lists", map[string]any{
		"hub_id": api.agencyHub.ID,
	}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	var errBody map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&errBody); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if errBody["error"] == "" {
		t.Fatalf("expected error message")
	}
}

func TestAPIRoleEnforcement(t *testing.T) {
	api := newTestAPI(t)
	field := api.login("field@relief.local")

	// Field personnel cannot record stock movements.
	resp := api.post("/v1/stock", map[string]any{
		"sku": "Rice-25kg", "direction": "IN", "qty": 5, "hub_id": api.mainHub.ID,
	}, field)
	expectStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()
}

func TestTokenEndpointValidation(t *testing.T) {
	api := newTestAPI(t)

	resp := api.post("/v1/auth/token", map[string]any{"email": ""}, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	resp2 := api.post("/v1/auth/token", map[string]any{
		"email":    "field@relief.local",
		"password": "wrong",
	}, nil)
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp2.StatusCode)
	}
}
