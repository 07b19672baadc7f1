package httpapi

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/event"
)

func TestAPIDisasterEvents(t *testing.T) {
	api := newTestAPI(t)

	field := api.login("field@relief.local")
	manager := api.login("manager@relief.local")

	// Only managers and admins may open events.
	resp := api.post("/v1/events", map[string]any{
		"name":       "Hurricane Beryl",
		"type":       "HURRICANE",
		"start_date": "2025-07-01",
	}, field)
	expectStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	resp = api.post("/v1/events", map[string]any{
		"name":        "Hurricane Beryl",
		"type":        "HURRICANE",
		"start_date":  "2025-07-01",
		"description": "Category 4 landfall along the south coast",
	}, manager)
	expectStatus(t, resp, http.StatusCreated)
	created := decode[event.Event](t, resp)
	if created.ID == "" || !created.Active || created.Type != event.TypeHurricane {
		t.Fatalf("unexpected event: %+v", created)
	}

	resp = api.post("/v1/events", map[string]any{"name": "No Dates"}, manager)
	expectStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	// Any authenticated role can read.
	resp = api.get("/v1/events/"+created.ID, nil, field)
	expectStatus(t, resp, http.StatusOK)
	got := decode[event.Event](t, resp)
	if got.Name != "Hurricane Beryl" {
		t.Fatalf("unexpected event: %+v", got)
	}

	// Closing is an update with active false and an end date.
	resp = api.put("/v1/events/"+created.ID, map[string]any{
		"name":       "Hurricane Beryl",
		"type":       "HURRICANE",
		"start_date": "2025-07-01",
		"end_date":   "2025-08-15",
		"active":     false,
	}, manager)
	expectStatus(t, resp, http.StatusOK)
	closed := decode[event.Event](t, resp)
	if closed.Active || closed.EndDate.IsZero() {
		t.Fatalf("event not closed: %+v", closed)
	}

	resp = api.get("/v1/events", url.Values{"active": []string{"true"}}, field)
	expectStatus(t, resp, http.StatusOK)
	listing := decode[struct {
		Items []event.Event `json:"items"`
	}](t, resp)
	if len(listing.Items) != 0 {
		t.Fatalf("closed event still listed active: %+v", listing.Items)
	}

	resp = api.get("/v1/events/missing", nil, manager)
	expectStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}
