package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/event"
)

type eventRequest struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date,omitempty"`
	Description string `json:"description,omitempty"`
	Active      *bool  `json:"active,omitempty"`
}

func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listEvents(w, r)
	case http.MethodPost:
		a.createEvent(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleEventResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/events/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.getEvent(w, r, id)
	case http.MethodPut:
		a.updateEvent(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}

func (a *API) listEvents(w http.ResponseWriter, r *http.Request) {
	if _, ok := actor(w, r); !ok {
		return
	}
	var (
		events []event.Event
		err    error
	)
	if r.URL.Query().Get("active") == "true" {
		events, err = a.events.Active(r.Context())
	} else {
		events, err = a.events.List(r.Context())
	}
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": events})
}

func (a *API) getEvent(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := actor(w, r); !ok {
		return
	}
	e, err := a.events.Get(r.Context(), id)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (a *API) createEvent(w http.ResponseWriter, r *http.Request) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	if !u.Role.CanManageEvents() {
		writeError(w, r, http.StatusForbidden, "role "+u.Role.String()+" cannot manage disaster events")
		return
	}
	e, err := a.decodeEvent(w, r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	created, err := a.events.Add(r.Context(), e)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) updateEvent(w http.ResponseWriter, r *http.Request, id string) {
	u, ok := actor(w, r)
	if !ok {
		return
	}
	if !u.Role.CanManageEvents() {
		writeError(w, r, http.StatusForbidden, "role "+u.Role.String()+" cannot manage disaster events")
		return
	}
	e, err := a.decodeEvent(w, r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	e.ID = id
	updated, err := a.events.Update(r.Context(), e)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) decodeEvent(w http.ResponseWriter, r *http.Request) (event.Event, error) {
	var req eventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return event.Event{}, err
	}
	typ, err := event.ParseType(req.Type)
	if err != nil {
		return event.Event{}, err
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		return event.Event{}, err
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		return event.Event{}, err
	}
	e := event.Event{
		Name:        req.Name,
		Type:        typ,
		StartDate:   start,
		EndDate:     end,
		Description: strings.TrimSpace(req.Description),
		Active:      true,
	}
	if req.Active != nil {
		e.Active = *req.Active
	}
	return e, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, errors.New("dates must be YYYY-MM-DD")
	}
	return t, nil
}
