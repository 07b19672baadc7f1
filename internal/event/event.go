// Package event is the disaster-event directory: the hurricanes, floods and
// earthquakes relief activity is recorded against. Needs lists and ledger
// movements carry an event ID so one response can be reported in isolation.
package event

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/ids"
)

// Type classifies a disaster event. Unspecified is valid; not every response
// starts with a confirmed classification.
type Type uint8

const (
	TypeUnspecified Type = iota
	TypeHurricane
	TypeEarthquake
	TypeFlood
	TypeOther
)

func (t Type) String() string {
	switch t {
	case TypeUnspecified:
		return "UNSPECIFIED"
	case TypeHurricane:
		return "HURRICANE"
	case TypeEarthquake:
		return "EARTHQUAKE"
	case TypeFlood:
		return "FLOOD"
	case TypeOther:
		return "OTHER"
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// ParseType maps a stored event type string back to the enum. The empty
// string is Unspecified.
func ParseType(raw string) (Type, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", "UNSPECIFIED":
		return TypeUnspecified, nil
	case "HURRICANE":
		return TypeHurricane, nil
	case "EARTHQUAKE":
		return TypeEarthquake, nil
	case "FLOOD":
		return TypeFlood, nil
	case "OTHER":
		return TypeOther, nil
	}
	return TypeUnspecified, fmt.Errorf("%w: unknown event type %q", ErrInvalidInput, raw)
}

// Event is one disaster response period. An open event has a zero EndDate.
type Event struct {
	ID          string
	Name        string
	Type        Type
	StartDate   time.Time
	EndDate     time.Time
	Description string
	Active      bool
	CreatedAt   time.Time
}

var (
	ErrNotFound     = errors.New("event: not found")
	ErrInvalidInput = errors.New("event: invalid input")
)

// Directory provides disaster-event lookups and maintenance.
type Directory interface {
	Add(ctx context.Context, e Event) (Event, error)
	Get(ctx context.Context, id string) (Event, error)
	List(ctx context.Context) ([]Event, error)
	Active(ctx context.Context) ([]Event, error)
	Update(ctx context.Context, e Event) (Event, error)
}

// Validate checks the fields a caller controls.
func Validate(e Event) error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("%w: event name is required", ErrInvalidInput)
	}
	if e.StartDate.IsZero() {
		return fmt.Errorf("%w: start date is required", ErrInvalidInput)
	}
	if !e.EndDate.IsZero() && e.EndDate.Before(e.StartDate) {
		return fmt.Errorf("%w: end date precedes start date", ErrInvalidInput)
	}
	return nil
}

// InMemory implements Directory with in-process concurrency safety.
type InMemory struct {
	mu     sync.RWMutex
	events map[string]*Event
}

// NewInMemory creates an empty directory.
func NewInMemory() *InMemory {
	return &InMemory{events: make(map[string]*Event)}
}

// Add registers a disaster event and returns it with an assigned identifier.
// New events open Active.
func (d *InMemory) Add(ctx context.Context, e Event) (Event, error) {
	if err := Validate(e); err != nil {
		return Event{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	e.ID = ids.New()
	e.Name = strings.TrimSpace(e.Name)
	e.Active = true
	e.CreatedAt = time.Now().UTC()
	cp := e
	d.events[e.ID] = &cp
	return e, nil
}

func (d *InMemory) Get(ctx context.Context, id string) (Event, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.events[id]
	if !ok {
		return Event{}, ErrNotFound
	}
	return *e, nil
}

func (d *InMemory) List(ctx context.Context) ([]Event, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Event, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, *e)
	}
	sortEvents(out)
	return out, nil
}

func (d *InMemory) Active(ctx context.Context) ([]Event, error) {
	all, err := d.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []Event
	for _, e := range all {
		if e.Active {
			out = append(out, e)
		}
	}
	return out, nil
}

// Update replaces the caller-controlled fields. Identifier and creation time
// are kept; closing an event is an update with Active false.
func (d *InMemory) Update(ctx context.Context, e Event) (Event, error) {
	if err := Validate(e); err != nil {
		return Event{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	cur, ok := d.events[e.ID]
	if !ok {
		return Event{}, ErrNotFound
	}
	e.Name = strings.TrimSpace(e.Name)
	e.CreatedAt = cur.CreatedAt
	cp := e
	d.events[e.ID] = &cp
	return e, nil
}

// Newest responses first, ties broken by name for a stable listing.
func sortEvents(out []Event) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.After(out[j].StartDate)
		}
		return out[i].Name < out[j].Name
	})
}
