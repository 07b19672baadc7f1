// Package hub is the depot directory: every stock-holding location in the
// relief network, typed by who operates it. AGENCY hubs belong to independent
// partners and are never counted as a supply source when pooling stock.
package hub

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

// Type classifies a hub by operator.
type Type uint8

const (
	TypeUnknown Type = iota
	TypeMain         // government-owned primary depot
	TypeSub          // government-owned satellite depot
	TypeAgency       // independent partner, excluded from shared-stock pooling
)

func (t Type) String() string {
	switch t {
	case TypeMain:
		return "MAIN"
	case TypeSub:
		return "SUB"
	case TypeAgency:
		return "AGENCY"
	case TypeUnknown:
		return "UNKNOWN"
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// ParseType maps a stored hub type string back to the enum.
func ParseType(raw string) (Type, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "MAIN":
		return TypeMain, nil
	case "SUB":
		return TypeSub, nil
	case "AGENCY":
		return TypeAgency, nil
	}
	return TypeUnknown, fmt.Errorf("%w: unknown hub type %q", ErrInvalidInput, raw)
}

// Hub is a physical stock-holding location.
type Hub struct {
	ID        string
	Name      string
	Type      Type
	Parish    string
	Active    bool
	CreatedAt time.Time
}

// EligibleSource reports whether the hub may supply allocations.
func (h Hub) EligibleSource() bool {
	return h.Active && h.Type != TypeAgency
}

var (
	ErrNotFound     = errors.New("hub: not found")
	ErrInvalidInput = errors.New("hub: invalid input")
)

// Directory provides hub lookups for the allocation engine and the workflow.
type Directory interface {
	Get(ctx context.Context, id string) (Hub, error)
	List(ctx context.Context) ([]Hub, error)
	EligibleSources(ctx context.Context) ([]Hub, error)
}

// InMemory implements Directory with in-process concurrency safety.
type InMemory struct {
	mu   sync.RWMutex
	hubs map[string]*Hub
}

// NewInMemory creates an empty directory.
func NewInMemory() *InMemory {
	return &InMemory{hubs: make(map[string]*Hub)}
}

// Add registers a hub and returns it with an assigned identifier.
func (d *InMemory) Add(ctx context.Context, name string, typ Type, parish string) (Hub, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Hub{}, fmt.Errorf("%w: hub name is required", ErrInvalidInput)
	}
	if typ == TypeUnknown {
		return Hub{}, fmt.Errorf("%w: hub type is required", ErrInvalidInput)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	h := &Hub{
		ID:        ids.New(),
		Name:      name,
		Type:      typ,
		Parish:    strings.TrimSpace(parish),
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	d.hubs[h.ID] = h
	return *h, nil
}

func (d *InMemory) Get(ctx context.Context, id string) (Hub, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	h, ok := d.hubs[id]
	if !ok {
		return Hub{}, ErrNotFound
	}
	return *h, nil
}

func (d *InMemory) List(ctx context.Context) ([]Hub, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Hub, 0, len(d.hubs))
	for _, h := range d.hubs {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (d *InMemory) EligibleSources(ctx context.Context) ([]Hub, error) {
	all, err := d.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []Hub
	for _, h := range all {
		if h.EligibleSource() {
			out = append(out, h)
		}
	}
	return out, nil
}

// SetActive marks a hub in or out of service.
func (d *InMemory) SetActive(ctx context.Context, id string, active bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, ok := d.hubs[id]
	if !ok {
		return ErrNotFound
	}
	h.Active = active
	return nil
}
