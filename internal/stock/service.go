package stock

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/ids"
)

// Service defines stock ledger operations. The ledger is append-only: an OUT
// movement that would drive an (item, hub) balance negative is rejected, and a
// batch append validates every row before any row is written.
type Service interface {
	Append(ctx context.Context, m Movement) (Movement, error)
	AppendAll(ctx context.Context, ms []Movement) ([]Movement, error)
	StockAt(ctx context.Context, sku, hubID string) (int, error)
	StockBySKU(ctx context.Context, sku string) (map[string]int, error)
	ListMovements(ctx context.Context, limit int, afterSeq uint64) ([]Movement, uint64, error)
}

// Catalog defines item catalog operations.
type Catalog interface {
	RegisterItem(ctx context.Context, item Item) (Item, error)
	GetItem(ctx context.Context, sku string) (Item, error)
	ListItems(ctx context.Context) ([]Item, error)
	LowStock(ctx context.Context) ([]LowStockEntry, error)
}

// InMemory implements Service and Catalog with in-process concurrency safety.
// Validation of derived stock and the append happen under the same lock, so a
// batch can never oversubscribe a hub through interleaved writers.
type InMemory struct {
	mu        sync.RWMutex
	items     map[string]*Item
	movements []Movement
	seq       uint64
	balances  map[string]map[string]int // sku -> hubID -> derived stock
}

// NewInMemory creates an empty ledger.
func NewInMemory() *InMemory {
	return &InMemory{
		items:    make(map[string]*Item),
		balances: make(map[string]map[string]int),
	}
}

func (s *InMemory) Append(ctx context.Context, m Movement) (Movement, error) {
	out, err := s.AppendAll(ctx, []Movement{m})
	if err != nil {
		return Movement{}, err
	}
	return out[0], nil
}

func (s *InMemory) AppendAll(ctx context.Context, ms []Movement) ([]Movement, error) {
	return s.AppendAllIf(ctx, ms, nil)
}

// AppendAllIf behaves like AppendAll but runs commit between validation and
// the write, still inside the ledger's critical section. When commit returns
// an error the batch is abandoned with nothing written, so a caller can bind
// the append to another record's save and get both or neither.
func (s *InMemory) AppendAllIf(ctx context.Context, ms []Movement, commit func() error) ([]Movement, error) {
	if len(ms) == 0 {
		return nil, fmt.Errorf("%w: no movements", ErrInvalidInput)
	}
	for _, m := range ms {
		if err := validateMovement(m); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// All-or-nothing: collect every shortfall against a working copy of the
	// affected balances before mutating anything.
	working := make(map[string]map[string]int)
	var shortfalls []Shortfall
	for _, m := range ms {
		hubs, ok := working[m.SKU]
		if !ok {
			hubs = make(map[string]int)
			for hubID, qty := range s.balances[m.SKU] {
				hubs[hubID] = qty
			}
			working[m.SKU] = hubs
		}
		switch m.Direction {
		case In:
			hubs[m.HubID] += m.Qty
		case Out:
			if hubs[m.HubID] < m.Qty {
				shortfalls = append(shortfalls, Shortfall{
					SKU:       m.SKU,
					HubID:     m.HubID,
					Available: hubs[m.HubID],
					Requested: m.Qty,
				})
				continue
			}
			hubs[m.HubID] -= m.Qty
		}
	}
	if len(shortfalls) > 0 {
		return nil, &InsufficientStockError{Shortfalls: shortfalls}
	}
	if commit != nil {
		if err := commit(); err != nil {
			return nil, err
		}
	}

	out := make([]Movement, 0, len(ms))
	for _, m := range ms {
		s.seq++
		m.ID = ids.New()
		m.Sequence = s.seq
		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now().UTC()
		}
		s.movements = append(s.movements, m)
		hubs, ok := s.balances[m.SKU]
		if !ok {
			hubs = make(map[string]int)
			s.balances[m.SKU] = hubs
		}
		if m.Direction == In {
			hubs[m.HubID] += m.Qty
		} else {
			hubs[m.HubID] -= m.Qty
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *InMemory) StockAt(ctx context.Context, sku, hubID string) (int, error) {
	if strings.TrimSpace(sku) == "" || strings.TrimSpace(hubID) == "" {
		return 0, fmt.Errorf("%w: sku and hub are required", ErrInvalidInput)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[sku][hubID], nil
}

func (s *InMemory) StockBySKU(ctx context.Context, sku string) (map[string]int, error) {
	if strings.TrimSpace(sku) == "" {
		return nil, fmt.Errorf("%w: sku is required", ErrInvalidInput)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.balances[sku]))
	for hubID, qty := range s.balances[sku] {
		out[hubID] = qty
	}
	return out, nil
}

func (s *InMemory) ListMovements(ctx context.Context, limit int, afterSeq uint64) ([]Movement, uint64, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []Movement
	var last uint64
	for _, m := range s.movements {
		if m.Sequence <= afterSeq {
			continue
		}
		res = append(res, m)
		last = m.Sequence
		if len(res) >= limit {
			break
		}
	}
	return res, last, nil
}

func (s *InMemory) RegisterItem(ctx context.Context, item Item) (Item, error) {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return Item{}, fmt.Errorf("%w: item name is required", ErrInvalidInput)
	}
	if item.Unit == "" {
		item.Unit = "unit"
	}
	if item.MinQty < 0 {
		return Item{}, fmt.Errorf("%w: min_qty must be >= 0", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sku := strings.TrimSpace(item.SKU)
	if sku == "" {
		sku = s.generateSKULocked()
	} else if _, exists := s.items[sku]; exists {
		return Item{}, fmt.Errorf("%w: sku %s already registered", ErrInvalidInput, sku)
	}
	item.SKU = sku
	item.CreatedAt = time.Now().UTC()
	s.items[sku] = &item
	return item, nil
}

func (s *InMemory) GetItem(ctx context.Context, sku string) (Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[sku]
	if !ok {
		return Item{}, ErrNotFound
	}
	return *item, nil
}

func (s *InMemory) ListItems(ctx context.Context) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, *item)
	}
	return out, nil
}

func (s *InMemory) LowStock(ctx context.Context) ([]LowStockEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []LowStockEntry
	for sku, item := range s.items {
		total := 0
		for _, qty := range s.balances[sku] {
			total += qty
		}
		if total <= item.MinQty {
			out = append(out, LowStockEntry{Item: *item, Stock: total})
		}
	}
	return out, nil
}

// generateSKULocked issues the next ITM-prefixed SKU. Caller holds s.mu.
func (s *InMemory) generateSKULocked() string {
	for i := 0; ; i++ {
		sku := fmt.Sprintf("ITM-%06d", len(s.items)+1+i)
		if _, exists := s.items[sku]; !exists {
			return sku
		}
	}
}

func validateMovement(m Movement) error {
	if strings.TrimSpace(m.SKU) == "" {
		return fmt.Errorf("%w: sku is required", ErrInvalidInput)
	}
	if strings.TrimSpace(m.HubID) == "" {
		return fmt.Errorf("%w: hub is required", ErrInvalidInput)
	}
	if m.Direction != In && m.Direction != Out {
		return fmt.Errorf("%w: direction must be IN or OUT", ErrInvalidInput)
	}
	if m.Qty <= 0 {
		return ErrInvalidQty
	}
	return nil
}
