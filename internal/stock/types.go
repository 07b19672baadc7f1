package stock

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Direction of a ledger movement.
type Direction uint8

const (
	DirectionUnknown Direction = iota
	In
	Out
)

func (d Direction) String() string {
	switch d {
	case In:
		return "IN"
	case Out:
		return "OUT"
	case DirectionUnknown:
		return "UNKNOWN"
	}
	return fmt.Sprintf("Direction(%d)", uint8(d))
}

// ParseDirection maps a stored direction string back to the enum.
func ParseDirection(raw string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "IN":
		return In, nil
	case "OUT":
		return Out, nil
	}
	return DirectionUnknown, fmt.Errorf("%w: unknown direction %q", ErrInvalidInput, raw)
}

func (d Direction) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Direction) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseDirection(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Movement is one immutable ledger entry. Rows are never updated or deleted;
// stock at a hub is always the derived sum(IN) - sum(OUT).
type Movement struct {
	ID            string    `json:"id"`
	Sequence      uint64    `json:"sequence"`
	SKU           string    `json:"sku"`
	Direction     Direction `json:"direction"`
	Qty           int       `json:"qty"`
	HubID         string    `json:"hub_id"`
	DonorID       string    `json:"donor_id,omitempty"`
	BeneficiaryID string    `json:"beneficiary_id,omitempty"`
	EventID       string    `json:"event_id,omitempty"`
	ExpiryDate    string    `json:"expiry_date,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	CreatedBy     string    `json:"created_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Item is a catalog entry for a relief supply.
type Item struct {
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Category    string    `json:"category,omitempty"`
	Unit        string    `json:"unit"`
	MinQty      int       `json:"min_qty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// LowStockEntry pairs a catalog item with its current network-wide stock when
// that stock has fallen to or below the item's minimum threshold.
type LowStockEntry struct {
	Item  Item `json:"item"`
	Stock int  `json:"stock"`
}

var (
	ErrNotFound     = errors.New("stock: not found")
	ErrInvalidInput = errors.New("stock: invalid input")
	ErrInvalidQty   = errors.New("stock: quantity must be > 0")
)

// Shortfall identifies one (item, hub) pair whose derived stock cannot cover
// an OUT movement.
type Shortfall struct {
	SKU       string `json:"sku"`
	HubID     string `json:"hub_id"`
	Available int    `json:"available"`
	Requested int    `json:"requested"`
}

// InsufficientStockError reports every shortfall found while validating a
// batch append. The batch is rejected as a whole.
type InsufficientStockError struct {
	Shortfalls []Shortfall
}

func (e *InsufficientStockError) Error() string {
	if len(e.Shortfalls) == 0 {
		return "stock: insufficient stock"
	}
	parts := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		parts = append(parts, fmt.Sprintf("%s at hub %s: available %d, requested %d",
			s.SKU, s.HubID, s.Available, s.Requested))
	}
	return "stock: insufficient stock: " + strings.Join(parts, "; ")
}
