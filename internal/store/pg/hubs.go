package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/hub"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/ids"
)

// Hubs is the depot directory view over the store's pool.
type Hubs struct {
	db *sql.DB
}

var _ hub.Directory = (*Hubs)(nil)

// Hubs returns the hub.Directory backed by this store.
func (s *Store) Hubs() *Hubs { return &Hubs{db: s.db} }

// Add registers a stock-holding location.
func (d *Hubs) Add(ctx context.Context, name string, typ hub.Type, parish string) (hub.Hub, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return hub.Hub{}, fmt.Errorf("%w: hub name is required", hub.ErrInvalidInput)
	}
	if typ == hub.TypeUnknown {
		return hub.Hub{}, fmt.Errorf("%w: hub type is required", hub.ErrInvalidInput)
	}
	h := hub.Hub{
		ID:        ids.New(),
		Name:      name,
		Type:      typ,
		Parish:    strings.TrimSpace(parish),
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := d.db.ExecContext(ctx, `
		insert into hubs (id, name, type, parish, active, created_at)
		values ($1,$2,$3,$4,$5,$6)
	`, h.ID, h.Name, h.Type.String(), h.Parish, h.Active, h.CreatedAt); err != nil {
		return hub.Hub{}, err
	}
	return h, nil
}

func (d *Hubs) Get(ctx context.Context, id string) (hub.Hub, error) {
	return scanHub(d.db.QueryRowContext(ctx, `
		select id, name, type, coalesce(parish,''), active, created_at
		from hubs where id = $1
	`, id))
}

func (d *Hubs) List(ctx context.Context) ([]hub.Hub, error) {
	return d.query(ctx, `
		select id, name, type, coalesce(parish,''), active, created_at
		from hubs order by name
	`)
}

func (d *Hubs) EligibleSources(ctx context.Context) ([]hub.Hub, error) {
	return d.query(ctx, `
		select id, name, type, coalesce(parish,''), active, created_at
		from hubs where active and type <> 'AGENCY' order by name
	`)
}

// SetActive marks a hub in or out of service.
func (d *Hubs) SetActive(ctx context.Context, id string, active bool) error {
	res, err := d.db.ExecContext(ctx,
		`update hubs set active = $2 where id = $1`, id, active)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return hub.ErrNotFound
	}
	return nil
}

func (d *Hubs) query(ctx context.Context, query string) ([]hub.Hub, error) {
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []hub.Hub
	for rows.Next() {
		h, err := scanHub(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func scanHub(row rowScanner) (hub.Hub, error) {
	var h hub.Hub
	var typ string
	err := row.Scan(&h.ID, &h.Name, &typ, &h.Parish, &h.Active, &h.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return hub.Hub{}, hub.ErrNotFound
	}
	if err != nil {
		return hub.Hub{}, err
	}
	if h.Type, err = hub.ParseType(typ); err != nil {
		return hub.Hub{}, err
	}
	return h, nil
}
