package pg

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/event"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/ids"
)

// Events is the disaster-event directory view over the store's pool.
type Events struct {
	db *sql.DB
}

var _ event.Directory = (*Events)(nil)

// Events returns the event.Directory backed by this store.
func (s *Store) Events() *Events { return &Events{db: s.db} }

const eventColumns = `
	id, name, type, start_date, end_date, coalesce(description,''), active, created_at
`

// Add registers a disaster event. New events open Active.
func (d *Events) Add(ctx context.Context, e event.Event) (event.Event, error) {
	if err := event.Validate(e); err != nil {
		return event.Event{}, err
	}
	e.ID = ids.New()
	e.Name = strings.TrimSpace(e.Name)
	e.Active = true
	e.CreatedAt = time.Now().UTC()
	if _, err := d.db.ExecContext(ctx, `
		insert into disaster_events (id, name, type, start_date, end_date, description, active, created_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8)
	`, e.ID, e.Name, e.Type.String(), e.StartDate, nullTime(e.EndDate),
		e.Description, e.Active, e.CreatedAt); err != nil {
		return event.Event{}, err
	}
	return e, nil
}

func (d *Events) Get(ctx context.Context, id string) (event.Event, error) {
	return scanEvent(d.db.QueryRowContext(ctx,
		`select `+eventColumns+` from disaster_events where id = $1`, id))
}

func (d *Events) List(ctx context.Context) ([]event.Event, error) {
	return d.query(ctx,
		`select `+eventColumns+` from disaster_events order by start_date desc, name`)
}

func (d *Events) Active(ctx context.Context) ([]event.Event, error) {
	return d.query(ctx,
		`select `+eventColumns+` from disaster_events where active order by start_date desc, name`)
}

// Update replaces the caller-controlled fields; identifier and creation time
// are kept.
func (d *Events) Update(ctx context.Context, e event.Event) (event.Event, error) {
	if err := event.Validate(e); err != nil {
		return event.Event{}, err
	}
	e.Name = strings.TrimSpace(e.Name)
	res, err := d.db.ExecContext(ctx, `
		update disaster_events set
			name = $2, type = $3, start_date = $4, end_date = $5, description = $6, active = $7
		where id = $1
	`, e.ID, e.Name, e.Type.String(), e.StartDate, nullTime(e.EndDate), e.Description, e.Active)
	if err != nil {
		return event.Event{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return event.Event{}, event.ErrNotFound
	}
	return d.Get(ctx, e.ID)
}

func (d *Events) query(ctx context.Context, query string) ([]event.Event, error) {
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []event.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEvent(row rowScanner) (event.Event, error) {
	var e event.Event
	var typ string
	var end sql.NullTime
	err := row.Scan(&e.ID, &e.Name, &typ, &e.StartDate, &end, &e.Description, &e.Active, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return event.Event{}, event.ErrNotFound
	}
	if err != nil {
		return event.Event{}, err
	}
	if e.Type, err = event.ParseType(typ); err != nil {
		return event.Event{}, err
	}
	e.EndDate = fromNull(end)
	return e, nil
}
