package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/ids"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/stock"
)

// Store provides Postgres persistence for the stock ledger and item catalog.
type Store struct {
	db *sql.DB
}

var (
	_ stock.Service = (*Store)(nil)
	_ stock.Catalog = (*Store)(nil)
)

// Open connects with tuned pool defaults; adjust under load tests.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing pool, mainly for tests.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

const balanceQuery = `
	select coalesce(sum(case when direction = 'IN' then qty else -qty end), 0)
	from stock_movements
	where sku = $1 and hub_id = $2
`

func (s *Store) Append(ctx context.Context, m stock.Movement) (stock.Movement, error) {
	out, err := s.AppendAll(ctx, []stock.Movement{m})
	if err != nil {
		return stock.Movement{}, err
	}
	return out[0], nil
}

// AppendAll validates and inserts the whole batch inside one serializable
// transaction. Every OUT row is checked against the balance as seen inside
// the transaction plus earlier rows of the same batch; any shortfall rolls
// the whole batch back with the full list.
func (s *Store) AppendAll(ctx context.Context, ms []stock.Movement) ([]stock.Movement, error) {
	if err := validateBatch(ms); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	out, err := appendAllTx(ctx, tx, ms)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

func validateBatch(ms []stock.Movement) error {
	if len(ms) == 0 {
		return stock.ErrInvalidInput
	}
	for _, m := range ms {
		if m.Qty <= 0 {
			return stock.ErrInvalidQty
		}
		if m.SKU == "" || m.HubID == "" || (m.Direction != stock.In && m.Direction != stock.Out) {
			return stock.ErrInvalidInput
		}
	}
	return nil
}

// appendAllTx runs the balance validation and the inserts against the
// caller's transaction; the caller owns commit and rollback.
func appendAllTx(ctx context.Context, tx *sql.Tx, ms []stock.Movement) ([]stock.Movement, error) {
	working := make(map[[2]string]int)
	var shortfalls []stock.Shortfall
	for _, m := range ms {
		key := [2]string{m.SKU, m.HubID}
		if _, seen := working[key]; !seen {
			var bal int
			if err := tx.QueryRowContext(ctx, balanceQuery, m.SKU, m.HubID).Scan(&bal); err != nil {
				return nil, err
			}
			working[key] = bal
		}
		if m.Direction == stock.In {
			working[key] += m.Qty
			continue
		}
		if working[key] < m.Qty {
			shortfalls = append(shortfalls, stock.Shortfall{
				SKU:       m.SKU,
				HubID:     m.HubID,
				Available: working[key],
				Requested: m.Qty,
			})
			continue
		}
		working[key] -= m.Qty
	}
	if len(shortfalls) > 0 {
		return nil, &stock.InsufficientStockError{Shortfalls: shortfalls}
	}

	out := make([]stock.Movement, 0, len(ms))
	for _, m := range ms {
		m.ID = ids.New()
		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now().UTC()
		}
		err := tx.QueryRowContext(ctx, `
			insert into stock_movements
				(id, sku, direction, qty, hub_id, donor_id, beneficiary_id, event_id, expiry_date, notes, created_by, created_at)
			values ($1,$2,$3,$4,$5,nullif($6,''),nullif($7,''),nullif($8,''),nullif($9,''),$10,$11,$12)
			returning sequence
		`, m.ID, m.SKU, m.Direction.String(), m.Qty, m.HubID,
			m.DonorID, m.BeneficiaryID, m.EventID, m.ExpiryDate,
			m.Notes, m.CreatedBy, m.CreatedAt).Scan(&m.Sequence)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *Store) StockAt(ctx context.Context, sku, hubID string) (int, error) {
	if sku == "" || hubID == "" {
		return 0, stock.ErrInvalidInput
	}
	var bal int
	if err := s.db.QueryRowContext(ctx, balanceQuery, sku, hubID).Scan(&bal); err != nil {
		return 0, err
	}
	return bal, nil
}

func (s *Store) StockBySKU(ctx context.Context, sku string) (map[string]int, error) {
	if sku == "" {
		return nil, stock.ErrInvalidInput
	}
	rows, err := s.db.QueryContext(ctx, `
		select hub_id, coalesce(sum(case when direction = 'IN' then qty else -qty end), 0)
		from stock_movements
		where sku = $1
		group by hub_id
	`, sku)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var hubID string
		var bal int
		if err := rows.Scan(&hubID, &bal); err != nil {
			return nil, err
		}
		out[hubID] = bal
	}
	return out, rows.Err()
}

func (s *Store) ListMovements(ctx context.Context, limit int, afterSeq uint64) ([]stock.Movement, uint64, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, sequence, sku, direction, qty, hub_id,
		       coalesce(donor_id,''), coalesce(beneficiary_id,''), coalesce(event_id,''),
		       coalesce(expiry_date,''), notes, created_by, created_at
		from stock_movements
		where sequence > $1
		order by sequence asc
		limit $2
	`, afterSeq, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var res []stock.Movement
	var last uint64
	for rows.Next() {
		var m stock.Movement
		var direction string
		if err := rows.Scan(&m.ID, &m.Sequence, &m.SKU, &direction, &m.Qty, &m.HubID,
			&m.DonorID, &m.BeneficiaryID, &m.EventID,
			&m.ExpiryDate, &m.Notes, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, 0, err
		}
		if m.Direction, err = stock.ParseDirection(direction); err != nil {
			return nil, 0, err
		}
		res = append(res, m)
		last = m.Sequence
	}
	return res, last, rows.Err()
}

func (s *Store) RegisterItem(ctx context.Context, item stock.Item) (stock.Item, error) {
	if item.Name == "" {
		return stock.Item{}, stock.ErrInvalidInput
	}
	if item.Unit == "" {
		item.Unit = "unit"
	}
	item.CreatedAt = time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stock.Item{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if item.SKU == "" {
		// ITM- SKUs are issued from a sequence so concurrent registrations
		// never collide.
		var n int64
		if err := tx.QueryRowContext(ctx, `select nextval('item_sku_seq')`).Scan(&n); err != nil {
			return stock.Item{}, err
		}
		item.SKU = formatSKU(n)
	}
	if _, err := tx.ExecContext(ctx, `
		insert into items (sku, name, category, unit, min_qty, description, created_at)
		values ($1,$2,$3,$4,$5,$6,$7)
	`, item.SKU, item.Name, item.Category, item.Unit, item.MinQty, item.Description, item.CreatedAt); err != nil {
		return stock.Item{}, err
	}
	if err := tx.Commit(); err != nil {
		return stock.Item{}, err
	}
	return item, nil
}

func (s *Store) GetItem(ctx context.Context, sku string) (stock.Item, error) {
	var item stock.Item
	err := s.db.QueryRowContext(ctx, `
		select sku, name, category, unit, min_qty, description, created_at
		from items where sku = $1
	`, sku).Scan(&item.SKU, &item.Name, &item.Category, &item.Unit, &item.MinQty, &item.Description, &item.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return stock.Item{}, stock.ErrNotFound
	}
	if err != nil {
		return stock.Item{}, err
	}
	return item, nil
}

func (s *Store) ListItems(ctx context.Context) ([]stock.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		select sku, name, category, unit, min_qty, description, created_at
		from items order by sku
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []stock.Item
	for rows.Next() {
		var item stock.Item
		if err := rows.Scan(&item.SKU, &item.Name, &item.Category, &item.Unit, &item.MinQty, &item.Description, &item.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *Store) LowStock(ctx context.Context) ([]stock.LowStockEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		select i.sku, i.name, i.category, i.unit, i.min_qty, i.description, i.created_at,
		       coalesce(sum(case when m.direction = 'IN' then m.qty else -m.qty end), 0) as total
		from items i
		left join stock_movements m on m.sku = i.sku
		group by i.sku, i.name, i.category, i.unit, i.min_qty, i.description, i.created_at
		having coalesce(sum(case when m.direction = 'IN' then m.qty else -m.qty end), 0) <= i.min_qty
		order by i.sku
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []stock.LowStockEntry
	for rows.Next() {
		var e stock.LowStockEntry
		if err := rows.Scan(&e.Item.SKU, &e.Item.Name, &e.Item.Category, &e.Item.Unit,
			&e.Item.MinQty, &e.Item.Description, &e.Item.CreatedAt, &e.Stock); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func formatSKU(n int64) string {
	const digits = "0123456789"
	buf := []byte("ITM-000000")
	for i := len(buf) - 1; i >= 4 && n > 0; i-- {
		buf[i] = digits[n%10]
		n /= 10
	}
	return string(buf)
}
