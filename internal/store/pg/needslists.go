package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/ids"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/needs"
)

var _ needs.Store = (*Store)(nil)

const listColumns = `
	id, number, hub_id, coalesce(event_id,''), status, priority, notes,
	created_by, coalesce(prepared_by,''), coalesce(approved_by,''),
	coalesce(rejected_by,''), coalesce(dispatched_by,''), coalesce(received_by,''),
	created_at, submitted_at, prepared_at, approved_at, dispatched_at,
	received_at, fulfilled_at,
	coalesce(locked_by,''), coalesce(locked_by_name,''), locked_at
`

func (s *Store) CreateList(ctx context.Context, l needs.List) (needs.List, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return needs.List{}, err
	}
	defer func() { _ = tx.Rollback() }()

	l.ID = ids.New()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	var n int64
	if err := tx.QueryRowContext(ctx, `select nextval('needs_list_number_seq')`).Scan(&n); err != nil {
		return needs.List{}, err
	}
	l.Number = fmt.Sprintf("NL-%06d", n)

	if _, err := tx.ExecContext(ctx, `
		insert into needs_lists
			(id, number, hub_id, event_id, status, priority, notes, created_by, created_at)
		values ($1,$2,$3,nullif($4,''),$5,$6,$7,$8,$9)
	`, l.ID, l.Number, l.HubID, l.EventID, l.Status.String(), l.Priority.String(),
		l.Notes, l.CreatedBy, l.CreatedAt); err != nil {
		return needs.List{}, err
	}
	for i := range l.Items {
		if l.Items[i].ID == "" {
			l.Items[i].ID = ids.New()
		}
	}
	if err := insertItems(ctx, tx, l.ID, l.Items); err != nil {
		return needs.List{}, err
	}
	if err := tx.Commit(); err != nil {
		return needs.List{}, err
	}
	return l, nil
}

func (s *Store) GetList(ctx context.Context, id string) (needs.List, error) {
	l, err := scanList(s.db.QueryRowContext(ctx,
		`select `+listColumns+` from needs_lists where id = $1`, id))
	if err != nil {
		return needs.List{}, err
	}
	if l.Items, err = s.listItems(ctx, id); err != nil {
		return needs.List{}, err
	}
	if l.Fulfilments, err = s.listFulfilments(ctx, id); err != nil {
		return needs.List{}, err
	}
	return l, nil
}

// SaveList replaces the header and both row sets in one transaction.
func (s *Store) SaveList(ctx context.Context, l needs.List) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := saveListTx(ctx, tx, l); err != nil {
		return err
	}
	return tx.Commit()
}

// saveListTx writes the header and replaces both row sets against the
// caller's transaction; the caller owns commit and rollback.
func saveListTx(ctx context.Context, tx *sql.Tx, l needs.List) error {
	res, err := tx.ExecContext(ctx, `
		update needs_lists set
			hub_id = $2, event_id = nullif($3,''), status = $4, priority = $5, notes = $6,
			prepared_by = nullif($7,''), approved_by = nullif($8,''),
			rejected_by = nullif($9,''), dispatched_by = nullif($10,''), received_by = nullif($11,''),
			submitted_at = $12, prepared_at = $13, approved_at = $14,
			dispatched_at = $15, received_at = $16, fulfilled_at = $17,
			locked_by = nullif($18,''), locked_by_name = nullif($19,''), locked_at = $20
		where id = $1
	`, l.ID, l.HubID, l.EventID, l.Status.String(), l.Priority.String(), l.Notes,
		l.PreparedBy, l.ApprovedBy, l.RejectedBy, l.DispatchedBy, l.ReceivedBy,
		nullTime(l.SubmittedAt), nullTime(l.PreparedAt), nullTime(l.ApprovedAt),
		nullTime(l.DispatchedAt), nullTime(l.ReceivedAt), nullTime(l.FulfilledAt),
		l.LockedBy, l.LockedByName, nullTime(l.LockedAt))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return needs.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `delete from needs_list_items where list_id = $1`, l.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `delete from fulfilments where list_id = $1`, l.ID); err != nil {
		return err
	}
	for i := range l.Items {
		if l.Items[i].ID == "" {
			l.Items[i].ID = ids.New()
		}
	}
	if err := insertItems(ctx, tx, l.ID, l.Items); err != nil {
		return err
	}
	for i, f := range l.Fulfilments {
		if f.ID == "" {
			f.ID = ids.New()
			l.Fulfilments[i].ID = f.ID
		}
		if _, err := tx.ExecContext(ctx, `
			insert into fulfilments (id, list_id, sku, hub_id, qty)
			values ($1,$2,$3,$4,$5)
		`, f.ID, l.ID, f.SKU, f.HubID, f.Qty); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) DeleteList(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from needs_lists where id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return needs.ErrNotFound
	}
	return nil
}

func (s *Store) ListLists(ctx context.Context) ([]needs.List, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+listColumns+` from needs_lists order by number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []needs.List
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Items, err = s.listItems(ctx, out[i].ID); err != nil {
			return nil, err
		}
		if out[i].Fulfilments, err = s.listFulfilments(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) AppendStatusChange(ctx context.Context, sc needs.StatusChange) error {
	if sc.ID == "" {
		sc.ID = ids.New()
	}
	if sc.CreatedAt.IsZero() {
		sc.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		insert into status_changes (id, list_id, from_status, to_status, changed_by, notes, created_at)
		values ($1,$2,$3,$4,$5,$6,$7)
	`, sc.ID, sc.ListID, sc.From.String(), sc.To.String(), sc.ChangedBy, sc.Notes, sc.CreatedAt)
	return err
}

func (s *Store) StatusHistory(ctx context.Context, listID string) ([]needs.StatusChange, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, list_id, from_status, to_status, changed_by, notes, created_at
		from status_changes where list_id = $1 order by created_at, id
	`, listID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []needs.StatusChange
	for rows.Next() {
		var sc needs.StatusChange
		var from, to string
		if err := rows.Scan(&sc.ID, &sc.ListID, &from, &to, &sc.ChangedBy, &sc.Notes, &sc.CreatedAt); err != nil {
			return nil, err
		}
		// Creation rows are stored with from_status = 'Unknown'.
		sc.From, _ = needs.ParseStatus(from)
		if sc.To, err = needs.ParseStatus(to); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *Store) CreateChangeRequest(ctx context.Context, cr needs.ChangeRequest) (needs.ChangeRequest, error) {
	cr.ID = ids.New()
	now := time.Now().UTC()
	if cr.CreatedAt.IsZero() {
		cr.CreatedAt = now
	}
	cr.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		insert into change_requests
			(id, list_id, hub_id, reason, status, requested_by, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8)
	`, cr.ID, cr.ListID, cr.HubID, cr.Reason, cr.Status.String(), cr.RequestedBy, cr.CreatedAt, cr.UpdatedAt)
	if err != nil {
		return needs.ChangeRequest{}, err
	}
	return cr, nil
}

func (s *Store) GetChangeRequest(ctx context.Context, id string) (needs.ChangeRequest, error) {
	return scanChangeRequest(s.db.QueryRowContext(ctx, `
		select id, list_id, hub_id, reason, status, requested_by,
		       coalesce(reviewed_by,''), coalesce(resolution_notes,''), created_at, updated_at
		from change_requests where id = $1
	`, id))
}

func (s *Store) UpdateChangeRequest(ctx context.Context, cr needs.ChangeRequest) error {
	return updateChangeRequestOn(ctx, s.db, cr)
}

func updateChangeRequestOn(ctx context.Context, db execer, cr needs.ChangeRequest) error {
	res, err := db.ExecContext(ctx, `
		update change_requests set
			status = $2, reviewed_by = nullif($3,''), resolution_notes = $4, updated_at = $5
		where id = $1
	`, cr.ID, cr.Status.String(), cr.ReviewedBy, cr.ResolutionNotes, time.Now().UTC())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return needs.ErrNotFound
	}
	return nil
}

func (s *Store) ListChangeRequests(ctx context.Context, listID string) ([]needs.ChangeRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, list_id, hub_id, reason, status, requested_by,
		       coalesce(reviewed_by,''), coalesce(resolution_notes,''), created_at, updated_at
		from change_requests where list_id = $1 order by created_at, id
	`, listID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []needs.ChangeRequest
	for rows.Next() {
		cr, err := scanChangeRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cr)
	}
	return out, rows.Err()
}

// AppendVersion numbers the snapshot inside a serializable transaction so two
// concurrent approvals for the same list cannot share a version number.
func (s *Store) AppendVersion(ctx context.Context, v needs.FulfilmentVersion) (needs.FulfilmentVersion, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return needs.FulfilmentVersion{}, err
	}
	defer func() { _ = tx.Rollback() }()

	v, err = appendVersionTx(ctx, tx, v)
	if err != nil {
		return needs.FulfilmentVersion{}, err
	}
	if err := tx.Commit(); err != nil {
		return needs.FulfilmentVersion{}, err
	}
	return v, nil
}

// appendVersionTx numbers and inserts the snapshot against the caller's
// transaction; the caller owns commit and rollback.
func appendVersionTx(ctx context.Context, tx *sql.Tx, v needs.FulfilmentVersion) (needs.FulfilmentVersion, error) {
	v.ID = ids.New()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	if err := tx.QueryRowContext(ctx,
		`select coalesce(max(version), 0) + 1 from fulfilment_versions where list_id = $1`,
		v.ListID).Scan(&v.Version); err != nil {
		return needs.FulfilmentVersion{}, err
	}
	prevRows, err := json.Marshal(v.PrevRows)
	if err != nil {
		return needs.FulfilmentVersion{}, err
	}
	newRows, err := json.Marshal(v.NewRows)
	if err != nil {
		return needs.FulfilmentVersion{}, err
	}
	if _, err := tx.ExecContext(ctx, `
		insert into fulfilment_versions
			(id, list_id, version, prev_status, new_status, prev_rows, new_rows, reason, changed_by, created_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, v.ID, v.ListID, v.Version, v.PrevStatus.String(), v.NewStatus.String(),
		prevRows, newRows, v.Reason, v.ChangedBy, v.CreatedAt); err != nil {
		return needs.FulfilmentVersion{}, err
	}
	return v, nil
}

func (s *Store) ListVersions(ctx context.Context, listID string) ([]needs.FulfilmentVersion, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, list_id, version, prev_status, new_status, prev_rows, new_rows, reason, changed_by, created_at
		from fulfilment_versions where list_id = $1 order by version
	`, listID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []needs.FulfilmentVersion
	for rows.Next() {
		var v needs.FulfilmentVersion
		var prevStatus, newStatus string
		var prevRows, newRows []byte
		if err := rows.Scan(&v.ID, &v.ListID, &v.Version, &prevStatus, &newStatus,
			&prevRows, &newRows, &v.Reason, &v.ChangedBy, &v.CreatedAt); err != nil {
			return nil, err
		}
		if v.PrevStatus, err = needs.ParseStatus(prevStatus); err != nil {
			return nil, err
		}
		if v.NewStatus, err = needs.ParseStatus(newStatus); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(prevRows, &v.PrevRows); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(newRows, &v.NewRows); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

// execer is satisfied by both *sql.DB and *sql.Tx so write helpers can run
// standalone or inside a caller's transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func scanList(row rowScanner) (needs.List, error) {
	var l needs.List
	var status, priority string
	var submitted, prepared, approved, dispatched, received, fulfilled, locked sql.NullTime
	err := row.Scan(&l.ID, &l.Number, &l.HubID, &l.EventID, &status, &priority, &l.Notes,
		&l.CreatedBy, &l.PreparedBy, &l.ApprovedBy,
		&l.RejectedBy, &l.DispatchedBy, &l.ReceivedBy,
		&l.CreatedAt, &submitted, &prepared, &approved, &dispatched,
		&received, &fulfilled,
		&l.LockedBy, &l.LockedByName, &locked)
	if errors.Is(err, sql.ErrNoRows) {
		return needs.List{}, needs.ErrNotFound
	}
	if err != nil {
		return needs.List{}, err
	}
	if l.Status, err = needs.ParseStatus(status); err != nil {
		return needs.List{}, err
	}
	if l.Priority, err = needs.ParsePriority(priority); err != nil {
		return needs.List{}, err
	}
	l.SubmittedAt = fromNull(submitted)
	l.PreparedAt = fromNull(prepared)
	l.ApprovedAt = fromNull(approved)
	l.DispatchedAt = fromNull(dispatched)
	l.ReceivedAt = fromNull(received)
	l.FulfilledAt = fromNull(fulfilled)
	l.LockedAt = fromNull(locked)
	return l, nil
}

func scanChangeRequest(row rowScanner) (needs.ChangeRequest, error) {
	var cr needs.ChangeRequest
	var status string
	err := row.Scan(&cr.ID, &cr.ListID, &cr.HubID, &cr.Reason, &status, &cr.RequestedBy,
		&cr.ReviewedBy, &cr.ResolutionNotes, &cr.CreatedAt, &cr.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return needs.ChangeRequest{}, needs.ErrNotFound
	}
	if err != nil {
		return needs.ChangeRequest{}, err
	}
	if cr.Status, err = needs.ParseChangeRequestStatus(status); err != nil {
		return needs.ChangeRequest{}, err
	}
	return cr, nil
}

func insertItems(ctx context.Context, tx *sql.Tx, listID string, items []needs.Item) error {
	for _, item := range items {
		if _, err := tx.ExecContext(ctx, `
			insert into needs_list_items (id, list_id, sku, qty, justification)
			values ($1,$2,$3,$4,$5)
		`, item.ID, listID, item.SKU, item.Qty, item.Justification); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) listItems(ctx context.Context, listID string) ([]needs.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, sku, qty, coalesce(justification,'')
		from needs_list_items where list_id = $1 order by sku
	`, listID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []needs.Item
	for rows.Next() {
		var item needs.Item
		if err := rows.Scan(&item.ID, &item.SKU, &item.Qty, &item.Justification); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *Store) listFulfilments(ctx context.Context, listID string) ([]needs.Fulfilment, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, sku, hub_id, qty
		from fulfilments where list_id = $1 order by sku, hub_id
	`, listID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []needs.Fulfilment
	for rows.Next() {
		var f needs.Fulfilment
		if err := rows.Scan(&f.ID, &f.SKU, &f.HubID, &f.Qty); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func fromNull(t sql.NullTime) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time.UTC()
}
