package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/identity"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/ids"
)

// Users is the account registry view over the store's pool.
type Users struct {
	db *sql.DB
}

var _ identity.Registry = (*Users)(nil)

// Users returns the identity.Registry backed by this store.
func (s *Store) Users() *Users { return &Users{db: s.db} }

const userColumns = `
	id, email, full_name, password_hash, role, coalesce(hub_id,''), active, created_at, last_login_at
`

func (u *Users) Create(ctx context.Context, email, fullName, password string, role identity.Role, hubID string) (identity.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return identity.User{}, fmt.Errorf("%w: valid email is required", identity.ErrInvalidInput)
	}
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return identity.User{}, fmt.Errorf("%w: full name is required", identity.ErrInvalidInput)
	}
	if role == identity.RoleUnknown {
		return identity.User{}, fmt.Errorf("%w: role is required", identity.ErrInvalidInput)
	}
	hash, err := identity.HashPassword(password)
	if err != nil {
		return identity.User{}, err
	}

	acct := identity.User{
		ID:           ids.New(),
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		Role:         role,
		HubID:        strings.TrimSpace(hubID),
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := u.db.ExecContext(ctx, `
		insert into users (id, email, full_name, password_hash, role, hub_id, active, created_at)
		values ($1,$2,$3,$4,$5,nullif($6,''),$7,$8)
	`, acct.ID, acct.Email, acct.FullName, acct.PasswordHash, acct.Role.String(), acct.HubID, acct.Active, acct.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return identity.User{}, fmt.Errorf("%w: email %s", identity.ErrAlreadyExists, email)
		}
		return identity.User{}, err
	}
	return acct, nil
}

func (u *Users) Get(ctx context.Context, id string) (identity.User, error) {
	return scanUser(u.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id = $1`, id))
}

func (u *Users) FindByEmail(ctx context.Context, email string) (identity.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	return scanUser(u.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where email = $1`, email))
}

func (u *Users) Authenticate(ctx context.Context, email, password string) (identity.User, error) {
	acct, err := u.FindByEmail(ctx, email)
	if err != nil {
		return identity.User{}, identity.ErrUnauthorized
	}
	if !acct.Active {
		return identity.User{}, identity.ErrUnauthorized
	}
	if err := identity.VerifyPassword(acct.PasswordHash, password); err != nil {
		return identity.User{}, identity.ErrUnauthorized
	}
	acct.LastLoginAt = time.Now().UTC()
	if _, err := u.db.ExecContext(ctx,
		`update users set last_login_at = $2 where id = $1`, acct.ID, acct.LastLoginAt); err != nil {
		return identity.User{}, err
	}
	return acct, nil
}

func (u *Users) List(ctx context.Context) ([]identity.User, error) {
	rows, err := u.db.QueryContext(ctx,
		`select `+userColumns+` from users order by email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []identity.User
	for rows.Next() {
		acct, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, acct)
	}
	return out, rows.Err()
}

func (u *Users) SetActive(ctx context.Context, id string, active bool) error {
	res, err := u.db.ExecContext(ctx,
		`update users set active = $2 where id = $1`, id, active)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return identity.ErrNotFound
	}
	return nil
}

func scanUser(row rowScanner) (identity.User, error) {
	var acct identity.User
	var role string
	var lastLogin sql.NullTime
	err := row.Scan(&acct.ID, &acct.Email, &acct.FullName, &acct.PasswordHash, &role,
		&acct.HubID, &acct.Active, &acct.CreatedAt, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return identity.User{}, identity.ErrNotFound
	}
	if err != nil {
		return identity.User{}, err
	}
	if acct.Role, err = identity.ParseRole(role); err != nil {
		return identity.User{}, err
	}
	acct.LastLoginAt = fromNull(lastLogin)
	return acct, nil
}

func isUniqueViolation(err error) bool {
	// pgx wraps server errors; SQLSTATE 23505 is unique_violation.
	return err != nil && strings.Contains(err.Error(), "23505")
}
