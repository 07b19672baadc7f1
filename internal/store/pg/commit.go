package pg

import (
	"context"
	"database/sql"

	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/needs"
	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/stock"
)

var _ needs.Committer = (*Store)(nil)

// CommitDispatch appends the movement batch and saves the dispatched list in
// one serializable transaction. A shortfall or a failed list write rolls the
// whole dispatch back with zero movements recorded.
func (s *Store) CommitDispatch(ctx context.Context, l needs.List, ms []stock.Movement) ([]stock.Movement, error) {
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
	if err := saveListTx(ctx, tx, l); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

// CommitChangeApproval writes the version snapshot, the revised list and the
// closed change request in one serializable transaction.
func (s *Store) CommitChangeApproval(ctx context.Context, l needs.List, v needs.FulfilmentVersion, cr needs.ChangeRequest) (needs.FulfilmentVersion, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return needs.FulfilmentVersion{}, err
	}
	defer func() { _ = tx.Rollback() }()

	v, err = appendVersionTx(ctx, tx, v)
	if err != nil {
		return needs.FulfilmentVersion{}, err
	}
	if err := saveListTx(ctx, tx, l); err != nil {
		return needs.FulfilmentVersion{}, err
	}
	if err := updateChangeRequestOn(ctx, tx, cr); err != nil {
		return needs.FulfilmentVersion{}, err
	}
	if err := tx.Commit(); err != nil {
		return needs.FulfilmentVersion{}, err
	}
	return v, nil
}
