package needs

import (
	"context"

	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/stock"
)

// Committer applies the transitions that span more than one record set as a
// single atomic write: dispatch binds the ledger movements to the list save,
// and change approval binds the version snapshot, the revised list and the
// closed request. Either everything lands or nothing does; a failure must
// never leave movements without the Dispatched status or a version snapshot
// describing a revision that was not applied.
type Committer interface {
	CommitDispatch(ctx context.Context, l List, ms []stock.Movement) ([]stock.Movement, error)
	CommitChangeApproval(ctx context.Context, l List, v FulfilmentVersion, cr ChangeRequest) (FulfilmentVersion, error)
}

// InMemoryCommitter binds the in-memory store and ledger.
type InMemoryCommitter struct {
	store  *InMemory
	ledger *stock.InMemory
}

var _ Committer = (*InMemoryCommitter)(nil)

// NewInMemoryCommitter pairs an in-memory store with an in-memory ledger.
func NewInMemoryCommitter(store *InMemory, ledger *stock.InMemory) *InMemoryCommitter {
	return &InMemoryCommitter{store: store, ledger: ledger}
}

// CommitDispatch appends the movement batch and saves the list inside the
// ledger's critical section. The list save runs between stock validation and
// the ledger write, so a failed save leaves zero movements recorded and a
// shortfall leaves the list untouched.
func (c *InMemoryCommitter) CommitDispatch(ctx context.Context, l List, ms []stock.Movement) ([]stock.Movement, error) {
	return c.ledger.AppendAllIf(ctx, ms, func() error {
		return c.store.SaveList(ctx, l)
	})
}

// CommitChangeApproval delegates to the store, which holds every record set
// involved behind one mutex.
func (c *InMemoryCommitter) CommitChangeApproval(ctx context.Context, l List, v FulfilmentVersion, cr ChangeRequest) (FulfilmentVersion, error) {
	return c.store.CommitChangeApproval(ctx, l, v, cr)
}
