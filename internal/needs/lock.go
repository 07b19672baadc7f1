package needs

import (
	"context"
	"fmt"
	"time"

	"github.com/wintech119/DisasterRecoveryInventoryManagementSystem-sub000/internal/identity"
)

// LockTimeout is how long an edit session may go without an extension before
// any other user may take the lock over.
const LockTimeout = 900 * time.Second

// LockStatus is a pure read of the lock state as seen by one viewer.
type LockStatus struct {
	Locked         bool   `json:"locked"`
	LockedByViewer bool   `json:"locked_by_viewer"`
	Editable       bool   `json:"editable"`
	HolderName     string `json:"holder_name,omitempty"`
	ElapsedMinutes int    `json:"elapsed_minutes"`
	Message        string `json:"message"`
}

// LockManager serializes fulfilment editing on a needs list to one user at a
// time. The lock is cooperative: it is read and written through the store
// without transactional fencing, so two acquirers racing within the same
// instant can both observe an expired lock and both succeed. That window is
// accepted for a human editing-session lock; dispatch-time stock
// re-validation is the backstop against stale edits.
type LockManager struct {
	store Store
	now   func() time.Time
}

// NewLockManager wires a lock manager over the store.
func NewLockManager(store Store) *LockManager {
	return &LockManager{store: store, now: func() time.Time { return time.Now().UTC() }}
}

func (m *LockManager) expired(l List) bool {
	return !l.LockedAt.IsZero() && m.now().Sub(l.LockedAt) >= LockTimeout
}

func elapsedMinutes(now, lockedAt time.Time) int {
	return int(now.Sub(lockedAt).Minutes())
}

// Acquire takes the edit lock for the actor. A lock held by the same actor is
// refreshed; an expired lock is taken over; a live lock held by someone else
// fails with the holder's name and how long ago they took it.
func (m *LockManager) Acquire(ctx context.Context, listID string, actor identity.User) error {
	l, err := m.store.GetList(ctx, listID)
	if err != nil {
		return err
	}
	if l.LockedBy != "" && l.LockedBy != actor.ID && !m.expired(l) {
		return fmt.Errorf("%w: currently being edited by %s (started ~%d minutes ago)",
			ErrLockHeld, l.LockedByName, elapsedMinutes(m.now(), l.LockedAt))
	}
	l.LockedBy = actor.ID
	l.LockedByName = actor.DisplayName()
	l.LockedAt = m.now()
	return m.store.SaveList(ctx, l)
}

// Extend refreshes the lock for the current holder. It fails when the caller
// is not the holder, or when the caller's own lock already expired (the
// session is stale and the record must be reloaded).
func (m *LockManager) Extend(ctx context.Context, listID string, actor identity.User) error {
	l, err := m.store.GetList(ctx, listID)
	if err != nil {
		return err
	}
	if l.LockedBy == "" || l.LockedBy != actor.ID {
		return ErrNotHolder
	}
	if m.expired(l) {
		return ErrLockExpired
	}
	l.LockedAt = m.now()
	return m.store.SaveList(ctx, l)
}

// Release clears the lock. With a non-empty actorID the release only succeeds
// for the current holder, protecting against a stale client releasing someone
// else's lock; an empty actorID is an unconditional override. Releasing an
// unlocked record is a no-op.
func (m *LockManager) Release(ctx context.Context, listID, actorID string) error {
	l, err := m.store.GetList(ctx, listID)
	if err != nil {
		return err
	}
	if l.LockedBy == "" {
		return nil
	}
	if actorID != "" && l.LockedBy != actorID {
		return ErrNotHolder
	}
	l.LockedBy = ""
	l.LockedByName = ""
	l.LockedAt = time.Time{}
	return m.store.SaveList(ctx, l)
}

// Status reports the lock state for a viewer without mutating anything.
func (m *LockManager) Status(ctx context.Context, listID, viewerID string) (LockStatus, error) {
	l, err := m.store.GetList(ctx, listID)
	if err != nil {
		return LockStatus{}, err
	}
	return m.statusOf(l, viewerID), nil
}

func (m *LockManager) statusOf(l List, viewerID string) LockStatus {
	if l.LockedBy == "" || m.expired(l) {
		return LockStatus{Editable: true, Message: "Available for editing"}
	}
	elapsed := elapsedMinutes(m.now(), l.LockedAt)
	if l.LockedBy == viewerID {
		return LockStatus{
			Locked:         true,
			LockedByViewer: true,
			Editable:       true,
			HolderName:     l.LockedByName,
			ElapsedMinutes: elapsed,
			Message:        "You are editing this needs list",
		}
	}
	return LockStatus{
		Locked:         true,
		HolderName:     l.LockedByName,
		ElapsedMinutes: elapsed,
		Message: fmt.Sprintf("Currently being edited by %s (started ~%d minutes ago). Opening read-only.",
			l.LockedByName, elapsed),
	}
}

// holdsLiveLock reports whether the actor holds a non-expired lock on l.
func (m *LockManager) holdsLiveLock(l List, actorID string) bool {
	return l.LockedBy == actorID && l.LockedBy != "" && !m.expired(l)
}
