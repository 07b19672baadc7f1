package needs

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLockAcquireConflict(t *testing.T) {
	f := newFixture(t)
	l := f.draft(ItemInput{SKU: "Water-1L", Qty: 10})
	locks := f.wf.Locks()

	if err := locks.Acquire(f.ctx, l.ID, f.officer); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	f.advance(500 * time.Second)
	err := locks.Acquire(f.ctx, l.ID, f.manager)
	if !errors.Is(err, ErrLockHeld) {
		t.Fatalf("err = %v, want ErrLockHeld", err)
	}
	if !strings.Contains(err.Error(), f.officer.FullName) {
		t.Fatalf("conflict message missing holder name: %v", err)
	}
	if !strings.Contains(err.Error(), "~8 minutes") {
		t.Fatalf("conflict message missing elapsed minutes: %v", err)
	}
}

func TestLockExpiryTakeover(t *testing.T) {
	f := newFixture(t)
	l := f.draft(ItemInput{SKU: "Water-1L", Qty: 10})
	locks := f.wf.Locks()

	if err := locks.Acquire(f.ctx, l.ID, f.officer); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	f.advance(LockTimeout + time.Second)

	if err := locks.Acquire(f.ctx, l.ID, f.manager); err != nil {
		t.Fatalf("takeover after expiry: %v", err)
	}
	got, err := f.store.GetList(f.ctx, l.ID)
	if err != nil {
		t.Fatalf("get list: %v", err)
	}
	if got.LockedBy != f.manager.ID {
		t.Fatalf("holder = %s, want %s", got.LockedBy, f.manager.ID)
	}
}

func TestLockSelfAcquireRefreshes(t *testing.T) {
	f := newFixture(t)
	l := f.draft(ItemInput{SKU: "Water-1L", Qty: 10})
	locks := f.wf.Locks()

	if err := locks.Acquire(f.ctx, l.ID, f.officer); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	f.advance(800 * time.Second)
	if err := locks.Acquire(f.ctx, l.ID, f.officer); err != nil {
		t.Fatalf("self re-acquire: %v", err)
	}

	// The refreshed lock survives past the original deadline.
	f.advance(800 * time.Second)
	if err := locks.Extend(f.ctx, l.ID, f.officer); err != nil {
		t.Fatalf("extend after refresh: %v", err)
	}
}

func TestLockExtendErrors(t *testing.T) {
	f := newFixture(t)
	l := f.draft(ItemInput{SKU: "Water-1L", Qty: 10})
	locks := f.wf.Locks()

	if err := locks.Extend(f.ctx, l.ID, f.officer); !errors.Is(err, ErrNotHolder) {
		t.Fatalf("extend unlocked err = %v, want ErrNotHolder", err)
	}

	if err := locks.Acquire(f.ctx, l.ID, f.officer); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := locks.Extend(f.ctx, l.ID, f.manager); !errors.Is(err, ErrNotHolder) {
		t.Fatalf("extend by non-holder err = %v, want ErrNotHolder", err)
	}
	f.advance(LockTimeout + time.Second)
	if err := locks.Extend(f.ctx, l.ID, f.officer); !errors.Is(err, ErrLockExpired) {
		t.Fatalf("extend expired err = %v, want ErrLockExpired", err)
	}
}

func TestLockRelease(t *testing.T) {
	f := newFixture(t)
	l := f.draft(ItemInput{SKU: "Water-1L", Qty: 10})
	locks := f.wf.Locks()

	// Releasing an unlocked record is a no-op.
	if err := locks.Release(f.ctx, l.ID, f.officer.ID); err != nil {
		t.Fatalf("release unlocked: %v", err)
	}

	if err := locks.Acquire(f.ctx, l.ID, f.officer); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := locks.Release(f.ctx, l.ID, f.manager.ID); !errors.Is(err, ErrNotHolder) {
		t.Fatalf("release by non-holder err = %v, want ErrNotHolder", err)
	}
	// An empty actor id overrides regardless of holder.
	if err := locks.Release(f.ctx, l.ID, ""); err != nil {
		t.Fatalf("override release: %v", err)
	}
	if err := locks.Acquire(f.ctx, l.ID, f.manager); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
}

func TestLockStatus(t *testing.T) {
	f := newFixture(t)
	l := f.draft(ItemInput{SKU: "Water-1L", Qty: 10})
	locks := f.wf.Locks()

	st, err := locks.Status(f.ctx, l.ID, f.manager.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !st.Editable || st.Locked {
		t.Fatalf("unlocked status = %+v", st)
	}

	if err := locks.Acquire(f.ctx, l.ID, f.officer); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	f.advance(120 * time.Second)

	st, _ = locks.Status(f.ctx, l.ID, f.officer.ID)
	if !st.LockedByViewer || !st.Editable {
		t.Fatalf("holder status = %+v", st)
	}
	st, _ = locks.Status(f.ctx, l.ID, f.manager.ID)
	if st.Editable || st.HolderName != f.officer.FullName || st.ElapsedMinutes != 2 {
		t.Fatalf("viewer status = %+v", st)
	}

	// Expired locks read as editable without being mutated.
	f.advance(LockTimeout)
	st, _ = locks.Status(f.ctx, l.ID, f.manager.ID)
	if !st.Editable || st.Locked {
		t.Fatalf("expired status = %+v", st)
	}
}
