package needs

import "errors"

var (
	ErrNotFound     = errors.New("needs: not found")
	ErrInvalidInput = errors.New("needs: invalid input")

	// ErrPermission covers role and hub-ownership precondition failures.
	ErrPermission = errors.New("needs: permission denied")
	// ErrState covers transitions attempted from a disallowed status.
	ErrState = errors.New("needs: invalid state for transition")

	// Lock failures. ErrLockHeld carries the holder and elapsed time in its
	// wrapped message; ErrLockExpired means the caller's own session lapsed
	// and the record must be reloaded.
	ErrLockHeld    = errors.New("needs: record is locked by another user")
	ErrLockExpired = errors.New("needs: edit lock expired, reload required")
	ErrNotHolder   = errors.New("needs: edit lock is held by a different user")

	ErrNoItems               = errors.New("needs: at least one item line is required")
	ErrNoAllocations         = errors.New("needs: at least one allocation row is required")
	ErrOverAllocated         = errors.New("needs: allocated quantity exceeds requested quantity")
	ErrNoActiveChangeRequest = errors.New("needs: no active change request")
	ErrReasonRequired        = errors.New("needs: an adjustment reason is required")
)
