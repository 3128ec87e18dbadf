package finance

import (
	"context"

	"github.com/google/uuid"
)

// UnlockFunc releases a lock obtained from a PartyLocker
type UnlockFunc func(ctx context.Context) error

// PartyLocker serializes write operations for one party. Lock blocks until the
// lock is held or ctx is done; a lock that cannot be obtained in time fails
// with a LOCK_TIMEOUT domain error.
type PartyLocker interface {
	Lock(ctx context.Context, partyID uuid.UUID) (UnlockFunc, error)
}
