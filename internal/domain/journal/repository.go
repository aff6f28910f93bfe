package journal

import (
	"context"

	"github.com/google/uuid"
)

// Repository stores journal entries. Create is idempotent on EventID.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	GetByEventID(ctx context.Context, eventID uuid.UUID) (*Entry, error)
	ListByBookingID(ctx context.Context, bookingID string, limit, offset int) ([]*Entry, error)
	CountByBookingID(ctx context.Context, bookingID string) (int64, error)
}

// ErrEntryNotFound indicates a missing journal entry
type ErrEntryNotFound struct {
	EventID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "journal entry not found: " + e.EventID.String()
}

// Is matches any ErrEntryNotFound when the target has no EventID.
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	if t.EventID == uuid.Nil {
		return true
	}
	return e.EventID == t.EventID
}
