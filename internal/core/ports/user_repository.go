package ports

import (
	"context"

	"github.com/watchdeck/user-api/internal/core/domain"
)

// UserRepository is the user store. Implementations assign user ids on
// Create, return domain.ErrUserNotFound for a missing id, and serialize
// concurrent writes to the same id.
type UserRepository interface {
	List(ctx context.Context) ([]*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// Create persists user and returns it with its assigned ID. A taken
	// username yields domain.ErrUserExists.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	// Update sets username and role on the user, leaving every other field
	// untouched, and returns the updated record.
	Update(ctx context.Context, id, username string, role domain.Role) (*domain.User, error)
	// Delete removes the user together with its watch list.
	Delete(ctx context.Context, id string) error
	// AppendWatchItem appends item to the user's watch list.
	AppendWatchItem(ctx context.Context, id string, item domain.WatchItem) error
	Ping(ctx context.Context) error
}
