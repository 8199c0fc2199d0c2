package ports

import (
	"context"

	"github.com/watchdeck/user-api/internal/core/domain"
	"github.com/watchdeck/user-api/internal/core/policy"
)

// WatchItemInput is the DTO passed from the transport layer when adding a
// watch-list entry.
type WatchItemInput struct {
	Kind  domain.WatchKind
	RefID string
	Title string
}

// UserService is the access-controlled user API. Every method that acts on
// an existing user evaluates the role policy before touching the store.
type UserService interface {
	ListAll(ctx context.Context, claim *domain.Claim) ([]*domain.User, error)
	GetByID(ctx context.Context, claim *domain.Claim, id string) (*domain.User, error)
	Create(ctx context.Context, username, password string) (*domain.User, error)
	Edit(ctx context.Context, claim *domain.Claim, id string, req policy.EditRequest) (*domain.User, error)
	Delete(ctx context.Context, claim *domain.Claim, id string) error
	AddWatchItem(ctx context.Context, claim *domain.Claim, id string, in WatchItemInput) (string, error)
	GetWatchList(ctx context.Context, claim *domain.Claim, id string) ([]domain.WatchItem, error)
}
