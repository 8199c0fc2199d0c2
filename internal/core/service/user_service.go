package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/watchdeck/user-api/internal/core/domain"
	"github.com/watchdeck/user-api/internal/core/policy"
	"github.com/watchdeck/user-api/internal/core/ports"
)

// UserService implements the access-controlled user and watch-list
// operations. It holds no mutable state; all state lives in the repository.
type UserService struct {
	repo   ports.UserRepository
	hasher ports.PasswordHasher
	logger zerolog.Logger

	now   func() time.Time
	newID func() string
}

func NewUserService(repo ports.UserRepository, hasher ports.PasswordHasher, logger zerolog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		hasher: hasher,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

var _ ports.UserService = (*UserService)(nil)

// ListAll returns every user. ADMIN only.
func (s *UserService) ListAll(ctx context.Context, claim *domain.Claim) ([]*domain.User, error) {
	if err := policy.Decide(claim, policy.OpListUsers, "").Err(); err != nil {
		return nil, err
	}

	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, storeErr("list", err)
	}
	return users, nil
}

// GetByID returns the user with the given id, watch list included.
func (s *UserService) GetByID(ctx context.Context, claim *domain.Claim, id string) (*domain.User, error) {
	if err := policy.Decide(claim, policy.OpGetUser, id).Err(); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// Create registers a new account. The role is always USER regardless of
// what the caller asked for.
func (s *UserService) Create(ctx context.Context, username, password string) (*domain.User, error) {
	if err := policy.Decide(nil, policy.OpCreateUser, "").Err(); err != nil {
		return nil, err
	}

	username, err := domain.NormalizeUsername(username)
	if err != nil {
		return nil, err
	}
	if err := domain.CheckPassword(password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("create user: hash password: %w", err)
	}

	now := s.now()
	created, err := s.repo.Create(ctx, &domain.User{
		Username:     username,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		WatchList:    []domain.WatchItem{},
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, storeErr("create", err)
	}

	s.logger.Info().Str("user_id", created.ID).Msg("user created")
	return created, nil
}

// Edit applies the mutation policy to the stored user and persists the
// effective username and role.
func (s *UserService) Edit(ctx context.Context, claim *domain.Claim, id string, req policy.EditRequest) (*domain.User, error) {
	if err := policy.Decide(claim, policy.OpEditUser, id).Err(); err != nil {
		return nil, err
	}

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := policy.ApplyEdit(claim.Role, req, *current)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, id, next.Username, next.Role)
	if err != nil {
		return nil, storeErr("update", err)
	}

	if next.Role != current.Role {
		s.logger.Info().
			Str("user_id", id).
			Str("by", claim.UserID).
			Str("from", string(current.Role)).
			Str("to", string(next.Role)).
			Msg("user role changed")
	}
	return updated, nil
}

// Delete removes the user and its watch list. ADMIN only.
func (s *UserService) Delete(ctx context.Context, claim *domain.Claim, id string) error {
	if err := policy.Decide(claim, policy.OpDeleteUser, id).Err(); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return storeErr("delete", err)
	}

	s.logger.Info().Str("user_id", id).Str("by", claim.UserID).Msg("user deleted")
	return nil
}

// AddWatchItem appends an entry to the user's watch list and returns the
// identifier assigned to it.
func (s *UserService) AddWatchItem(ctx context.Context, claim *domain.Claim, id string, in ports.WatchItemInput) (string, error) {
	if err := policy.Decide(claim, policy.OpAddWatchItem, id).Err(); err != nil {
		return "", err
	}

	if _, err := s.load(ctx, id); err != nil {
		return "", err
	}

	if !in.Kind.IsValid() {
		return "", domain.InvalidInput("invalid watch list kind")
	}
	refID := strings.TrimSpace(in.RefID)
	if refID == "" {
		return "", domain.InvalidInput("ref_id is required")
	}

	item := domain.WatchItem{
		ID:      s.newID(),
		Kind:    in.Kind,
		RefID:   refID,
		Title:   strings.TrimSpace(in.Title),
		AddedAt: s.now(),
	}
	if err := s.repo.AppendWatchItem(ctx, id, item); err != nil {
		return "", storeErr("append watch item", err)
	}
	return item.ID, nil
}

// GetWatchList returns the user's watch list, never nil.
func (s *UserService) GetWatchList(ctx context.Context, claim *domain.Claim, id string) ([]domain.WatchItem, error) {
	if err := policy.Decide(claim, policy.OpGetWatchList, id).Err(); err != nil {
		return nil, err
	}

	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.WatchList == nil {
		return []domain.WatchItem{}, nil
	}
	return user.WatchList, nil
}

// load is the existence check. It must only run after the policy allowed
// the operation.
func (s *UserService) load(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr("get", err)
	}
	return user, nil
}

// storeErr passes through the store's own sentinels and wraps anything else
// as a store failure.
func storeErr(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrUserExists),
		errors.Is(err, domain.ErrStoreFailure):
		return err
	default:
		return domain.StoreFailure(op, err)
	}
}
