package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/watchdeck/user-api/internal/core/domain"
	"github.com/watchdeck/user-api/internal/core/ports"
)

// UserRepository is an in-memory user store for local runs and tests.
type UserRepository struct {
	mu sync.RWMutex

	users         map[string]*domain.User
	usernameIndex map[string]string
	seq           uint64
	now           func() time.Time
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:         make(map[string]*domain.User),
		usernameIndex: make(map[string]string),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

var _ ports.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) List(_ context.Context) ([]*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, clone(u))
	}
	sort.Slice(out, func(i, j int) bool { return idLess(out[i].ID, out[j].ID) })
	return out, nil
}

func (r *UserRepository) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return clone(u), nil
}

func (r *UserRepository) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.usernameIndex[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return clone(r.users[id]), nil
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.usernameIndex[user.Username]; taken {
		return nil, domain.ErrUserExists
	}

	r.seq++
	stored := clone(user)
	stored.ID = strconv.FormatUint(r.seq, 10)
	if stored.WatchList == nil {
		stored.WatchList = []domain.WatchItem{}
	}

	r.users[stored.ID] = stored
	r.usernameIndex[stored.Username] = stored.ID
	return clone(stored), nil
}

func (r *UserRepository) Update(_ context.Context, id, username string, role domain.Role) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if owner, taken := r.usernameIndex[username]; taken && owner != id {
		return nil, domain.ErrUserExists
	}

	delete(r.usernameIndex, u.Username)
	u.Username = username
	u.Role = role
	u.UpdatedAt = r.now()
	r.usernameIndex[username] = id
	return clone(u), nil
}

func (r *UserRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	delete(r.usernameIndex, u.Username)
	delete(r.users, id)
	return nil
}

func (r *UserRepository) AppendWatchItem(_ context.Context, id string, item domain.WatchItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.WatchList = append(u.WatchList, item)
	u.UpdatedAt = r.now()
	return nil
}

func (r *UserRepository) Ping(_ context.Context) error { return nil }

func clone(u *domain.User) *domain.User {
	c := *u
	c.WatchList = append(make([]domain.WatchItem, 0, len(u.WatchList)), u.WatchList...)
	return &c
}

// idLess orders numeric ids by value.
func idLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
