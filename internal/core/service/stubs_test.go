package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/watchdeck/user-api/internal/core/domain"
)

// ---------------------------------------------------------------------------
// In-memory stub repository
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	users  map[string]*domain.User
	nextID int

	findErr error // if set, FindByID and FindByUsername return this error
	listErr error
	calls   []string // every repository method invoked, in order
	writes  int      // number of mutating calls that reached the store
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	if u.WatchList != nil {
		clone.WatchList = make([]domain.WatchItem, len(u.WatchList))
		copy(clone.WatchList, u.WatchList)
	}
	return &clone
}

func (r *stubUserRepo) seed(id, username string, role domain.Role) *domain.User {
	u := &domain.User{ID: id, Username: username, PasswordHash: "hash:" + username, Role: role}
	r.users[id] = u
	return u
}

func (r *stubUserRepo) List(_ context.Context) ([]*domain.User, error) {
	r.calls = append(r.calls, "List")
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, cloneUser(u))
	}
	return out, nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.calls = append(r.calls, "FindByID")
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.calls = append(r.calls, "FindByUsername")
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.calls = append(r.calls, "Create")
	for _, u := range r.users {
		if u.Username == user.Username {
			return nil, domain.ErrUserExists
		}
	}
	r.writes++
	r.nextID++
	created := cloneUser(user)
	created.ID = strconv.Itoa(r.nextID)
	r.users[created.ID] = cloneUser(created)
	return created, nil
}

func (r *stubUserRepo) Update(_ context.Context, id, username string, role domain.Role) (*domain.User, error) {
	r.calls = append(r.calls, "Update")
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	r.writes++
	u.Username = username
	u.Role = role
	return cloneUser(u), nil
}

func (r *stubUserRepo) Delete(_ context.Context, id string) error {
	r.calls = append(r.calls, "Delete")
	if _, ok := r.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	r.writes++
	delete(r.users, id)
	return nil
}

func (r *stubUserRepo) AppendWatchItem(_ context.Context, id string, item domain.WatchItem) error {
	r.calls = append(r.calls, "AppendWatchItem")
	u, ok := r.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	r.writes++
	u.WatchList = append(u.WatchList, item)
	return nil
}

func (r *stubUserRepo) Ping(_ context.Context) error { return nil }

// stubHasher prefixes the password so tests can tell hashed from plain
// values without paying for bcrypt.
type stubHasher struct {
	err error
}

func (h stubHasher) Hash(password string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return "hash:" + password, nil
}

func (h stubHasher) Compare(hash, password string) error {
	if !strings.HasPrefix(hash, "hash:") || strings.TrimPrefix(hash, "hash:") != password {
		return errors.New("mismatch")
	}
	return nil
}

var discardLogger = zerolog.Nop()
