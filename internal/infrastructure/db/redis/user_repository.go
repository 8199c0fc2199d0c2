package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/watchdeck/user-api/internal/core/domain"
	"github.com/watchdeck/user-api/internal/core/ports"
)

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// maxTxRetries bounds optimistic transaction retries under contention.
const maxTxRetries = 32

// UserRepository stores users as JSON documents. Writes to an existing
// user run inside WATCH/MULTI so concurrent edits and appends are not lost.
type UserRepository struct {
	client *redis.Client
	now    func() time.Time
}

func NewUserRepository(client *redis.Client) *UserRepository {
	return &UserRepository{
		client: client,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

var _ ports.UserRepository = (*UserRepository)(nil)

// userRecord is the stored form. It keeps the password hash, which the
// domain type hides from JSON.
type userRecord struct {
	ID           string             `json:"id"`
	Username     string             `json:"username"`
	PasswordHash string             `json:"password_hash"`
	Role         domain.Role        `json:"role"`
	WatchList    []domain.WatchItem `json:"watch_list"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

func toRecord(u *domain.User) userRecord {
	return userRecord{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		WatchList:    u.WatchList,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (rec userRecord) toDomain() *domain.User {
	list := rec.WatchList
	if list == nil {
		list = []domain.WatchItem{}
	}
	return &domain.User{
		ID:           rec.ID,
		Username:     rec.Username,
		PasswordHash: rec.PasswordHash,
		Role:         rec.Role,
		WatchList:    list,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
}

func decode(data []byte) (userRecord, error) {
	var rec userRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return userRecord{}, fmt.Errorf("decode user: %w", err)
	}
	return rec, nil
}

func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	ids, err := r.client.ZRange(ctx, usersIndexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	if len(ids) == 0 {
		return []*domain.User{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = userKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	users := make([]*domain.User, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			// deleted between ZRANGE and MGET
			continue
		}
		rec, err := decode([]byte(s))
		if err != nil {
			return nil, err
		}
		users = append(users, rec.toDomain())
	}
	return users, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	rec, err := r.get(ctx, r.client, id)
	if err != nil {
		return nil, err
	}
	return rec.toDomain(), nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	id, err := r.client.Get(ctx, usernameIndexKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find username: %w", err)
	}
	return r.FindByID(ctx, id)
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	seq, err := r.client.Incr(ctx, userSeqKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("next user id: %w", err)
	}
	id := strconv.FormatInt(seq, 10)

	claimed, err := r.client.SetNX(ctx, usernameIndexKey(user.Username), id, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("reserve username: %w", err)
	}
	if !claimed {
		return nil, domain.ErrUserExists
	}

	rec := toRecord(user)
	rec.ID = id
	if rec.WatchList == nil {
		rec.WatchList = []domain.WatchItem{}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode user: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, userKey(id), data, 0)
		pipe.ZAdd(ctx, usersIndexKey(), redis.Z{Score: float64(seq), Member: id})
		return nil
	})
	if err != nil {
		_ = r.client.Del(ctx, usernameIndexKey(user.Username)).Err()
		return nil, fmt.Errorf("save user: %w", err)
	}
	return rec.toDomain(), nil
}

func (r *UserRepository) Update(ctx context.Context, id, username string, role domain.Role) (*domain.User, error) {
	var out userRecord
	err := r.withTx(ctx, func(tx *redis.Tx) error {
		rec, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}

		renamed := rec.Username != username
		if renamed {
			owner, err := tx.Get(ctx, usernameIndexKey(username)).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return fmt.Errorf("check username: %w", err)
			}
			if err == nil && owner != id {
				return domain.ErrUserExists
			}
		}

		oldUsername := rec.Username
		rec.Username = username
		rec.Role = role
		rec.UpdatedAt = r.now()
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode user: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, userKey(id), data, 0)
			if renamed {
				pipe.Del(ctx, usernameIndexKey(oldUsername))
				pipe.Set(ctx, usernameIndexKey(username), id, 0)
			}
			return nil
		})
		out = rec
		return err
	}, userKey(id), usernameIndexKey(username))
	if err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	return r.withTx(ctx, func(tx *redis.Tx) error {
		rec, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, userKey(id))
			pipe.Del(ctx, usernameIndexKey(rec.Username))
			pipe.ZRem(ctx, usersIndexKey(), id)
			return nil
		})
		return err
	}, userKey(id))
}

func (r *UserRepository) AppendWatchItem(ctx context.Context, id string, item domain.WatchItem) error {
	return r.withTx(ctx, func(tx *redis.Tx) error {
		rec, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}
		rec.WatchList = append(rec.WatchList, item)
		rec.UpdatedAt = r.now()
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode user: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, userKey(id), data, 0)
			return nil
		})
		return err
	}, userKey(id))
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (r *UserRepository) Close() error {
	return r.client.Close()
}

func (r *UserRepository) get(ctx context.Context, c getter, id string) (userRecord, error) {
	data, err := c.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return userRecord{}, domain.ErrUserNotFound
		}
		return userRecord{}, fmt.Errorf("get user: %w", err)
	}
	return decode(data)
}

// withTx runs fn under WATCH on keys, retrying when another client touched
// them before EXEC.
func (r *UserRepository) withTx(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("user transaction: %w", redis.TxFailedErr)
}
