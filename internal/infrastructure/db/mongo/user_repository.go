package mongo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/watchdeck/user-api/internal/core/domain"
	"github.com/watchdeck/user-api/internal/core/ports"
)

const (
	collectionUsers    = "users"
	collectionCounters = "counters"
	userCounterID      = "users"
)

// UserRepository keeps one document per user with the watch list embedded.
// Updates go through single-document atomic operators.
type UserRepository struct {
	col      *mongo.Collection
	counters *mongo.Collection
	now      func() time.Time
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		col:      db.Collection(collectionUsers),
		counters: db.Collection(collectionCounters),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

var _ ports.UserRepository = (*UserRepository)(nil)

type watchItemDoc struct {
	ID      string    `bson:"id"`
	Kind    string    `bson:"kind"`
	RefID   string    `bson:"ref_id"`
	Title   string    `bson:"title,omitempty"`
	AddedAt time.Time `bson:"added_at"`
}

type userDoc struct {
	ID           string         `bson:"_id"`
	Seq          int64          `bson:"seq"`
	Username     string         `bson:"username"`
	PasswordHash string         `bson:"password_hash"`
	Role         string         `bson:"role"`
	WatchList    []watchItemDoc `bson:"watch_list"`
	CreatedAt    time.Time      `bson:"created_at"`
	UpdatedAt    time.Time      `bson:"updated_at"`
}

func toWatchItemDoc(it domain.WatchItem) watchItemDoc {
	return watchItemDoc{
		ID:      it.ID,
		Kind:    string(it.Kind),
		RefID:   it.RefID,
		Title:   it.Title,
		AddedAt: it.AddedAt,
	}
}

func toUserDoc(u *domain.User, seq int64) userDoc {
	items := make([]watchItemDoc, 0, len(u.WatchList))
	for _, it := range u.WatchList {
		items = append(items, toWatchItemDoc(it))
	}
	return userDoc{
		ID:           strconv.FormatInt(seq, 10),
		Seq:          seq,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		WatchList:    items,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (d userDoc) toDomain() *domain.User {
	items := make([]domain.WatchItem, 0, len(d.WatchList))
	for _, it := range d.WatchList {
		items = append(items, domain.WatchItem{
			ID:      it.ID,
			Kind:    domain.WatchKind(it.Kind),
			RefID:   it.RefID,
			Title:   it.Title,
			AddedAt: it.AddedAt,
		})
	}
	return &domain.User{
		ID:           d.ID,
		Username:     d.Username,
		PasswordHash: d.PasswordHash,
		Role:         domain.Role(d.Role),
		WatchList:    items,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer cur.Close(ctx)

	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	users := make([]*domain.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.toDomain())
	}
	return users, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var d userDoc
	if err := r.col.FindOne(ctx, filter).Decode(&d); err != nil {
		return nil, mapErr("find user", err)
	}
	return d.toDomain(), nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	seq, err := r.nextSeq(ctx)
	if err != nil {
		return nil, err
	}

	doc := toUserDoc(user, seq)
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, mapErr("insert user", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) nextSeq(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": userCounterID},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next user id: %w", err)
	}
	return counter.Seq, nil
}

func (r *UserRepository) Update(ctx context.Context, id, username string, role domain.Role) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var d userDoc
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"username":   username,
			"role":       string(role),
			"updated_at": r.now(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if err != nil {
		return nil, mapErr("update user", err)
	}
	return d.toDomain(), nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapErr("delete user", err)
	}
	return requireMatch(res.DeletedCount)
}

func (r *UserRepository) AppendWatchItem(ctx context.Context, id string, item domain.WatchItem) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$push": bson.M{"watch_list": toWatchItemDoc(item)},
			"$set":  bson.M{"updated_at": r.now()},
		},
	)
	if err != nil {
		return mapErr("append watch item", err)
	}
	return requireMatch(res.MatchedCount)
}

func (r *UserRepository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return r.col.Database().Client().Ping(ctx, nil)
}

// EnsureIndexes creates the unique username and the seq ordering indexes.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "seq", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

// mapErr translates driver errors into the store sentinels. A missing
// document is ErrUserNotFound and a username index violation is
// ErrUserExists; anything else is wrapped with op.
func mapErr(op string, err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return domain.ErrUserNotFound
	case mongo.IsDuplicateKeyError(err):
		return domain.ErrUserExists
	}
	return fmt.Errorf("%s: %w", op, err)
}

// requireMatch reports ErrUserNotFound when a write touched no document.
func requireMatch(n int64) error {
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
