// Package redisstore stores users in Redis: one hash per user, a sorted set of ids
// as the listing index and an INCR counter for id assignment.
package redisstore

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hongminglow/user-manager/internal/models"
	"github.com/hongminglow/user-manager/internal/storage"
)

// Ensure Store satisfies the storage.UserStore interface at compile time.
var _ storage.UserStore = (*Store)(nil)

const defaultPrefix = "users"

var updateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], 'name', ARGV[1], 'email', ARGV[2])
return 1
`)

// Store provides Redis-backed persistence for users.
type Store struct {
	client *redis.Client
	prefix string
}

// NewUserStore connects to addr and verifies the connection.
func NewUserStore(ctx context.Context, addr string) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewUserStoreFromClient(client, defaultPrefix), nil
}

// NewUserStoreFromClient wraps an existing client. Keys are namespaced by prefix.
func NewUserStoreFromClient(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) seqKey() string   { return s.prefix + ":seq" }
func (s *Store) indexKey() string { return s.prefix + ":index" }
func (s *Store) userKey(id int64) string {
	return s.prefix + ":" + strconv.FormatInt(id, 10)
}

// CreateUser assigns the next id and writes the hash and index entry in one transaction.
func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	id, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return models.User{}, fmt.Errorf("assign user id: %w", err)
	}
	user.ID = id

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.userKey(id), "name", user.Name, "email", user.Email)
		pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(id), Member: id})
		return nil
	})
	if err != nil {
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// GetUser fetches a user by id.
func (s *Store) GetUser(ctx context.Context, id int64) (models.User, error) {
	fields, err := s.client.HGetAll(ctx, s.userKey(id)).Result()
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	if len(fields) == 0 {
		return models.User{}, storage.ErrNotFound
	}
	return fromHash(id, fields), nil
}

// ListUsers walks the id index and loads each hash in a single pipeline.
func (s *Store) ListUsers(ctx context.Context, offset, limit int64) ([]models.User, error) {
	users := []models.User{}
	if limit <= 0 {
		return users, nil
	}
	stop := int64(-1)
	if limit <= math.MaxInt64-offset {
		stop = offset + limit - 1
	}

	members, err := s.client.ZRange(ctx, s.indexKey(), offset, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	if len(members) == 0 {
		return users, nil
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse user id %q: %w", m, err)
		}
		ids = append(ids, id)
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, s.userKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	for i, cmd := range cmds {
		fields := cmd.Val()
		// Deleted between ZRANGE and HGETALL.
		if len(fields) == 0 {
			continue
		}
		users = append(users, fromHash(ids[i], fields))
	}
	return users, nil
}

// UpdateUser overwrites the hash only if it already exists.
func (s *Store) UpdateUser(ctx context.Context, user models.User) (models.User, error) {
	updated, err := updateScript.Run(ctx, s.client, []string{s.userKey(user.ID)}, user.Name, user.Email).Int()
	if err != nil {
		return models.User{}, fmt.Errorf("update user: %w", err)
	}
	if updated == 0 {
		return models.User{}, storage.ErrNotFound
	}
	return user, nil
}

// DeleteUser removes the hash and index entry in one transaction.
func (s *Store) DeleteUser(ctx context.Context, id int64) (bool, error) {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.userKey(id))
		pipe.ZRem(ctx, s.indexKey(), id)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete user: %w", err)
	}
	return del.Val() > 0, nil
}

func fromHash(id int64, fields map[string]string) models.User {
	return models.User{ID: id, Name: fields["name"], Email: fields["email"]}
}
