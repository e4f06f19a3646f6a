// Package redisstore keeps the access token in Redis so several processes can
// share one login.
package redisstore

import (
	"context"
	"errors"

	apperrors "github.com/jrsteele09/pinterest-auth/internal/errors"
	"github.com/jrsteele09/pinterest-auth/token"
	"github.com/redis/go-redis/v9"
)

var _ token.Store = (*Store)(nil)

// Store is a Redis-backed token.Store.
type Store struct {
	client *redis.Client
	key    string
}

// Option configures a Store.
type Option func(*Store)

// WithKeyPrefix prepends prefix to the namespaced token key, letting several
// deployments share one database.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.key = prefix + s.key
		}
	}
}

// New wraps an existing client.
func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		key:    token.QualifiedKey(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Open parses a redis:// URL, connects and pings the server.
func Open(ctx context.Context, url string, opts ...Option) (*Store, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Join(apperrors.ErrInvalidStoreURL, err)
	}
	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, apperrors.Wrapf(err, "ping redis")
	}
	return New(client, opts...), nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Get(ctx context.Context) (string, error) {
	value, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", token.ErrNotFound
	}
	if err != nil {
		return "", apperrors.Wrapf(err, "redis get %s", s.key)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return apperrors.ErrEmptyToken
	}
	if err := s.client.Set(ctx, s.key, accessToken, 0).Err(); err != nil {
		return apperrors.Wrapf(err, "redis set %s", s.key)
	}
	return nil
}
