package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jrsteele09/pinterest-auth/internal/config"
	"github.com/jrsteele09/pinterest-auth/token"
	"github.com/jrsteele09/pinterest-auth/token/redisstore"
	tokenfakerepo "github.com/jrsteele09/pinterest-auth/token/repofake"
	"github.com/jrsteele09/pinterest-auth/token/sqlitestore"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openStore returns the token store selected by TOKEN_STORE.
func openStore(ctx context.Context, c config.StoreConfig) (token.Store, io.Closer, error) {
	switch c.GetTokenStore() {
	case config.StoreRedis:
		s, err := redisstore.Open(ctx, c.GetRedisURL())
		if err != nil {
			return nil, nil, fmt.Errorf("[pinauth openStore] redis: %w", err)
		}
		return s, s, nil
	case config.StoreMemory:
		return tokenfakerepo.NewFakeTokenStore(), nopCloser{}, nil
	default:
		s, err := sqlitestore.Open(c.GetSQLitePath())
		if err != nil {
			return nil, nil, fmt.Errorf("[pinauth openStore] sqlite: %w", err)
		}
		return s, s, nil
	}
}
