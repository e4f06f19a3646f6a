package config

import "path/filepath"

const (
	tokenStoreVar = "TOKEN_STORE"
	redisURLVar   = "REDIS_URL"

	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type StoreConfig interface {
	GetTokenStore() string
	GetSQLitePath() string
	GetRedisURL() string
}

type Store struct{}

var _ StoreConfig = Store{}

func (Store) GetTokenStore() string {
	switch kind := GetEnv(tokenStoreVar, StoreSQLite); kind {
	case StoreSQLite, StoreRedis, StoreMemory:
		return kind
	default:
		return StoreSQLite
	}
}

func (Store) GetSQLitePath() string {
	return filepath.Join(EnvVars{}.GetDataFolder(), "pinterestauth.db")
}

func (Store) GetRedisURL() string {
	return GetEnv(redisURLVar, "redis://localhost:6379/0")
}
