package config

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	clientIDVar        = "PINTEREST_CLIENT_ID"
	clientSecretVar    = "PINTEREST_CLIENT_SECRET"
	scopeVar           = "PINTEREST_SCOPE"
	hostVar            = "PINTEREST_HOST"
	exchangeTimeoutVar = "PINTEREST_EXCHANGE_TIMEOUT"

	defaultHost            = "api.pinterest.com"
	defaultExchangeTimeout = 30 * time.Second
)

type PinterestConfig interface {
	GetClientID() string
	GetClientSecret() string
	GetScope() []string
	GetHost() string
	GetExchangeTimeout() time.Duration
}

type Pinterest struct{}

var _ PinterestConfig = Pinterest{}

func (Pinterest) GetClientID() string {
	return GetEnv(clientIDVar, "")
}

func (Pinterest) GetClientSecret() string {
	return GetEnv(clientSecretVar, "")
}

// GetScope returns the comma separated scope list, or nil when every scope
// should be requested.
func (Pinterest) GetScope() []string {
	raw := GetEnv(scopeVar, "")
	if raw == "" {
		return nil
	}
	var scopes []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}

func (Pinterest) GetHost() string {
	return GetEnv(hostVar, defaultHost)
}

func (Pinterest) GetExchangeTimeout() time.Duration {
	raw := GetEnv(exchangeTimeoutVar, "")
	if raw == "" {
		return defaultExchangeTimeout
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Warn().Str("value", raw).Msgf("invalid %s, using %s", exchangeTimeoutVar, defaultExchangeTimeout)
		return defaultExchangeTimeout
	}
	return d
}
