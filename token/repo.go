// Package token holds the durable slot the login flow writes the Pinterest
// access token into.
package token

import (
	"context"

	apperrors "github.com/jrsteele09/pinterest-auth/internal/errors"
)

const (
	// Namespace scopes every key written by the login flow.
	Namespace = "pinterestauth"
	// Key is the name of the access token slot within Namespace.
	Key = "token"
)

// ErrNotFound is returned by Get when no access token has been stored.
var ErrNotFound = apperrors.ErrNotFound

// Store is a durable string slot for the access token. Implementations must be
// safe for concurrent use and Set must replace the value atomically.
type Store interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, accessToken string) error
}

// QualifiedKey returns the namespaced key used by key-value backends.
func QualifiedKey() string {
	return Namespace + ":" + Key
}
