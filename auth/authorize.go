package auth

import (
	"net/url"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/pinterest-auth/internal/errors"
	"golang.org/x/oauth2"
)

// BuildAuthorizationURL returns the Pinterest login URL for a new attempt.
// It mints a fresh anti-forgery state and replaces any pending attempt, so a
// redirect belonging to an earlier URL no longer validates.
func (f *Flow) BuildAuthorizationURL() (*url.URL, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.clientID == "" {
		return nil, ErrClientIDNotSet
	}
	if f.clientSecret == "" {
		return nil, ErrClientSecretNotSet
	}
	scheme, err := redirectScheme(f.clientID)
	if err != nil {
		return nil, err
	}
	if !validScheme(scheme) {
		return nil, ErrMalformedInput
	}

	state, err := f.newState()
	if err != nil {
		return nil, apperrors.Wrapf(err, "[auth BuildAuthorizationURL] generate state")
	}

	cfg := oauth2.Config{
		ClientID: f.clientID,
		Endpoint: f.endpoint,
	}
	raw := cfg.AuthCodeURL(state,
		oauth2.SetAuthURLParam("scope", EncodeScopes(f.scope)),
		oauth2.SetAuthURLParam("redirect_uri", scheme+"://"),
	)
	authURL, err := url.Parse(raw)
	if err != nil || authURL.Scheme == "" || authURL.Host == "" {
		return nil, ErrMalformedInput
	}

	f.pending = &attempt{
		ID:        uuid.New(),
		State:     state,
		CreatedAt: time.Now(),
	}
	f.logger.Info().
		Str("attempt_id", f.pending.ID.String()).
		Str("scope", EncodeScopes(f.scope)).
		Msg("authorization url built")

	return authURL, nil
}

// AuthorizationURL is BuildAuthorizationURL for callers that treat missing
// credentials as a programmer error. It panics instead of returning an error.
func (f *Flow) AuthorizationURL() *url.URL {
	authURL, err := f.BuildAuthorizationURL()
	if err != nil {
		panic(err)
	}
	return authURL
}

// validScheme reports whether s is a URL scheme per RFC 3986:
// ALPHA *( ALPHA / DIGIT / "+" / "-" / "." )
func validScheme(s string) bool {
	for i, c := range s {
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case i > 0 && ('0' <= c && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return s != ""
}
