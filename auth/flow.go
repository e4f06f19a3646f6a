// Package auth runs the Pinterest OAuth2 authorization code login: it builds
// the authorization URL, validates the redirect that comes back through the
// app's pdk<client_id>:// scheme and exchanges the code for an access token.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/pinterest-auth/internal/errors"
	"github.com/jrsteele09/pinterest-auth/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	// DefaultHost is the Pinterest API host serving both OAuth endpoints.
	DefaultHost = "api.pinterest.com"
	// UserAgent identifies this client to the token endpoint.
	UserAgent = "PinterestAuth (github.com/jrsteele09/pinterest-auth)"

	defaultExchangeTimeout = 30 * time.Second
	stateLength            = 32 // 32 bytes = 256 bits
)

// Endpoint returns the authorization and token endpoints served by host.
func Endpoint(host string) oauth2.Endpoint {
	return oauth2.Endpoint{
		AuthURL:   "https://" + host + "/oauth",
		TokenURL:  "https://" + host + "/v1/oauth/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
}

// attempt is the single pending login. Only the most recent one validates a
// redirect.
type attempt struct {
	ID        uuid.UUID
	State     string
	CreatedAt time.Time
}

// Flow holds the client credentials, the pending attempt and the token store
// for one Pinterest app. Use separate Flows for isolated tests.
type Flow struct {
	store           token.Store
	logger          zerolog.Logger
	endpoint        oauth2.Endpoint
	httpClient      *http.Client
	userAgent       string
	exchangeTimeout time.Duration
	newState        func() (string, error)

	mu           sync.RWMutex
	clientID     string
	clientSecret string
	scope        []Scope
	pending      *attempt
}

// Option configures a Flow.
type Option func(*Flow)

// WithCredentials sets the client id and secret issued at
// https://developers.pinterest.com/apps/.
func WithCredentials(clientID, clientSecret string) Option {
	return func(f *Flow) {
		f.clientID = clientID
		f.clientSecret = clientSecret
	}
}

// WithScope replaces the default of requesting every scope.
func WithScope(scope ...Scope) Option {
	return func(f *Flow) {
		f.scope = append([]Scope(nil), scope...)
	}
}

// WithEndpoint points the flow at different authorization and token URLs.
func WithEndpoint(endpoint oauth2.Endpoint) Option {
	return func(f *Flow) {
		f.endpoint = endpoint
	}
}

// WithHTTPClient sets the client used for the token exchange. Its Transport
// is wrapped, not replaced.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Flow) {
		if client != nil {
			f.httpClient = client
		}
	}
}

// WithExchangeTimeout bounds the token exchange request.
func WithExchangeTimeout(timeout time.Duration) Option {
	return func(f *Flow) {
		if timeout > 0 {
			f.exchangeTimeout = timeout
		}
	}
}

// WithLogger sets the logger; attempt ids are logged, secrets never.
func WithLogger(logger zerolog.Logger) Option {
	return func(f *Flow) {
		f.logger = logger
	}
}

// WithStateGenerator replaces the crypto/rand anti-forgery token source.
func WithStateGenerator(generate func() (string, error)) Option {
	return func(f *Flow) {
		if generate != nil {
			f.newState = generate
		}
	}
}

// New creates a Flow persisting tokens into store.
func New(store token.Store, opts ...Option) (*Flow, error) {
	if store == nil {
		return nil, errors.New("[auth New] token store is required")
	}
	f := &Flow{
		store:           store,
		logger:          log.Logger.With().Str("component", token.Namespace).Logger(),
		endpoint:        Endpoint(DefaultHost),
		httpClient:      http.DefaultClient,
		userAgent:       UserAgent,
		exchangeTimeout: defaultExchangeTimeout,
		newState:        generateState,
		scope:           AllScopes(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// ClientID returns the configured client id.
func (f *Flow) ClientID() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.clientID
}

// SetClientID changes the client id and with it the redirect scheme.
func (f *Flow) SetClientID(clientID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clientID = clientID
}

// ClientSecret returns the configured client secret.
func (f *Flow) ClientSecret() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.clientSecret
}

// SetClientSecret changes the secret sent with the token exchange.
func (f *Flow) SetClientSecret(clientSecret string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clientSecret = clientSecret
}

// Scope returns a copy of the requested scopes.
func (f *Flow) Scope() []Scope {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]Scope(nil), f.scope...)
}

// SetScope replaces the scopes requested by the next authorization URL.
func (f *Flow) SetScope(scope ...Scope) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scope = append([]Scope(nil), scope...)
}

// RedirectScheme is the custom URL scheme Pinterest generates for the app,
// "pdk" followed by the client id.
func (f *Flow) RedirectScheme() (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return redirectScheme(f.clientID)
}

// RedirectURI is RedirectScheme followed by "://".
func (f *Flow) RedirectURI() (string, error) {
	scheme, err := f.RedirectScheme()
	if err != nil {
		return "", err
	}
	return scheme + "://", nil
}

// Token returns the stored access token, or token.ErrNotFound when no user
// has logged in.
func (f *Flow) Token(ctx context.Context) (string, error) {
	return f.store.Get(ctx)
}

// IsLoggedIn reports whether an access token is stored. Store failures are
// logged and reported as logged out.
func (f *Flow) IsLoggedIn(ctx context.Context) bool {
	_, err := f.store.Get(ctx)
	if err != nil && !apperrors.Is(err, token.ErrNotFound) {
		f.logger.Warn().Err(err).Msg("reading access token")
	}
	return err == nil
}

func redirectScheme(clientID string) (string, error) {
	if clientID == "" {
		return "", ErrClientIDNotSet
	}
	return "pdk" + clientID, nil
}

// generateState creates a random base64url string
func generateState() (string, error) {
	b := make([]byte, stateLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
