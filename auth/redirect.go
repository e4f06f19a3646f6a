package auth

import (
	"context"
	"crypto/subtle"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Completion receives the outcome of a redirect this flow took ownership of.
// A nil error means the access token was stored and Token now returns it.
type Completion func(err error)

type exchangeRequest struct {
	attemptID    uuid.UUID
	clientID     string
	clientSecret string
	code         string
}

// HandleRedirect inspects a URL delivered to the app. It returns false, and
// never calls completion, when the URL does not use this flow's redirect
// scheme. Otherwise it returns true and completion is called exactly once:
// synchronously when the redirect is rejected, or from a new goroutine once
// the token exchange finishes. ctx bounds the exchange together with the
// configured exchange timeout, so it must outlive this call.
func (f *Flow) HandleRedirect(ctx context.Context, redirect *url.URL, completion Completion) bool {
	if redirect == nil {
		return false
	}
	scheme, err := f.RedirectScheme()
	if err != nil || !strings.EqualFold(redirect.Scheme, scheme) {
		return false
	}

	complete := completeOnce(completion)

	req, err := f.validateRedirect(redirect)
	if err != nil {
		f.logger.Warn().Err(err).Msg("redirect rejected")
		complete(err)
		return true
	}

	go f.exchange(ctx, req, complete)
	return true
}

// validateRedirect checks the redirect parameters against the pending attempt
// and the current credentials. A matching attempt is consumed.
func (f *Flow) validateRedirect(redirect *url.URL) (exchangeRequest, error) {
	query, err := url.ParseQuery(redirect.RawQuery)
	if err != nil {
		return exchangeRequest{}, &UnexpectedRedirectError{URL: redirect}
	}
	states, hasState := query["state"]
	codes, hasCode := query["code"]
	if !hasState || !hasCode || len(states) == 0 || len(codes) == 0 || codes[0] == "" {
		if providerErr := query.Get("error"); providerErr != "" {
			f.logger.Info().
				Str("error", providerErr).
				Str("error_description", query.Get("error_description")).
				Msg("provider returned an error instead of a code")
		}
		return exchangeRequest{}, &UnexpectedRedirectError{URL: redirect}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pending == nil || subtle.ConstantTimeCompare([]byte(states[0]), []byte(f.pending.State)) != 1 {
		return exchangeRequest{}, ErrUnexpectedState
	}
	if f.clientID == "" || f.clientSecret == "" {
		return exchangeRequest{}, ErrContextLost
	}

	req := exchangeRequest{
		attemptID:    f.pending.ID,
		clientID:     f.clientID,
		clientSecret: f.clientSecret,
		code:         codes[0],
	}
	f.pending = nil
	return req, nil
}

func completeOnce(completion Completion) Completion {
	var once sync.Once
	return func(err error) {
		once.Do(func() {
			if completion != nil {
				completion(err)
			}
		})
	}
}
