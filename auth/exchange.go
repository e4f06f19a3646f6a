package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
)

const maxTokenResponseSize = 1 << 20

// exchange trades the authorization code for an access token and stores it.
func (f *Flow) exchange(ctx context.Context, req exchangeRequest, complete Completion) {
	ctx, cancel := context.WithTimeout(ctx, f.exchangeTimeout)
	defer cancel()

	logger := f.logger.With().Str("attempt_id", req.attemptID.String()).Logger()

	capture := &capturingTransport{
		base:      f.baseTransport(),
		userAgent: f.userAgent,
	}
	client := &http.Client{
		Transport:     capture,
		CheckRedirect: f.httpClient.CheckRedirect,
		Jar:           f.httpClient.Jar,
		Timeout:       f.httpClient.Timeout,
	}

	cfg := oauth2.Config{
		ClientID:     req.clientID,
		ClientSecret: req.clientSecret,
		Endpoint:     f.endpoint,
	}
	// The request is built and sent by x/oauth2; the captured body decides
	// the outcome, so its own token decoding error is only kept for transport
	// failures.
	_, err := cfg.Exchange(context.WithValue(ctx, oauth2.HTTPClient, client), req.code)

	accessToken, failure := capture.result(err)
	if failure != nil {
		logger.Warn().Err(failure).Msg("token exchange failed")
		complete(failure)
		return
	}

	if err := f.store.Set(ctx, accessToken); err != nil {
		logger.Error().Err(err).Msg("storing access token")
		complete(&TokenPersistError{Err: err})
		return
	}

	logger.Info().Msg("user logged in")
	complete(nil)
}

func (f *Flow) baseTransport() http.RoundTripper {
	if f.httpClient.Transport != nil {
		return f.httpClient.Transport
	}
	return http.DefaultTransport
}

// capturingTransport stamps the user agent on the token request and keeps a
// copy of the response so the exchange outcome is decided from the raw body.
type capturingTransport struct {
	base      http.RoundTripper
	userAgent string

	mu   sync.Mutex
	resp *http.Response
	body []byte
}

func (t *capturingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseSize))
	resp.Body.Close()
	if err != nil {
		return nil, err
	}

	// The token endpoint answers JSON only; x/oauth2 must never fall back to
	// form decoding whatever the body was labelled with.
	resp.Header.Set("Content-Type", "application/json")
	resp.Body = io.NopCloser(bytes.NewReader(body))

	t.mu.Lock()
	t.resp = resp
	t.body = body
	t.mu.Unlock()
	return resp, nil
}

// result classifies the captured response. Without a response the exchange
// error came from the transport. A 2xx JSON object holding a string
// access_token succeeds; anything else carries the response and body.
func (t *capturingTransport) result(exchangeErr error) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case t.resp == nil:
		return "", &UnexpectedResponseError{Err: exchangeErr}
	case len(t.body) == 0:
		return "", &UnexpectedResponseError{Response: t.resp}
	}

	accessToken, ok := accessTokenFrom(t.body)
	if !ok || t.resp.StatusCode < 200 || t.resp.StatusCode > 299 {
		return "", &UnexpectedResponseError{Response: t.resp, Body: t.body}
	}
	return accessToken, nil
}

func accessTokenFrom(body []byte) (string, bool) {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", false
	}
	accessToken, ok := fields["access_token"].(string)
	if !ok || accessToken == "" {
		return "", false
	}
	return accessToken, true
}
