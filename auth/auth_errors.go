package auth

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"
)

const errorPrefix = "pinterestauth: "

// Configuration errors. ErrClientIDNotSet, ErrClientSecretNotSet and
// ErrMalformedInput are programmer errors: AuthorizationURL panics with them.
var (
	ErrClientIDNotSet     = errors.New(errorPrefix + "client id not set; copy it from https://developers.pinterest.com/apps/")
	ErrClientSecretNotSet = errors.New(errorPrefix + "client secret not set; copy it from https://developers.pinterest.com/apps/")
	ErrMalformedInput     = errors.New(errorPrefix + "client id is malformed and no valid authorization url could be built")
)

// Redirect errors, delivered through Completion.
var (
	ErrContextLost        = errors.New(errorPrefix + "client id or secret was cleared before the redirect arrived; ask the user to log in again")
	ErrUnexpectedState    = errors.New(errorPrefix + "redirect state does not match the pending login attempt")
	ErrUnexpectedRedirect = errors.New(errorPrefix + "redirect is missing state or code")
	ErrUnexpectedResponse = errors.New(errorPrefix + "token endpoint responded in an unexpected format")
	ErrTokenNotPersisted  = errors.New(errorPrefix + "access token could not be stored")
)

// UnexpectedRedirectError carries the redirect that could not be parsed.
type UnexpectedRedirectError struct {
	URL *url.URL
}

func (e *UnexpectedRedirectError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnexpectedRedirect, e.URL.Redacted())
}

func (e *UnexpectedRedirectError) Is(target error) bool {
	return target == ErrUnexpectedRedirect
}

// UnexpectedResponseError carries whatever the token exchange produced. Err is
// set for transport failures (including timeouts), Body when the endpoint
// answered without a usable access token.
type UnexpectedResponseError struct {
	Response *http.Response
	Body     []byte
	Err      error
}

func (e *UnexpectedResponseError) Error() string {
	var b strings.Builder
	b.WriteString(ErrUnexpectedResponse.Error())
	switch {
	case e.Err != nil:
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	case len(e.Body) > 0:
		if e.Response != nil {
			fmt.Fprintf(&b, ": status %d", e.Response.StatusCode)
		}
		b.WriteString(": ")
		b.WriteString(printableBody(e.Body))
	case e.Response != nil:
		fmt.Fprintf(&b, ": status %d with empty body", e.Response.StatusCode)
	default:
		b.WriteString(": no further information was available")
	}
	return b.String()
}

func (e *UnexpectedResponseError) Is(target error) bool {
	return target == ErrUnexpectedResponse
}

func (e *UnexpectedResponseError) Unwrap() error {
	return e.Err
}

// TokenPersistError wraps the store failure after a successful exchange.
type TokenPersistError struct {
	Err error
}

func (e *TokenPersistError) Error() string {
	return fmt.Sprintf("%s: %v", ErrTokenNotPersisted, e.Err)
}

func (e *TokenPersistError) Is(target error) bool {
	return target == ErrTokenNotPersisted
}

func (e *TokenPersistError) Unwrap() error {
	return e.Err
}

const maxBodyInError = 512

func printableBody(body []byte) string {
	if !utf8.Valid(body) {
		return fmt.Sprintf("%d bytes of binary data", len(body))
	}
	s := strings.TrimSpace(string(body))
	if len(s) > maxBodyInError {
		s = s[:maxBodyInError] + "..."
	}
	return s
}
