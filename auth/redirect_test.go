package auth_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/jrsteele09/pinterest-auth/auth"
	"github.com/stretchr/testify/require"
)

func TestHandleRedirectRoundTrip(t *testing.T) {
	ctx := context.Background()
	ts := newTokenServer(t, jsonResponse(http.StatusOK, `{"access_token":"abc123","token_type":"bearer"}`))
	f := setupTestFixture(t, ts.URL+"/v1/oauth/token")

	state := f.buildState(t)
	owned, err := f.handle(t, matchingRedirect(t, state))
	require.True(t, owned)
	require.NoError(t, err)

	require.True(t, f.flow.IsLoggedIn(ctx))
	got, err := f.flow.Token(ctx)
	require.NoError(t, err)
	require.Equal(t, "abc123", got)

	req := <-ts.requests
	form := <-ts.forms
	require.Equal(t, http.MethodPost, req.Method)
	require.Equal(t, "/v1/oauth/token", req.URL.Path)
	require.Equal(t, auth.UserAgent, req.Header.Get("User-Agent"))
	require.Equal(t, "authorization_code", form.Get("grant_type"))
	require.Equal(t, testClientID, form.Get("client_id"))
	require.Equal(t, testClientSecret, form.Get("client_secret"))
	require.Equal(t, testCode, form.Get("code"))
}

func TestHandleRedirectAcceptsJSONLabelledAsText(t *testing.T) {
	ts := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, `{"access_token":"abc123"}`)
	})
	f := setupTestFixture(t, ts.URL)

	_, err := f.handle(t, matchingRedirect(t, f.buildState(t)))
	require.NoError(t, err)
	require.Equal(t, 1, f.store.Writes())
}

func TestHandleRedirectForeignScheme(t *testing.T) {
	f := setupTestFixture(t, "")
	state := f.buildState(t)

	for _, raw := range []string{
		"pdk9999://?state=" + state + "&code=x",
		"https://example.com/callback?state=" + state + "&code=x",
		"fb4242://authorize",
	} {
		called := false
		owned := f.flow.HandleRedirect(context.Background(), redirectURL(t, raw), func(error) {
			called = true
		})
		require.False(t, owned, raw)
		require.False(t, called, raw)
	}

	require.False(t, f.flow.HandleRedirect(context.Background(), nil, nil))
}

func TestHandleRedirectWithoutClientIDIsNotOwned(t *testing.T) {
	f := setupTestFixture(t, "")
	state := f.buildState(t)
	f.flow.SetClientID("")

	called := false
	owned := f.flow.HandleRedirect(context.Background(), matchingRedirect(t, state), func(error) {
		called = true
	})
	require.False(t, owned)
	require.False(t, called)
}

func TestHandleRedirectMissingParameters(t *testing.T) {
	f := setupTestFixture(t, "")
	state := f.buildState(t)

	for _, raw := range []string{
		"pdk4242://",
		"pdk4242://?code=" + testCode,
		"pdk4242://?state=" + state,
		"pdk4242://?error=access_denied&error_description=denied&state=" + state,
		"pdk4242://?state=%zz&code=x",
		"PDK4242://?state=" + state,
	} {
		redirect := redirectURL(t, raw)
		owned, err := f.handle(t, redirect)
		require.True(t, owned, raw)
		require.ErrorIs(t, err, auth.ErrUnexpectedRedirect, raw)

		var redirectErr *auth.UnexpectedRedirectError
		require.True(t, errors.As(err, &redirectErr), raw)
		require.Same(t, redirect, redirectErr.URL)
	}
	require.False(t, f.flow.IsLoggedIn(context.Background()))
}

func TestHandleRedirectStateMismatch(t *testing.T) {
	f := setupTestFixture(t, "")
	f.buildState(t)

	_, err := f.handle(t, matchingRedirect(t, "forged-state"))
	require.ErrorIs(t, err, auth.ErrUnexpectedState)
}

func TestHandleRedirectWithoutPendingAttempt(t *testing.T) {
	f := setupTestFixture(t, "")

	_, err := f.handle(t, matchingRedirect(t, ""))
	require.ErrorIs(t, err, auth.ErrUnexpectedState)
}

func TestHandleRedirectOnlyLatestAttemptValidates(t *testing.T) {
	ts := newTokenServer(t, jsonResponse(http.StatusOK, `{"access_token":"abc123"}`))
	f := setupTestFixture(t, ts.URL)

	first := f.buildState(t)
	second := f.buildState(t)
	require.NotEqual(t, first, second)

	_, err := f.handle(t, matchingRedirect(t, first))
	require.ErrorIs(t, err, auth.ErrUnexpectedState)

	_, err = f.handle(t, matchingRedirect(t, second))
	require.NoError(t, err)
}

func TestHandleRedirectStateIsSingleUse(t *testing.T) {
	ts := newTokenServer(t, jsonResponse(http.StatusOK, `{"access_token":"abc123"}`))
	f := setupTestFixture(t, ts.URL)
	state := f.buildState(t)

	_, err := f.handle(t, matchingRedirect(t, state))
	require.NoError(t, err)

	_, err = f.handle(t, matchingRedirect(t, state))
	require.ErrorIs(t, err, auth.ErrUnexpectedState)
	require.Equal(t, 1, f.store.Writes())
}

func TestHandleRedirectContextLost(t *testing.T) {
	f := setupTestFixture(t, "")
	state := f.buildState(t)
	f.flow.SetClientSecret("")

	owned, err := f.handle(t, matchingRedirect(t, state))
	require.True(t, owned)
	require.ErrorIs(t, err, auth.ErrContextLost)
}

func TestHandleRedirectUnexpectedBody(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		status  int
	}{
		{"non json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = io.WriteString(w, "<html>maintenance</html>")
		}, http.StatusOK},
		{"json without access token", jsonResponse(http.StatusOK, `{"message":"nope"}`), http.StatusOK},
		{"access token not a string", jsonResponse(http.StatusOK, `{"access_token":42}`), http.StatusOK},
		{"provider error", jsonResponse(http.StatusUnauthorized, `{"error":"invalid_grant"}`), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			ts := newTokenServer(t, tt.handler)
			f := setupTestFixture(t, ts.URL)
			require.NoError(t, f.store.Set(ctx, "previous"))

			owned, err := f.handle(t, matchingRedirect(t, f.buildState(t)))
			require.True(t, owned)
			require.ErrorIs(t, err, auth.ErrUnexpectedResponse)

			var respErr *auth.UnexpectedResponseError
			require.True(t, errors.As(err, &respErr))
			require.NotNil(t, respErr.Response)
			require.Equal(t, tt.status, respErr.Response.StatusCode)
			require.NotEmpty(t, respErr.Body)
			require.NoError(t, respErr.Err)

			got, err := f.flow.Token(ctx)
			require.NoError(t, err)
			require.Equal(t, "previous", got)
		})
	}
}

func TestHandleRedirectEmptyBody(t *testing.T) {
	ts := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
	})
	f := setupTestFixture(t, ts.URL)

	_, err := f.handle(t, matchingRedirect(t, f.buildState(t)))

	var respErr *auth.UnexpectedResponseError
	require.True(t, errors.As(err, &respErr))
	require.NotNil(t, respErr.Response)
	require.Nil(t, respErr.Body)
	require.NoError(t, respErr.Err)
	require.Contains(t, err.Error(), "empty body")
}

func TestHandleRedirectTransportError(t *testing.T) {
	ts := newTokenServer(t, jsonResponse(http.StatusOK, `{"access_token":"abc123"}`))
	tokenURL := ts.URL
	ts.Close()
	f := setupTestFixture(t, tokenURL)

	owned, err := f.handle(t, matchingRedirect(t, f.buildState(t)))
	require.True(t, owned)
	require.ErrorIs(t, err, auth.ErrUnexpectedResponse)

	var respErr *auth.UnexpectedResponseError
	require.True(t, errors.As(err, &respErr))
	require.Nil(t, respErr.Response)
	require.Nil(t, respErr.Body)
	require.Error(t, respErr.Err)

	require.False(t, f.flow.IsLoggedIn(context.Background()))
	require.Zero(t, f.store.Writes())
}

func TestHandleRedirectExchangeTimeout(t *testing.T) {
	ts := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(completionWait):
		}
	})
	f := setupTestFixture(t, ts.URL, auth.WithExchangeTimeout(50*time.Millisecond))

	_, err := f.handle(t, matchingRedirect(t, f.buildState(t)))
	require.ErrorIs(t, err, auth.ErrUnexpectedResponse)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.False(t, f.flow.IsLoggedIn(context.Background()))
}

func TestHandleRedirectPersistFailure(t *testing.T) {
	ts := newTokenServer(t, jsonResponse(http.StatusOK, `{"access_token":"abc123"}`))
	f := setupTestFixture(t, ts.URL)
	boom := errors.New("disk full")
	f.store.SetErr = boom

	_, err := f.handle(t, matchingRedirect(t, f.buildState(t)))
	require.ErrorIs(t, err, auth.ErrTokenNotPersisted)
	require.ErrorIs(t, err, boom)
	require.False(t, f.flow.IsLoggedIn(context.Background()))
}

func TestHandleRedirectReturnsBeforeExchangeCompletes(t *testing.T) {
	release := make(chan struct{})
	ts := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		jsonResponse(http.StatusOK, `{"access_token":"abc123"}`)(w, r)
	})
	f := setupTestFixture(t, ts.URL)

	done := make(chan error, 1)
	owned := f.flow.HandleRedirect(context.Background(), matchingRedirect(t, f.buildState(t)), func(err error) {
		done <- err
	})
	require.True(t, owned)
	require.Empty(t, done)

	close(release)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(completionWait):
		t.Fatal("completion was not called")
	}
}

func TestHandleRedirectNilCompletion(t *testing.T) {
	f := setupTestFixture(t, "")
	f.buildState(t)

	require.NotPanics(t, func() {
		require.True(t, f.flow.HandleRedirect(context.Background(), redirectURL(t, "pdk4242://"), nil))
	})
}

func TestHandleRedirectRejectsFormEncodedBody(t *testing.T) {
	for _, contentType := range []string{"text/plain", "application/x-www-form-urlencoded"} {
		t.Run(contentType, func(t *testing.T) {
			ts := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", contentType)
				_, _ = io.WriteString(w, "access_token=abc123&token_type=bearer")
			})
			f := setupTestFixture(t, ts.URL)

			_, err := f.handle(t, matchingRedirect(t, f.buildState(t)))
			require.ErrorIs(t, err, auth.ErrUnexpectedResponse)

			var respErr *auth.UnexpectedResponseError
			require.True(t, errors.As(err, &respErr))
			require.Equal(t, "access_token=abc123&token_type=bearer", string(respErr.Body))
			require.False(t, f.flow.IsLoggedIn(context.Background()))
			require.Zero(t, f.store.Writes())
		})
	}
}

// Only access_token matters; other fields are not type checked.
func TestHandleRedirectIgnoresLooselyTypedFields(t *testing.T) {
	for _, body := range []string{
		`{"access_token":"abc123","expires_in":"never"}`,
		`{"access_token":"abc123","expires_in":1.5}`,
		`{"access_token":"abc123","scope":["read_public"],"token_type":null}`,
	} {
		t.Run(body, func(t *testing.T) {
			ctx := context.Background()
			ts := newTokenServer(t, jsonResponse(http.StatusOK, body))
			f := setupTestFixture(t, ts.URL)

			_, err := f.handle(t, matchingRedirect(t, f.buildState(t)))
			require.NoError(t, err)

			got, err := f.flow.Token(ctx)
			require.NoError(t, err)
			require.Equal(t, "abc123", got)
		})
	}
}

// A token in a non-2xx body is not trusted.
func TestHandleRedirectRejectsTokenWithErrorStatus(t *testing.T) {
	ts := newTokenServer(t, jsonResponse(http.StatusBadRequest, `{"access_token":"x"}`))
	f := setupTestFixture(t, ts.URL)

	_, err := f.handle(t, matchingRedirect(t, f.buildState(t)))

	var respErr *auth.UnexpectedResponseError
	require.True(t, errors.As(err, &respErr))
	require.Equal(t, http.StatusBadRequest, respErr.Response.StatusCode)
	require.JSONEq(t, `{"access_token":"x"}`, string(respErr.Body))
	require.False(t, f.flow.IsLoggedIn(context.Background()))
}

func TestHandleRedirectEmptyCode(t *testing.T) {
	for _, query := range []string{"code", "code="} {
		t.Run(query, func(t *testing.T) {
			ts := newTokenServer(t, jsonResponse(http.StatusOK, `{"access_token":"abc123"}`))
			f := setupTestFixture(t, ts.URL)
			state := f.buildState(t)

			_, err := f.handle(t, redirectURL(t, "pdk4242://?state="+state+"&"+query))
			require.ErrorIs(t, err, auth.ErrUnexpectedRedirect)
			require.Zero(t, f.store.Writes())
			require.Empty(t, ts.requests)
		})
	}
}
