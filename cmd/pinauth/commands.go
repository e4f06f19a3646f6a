package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/jrsteele09/pinterest-auth/auth"
	"github.com/jrsteele09/pinterest-auth/internal/config"
	"github.com/jrsteele09/pinterest-auth/token"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// errNotLoggedIn is reported by the token command when nothing is stored.
var errNotLoggedIn = errors.New("not logged in; run pinauth login")

// newFlow opens the configured store and builds a flow from the environment.
func newFlow(ctx context.Context, c config.Config) (*auth.Flow, io.Closer, error) {
	store, closer, err := openStore(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	flow, err := auth.New(store,
		auth.WithCredentials(c.GetClientID(), c.GetClientSecret()),
		auth.WithScope(auth.ParseScopes(c.GetScope())...),
		auth.WithEndpoint(auth.Endpoint(c.GetHost())),
		auth.WithExchangeTimeout(c.GetExchangeTimeout()),
		auth.WithLogger(log.Logger),
	)
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	return flow, closer, nil
}

func newLoginCmd(c config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Print the Pinterest login URL and exchange the redirect for a token",
		Long: "Prints the authorization URL to open in a browser. After approving, paste the\n" +
			"pdk<client_id>:// URL Pinterest redirected to.",
		RunE: func(cmd *cobra.Command, args []string) error {
			displayAppname(c.GetAppName())

			flow, closer, err := newFlow(cmd.Context(), c)
			if err != nil {
				return err
			}
			defer closer.Close()

			return login(cmd.Context(), flow, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

// login runs one attempt. A missing client id or secret panics inside
// AuthorizationURL; run recovers it.
func login(ctx context.Context, flow *auth.Flow, in io.Reader, out io.Writer) error {
	authURL := flow.AuthorizationURL()
	fmt.Fprintf(out, "Open this URL in your browser to log in:\n\n  %s\n\n", authURL)

	fmt.Fprint(out, "Paste the redirect URL: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read redirect: %w", err)
	}
	redirect := strings.TrimSpace(line)

	redirectURL, err := url.Parse(redirect)
	if err != nil {
		return fmt.Errorf("parse redirect: %w", err)
	}

	done := make(chan error, 1)
	if !flow.HandleRedirect(ctx, redirectURL, func(err error) { done <- err }) {
		uri, _ := flow.RedirectURI()
		return fmt.Errorf("%q is not a Pinterest login redirect (expected %s...)", redirect, uri)
	}

	select {
	case err := <-done:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	fmt.Fprintln(out, "Logged in.")
	return nil
}

func newStatusCmd(c config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether a Pinterest user is logged in",
		RunE: func(cmd *cobra.Command, args []string) error {
			flow, closer, err := newFlow(cmd.Context(), c)
			if err != nil {
				return err
			}
			defer closer.Close()

			status(cmd.Context(), flow, cmd.OutOrStdout())
			return nil
		},
	}
}

func status(ctx context.Context, flow *auth.Flow, out io.Writer) {
	if flow.IsLoggedIn(ctx) {
		fmt.Fprintln(out, "logged in")
		return
	}
	fmt.Fprintln(out, "logged out")
}

func newTokenCmd(c config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print the stored access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			flow, closer, err := newFlow(cmd.Context(), c)
			if err != nil {
				return err
			}
			defer closer.Close()

			return printToken(cmd.Context(), flow, cmd.OutOrStdout())
		},
	}
}

func printToken(ctx context.Context, flow *auth.Flow, out io.Writer) error {
	accessToken, err := flow.Token(ctx)
	if errors.Is(err, token.ErrNotFound) {
		return errNotLoggedIn
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(out, accessToken)
	return nil
}
