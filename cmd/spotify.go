package main

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/desertthunder/musive/internal/repositories"
	"github.com/desertthunder/musive/internal/server"
	"github.com/desertthunder/musive/internal/services"
	"github.com/desertthunder/musive/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

var oauthTimeout = 2 * time.Minute

// SpotifyAuth performs the OAuth2 flow and links the resulting tokens to the user.
//
// A local callback server listens on the configured redirect URI while the browser
// handles authorization.
func (r *Runner) SpotifyAuth(ctx context.Context, cmd *cli.Command) error {
	config, db, err := r.openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	user, err := r.userByEmail(db, cmd)
	if err != nil {
		return err
	}

	spotifyService, err := r.spotifyService(config)
	if err != nil {
		return err
	}
	if spotifyService == nil {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in %s", shared.ErrMissingCredentials, cmd.String("config"))
	}

	token, err := r.doOAuth(ctx, config, spotifyService)
	if err != nil {
		return err
	}

	if err := repositories.NewCredentialRepository(db).Save(services.CredentialFromToken(user.ID, token)); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}

	r.logger.Info("spotify account linked", "user", user.ID, "expires", token.Expiry)
	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Spotify linked to %s\n\n", user.Email)
	r.writePlain("You can now use: musive library import --email %s\n", user.Email)
	return nil
}

// SpotifyStatus prints the Spotify profile linked to the user.
func (r *Runner) SpotifyStatus(ctx context.Context, cmd *cli.Command) error {
	config, db, err := r.openDatabase(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	user, err := r.userByEmail(db, cmd)
	if err != nil {
		return err
	}

	source, err := r.trackSource(config, db)
	if err != nil {
		return err
	}

	client, err := source.Client(ctx, user.ID)
	if err != nil {
		return err
	}

	profile, err := services.WithRetry(ctx, retryPolicy(config), client.UserProfile)
	if err != nil {
		return err
	}

	r.writePlainHeader("Spotify: " + user.Email)
	r.writePlain("Account: %s (%s)\n", profile.DisplayName, profile.ID)
	r.writePlain("Product: %s\n", profile.Product)
	if profile.Premium() {
		r.writePlain("Playback: full tracks on Spotify Connect\n")
	} else {
		r.writePlain("Playback: preview clips only\n")
	}
	return nil
}

// callbackTarget splits the redirect URI into the listen address and the callback path.
func callbackTarget(redirectURI string) (addr, path string, err error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", "", fmt.Errorf("%w: redirect_uri: %v", shared.ErrInvalidConfig, err)
	}
	if u.Port() == "" {
		return "", "", fmt.Errorf("%w: redirect_uri %q must include a port", shared.ErrInvalidConfig, redirectURI)
	}
	return u.Host, u.Path, nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, config *shared.Config, srv *services.SpotifyService) (*oauth2.Token, error) {
	addr, path, err := callbackTarget(config.Credentials.Spotify.RedirectURI)
	if err != nil {
		return nil, err
	}

	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	oauthHandler := server.NewOAuthHandler(srv, state, path)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	serveCtx, stop := context.WithCancel(ctx)
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Serve(serveCtx, addr, router, shared.WithLogger(r.logger, "component", "oauth"))
	}()
	defer func() {
		stop()
		<-serverErrors
	}()

	authURL := srv.GetAuthURL(state)
	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := r.openBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", oauthTimeout)

	timeout := time.NewTimer(oauthTimeout)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		serverErrors <- err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("callback server stopped: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization not completed within %s", shared.ErrTimeout, oauthTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}
	return result.Token, nil
}
