package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"

	"vozruta/internal/cli"
	"vozruta/internal/config"
	"vozruta/internal/log"
	gsheet "vozruta/internal/sheets/google"
)

// vozruta-oauth-init runs the installed-app consent flow once and saves the
// refresh token the worker uses to write to a personal spreadsheet.
func main() {
	cli.LoadEnvFile()
	logger := cli.BootstrapLogger(log.ComponentSheets)
	cfg := config.Load()

	ctx, stop := cli.GracefulShutdown(logger)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("OAuth initialization failed", log.FieldError, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	oauthCfg, err := gsheet.LoadOAuthClient(gsheet.OAuthConfig{
		ClientJSON: cfg.GoogleOAuthClientJSON,
		ClientFile: cfg.GoogleOAuthClientFile,
	})
	if err != nil {
		return err
	}

	// The OAuth client must list this URI among its authorized redirects.
	oauthCfg.RedirectURL = "http://localhost:" + cfg.OAuthRedirectPort + "/callback"

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if errStr := r.URL.Query().Get("error"); errStr != "" {
			http.Error(w, "OAuth error: "+errStr, http.StatusBadRequest)
			trySend(errCh, fmt.Errorf("authorization denied: %s", errStr))
			return
		}
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
		trySend(codeCh, r.URL.Query().Get("code"))
	})
	srv := &http.Server{Addr: ":" + cfg.OAuthRedirectPort, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			trySend(errCh, err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("Open this URL to authorize:\n%s\n", oauthCfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline))

	select {
	case code := <-codeCh:
		tok, err := oauthCfg.Exchange(ctx, code)
		if err != nil {
			return fmt.Errorf("token exchange: %w", err)
		}
		outFile := cfg.GoogleOAuthTokenFile
		if outFile == "" {
			outFile = "token.json"
		}
		if err := gsheet.SaveOAuthToken(outFile, tok); err != nil {
			return err
		}
		logger.Info("Saved OAuth token", "path", outFile)
		return nil
	case err := <-errCh:
		return err
	case <-time.After(5 * time.Minute):
		return errors.New("authorization timed out")
	case <-ctx.Done():
		return errors.New("interrupted")
	}
}

// trySend drops v when an earlier value is still pending.
func trySend[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
	}
}
