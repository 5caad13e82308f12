// Copyright IBM Corp. 2020, 2025
// SPDX-License-Identifier: MPL-2.0

// webapp is a small web app whose /profile page requires logging in with an
// OIDC provider.
//
// Configure it with a YAML file (-config) and/or CAPGATE_* environment
// variables, for example:
//
//	CAPGATE_ISSUER=https://your-provider.example.com \
//	CAPGATE_CLIENT_ID=... CAPGATE_CLIENT_SECRET=... \
//	CAPGATE_REDIRECT_URL=http://127.0.0.1:3000/callback \
//	CAPGATE_SESSION_SECRET=$(openssl rand -hex 32) \
//	go run .
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/hashicorp/capgate/gate"
	"github.com/hashicorp/capgate/oidc"
	"github.com/hashicorp/capgate/session"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := LoadConfig(*configPath, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "webapp",
		Level: hclog.LevelFromString(cfg.LogLevel),
	})
	if err := run(cfg, logger); err != nil {
		logger.Error("exiting", "error", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger hclog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := newProvider(ctx, cfg)
	if err != nil {
		return err
	}
	defer p.Done()

	store, err := session.NewCookieStore([]byte(cfg.SessionSecret), session.WithSecureCookies(cfg.SecureCookies))
	if err != nil {
		return err
	}
	g, err := gate.New(p, store,
		gate.WithLoginPath(cfg.LoginPath),
		gate.WithLandingPath(cfg.LandingPath),
		gate.WithTrustProxyHeaders(cfg.TrustProxyHeaders),
		gate.WithLogger(logger.Named("gate")),
	)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           newRouter(g),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("listening", "addr", cfg.ListenAddr, "login_path", g.LoginPath(), "callback_path", g.CallbackPath())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newProvider discovers the provider.  The app doesn't start without it.
func newProvider(ctx context.Context, cfg Config) (*oidc.Provider, error) {
	opts := []oidc.Option{
		oidc.WithScopes(cfg.Scopes...),
		oidc.WithTimeout(cfg.ProviderTimeout),
	}
	if cfg.ProviderCAFile != "" {
		ca, err := os.ReadFile(cfg.ProviderCAFile)
		if err != nil {
			return nil, fmt.Errorf("read provider CA: %w", err)
		}
		opts = append(opts, oidc.WithProviderCA(string(ca)))
	}
	pc, err := oidc.NewConfig(cfg.Issuer, cfg.ClientID, oidc.ClientSecret(cfg.ClientSecret), cfg.RedirectURL, opts...)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.ProviderTimeout)
	defer cancel()
	return oidc.NewProvider(ctx, pc)
}
