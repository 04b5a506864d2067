package main

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"notepipe/internal/auth"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize OneDrive access and print a refresh token",
	Long: `Starts a local callback server on graph.redirect_url, prints the Microsoft sign-in
URL and, once access is granted, prints the refresh token to store as
NOTEPIPE_GRAPH_REFRESH_TOKEN.`,
	RunE: runLogin,
}

func runLogin(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Graph.ClientID == "" {
		return fmt.Errorf("graph.client_id is required for login")
	}
	redirect, err := url.Parse(cfg.Graph.RedirectURL)
	if err != nil || redirect.Host == "" {
		return fmt.Errorf("invalid graph.redirect_url %q", cfg.Graph.RedirectURL)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", redirect.Host, err)
	}

	out := cmd.OutOrStdout()
	flow := auth.NewLoginFlow(auth.GraphOAuthConfig(cfg.Graph), log.Named("login"))
	tok, err := flow.Run(ctx, ln, func(u string) {
		fmt.Fprintf(out, "Open this URL in a browser and sign in:\n\n  %s\n\n", u)
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Refresh token:\n\n%s\n", tok.RefreshToken)
	return nil
}
