package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"classdrop/internal/config"
)

func newLoginCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var passwordStdin bool
	var password string

	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and save a session token",
		Args:  requireExactlyArgs(1, "username is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if passwordStdin {
				passwordBytes, err := io.ReadAll(os.Stdin)
				if err != nil {
					return err
				}
				password = strings.TrimSpace(string(passwordBytes))
			}
			if password == "" {
				return fmt.Errorf("provide a password via --password or --password-stdin")
			}

			return withApp(cfg, func(a *app) error {
				result, err := a.auth.Authenticate(cmd.Context(), args[0], password, time.Now().UTC())
				if err != nil {
					return err
				}
				if err := writeSessionToken(cfg.SessionFile, result.Token); err != nil {
					return fmt.Errorf("save session: %w", err)
				}

				if *jsonOutput {
					return writeJSON(map[string]any{
						"username":   result.Session.Username,
						"role":       result.Session.Role,
						"expires_at": result.ExpiresAt.UTC().Format(time.RFC3339),
					})
				}
				return writePlain("logged in as %s (%s)\n", result.Session.Username, result.Session.Role)
			})
		},
	}

	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read password from stdin")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func newLogoutCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cfg, func(a *app) error {
				token, err := readSessionToken(cfg.SessionFile)
				if err != nil {
					return err
				}
				if token == "" {
					return writePlain("not logged in\n")
				}
				if err := a.auth.Logout(cmd.Context(), token, time.Now().UTC()); err != nil {
					// The local token is cleared either way.
					_ = clearSessionToken(cfg.SessionFile)
					return err
				}
				if err := clearSessionToken(cfg.SessionFile); err != nil {
					return err
				}
				return writePlain("logged out\n")
			})
		},
	}
}

func newWhoamiCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the active session identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cfg, func(a *app) error {
				session, _, err := a.currentSession(cmd.Context())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(map[string]any{"username": session.Username, "role": session.Role})
				}
				return writePlain("%s (%s)\n", session.Username, session.Role)
			})
		},
	}
}
