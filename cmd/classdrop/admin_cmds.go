package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	internalauth "classdrop/internal/auth"
	"classdrop/internal/config"
	"classdrop/internal/credstore"
)

func newLogCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var archived bool

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the audit log (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cfg, func(a *app) error {
				session, _, err := a.currentSession(cmd.Context())
				if err != nil {
					return err
				}
				now := time.Now().UTC()
				read := a.audit.Entries
				if archived {
					read = a.audit.ArchivedEntries
				}
				entries, err := read(cmd.Context(), session, now)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(entries)
				}
				return writeAuditEntries(entries)
			})
		},
	}

	cmd.Flags().BoolVar(&archived, "archived", false, "show archived entries instead of the live log")
	cmd.AddCommand(newLogArchiveCmd(cfg, jsonOutput))
	return cmd
}

func newLogArchiveCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "archive",
		Short: "Rotate the live audit log into the archive (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cfg, func(a *app) error {
				session, _, err := a.currentSession(cmd.Context())
				if err != nil {
					return err
				}
				moved, err := a.audit.Archive(cmd.Context(), session, time.Now().UTC())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(map[string]any{"moved": moved})
				}
				return writePlain("archived %d entries\n", moved)
			})
		},
	}
}

func newReportCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var csvOutput bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize per-user activity (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cfg, func(a *app) error {
				session, _, err := a.currentSession(cmd.Context())
				if err != nil {
					return err
				}
				now := time.Now().UTC()
				if csvOutput {
					return a.reports.ExportCSV(cmd.Context(), session, os.Stdout, now)
				}
				report, err := a.reports.Report(cmd.Context(), session, now)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(report)
				}
				if len(report) == 0 {
					return writePlain("no activity recorded\n")
				}
				for _, activity := range report {
					if err := writePlain("%-16s %-8s %4d entries, last seen %s\n",
						activity.Username, activity.Role, activity.Total(), formatTime(activity.LastSeen)); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&csvOutput, "csv", false, "write CSV to stdout")
	return cmd
}

func newUsersCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect the credential roster",
	}
	cmd.AddCommand(newUsersListCmd(cfg, jsonOutput))
	cmd.AddCommand(newUsersHashCmd())
	cmd.AddCommand(newUsersCheckCmd(cfg))
	return cmd
}

func newUsersListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List roster accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := credstore.LoadFile(cfg.RosterPath)
			if err != nil {
				return err
			}
			users := creds.Users()
			if *jsonOutput {
				return writeJSON(users)
			}
			for _, user := range users {
				if err := writePlain("%-16s %s\n", user.Username, user.Role); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// newUsersHashCmd hashes a password for pasting into the roster file.
func newUsersHashCmd() *cobra.Command {
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Hash a password for the roster file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !passwordStdin {
				return fmt.Errorf("--password-stdin is required")
			}
			passwordBytes, err := io.ReadAll(os.Stdin)
			if err != nil {
				return err
			}
			password := strings.TrimSpace(string(passwordBytes))
			hash, err := internalauth.HashPassword(password)
			if err != nil {
				return err
			}
			return writePlain("%s\n", hash)
		},
	}

	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read password from stdin")
	return cmd
}

// newUsersCheckCmd verifies a password against the roster without touching
// sessions or the audit log. Useful after editing roster hashes by hand.
func newUsersCheckCmd(cfg *config.Config) *cobra.Command {
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "check <username>",
		Short: "Verify a roster password",
		Args:  requireExactlyArgs(1, "username is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !passwordStdin {
				return fmt.Errorf("--password-stdin is required")
			}
			passwordBytes, err := io.ReadAll(os.Stdin)
			if err != nil {
				return err
			}
			password := strings.TrimSpace(string(passwordBytes))

			creds, err := credstore.LoadFile(cfg.RosterPath)
			if err != nil {
				return err
			}
			user, ok := creds.Lookup(args[0])
			if !ok || !internalauth.VerifyPassword(user.PasswordHash, password) {
				return fmt.Errorf("password does not match roster entry for %s", args[0])
			}
			return writePlain("password ok for %s (%s)\n", user.Username, user.Role)
		},
	}

	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read password from stdin")
	return cmd
}
