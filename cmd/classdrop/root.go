package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"classdrop/internal/config"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var jsonOutput bool
	var logLevel string

	cmd := &cobra.Command{
		Use:   "classdrop",
		Short: "Classdrop is a classroom file sharing tool with an auditable trail",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newLoginCmd(cfg, &jsonOutput),
		newLogoutCmd(cfg),
		newWhoamiCmd(cfg, &jsonOutput),
		newUploadCmd(cfg, &jsonOutput),
		newListCmd(cfg, &jsonOutput),
		newInfoCmd(cfg, &jsonOutput),
		newGetCmd(cfg),
		newRmCmd(cfg),
		newLogCmd(cfg, &jsonOutput),
		newReportCmd(cfg, &jsonOutput),
		newGCCmd(cfg, &jsonOutput),
		newUsersCmd(cfg, &jsonOutput),
		newConfigCmd(cfg),
	)

	return cmd
}
