package main

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"classdrop/internal/config"
	"classdrop/internal/share"
)

func newUploadCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var name string
	var description string
	var tags []string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Share a file with the class",
		Args:  requireExactlyArgs(1, "file path is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			displayName := name
			if displayName == "" {
				displayName = filepath.Base(args[0])
			}

			return withApp(cfg, func(a *app) error {
				session, _, err := a.currentSession(cmd.Context())
				if err != nil {
					return err
				}
				resource, err := a.resources.Upload(cmd.Context(), session, share.UploadRequest{
					Filename:    displayName,
					Description: description,
					Tags:        tags,
					Content:     f,
				}, time.Now().UTC())
				if err != nil {
					return err
				}

				if *jsonOutput {
					return writeJSON(resource)
				}
				return writePlain("uploaded %s as %s (%d bytes)\n", resource.DisplayName, resource.ID, resource.SizeBytes)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name (defaults to the file name)")
	cmd.Flags().StringVar(&description, "desc", "", "description")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag (repeatable)")
	return cmd
}

func newListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List shared files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cfg, func(a *app) error {
				session, _, err := a.currentSession(cmd.Context())
				if err != nil {
					return err
				}
				resources, err := a.resources.List(cmd.Context(), session)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resources)
				}
				return writeResourceList(resources)
			})
		},
	}
}

func newInfoCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "info <id>",
		Short: "Show a shared file's metadata",
		Args:  requireExactlyArgs(1, "file id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cfg, func(a *app) error {
				session, _, err := a.currentSession(cmd.Context())
				if err != nil {
					return err
				}
				resource, err := a.resources.Get(cmd.Context(), session, args[0])
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(resource)
				}
				return writeResourceDetail(*resource)
			})
		},
	}
}

func newGetCmd(cfg *config.Config) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Download a shared file",
		Args:  requireExactlyArgs(1, "file id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cfg, func(a *app) error {
				session, _, err := a.currentSession(cmd.Context())
				if err != nil {
					return err
				}
				content, err := a.resources.Open(cmd.Context(), session, args[0], time.Now().UTC())
				if err != nil {
					return err
				}
				defer content.Reader.Close()

				dest := output
				if dest == "" {
					dest = content.Resource.DisplayName
				}
				if dest == "-" {
					_, err := io.Copy(os.Stdout, content.Reader)
					return err
				}

				out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
				if err != nil {
					return err
				}
				if _, err := io.Copy(out, content.Reader); err != nil {
					out.Close()
					_ = os.Remove(dest)
					return err
				}
				if err := out.Close(); err != nil {
					return err
				}
				return writePlain("saved %s (%d bytes)\n", dest, content.Resource.SizeBytes)
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "destination path, or - for stdout")
	return cmd
}

func newRmCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Remove a shared file",
		Args:    requireExactlyArgs(1, "file id is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cfg, func(a *app) error {
				session, _, err := a.currentSession(cmd.Context())
				if err != nil {
					return err
				}
				if err := a.resources.Delete(cmd.Context(), session, args[0], time.Now().UTC()); err != nil {
					return err
				}
				return writePlain("removed %s\n", args[0])
			})
		},
	}
}

func newGCCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "gc",
		Short: "Reclaim unreferenced stored content (admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cfg, func(a *app) error {
				session, _, err := a.currentSession(cmd.Context())
				if err != nil {
					return err
				}
				result, err := a.resources.GC(cmd.Context(), session, time.Now().UTC())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(result)
				}
				return writePlain("reclaimed %d blob rows, %d blob files, %d orphaned files\n",
					result.BlobRowsDeleted, result.BlobFilesDeleted, result.OrphanedFiles)
			})
		},
	}
}
