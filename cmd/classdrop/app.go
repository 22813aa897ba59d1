package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"classdrop/internal/blobstore"
	"classdrop/internal/config"
	"classdrop/internal/credstore"
	"classdrop/internal/models"
	"classdrop/internal/share"
	"classdrop/internal/store"
)

// app bundles the wired services behind one CLI invocation.
type app struct {
	cfg       *config.Config
	store     *store.Store
	auth      *share.AuthService
	resources *share.ResourceService
	audit     *share.AuditService
	reports   *share.ReportService
}

func withApp(cfg *config.Config, fn func(*app) error) error {
	if strings.TrimSpace(cfg.DataDir) != "" {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database %s: %w", cfg.DBPath, err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			slog.Warn("closing database", "error", cerr)
		}
	}()

	blobs, err := blobstore.NewLocalStore(cfg.BlobRoot)
	if err != nil {
		return fmt.Errorf("open blob store %s: %w", cfg.BlobRoot, err)
	}

	creds, err := credstore.LoadFile(cfg.RosterPath)
	if err != nil {
		return err
	}

	auth := share.NewAuthService(creds, st, st)
	auth.SetSessionTTL(time.Duration(cfg.SessionTTLHours) * time.Hour)

	resources := share.NewResourceService(st, st, blobs)
	resources.SetMaxUploadBytes(cfg.Uploads.MaxUploadBytes)
	resources.SetAllowedExtensions(cfg.Uploads.AllowedExtensions)
	resources.SetGCBatchSize(cfg.Uploads.GCBatchSize)

	return fn(&app{
		cfg:       cfg,
		store:     st,
		auth:      auth,
		resources: resources,
		audit:     share.NewAuditService(st),
		reports:   share.NewReportService(st),
	})
}

// currentSession resolves the saved token against the session store.
func (a *app) currentSession(ctx context.Context) (*models.Session, string, error) {
	token, err := readSessionToken(a.cfg.SessionFile)
	if err != nil {
		return nil, "", err
	}
	if token == "" {
		return nil, "", fmt.Errorf("not logged in; run: classdrop login <username>")
	}
	session, err := a.auth.Resolve(ctx, token, time.Now().UTC())
	if err != nil {
		return nil, "", err
	}
	return session, token, nil
}

func readSessionToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func writeSessionToken(path, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(token+"\n"), 0o600)
}

func clearSessionToken(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
