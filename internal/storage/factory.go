package storage

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"clipforge/internal/adapters/storage/gdrive"
	"clipforge/internal/adapters/storage/localfs"
	"clipforge/internal/config"
)

// NewProvider builds the publish target named by cfg.Provider.
func NewProvider(ctx context.Context, cfg config.Storage) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "localfs":
		root := cfg.PublishRoot
		if root == "" {
			return nil, fmt.Errorf("storage.publish_root is required for the localfs provider")
		}
		return localfs.New(root), nil

	case "gdrive":
		return NewDrive(ctx, cfg)

	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.Provider)
	}
}

// HasDriveCredentials reports whether Drive access is configured.
func HasDriveCredentials(cfg config.Storage) bool {
	return cfg.GDriveClientID != "" && cfg.GDriveClientSecret != "" && cfg.GDriveRefreshToken != ""
}

// NewDrive builds a Drive client from the refresh token minted by
// cmd/gdrive-auth. It is used both as a publish target and to read Drive
// source references.
func NewDrive(ctx context.Context, cfg config.Storage) (*gdrive.Client, error) {
	if !HasDriveCredentials(cfg) {
		return nil, fmt.Errorf("gdrive requires GDRIVE_CLIENT_ID, GDRIVE_CLIENT_SECRET and GDRIVE_REFRESH_TOKEN")
	}

	conf := &oauth2.Config{
		ClientID:     cfg.GDriveClientID,
		ClientSecret: cfg.GDriveClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveScope},
	}

	tok := &oauth2.Token{RefreshToken: cfg.GDriveRefreshToken}
	httpClient := conf.Client(ctx, tok)

	srv, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}

	return gdrive.NewClient(srv, cfg.GDriveFolderID), nil
}
