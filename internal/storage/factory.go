package storage

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/akibsystems/showgeki2-sub002/internal/adapters/storage/gdrive"
	"github.com/akibsystems/showgeki2-sub002/internal/adapters/storage/localfs"
)

func NewProvider() (Provider, error) {
	provider := os.Getenv("STORAGE_PROVIDER")
	if provider == "" {
		provider = "localfs"
	}

	switch provider {
	case "localfs":
		root, err := requireEnv("STORAGE_LOCAL_ROOT")
		if err != nil {
			return nil, err
		}
		baseURL, err := requireEnv("STORAGE_PUBLIC_BASEURL")
		if err != nil {
			return nil, err
		}
		return localfs.New(root, baseURL), nil

	case "gdrive":
		return newGDriveProvider()

	default:
		return nil, fmt.Errorf("unknown storage provider: %s", provider)
	}
}

func newGDriveProvider() (Provider, error) {
	ctx := context.Background()

	clientID, err := requireEnv("GDRIVE_CLIENT_ID")
	if err != nil {
		return nil, err
	}
	clientSecret, err := requireEnv("GDRIVE_CLIENT_SECRET")
	if err != nil {
		return nil, err
	}
	refreshToken, err := requireEnv("GDRIVE_REFRESH_TOKEN")
	if err != nil {
		return nil, err
	}
	folderID := os.Getenv("GDRIVE_FOLDER_ID")

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveFileScope},
	}

	tok := &oauth2.Token{RefreshToken: refreshToken}
	httpClient := conf.Client(ctx, tok)

	srv, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, err
	}

	return gdrive.NewClient(srv, folderID), nil
}

func requireEnv(k string) (string, error) {
	v := os.Getenv(k)
	if v == "" {
		return "", fmt.Errorf("missing env: %s", k)
	}
	return v, nil
}
