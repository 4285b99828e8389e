package reduction

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// NewHTTPClient returns the HTTP client used to reach the reduction service.
// With a service-account key file the client attaches auto-refreshing OAuth2
// bearer tokens for scope; without one it sends unauthenticated requests.
func NewHTTPClient(ctx context.Context, credentialsFile, scope string, timeout time.Duration) (*http.Client, error) {
	if credentialsFile == "" {
		return &http.Client{Timeout: timeout}, nil
	}

	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read reduction credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, scope)
	if err != nil {
		return nil, fmt.Errorf("parse reduction credentials: %w", err)
	}

	client := oauth2.NewClient(ctx, creds.TokenSource)
	client.Timeout = timeout
	return client, nil
}
