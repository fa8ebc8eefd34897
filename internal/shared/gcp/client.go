// Package gcp builds client options for the Google Cloud Vision and Text-to-Speech clients.
package gcp

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

// CloudPlatformScope grants access to Vision and Text-to-Speech.
const CloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// Auth selects how a Google client authenticates. APIKey wins over TokenSource;
// with neither set, Application Default Credentials are used.
type Auth struct {
	APIKey      string
	Endpoint    string
	TokenSource oauth2.TokenSource
}

// ClientOptions returns the options for a Google Cloud client. Endpoint overrides the
// service's default host:port.
func ClientOptions(ctx context.Context, auth Auth) ([]option.ClientOption, error) {
	var opts []option.ClientOption
	if endpoint := strings.TrimSpace(auth.Endpoint); endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	switch {
	case strings.TrimSpace(auth.APIKey) != "":
		opts = append(opts, option.WithAPIKey(strings.TrimSpace(auth.APIKey)))
	case auth.TokenSource != nil:
		opts = append(opts, option.WithTokenSource(oauth2.ReuseTokenSource(nil, auth.TokenSource)))
	default:
		ts, err := google.DefaultTokenSource(ctx, CloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("google default credentials: %w", err)
		}
		opts = append(opts, option.WithTokenSource(ts))
	}
	return opts, nil
}
