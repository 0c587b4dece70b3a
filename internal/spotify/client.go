// Package spotify provides a wrapper around the Spotify Web API catalog.
package spotify

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

// ErrUnauthorized is returned when Spotify rejects the client credentials or
// the access token. It is not recoverable by retrying.
var ErrUnauthorized = errors.New("spotify rejected the client credentials")

// Client wraps the Spotify API client with convenience methods.
type Client struct {
	api *spotify.Client
}

// New creates a new Spotify client wrapper.
// The underlying client should already be authenticated.
func New(api *spotify.Client) *Client {
	return &Client{api: api}
}

// classifyError maps authentication failures to ErrUnauthorized and wraps
// everything else with the operation name.
func classifyError(op string, err error) error {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) && isAuthStatus(apiErr.Status) {
		return fmt.Errorf("%w: %s", ErrUnauthorized, apiErr.Message)
	}

	var apiErrPtr *spotify.Error
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil && isAuthStatus(apiErrPtr.Status) {
		return fmt.Errorf("%w: %s", ErrUnauthorized, apiErrPtr.Message)
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("%w: %v", ErrUnauthorized, retrieveErr)
	}

	return fmt.Errorf("%s: %w", op, err)
}

func isAuthStatus(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}
