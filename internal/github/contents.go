package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// contentsPath builds the contents API path for a file; path segments are
// escaped individually so slashes survive.
func contentsPath(org, repo, filePath string) string {
	segments := strings.Split(filePath, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("/repos/%s/%s/contents/%s", url.PathEscape(org), url.PathEscape(repo), strings.Join(segments, "/"))
}

// GetContents fetches a file from the repository's default branch and
// returns its decoded content together with the blob SHA needed for a
// conditional write.
func (c *Client) GetContents(ctx context.Context, org, repo, filePath string) (*FileContents, error) {
	if filePath == "" {
		return nil, NewValidationError("path", "cannot be empty")
	}

	var payload struct {
		Path     string `json:"path"`
		SHA      string `json:"sha"`
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if err := c.do(ctx, http.MethodGet, contentsPath(org, repo, filePath), nil, &payload); err != nil {
		return nil, err
	}

	content := payload.Content
	if payload.Encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(payload.Content, "\n", ""))
		if err != nil {
			return nil, fmt.Errorf("failed to decode contents of %s: %w", filePath, err)
		}
		content = string(decoded)
	}

	return &FileContents{
		Path:    payload.Path,
		SHA:     payload.SHA,
		Content: content,
	}, nil
}

// PutContents writes a file through the contents API. The sha of the
// previous revision acts as an optimistic-concurrency precondition; GitHub
// rejects the write with 409 when it no longer matches (see IsConflict).
func (c *Client) PutContents(ctx context.Context, org, repo, filePath, message string, content []byte, sha string) error {
	if filePath == "" {
		return NewValidationError("path", "cannot be empty")
	}

	body := struct {
		Message string `json:"message"`
		Content string `json:"content"`
		SHA     string `json:"sha,omitempty"`
	}{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(content),
		SHA:     sha,
	}

	if err := c.do(ctx, http.MethodPut, contentsPath(org, repo, filePath), body, nil); err != nil {
		return fmt.Errorf("failed to write %s in %s/%s: %w", filePath, org, repo, err)
	}
	return nil
}
