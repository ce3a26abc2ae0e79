package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const listPageSize = 100

// ListOrgForks lists the organization's repositories that are forks,
// following pagination until a short page comes back.
func (c *Client) ListOrgForks(ctx context.Context, org string) ([]Repository, error) {
	if org == "" {
		return nil, NewValidationError("org", "cannot be empty")
	}

	var forks []Repository
	for page := 1; ; page++ {
		path := fmt.Sprintf("/orgs/%s/repos?type=forks&per_page=%d&page=%d", url.PathEscape(org), listPageSize, page)

		var repos []Repository
		if err := c.do(ctx, http.MethodGet, path, nil, &repos); err != nil {
			return nil, fmt.Errorf("failed to list repositories for %s: %w", org, err)
		}

		for _, repo := range repos {
			if repo.Fork {
				forks = append(forks, repo)
			}
		}

		if len(repos) < listPageSize {
			break
		}
	}

	return forks, nil
}

// GetRepository fetches a single repository. A 404 surfaces as a
// *GitHubError matched by IsNotFound.
func (c *Client) GetRepository(ctx context.Context, org, repo string) (*Repository, error) {
	if org == "" {
		return nil, NewValidationError("org", "cannot be empty")
	}
	if repo == "" {
		return nil, NewValidationError("repo", "cannot be empty")
	}

	var result Repository
	path := fmt.Sprintf("/repos/%s/%s", url.PathEscape(org), url.PathEscape(repo))
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// MergeUpstream asks GitHub to merge the upstream branch into the fork's
// branch of the same name. A 409 indicates a merge conflict.
func (c *Client) MergeUpstream(ctx context.Context, org, repo, branch string) (*MergeResult, error) {
	if branch == "" {
		return nil, NewValidationError("branch", "cannot be empty")
	}

	body := map[string]string{"branch": branch}
	var result MergeResult
	path := fmt.Sprintf("/repos/%s/%s/merge-upstream", url.PathEscape(org), url.PathEscape(repo))
	if err := c.do(ctx, http.MethodPost, path, body, &result); err != nil {
		return nil, fmt.Errorf("failed to merge upstream for %s/%s: %w", org, repo, err)
	}

	return &result, nil
}

// UpdateDescription patches the repository description.
func (c *Client) UpdateDescription(ctx context.Context, org, repo, description string) error {
	body := map[string]string{"description": description}
	path := fmt.Sprintf("/repos/%s/%s", url.PathEscape(org), url.PathEscape(repo))
	if err := c.do(ctx, http.MethodPatch, path, body, nil); err != nil {
		return fmt.Errorf("failed to update description of %s/%s: %w", org, repo, err)
	}
	return nil
}

// DownloadArchive streams the zipball of the given ref. The caller must
// close the returned reader.
func (c *Client) DownloadArchive(ctx context.Context, org, repo, ref string) (io.ReadCloser, error) {
	if ref == "" {
		return nil, NewValidationError("ref", "cannot be empty")
	}

	c.checkRateLimit()

	archiveURL := fmt.Sprintf("%s/repos/%s/%s/zipball/%s", c.baseURL, url.PathEscape(org), url.PathEscape(repo), url.PathEscape(ref))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, archiveURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, NewGitHubError(0, "archive download failed", err)
	}

	c.updateRateLimitInfo(resp)
	if c.verbose {
		c.logger.Debugf("GET %s -> %d [remaining=%d reset=%s]",
			archiveURL, resp.StatusCode, c.rateLimit.Remaining, c.rateLimit.ResetTime.Format(time.RFC3339))
	}

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, NewGitHubError(resp.StatusCode, apiMessage(data), nil)
	}

	return resp.Body, nil
}
