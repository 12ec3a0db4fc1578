package component

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v50/github"
	"golang.org/x/oauth2"
)

type LatestReleaseGetter interface {
	GetLatestRelease(ctx context.Context, owner, repo string) (*github.RepositoryRelease, *github.Response, error)
}

// GitHubReleaseFeed answers questions about the latest release of a
// repository. It pins CLI versions and resolves github:// file paths.
type GitHubReleaseFeed struct {
	Repositories LatestReleaseGetter
}

// NewGitHubReleaseFeed creates a feed. When token is empty requests are
// unauthenticated and subject to a lower rate limit.
func NewGitHubReleaseFeed(ctx context.Context, token string) *GitHubReleaseFeed {
	var httpClient *http.Client
	if token != "" {
		tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(ctx, tokenSource)
	}
	return &GitHubReleaseFeed{Repositories: github.NewClient(httpClient).Repositories}
}

func (feed *GitHubReleaseFeed) LatestVersion(ctx context.Context, owner, repo string) (string, error) {
	release, err := feed.latest(ctx, owner, repo)
	if err != nil {
		return "", err
	}
	return release.GetTagName(), nil
}

// AssetURL resolves github://owner/repo/asset-name to the download URL of
// the asset on the latest release.
func (feed *GitHubReleaseFeed) AssetURL(ctx context.Context, githubURI string) (string, error) {
	owner, repo, asset, err := ParseGitHubURI(githubURI)
	if err != nil {
		return "", err
	}
	release, err := feed.latest(ctx, owner, repo)
	if err != nil {
		return "", err
	}
	for _, a := range release.Assets {
		if a.GetName() == asset {
			return a.GetBrowserDownloadURL(), nil
		}
	}
	return "", fmt.Errorf("release %s of %s/%s has no asset named %q", release.GetTagName(), owner, repo, asset)
}

func (feed *GitHubReleaseFeed) latest(ctx context.Context, owner, repo string) (*github.RepositoryRelease, error) {
	release, res, err := feed.Repositories.GetLatestRelease(ctx, owner, repo)
	if err != nil {
		if res != nil && res.Response != nil && res.Request != nil {
			return nil, fmt.Errorf("failed to get latest release of %s/%s: %w", owner, repo, (*ResponseStatusCodeError)(res.Response))
		}
		return nil, fmt.Errorf("failed to get latest release of %s/%s: %w", owner, repo, err)
	}
	return release, nil
}

// ParseGitHubURI splits github://owner/repo/asset into its parts.
func ParseGitHubURI(githubURI string) (owner, repo, asset string, _ error) {
	u, err := url.Parse(githubURI)
	if err != nil {
		return "", "", "", err
	}
	if u.Scheme != "github" {
		return "", "", "", fmt.Errorf("expected a github:// URI got %q", githubURI)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if u.Host == "" || len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", fmt.Errorf("expected github://owner/repo/asset got %q", githubURI)
	}
	return u.Host, parts[0], parts[1], nil
}
