package fakes

import (
	"context"

	"github.com/google/go-github/v50/github"
)

type LatestReleaseGetter struct {
	GetLatestReleaseCall struct {
		CallCount int
		Receives  struct {
			Owner, Repo string
		}
		Returns struct {
			Release  *github.RepositoryRelease
			Response *github.Response
			Err      error
		}
	}
}

func (mock *LatestReleaseGetter) GetLatestRelease(_ context.Context, owner, repo string) (*github.RepositoryRelease, *github.Response, error) {
	mock.GetLatestReleaseCall.CallCount++
	mock.GetLatestReleaseCall.Receives.Owner = owner
	mock.GetLatestReleaseCall.Receives.Repo = repo
	return mock.GetLatestReleaseCall.Returns.Release, mock.GetLatestReleaseCall.Returns.Response, mock.GetLatestReleaseCall.Returns.Err
}
