package component_test

import (
	"context"
	"errors"

	"github.com/google/go-github/v50/github"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/cf-platform-eng/tile-generator/internal/component"
	"github.com/cf-platform-eng/tile-generator/internal/component/fakes"
)

var _ = Describe("GitHubReleaseFeed", func() {
	var (
		getter *fakes.LatestReleaseGetter
		feed   *component.GitHubReleaseFeed
	)

	BeforeEach(func() {
		getter = new(fakes.LatestReleaseGetter)
		getter.GetLatestReleaseCall.Returns.Release = &github.RepositoryRelease{
			TagName: github.String("v3.14.0"),
			Assets: []*github.ReleaseAsset{
				{Name: github.String("tool-linux"), BrowserDownloadURL: github.String("https://example.com/tool-linux")},
			},
		}
		feed = &component.GitHubReleaseFeed{Repositories: getter}
	})

	It("returns the tag of the latest release", func() {
		version, err := feed.LatestVersion(context.Background(), "helm", "helm")
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal("v3.14.0"))
		Expect(getter.GetLatestReleaseCall.Receives.Owner).To(Equal("helm"))
		Expect(getter.GetLatestReleaseCall.Receives.Repo).To(Equal("helm"))
	})

	It("resolves github URIs to asset URLs", func() {
		u, err := feed.AssetURL(context.Background(), "github://acme/tool/tool-linux")
		Expect(err).NotTo(HaveOccurred())
		Expect(u).To(Equal("https://example.com/tool-linux"))
		Expect(getter.GetLatestReleaseCall.Receives.Owner).To(Equal("acme"))
		Expect(getter.GetLatestReleaseCall.Receives.Repo).To(Equal("tool"))
	})

	It("fails for missing assets", func() {
		_, err := feed.AssetURL(context.Background(), "github://acme/tool/tool-darwin")
		Expect(err).To(MatchError(ContainSubstring(`no asset named "tool-darwin"`)))
	})

	When("the API fails", func() {
		BeforeEach(func() {
			getter.GetLatestReleaseCall.Returns.Err = errors.New("rate limited")
		})

		It("wraps the error", func() {
			_, err := feed.LatestVersion(context.Background(), "kubernetes", "kubernetes")
			Expect(err).To(MatchError(ContainSubstring("rate limited")))
		})
	})
})

var _ = Describe("ParseGitHubURI", func() {
	It("splits the URI", func() {
		owner, repo, asset, err := component.ParseGitHubURI("github://cf-platform-eng/meta-buildpack/meta-buildpack.tgz")
		Expect(err).NotTo(HaveOccurred())
		Expect([]string{owner, repo, asset}).To(Equal([]string{"cf-platform-eng", "meta-buildpack", "meta-buildpack.tgz"}))
	})

	DescribeTable("invalid URIs",
		func(uri string) {
			_, _, _, err := component.ParseGitHubURI(uri)
			Expect(err).To(HaveOccurred())
		},
		Entry("wrong scheme", "https://github.com/a/b"),
		Entry("missing asset", "github://owner/repo"),
		Entry("too deep", "github://owner/repo/a/b"),
	)
})
