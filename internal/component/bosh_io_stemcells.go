package component

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/blang/semver/v4"
)

const DefaultBOSHIOServerURI = "https://bosh.io"

// BOSHIOStemcellIndex looks up published stemcell versions on bosh.io.
type BOSHIOStemcellIndex struct {
	ServerURI string
	Client    *http.Client
	Logger    *log.Logger
}

func NewBOSHIOStemcellIndex(serverURI string, logger *log.Logger) *BOSHIOStemcellIndex {
	if serverURI == "" {
		serverURI = DefaultBOSHIOServerURI
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &BOSHIOStemcellIndex{
		ServerURI: serverURI,
		Client:    http.DefaultClient,
		Logger:    logger,
	}
}

type stemcellResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// StemcellName is the bosh.io name of the vSphere stemcell for os.
func StemcellName(os string) string {
	return fmt.Sprintf("bosh-vsphere-esxi-%s-go_agent", os)
}

func (index *BOSHIOStemcellIndex) LatestStemcellVersion(ctx context.Context, os string) (string, error) {
	u := fmt.Sprintf("%s/api/v1/stemcells/%s", index.ServerURI, StemcellName(os))
	index.Logger.Printf("Looking up the latest %s stemcell...", os)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	res, err := index.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("bosh.io API is down with error: %w", err)
	}
	defer closeAndIgnoreError(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", (*ResponseStatusCodeError)(res)
	}

	var stemcells []stemcellResponse
	if err := json.NewDecoder(res.Body).Decode(&stemcells); err != nil {
		return "", fmt.Errorf("failed to decode stemcell index: %w", err)
	}

	var (
		latest     semver.Version
		latestText string
	)
	for _, stemcell := range stemcells {
		v, err := semver.ParseTolerant(stemcell.Version)
		if err != nil {
			continue
		}
		if latestText == "" || v.GT(latest) {
			latest, latestText = v, stemcell.Version
		}
	}
	if latestText == "" {
		return "", fmt.Errorf("no stemcells found for %s", os)
	}
	return latestText, nil
}

func closeAndIgnoreError(c io.Closer) { _ = c.Close() }
