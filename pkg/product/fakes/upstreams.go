package fakes

import (
	"context"

	"github.com/cf-platform-eng/tile-generator/pkg/product"
)

type StemcellIndex struct {
	LatestStemcellVersionCall struct {
		CallCount int
		Receives  struct {
			OS string
		}
		Returns struct {
			Version string
			Err     error
		}
	}
}

func (mock *StemcellIndex) LatestStemcellVersion(_ context.Context, os string) (string, error) {
	mock.LatestStemcellVersionCall.CallCount++
	mock.LatestStemcellVersionCall.Receives.OS = os
	return mock.LatestStemcellVersionCall.Returns.Version, mock.LatestStemcellVersionCall.Returns.Err
}

type ChartReader struct {
	ReadChartCall struct {
		CallCount int
		Receives  struct {
			ChartDirectory string
		}
		Returns struct {
			Chart product.Chart
			Err   error
		}
	}
}

func (mock *ChartReader) ReadChart(chartDirectory string) (product.Chart, error) {
	mock.ReadChartCall.CallCount++
	mock.ReadChartCall.Receives.ChartDirectory = chartDirectory
	return mock.ReadChartCall.Returns.Chart, mock.ReadChartCall.Returns.Err
}

type CLIVersionResolver struct {
	LatestVersionCall struct {
		CallCount int
		Receives  []string
		Returns   struct {
			Versions map[string]string
			Err      error
		}
	}
}

func (mock *CLIVersionResolver) LatestVersion(_ context.Context, owner, repo string) (string, error) {
	mock.LatestVersionCall.CallCount++
	mock.LatestVersionCall.Receives = append(mock.LatestVersionCall.Receives, owner+"/"+repo)
	return mock.LatestVersionCall.Returns.Versions[owner+"/"+repo], mock.LatestVersionCall.Returns.Err
}
