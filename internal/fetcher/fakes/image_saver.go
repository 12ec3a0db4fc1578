package fakes

import (
	"context"
	"io"

	"github.com/docker/docker/client"
)

type ImageSaver struct {
	ImageSaveCall struct {
		CallCount int
		Receives  struct {
			ImageIDs []string
		}
		Returns struct {
			ReadCloser io.ReadCloser
			Err        error
		}
	}
}

func (mock *ImageSaver) ImageSave(_ context.Context, imageIDs []string, _ ...client.ImageSaveOption) (io.ReadCloser, error) {
	mock.ImageSaveCall.CallCount++
	mock.ImageSaveCall.Receives.ImageIDs = imageIDs
	return mock.ImageSaveCall.Returns.ReadCloser, mock.ImageSaveCall.Returns.Err
}
