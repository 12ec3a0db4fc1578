package fakes

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3GetObjecter struct {
	GetObjectCall struct {
		CallCount int
		Receives  struct {
			Bucket, Key string
		}
		Returns struct {
			Body io.ReadCloser
			Err  error
		}
	}
}

func (mock *S3GetObjecter) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	mock.GetObjectCall.CallCount++
	if params.Bucket != nil {
		mock.GetObjectCall.Receives.Bucket = *params.Bucket
	}
	if params.Key != nil {
		mock.GetObjectCall.Receives.Key = *params.Key
	}
	if mock.GetObjectCall.Returns.Err != nil {
		return nil, mock.GetObjectCall.Returns.Err
	}
	return &s3.GetObjectOutput{Body: mock.GetObjectCall.Returns.Body}, nil
}
