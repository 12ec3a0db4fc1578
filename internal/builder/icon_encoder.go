package builder

import (
	"encoding/base64"
	"io"

	"github.com/go-git/go-billy/v5"

	"github.com/cf-platform-eng/tile-generator/pkg/failure"
)

type IconEncoder struct {
	filesystem billy.Basic
}

func NewIconEncoder(filesystem billy.Basic) IconEncoder {
	return IconEncoder{
		filesystem: filesystem,
	}
}

func (i IconEncoder) Encode(path string) (string, error) {
	if path == "" {
		return "", failure.New(failure.MissingIcon, "icon_file", "not set")
	}
	file, err := i.filesystem.Open(path)
	if err != nil {
		return "", failure.Wrap(failure.MissingIcon, path, err)
	}
	defer closeAndIgnoreError(file)

	data, err := io.ReadAll(file)
	if err != nil {
		return "", failure.Wrap(failure.MissingIcon, path, err)
	}

	return base64.StdEncoding.EncodeToString(data), nil
}
