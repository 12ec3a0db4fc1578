package fakes

import "io"

type Zipper struct {
	SetPathCall struct {
		CallCount int
		Receives  struct {
			Path string
		}
		Returns struct {
			Error error
		}
	}

	AddCall struct {
		Stub    func(path string, file io.Reader) error
		Calls   []ZipperAddCall
		Returns struct {
			Error error
		}
	}

	CloseCall struct {
		CallCount int
		Returns   struct {
			Error error
		}
	}

	DiscardCall struct {
		CallCount int
		Returns   struct {
			Error error
		}
	}

	CreateFolderCall struct {
		Receives []string
		Returns  struct {
			Error error
		}
	}
}

type ZipperAddCall struct {
	Path     string
	Contents string
}

func (z *Zipper) SetPath(path string) error {
	z.SetPathCall.CallCount++
	z.SetPathCall.Receives.Path = path
	return z.SetPathCall.Returns.Error
}

func (z *Zipper) Add(path string, file io.Reader) error {
	if z.AddCall.Stub != nil {
		return z.AddCall.Stub(path, file)
	}

	buf, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	z.AddCall.Calls = append(z.AddCall.Calls, ZipperAddCall{Path: path, Contents: string(buf)})

	return z.AddCall.Returns.Error
}

func (z *Zipper) Close() error {
	z.CloseCall.CallCount++
	return z.CloseCall.Returns.Error
}

func (z *Zipper) CreateFolder(path string) error {
	z.CreateFolderCall.Receives = append(z.CreateFolderCall.Receives, path)
	return z.CreateFolderCall.Returns.Error
}

func (z *Zipper) Discard() error {
	z.DiscardCall.CallCount++
	return z.DiscardCall.Returns.Error
}
