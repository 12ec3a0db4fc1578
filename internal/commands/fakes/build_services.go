package fakes

import (
	"context"

	"github.com/cf-platform-eng/tile-generator/internal/builder"
	"github.com/cf-platform-eng/tile-generator/internal/release"
	"github.com/cf-platform-eng/tile-generator/pkg/product"
	"github.com/cf-platform-eng/tile-generator/pkg/proofing"
)

type Applicator struct {
	ApplyCall struct {
		CallCount int
		Stub      func(p *product.Product) error
		Receives  struct {
			Product *product.Product
		}
		Returns struct {
			Error error
		}
	}
}

func (a *Applicator) Apply(_ context.Context, p *product.Product) error {
	a.ApplyCall.CallCount++
	a.ApplyCall.Receives.Product = p
	if a.ApplyCall.Stub != nil {
		return a.ApplyCall.Stub(p)
	}
	return a.ApplyCall.Returns.Error
}

type ReleaseBuilder struct {
	BuildCall struct {
		CallCount int
		Receives  struct {
			Product *product.Product
		}
		Returns struct {
			Result release.Result
			Error  error
		}
	}
}

func (r *ReleaseBuilder) Build(_ context.Context, p *product.Product) (release.Result, error) {
	r.BuildCall.CallCount++
	r.BuildCall.Receives.Product = p
	return r.BuildCall.Returns.Result, r.BuildCall.Returns.Error
}

type IconEncoder struct {
	EncodeCall struct {
		CallCount int
		Receives  struct {
			Path string
		}
		Returns struct {
			Encoded string
			Error   error
		}
	}
}

func (i *IconEncoder) Encode(path string) (string, error) {
	i.EncodeCall.CallCount++
	i.EncodeCall.Receives.Path = path
	return i.EncodeCall.Returns.Encoded, i.EncodeCall.Returns.Error
}

type MetadataCompiler struct {
	CompileCall struct {
		CallCount int
		Receives  struct {
			Input builder.MetadataInput
		}
		Returns struct {
			Template proofing.ProductTemplate
			Error    error
		}
	}
}

func (m *MetadataCompiler) Compile(input builder.MetadataInput) (proofing.ProductTemplate, error) {
	m.CompileCall.CallCount++
	m.CompileCall.Receives.Input = input
	return m.CompileCall.Returns.Template, m.CompileCall.Returns.Error
}

type TileWriter struct {
	WriteCall struct {
		CallCount int
		Stub      func(tile builder.Tile) (string, error)
		Receives  struct {
			Tile builder.Tile
		}
		Returns struct {
			Path  string
			Error error
		}
	}
}

func (w *TileWriter) Write(tile builder.Tile) (string, error) {
	w.WriteCall.CallCount++
	w.WriteCall.Receives.Tile = tile
	if w.WriteCall.Stub != nil {
		return w.WriteCall.Stub(tile)
	}
	return w.WriteCall.Returns.Path, w.WriteCall.Returns.Error
}
