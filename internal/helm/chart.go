// Package helm reads chart metadata and the container images chart values
// reference.
package helm

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/distribution/reference"
	"github.com/ghodss/yaml"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/cf-platform-eng/tile-generator/pkg/product"
)

// Reader resolves relative chart directories against the tile directory
// and absolute ones against Host.
type Reader struct {
	FS   billy.Filesystem
	Host billy.Filesystem
}

func NewReader(tileDirectory billy.Filesystem) Reader {
	return Reader{FS: tileDirectory, Host: osfs.New("")}
}

type chartFile struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ReadChart reads Chart.yaml and values.yaml in chartDirectory and in the
// subcharts under its charts directory.
func (r Reader) ReadChart(chartDirectory string) (product.Chart, error) {
	fsys := r.FS
	if filepath.IsAbs(chartDirectory) && r.Host != nil {
		fsys = r.Host
	}

	var chart chartFile
	chartPath := filepath.Join(chartDirectory, "Chart.yaml")
	if err := readYAML(fsys, chartPath, &chart); err != nil {
		return product.Chart{}, err
	}
	if chart.Name == "" {
		return product.Chart{}, fmt.Errorf("%s has no name", chartPath)
	}

	images, err := chartImages(fsys, chartDirectory)
	if err != nil {
		return product.Chart{}, err
	}
	return product.Chart{Name: chart.Name, Version: chart.Version, Images: images}, nil
}

func chartImages(fsys billy.Filesystem, chartDirectory string) ([]string, error) {
	var values map[string]any
	err := readYAML(fsys, filepath.Join(chartDirectory, "values.yaml"), &values)
	if err != nil && !isNotExist(err) {
		return nil, err
	}
	images := RequiredImages(values)

	subcharts, err := fsys.ReadDir(filepath.Join(chartDirectory, "charts"))
	if err != nil && !isNotExist(err) {
		return nil, err
	}
	slices.SortFunc(subcharts, func(a, b os.FileInfo) int { return strings.Compare(a.Name(), b.Name()) })
	for _, entry := range subcharts {
		if !entry.IsDir() {
			continue
		}
		subImages, err := chartImages(fsys, filepath.Join(chartDirectory, "charts", entry.Name()))
		if err != nil {
			return nil, err
		}
		images = appendUnique(images, subImages...)
	}
	return images, nil
}

func readYAML(fsys billy.Filesystem, filePath string, v any) error {
	buf, err := util.ReadFile(fsys, filePath)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(buf, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filePath, err)
	}
	return nil
}

// RequiredImages walks chart values and returns the image references they
// declare, in a stable order without duplicates. An image is either a
// string with an optional sibling tag or imageTag, or a map with
// repository, tag and registry keys.
func RequiredImages(values map[string]any) []string {
	var images []string
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	for _, key := range keys {
		value := values[key]
		if key == "image" {
			switch image := value.(type) {
			case string:
				if tag := scalarString(values["tag"]); tag != "" {
					image += ":" + tag
				} else if tag := scalarString(values["imageTag"]); tag != "" {
					image += ":" + tag
				}
				images = appendUnique(images, familiar(image))
				continue
			case map[string]any:
				if repository := scalarString(image["repository"]); repository != "" {
					if registry := scalarString(image["registry"]); registry != "" {
						repository = registry + "/" + repository
					}
					if tag := scalarString(image["tag"]); tag != "" {
						repository += ":" + tag
					}
					images = appendUnique(images, familiar(repository))
					continue
				}
			}
		}
		switch v := value.(type) {
		case map[string]any:
			images = appendUnique(images, RequiredImages(v)...)
		case []any:
			for _, item := range v {
				if m, ok := item.(map[string]any); ok {
					images = appendUnique(images, RequiredImages(m)...)
				}
			}
		}
	}
	return images
}

func familiar(image string) string {
	named, err := reference.ParseNormalizedNamed(image)
	if err != nil {
		return image
	}
	return reference.FamiliarString(named)
}

func scalarString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case bool:
		return strconv.FormatBool(s)
	}
	return ""
}

func appendUnique(list []string, items ...string) []string {
	for _, item := range items {
		if !slices.Contains(list, item) {
			list = append(list, item)
		}
	}
	return list
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
