package product

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/distribution/reference"

	"github.com/cf-platform-eng/tile-generator/pkg/failure"
)

const DockerPathPrefix = "docker:"

var containerNamePattern = regexp.MustCompile(`^[a-z][a-zA-Z0-9_]*$`)

// Normalize validates a package against the schema of its type and
// canonicalizes its file list.
func Normalize(pkg *Package) error {
	if !ValidName(pkg.Name) {
		return failure.New(failure.InvalidName, pkg.Name, "package name must match %s", namePattern)
	}
	if !pkg.Type.Known() {
		return failure.New(failure.SchemaViolation, pkg.Name, "unknown package type %q", pkg.Type)
	}

	if err := checkSchema(pkg); err != nil {
		return err
	}
	if pkg.Type == TypeBoshRelease {
		return nil
	}
	return canonicalizeFiles(pkg)
}

func checkSchema(pkg *Package) error {
	switch pkg.Type {
	case TypeBoshRelease:
		if pkg.Path == "" {
			return failure.New(failure.SchemaViolation, pkg.Name, "bosh-release packages require a path")
		}
	case TypeDockerBosh:
		if pkg.Manifest == nil {
			return failure.New(failure.SchemaViolation, pkg.Name, "docker-bosh packages require a manifest")
		}
		containers, _ := pkg.Manifest["containers"].([]any)
		for _, c := range containers {
			container, _ := c.(map[string]any)
			name, _ := container["name"].(string)
			if !containerNamePattern.MatchString(name) {
				return failure.New(failure.SchemaViolation, pkg.Name, "container name %q must match %s", name, containerNamePattern)
			}
		}
	case TypeApp, TypeAppBroker:
		if pkg.Manifest == nil {
			return failure.New(failure.SchemaViolation, pkg.Name, "%s packages require a manifest", pkg.Type)
		}
		if _, ok := pkg.Manifest["buildpack"]; !ok {
			if _, ok := pkg.Manifest["buildpacks"]; !ok {
				return failure.New(failure.SchemaViolation, pkg.Name, "the app manifest must specify a buildpack")
			}
		}
		if _, ok := pkg.Manifest["random-route"]; ok {
			return failure.New(failure.SchemaViolation, pkg.Name, "random-route is not supported in the app manifest")
		}
	case TypeDockerApp, TypeDockerAppBroker:
		if pkg.Manifest == nil {
			return failure.New(failure.SchemaViolation, pkg.Name, "%s packages require a manifest", pkg.Type)
		}
		if pkg.Path != "" {
			return failure.New(failure.SchemaViolation, pkg.Name, "%s packages must not specify a path", pkg.Type)
		}
		if _, ok := pkg.Manifest["random-route"]; ok {
			return failure.New(failure.SchemaViolation, pkg.Name, "random-route is not supported in the app manifest")
		}
	case TypeBlob:
		if len(pkg.Files) == 0 && pkg.Path == "" && len(pkg.DockerImages) == 0 {
			return failure.New(failure.SchemaViolation, pkg.Name, "blob packages require files")
		}
	case TypeHelm:
		if pkg.Path == "" {
			return failure.New(failure.SchemaViolation, pkg.Name, "helm packages require a path to a chart directory")
		}
	}
	for _, image := range pkg.DockerImages {
		if _, err := reference.ParseNormalizedNamed(image); err != nil {
			return failure.New(failure.SchemaViolation, pkg.Name, "invalid docker image %q: %s", image, err)
		}
	}
	return nil
}

// canonicalizeFiles folds path, manifest.path and docker_images into files
// and gives every file a name.
func canonicalizeFiles(pkg *Package) error {
	if pkg.Path != "" && pkg.Type != TypeHelm && !hasFile(pkg.Files, pkg.Path) {
		pkg.Files = append(pkg.Files, File{Path: pkg.Path})
	}
	if manifestPath, ok := pkg.Manifest["path"].(string); ok && manifestPath != "" && !hasFile(pkg.Files, manifestPath) {
		pkg.Files = append(pkg.Files, File{Path: manifestPath})
	}
	for _, image := range pkg.DockerImages {
		p := DockerPathPrefix + image
		if hasFile(pkg.Files, p) {
			continue
		}
		name, err := SanitizeImageName(image)
		if err != nil {
			return failure.New(failure.SchemaViolation, pkg.Name, "invalid docker image %q: %s", image, err)
		}
		pkg.Files = append(pkg.Files, File{Path: p, Name: name + ".tgz"})
	}
	for i := range pkg.Files {
		if pkg.Files[i].Name == "" {
			pkg.Files[i].Name = FileBaseName(pkg.Files[i].Path)
		}
	}
	return nil
}

func hasFile(files []File, p string) bool {
	for _, f := range files {
		if f.Path == p {
			return true
		}
	}
	return false
}

// FileBaseName is the default file name for a path, URL or docker image
// reference.
func FileBaseName(p string) string {
	if image, ok := strings.CutPrefix(p, DockerPathPrefix); ok {
		if name, err := SanitizeImageName(image); err == nil {
			return name + ".tgz"
		}
	}
	if u, err := url.Parse(p); err == nil && u.Scheme != "" && u.Host != "" {
		return path.Base(u.Path)
	}
	return path.Base(p)
}

// SanitizeImageName turns an image reference into a string usable as a
// file name. "cfplatformeng/spring-music" becomes
// "cfplatformeng-spring-music-latest".
func SanitizeImageName(image string) (string, error) {
	named, err := reference.ParseNormalizedNamed(image)
	if err != nil {
		return "", err
	}
	familiar := reference.FamiliarString(reference.TagNameOnly(named))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			return r
		}
		return '-'
	}, familiar), nil
}
