// Package templates renders the files written into release directories and
// new tile projects. Templates are identified by their path below files/.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"strings"
	"text/template"

	"github.com/masterminds/sprig"
)

//go:embed files
var files embed.FS

const (
	ReleaseConfig    = "config/final.yml"
	PackageSpec      = "packages/spec"
	PackagePackaging = "packages/packaging"
	JobSpecFile      = "jobs/spec"
	JobMonit         = "jobs/monit"
	JobEnvironment   = "jobs/opsmgr.env.erb"
	TileManifest     = "init/tile.yml"
	GitIgnore        = "init/gitignore"
)

// JobScript is the id of the run script template for a generated job.
func JobScript(template string) string { return "jobs/" + template + ".sh.erb" }

// Render executes the template id with data.
func Render(id string, data any) ([]byte, error) {
	src, err := files.ReadFile(path.Join("files", id))
	if err != nil {
		return nil, fmt.Errorf("unknown template %q: %w", id, err)
	}
	t, err := Funcs(template.New(id)).Option("missingkey=error").Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", id, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render template %s: %w", id, err)
	}
	return buf.Bytes(), nil
}

// IDs lists every template.
func IDs() ([]string, error) {
	var ids []string
	err := fs.WalkDir(files, "files", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		ids = append(ids, strings.TrimPrefix(p, "files/"))
		return nil
	})
	return ids, err
}

func Funcs(t *template.Template) *template.Template {
	return t.Funcs(sprig.TxtFuncMap()).Funcs(template.FuncMap{
		"envName": EnvName,
	})
}

var notEnvCharacter = regexp.MustCompile(`[^A-Z0-9_]`)

// EnvName maps a job property name like "cf.admin_user" to the variable
// opsmgr.env exports it as.
func EnvName(property string) string {
	return notEnvCharacter.ReplaceAllString(strings.ToUpper(property), "_")
}

type Release struct {
	Name          string
	BlobstorePath string
}

type Package struct {
	Name         string
	Dependencies []string
	Files        []PackageFile
}

type PackageFile struct {
	// Path is relative to the package blob directory.
	Path  string
	Chmod string
}

type Job struct {
	Name string
	// Script is the file name of the run script below templates/.
	Script     string
	Packages   []string
	Properties []string
	Consumes   []Link
}

type Link struct {
	Name string
	Type string
}

// Script is the data for a job run script.
type Script struct {
	Name     string
	Packages []ScriptPackage
}

type ScriptPackage struct {
	Name string
	// Env is the prefix of the variables holding the package property bag.
	Env          string
	IsApp        bool
	IsDocker     bool
	IsBroker     bool
	IsBuildpack  bool
	IsExternal   bool
	IsHelm       bool
	File         string
	ChartName    string
	AutoServices []Service
}

type Service struct {
	Name string
	Plan string
}

type Tile struct {
	Name string
}
