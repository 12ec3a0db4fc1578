package release

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/cf-platform-eng/tile-generator/internal/fetcher"
	"github.com/cf-platform-eng/tile-generator/internal/templates"
	"github.com/cf-platform-eng/tile-generator/pkg/product"
)

func (b *Builder) build(ctx context.Context, p *product.Product, release *product.Release) (Tarball, error) {
	b.logf("Building release %s...", release.Name)
	dir := filepath.Join(b.Directory(), release.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Tarball{}, err
	}
	if err := b.run(dir, "init-release"); err != nil {
		return Tarball{}, err
	}
	if err := renderFile(filepath.Join(dir, "config", "final.yml"), templates.ReleaseConfig, templates.Release{
		Name:          release.Name,
		BlobstorePath: filepath.Join(b.Directory(), "blobstore"),
	}); err != nil {
		return Tarball{}, err
	}

	scriptPackages := make([]templates.ScriptPackage, 0, len(release.Packages))
	for _, pkg := range release.Packages {
		file, err := b.addPackage(ctx, dir, pkg)
		if err != nil {
			return Tarball{}, err
		}
		scriptPackages = append(scriptPackages, scriptPackage(pkg, file))
	}
	for _, job := range release.Jobs {
		if err := b.addJob(dir, p, release, job, scriptPackages); err != nil {
			return Tarball{}, err
		}
	}

	if err := b.run(dir, "upload-blobs"); err != nil {
		return Tarball{}, err
	}
	tarballPath := filepath.Join(b.Directory(), fmt.Sprintf("%s-%s.tgz", release.Name, p.Version))
	args := []string{"create-release", "--final", "--tarball", tarballPath, "--version", p.Version}
	if b.SHA2 {
		args = append(args, "--sha2")
	}
	if err := b.run(dir, args...); err != nil {
		return Tarball{}, err
	}
	return inspectTarball(release.Name, tarballPath)
}

// addPackage generates the package directory and registers its blobs. It
// returns the name of the file a run script refers to, the zip for apps
// that had to be zipped.
func (b *Builder) addPackage(ctx context.Context, dir string, pkg *product.Package) (string, error) {
	if err := b.run(dir, "generate-package", pkg.Name); err != nil {
		return "", err
	}

	blobs, chmods, err := b.fetchBlobs(ctx, pkg)
	if err != nil {
		return "", err
	}

	if isCFDeployable(pkg) && len(blobs) > 0 {
		if len(blobs) > 1 || !isArchive(blobs[0].Path) {
			zipped, err := zipBlobs(blobs, filepath.Join(b.downloadDirectory(pkg), "zip", pkg.Name+".zip"))
			if err != nil {
				return "", fmt.Errorf("failed to zip files of %s: %w", pkg.Name, err)
			}
			blobs = []fetcher.Blob{zipped}
		}
	}
	if pkg.IsApp {
		for _, blob := range blobs {
			b.result.LargestAppMiB = max(b.result.LargestAppMiB, int((blob.Size+(1<<20-1))>>20))
		}
		if len(blobs) > 0 {
			b.result.AppManifestPaths[pkg.Name] = path.Base(blobs[0].Name)
		}
	}

	files := make([]templates.PackageFile, 0, len(blobs))
	for _, blob := range blobs {
		destination := path.Join(pkg.Name, blob.Name)
		b.logf("Adding blob %s...", destination)
		if err := b.run(dir, "add-blob", blob.Path, destination); err != nil {
			return "", err
		}
		files = append(files, templates.PackageFile{Path: blob.Name, Chmod: chmods[blob.Path]})
	}

	data := templates.Package{Name: pkg.Name, Files: files}
	packageDir := filepath.Join(dir, "packages", pkg.Name)
	if err := renderFile(filepath.Join(packageDir, "spec"), templates.PackageSpec, data); err != nil {
		return "", err
	}
	if err := renderFile(filepath.Join(packageDir, "packaging"), templates.PackagePackaging, data); err != nil {
		return "", err
	}

	if len(blobs) == 0 {
		return "", nil
	}
	return blobs[0].Name, nil
}

func (b *Builder) downloadDirectory(pkg *product.Package) string {
	return filepath.Join(b.Directory(), "downloads", pkg.Name)
}

// fetchBlobs acquires the files of the package. Helm charts are packed
// from their directory. The returned map holds the chmod of each blob by
// path.
func (b *Builder) fetchBlobs(ctx context.Context, pkg *product.Package) ([]fetcher.Blob, map[string]string, error) {
	directory := b.downloadDirectory(pkg)
	chmods := make(map[string]string)
	var blobs []fetcher.Blob

	if pkg.IsHelm {
		chart := pkg.Path
		if !filepath.IsAbs(chart) {
			chart = filepath.Join(b.Root, chart)
		}
		name := pkg.ChartName + ".tgz"
		destination := filepath.Join(directory, name)
		if err := fetcher.TarDirectory(chart, destination); err != nil {
			return nil, nil, fmt.Errorf("failed to pack chart %s: %w", pkg.Path, err)
		}
		info, err := os.Stat(destination)
		if err != nil {
			return nil, nil, err
		}
		blobs = append(blobs, fetcher.Blob{Name: name, Path: destination, Size: info.Size()})
	}

	if len(pkg.Files) == 0 {
		return blobs, chmods, nil
	}
	results, err := b.Fetcher.FetchAll(ctx, pkg.Files, directory)
	if err != nil {
		return nil, nil, err
	}
	for i, fetched := range results {
		for _, blob := range fetched {
			if chmod := pkg.Files[i].Chmod; chmod != "" {
				chmods[blob.Path] = chmod
			}
			blobs = append(blobs, blob)
		}
	}
	return blobs, chmods, nil
}

func (b *Builder) addJob(dir string, p *product.Product, release *product.Release, job *product.Job, packages []templates.ScriptPackage) error {
	if err := b.run(dir, "generate-job", job.Name); err != nil {
		return err
	}
	template := job.Template
	if template == "" {
		template = job.Name
	}
	script := job.Name + ".sh.erb"

	spec := templates.Job{
		Name:       job.Name,
		Script:     script,
		Packages:   job.Packages,
		Properties: p.JobPropertyNames(release, job.Name),
	}
	if job.Name == product.DeployAllJobName {
		spec.Consumes = links(release.Consumes)
	}

	jobDir := filepath.Join(dir, "jobs", job.Name)
	if err := renderFile(filepath.Join(jobDir, "spec"), templates.JobSpecFile, spec); err != nil {
		return err
	}
	if err := renderFile(filepath.Join(jobDir, "monit"), templates.JobMonit, spec); err != nil {
		return err
	}
	if err := renderFile(filepath.Join(jobDir, "templates", "opsmgr.env.erb"), templates.JobEnvironment, spec); err != nil {
		return err
	}
	return renderFile(filepath.Join(jobDir, "templates", script), templates.JobScript(template), templates.Script{
		Name:     job.Name,
		Packages: packages,
	})
}

func links(consumes map[string]any) []templates.Link {
	names := make([]string, 0, len(consumes))
	for name := range consumes {
		names = append(names, name)
	}
	sort.Strings(names)
	result := make([]templates.Link, 0, len(names))
	for _, name := range names {
		link := templates.Link{Name: name, Type: name}
		if declaration, ok := consumes[name].(map[string]any); ok {
			if t, ok := declaration["type"].(string); ok && t != "" {
				link.Type = t
			}
		}
		result = append(result, link)
	}
	return result
}

func scriptPackage(pkg *product.Package, file string) templates.ScriptPackage {
	sp := templates.ScriptPackage{
		Name:        pkg.Name,
		Env:         templates.EnvName(pkg.CanonicalName()),
		IsApp:       pkg.IsApp,
		IsDocker:    pkg.IsDocker,
		IsBroker:    pkg.IsBroker,
		IsBuildpack: pkg.IsBuildpack,
		IsExternal:  pkg.IsExternalBroker,
		IsHelm:      pkg.IsHelm,
		File:        file,
		ChartName:   pkg.ChartName,
	}
	for _, s := range pkg.AutoServices {
		sp.AutoServices = append(sp.AutoServices, templates.Service{Name: s.Name, Plan: s.Plan})
	}
	return sp
}

// isCFDeployable is true for packages pushed to Cloud Foundry from a
// single archive.
func isCFDeployable(pkg *product.Package) bool {
	return pkg.IsCF && !pkg.IsDocker && (pkg.IsApp || pkg.IsBuildpack)
}

func isArchive(p string) bool {
	ok, err := fetcher.IsArchive(p)
	return err == nil && ok
}

func renderFile(filePath, id string, data any) error {
	buf, err := templates.Render(id, data)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(filePath, buf, 0o644)
}
