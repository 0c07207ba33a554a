package manifest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/package2pypi/internal/domain/release"
	"github.com/oshokin/package2pypi/internal/logger"
)

const (
	// LicenseFile is copied verbatim.
	LicenseFile = "LICENSE.txt"
	// ReadmeFile is copied with NameToken replaced.
	ReadmeFile = "README.rst"
	// SetupFile receives the rendered manifest.
	SetupFile = "setup.py"
	// DistDir receives the build tool's archives.
	DistDir = "dist"

	fileMode os.FileMode = 0o644
)

var (
	// ErrPackageNotFound is returned when the package directory does not exist.
	ErrPackageNotFound = errors.New("package directory not found")
	// ErrTemplateMissing is returned when the template directory or a template file is absent.
	ErrTemplateMissing = errors.New("template not found")
	// ErrPlaceholderMissing is returned when the readme template lacks NameToken.
	ErrPlaceholderMissing = errors.New("placeholder not found in readme template")
)

// StageOptions describe one staging step.
type StageOptions struct {
	TemplateDir string
	PackageDir  string
	Name        release.PackageName
	// Manifest is the rendered setup.py.
	Manifest string
}

// templateFiles are required in the template directory.
//
//nolint:gochecknoglobals // Fixed layout contract.
var templateFiles = []string{LicenseFile, ReadmeFile, SetupFile}

// Stage populates the package directory with license, readme and manifest
// and empties its dist directory. Every precondition is checked first.
func Stage(ctx context.Context, opts StageOptions) error {
	readme, err := checkPreconditions(opts)
	if err != nil {
		return err
	}

	removed, err := CleanDist(opts.PackageDir)
	if err != nil {
		return err
	}

	logger.DebugKV(ctx, "Cleaned distribution directory", "removed", removed)

	license, err := os.ReadFile(filepath.Join(opts.TemplateDir, LicenseFile))
	if err != nil {
		return fmt.Errorf("read license template: %w", err)
	}

	readme = strings.ReplaceAll(readme, NameToken, opts.Name.String())

	for name, contents := range map[string]string{
		LicenseFile: string(license),
		ReadmeFile:  readme,
		SetupFile:   opts.Manifest,
	} {
		target := filepath.Join(opts.PackageDir, name)
		if err = os.WriteFile(target, []byte(contents), fileMode); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}

		logger.DebugKV(ctx, "Staged file", "path", target)
	}

	return nil
}

// Check validates the layout without writing anything.
func Check(opts StageOptions) error {
	_, err := checkPreconditions(opts)

	return err
}

// checkPreconditions validates the layout and returns the readme template.
func checkPreconditions(opts StageOptions) (string, error) {
	if !isDir(opts.PackageDir) {
		return "", fmt.Errorf("%s: %w", opts.PackageDir, ErrPackageNotFound)
	}

	if !isDir(opts.TemplateDir) {
		return "", fmt.Errorf("template dir %s: %w", opts.TemplateDir, ErrTemplateMissing)
	}

	for _, name := range templateFiles {
		path := filepath.Join(opts.TemplateDir, name)
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			return "", fmt.Errorf("template file %s: %w", path, ErrTemplateMissing)
		}
	}

	readme, err := os.ReadFile(filepath.Join(opts.TemplateDir, ReadmeFile))
	if err != nil {
		return "", fmt.Errorf("read readme template: %w", err)
	}

	if !strings.Contains(string(readme), NameToken) {
		return "", fmt.Errorf("%s in %s: %w", NameToken, ReadmeFile, ErrPlaceholderMissing)
	}

	return string(readme), nil
}

// CleanDist deletes every file in <packageDir>/dist and returns how many
// were removed. A missing dist directory is not an error.
func CleanDist(packageDir string) (int, error) {
	dist := filepath.Join(packageDir, DistDir)

	entries, err := os.ReadDir(dist)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}

	if err != nil {
		return 0, fmt.Errorf("list %s: %w", dist, err)
	}

	removed := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if err = os.Remove(filepath.Join(dist, entry.Name())); err != nil {
			return removed, fmt.Errorf("remove old archive: %w", err)
		}

		removed++
	}

	return removed, nil
}

// LoadTemplate reads <templateDir>/setup.py for rendering.
func LoadTemplate(templateDir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(templateDir, SetupFile))
	if err != nil {
		return "", fmt.Errorf("read manifest template: %w", err)
	}

	return string(data), nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}
