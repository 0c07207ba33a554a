package manifest

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/oshokin/package2pypi/internal/domain/release"
)

const (
	// NameToken is replaced with the package name.
	NameToken = "__dirname__"
	// VersionToken is replaced with the version.
	VersionToken = "__version__"
	// ExtraToken marks the line that receives extra setup() arguments.
	ExtraToken = "__extra__"

	// extraSeparator joins extra key=value pairs inside setup().
	extraSeparator = ",\n    "
)

// DefaultTemplate is the built-in setup.py.
const DefaultTemplate = `from setuptools import setup, find_packages
from os.path import join, dirname

setup(
    name='__dirname__',
    version='__version__',
    license='MIT',
    packages=find_packages(),
    long_description=open(join(dirname(__file__), 'README.rst')).read(),
    __extra__,
)
`

// ErrTokenMissing is returned for templates lacking a substitution token.
var ErrTokenMissing = errors.New("template token missing")

// Descriptor is the content of one rendered setup.py.
type Descriptor struct {
	Name    release.PackageName
	Version release.Version
	// ExtraFields maps setup() keyword names to literal Python expressions.
	ExtraFields map[string]string
}

// Render renders d with DefaultTemplate.
func Render(d Descriptor) (string, error) {
	return RenderTemplate(DefaultTemplate, d)
}

// RenderTemplate substitutes the name and version tokens of tpl. Extra
// fields replace the insertion point in key order, so a template carrying
// extras must have one; without extras the insertion line is removed entirely.
func RenderTemplate(tpl string, d Descriptor) (string, error) {
	for _, token := range []string{NameToken, VersionToken} {
		if !strings.Contains(tpl, token) {
			return "", fmt.Errorf("%s: %w", token, ErrTokenMissing)
		}
	}

	if len(d.ExtraFields) > 0 && !strings.Contains(tpl, ExtraToken) {
		return "", fmt.Errorf("%s required by %d extra fields: %w", ExtraToken, len(d.ExtraFields), ErrTokenMissing)
	}

	out := expandExtras(tpl, d.ExtraFields)
	out = strings.ReplaceAll(out, NameToken, d.Name.String())
	out = strings.ReplaceAll(out, VersionToken, d.Version.String())

	return out, nil
}

// expandExtras fills or drops the insertion point.
func expandExtras(tpl string, extras map[string]string) string {
	if len(extras) > 0 {
		pairs := make([]string, 0, len(extras))
		for _, key := range slices.Sorted(maps.Keys(extras)) {
			pairs = append(pairs, key+"="+extras[key])
		}

		return strings.Replace(tpl, ExtraToken, strings.Join(pairs, extraSeparator), 1)
	}

	lines := strings.SplitAfter(tpl, "\n")
	kept := lines[:0]

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == ExtraToken || trimmed == ExtraToken+"," {
			continue
		}

		kept = append(kept, line)
	}

	return strings.ReplaceAll(strings.Join(kept, ""), ExtraToken, "")
}

// MergeExtras overlays package-level fields on global ones.
func MergeExtras(global, local map[string]string) map[string]string {
	merged := make(map[string]string, len(global)+len(local))
	maps.Copy(merged, global)
	maps.Copy(merged, local)

	return merged
}
