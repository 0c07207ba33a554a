package release

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// PackageName is a lower-cased index name that carries the required prefix.
// It is also the name of the package directory under the packages root.
type PackageName string

var (
	// ErrEmptyName is returned for blank operator input.
	ErrEmptyName = errors.New("package name is empty")
	// ErrInvalidName is returned for names that cannot be a directory or index entry.
	ErrInvalidName = errors.New("invalid package name")
)

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// NormalizeName trims and lower-cases raw and prepends prefix when it is missing.
func NormalizeName(raw, prefix string) (PackageName, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return "", ErrEmptyName
	}

	prefix = strings.ToLower(prefix)
	if !strings.HasPrefix(name, prefix) {
		name = prefix + name
	}

	if !namePattern.MatchString(name) {
		return "", fmt.Errorf("%q: %w", name, ErrInvalidName)
	}

	return PackageName(name), nil
}

// String returns the name as stored on the index.
func (n PackageName) String() string {
	return string(n)
}
