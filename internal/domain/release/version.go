package release

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

// Version is a dotted numeric release number such as "1.2".
// Components compare numerically; missing trailing components count as zero.
type Version struct {
	raw   string
	parts []int
}

// versionStep is added by Next.
const versionStep = 0.1

var (
	// ErrInvalidVersion is returned for strings that are not dotted numbers.
	ErrInvalidVersion = errors.New("invalid version")
	// ErrUnsupportedScheme is returned by Next for versions with more than one dot.
	ErrUnsupportedScheme = errors.New("version scheme does not support single-decimal increments")
)

// Baseline is the version reported for packages the index does not know.
//
//nolint:gochecknoglobals // Immutable sentinel value.
var Baseline = Version{raw: "0.0", parts: []int{0, 0}}

// ParseVersion parses a dotted numeric version.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Version{}, fmt.Errorf("empty string: %w", ErrInvalidVersion)
	}

	fields := strings.Split(s, ".")
	parts := make([]int, 0, len(fields))

	for _, field := range fields {
		if field == "" || strings.TrimLeft(field, "0123456789") != "" {
			return Version{}, fmt.Errorf("%q: %w", s, ErrInvalidVersion)
		}

		n, err := strconv.Atoi(field)
		if err != nil {
			return Version{}, fmt.Errorf("%q: %w", s, ErrInvalidVersion)
		}

		parts = append(parts, n)
	}

	return Version{raw: s, parts: parts}, nil
}

// MustParseVersion is ParseVersion for literals known to be valid.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}

	return v
}

// String returns the version as it was written.
func (v Version) String() string {
	return v.raw
}

// IsZero reports whether v is the zero value rather than a parsed version.
func (v Version) IsZero() bool {
	return v.raw == ""
}

// Compare returns -1, 0 or 1 as v is older than, equal to or newer than other.
func (v Version) Compare(other Version) int {
	n := max(len(v.parts), len(other.parts))

	for i := range n {
		if c := cmp.Compare(v.component(i), other.component(i)); c != 0 {
			return c
		}
	}

	return 0
}

// Equal reports whether both versions denote the same release.
func (v Version) Equal(other Version) bool {
	return v.Compare(other) == 0
}

// Next returns v plus 0.1 rounded to one decimal ("1.2" -> "1.3", "1.9" -> "2.0").
// Only "N" and "N.M" versions can be incremented, and only when the result
// orders after v: "1.10" would become "1.2" and is rejected.
func (v Version) Next() (Version, error) {
	if v.IsZero() {
		v = Baseline
	}

	if len(v.parts) > 2 {
		return Version{}, fmt.Errorf("%s: %w", v.raw, ErrUnsupportedScheme)
	}

	current, err := strconv.ParseFloat(v.raw, 64)
	if err != nil {
		return Version{}, fmt.Errorf("%s: %w", v.raw, ErrInvalidVersion)
	}

	rounded := math.Round((current+versionStep)*10) / 10

	next, err := ParseVersion(strconv.FormatFloat(rounded, 'f', 1, 64))
	if err != nil {
		return Version{}, err
	}

	if next.Compare(v) <= 0 {
		return Version{}, fmt.Errorf("%s: next %s is not newer: %w", v.raw, next, ErrUnsupportedScheme)
	}

	return next, nil
}

func (v Version) component(i int) int {
	if i < len(v.parts) {
		return v.parts[i]
	}

	return 0
}

// Latest returns the newest of versions, or Baseline for an empty set.
func Latest(versions []Version) Version {
	if len(versions) == 0 {
		return Baseline
	}

	return slices.MaxFunc(versions, Version.Compare)
}

// Sort orders versions from oldest to newest in place.
func Sort(versions []Version) {
	slices.SortStableFunc(versions, Version.Compare)
}
