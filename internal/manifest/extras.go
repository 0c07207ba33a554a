package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// PackageSettingsFile holds per-package manifest settings.
const PackageSettingsFile = "publish.toml"

// packageSettings is the layout of publish.toml:
//
//	[extra_fields]
//	package_data = "{'': ['*.txt']}"
type packageSettings struct {
	ExtraFields map[string]string `toml:"extra_fields"`
}

// LoadPackageExtras reads extra setup() fields from <packageDir>/publish.toml.
// A missing file yields no extras.
func LoadPackageExtras(packageDir string) (map[string]string, error) {
	data, err := os.ReadFile(filepath.Join(packageDir, PackageSettingsFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("read %s: %w", PackageSettingsFile, err)
	}

	var settings packageSettings
	if err = toml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parse %s: %w", PackageSettingsFile, err)
	}

	return settings.ExtraFields, nil
}
