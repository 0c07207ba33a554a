package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields, defaults and format validations.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Missing root.
	require.Error(t, Validate(new(Config)))
	require.Error(t, Validate(nil))

	// Bad index URL.
	cfg := &Config{RootDir: "/srv/packages", IndexURL: "not a url"}
	require.Error(t, Validate(cfg))

	// Interval above timeout.
	cfg = &Config{
		RootDir:     "/srv/packages",
		PublishPoll: Poll{Timeout: time.Second, Interval: time.Minute},
	}
	require.Error(t, Validate(cfg))

	// Empty tool argv.
	cfg = &Config{RootDir: "/srv/packages", Tools: Tools{Pip: []string{" "}}}
	require.Error(t, Validate(cfg))

	// Defaults.
	cfg = &Config{RootDir: "/srv/packages"}
	require.NoError(t, Validate(cfg))
	require.Equal(t, filepath.Join("/srv/packages", TemplateDirName), cfg.TemplateDir)
	require.Equal(t, DefaultPackagePrefix, cfg.PackagePrefix)
	require.Equal(t, DefaultIndexURL, cfg.IndexURL)
	require.Equal(t, Poll{Timeout: time.Minute, Interval: time.Second}, cfg.PublishPoll)
	require.Equal(t, Poll{Timeout: time.Minute, Interval: 3 * time.Second, InitialDelay: 5 * time.Second}, cfg.InstallPoll)
	require.Equal(t, []string{"pip"}, cfg.Tools.Pip)
}

// TestValidate_ExplicitZeroDelay ensures repeated validation keeps a disabled initial delay.
func TestValidate_ExplicitZeroDelay(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		RootDir:     "/srv/packages",
		InstallPoll: Poll{Timeout: time.Second, Interval: 10 * time.Millisecond, InitialDelay: -1},
	}

	require.NoError(t, Validate(cfg))
	require.Zero(t, cfg.InstallPoll.InitialDelay)

	require.NoError(t, Validate(cfg))
	require.Zero(t, cfg.InstallPoll.InitialDelay)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	cfg := &Config{
		RootDir:     dir,
		Credentials: Credentials{Login: "r00ft1h", Password: "secret"},
		Manifest: Manifest{
			ExtraFields: map[string]string{"author": "'Jane Doe'"},
		},
	}

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.RootDir, loaded.RootDir)
	require.Equal(t, cfg.Credentials, loaded.Credentials)
	require.Equal(t, cfg.Manifest.ExtraFields, loaded.Manifest.ExtraFields)
	require.Equal(t, cfg.InstallPoll, loaded.InstallPoll)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(DefaultFilePermissions), info.Mode().Perm())
}

// TestLoad_Missing reports a read error for an absent settings file.
func TestLoad_Missing(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
