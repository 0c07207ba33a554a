package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything a publish run needs, sourced once at process start.
type Config struct {
	// RootDir contains one subdirectory per package plus the template directory.
	RootDir string `yaml:"root_dir"`
	// TemplateDir holds LICENSE.txt, README.rst and setup.py templates.
	// Defaults to <root_dir>/_template.
	TemplateDir string `yaml:"template_dir,omitempty"`
	// PackagePrefix is prepended to package names that lack it.
	PackagePrefix string `yaml:"package_prefix"`
	// IndexURL is the base of the index JSON API, e.g. https://pypi.org/pypi.
	IndexURL string `yaml:"index_url"`
	// Timeout bounds a single index request.
	Timeout time.Duration `yaml:"timeout"`
	// Credentials are passed to the upload tool.
	Credentials Credentials `yaml:"credentials"`
	// PublishPoll controls waiting for the index to list the new version.
	PublishPoll Poll `yaml:"publish_poll"`
	// InstallPoll controls waiting for the install tool to pick the new version up.
	InstallPoll Poll `yaml:"install_poll"`
	// Tools configures the external build, upload and install commands.
	Tools Tools `yaml:"tools"`
	// Manifest configures setup.py generation.
	Manifest Manifest `yaml:"manifest"`
	// LogLevel is the minimum level of console log entries.
	LogLevel string `yaml:"log_level,omitempty"`
}

// Credentials are the index account used for uploads.
type Credentials struct {
	Login    string `yaml:"login"`
	Password string `yaml:"password"`
}

// Poll bounds a convergence loop.
type Poll struct {
	Timeout      time.Duration `yaml:"timeout"`
	Interval     time.Duration `yaml:"interval"`
	InitialDelay time.Duration `yaml:"initial_delay,omitempty"`
}

// Tools lists argv prefixes of the external commands.
type Tools struct {
	Python []string `yaml:"python"`
	Twine  []string `yaml:"twine"`
	Pip    []string `yaml:"pip"`
	// IgnoreExitCodes lets a failing build or upload continue to the
	// convergence poll instead of failing the run.
	IgnoreExitCodes bool `yaml:"ignore_exit_codes,omitempty"`
}

// Manifest configures setup.py rendering.
type Manifest struct {
	// FromTemplate renders <template_dir>/setup.py instead of the built-in template.
	FromTemplate bool `yaml:"from_template,omitempty"`
	// ExtraFields are literal setup() keyword arguments added to every package.
	ExtraFields map[string]string `yaml:"extra_fields,omitempty"`
}

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "package2pypi-settings.yaml"

	// TemplateDirName is the shared template directory under the root.
	TemplateDirName = "_template"

	// DefaultPackagePrefix is required at the start of every package name.
	DefaultPackagePrefix = "r00"

	// DefaultIndexURL is the PyPI JSON API base.
	DefaultIndexURL = "https://pypi.org/pypi"

	// DefaultTimeout bounds a single index request.
	DefaultTimeout = 10 * time.Second

	// DefaultFilePermissions is used for settings and generated files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errRootDirRequired is returned when the packages root is missing.
	errRootDirRequired = errors.New("root_dir must be provided")
	// errEmptyTool is returned when a tool argv is configured but empty.
	errEmptyTool = errors.New("tool command must not be empty")
	// errBadPoll is returned when a poll would never observe twice.
	errBadPoll = errors.New("poll interval must not exceed timeout")
)

// Load reads configuration from the provided path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err = yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Settings carry the index password.
	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and fills defaults in place.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if strings.TrimSpace(cfg.RootDir) == "" {
		return errRootDirRequired
	}

	applyDefaults(cfg)

	if _, err := url.ParseRequestURI(cfg.IndexURL); err != nil {
		return fmt.Errorf("invalid index url: %w", err)
	}

	for name, argv := range map[string][]string{
		"python": cfg.Tools.Python,
		"twine":  cfg.Tools.Twine,
		"pip":    cfg.Tools.Pip,
	} {
		if strings.TrimSpace(argv[0]) == "" {
			return fmt.Errorf("%s: %w", name, errEmptyTool)
		}
	}

	for name, poll := range map[string]Poll{
		"publish_poll": cfg.PublishPoll,
		"install_poll": cfg.InstallPoll,
	} {
		if poll.Interval > poll.Timeout {
			return fmt.Errorf("%s: %w", name, errBadPoll)
		}
	}

	return nil
}

// PackageDir returns the working directory of the named package.
func (c *Config) PackageDir(name string) string {
	return filepath.Join(c.RootDir, name)
}

// applyDefaults fills every zero-valued optional field.
func applyDefaults(cfg *Config) {
	if cfg.TemplateDir == "" && cfg.RootDir != "" {
		cfg.TemplateDir = filepath.Join(cfg.RootDir, TemplateDirName)
	}

	if cfg.PackagePrefix == "" {
		cfg.PackagePrefix = DefaultPackagePrefix
	}

	if cfg.IndexURL == "" {
		cfg.IndexURL = DefaultIndexURL
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	defaultPoll(&cfg.PublishPoll, 60*time.Second, time.Second, 0)
	defaultPoll(&cfg.InstallPoll, 60*time.Second, 3*time.Second, 5*time.Second)

	if len(cfg.Tools.Python) == 0 {
		cfg.Tools.Python = []string{"python"}
	}

	if len(cfg.Tools.Twine) == 0 {
		cfg.Tools.Twine = []string{"twine"}
	}

	if len(cfg.Tools.Pip) == 0 {
		cfg.Tools.Pip = []string{"pip"}
	}
}

// defaultPoll fills a zero Poll completely; a partially set one keeps its
// initial delay so that an explicit zero survives repeated validation.
func defaultPoll(p *Poll, timeout, interval, initialDelay time.Duration) {
	if *p == (Poll{}) {
		*p = Poll{Timeout: timeout, Interval: interval, InitialDelay: initialDelay}

		return
	}

	if p.Timeout <= 0 {
		p.Timeout = timeout
	}

	if p.Interval <= 0 {
		p.Interval = interval
	}

	if p.InitialDelay < 0 {
		p.InitialDelay = 0
	}
}
