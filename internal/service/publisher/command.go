package publisher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/oshokin/package2pypi/internal/config"
	"github.com/oshokin/package2pypi/internal/domain/release"
	"github.com/oshokin/package2pypi/internal/index"
	"github.com/oshokin/package2pypi/internal/logger"
	"github.com/oshokin/package2pypi/internal/manifest"
	"github.com/oshokin/package2pypi/internal/poll"
	"github.com/oshokin/package2pypi/internal/process"
	"github.com/oshokin/package2pypi/internal/repository/marker"
	"github.com/oshokin/package2pypi/internal/version"
)

var (
	// ErrToolFailed is returned when the build or upload tool exits non-zero.
	ErrToolFailed = errors.New("external tool failed")
	// ErrNoArchives is returned when the build produced nothing to upload.
	ErrNoArchives = errors.New("no archives to upload")
	// ErrIndexNotConverged is returned when the index never lists the new version.
	ErrIndexNotConverged = errors.New("index did not list the new version in time")
	// ErrInstallNotConverged is returned when the install tool never installs the new version.
	ErrInstallNotConverged = errors.New("install tool did not install the new version in time")
	// ErrVersionMismatch is returned when the installed version differs from the published one.
	ErrVersionMismatch = errors.New("installed version differs from published version")

	errConfigRequired = errors.New("configuration is required")
)

// VersionSource resolves the newest published version of a package.
type VersionSource interface {
	Latest(ctx context.Context, name release.PackageName) (release.Version, error)
}

// Options are inputs accepted by the publisher entry point.
type Options struct {
	// Config carries paths, credentials, poll bounds and tool argv.
	Config *config.Config
	// PackageName is operator input; it is normalized before use.
	PackageName string
	// Notifier receives status updates. Optional.
	Notifier Notifier
	// Runner executes external tools. Defaults to process.ExecRunner.
	Runner process.Runner
	// Index resolves published versions. Defaults to an index.Client for Config.IndexURL.
	Index VersionSource
	// Marker guards the package directory. Defaults to a marker.FileMarker.
	Marker marker.Marker
}

// publisher holds the state of a single run.
// It is unexported; callers use Run.
type publisher struct {
	cfg        *config.Config
	name       release.PackageName
	packageDir string
	notifier   Notifier
	runner     process.Runner
	index      VersionSource
	marker     marker.Marker
	attempt    *release.Attempt
	// reported is set once a failure status was already shown to the operator.
	reported bool
}

// Run publishes one package and returns what the run observed. The attempt
// is returned even on failure; its State is then release.StateFailed.
func Run(ctx context.Context, opts *Options) (*release.Attempt, error) {
	ctx = logger.WithName(ctx, "publisher")

	if opts == nil || opts.Config == nil {
		return nil, errConfigRequired
	}

	if err := config.Validate(opts.Config); err != nil {
		return nil, err
	}

	name, err := release.NormalizeName(opts.PackageName, opts.Config.PackagePrefix)
	if err != nil {
		return nil, err
	}

	ctx = logger.WithKV(ctx, "package", name)

	p := newPublisher(opts, name)

	if err = p.run(ctx); err != nil {
		logger.ErrorKV(ctx, "Publish run failed", "state", p.attempt.State, "error", err)
		return p.attempt, err
	}

	logger.InfoKV(ctx, "Publish run completed",
		"version", p.attempt.PublishedVersion, "duration", p.attempt.Duration())

	return p.attempt, nil
}

// newPublisher fills defaults for every optional collaborator.
func newPublisher(opts *Options, name release.PackageName) *publisher {
	cfg := opts.Config
	packageDir := cfg.PackageDir(name.String())

	p := &publisher{
		cfg:        cfg,
		name:       name,
		packageDir: packageDir,
		notifier:   opts.Notifier,
		runner:     opts.Runner,
		index:      opts.Index,
		marker:     opts.Marker,
		attempt:    &release.Attempt{Package: name, State: release.StateIdle},
	}

	if p.notifier == nil {
		p.notifier = nopNotifier{}
	}

	if p.runner == nil {
		p.runner = process.NewExecRunner()
	}

	if p.index == nil {
		p.index = index.NewClient(
			index.WithBaseURL(cfg.IndexURL),
			index.WithTimeout(cfg.Timeout),
			index.WithUserAgent(version.UserAgent()),
		)
	}

	if p.marker == nil {
		p.marker = marker.NewFileMarker(packageDir)
	}

	return p
}

// run walks the state machine and records the terminal state.
func (p *publisher) run(ctx context.Context) (err error) {
	p.attempt.StartedAt = time.Now()

	defer func() {
		p.attempt.FinishedAt = time.Now()

		if err != nil {
			p.fail(ctx, err)
		}
	}()

	p.transition(ctx, release.StateStaging, "Staging "+p.name.String()+"...")

	if err = p.ensurePackageDir(); err != nil {
		return err
	}

	if err = p.marker.Acquire(ctx); err != nil {
		return err
	}

	defer func() {
		if releaseErr := p.marker.Release(ctx); releaseErr != nil {
			logger.WarnKV(ctx, "Unable to release publish marker", "error", releaseErr)
		}
	}()

	steps := []func(context.Context) error{
		p.stage,
		p.build,
		p.publish,
		p.awaitIndex,
		p.awaitInstall,
		p.verify,
	}

	for _, step := range steps {
		if err = step(ctx); err != nil {
			return err
		}
	}

	return nil
}

// ensurePackageDir fails early for unknown packages, before a marker is written.
func (p *publisher) ensurePackageDir() error {
	info, err := os.Stat(p.packageDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%s: %w", p.packageDir, manifest.ErrPackageNotFound)
	}

	return nil
}

// stage checks the template layout, resolves the next version and writes
// the packaging files.
func (p *publisher) stage(ctx context.Context) error {
	stageOpts := manifest.StageOptions{
		TemplateDir: p.cfg.TemplateDir,
		PackageDir:  p.packageDir,
		Name:        p.name,
	}

	if err := manifest.Check(stageOpts); err != nil {
		return err
	}

	current, err := p.index.Latest(ctx, p.name)
	if err != nil {
		return fmt.Errorf("resolve current version: %w", err)
	}

	next, err := current.Next()
	if err != nil {
		return err
	}

	p.attempt.NextVersion = next
	p.notify(ctx, "Next version: "+next.String())

	stageOpts.Manifest, err = p.renderManifest(next)
	if err != nil {
		return err
	}

	if err = manifest.Stage(ctx, stageOpts); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Package staged", "current", current, "next", next, "dir", p.packageDir)

	return nil
}

// renderManifest renders setup.py with global and package-level extras.
func (p *publisher) renderManifest(next release.Version) (string, error) {
	local, err := manifest.LoadPackageExtras(p.packageDir)
	if err != nil {
		return "", err
	}

	tpl := manifest.DefaultTemplate
	if p.cfg.Manifest.FromTemplate {
		if tpl, err = manifest.LoadTemplate(p.cfg.TemplateDir); err != nil {
			return "", err
		}
	}

	return manifest.RenderTemplate(tpl, manifest.Descriptor{
		Name:        p.name,
		Version:     next,
		ExtraFields: manifest.MergeExtras(p.cfg.Manifest.ExtraFields, local),
	})
}

// build produces the source distribution.
func (p *publisher) build(ctx context.Context) error {
	p.transition(ctx, release.StateBuilding, "Building...")

	res, err := p.runTool(ctx, p.buildCommand())
	if res != nil {
		p.attempt.BuildOutput = res.Output
	}

	return err
}

// publish records the version before upload and uploads the archives.
func (p *publisher) publish(ctx context.Context) error {
	p.transition(ctx, release.StatePublishing, "Uploading to index...")

	old, err := p.index.Latest(ctx, p.name)
	if err != nil {
		return fmt.Errorf("resolve version before upload: %w", err)
	}

	p.attempt.OldVersion = old

	archives, err := FindArchives(p.packageDir)
	if err != nil {
		return err
	}

	if len(archives) == 0 {
		return fmt.Errorf("%s: %w", p.packageDir, ErrNoArchives)
	}

	logger.InfoKV(ctx, "Uploading archives", "archives", archives, "previous", old)

	res, err := p.runTool(ctx, p.uploadCommand(archives))
	if res != nil {
		p.attempt.UploadOutput = res.Output
	}

	return err
}

// awaitIndex polls the index until its newest version is newer than the
// one recorded before the upload. An older reading, such as the baseline
// returned for a failed request, counts as "not yet".
func (p *publisher) awaitIndex(ctx context.Context) error {
	p.transition(ctx, release.StateAwaitingIndexConvergence, "Waiting for the index...")

	old := p.attempt.OldVersion

	outcome, err := poll.Until(ctx,
		func(ctx context.Context) (release.Version, error) {
			return p.index.Latest(ctx, p.name)
		},
		func(v release.Version) bool {
			return v.Compare(old) > 0
		},
		poll.Options{
			Timeout:      p.cfg.PublishPoll.Timeout,
			Interval:     p.cfg.PublishPoll.Interval,
			InitialDelay: p.cfg.PublishPoll.InitialDelay,
		},
	)
	if err != nil {
		return fmt.Errorf("poll index: %w", err)
	}

	if !outcome.Success {
		p.report(ctx, "ERROR upload: "+outcome.Value.String())
		return fmt.Errorf("%w: last seen %s after %d attempts", ErrIndexNotConverged, outcome.Value, outcome.Attempts)
	}

	p.attempt.PublishedVersion = outcome.Value

	if !outcome.Value.Equal(p.attempt.NextVersion) {
		logger.WarnKV(ctx, "Index lists a different version than the one built",
			"built", p.attempt.NextVersion, "listed", outcome.Value)
	}

	logger.InfoKV(ctx, "Index lists the new version", "version", outcome.Value, "attempts", outcome.Attempts)

	return nil
}

// awaitInstall reinstalls the published version until the install tool
// reports success. Failed install attempts are logged and retried: the
// index often lists a release before its files propagate to mirrors.
func (p *publisher) awaitInstall(ctx context.Context) error {
	p.transition(ctx, release.StateReinstalling, "Reinstalling package...")

	target := p.attempt.PublishedVersion
	successLine := fmt.Sprintf("Successfully installed %s-%s", p.name, target)

	p.attempt.State = release.StateAwaitingInstallConvergence

	outcome, err := poll.Until(ctx,
		func(ctx context.Context) (string, error) {
			return p.install(ctx, target)
		},
		func(output string) bool {
			return strings.Contains(output, successLine)
		},
		poll.Options{
			Timeout:         p.cfg.InstallPoll.Timeout,
			Interval:        p.cfg.InstallPoll.Interval,
			InitialDelay:    p.cfg.InstallPoll.InitialDelay,
			ContinueOnError: true,
			OnError: func(attempt int, err error) {
				logger.ErrorKV(ctx, "Install attempt failed", "attempt", attempt, "error", err)
			},
		},
	)

	p.attempt.InstallOutput = outcome.Value

	if err != nil {
		return fmt.Errorf("poll install: %w", err)
	}

	if !outcome.Success {
		p.report(ctx, "ERROR install upgrade: "+target.String())
		return fmt.Errorf("%w: %s after %d attempts", ErrInstallNotConverged, target, outcome.Attempts)
	}

	logger.InfoKV(ctx, "New version installed", "version", target, "attempts", outcome.Attempts)

	return nil
}

// verify compares the installed version with the published one, once.
func (p *publisher) verify(ctx context.Context) error {
	p.transition(ctx, release.StateVerifying, "Verifying...")

	expected := p.attempt.PublishedVersion

	installed, err := p.show(ctx)
	if err != nil {
		return err
	}

	p.attempt.InstalledVersion = installed

	if !sameVersion(installed, expected) {
		p.report(ctx, "ERROR! Version: "+expected.String())
		return fmt.Errorf("%w: installed %q, published %s", ErrVersionMismatch, installed, expected)
	}

	p.transition(ctx, release.StateSuccess, "Success! Version: "+expected.String())

	return nil
}

// transition moves the state machine and notifies the operator.
func (p *publisher) transition(ctx context.Context, state release.State, message string) {
	p.attempt.State = state
	p.notify(ctx, message)
}

// notify reports message in the current state.
func (p *publisher) notify(ctx context.Context, message string) {
	logger.InfoKV(ctx, message, "state", p.attempt.State)
	p.notifier.Notify(ctx, release.Status{State: p.attempt.State, Message: message})
}

// report shows a failure message and marks the run failed.
func (p *publisher) report(ctx context.Context, message string) {
	p.attempt.State = release.StateFailed
	p.reported = true
	p.notify(ctx, message)
}

// fail marks the run failed, notifying unless a specific message was shown.
func (p *publisher) fail(ctx context.Context, err error) {
	if p.reported {
		p.attempt.State = release.StateFailed
		return
	}

	p.report(ctx, "ERROR: "+err.Error())
}

// sameVersion compares numerically when both sides parse, textually otherwise.
func sameVersion(installed string, expected release.Version) bool {
	v, err := release.ParseVersion(installed)
	if err != nil {
		return installed == expected.String()
	}

	return v.Equal(expected)
}
