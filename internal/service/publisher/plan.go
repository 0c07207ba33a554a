package publisher

import (
	"context"
	"fmt"

	"github.com/oshokin/package2pypi/internal/config"
	"github.com/oshokin/package2pypi/internal/domain/release"
	"github.com/oshokin/package2pypi/internal/logger"
)

// Plan is what a publish run would do, computed without side effects.
type Plan struct {
	Package release.PackageName
	// Current is the newest version on the index.
	Current release.Version
	// Next is the version the run would publish.
	Next release.Version
	// Manifest is the setup.py the run would write.
	Manifest string
}

// Prepare resolves the versions and renders the manifest for opts.PackageName.
// A non-empty nextOverride replaces the computed next version.
func Prepare(ctx context.Context, opts *Options, nextOverride string) (*Plan, error) {
	ctx = logger.WithName(ctx, "planner")

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
	plan := &Plan{Package: name}

	if plan.Current, err = p.index.Latest(ctx, name); err != nil {
		return nil, fmt.Errorf("resolve current version: %w", err)
	}

	if nextOverride != "" {
		plan.Next, err = release.ParseVersion(nextOverride)
	} else {
		plan.Next, err = plan.Current.Next()
	}

	if err != nil {
		return nil, err
	}

	if plan.Manifest, err = p.renderManifest(plan.Next); err != nil {
		return nil, err
	}

	logger.DebugKV(ctx, "Plan prepared", "current", plan.Current, "next", plan.Next)

	return plan, nil
}
