package publisher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/oshokin/package2pypi/internal/domain/release"
	"github.com/oshokin/package2pypi/internal/logger"
	"github.com/oshokin/package2pypi/internal/manifest"
	"github.com/oshokin/package2pypi/internal/process"
)

var (
	errInstallExit    = errors.New("install command failed")
	errVersionMissing = errors.New("no Version field in show output")
)

// archivePattern selects what the upload tool receives.
const archivePattern = manifest.DistDir + "/*"

// buildCommand is `<python> setup.py sdist` in the package directory.
func (p *publisher) buildCommand() process.Command {
	cmd := process.NewCommand(p.cfg.Tools.Python, manifest.SetupFile, "sdist")
	cmd.Dir = p.packageDir

	return cmd
}

// uploadCommand is `<twine> upload -u <login> -p <password> --verbose <archives>`.
func (p *publisher) uploadCommand(archives []string) process.Command {
	creds := p.cfg.Credentials

	args := append([]string{"upload", "-u", creds.Login, "-p", creds.Password, "--verbose"}, archives...)

	cmd := process.NewCommand(p.cfg.Tools.Twine, args...)
	cmd.Dir = p.packageDir
	cmd.Secrets = []string{creds.Password}

	return cmd
}

// runTool runs a build or upload command. A non-zero exit fails the run
// unless the configuration asks to ignore exit codes.
func (p *publisher) runTool(ctx context.Context, cmd process.Command) (*process.Result, error) {
	logger.DebugKV(ctx, "Running tool", "command", cmd.String())

	res, err := p.runner.Run(ctx, cmd)
	if err != nil {
		return res, err
	}

	logger.DebugKV(ctx, "Tool finished", "command", cmd.Name, "exit_code", res.ExitCode, "output", res.Output)

	if res.Success() {
		return res, nil
	}

	if p.cfg.Tools.IgnoreExitCodes {
		logger.WarnKV(ctx, "Tool failed, continuing as configured",
			"command", cmd.Name, "exit_code", res.ExitCode)

		return res, nil
	}

	return res, fmt.Errorf("%s exited with %d: %w\n%s", cmd.Name, res.ExitCode, ErrToolFailed, tail(res.Output))
}

// install runs `<pip> install --upgrade --force-reinstall <name>==<version>`
// and returns its output. A non-zero exit is reported as an error.
func (p *publisher) install(ctx context.Context, target release.Version) (string, error) {
	spec := fmt.Sprintf("%s==%s", p.name, target)
	cmd := process.NewCommand(p.cfg.Tools.Pip, "install", "--upgrade", "--force-reinstall", spec)

	res, err := p.runner.Run(ctx, cmd)
	if err != nil {
		return "", err
	}

	if !res.Success() {
		return res.Output, fmt.Errorf("%s: exit code %d: %w", cmd, res.ExitCode, errInstallExit)
	}

	return res.Output, nil
}

// show runs `<pip> show <name>` and extracts the installed version.
func (p *publisher) show(ctx context.Context) (string, error) {
	cmd := process.NewCommand(p.cfg.Tools.Pip, "show", p.name.String())

	res, err := p.runner.Run(ctx, cmd)
	if err != nil {
		return "", err
	}

	installed, ok := ParseShowVersion(res.Output)
	if !ok {
		return "", fmt.Errorf("%s: %w", cmd, errVersionMissing)
	}

	return installed, nil
}

// ParseShowVersion returns the token following "Version:" in the
// whitespace-separated output of the show command.
func ParseShowVersion(output string) (string, bool) {
	fields := strings.Fields(output)

	i := slices.Index(fields, "Version:")
	if i < 0 || i+1 >= len(fields) {
		return "", false
	}

	return strings.TrimSpace(fields[i+1]), true
}

// FindArchives lists the files in <packageDir>/dist, relative to packageDir.
func FindArchives(packageDir string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(packageDir), archivePattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}

	archives := make([]string, 0, len(matches))
	for _, match := range matches {
		archives = append(archives, filepath.FromSlash(match))
	}

	slices.Sort(archives)

	return archives, nil
}

// tail keeps the end of long tool output for error messages.
func tail(output string) string {
	const limit = 2048

	output = strings.TrimSpace(output)
	if len(output) <= limit {
		return output
	}

	return "..." + output[len(output)-limit:]
}
