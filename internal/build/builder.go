package build

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"foreman/internal/config"
	"foreman/pkg/logging"
)

const buildSubsystem = "Build"

// execCommandContext is a variable to allow mocking in tests
var execCommandContext = exec.CommandContext

// Builder turns a build recipe into a tagged container image. The
// returned string is the combined build output, also on failure, so the
// caller can hand it to the decision service for refinement.
type Builder interface {
	BuildImage(ctx context.Context, recipe, tag string) (string, error)
}

// CLIBuilder implements Builder by shelling out to a Docker compatible
// CLI (docker, podman, ...).
type CLIBuilder struct {
	binary      string
	networkHost bool
}

// NewCLIBuilder checks that the configured build binary is available
// and its daemon reachable, and returns a builder using it.
func NewCLIBuilder(cfg config.BuildConfig) (*CLIBuilder, error) {
	binary := cfg.Binary
	if binary == "" {
		binary = "docker"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return nil, fmt.Errorf("%s command not found in PATH: %w", binary, err)
	}
	cmd := execCommandContext(context.Background(), binary, "info")
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s daemon not accessible: %w", binary, err)
	}
	return &CLIBuilder{binary: binary, networkHost: cfg.NetworkHost}, nil
}

// BuildImage writes the recipe into a throwaway build context and runs
// the build there.
func (b *CLIBuilder) BuildImage(ctx context.Context, recipe, tag string) (string, error) {
	if strings.TrimSpace(recipe) == "" {
		return "", fmt.Errorf("no build recipe content provided")
	}

	dir, err := os.MkdirTemp("", "foreman-build-")
	if err != nil {
		return "", fmt.Errorf("failed to create build context: %w", err)
	}
	defer os.RemoveAll(dir)

	if err := os.WriteFile(filepath.Join(dir, "Dockerfile"), []byte(recipe), 0o644); err != nil {
		return "", fmt.Errorf("failed to write build recipe: %w", err)
	}

	args := []string{"build"}
	if b.networkHost {
		args = append(args, "--network", "host")
	}
	args = append(args, "-t", tag, ".")

	logging.Debug(buildSubsystem, "Building image with command: %s %s", b.binary, strings.Join(args, " "))
	cmd := execCommandContext(ctx, b.binary, args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), fmt.Errorf("%s build failed: %w", b.binary, err)
	}
	return string(output), nil
}
