package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foreman/internal/config"
	"foreman/internal/cost"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
	return dir
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig(true, false, "/etc/foreman")
	assert.True(t, cfg.Debug)
	assert.False(t, cfg.Quiet)
	assert.Equal(t, "/etc/foreman", cfg.ConfigPath)
}

func TestNewApplicationBootstrap(t *testing.T) {
	workspaceDir := filepath.Join(t.TempDir(), "ws")
	configDir := writeConfig(t, "workspace:\n  vars:\n    application: lammps\n")

	cfg := NewConfig(false, true, configDir)
	cfg.WorkspaceDir = workspaceDir
	application, err := NewApplication(cfg)
	require.NoError(t, err)
	defer application.Close()

	require.NotNil(t, cfg.ForemanConfig)
	assert.Equal(t, workspaceDir, cfg.ForemanConfig.Workspace.Dir)
	assert.Equal(t, "lammps", cfg.ForemanConfig.Workspace.Vars["application"])

	// The cost agent has no environment dependencies and always registers.
	_, ok := application.Catalog().Lookup(cost.AgentName)
	assert.True(t, ok)

	// The workspace was created at the overridden location.
	info, err := os.Stat(workspaceDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewApplicationDefaultsWithoutConfigFile(t *testing.T) {
	cfg := NewConfig(false, true, t.TempDir())
	application, err := NewApplication(cfg)
	require.NoError(t, err)
	defer application.Close()

	assert.Equal(t, config.DefaultOracleEndpoint, cfg.ForemanConfig.Oracle.Endpoint)
	assert.True(t, cfg.ForemanConfig.Deploy.Cleanup)
}

func TestCloseRemovesWorkspace(t *testing.T) {
	workspaceDir := filepath.Join(t.TempDir(), "ws")
	cfg := NewConfig(false, true, t.TempDir())
	cfg.WorkspaceDir = workspaceDir

	application, err := NewApplication(cfg)
	require.NoError(t, err)
	require.NoError(t, application.Close())

	_, err = os.Stat(workspaceDir)
	assert.True(t, os.IsNotExist(err))
}

func TestKeepFlagPreservesWorkspace(t *testing.T) {
	workspaceDir := filepath.Join(t.TempDir(), "ws")
	cfg := NewConfig(false, true, t.TempDir())
	cfg.WorkspaceDir = workspaceDir
	cfg.Keep = true

	application, err := NewApplication(cfg)
	require.NoError(t, err)
	require.NoError(t, application.Close())

	info, err := os.Stat(workspaceDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestRunWithoutPlan(t *testing.T) {
	cfg := NewConfig(false, true, t.TempDir())
	application, err := NewApplication(cfg)
	require.NoError(t, err)
	defer application.Close()

	err = application.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no plan file")
}

func TestAsTemplateVars(t *testing.T) {
	vars := asTemplateVars(map[string]string{"application": "lammps"})
	assert.Equal(t, "lammps", vars["application"])
	assert.Empty(t, asTemplateVars(nil))
}
