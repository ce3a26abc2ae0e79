package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://api.github.com", cfg.APIBaseURL)
	assert.Equal(t, "./backups", cfg.BackupDir)
	assert.Equal(t, 3, cfg.Retention)
	assert.True(t, cfg.ChangeDetection)
	assert.False(t, cfg.OrphanCleanup)
	assert.False(t, cfg.PublishStats)
	assert.Equal(t, int64(1<<20), cfg.LogMaxSize)
	assert.Equal(t, 5, cfg.LogRetention)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ORG", "acme")
	t.Setenv("GITHUB_TOKEN", "secret")
	t.Setenv("BACKUP_RETENTION", "7")
	t.Setenv("CHANGE_DETECTION", "false")
	t.Setenv("ORPHAN_CLEANUP", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "acme", cfg.Org)
	assert.Equal(t, "secret", cfg.Token)
	assert.Equal(t, 7, cfg.Retention)
	assert.False(t, cfg.ChangeDetection)
	assert.True(t, cfg.OrphanCleanup)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forksync.yaml")
	data := []byte(`
organization: from-file
token: file-token
retention: 9
orphan_cleanup: true
backup_dir: /var/backups/forks
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	// env wins over the file
	t.Setenv("ORG", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Org)
	assert.Equal(t, "file-token", cfg.Token)
	assert.Equal(t, 9, cfg.Retention)
	assert.True(t, cfg.OrphanCleanup)
	assert.Equal(t, "/var/backups/forks", cfg.BackupDir)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Run("bad int", func(t *testing.T) {
		t.Setenv("BACKUP_RETENTION", "lots")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("bad bool", func(t *testing.T) {
		t.Setenv("CHANGE_DETECTION", "maybe")
		_, err := Load("")
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := defaults()
		cfg.Org = "acme"
		cfg.Token = "secret"
		return cfg
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("missing org", func(t *testing.T) {
		cfg := valid()
		cfg.Org = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing token", func(t *testing.T) {
		cfg := valid()
		cfg.Token = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero retention", func(t *testing.T) {
		cfg := valid()
		cfg.Retention = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("negative log retention", func(t *testing.T) {
		cfg := valid()
		cfg.LogRetention = -1
		assert.Error(t, cfg.Validate())
	})
}
