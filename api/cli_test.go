package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearConfigEnv blanks every variable applyEnv reads so the host environment cannot leak in.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "ENV", "DB_DRIVER", "DB_DSN", "DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS",
		"DB_MAX_IDLE_TIME", "JWT_SECRET", "JWT_TTL", "BCRYPT_COST", "SMTP_HOST", "SMTP_PORT",
		"SMTP_USERNAME", "SMTP_PASSWORD", "SMTP_SENDER", "CORS_TRUSTED_ORIGINS",
	} {
		t.Setenv(key, "")
	}
}

func parsedCommand(t *testing.T, args ...string) (*cobra.Command, *rootOptions) {
	t.Helper()
	opts := &rootOptions{flags: defaultConfig()}
	cmd := &cobra.Command{Use: "test"}
	bindFlags(cmd.Flags(), opts)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd, opts
}

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := newRootCommand()

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "migrate", "seed"}, names)

	for _, flag := range []string{"config", "port", "db-driver", "db-dsn", "jwt-secret", "jwt-ttl", "bcrypt-cost"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestLoadConfigPrecedence(t *testing.T) {
	clearConfigEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 4000\nenv: staging\ndb:\n  driver: sqlite\n  dsn: from-file.db\n"), 0o600))

	t.Run("file over defaults", func(t *testing.T) {
		cmd, opts := parsedCommand(t, "--config", path)
		cfg, err := loadConfig(cmd, opts)
		require.NoError(t, err)
		assert.Equal(t, 4000, cfg.Port)
		assert.Equal(t, "staging", cfg.Env)
		assert.Equal(t, "from-file.db", cfg.DB.DSN)
		assert.Equal(t, 12, cfg.BcryptCost)
	})

	t.Run("env over file", func(t *testing.T) {
		t.Setenv("PORT", "5000")
		cmd, opts := parsedCommand(t, "--config", path)
		cfg, err := loadConfig(cmd, opts)
		require.NoError(t, err)
		assert.Equal(t, 5000, cfg.Port)
		assert.Equal(t, "staging", cfg.Env)
	})

	t.Run("explicit flags over env", func(t *testing.T) {
		t.Setenv("PORT", "5000")
		cmd, opts := parsedCommand(t, "--config", path, "--port", "6000", "--db-dsn", "from-flag.db")
		cfg, err := loadConfig(cmd, opts)
		require.NoError(t, err)
		assert.Equal(t, 6000, cfg.Port)
		assert.Equal(t, "from-flag.db", cfg.DB.DSN)
		// unset flags never override with their defaults
		assert.Equal(t, "sqlite", cfg.DB.Driver)
	})
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	clearConfigEnv(t)

	cmd, opts := parsedCommand(t)
	_, err := loadConfig(cmd, opts)
	assert.Error(t, err, "a postgres config without a dsn is invalid")

	cmd, opts = parsedCommand(t, "--db-driver", "sqlite", "--db-dsn", ":memory:", "--bcrypt-cost", "99")
	_, err = loadConfig(cmd, opts)
	assert.Error(t, err)
}

func TestMigrateAndSeedCommands(t *testing.T) {
	clearConfigEnv(t)
	dsn := filepath.Join(t.TempDir(), "tasks.db")

	run := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		cmd := newRootCommand()
		cmd.SetOut(&out)
		cmd.SetArgs(append(args, "--db-driver", "sqlite", "--db-dsn", dsn, "--bcrypt-cost", "4"))
		require.NoError(t, cmd.Execute())
		return out.String()
	}

	assert.Equal(t, "schema applied\n", run("migrate"))
	assert.Equal(t, "seeded demo@example.com with 3 tasks\n", run("seed"))
	assert.Equal(t, "seeded demo@example.com with 3 tasks\n", run("seed"))
}
