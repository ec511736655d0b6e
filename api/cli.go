package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// rootOptions holds the flags shared by every command. Flag values only take effect when the
// flag is set explicitly; otherwise the file and environment win.
type rootOptions struct {
	configPath string
	flags      config
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{flags: defaultConfig()}

	cmd := &cobra.Command{
		Use:           "tasktracker",
		Short:         "Personal task tracker API",
		Long:          "A REST API for personal tasks with bearer-token authentication and a per-user activity log.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	bindFlags(cmd.PersistentFlags(), opts)

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newSeedCommand(opts))

	return cmd
}

func bindFlags(flags *pflag.FlagSet, opts *rootOptions) {
	flags.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	flags.IntVar(&opts.flags.Port, "port", opts.flags.Port, "HTTP server port")
	flags.StringVar(&opts.flags.Env, "env", opts.flags.Env, "environment (development|staging|production)")
	flags.StringVar(&opts.flags.DB.Driver, "db-driver", opts.flags.DB.Driver, "database driver (postgres|sqlite)")
	flags.StringVar(&opts.flags.DB.DSN, "db-dsn", "", "database DSN")
	flags.IntVar(&opts.flags.DB.MaxOpenConns, "db-max-open-conns", opts.flags.DB.MaxOpenConns, "PostgreSQL max open connections")
	flags.IntVar(&opts.flags.DB.MaxIdleConns, "db-max-idle-conns", opts.flags.DB.MaxIdleConns, "PostgreSQL max idle connections")
	flags.DurationVar(&opts.flags.DB.MaxIdleTime, "db-max-idle-time", opts.flags.DB.MaxIdleTime, "PostgreSQL max connection idle time")
	flags.StringVar(&opts.flags.JWT.Secret, "jwt-secret", "", "JWT signing secret")
	flags.DurationVar(&opts.flags.JWT.TTL, "jwt-ttl", opts.flags.JWT.TTL, "JWT lifetime")
	flags.IntVar(&opts.flags.BcryptCost, "bcrypt-cost", opts.flags.BcryptCost, "bcrypt cost factor")
	flags.StringVar(&opts.flags.SMTP.Host, "smtp-host", "", "SMTP host (empty disables mail)")
	flags.IntVar(&opts.flags.SMTP.Port, "smtp-port", opts.flags.SMTP.Port, "SMTP port")
	flags.StringVar(&opts.flags.SMTP.Username, "smtp-username", "", "SMTP username")
	flags.StringVar(&opts.flags.SMTP.Password, "smtp-password", "", "SMTP password")
	flags.StringVar(&opts.flags.SMTP.Sender, "smtp-sender", "", "SMTP sender")
	flags.StringSliceVar(&opts.flags.CORS.TrustedOrigins, "cors-trusted-origins", nil, "trusted CORS origins")
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Apply migrations and start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			err = migrate(ctx, db, cfg.DB.Driver)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		},
	}
}

func newSeedCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the demo user with sample tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			err = migrate(ctx, db, cfg.DB.Driver)
			if err != nil {
				return err
			}
			a, err := newAuth(cfg.JWT.Secret, cfg.JWT.TTL, cfg.BcryptCost)
			if err != nil {
				return err
			}
			res, err := seed(ctx, newStorage(db), a)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %s with %d tasks\n", res.user.Email, len(res.tasks))
			return nil
		},
	}
}

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	generated, err := cfg.ensureJWTSecret()
	if err != nil {
		return err
	}
	if generated {
		logger.Warn("no JWT secret configured, generated a random one; tokens will not survive a restart")
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("established a connection with database", "driver", cfg.DB.Driver)

	err = migrate(cmd.Context(), db, cfg.DB.Driver)
	if err != nil {
		return err
	}

	app, err := newApplication(cfg, db, logger)
	if err != nil {
		return err
	}
	return app.serve(cmd.Context())
}

// loadConfig resolves defaults, the optional YAML file, .env and the environment, and finally
// any explicitly set flags, in that order.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (config, error) {
	cfg := defaultConfig()

	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	if opts.configPath != "" {
		err = loadConfigFile(opts.configPath, &cfg)
		if err != nil {
			return cfg, err
		}
	}

	err = applyEnv(&cfg, os.Getenv)
	if err != nil {
		return cfg, err
	}

	applyFlags(cmd, &cfg, opts.flags)

	err = cfg.validate()
	if err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config, f config) {
	flags := cmd.Flags()
	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	set("port", func() { cfg.Port = f.Port })
	set("env", func() { cfg.Env = f.Env })
	set("db-driver", func() { cfg.DB.Driver = f.DB.Driver })
	set("db-dsn", func() { cfg.DB.DSN = f.DB.DSN })
	set("db-max-open-conns", func() { cfg.DB.MaxOpenConns = f.DB.MaxOpenConns })
	set("db-max-idle-conns", func() { cfg.DB.MaxIdleConns = f.DB.MaxIdleConns })
	set("db-max-idle-time", func() { cfg.DB.MaxIdleTime = f.DB.MaxIdleTime })
	set("jwt-secret", func() { cfg.JWT.Secret = f.JWT.Secret })
	set("jwt-ttl", func() { cfg.JWT.TTL = f.JWT.TTL })
	set("bcrypt-cost", func() { cfg.BcryptCost = f.BcryptCost })
	set("smtp-host", func() { cfg.SMTP.Host = f.SMTP.Host })
	set("smtp-port", func() { cfg.SMTP.Port = f.SMTP.Port })
	set("smtp-username", func() { cfg.SMTP.Username = f.SMTP.Username })
	set("smtp-password", func() { cfg.SMTP.Password = f.SMTP.Password })
	set("smtp-sender", func() { cfg.SMTP.Sender = f.SMTP.Sender })
	set("cors-trusted-origins", func() { cfg.CORS.TrustedOrigins = f.CORS.TrustedOrigins })
}
