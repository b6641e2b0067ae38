package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/shopora-backend/pkg/config"
	"github.com/angelmondragon/shopora-backend/pkg/db"
	"github.com/angelmondragon/shopora-backend/pkg/logger"
	"github.com/angelmondragon/shopora-backend/pkg/migrate"
)

type options struct {
	dir     string
	name    string
	version string
}

// dbCommands need a live connection; create and validate only touch files.
var dbCommands = map[string]func(ctx context.Context, sqlDB *sql.DB, src migrate.Source, opts options) error{
	"up": func(ctx context.Context, sqlDB *sql.DB, src migrate.Source, _ options) error {
		return migrate.Run(ctx, sqlDB, src, "up")
	},
	"down": func(ctx context.Context, sqlDB *sql.DB, src migrate.Source, _ options) error {
		return migrate.Run(ctx, sqlDB, src, "down")
	},
	"status": func(ctx context.Context, sqlDB *sql.DB, src migrate.Source, _ options) error {
		return migrate.Run(ctx, sqlDB, src, "status")
	},
	"version": func(ctx context.Context, sqlDB *sql.DB, src migrate.Source, opts options) error {
		if opts.version == "" {
			return fmt.Errorf("missing -version")
		}
		return migrate.MigrateToVersion(ctx, sqlDB, src, opts.version)
	},
}

func main() {
	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|create|validate")
	var opts options
	flag.StringVar(&opts.dir, "dir", "", "read migrations from this directory instead of the embedded set (create defaults to "+migrate.DefaultDir+")")
	flag.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	_ = godotenv.Load()
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	ctx := logg.WithField(context.Background(), "cmd", *cmd)

	src := migrate.Embedded()
	if opts.dir != "" {
		src = migrate.FromDir(opts.dir)
	}

	switch *cmd {
	case "create":
		dir := opts.dir
		if dir == "" {
			dir = migrate.DefaultDir
		}
		if opts.name == "" {
			exit(ctx, logg, "missing -name for create", nil)
		}
		path, err := migrate.CreateSQLMigration(dir, opts.name, time.Now())
		if err != nil {
			exit(ctx, logg, "failed to create migration", err)
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		if err := migrate.Validate(src); err != nil {
			exit(ctx, logg, "migration validation failed", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	run, ok := dbCommands[*cmd]
	if !ok {
		exit(ctx, logg, "unknown -cmd value "+*cmd, nil)
	}

	cfg, err := config.Load()
	if err != nil {
		exit(ctx, logg, "failed to load config", err)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": *cmd})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		exit(ctx, logg, "failed to connect to database", err)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		exit(ctx, logg, "failed to unwrap sql.DB", err)
	}

	if err := run(ctx, sqlDB, src, opts); err != nil {
		exit(ctx, logg, "migration failed", err)
	}
	logg.Info(ctx, "migration finished")
}

func exit(ctx context.Context, logg *logger.Logger, msg string, err error) {
	logg.Error(ctx, msg, err)
	os.Exit(1)
}
