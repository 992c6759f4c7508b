package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/amaykorade/zakapay-hackathon/pkg/config"
	"github.com/amaykorade/zakapay-hackathon/pkg/db"
	"github.com/amaykorade/zakapay-hackathon/pkg/logger"
	"github.com/amaykorade/zakapay-hackathon/pkg/migrate"
)

const usage = `usage: migrate [flags] <command>

commands:
  up                apply all pending migrations
  down              roll back the latest migration
  to <version>      migrate up or down to a version
  status            list migrations and their state
  create <name>     write a new empty migration under -dir
  validate          check migration names and goose markers
`

func main() {
	dir := flag.String("dir", "", "read migrations from this directory instead of the embedded set")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	if err := run(flag.Args(), *dir, logg); err != nil {
		logg.Error(context.Background(), "migrate failed", err)
		os.Exit(1)
	}
}

func run(args []string, dir string, logg *logger.Logger) error {
	if len(args) == 0 {
		flag.Usage()
		return errors.New("command required")
	}
	command := args[0]

	migrations := migrate.Embedded()
	if dir != "" {
		migrations = os.DirFS(dir)
	}

	// create and validate work on files only
	switch command {
	case "create":
		if len(args) < 2 {
			return errors.New("create needs a name")
		}
		target := dir
		if target == "" {
			target = migrate.SourceDir
		}
		path, err := migrate.CreateSQLMigration(target, args[1], time.Now())
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	case "validate":
		return migrate.Validate(migrations)
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":     cfg.App.Env,
		"command": command,
	})

	runner, closeDB, err := openRunner(ctx, cfg, migrations, logg)
	if err != nil {
		return err
	}
	defer closeDB()

	switch command {
	case "up":
		return runner.Up(ctx)
	case "down":
		return runner.Down(ctx)
	case "status":
		return runner.Status(ctx)
	case "to":
		if len(args) < 2 {
			return errors.New("to needs a version")
		}
		version, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("version %q: %w", args[1], err)
		}
		return runner.To(ctx, version)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func openRunner(ctx context.Context, cfg *config.Config, migrations fs.FS, logg *logger.Logger) (*migrate.Runner, func(), error) {
	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	closeDB := func() {
		if err := client.Close(); err != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "database close failed")
		}
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("sql handle: %w", err)
	}
	runner, err := migrate.NewRunner(sqlDB, migrations, logg)
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	return runner, closeDB, nil
}
